package rt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchStateAccept(t *testing.T) {
	re, err := CompileRegExp([]string{"GET", "POST"}, RegExpFlags{NoSub: true})
	require.NoError(t, err)

	ms := re.TokenMatcher()
	rc, n, err := ms.Advance(Bytes("GET /index"), true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), rc, "accept ID is the 1-based pattern index")
	assert.Equal(t, uint64(3), n)
}

func TestMatchStateSecondAlternate(t *testing.T) {
	re, err := CompileRegExp([]string{"GET", "POST"}, RegExpFlags{NoSub: true})
	require.NoError(t, err)

	ms := re.TokenMatcher()
	rc, n, err := ms.Advance(Bytes("POST /x"), true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), rc)
	assert.Equal(t, uint64(4), n)
}

func TestMatchStateNeedMoreData(t *testing.T) {
	re, err := CompileRegExp([]string{"HELLO"}, RegExpFlags{NoSub: true})
	require.NoError(t, err)

	ms := re.TokenMatcher()
	rc, _, err := ms.Advance(Bytes("HEL"), false)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), rc, "partial input needs more data")

	rc, n, err := ms.Advance(Bytes("LO rest"), false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), rc)
	assert.Equal(t, uint64(5), n)
}

func TestMatchStateDefiniteNoMatch(t *testing.T) {
	re, err := CompileRegExp([]string{"GET"}, RegExpFlags{NoSub: true})
	require.NoError(t, err)

	ms := re.TokenMatcher()
	rc, _, err := ms.Advance(Bytes("PUT /x"), true)
	require.NoError(t, err)
	assert.Equal(t, int32(0), rc)
}

func TestMatchStateReuseRejected(t *testing.T) {
	re, err := CompileRegExp([]string{"A+"}, RegExpFlags{NoSub: true})
	require.NoError(t, err)

	ms := re.TokenMatcher()
	rc, _, err := ms.Advance(Bytes("AAB"), true)
	require.NoError(t, err)
	require.Equal(t, int32(1), rc)

	_, _, err = ms.Advance(Bytes("more"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match state")
}

func TestMatchStateCloneRules(t *testing.T) {
	// No captures: clonable.
	plain, err := CompileRegExp([]string{"abc"}, RegExpFlags{NoSub: true})
	require.NoError(t, err)
	ms := plain.TokenMatcher()
	_, err = ms.Clone()
	assert.NoError(t, err)

	// Capture groups: movable, not clonable.
	caps, err := CompileRegExp([]string{"a(b+)c"}, RegExpFlags{})
	require.NoError(t, err)
	require.True(t, caps.HasCaptures())
	ms = caps.TokenMatcher()
	_, err = ms.Clone()
	assert.Error(t, err)
}

func TestMatchStateCaptures(t *testing.T) {
	re, err := CompileRegExp([]string{"a(b+)(c?)d"}, RegExpFlags{})
	require.NoError(t, err)

	ms := re.TokenMatcher()
	rc, n, err := ms.Advance(Bytes("abbbd!"), true)
	require.NoError(t, err)
	require.Equal(t, int32(1), rc)
	assert.Equal(t, uint64(5), n)

	caps := ms.Captures()
	require.Len(t, caps, 3)
	assert.Equal(t, "abbbd", string(caps[0]))
	assert.Equal(t, "bbb", string(caps[1]))
	assert.Equal(t, "", string(caps[2]))
}

func TestBytesMatchGroup(t *testing.T) {
	re, err := CompileRegExp([]string{"(\\w+)=(\\w+)"}, RegExpFlags{})
	require.NoError(t, err)

	val, ok, err := Bytes("key=value;").Match(re, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value", string(val))

	_, ok, err = Bytes("no separator").Match(re, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompileError(t *testing.T) {
	_, err := CompileRegExp([]string{"("}, RegExpFlags{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern")
}
