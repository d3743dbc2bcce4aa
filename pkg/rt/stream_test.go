package rt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamAppendAndSize(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Append([]byte("abc")))
	require.NoError(t, s.Append([]byte("defg")))
	assert.Equal(t, uint64(7), s.Size())
	assert.Equal(t, int64(7), s.End())

	s.Freeze()
	assert.True(t, s.IsFrozen())
	assert.Error(t, s.Append([]byte("x")))
}

func TestStreamTrimKeepsAbsoluteOffsets(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Append([]byte("abcdef")))
	s.Trim(4)
	assert.Equal(t, int64(4), s.Begin())
	assert.Equal(t, uint64(2), s.Size())

	// Offsets stay absolute after trimming.
	it := s.IterAt(4)
	b, err := it.Deref()
	require.NoError(t, err)
	assert.Equal(t, byte('e'), b)

	_, err = s.IterAt(0).Deref()
	assert.Error(t, err, "trimmed data is gone")
}

func TestOpenViewExtends(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Append([]byte("abc")))
	v := s.ViewAll()
	assert.Equal(t, uint64(3), v.Size())

	require.NoError(t, s.Append([]byte("def")))
	assert.Equal(t, uint64(6), v.Size(), "open views grow with the stream")
	assert.Equal(t, "abcdef", string(v.Data()))
}

func TestTrimmedViewFixedEnd(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Append([]byte("abcdef")))
	v := s.ViewAll().Limit(3)
	assert.Equal(t, uint64(3), v.Size())
	require.NoError(t, s.Append([]byte("ghi")))
	assert.Equal(t, uint64(3), v.Size(), "trimmed views do not grow")
	assert.True(t, v.IsComplete())
}

func TestViewAdvanceAndStartsWith(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Append([]byte("hello world")))
	v := s.ViewAll()
	assert.True(t, v.StartsWith(Bytes("hello")))
	v = v.Advance(6)
	assert.True(t, v.StartsWith(Bytes("world")))
	assert.Equal(t, uint64(5), v.Size())
}

func TestViewFindForward(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Append([]byte("foo\r\nbar")))
	v := s.ViewAll()

	found, it := v.Find(Bytes("\r\n"), FindForward, nil)
	require.True(t, found)
	assert.Equal(t, int64(3), it.Offset())

	found, _ = v.Find(Bytes("zzz"), FindForward, nil)
	assert.False(t, found)
}

func TestViewFindAcrossChunks(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Append([]byte("ab")))
	require.NoError(t, s.Append([]byte("cd")))
	v := s.ViewAll()
	found, it := v.Find(Bytes("bc"), FindForward, nil)
	require.True(t, found)
	assert.Equal(t, int64(1), it.Offset())
}

func TestViewFindBackward(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Append([]byte("abcabc")))
	v := s.ViewAll()

	found, it := v.Find(Bytes("abc"), FindBackward, nil)
	require.True(t, found)
	assert.Equal(t, int64(3), it.Offset(), "backward search finds the last occurrence")

	// With a start iterator, start means one-past-end of the region.
	start := s.IterAt(3)
	found, it = v.Find(Bytes("abc"), FindBackward, &start)
	require.True(t, found)
	assert.Equal(t, int64(0), it.Offset())
}

func TestIteratorArithmetic(t *testing.T) {
	s := NewStream()
	require.NoError(t, s.Append([]byte("abc")))
	it := s.ViewAll().Begin()
	assert.Equal(t, int64(0), it.Offset())
	it2 := it.Advance(2)
	assert.Equal(t, int64(2), it2.Offset())
	b, err := it2.Deref()
	require.NoError(t, err)
	assert.Equal(t, byte('c'), b)
}
