package rt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesBasics(t *testing.T) {
	b := Bytes("hello world")
	assert.Equal(t, uint64(11), b.Size())
	assert.True(t, b.StartsWith(Bytes("hello")))
	assert.False(t, b.StartsWith(Bytes("world")))

	found, off := b.Find(Bytes("world"))
	require.True(t, found)
	assert.Equal(t, uint64(6), off)

	sub, err := b.Sub(0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(sub))

	_, err = b.Sub(5, 100)
	assert.Error(t, err)
}

func TestBytesCase(t *testing.T) {
	assert.Equal(t, "abc", string(Bytes("AbC").Lower()))
	assert.Equal(t, "ABC", string(Bytes("AbC").Upper()))
}

func TestBytesStrip(t *testing.T) {
	assert.Equal(t, "x", string(Bytes("  x\t\n").Strip(SideBoth, nil)))
	assert.Equal(t, "x  ", string(Bytes("  x  ").Strip(SideLeft, nil)))
	assert.Equal(t, "  x", string(Bytes("  x  ").Strip(SideRight, nil)))
	assert.Equal(t, "b", string(Bytes("aba").Strip(SideBoth, Bytes("a"))))
}

func TestBytesSplit(t *testing.T) {
	parts := Bytes("a,b,c").Split(Bytes(","))
	require.Len(t, parts, 3)
	assert.Equal(t, "b", string(parts[1]))

	// Empty separator splits at whitespace runs.
	parts = Bytes("a  b\tc").Split(nil)
	require.Len(t, parts, 3)
	assert.Equal(t, "c", string(parts[2]))

	left, right := Bytes("key=value=more").Split1(Bytes("="))
	assert.Equal(t, "key", string(left))
	assert.Equal(t, "value=more", string(right))

	left, right = Bytes("nosep").Split1(Bytes("="))
	assert.Equal(t, "nosep", string(left))
	assert.Empty(t, right)
}

func TestBytesJoin(t *testing.T) {
	sep := Bytes(", ")
	joined := sep.Join([]Bytes{Bytes("a"), Bytes("b"), Bytes("c")})
	assert.Equal(t, "a, b, c", string(joined))
}

// Round-trip: decoding and re-encoding valid UTF-8 is the identity.
func TestBytesDecodeEncodeRoundTrip(t *testing.T) {
	for _, s := range []string{"", "plain", "ünïcødé", "日本語", "mixed 中 text"} {
		decoded := Bytes(s).Decode(UTF8)
		assert.Equal(t, s, decoded)
		assert.Equal(t, Bytes(s), EncodeBytes(decoded, UTF8))
	}
}

func TestBytesDecodeInvalid(t *testing.T) {
	// Invalid sequences decode to replacement characters, not errors.
	out := Bytes([]byte{0xff, 'a', 0xfe}).Decode(UTF8)
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "�")

	out = Bytes([]byte{'a', 0xc3, 'b'}).Decode(ASCII)
	assert.Equal(t, "a�b", out)
}

func TestBytesToNumbers(t *testing.T) {
	v, err := Bytes("1234").ToInt(10)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), v)

	u, err := Bytes("ff").ToUint(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(255), u)

	_, err = Bytes("zz").ToInt(10)
	assert.Error(t, err)

	bv, err := Bytes([]byte{0x01, 0x00}).ToUintBinary(Big)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), bv)

	sv, err := Bytes([]byte{0xff}).ToIntBinary(Big)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), sv)

	_, err = Bytes("123456789").ToUintBinary(Big)
	assert.Error(t, err, "more than 8 bytes")
}

func TestBytesToTime(t *testing.T) {
	tm, err := Bytes("1600000000").ToTime(10)
	require.NoError(t, err)
	assert.InDelta(t, 1.6e9, tm.EpochSeconds(), 0.001)
}
