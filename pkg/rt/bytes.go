package rt

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Bytes is a raw byte sequence. Values behave immutably: all operations
// return new values and never modify the receiver.
type Bytes []byte

// Charset names a character encoding for Decode/Encode.
type Charset int

const (
	UTF8 Charset = iota
	ASCII
)

// Side selects which end(s) Strip trims.
type Side int

const (
	SideBoth Side = iota
	SideLeft
	SideRight
)

// Size returns the number of bytes.
func (b Bytes) Size() uint64 { return uint64(len(b)) }

// Sub returns the sub-sequence [begin, end). Out-of-range offsets raise
// OutOfRange.
func (b Bytes) Sub(begin, end uint64) (Bytes, error) {
	if begin > end || end > uint64(len(b)) {
		return nil, OutOfRange("invalid bytes subrange [%d, %d) of %d bytes", begin, end, len(b))
	}
	return b[begin:end], nil
}

// StartsWith reports whether b begins with prefix.
func (b Bytes) StartsWith(prefix Bytes) bool { return bytes.HasPrefix(b, prefix) }

// Find locates needle inside b, returning (found, offset).
func (b Bytes) Find(needle Bytes) (bool, uint64) {
	i := bytes.Index(b, needle)
	if i < 0 {
		return false, 0
	}
	return true, uint64(i)
}

// Lower returns b with ASCII letters lower-cased.
func (b Bytes) Lower() Bytes { return bytes.ToLower(b) }

// Upper returns b with ASCII letters upper-cased.
func (b Bytes) Upper() Bytes { return bytes.ToUpper(b) }

// Strip trims whitespace (or the given set) from the selected side(s).
func (b Bytes) Strip(side Side, set Bytes) Bytes {
	cut := " \t\n\r\v\f"
	if len(set) > 0 {
		cut = string(set)
	}
	switch side {
	case SideLeft:
		return Bytes(bytes.TrimLeft(b, cut))
	case SideRight:
		return Bytes(bytes.TrimRight(b, cut))
	default:
		return Bytes(bytes.Trim(b, cut))
	}
}

// Split splits b at every occurrence of sep; empty sep splits at
// whitespace runs.
func (b Bytes) Split(sep Bytes) []Bytes {
	var parts [][]byte
	if len(sep) == 0 {
		parts = bytes.Fields(b)
	} else {
		parts = bytes.Split(b, sep)
	}
	out := make([]Bytes, len(parts))
	for i, p := range parts {
		out[i] = Bytes(p)
	}
	return out
}

// Split1 splits b at the first occurrence of sep, returning both halves.
// Without a match, the first half is b and the second is empty.
func (b Bytes) Split1(sep Bytes) (Bytes, Bytes) {
	if len(sep) == 0 {
		i := bytes.IndexAny(b, " \t\n\r\v\f")
		if i < 0 {
			return b, nil
		}
		return b[:i], Bytes(bytes.TrimLeft(b[i:], " \t\n\r\v\f"))
	}
	before, after, found := bytes.Cut(b, sep)
	if !found {
		return b, nil
	}
	return before, after
}

// Join concatenates parts with b as separator.
func (b Bytes) Join(parts []Bytes) Bytes {
	raw := make([][]byte, len(parts))
	for i, p := range parts {
		raw[i] = p
	}
	return Bytes(bytes.Join(raw, b))
}

// Decode converts the bytes to a string in the given charset. Invalid
// UTF-8 sequences are replaced with the replacement character; ASCII maps
// non-ASCII bytes likewise.
func (b Bytes) Decode(cs Charset) string {
	switch cs {
	case ASCII:
		var sb strings.Builder
		for _, c := range b {
			if c < 0x80 {
				sb.WriteByte(c)
			} else {
				sb.WriteRune(utf8.RuneError)
			}
		}
		return sb.String()
	default:
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
}

// EncodeBytes converts a string into bytes in the given charset.
func EncodeBytes(s string, cs Charset) Bytes {
	return Bytes(s)
}

// ToInt interprets the bytes as a signed decimal number in the given base.
func (b Bytes) ToInt(base int) (int64, error) {
	v, err := strconv.ParseInt(string(b), base, 64)
	if err != nil {
		return 0, InvalidValue("cannot parse %q as integer", string(b))
	}
	return v, nil
}

// ToUint interprets the bytes as an unsigned decimal number in the given
// base.
func (b Bytes) ToUint(base int) (uint64, error) {
	v, err := strconv.ParseUint(string(b), base, 64)
	if err != nil {
		return 0, InvalidValue("cannot parse %q as unsigned integer", string(b))
	}
	return v, nil
}

// ToIntBinary interprets the raw bytes as a signed integer in the given
// byte order.
func (b Bytes) ToIntBinary(bo ByteOrder) (int64, error) {
	if len(b) > 8 {
		return 0, InvalidValue("integer needs at most 8 bytes, have %d", len(b))
	}
	return UnpackInt(b, len(b)*8, bo)
}

// ToUintBinary interprets the raw bytes as an unsigned integer in the given
// byte order.
func (b Bytes) ToUintBinary(bo ByteOrder) (uint64, error) {
	if len(b) > 8 {
		return 0, InvalidValue("integer needs at most 8 bytes, have %d", len(b))
	}
	return UnpackUint(b, len(b)*8, bo)
}

// ToTime interprets the bytes as seconds since the epoch, textual form.
func (b Bytes) ToTime(base int) (Time, error) {
	secs, err := b.ToUint(base)
	if err != nil {
		return Time{}, err
	}
	return TimeFromNanos(secs * 1e9), nil
}

// ToTimeBinary interprets the raw bytes as epoch seconds in wire form.
func (b Bytes) ToTimeBinary(bo ByteOrder) (Time, error) {
	secs, err := b.ToUintBinary(bo)
	if err != nil {
		return Time{}, err
	}
	return TimeFromNanos(secs * 1e9), nil
}

// Match runs the regular expression against b and returns the capture
// group's content (group 0 is the whole match); an unset optional when the
// pattern does not match.
func (b Bytes) Match(re *RegExp, group uint64) (Bytes, bool, error) {
	return re.MatchGroup(b, int(group))
}

func (b Bytes) String() string { return string(b) }
