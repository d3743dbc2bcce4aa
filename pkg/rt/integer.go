package rt

import (
	"encoding/binary"
	"math/bits"
)

// The integer helpers implement checked arithmetic for the generated code.
// Overflow, division by zero and out-of-range shifts raise OutOfRange.

// AddUint adds two unsigned integers of the given width, checking overflow.
func AddUint(a, b uint64, width int) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 || !fitsUint(sum, width) {
		return 0, OutOfRange("integer overflow in addition")
	}
	return sum, nil
}

// SubUint subtracts b from a, checking underflow.
func SubUint(a, b uint64, width int) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, OutOfRange("integer underflow in subtraction")
	}
	return diff, nil
}

// MulUint multiplies two unsigned integers, checking overflow.
func MulUint(a, b uint64, width int) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 || !fitsUint(lo, width) {
		return 0, OutOfRange("integer overflow in multiplication")
	}
	return lo, nil
}

// DivUint divides a by b, checking for division by zero.
func DivUint(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, OutOfRange("division by zero")
	}
	return a / b, nil
}

// ModUint computes a mod b, checking for division by zero.
func ModUint(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, OutOfRange("division by zero")
	}
	return a % b, nil
}

// ShiftLeftUint shifts a left by n, checking the shift range.
func ShiftLeftUint(a uint64, n uint64, width int) (uint64, error) {
	if n >= uint64(width) {
		return 0, OutOfRange("shift count out of range")
	}
	v := a << n
	if !fitsUint(v, width) || v>>n != a {
		return 0, OutOfRange("integer overflow in shift")
	}
	return v, nil
}

// ShiftRightUint shifts a right by n, checking the shift range.
func ShiftRightUint(a uint64, n uint64, width int) (uint64, error) {
	if n >= uint64(width) {
		return 0, OutOfRange("shift count out of range")
	}
	return a >> n, nil
}

// AddInt adds two signed integers, checking overflow.
func AddInt(a, b int64, width int) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) || !fitsInt(sum, width) {
		return 0, OutOfRange("integer overflow in addition")
	}
	return sum, nil
}

// SubInt subtracts b from a, checking overflow.
func SubInt(a, b int64, width int) (int64, error) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) || !fitsInt(diff, width) {
		return 0, OutOfRange("integer overflow in subtraction")
	}
	return diff, nil
}

// MulInt multiplies two signed integers, checking overflow.
func MulInt(a, b int64, width int) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	// The division-based check below cannot see this case: MinInt64 / -1
	// wraps back to MinInt64.
	if a == -9223372036854775808 && b == -1 || b == -9223372036854775808 && a == -1 {
		return 0, OutOfRange("integer overflow in multiplication")
	}
	prod := a * b
	if prod/b != a || !fitsInt(prod, width) {
		return 0, OutOfRange("integer overflow in multiplication")
	}
	return prod, nil
}

// DivInt divides a by b, checking division by zero and overflow.
func DivInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, OutOfRange("division by zero")
	}
	if a == -9223372036854775808 && b == -1 {
		return 0, OutOfRange("integer overflow in division")
	}
	return a / b, nil
}

func fitsUint(v uint64, width int) bool {
	if width >= 64 {
		return true
	}
	return v < 1<<uint(width)
}

func fitsInt(v int64, width int) bool {
	if width >= 64 {
		return true
	}
	min := int64(-1) << uint(width-1)
	max := int64(1)<<uint(width-1) - 1
	return v >= min && v <= max
}

// PackUint encodes v into width/8 bytes with the given byte order.
func PackUint(v uint64, width int, bo ByteOrder) []byte {
	n := width / 8
	buf := make([]byte, 8)
	if effectiveBig(bo) {
		binary.BigEndian.PutUint64(buf, v)
		return buf[8-n:]
	}
	binary.LittleEndian.PutUint64(buf, v)
	return buf[:n]
}

// UnpackUint decodes width/8 bytes into an unsigned integer.
func UnpackUint(data []byte, width int, bo ByteOrder) (uint64, error) {
	n := width / 8
	if len(data) < n {
		return 0, OutOfRange("not enough bytes to unpack uint%d", width)
	}
	var v uint64
	if effectiveBig(bo) {
		for i := 0; i < n; i++ {
			v = v<<8 | uint64(data[i])
		}
	} else {
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(data[i])
		}
	}
	return v, nil
}

// PackInt encodes a signed integer in two's complement.
func PackInt(v int64, width int, bo ByteOrder) []byte {
	return PackUint(uint64(v), width, bo)
}

// UnpackInt decodes width/8 bytes into a sign-extended signed integer.
func UnpackInt(data []byte, width int, bo ByteOrder) (int64, error) {
	u, err := UnpackUint(data, width, bo)
	if err != nil {
		return 0, err
	}
	shift := uint(64 - width)
	return int64(u<<shift) >> shift, nil
}

// effectiveBig resolves the byte order to big-endianness; Network is big,
// Host follows the machine (Go slices are addressed byte-wise, so we pin
// Host to little-endian, the common deployment target).
func effectiveBig(bo ByteOrder) bool {
	switch bo {
	case Little, Host:
		return false
	default:
		return true
	}
}
