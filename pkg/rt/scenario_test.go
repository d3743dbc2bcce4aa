package rt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The scenario tests drive ParseState the way generated parse functions do:
// wait for input, match or unpack, advance, trim.

// runParse drives fn as a parse fiber over the stream, feeding chunks and
// freezing at the end.
func runParse(t *testing.T, chunks []string, fn func(*ParseState) error) error {
	t.Helper()
	data := NewStream()
	ps := NewParseState(data)
	f := NewFiber(func(f *Fiber) error {
		ps.SetFiber(f)
		return fn(ps)
	})

	done, err := f.Resume()
	for _, c := range chunks {
		if done {
			break
		}
		require.NoError(t, data.Append([]byte(c)))
		done, err = f.Resume()
	}
	if !done {
		data.Freeze()
		_, err = f.Resume()
	}
	return err
}

// Scenario 1: a literal bytes field matches exactly and advances the view.
func TestScenarioLiteralBytesField(t *testing.T) {
	var x Bytes
	parse := func(ps *ParseState) error {
		lit := Bytes("HELLO")
		if err := ps.WaitForInput(lit.Size(), "expecting 5 bytes for bytes literal"); err != nil {
			return err
		}
		if !ps.Cur.StartsWith(lit) {
			return ParseError("expecting b\"HELLO\"")
		}
		x = lit
		ps.Cur = ps.Cur.Advance(int64(lit.Size()))
		ps.TrimInput()
		return nil
	}

	err := runParse(t, []string{"HELLO"}, parse)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(x))

	// Short input frozen before the literal completes raises a parse
	// error naming the expected length.
	err = runParse(t, []string{"HELL"}, parse)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expecting 5 bytes")
}

// Scenario 2: bytes &size=4 consumes exactly four bytes.
func TestScenarioSizedBytesField(t *testing.T) {
	var x Bytes
	var rest Bytes
	parse := func(ps *ParseState) error {
		if err := ps.WaitForInput(4, "expecting 4 bytes"); err != nil {
			return err
		}
		x = ps.Cur.Limit(4).Data()
		ps.Cur = ps.Cur.Advance(4)
		ps.TrimInput()
		rest = ps.Cur.Data()
		return nil
	}

	err := runParse(t, []string{"ABCD_"}, parse)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", string(x))
	assert.Equal(t, "_", string(rest))
}

// Scenario 3: &until consumes up to the delimiter, &until-including past
// it; the view advances past the delimiter either way.
func TestScenarioUntilDelimitedBytes(t *testing.T) {
	parseUntil := func(including bool) (Bytes, Bytes, error) {
		var x, rest Bytes
		err := runParse(t, []string{"foo\r\nbar"}, func(ps *ParseState) error {
			needle := Bytes("\r\n")
			for {
				found, it := ps.Cur.Find(needle, FindForward, nil)
				if found {
					if including {
						x = ps.Cur.SubTo(it.Advance(int64(needle.Size()))).Data()
					} else {
						x = ps.Cur.SubTo(it).Data()
					}
					ps.Cur = ps.Cur.AdvanceTo(it.Advance(int64(needle.Size())))
					ps.TrimInput()
					rest = ps.Cur.Data()
					return nil
				}
				if err := ps.WaitForInput(ps.Cur.Size()+1, "expecting delimiter"); err != nil {
					return err
				}
			}
		})
		return x, rest, err
	}

	x, rest, err := parseUntil(false)
	require.NoError(t, err)
	assert.Equal(t, "foo", string(x))
	assert.Equal(t, "bar", string(rest))

	x, rest, err = parseUntil(true)
	require.NoError(t, err)
	assert.Equal(t, "foo\r\n", string(x))
	assert.Equal(t, "bar", string(rest))
}

// Scenario 4: a count-bounded vector of big-endian uint16.
func TestScenarioVectorLoop(t *testing.T) {
	var n uint64
	var xs []uint64
	err := runParse(t, []string{"\x02\x00\x01", "\x00\x02"}, func(ps *ParseState) error {
		if err := ps.WaitForInput(1, "expecting 1 byte for integer"); err != nil {
			return err
		}
		var err error
		n, err = UnpackUint(ps.Cur.Limit(1).Data(), 8, Big)
		if err != nil {
			return err
		}
		ps.Cur = ps.Cur.Advance(1)
		ps.TrimInput()

		for i := uint64(0); i < n; i++ {
			if err := ps.WaitForInput(2, "expecting 2 bytes for integer"); err != nil {
				return err
			}
			v, err := UnpackUint(ps.Cur.Limit(2).Data(), 16, Big)
			if err != nil {
				return err
			}
			xs = append(xs, v)
			ps.Cur = ps.Cur.Advance(2)
			ps.TrimInput()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	assert.Equal(t, []uint64{1, 2}, xs)
}

// Random access: offset/set_input work against the recorded view start and
// reject positions outside it.
func TestRandomAccessOperations(t *testing.T) {
	data := NewStream()
	require.NoError(t, data.Append([]byte("abcdef")))
	ps := NewParseState(data)

	ps.Cur = ps.Cur.Advance(4)
	assert.Equal(t, uint64(4), ps.Offset())

	require.NoError(t, ps.SetInput(data.IterAt(2)))
	assert.Equal(t, uint64(2), ps.Offset())
	assert.Equal(t, "cdef", string(ps.Cur.Data()))

	err := ps.SetInput(data.IterAt(100))
	require.Error(t, err)
}

func TestWaitForEod(t *testing.T) {
	var got Bytes
	err := runParse(t, []string{"abc", "def"}, func(ps *ParseState) error {
		if err := ps.WaitForEod(); err != nil {
			return err
		}
		got = ps.Cur.Data()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(got))
}
