package rt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector is a connected sub-parser that records everything delivered to
// its input stream.
type collector struct {
	parser   *Parser
	conn     *UnitConn
	received []byte
	done     bool
}

func newCollector() *collector {
	c := &collector{}
	c.parser = &Parser{
		Name:   "Test::Collector",
		Public: true,
		Instantiate: func(data *Stream) *Fiber {
			ps := NewParseState(data)
			return NewFiber(func(f *Fiber) error {
				ps.SetFiber(f)
				for {
					ok, err := ps.WaitForInputOrEod(1)
					if err != nil {
						return err
					}
					if !ok {
						c.done = true
						return nil
					}
					chunk := ps.Cur.Data()
					c.received = append(c.received, chunk...)
					ps.Cur = ps.Cur.Advance(int64(len(chunk)))
					ps.TrimInput()
				}
			})
		},
	}
	c.conn = NewUnitConn(c.parser)
	return c
}

func u64(v uint64) *uint64 { return &v }

func TestSinkInOrderDelivery(t *testing.T) {
	s := NewSink()
	c := newCollector()
	require.NoError(t, s.Connect(c.conn))

	require.NoError(t, s.Write(Bytes("hello"), nil, nil))
	require.NoError(t, s.Write(Bytes("world"), nil, nil))
	s.Close(true)

	assert.Equal(t, "helloworld", string(c.received))
	assert.True(t, c.done)
}

// Scenario: out-of-order writes with a custom initial sequence number are
// delivered in sequence order.
func TestSinkOutOfOrderDelivery(t *testing.T) {
	s := NewSink()
	require.NoError(t, s.SetInitialSequenceNumber(100))
	c := newCollector()
	require.NoError(t, s.Connect(c.conn))

	require.NoError(t, s.Write(Bytes("world"), u64(105), u64(5)))
	assert.Empty(t, c.received, "out-of-order data must stay buffered")

	require.NoError(t, s.Write(Bytes("hello"), u64(100), u64(5)))
	s.Close(true)

	assert.Equal(t, "helloworld", string(c.received))
	assert.True(t, c.done)
}

// Scenario: overlap under the First policy keeps the first-written bytes
// and reports the overlap once.
func TestSinkOverlapFirstPolicy(t *testing.T) {
	s := NewSink()
	s.SetAutoTrim(false)
	c := newCollector()

	type overlap struct {
		seq      uint64
		old, new string
	}
	var overlaps []overlap
	c.parser.HookOverlap = func(seq uint64, old, new Bytes) {
		overlaps = append(overlaps, overlap{seq, string(old), string(new)})
	}
	require.NoError(t, s.Connect(c.conn))

	require.NoError(t, s.Write(Bytes("ABCDE"), u64(0), u64(5)))
	require.NoError(t, s.Write(Bytes("__CDE"), u64(2), u64(5)))
	s.Close(true)

	// The overlapping region keeps the first write's bytes; the part of
	// the second write beyond the first is genuinely new data.
	assert.Equal(t, "ABCDEDE", string(c.received))
	require.Len(t, overlaps, 1)
	assert.Equal(t, uint64(2), overlaps[0].seq)
	assert.Equal(t, "CDE", overlaps[0].old)
	assert.Equal(t, "__C", overlaps[0].new)
}

func TestSinkFullyContainedOverlapKeepsFirst(t *testing.T) {
	s := NewSink()
	s.SetAutoTrim(false)
	c := newCollector()
	require.NoError(t, s.Connect(c.conn))

	require.NoError(t, s.Write(Bytes("ABCDE"), u64(0), u64(5)))
	require.NoError(t, s.Write(Bytes("xyz"), u64(1), u64(3)))
	s.Close(true)

	assert.Equal(t, "ABCDE", string(c.received))
}

func TestSinkRandomOrderReassembly(t *testing.T) {
	// Any delivery order of non-overlapping writes yields the same byte
	// sequence.
	pieces := []struct {
		seq  uint64
		data string
	}{
		{6, "ghi"}, {0, "abc"}, {9, "jkl"}, {3, "def"},
	}
	s := NewSink()
	c := newCollector()
	require.NoError(t, s.Connect(c.conn))
	for _, p := range pieces {
		require.NoError(t, s.Write(Bytes(p.data), u64(p.seq), nil))
	}
	s.Close(true)
	assert.Equal(t, "abcdefghijkl", string(c.received))
}

func TestSinkAutoTrimReleasesBuffer(t *testing.T) {
	s := NewSink()
	c := newCollector()
	require.NoError(t, s.Connect(c.conn))

	require.NoError(t, s.Write(Bytes("abc"), u64(0), nil))
	require.NoError(t, s.Write(Bytes("def"), u64(3), nil))

	assert.Empty(t, s.chunks, "in-order delivery with auto-trim must not retain chunks")
	assert.Equal(t, uint64(6), s.Size())
	s.Close(true)
}

func TestSinkInOrderGapKeepsFlowing(t *testing.T) {
	s := NewSink()
	c := newCollector()
	var gaps []uint64
	c.parser.HookGap = func(seq uint64, length uint64) { gaps = append(gaps, seq) }
	require.NoError(t, s.Connect(c.conn))

	require.NoError(t, s.Write(Bytes("abc"), u64(0), nil))
	require.NoError(t, s.Gap(3, 2))
	require.NoError(t, s.Write(Bytes("fgh"), u64(5), nil))

	// A gap right at the stream position reports once and in-order data
	// after it keeps flowing.
	assert.Equal(t, "abcfgh", string(c.received))
	assert.Equal(t, []uint64{3}, gaps)
	s.Close(true)
}

func TestSinkBufferedGapHoldsDataUntilSkip(t *testing.T) {
	s := NewSink()
	c := newCollector()

	var gaps []uint64
	var skipped []uint64
	var undelivered []string
	c.parser.HookGap = func(seq uint64, length uint64) { gaps = append(gaps, seq) }
	c.parser.HookSkipped = func(seq uint64) { skipped = append(skipped, seq) }
	c.parser.HookUndelivered = func(seq uint64, data Bytes) {
		undelivered = append(undelivered, string(data))
	}
	require.NoError(t, s.Connect(c.conn))

	require.NoError(t, s.Write(Bytes("abc"), u64(0), nil))
	require.NoError(t, s.Write(Bytes("fgh"), u64(5), nil)) // buffered, hole at 3..5
	require.NoError(t, s.Gap(3, 2))                        // fills the hole with a gap marker

	assert.Equal(t, "abc", string(c.received), "data beyond a buffered gap stays pending")
	require.Len(t, gaps, 1)
	assert.Equal(t, uint64(3), gaps[0])

	// Skipping over the gap releases the buffered data.
	require.NoError(t, s.Skip(5))
	assert.Equal(t, "abcfgh", string(c.received))
	assert.Equal(t, []uint64{5}, skipped)
	assert.Empty(t, undelivered, "gap regions carry no bytes to report")
	s.Close(true)
}

func TestSinkSkipReportsUndelivered(t *testing.T) {
	s := NewSink()
	c := newCollector()
	var undelivered []string
	c.parser.HookUndelivered = func(seq uint64, data Bytes) {
		undelivered = append(undelivered, string(data))
	}
	require.NoError(t, s.Connect(c.conn))

	// Buffered but never deliverable: the region before it stays missing.
	require.NoError(t, s.Write(Bytes("XYZ"), u64(10), nil))
	require.NoError(t, s.Skip(20))

	assert.Equal(t, []string{"XYZ"}, undelivered)
	assert.Empty(t, c.received)
	s.Close(true)
}

func TestSinkOldDataDiscarded(t *testing.T) {
	s := NewSink()
	c := newCollector()
	require.NoError(t, s.Connect(c.conn))

	require.NoError(t, s.Write(Bytes("abcdef"), u64(0), nil))
	// Retransmission of already-delivered data is dropped.
	require.NoError(t, s.Write(Bytes("abc"), u64(0), nil))
	s.Close(true)
	assert.Equal(t, "abcdef", string(c.received))
}

func TestSinkConfigAfterWriteRejected(t *testing.T) {
	s := NewSink()
	require.NoError(t, s.Write(Bytes("x"), nil, nil))
	assert.Error(t, s.SetInitialSequenceNumber(5))
	assert.Error(t, s.SetPolicy(PolicyFirst))
	assert.Error(t, s.ConnectFilter(&Filter{Name: "nop"}))
}

func TestSinkDoubleConnectRejected(t *testing.T) {
	s1 := NewSink()
	s2 := NewSink()
	c := newCollector()
	require.NoError(t, s1.Connect(c.conn))
	err := s2.Connect(c.conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")
}

func TestSinkFilterChain(t *testing.T) {
	s := NewSink()
	c := newCollector()
	upper := &Filter{Name: "upper", Transform: func(b Bytes) Bytes { return b.Upper() }}
	require.NoError(t, s.ConnectFilter(upper))
	require.NoError(t, s.Connect(c.conn))

	require.NoError(t, s.Write(Bytes("hello"), nil, nil))
	s.Close(true)
	assert.Equal(t, "HELLO", string(c.received))
}

func TestSinkOrderlyCloseAbortsFailedSubParser(t *testing.T) {
	s := NewSink()

	// A sub-parser that fails during delivery: its first chunk raises.
	var failer *Fiber
	failing := NewUnitConn(&Parser{
		Name:   "Test::Failing",
		Public: true,
		Instantiate: func(data *Stream) *Fiber {
			ps := NewParseState(data)
			failer = NewFiber(func(f *Fiber) error {
				ps.SetFiber(f)
				if _, err := ps.WaitForInputOrEod(1); err != nil {
					return err
				}
				return ParseError("broken sub-parser")
			})
			return failer
		},
	})
	c := newCollector()
	require.NoError(t, s.Connect(failing))
	require.NoError(t, s.Connect(c.conn))

	require.NoError(t, s.Write(Bytes("abc"), nil, nil))
	require.True(t, s.states[0].skipDelivery, "failed sub-parser must stop receiving")

	// Further writes still reach the healthy sub-parser, and an orderly
	// close concludes every resumable, including the failed one.
	require.NoError(t, s.Write(Bytes("def"), nil, nil))
	s.Close(true)

	assert.Equal(t, "abcdef", string(c.received))
	assert.True(t, failer.Finished())
	assert.True(t, c.done)
}

func TestSinkOrderlyCloseAbortsSkippedSubParser(t *testing.T) {
	s := NewSink()
	c := newCollector()
	require.NoError(t, s.Connect(c.conn))

	// The sub-parser is suspended mid-stream when delivery gets switched
	// off; an orderly close must still conclude its fiber.
	require.NoError(t, s.Write(Bytes("abc"), nil, nil))
	s.states[0].skipDelivery = true
	s.Close(true)

	assert.Equal(t, "abc", string(c.received))
	assert.False(t, c.done, "a skipped sub-parser is aborted, not drained")
}

func TestSinkCloseResetsState(t *testing.T) {
	s := NewSink()
	c := newCollector()
	require.NoError(t, s.Connect(c.conn))
	require.NoError(t, s.Write(Bytes("abc"), nil, nil))
	s.Close(true)

	assert.Equal(t, uint64(0), s.Size())
	assert.False(t, s.IsConnected())
	// The unit may connect elsewhere after close.
	s2 := NewSink()
	assert.NoError(t, s2.Connect(c.conn))
}

func TestSinkMimeTypeConnect(t *testing.T) {
	ResetRegistry()
	defer ResetRegistry()

	c := newCollector()
	c.parser.MimeTypes = []string{"text/plain"}
	RegisterParser(c.parser)

	private := newCollector()
	private.parser.Name = "Test::Private"
	private.parser.Public = false
	private.parser.LinkerScope = 42
	private.parser.MimeTypes = []string{"text/plain"}
	RegisterParser(private.parser)

	s := NewSink()
	require.NoError(t, s.ConnectMimeType("text/plain", 0))
	// Only the public parser connects from a foreign scope.
	assert.Equal(t, 1, len(s.states))

	require.NoError(t, s.Write(Bytes("hi"), nil, nil))
	s.Close(true)
	assert.Equal(t, "hi", string(c.received))
}
