package rt

import "bytes"

// Stream is an append-only, chunked byte stream with a freeze flag. Offsets
// are absolute: they keep growing monotonically even after data has been
// trimmed from the front.
type Stream struct {
	chunks []streamChunk
	begin  int64 // absolute offset of the first retained byte
	end    int64 // absolute offset one past the last byte
	frozen bool
}

type streamChunk struct {
	offset int64
	data   []byte
}

// NewStream creates an empty stream.
func NewStream() *Stream { return &Stream{} }

// Append adds data to the end of the stream. Appending to a frozen stream
// raises InvalidValue.
func (s *Stream) Append(data []byte) error {
	if s.frozen {
		return InvalidValue("cannot append to frozen stream")
	}
	if len(data) == 0 {
		return nil
	}
	s.chunks = append(s.chunks, streamChunk{offset: s.end, data: data})
	s.end += int64(len(data))
	return nil
}

// Freeze marks the stream as complete; no further data will arrive.
func (s *Stream) Freeze() { s.frozen = true }

// Unfreeze reopens a frozen stream (used when a sink resets state).
func (s *Stream) Unfreeze() { s.frozen = false }

// IsFrozen reports whether the stream is frozen.
func (s *Stream) IsFrozen() bool { return s.frozen }

// Size returns the number of retained bytes.
func (s *Stream) Size() uint64 { return uint64(s.end - s.begin) }

// End returns the absolute offset one past the last byte.
func (s *Stream) End() int64 { return s.end }

// Begin returns the absolute offset of the first retained byte.
func (s *Stream) Begin() int64 { return s.begin }

// Trim releases all data before the absolute offset.
func (s *Stream) Trim(offset int64) {
	if offset <= s.begin {
		return
	}
	if offset > s.end {
		offset = s.end
	}
	i := 0
	for ; i < len(s.chunks); i++ {
		c := s.chunks[i]
		if c.offset+int64(len(c.data)) > offset {
			break
		}
	}
	s.chunks = s.chunks[i:]
	if len(s.chunks) > 0 && s.chunks[0].offset < offset {
		c := &s.chunks[0]
		cut := offset - c.offset
		c.data = c.data[cut:]
		c.offset = offset
	}
	s.begin = offset
}

// bytesAt copies the range [from, to) out of the stream. The range must be
// retained.
func (s *Stream) bytesAt(from, to int64) Bytes {
	if from < s.begin {
		from = s.begin
	}
	if to > s.end {
		to = s.end
	}
	if from >= to {
		return nil
	}
	out := make([]byte, 0, to-from)
	for _, c := range s.chunks {
		cEnd := c.offset + int64(len(c.data))
		if cEnd <= from {
			continue
		}
		if c.offset >= to {
			break
		}
		lo, hi := int64(0), int64(len(c.data))
		if c.offset < from {
			lo = from - c.offset
		}
		if cEnd > to {
			hi = to - c.offset
		}
		out = append(out, c.data[lo:hi]...)
	}
	return out
}

// Iterator is a position inside a stream, identified by absolute offset.
type Iterator struct {
	s      *Stream
	offset int64
}

// IterAt returns an iterator at the absolute offset.
func (s *Stream) IterAt(offset int64) Iterator { return Iterator{s: s, offset: offset} }

// Offset returns the iterator's absolute offset.
func (it Iterator) Offset() int64 { return it.offset }

// Advance returns an iterator n bytes further.
func (it Iterator) Advance(n int64) Iterator { return Iterator{s: it.s, offset: it.offset + n} }

// Deref returns the byte at the iterator's position.
func (it Iterator) Deref() (byte, error) {
	if it.s == nil || it.offset < it.s.begin || it.offset >= it.s.end {
		return 0, OutOfRange("stream iterator out of range")
	}
	b := it.s.bytesAt(it.offset, it.offset+1)
	return b[0], nil
}

// Valid reports whether the iterator points into retained stream data.
func (it Iterator) Valid() bool {
	return it.s != nil && it.offset >= it.s.begin && it.offset <= it.s.end
}

// View is a window into a stream. Open-ended views extend automatically as
// the stream grows; trimmed views have a fixed end.
type View struct {
	s     *Stream
	begin int64
	end   int64 // meaningful only if !open
	open  bool
}

// ViewAll returns an open-ended view over the whole stream.
func (s *Stream) ViewAll() View { return View{s: s, begin: s.begin, open: true} }

// ViewRange returns a trimmed view over [begin, end).
func (s *Stream) ViewRange(begin, end int64) View {
	return View{s: s, begin: begin, end: end}
}

// Stream returns the underlying stream.
func (v View) Stream() *Stream { return v.s }

// Begin returns an iterator at the view's start.
func (v View) Begin() Iterator { return Iterator{s: v.s, offset: v.begin} }

// End returns an iterator at the view's end (the stream end for open
// views).
func (v View) End() Iterator { return Iterator{s: v.s, offset: v.endOffset()} }

func (v View) endOffset() int64 {
	if v.open || v.end > v.s.end {
		return v.s.end
	}
	return v.end
}

// Size returns the number of bytes currently visible in the view.
func (v View) Size() uint64 {
	e := v.endOffset()
	if e <= v.begin {
		return 0
	}
	return uint64(e - v.begin)
}

// IsOpenEnded reports whether the view extends as the stream grows.
func (v View) IsOpenEnded() bool { return v.open }

// IsComplete reports whether no further data can enter the view: trimmed
// views whose end has arrived, or any view on a frozen stream.
func (v View) IsComplete() bool {
	if v.s.frozen {
		return true
	}
	return !v.open && v.s.end >= v.end
}

// Data copies the view's visible bytes.
func (v View) Data() Bytes { return v.s.bytesAt(v.begin, v.endOffset()) }

// Advance returns the view with its start moved forward n bytes.
func (v View) Advance(n int64) View {
	nv := v
	nv.begin += n
	return nv
}

// AdvanceTo returns the view with its start moved to the iterator.
func (v View) AdvanceTo(it Iterator) View {
	nv := v
	nv.begin = it.offset
	return nv
}

// Limit returns a trimmed view of at most n bytes.
func (v View) Limit(n int64) View {
	return View{s: v.s, begin: v.begin, end: v.begin + n}
}

// SubTo returns a trimmed view ending at the iterator.
func (v View) SubTo(end Iterator) View {
	return View{s: v.s, begin: v.begin, end: end.offset}
}

// StartsWith reports whether the view's visible data begins with prefix.
func (v View) StartsWith(prefix Bytes) bool {
	return bytes.HasPrefix(v.Data(), prefix)
}

// FindDirection selects the scan direction of View.Find.
type FindDirection int

const (
	FindForward FindDirection = iota
	FindBackward
)

// Find performs a full search for needle inside the view. In backward mode
// the optional start offset means one-past-end of the searched region.
// Returns (found, iterator at the match or at the resume position).
func (v View) Find(needle Bytes, dir FindDirection, start *Iterator) (bool, Iterator) {
	data := v.Data()
	base := v.begin
	switch dir {
	case FindBackward:
		hi := int64(len(data))
		if start != nil {
			hi = start.offset - base
			if hi > int64(len(data)) {
				hi = int64(len(data))
			}
			if hi < 0 {
				hi = 0
			}
		}
		i := bytes.LastIndex(data[:hi], needle)
		if i < 0 {
			return false, Iterator{s: v.s, offset: base}
		}
		return true, Iterator{s: v.s, offset: base + int64(i)}
	default:
		lo := int64(0)
		if start != nil {
			lo = start.offset - base
			if lo < 0 {
				lo = 0
			}
		}
		if lo > int64(len(data)) {
			return false, Iterator{s: v.s, offset: v.endOffset()}
		}
		i := bytes.Index(data[lo:], needle)
		if i < 0 {
			// Resume position: the earliest offset at which a future match
			// could still begin once more data arrives.
			resume := int64(len(data)) - int64(len(needle)) + 1
			if resume < lo {
				resume = lo
			}
			return false, Iterator{s: v.s, offset: base + resume}
		}
		return true, Iterator{s: v.s, offset: base + lo + int64(i)}
	}
}
