package rt

// Sink is the stateful reassembler that accepts writes at absolute sequence
// numbers and delivers them, in order, to its connected sub-parsers. All
// internal sequence numbers are relative to the initial sequence number;
// hooks receive absolute ones.
type Sink struct {
	policy   ReassemblerPolicy
	autoTrim bool
	size     uint64

	initialSeq      uint64
	curRSeq         uint64
	lastReassemRSeq uint64
	trimRSeq        uint64

	chunks []sinkChunk

	states []*sinkState

	filter     *FilterChain
	filterCur  View
	haveFilter bool

	written bool
}

// sinkChunk is one buffered region; data is nil for gap markers.
type sinkChunk struct {
	data   Bytes
	rseq   uint64
	rupper uint64
}

// sinkState is one connected sub-parser: its input stream and resumable.
type sinkState struct {
	unit         *UnitConn
	data         *Stream
	resumable    *Fiber
	parser       *Parser
	skipDelivery bool
	finished     bool
}

// UnitConn is a parser instance connectable to at most one sink.
type UnitConn struct {
	Parser *Parser
	sink   *Sink
}

// NewUnitConn wraps a registry parser for sink connection.
func NewUnitConn(p *Parser) *UnitConn { return &UnitConn{Parser: p} }

// NewSink creates a sink in its initial state.
func NewSink() *Sink {
	s := &Sink{}
	s.init()
	return s
}

func (s *Sink) init() {
	s.policy = PolicyFirst
	s.autoTrim = true
	s.size = 0
	s.initialSeq = 0
	s.curRSeq = 0
	s.lastReassemRSeq = 0
	s.trimRSeq = 0
	s.chunks = nil
	s.written = false
}

// Size returns the number of bytes delivered to the sink so far.
func (s *Sink) Size() uint64 { return s.size }

// SequenceNumber returns the current absolute sequence position.
func (s *Sink) SequenceNumber() uint64 { return s.aseq(s.curRSeq) }

// IsConnected reports whether any sub-parser is connected.
func (s *Sink) IsConnected() bool { return len(s.states) > 0 }

func (s *Sink) aseq(rseq uint64) uint64 { return s.initialSeq + rseq }

// SetAutoTrim switches automatic trimming of delivered data.
func (s *Sink) SetAutoTrim(enable bool) { s.autoTrim = enable }

// SetInitialSequenceNumber sets the absolute sequence number the stream
// begins at; legal only before the first write.
func (s *Sink) SetInitialSequenceNumber(seq uint64) error {
	if s.written {
		return InvalidValue("sink cannot update initial sequence number after first write")
	}
	s.initialSeq = seq
	return nil
}

// SetPolicy sets the overlap resolution policy; legal only before the first
// write.
func (s *Sink) SetPolicy(p ReassemblerPolicy) error {
	if s.written {
		return InvalidValue("sink cannot update policy after first write")
	}
	s.policy = p
	return nil
}

// Connect attaches a parser instance. A unit already connected to a sink
// cannot be connected again.
func (s *Sink) Connect(u *UnitConn) error {
	if u.sink != nil {
		return UnitAlreadyConnected("unit is already connected to a sink")
	}
	u.sink = s
	st := &sinkState{unit: u, data: NewStream(), parser: u.Parser}
	if u.Parser.Instantiate != nil {
		st.resumable = u.Parser.Instantiate(st.data)
	}
	s.states = append(s.states, st)
	return nil
}

// ConnectMimeType connects all parsers advertised for the MIME type,
// falling back from "main/sub" to "main/*" to "*/*". Only public parsers or
// parsers in the same linker scope connect.
func (s *Sink) ConnectMimeType(mt string, scope uint64) error {
	connect := func(key string) error {
		for _, p := range ParsersByMimeType(key, scope) {
			if err := s.Connect(NewUnitConn(p)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := connect(mt); err != nil {
		return err
	}
	if main, _, ok := splitMime(mt); ok {
		if err := connect(main + "/*"); err != nil {
			return err
		}
	}
	return connect("*/*")
}

func splitMime(mt string) (string, string, bool) {
	for i := 0; i < len(mt); i++ {
		if mt[i] == '/' {
			return mt[:i], mt[i+1:], true
		}
	}
	return "", "", false
}

// ConnectFilter adds a filter to the chain; legal only before the first
// write.
func (s *Sink) ConnectFilter(f *Filter) error {
	if s.written {
		return InvalidValue("sink cannot connect filter after first write")
	}
	if s.filter == nil {
		s.filter = NewFilterChain()
	}
	s.filter.Add(f)
	return nil
}

// Write appends data at the absolute sequence number; seq defaults to the
// current end, length to the data's size.
func (s *Sink) Write(data Bytes, seq *uint64, length *uint64) error {
	s.written = true

	n := uint64(len(data))
	if length != nil {
		n = *length
	}
	if n == 0 {
		return nil
	}

	var rseq uint64
	if seq == nil {
		rseq = s.curRSeq
	} else if *seq >= s.initialSeq {
		rseq = *seq - s.initialSeq
	} else {
		// Entirely before the initial sequence number: old data.
		return nil
	}

	return s.newData(data, rseq, n)
}

// Gap records a missing region at the absolute sequence number.
func (s *Sink) Gap(seq uint64, length uint64) error {
	s.written = true
	if seq < s.initialSeq {
		return nil
	}
	return s.newData(nil, seq-s.initialSeq, length)
}

// Skip advances acceptance past the absolute sequence number, reporting
// undelivered data in between.
func (s *Sink) Skip(seq uint64) error {
	s.written = true
	if seq < s.initialSeq {
		return nil
	}
	return s.skip(seq - s.initialSeq)
}

// Trim drops buffered data up to the absolute sequence number, reporting
// undelivered portions.
func (s *Sink) Trim(seq uint64) {
	if seq < s.initialSeq {
		return
	}
	s.trim(seq - s.initialSeq)
}

// Close freezes every sub-parser's input, delivers outstanding data if
// orderly (aborting otherwise), and resets the sink to its initial state.
func (s *Sink) Close(orderly bool) {
	s.filter = nil
	s.haveFilter = false

	for _, st := range s.states {
		if !st.finished {
			st.data.Freeze()
			if st.resumable != nil {
				if orderly && !st.skipDelivery {
					done, err := st.resumable.Resume()
					if err != nil {
						st.skipDelivery = true
					}
					st.finished = done
				}
				// Aborting covers both unorderly close and sub-parsers
				// whose delivery already failed; every resumable must
				// conclude so its fiber releases its stack.
				if !st.finished {
					st.resumable.Abort()
					st.finished = true
				}
			}
		}
		if st.unit != nil {
			st.unit.sink = nil
		}
	}
	s.states = nil
	s.init()
}

// ---------------------------------------------------------------------------
// Reassembly

// newData buffers or delivers a new region; data nil marks a gap.
func (s *Sink) newData(data Bytes, rseq uint64, length uint64) error {
	if length == 0 {
		return nil
	}

	// Fast-path: right at the end of the input stream, nothing buffered,
	// auto-trimming on: pass the data straight through.
	if s.autoTrim && len(s.chunks) == 0 && rseq == s.curRSeq {
		if data == nil {
			// An in-order gap advances the stream position directly;
			// subsequent in-order data keeps flowing.
			if s.curRSeq != rseq+length {
				s.reportGap(rseq, length)
				s.curRSeq = rseq + length
			}
			return nil
		}
		_, err := s.deliver(data, rseq, rseq+length)
		return err
	}

	rupper := rseq + length

	if rupper <= s.trimRSeq {
		// Old data, don't do any work for it.
		return nil
	}

	if rseq < s.trimRSeq {
		// Partially old data, keep the good stuff.
		old := s.trimRSeq - rseq
		rseq += old
		if data != nil {
			data = data[old:]
		}
	}

	var c int
	if len(s.chunks) == 0 {
		s.chunks = append(s.chunks, sinkChunk{data: data, rseq: rseq, rupper: rupper})
		c = 0
	} else {
		c = s.addAndCheck(data, rseq, rupper, 0)
	}

	// See if we have data in order now to deliver.
	if s.chunks[c].rseq > s.lastReassemRSeq || s.chunks[c].rupper <= s.lastReassemRSeq {
		return nil
	}

	// We've filled a leading hole. Deliver as much as possible.
	return s.tryDeliver(c)
}

// addAndCheck inserts the region into the chunk list starting the search at
// index c, splitting on overlap; it returns the index of the first inserted
// chunk.
func (s *Sink) addAndCheck(data Bytes, rseq, rupper uint64, c int) int {
	// Special check for the common case of appending to the end.
	if rseq == s.chunks[len(s.chunks)-1].rupper {
		s.chunks = append(s.chunks, sinkChunk{data: data, rseq: rseq, rupper: rupper})
		return len(s.chunks) - 1
	}

	// Find the first block that doesn't come completely before the new data.
	for c < len(s.chunks) && s.chunks[c].rupper <= rseq {
		c++
	}

	if c == len(s.chunks) {
		// All blocks come completely before the new block.
		s.chunks = append(s.chunks, sinkChunk{data: data, rseq: rseq, rupper: rupper})
		return len(s.chunks) - 1
	}

	if rupper <= s.chunks[c].rseq {
		// The new block comes completely before chunk c.
		s.insertChunk(c, sinkChunk{data: data, rseq: rseq, rupper: rupper})
		return c
	}

	// The blocks overlap; complain and break up.
	newC := c

	if rseq < s.chunks[c].rseq {
		// The new block has a prefix that comes before c.
		prefixLen := s.chunks[c].rseq - rseq
		if data != nil {
			prefix := data[:prefixLen]
			s.insertChunk(c, sinkChunk{data: prefix, rseq: rseq, rupper: rseq + prefixLen})
			newC = c
			c++
			data = data[prefixLen:]
		}
		rseq += prefixLen
	}

	overlapStart := rseq
	newLen := rupper - rseq
	cLen := s.chunks[c].rupper - overlapStart
	overlapLen := newLen
	if cLen < overlapLen {
		overlapLen = cLen
	}

	var oldData, newData Bytes
	if s.chunks[c].data != nil {
		off := overlapStart - s.chunks[c].rseq
		oldData = s.chunks[c].data[off : off+overlapLen]
	}
	if data != nil {
		newData = data[:overlapLen]
	}

	s.reportOverlap(overlapStart, oldData, newData)

	if data != nil && overlapLen < newLen {
		// Recurse to resolve the remainder of the new data.
		rest := data[overlapLen:]
		restSeq := rseq + overlapLen
		if newC == c {
			newC = s.addAndCheck(rest, restSeq, rupper, c)
		} else {
			s.addAndCheck(rest, restSeq, rupper, c)
		}
	}

	return newC
}

func (s *Sink) insertChunk(i int, c sinkChunk) {
	s.chunks = append(s.chunks, sinkChunk{})
	copy(s.chunks[i+1:], s.chunks[i:])
	s.chunks[i] = c
}

// tryDeliver walks forward from chunk index c delivering every run whose
// start matches the reassembly position.
func (s *Sink) tryDeliver(c int) error {
	// A new block may include both old and new data; addAndCheck split the
	// new data into its own blocks, but we must not re-deliver old data.
	for ; c < len(s.chunks); c++ {
		ch := s.chunks[c]
		if ch.rseq != s.lastReassemRSeq {
			continue
		}
		if ch.data == nil {
			// Hit a gap. Trim just up to the gap, excluding the gap
			// itself; data beyond it stays buffered until the gap is
			// skipped over explicitly.
			if s.curRSeq != ch.rupper {
				s.reportGap(ch.rseq, ch.rupper-ch.rseq)
				s.curRSeq = ch.rupper
			}
			if s.autoTrim {
				s.trim(ch.rseq)
			}
			return nil
		}
		// New stuff.
		s.lastReassemRSeq += ch.rupper - ch.rseq
		if _, err := s.deliver(ch.data, ch.rseq, ch.rupper); err != nil {
			return err
		}
	}

	if s.autoTrim {
		s.trim(s.lastReassemRSeq)
	}
	return nil
}

// deliver hands one in-order region to every connected sub-parser.
func (s *Sink) deliver(data Bytes, rseq, rupper uint64) (bool, error) {
	if len(data) == 0 {
		return true, nil
	}

	if s.filter != nil {
		if !s.haveFilter {
			s.haveFilter = true
			s.filterCur = s.filter.Output().ViewAll()
		}
		s.filter.Write(data)
		s.filter.Flush()
		data = s.filterCur.Data()
		s.filterCur = s.filterCur.Advance(int64(len(data)))
		if len(data) == 0 {
			return true, nil
		}
	}

	s.size += uint64(len(data))

	for _, st := range s.states {
		if st.skipDelivery {
			continue
		}
		if st.finished {
			st.skipDelivery = true
			return false, ParseError("more data after sink's unit has already completed parsing")
		}
		_ = st.data.Append(data)
		if st.resumable != nil {
			// Sinks operate independently from the writer; errors are not
			// forwarded, the failing sub-parser just stops receiving.
			done, err := st.resumable.Resume()
			if err != nil {
				st.skipDelivery = true
				continue
			}
			st.finished = done
		}
	}

	s.curRSeq = rupper
	s.lastReassemRSeq = rupper
	return true, nil
}

// skip advances past rseq, reporting undelivered data in between.
func (s *Sink) skip(rseq uint64) error {
	if s.autoTrim {
		s.trim(rseq) // reports undelivered
	} else {
		s.reportUndeliveredUpTo(rseq)
	}

	s.curRSeq = rseq
	s.lastReassemRSeq = rseq

	s.reportSkipped(rseq)
	return s.tryDeliver(0)
}

// trim drops buffered chunks below rseq, reporting their undelivered
// portions.
func (s *Sink) trim(rseq uint64) {
	i := 0
	for ; i < len(s.chunks); i++ {
		ch := s.chunks[i]
		if ch.rseq >= rseq {
			break
		}
		if ch.data != nil && s.curRSeq < ch.rseq {
			s.reportUndelivered(ch.rseq, ch.data)
		}
	}
	s.chunks = s.chunks[i:]
	s.trimRSeq = rseq
}

// ---------------------------------------------------------------------------
// Hook reporting; all hooks receive absolute sequence numbers.

func (s *Sink) reportGap(rseq, length uint64) {
	for _, st := range s.states {
		if h := st.parser.HookGap; h != nil {
			h(s.aseq(rseq), length)
		}
	}
}

func (s *Sink) reportOverlap(rseq uint64, old, new Bytes) {
	for _, st := range s.states {
		if h := st.parser.HookOverlap; h != nil {
			h(s.aseq(rseq), old, new)
		}
	}
}

func (s *Sink) reportSkipped(rseq uint64) {
	for _, st := range s.states {
		if h := st.parser.HookSkipped; h != nil {
			h(s.aseq(rseq))
		}
	}
}

func (s *Sink) reportUndelivered(rseq uint64, data Bytes) {
	for _, st := range s.states {
		if h := st.parser.HookUndelivered; h != nil {
			h(s.aseq(rseq), data)
		}
	}
}

func (s *Sink) reportUndeliveredUpTo(rupper uint64) {
	for _, ch := range s.chunks {
		if ch.rseq >= rupper {
			break
		}
		if ch.data == nil {
			continue
		}
		b := ch.data
		if ch.rupper > rupper {
			b = ch.data[:rupper-ch.rseq]
		}
		s.reportUndelivered(ch.rseq, b)
	}
}
