package rt

import (
	"strings"
	"sync"
)

// LiteralMode controls how a literal match behaves: committing (Default),
// probing without committing (Try), or advancing without binding (Skip).
type LiteralMode int

const (
	LiteralDefault LiteralMode = iota
	LiteralTry
	LiteralSkip
)

// ParseState is the bundle of inputs and outputs threaded through a parse
// function: current input view, look-ahead state, and error slot.
type ParseState struct {
	Self        any
	Data        *Stream
	Cur         View
	Trim        bool
	Lahead      int32
	LaheadEnd   Iterator
	Err         error
	LiteralMode LiteralMode

	// BeginOffset records the view start for %random-access units.
	BeginOffset int64

	fiber   *Fiber
	filters *FilterChain
}

// NewParseState creates a state over the stream's full view.
func NewParseState(data *Stream) *ParseState {
	return &ParseState{Data: data, Cur: data.ViewAll(), Trim: true, BeginOffset: data.Begin()}
}

// SetFiber attaches the fiber the parse runs on; wait operations suspend it.
func (ps *ParseState) SetFiber(f *Fiber) { ps.fiber = f }

// SetFilters attaches a filter chain flushed before every wait.
func (ps *ParseState) SetFilters(fc *FilterChain) { ps.filters = fc }

// Yield suspends the parse fiber unconditionally. Outside a fiber this is a
// runtime error.
func (ps *ParseState) Yield() error {
	if ps.fiber == nil {
		return InvalidValue("yield in non-suspendable context")
	}
	ps.fiber.Suspend()
	return nil
}

// WaitForInput blocks until at least n bytes are visible in the view, or
// raises a parse error when the input ends first.
func (ps *ParseState) WaitForInput(n uint64, msg string) error {
	for ps.Cur.Size() < n {
		ps.flushFilters()
		if ps.Cur.IsComplete() {
			if msg == "" {
				msg = "expecting %d bytes"
			}
			if strings.Contains(msg, "%d") {
				return ParseError(msg, n)
			}
			return ParseError("%s", msg)
		}
		if err := ps.Yield(); err != nil {
			return err
		}
	}
	return nil
}

// WaitForInputOrEod blocks until n bytes are available or the input has
// ended; it reports whether the bytes arrived.
func (ps *ParseState) WaitForInputOrEod(n uint64) (bool, error) {
	for ps.Cur.Size() < n {
		ps.flushFilters()
		if ps.Cur.IsComplete() {
			return false, nil
		}
		if err := ps.Yield(); err != nil {
			return false, err
		}
	}
	return true, nil
}

// WaitForEod blocks until no further data can enter the view.
func (ps *ParseState) WaitForEod() error {
	for !ps.Cur.IsComplete() {
		ps.flushFilters()
		if ps.Cur.IsComplete() {
			break
		}
		if err := ps.Yield(); err != nil {
			return err
		}
	}
	return nil
}

func (ps *ParseState) flushFilters() {
	if ps.filters != nil {
		ps.filters.Flush()
	}
}

// TrimInput releases stream data the parse has consumed; a no-op while
// trimming is disabled (look-ahead probing, random access).
func (ps *ParseState) TrimInput() {
	if ps.Trim {
		ps.Data.Trim(ps.Cur.Begin().Offset())
	}
}

// Offset returns the parse position relative to the recorded view start
// (%random-access units).
func (ps *ParseState) Offset() uint64 {
	return uint64(ps.Cur.Begin().Offset() - ps.BeginOffset)
}

// SetInput moves the parse position to the iterator. The target must lie
// inside the recorded view.
func (ps *ParseState) SetInput(it Iterator) error {
	if it.offset < ps.BeginOffset || it.offset > ps.Data.End() {
		return InvalidArgument("set_input: position outside parsed view")
	}
	ps.Cur = ps.Cur.AdvanceTo(it)
	return nil
}

// ---------------------------------------------------------------------------
// Parser registry

// ParserPort advertises a port a parser handles.
type ParserPort struct {
	Port      Port
	Direction Direction
}

// Parser is the registry metadata of one compiled unit parser.
type Parser struct {
	Name        string
	Description string
	MimeTypes   []string
	Ports       []ParserPort
	Public      bool
	LinkerScope uint64

	// Instantiate creates a parse fiber reading from the given stream.
	// Sinks use it to drive connected sub-parsers.
	Instantiate func(data *Stream) *Fiber

	// Sink-side hooks, invoked with absolute sequence numbers.
	HookGap         func(seq uint64, length uint64)
	HookOverlap     func(seq uint64, old, new Bytes)
	HookSkipped     func(seq uint64)
	HookUndelivered func(seq uint64, data Bytes)
}

var globalRegistry = struct {
	sync.Mutex
	byName map[string]*Parser
	byMime map[string][]*Parser
	byPort map[string][]*Parser
	all    []*Parser
}{
	byName: make(map[string]*Parser),
	byMime: make(map[string][]*Parser),
	byPort: make(map[string][]*Parser),
}

// RegisterParser adds a parser to the global registry. The driver calls
// this at startup for every compiled unit.
func RegisterParser(p *Parser) {
	globalRegistry.Lock()
	defer globalRegistry.Unlock()
	globalRegistry.byName[p.Name] = p
	for _, mt := range p.MimeTypes {
		globalRegistry.byMime[mt] = append(globalRegistry.byMime[mt], p)
	}
	for _, pp := range p.Ports {
		key := pp.Port.String()
		globalRegistry.byPort[key] = append(globalRegistry.byPort[key], p)
	}
	globalRegistry.all = append(globalRegistry.all, p)
}

// LookupParser finds a parser by canonical name. Private parsers of other
// linker scopes are filtered out.
func LookupParser(name string, scope uint64) *Parser {
	globalRegistry.Lock()
	defer globalRegistry.Unlock()
	p := globalRegistry.byName[name]
	if p == nil {
		return nil
	}
	if !p.Public && p.LinkerScope != scope {
		return nil
	}
	return p
}

// ParsersByMimeType finds parsers advertised for the MIME type, visible
// from the given linker scope.
func ParsersByMimeType(mt string, scope uint64) []*Parser {
	globalRegistry.Lock()
	defer globalRegistry.Unlock()
	var out []*Parser
	for _, p := range globalRegistry.byMime[mt] {
		if !p.Public && p.LinkerScope != scope {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ParsersByPort finds parsers advertised for the port, filtered by
// direction, visible from the given linker scope.
func ParsersByPort(port Port, dir Direction, scope uint64) []*Parser {
	globalRegistry.Lock()
	defer globalRegistry.Unlock()
	var out []*Parser
	for _, p := range globalRegistry.byPort[port.String()] {
		if !p.Public && p.LinkerScope != scope {
			continue
		}
		for _, pp := range p.Ports {
			if pp.Port == port && (pp.Direction == Both || pp.Direction == dir || dir == Both) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// ResetRegistry clears the global registry; test support.
func ResetRegistry() {
	globalRegistry.Lock()
	defer globalRegistry.Unlock()
	globalRegistry.byName = make(map[string]*Parser)
	globalRegistry.byMime = make(map[string][]*Parser)
	globalRegistry.byPort = make(map[string][]*Parser)
	globalRegistry.all = nil
}
