package rt

// Filter transforms a producer's bytes before a consumer sees them. Filters
// chain: each filter's output feeds the next filter's input.
type Filter struct {
	Name      string
	Transform func(Bytes) Bytes

	input   []byte
	flushed int
}

// FilterChain is an ordered list of filters owned by its sink or unit.
type FilterChain struct {
	filters []*Filter
	output  *Stream
}

// NewFilterChain creates an empty chain writing into its own output stream.
func NewFilterChain() *FilterChain {
	return &FilterChain{output: NewStream()}
}

// Add appends a filter to the chain.
func (fc *FilterChain) Add(f *Filter) { fc.filters = append(fc.filters, f) }

// Empty reports whether the chain has no filters.
func (fc *FilterChain) Empty() bool { return len(fc.filters) == 0 }

// Output returns the stream the chain materializes results into.
func (fc *FilterChain) Output() *Stream { return fc.output }

// Write feeds data into the chain's head.
func (fc *FilterChain) Write(data Bytes) {
	if len(fc.filters) == 0 {
		_ = fc.output.Append(data)
		return
	}
	fc.filters[0].input = append(fc.filters[0].input, data...)
}

// Flush pushes buffered data through every filter so the producer's output
// is materialized into the consumer's view.
func (fc *FilterChain) Flush() {
	for i, f := range fc.filters {
		pending := f.input[f.flushed:]
		if len(pending) == 0 {
			continue
		}
		f.flushed = len(f.input)
		out := pending
		if f.Transform != nil {
			out = f.Transform(pending)
		}
		if i+1 < len(fc.filters) {
			fc.filters[i+1].input = append(fc.filters[i+1].input, out...)
		} else {
			_ = fc.output.Append(out)
		}
	}
}
