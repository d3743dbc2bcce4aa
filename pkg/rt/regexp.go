package rt

import (
	"regexp"
	"regexp/syntax"
)

// RegExp is a compiled pattern set. Matching reports 1-based accept IDs
// identifying which alternate matched. Two operational modes exist: without
// capture-group support match states record no groups; with capture support
// they record the groups of the accepted match (and are not clonable). Both
// modes run the same Go regexp engine.
type RegExp struct {
	patterns []string
	anchored []*regexp.Regexp
	captures bool
}

// RegExpFlags control compilation.
type RegExpFlags struct {
	// NoSub compiles without capture-group support: match states record no
	// groups and stay clonable.
	NoSub bool
}

// CompileRegExp compiles a pattern set. Each pattern gets the accept ID of
// its 1-based position.
func CompileRegExp(patterns []string, flags RegExpFlags) (*RegExp, error) {
	if len(patterns) == 0 {
		return nil, PatternError("empty pattern set")
	}
	re := &RegExp{patterns: patterns}
	for _, p := range patterns {
		compiled, err := regexp.Compile(`\A(?:` + p + `)`)
		if err != nil {
			return nil, PatternError("cannot compile pattern /%s/", p)
		}
		re.anchored = append(re.anchored, compiled)
		if !flags.NoSub {
			if parsed, err := syntax.Parse(p, syntax.Perl); err == nil && parsed.MaxCap() > 0 {
				re.captures = true
			}
		}
	}
	if flags.NoSub {
		re.captures = false
	}
	return re, nil
}

// Patterns returns the pattern texts.
func (re *RegExp) Patterns() []string { return re.patterns }

// HasCaptures reports whether the compiled set supports capture groups.
func (re *RegExp) HasCaptures() bool { return re.captures }

// TokenMatcher returns a fresh match state for streaming matching.
func (re *RegExp) TokenMatcher() *MatchState {
	return &MatchState{re: re}
}

// MatchGroup matches data in full-search mode and extracts the given
// capture group (0 = whole match). Returns (group bytes, matched, error).
func (re *RegExp) MatchGroup(data Bytes, group int) (Bytes, bool, error) {
	for _, p := range re.patterns {
		full, err := regexp.Compile(p)
		if err != nil {
			return nil, false, PatternError("cannot compile pattern /%s/", p)
		}
		m := full.FindSubmatch(data)
		if m == nil {
			continue
		}
		if group >= len(m) {
			return nil, false, InvalidArgument("no capture group %d", group)
		}
		return Bytes(m[group]), true, nil
	}
	return nil, false, nil
}

// Find runs an unanchored search over data, returning the 1-based accept ID
// and the match bounds, or 0 when nothing matches.
func (re *RegExp) Find(data Bytes) (int32, int, int) {
	for i, p := range re.patterns {
		full, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		if loc := full.FindIndex(data); loc != nil {
			return int32(i + 1), loc[0], loc[1]
		}
	}
	return 0, 0, 0
}

// MatchState holds the progress of a streaming match, supporting resumption
// across input chunks. Feeding a completed state raises MatchStateReuse.
type MatchState struct {
	re       *RegExp
	buf      []byte
	done     bool
	captures []Bytes
}

// Clone copies the state. States derived from capture-group patterns are
// not clonable: they are movable only.
func (ms *MatchState) Clone() (*MatchState, error) {
	if ms.re != nil && ms.re.captures {
		return nil, InvalidValue("cannot copy match state of regexp with capture groups")
	}
	ns := &MatchState{re: ms.re, done: ms.done}
	ns.buf = append([]byte(nil), ms.buf...)
	return ns, nil
}

// Captures returns the capture groups of the accepted match; valid only
// after Advance returned an accept and the pattern set was compiled with
// capture support.
func (ms *MatchState) Captures() []Bytes { return ms.captures }

// Advance feeds the next chunk of input. final marks the end of input.
// Returns (rc, consumed): rc > 0 is the 1-based accept ID of a match, 0 a
// definite non-match, and rc < 0 means more data is needed. consumed is the
// number of bytes of accumulated input covered by the match.
func (ms *MatchState) Advance(data Bytes, final bool) (int32, uint64, error) {
	if ms.done {
		return 0, 0, MatchStateReuse("match state already completed")
	}
	ms.buf = append(ms.buf, data...)

	bestID := int32(0)
	bestLen := -1
	for i, re := range ms.re.anchored {
		loc := re.FindSubmatchIndex(ms.buf)
		if loc == nil {
			continue
		}
		if loc[1] > bestLen {
			bestLen = loc[1]
			bestID = int32(i + 1)
			if ms.re.captures {
				ms.captures = ms.captures[:0]
				for g := 0; 2*g < len(loc); g++ {
					if loc[2*g] < 0 {
						ms.captures = append(ms.captures, nil)
					} else {
						ms.captures = append(ms.captures, Bytes(ms.buf[loc[2*g]:loc[2*g+1]]))
					}
				}
			}
		}
	}

	if bestID > 0 {
		// A match covering the whole buffer may still extend with more
		// input; only a shorter match (or end of input) is decisive.
		if !final && bestLen == len(ms.buf) {
			return -1, 0, nil
		}
		ms.done = true
		return bestID, uint64(bestLen), nil
	}

	if final {
		ms.done = true
		return 0, 0, nil
	}
	return -1, 0, nil
}
