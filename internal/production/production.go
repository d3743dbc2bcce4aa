// Package production defines the per-unit parse-graph intermediate: a small
// tagged tree the parser-builder compiles into IML statements.
package production

import (
	"fmt"
	"strings"

	"github.com/zeek/go-spicy/internal/ast"
)

// Production is one node of a unit's parse graph.
type Production interface {
	// Token returns the production's look-ahead token ID, 0 if none.
	Token() int
	// SetToken assigns the look-ahead token ID.
	SetToken(int)
	String() string
}

type base struct {
	token int
}

func (b *base) Token() int     { return b.token }
func (b *base) SetToken(t int) { b.token = t }

// Literal matches exactly the ctor's bytes and records the value.
type Literal struct {
	base
	Field *ast.UnitField
	Ctor  ast.Expression
}

func (p *Literal) String() string { return fmt.Sprintf("literal(%s)", p.Ctor) }

// Type invokes the parse routine of the field's parse type.
type Type struct {
	base
	Field *ast.UnitField
	Ty    *ast.QualifiedType
}

func (p *Type) String() string { return fmt.Sprintf("type(%s)", p.Ty) }

// Sequence parses each child in turn.
type Sequence struct {
	base
	Children []Production
}

func (p *Sequence) String() string {
	parts := make([]string, len(p.Children))
	for i, c := range p.Children {
		parts[i] = c.String()
	}
	return "seq(" + strings.Join(parts, " ") + ")"
}

// Arm is one guarded alternative of an Alternation.
type Arm struct {
	Guards []ast.Expression // nil/empty guards mark the default arm
	Body   Production
}

// Alternation evaluates guards in order; the first true one wins, the
// default otherwise.
type Alternation struct {
	base
	Cond    ast.Expression // the switch scrutinee, if any
	Arms    []Arm
	Default Production
}

func (p *Alternation) String() string { return fmt.Sprintf("alt(%d arms)", len(p.Arms)) }

// LookAhead selects between two alternatives through a one-token window.
type LookAhead struct {
	base
	Alt0 Production
	Alt1 Production
}

func (p *LookAhead) String() string {
	return fmt.Sprintf("lahead(%s | %s)", p.Alt0, p.Alt1)
}

// LoopBound tags the termination rule of a Loop.
type LoopBound int

const (
	// UntilInput repeats until the input is exhausted (&eod).
	UntilInput LoopBound = iota
	// Count repeats a fixed number of times.
	Count
	// While repeats while the expression holds.
	While
	// Until repeats until the delimiter is seen; the delimiter is consumed
	// but not kept.
	Until
	// UntilIncluding is Until with the delimiter kept in the value.
	UntilIncluding
)

func (b LoopBound) String() string {
	switch b {
	case Count:
		return "count"
	case While:
		return "while"
	case Until:
		return "until"
	case UntilIncluding:
		return "until-including"
	default:
		return "until-input"
	}
}

// Loop repeats its body per its bound.
type Loop struct {
	base
	Field *ast.UnitField
	Body  Production
	Bound LoopBound
	// Expr is the count/while/until expression, nil for UntilInput.
	Expr ast.Expression
}

func (p *Loop) String() string { return fmt.Sprintf("loop[%s](%s)", p.Bound, p.Body) }

// Variable emits a binding without parsing.
type Variable struct {
	base
	Item *ast.UnitVariable
}

func (p *Variable) String() string { return fmt.Sprintf("var(%s)", p.Item.ID) }

// Sink emits sink construction for a sink item.
type Sink struct {
	base
	Item *ast.UnitSink
}

func (p *Sink) String() string { return fmt.Sprintf("sink(%s)", p.Item.ID) }

// HookPoint names when a Hook production fires.
type HookPoint int

const (
	Before HookPoint = iota
	After
	Foreach
)

func (h HookPoint) String() string {
	switch h {
	case After:
		return "after"
	case Foreach:
		return "foreach"
	default:
		return "before"
	}
}

// Hook emits a hook call at the named point.
type Hook struct {
	base
	When HookPoint
	H    *ast.UnitHook
}

func (p *Hook) String() string { return fmt.Sprintf("hook[%s](%s)", p.When, p.H.Name) }

// Switch compiles a unit-level switch; without a scrutinee it lowers to a
// LookAhead chain instead.
type Switch struct {
	base
	Item *ast.UnitSwitch
	Alt  *Alternation
}

func (p *Switch) String() string { return "switch" }

// Unit is the root production of one unit type.
type Unit struct {
	base
	Type *ast.UnitType
	Body *Sequence
}

func (p *Unit) String() string { return fmt.Sprintf("unit(%s)", p.Body) }
