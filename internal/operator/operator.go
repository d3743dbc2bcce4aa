// Package operator describes the built-in operators of the language as data:
// each operator is a signature over operand shapes plus a result rule. The
// resolver matches unresolved operator expressions against this registry.
package operator

import (
	"fmt"
	"strings"

	"github.com/zeek/go-spicy/internal/ast"
)

// Priority breaks ties between operators matching at the same coercion
// style.
type Priority int

const (
	Normal Priority = iota
	Low
)

// Operand describes one positional operand of an operator signature. Either
// Ty names the expected qualified type, or Match is a structural predicate
// for shapes a single type cannot express (any integer, any vector, the
// operand's own type again).
type Operand struct {
	Name     ast.ID
	Ty       *ast.QualifiedType
	Match    func(op *ast.QualifiedType) bool
	Optional bool
}

func (o Operand) String() string {
	if o.Ty != nil {
		return o.Ty.String()
	}
	return "<match>"
}

// Parameter is a named parameter of a method-call operator.
type Parameter struct {
	Name     ast.ID
	Ty       *ast.QualifiedType
	Match    func(op *ast.QualifiedType) bool
	Default  ast.Expression
	Optional bool
}

// Signature is the operand shape of one operator.
type Signature struct {
	Kind ast.OperatorKind
	// Member is the required member name for Member/MemberCall operators.
	Member ast.ID
	// Operands are the positional operands, at most three.
	Operands []Operand
	// Params are the named call parameters of a method, at most five.
	Params []Parameter
	// Result is the static result type; nil if ResultFn computes it.
	Result *ast.QualifiedType
	// ResultFn derives the result type from the concrete operands.
	ResultFn func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType
}

// Operator is one registered built-in operator.
type Operator struct {
	Name     string // diagnostic name, e.g. "bytes::size"
	Sig      Signature
	Priority Priority
	Doc      string
}

// Kind returns the operator's kind.
func (o *Operator) Kind() ast.OperatorKind { return o.Sig.Kind }

// Commutative reports whether operand order may be swapped during
// resolution; derived from the kind.
func (o *Operator) Commutative() bool { return o.Sig.Kind.IsCommutative() }

// Result computes the operator's result type for the given operands.
func (o *Operator) Result(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
	if o.Sig.ResultFn != nil {
		return o.Sig.ResultFn(ctx, operands)
	}
	if o.Sig.Result != nil {
		return o.Sig.Result
	}
	return ast.QtConst(ctx.VoidT())
}

// Prototype renders the operator for "candidates were" diagnostics.
func (o *Operator) Prototype() string {
	ops := make([]string, len(o.Sig.Operands))
	for i, op := range o.Sig.Operands {
		ops[i] = op.String()
	}
	return fmt.Sprintf("%s(%s)", o.Name, strings.Join(ops, ", "))
}

// Instantiate builds the resolved expression node for this operator applied
// to the given operands, stamping the result type.
func (o *Operator) Instantiate(ctx *ast.Context, operands []ast.Expression) *ResolvedOperator {
	r := &ResolvedOperator{Op: o, Operands: operands}
	r.SetType(o.Result(ctx, operands))
	ctx.Adopt(r, nodesOf(operands)...)
	return r
}

func nodesOf(exprs []ast.Expression) []ast.Node {
	out := make([]ast.Node, len(exprs))
	for i, e := range exprs {
		out[i] = e
	}
	return out
}

// ResolvedOperator is the expression node produced by successful operator
// resolution: the operator identity plus its (coerced) operands.
type ResolvedOperator struct {
	ast.ExprBase
	Op       *Operator
	Operands []ast.Expression
}

func (e *ResolvedOperator) String() string {
	ops := make([]string, len(e.Operands))
	for i, o := range e.Operands {
		ops[i] = o.String()
	}
	return fmt.Sprintf("%s(%s)", e.Op.Name, strings.Join(ops, ", "))
}

// Operand returns the i-th operand, or nil.
func (e *ResolvedOperator) Operand(i int) ast.Expression {
	if i < 0 || i >= len(e.Operands) {
		return nil
	}
	return e.Operands[i]
}

// ChildNodes exposes the operands to the AST traversal helpers.
func (e *ResolvedOperator) ChildNodes() []ast.Node {
	return nodesOf(e.Operands)
}

// ExprSlots exposes the operand slots for rewriting passes.
func (e *ResolvedOperator) ExprSlots() []*ast.Expression {
	slots := make([]*ast.Expression, len(e.Operands))
	for i := range e.Operands {
		slots[i] = &e.Operands[i]
	}
	return slots
}
