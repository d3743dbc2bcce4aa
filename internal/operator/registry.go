package operator

import (
	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/diag"
)

// Registry holds every built-in operator, indexed by kind for candidate
// lookup.
type Registry struct {
	ctx    *ast.Context
	byKind map[ast.OperatorKind][]*Operator
}

// NewRegistry builds the registry for a context and registers all built-in
// operators. Signature type names resolve against the context's root scope;
// the context must have been seeded with RootTypeScope first, and failure to
// resolve any built-in signature is an internal error.
func NewRegistry(ctx *ast.Context) *Registry {
	r := &Registry{ctx: ctx, byKind: make(map[ast.OperatorKind][]*Operator)}
	r.registerIntegers()
	r.registerReal()
	r.registerBool()
	r.registerBytes()
	r.registerString()
	r.registerStream()
	r.registerContainers()
	r.registerEnumBitfield()
	r.registerReferences()
	r.registerUnit()
	r.registerSink()
	r.registerGeneric()
	return r
}

// Register adds an operator to the registry.
func (r *Registry) Register(op *Operator) {
	r.byKind[op.Sig.Kind] = append(r.byKind[op.Sig.Kind], op)
}

// Candidates returns the operators of the given kind. For member calls,
// member pre-filters to operators whose member name matches.
func (r *Registry) Candidates(kind ast.OperatorKind, member ast.ID) []*Operator {
	ops := r.byKind[kind]
	if member == "" {
		return ops
	}
	var out []*Operator
	for _, op := range ops {
		if op.Sig.Member == member {
			out = append(out, op)
		}
	}
	return out
}

// All returns every registered operator.
func (r *Registry) All() []*Operator {
	var out []*Operator
	for _, ops := range r.byKind {
		out = append(out, ops...)
	}
	return out
}

// namedType resolves a builtin type name through the root scope, recording
// the resulting TypeIndex; this must succeed for every built-in operator.
func (r *Registry) namedType(name ast.ID) ast.Type {
	for _, e := range r.ctx.Root().Scope.Lookup(name) {
		if td, ok := r.ctx.LookupDeclaration(e.Index).(*ast.TypeDecl); ok {
			r.ctx.RegisterType(td.Type)
			return td.Type
		}
	}
	diag.InternalError("builtin operator signature references unknown type %q", name)
	return nil
}

func (r *Registry) qtConst(name ast.ID) *ast.QualifiedType {
	return ast.QtConst(r.namedType(name))
}

func (r *Registry) qtMutable(name ast.ID) *ast.QualifiedType {
	return ast.QtMutable(r.namedType(name))
}

// ---------------------------------------------------------------------------
// Operand shape helpers

// sameAsOperand returns a result rule yielding operand i's type, stripped to
// a constant RHS.
func sameAsOperand(i int) func(*ast.Context, []ast.Expression) *ast.QualifiedType {
	return func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
		if i < len(operands) && operands[i].Type() != nil {
			return ast.QtConst(operands[i].Type().T)
		}
		return ast.QtConst(ctx.Unknown())
	}
}

func matchAnyInt(op *ast.QualifiedType) bool {
	_, ok := op.T.(*ast.IntType)
	return ok
}

func matchSignedInt(op *ast.QualifiedType) bool {
	it, ok := op.T.(*ast.IntType)
	return ok && it.Signed
}

func matchUnsignedInt(op *ast.QualifiedType) bool {
	it, ok := op.T.(*ast.IntType)
	return ok && !it.Signed
}

func matchType[T ast.Type](op *ast.QualifiedType) bool {
	_, ok := op.T.(T)
	return ok
}

func matchAny(op *ast.QualifiedType) bool { return true }

func matchMember(op *ast.QualifiedType) bool {
	_, ok := op.T.(*ast.MemberType)
	return ok
}

func matchIterable(op *ast.QualifiedType) bool { return ast.IsIterable(op.T) }

func matchReference(op *ast.QualifiedType) bool {
	_, ok := ast.ReferenceElem(op.T)
	return ok
}
