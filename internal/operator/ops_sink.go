package operator

import "github.com/zeek/go-spicy/internal/ast"

// registerSink covers the sink runtime methods. The validator restricts
// sink connection to units advertising sink support.
func (r *Registry) registerSink() {
	matchSink := func(op *ast.QualifiedType) bool {
		_, ok := op.T.(*ast.SinkType)
		return ok
	}

	voidQ := ast.QtConst(r.ctx.VoidT())
	uint64Q := r.qtConst("uint64")
	boolQ := r.qtConst("bool")
	bytesQ := r.qtConst("bytes")
	stringQ := r.qtConst("string")

	r.Register(&Operator{
		Name: "sink::size",
		Sig: Signature{
			Kind:     ast.OpSize,
			Operands: []Operand{{Name: "op0", Match: matchSink}},
			Result:   uint64Q,
		},
		Doc: "Returns the number of bytes delivered to the sink so far.",
	})

	r.method(matchSink, "write", voidQ,
		Parameter{Name: "data", Ty: bytesQ},
		Parameter{Name: "seq", Ty: uint64Q, Optional: true},
		Parameter{Name: "len", Ty: uint64Q, Optional: true},
	)
	r.method(matchSink, "gap", voidQ,
		Parameter{Name: "seq", Ty: uint64Q},
		Parameter{Name: "len", Ty: uint64Q},
	)
	r.method(matchSink, "skip", voidQ, Parameter{Name: "seq", Ty: uint64Q})
	r.method(matchSink, "trim", voidQ, Parameter{Name: "seq", Ty: uint64Q})
	r.method(matchSink, "close", voidQ)
	r.method(matchSink, "connect", voidQ, Parameter{Name: "unit", Match: matchUnitRef})
	r.method(matchSink, "connect_mime_type", voidQ, Parameter{Name: "mt", Ty: stringQ})
	r.method(matchSink, "connect_filter", voidQ, Parameter{Name: "filter", Match: matchUnitRef})
	r.method(matchSink, "set_auto_trim", voidQ, Parameter{Name: "enable", Ty: boolQ})
	r.method(matchSink, "set_initial_sequence_number", voidQ, Parameter{Name: "seq", Ty: uint64Q})
	r.method(matchSink, "set_policy", voidQ, Parameter{Name: "policy", Match: matchType[*ast.EnumType]})
	r.method(matchSink, "sequence_number", uint64Q)
	r.method(matchSink, "is_connected", boolQ)
}

func matchUnitRef(op *ast.QualifiedType) bool {
	if matchUnit(op) {
		return true
	}
	if e, ok := ast.ReferenceElem(op.T); ok {
		return matchUnit(e)
	}
	return false
}
