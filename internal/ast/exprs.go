package ast

import (
	"fmt"
	"strings"
)

// ExprBase is the embeddable common part of non-ctor expressions.
type ExprBase struct {
	NodeBase
	Ty *QualifiedType
}

func (e *ExprBase) expressionNode() {}

// Type returns the expression's qualified type; before resolution this is
// nil and callers must treat it as unknown.
func (e *ExprBase) Type() *QualifiedType { return e.Ty }

// SetType records the expression's resolved type.
func (e *ExprBase) SetType(t *QualifiedType) { e.Ty = t }

// OperatorKind is the closed set of built-in operator kinds.
type OperatorKind int

const (
	OpNone OperatorKind = iota
	OpAdd
	OpBegin
	OpBitAnd
	OpBitOr
	OpBitXor
	OpCall
	OpCast
	OpCustomAssign
	OpDecrPost
	OpDecrPre
	OpDelete
	OpDeref
	OpDifference
	OpDifferenceAssign
	OpDivision
	OpDivisionAssign
	OpEqual
	OpEnd
	OpGreater
	OpGreaterEqual
	OpHasMember
	OpIn
	OpIncrPost
	OpIncrPre
	OpIndex
	OpIndexAssign
	OpLower
	OpLowerEqual
	OpMember
	OpMemberCall
	OpModulo
	OpMultiple
	OpMultipleAssign
	OpNegate
	OpNew
	OpPack
	OpPower
	OpShiftLeft
	OpShiftRight
	OpSignNeg
	OpSignPos
	OpSize
	OpSum
	OpSumAssign
	OpTryMember
	OpUnequal
	OpUnpack
	OpUnset
)

var operatorKindNames = map[OperatorKind]string{
	OpAdd: "add", OpBegin: "begin", OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^",
	OpCall: "call", OpCast: "cast", OpCustomAssign: "=", OpDecrPost: "--",
	OpDecrPre: "--", OpDelete: "delete", OpDeref: "*", OpDifference: "-",
	OpDifferenceAssign: "-=", OpDivision: "/", OpDivisionAssign: "/=",
	OpEqual: "==", OpEnd: "end", OpGreater: ">", OpGreaterEqual: ">=",
	OpHasMember: "?.", OpIn: "in", OpIncrPost: "++", OpIncrPre: "++",
	OpIndex: "index", OpIndexAssign: "index=", OpLower: "<", OpLowerEqual: "<=",
	OpMember: ".", OpMemberCall: "method call", OpModulo: "%", OpMultiple: "*",
	OpMultipleAssign: "*=", OpNegate: "~", OpNew: "new", OpPack: "pack",
	OpPower: "**", OpShiftLeft: "<<", OpShiftRight: ">>", OpSignNeg: "-",
	OpSignPos: "+", OpSize: "size", OpSum: "+", OpSumAssign: "+=",
	OpTryMember: ".?", OpUnequal: "!=", OpUnpack: "unpack", OpUnset: "unset",
}

func (k OperatorKind) String() string {
	if n, ok := operatorKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// IsCommutative reports whether the operator kind permits operand swapping
// during resolution.
func (k OperatorKind) IsCommutative() bool {
	switch k {
	case OpBitAnd, OpBitOr, OpBitXor, OpEqual, OpUnequal, OpMultiple, OpSum:
		return true
	}
	return false
}

// Name references a declaration by ID. After resolution Decl holds the
// target's DeclarationIndex.
type Name struct {
	ExprBase
	ID   ID
	Decl DeclarationIndex
}

func (e *Name) String() string { return string(e.ID) }

// Resolved reports whether the name has been bound.
func (e *Name) Resolved() bool { return e.Decl != 0 }

// MemberExpr is a member-name operand of a member/member-call operator. Its
// type is the pseudo-type Member.
type MemberExpr struct {
	ExprBase
	ID ID
}

func (e *MemberExpr) String() string { return string(e.ID) }

// TypeExpr uses a type in expression position (cast targets, type
// constructor calls).
type TypeExpr struct {
	ExprBase
	T Type
}

func (e *TypeExpr) String() string { return e.T.String() }

// Grouping is a parenthesized expression.
type Grouping struct {
	ExprBase
	Inner Expression
}

func (e *Grouping) String() string { return "(" + e.Inner.String() + ")" }

// Ternary is cond ? true : false.
type Ternary struct {
	ExprBase
	Cond  Expression
	True  Expression
	False Expression
}

func (e *Ternary) String() string {
	return e.Cond.String() + " ? " + e.True.String() + " : " + e.False.String()
}

// LogicalAnd is short-circuiting &&.
type LogicalAnd struct {
	ExprBase
	Op0, Op1 Expression
}

func (e *LogicalAnd) String() string { return e.Op0.String() + " && " + e.Op1.String() }

// LogicalOr is short-circuiting ||.
type LogicalOr struct {
	ExprBase
	Op0, Op1 Expression
}

func (e *LogicalOr) String() string { return e.Op0.String() + " || " + e.Op1.String() }

// LogicalNot is !.
type LogicalNot struct {
	ExprBase
	Op Expression
}

func (e *LogicalNot) String() string { return "!" + e.Op.String() }

// Assign is the plain assignment expression target = value.
type Assign struct {
	ExprBase
	Target Expression
	Value  Expression
}

func (e *Assign) String() string { return e.Target.String() + " = " + e.Value.String() }

// UnresolvedOperator is an operator application awaiting resolution against
// the operator registry.
type UnresolvedOperator struct {
	ExprBase
	Kind     OperatorKind
	Operands []Expression
}

func (e *UnresolvedOperator) String() string {
	op := func(i int) string {
		if i < len(e.Operands) {
			return e.Operands[i].String()
		}
		return "<missing>"
	}
	switch e.Kind {
	case OpSum, OpDifference, OpMultiple, OpDivision, OpModulo, OpPower,
		OpBitAnd, OpBitOr, OpBitXor, OpShiftLeft, OpShiftRight,
		OpEqual, OpUnequal, OpLower, OpLowerEqual, OpGreater, OpGreaterEqual,
		OpIn, OpSumAssign, OpDifferenceAssign, OpMultipleAssign, OpDivisionAssign:
		return op(0) + " " + e.Kind.String() + " " + op(1)
	case OpSignNeg:
		return "-" + op(0)
	case OpSignPos:
		return "+" + op(0)
	case OpDeref:
		return "*" + op(0)
	case OpSize:
		return "|" + op(0) + "|"
	case OpNew:
		return "new " + op(0)
	case OpMember:
		return op(0) + "." + op(1)
	case OpTryMember:
		return op(0) + ".?" + op(1)
	case OpHasMember:
		return op(0) + "?." + op(1)
	case OpUnset:
		return "unset " + op(0) + "." + op(1)
	case OpIndex:
		return op(0) + "[" + op(1) + "]"
	case OpIncrPre:
		return "++" + op(0)
	case OpIncrPost:
		return op(0) + "++"
	case OpDecrPre:
		return "--" + op(0)
	case OpDecrPost:
		return op(0) + "--"
	case OpCast:
		return "cast<" + op(1) + ">(" + op(0) + ")"
	case OpCall:
		return op(0) + op(1)
	case OpMemberCall:
		return op(0) + "." + op(1) + op(2)
	case OpBegin:
		return "begin(" + op(0) + ")"
	case OpEnd:
		return "end(" + op(0) + ")"
	case OpPack:
		return "pack" + op(0)
	case OpUnpack:
		return "unpack<" + op(0) + ">" + op(1)
	}
	ops := make([]string, len(e.Operands))
	for i, o := range e.Operands {
		ops[i] = o.String()
	}
	return fmt.Sprintf("%s(%s)", e.Kind, strings.Join(ops, ", "))
}

// Coerced wraps an expression whose value is converted to a new type.
type Coerced struct {
	ExprBase
	Inner Expression
}

func (e *Coerced) String() string {
	return fmt.Sprintf("cast<%s>(%s)", e.Ty.T, e.Inner)
}

// Deref dereferences a reference-typed expression.
type Deref struct {
	ExprBase
	Inner Expression
}

func (e *Deref) String() string { return "(*" + e.Inner.String() + ")" }

// ListComprehension is [output for var in input if cond].
type ListComprehension struct {
	ExprBase
	Output Expression
	Var    *LocalVarDecl
	Input  Expression
	Cond   Expression // optional
}

func (e *ListComprehension) String() string {
	s := "[" + e.Output.String() + " for " + string(e.Var.ID_) + " in " + e.Input.String()
	if e.Cond != nil {
		s += " if " + e.Cond.String()
	}
	return s + "]"
}

// AttributeNotSetExpr unconditionally raises AttributeNotSet at runtime and
// nominally yields a value of its type so the tree still type-checks. The
// optimizer substitutes it for reads of fields that are never written.
type AttributeNotSetExpr struct {
	ExprBase
	Field ID
}

func (e *AttributeNotSetExpr) String() string {
	return fmt.Sprintf("<raise AttributeNotSet(%s)>", e.Field)
}

// KeywordKind enumerates the special expression keywords.
type KeywordKind int

const (
	KwSelf KeywordKind = iota
	KwDollarDollar
	KwCaptures
	KwError
)

// Keyword is one of the special expressions (self, $$, ...).
type Keyword struct {
	ExprBase
	Kind KeywordKind
}

func (e *Keyword) String() string {
	switch e.Kind {
	case KwDollarDollar:
		return "$$"
	case KwCaptures:
		return "__captures"
	case KwError:
		return "__error"
	default:
		return "self"
	}
}
