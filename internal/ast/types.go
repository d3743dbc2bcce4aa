package ast

import (
	"fmt"
	"strings"
)

// Type is an unqualified type. Each distinct type is registered once with the
// context and receives a TypeIndex.
type Type interface {
	Node
	typeNode()
	TypeIndex() TypeIndex
	setTypeIndex(TypeIndex)
	// DeclarationIndex returns the index of the type declaration that
	// introduced this type, or zero for anonymous/builtin types.
	DeclarationIndex() DeclarationIndex
	SetDeclarationIndex(DeclarationIndex)
}

// TypeBase is the embeddable common part of types.
type TypeBase struct {
	NodeBase
	index     TypeIndex
	declIndex DeclarationIndex
}

func (t *TypeBase) typeNode()                            {}
func (t *TypeBase) TypeIndex() TypeIndex                 { return t.index }
func (t *TypeBase) setTypeIndex(i TypeIndex)             { t.index = i }
func (t *TypeBase) DeclarationIndex() DeclarationIndex   { return t.declIndex }
func (t *TypeBase) SetDeclarationIndex(i DeclarationIndex) { t.declIndex = i }

// Constness qualifies a type as constant or mutable.
type Constness int

const (
	Const Constness = iota
	Mutable
)

// Side marks whether an expression may appear on the left-hand side of an
// assignment.
type Side int

const (
	RHS Side = iota
	LHS
)

// QualifiedType wraps an unqualified type with constness and side.
type QualifiedType struct {
	T         Type
	Constness Constness
	Side      Side
}

// QtConst wraps t as a constant RHS type.
func QtConst(t Type) *QualifiedType { return &QualifiedType{T: t, Constness: Const} }

// QtMutable wraps t as a mutable RHS type.
func QtMutable(t Type) *QualifiedType { return &QualifiedType{T: t, Constness: Mutable} }

// QtLHS wraps t as a mutable LHS type.
func QtLHS(t Type) *QualifiedType {
	return &QualifiedType{T: t, Constness: Mutable, Side: LHS}
}

func (q *QualifiedType) String() string {
	if q == nil || q.T == nil {
		return "<unset>"
	}
	if q.Constness == Const {
		return "const " + q.T.String()
	}
	return q.T.String()
}

// IsConst reports whether the type is constant.
func (q *QualifiedType) IsConst() bool { return q.Constness == Const }

// TypeEqual reports structural equality of two unqualified types. Types with
// a declaration compare by declaration index; structural types compare by
// their printed form, which is canonical.
func TypeEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	if ai, bi := a.DeclarationIndex(), b.DeclarationIndex(); ai != 0 && bi != 0 {
		return ai == bi
	}
	return a.String() == b.String()
}

// ---------------------------------------------------------------------------
// Value types

// BoolType is the boolean type.
type BoolType struct{ TypeBase }

func (t *BoolType) String() string { return "bool" }

// IntType is a fixed-width integer type; Signed selects the sign behavior.
// Widths are restricted to 8, 16, 32 and 64 by the validator.
type IntType struct {
	TypeBase
	Width  int
	Signed bool
}

func (t *IntType) String() string {
	if t.Signed {
		return fmt.Sprintf("int%d", t.Width)
	}
	return fmt.Sprintf("uint%d", t.Width)
}

// RealType is the IEEE double type.
type RealType struct{ TypeBase }

func (t *RealType) String() string { return "real" }

// AddressType holds IPv4/IPv6 addresses.
type AddressType struct{ TypeBase }

func (t *AddressType) String() string { return "addr" }

// PortType is a transport port with protocol.
type PortType struct{ TypeBase }

func (t *PortType) String() string { return "port" }

// NetworkType is a CIDR network.
type NetworkType struct{ TypeBase }

func (t *NetworkType) String() string { return "net" }

// IntervalType is a signed time span with nanosecond resolution.
type IntervalType struct{ TypeBase }

func (t *IntervalType) String() string { return "interval" }

// TimeType is an absolute point in time.
type TimeType struct{ TypeBase }

func (t *TimeType) String() string { return "time" }

// StringType is a UTF-8 string.
type StringType struct{ TypeBase }

func (t *StringType) String() string { return "string" }

// BytesType is a raw byte sequence.
type BytesType struct{ TypeBase }

func (t *BytesType) String() string { return "bytes" }

// StreamType is the append-only chunked input stream.
type StreamType struct{ TypeBase }

func (t *StreamType) String() string { return "stream" }

// StreamViewType is a window into a stream.
type StreamViewType struct{ TypeBase }

func (t *StreamViewType) String() string { return "view<stream>" }

// StreamIterType is a position inside a stream.
type StreamIterType struct{ TypeBase }

func (t *StreamIterType) String() string { return "iterator<stream>" }

// RegExpType is a compiled regular expression set.
type RegExpType struct{ TypeBase }

func (t *RegExpType) String() string { return "regexp" }

// BitRange is one named bit span of a bitfield, bits [Lower, Upper].
type BitRange struct {
	ID     ID
	Lower  int
	Upper  int
	Attrs  *AttributeSet
	ItemTy *QualifiedType // value type of the extracted range, set by resolver
}

// BitfieldType is an integer reinterpreted as named bit ranges.
type BitfieldType struct {
	TypeBase
	Width int
	Bits  []*BitRange
}

func (t *BitfieldType) String() string { return fmt.Sprintf("bitfield(%d)", t.Width) }

// Range returns the named bit range, or nil.
func (t *BitfieldType) Range(id ID) *BitRange {
	for _, b := range t.Bits {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// EnumLabel is one label of an enum type.
type EnumLabel struct {
	ID    ID
	Value int64
}

// EnumType is an enumeration; always carries an implicit Undef label.
type EnumType struct {
	TypeBase
	Labels []*EnumLabel
}

func (t *EnumType) String() string {
	if d := t.DeclarationIndex(); d != 0 {
		return fmt.Sprintf("enum#%d", d)
	}
	labels := make([]string, len(t.Labels))
	for i, l := range t.Labels {
		labels[i] = string(l.ID)
	}
	return "enum { " + strings.Join(labels, ", ") + " }"
}

// ErrorType is the error value type carried by result types.
type ErrorType struct{ TypeBase }

func (t *ErrorType) String() string { return "error" }

// NullType is the type of the Null literal.
type NullType struct{ TypeBase }

func (t *NullType) String() string { return "null" }

// VoidType is the absence of a value.
type VoidType struct{ TypeBase }

func (t *VoidType) String() string { return "void" }

// ---------------------------------------------------------------------------
// Composite types

// TupleElement is one element of a tuple type; the ID may be empty.
type TupleElement struct {
	ID ID
	Ty *QualifiedType
}

// TupleType is a fixed-shape anonymous product type.
type TupleType struct {
	TypeBase
	Elements []*TupleElement
}

func (t *TupleType) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.Ty.T.String()
	}
	return "tuple<" + strings.Join(parts, ", ") + ">"
}

// StructType is a record of fields. Unit types embed one.
type StructType struct {
	TypeBase
	Fields []*FieldDecl
}

func (t *StructType) String() string {
	if d := t.DeclarationIndex(); d != 0 {
		return fmt.Sprintf("struct#%d", d)
	}
	return "struct"
}

// Field returns the field declaration with the given ID, or nil.
func (t *StructType) Field(id ID) *FieldDecl {
	for _, f := range t.Fields {
		if f.ID_ == id {
			return f
		}
	}
	return nil
}

// FieldsByID returns all fields with the given ID (functions may overload).
func (t *StructType) FieldsByID(id ID) []*FieldDecl {
	var out []*FieldDecl
	for _, f := range t.Fields {
		if f.ID_ == id {
			out = append(out, f)
		}
	}
	return out
}

// UnionType is a tagged union of fields.
type UnionType struct {
	TypeBase
	Fields []*FieldDecl
}

func (t *UnionType) String() string {
	if d := t.DeclarationIndex(); d != 0 {
		return fmt.Sprintf("union#%d", d)
	}
	return "union"
}

// OptionalType wraps a value that may be unset.
type OptionalType struct {
	TypeBase
	Elem *QualifiedType
}

func (t *OptionalType) String() string { return "optional<" + t.Elem.T.String() + ">" }

// ResultType carries either a value or an error.
type ResultType struct {
	TypeBase
	Elem *QualifiedType
}

func (t *ResultType) String() string { return "result<" + t.Elem.T.String() + ">" }

// VectorType is a growable sequence.
type VectorType struct {
	TypeBase
	Elem *QualifiedType
}

func (t *VectorType) String() string { return "vector<" + t.Elem.T.String() + ">" }

// ListType is a sequence used by list comprehensions and literals.
type ListType struct {
	TypeBase
	Elem *QualifiedType
}

func (t *ListType) String() string { return "list<" + t.Elem.T.String() + ">" }

// SetType is an unordered collection of unique values.
type SetType struct {
	TypeBase
	Elem *QualifiedType
}

func (t *SetType) String() string { return "set<" + t.Elem.T.String() + ">" }

// MapType maps keys to values.
type MapType struct {
	TypeBase
	Key   *QualifiedType
	Value *QualifiedType
}

func (t *MapType) String() string {
	return "map<" + t.Key.T.String() + ", " + t.Value.T.String() + ">"
}

// StrongRefType is an owning reference.
type StrongRefType struct {
	TypeBase
	Elem *QualifiedType
}

func (t *StrongRefType) String() string { return "strong_ref<" + t.Elem.T.String() + ">" }

// WeakRefType is a non-owning reference that may dangle.
type WeakRefType struct {
	TypeBase
	Elem *QualifiedType
}

func (t *WeakRefType) String() string { return "weak_ref<" + t.Elem.T.String() + ">" }

// ValueRefType is a by-value box with reference semantics on copy.
type ValueRefType struct {
	TypeBase
	Elem *QualifiedType
}

func (t *ValueRefType) String() string { return "value_ref<" + t.Elem.T.String() + ">" }

// ReferenceElem returns the referenced type if t is any reference type.
func ReferenceElem(t Type) (*QualifiedType, bool) {
	switch r := t.(type) {
	case *StrongRefType:
		return r.Elem, true
	case *WeakRefType:
		return r.Elem, true
	case *ValueRefType:
		return r.Elem, true
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Callable types

// FunctionFlavor distinguishes plain functions, hooks and methods.
type FunctionFlavor int

const (
	FlavorFunction FunctionFlavor = iota
	FlavorHook
	FlavorMethod
)

func (f FunctionFlavor) String() string {
	switch f {
	case FlavorHook:
		return "hook"
	case FlavorMethod:
		return "method"
	default:
		return "function"
	}
}

// FunctionType is the type of a callable.
type FunctionType struct {
	TypeBase
	Flavor FunctionFlavor
	Params []*ParameterDecl
	Result *QualifiedType
}

func (t *FunctionType) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.Ty.T.String()
	}
	return fmt.Sprintf("%s (%s) -> %s", t.Flavor, strings.Join(params, ", "), t.Result.T.String())
}

// ---------------------------------------------------------------------------
// Parser-specific types

// SinkType is the runtime reassembler handle type.
type SinkType struct{ TypeBase }

func (t *SinkType) String() string { return "sink" }

// ---------------------------------------------------------------------------
// Meta types

// AutoType is inferred from context during resolution.
type AutoType struct{ TypeBase }

func (t *AutoType) String() string { return "auto" }

// UnknownType marks a type not yet computed by the resolver.
type UnknownType struct{ TypeBase }

func (t *UnknownType) String() string { return "<unknown>" }

// AnyType matches any type; only valid on &cxxname parameters.
type AnyType struct{ TypeBase }

func (t *AnyType) String() string { return "any" }

// MemberType is the pseudo-type of a member-name operand.
type MemberType struct {
	TypeBase
	ID ID
}

func (t *MemberType) String() string { return "member(" + string(t.ID) + ")" }

// LibraryType names a type supplied by the runtime library.
type LibraryType struct {
	TypeBase
	Name string
}

func (t *LibraryType) String() string { return "library(" + t.Name + ")" }

// OperandListType is the pseudo-type of an argument tuple during call
// resolution.
type OperandListType struct {
	TypeBase
	Operands []*QualifiedType
}

func (t *OperandListType) String() string {
	parts := make([]string, len(t.Operands))
	for i, o := range t.Operands {
		parts[i] = o.T.String()
	}
	return "operands(" + strings.Join(parts, ", ") + ")"
}

// NameType is an unresolved or resolved reference to a named type. Once the
// resolver finds the target, Target holds its TypeIndex.
type NameType struct {
	TypeBase
	ID     ID
	Target TypeIndex
}

func (t *NameType) String() string { return string(t.ID) }

// Resolved reports whether the name has been bound to a type.
func (t *NameType) Resolved() bool { return t.Target != 0 }

// ---------------------------------------------------------------------------
// Classification helpers

// IsAllocable reports whether values of t can be stored in variables and
// containers. Meta types, void and member pseudo-types are not allocable.
func IsAllocable(t Type) bool {
	switch t.(type) {
	case *VoidType, *UnknownType, *MemberType, *OperandListType, *NullType:
		return false
	case *AutoType, *AnyType:
		return false
	}
	return true
}

// IsIterable reports whether t can drive a for-loop or list comprehension.
func IsIterable(t Type) bool {
	switch t.(type) {
	case *BytesType, *StringType, *VectorType, *ListType, *SetType, *MapType,
		*StreamType, *StreamViewType:
		return true
	}
	return false
}

// ElementType returns the element type an iteration over t yields.
func ElementType(ctx *Context, t Type) *QualifiedType {
	switch c := t.(type) {
	case *VectorType:
		return c.Elem
	case *ListType:
		return c.Elem
	case *SetType:
		return c.Elem
	case *MapType:
		return QtConst(ctx.Builtin("tuple_kv", func() Type {
			return &TupleType{Elements: []*TupleElement{{ID: "key", Ty: c.Key}, {ID: "value", Ty: c.Value}}}
		}))
	case *BytesType, *StreamType, *StreamViewType:
		return QtConst(ctx.UInt(8))
	case *StringType:
		return QtConst(ctx.StringT())
	}
	return QtConst(ctx.Unknown())
}
