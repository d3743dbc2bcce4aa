package ast

import (
	"strconv"
	"strings"
)

// Ctor is a constant constructor expression: a literal whose value is fully
// known at compile time. Ctors are ordinary expressions; the constant folder
// and the parser-builder test for them through this interface.
type Ctor interface {
	Expression
	ctorNode()
}

// CtorBase is the embeddable common part of ctors. Ty is the value's type,
// assigned when the ctor is built (and possibly re-typed by coercion).
type CtorBase struct {
	NodeBase
	Ty *QualifiedType
}

func (c *CtorBase) expressionNode()       {}
func (c *CtorBase) ctorNode()             {}
func (c *CtorBase) Type() *QualifiedType  { return c.Ty }
func (c *CtorBase) SetType(t *QualifiedType) { c.Ty = t }

// IsCtor reports whether e is a constant constructor.
func IsCtor(e Expression) bool {
	_, ok := e.(Ctor)
	return ok
}

// BoolCtor is a boolean literal.
type BoolCtor struct {
	CtorBase
	Value bool
}

func (c *BoolCtor) String() string { return strconv.FormatBool(c.Value) }

// IntCtor is a signed integer literal.
type IntCtor struct {
	CtorBase
	Value int64
}

func (c *IntCtor) String() string { return strconv.FormatInt(c.Value, 10) }

// UIntCtor is an unsigned integer literal.
type UIntCtor struct {
	CtorBase
	Value uint64
}

func (c *UIntCtor) String() string { return strconv.FormatUint(c.Value, 10) }

// RealCtor is a floating-point literal.
type RealCtor struct {
	CtorBase
	Value float64
}

func (c *RealCtor) String() string { return strconv.FormatFloat(c.Value, 'g', -1, 64) }

// StringCtor is a string literal.
type StringCtor struct {
	CtorBase
	Value string
}

func (c *StringCtor) String() string { return strconv.Quote(c.Value) }

// BytesCtor is a bytes literal.
type BytesCtor struct {
	CtorBase
	Value []byte
}

func (c *BytesCtor) String() string { return "b" + strconv.Quote(string(c.Value)) }

// RegExpCtor is a regular expression literal; multiple alternates form a
// pattern set matched with 1-based accept IDs.
type RegExpCtor struct {
	CtorBase
	Patterns []string
}

func (c *RegExpCtor) String() string {
	parts := make([]string, len(c.Patterns))
	for i, p := range c.Patterns {
		parts[i] = "/" + p + "/"
	}
	return strings.Join(parts, " | ")
}

// NullCtor is the Null literal.
type NullCtor struct{ CtorBase }

func (c *NullCtor) String() string { return "Null" }

// OptionalCtor wraps a value (or nothing) in an optional.
type OptionalCtor struct {
	CtorBase
	Value Expression // nil = unset optional
}

func (c *OptionalCtor) String() string {
	if c.Value == nil {
		return "optional()"
	}
	return "optional(" + c.Value.String() + ")"
}

// ListCtor is a list literal.
type ListCtor struct {
	CtorBase
	Elements []Expression
}

func (c *ListCtor) String() string { return "[" + joinExprs(c.Elements) + "]" }

// VectorCtor is a vector literal.
type VectorCtor struct {
	CtorBase
	Elements []Expression
}

func (c *VectorCtor) String() string { return "vector(" + joinExprs(c.Elements) + ")" }

// SetCtor is a set literal.
type SetCtor struct {
	CtorBase
	Elements []Expression
}

func (c *SetCtor) String() string { return "set(" + joinExprs(c.Elements) + ")" }

// MapEntry is one key/value pair of a map literal.
type MapEntry struct {
	Key   Expression
	Value Expression
}

// MapCtor is a map literal.
type MapCtor struct {
	CtorBase
	Entries []MapEntry
}

func (c *MapCtor) String() string {
	parts := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		parts[i] = e.Key.String() + ": " + e.Value.String()
	}
	return "map(" + strings.Join(parts, ", ") + ")"
}

// TupleCtor is a tuple literal.
type TupleCtor struct {
	CtorBase
	Elements []Expression
}

func (c *TupleCtor) String() string { return "(" + joinExprs(c.Elements) + ")" }

// StructCtorField is one initialized field of a struct literal.
type StructCtorField struct {
	ID    ID
	Value Expression
}

// StructCtor is a struct literal.
type StructCtor struct {
	CtorBase
	Fields []*StructCtorField
}

func (c *StructCtor) String() string {
	parts := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		parts[i] = "$" + string(f.ID) + "=" + f.Value.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// RemoveField deletes the initializer for the given field, if present.
func (c *StructCtor) RemoveField(id ID) {
	out := c.Fields[:0]
	for _, f := range c.Fields {
		if f.ID != id {
			out = append(out, f)
		}
	}
	c.Fields = out
}

// BitfieldCtorBit is one expected bit-range value of a bitfield literal.
type BitfieldCtorBit struct {
	ID    ID
	Value Expression
}

// BitfieldCtor is a bitfield literal: expected values for (a subset of) the
// bitfield's ranges, used for literal field matching.
type BitfieldCtor struct {
	CtorBase
	Bits []*BitfieldCtorBit
}

func (c *BitfieldCtor) String() string {
	parts := make([]string, len(c.Bits))
	for i, b := range c.Bits {
		parts[i] = string(b.ID) + "=" + b.Value.String()
	}
	return "bitfield(" + strings.Join(parts, ", ") + ")"
}

// EnumCtor is an enum label literal.
type EnumCtor struct {
	CtorBase
	Label ID
}

func (c *EnumCtor) String() string { return string(c.Label) }

func joinExprs(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
