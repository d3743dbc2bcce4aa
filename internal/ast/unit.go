package ast

import (
	"fmt"
	"strings"
)

// UnitType is a Spicy unit: a record of fields plus the declarative parse
// procedure derived from its ordered items.
type UnitType struct {
	TypeBase
	Parameters []*ParameterDecl
	Items      []UnitItem
	// Self is the implicit parameter through which hooks and expressions
	// refer to the instance; unset while the type is still a template.
	Self *ParameterDecl
	// MayUseContext is set when self.context() is used anywhere.
	MayUseContext bool
}

func (t *UnitType) String() string {
	if d := t.DeclarationIndex(); d != 0 {
		return fmt.Sprintf("unit#%d", d)
	}
	return "unit"
}

// UnitItem is one ordered element of a unit body.
type UnitItem interface {
	Node
	unitItemNode()
}

// unitItemBase is the embeddable common part of unit items.
type unitItemBase struct{ NodeBase }

func (unitItemBase) unitItemNode() {}

// Properties returns the unit's property items.
func (t *UnitType) Properties() []*UnitProperty {
	var out []*UnitProperty
	for _, it := range t.Items {
		if p, ok := it.(*UnitProperty); ok {
			out = append(out, p)
		}
	}
	return out
}

// Property returns the unit's first property with the given name, or nil.
func (t *UnitType) Property(name string) *UnitProperty {
	for _, p := range t.Properties() {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Fields returns the unit's field items, in order, descending into switches.
func (t *UnitType) Fields() []*UnitField {
	var out []*UnitField
	for _, it := range t.Items {
		switch f := it.(type) {
		case *UnitField:
			out = append(out, f)
		case *UnitSwitch:
			for _, c := range f.Cases {
				out = append(out, c.Fields...)
			}
		}
	}
	return out
}

// Field returns the named field, or nil.
func (t *UnitType) Field(id ID) *UnitField {
	for _, f := range t.Fields() {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// Variables returns the unit's variable items.
func (t *UnitType) Variables() []*UnitVariable {
	var out []*UnitVariable
	for _, it := range t.Items {
		if v, ok := it.(*UnitVariable); ok {
			out = append(out, v)
		}
	}
	return out
}

// Hooks returns the unit's hook items, including external ones bound later.
func (t *UnitType) Hooks() []*UnitHook {
	var out []*UnitHook
	for _, it := range t.Items {
		if h, ok := it.(*UnitHook); ok {
			out = append(out, h)
		}
	}
	return out
}

// SupportsSinks reports whether parser instances of this unit may be
// connected to sinks: public units and units advertising a MIME type.
func (t *UnitType) SupportsSinks(ctx *Context) bool {
	if t.Property(PropMimeType) != nil {
		return true
	}
	if d := ctx.LookupDeclaration(t.DeclarationIndex()); d != nil {
		return d.Linkage() == Public || d.Linkage() == Export
	}
	return false
}

// SupportsFilters reports whether the unit may have filters connected.
func (t *UnitType) SupportsFilters() bool { return t.Property(PropFilter) != nil }

// SupportsRandomAccess reports whether random-access operators are legal on
// this unit.
func (t *UnitType) SupportsRandomAccess() bool { return t.Property(PropRandomAccess) != nil }

// UnitField is one parsed field of a unit.
type UnitField struct {
	unitItemBase
	// ID is empty for anonymous fields.
	ID ID
	// OrigType is the surface type the field parses (nil for ctor fields).
	OrigType Type
	// Ctor is the literal for constant fields (b"GET", 0x0d0a, /re/).
	Ctor Expression
	// Inner is a nested item (anonymous sub-unit or switch), if any.
	Inner UnitItem
	// Container is set for repeat fields (elem[]; elem[n]).
	Container bool
	// RepeatCount is the expression of a bounded repeat, if any.
	RepeatCount Expression
	// Skip marks `skip` fields: parsed but never stored.
	Skip bool
	// Transient marks fields with no struct member (anonymous or skip).
	Transient bool
	// Arguments passed to a sub-unit's parameters.
	Arguments []Expression
	// Sinks this field's data is forwarded to.
	Sinks []Expression
	// Attrs holds the field's attributes.
	Attrs *AttributeSet
	// Condition is the `if` guard, if any.
	Condition Expression
	// Hooks attached inline to the field.
	Hooks []*UnitHook

	// Types computed by the resolver: how bytes are read (parse), the value
	// visible to hooks ($$, dd), and the field's stored value after
	// &convert (item).
	ParseTy *QualifiedType
	DDTy    *QualifiedType
	ItemTy  *QualifiedType

	// Decl is the struct field declaration generated for non-transient
	// fields.
	Decl *FieldDecl
}

func (f *UnitField) String() string {
	id := "<anon>"
	if f.ID != "" {
		id = string(f.ID)
	}
	switch {
	case f.Ctor != nil:
		return fmt.Sprintf("%s: %s", id, f.Ctor)
	case f.OrigType != nil:
		return fmt.Sprintf("%s: %s", id, f.OrigType)
	default:
		return id
	}
}

// IsAnonymous reports whether the field has no ID.
func (f *UnitField) IsAnonymous() bool { return f.ID == "" }

// EmitsItem reports whether the field contributes a struct member.
func (f *UnitField) EmitsItem() bool { return !f.Transient }

// UnitVariable is a `var` item: state without parse semantics.
type UnitVariable struct {
	unitItemBase
	ID      ID
	Ty      *QualifiedType
	Default Expression
	Attrs   *AttributeSet
}

func (v *UnitVariable) String() string { return fmt.Sprintf("var %s: %s", v.ID, v.Ty) }

// UnitSink is a `sink` item.
type UnitSink struct {
	unitItemBase
	ID ID
}

func (s *UnitSink) String() string { return fmt.Sprintf("sink %s", s.ID) }

// UnitProperty is a unit-level %property.
type UnitProperty struct {
	unitItemBase
	Name  string // including the leading '%'
	Value Expression
}

func (p *UnitProperty) String() string {
	if p.Value != nil {
		return p.Name + "=" + p.Value.String()
	}
	return p.Name
}

// UnitSwitchCase is one arm of a unit-level switch.
type UnitSwitchCase struct {
	NodeBase
	// Exprs are the guard expressions; empty marks the default arm. For
	// look-ahead switches (no scrutinee) the arms are distinguished by
	// their fields' leading literals instead.
	Exprs  []Expression
	Fields []*UnitField
}

func (c *UnitSwitchCase) String() string {
	fields := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		fields[i] = f.String()
	}
	if len(c.Exprs) == 0 {
		return "* -> { " + strings.Join(fields, "; ") + " }"
	}
	return joinExprs(c.Exprs) + " -> { " + strings.Join(fields, "; ") + " }"
}

// IsDefault reports whether this is the default arm.
func (c *UnitSwitchCase) IsDefault() bool { return len(c.Exprs) == 0 }

// UnitSwitch is a unit-level switch item; Cond may be nil, in which case the
// arms are resolved through look-ahead.
type UnitSwitch struct {
	unitItemBase
	Cond  Expression // optional
	Cases []*UnitSwitchCase
	Attrs *AttributeSet
}

func (s *UnitSwitch) String() string {
	parts := make([]string, len(s.Cases))
	for i, c := range s.Cases {
		parts[i] = c.String()
	}
	if s.Cond != nil {
		return "switch ( " + s.Cond.String() + " ) { " + strings.Join(parts, " ") + " }"
	}
	return "switch { " + strings.Join(parts, " ") + " }"
}

// HookFlavor distinguishes ordinary hooks from foreach hooks.
type HookFlavor int

const (
	HookStandard HookFlavor = iota
	HookForeach
)

// UnitHook is user code attached to a unit event or field. Special hooks are
// recognized by name: %init, %done, %error, %print (and the sink-side %gap,
// %overlap, %skipped, %undelivered).
type UnitHook struct {
	unitItemBase
	// Name is the hook target: a field ID, or a special %hook name. For
	// external hooks ("on HTTP::Request::uri") the full path; binding
	// resolves it.
	Name ID
	Flavor HookFlavor
	Params []*ParameterDecl
	Result *QualifiedType // nil unless the hook returns a value (%print)
	Body   *Block

	// Unit is the enclosing unit type, set during hook binding.
	Unit *UnitType
	// Field is the bound field for field hooks, nil for unit hooks.
	Field *UnitField
}

func (h *UnitHook) String() string {
	kind := "on"
	if h.Flavor == HookForeach {
		kind = "on foreach"
	}
	return fmt.Sprintf("%s %s", kind, h.Name)
}

// IsSpecial reports whether the hook targets a %-named unit event.
func (h *UnitHook) IsSpecial() bool { return strings.HasPrefix(string(h.Name.Local()), "%") }

// UnresolvedField is a unit item whose kind is not yet known (bare ID
// referencing either a type or a constant); the resolver promotes it to a
// concrete UnitField.
type UnresolvedField struct {
	unitItemBase
	ID     ID // may be empty
	RefID  ID // the referenced name
	Attrs  *AttributeSet
	Hooks  []*UnitHook
}

func (u *UnresolvedField) String() string {
	return fmt.Sprintf("<unresolved field %s: %s>", u.ID, u.RefID)
}
