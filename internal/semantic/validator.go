package semantic

import (
	"strings"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/diag"
	"github.com/zeek/go-spicy/internal/operator"
)

// validator reports user-facing errors on the resolved AST. It never
// rewrites nodes.
type validator struct {
	ctx    *ast.Context
	errors []diag.Error
}

func (v *validator) errorAt(n ast.Node, format string, args ...any) {
	e := diag.Errorf(n.Pos(), format, args...)
	n.Base().AddError(e)
	v.errors = append(v.errors, e)
}

func (v *validator) errorAtLow(n ast.Node, format string, args ...any) {
	e := diag.Errorf(n.Pos(), format, args...)
	e.Priority = diag.Low
	n.Base().AddError(e)
	v.errors = append(v.errors, e)
}

func (v *validator) run() {
	for _, m := range v.ctx.Modules() {
		v.validateRedeclarations(m)
	}
	ast.Walk(v.ctx.Root(), func(n ast.Node) bool {
		switch t := n.(type) {
		case *ast.GlobalVarDecl:
			v.validateVarType(t, t.Ty)
		case *ast.LocalVarDecl:
			v.validateVarType(t, t.Ty)
		case *ast.ParameterDecl:
			v.validateParam(t)
		case *ast.FunctionDecl:
			v.validateFunction(t)
		case *ast.UnitHook:
			v.validateHook(t)
		case *ast.IntType:
			v.validateIntType(t)
		case *ast.OptionalType:
			v.validateElem(t, t.Elem, "optional")
		case *ast.ResultType:
			v.validateElem(t, t.Elem, "result")
		case *ast.StrongRefType:
			v.validateElem(t, t.Elem, "reference")
		case *ast.WeakRefType:
			v.validateElem(t, t.Elem, "reference")
		case *ast.ValueRefType:
			v.validateElem(t, t.Elem, "reference")
		case *ast.TupleType:
			for _, e := range t.Elements {
				v.validateElem(t, e.Ty, "tuple")
			}
		case *ast.UnitType:
			v.validateUnit(t)
		case *ast.IntCtor:
			v.validateIntCtor(t)
		case *ast.UIntCtor:
			v.validateUIntCtor(t)
		case *ast.ListCtor:
			v.validateListCtor(t)
		case *ast.Assign:
			v.validateAssign(t)
		case *ast.Ternary:
			v.validateTernary(t)
		case *ast.ListComprehension:
			if t.Input.Type() != nil && !ast.IsIterable(t.Input.Type().T) {
				v.errorAt(t, "list comprehension input is not iterable")
			}
		case *operator.ResolvedOperator:
			v.validateResolvedOperator(t)
		}
		return true
	})
}

// validateResolvedOperator enforces the unit-capability restrictions on the
// runtime method operators.
func (v *validator) validateResolvedOperator(e *operator.ResolvedOperator) {
	member := ast.ID("")
	if m, ok := e.Operand(1).(*ast.MemberExpr); ok {
		member = m.ID
	}
	self := e.Operand(0)
	if self == nil || self.Type() == nil {
		return
	}

	switch t := self.Type().T.(type) {
	case *ast.SinkType:
		switch member {
		case "connect", "connect_mime_type":
			// The connected unit must advertise sink support.
			if args, ok := e.Operand(2).(*ast.TupleCtor); ok && len(args.Elements) > 0 {
				argT := args.Elements[0].Type()
				if argT == nil {
					return
				}
				ut, ok := argT.T.(*ast.UnitType)
				if !ok {
					if elem, isRef := ast.ReferenceElem(argT.T); isRef {
						ut, ok = elem.T.(*ast.UnitType)
					}
				}
				if ok && ut != nil && !ut.SupportsSinks(v.ctx) {
					v.errorAt(e, "unit type does not support sinks")
				}
			}
		}
	case *ast.UnitType:
		switch member {
		case "offset", "position", "input", "set_input":
			if !t.SupportsRandomAccess() {
				v.errorAt(e, "use of %s() requires unit to have %%random-access", member)
			}
		case "connect_filter", "forward", "forward_eod":
			if !t.SupportsFilters() {
				v.errorAt(e, "use of %s() requires unit to have %%filter support", member)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Declarations

// validateRedeclarations enforces that an ID appears at most once per
// scope, with the documented exceptions for function overloads and repeated
// module imports.
func (v *validator) validateRedeclarations(m *ast.Module) {
	seen := make(map[ast.ID]ast.Declaration)
	for _, d := range m.Declarations {
		id := d.DeclID().Local()
		prev, ok := seen[id]
		if !ok {
			seen[id] = d
			continue
		}
		_, prevFn := prev.(*ast.FunctionDecl)
		_, curFn := d.(*ast.FunctionDecl)
		if prevFn && curFn {
			continue
		}
		_, prevImp := prev.(*ast.ImportedModule)
		_, curImp := d.(*ast.ImportedModule)
		if prevImp && curImp {
			continue
		}
		v.errorAt(d, "redeclaration of %q", id)
	}
}

func (v *validator) validateVarType(d ast.Declaration, ty *ast.QualifiedType) {
	if ty == nil || ty.T == nil {
		return
	}
	if !ast.IsAllocable(ty.T) {
		v.errorAt(d, "type %s cannot be used for variable declarations", ty.T)
	}
}

func (v *validator) validateParam(p *ast.ParameterDecl) {
	if p.Ty == nil || p.Ty.T == nil {
		return
	}
	if _, isAny := p.Ty.T.(*ast.AnyType); isAny {
		// Wildcard types are restricted to externally declared functions;
		// the function check below reports those.
		return
	}
	if !ast.IsAllocable(p.Ty.T) {
		v.errorAt(p, "type %s cannot be used for parameters", p.Ty.T)
	}
}

func (v *validator) validateFunction(f *ast.FunctionDecl) {
	external := f.Attributes.Has(ast.AttrCxxName)
	for _, p := range f.FuncType.Params {
		if p.Ty == nil {
			continue
		}
		if _, isAny := p.Ty.T.(*ast.AnyType); isAny && !external {
			v.errorAt(p, "only externally declared functions may take arguments of type any")
		}
	}
	if f.Body != nil {
		v.validateBody(f.Body, &stmtContext{function: f})
	}
	if f.Body == nil && !external {
		v.errorAtLow(f, "function %q has no body and no &cxxname", f.ID_)
	}
}

func (v *validator) validateHook(h *ast.UnitHook) {
	if h.Body == nil {
		return
	}
	v.validateBody(h.Body, &stmtContext{hook: h})
}

// ---------------------------------------------------------------------------
// Statements

type stmtContext struct {
	function  *ast.FunctionDecl
	hook      *ast.UnitHook
	loopDepth int
	inCatch   bool
}

func (v *validator) validateBody(s ast.Statement, c *stmtContext) {
	switch t := s.(type) {
	case *ast.Block:
		for _, st := range t.Statements {
			v.validateBody(st, c)
		}
	case *ast.If:
		v.validateBody(t.Then, c)
		if t.Else != nil {
			v.validateBody(t.Else, c)
		}
	case *ast.While:
		inner := *c
		inner.loopDepth++
		v.validateBody(t.Body, &inner)
	case *ast.For:
		inner := *c
		inner.loopDepth++
		v.validateBody(t.Body, &inner)
		if t.Seq.Type() != nil && !ast.IsIterable(t.Seq.Type().T) {
			v.errorAt(t, "for-loop sequence is not iterable")
		}
	case *ast.Switch:
		v.validateSwitch(t)
		for _, cs := range t.Cases {
			v.validateBody(cs.Body, c)
		}
	case *ast.Try:
		if len(t.Catches) == 0 {
			v.errorAt(t, "try requires at least one catch block")
		}
		defaults := 0
		for _, ct := range t.Catches {
			if ct.Param == nil {
				defaults++
			}
			inner := *c
			inner.inCatch = true
			v.validateBody(ct.Body, &inner)
		}
		if defaults > 1 {
			v.errorAt(t, "try allows at most one default catch block")
		}
		v.validateBody(t.Body, c)
	case *ast.Break:
		if c.loopDepth == 0 {
			v.errorAt(t, "break outside of loop")
		}
	case *ast.Continue:
		if c.loopDepth == 0 {
			v.errorAt(t, "continue outside of loop")
		}
	case *ast.Stop:
		if c.hook == nil || c.hook.Flavor != ast.HookForeach {
			v.errorAt(t, "stop is only allowed inside foreach hooks")
		}
	case *ast.Return:
		v.validateReturn(t, c)
	case *ast.Throw:
		if t.Expr == nil && !c.inCatch {
			v.errorAt(t, "throw without expression is only allowed inside catch blocks")
		}
	}
}

func (v *validator) validateReturn(t *ast.Return, c *stmtContext) {
	if c.function == nil {
		if c.hook == nil {
			v.errorAt(t, "return outside of function")
			return
		}
		// Hooks with a declared result (%print) must return a value.
		if c.hook.Result == nil && t.Expr != nil {
			v.errorAt(t, "hook does not return a value")
		}
		return
	}
	resultVoid := true
	if c.function.FuncType.Result != nil {
		_, resultVoid = c.function.FuncType.Result.T.(*ast.VoidType)
	}
	if resultVoid && t.Expr != nil {
		v.errorAt(t, "void function cannot return a value")
	}
	if !resultVoid && t.Expr == nil {
		v.errorAt(t, "function must return a value")
	}
}

func (v *validator) validateSwitch(t *ast.Switch) {
	if len(t.Cases) == 0 {
		v.errorAt(t, "switch requires at least one case")
	}
	defaults := 0
	seen := make(map[string]bool)
	for _, c := range t.Cases {
		if c.IsDefault() {
			defaults++
			continue
		}
		for _, e := range c.Exprs {
			key := e.String()
			if seen[key] {
				v.errorAt(c, "duplicate switch case %s", key)
			}
			seen[key] = true
		}
	}
	if defaults > 1 {
		v.errorAt(t, "switch allows at most one default case")
	}
}

// ---------------------------------------------------------------------------
// Types and ctors

func (v *validator) validateIntType(t *ast.IntType) {
	switch t.Width {
	case 8, 16, 32, 64:
	default:
		v.errorAt(t, "integer width must be one of 8, 16, 32, 64; have %d", t.Width)
	}
}

func (v *validator) validateElem(t ast.Type, elem *ast.QualifiedType, what string) {
	if elem == nil || elem.T == nil {
		return
	}
	if !ast.IsAllocable(elem.T) {
		v.errorAt(t, "%s element type %s is not allocable", what, elem.T)
	}
}

func (v *validator) validateIntCtor(c *ast.IntCtor) {
	it, ok := c.Type().T.(*ast.IntType)
	if !ok || it.Width == 64 {
		return
	}
	min := int64(-1) << (it.Width - 1)
	max := int64(1)<<(it.Width-1) - 1
	if !it.Signed {
		min = 0
		max = int64(1)<<it.Width - 1
	}
	if c.Value < min || c.Value > max {
		v.errorAt(c, "integer value %d out of range for %s", c.Value, it)
	}
}

func (v *validator) validateUIntCtor(c *ast.UIntCtor) {
	it, ok := c.Type().T.(*ast.IntType)
	if !ok || it.Width == 64 {
		return
	}
	var max uint64 = 1<<it.Width - 1
	if it.Signed {
		max = 1<<(it.Width-1) - 1
	}
	if c.Value > max {
		v.errorAt(c, "integer value %d out of range for %s", c.Value, it)
	}
}

func (v *validator) validateListCtor(c *ast.ListCtor) {
	if len(c.Elements) == 0 {
		return
	}
	if c.Type() == nil {
		return
	}
	if lt, ok := c.Type().T.(*ast.ListType); ok {
		if _, unknown := lt.Elem.T.(*ast.UnknownType); unknown {
			v.errorAt(c, "list element type cannot be inferred")
		}
	}
}

// ---------------------------------------------------------------------------
// Expressions

func (v *validator) validateAssign(a *ast.Assign) {
	tt := a.Target.Type()
	if tt == nil {
		return
	}
	if tt.Side != ast.LHS {
		v.errorAt(a, "cannot assign to expression")
	} else if tt.IsConst() {
		v.errorAt(a, "cannot assign to constant")
	}
}

func (v *validator) validateTernary(t *ast.Ternary) {
	tt, ft := t.True.Type(), t.False.Type()
	if tt == nil || ft == nil {
		return
	}
	if !ast.TypeEqual(tt.T, ft.T) {
		v.errorAt(t, "ternary arms have different types (%s vs %s)", tt.T, ft.T)
	}
}

// ---------------------------------------------------------------------------
// Units

// unitFieldAttrs describes which field shapes an attribute is legal on.
var unitFieldAttrs = map[string]string{
	ast.AttrSize:           "any",
	ast.AttrCount:          "container",
	ast.AttrEOD:            "bytes-or-container",
	ast.AttrUntil:          "bytes-or-container",
	ast.AttrUntilIncluding: "bytes-or-container",
	ast.AttrWhile:          "container",
	ast.AttrChunked:        "bytes",
	ast.AttrConvert:        "any",
	ast.AttrParseFrom:      "any",
	ast.AttrParseAt:        "any",
	ast.AttrType:           "real",
	ast.AttrIPv4:           "addr",
	ast.AttrIPv6:           "addr",
	ast.AttrByteOrder:      "any",
	ast.AttrBitOrder:       "any",
	ast.AttrTry:            "any",
	ast.AttrRequires:       "any",
	ast.AttrDefault:        "any",
	ast.AttrOptional:       "any",
	ast.AttrNoEmit:         "any",
	ast.AttrAlwaysEmit:     "any",
	ast.AttrNeededByFeature: "any",
	ast.AttrSynchronizeAt:    "any",
	ast.AttrSynchronizeAfter: "any",
	ast.AttrCxxName:          "any",
	ast.AttrStatic:           "any",
}

func (v *validator) validateUnit(u *ast.UnitType) {
	for _, f := range u.Fields() {
		v.validateUnitField(u, f)
	}
	for _, it := range u.Items {
		switch t := it.(type) {
		case *ast.UnitSwitch:
			v.validateUnitSwitch(t)
		case *ast.UnitProperty:
			v.validateUnitProperty(t)
		}
	}

	// %context is required when self.context() is used.
	if u.MayUseContext && u.Property(ast.PropContext) == nil {
		v.errorAt(u, "unit uses self.context() but declares no %%context")
	}
}

func (v *validator) validateUnitProperty(p *ast.UnitProperty) {
	switch p.Name {
	case ast.PropMimeType:
		sc, ok := p.Value.(*ast.StringCtor)
		if !ok || !strings.Contains(sc.Value, "/") {
			v.errorAt(p, "%%mime-type requires a \"main/sub\" value")
		}
	case ast.PropByteOrder, ast.PropBitOrder, ast.PropPort, ast.PropContext,
		ast.PropSyncAdvanceBlock, ast.PropDescription:
		if p.Value == nil {
			v.errorAt(p, "%s requires a value", p.Name)
		}
	case ast.PropRandomAccess, ast.PropFilter:
		if p.Value != nil {
			v.errorAt(p, "%s does not take a value", p.Name)
		}
	}
}

func (v *validator) validateUnitField(u *ast.UnitType, f *ast.UnitField) {
	if f.Attrs != nil {
		for _, a := range f.Attrs.Attributes {
			v.validateFieldAttr(f, a)
		}
	}

	parse := f.ParseTy
	if parse == nil {
		return
	}

	switch parse.T.(type) {
	case *ast.BytesType:
		if f.Ctor == nil && !f.Container {
			if !f.Attrs.Has(ast.AttrSize) && !f.Attrs.Has(ast.AttrEOD) &&
				!f.Attrs.Has(ast.AttrUntil) && !f.Attrs.Has(ast.AttrUntilIncluding) &&
				!f.Attrs.Has(ast.AttrParseFrom) && !f.Attrs.Has(ast.AttrParseAt) {
				v.errorAt(f, "bytes field requires one of &size, &eod, &until, &until-including, &parse-from, &parse-at")
			}
		}
	case *ast.AddressType:
		v4 := f.Attrs.Has(ast.AttrIPv4)
		v6 := f.Attrs.Has(ast.AttrIPv6)
		if v4 == v6 {
			v.errorAt(f, "address field requires exactly one of &ipv4 or &ipv6")
		}
	case *ast.RealType:
		if !f.Attrs.Has(ast.AttrType) {
			v.errorAt(f, "real field requires a &type attribute")
		}
	case *ast.VoidType:
		if f.Attrs != nil {
			for _, a := range f.Attrs.Attributes {
				switch a.Name {
				case ast.AttrRequires, ast.AttrParseFrom, ast.AttrParseAt,
					ast.AttrSize, ast.AttrUntil, ast.AttrUntilIncluding:
					v.errorAt(f, "void field cannot have attribute %s", a.Name)
				}
			}
		}
	}

	// Hook placement: stop only inside foreach is enforced statement-side;
	// foreach hooks only on containers here.
	for _, h := range f.Hooks {
		if h.Flavor == ast.HookForeach && !f.Container {
			v.errorAt(h, "foreach hook requires a container field")
		}
	}
}

func (v *validator) validateFieldAttr(f *ast.UnitField, a *ast.Attribute) {
	applicability, known := unitFieldAttrs[a.Name]
	if !known {
		v.errorAt(a, "unknown field attribute %s", a.Name)
		return
	}
	switch applicability {
	case "container":
		if !f.Container {
			v.errorAt(a, "%s requires a container field", a.Name)
		}
	case "bytes":
		if f.ParseTy != nil {
			if _, ok := f.ParseTy.T.(*ast.BytesType); !ok {
				v.errorAt(a, "%s requires a bytes field", a.Name)
			}
		}
	case "bytes-or-container":
		if f.ParseTy != nil && !f.Container {
			if _, ok := f.ParseTy.T.(*ast.BytesType); !ok {
				v.errorAt(a, "%s requires a bytes or container field", a.Name)
			}
		}
	case "addr":
		if f.ParseTy != nil {
			if _, ok := f.ParseTy.T.(*ast.AddressType); !ok {
				v.errorAt(a, "%s requires an address field", a.Name)
			}
		}
	case "real":
		if f.ParseTy != nil {
			if _, ok := f.ParseTy.T.(*ast.RealType); !ok {
				v.errorAt(a, "%s requires a real field", a.Name)
			}
		}
	}

	// &chunked is only meaningful together with streaming input.
	if a.Name == ast.AttrChunked {
		if !f.Attrs.Has(ast.AttrEOD) && !f.Attrs.Has(ast.AttrSize) {
			v.errorAt(a, "&chunked requires &eod or &size")
		}
	}
}

func (v *validator) validateUnitSwitch(s *ast.UnitSwitch) {
	if len(s.Cases) == 0 {
		v.errorAt(s, "switch requires at least one case")
		return
	}
	defaults := 0
	seen := make(map[string]bool)
	for _, c := range s.Cases {
		if c.IsDefault() {
			defaults++
			continue
		}
		for _, e := range c.Exprs {
			key := e.String()
			if seen[key] {
				v.errorAt(c, "duplicate switch case %s", key)
			}
			seen[key] = true
		}
		if s.Cond != nil && len(c.Exprs) == 0 {
			v.errorAt(c, "switch case requires an expression")
		}
	}
	if defaults > 1 {
		v.errorAt(s, "switch allows at most one default case")
	}
}
