package semantic

import (
	"strings"
	"testing"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/operator"
	"github.com/zeek/go-spicy/internal/parser"
)

func resolveSource(t *testing.T, src string) (*ast.Context, *ast.Module, error) {
	t.Helper()
	ctx := ast.NewContext()
	ctx.RootTypeScope()
	reg := operator.NewRegistry(ctx)

	p := parser.New(ctx, src, "test.spicy")
	m := p.ParseModule(ast.UID{Path: "test.spicy"})
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	ctx.AddModule(m)

	r := NewResolver(ctx, reg)
	err := r.Run()
	return ctx, m, err
}

func mustResolve(t *testing.T, src string) (*ast.Context, *ast.Module) {
	t.Helper()
	ctx, m, err := resolveSource(t, src)
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}
	return ctx, m
}

func unitOf(t *testing.T, m *ast.Module, name ast.ID) *ast.UnitType {
	t.Helper()
	for _, d := range m.Declarations {
		if td, ok := d.(*ast.TypeDecl); ok && td.ID_ == name {
			return td.Type.(*ast.UnitType)
		}
	}
	t.Fatalf("no unit %q", name)
	return nil
}

func TestFieldTypeDerivation(t *testing.T) {
	ctx, m := mustResolve(t, `module Test;
public type M = unit {
    magic: b"HI";
    n: uint8;
    body: bytes &size=4;
    xs: uint16[] &eod;
};`)
	_ = ctx
	u := unitOf(t, m, "M")

	magic := u.Field("magic")
	if _, ok := magic.ParseTy.T.(*ast.BytesType); !ok {
		t.Errorf("magic parse type = %s", magic.ParseTy)
	}

	n := u.Field("n")
	it, ok := n.ItemTy.T.(*ast.IntType)
	if !ok || it.Width != 8 || it.Signed {
		t.Errorf("n item type = %s", n.ItemTy)
	}

	xs := u.Field("xs")
	vt, ok := xs.ItemTy.T.(*ast.VectorType)
	if !ok {
		t.Fatalf("xs item type = %s", xs.ItemTy)
	}
	if et, ok := vt.Elem.T.(*ast.IntType); !ok || et.Width != 16 {
		t.Errorf("xs element type = %s", vt.Elem)
	}
}

func TestConvertAttributeDrivesItemType(t *testing.T) {
	_, m := mustResolve(t, `module Test;
public type M = unit {
    version: bytes &size=2 &convert=$$.to_uint(10);
};`)
	u := unitOf(t, m, "M")
	f := u.Field("version")
	if _, ok := f.ParseTy.T.(*ast.BytesType); !ok {
		t.Errorf("parse type = %s", f.ParseTy)
	}
	if it, ok := f.ItemTy.T.(*ast.IntType); !ok || it.Signed || it.Width != 64 {
		t.Errorf("item type after &convert = %s", f.ItemTy)
	}
}

func TestTransientNormalization(t *testing.T) {
	_, m := mustResolve(t, `module Test;
public type M = unit {
    : b"GET";
    pad: skip bytes &size=2;
    kept: uint8;
};`)
	u := unitOf(t, m, "M")
	fields := u.Fields()
	if !fields[0].Transient {
		t.Error("anonymous fields are transient")
	}
	if !fields[1].Transient {
		t.Error("skip fields are transient")
	}
	if fields[2].Transient {
		t.Error("named fields are not transient")
	}
}

// Normalization is idempotent: re-running the pass rewrites nothing.
func TestNormalizationIdempotent(t *testing.T) {
	ctx := ast.NewContext()
	ctx.RootTypeScope()
	reg := operator.NewRegistry(ctx)

	p := parser.New(ctx, `module Test;
public type M = unit {
    n: uint8;
    %done { print self.n; }
};`, "t.spicy")
	m := p.ParseModule(ast.UID{Path: "t.spicy"})
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	ctx.AddModule(m)

	r := NewResolver(ctx, reg)
	if err := r.Run(); err != nil {
		t.Fatalf("resolution failed: %v", err)
	}

	r2 := NewResolver(ctx, reg)
	r2.buildScopes()
	r2.normalize()
	if r2.modified {
		t.Error("a second normalization pass must rewrite nothing")
	}
}

func TestHookBinding(t *testing.T) {
	_, m := mustResolve(t, `module Test;
public type M = unit {
    n: uint8 { self.count = $$; }
    var count: uint8;
    %done { print self.count; }
};`)
	u := unitOf(t, m, "M")

	f := u.Field("n")
	if len(f.Hooks) != 1 || f.Hooks[0].Unit != u || f.Hooks[0].Field != f {
		t.Error("inline field hook not bound")
	}
	var done *ast.UnitHook
	for _, h := range u.Hooks() {
		if h.Name == "%done" {
			done = h
		}
	}
	if done == nil || done.Unit != u {
		msg := "%done hook not bound to unit"
		t.Error(msg)
	}
}

func TestExternalHookBinding(t *testing.T) {
	ctx, m := mustResolve(t, `module Test;
public type M = unit {
    n: uint8;
};
on M::n {
    print $$;
}
on M {
    print "done";
}`)
	_ = ctx
	u := unitOf(t, m, "M")

	var fieldHook, doneHook bool
	for _, h := range u.Hooks() {
		switch {
		case h.Field == u.Field("n"):
			fieldHook = true
		case h.Name == "%done":
			doneHook = true
		}
	}
	if !fieldHook {
		t.Error("external field hook not attached")
	}
	if !doneHook {
		msg := "'on M' must bind as an implicit %done hook"
		t.Error(msg)
	}
}

func TestErrorHookGetsParameter(t *testing.T) {
	_, m := mustResolve(t, `module Test;
public type M = unit {
    n: uint8;
    %error { print "fail"; }
};`)
	u := unitOf(t, m, "M")
	for _, h := range u.Hooks() {
		if h.Name == "%error" {
			if len(h.Params) != 1 || h.Params[0].ID_ != "__except" {
				t.Errorf("%%error params = %v", h.Params)
			}
			return
		}
	}
	msg := "%error hook missing"
	t.Fatal(msg)
}

func TestLegacyVoidFieldRewritten(t *testing.T) {
	ctx, m := mustResolve(t, `module Test;
public type M = unit {
    pad: void &size=2;
};`)
	u := unitOf(t, m, "M")
	f := u.Field("pad")
	if !f.Skip {
		t.Error("legacy void field must become a skip field")
	}
	if _, ok := f.ParseTy.T.(*ast.BytesType); !ok {
		t.Errorf("rewritten parse type = %s", f.ParseTy)
	}
	found := false
	for _, w := range ctx.Warnings {
		if strings.Contains(w.Message, "deprecated") {
			found = true
		}
	}
	if !found {
		t.Error("legacy void rewrite must record a deprecation warning")
	}
}

func TestOperatorResolutionArithmetic(t *testing.T) {
	_, m := mustResolve(t, `module Test;
const x: uint64 = 2;
const y = x + 3;
`)
	c := m.Declarations[1].(*ast.ConstantDecl)
	ro, ok := c.Value.(*operator.ResolvedOperator)
	if !ok {
		t.Fatalf("y's value = %T, want resolved operator", c.Value)
	}
	if ro.Op.Kind() != ast.OpSum {
		t.Errorf("resolved kind = %s", ro.Op.Kind())
	}
	if it, ok := ro.Type().T.(*ast.IntType); !ok || it.Signed || it.Width != 64 {
		t.Errorf("result type = %s", ro.Type())
	}
}

func TestSizeOperatorResolution(t *testing.T) {
	_, m := mustResolve(t, `module Test;
const data: bytes = b"hello world";
const size = |data|;
`)
	c := m.Declarations[1].(*ast.ConstantDecl)
	ro, ok := c.Value.(*operator.ResolvedOperator)
	if !ok {
		t.Fatalf("size's value = %T", c.Value)
	}
	if ro.Op.Kind() != ast.OpSize {
		t.Errorf("resolved kind = %s", ro.Op.Kind())
	}
}

func TestFunctionCallResolution(t *testing.T) {
	_, m := mustResolve(t, `module Test;
function double(n: uint64) : uint64 {
    return n + n;
}
const x = double(21);
`)
	c := m.Declarations[1].(*ast.ConstantDecl)
	ro, ok := c.Value.(*operator.ResolvedOperator)
	if !ok {
		t.Fatalf("x's value = %T", c.Value)
	}
	if ro.Op.Kind() != ast.OpCall {
		t.Errorf("resolved kind = %s", ro.Op.Kind())
	}
	if it, ok := ro.Type().T.(*ast.IntType); !ok || it.Width != 64 {
		t.Errorf("call result type = %s", ro.Type())
	}
}

// Every resolved name holds an index that resolves to a declaration.
func TestResolvedNamesHaveValidIndices(t *testing.T) {
	ctx, m := mustResolve(t, `module Test;
const base: uint64 = 10;
function f(n: uint64) : uint64 {
    return n + base;
}
public type M = unit {
    n: uint8;
};`)
	ast.Walk(m, func(n ast.Node) bool {
		switch e := n.(type) {
		case *ast.Name:
			if e.ID == "<error>" {
				return true
			}
			if e.Decl == 0 {
				t.Errorf("unresolved name %q survived resolution", e.ID)
			} else if ctx.LookupDeclaration(e.Decl) == nil {
				t.Errorf("name %q has dangling index %d", e.ID, e.Decl)
			}
		case *ast.NameType:
			if e.Target == 0 {
				t.Errorf("unresolved type name %q survived resolution", e.ID)
			} else if ctx.LookupType(e.Target) == nil {
				t.Errorf("type name %q has dangling index %d", e.ID, e.Target)
			}
		}
		return true
	})
}

func TestUnknownNameReported(t *testing.T) {
	_, _, err := resolveSource(t, `module Test;
const x = nosuchthing;
`)
	if err == nil {
		t.Fatal("unknown name must fail resolution")
	}
}

func TestTypeCtorCallBecomesCtor(t *testing.T) {
	_, m := mustResolve(t, `module Test;
const x = uint8(200);
`)
	c := m.Declarations[0].(*ast.ConstantDecl)
	uc, ok := c.Value.(*ast.UIntCtor)
	if !ok {
		t.Fatalf("uint8(200) resolved to %T", c.Value)
	}
	if it := uc.Type().T.(*ast.IntType); it.Width != 8 {
		t.Errorf("ctor type = %s", uc.Type())
	}
}

// Validator checks.

func TestValidatorBytesFieldNeedsTerminator(t *testing.T) {
	_, _, err := resolveSource(t, `module Test;
public type M = unit {
    body: bytes;
};`)
	if err == nil {
		t.Fatal("bytes field without &size/&eod/&until must be rejected")
	}
}

func TestValidatorAddressNeedsFamily(t *testing.T) {
	_, _, err := resolveSource(t, `module Test;
public type M = unit {
    a: addr;
};`)
	if err == nil {
		t.Fatal("address field without &ipv4/&ipv6 must be rejected")
	}
}

func TestValidatorRealNeedsType(t *testing.T) {
	_, _, err := resolveSource(t, `module Test;
public type M = unit {
    r: real;
};`)
	if err == nil {
		t.Fatal("real field without &type must be rejected")
	}
}

func TestValidatorBreakOutsideLoop(t *testing.T) {
	_, _, err := resolveSource(t, `module Test;
function f() {
    break;
}`)
	if err == nil {
		t.Fatal("break outside loop must be rejected")
	}
}

func TestValidatorRandomAccessRestricted(t *testing.T) {
	_, _, err := resolveSource(t, `module Test;
public type M = unit {
    n: uint8;
    %done { print self.offset(); }
};`)
	if err == nil {
		t.Fatal("offset() without %random-access must be rejected")
	}

	_, _, err = resolveSource(t, `module Test;
public type M = unit {
    %random-access;
    n: uint8;
    %done { print self.offset(); }
};`)
	if err != nil {
		t.Fatalf("offset() with %%random-access must be accepted: %v", err)
	}
}

func TestValidatorDuplicateSwitchCases(t *testing.T) {
	_, _, err := resolveSource(t, `module Test;
public type M = unit {
    tag: uint8;
    switch ( self.tag ) {
        1 -> a: uint8;
        1 -> b: uint8;
    };
};`)
	if err == nil {
		t.Fatal("duplicate switch cases must be rejected")
	}
}

func TestValidatorRedeclaration(t *testing.T) {
	_, _, err := resolveSource(t, `module Test;
const x: uint64 = 1;
const x: uint64 = 2;
`)
	if err == nil {
		t.Fatal("redeclaration must be rejected")
	}
}
