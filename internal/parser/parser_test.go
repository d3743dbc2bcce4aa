package parser

import (
	"testing"

	"github.com/zeek/go-spicy/internal/ast"
)

func parseModule(t *testing.T, src string) (*ast.Context, *ast.Module) {
	t.Helper()
	ctx := ast.NewContext()
	p := New(ctx, src, "test.spicy")
	m := p.ParseModule(ast.UID{Path: "test.spicy"})
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return ctx, m
}

func unitOf(t *testing.T, m *ast.Module, name ast.ID) *ast.UnitType {
	t.Helper()
	for _, d := range m.Declarations {
		td, ok := d.(*ast.TypeDecl)
		if !ok || td.ID_ != name {
			continue
		}
		u, ok := td.Type.(*ast.UnitType)
		if !ok {
			t.Fatalf("%s is %T, want unit", name, td.Type)
		}
		return u
	}
	t.Fatalf("no unit %q", name)
	return nil
}

func TestModuleHeader(t *testing.T) {
	_, m := parseModule(t, "module HTTP;")
	if m.ID != "HTTP" {
		t.Errorf("module ID = %q", m.ID)
	}
}

func TestImports(t *testing.T) {
	_, m := parseModule(t, "module A;\nimport B;\nimport C;")
	var ids []ast.ID
	for _, d := range m.Declarations {
		if imp, ok := d.(*ast.ImportedModule); ok {
			ids = append(ids, imp.ImportID)
		}
	}
	if len(ids) != 2 || ids[0] != "B" || ids[1] != "C" {
		t.Errorf("imports = %v", ids)
	}
}

func TestUnitFields(t *testing.T) {
	_, m := parseModule(t, `module Test;

public type M = unit {
    magic: b"HELLO";
    n: uint8;
    body: bytes &size=4;
    rest: bytes &until=b"\x0d\x0a";
    xs: uint16[] &eod;
    ys: uint16[5];
};`)

	u := unitOf(t, m, "M")
	fields := u.Fields()
	if len(fields) != 6 {
		t.Fatalf("field count = %d", len(fields))
	}

	if _, ok := fields[0].Ctor.(*ast.BytesCtor); !ok {
		t.Errorf("magic ctor = %T", fields[0].Ctor)
	}
	if fields[2].Attrs.Find(ast.AttrSize) == nil {
		t.Error("body must carry &size")
	}
	if a := fields[3].Attrs.Find(ast.AttrUntil); a == nil {
		t.Error("rest must carry &until")
	} else if bc, ok := a.Value.(*ast.BytesCtor); !ok || string(bc.Value) != "\r\n" {
		t.Errorf("&until value = %v", a.Value)
	}
	if !fields[4].Container || fields[4].RepeatCount != nil {
		t.Error("xs must be an unbounded container")
	}
	if !fields[5].Container || fields[5].RepeatCount == nil {
		t.Error("ys must be a bounded container")
	}
}

func TestAnonymousAndSkipFields(t *testing.T) {
	_, m := parseModule(t, `module Test;
type M = unit {
    : b"GET";
    pad: skip bytes &size=2;
};`)
	u := unitOf(t, m, "M")
	fields := u.Fields()
	if !fields[0].IsAnonymous() {
		t.Error("first field must be anonymous")
	}
	if !fields[1].Skip {
		t.Error("pad must be a skip field")
	}
}

func TestUnitPropertiesAndHooks(t *testing.T) {
	_, m := parseModule(t, `module Test;
type M = unit {
    %mime-type = "text/plain";
    %random-access;
    n: uint8 { self.total = $$; }
    var total: uint64;
    sink data;
    %done { print self.total; }
};`)
	u := unitOf(t, m, "M")

	if p := u.Property("%mime-type"); p == nil || p.Value == nil {
		t.Error("missing %mime-type property")
	}
	if u.Property("%random-access") == nil {
		t.Error("missing %random-access property")
	}
	if len(u.Fields()) != 1 || len(u.Fields()[0].Hooks) != 1 {
		t.Error("field hook missing")
	}
	if len(u.Variables()) != 1 || u.Variables()[0].ID != "total" {
		t.Error("variable missing")
	}
	var sinks int
	for _, it := range u.Items {
		if _, ok := it.(*ast.UnitSink); ok {
			sinks++
		}
	}
	if sinks != 1 {
		t.Error("sink item missing")
	}
	var done bool
	for _, h := range u.Hooks() {
		if h.Name == "%done" {
			done = true
		}
	}
	if !done {
		msg := "%done hook missing"
		t.Error(msg)
	}
}

func TestUnitSwitch(t *testing.T) {
	_, m := parseModule(t, `module Test;
type M = unit {
    tag: uint8;
    switch ( self.tag ) {
        1 -> a: uint8;
        2 -> b: uint16;
        * -> c: bytes &size=1;
    };
};`)
	u := unitOf(t, m, "M")
	var sw *ast.UnitSwitch
	for _, it := range u.Items {
		if s, ok := it.(*ast.UnitSwitch); ok {
			sw = s
		}
	}
	if sw == nil {
		t.Fatal("switch item missing")
	}
	if sw.Cond == nil {
		t.Error("switch must have a scrutinee")
	}
	if len(sw.Cases) != 3 {
		t.Fatalf("case count = %d", len(sw.Cases))
	}
	if !sw.Cases[2].IsDefault() {
		t.Error("third case must be the default")
	}
}

func TestExternalHook(t *testing.T) {
	_, m := parseModule(t, `module Test;
on HTTP::Request::uri {
    print $$;
}`)
	if len(m.Hooks) != 1 {
		t.Fatalf("hook count = %d", len(m.Hooks))
	}
	if m.Hooks[0].Name != "HTTP::Request::uri" {
		t.Errorf("hook target = %q", m.Hooks[0].Name)
	}
}

func TestSinkForwarding(t *testing.T) {
	_, m := parseModule(t, `module Test;
type M = unit {
    sink out;
    data: bytes &size=4 -> self.out;
};`)
	u := unitOf(t, m, "M")
	f := u.Field("data")
	if f == nil || len(f.Sinks) != 1 {
		t.Fatal("sink forwarding missing")
	}
}

func TestFieldGuard(t *testing.T) {
	_, m := parseModule(t, `module Test;
type M = unit {
    flag: uint8;
    opt: uint16 if ( self.flag == 1 );
};`)
	u := unitOf(t, m, "M")
	if u.Field("opt").Condition == nil {
		t.Error("guard condition missing")
	}
}

func TestExpressionPrecedence(t *testing.T) {
	ctx := ast.NewContext()
	p := New(ctx, "module T;\nconst x = 1 + 2 * 3;", "t.spicy")
	m := p.ParseModule(ast.UID{Path: "t.spicy"})
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	c := m.Declarations[0].(*ast.ConstantDecl)
	sum, ok := c.Value.(*ast.UnresolvedOperator)
	if !ok || sum.Kind != ast.OpSum {
		t.Fatalf("top operator = %v", c.Value)
	}
	mul, ok := sum.Operands[1].(*ast.UnresolvedOperator)
	if !ok || mul.Kind != ast.OpMultiple {
		t.Fatalf("rhs = %v", sum.Operands[1])
	}
}

func TestFunctionDecl(t *testing.T) {
	_, m := parseModule(t, `module Test;
function add(a: uint64, b: uint64) : uint64 {
    return a + b;
}`)
	fd, ok := m.Declarations[0].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("decl = %T", m.Declarations[0])
	}
	if len(fd.FuncType.Params) != 2 {
		t.Errorf("param count = %d", len(fd.FuncType.Params))
	}
	if fd.Body == nil || len(fd.Body.Statements) != 1 {
		t.Error("body missing")
	}
}

func TestEnumAndBitfieldTypes(t *testing.T) {
	_, m := parseModule(t, `module Test;
type Color = enum { Red = 1, Green, Blue = 7 };
type Flags = bitfield(8) {
    fin: 0;
    win: 1..3;
};`)
	et := m.Declarations[0].(*ast.TypeDecl).Type.(*ast.EnumType)
	if len(et.Labels) != 3 || et.Labels[1].Value != 2 || et.Labels[2].Value != 7 {
		t.Errorf("enum labels = %v", et.Labels)
	}
	bt := m.Declarations[1].(*ast.TypeDecl).Type.(*ast.BitfieldType)
	if bt.Width != 8 || len(bt.Bits) != 2 {
		t.Fatalf("bitfield = %v", bt)
	}
	if bt.Bits[1].Lower != 1 || bt.Bits[1].Upper != 3 {
		t.Errorf("win range = %d..%d", bt.Bits[1].Lower, bt.Bits[1].Upper)
	}
}

func TestStatements(t *testing.T) {
	_, m := parseModule(t, `module Test;
function f(n: uint64) : uint64 {
    local acc: uint64 = 0;
    while ( n > 0 ) {
        acc = acc + n;
        n = n - 1;
    }
    if ( acc > 100 ) {
        return 100;
    } else {
        return acc;
    }
}`)
	fd := m.Declarations[0].(*ast.FunctionDecl)
	if len(fd.Body.Statements) != 3 {
		t.Fatalf("statement count = %d", len(fd.Body.Statements))
	}
	if _, ok := fd.Body.Statements[1].(*ast.While); !ok {
		t.Errorf("second statement = %T", fd.Body.Statements[1])
	}
	if _, ok := fd.Body.Statements[2].(*ast.If); !ok {
		t.Errorf("third statement = %T", fd.Body.Statements[2])
	}
}
