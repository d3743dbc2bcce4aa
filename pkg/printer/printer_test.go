package printer

import (
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/parser"
)

func parse(t *testing.T, src string) *ast.Module {
	t.Helper()
	ctx := ast.NewContext()
	p := parser.New(ctx, src, "test.spicy")
	m := p.ParseModule(ast.UID{Path: "test.spicy"})
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return m
}

func diff(a, b string) string {
	out, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "first",
		ToFile:   "second",
		Context:  2,
	})
	return out
}

// Printed output of valid input parses again, and printing that parse
// reproduces the same text.
func TestRoundTripStable(t *testing.T) {
	src := `module HTTP;

public type Request = unit {
    %mime-type = "text/plain";
    method: b"GET";
    uri: bytes &until=b" ";
    n: uint8;
    xs: uint16[n];
};
`
	first := Print(parse(t, src))
	second := Print(parse(t, first))
	if first != second {
		t.Errorf("round-trip not stable:\n%s", diff(first, second))
	}
}

func TestPrintPreservesStructure(t *testing.T) {
	src := `module Test;

const limit: uint64 = 64;

public type M = unit {
    a: uint8;
    var total: uint64;
    sink out;
};
`
	out := Print(parse(t, src))
	for _, want := range []string{
		"module Test;",
		"const limit: uint64 = 64;",
		"public type M = unit {",
		"a: uint8;",
		"var total: uint64;",
		"sink out;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printed output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintFunction(t *testing.T) {
	src := `module Test;

function add(a: uint64, b: uint64) : uint64 {
    return a + b;
}
`
	out := Print(parse(t, src))
	if !strings.Contains(out, "function add(a: uint64, b: uint64) : uint64 {") {
		t.Errorf("function signature mangled:\n%s", out)
	}
	if !strings.Contains(out, "return (a + b);") && !strings.Contains(out, "return a + b;") {
		t.Errorf("function body mangled:\n%s", out)
	}
}
