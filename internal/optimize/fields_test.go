package optimize

import (
	"testing"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/operator"
	"github.com/zeek/go-spicy/internal/parser"
	"github.com/zeek/go-spicy/internal/semantic"
)

func resolve(t *testing.T, src string) *ast.Context {
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

	r := semantic.NewResolver(ctx, reg)
	if err := r.Run(); err != nil {
		t.Fatalf("resolution failed: %v", err)
	}
	return ctx
}

func unitField(t *testing.T, ctx *ast.Context, unit, field ast.ID) *ast.UnitField {
	t.Helper()
	var found *ast.UnitField
	ast.Walk(ctx.Root(), func(n ast.Node) bool {
		if u, ok := n.(*ast.UnitType); ok {
			if f := u.Field(field); f != nil {
				found = f
			}
		}
		return true
	})
	if found == nil {
		t.Fatalf("no field %s", field)
	}
	return found
}

func TestUnusedPrivateFieldEliminated(t *testing.T) {
	ctx := resolve(t, `module Test;
type M = unit {
    unused: uint8;
};`)

	pass := NewFieldPass(ctx)
	pass.Run()

	f := unitField(t, ctx, "M", "unused")
	if !f.Decl.Attributes.Has(ast.AttrNoEmit) {
		t.Error("unread, unwritten private field must be marked &no-emit")
	}
}

func TestReadFieldKept(t *testing.T) {
	ctx := resolve(t, `module Test;
type M = unit {
    used: uint8;
    %done { print self.used; }
};`)

	pass := NewFieldPass(ctx)
	pass.Run()

	f := unitField(t, ctx, "M", "used")
	if f.Decl.Attributes.Has(ast.AttrNoEmit) {
		t.Error("read fields must keep their storage")
	}
}

func TestPublicUnitFieldsUntouched(t *testing.T) {
	ctx := resolve(t, `module Test;
public type M = unit {
    api: uint8;
};`)

	pass := NewFieldPass(ctx)
	pass.Run()

	f := unitField(t, ctx, "M", "api")
	if f.Decl.Attributes.Has(ast.AttrNoEmit) {
		t.Error("fields of externally visible units are part of the ABI")
	}
}

func TestAlwaysEmitRespected(t *testing.T) {
	ctx := resolve(t, `module Test;
type M = unit {
    keep: uint8 &always-emit;
};`)

	pass := NewFieldPass(ctx)
	pass.Run()

	f := unitField(t, ctx, "M", "keep")
	if f.Decl.Attributes.Has(ast.AttrNoEmit) {
		t.Error("&always-emit fields must never be eliminated")
	}
}

func TestStrictModeSkipsPass(t *testing.T) {
	ctx := resolve(t, `module Test;
type M = unit {
    unused: uint8;
};`)

	pass := NewFieldPass(ctx)
	pass.Strict = true
	pass.Run()

	f := unitField(t, ctx, "M", "unused")
	if f.Decl.Attributes.Has(ast.AttrNoEmit) {
		t.Error("strict public-API mode must disable the pass")
	}
}
