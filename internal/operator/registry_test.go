package operator

import (
	"testing"

	"github.com/zeek/go-spicy/internal/ast"
)

func newRegistry(t *testing.T) (*ast.Context, *Registry) {
	t.Helper()
	ctx := ast.NewContext()
	ctx.RootTypeScope()
	return ctx, NewRegistry(ctx)
}

// Every built-in operator must resolve its signature types at
// initialization; NewRegistry panics otherwise, so constructing it is the
// test.
func TestRegistryInitializes(t *testing.T) {
	_, reg := newRegistry(t)
	if len(reg.All()) == 0 {
		t.Fatal("registry is empty")
	}
}

func TestCandidatesByKind(t *testing.T) {
	_, reg := newRegistry(t)

	sums := reg.Candidates(ast.OpSum, "")
	if len(sums) < 4 {
		t.Errorf("sum candidates = %d, want at least signed/unsigned/real/bytes", len(sums))
	}
	for _, op := range sums {
		if op.Kind() != ast.OpSum {
			t.Errorf("candidate %s has kind %s", op.Name, op.Kind())
		}
	}
}

func TestMemberCallPrefilter(t *testing.T) {
	_, reg := newRegistry(t)

	all := reg.Candidates(ast.OpMemberCall, "")
	filtered := reg.Candidates(ast.OpMemberCall, "to_uint")
	if len(filtered) == 0 {
		t.Fatal("no candidates for method to_uint")
	}
	if len(filtered) >= len(all) {
		t.Error("member pre-filter must narrow the candidate set")
	}
	for _, op := range filtered {
		if op.Sig.Member != "to_uint" {
			t.Errorf("candidate %s leaked through the member filter", op.Name)
		}
	}
}

func TestCommutativityDerivedFromKind(t *testing.T) {
	_, reg := newRegistry(t)
	for _, op := range reg.All() {
		want := op.Kind().IsCommutative()
		if op.Commutative() != want {
			t.Errorf("%s: commutative = %v, want %v", op.Name, op.Commutative(), want)
		}
	}
}

func TestResultRules(t *testing.T) {
	ctx, reg := newRegistry(t)

	// Static result: bytes size yields uint64.
	var size *Operator
	for _, op := range reg.Candidates(ast.OpSize, "") {
		if op.Name == "bytes::size" {
			size = op
		}
	}
	if size == nil {
		t.Fatal("bytes::size not registered")
	}
	b := &ast.Name{ID: "b"}
	b.SetType(ast.QtConst(ctx.BytesT()))
	res := size.Result(ctx, []ast.Expression{b})
	if it, ok := res.T.(*ast.IntType); !ok || it.Signed || it.Width != 64 {
		t.Errorf("bytes::size result = %s", res)
	}

	// Derived result: vector index yields the element type.
	var index *Operator
	for _, op := range reg.Candidates(ast.OpIndex, "") {
		if op.Name == "vector::index" {
			index = op
		}
	}
	if index == nil {
		t.Fatal("vector::index not registered")
	}
	vec := ctx.Vector(ast.QtMutable(ctx.UInt(16)))
	v := &ast.Name{ID: "v"}
	v.SetType(ast.QtConst(vec))
	i := &ast.UIntCtor{Value: 0}
	i.SetType(ast.QtConst(ctx.UInt(64)))
	res = index.Result(ctx, []ast.Expression{v, i})
	if it, ok := res.T.(*ast.IntType); !ok || it.Width != 16 {
		t.Errorf("vector::index result = %s", res)
	}
}

func TestInstantiateStampsType(t *testing.T) {
	ctx, reg := newRegistry(t)
	var sum *Operator
	for _, op := range reg.Candidates(ast.OpSum, "") {
		if op.Name == "unsigned_integer::sum" {
			sum = op
		}
	}
	if sum == nil {
		t.Fatal("unsigned_integer::sum not registered")
	}

	a := &ast.UIntCtor{Value: 1}
	a.SetType(ast.QtConst(ctx.UInt(32)))
	b := &ast.UIntCtor{Value: 2}
	b.SetType(ast.QtConst(ctx.UInt(32)))

	ro := sum.Instantiate(ctx, []ast.Expression{a, b})
	if ro.Op != sum || len(ro.Operands) != 2 {
		t.Fatal("instantiation lost operator identity or operands")
	}
	if it, ok := ro.Type().T.(*ast.IntType); !ok || it.Width != 32 {
		t.Errorf("instantiated type = %s", ro.Type())
	}
}
