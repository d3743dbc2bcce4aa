package ast

import "testing"

func TestRegisterDeclarationIdempotent(t *testing.T) {
	ctx := NewContext()
	d := &ConstantDecl{}
	d.ID_ = "x"

	idx1 := ctx.RegisterDeclaration(d)
	idx2 := ctx.RegisterDeclaration(d)
	if idx1 != idx2 {
		t.Fatalf("re-registering returned %d, want %d", idx2, idx1)
	}
	if idx1 == 0 {
		t.Fatal("index 0 is reserved for none")
	}
	if ctx.LookupDeclaration(idx1) != Declaration(d) {
		t.Fatal("lookup does not return the registered declaration")
	}
}

func TestRegisterTypeIdempotent(t *testing.T) {
	ctx := NewContext()
	ty := &BytesType{}
	idx1 := ctx.RegisterType(ty)
	idx2 := ctx.RegisterType(ty)
	if idx1 != idx2 {
		t.Fatalf("re-registering returned %d, want %d", idx2, idx1)
	}
	if ctx.LookupType(idx1) != Type(ty) {
		t.Fatal("lookup does not return the registered type")
	}
}

func TestReplaceDeclaration(t *testing.T) {
	ctx := NewContext()
	old := &ConstantDecl{}
	old.ID_ = "x"
	idx := ctx.RegisterDeclaration(old)

	new_ := &ConstantDecl{}
	new_.ID_ = "x"
	ctx.ReplaceDeclaration(old, new_)

	// Lookups through the index now return the new node; the new node
	// inherits the index; the old node's stored index is unchanged.
	if ctx.LookupDeclaration(idx) != Declaration(new_) {
		t.Error("lookup(old.index) must return the new declaration")
	}
	if new_.Index() != idx {
		t.Errorf("new index = %d, want %d", new_.Index(), idx)
	}
	if old.Index() != idx {
		t.Errorf("old index changed to %d", old.Index())
	}
}

func TestReplaceTypeDeclRestampsType(t *testing.T) {
	ctx := NewContext()
	oldTy := &BytesType{}
	old := &TypeDecl{Type: oldTy}
	old.ID_ = "T"
	idx := ctx.RegisterDeclaration(old)
	oldTy.SetDeclarationIndex(idx)

	newTy := &StringType{}
	new_ := &TypeDecl{Type: newTy}
	new_.ID_ = "T"
	ctx.ReplaceDeclaration(old, new_)

	if newTy.DeclarationIndex() != idx {
		t.Errorf("replacing a type declaration must restamp the declaration index on the new type; got %d",
			newTy.DeclarationIndex())
	}
}

func TestLookupZeroIsNil(t *testing.T) {
	ctx := NewContext()
	if ctx.LookupDeclaration(0) != nil {
		t.Error("index 0 must resolve to nil")
	}
	if ctx.LookupType(0) != nil {
		t.Error("type index 0 must resolve to nil")
	}
}

func TestUniqueCanonicalID(t *testing.T) {
	ctx := NewContext()
	a := ctx.UniqueCanonicalID("HTTP::Request")
	b := ctx.UniqueCanonicalID("HTTP::Request")
	c := ctx.UniqueCanonicalID("HTTP::Request")
	if a != "HTTP::Request" {
		t.Errorf("first use = %q", a)
	}
	if b == a || c == a || b == c {
		t.Errorf("canonical IDs must be unique: %q %q %q", a, b, c)
	}
}

func TestModuleIndexing(t *testing.T) {
	ctx := NewContext()
	m := &Module{ID: "HTTP", UID_: UID{Path: "/src/http.spicy"}}
	m.Scope = NewScope()
	ctx.AddModule(m)

	if ctx.ModuleByUID(m.UID_) != m {
		t.Error("lookup by UID failed")
	}
	if ctx.ModuleByPath("/src/http.spicy") != m {
		t.Error("lookup by path failed")
	}
	if ctx.ModuleByName("HTTP", "") != m {
		t.Error("lookup by (id, scope) failed")
	}

	// Re-adding the same UID returns the existing module.
	dup := &Module{ID: "HTTP", UID_: UID{Path: "/src/http.spicy"}}
	if got := ctx.AddModule(dup); got != m {
		t.Error("adding a module twice must be idempotent by UID")
	}
}

func TestDependencies(t *testing.T) {
	ctx := NewContext()
	a := &Module{ID: "A", UID_: UID{Path: "a"}}
	b := &Module{ID: "B", UID_: UID{Path: "b"}}
	c := &Module{ID: "C", UID_: UID{Path: "c"}}
	a.Dependencies = []UID{b.UID_}
	b.Dependencies = []UID{c.UID_}
	for _, m := range []*Module{a, b, c} {
		m.Scope = NewScope()
		ctx.AddModule(m)
	}

	direct := ctx.Dependencies(a.UID_, false)
	if len(direct) != 1 || direct[0] != b.UID_ {
		t.Errorf("direct deps = %v", direct)
	}
	all := ctx.Dependencies(a.UID_, true)
	if len(all) != 2 {
		t.Errorf("recursive deps = %v", all)
	}
}

func TestRootScopeTypes(t *testing.T) {
	ctx := NewContext()
	ctx.RootTypeScope()
	for _, name := range []ID{"bool", "uint8", "int64", "bytes", "stream", "sink", "addr"} {
		entries := ctx.Root().Scope.Lookup(name)
		if len(entries) == 0 {
			t.Errorf("builtin type %q not in root scope", name)
			continue
		}
		d := ctx.LookupDeclaration(entries[0].Index)
		if _, ok := d.(*TypeDecl); !ok {
			t.Errorf("builtin %q resolves to %T", name, d)
		}
	}
}

func TestMarkReplacedKeepsParentEdge(t *testing.T) {
	ctx := NewContext()
	parent := &Block{}
	old := &Name{ID: "x"}
	ctx.Adopt(parent, old)

	new_ := &Name{ID: "y"}
	ctx.MarkReplaced(old, new_)

	if ctx.Parent(new_) != Node(parent) {
		t.Error("replacement must inherit the parent edge")
	}
	if new_.Base().Original != Node(old) {
		t.Error("replacement must keep a back-reference to the old node")
	}
}
