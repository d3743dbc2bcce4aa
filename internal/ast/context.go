package ast

import (
	"fmt"

	"github.com/zeek/go-spicy/internal/diag"
)

// Context owns every node of an AST. Nodes are created through the context
// and stay valid for the context's lifetime; replacement re-points the parent
// edge while the replaced node remains readable. A node belongs to exactly
// one context and must not be moved between contexts.
type Context struct {
	root *ASTRoot

	// Append-only tables; index 0 is reserved for "none".
	decls []Declaration
	types []Type

	parents map[Node]Node

	modulesByUID  map[UID]*Module
	modulesByPath map[string]*Module
	modulesByName map[string]*Module // key: "id/scope"

	builtins map[string]Type

	canonicalSerial map[ID]int

	// Warnings accumulates non-fatal diagnostics (deprecations).
	Warnings []diag.Error
}

// NewContext creates a context with its root node.
func NewContext() *Context {
	ctx := &Context{
		decls:           make([]Declaration, 1), // slot 0 = none
		types:           make([]Type, 1),
		parents:         make(map[Node]Node),
		modulesByUID:    make(map[UID]*Module),
		modulesByPath:   make(map[string]*Module),
		modulesByName:   make(map[string]*Module),
		builtins:        make(map[string]Type),
		canonicalSerial: make(map[ID]int),
	}
	ctx.root = &ASTRoot{}
	ctx.root.Scope = NewScope()
	return ctx
}

// Root returns the context's single ASTRoot node.
func (ctx *Context) Root() *ASTRoot { return ctx.root }

// ---------------------------------------------------------------------------
// Parent tracking and replacement

// Adopt records parent as the parent of each child. Builders call this as
// they assemble the tree; lookup walks these edges outward.
func (ctx *Context) Adopt(parent Node, children ...Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		ctx.parents[c] = parent
	}
}

// Parent returns the recorded parent of n, or nil for the root.
func (ctx *Context) Parent(n Node) Node { return ctx.parents[n] }

// MarkReplaced records that new replaces old in the tree: new inherits old's
// parent edge and keeps a back-reference to old. The old node stays valid.
func (ctx *Context) MarkReplaced(old, new Node) {
	if p, ok := ctx.parents[old]; ok {
		ctx.parents[new] = p
	}
	if new.Base().Original == nil {
		new.Base().Original = old
	}
	// Children of old that moved under new keep resolving scopes correctly
	// because scope lookup goes through the parent map, re-pointed here.
	for child, parent := range ctx.parents {
		if parent == old {
			ctx.parents[child] = new
		}
	}
}

// ---------------------------------------------------------------------------
// Modules

// AddModule registers a parsed module under its UID, path and (id, scope).
// Registration is idempotent by UID.
func (ctx *Context) AddModule(m *Module) *Module {
	if existing, ok := ctx.modulesByUID[m.UID_]; ok {
		return existing
	}
	key := fmt.Sprintf("%s/%s", m.ID, m.UID_.Scope)
	if _, ok := ctx.modulesByName[key]; ok {
		diag.InternalError("duplicate module %s in scope %q", m.ID, m.UID_.Scope)
	}
	ctx.modulesByUID[m.UID_] = m
	ctx.modulesByPath[m.UID_.Path] = m
	ctx.modulesByName[key] = m
	ctx.root.Modules = append(ctx.root.Modules, m)
	ctx.Adopt(ctx.root, m)
	return m
}

// ModuleByUID looks up a module by UID.
func (ctx *Context) ModuleByUID(uid UID) *Module { return ctx.modulesByUID[uid] }

// ModuleByPath looks up a module by source path.
func (ctx *Context) ModuleByPath(path string) *Module { return ctx.modulesByPath[path] }

// ModuleByName looks up a module by (id, scope).
func (ctx *Context) ModuleByName(id ID, scope string) *Module {
	return ctx.modulesByName[fmt.Sprintf("%s/%s", id, scope)]
}

// Modules returns all registered modules in registration order.
func (ctx *Context) Modules() []*Module { return ctx.root.Modules }

// Dependencies returns the UIDs the given module depends on, optionally
// following the dependency graph transitively. The result contains no
// duplicates and not the module itself.
func (ctx *Context) Dependencies(uid UID, recursive bool) []UID {
	seen := map[UID]bool{uid: true}
	var out []UID
	var walk func(UID)
	walk = func(u UID) {
		m := ctx.modulesByUID[u]
		if m == nil {
			return
		}
		for _, dep := range m.Dependencies {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			if recursive {
				walk(dep)
			}
		}
	}
	walk(uid)
	return out
}

// ---------------------------------------------------------------------------
// Declaration and type tables

// RegisterDeclaration assigns d a DeclarationIndex. Re-registering a node
// returns its existing index.
func (ctx *Context) RegisterDeclaration(d Declaration) DeclarationIndex {
	if idx := d.Index(); idx != 0 {
		return idx
	}
	idx := DeclarationIndex(len(ctx.decls))
	ctx.decls = append(ctx.decls, d)
	d.setIndex(idx)
	return idx
}

// LookupDeclaration returns the declaration registered under idx. For a
// registered index the result is never nil.
func (ctx *Context) LookupDeclaration(idx DeclarationIndex) Declaration {
	if idx <= 0 || int(idx) >= len(ctx.decls) {
		return nil
	}
	return ctx.decls[idx]
}

// ReplaceDeclaration substitutes new for old in the table: lookups through
// old's index now return new, and new inherits the index. The old node's own
// stored index stays readable.
func (ctx *Context) ReplaceDeclaration(old, new Declaration) {
	idx := old.Index()
	if idx == 0 {
		diag.InternalError("replacing unregistered declaration %s", old.DeclID())
	}
	ctx.decls[idx] = new
	new.setIndex(idx)
	ctx.MarkReplaced(old, new)
	// Replacing a type declaration restamps the declaration index on the
	// new declaration's type.
	if td, ok := new.(*TypeDecl); ok && td.Type != nil {
		td.Type.SetDeclarationIndex(idx)
	}
}

// RegisterType assigns t a TypeIndex. Re-registering returns the existing
// index.
func (ctx *Context) RegisterType(t Type) TypeIndex {
	if idx := t.TypeIndex(); idx != 0 {
		return idx
	}
	idx := TypeIndex(len(ctx.types))
	ctx.types = append(ctx.types, t)
	t.setTypeIndex(idx)
	return idx
}

// LookupType returns the type registered under idx. For a registered index
// the result is never nil.
func (ctx *Context) LookupType(idx TypeIndex) Type {
	if idx <= 0 || int(idx) >= len(ctx.types) {
		return nil
	}
	return ctx.types[idx]
}

// ReplaceType substitutes new for old in the type table; new inherits old's
// index and declaration back-reference.
func (ctx *Context) ReplaceType(old, new Type) {
	idx := old.TypeIndex()
	if idx == 0 {
		diag.InternalError("replacing unregistered type %s", old)
	}
	ctx.types[idx] = new
	new.setTypeIndex(idx)
	if d := old.DeclarationIndex(); d != 0 && new.DeclarationIndex() == 0 {
		new.SetDeclarationIndex(d)
	}
	ctx.MarkReplaced(old, new)
}

// ---------------------------------------------------------------------------
// Canonical IDs

// UniqueCanonicalID returns id, made unique within the context by appending
// a serial suffix when id was handed out before.
func (ctx *Context) UniqueCanonicalID(id ID) ID {
	n := ctx.canonicalSerial[id]
	ctx.canonicalSerial[id] = n + 1
	if n == 0 {
		return id
	}
	return ID(fmt.Sprintf("%s_%d", id, n+1))
}

// ---------------------------------------------------------------------------
// Builtin type cache

// Builtin returns the context's singleton instance of a builtin type,
// creating and registering it on first use.
func (ctx *Context) Builtin(key string, make func() Type) Type {
	if t, ok := ctx.builtins[key]; ok {
		return t
	}
	t := make()
	ctx.RegisterType(t)
	ctx.builtins[key] = t
	return t
}

// Bool returns the context's bool type.
func (ctx *Context) Bool() Type {
	return ctx.Builtin("bool", func() Type { return &BoolType{} })
}

// UInt returns the unsigned integer type of the given width.
func (ctx *Context) UInt(width int) Type {
	return ctx.Builtin(fmt.Sprintf("uint%d", width), func() Type {
		return &IntType{Width: width, Signed: false}
	})
}

// SInt returns the signed integer type of the given width.
func (ctx *Context) SInt(width int) Type {
	return ctx.Builtin(fmt.Sprintf("int%d", width), func() Type {
		return &IntType{Width: width, Signed: true}
	})
}

// Real returns the real (IEEE double) type.
func (ctx *Context) Real() Type {
	return ctx.Builtin("real", func() Type { return &RealType{} })
}

// StringT returns the string type.
func (ctx *Context) StringT() Type {
	return ctx.Builtin("string", func() Type { return &StringType{} })
}

// BytesT returns the bytes type.
func (ctx *Context) BytesT() Type {
	return ctx.Builtin("bytes", func() Type { return &BytesType{} })
}

// Stream returns the stream type.
func (ctx *Context) Stream() Type {
	return ctx.Builtin("stream", func() Type { return &StreamType{} })
}

// StreamView returns the stream view type.
func (ctx *Context) StreamView() Type {
	return ctx.Builtin("view<stream>", func() Type { return &StreamViewType{} })
}

// StreamIter returns the stream iterator type.
func (ctx *Context) StreamIter() Type {
	return ctx.Builtin("iterator<stream>", func() Type { return &StreamIterType{} })
}

// RegExp returns the regexp type.
func (ctx *Context) RegExp() Type {
	return ctx.Builtin("regexp", func() Type { return &RegExpType{} })
}

// Address returns the address type.
func (ctx *Context) Address() Type {
	return ctx.Builtin("addr", func() Type { return &AddressType{} })
}

// Port returns the port type.
func (ctx *Context) Port() Type {
	return ctx.Builtin("port", func() Type { return &PortType{} })
}

// Network returns the network type.
func (ctx *Context) Network() Type {
	return ctx.Builtin("net", func() Type { return &NetworkType{} })
}

// Interval returns the interval type.
func (ctx *Context) Interval() Type {
	return ctx.Builtin("interval", func() Type { return &IntervalType{} })
}

// Time returns the time type.
func (ctx *Context) Time() Type {
	return ctx.Builtin("time", func() Type { return &TimeType{} })
}

// VoidT returns the void type.
func (ctx *Context) VoidT() Type {
	return ctx.Builtin("void", func() Type { return &VoidType{} })
}

// NullT returns the null type.
func (ctx *Context) NullT() Type {
	return ctx.Builtin("null", func() Type { return &NullType{} })
}

// ErrorT returns the error type.
func (ctx *Context) ErrorT() Type {
	return ctx.Builtin("error", func() Type { return &ErrorType{} })
}

// Unknown returns the unknown meta type.
func (ctx *Context) Unknown() Type {
	return ctx.Builtin("<unknown>", func() Type { return &UnknownType{} })
}

// Auto returns the auto meta type.
func (ctx *Context) Auto() Type {
	return ctx.Builtin("auto", func() Type { return &AutoType{} })
}

// Any returns the any meta type.
func (ctx *Context) Any() Type {
	return ctx.Builtin("any", func() Type { return &AnyType{} })
}

// SinkT returns the sink type.
func (ctx *Context) SinkT() Type {
	return ctx.Builtin("sink", func() Type { return &SinkType{} })
}

// Vector returns a vector type over elem. Vector types are structural and
// not cached.
func (ctx *Context) Vector(elem *QualifiedType) *VectorType {
	v := &VectorType{Elem: elem}
	ctx.RegisterType(v)
	return v
}

// Optional returns an optional type over elem.
func (ctx *Context) Optional(elem *QualifiedType) *OptionalType {
	o := &OptionalType{Elem: elem}
	ctx.RegisterType(o)
	return o
}

// RootTypeScope populates the root scope with the named builtin types so
// operator signatures and user code can resolve them by name.
func (ctx *Context) RootTypeScope() {
	named := map[ID]Type{
		"bool":     ctx.Bool(),
		"uint8":    ctx.UInt(8),
		"uint16":   ctx.UInt(16),
		"uint32":   ctx.UInt(32),
		"uint64":   ctx.UInt(64),
		"int8":     ctx.SInt(8),
		"int16":    ctx.SInt(16),
		"int32":    ctx.SInt(32),
		"int64":    ctx.SInt(64),
		"real":     ctx.Real(),
		"string":   ctx.StringT(),
		"bytes":    ctx.BytesT(),
		"stream":   ctx.Stream(),
		"addr":     ctx.Address(),
		"port":     ctx.Port(),
		"net":      ctx.Network(),
		"interval": ctx.Interval(),
		"time":     ctx.Time(),
		"regexp":   ctx.RegExp(),
		"error":    ctx.ErrorT(),
		"void":     ctx.VoidT(),
		"any":      ctx.Any(),
		"sink":     ctx.SinkT(),
	}
	for id, t := range named {
		td := &TypeDecl{Type: t}
		td.ID_ = id
		td.Linkage_ = Public
		idx := ctx.RegisterDeclaration(td)
		t.SetDeclarationIndex(idx)
		ctx.root.Scope.Insert(id, ScopeEntry{Index: idx})
	}
}
