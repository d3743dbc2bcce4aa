package ast

import "strings"

// Scope maps IDs to the declarations they resolve to. Each node may carry a
// scope; lookup walks from a node outward toward the root.
type Scope struct {
	entries map[ID][]ScopeEntry
}

// ScopeEntry is one resolution target for an ID. External entries come from
// imports and resolve only to Public declarations or to type declarations
// (types are universally visible so out-of-module hooks can name them).
// A Stop entry shadows all outer scopes for its ID.
type ScopeEntry struct {
	Index    DeclarationIndex
	External bool
	Stop     bool
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{entries: make(map[ID][]ScopeEntry)}
}

// Insert adds a resolution target for id.
func (s *Scope) Insert(id ID, e ScopeEntry) {
	s.entries[id] = append(s.entries[id], e)
}

// InsertStop adds a stop marker shadowing outer scopes for id.
func (s *Scope) InsertStop(id ID) {
	s.entries[id] = append(s.entries[id], ScopeEntry{Stop: true})
}

// Lookup returns the entries recorded for id in this scope only.
func (s *Scope) Lookup(id ID) []ScopeEntry {
	return s.entries[id]
}

// IDs returns all IDs with entries, for diagnostics.
func (s *Scope) IDs() []ID {
	ids := make([]ID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// LookupID resolves id starting at node and walking outward along the parent
// chain maintained by the context. External entries are filtered against the
// target declaration's linkage. Returns the matching declarations, best scope
// first.
func (ctx *Context) LookupID(id ID, node Node) []Declaration {
	for n := node; n != nil; n = ctx.Parent(n) {
		scope := n.Base().Scope
		if scope == nil {
			continue
		}
		entries := scope.Lookup(id)
		if len(entries) == 0 {
			// A qualified ID may resolve through its namespace: find the
			// namespace entry (an imported module or type), then the local
			// part inside it.
			if id.IsQualified() {
				if decls := ctx.lookupQualified(id, scope); len(decls) > 0 {
					return decls
				}
			}
			continue
		}
		var decls []Declaration
		for _, e := range entries {
			if e.Stop {
				return decls
			}
			d := ctx.LookupDeclaration(e.Index)
			if d == nil {
				continue
			}
			if e.External && !externallyVisible(d) {
				continue
			}
			decls = append(decls, d)
		}
		if len(decls) > 0 {
			return decls
		}
	}
	return nil
}

// externallyVisible reports whether an imported declaration may be seen from
// outside its module: public declarations and all type declarations.
func externallyVisible(d Declaration) bool {
	if d.Linkage() == Public || d.Linkage() == Export {
		return true
	}
	_, isType := d.(*TypeDecl)
	return isType
}

func (ctx *Context) lookupQualified(id ID, scope *Scope) []Declaration {
	// Split at the first separator: the head names an import, the rest is
	// the path inside the imported module.
	s := string(id)
	sep := strings.Index(s, "::")
	if sep < 0 {
		return nil
	}
	ns := ID(s[:sep])
	local := ID(s[sep+2:])
	var out []Declaration
	for _, e := range scope.Lookup(ns) {
		if e.Stop {
			break
		}
		d := ctx.LookupDeclaration(e.Index)
		if d == nil {
			continue
		}
		imp, ok := d.(*ImportedModule)
		if !ok {
			continue
		}
		mod := ctx.ModuleByUID(imp.ModuleUID)
		if mod == nil || mod.Base().Scope == nil {
			continue
		}
		for _, me := range mod.Base().Scope.Lookup(local) {
			md := ctx.LookupDeclaration(me.Index)
			if md == nil || !externallyVisible(md) {
				continue
			}
			out = append(out, md)
		}
	}
	return out
}
