package ast

import "fmt"

// UID identifies a parsed module instance: the source path plus the linker
// scope it was parsed for. Parsing the same path twice under one scope yields
// the same UID.
type UID struct {
	Path  string
	Scope string
}

func (u UID) String() string {
	if u.Scope == "" {
		return u.Path
	}
	return fmt.Sprintf("%s@%s", u.Path, u.Scope)
}

// Module is the top-level container of declarations of one source file.
type Module struct {
	NodeBase
	ID           ID
	UID_         UID
	Declarations []Declaration
	Statements   []Statement // module-level statements (HILTI allows them)
	Properties   []*PropertyDecl
	// Hooks holds external hooks ("on HTTP::Request::uri { ... }") until
	// the resolver binds them to their unit.
	Hooks []*UnitHook
	// Normalized is set after the normalizer has run once on this module.
	Normalized bool
	// Dependencies lists the UIDs of modules imported by this one.
	Dependencies []UID
}

func (m *Module) String() string { return "module " + string(m.ID) }

// UID returns the module's unique identifier.
func (m *Module) UID() UID { return m.UID_ }

// Property returns the first module-level property with the given name.
func (m *Module) Property(name string) *PropertyDecl {
	for _, p := range m.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ASTRoot is the single root node of a context's AST; all modules hang off it.
type ASTRoot struct {
	NodeBase
	Modules []*Module
}

func (r *ASTRoot) String() string { return "<root>" }
