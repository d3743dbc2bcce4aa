package semantic

import (
	"github.com/zeek/go-spicy/internal/ast"
)

// preludeUID identifies the synthesized runtime module.
var preludeUID = ast.UID{Path: "<spicy_rt>"}

// hiltiUID identifies the synthesized hilti runtime module.
var hiltiUID = ast.UID{Path: "<hilti>"}

// ensurePrelude registers the runtime modules that back the implicit
// imports: the enum types and their label constants the generated code and
// user attributes refer to (byte order, bit order, address family, sink
// policy, direction).
func ensurePrelude(ctx *ast.Context) {
	if ctx.ModuleByUID(preludeUID) != nil {
		return
	}

	buildEnum := func(m *ast.Module, name ast.ID, labels ...string) {
		et := &ast.EnumType{}
		for i, l := range labels {
			et.Labels = append(et.Labels, &ast.EnumLabel{ID: ast.ID(l), Value: int64(i)})
		}
		ctx.RegisterType(et)

		td := &ast.TypeDecl{Type: et}
		td.ID_ = name
		td.Linkage_ = ast.Public
		td.Canonical = ast.NewID(string(m.ID), string(name))
		idx := ctx.RegisterDeclaration(td)
		et.SetDeclarationIndex(idx)
		m.Declarations = append(m.Declarations, td)
		m.Scope.Insert(name, ast.ScopeEntry{Index: idx})

		for _, l := range et.Labels {
			c := &ast.EnumCtor{Label: ast.NewID(string(name), string(l.ID))}
			c.SetType(ast.QtConst(et))
			cd := &ast.ConstantDecl{Value: c}
			cd.ID_ = ast.NewID(string(name), string(l.ID))
			cd.Linkage_ = ast.Public
			cd.Ty = ast.QtConst(et)
			cidx := ctx.RegisterDeclaration(cd)
			m.Declarations = append(m.Declarations, cd)
			m.Scope.Insert(cd.ID_, ast.ScopeEntry{Index: cidx})
		}
	}

	spicyRT := &ast.Module{ID: "spicy_rt", UID_: preludeUID}
	spicyRT.Scope = ast.NewScope()
	spicyRT.Normalized = true
	ctx.AddModule(spicyRT)

	buildEnum(spicyRT, "ByteOrder", "Network", "Big", "Little", "Host")
	buildEnum(spicyRT, "BitOrder", "LSB0", "MSB0")
	buildEnum(spicyRT, "AddressFamily", "IPv4", "IPv6")
	buildEnum(spicyRT, "RealType", "IEEE754_Single", "IEEE754_Double")
	buildEnum(spicyRT, "ReassemblerPolicy", "First")
	buildEnum(spicyRT, "Direction", "Originator", "Responder", "Both", "Undef")
	buildEnum(spicyRT, "Side", "Left", "Right", "BothSides")
	buildEnum(spicyRT, "Charset", "UTF8", "ASCII")

	hilti := &ast.Module{ID: "hilti", UID_: hiltiUID}
	hilti.Scope = ast.NewScope()
	hilti.Normalized = true
	ctx.AddModule(hilti)
	buildEnum(hilti, "Protocol", "TCP", "UDP", "ICMP")
}

// bindRuntimeImports points the implicit runtime imports at the prelude
// modules so qualified lookups resolve through them.
func (r *Resolver) bindRuntimeImports() {
	for _, m := range r.ctx.Modules() {
		for _, d := range m.Declarations {
			imp, ok := d.(*ast.ImportedModule)
			if !ok || imp.ModuleUID.Path != "" {
				continue
			}
			switch imp.ImportID {
			case "spicy_rt":
				imp.ModuleUID = preludeUID
			case "hilti":
				imp.ModuleUID = hiltiUID
			}
		}
	}
}
