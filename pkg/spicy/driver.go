// Package spicy is the public compiler driver: parse sources, resolve to a
// fixed point, optimize, and emit IML for the back-end.
package spicy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/codegen"
	"github.com/zeek/go-spicy/internal/diag"
	"github.com/zeek/go-spicy/internal/optimize"
	"github.com/zeek/go-spicy/internal/operator"
	"github.com/zeek/go-spicy/internal/parser"
	"github.com/zeek/go-spicy/internal/semantic"
)

// UID identifies a parsed module instance.
type UID = ast.UID

// Options configures a driver.
type Options struct {
	// SearchDirs are the directories import statements search, in order.
	// Entries may contain doublestar glob patterns.
	SearchDirs []string
	// StrictPublicAPI disables the unused-field optimizer.
	StrictPublicAPI bool
	// Verbose raises the log level to Debug.
	Verbose bool
}

// Driver owns one compilation: a context, the operator registry, and the
// accumulated diagnostics.
type Driver struct {
	ctx  *ast.Context
	reg  *operator.Registry
	opts Options
	log  *logrus.Entry

	sources map[ast.UID]string // source text per module, for error rendering
	errors  []diag.Error
}

// runtimeModules are provided by the runtime library, not the filesystem.
var runtimeModules = map[ast.ID]bool{"hilti": true, "spicy_rt": true}

// NewDriver creates a driver with a fresh context.
func NewDriver(opts Options) *Driver {
	if opts.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	ctx := ast.NewContext()
	ctx.RootTypeScope()
	return &Driver{
		ctx:     ctx,
		reg:     operator.NewRegistry(ctx),
		opts:    opts,
		log:     logrus.WithField("component", "driver"),
		sources: make(map[ast.UID]string),
	}
}

// Context returns the driver's AST context.
func (d *Driver) Context() *ast.Context { return d.ctx }

// Errors returns the diagnostics recorded so far.
func (d *Driver) Errors() []diag.Error { return d.errors }

// ParseSource parses and registers the module at path. Parsing the same
// path twice returns the existing UID.
func (d *Driver) ParseSource(path string) (ast.UID, error) {
	uid := ast.UID{Path: path}
	if m := d.ctx.ModuleByUID(uid); m != nil {
		return uid, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ast.UID{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return d.parseText(string(data), uid)
}

// ParseText parses module source held in memory, registering it under the
// given pseudo-path.
func (d *Driver) ParseText(source, path string) (ast.UID, error) {
	uid := ast.UID{Path: path}
	if m := d.ctx.ModuleByUID(uid); m != nil {
		return uid, nil
	}
	return d.parseText(source, uid)
}

func (d *Driver) parseText(source string, uid ast.UID) (ast.UID, error) {
	d.log.WithField("path", uid.Path).Debug("parsing module")
	p := parser.New(d.ctx, source, uid.Path)
	m := p.ParseModule(uid)
	if errs := p.Errors(); len(errs) > 0 {
		d.errors = append(d.errors, errs...)
		return ast.UID{}, fmt.Errorf("%d parse error(s) in %s", len(errs), uid.Path)
	}
	d.ctx.AddModule(m)
	d.sources[uid] = source

	// Pull in the module's imports.
	for _, decl := range m.Declarations {
		imp, ok := decl.(*ast.ImportedModule)
		if !ok || runtimeModules[imp.ImportID] {
			continue
		}
		depUID, err := d.ImportModule(imp.ImportID, "", ".spicy")
		if err != nil {
			d.errors = append(d.errors, diag.Errorf(imp.Pos(), "%s", err))
			continue
		}
		imp.ModuleUID = depUID
		m.Dependencies = append(m.Dependencies, depUID)
	}
	return uid, nil
}

// ImportModule locates a module by ID in the search directories and parses
// it.
func (d *Driver) ImportModule(id ast.ID, searchScope string, parseExt string) (ast.UID, error) {
	if m := d.ctx.ModuleByName(id, searchScope); m != nil {
		return m.UID(), nil
	}
	name := strings.ToLower(string(id.Local())) + parseExt
	for _, dir := range d.opts.SearchDirs {
		matches, err := doublestar.FilepathGlob(filepath.Join(dir, "**", name))
		if err != nil {
			continue
		}
		if direct := filepath.Join(dir, name); fileExists(direct) {
			matches = append([]string{direct}, matches...)
		}
		for _, path := range matches {
			uid, err := d.ParseSource(path)
			if err != nil {
				return ast.UID{}, err
			}
			if m := d.ctx.ModuleByUID(uid); m != nil && m.ID == id.Local() {
				return uid, nil
			}
		}
	}
	return ast.UID{}, fmt.Errorf("cannot find module %q in search path", id)
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// Module looks up a registered module.
func (d *Driver) Module(uid ast.UID) *ast.Module { return d.ctx.ModuleByUID(uid) }

// Dependencies returns a module's imports, optionally transitively.
func (d *Driver) Dependencies(uid ast.UID, recursive bool) []ast.UID {
	return d.ctx.Dependencies(uid, recursive)
}

// ProcessAST runs the full pass pipeline to a fixed point: resolution,
// validation and optimization.
func (d *Driver) ProcessAST() error {
	res := semantic.NewResolver(d.ctx, d.reg)
	err := res.Run()
	d.errors = append(d.errors, res.Errors()...)
	if err != nil {
		return err
	}

	pass := optimize.NewFieldPass(d.ctx)
	pass.Strict = d.opts.StrictPublicAPI
	pass.Run()
	return nil
}

// Emit generates the IML translation of one module.
func (d *Driver) Emit(uid ast.UID) (string, error) {
	m := d.ctx.ModuleByUID(uid)
	if m == nil {
		return "", fmt.Errorf("unknown module %s", uid)
	}
	g := codegen.NewGenerator(d.ctx)
	return g.Module(m), nil
}

// ParserMeta is one entry of the linker metadata: everything the host needs
// to locate a compiled parser.
type ParserMeta struct {
	Name        string   `json:"name"`
	Module      string   `json:"module"`
	Description string   `json:"description,omitempty"`
	MimeTypes   []string `json:"mime_types,omitempty"`
	Ports       []string `json:"ports,omitempty"`
	Public      bool     `json:"public"`
}

// LinkerMetaData returns the JSON metadata block describing every public
// unit parser of the given modules.
func (d *Driver) LinkerMetaData(uids []ast.UID) (string, error) {
	var metas []ParserMeta
	for _, uid := range uids {
		m := d.ctx.ModuleByUID(uid)
		if m == nil {
			continue
		}
		for _, decl := range m.Declarations {
			td, ok := decl.(*ast.TypeDecl)
			if !ok || td.Linkage() == ast.Private {
				continue
			}
			u, ok := td.Type.(*ast.UnitType)
			if !ok {
				continue
			}
			meta := ParserMeta{
				Name:   string(td.CanonicalID()),
				Module: string(m.ID),
				Public: true,
			}
			if p := u.Property(ast.PropDescription); p != nil {
				if sc, ok := p.Value.(*ast.StringCtor); ok {
					meta.Description = sc.Value
				}
			}
			if p := u.Property(ast.PropMimeType); p != nil {
				if sc, ok := p.Value.(*ast.StringCtor); ok {
					meta.MimeTypes = append(meta.MimeTypes, sc.Value)
				}
			}
			if p := u.Property(ast.PropPort); p != nil && p.Value != nil {
				meta.Ports = append(meta.Ports, p.Value.String())
			}
			metas = append(metas, meta)
		}
	}
	out, err := json.MarshalIndent(metas, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// RenderErrors formats the recorded diagnostics with source context.
func (d *Driver) RenderErrors(color bool) string {
	var sb strings.Builder
	for _, e := range d.errors {
		src := ""
		if e.File != "" {
			src = d.sources[ast.UID{Path: e.File}]
		}
		sb.WriteString(e.Format(src, color))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// Warnings returns non-fatal diagnostics (deprecations).
func (d *Driver) Warnings() []diag.Error { return d.ctx.Warnings }
