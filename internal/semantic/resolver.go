// Package semantic drives the AST from untyped surface syntax to a fully
// typed, checked tree: normalization, type derivation, hook binding, operator
// and name resolution to a fixed point, followed by validation.
package semantic

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/diag"
	"github.com/zeek/go-spicy/internal/operator"
)

// Resolver owns one resolution run over a context.
type Resolver struct {
	ctx *ast.Context
	reg *operator.Registry
	log *logrus.Entry

	modified bool
	errors   []diag.Error
}

// NewResolver creates a resolver over the context using the given operator
// registry.
func NewResolver(ctx *ast.Context, reg *operator.Registry) *Resolver {
	return &Resolver{
		ctx: ctx,
		reg: reg,
		log: logrus.WithField("component", "resolver"),
	}
}

// Errors returns the diagnostics accumulated during resolution and
// validation.
func (r *Resolver) Errors() []diag.Error { return r.errors }

func (r *Resolver) errorAt(n ast.Node, format string, args ...any) {
	e := diag.Errorf(n.Pos(), format, args...)
	n.Base().AddError(e)
	r.errors = append(r.errors, e)
}

// Run resolves the AST to a fixed point and validates the result. It
// returns an error when resolution fails to converge or validation finds
// problems.
func (r *Resolver) Run() error {
	ensurePrelude(r.ctx)
	limit := r.countUnresolved() + 10

	for round := 1; ; round++ {
		if round > limit {
			diag.InternalError("resolver failed to terminate after %d rounds", round)
		}
		r.modified = false
		numErrors := len(r.errors)

		r.buildScopes()
		r.normalize()
		r.bindRuntimeImports()
		r.promoteUnresolvedFields()
		r.deriveFieldTypes()
		r.bindHooks()
		r.resolveExpressions()

		r.log.WithFields(logrus.Fields{
			"round":    round,
			"modified": r.modified,
		}).Debug("resolver pass complete")

		if !r.modified {
			if unresolved := r.countUnresolved(); unresolved > 0 && len(r.errors) == numErrors {
				r.reportUnresolved()
			}
			break
		}
		// Errors found while still making progress may resolve themselves
		// in a later round; drop them and retry.
		if r.modified {
			r.errors = r.errors[:numErrors]
		}
	}

	v := &validator{ctx: r.ctx}
	v.run()
	r.errors = append(r.errors, v.errors...)

	if msgs := dedupeErrors(r.errors); len(msgs) > 0 {
		r.errors = msgs
		return fmt.Errorf("%d error(s) during compilation", len(msgs))
	}
	return nil
}

// countUnresolved counts the nodes still awaiting resolution.
func (r *Resolver) countUnresolved() int {
	n := 0
	ast.Walk(r.ctx.Root(), func(node ast.Node) bool {
		switch t := node.(type) {
		case *ast.UnresolvedOperator:
			n++
		case *ast.Name:
			if !t.Resolved() {
				n++
			}
		case *ast.NameType:
			if !t.Resolved() {
				n++
			}
		case *ast.UnresolvedField:
			n++
		}
		return true
	})
	return n
}

// reportUnresolved attaches errors to whatever is left unresolved after the
// fixed point was reached.
func (r *Resolver) reportUnresolved() {
	ast.Walk(r.ctx.Root(), func(node ast.Node) bool {
		switch t := node.(type) {
		case *ast.UnresolvedOperator:
			r.errorAt(t, "cannot resolve operator %s with operands (%s)", t.Kind, operandTypes(t.Operands))
			return false
		case *ast.Name:
			if !t.Resolved() {
				r.errorAt(t, "unknown ID %q", t.ID)
			}
		case *ast.NameType:
			if !t.Resolved() {
				r.errorAt(t, "unknown type %q", t.ID)
			}
		case *ast.UnresolvedField:
			r.errorAt(t, "cannot resolve unit field %q", t.RefID)
		}
		return true
	})
}

func operandTypes(operands []ast.Expression) string {
	s := ""
	for i, o := range operands {
		if i > 0 {
			s += ", "
		}
		if o.Type() != nil {
			s += o.Type().T.String()
		} else {
			s += "<untyped>"
		}
	}
	return s
}

// dedupeErrors keeps at most one error per source location, preferring
// normal priority over low, to suppress cascades.
func dedupeErrors(errs []diag.Error) []diag.Error {
	type key struct {
		line, col int
		file      string
	}
	best := make(map[key]diag.Error)
	var order []key
	for _, e := range errs {
		k := key{e.Location.Line, e.Location.Column, e.File}
		if old, ok := best[k]; ok {
			if old.Priority == diag.Low && e.Priority == diag.Normal {
				best[k] = e
			}
			continue
		}
		best[k] = e
		order = append(order, k)
	}
	out := make([]diag.Error, 0, len(best))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}
