// Package optimize implements the unused-field elimination pass: struct and
// unit fields that are never read lose their storage, and the accesses that
// remain are rewritten accordingly.
package optimize

import (
	"github.com/sirupsen/logrus"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/operator"
)

// fieldKey identifies one struct/unit field across the AST.
type fieldKey struct {
	owner ast.TypeIndex
	field ast.ID
}

// usage records every access to a field.
type usage struct {
	reads  []ast.Node
	writes []ast.Node
	unsets []ast.Node
}

// FieldPass runs unused-field elimination over a context.
type FieldPass struct {
	ctx *ast.Context
	log *logrus.Entry

	// Strict disables the pass entirely (public-API mode: every field is
	// part of the contract).
	Strict bool

	uses   map[fieldKey]*usage
	fields map[fieldKey]*ast.FieldDecl
	owners map[fieldKey]ast.Type
}

// NewFieldPass creates the pass for a context.
func NewFieldPass(ctx *ast.Context) *FieldPass {
	return &FieldPass{
		ctx:    ctx,
		log:    logrus.WithField("component", "optimizer"),
		uses:   make(map[fieldKey]*usage),
		fields: make(map[fieldKey]*ast.FieldDecl),
		owners: make(map[fieldKey]ast.Type),
	}
}

// Run collects field usage and rewrites the AST.
func (p *FieldPass) Run() {
	if p.Strict {
		p.log.Debug("skipping field elimination in strict public-API mode")
		return
	}
	p.collect()
	p.mutate()
}

func (p *FieldPass) use(k fieldKey) *usage {
	u := p.uses[k]
	if u == nil {
		u = &usage{}
		p.uses[k] = u
	}
	return u
}

// ---------------------------------------------------------------------------
// Phase 1: collect

func (p *FieldPass) collect() {
	// Index candidate fields.
	ast.Walk(p.ctx.Root(), func(n ast.Node) bool {
		switch t := n.(type) {
		case *ast.StructType:
			for _, f := range t.Fields {
				k := fieldKey{owner: t.TypeIndex(), field: f.ID_}
				p.fields[k] = f
				p.owners[k] = t
			}
		case *ast.UnitType:
			for _, f := range t.Fields() {
				if f.Decl == nil {
					continue
				}
				k := fieldKey{owner: t.TypeIndex(), field: f.ID}
				p.fields[k] = f.Decl
				p.owners[k] = t
			}
		}
		return true
	})

	// Record accesses.
	ast.Walk(p.ctx.Root(), func(n ast.Node) bool {
		switch t := n.(type) {
		case *operator.ResolvedOperator:
			p.collectOperator(t)
		case *ast.StructCtor:
			if t.Type() == nil {
				return true
			}
			for _, f := range t.Fields {
				k := fieldKey{owner: t.Type().T.TypeIndex(), field: f.ID}
				p.use(k).writes = append(p.use(k).writes, t)
			}
		case *ast.FieldDecl:
			// A non-constant &default counts as a write.
			if d := t.Attributes.Find(ast.AttrDefault); d != nil && d.Value != nil {
				if !ast.IsCtor(d.Value) {
					for k, fd := range p.fields {
						if fd == t {
							p.use(k).writes = append(p.use(k).writes, t)
						}
					}
				}
			}
		}
		return true
	})
}

func (p *FieldPass) collectOperator(e *operator.ResolvedOperator) {
	kind := e.Op.Kind()
	switch kind {
	case ast.OpMember, ast.OpTryMember, ast.OpHasMember, ast.OpUnset:
	default:
		return
	}
	self := e.Operand(0)
	member, ok := e.Operand(1).(*ast.MemberExpr)
	if !ok || self == nil || self.Type() == nil {
		return
	}
	k := fieldKey{owner: self.Type().T.TypeIndex(), field: member.ID}

	switch kind {
	case ast.OpUnset:
		p.use(k).unsets = append(p.use(k).unsets, e)
	case ast.OpMember:
		if p.isAssignTarget(e) {
			p.use(k).writes = append(p.use(k).writes, e)
		} else {
			p.use(k).reads = append(p.use(k).reads, e)
		}
	default:
		// TryMember and HasMember are reads.
		p.use(k).reads = append(p.use(k).reads, e)
	}
}

// isAssignTarget reports whether the member access is the target of an
// assignment (directly or as a slot of a tuple target).
func (p *FieldPass) isAssignTarget(e ast.Expression) bool {
	switch parent := p.ctx.Parent(e).(type) {
	case *ast.Assign:
		return parent.Target == e
	case *ast.TupleCtor:
		if gp, ok := p.ctx.Parent(parent).(*ast.Assign); ok {
			return gp.Target == parent
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Phase 2: mutate

// excluded reports whether the field must be left alone.
func (p *FieldPass) excluded(k fieldKey, fd *ast.FieldDecl) bool {
	if fd.Attributes.Has(ast.AttrNoEmit) || fd.Static ||
		fd.Attributes.Has(ast.AttrNeededByFeature) || fd.Attributes.Has(ast.AttrAlwaysEmit) {
		return true
	}
	if _, isFn := fd.Ty.T.(*ast.FunctionType); isFn {
		return true
	}
	owner := p.owners[k]
	if owner == nil {
		return true
	}
	if od := p.ctx.LookupDeclaration(owner.DeclarationIndex()); od != nil {
		// Externally visible types keep their full field set: the host
		// reads them through the generated ABI.
		if od.Linkage() != ast.Private {
			return true
		}
		if td, ok := od.(*ast.TypeDecl); ok && td.Attributes.Has(ast.AttrCxxName) {
			return true
		}
	}
	return false
}

func (p *FieldPass) mutate() {
	for k, fd := range p.fields {
		if p.excluded(k, fd) {
			continue
		}
		u := p.uses[k]
		if u == nil {
			u = &usage{}
		}

		switch {
		case len(u.reads) == 0 && len(u.writes) == 0:
			p.log.WithField("field", k.field).Debug("removing unused field")
			a := &ast.Attribute{Name: ast.AttrNoEmit}
			v := &ast.StringCtor{Value: "optimized"}
			v.SetType(ast.QtConst(p.ctx.StringT()))
			a.Value = v
			fd.Attributes = fd.Attributes.Add(a)
			p.removeUnsets(u)

		case len(u.reads) == 0:
			p.rewriteWrites(k, fd, u)

		case len(u.writes) == 0:
			p.rewriteReads(k, fd, u)
		}
	}
}

// removeUnsets drops statements that only unset the field.
func (p *FieldPass) removeUnsets(u *usage) {
	doomed := make(map[ast.Node]bool, len(u.unsets))
	for _, n := range u.unsets {
		doomed[n] = true
	}
	p.filterStatements(func(s ast.Statement) bool {
		es, ok := s.(*ast.ExpressionStatement)
		return ok && doomed[es.Expr]
	})
}

// filterStatements removes statements matching drop from every block.
func (p *FieldPass) filterStatements(drop func(ast.Statement) bool) {
	ast.Walk(p.ctx.Root(), func(n ast.Node) bool {
		b, ok := n.(*ast.Block)
		if !ok {
			return true
		}
		out := b.Statements[:0]
		for _, s := range b.Statements {
			if !drop(s) {
				out = append(out, s)
			}
		}
		b.Statements = out
		return true
	})
}

// rewriteWrites handles write-only fields: the stores disappear, but their
// right-hand sides keep any side effects.
func (p *FieldPass) rewriteWrites(k fieldKey, fd *ast.FieldDecl, u *usage) {
	p.log.WithField("field", k.field).Debug("removing write-only field stores")

	written := make(map[ast.Node]bool, len(u.writes))
	for _, n := range u.writes {
		written[n] = true
	}

	for _, w := range u.writes {
		switch n := w.(type) {
		case *ast.StructCtor:
			// Constructor initializers without side effects vanish.
			for _, f := range n.Fields {
				if f.ID == k.field && !hasSideEffects(f.Value) {
					n.RemoveField(k.field)
					break
				}
			}
		case *ast.FieldDecl:
			// A non-constant &default is stripped.
			n.Attributes.Remove(ast.AttrDefault)
		case *operator.ResolvedOperator:
			p.rewriteMemberStore(n)
		}
	}

	a := &ast.Attribute{Name: ast.AttrNoEmit}
	v := &ast.StringCtor{Value: "optimized"}
	v.SetType(ast.QtConst(p.ctx.StringT()))
	a.Value = v
	fd.Attributes = fd.Attributes.Add(a)
	p.removeUnsets(u)
}

// rewriteMemberStore reduces "self.x = rhs" to "rhs" and removes the slot
// from tuple targets, preserving side-effecting right-hand sides.
func (p *FieldPass) rewriteMemberStore(memberOp *operator.ResolvedOperator) {
	switch parent := p.ctx.Parent(memberOp).(type) {
	case *ast.Assign:
		if parent.Target != memberOp {
			return
		}
		// A top-level member assign becomes the RHS alone.
		if es, ok := p.ctx.Parent(parent).(*ast.ExpressionStatement); ok {
			if hasSideEffects(parent.Value) {
				es.Expr = parent.Value
				p.ctx.MarkReplaced(parent, parent.Value)
			} else {
				p.filterStatements(func(s ast.Statement) bool { return s == ast.Statement(es) })
			}
		}
	case *ast.TupleCtor:
		gp, ok := p.ctx.Parent(parent).(*ast.Assign)
		if !ok || gp.Target != parent {
			return
		}
		rhs, ok := gp.Value.(*ast.TupleCtor)
		if !ok || len(rhs.Elements) != len(parent.Elements) {
			return
		}
		// Remove the slot from both sides; a side-effecting RHS slot must
		// still be evaluated, so it moves into a preceding statement.
		for i, el := range parent.Elements {
			if el != ast.Expression(memberOp) {
				continue
			}
			dropped := rhs.Elements[i]
			parent.Elements = append(parent.Elements[:i], parent.Elements[i+1:]...)
			rhs.Elements = append(rhs.Elements[:i], rhs.Elements[i+1:]...)
			if hasSideEffects(dropped) {
				p.hoistBefore(gp, dropped)
			}
			break
		}
	}
}

// hoistBefore inserts expr as its own statement before the statement
// containing anchor.
func (p *FieldPass) hoistBefore(anchor ast.Node, expr ast.Expression) {
	stmt := anchor
	for stmt != nil {
		if _, ok := stmt.(ast.Statement); ok {
			break
		}
		stmt = p.ctx.Parent(stmt)
	}
	if stmt == nil {
		return
	}
	block, ok := p.ctx.Parent(stmt).(*ast.Block)
	if !ok {
		return
	}
	es := &ast.ExpressionStatement{Expr: expr}
	es.Location = expr.Pos()
	for i, s := range block.Statements {
		if ast.Node(s) == stmt {
			block.Statements = append(block.Statements[:i],
				append([]ast.Statement{es}, block.Statements[i:]...)...)
			p.ctx.Adopt(block, es)
			return
		}
	}
}

// rewriteReads handles never-written fields: reads become defaults or a
// runtime raise, HasMember checks become constants.
func (p *FieldPass) rewriteReads(k fieldKey, fd *ast.FieldDecl, u *usage) {
	p.log.WithField("field", k.field).Debug("rewriting reads of never-written field")

	_, optional := fd.Ty.T.(*ast.OptionalType)
	defaultAttr := fd.Attributes.Find(ast.AttrDefault)

	replacements := make(map[ast.Expression]ast.Expression)
	for _, rn := range u.reads {
		e, ok := rn.(*operator.ResolvedOperator)
		if !ok {
			continue
		}
		switch e.Op.Kind() {
		case ast.OpHasMember:
			// Non-optional fields always "have" a value; optionals without
			// writes never do.
			c := &ast.BoolCtor{Value: !optional}
			c.SetType(ast.QtConst(p.ctx.Bool()))
			c.Base().Location = e.Pos()
			replacements[e] = c
		case ast.OpMember, ast.OpTryMember:
			if optional && defaultAttr != nil && defaultAttr.Value != nil {
				replacements[e] = defaultAttr.Value
			} else {
				raise := &ast.AttributeNotSetExpr{Field: k.field}
				raise.SetType(e.Type())
				raise.Base().Location = e.Pos()
				replacements[e] = raise
			}
		}
	}

	if len(replacements) == 0 {
		return
	}
	ast.RewriteExprs(p.ctx, p.ctx.Root(), func(e ast.Expression) ast.Expression {
		if ne, ok := replacements[e]; ok {
			return ne
		}
		return nil
	})
}

// hasSideEffects conservatively reports whether evaluating e may do more
// than compute a value.
func hasSideEffects(e ast.Expression) bool {
	found := false
	ast.Walk(e, func(n ast.Node) bool {
		switch t := n.(type) {
		case *operator.ResolvedOperator:
			switch t.Op.Kind() {
			case ast.OpCall, ast.OpMemberCall, ast.OpIncrPre, ast.OpIncrPost,
				ast.OpDecrPre, ast.OpDecrPost, ast.OpIndexAssign, ast.OpUnset,
				ast.OpNew:
				found = true
				return false
			}
		case *ast.Assign:
			found = true
			return false
		case *ast.UnresolvedOperator:
			found = true // unresolved: assume the worst
			return false
		}
		return true
	})
	return found
}
