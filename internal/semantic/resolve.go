package semantic

import (
	"strings"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/coerce"
	"github.com/zeek/go-spicy/internal/constfold"
	"github.com/zeek/go-spicy/internal/operator"
)

// resolveExpressions runs one rewrite sweep: name-type binding, keyword
// typing, name resolution, operator and call resolution, and expression
// typing.
func (r *Resolver) resolveExpressions() {
	r.typeKeywords()
	r.resolveNameTypes()

	ast.RewriteExprs(r.ctx, r.ctx.Root(), func(e ast.Expression) ast.Expression {
		switch t := e.(type) {
		case *ast.Name:
			return r.resolveName(t)
		case *ast.UnresolvedOperator:
			return r.resolveOperator(t)
		case *ast.Grouping:
			if t.Type() == nil && t.Inner.Type() != nil {
				t.SetType(t.Inner.Type())
				r.modified = true
			}
		case *ast.Ternary:
			if t.Type() == nil && t.True.Type() != nil {
				t.SetType(t.True.Type())
				r.modified = true
			}
		case *ast.LogicalAnd:
			if t.Type() == nil {
				t.SetType(ast.QtConst(r.ctx.Bool()))
				r.modified = true
			}
		case *ast.LogicalOr:
			if t.Type() == nil {
				t.SetType(ast.QtConst(r.ctx.Bool()))
				r.modified = true
			}
		case *ast.LogicalNot:
			if t.Type() == nil {
				t.SetType(ast.QtConst(r.ctx.Bool()))
				r.modified = true
			}
		case *ast.Assign:
			return r.resolveAssign(t)
		case *ast.ListComprehension:
			r.resolveComprehension(t)
		case *ast.TupleCtor:
			r.typeTupleCtor(t)
		case *ast.ListCtor:
			r.typeListCtor(t)
		}
		return nil
	})
}

// typeTupleCtor derives a tuple ctor's type once every element is typed.
func (r *Resolver) typeTupleCtor(t *ast.TupleCtor) {
	if t.Type() != nil {
		return
	}
	elems := make([]*ast.TupleElement, len(t.Elements))
	for i, e := range t.Elements {
		if e.Type() == nil {
			return
		}
		elems[i] = &ast.TupleElement{Ty: ast.QtConst(e.Type().T)}
	}
	tt := &ast.TupleType{Elements: elems}
	r.ctx.RegisterType(tt)
	t.SetType(ast.QtConst(tt))
	r.modified = true
}

// typeListCtor derives a list ctor's type from its first element; empty
// lists stay unknown-elemented until coercion re-types them.
func (r *Resolver) typeListCtor(t *ast.ListCtor) {
	if t.Type() != nil {
		return
	}
	elem := ast.QtMutable(r.ctx.Unknown())
	if len(t.Elements) > 0 {
		if t.Elements[0].Type() == nil {
			return
		}
		elem = ast.QtMutable(t.Elements[0].Type().T)
	}
	lt := &ast.ListType{Elem: elem}
	r.ctx.RegisterType(lt)
	t.SetType(ast.QtConst(lt))
	r.modified = true
}

// resolveNameTypes binds named type references through the scope chain.
func (r *Resolver) resolveNameTypes() {
	ast.Walk(r.ctx.Root(), func(n ast.Node) bool {
		nt, ok := n.(*ast.NameType)
		if !ok || nt.Resolved() {
			return true
		}
		decls := r.ctx.LookupID(nt.ID, nt)
		if len(decls) == 0 {
			decls = r.rootLookup(nt.ID)
		}
		for _, d := range decls {
			if td, ok := d.(*ast.TypeDecl); ok {
				nt.Target = r.ctx.RegisterType(td.Type)
				r.modified = true
				break
			}
		}
		return true
	})
}

// rootLookup resolves an ID directly against the root scope; used for nodes
// not (yet) wired into a parent chain and for builtin type names.
func (r *Resolver) rootLookup(id ast.ID) []ast.Declaration {
	var out []ast.Declaration
	for _, e := range r.ctx.Root().Scope.Lookup(id) {
		if d := r.ctx.LookupDeclaration(e.Index); d != nil {
			out = append(out, d)
		}
	}
	return out
}

// resolveName binds a name to its declaration, or replaces it with a type
// expression when it names a type.
func (r *Resolver) resolveName(n *ast.Name) ast.Expression {
	if n.Resolved() {
		if n.Type() == nil {
			if qt := r.declType(r.ctx.LookupDeclaration(n.Decl)); qt != nil {
				n.SetType(qt)
				r.modified = true
			}
		}
		return nil
	}

	decls := r.ctx.LookupID(n.ID, n)
	if len(decls) == 0 {
		decls = r.rootLookup(n.ID)
	}
	if len(decls) == 0 {
		return nil
	}

	if td, ok := decls[0].(*ast.TypeDecl); ok {
		t := r.concrete(td.Type)
		if t == nil {
			return nil
		}
		te := &ast.TypeExpr{T: t}
		te.Location = n.Pos()
		te.SetType(ast.QtConst(t))
		r.modified = true
		return te
	}

	n.Decl = decls[0].Index()
	if qt := r.declType(decls[0]); qt != nil {
		n.SetType(qt)
	}
	r.modified = true
	return nil
}

// declType computes the type an expression naming the declaration has.
// Name references resolve through to the concrete type; nil while that is
// still pending.
func (r *Resolver) declType(d ast.Declaration) *ast.QualifiedType {
	switch t := d.(type) {
	case *ast.ConstantDecl:
		if t.Ty != nil {
			if c := r.concrete(t.Ty.T); c != nil {
				return ast.QtConst(c)
			}
			return nil
		}
		if t.Value != nil && t.Value.Type() != nil {
			return ast.QtConst(t.Value.Type().T)
		}
	case *ast.GlobalVarDecl:
		if t.Ty != nil {
			if c := r.concrete(t.Ty.T); c != nil {
				return &ast.QualifiedType{T: c, Constness: ast.Mutable, Side: ast.LHS}
			}
			return nil
		}
		if t.Init != nil && t.Init.Type() != nil {
			return &ast.QualifiedType{T: t.Init.Type().T, Constness: ast.Mutable, Side: ast.LHS}
		}
	case *ast.LocalVarDecl:
		if t.Ty != nil {
			if c := r.concrete(t.Ty.T); c != nil {
				return &ast.QualifiedType{T: c, Constness: ast.Mutable, Side: ast.LHS}
			}
			return nil
		}
		if t.Init != nil && t.Init.Type() != nil {
			return &ast.QualifiedType{T: t.Init.Type().T, Constness: ast.Mutable, Side: ast.LHS}
		}
	case *ast.ParameterDecl:
		if t.Ty != nil {
			c := r.concrete(t.Ty.T)
			if c == nil {
				return nil
			}
			side := ast.RHS
			if t.Kind == ast.InOut {
				side = ast.LHS
			}
			return &ast.QualifiedType{T: c, Constness: t.Ty.Constness, Side: side}
		}
	case *ast.FunctionDecl:
		return ast.QtConst(t.FuncType)
	case *ast.FieldDecl:
		if c := r.concrete(t.Ty.T); c != nil {
			return &ast.QualifiedType{T: c, Constness: ast.Mutable, Side: ast.LHS}
		}
	}
	return nil
}

// resolveAssign types an assignment and coerces its value to the target.
func (r *Resolver) resolveAssign(a *ast.Assign) ast.Expression {
	tt := a.Target.Type()
	vt := a.Value.Type()
	if tt == nil || vt == nil {
		return nil
	}
	if a.Type() == nil {
		if res := coerce.Expression(r.ctx, a.Value, ast.QtConst(tt.T), coerce.TryAllForAssignment); res.Coerced && res.NExpr != nil {
			r.ctx.MarkReplaced(a.Value, res.NExpr)
			a.Value = res.NExpr
		}
		a.SetType(&ast.QualifiedType{T: tt.T, Constness: ast.Mutable})
		r.modified = true
	}
	return nil
}

func (r *Resolver) resolveComprehension(lc *ast.ListComprehension) {
	if lc.Type() != nil || lc.Input.Type() == nil {
		return
	}
	if lc.Var.Ty == nil {
		lc.Var.Ty = ast.ElementType(r.ctx, lc.Input.Type().T)
		r.modified = true
	}
	if lc.Output.Type() != nil {
		lt := &ast.ListType{Elem: ast.QtMutable(lc.Output.Type().T)}
		r.ctx.RegisterType(lt)
		lc.SetType(ast.QtConst(lt))
		r.modified = true
	}
}

// ---------------------------------------------------------------------------
// Operator resolution

// resolveOperator applies the candidate/style matching of the operator
// registry to an unresolved operator expression.
func (r *Resolver) resolveOperator(uo *ast.UnresolvedOperator) ast.Expression {
	// Type-constructor calls turn into casts (constant arguments fold to
	// ctors first).
	if uo.Kind == ast.OpCall {
		if ne := r.resolveCall(uo); ne != nil {
			return ne
		}
		return nil
	}

	// Skip while any operand's type is still unknown.
	for _, o := range uo.Operands {
		if o.Type() == nil {
			return nil
		}
		if _, unknown := o.Type().T.(*ast.UnknownType); unknown {
			return nil
		}
	}

	// Member-family operators on references retry with an implicit deref.
	switch uo.Kind {
	case ast.OpMember, ast.OpMemberCall, ast.OpHasMember, ast.OpTryMember:
		if elem, ok := ast.ReferenceElem(uo.Operands[0].Type().T); ok {
			d := &ast.Deref{Inner: uo.Operands[0]}
			d.SetType(elem)
			d.Base().Location = uo.Operands[0].Pos()
			r.ctx.Adopt(d, uo.Operands[0])
			uo.Operands[0] = d
			r.modified = true
			return nil
		}
	}

	member := ast.ID("")
	if uo.Kind == ast.OpMemberCall && len(uo.Operands) > 1 {
		if m, ok := uo.Operands[1].(*ast.MemberExpr); ok {
			member = m.ID
		}
	}
	candidates := r.reg.Candidates(uo.Kind, member)
	if uo.Kind == ast.OpMemberCall && member != "" {
		// The generic struct member-call backstop applies to any member
		// name.
		for _, op := range r.reg.Candidates(ast.OpMemberCall, "") {
			if op.Sig.Member == "" {
				candidates = append(candidates, op)
			}
		}
	}

	styles := []coerce.Style{
		coerce.PreferOriginalType | coerce.OperandMatching | coerce.TryExactMatch,
		coerce.PreferOriginalType | coerce.OperandMatching | coerce.TryExactMatch | coerce.TryConstPromotion,
		coerce.PreferOriginalType | coerce.OperandMatching | coerce.TryExactMatch | coerce.TryConstPromotion | coerce.TryCoercion,
	}

	var matched []*operator.Operator
	var matchedOperands [][]ast.Expression
	for _, style := range styles {
		for _, cand := range candidates {
			if ops, ok := r.tryCandidate(cand, uo.Operands, style); ok {
				matched = append(matched, cand)
				matchedOperands = append(matchedOperands, ops)
			}
		}
		if len(matched) > 0 {
			break
		}
	}

	// Commutative kinds may match with swapped operands.
	if len(matched) == 0 && uo.Kind.IsCommutative() && len(uo.Operands) == 2 {
		swapped := []ast.Expression{uo.Operands[1], uo.Operands[0]}
		for _, style := range styles {
			for _, cand := range candidates {
				if ops, ok := r.tryCandidate(cand, swapped, style); ok {
					matched = append(matched, cand)
					matchedOperands = append(matchedOperands, ops)
				}
			}
			if len(matched) > 0 {
				break
			}
		}
	}

	switch len(matched) {
	case 0:
		if uo.Kind == ast.OpCast {
			return r.castFallback(uo)
		}
		return nil
	case 1:
		r.modified = true
		return matched[0].Instantiate(r.ctx, matchedOperands[0])
	default:
		// Prefer normal priority over low.
		var normal []int
		for i, m := range matched {
			if m.Priority == operator.Normal {
				normal = append(normal, i)
			}
		}
		if len(normal) == 1 {
			r.modified = true
			return matched[normal[0]].Instantiate(r.ctx, matchedOperands[normal[0]])
		}
		protos := make([]string, len(matched))
		for i, m := range matched {
			protos[i] = m.Prototype()
		}
		r.errorAt(uo, "ambiguous operator %s; candidates: %s", uo.Kind, strings.Join(protos, "; "))
		return nil
	}
}

// tryCandidate coerces operands against the candidate's operand list,
// returning the (possibly rewritten) operands on success.
func (r *Resolver) tryCandidate(cand *operator.Operator, operands []ast.Expression, style coerce.Style) ([]ast.Expression, bool) {
	sig := cand.Sig

	// A member-call carries its argument tuple as a third operand matched
	// against the signature's named parameters.
	expected := len(sig.Operands)
	hasArgs := sig.Kind == ast.OpMemberCall
	if hasArgs {
		if len(operands) != expected+1 {
			return nil, false
		}
	} else if len(operands) != expected {
		return nil, false
	}

	out := make([]ast.Expression, len(operands))
	copy(out, operands)

	for i, opnd := range sig.Operands {
		e := out[i]
		if opnd.Ty != nil {
			res := coerce.Expression(r.ctx, e, opnd.Ty, style)
			if !res.Coerced {
				// Retry with implicit dereferencing for reference operands.
				if elem, ok := ast.ReferenceElem(e.Type().T); ok {
					d := &ast.Deref{Inner: e}
					d.SetType(elem)
					d.Base().Location = e.Pos()
					res = coerce.Expression(r.ctx, d, opnd.Ty, style)
					if res.Coerced {
						if res.NExpr == nil {
							res.NExpr = d
						}
					}
				}
				if !res.Coerced {
					return nil, false
				}
			}
			if res.NExpr != nil {
				out[i] = res.NExpr
			}
			continue
		}
		if opnd.Match != nil && !opnd.Match(e.Type()) {
			// Retry the predicate after dereferencing.
			if elem, ok := ast.ReferenceElem(e.Type().T); ok && opnd.Match(elem) {
				d := &ast.Deref{Inner: e}
				d.SetType(elem)
				d.Base().Location = e.Pos()
				out[i] = d
				continue
			}
			return nil, false
		}
	}

	if hasArgs {
		args, ok := out[len(out)-1].(*ast.TupleCtor)
		if !ok {
			return nil, false
		}
		var member ast.ID
		if m, ok := out[1].(*ast.MemberExpr); ok {
			member = m.ID
		}
		if !r.matchParams(cand, out[0], member, args, style) {
			return nil, false
		}
	}
	return out, true
}

// matchParams coerces a call's argument tuple against a method's named
// parameters.
func (r *Resolver) matchParams(cand *operator.Operator, self ast.Expression, member ast.ID, args *ast.TupleCtor, style coerce.Style) bool {
	params := cand.Sig.Params

	// The generic struct member-call validates against the field's own
	// function type instead.
	if len(params) == 0 && cand.Priority == operator.Low {
		return r.matchFieldFunction(self, member, args, style)
	}

	required := 0
	for _, p := range params {
		if !p.Optional && p.Default == nil {
			required++
		}
	}
	if len(args.Elements) < required || len(args.Elements) > len(params) {
		return false
	}
	for i, a := range args.Elements {
		if a.Type() == nil {
			return false
		}
		p := params[i]
		if p.Ty != nil {
			res := coerce.Expression(r.ctx, a, p.Ty, style|coerce.TryCoercion)
			if !res.Coerced {
				return false
			}
			if res.NExpr != nil {
				args.Elements[i] = res.NExpr
			}
		} else if p.Match != nil && !p.Match(a.Type()) {
			return false
		}
	}
	return true
}

// matchFieldFunction checks a member call against a function-typed
// unit/struct field.
func (r *Resolver) matchFieldFunction(self ast.Expression, member ast.ID, args *ast.TupleCtor, style coerce.Style) bool {
	if self.Type() == nil || member == "" {
		return false
	}
	// Only struct members carrying function types qualify.
	var ft *ast.FunctionType
	if st, ok := self.Type().T.(*ast.StructType); ok {
		if f := st.Field(member); f != nil {
			ft, _ = f.Ty.T.(*ast.FunctionType)
		}
	}
	if ft == nil {
		return false
	}
	if len(args.Elements) > len(ft.Params) {
		return false
	}
	for i, a := range args.Elements {
		if a.Type() == nil {
			return false
		}
		res := coerce.Expression(r.ctx, a, ft.Params[i].Ty, style|coerce.TryCoercion)
		if !res.Coerced {
			return false
		}
		if res.NExpr != nil {
			args.Elements[i] = res.NExpr
		}
	}
	return true
}

// castFallback handles cast<T>(e) when no cast operator matched: a direct
// coercion becomes the cast.
func (r *Resolver) castFallback(uo *ast.UnresolvedOperator) ast.Expression {
	if len(uo.Operands) != 2 {
		return nil
	}
	te, ok := uo.Operands[1].(*ast.TypeExpr)
	if !ok {
		return nil
	}
	res := coerce.Expression(r.ctx, uo.Operands[0], ast.QtConst(te.T),
		coerce.TryAllForMatching|coerce.ContextualConversion)
	if !res.Coerced {
		r.errorAt(uo, "cannot cast %s to %s", uo.Operands[0].Type().T, te.T)
		return nil
	}
	r.modified = true
	if res.NExpr != nil {
		return res.NExpr
	}
	c := &ast.Coerced{Inner: uo.Operands[0]}
	c.SetType(ast.QtConst(te.T))
	c.Base().Location = uo.Pos()
	return c
}

// ---------------------------------------------------------------------------
// Call resolution

// resolveCall handles Call(callee, args): type-constructor calls rewrite to
// ctors or casts; plain calls resolve against the visible function
// declarations.
func (r *Resolver) resolveCall(uo *ast.UnresolvedOperator) ast.Expression {
	if len(uo.Operands) != 2 {
		return nil
	}
	args, ok := uo.Operands[1].(*ast.TupleCtor)
	if !ok {
		return nil
	}

	// Type-constructor call: fold a constant argument into a ctor, rewrite
	// a non-constant one into a cast.
	if te, ok := uo.Operands[0].(*ast.TypeExpr); ok {
		if c, err := constfold.Fold(r.ctx, uo, 0); err == nil && c != nil {
			r.modified = true
			return c
		} else if err != nil {
			r.errorAt(uo, "%s", err)
			return nil
		}
		if len(args.Elements) == 1 {
			if args.Elements[0].Type() == nil {
				return nil
			}
			cast := &ast.UnresolvedOperator{Kind: ast.OpCast,
				Operands: []ast.Expression{args.Elements[0], te}}
			cast.Location = uo.Pos()
			r.ctx.Adopt(cast, args.Elements[0], te)
			r.modified = true
			return cast
		}
		return nil
	}

	callee, ok := uo.Operands[0].(*ast.Name)
	if !ok {
		return nil
	}
	for _, a := range args.Elements {
		if a.Type() == nil {
			return nil
		}
	}

	// Collect every function declaration with this ID through the scope
	// chain.
	var candidates []*ast.FunctionDecl
	for _, d := range r.ctx.LookupID(callee.ID, uo) {
		if fd, ok := d.(*ast.FunctionDecl); ok {
			candidates = append(candidates, fd)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	var matched []*ast.FunctionDecl
	for _, fd := range candidates {
		if r.matchFunctionParams(fd.FuncType, args) {
			matched = append(matched, fd)
		}
	}

	switch {
	case len(matched) == 1:
		return r.instantiateCall(uo, callee, matched[0], args)
	case len(matched) > 1:
		// Hooks legitimately have multiple definitions with identical
		// signatures; pick any.
		if allSameHook(matched) {
			return r.instantiateCall(uo, callee, matched[0], args)
		}
		r.errorAt(uo, "ambiguous call to %q", callee.ID)
		return nil
	default:
		return nil
	}
}

func allSameHook(fds []*ast.FunctionDecl) bool {
	for _, fd := range fds {
		if fd.FuncType.Flavor != ast.FlavorHook {
			return false
		}
		if fd.DeclID() != fds[0].DeclID() {
			return false
		}
		if len(fd.FuncType.Params) != len(fds[0].FuncType.Params) {
			return false
		}
	}
	return true
}

func (r *Resolver) matchFunctionParams(ft *ast.FunctionType, args *ast.TupleCtor) bool {
	required := 0
	for _, p := range ft.Params {
		if p.Default == nil {
			required++
		}
	}
	if len(args.Elements) < required || len(args.Elements) > len(ft.Params) {
		return false
	}
	for i, a := range args.Elements {
		p := ft.Params[i]
		if p.Ty == nil {
			continue
		}
		target := r.concrete(p.Ty.T)
		if target == nil {
			return false
		}
		res := coerce.Expression(r.ctx, a, &ast.QualifiedType{T: target, Constness: p.Ty.Constness}, coerce.TryAllForFunctionCall)
		if !res.Coerced {
			return false
		}
		if res.NExpr != nil {
			args.Elements[i] = res.NExpr
		}
	}
	return true
}

// instantiateCall builds the resolved call node for a matched function.
func (r *Resolver) instantiateCall(uo *ast.UnresolvedOperator, callee *ast.Name, fd *ast.FunctionDecl, args *ast.TupleCtor) ast.Expression {
	result := fd.FuncType.Result
	if result != nil {
		c := r.concrete(result.T)
		if c == nil {
			return nil
		}
		result = &ast.QualifiedType{T: c, Constness: result.Constness, Side: result.Side}
	}

	callee.Decl = fd.Index()
	callee.SetType(ast.QtConst(fd.FuncType))

	op := &operator.Operator{
		Name: "call " + string(fd.CanonicalID()),
		Sig: operator.Signature{
			Kind:   ast.OpCall,
			Result: result,
		},
	}
	r.modified = true
	return op.Instantiate(r.ctx, []ast.Expression{callee, args})
}
