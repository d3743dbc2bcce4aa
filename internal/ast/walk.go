package ast

// ChildProvider lets node types defined outside this package expose their
// children to the traversal helpers.
type ChildProvider interface {
	ChildNodes() []Node
}

// SlotProvider lets node types defined outside this package expose their
// expression slots for rewriting.
type SlotProvider interface {
	ExprSlots() []*Expression
}

// EachChild invokes f for every direct child node of n. Traversal helpers
// build on this; the per-type switch is the single place that knows every
// node's shape.
func EachChild(n Node, f func(Node)) {
	visit := func(c Node) {
		if c != nil {
			f(c)
		}
	}
	visitE := func(e Expression) {
		if e != nil {
			f(e)
		}
	}
	visitS := func(s Statement) {
		if s != nil {
			f(s)
		}
	}
	visitQ := func(q *QualifiedType) {
		if q != nil && q.T != nil {
			f(q.T)
		}
	}
	visitAttrs := func(a *AttributeSet) {
		if a == nil {
			return
		}
		for _, at := range a.Attributes {
			visitE(at.Value)
		}
	}

	switch t := n.(type) {
	case *ASTRoot:
		for _, m := range t.Modules {
			visit(m)
		}
	case *Module:
		for _, p := range t.Properties {
			visit(p)
		}
		for _, d := range t.Declarations {
			visit(d)
		}
		for _, h := range t.Hooks {
			visit(h)
		}
		for _, s := range t.Statements {
			visitS(s)
		}

	// Declarations
	case *ConstantDecl:
		visitQ(t.Ty)
		visitE(t.Value)
	case *GlobalVarDecl:
		visitQ(t.Ty)
		visitE(t.Init)
	case *LocalVarDecl:
		visitQ(t.Ty)
		visitE(t.Init)
	case *ParameterDecl:
		visitQ(t.Ty)
		visitE(t.Default)
	case *FunctionDecl:
		visit(t.FuncType)
		visitAttrs(t.Attributes)
		if t.Body != nil {
			visit(t.Body)
		}
	case *TypeDecl:
		visit(t.Type)
		visitAttrs(t.Attributes)
	case *ImportedModule:
	case *PropertyDecl:
		visitE(t.Value)
	case *FieldDecl:
		visitQ(t.Ty)
		visitE(t.Default)
		visitAttrs(t.Attributes)

	// Types
	case *TupleType:
		for _, e := range t.Elements {
			visitQ(e.Ty)
		}
	case *StructType:
		for _, fd := range t.Fields {
			visit(fd)
		}
	case *UnionType:
		for _, fd := range t.Fields {
			visit(fd)
		}
	case *OptionalType:
		visitQ(t.Elem)
	case *ResultType:
		visitQ(t.Elem)
	case *VectorType:
		visitQ(t.Elem)
	case *ListType:
		visitQ(t.Elem)
	case *SetType:
		visitQ(t.Elem)
	case *MapType:
		visitQ(t.Key)
		visitQ(t.Value)
	case *StrongRefType:
		visitQ(t.Elem)
	case *WeakRefType:
		visitQ(t.Elem)
	case *ValueRefType:
		visitQ(t.Elem)
	case *FunctionType:
		for _, p := range t.Params {
			visit(p)
		}
		visitQ(t.Result)
	case *UnitType:
		for _, p := range t.Parameters {
			visit(p)
		}
		for _, it := range t.Items {
			visit(it)
		}
	case *BitfieldType:
		for _, b := range t.Bits {
			visitAttrs(b.Attrs)
		}

	// Unit items
	case *UnitField:
		if t.OrigType != nil {
			visit(t.OrigType)
		}
		visitE(t.Ctor)
		if t.Inner != nil {
			visit(t.Inner)
		}
		visitE(t.RepeatCount)
		for _, a := range t.Arguments {
			visitE(a)
		}
		for _, s := range t.Sinks {
			visitE(s)
		}
		visitAttrs(t.Attrs)
		visitE(t.Condition)
		for _, h := range t.Hooks {
			visit(h)
		}
	case *UnitVariable:
		visitQ(t.Ty)
		visitE(t.Default)
		visitAttrs(t.Attrs)
	case *UnitSink:
	case *UnitProperty:
		visitE(t.Value)
	case *UnitSwitch:
		visitE(t.Cond)
		for _, c := range t.Cases {
			visit(c)
		}
		visitAttrs(t.Attrs)
	case *UnitSwitchCase:
		for _, e := range t.Exprs {
			visitE(e)
		}
		for _, fd := range t.Fields {
			visit(fd)
		}
	case *UnitHook:
		for _, p := range t.Params {
			visit(p)
		}
		visitQ(t.Result)
		if t.Body != nil {
			visit(t.Body)
		}
	case *UnresolvedField:
		visitAttrs(t.Attrs)
		for _, h := range t.Hooks {
			visit(h)
		}

	// Statements
	case *Block:
		for _, s := range t.Statements {
			visitS(s)
		}
	case *ExpressionStatement:
		visitE(t.Expr)
	case *DeclarationStatement:
		visit(t.Decl)
	case *If:
		if t.Init != nil {
			visit(t.Init)
		}
		visitE(t.Cond)
		visitS(t.Then)
		visitS(t.Else)
	case *While:
		visitE(t.Cond)
		visitS(t.Body)
	case *For:
		visit(t.Var)
		visitE(t.Seq)
		visitS(t.Body)
	case *Switch:
		visitE(t.Cond)
		for _, c := range t.Cases {
			visit(c)
		}
	case *SwitchCase:
		for _, e := range t.Exprs {
			visitE(e)
		}
		visitS(t.Body)
	case *Try:
		visitS(t.Body)
		for _, c := range t.Catches {
			visit(c)
		}
	case *Catch:
		if t.Param != nil {
			visit(t.Param)
		}
		visitS(t.Body)
	case *Throw:
		visitE(t.Expr)
	case *Return:
		visitE(t.Expr)
	case *Assert:
		visitE(t.Cond)
		visitE(t.Msg)
	case *Print:
		for _, e := range t.Exprs {
			visitE(e)
		}

	// Expressions
	case *Grouping:
		visitE(t.Inner)
	case *Ternary:
		visitE(t.Cond)
		visitE(t.True)
		visitE(t.False)
	case *LogicalAnd:
		visitE(t.Op0)
		visitE(t.Op1)
	case *LogicalOr:
		visitE(t.Op0)
		visitE(t.Op1)
	case *LogicalNot:
		visitE(t.Op)
	case *Assign:
		visitE(t.Target)
		visitE(t.Value)
	case *UnresolvedOperator:
		for _, o := range t.Operands {
			visitE(o)
		}
	case *Coerced:
		visitE(t.Inner)
	case *Deref:
		visitE(t.Inner)
	case *ListComprehension:
		visitE(t.Output)
		visit(t.Var)
		visitE(t.Input)
		visitE(t.Cond)

	// Ctors
	case *OptionalCtor:
		visitE(t.Value)
	case *ListCtor:
		for _, e := range t.Elements {
			visitE(e)
		}
	case *VectorCtor:
		for _, e := range t.Elements {
			visitE(e)
		}
	case *SetCtor:
		for _, e := range t.Elements {
			visitE(e)
		}
	case *MapCtor:
		for _, e := range t.Entries {
			visitE(e.Key)
			visitE(e.Value)
		}
	case *TupleCtor:
		for _, e := range t.Elements {
			visitE(e)
		}
	case *StructCtor:
		for _, fld := range t.Fields {
			visitE(fld.Value)
		}
	case *BitfieldCtor:
		for _, b := range t.Bits {
			visitE(b.Value)
		}

	default:
		if cp, ok := n.(ChildProvider); ok {
			for _, c := range cp.ChildNodes() {
				visit(c)
			}
		}
	}
}

// Walk visits n and all its descendants in pre-order. f returning false
// prunes the subtree.
func Walk(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	EachChild(n, func(c Node) { Walk(c, f) })
}

// RewriteExprs applies f to every expression slot under n, bottom-up,
// assigning the result back into the parent. f receives the current
// expression and returns its (possibly new) replacement.
func RewriteExprs(ctx *Context, n Node, f func(Expression) Expression) {
	rewrite := func(slot *Expression) {
		if *slot == nil {
			return
		}
		RewriteExprs(ctx, *slot, f)
		if ne := f(*slot); ne != nil && ne != *slot {
			ctx.MarkReplaced(*slot, ne)
			*slot = ne
		}
	}
	rewriteList := func(list []Expression) {
		for i := range list {
			rewrite(&list[i])
		}
	}
	rewriteAttrs := func(a *AttributeSet) {
		if a == nil {
			return
		}
		for _, at := range a.Attributes {
			rewrite(&at.Value)
		}
	}

	switch t := n.(type) {
	case *ASTRoot:
		for _, m := range t.Modules {
			RewriteExprs(ctx, m, f)
		}
	case *Module:
		for _, p := range t.Properties {
			rewrite(&p.Value)
		}
		for _, d := range t.Declarations {
			RewriteExprs(ctx, d, f)
		}
		for _, h := range t.Hooks {
			RewriteExprs(ctx, h, f)
		}
		for i := range t.Statements {
			RewriteExprs(ctx, t.Statements[i], f)
		}
	case *ConstantDecl:
		rewrite(&t.Value)
	case *GlobalVarDecl:
		rewrite(&t.Init)
	case *LocalVarDecl:
		rewrite(&t.Init)
	case *ParameterDecl:
		rewrite(&t.Default)
	case *FunctionDecl:
		if t.FuncType != nil {
			RewriteExprs(ctx, t.FuncType, f)
		}
		rewriteAttrs(t.Attributes)
		if t.Body != nil {
			RewriteExprs(ctx, t.Body, f)
		}
	case *TypeDecl:
		RewriteExprs(ctx, t.Type, f)
		rewriteAttrs(t.Attributes)
	case *PropertyDecl:
		rewrite(&t.Value)
	case *FieldDecl:
		rewrite(&t.Default)
		rewriteAttrs(t.Attributes)
	case *FunctionType:
		for _, p := range t.Params {
			rewrite(&p.Default)
		}
	case *StructType:
		for _, fd := range t.Fields {
			RewriteExprs(ctx, fd, f)
		}
	case *UnionType:
		for _, fd := range t.Fields {
			RewriteExprs(ctx, fd, f)
		}
	case *UnitType:
		for _, p := range t.Parameters {
			rewrite(&p.Default)
		}
		for _, it := range t.Items {
			RewriteExprs(ctx, it, f)
		}
	case *BitfieldType:
		for _, b := range t.Bits {
			rewriteAttrs(b.Attrs)
		}
	case *UnitField:
		rewrite(&t.Ctor)
		if t.Inner != nil {
			RewriteExprs(ctx, t.Inner, f)
		}
		rewrite(&t.RepeatCount)
		rewriteList(t.Arguments)
		rewriteList(t.Sinks)
		rewriteAttrs(t.Attrs)
		rewrite(&t.Condition)
		for _, h := range t.Hooks {
			RewriteExprs(ctx, h, f)
		}
	case *UnitVariable:
		rewrite(&t.Default)
		rewriteAttrs(t.Attrs)
	case *UnitProperty:
		rewrite(&t.Value)
	case *UnitSwitch:
		rewrite(&t.Cond)
		for _, c := range t.Cases {
			RewriteExprs(ctx, c, f)
		}
		rewriteAttrs(t.Attrs)
	case *UnitSwitchCase:
		rewriteList(t.Exprs)
		for _, fd := range t.Fields {
			RewriteExprs(ctx, fd, f)
		}
	case *UnitHook:
		for _, p := range t.Params {
			rewrite(&p.Default)
		}
		if t.Body != nil {
			RewriteExprs(ctx, t.Body, f)
		}
	case *UnresolvedField:
		rewriteAttrs(t.Attrs)
		for _, h := range t.Hooks {
			RewriteExprs(ctx, h, f)
		}
	case *Block:
		for i := range t.Statements {
			RewriteExprs(ctx, t.Statements[i], f)
		}
	case *ExpressionStatement:
		rewrite(&t.Expr)
	case *DeclarationStatement:
		RewriteExprs(ctx, t.Decl, f)
	case *If:
		if t.Init != nil {
			rewrite(&t.Init.Init)
		}
		rewrite(&t.Cond)
		if t.Then != nil {
			RewriteExprs(ctx, t.Then, f)
		}
		if t.Else != nil {
			RewriteExprs(ctx, t.Else, f)
		}
	case *While:
		rewrite(&t.Cond)
		if t.Body != nil {
			RewriteExprs(ctx, t.Body, f)
		}
	case *For:
		rewrite(&t.Seq)
		if t.Body != nil {
			RewriteExprs(ctx, t.Body, f)
		}
	case *Switch:
		rewrite(&t.Cond)
		for _, c := range t.Cases {
			rewriteList(c.Exprs)
			if c.Body != nil {
				RewriteExprs(ctx, c.Body, f)
			}
		}
	case *Try:
		if t.Body != nil {
			RewriteExprs(ctx, t.Body, f)
		}
		for _, c := range t.Catches {
			if c.Body != nil {
				RewriteExprs(ctx, c.Body, f)
			}
		}
	case *Throw:
		rewrite(&t.Expr)
	case *Return:
		rewrite(&t.Expr)
	case *Assert:
		rewrite(&t.Cond)
		rewrite(&t.Msg)
	case *Print:
		rewriteList(t.Exprs)

	// Expressions: rewrite nested slots only; the caller's f sees the node
	// itself through its parent's slot.
	case *Grouping:
		rewrite(&t.Inner)
	case *Ternary:
		rewrite(&t.Cond)
		rewrite(&t.True)
		rewrite(&t.False)
	case *LogicalAnd:
		rewrite(&t.Op0)
		rewrite(&t.Op1)
	case *LogicalOr:
		rewrite(&t.Op0)
		rewrite(&t.Op1)
	case *LogicalNot:
		rewrite(&t.Op)
	case *Assign:
		rewrite(&t.Target)
		rewrite(&t.Value)
	case *UnresolvedOperator:
		rewriteList(t.Operands)
	case *Coerced:
		rewrite(&t.Inner)
	case *Deref:
		rewrite(&t.Inner)
	case *ListComprehension:
		rewrite(&t.Output)
		rewrite(&t.Input)
		rewrite(&t.Cond)
	case *OptionalCtor:
		rewrite(&t.Value)
	case *ListCtor:
		rewriteList(t.Elements)
	case *VectorCtor:
		rewriteList(t.Elements)
	case *SetCtor:
		rewriteList(t.Elements)
	case *MapCtor:
		for i := range t.Entries {
			rewrite(&t.Entries[i].Key)
			rewrite(&t.Entries[i].Value)
		}
	case *TupleCtor:
		rewriteList(t.Elements)
	case *StructCtor:
		for _, fld := range t.Fields {
			rewrite(&fld.Value)
		}
	case *BitfieldCtor:
		for _, b := range t.Bits {
			rewrite(&b.Value)
		}

	default:
		if sp, ok := n.(SlotProvider); ok {
			for _, slot := range sp.ExprSlots() {
				rewrite(slot)
			}
		}
	}
}
