package codegen

import (
	"fmt"
	"strings"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/operator"
)

// ExprPrinter renders resolved expressions in IML concrete syntax.
type ExprPrinter struct {
	ctx *ast.Context
}

// Print renders one expression.
func (p *ExprPrinter) Print(e ast.Expression) string {
	switch t := e.(type) {
	case *ast.BoolCtor:
		if t.Value {
			return "True"
		}
		return "False"
	case *ast.IntCtor:
		return fmt.Sprintf("%d", t.Value)
	case *ast.UIntCtor:
		return fmt.Sprintf("%d", t.Value)
	case *ast.RealCtor:
		return fmt.Sprintf("%g", t.Value)
	case *ast.StringCtor:
		return fmt.Sprintf("%q", t.Value)
	case *ast.BytesCtor:
		return "b" + fmt.Sprintf("%q", string(t.Value))
	case *ast.RegExpCtor:
		parts := make([]string, len(t.Patterns))
		for i, pat := range t.Patterns {
			parts[i] = "/" + pat + "/"
		}
		return strings.Join(parts, " | ")
	case *ast.NullCtor:
		return "Null"
	case *ast.TupleCtor:
		return "(" + p.printList(t.Elements) + ")"
	case *ast.ListCtor:
		return "[" + p.printList(t.Elements) + "]"
	case *ast.VectorCtor:
		return "vector(" + p.printList(t.Elements) + ")"
	case *ast.SetCtor:
		return "set(" + p.printList(t.Elements) + ")"
	case *ast.MapCtor:
		parts := make([]string, len(t.Entries))
		for i, kv := range t.Entries {
			parts[i] = p.Print(kv.Key) + ": " + p.Print(kv.Value)
		}
		return "map(" + strings.Join(parts, ", ") + ")"
	case *ast.StructCtor:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = "$" + string(f.ID) + "=" + p.Print(f.Value)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ast.EnumCtor:
		return string(t.Label)
	case *ast.Name:
		return string(t.ID)
	case *ast.MemberExpr:
		return string(t.ID)
	case *ast.Keyword:
		switch t.Kind {
		case ast.KwDollarDollar:
			return ddName
		default:
			return "self"
		}
	case *ast.TypeExpr:
		return t.T.String()
	case *ast.Grouping:
		return "(" + p.Print(t.Inner) + ")"
	case *ast.Ternary:
		return fmt.Sprintf("%s ? %s : %s", p.Print(t.Cond), p.Print(t.True), p.Print(t.False))
	case *ast.LogicalAnd:
		return p.Print(t.Op0) + " && " + p.Print(t.Op1)
	case *ast.LogicalOr:
		return p.Print(t.Op0) + " || " + p.Print(t.Op1)
	case *ast.LogicalNot:
		return "!" + p.Print(t.Op)
	case *ast.Assign:
		return p.Print(t.Target) + " = " + p.Print(t.Value)
	case *ast.Coerced:
		return fmt.Sprintf("cast<%s>(%s)", t.Type().T, p.Print(t.Inner))
	case *ast.Deref:
		return "(*" + p.Print(t.Inner) + ")"
	case *ast.AttributeNotSetExpr:
		return fmt.Sprintf("hilti::attribute_not_set(%q)", string(t.Field))
	case *operator.ResolvedOperator:
		return p.printOperator(t)
	case *ast.UnresolvedOperator:
		// Unresolved operators never reach codegen for valid programs.
		return "<unresolved>"
	}
	return e.String()
}

func (p *ExprPrinter) printList(exprs []ast.Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = p.Print(e)
	}
	return strings.Join(parts, ", ")
}

func (p *ExprPrinter) printOperator(e *operator.ResolvedOperator) string {
	ops := e.Operands
	bin := func(sym string) string {
		return fmt.Sprintf("%s %s %s", p.Print(ops[0]), sym, p.Print(ops[1]))
	}
	switch e.Op.Kind() {
	case ast.OpSum:
		return bin("+")
	case ast.OpDifference:
		return bin("-")
	case ast.OpMultiple:
		return bin("*")
	case ast.OpDivision:
		return bin("/")
	case ast.OpModulo:
		return bin("%")
	case ast.OpPower:
		return bin("**")
	case ast.OpBitAnd:
		return bin("&")
	case ast.OpBitOr:
		return bin("|")
	case ast.OpBitXor:
		return bin("^")
	case ast.OpShiftLeft:
		return bin("<<")
	case ast.OpShiftRight:
		return bin(">>")
	case ast.OpEqual:
		return bin("==")
	case ast.OpUnequal:
		return bin("!=")
	case ast.OpLower:
		return bin("<")
	case ast.OpLowerEqual:
		return bin("<=")
	case ast.OpGreater:
		return bin(">")
	case ast.OpGreaterEqual:
		return bin(">=")
	case ast.OpIn:
		return bin("in")
	case ast.OpSumAssign:
		return bin("+=")
	case ast.OpDifferenceAssign:
		return bin("-=")
	case ast.OpSignNeg:
		return "-" + p.Print(ops[0])
	case ast.OpSignPos:
		return "+" + p.Print(ops[0])
	case ast.OpSize:
		return "|" + p.Print(ops[0]) + "|"
	case ast.OpDeref:
		return "(*" + p.Print(ops[0]) + ")"
	case ast.OpBegin:
		return "begin(" + p.Print(ops[0]) + ")"
	case ast.OpEnd:
		return "end(" + p.Print(ops[0]) + ")"
	case ast.OpNew:
		return "new " + p.Print(ops[0])
	case ast.OpMember:
		return p.Print(ops[0]) + "." + p.Print(ops[1])
	case ast.OpTryMember:
		return p.Print(ops[0]) + ".?" + p.Print(ops[1])
	case ast.OpHasMember:
		return p.Print(ops[0]) + "?." + p.Print(ops[1])
	case ast.OpUnset:
		return "unset " + p.Print(ops[0]) + "." + p.Print(ops[1])
	case ast.OpIndex:
		return p.Print(ops[0]) + "[" + p.Print(ops[1]) + "]"
	case ast.OpIndexAssign:
		return p.Print(ops[0]) + "[" + p.Print(ops[1]) + "] = " + p.Print(ops[2])
	case ast.OpIncrPre:
		return "++" + p.Print(ops[0])
	case ast.OpIncrPost:
		return p.Print(ops[0]) + "++"
	case ast.OpDecrPre:
		return "--" + p.Print(ops[0])
	case ast.OpDecrPost:
		return p.Print(ops[0]) + "--"
	case ast.OpCast:
		return fmt.Sprintf("cast<%s>(%s)", p.Print(ops[1]), p.Print(ops[0]))
	case ast.OpPack:
		return "pack" + p.Print(ops[0])
	case ast.OpUnpack:
		return fmt.Sprintf("unpack<%s>%s", p.Print(ops[0]), p.Print(ops[1]))
	case ast.OpCall:
		return p.Print(ops[0]) + p.Print(ops[1])
	case ast.OpMemberCall:
		return p.Print(ops[0]) + "." + p.Print(ops[1]) + p.Print(ops[2])
	}
	return e.String()
}
