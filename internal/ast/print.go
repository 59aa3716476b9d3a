package ast

import (
	"fmt"
	"strings"
)

// Print renders a deterministic, position-free s-expression form of a node,
// used for golden-snapshot tests and
// for diagnostics in the test-harness CLI. Positions are intentionally
// omitted so the snapshot is stable across incidental source reformatting.
func Print(n Node) string {
	var b strings.Builder
	print1(&b, n)
	return b.String()
}

// PrintProgram renders every top-level item, one per line.
func PrintProgram(p *Program) string {
	var b strings.Builder
	for _, it := range p.Items {
		b.WriteString(Print(it))
		b.WriteByte('\n')
	}
	return b.String()
}

func printExprs(b *strings.Builder, es []Expr) {
	b.WriteByte('[')
	for i, e := range es {
		if i > 0 {
			b.WriteByte(' ')
		}
		print1(b, e)
	}
	b.WriteByte(']')
}

func print1(b *strings.Builder, n Node) {
	if n == nil {
		b.WriteString("nil")
		return
	}
	switch v := n.(type) {
	case *ClassDef:
		fmt.Fprintf(b, "(class %s", v.Name)
		for _, s := range v.Supers {
			fmt.Fprintf(b, " :%s", s.String())
		}
		b.WriteByte(')')
	case *ModuleDef:
		fmt.Fprintf(b, "(module %s)", v.Name)
	case *EnumDef:
		fmt.Fprintf(b, "(enum %s", v.Name)
		for _, c := range v.Cases {
			fmt.Fprintf(b, " (case %s %d)", c.Name, len(c.Params))
		}
		b.WriteByte(')')
	case *ConstDef:
		fmt.Fprintf(b, "(const %s ", v.Name)
		print1(b, v.Value)
		b.WriteByte(')')
	case *MethodDef:
		recv := ""
		if v.IsClassMethod {
			recv = "self."
		}
		fmt.Fprintf(b, "(def %s%s(%d))", recv, v.Name, len(v.Params))
	case *IntLit:
		fmt.Fprintf(b, "%d", v.Value)
	case *FloatLit:
		fmt.Fprintf(b, "%g", v.Value)
	case *BoolLit:
		fmt.Fprintf(b, "%t", v.Value)
	case *StringLit:
		b.WriteString(`"`)
		for _, p := range v.Parts {
			if p.Expr != nil {
				b.WriteString("#{")
				print1(b, p.Expr)
				b.WriteString("}")
			} else {
				b.WriteString(p.Literal)
			}
		}
		b.WriteString(`"`)
	case *SelfExpr:
		b.WriteString("self")
	case *LVarRef:
		b.WriteString(v.Name)
	case *IVarRef:
		fmt.Fprintf(b, "@%s", v.Name)
	case *ConstRef:
		b.WriteString(strings.Join(v.Path, "::"))
	case *MethodCall:
		b.WriteString("(call ")
		if v.Recv != nil {
			print1(b, v.Recv)
			b.WriteByte(' ')
		}
		b.WriteString(v.Name)
		for _, a := range v.Args {
			b.WriteByte(' ')
			print1(b, a)
		}
		b.WriteByte(')')
	case *LambdaExpr:
		kind := "do"
		if v.IsFn {
			kind = "fn"
		}
		fmt.Fprintf(b, "(%s(%d) ", kind, len(v.Params))
		printExprs(b, v.Body)
		b.WriteByte(')')
	case *VarDecl:
		fmt.Fprintf(b, "(var %s ", v.Name)
		print1(b, v.Value)
		b.WriteByte(')')
	case *Assign:
		b.WriteString("(assign ")
		print1(b, v.Target)
		b.WriteByte(' ')
		print1(b, v.Value)
		b.WriteByte(')')
	case *IfExpr:
		b.WriteString("(if ")
		print1(b, v.Cond)
		b.WriteByte(' ')
		printExprs(b, v.Then)
		b.WriteByte(' ')
		printExprs(b, v.Else)
		b.WriteByte(')')
	case *WhileExpr:
		b.WriteString("(while ")
		print1(b, v.Cond)
		b.WriteByte(' ')
		printExprs(b, v.Body)
		b.WriteByte(')')
	case *BreakExpr:
		b.WriteString("(break")
		if v.Value != nil {
			b.WriteByte(' ')
			print1(b, v.Value)
		}
		b.WriteByte(')')
	case *ReturnExpr:
		b.WriteString("(return")
		if v.Value != nil {
			b.WriteByte(' ')
			print1(b, v.Value)
		}
		b.WriteByte(')')
	case *NotExpr:
		b.WriteString("(not ")
		print1(b, v.Operand)
		b.WriteByte(')')
	case *AndExpr:
		b.WriteString("(and ")
		print1(b, v.Left)
		b.WriteByte(' ')
		print1(b, v.Right)
		b.WriteByte(')')
	case *OrExpr:
		b.WriteString("(or ")
		print1(b, v.Left)
		b.WriteByte(' ')
		print1(b, v.Right)
		b.WriteByte(')')
	case *MatchExpr:
		b.WriteString("(match ")
		print1(b, v.Scrutinee)
		for _, c := range v.Clauses {
			b.WriteString(" (when ")
			printPattern(b, c.Pattern)
			b.WriteByte(' ')
			printExprs(b, c.Body)
			b.WriteByte(')')
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "<%T>", n)
	}
}

func printPattern(b *strings.Builder, p Pattern) {
	switch v := p.(type) {
	case *WildcardPattern:
		b.WriteString("_")
	case *VarPattern:
		b.WriteString(v.Name)
	case *LiteralPattern:
		print1(b, v.Value)
	case *ExtractorPattern:
		b.WriteString(strings.Join(v.Path, "::"))
		if len(v.Args) > 0 {
			b.WriteByte('(')
			for i, a := range v.Args {
				if i > 0 {
					b.WriteByte(',')
				}
				printPattern(b, a)
			}
			b.WriteByte(')')
		}
	default:
		fmt.Fprintf(b, "<%T>", p)
	}
}
