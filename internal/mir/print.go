package mir

import (
	"fmt"
	"strings"
)

// PrintProgram renders a deterministic, position-free text form of a MIR
// program, used for golden-snapshot tests and the harness CLI's `mir`
// subcommand.
func PrintProgram(p *Program) string {
	var b strings.Builder
	for _, c := range p.Classes {
		fmt.Fprintf(&b, "class %s", c.Name)
		for _, iv := range c.Ivars {
			fmt.Fprintf(&b, " %s:%s", iv.Name, iv.Ty)
		}
		b.WriteByte('\n')
	}
	for _, e := range p.Externs {
		fmt.Fprintf(&b, "extern %s: %s\n", e.Name, e.FunTy.String())
	}
	for i, s := range p.StringLiterals {
		fmt.Fprintf(&b, "string %d: %q\n", i, s)
	}
	for _, f := range p.Funcs {
		b.WriteString(PrintFunction(f))
	}
	return b.String()
}

// PrintFunction renders one function, one statement per line.
func PrintFunction(f *Function) string {
	var b strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Name, p.Ty)
	}
	fmt.Fprintf(&b, "fun[%s] %s(%s) -> %s\n", f.Asyncness, f.Name, strings.Join(params, ", "), f.RetTy)
	if f.Body != nil {
		for _, e := range f.Body.Exprs {
			printExpr(&b, e, 1)
		}
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

// printExpr writes e at the given indentation; control flow gets nested
// blocks, everything else a single line.
func printExpr(b *strings.Builder, e Expr, depth int) {
	switch n := e.(type) {
	case *If:
		indent(b, depth)
		fmt.Fprintf(b, "if %s {\n", inline(n.Cond))
		printBlock(b, n.Then, depth+1)
		indent(b, depth)
		b.WriteString("} else {\n")
		printBlock(b, n.Else, depth+1)
		indent(b, depth)
		b.WriteString("}\n")
	case *While:
		indent(b, depth)
		fmt.Fprintf(b, "while %s {\n", inline(n.Cond))
		printBlock(b, n.Body, depth+1)
		indent(b, depth)
		b.WriteString("}\n")
	case *Exprs:
		for _, sub := range n.Exprs {
			printExpr(b, sub, depth)
		}
	default:
		indent(b, depth)
		b.WriteString(inline(e))
		b.WriteByte('\n')
	}
}

func printBlock(b *strings.Builder, es *Exprs, depth int) {
	if es == nil {
		return
	}
	for _, e := range es.Exprs {
		printExpr(b, e, depth)
	}
}

// inline renders an expression on one line.
func inline(e Expr) string {
	switch n := e.(type) {
	case *Number:
		if n.IsFloat {
			return fmt.Sprintf("%g", n.FVal)
		}
		return fmt.Sprintf("%d", n.Value)
	case *StringRef:
		return fmt.Sprintf("str(%d)", n.Idx)
	case *PseudoVar:
		switch n.Kind {
		case PseudoTrue:
			return "true"
		case PseudoFalse:
			return "false"
		case PseudoVoid:
			return "void"
		default:
			return "self"
		}
	case *LVarRef:
		return n.Name
	case *LVarSet:
		return fmt.Sprintf("%s = %s", n.Name, inline(n.Value))
	case *IVarRef:
		return fmt.Sprintf("%s.ivar%d", inline(n.Receiver), n.Idx)
	case *IVarSet:
		return fmt.Sprintf("%s.ivar%d = %s", inline(n.Receiver), n.Idx, inline(n.Value))
	case *ArgRef:
		return fmt.Sprintf("%%%s", n.Name)
	case *ConstRef:
		return string(n.Name)
	case *ConstSet:
		return fmt.Sprintf("%s = %s", n.Name, inline(n.Value))
	case *EnvRef:
		return fmt.Sprintf("env[%d]", n.Slot)
	case *EnvSet:
		return fmt.Sprintf("env[%d] = %s", n.Slot, inline(n.Value))
	case *FuncRef:
		return fmt.Sprintf("&%s", n.Name)
	case *VTableRef:
		return fmt.Sprintf("vtable(%s, %s, %d)", inline(n.Receiver), n.Class, n.Slot)
	case *WTableRef:
		return fmt.Sprintf("wtable(%s, %s, %d)", inline(n.Receiver), n.Module, n.Slot)
	case *FunCall:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = inline(a)
		}
		return fmt.Sprintf("%s(%s)", inline(n.Callee), strings.Join(args, ", "))
	case *If:
		return fmt.Sprintf("if %s then %s else %s", inline(n.Cond), inlineBlock(n.Then), inlineBlock(n.Else))
	case *While:
		return fmt.Sprintf("while %s do %s", inline(n.Cond), inlineBlock(n.Body))
	case *Break:
		return "break"
	case *Alloc:
		return fmt.Sprintf("alloc %s: %s", n.Name, n.Ty())
	case *Return:
		return fmt.Sprintf("return %s", inline(n.Value))
	case *Exprs:
		return inlineBlock(n)
	case *Cast:
		return fmt.Sprintf("cast[%s, %s](%s)", n.Kind, n.Ty(), inline(n.Expr))
	case *CreateObject:
		return fmt.Sprintf("new %s", n.ClassName)
	case *CreateTypeObject:
		return fmt.Sprintf("class %s", n.ClassName)
	case *UnboxInt:
		return fmt.Sprintf("unbox(%s)", inline(n.Expr))
	case *RawI64:
		return fmt.Sprintf("i64(%d)", n.Value)
	case *Nop:
		return "nop"
	default:
		return fmt.Sprintf("?%T", e)
	}
}

func inlineBlock(es *Exprs) string {
	if es == nil {
		return "{}"
	}
	parts := make([]string, len(es.Exprs))
	for i, e := range es.Exprs {
		parts[i] = inline(e)
	}
	return "{" + strings.Join(parts, "; ") + "}"
}
