package parser

import (
	"testing"

	"github.com/shiika-lang/shiika-go/internal/ast"
)

func parseExpr(t *testing.T, src string) ast.Expr {
	t.Helper()
	p := New([]byte(src), "t.sk")
	e, err := p.parseExpr()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return e
}

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New([]byte(src), "t.sk")
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestClassDefWithSupers(t *testing.T) {
	prog := parseProgram(t, "class Dog : Animal, Barks\nend")
	if len(prog.Items) != 1 {
		t.Fatalf("got %d items", len(prog.Items))
	}
	cd, ok := prog.Items[0].(*ast.ClassDef)
	if !ok {
		t.Fatalf("got %T", prog.Items[0])
	}
	if cd.Name != "Dog" || len(cd.Supers) != 2 {
		t.Fatalf("got %+v", cd)
	}
	if cd.Supers[0].Path[0] != "Animal" || cd.Supers[1].Path[0] != "Barks" {
		t.Fatalf("supers out of order: %+v", cd.Supers)
	}
}

func TestModuleRejectsSuperclass(t *testing.T) {
	p := New([]byte("module M : Foo\nend"), "t.sk")
	_, err := p.ParseProgram()
	if err == nil || err.Code != "PAR006" {
		t.Fatalf("expected PAR006, got %v", err)
	}
}

func TestEnumCases(t *testing.T) {
	prog := parseProgram(t, "enum Opt<T>\ncase None\ncase Some(v: T)\nend")
	ed, ok := prog.Items[0].(*ast.EnumDef)
	if !ok {
		t.Fatalf("got %T", prog.Items[0])
	}
	if len(ed.TyParams) != 1 || ed.TyParams[0].Name != "T" {
		t.Fatalf("got %+v", ed.TyParams)
	}
	if len(ed.Cases) != 2 || ed.Cases[0].Name != "None" || ed.Cases[1].Name != "Some" {
		t.Fatalf("got %+v", ed.Cases)
	}
	if len(ed.Cases[1].Params) != 1 || ed.Cases[1].Params[0].Name != "v" {
		t.Fatalf("got %+v", ed.Cases[1].Params)
	}
}

func TestVarianceAnnotations(t *testing.T) {
	prog := parseProgram(t, "class Box<in T, out U>\nend")
	cd := prog.Items[0].(*ast.ClassDef)
	if cd.TyParams[0].Variance != "in" || cd.TyParams[1].Variance != "out" {
		t.Fatalf("got %+v", cd.TyParams)
	}
}

func TestDuplicateTypeParamRejected(t *testing.T) {
	p := New([]byte("class Box<T, T>\nend"), "t.sk")
	_, err := p.ParseProgram()
	if err == nil || err.Code != "PAR004" {
		t.Fatalf("expected PAR004, got %v", err)
	}
}

func TestMissingEndReportsPAR001(t *testing.T) {
	p := New([]byte("class Foo"), "t.sk")
	_, err := p.ParseProgram()
	if err == nil || err.Code != "PAR001" {
		t.Fatalf("expected PAR001, got %v", err)
	}
}

func TestInitializeIvarSugarPrependsAssigns(t *testing.T) {
	prog := parseProgram(t, "class Point\ndef initialize(@x: Int, y: Int)\nend\nend")
	cd := prog.Items[0].(*ast.ClassDef)
	md, ok := cd.Body[0].(*ast.MethodDef)
	if !ok {
		t.Fatalf("got %T", cd.Body[0])
	}
	if len(md.Body) != 1 {
		t.Fatalf("expected 1 synthesized statement, got %d: %+v", len(md.Body), md.Body)
	}
	assign, ok := md.Body[0].(*ast.Assign)
	if !ok {
		t.Fatalf("got %T", md.Body[0])
	}
	target, ok := assign.Target.(*ast.IVarRef)
	if !ok || target.Name != "x" {
		t.Fatalf("got %+v", assign.Target)
	}
	val, ok := assign.Value.(*ast.LVarRef)
	if !ok || val.Name != "x" {
		t.Fatalf("got %+v", assign.Value)
	}
}

func TestSetterArityRejected(t *testing.T) {
	p := New([]byte("class Foo\ndef name=(a, b)\nend\nend"), "t.sk")
	_, err := p.ParseProgram()
	if err == nil || err.Code != "PAR005" {
		t.Fatalf("expected PAR005, got %v", err)
	}
}

func TestSymbolicMethodNames(t *testing.T) {
	prog := parseProgram(t, "class Vec\ndef +@\nend\ndef [](i: Int) -> Int\nend\ndef []=(i: Int, v: Int)\nend\nend")
	cd := prog.Items[0].(*ast.ClassDef)
	if len(cd.Body) != 3 {
		t.Fatalf("got %d methods", len(cd.Body))
	}
	names := []string{}
	for _, b := range cd.Body {
		names = append(names, b.(*ast.MethodDef).Name)
	}
	if names[0] != "+@" || names[1] != "[]" || names[2] != "[]=" {
		t.Fatalf("got %v", names)
	}
}

func TestClassMethodDef(t *testing.T) {
	prog := parseProgram(t, "class Foo\ndef self.make\nend\nend")
	cd := prog.Items[0].(*ast.ClassDef)
	md := cd.Body[0].(*ast.MethodDef)
	if !md.IsClassMethod || md.Name != "make" {
		t.Fatalf("got %+v", md)
	}
}

func TestRequirementMethodHasNoBody(t *testing.T) {
	prog := parseProgram(t, "module Greets\nrequirement def name -> String\nend")
	mod := prog.Items[0].(*ast.ModuleDef)
	md := mod.Body[0].(*ast.MethodDef)
	if !md.IsRequirement || md.Body != nil {
		t.Fatalf("got %+v", md)
	}
}

func TestBinaryOperatorsDesugarToMethodCalls(t *testing.T) {
	e := parseExpr(t, "1 + 2 * 3")
	add, ok := e.(*ast.MethodCall)
	if !ok || add.Name != "+" {
		t.Fatalf("got %T %+v", e, e)
	}
	lhs, ok := add.Recv.(*ast.IntLit)
	if !ok || lhs.Value != 1 {
		t.Fatalf("got %+v", add.Recv)
	}
	rhs, ok := add.Args[0].(*ast.MethodCall)
	if !ok || rhs.Name != "*" {
		t.Fatalf("got %+v", add.Args[0])
	}
}

func TestUnaryMinusVsBinaryMinus(t *testing.T) {
	e := parseExpr(t, "-x")
	neg, ok := e.(*ast.MethodCall)
	if !ok || neg.Name != "-@" {
		t.Fatalf("got %T %+v", e, e)
	}
	if _, ok := neg.Recv.(*ast.LVarRef); !ok {
		t.Fatalf("got %+v", neg.Recv)
	}

	e2 := parseExpr(t, "x - 1")
	sub, ok := e2.(*ast.MethodCall)
	if !ok || sub.Name != "-" {
		t.Fatalf("got %T %+v", e2, e2)
	}
}

func TestRelationalAndEqualityPrecedence(t *testing.T) {
	e := parseExpr(t, "a < b == c")
	eq, ok := e.(*ast.MethodCall)
	if !ok || eq.Name != "==" {
		t.Fatalf("got %T %+v", e, e)
	}
	lt, ok := eq.Recv.(*ast.MethodCall)
	if !ok || lt.Name != "<" {
		t.Fatalf("got %+v", eq.Recv)
	}
}

func TestAndOrNotPrecedence(t *testing.T) {
	e := parseExpr(t, "a and not b or c")
	or, ok := e.(*ast.OrExpr)
	if !ok {
		t.Fatalf("got %T", e)
	}
	and, ok := or.Left.(*ast.AndExpr)
	if !ok {
		t.Fatalf("got %T", or.Left)
	}
	if _, ok := and.Right.(*ast.NotExpr); !ok {
		t.Fatalf("got %T", and.Right)
	}
}

func TestSetterRewriteOnAssignment(t *testing.T) {
	e := parseExpr(t, "p.x = 1")
	assign, ok := e.(*ast.Assign)
	if !ok {
		t.Fatalf("got %T", e)
	}
	call, ok := assign.Target.(*ast.MethodCall)
	if !ok || call.Name != "x=" {
		t.Fatalf("got %+v", assign.Target)
	}
}

func TestInvalidAssignmentTargetRejected(t *testing.T) {
	p := New([]byte("1 = 2"), "t.sk")
	_, err := p.parseExpr()
	if err == nil || err.Code != "PAR002" {
		t.Fatalf("expected PAR002, got %v", err)
	}
}

func TestParenlessCall(t *testing.T) {
	e := parseExpr(t, "puts 1, 2")
	call, ok := e.(*ast.MethodCall)
	if !ok || call.Name != "puts" || call.HasParens {
		t.Fatalf("got %T %+v", e, e)
	}
	if len(call.Args) != 2 {
		t.Fatalf("got %d args", len(call.Args))
	}
}

func TestParenlessCallBacktracksToLVarRef(t *testing.T) {
	// "x\nend" — `x` alone, followed by a newline the parser already
	// skips, then `end` which cannot start an argument list; must fall
	// back to a bare LVarRef rather than misparsing as a call.
	e := parseExpr(t, "x\nend")
	if _, ok := e.(*ast.LVarRef); !ok {
		t.Fatalf("got %T", e)
	}
}

func TestNoSpaceBeforeArgsIsNotParenlessCall(t *testing.T) {
	// "x-1" with no space before `-` is a binary subtraction of `x` and
	// `1`, not `x` called with argument `-1`.
	e := parseExpr(t, "x-1")
	call, ok := e.(*ast.MethodCall)
	if !ok || call.Name != "-" {
		t.Fatalf("got %T %+v", e, e)
	}
}

func TestStringInterpolation(t *testing.T) {
	e := parseExpr(t, `"a #{1 + 2} b"`)
	lit, ok := e.(*ast.StringLit)
	if !ok {
		t.Fatalf("got %T", e)
	}
	if len(lit.Parts) != 3 {
		t.Fatalf("got %d parts: %+v", len(lit.Parts), lit.Parts)
	}
	if lit.Parts[0].Literal != "a " || lit.Parts[2].Literal != " b" {
		t.Fatalf("got %+v", lit.Parts)
	}
	call, ok := lit.Parts[1].Expr.(*ast.MethodCall)
	if !ok || call.Name != "+" {
		t.Fatalf("got %+v", lit.Parts[1].Expr)
	}
}

func TestStringWithoutInterpolation(t *testing.T) {
	e := parseExpr(t, `"plain"`)
	lit, ok := e.(*ast.StringLit)
	if !ok || len(lit.Parts) != 1 || lit.Parts[0].Literal != "plain" {
		t.Fatalf("got %+v", e)
	}
}

func TestNestedGenericTypeArgs(t *testing.T) {
	prog := parseProgram(t, "class Foo\ndef m(a: Array<Array<Int>>)\nend\nend")
	cd := prog.Items[0].(*ast.ClassDef)
	md := cd.Body[0].(*ast.MethodDef)
	pt := md.Params[0].Type
	if pt.Path[0] != "Array" || len(pt.Args) != 1 {
		t.Fatalf("got %+v", pt)
	}
	inner := pt.Args[0]
	if inner.Path[0] != "Array" || len(inner.Args) != 1 || inner.Args[0].Path[0] != "Int" {
		t.Fatalf("got %+v", inner)
	}
}

func TestIfElsifElse(t *testing.T) {
	e := parseExpr(t, "if a\n1\nelsif b\n2\nelse\n3\nend")
	top, ok := e.(*ast.IfExpr)
	if !ok {
		t.Fatalf("got %T", e)
	}
	if len(top.Then) != 1 {
		t.Fatalf("got %+v", top.Then)
	}
	elsif, ok := top.Else[0].(*ast.IfExpr)
	if !ok {
		t.Fatalf("got %+v", top.Else)
	}
	if len(elsif.Else) != 1 {
		t.Fatalf("got %+v", elsif.Else)
	}
}

func TestUnlessNegatesCondition(t *testing.T) {
	e := parseExpr(t, "unless a\n1\nend")
	ie, ok := e.(*ast.IfExpr)
	if !ok {
		t.Fatalf("got %T", e)
	}
	if _, ok := ie.Cond.(*ast.NotExpr); !ok {
		t.Fatalf("got %+v", ie.Cond)
	}
}

func TestModifierIf(t *testing.T) {
	e := parseExpr(t, "1 if a")
	ie, ok := e.(*ast.IfExpr)
	if !ok {
		t.Fatalf("got %T", e)
	}
	if lit, ok := ie.Then[0].(*ast.IntLit); !ok || lit.Value != 1 {
		t.Fatalf("got %+v", ie.Then)
	}
}

func TestWhileLoop(t *testing.T) {
	e := parseExpr(t, "while a\nb\nend")
	we, ok := e.(*ast.WhileExpr)
	if !ok || len(we.Body) != 1 {
		t.Fatalf("got %T %+v", e, e)
	}
}

func TestMatchPatterns(t *testing.T) {
	e := parseExpr(t, "match x\nwhen _\n1\nwhen E::Some(v)\n2\nend")
	me, ok := e.(*ast.MatchExpr)
	if !ok || len(me.Clauses) != 2 {
		t.Fatalf("got %T %+v", e, e)
	}
	if _, ok := me.Clauses[0].Pattern.(*ast.WildcardPattern); !ok {
		t.Fatalf("got %+v", me.Clauses[0].Pattern)
	}
	ep, ok := me.Clauses[1].Pattern.(*ast.ExtractorPattern)
	if !ok || len(ep.Path) != 2 || ep.Path[0] != "E" || ep.Path[1] != "Some" {
		t.Fatalf("got %+v", me.Clauses[1].Pattern)
	}
	if len(ep.Args) != 1 {
		t.Fatalf("got %+v", ep.Args)
	}
	if _, ok := ep.Args[0].(*ast.VarPattern); !ok {
		t.Fatalf("got %+v", ep.Args[0])
	}
}

func TestInvalidPatternRejected(t *testing.T) {
	p := New([]byte("match x\nwhen +\n2\nend"), "t.sk")
	_, err := p.parseExpr()
	if err == nil || err.Code != "PAR003" {
		t.Fatalf("expected PAR003, got %v", err)
	}
}

func TestLambdaLiterals(t *testing.T) {
	e := parseExpr(t, "fn(x: Int) do\nx\nend")
	fn, ok := e.(*ast.LambdaExpr)
	if !ok || !fn.IsFn || len(fn.Params) != 1 {
		t.Fatalf("got %T %+v", e, e)
	}

	e2 := parseExpr(t, "do |x, y|\nx\nend")
	blk, ok := e2.(*ast.LambdaExpr)
	if !ok || blk.IsFn || len(blk.Params) != 2 {
		t.Fatalf("got %T %+v", e2, e2)
	}
}

func TestTrailingBlockOnMethodCall(t *testing.T) {
	e := parseExpr(t, "arr.each do |x|\nputs x\nend")
	call, ok := e.(*ast.MethodCall)
	if !ok || call.Name != "each" {
		t.Fatalf("got %T %+v", e, e)
	}
	if len(call.BlockParams) != 1 || call.BlockParams[0].Name != "x" {
		t.Fatalf("got %+v", call.BlockParams)
	}
	if len(call.Block) != 1 {
		t.Fatalf("got %+v", call.Block)
	}
}

func TestBreakAndReturnWithAndWithoutValue(t *testing.T) {
	e := parseExpr(t, "while a\nbreak 1\nend")
	we := e.(*ast.WhileExpr)
	br, ok := we.Body[0].(*ast.BreakExpr)
	if !ok {
		t.Fatalf("got %T", we.Body[0])
	}
	if lit, ok := br.Value.(*ast.IntLit); !ok || lit.Value != 1 {
		t.Fatalf("got %+v", br.Value)
	}

	e2 := parseExpr(t, "while a\nreturn\nend")
	we2 := e2.(*ast.WhileExpr)
	ret, ok := we2.Body[0].(*ast.ReturnExpr)
	if !ok || ret.Value != nil {
		t.Fatalf("got %+v", we2.Body[0])
	}
}

func TestConstructorCallOnUppercaseName(t *testing.T) {
	e := parseExpr(t, "Point(1, 2)")
	call, ok := e.(*ast.MethodCall)
	if !ok || call.Name != "new" {
		t.Fatalf("got %T %+v", e, e)
	}
	recv, ok := call.Recv.(*ast.ConstRef)
	if !ok || recv.Path[0] != "Point" {
		t.Fatalf("got %+v", call.Recv)
	}
}

func TestNamespacedConstRef(t *testing.T) {
	e := parseExpr(t, "A::B::C")
	ref, ok := e.(*ast.ConstRef)
	if !ok || len(ref.Path) != 3 {
		t.Fatalf("got %T %+v", e, e)
	}
}

func TestTopLevelConstDef(t *testing.T) {
	prog := parseProgram(t, "MAX = 100")
	cd, ok := prog.Items[0].(*ast.ConstDef)
	if !ok || cd.Name != "MAX" {
		t.Fatalf("got %T %+v", prog.Items[0], prog.Items[0])
	}
}

func TestMethodDefNotAllowedAtTopLevel(t *testing.T) {
	p := New([]byte("def foo\nend"), "t.sk")
	_, err := p.ParseProgram()
	if err == nil || err.Code != "PAR002" {
		t.Fatalf("expected PAR002, got %v", err)
	}
}

func TestCompoundAssignmentDesugars(t *testing.T) {
	e := parseExpr(t, "x += 1")
	assign, ok := e.(*ast.Assign)
	if !ok {
		t.Fatalf("got %T", e)
	}
	call, ok := assign.Value.(*ast.MethodCall)
	if !ok || call.Name != "+" {
		t.Fatalf("got %+v", assign.Value)
	}
	if _, ok := call.Recv.(*ast.LVarRef); !ok {
		t.Fatalf("got %+v", call.Recv)
	}
}

func TestMethodCallTypeArgs(t *testing.T) {
	e := parseExpr(t, "a.id<Int>(1)")
	call, ok := e.(*ast.MethodCall)
	if !ok || call.Name != "id" {
		t.Fatalf("got %T %+v", e, e)
	}
	if len(call.TyArgs) != 1 || call.TyArgs[0].Path[0] != "Int" {
		t.Fatalf("got %+v", call.TyArgs)
	}
	if len(call.Args) != 1 {
		t.Fatalf("got %d args", len(call.Args))
	}
}

func TestLessThanIsNotTypeArgs(t *testing.T) {
	// `a<b` with no trailing `(` stays a comparison, as does `a < b`.
	e := parseExpr(t, "a<b")
	call, ok := e.(*ast.MethodCall)
	if !ok || call.Name != "<" {
		t.Fatalf("got %T %+v", e, e)
	}
}

func TestVarAndLetDecl(t *testing.T) {
	e := parseExpr(t, "var x = 1")
	vd, ok := e.(*ast.VarDecl)
	if !ok || vd.Name != "x" {
		t.Fatalf("got %T %+v", e, e)
	}
}
