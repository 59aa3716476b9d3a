package ast

import "testing"

func TestPrintDeterministic(t *testing.T) {
	prog := &Program{Items: []Node{
		&ClassDef{Name: "A"},
		&MethodDef{Name: "foo", Params: []Param{{Name: "x"}}},
	}}
	a := PrintProgram(prog)
	b := PrintProgram(prog)
	if a != b {
		t.Fatalf("Print is not deterministic:\n%s\nvs\n%s", a, b)
	}
	want := "(class A)\n(def foo(1))\n"
	if a != want {
		t.Fatalf("got %q want %q", a, want)
	}
}

func TestPrintMatch(t *testing.T) {
	m := &MatchExpr{
		Scrutinee: &LVarRef{Name: "e"},
		Clauses: []MatchClause{
			{Pattern: &ExtractorPattern{Path: []string{"E", "Some"}, Args: []Pattern{&VarPattern{Name: "x"}}}, Body: []Expr{&LVarRef{Name: "x"}}},
			{Pattern: &ExtractorPattern{Path: []string{"E", "None"}}, Body: []Expr{&IntLit{Value: 0}}},
		},
	}
	got := Print(m)
	want := "(match e (when E::Some(x) [x]) (when E::None [0]))"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
