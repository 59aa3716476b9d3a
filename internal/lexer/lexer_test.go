package lexer

import "testing"

func collect(t *testing.T, src string) []Token {
	t.Helper()
	l := New(string(Normalize([]byte(src))), "test.sk")
	var out []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("lex error: %v", err)
		}
		out = append(out, tok)
		if tok.Type == EOF {
			break
		}
	}
	return out
}

func TestIdentifiersAndKeywords(t *testing.T) {
	toks := collect(t, "class Foo\nend")
	want := []TokenType{CLASS, IDENT_UPPER, NEWLINE, END, EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Fatalf("token %d: got %s want %s", i, toks[i].Type, w)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New("\"abc", "t.sk")
	_, err := l.NextToken()
	if err == nil || err.Code != "LEX001" {
		t.Fatalf("expected LEX001, got %v", err)
	}
}

func TestDigitRunFollowedByIdent(t *testing.T) {
	l := New("123abc", "t.sk")
	_, err := l.NextToken()
	if err == nil || err.Code != "LEX003" {
		t.Fatalf("expected LEX003, got %v", err)
	}
}

func TestMinusUnaryVsBinary(t *testing.T) {
	// "p -x" (ExprArg, no space after -) should be unary-context.
	l := New("p -x", "t.sk")
	tok, _ := l.NextToken() // p -> IDENT_LOWER, ends in ExprEnd
	if tok.Type != IDENT_LOWER {
		t.Fatalf("got %s", tok.Type)
	}
	l.SetMode(ExprArg)
	minus, _ := l.NextToken()
	if minus.Type != MINUS {
		t.Fatalf("got %s", minus.Type)
	}
	if !minus.IsUnaryContext() {
		t.Fatal("expected unary context for 'p -x'")
	}
}

func TestMinusBinaryWithSpaceAfter(t *testing.T) {
	l := New("p - x", "t.sk")
	l.NextToken() // p
	l.SetMode(ExprArg)
	minus, _ := l.NextToken()
	if minus.IsUnaryContext() {
		t.Fatal("expected binary context for 'p - x'")
	}
}

func TestRshiftSplitsIntoTwoGT(t *testing.T) {
	l := New("Array<Array<Int>>", "t.sk")
	l.SetRshiftIsGtGt(true)
	var types []TokenType
	for {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatal(err)
		}
		types = append(types, tok.Type)
		if tok.Type == EOF {
			break
		}
	}
	gtCount := 0
	for _, tt := range types {
		if tt == GT {
			gtCount++
		}
	}
	if gtCount != 2 {
		t.Fatalf("expected 2 GT tokens from '>>' split, got %d in %v", gtCount, types)
	}
}

func TestStringInterpolationBoundary(t *testing.T) {
	l := New(`"a#{1}b"`, "t.sk")
	first, err := l.NextToken()
	if err != nil || first.Type != STRING || first.Literal != "a" {
		t.Fatalf("got %v err=%v", first, err)
	}
	num, _ := l.NextToken()
	if num.Type != INT || num.Literal != "1" {
		t.Fatalf("got %v", num)
	}
	rbrace, _ := l.NextToken()
	if rbrace.Type != RBRACE {
		t.Fatalf("got %v", rbrace)
	}
	l.CloseInterp()
	rest, _ := l.NextToken()
	if rest.Type != STRING || rest.Literal != "b" {
		t.Fatalf("got %v", rest)
	}
}

func TestMethodNameSymbols(t *testing.T) {
	l := New("+@", "t.sk")
	l.SetMode(MethodName)
	tok, err := l.NextToken()
	if err != nil || tok.Type != SYMBOL || tok.Literal != "+@" {
		t.Fatalf("got %v err=%v", tok, err)
	}
}

func TestNormalizeStripsBOM(t *testing.T) {
	src := append([]byte{0xEF, 0xBB, 0xBF}, []byte("class")...)
	out := Normalize(src)
	if string(out) != "class" {
		t.Fatalf("got %q", out)
	}
}
