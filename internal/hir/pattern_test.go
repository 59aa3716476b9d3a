package hir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiika-lang/shiika-go/internal/hir"
	"github.com/shiika-lang/shiika-go/internal/ty"
)

// Extractor and unit-case patterns over an enum.
func TestEnumMatchCompilation(t *testing.T) {
	h := elaborate(t, `
enum E
  case None
  case Some(v: Int)
end
class U
  def pick(e: E) -> Int
    match e
    when E::Some(x)
      x
    when E::None
      0
    end
  end
end
`)
	pick := findMethod(t, h, "U#pick")
	match := findMatch(t, pick.Body.Exprs.Exprs)
	assert.True(t, match.Type().Equals(ty.Int), "match typed %s, want Int", match.Type())
	// Two surface clauses plus the synthesized panic clause.
	require.Len(t, match.Clauses, 3)

	// E::Some(x): class-tag test then a positional bind of the ivar.
	some := match.Clauses[0]
	require.Len(t, some.Components, 2, "E::Some clause wants test+bind")
	test, ok := some.Components[0].(hir.Test)
	require.True(t, ok, "first component is %T, want Test", some.Components[0])
	assert.True(t, test.Expr.Type().Equals(ty.Bool), "test typed %s, want Bool", test.Expr.Type())
	bind, ok := some.Components[1].(hir.Bind)
	require.True(t, ok, "second component is %T, want Bind", some.Components[1])
	assert.Equal(t, "x", bind.Name)
	assert.True(t, bind.Expr.Type().Equals(ty.Int), "bind typed %s, want Int", bind.Expr.Type())

	// E::None is a value-class singleton: one identity test against the
	// constant, no class-tag test.
	none := match.Clauses[1]
	require.Len(t, none.Components, 1)
	ntest, ok := none.Components[0].(hir.Test)
	require.True(t, ok, "E::None component is %T, want Test", none.Components[0])
	eq, ok := ntest.Expr.(*hir.HMethodCall)
	require.True(t, ok, "E::None test is %T, want == call", ntest.Expr)
	assert.Equal(t, "==", eq.Name)
	_, ok = eq.Receiver.(*hir.HConstRef)
	assert.True(t, ok, "E::None compares against %T, want the constant", eq.Receiver)

	// The panic clause has no components and a Never body.
	trap := match.Clauses[2]
	assert.Empty(t, trap.Components, "panic clause should be unconditional")
	assert.True(t, trap.Body.Ty.Equals(ty.Never), "panic clause typed %s, want Never", trap.Body.Ty)
}

func TestWildcardAndLiteralPatterns(t *testing.T) {
	h := elaborate(t, `
class U
  def classify(n: Int) -> Int
    match n
    when 0
      100
    when _
      200
    end
  end
end
`)
	m := findMethod(t, h, "U#classify")
	match := findMatch(t, m.Body.Exprs.Exprs)
	assert.Len(t, match.Clauses[0].Components, 1, "literal clause wants one test")
	assert.Empty(t, match.Clauses[1].Components, "wildcard clause should produce no components")
}

func TestMatchScrutineeTypeMismatch(t *testing.T) {
	err := elaborateErr(t, `
enum E
  case None
end
class U
  def bad(n: Int) -> Int
    match n
    when E::None
      0
    end
  end
end
`)
	assert.Equal(t, "TypeError", err.Kind.String())
}

func findMethod(t *testing.T, h *hir.Program, fullname string) *hir.SkMethod {
	t.Helper()
	for name, m := range h.Methods {
		if name.String() == fullname {
			return m
		}
	}
	t.Fatalf("method %s not elaborated", fullname)
	return nil
}

func findMatch(t *testing.T, exprs []hir.HExpr) *hir.HMatchExpr {
	t.Helper()
	for _, e := range exprs {
		if m, ok := e.(*hir.HMatchExpr); ok {
			return m
		}
	}
	t.Fatalf("no match expression found")
	return nil
}
