package mir_test

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiika-lang/shiika-go/internal/hir"
	"github.com/shiika-lang/shiika-go/internal/mir"
	"github.com/shiika-lang/shiika-go/internal/parser"
	"github.com/shiika-lang/shiika-go/internal/typedict"
)

func lowerSrc(t *testing.T, src string) *mir.Program {
	t.Helper()
	p := parser.New([]byte(src), "test.sk")
	prog, perr := p.ParseProgram()
	require.Nil(t, perr, "parse error: %v", perr)
	dict, ierr := typedict.Index(prog)
	require.Nil(t, ierr, "index error: %v", ierr)
	h, herr := hir.Elaborate(prog, dict)
	require.Nil(t, herr, "elaborate error: %v", herr)
	return mir.Lower(h, dict)
}

// The lowered program contains functions for Meta:A#new,
// A#foo, and a toplevel that calls them, and it verifies.
func TestLowerMethodCallChain(t *testing.T) {
	m := lowerSrc(t, `
class A
  def foo -> Int
    1
  end
end
A.new.foo
`)
	for _, name := range []string{"Meta:A#new", "A#foo", mir.EntryName} {
		_, ok := m.FindFunc(name)
		assert.True(t, ok, "function %s missing from MIR", name)
	}
	main, _ := m.FindFunc(mir.EntryName)
	assert.True(t, main.RetTy.Equals(mir.Raw("Int")), "entry returns %s, want Int", main.RetTy)
	require.Nil(t, mir.Verify(m))
}

// The auto-generated new allocates, initializes, and returns the
// instance.
func TestLowerAutoNew(t *testing.T) {
	m := lowerSrc(t, `
class P
  def initialize(@x: Int)
  end
end
P.new(1)
`)
	newF, ok := m.FindFunc("Meta:P#new")
	require.True(t, ok, "Meta:P#new missing")
	sawCreate := false
	mir.Walk(newF.Body, func(e mir.Expr) bool {
		if c, ok := e.(*mir.CreateObject); ok && c.ClassName == "P" {
			sawCreate = true
		}
		return true
	})
	assert.True(t, sawCreate, "Meta:P#new does not allocate P")
	require.Nil(t, mir.Verify(m))
}

// Assigning a subclass value into a wider-typed variable leaves a
// representation-level bit-cast in the MIR.
func TestLowerAssignInsertsBitCast(t *testing.T) {
	m := lowerSrc(t, `
class A
end
class B : A
end
var x = A.new
x = B.new
`)
	main, _ := m.FindFunc(mir.EntryName)
	sawCast := false
	mir.Walk(main.Body, func(e mir.Expr) bool {
		if c, ok := e.(*mir.Cast); ok && c.Kind == mir.CastBit {
			sawCast = true
		}
		return true
	})
	assert.True(t, sawCast, "expected a bit-cast on the widening assignment")
	require.Nil(t, mir.Verify(m))
}

// A module method call dispatches through a wtable ref keyed by the
// module.
func TestLowerModuleDispatch(t *testing.T) {
	m := lowerSrc(t, `
module Greet
  def greeting -> Int
    7
  end
end
class C : Greet
end
C.new.greeting
`)
	main, _ := m.FindFunc(mir.EntryName)
	sawWtable := false
	mir.Walk(main.Body, func(e mir.Expr) bool {
		if w, ok := e.(*mir.WTableRef); ok && w.Module == "Greet" {
			sawWtable = true
		}
		return true
	})
	assert.True(t, sawWtable, "expected a wtable ref for module Greet")
}

// Enum unit-case constants are materialized once at entry, so identity
// tests in pattern matches have something to compare against.
func TestLowerEnumMatch(t *testing.T) {
	m := lowerSrc(t, `
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
	main, _ := m.FindFunc(mir.EntryName)
	sawConstInit := false
	mir.Walk(main.Body, func(e mir.Expr) bool {
		if cs, ok := e.(*mir.ConstSet); ok && cs.Name == "::E::None" {
			sawConstInit = true
		}
		return true
	})
	assert.True(t, sawConstInit, "expected ::E::None to be initialized at entry")
	pick, ok := m.FindFunc("U#pick")
	require.True(t, ok, "U#pick missing")
	sawPanic := false
	mir.Walk(pick.Body, func(e mir.Expr) bool {
		if f, ok := e.(*mir.FuncRef); ok && f.Name == "shiika_panic" {
			sawPanic = true
		}
		return true
	})
	assert.True(t, sawPanic, "expected the non-exhaustive trap to call shiika_panic")
	require.Nil(t, mir.Verify(m))
}

// A lambda lifts to a top-level function plus a closure class whose slot
// 0 is the function pointer and slots 1..k the captures.
func TestLowerLambdaLifting(t *testing.T) {
	m := lowerSrc(t, `
var x = 1
var f = fn() do
  x
end
f()
`)
	var lifted *mir.Function
	for _, f := range m.Funcs {
		if f.Name != mir.EntryName && len(f.Params) > 0 && f.Params[0].Name == "$fn" {
			lifted = f
		}
	}
	require.NotNil(t, lifted, "no lifted lambda function found")
	var closure *mir.MirClass
	for i := range m.Classes {
		if string(m.Classes[i].Name) == lifted.Name {
			closure = &m.Classes[i]
		}
	}
	require.NotNil(t, closure, "no closure class registered for %s", lifted.Name)
	fnTy := &mir.FunTy{Params: []mir.Ty{mir.AnyTy}, Ret: mir.Raw("Int")}
	want := []mir.TypedName{
		{Name: "@func", Ty: fnTy.Ty()},
		{Name: "x", Ty: mir.Raw("Int")},
	}
	if diff := cmp.Diff(want, closure.Ivars); diff != "" {
		t.Fatalf("closure layout mismatch (-want +got):\n%s", diff)
	}
	require.Nil(t, mir.Verify(m))
}

// Snapshot of the full MIR dump for a small program, pinning the lowering
// shape end to end.
func TestLowerSnapshot(t *testing.T) {
	m := lowerSrc(t, `
class A
  def foo -> Int
    1
  end
end
A.new.foo
`)
	snaps.MatchSnapshot(t, mir.PrintProgram(m))
}
