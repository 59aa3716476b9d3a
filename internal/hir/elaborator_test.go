package hir_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiika-lang/shiika-go/internal/ast"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/hir"
	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/parser"
	"github.com/shiika-lang/shiika-go/internal/ty"
	"github.com/shiika-lang/shiika-go/internal/typedict"
)

func elaborate(t *testing.T, src string) *hir.Program {
	t.Helper()
	prog, dict := parseAndIndex(t, src)
	h, err := hir.Elaborate(prog, dict)
	require.Nil(t, err, "elaborate error: %v", err)
	return h
}

func parseAndIndex(t *testing.T, src string) (*ast.Program, *typedict.SkTypes) {
	t.Helper()
	p := parser.New([]byte(src), "test.sk")
	prog, perr := p.ParseProgram()
	require.Nil(t, perr, "parse error: %v", perr)
	dict, ierr := typedict.Index(prog)
	require.Nil(t, ierr, "index error: %v", ierr)
	return prog, dict
}

func elaborateErr(t *testing.T, src string) *sherrors.Report {
	t.Helper()
	prog, dict := parseAndIndex(t, src)
	_, err := hir.Elaborate(prog, dict)
	require.NotNil(t, err, "expected an error")
	return err
}

// The toplevel call chain types as Int and every method
// body (including the synthesized new) is elaborated.
func TestMethodCallChain(t *testing.T) {
	h := elaborate(t, `
class A
  def foo -> Int
    1
  end
end
A.new.foo
`)
	assert.True(t, h.Toplevel.Ty.Equals(ty.Int), "toplevel typed %s, want Int", h.Toplevel.Ty)
	_, ok := h.Methods[names.NewMethodFullname("A", "foo")]
	assert.True(t, ok, "A#foo not elaborated")
	newM, ok := h.Methods[names.NewMethodFullname("Meta:A", "new")]
	require.True(t, ok, "Meta:A#new not elaborated")
	assert.Equal(t, hir.BodyAutoNew, newM.Body.Kind)
}

// Int and String unify only at Object, which is rejected.
func TestIfBranchMismatch(t *testing.T) {
	err := elaborateErr(t, `
var cond = true
if cond
  1
else
  "s"
end
`)
	assert.Equal(t, sherrors.TYP004, err.Code, err.Message)
}

func TestIfVoidifiesMissingElse(t *testing.T) {
	h := elaborate(t, `
var cond = true
if cond
  1
end
`)
	assert.True(t, h.Toplevel.Ty.Equals(ty.Void), "if without else typed %s, want Void", h.Toplevel.Ty)
}

// Covariance admits A<Int> <: A<Object>; the assignment
// carries a representation bit-cast.
func TestCovariantVarDecl(t *testing.T) {
	h := elaborate(t, `
class A<out T>
end
class B : A<Int>
end
var x: A<Object> = B.new
`)
	last := h.Toplevel.Exprs[len(h.Toplevel.Exprs)-1]
	assign, ok := last.(*hir.HLVarAssign)
	require.True(t, ok, "got %T, want HLVarAssign", last)
	_, ok = assign.Value.(*hir.HBitCast)
	assert.True(t, ok, "widening assignment value is %T, want a bit-cast", assign.Value)
}

func TestBreakOutsideLoop(t *testing.T) {
	err := elaborateErr(t, `break`)
	assert.Equal(t, sherrors.PRG001, err.Code)
}

func TestReturnOutsideMethod(t *testing.T) {
	err := elaborateErr(t, `return 1`)
	assert.Equal(t, sherrors.PRG003, err.Code)
}

func TestReturnTypeMismatch(t *testing.T) {
	err := elaborateErr(t, `
class A
  def foo -> Int
    return "s"
  end
end
`)
	assert.Equal(t, sherrors.TYP005, err.Code)
}

func TestVarRedeclarationRejected(t *testing.T) {
	err := elaborateErr(t, `
var x = 1
var x = 2
`)
	assert.Equal(t, sherrors.PRG007, err.Code)
}

func TestAssignToUndeclared(t *testing.T) {
	err := elaborateErr(t, `x = 1`)
	assert.Equal(t, sherrors.NAM002, err.Code)
}

// A free variable of a lambda body appears exactly
// once in the capture list with a valid index.
func TestLambdaCapture(t *testing.T) {
	h := elaborate(t, `
var x = 1
var f = fn() do
  x
end
`)
	lam := findLambda(t, h.Toplevel.Exprs)
	want := []hir.Capture{{Name: "x", Ty: ty.Int, Idx: 0, IsForward: false}}
	if diff := cmp.Diff(want, lam.Captures, cmpopts.IgnoreUnexported(ty.TermTy{})); diff != "" {
		t.Fatalf("capture list mismatch (-want +got):\n%s", diff)
	}
}

// A variable reaching through two lambda boundaries is a real capture on
// the outer lambda and a forward on the inner one.
func TestNestedLambdaCaptureForward(t *testing.T) {
	h := elaborate(t, `
var x = 1
var f = fn() do
  var g = fn() do
    x
  end
  x
end
`)
	outer := findLambda(t, h.Toplevel.Exprs)
	inner := findLambda(t, outer.Body.Exprs)
	opts := cmpopts.IgnoreUnexported(ty.TermTy{})
	if diff := cmp.Diff([]hir.Capture{{Name: "x", Ty: ty.Int, Idx: 0}}, outer.Captures, opts); diff != "" {
		t.Fatalf("outer capture list mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]hir.Capture{{Name: "x", Ty: ty.Int, Idx: 0, IsForward: true}}, inner.Captures, opts); diff != "" {
		t.Fatalf("inner capture list mismatch (-want +got):\n%s", diff)
	}
}

func findLambda(t *testing.T, exprs []hir.HExpr) *hir.HLambdaExpr {
	t.Helper()
	for _, e := range exprs {
		switch n := e.(type) {
		case *hir.HLambdaExpr:
			return n
		case *hir.HLVarAssign:
			if lam, ok := n.Value.(*hir.HLambdaExpr); ok {
				return lam
			}
		}
	}
	t.Fatalf("no lambda expression found")
	return nil
}

// Calling a function-typed lvar resolves to a lambda invocation, not a
// method call.
func TestLambdaInvocation(t *testing.T) {
	h := elaborate(t, `
var f = fn(a: Int) do
  a
end
f(1)
`)
	last := h.Toplevel.Exprs[len(h.Toplevel.Exprs)-1]
	inv, ok := last.(*hir.HLambdaInvocation)
	require.True(t, ok, "got %T, want HLambdaInvocation", last)
	assert.True(t, inv.Type().Equals(ty.Int), "invocation typed %s, want Int", inv.Type())
}

// An initialize `@x: Int` param declares the ivar and its accessors, and
// a second method can read it.
func TestIvarParamAndAccessor(t *testing.T) {
	h := elaborate(t, `
class P
  def initialize(@x: Int)
  end
  def double -> Int
    @x + @x
  end
end
P.new(3).x
`)
	assert.True(t, h.Toplevel.Ty.Equals(ty.Int), "toplevel typed %s, want Int", h.Toplevel.Ty)
	getter, ok := h.Methods[names.NewMethodFullname("P", "x")]
	require.True(t, ok, "reader P#x not installed")
	assert.Equal(t, hir.BodyGetter, getter.Body.Kind)
}

// Explicit method type arguments specialize a generic method's signature.
func TestGenericMethodCall(t *testing.T) {
	h := elaborate(t, `
class A
  def id<T>(x: T) -> T
    x
  end
end
A.new.id<Int>(1)
`)
	assert.True(t, h.Toplevel.Ty.Equals(ty.Int), "toplevel typed %s, want Int", h.Toplevel.Ty)
}

// A module's default method resolves through the include as a
// module-method call.
func TestModuleMethodCall(t *testing.T) {
	h := elaborate(t, `
module Greet
  def greeting -> Int
    7
  end
end
class C : Greet
  def initialize()
  end
end
C.new.greeting
`)
	last := h.Toplevel.Exprs[len(h.Toplevel.Exprs)-1]
	call, ok := last.(*hir.HModuleMethodCall)
	require.True(t, ok, "got %T, want HModuleMethodCall", last)
	assert.Equal(t, names.ClassFullname("Greet"), call.Module)
}
