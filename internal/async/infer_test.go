package async_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiika-lang/shiika-go/internal/async"
	"github.com/shiika-lang/shiika-go/internal/mir"
)

var intTy = mir.Raw("Int")

// sleepFunTy is a declared-async extern.
func sleepFunTy() *mir.FunTy {
	return &mir.FunTy{Asyncness: mir.AsyncAsync, Params: []mir.Ty{intTy}, Ret: intTy}
}

func intAddFunTy() *mir.FunTy {
	return &mir.FunTy{Asyncness: mir.AsyncSync, Params: []mir.Ty{intTy, intTy}, Ret: intTy}
}

// s4Program hand-builds a small MIR program: an async extern
// sleep_sec(Int) -> Int and a user function f computing sleep_sec(1) + 2.
// (Extern declarations have no surface syntax, so the async passes are
// exercised at the MIR level.)
func s4Program() *mir.Program {
	externs := append(mir.RuntimeExterns(),
		mir.Extern{Name: "sleep_sec", FunTy: *sleepFunTy()},
		mir.Extern{Name: "Int#+", FunTy: *intAddFunTy()},
	)

	sleepCall := mir.NewFunCall(mir.NewFuncRef(sleepFunTy(), "sleep_sec"),
		[]mir.Expr{mir.NewNumber(intTy, 1)})
	sum := mir.NewFunCall(mir.NewFuncRef(intAddFunTy(), "Int#+"),
		[]mir.Expr{sleepCall, mir.NewNumber(intTy, 2)})
	f := &mir.Function{
		Name:  "f",
		RetTy: intTy,
		Body:  mir.NewExprs([]mir.Expr{mir.NewReturn(sum)}),
	}

	fTy := &mir.FunTy{Asyncness: mir.AsyncUnknown, Params: nil, Ret: intTy}
	mainCall := mir.NewFunCall(mir.NewFuncRef(fTy, "f"), nil)
	main := &mir.Function{
		Name:  mir.EntryName,
		RetTy: intTy,
		Body:  mir.NewExprs([]mir.Expr{mir.NewReturn(mainCall)}),
	}

	return &mir.Program{
		Externs:   externs,
		Funcs:     []*mir.Function{f, main},
		EntryName: mir.EntryName,
	}
}

// f calls a declared-async extern, so the fix-point marks
// it async.
func TestInferAsyncFromExtern(t *testing.T) {
	prog := s4Program()
	async.Infer(prog)
	f, _ := prog.FindFunc("f")
	assert.Equal(t, mir.AsyncAsync, f.Asyncness, "f calls an async extern")
	main, _ := prog.FindFunc(mir.EntryName)
	assert.Equal(t, mir.AsyncAsync, main.Asyncness, "the entry function is seeded async")
}

// A cycle of functions with no async call anywhere resolves to sync: an
// async call on the cycle would have broken it.
func TestInferCycleResolvesSync(t *testing.T) {
	aTy := &mir.FunTy{Asyncness: mir.AsyncUnknown, Params: nil, Ret: intTy}
	callB := mir.NewFunCall(mir.NewFuncRef(aTy, "b"), nil)
	a := &mir.Function{Name: "a", RetTy: intTy, Body: mir.NewExprs([]mir.Expr{mir.NewReturn(callB)})}
	callA := mir.NewFunCall(mir.NewFuncRef(aTy, "a"), nil)
	b := &mir.Function{Name: "b", RetTy: intTy, Body: mir.NewExprs([]mir.Expr{mir.NewReturn(callA)})}
	prog := &mir.Program{
		Externs: mir.RuntimeExterns(),
		Funcs:   []*mir.Function{a, b},
	}
	async.Infer(prog)
	assert.Equal(t, mir.AsyncSync, a.Asyncness)
	assert.Equal(t, mir.AsyncSync, b.Asyncness)
}

// Application: after inference every function reference carries its
// target's asyncness in its FunTy.
func TestInferUpdatesFuncRefs(t *testing.T) {
	prog := s4Program()
	async.Infer(prog)
	main, _ := prog.FindFunc(mir.EntryName)
	found := false
	mir.Walk(main.Body, func(e mir.Expr) bool {
		if r, ok := e.(*mir.FuncRef); ok && r.Name == "f" {
			found = true
			assert.Equal(t, mir.AsyncAsync, r.Ty().Fun.Asyncness, "FuncRef f must carry its target's asyncness")
		}
		return true
	})
	require.True(t, found, "no FuncRef to f in entry body")
}
