package async_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiika-lang/shiika-go/internal/async"
	"github.com/shiika-lang/shiika-go/internal/mir"
)

func splitS4(t *testing.T) *mir.Program {
	t.Helper()
	prog := s4Program()
	async.Infer(prog)
	async.Split(prog)
	return prog
}

// After splitting, f has two chapters; chapter 1 ends
// with `return sleep_sec($env, 1, f_1)` and chapter 2 receives
// $async_result, computes the sum, pops the frame and calls $cont.
func TestSplitChapters(t *testing.T) {
	prog := splitS4(t)

	f, ok := prog.FindFunc("f")
	require.True(t, ok, "first chapter f missing")
	f1, ok := prog.FindFunc("f_1")
	require.True(t, ok, "second chapter f_1 missing")

	// First chapter signature: ($env, original params..., $cont).
	assert.Equal(t, "$env", f.Params[0].Name)
	assert.Equal(t, "$cont", f.Params[len(f.Params)-1].Name)
	assert.True(t, f.RetTy.Equals(mir.RustFutureTy), "chapter 1 returns %s, want RustFuture", f.RetTy)

	// Chapter 1 ends with the lowered sleep call continuing at f_1.
	last := f.Body.Exprs[len(f.Body.Exprs)-1]
	ret, ok := last.(*mir.Return)
	require.True(t, ok, "chapter 1 ends with %T, want Return", last)
	call, ok := ret.Value.(*mir.FunCall)
	require.True(t, ok, "chapter 1 returns %T, want a call", ret.Value)
	callee, ok := call.Callee.(*mir.FuncRef)
	require.True(t, ok, "chapter 1 tail-calls %v, want a direct call", call.Callee)
	assert.Equal(t, "sleep_sec", callee.Name)
	cont, ok := call.Args[len(call.Args)-1].(*mir.FuncRef)
	require.True(t, ok, "sleep_sec continuation = %v, want a func ref", call.Args[len(call.Args)-1])
	assert.Equal(t, "f_1", cont.Name)

	// Chapter 2 signature: ($env, $async_result).
	require.Len(t, f1.Params, 2)
	assert.Equal(t, "$async_result", f1.Params[1].Name)
	assert.True(t, f1.Params[1].Ty.Equals(intTy), "$async_result typed %s, want Int", f1.Params[1].Ty)

	// Chapter 2 pops the frame and calls the recovered continuation.
	sawPop := false
	mir.Walk(f1.Body, func(e mir.Expr) bool {
		if r, ok := e.(*mir.FuncRef); ok && r.Name == "chiika_env_pop_frame" {
			sawPop = true
		}
		return true
	})
	assert.True(t, sawPop, "chapter 2 never pops the frame")
}

// Invariants after splitting: every function is Lowered, no
// chapter mentions LVarRef/LVarSet/Alloc, every chapter returns
// RustFuture, and every env_ref slot has a matching env_set.
func TestSplitInvariants(t *testing.T) {
	prog := splitS4(t)

	setSlots := map[int]bool{}
	refSlots := map[int]bool{}
	for _, fn := range prog.Funcs {
		assert.Equal(t, mir.AsyncLowered, fn.Asyncness, "%s not marked lowered", fn.Name)
		if fn.Name == "f" || fn.Name == "f_1" || fn.Name == mir.EntryName {
			assert.True(t, fn.RetTy.Equals(mir.RustFutureTy), "chapter %s returns %s, want RustFuture", fn.Name, fn.RetTy)
			mir.Walk(fn.Body, func(e mir.Expr) bool {
				switch n := e.(type) {
				case *mir.LVarRef, *mir.LVarSet, *mir.Alloc:
					t.Fatalf("%s still contains %T", fn.Name, e)
				case *mir.EnvSet:
					setSlots[n.Slot] = true
				case *mir.EnvRef:
					refSlots[n.Slot] = true
				}
				return true
			})
		}
	}
	for slot := range refSlots {
		assert.True(t, setSlots[slot], "env_ref of slot %d with no env_set", slot)
	}
}

// Frame size is 1 + params + allocs: f has no params and one
// spilled temporary, so the frame holds the continuation plus one slot.
func TestSplitFrameSize(t *testing.T) {
	prog := splitS4(t)
	f, _ := prog.FindFunc("f")
	var pushSize int64 = -1
	mir.Walk(f.Body, func(e mir.Expr) bool {
		if call, ok := e.(*mir.FunCall); ok {
			if r, ok := call.Callee.(*mir.FuncRef); ok && r.Name == "chiika_env_push_frame" {
				if n, ok := call.Args[1].(*mir.RawI64); ok {
					pushSize = n.Value
				}
			}
		}
		return true
	})
	assert.Equal(t, int64(2), pushSize, "frame holds the continuation plus one temp")
}

// The split program still verifies.
func TestSplitVerifies(t *testing.T) {
	prog := splitS4(t)
	require.Nil(t, mir.Verify(prog))
}

// A while with an async body becomes cond/body/end chapters tail-calling
// each other through the environment.
func TestSplitWhile(t *testing.T) {
	boolTy := mir.Raw("Bool")
	externs := append(mir.RuntimeExterns(),
		mir.Extern{Name: "sleep_sec", FunTy: *sleepFunTy()},
	)
	sleep := mir.NewFunCall(mir.NewFuncRef(sleepFunTy(), "sleep_sec"),
		[]mir.Expr{mir.NewNumber(intTy, 1)})
	loop := mir.NewWhile(mir.NewPseudoVar(boolTy, mir.PseudoTrue),
		mir.NewExprs([]mir.Expr{sleep}))
	g := &mir.Function{
		Name:  "g",
		RetTy: mir.Raw("Void"),
		Body: mir.NewExprs([]mir.Expr{
			loop,
			mir.NewReturn(mir.NewPseudoVar(mir.Raw("Void"), mir.PseudoVoid)),
		}),
	}
	prog := &mir.Program{Externs: externs, Funcs: []*mir.Function{g}, EntryName: "g"}
	async.Infer(prog)
	async.Split(prog)

	for _, suffix := range []string{"'w", "'h", "'q"} {
		_, ok := prog.FindFunc("g_1" + suffix)
		assert.True(t, ok, "while chapter g_1%s missing", suffix)
	}
	require.Nil(t, mir.Verify(prog))
}
