// Package async implements the two MIR passes behind the language's
// async/await model: asyncness inference, a fix-point over the call graph,
// and the CPS splitter that rewrites each async function into chapter
// functions communicating through a heap environment frame.
package async

import (
	"github.com/shiika-lang/shiika-go/internal/mir"
)

// Infer runs the asyncness fix-point. Externs carry their
// declared asyncness, the entry function is seeded Async, and a function
// becomes Async as soon as any of its resolvable call targets is known
// Async. Functions left unknown when the fix-point stabilizes are Sync:
// an async call anywhere on such a cycle would have broken the cycle.
// Finally every function-reference node is updated so the referenced
// FunTy carries the inferred asyncness; indirect callees still unknown at
// that point are conservatively treated as async.
func Infer(prog *mir.Program) {
	known := map[string]mir.Asyncness{}
	for _, e := range prog.Externs {
		a := e.FunTy.Asyncness
		if a == mir.AsyncUnknown {
			a = mir.AsyncSync
		}
		known[e.Name] = a
	}
	for _, f := range prog.Funcs {
		if f.Asyncness == mir.AsyncSync || f.Asyncness == mir.AsyncAsync {
			known[f.Name] = f.Asyncness
		}
	}
	if prog.EntryName != "" {
		if _, ok := known[prog.EntryName]; !ok {
			known[prog.EntryName] = mir.AsyncAsync
		}
	}

	for changed := true; changed; {
		changed = false
		for _, f := range prog.Funcs {
			if known[f.Name] == mir.AsyncAsync {
				continue
			}
			if callsKnownAsync(prog, f, known) {
				known[f.Name] = mir.AsyncAsync
				changed = true
			}
		}
	}

	for _, f := range prog.Funcs {
		if known[f.Name] == mir.AsyncAsync {
			f.Asyncness = mir.AsyncAsync
		} else {
			f.Asyncness = mir.AsyncSync
		}
	}
	apply(prog, known)
}

// callsKnownAsync reports whether f's body contains a call whose target
// has already resolved Async. Unresolved targets do not count here; they
// are either resolved by a later fix-point round or default to sync.
func callsKnownAsync(prog *mir.Program, f *mir.Function, known map[string]mir.Asyncness) bool {
	found := false
	mir.Walk(f.Body, func(e mir.Expr) bool {
		if found {
			return false
		}
		if a, ok := calleeAsyncness(prog, e, known); ok && a == mir.AsyncAsync {
			found = true
			return false
		}
		return true
	})
	return found
}

// calleeAsyncness resolves a callee-position node to its target's known
// asyncness, reporting ok=false when the target cannot be resolved yet.
func calleeAsyncness(prog *mir.Program, e mir.Expr, known map[string]mir.Asyncness) (mir.Asyncness, bool) {
	switch n := e.(type) {
	case *mir.FuncRef:
		a, ok := known[n.Name]
		return a, ok
	case *mir.VTableRef:
		if table, ok := prog.VTables[n.Class]; ok && n.Slot < len(table) {
			a, ok := known[table[n.Slot].String()]
			return a, ok
		}
	case *mir.WTableRef:
		// A witness slot's concrete target depends on the receiver's
		// dynamic class; treat it as async so the caller is split and the
		// suspension point is preserved whichever witness runs.
		return mir.AsyncAsync, true
	}
	return mir.AsyncUnknown, false
}

// apply rewrites every function-reference node so its FunTy carries the
// inferred asyncness.
func apply(prog *mir.Program, known map[string]mir.Asyncness) {
	update := func(e mir.Expr) mir.Expr {
		t := e.Ty()
		if t.Kind != mir.TyFun {
			return e
		}
		switch e.(type) {
		case *mir.FuncRef, *mir.VTableRef, *mir.WTableRef:
		default:
			return e
		}
		a, ok := calleeAsyncness(prog, e, known)
		if !ok {
			a = mir.AsyncAsync // conservative for unresolved indirect calls
		}
		if t.Fun.Asyncness == a {
			return e
		}
		funTy := &mir.FunTy{Asyncness: a, Params: t.Fun.Params, Ret: t.Fun.Ret}
		return mir.WithFunTy(e, funTy)
	}
	for _, f := range prog.Funcs {
		f.Body = mir.RewriteExprs(f.Body, update)
	}
}
