package mir

import (
	"os"

	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/names"
)

// Verify runs the post-pass type-consistency check: for every
// function, expression types must match their operations, indirect calls
// must have matching arity, no parameter may be typed Never, returns must
// be typed Never themselves, vtable/wtable indices must lie within their
// tables, and every CreateObject must reference a known class. A failure
// is an InternalBug: it cannot be caused by well-formed input.
func Verify(p *Program) *sherrors.Report {
	v := &verifier{prog: p, classes: map[names.ClassFullname]bool{}}
	for _, c := range p.Classes {
		v.classes[c.Name] = true
	}
	for _, f := range p.Funcs {
		if err := v.verifyFunc(f); err != nil {
			DumpFunction(os.Stderr, f)
			return err
		}
	}
	return nil
}

type verifier struct {
	prog    *Program
	classes map[names.ClassFullname]bool
	fn      *Function
	failure *sherrors.Report
}

func (v *verifier) fail(code string, format string, args ...interface{}) {
	if v.failure == nil {
		v.failure = sherrors.New(code, sherrors.Span{}, format, args...).
			WithNote("in function %s", v.fn.Name)
	}
}

func (v *verifier) verifyFunc(f *Function) *sherrors.Report {
	v.fn = f
	v.failure = nil
	for _, p := range f.Params {
		if p.Ty.Equals(Raw("Never")) {
			return sherrors.New(sherrors.INT003, sherrors.Span{},
				"parameter %s of %s has type Never", p.Name, f.Name)
		}
	}
	if f.Body == nil {
		return sherrors.New(sherrors.INT001, sherrors.Span{}, "function %s has no body", f.Name)
	}
	Walk(f.Body, func(e Expr) bool {
		v.check(e)
		return v.failure == nil
	})
	return v.failure
}

// never reports whether t is the bottom type Raw("Never").
func never(t Ty) bool { return t.Equals(Raw("Never")) }

func (v *verifier) check(e Expr) {
	switch n := e.(type) {
	case *Number:
		if !n.Ty().Equals(Raw("Int")) && !n.Ty().Equals(Raw("Float")) && n.Ty().Kind != TyInt64 {
			v.fail(sherrors.INT001, "number literal typed %s", n.Ty())
		}
	case *FunCall:
		ft := n.Callee.Ty()
		if ft.Kind != TyFun {
			v.fail(sherrors.INT001, "callee of type %s is not a function", ft)
			return
		}
		if len(n.Args) != len(ft.Fun.Params) {
			v.fail(sherrors.INT002, "call passes %d args to %s", len(n.Args), ft)
			return
		}
		if !n.Ty().Equals(ft.Fun.Ret) {
			v.fail(sherrors.INT001, "call typed %s but callee returns %s", n.Ty(), ft.Fun.Ret)
		}
	case *If:
		v.checkBranch(n.Then, n.Ty())
		v.checkBranch(n.Else, n.Ty())
	case *Return:
		if !never(n.Ty()) {
			v.fail(sherrors.INT004, "return expression typed %s, not Never", n.Ty())
			return
		}
		vt := n.Value.Ty()
		if !vt.Equals(v.fn.RetTy) && !never(vt) {
			v.fail(sherrors.INT001, "return of %s from function returning %s", vt, v.fn.RetTy)
		}
	case *VTableRef:
		table, ok := v.prog.VTables[n.Class]
		if !ok || n.Slot < 0 || n.Slot >= len(table) {
			v.fail(sherrors.INT005, "vtable slot %d out of range for %s", n.Slot, n.Class)
			return
		}
		if n.Ty().Kind != TyFun {
			v.fail(sherrors.INT001, "vtable ref typed %s, not a function type", n.Ty())
			return
		}
		// The recovered method must accept the call site's argument count
		// (deep type equality is unavailable post-erasure).
		if fn, ok := v.prog.FindFunc(table[n.Slot].String()); ok {
			if len(fn.Params) != len(n.Ty().Fun.Params) {
				v.fail(sherrors.INT005, "vtable slot %d of %s resolves to %s with %d params, call site has %d",
					n.Slot, n.Class, fn.Name, len(fn.Params), len(n.Ty().Fun.Params))
			}
		}
	case *WTableRef:
		found := false
		for _, tables := range v.prog.WTables {
			if slots, ok := tables[n.Module]; ok && n.Slot >= 0 && n.Slot < len(slots) {
				found = true
				break
			}
		}
		if !found {
			v.fail(sherrors.INT005, "wtable slot %d out of range for module %s", n.Slot, n.Module)
		}
	case *CreateObject:
		if !v.classes[n.ClassName] {
			v.fail(sherrors.INT006, "CreateObject references unknown class %s", n.ClassName)
		}
	case *StringRef:
		if n.Idx < 0 || n.Idx >= len(v.prog.StringLiterals) {
			v.fail(sherrors.INT001, "string index %d out of range", n.Idx)
		}
	}
}

func (v *verifier) checkBranch(es *Exprs, want Ty) {
	if es == nil {
		return
	}
	got := es.Ty()
	if !got.Equals(want) && !never(got) {
		v.fail(sherrors.INT001, "if-branch typed %s but the if is typed %s", got, want)
	}
}
