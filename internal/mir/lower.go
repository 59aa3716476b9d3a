package mir

import (
	"fmt"
	"math"
	"strings"

	"github.com/shiika-lang/shiika-go/internal/hir"
	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/ty"
	"github.com/shiika-lang/shiika-go/internal/typedict"
)

// EntryName is the designated user entry function the toplevel expression
// sequence lowers into; asyncness inference seeds it Async.
const EntryName = "chiika_main"

// Lower converts a typed HIR program into MIR. The lowering is
// structural except for the dispatch and memory rewrites: ivar access
// becomes indexed loads/stores, method calls go through vtable/wtable
// refs, const references become named-global loads, and lambdas are
// lifted to top-level functions closing over a capture object.
func Lower(prog *hir.Program, dict *typedict.SkTypes) *Program {
	lo := &lowerer{
		dict:      dict,
		prog:      prog,
		stringIdx: map[string]int{},
		externIdx: map[string]bool{},
		vtables:   map[names.ClassFullname][]names.MethodFullname{},
		vslots:    map[names.ClassFullname]map[names.MethodFirstname]int{},
		wtables:   map[names.ClassFullname]map[names.ClassFullname][]names.MethodFullname{},
	}
	lo.declareRuntimeExterns()
	lo.buildClassTables()

	for _, fullname := range prog.MethodOrder {
		lo.lowerMethod(prog.Methods[fullname])
	}
	lo.lowerToplevel()

	return &Program{
		Classes:        lo.classes,
		Externs:        lo.externs,
		Funcs:          lo.funcs,
		StringLiterals: lo.strings,
		VTables:        lo.vtables,
		WTables:        lo.wtables,
		EntryName:      EntryName,
	}
}

type lowerer struct {
	dict *typedict.SkTypes
	prog *hir.Program

	strings   []string
	stringIdx map[string]int
	classes   []MirClass
	externs   []Extern
	externIdx map[string]bool
	funcs     []*Function
	vtables   map[names.ClassFullname][]names.MethodFullname
	vslots    map[names.ClassFullname]map[names.MethodFirstname]int
	wtables   map[names.ClassFullname]map[names.ClassFullname][]names.MethodFullname

	tmpCounter int
}

// fctx is the per-function lowering context: how to reach `self`, formal
// parameters, and (inside a lifted lambda) the capture list.
type fctx struct {
	args     map[string]int
	selfE    func() Expr
	captures []hir.Capture
	capIdx   map[string]int
}

// RuntimeExterns lists the runtime symbols MIR emits or references, with
// their calling types. Lowering declares all of them up front;
// hand-built test programs reuse the same table.
func RuntimeExterns() []Extern {
	sync := func(params []Ty, ret Ty) FunTy {
		return FunTy{Asyncness: AsyncSync, Params: params, Ret: ret}
	}
	return []Extern{
		{Name: "shiika_malloc", FunTy: sync([]Ty{Int64Ty}, PtrTy)},
		{Name: "shiika_insert_wtable", FunTy: sync([]Ty{PtrTy, Int64Ty, PtrTy, Int64Ty}, CVoidTy)},
		{Name: "shiika_lookup_wtable", FunTy: sync([]Ty{AnyTy, Int64Ty, Int64Ty}, PtrTy)},
		{Name: "shiika_panic", FunTy: sync([]Ty{Raw("String")}, Raw("Never"))},
		{Name: "chiika_env_push_frame", FunTy: sync([]Ty{ChiikaEnvTy, Int64Ty}, CVoidTy)},
		{Name: "chiika_env_set", FunTy: sync([]Ty{ChiikaEnvTy, Int64Ty, AnyTy, Int64Ty}, CVoidTy)},
		{Name: "chiika_env_ref", FunTy: sync([]Ty{ChiikaEnvTy, Int64Ty, Int64Ty}, AnyTy)},
		{Name: "chiika_env_pop_frame", FunTy: sync([]Ty{ChiikaEnvTy, Int64Ty}, AnyTy)},
		{Name: "chiika_spawn", FunTy: sync([]Ty{AnyTy, RustFutureTy}, CVoidTy)},
		{Name: "chiika_start_tokio", FunTy: sync(nil, CVoidTy)},
		{Name: "GC_init", FunTy: sync(nil, CVoidTy)},
	}
}

func (lo *lowerer) declareRuntimeExterns() {
	for _, e := range RuntimeExterns() {
		lo.addExtern(e.Name, e.FunTy)
	}
}

func (lo *lowerer) addExtern(name string, funTy FunTy) {
	if lo.externIdx[name] {
		return
	}
	lo.externIdx[name] = true
	lo.externs = append(lo.externs, Extern{Name: name, FunTy: funTy})
}

// buildClassTables registers a MirClass per user-defined class and the
// vtable/wtable index maps dispatch lowering reads.
func (lo *lowerer) buildClassTables() {
	for _, fullname := range lo.dict.Order() {
		skt, _ := lo.dict.Get(fullname)
		if !skt.IsClass() {
			continue
		}
		cls := skt.Class
		if !cls.IsForeign {
			ivars := make([]TypedName, len(cls.IvarOrder))
			for i, name := range cls.IvarOrder {
				ivars[i] = TypedName{Name: name, Ty: lo.lowerTy(cls.Ivars[name].Ty)}
			}
			lo.classes = append(lo.classes, MirClass{Name: fullname, Ivars: ivars})
		}

		lo.vslots[fullname] = map[names.MethodFirstname]int{}
		for i, first := range cls.Methods.Order() {
			sig, _ := cls.Methods.Get(first)
			lo.vtables[fullname] = append(lo.vtables[fullname], sig.Fullname)
			lo.vslots[fullname][first] = i
		}
		meta := fullname.MetaName()
		lo.vslots[meta] = map[names.MethodFirstname]int{}
		for i, first := range cls.ClassMethods.Order() {
			sig, _ := cls.ClassMethods.Get(first)
			lo.vtables[meta] = append(lo.vtables[meta], sig.Fullname)
			lo.vslots[meta][first] = i
		}
		if len(cls.Wtable) > 0 {
			lo.wtables[fullname] = cls.Wtable
		}
	}
}

func (lo *lowerer) internString(s string) int {
	if idx, ok := lo.stringIdx[s]; ok {
		return idx
	}
	idx := len(lo.strings)
	lo.stringIdx[s] = idx
	lo.strings = append(lo.strings, s)
	return idx
}

func (lo *lowerer) newTmp() string {
	lo.tmpCounter++
	return fmt.Sprintf("$tmp_%d", lo.tmpCounter)
}

// lowerTy erases a TermTy to its MIR type. Fn types become function types carrying the closure
// object as a leading Any parameter.
func (lo *lowerer) lowerTy(t ty.TermTy) Ty {
	if !t.IsTyParamRef() && strings.HasPrefix(t.BaseName, "Fn") && len(t.TypeArgs) > 0 {
		params := make([]Ty, 0, len(t.TypeArgs))
		params = append(params, AnyTy)
		for _, a := range t.TypeArgs[:len(t.TypeArgs)-1] {
			params = append(params, lo.lowerTy(a))
		}
		ret := lo.lowerTy(t.TypeArgs[len(t.TypeArgs)-1])
		f := &FunTy{Asyncness: AsyncUnknown, Params: params, Ret: ret}
		return f.Ty()
	}
	return Raw(string(t.Erasure().Fullname()))
}

func (lo *lowerer) lowerParams(owner names.ClassFullname, params []hir.LParam) ([]Param, map[string]int) {
	out := make([]Param, 0, len(params)+1)
	out = append(out, Param{Name: "self", Ty: Raw(string(owner))})
	args := map[string]int{}
	for i, p := range params {
		out = append(out, Param{Name: p.Name, Ty: lo.lowerTy(p.Ty)})
		args[p.Name] = i + 1
	}
	return out, args
}

func (lo *lowerer) lowerMethod(m *hir.SkMethod) {
	owner := m.Fullname.Owner
	params, args := lo.lowerParams(owner, m.Params)
	ctx := &fctx{
		args:  args,
		selfE: func() Expr { return &ArgRef{typed(Raw(string(owner))), 0, "self"} },
	}
	retTy := lo.lowerTy(m.RetTy)
	fn := &Function{Name: m.Fullname.String(), Params: params, RetTy: retTy}

	var stmts []Expr
	switch m.Body.Kind {
	case hir.BodyNormal:
		for _, name := range m.LVarOrder {
			stmts = append(stmts, &Alloc{typed(lo.lowerTy(m.LVars[name].Ty)), name})
		}
		for _, e := range m.Body.Exprs.Exprs {
			stmts = append(stmts, lo.lowerExpr(ctx, e))
		}
	case hir.BodyAutoNew:
		stmts = lo.autoNewBody(ctx, m)
	case hir.BodyGetter:
		iv := &IVarRef{typed(retTy), ctx.selfE(), "", m.Body.IvarIdx}
		stmts = []Expr{NewReturn(iv)}
	case hir.BodySetter:
		value := &ArgRef{typed(params[1].Ty), 1, params[1].Name}
		set := &IVarSet{typed(params[1].Ty), ctx.selfE(), params[1].Name, m.Body.IvarIdx, value}
		stmts = []Expr{set, NewReturn(&ArgRef{typed(params[1].Ty), 1, params[1].Name})}
	case hir.BodyExternal:
		lo.addExtern(fn.Name, *fn.FunTy())
		return
	}
	fn.Body = NewExprs(finishBody(stmts, retTy))
	lo.funcs = append(lo.funcs, fn)
}

// autoNewBody expands the BodyAutoNew marker: allocate
// the instance, run `initialize` with the forwarded arguments, return the
// instance.
func (lo *lowerer) autoNewBody(ctx *fctx, m *hir.SkMethod) []Expr {
	clsName := m.Fullname.Owner.InstanceName()
	instTy := Raw(string(clsName))
	obj := lo.newTmp()
	stmts := []Expr{
		&Alloc{typed(instTy), obj},
		&LVarSet{typed(instTy), obj, &CreateObject{typed(instTy), clsName}},
	}
	if skt, ok := lo.dict.Get(clsName); ok && skt.IsClass() {
		if initSig, ok := skt.Class.Methods.Get("initialize"); ok {
			callArgs := []Expr{&LVarRef{typed(instTy), obj}}
			for i, p := range m.Params {
				callArgs = append(callArgs, &ArgRef{typed(lo.lowerTy(p.Ty)), i + 1, p.Name})
			}
			funTy := lo.sigFunTy(initSig)
			stmts = append(stmts, &FunCall{typed(funTy.Ret), &FuncRef{typed(funTy.Ty()), initSig.Fullname.String()}, callArgs})
		}
	}
	return append(stmts, NewReturn(&LVarRef{typed(instTy), obj}))
}

func (lo *lowerer) sigFunTy(sig *typedict.Signature) *FunTy {
	params := make([]Ty, 0, len(sig.Params)+1)
	params = append(params, Raw(string(sig.Fullname.Owner)))
	for _, p := range sig.Params {
		params = append(params, lo.lowerTy(p.Ty))
	}
	return &FunTy{Asyncness: AsyncUnknown, Params: params, Ret: lo.lowerTy(sig.RetTy)}
}

// lowerToplevel emits the entry function: constant initialization for enum
// unit cases, then the toplevel expression sequence. It emits no runtime
// initialization call; GC_init and the other runtime symbols are only
// declared as externs.
func (lo *lowerer) lowerToplevel() {
	ctx := &fctx{
		args:  map[string]int{},
		selfE: func() Expr { return &PseudoVar{typed(Raw("Object")), PseudoSelf} },
	}
	var stmts []Expr
	for _, fullname := range lo.dict.Order() {
		skt, _ := lo.dict.Get(fullname)
		if !skt.IsClass() || !skt.Class.ConstIsObj {
			continue
		}
		constName, err := names.NewConstFullname("::" + string(fullname))
		if err != nil {
			continue
		}
		obj := &CreateObject{typed(Raw(string(fullname))), fullname}
		stmts = append(stmts, &ConstSet{typed(obj.Ty()), constName, obj})
	}
	for _, name := range lo.prog.ToplevelOrder {
		stmts = append(stmts, &Alloc{typed(lo.lowerTy(lo.prog.ToplevelLVars[name].Ty)), name})
	}
	for _, e := range lo.prog.Toplevel.Exprs {
		stmts = append(stmts, lo.lowerExpr(ctx, e))
	}
	retTy := lo.lowerTy(lo.prog.Toplevel.Ty)
	lo.funcs = append(lo.funcs, &Function{
		Name:   EntryName,
		RetTy:  retTy,
		Body:   NewExprs(finishBody(stmts, retTy)),
	})
}

// finishBody guarantees the body ends in a Return of the function's
// declared type.
func finishBody(stmts []Expr, retTy Ty) []Expr {
	if len(stmts) == 0 {
		return []Expr{NewReturn(&PseudoVar{typed(Raw("Void")), PseudoVoid})}
	}
	last := stmts[len(stmts)-1]
	if _, ok := last.(*Return); ok {
		return stmts
	}
	if last.Ty().Equals(Raw("Never")) {
		return stmts
	}
	if retTy.Equals(Raw("Void")) && !last.Ty().Equals(Raw("Void")) {
		return append(stmts, NewReturn(&PseudoVar{typed(Raw("Void")), PseudoVoid}))
	}
	stmts[len(stmts)-1] = NewReturn(last)
	return stmts
}

func (lo *lowerer) lowerExprs(ctx *fctx, es *hir.HExprs) *Exprs {
	if es == nil || len(es.Exprs) == 0 {
		// An empty block (an absent else branch) evaluates to void.
		return NewExprs([]Expr{&PseudoVar{typed(Raw("Void")), PseudoVoid}})
	}
	out := make([]Expr, len(es.Exprs))
	for i, e := range es.Exprs {
		out[i] = lo.lowerExpr(ctx, e)
	}
	return NewExprs(out)
}

func (lo *lowerer) lowerExpr(ctx *fctx, e hir.HExpr) Expr {
	switch n := e.(type) {
	case *hir.HLit:
		return lo.lowerLit(n)
	case *hir.HSelf:
		return ctx.selfE()
	case *hir.HLVarRef:
		return ctx.varByName(lo, n.Name, lo.lowerTy(n.Type()))
	case *hir.HLVarAssign:
		return &LVarSet{typed(lo.lowerTy(n.Type())), n.Name, lo.lowerExpr(ctx, n.Value)}
	case *hir.HIVarRef:
		return &IVarRef{typed(lo.lowerTy(n.Type())), ctx.selfE(), n.Name, n.Idx}
	case *hir.HIVarAssign:
		return &IVarSet{typed(lo.lowerTy(n.Type())), ctx.selfE(), n.Name, n.Idx, lo.lowerExpr(ctx, n.Value)}
	case *hir.HArgRef:
		return &ArgRef{typed(lo.lowerTy(n.Type())), n.Idx, n.Name}
	case *hir.HConstRef:
		return &ConstRef{typed(lo.lowerTy(n.Type())), n.Fullname}
	case *hir.HConstAssign:
		return &ConstSet{typed(lo.lowerTy(n.Type())), n.Fullname, lo.lowerExpr(ctx, n.Value)}
	case *hir.HCaptureRef:
		return ctx.captureRef(lo, n.Idx)
	case *hir.HCaptureForward:
		return ctx.captureRef(lo, n.Idx)
	case *hir.HMethodCall:
		return lo.lowerMethodCall(ctx, n)
	case *hir.HModuleMethodCall:
		return lo.lowerModuleMethodCall(ctx, n)
	case *hir.HLambdaInvocation:
		return lo.lowerLambdaInvocation(ctx, n)
	case *hir.HLambdaExpr:
		return lo.lowerLambda(ctx, n)
	case *hir.HIfExpr:
		return &If{typed(lo.lowerTy(n.Type())), lo.lowerExpr(ctx, n.Cond), lo.lowerExprs(ctx, n.Then), lo.lowerExprs(ctx, n.Else)}
	case *hir.HWhileExpr:
		return &While{typed(Raw("Void")), lo.lowerExpr(ctx, n.Cond), lo.lowerExprs(ctx, n.Body)}
	case *hir.HBreak:
		return &Break{typed(Raw("Never"))}
	case *hir.HReturn:
		return NewReturn(lo.lowerExpr(ctx, n.Value))
	case *hir.HNot:
		return lo.boolIf(lo.lowerExpr(ctx, n.Operand), pseudoFalse(), pseudoTrue())
	case *hir.HAnd:
		return lo.boolIf(lo.lowerExpr(ctx, n.Left), lo.lowerExpr(ctx, n.Right), pseudoFalse())
	case *hir.HOr:
		return lo.boolIf(lo.lowerExpr(ctx, n.Left), pseudoTrue(), lo.lowerExpr(ctx, n.Right))
	case *hir.HBitCast:
		return &Cast{typed(lo.lowerTy(n.Type())), CastBit, lo.lowerExpr(ctx, n.Expr)}
	case *hir.HClassLiteral:
		return &CreateTypeObject{typed(lo.lowerTy(n.Type())), n.Fullname}
	case *hir.HMatchExpr:
		return lo.lowerMatch(ctx, n)
	default:
		return NewNop()
	}
}

func pseudoTrue() Expr  { return &PseudoVar{typed(Raw("Bool")), PseudoTrue} }
func pseudoFalse() Expr { return &PseudoVar{typed(Raw("Bool")), PseudoFalse} }

func (lo *lowerer) boolIf(cond, then, els Expr) Expr {
	return &If{typed(Raw("Bool")), cond, NewExprs([]Expr{then}), NewExprs([]Expr{els})}
}

func (lo *lowerer) lowerLit(n *hir.HLit) Expr {
	if n.Type().Equals(ty.Void) {
		return &PseudoVar{typed(Raw("Void")), PseudoVoid}
	}
	switch n.Kind {
	case hir.LitInt:
		return &Number{typed(Raw("Int")), n.IVal, false, 0}
	case hir.LitFloat:
		return &Number{typed(Raw("Float")), int64(math.Float64bits(n.FVal)), true, n.FVal}
	case hir.LitString:
		return &StringRef{typed(Raw("String")), lo.internString(n.SVal)}
	default:
		if n.BVal {
			return pseudoTrue()
		}
		return pseudoFalse()
	}
}

func (ctx *fctx) varByName(lo *lowerer, name string, t Ty) Expr {
	if idx, ok := ctx.args[name]; ok {
		return &ArgRef{typed(t), idx, name}
	}
	if idx, ok := ctx.capIdx[name]; ok {
		return ctx.captureRef(lo, idx)
	}
	return &LVarRef{typed(t), name}
}

// captureRef reads capture slot idx of the current lifted lambda: ivar
// idx+1 of the closure object passed as arg 0 (slot 0 holds the function
// pointer).
func (ctx *fctx) captureRef(lo *lowerer, idx int) Expr {
	c := ctx.captures[idx]
	fnObj := &ArgRef{typed(AnyTy), 0, "$fn"}
	return &IVarRef{typed(lo.lowerTy(c.Ty)), fnObj, c.Name, idx + 1}
}

func (lo *lowerer) lowerMethodCall(ctx *fctx, n *hir.HMethodCall) Expr {
	// The synthesized non-exhaustive-match trap.
	if n.Owner == "Object" && n.Name == "panic" {
		ext, _ := lo.findPanic()
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = lo.lowerExpr(ctx, a)
		}
		return &FunCall{typed(Raw("Never")), &FuncRef{typed(ext.FunTy.Ty()), ext.Name}, args}
	}

	var recv Expr
	if n.Receiver != nil {
		recv = lo.lowerExpr(ctx, n.Receiver)
	} else {
		recv = ctx.selfE()
	}
	isMeta := recv.Ty().Kind == TyRaw && strings.HasPrefix(recv.Ty().Name, names.MetaPrefix)
	args := make([]Expr, 0, len(n.Args)+1)
	args = append(args, recv)
	for _, a := range n.Args {
		args = append(args, lo.lowerExpr(ctx, a))
	}

	retTy := lo.lowerTy(n.Type())
	paramTys := make([]Ty, len(args))
	for i, a := range args {
		paramTys[i] = a.Ty()
	}
	funTy := &FunTy{Asyncness: AsyncUnknown, Params: paramTys, Ret: retTy}

	tableKey := n.Owner
	if isMeta {
		tableKey = n.Owner.MetaName()
	}
	if slots, ok := lo.vslots[tableKey]; ok {
		if slot, ok := slots[names.MethodFirstname(n.Name)]; ok {
			callee := &VTableRef{typed(funTy.Ty()), recv, tableKey, slot}
			return &FunCall{typed(retTy), callee, args}
		}
	}
	// Foreign/builtin method with no vtable entry: direct call to the
	// runtime-provided symbol.
	fname := names.NewMethodFullname(tableKey, names.MethodFirstname(n.Name)).String()
	if _, lowered := lo.prog.Methods[names.NewMethodFullname(tableKey, names.MethodFirstname(n.Name))]; !lowered {
		lo.addExtern(fname, FunTy{Asyncness: AsyncSync, Params: paramTys, Ret: retTy})
	}
	return &FunCall{typed(retTy), &FuncRef{typed(funTy.Ty()), fname}, args}
}

func (lo *lowerer) findPanic() (*Extern, bool) {
	for i := range lo.externs {
		if lo.externs[i].Name == "shiika_panic" {
			return &lo.externs[i], true
		}
	}
	return nil, false
}

func (lo *lowerer) lowerModuleMethodCall(ctx *fctx, n *hir.HModuleMethodCall) Expr {
	var recv Expr
	if n.Receiver != nil {
		recv = lo.lowerExpr(ctx, n.Receiver)
	} else {
		recv = ctx.selfE()
	}
	args := make([]Expr, 0, len(n.Args)+1)
	args = append(args, recv)
	for _, a := range n.Args {
		args = append(args, lo.lowerExpr(ctx, a))
	}
	slot := 0
	if modT, ok := lo.dict.Get(n.Module); ok && modT.Module != nil {
		for i, first := range modT.Module.Methods.Order() {
			if first == names.MethodFirstname(n.Name) {
				slot = i
				break
			}
		}
	}
	retTy := lo.lowerTy(n.Type())
	paramTys := make([]Ty, len(args))
	for i, a := range args {
		paramTys[i] = a.Ty()
	}
	funTy := &FunTy{Asyncness: AsyncUnknown, Params: paramTys, Ret: retTy}
	callee := &WTableRef{typed(funTy.Ty()), recv, n.Module, names.ModuleKey(n.Module), slot}
	return &FunCall{typed(retTy), callee, args}
}

// lowerLambda lifts a lambda to a top-level function plus a closure
// object: ivar 0 is the function pointer, ivars 1..k the captures.
func (lo *lowerer) lowerLambda(ctx *fctx, n *hir.HLambdaExpr) Expr {
	funTyT := lo.lowerTy(n.Type())
	funTy := funTyT.Fun

	ivars := make([]TypedName, 0, len(n.Captures)+1)
	ivars = append(ivars, TypedName{Name: "@func", Ty: funTyT})
	for _, c := range n.Captures {
		ivars = append(ivars, TypedName{Name: c.Name, Ty: lo.lowerTy(c.Ty)})
	}
	lo.classes = append(lo.classes, MirClass{Name: names.ClassFullname(n.Name), Ivars: ivars})

	// Lifted body.
	params := make([]Param, 0, len(n.Params)+1)
	params = append(params, Param{Name: "$fn", Ty: AnyTy})
	args := map[string]int{}
	for i, p := range n.Params {
		params = append(params, Param{Name: p.Name, Ty: lo.lowerTy(p.Ty)})
		args[p.Name] = i + 1
	}
	capIdx := map[string]int{}
	for i, c := range n.Captures {
		capIdx[c.Name] = i
	}
	inner := &fctx{
		args:     args,
		selfE:    ctx.selfE,
		captures: n.Captures,
		capIdx:   capIdx,
	}
	retTy := funTy.Ret
	var stmts []Expr
	for _, name := range n.LVarOrder {
		stmts = append(stmts, &Alloc{typed(lo.lowerTy(n.LVars[name].Ty)), name})
	}
	for _, e := range n.Body.Exprs {
		stmts = append(stmts, lo.lowerExpr(inner, e))
	}
	lo.funcs = append(lo.funcs, &Function{
		Name:   n.Name,
		Params: params,
		RetTy:  retTy,
		Body:   NewExprs(finishBody(stmts, retTy)),
	})

	// Closure object construction at the lambda site.
	tmp := lo.newTmp()
	objTy := Raw(n.Name)
	site := []Expr{
		&Alloc{typed(objTy), tmp},
		&LVarSet{typed(objTy), tmp, &CreateObject{typed(objTy), names.ClassFullname(n.Name)}},
		&IVarSet{typed(funTyT), &LVarRef{typed(objTy), tmp}, "@func", 0, &FuncRef{typed(funTyT), n.Name}},
	}
	for i, c := range n.Captures {
		var value Expr
		if c.IsForward {
			value = ctx.captureRef(lo, ctx.capIdx[c.Name])
		} else {
			value = ctx.varByName(lo, c.Name, lo.lowerTy(c.Ty))
		}
		site = append(site, &IVarSet{typed(value.Ty()), &LVarRef{typed(objTy), tmp}, c.Name, i + 1, value})
	}
	site = append(site, &Cast{typed(funTyT), CastBit, &LVarRef{typed(objTy), tmp}})
	return NewExprs(site)
}

func (lo *lowerer) lowerLambdaInvocation(ctx *fctx, n *hir.HLambdaInvocation) Expr {
	target := lo.lowerExpr(ctx, n.Target)
	funTyT := target.Ty()
	tmp := lo.newTmp()
	fnRef := &LVarRef{typed(funTyT), tmp}
	callee := &IVarRef{typed(funTyT), fnRef, "@func", 0}
	args := make([]Expr, 0, len(n.Args)+1)
	args = append(args, &Cast{typed(AnyTy), CastBit, fnRef})
	for _, a := range n.Args {
		args = append(args, lo.lowerExpr(ctx, a))
	}
	retTy := lo.lowerTy(n.Type())
	return NewExprs([]Expr{
		&Alloc{typed(funTyT), tmp},
		&LVarSet{typed(funTyT), tmp, target},
		&FunCall{typed(retTy), callee, args},
	})
}

// lowerMatch compiles the compiled-pattern component sequences into nested
// ifs: a failing Test falls through to the next clause's tree; a Bind
// stores into the clause-local slot (allocated with the function's other
// locals).
func (lo *lowerer) lowerMatch(ctx *fctx, n *hir.HMatchExpr) Expr {
	resultTy := lo.lowerTy(n.Type())
	assign := lo.lowerExpr(ctx, n.ScrutineeAssign)

	// Fold clauses from last (the synthesized panic trap) to first.
	last := n.Clauses[len(n.Clauses)-1]
	tree := lo.lowerExprs(ctx, last.Body)
	var current Expr = tree
	for i := len(n.Clauses) - 2; i >= 0; i-- {
		current = lo.lowerComponents(ctx, n.Clauses[i].Components, n.Clauses[i].Body, current, resultTy)
	}
	return NewExprs([]Expr{assign, current})
}

func (lo *lowerer) lowerComponents(ctx *fctx, comps []hir.Component, body *hir.HExprs, els Expr, t Ty) Expr {
	if len(comps) == 0 {
		return lo.lowerExprs(ctx, body)
	}
	switch c := comps[0].(type) {
	case hir.Test:
		then := lo.lowerComponents(ctx, comps[1:], body, els, t)
		return &If{typed(t), lo.lowerExpr(ctx, c.Expr), wrapExprs(then), wrapExprs(els)}
	case hir.Bind:
		set := &LVarSet{typed(lo.lowerTy(c.Expr.Type())), c.Name, lo.lowerExpr(ctx, c.Expr)}
		rest := lo.lowerComponents(ctx, comps[1:], body, els, t)
		return NewExprs([]Expr{set, rest})
	default:
		return els
	}
}

func wrapExprs(e Expr) *Exprs {
	if es, ok := e.(*Exprs); ok {
		return es
	}
	return NewExprs([]Expr{e})
}
