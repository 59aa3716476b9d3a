package async

import (
	"fmt"

	"github.com/shiika-lang/shiika-go/internal/mir"
)

// Split rewrites every async function into chapter functions over a heap
// environment frame and marks every function Lowered. Sync
// functions pass through unchanged apart from the marker: their locals
// stay on the stack, since only a frame that must survive a suspension
// needs the heap.
func Split(prog *mir.Program) *mir.Program {
	var out []*mir.Function
	for _, f := range prog.Funcs {
		if f.Asyncness != mir.AsyncAsync {
			f.Asyncness = mir.AsyncLowered
			out = append(out, f)
			continue
		}
		out = append(out, splitFunction(prog, f)...)
	}
	prog.Funcs = out
	return prog
}

// typeID maps a MIR type to the runtime tag chiika_env_set/ref carry;
// deterministic so repeated compiles agree.
func typeID(t mir.Ty) int64 {
	if t.Kind == mir.TyFun {
		return 5
	}
	switch t.String() {
	case "Int":
		return 1
	case "Bool":
		return 2
	case "Float":
		return 3
	case "Void":
		return 4
	default:
		return 0
	}
}

func envOnlyFunTy() *mir.FunTy {
	return &mir.FunTy{Asyncness: mir.AsyncLowered, Params: []mir.Ty{mir.ChiikaEnvTy}, Ret: mir.RustFutureTy}
}

// contFunTy is the continuation signature for a value of type ret:
// (ChiikaEnv, ret) -> RustFuture.
func contFunTy(ret mir.Ty) *mir.FunTy {
	return &mir.FunTy{Asyncness: mir.AsyncLowered, Params: []mir.Ty{mir.ChiikaEnvTy, ret}, Ret: mir.RustFutureTy}
}

type chapter struct {
	name   string
	params []mir.Param
	stmts  []mir.Expr
}

type splitter struct {
	prog *mir.Program
	src  *mir.Function

	slots     map[string]int
	frameSize int

	chapters []*chapter
	cur      *chapter
	count    int
	tmpCount int
}

func splitFunction(prog *mir.Program, f *mir.Function) []*mir.Function {
	s := &splitter{prog: prog, src: f, slots: map[string]int{}}

	flat := s.flattenStmts(f.Body.Exprs)

	// Frame layout: slot 0 the continuation, slots 1..n the
	// parameters, then one slot per alloc.
	slot := 1
	for _, p := range f.Params {
		s.slots[p.Name] = slot
		slot++
	}
	for _, st := range flat {
		mir.Walk(st, func(e mir.Expr) bool {
			if a, ok := e.(*mir.Alloc); ok {
				if _, seen := s.slots[a.Name]; !seen {
					s.slots[a.Name] = slot
					slot++
				}
			}
			return true
		})
	}
	s.frameSize = slot

	contTy := contFunTy(f.RetTy)
	firstParams := make([]mir.Param, 0, len(f.Params)+2)
	firstParams = append(firstParams, mir.Param{Name: "$env", Ty: mir.ChiikaEnvTy})
	firstParams = append(firstParams, f.Params...)
	firstParams = append(firstParams, mir.Param{Name: "$cont", Ty: contTy.Ty()})
	s.open(&chapter{name: f.Name, params: firstParams})

	// Prologue: push the frame, stash the continuation and the parameters.
	s.emit(s.runtimeCall("chiika_env_push_frame", s.env(), mir.NewRawI64(int64(s.frameSize))))
	contArg := mir.NewArgRef(contTy.Ty(), len(f.Params)+1, "$cont")
	s.emit(mir.NewEnvSet(0, mir.NewCast(mir.AnyTy, mir.CastToAny, contArg), typeID(contTy.Ty())))
	for i, p := range f.Params {
		arg := mir.NewArgRef(p.Ty, i+1, p.Name)
		s.emit(mir.NewEnvSet(1+i, mir.NewCast(mir.AnyTy, mir.CastToAny, arg), typeID(p.Ty)))
	}

	s.splitStmtsWith(flat, func(v mir.Expr) {
		s.emit(s.contReturn(v))
	})

	funcs := make([]*mir.Function, len(s.chapters))
	for i, ch := range s.chapters {
		fn := &mir.Function{
			Asyncness: mir.AsyncLowered,
			Name:      ch.name,
			Params:    ch.params,
			RetTy:     mir.RustFutureTy,
			Body:      mir.NewExprs(ch.stmts),
		}
		if i == 0 {
			fn.Sig = f.Sig
		}
		funcs[i] = fn
	}
	return funcs
}

func (s *splitter) open(ch *chapter) {
	s.chapters = append(s.chapters, ch)
	s.cur = ch
}

func (s *splitter) emit(e mir.Expr) { s.cur.stmts = append(s.cur.stmts, e) }

func (s *splitter) env() mir.Expr { return mir.NewArgRef(mir.ChiikaEnvTy, 0, "$env") }

func (s *splitter) newTmp() string {
	s.tmpCount++
	return fmt.Sprintf("$async_tmp_%d", s.tmpCount)
}

func (s *splitter) nextBase() string {
	s.count++
	return fmt.Sprintf("%s_%d", s.src.Name, s.count)
}

func (s *splitter) runtimeCall(name string, args ...mir.Expr) mir.Expr {
	ext, ok := s.prog.FindExtern(name)
	if !ok {
		panic("async: missing runtime extern " + name)
	}
	return mir.NewFunCall(mir.NewFuncRef(&ext.FunTy, ext.Name), args)
}

func (s *splitter) envRead(slot int, t mir.Ty) mir.Expr {
	return mir.NewCast(t, mir.CastRecover, mir.NewEnvRef(mir.AnyTy, slot, typeID(t)))
}

func (s *splitter) envWrite(name string, value mir.Expr) mir.Expr {
	return mir.NewEnvSet(s.slots[name], mir.NewCast(mir.AnyTy, mir.CastToAny, value), typeID(value.Ty()))
}

// popCont recovers the continuation from frame slot 0 while popping the
// frame.
func (s *splitter) popCont() mir.Expr {
	pop := s.runtimeCall("chiika_env_pop_frame", s.env(), mir.NewRawI64(int64(s.frameSize)))
	return mir.NewCast(contFunTy(s.src.RetTy).Ty(), mir.CastRecover, pop)
}

// contReturn ends the function: pop the frame and tail-call the
// continuation with the result value.
func (s *splitter) contReturn(v mir.Expr) mir.Expr {
	return mir.NewReturn(mir.NewFunCall(s.popCont(), []mir.Expr{s.env(), v}))
}

func (s *splitter) tailCall(name string, extra ...mir.Expr) mir.Expr {
	funTy := envOnlyFunTy()
	for _, e := range extra {
		funTy.Params = append(funTy.Params, e.Ty())
	}
	args := append([]mir.Expr{s.env()}, extra...)
	return mir.NewReturn(mir.NewFunCall(mir.NewFuncRef(funTy, name), args))
}

// rewriteExpr rewires a within-chapter expression: allocs vanish (the
// frame slot already exists), lvar and arg accesses go through the env
// with ToAny/Recover casts, and function-level returns become
// continuation calls. Returns already typed RustFuture are chapter tail
// calls and pass through untouched.
func (s *splitter) rewriteExpr(e mir.Expr) mir.Expr {
	return mir.Rewrite(e, func(e mir.Expr) mir.Expr {
		switch n := e.(type) {
		case *mir.Alloc:
			return mir.NewNop()
		case *mir.LVarRef:
			return s.envRead(s.slots[n.Name], n.Ty())
		case *mir.LVarSet:
			return s.envWrite(n.Name, n.Value)
		case *mir.ArgRef:
			return s.envRead(1+n.Idx, n.Ty())
		case *mir.Return:
			if n.Value.Ty().Equals(mir.RustFutureTy) {
				return n
			}
			return s.contReturn(n.Value)
		}
		return e
	})
}

// asyncCallOf matches a direct or indirect call whose callee is async.
func asyncCallOf(e mir.Expr) (*mir.FunCall, bool) {
	call, ok := e.(*mir.FunCall)
	if !ok {
		return nil, false
	}
	t := call.Callee.Ty()
	if t.Kind == mir.TyFun && t.Fun.Asyncness == mir.AsyncAsync {
		return call, true
	}
	return nil, false
}

func containsAsync(e mir.Expr) bool {
	found := false
	mir.Walk(e, func(sub mir.Expr) bool {
		if _, ok := asyncCallOf(sub); ok {
			found = true
		}
		return !found
	})
	return found
}

// loweredCall rebuilds an async call for the post-split calling
// convention: the callee gains a leading $env and a trailing continuation
// parameter and returns RustFuture.
func (s *splitter) loweredCall(call *mir.FunCall, cont mir.Expr) mir.Expr {
	old := call.Callee.Ty().Fun
	params := make([]mir.Ty, 0, len(old.Params)+2)
	params = append(params, mir.ChiikaEnvTy)
	params = append(params, old.Params...)
	params = append(params, cont.Ty())
	funTy := &mir.FunTy{Asyncness: mir.AsyncLowered, Params: params, Ret: mir.RustFutureTy}
	callee := mir.WithFunTy(s.rewriteExpr(call.Callee), funTy)
	args := make([]mir.Expr, 0, len(call.Args)+2)
	args = append(args, s.env())
	for _, a := range call.Args {
		args = append(args, s.rewriteExpr(a))
	}
	args = append(args, cont)
	return mir.NewFunCall(callee, args)
}

// breakAtCall closes the current chapter with a lowered async call whose
// continuation is the next chapter, and opens that chapter with
// ($env, $async_result) parameters. Returns the arg-ref that replaces the
// call's value.
func (s *splitter) breakAtCall(call *mir.FunCall) mir.Expr {
	retTy := call.Ty()
	next := &chapter{
		name: s.nextBase(),
		params: []mir.Param{
			{Name: "$env", Ty: mir.ChiikaEnvTy},
			{Name: "$async_result", Ty: retTy},
		},
	}
	cont := mir.NewFuncRef(contFunTy(retTy), next.name)
	s.emit(mir.NewReturn(s.loweredCall(call, cont)))
	s.open(next)
	return mir.NewArgRef(retTy, 1, "$async_result")
}

// splitStmtsWith walks a flattened statement list splitting at every
// suspension point; end receives the final value in whichever chapter is
// then current. A terminating statement (a return) drops end.
func (s *splitter) splitStmtsWith(stmts []mir.Expr, end func(mir.Expr)) {
	if len(stmts) == 0 {
		end(mir.NewPseudoVar(mir.Raw("Void"), mir.PseudoVoid))
		return
	}
	st, rest := stmts[0], stmts[1:]
	isLast := len(rest) == 0
	done := func(v mir.Expr) {
		if isLast {
			end(v)
		} else {
			s.splitStmtsWith(rest, end)
		}
	}

	switch n := st.(type) {
	case *mir.Return:
		s.handleReturn(n)
		return

	case *mir.LVarSet:
		if call, ok := asyncCallOf(n.Value); ok {
			result := s.breakAtCall(call)
			s.emit(s.envWrite(n.Name, result))
			done(result)
			return
		}
		if ifn, ok := n.Value.(*mir.If); ok && containsAsync(ifn) {
			v := s.splitIf(ifn)
			s.emit(s.envWrite(n.Name, v))
			done(v)
			return
		}

	case *mir.FunCall:
		if call, ok := asyncCallOf(st); ok {
			result := s.breakAtCall(call)
			done(result)
			return
		}

	case *mir.If:
		if containsAsync(st) {
			v := s.splitIf(n)
			done(v)
			return
		}

	case *mir.While:
		if containsAsync(st) {
			s.splitWhile(n)
			done(mir.NewPseudoVar(mir.Raw("Void"), mir.PseudoVoid))
			return
		}
	}

	if isLast {
		end(s.rewriteExpr(st))
		return
	}
	s.emit(s.rewriteExpr(st))
	s.splitStmtsWith(rest, end)
}

// handleReturn emits a function-level return. When the value is itself an
// async call, the popped continuation becomes that call's continuation
// directly, with no extra chapter.
func (s *splitter) handleReturn(n *mir.Return) {
	if n.Value.Ty().Equals(mir.RustFutureTy) {
		s.emit(n) // already a chapter tail call (a rewritten break)
		return
	}
	if call, ok := asyncCallOf(n.Value); ok {
		s.emit(mir.NewReturn(s.loweredCall(call, s.popCont())))
		return
	}
	s.emit(s.contReturn(s.rewriteExpr(n.Value)))
}

// splitIf compiles an if containing a suspension: the condition stays in
// the current chapter, each branch becomes
// a chapter tail-calling an endif chapter that receives the if-value; a
// Never-typed branch omits the endif call. Leaves the endif chapter
// current and returns the if-value reference.
func (s *splitter) splitIf(n *mir.If) mir.Expr {
	base := s.nextBase()
	ifTy := n.Ty()
	thenCh := &chapter{name: base + "'t", params: []mir.Param{{Name: "$env", Ty: mir.ChiikaEnvTy}}}
	elseCh := &chapter{name: base + "'f", params: []mir.Param{{Name: "$env", Ty: mir.ChiikaEnvTy}}}
	endCh := &chapter{
		name: base + "'e",
		params: []mir.Param{
			{Name: "$env", Ty: mir.ChiikaEnvTy},
			{Name: "$ifResult", Ty: ifTy},
		},
	}

	cond := s.rewriteExpr(n.Cond)
	s.emit(mir.NewIf(mir.Raw("Never"), cond,
		mir.NewExprs([]mir.Expr{s.tailCall(thenCh.name)}),
		mir.NewExprs([]mir.Expr{s.tailCall(elseCh.name)})))

	branches := []struct {
		ch   *chapter
		body *mir.Exprs
	}{{thenCh, n.Then}, {elseCh, n.Else}}
	for _, br := range branches {
		s.open(br.ch)
		var stmts []mir.Expr
		if br.body != nil {
			stmts = br.body.Exprs
		}
		if br.body != nil && br.body.Ty().Equals(mir.Raw("Never")) {
			s.splitStmtsWith(stmts, func(v mir.Expr) { s.emit(v) })
		} else {
			s.splitStmtsWith(stmts, func(v mir.Expr) { s.emit(s.tailCall(endCh.name, v)) })
		}
	}
	s.open(endCh)
	return mir.NewArgRef(ifTy, 1, "$ifResult")
}

// splitWhile compiles a while containing a suspension into cond/body/end
// chapters that tail-call each other through the environment.
func (s *splitter) splitWhile(n *mir.While) {
	base := s.nextBase()
	condCh := &chapter{name: base + "'w", params: []mir.Param{{Name: "$env", Ty: mir.ChiikaEnvTy}}}
	bodyCh := &chapter{name: base + "'h", params: []mir.Param{{Name: "$env", Ty: mir.ChiikaEnvTy}}}
	endCh := &chapter{name: base + "'q", params: []mir.Param{{Name: "$env", Ty: mir.ChiikaEnvTy}}}

	s.emit(s.tailCall(condCh.name))

	s.open(condCh)
	cond := s.rewriteExpr(n.Cond)
	s.emit(mir.NewIf(mir.Raw("Never"), cond,
		mir.NewExprs([]mir.Expr{s.tailCall(bodyCh.name)}),
		mir.NewExprs([]mir.Expr{s.tailCall(endCh.name)})))

	s.open(bodyCh)
	var stmts []mir.Expr
	if n.Body != nil {
		stmts = rewriteBreaks(n.Body.Exprs, func() mir.Expr { return s.tailCall(endCh.name) })
	}
	s.splitStmtsWith(stmts, func(mir.Expr) { s.emit(s.tailCall(condCh.name)) })

	s.open(endCh)
}

// rewriteBreaks replaces breaks belonging to the loop being split with a
// tail call to its end chapter, leaving breaks of nested loops alone.
func rewriteBreaks(stmts []mir.Expr, exit func() mir.Expr) []mir.Expr {
	out := make([]mir.Expr, len(stmts))
	for i, st := range stmts {
		out[i] = rewriteBreak1(st, exit)
	}
	return out
}

func rewriteBreak1(e mir.Expr, exit func() mir.Expr) mir.Expr {
	switch n := e.(type) {
	case *mir.Break:
		return exit()
	case *mir.If:
		return mir.NewIf(n.Ty(), n.Cond, rewriteBreakBlock(n.Then, exit), rewriteBreakBlock(n.Else, exit))
	case *mir.Exprs:
		return mir.NewExprs(rewriteBreaks(n.Exprs, exit))
	case *mir.LVarSet:
		return mir.NewLVarSet(n.Name, rewriteBreak1(n.Value, exit))
	default:
		return e
	}
}

func rewriteBreakBlock(es *mir.Exprs, exit func() mir.Expr) *mir.Exprs {
	if es == nil {
		return nil
	}
	return mir.NewExprs(rewriteBreaks(es.Exprs, exit))
}

// ---- Flattening ----

// flattenStmts A-normalizes async calls (and the operands evaluated
// before them) so every suspension appears only as a whole statement, the
// value of a local store, or a return value; after chapter construction no
// async call remains at value position.
func (s *splitter) flattenStmts(stmts []mir.Expr) []mir.Expr {
	var out []mir.Expr
	for _, st := range stmts {
		v := s.flattenExpr(st, &out, true)
		out = append(out, v)
	}
	return out
}

func isTrivial(e mir.Expr) bool {
	switch e.(type) {
	case *mir.LVarRef, *mir.ArgRef, *mir.Number, *mir.PseudoVar, *mir.StringRef,
		*mir.FuncRef, *mir.RawI64, *mir.ConstRef, *mir.Nop:
		return true
	}
	return false
}

// spill stores v into a fresh frame temporary, preserving evaluation
// order across a later suspension point.
func (s *splitter) spill(v mir.Expr, out *[]mir.Expr) mir.Expr {
	tmp := s.newTmp()
	*out = append(*out, mir.NewAlloc(v.Ty(), tmp), mir.NewLVarSet(tmp, v))
	return mir.NewLVarRef(v.Ty(), tmp)
}

// flattenOperands flattens an evaluation sequence left to right, spilling
// any non-trivial operand that a later operand's suspension would
// otherwise re-order.
func (s *splitter) flattenOperands(ops []mir.Expr, out *[]mir.Expr) []mir.Expr {
	res := make([]mir.Expr, len(ops))
	for i, op := range ops {
		laterAsync := false
		for _, later := range ops[i+1:] {
			if containsAsync(later) {
				laterAsync = true
				break
			}
		}
		v := s.flattenExpr(op, out, false)
		if laterAsync && !isTrivial(v) {
			v = s.spill(v, out)
		}
		res[i] = v
	}
	return res
}

func (s *splitter) flattenExpr(e mir.Expr, out *[]mir.Expr, top bool) mir.Expr {
	switch n := e.(type) {
	case *mir.FunCall:
		ops := append([]mir.Expr{n.Callee}, n.Args...)
		flat := s.flattenOperands(ops, out)
		call := mir.NewFunCall(flat[0], flat[1:])
		if _, ok := asyncCallOf(call); ok && !top {
			return s.spill(call, out)
		}
		return call

	case *mir.If:
		cond := s.flattenExpr(n.Cond, out, false)
		var thenB, elseB *mir.Exprs
		if n.Then != nil {
			thenB = mir.NewExprs(s.flattenStmts(n.Then.Exprs))
		}
		if n.Else != nil {
			elseB = mir.NewExprs(s.flattenStmts(n.Else.Exprs))
		}
		flat := mir.NewIf(n.Ty(), cond, thenB, elseB)
		if containsAsync(flat) && !top {
			tmp := s.newTmp()
			*out = append(*out, mir.NewAlloc(n.Ty(), tmp), mir.NewLVarSet(tmp, flat))
			return mir.NewLVarRef(n.Ty(), tmp)
		}
		return flat

	case *mir.While:
		if containsAsync(n.Cond) {
			// Re-evaluating an async condition per iteration needs a
			// chapter boundary inside the loop, so move the condition
			// into the body of a `while true`.
			var condOut []mir.Expr
			c := s.flattenExpr(n.Cond, &condOut, false)
			guard := mir.NewIf(mir.Raw("Void"), c,
				mir.NewExprs([]mir.Expr{mir.NewPseudoVar(mir.Raw("Void"), mir.PseudoVoid)}),
				mir.NewExprs([]mir.Expr{mir.NewBreak()}))
			body := append(condOut, guard)
			if n.Body != nil {
				body = append(body, s.flattenStmts(n.Body.Exprs)...)
			}
			return mir.NewWhile(mir.NewPseudoVar(mir.Raw("Bool"), mir.PseudoTrue), mir.NewExprs(body))
		}
		cond := s.flattenExpr(n.Cond, out, false)
		var body *mir.Exprs
		if n.Body != nil {
			body = mir.NewExprs(s.flattenStmts(n.Body.Exprs))
		}
		return mir.NewWhile(cond, body)

	case *mir.Exprs:
		if len(n.Exprs) == 0 {
			return e
		}
		for _, sub := range n.Exprs[:len(n.Exprs)-1] {
			v := s.flattenExpr(sub, out, true)
			*out = append(*out, v)
		}
		return s.flattenExpr(n.Exprs[len(n.Exprs)-1], out, top)

	case *mir.Return:
		return mir.NewReturn(s.flattenExpr(n.Value, out, true))

	case *mir.LVarSet:
		return mir.NewLVarSet(n.Name, s.flattenExpr(n.Value, out, top))

	case *mir.Cast:
		return mir.NewCast(n.Ty(), n.Kind, s.flattenExpr(n.Expr, out, false))

	case *mir.UnboxInt:
		return mir.NewUnboxInt(s.flattenExpr(n.Expr, out, false))

	case *mir.IVarRef:
		return mir.NewIVarRef(n.Ty(), s.flattenExpr(n.Receiver, out, false), n.Name, n.Idx)

	case *mir.IVarSet:
		ops := s.flattenOperands([]mir.Expr{n.Receiver, n.Value}, out)
		return mir.NewIVarSet(ops[0], n.Name, n.Idx, ops[1])

	case *mir.EnvSet:
		return mir.NewEnvSet(n.Slot, s.flattenExpr(n.Value, out, false), n.TypeID)

	case *mir.ConstSet:
		return mir.NewConstSet(n.Name, s.flattenExpr(n.Value, out, false))

	case *mir.VTableRef:
		return mir.NewVTableRef(n.Ty().Fun, s.flattenExpr(n.Receiver, out, false), n.Class, n.Slot)

	case *mir.WTableRef:
		return mir.NewWTableRef(n.Ty().Fun, s.flattenExpr(n.Receiver, out, false), n.Module, n.ModKey, n.Slot)

	default:
		return e
	}
}
