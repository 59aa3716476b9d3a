package hir

import (
	"fmt"
	"strings"

	"github.com/shiika-lang/shiika-go/internal/ast"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/ty"
	"github.com/shiika-lang/shiika-go/internal/typedict"
)

// selfTy computes the type of `self` in the current context: the enclosing
// class specialized with its own type parameters as typaram-refs, or
// Object at the toplevel.
func (el *Elaborator) selfTy() ty.TermTy {
	cscope, ok := el.topOfKind(scopeClass)
	if !ok {
		return ty.Object
	}
	args := make([]ty.TermTy, len(cscope.classTyParams))
	for i, tp := range cscope.classTyParams {
		args[i] = ty.ParamRef(ty.ClassParam, tp.Name, i, nil, nil)
	}
	selfT := ty.Lit(cscope.ns.String(), args...)
	if mscope, mok := el.topOfKind(scopeMethod); mok && mscope.isClassMethod {
		return selfT.MetaTy()
	}
	return selfT
}

// resolveTypeTerm resolves a surface type expression inside a method body
// (lambda parameter types, method type-argument position), checking
// in-scope type parameters first (method typarams shadow class typarams)
// and then walking the namespace stack like the const scope iterator.
func (el *Elaborator) resolveTypeTerm(te ast.TypeExpr, pos ast.Pos) (ty.TermTy, *sherrors.Report) {
	if len(te.Path) == 1 && len(te.Args) == 0 && !te.IsMeta {
		if mscope, ok := el.topOfKind(scopeMethod); ok {
			for i, p := range mscope.methodTyParams {
				if p.Name == te.Path[0] {
					return ty.ParamRef(ty.MethodParam, p.Name, i, nil, nil), nil
				}
			}
		}
		if cscope, ok := el.topOfKind(scopeClass); ok {
			for i, p := range cscope.classTyParams {
				if p.Name == te.Path[0] {
					return ty.ParamRef(ty.ClassParam, p.Name, i, nil, nil), nil
				}
			}
		}
	}
	joined := strings.Join(te.Path, "::")
	for _, ns := range el.namespaceStack() {
		for _, prefix := range ns.Prefixes() {
			candidate := names.ClassFullname(prefix.Qualify(joined))
			if _, ok := el.dict.Get(candidate); !ok {
				continue
			}
			args := make([]ty.TermTy, len(te.Args))
			for i, a := range te.Args {
				at, err := el.resolveTypeTerm(a, pos)
				if err != nil {
					return ty.TermTy{}, err
				}
				args[i] = at
			}
			if te.IsMeta {
				return ty.Meta(string(candidate), args...), nil
			}
			return ty.Lit(string(candidate), args...), nil
		}
	}
	return ty.TermTy{}, sherrors.New(sherrors.NAM001, spanOf(pos), "unknown type name %q", joined)
}

func isFnTy(t ty.TermTy) bool {
	return !t.IsTyParamRef() && strings.HasPrefix(t.BaseName, "Fn") && len(t.TypeArgs) > 0
}

// elaborateMethodCall type-checks and resolves a surface method call.
func (el *Elaborator) elaborateMethodCall(n *ast.MethodCall) (HExpr, *sherrors.Report) {
	// Step 1: an absent receiver whose name matches a visible
	// function-typed lvar becomes a lambda invocation, not a method call.
	if n.Recv == nil {
		if entry, _, found := el.lookupLVar(n.Name); found && isFnTy(entry.Ty) {
			return el.elaborateLambdaInvocation(n, entry.Ty)
		}
	}

	var recv HExpr
	var err *sherrors.Report
	if n.Recv != nil {
		recv, err = el.elaborateExpr(n.Recv)
		if err != nil {
			return nil, err
		}
	}

	// Step 2: evaluate each argument, in source order.
	args := make([]HExpr, 0, len(n.Args)+1)
	for _, a := range n.Args {
		h, aerr := el.elaborateExpr(a)
		if aerr != nil {
			return nil, aerr
		}
		args = append(args, h)
	}
	if n.Block != nil {
		block, berr := el.elaborateLambdaWith(false, n.BlockParams, n.Block, n.Pos)
		if berr != nil {
			return nil, berr
		}
		args = append(args, block)
	}

	// Step 3: resolve method type-arguments (constant references in method
	// type-argument position denote types).
	tyArgs := make([]ty.TermTy, len(n.TyArgs))
	for i, te := range n.TyArgs {
		at, terr := el.resolveTypeTerm(te, n.Pos)
		if terr != nil {
			return nil, terr
		}
		tyArgs[i] = at
	}

	return el.resolveMethodCall(recv, n.Name, tyArgs, args, n.Pos)
}

// resolveMethodCall finishes a call once receiver and arguments are
// elaborated: lookup, arity/conformance checks, receiver cast, and the
// uniform-representation casts for specialized receivers.
func (el *Elaborator) resolveMethodCall(recv HExpr, name string, tyArgs []ty.TermTy, args []HExpr, pos ast.Pos) (HExpr, *sherrors.Report) {
	recvTy := el.selfTy()
	if recv != nil {
		recvTy = recv.Type()
	}

	res, lerr := typedict.Lookup(el.dict, recvTy, names.MethodFirstname(name))
	if lerr != nil {
		lerr.Span = spanOf(pos)
		return nil, lerr
	}
	sig := typedict.SpecializeMethod(res.Sig, tyArgs)

	// Step 5: arity, then per-parameter conformance.
	min, max := sig.Arity()
	if len(args) < min || len(args) > max {
		return nil, sherrors.New(sherrors.TYP002, spanOf(pos),
			"%s takes %d..%d args but got %d", sig.Fullname, min, max, len(args))
	}
	for i, a := range args {
		if !typedict.Conforms(el.dict, a.Type(), sig.Params[i].Ty) {
			return nil, sherrors.New(sherrors.TYP001, spanOf(pos),
				"argument %d of %s: %s does not conform to %s", i+1, sig.Fullname, a.Type(), sig.Params[i].Ty)
		}
	}
	if len(args) > 0 {
		if block, ok := args[len(args)-1].(*HLambdaExpr); ok && block.HasBreak && !sig.RetTy.Equals(ty.Void) {
			return nil, sherrors.New(sherrors.TYP007, spanOf(pos),
				"a block containing break may only be passed to a method returning Void, not %s", sig.RetTy)
		}
	}

	ownerT, _ := el.dict.Get(res.Owner)
	if ownerT != nil && !ownerT.IsClass() {
		return &HModuleMethodCall{
			hbase:    hbase{Ty: sig.RetTy, P: pos},
			Receiver: recv,
			Module:   res.Owner,
			Name:     name,
			Args:     args,
		}, nil
	}

	// Step 6: bit-cast the receiver when its concrete class differs from
	// the method's owner (an inherited method).
	if recv != nil && !recvTy.IsTyParamRef() {
		ownerErasure := res.Owner
		if recvTy.IsMeta {
			ownerErasure = res.Owner.MetaName()
		}
		if recvTy.Erasure().Fullname() != ownerErasure {
			target := ty.Lit(string(res.Owner))
			if recvTy.IsMeta {
				target = target.MetaTy()
			}
			recv = &HBitCast{hbase: hbase{Ty: target, P: pos}, Expr: recv}
		}
	}

	call := &HMethodCall{
		hbase:    hbase{Ty: sig.RetTy, P: pos},
		Receiver: recv,
		Name:     name,
		Owner:    res.Owner,
		Args:     args,
		TyArgs:   tyArgs,
	}

	// Step 7: on a specialized receiver (and for generic methods, whose
	// method-level type parameters erase the same way), arguments and the
	// return value travel through Object to satisfy the
	// uniform-representation ABI.
	if (len(recvTy.TypeArgs) > 0 && !recvTy.IsTyParamRef()) || len(res.Sig.TyParams) > 0 {
		for i, a := range call.Args {
			if !a.Type().Equals(ty.Object) {
				call.Args[i] = &HBitCast{hbase: hbase{Ty: ty.Object, P: pos}, Expr: a}
			}
		}
		if !sig.RetTy.Equals(ty.Object) && !sig.RetTy.Equals(ty.Void) && !sig.RetTy.Equals(ty.Never) {
			inner := *call
			inner.Ty = ty.Object
			return &HBitCast{hbase: hbase{Ty: sig.RetTy, P: pos}, Expr: &inner}, nil
		}
	}
	return call, nil
}

// elaborateLambdaInvocation calls a first-class function value held in an
// lvar.
func (el *Elaborator) elaborateLambdaInvocation(n *ast.MethodCall, fnTy ty.TermTy) (HExpr, *sherrors.Report) {
	target, _ := el.resolveLVarRef(n.Name, n.Pos)
	paramTys := fnTy.TypeArgs[:len(fnTy.TypeArgs)-1]
	retTy := fnTy.TypeArgs[len(fnTy.TypeArgs)-1]
	if len(n.Args) != len(paramTys) {
		return nil, sherrors.New(sherrors.TYP002, spanOf(n.Pos),
			"%s takes %d args but got %d", fnTy, len(paramTys), len(n.Args))
	}
	args := make([]HExpr, len(n.Args))
	for i, a := range n.Args {
		h, err := el.elaborateExpr(a)
		if err != nil {
			return nil, err
		}
		if !typedict.Conforms(el.dict, h.Type(), paramTys[i]) {
			return nil, sherrors.New(sherrors.TYP001, spanOf(n.Pos),
				"argument %d: %s does not conform to %s", i+1, h.Type(), paramTys[i])
		}
		args[i] = h
	}
	return &HLambdaInvocation{hbase: hbase{Ty: retTy, P: n.Pos}, Target: target, Args: args}, nil
}

func (el *Elaborator) elaborateLambda(n *ast.LambdaExpr) (HExpr, *sherrors.Report) {
	return el.elaborateLambdaWith(n.IsFn, n.Params, n.Body, n.Pos)
}

// elaborateLambdaWith compiles parameters and body under a fresh lambda
// context, then extracts the capture list and assigns the lambda an
// auto-generated unique name incorporating the enclosing scope's
// description.
func (el *Elaborator) elaborateLambdaWith(isFn bool, params []ast.Param, body []ast.Expr, pos ast.Pos) (*HLambdaExpr, *sherrors.Report) {
	el.lambdaCounter++
	name := fmt.Sprintf("lambda_%d_in_%s", el.lambdaCounter, el.scopeDescription())

	lparams := make([]LParam, len(params))
	for i, p := range params {
		t := ty.Object
		if p.Type != nil {
			rt, err := el.resolveTypeTerm(*p.Type, pos)
			if err != nil {
				return nil, err
			}
			t = rt
		}
		lparams[i] = LParam{Name: p.Name, Ty: t}
	}

	lscope := newScope(scopeLambda)
	lscope.isFn = isFn
	lscope.lambdaName = name
	lscope.params = lparams
	for _, p := range lparams {
		lscope.declareLVar(p.Name, p.Ty, true)
	}
	el.push(lscope)
	bodyH, err := el.elaborateExprSeq(body)
	el.pop()
	if err != nil {
		return nil, err
	}

	fnArgs := make([]ty.TermTy, 0, len(lparams)+1)
	for _, p := range lparams {
		fnArgs = append(fnArgs, p.Ty)
	}
	fnArgs = append(fnArgs, bodyH.Ty)
	fnTy := ty.Lit(fmt.Sprintf("Fn%d", len(lparams)), fnArgs...)

	lvars, order := localsOf(lscope)
	return &HLambdaExpr{
		hbase:     hbase{Ty: fnTy, P: pos},
		Name:      name,
		IsFn:      isFn,
		Params:    lparams,
		Body:      bodyH,
		Captures:  lscope.captures,
		HasBreak:  lscope.hasBreak,
		LVars:     lvars,
		LVarOrder: order,
	}, nil
}

// scopeDescription names the innermost method, lambda, or class scope for
// lambda naming; "toplevel" outside any of those.
func (el *Elaborator) scopeDescription() string {
	for i := len(el.scopes) - 1; i >= 0; i-- {
		s := el.scopes[i]
		switch s.kind {
		case scopeLambda:
			return s.lambdaName
		case scopeMethod:
			return s.methodName
		case scopeClass:
			return s.ns.String()
		}
	}
	return "toplevel"
}
