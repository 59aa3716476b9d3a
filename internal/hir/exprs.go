package hir

import (
	"github.com/shiika-lang/shiika-go/internal/ast"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/ty"
	"github.com/shiika-lang/shiika-go/internal/typedict"
)

// elaborateExpr dispatches on the concrete ast.Expr type.
func (el *Elaborator) elaborateExpr(e ast.Expr) (HExpr, *sherrors.Report) {
	switch n := e.(type) {
	case *ast.IntLit:
		return &HLit{hbase: hbase{Ty: ty.Int, P: n.Pos}, Kind: LitInt, IVal: n.Value}, nil
	case *ast.FloatLit:
		return &HLit{hbase: hbase{Ty: ty.Float, P: n.Pos}, Kind: LitFloat, FVal: n.Value}, nil
	case *ast.BoolLit:
		return &HLit{hbase: hbase{Ty: ty.Bool, P: n.Pos}, Kind: LitBool, BVal: n.Value}, nil
	case *ast.StringLit:
		return el.elaborateStringLit(n)
	case *ast.SelfExpr:
		return el.elaborateSelf(n)
	case *ast.LVarRef:
		return el.elaborateBareRef(n)
	case *ast.IVarRef:
		return el.elaborateIVarRef(n)
	case *ast.ConstRef:
		return el.elaborateConstRef(n)
	case *ast.VarDecl:
		return el.elaborateVarDecl(n)
	case *ast.Assign:
		return el.elaborateAssign(n)
	case *ast.IfExpr:
		return el.elaborateIf(n)
	case *ast.WhileExpr:
		return el.elaborateWhile(n)
	case *ast.BreakExpr:
		return el.elaborateBreak(n)
	case *ast.ReturnExpr:
		return el.elaborateReturn(n)
	case *ast.NotExpr:
		operand, err := el.elaborateExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return &HNot{hbase: hbase{Ty: ty.Bool, P: n.Pos}, Operand: operand}, nil
	case *ast.AndExpr:
		l, err := el.elaborateExpr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := el.elaborateExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &HAnd{hbase: hbase{Ty: ty.Bool, P: n.Pos}, Left: l, Right: r}, nil
	case *ast.OrExpr:
		l, err := el.elaborateExpr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := el.elaborateExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &HOr{hbase: hbase{Ty: ty.Bool, P: n.Pos}, Left: l, Right: r}, nil
	case *ast.LambdaExpr:
		return el.elaborateLambda(n)
	case *ast.MethodCall:
		return el.elaborateMethodCall(n)
	case *ast.MatchExpr:
		return el.elaborateMatch(n)
	default:
		return nil, sherrors.New(sherrors.TYP001, sherrors.Span{}, "unsupported expression %T", e)
	}
}

// elaborateStringLit desugars interpolation to a chain of `+` calls on
// to_s results. This implementation
// keeps the call-chain form rather than adding a dedicated IR node, so
// evaluation order of the interpolated expressions stays explicit.
func (el *Elaborator) elaborateStringLit(n *ast.StringLit) (HExpr, *sherrors.Report) {
	var acc HExpr
	for _, part := range n.Parts {
		var piece HExpr
		if part.Expr == nil {
			piece = &HLit{hbase: hbase{Ty: ty.String, P: n.Pos}, Kind: LitString, SVal: part.Literal}
		} else {
			h, err := el.elaborateExpr(part.Expr)
			if err != nil {
				return nil, err
			}
			piece = &HMethodCall{hbase: hbase{Ty: ty.String, P: n.Pos}, Receiver: h, Name: "to_s", Owner: h.Type().Erasure().Base()}
		}
		if acc == nil {
			acc = piece
			continue
		}
		acc = &HMethodCall{hbase: hbase{Ty: ty.String, P: n.Pos}, Receiver: acc, Name: "+", Owner: "String", Args: []HExpr{piece}}
	}
	if acc == nil {
		acc = &HLit{hbase: hbase{Ty: ty.String, P: n.Pos}, Kind: LitString, SVal: ""}
	}
	return acc, nil
}

func (el *Elaborator) elaborateSelf(n *ast.SelfExpr) (HExpr, *sherrors.Report) {
	return &HSelf{hbase{Ty: el.selfTy(), P: n.Pos}}, nil
}

// elaborateBareRef resolves a bare lowercase identifier, first as an lvar
// (with capture insertion), falling back to a zero-arg implicit-self method
// call.
func (el *Elaborator) elaborateBareRef(n *ast.LVarRef) (HExpr, *sherrors.Report) {
	if h, ok := el.resolveLVarRef(n.Name, n.Pos); ok {
		return h, nil
	}
	return el.resolveMethodCall(nil, n.Name, nil, nil, n.Pos)
}

func (el *Elaborator) elaborateIVarRef(n *ast.IVarRef) (HExpr, *sherrors.Report) {
	cscope, ok := el.topOfKind(scopeClass)
	if !ok {
		return nil, sherrors.New(sherrors.PRG004, spanOf(n.Pos), "@%s used outside a class body", n.Name)
	}
	fullname := names.ClassFullname(cscope.ns.String())
	skt, ok := el.dict.Get(fullname)
	if !ok || !skt.IsClass() {
		return nil, sherrors.New(sherrors.PRG004, spanOf(n.Pos), "@%s used outside a known class", n.Name)
	}
	iv, ok := skt.Class.Ivars[n.Name]
	if !ok {
		return nil, sherrors.New(sherrors.PRG004, spanOf(n.Pos), "undeclared ivar @%s", n.Name)
	}
	return &HIVarRef{hbase: hbase{Ty: iv.Ty, P: n.Pos}, Name: n.Name, Idx: iv.Idx}, nil
}

// elaborateConstRef resolves a constant path against the scope stack: try
// each namespace prefix (innermost class outward, toplevel last) joined
// with each suffix of the path, returning the first defined constant.
func (el *Elaborator) elaborateConstRef(n *ast.ConstRef) (HExpr, *sherrors.Report) {
	joined := n.Path[0]
	for _, p := range n.Path[1:] {
		joined += "::" + p
	}
	for _, ns := range el.namespaceStack() {
		candidate := ns.Qualify(joined)
		fullname, cerr := names.NewConstFullname("::" + candidate)
		if cerr != nil {
			continue
		}
		if t, ok := el.dict.Consts[fullname]; ok {
			return &HConstRef{hbase: hbase{Ty: t, P: n.Pos}, Fullname: fullname}, nil
		}
		if skt, ok := el.dict.Get(names.ClassFullname(candidate)); ok {
			return &HClassLiteral{hbase: hbase{Ty: ty.Meta(string(skt.Fullname())), P: n.Pos}, Fullname: skt.Fullname()}, nil
		}
	}
	if fullname, cerr := names.NewConstFullname("::" + joined); cerr == nil {
		if t, ok := el.dict.Consts[fullname]; ok {
			return &HConstRef{hbase: hbase{Ty: t, P: n.Pos}, Fullname: fullname}, nil
		}
	}
	return nil, sherrors.New(sherrors.NAM002, spanOf(n.Pos), "unknown constant %q", joined)
}

func (el *Elaborator) elaborateVarDecl(n *ast.VarDecl) (HExpr, *sherrors.Report) {
	s := el.top()
	if _, exists := s.lvars[n.Name]; exists {
		return nil, sherrors.New(sherrors.PRG007, spanOf(n.Pos), "lvar %q already declared in this scope", n.Name)
	}
	value, err := el.elaborateExpr(n.Value)
	if err != nil {
		return nil, err
	}
	declTy := value.Type()
	if n.Type != nil {
		declTy, err = el.resolveTypeTerm(*n.Type, n.Pos)
		if err != nil {
			return nil, err
		}
		if !typedict.Conforms(el.dict, value.Type(), declTy) {
			return nil, sherrors.New(sherrors.TYP001, spanOf(n.Pos),
				"cannot initialize %q of type %s with %s", n.Name, declTy, value.Type())
		}
		if !value.Type().Equals(declTy) {
			value = &HBitCast{hbase: hbase{Ty: declTy, P: n.Pos}, Expr: value}
		}
	}
	s.declareLVar(n.Name, declTy, false)
	return &HLVarAssign{hbase: hbase{Ty: value.Type(), P: n.Pos}, Name: n.Name, Value: value}, nil
}

// elaborateAssign handles the three assignment forms (`x = e`,
// `@ivar = e`, and the const-def `Name = e` already split out by the
// parser), plus the "may be setter" rewrite: `x.name = v` arrives as a
// MethodCall target already renamed to "name=" by the parser's
// assignment-target handling, so that case flows through
// elaborateMethodCall instead of here.
func (el *Elaborator) elaborateAssign(n *ast.Assign) (HExpr, *sherrors.Report) {
	switch target := n.Target.(type) {
	case *ast.LVarRef:
		entry, _, found := el.lookupLVar(target.Name)
		if !found {
			return nil, sherrors.New(sherrors.NAM002, spanOf(n.Pos), "assignment to undeclared lvar %q", target.Name)
		}
		if entry.Readonly {
			return nil, sherrors.New(sherrors.PRG006, spanOf(n.Pos), "%q is readonly", target.Name)
		}
		value, err := el.elaborateExpr(n.Value)
		if err != nil {
			return nil, err
		}
		if !typedict.Conforms(el.dict, value.Type(), entry.Ty) {
			if nca, ok := typedict.NCA(el.dict, value.Type(), entry.Ty); ok {
				entry.Ty = nca
			} else {
				return nil, sherrors.New(sherrors.TYP003, spanOf(n.Pos),
					"cannot assign %s to %q of type %s", value.Type(), target.Name, entry.Ty)
			}
		}
		if !value.Type().Equals(entry.Ty) {
			value = &HBitCast{hbase: hbase{Ty: entry.Ty, P: n.Pos}, Expr: value}
		}
		return &HLVarAssign{hbase: hbase{Ty: value.Type(), P: n.Pos}, Name: target.Name, Value: value}, nil

	case *ast.IVarRef:
		value, err := el.elaborateExpr(n.Value)
		if err != nil {
			return nil, err
		}
		cscope, ok := el.topOfKind(scopeClass)
		if !ok {
			return nil, sherrors.New(sherrors.PRG004, spanOf(n.Pos), "@%s assigned outside a class body", target.Name)
		}
		fullname := names.ClassFullname(cscope.ns.String())
		skt, ok := el.dict.Get(fullname)
		if !ok || !skt.IsClass() {
			return nil, sherrors.New(sherrors.PRG004, spanOf(n.Pos), "@%s assigned outside a known class", target.Name)
		}
		iv, declared := skt.Class.Ivars[target.Name]
		mscope, inMethod := el.topOfKind(scopeMethod)
		inInit := inMethod && mscope.methodName == "initialize"
		if !declared {
			if !inInit {
				return nil, sherrors.New(sherrors.PRG004, spanOf(n.Pos),
					"@%s must be declared via an initialize parameter before use outside initialize", target.Name)
			}
			idx := len(skt.Class.Ivars)
			skt.Class.Ivars[target.Name] = typedict.Ivar{Idx: idx, Ty: value.Type(), Readonly: false}
			skt.Class.IvarOrder = append(skt.Class.IvarOrder, target.Name)
			iv = skt.Class.Ivars[target.Name]
		} else {
			if iv.Readonly {
				return nil, sherrors.New(sherrors.PRG005, spanOf(n.Pos), "@%s is readonly", target.Name)
			}
			if !typedict.Conforms(el.dict, value.Type(), iv.Ty) {
				return nil, sherrors.New(sherrors.TYP003, spanOf(n.Pos),
					"cannot assign %s to @%s of type %s", value.Type(), target.Name, iv.Ty)
			}
		}
		return &HIVarAssign{hbase: hbase{Ty: value.Type(), P: n.Pos}, Name: target.Name, Idx: iv.Idx, Value: value}, nil

	case *ast.MethodCall:
		// `x.name = v` was rewritten by the parser to a `name=` setter
		// target; route it through method-call resolution with v as the
		// sole argument.
		setter := &ast.MethodCall{Recv: target.Recv, Name: target.Name, Args: []ast.Expr{n.Value}, HasParens: true}
		setter.Pos = n.Pos
		return el.elaborateMethodCall(setter)

	default:
		return nil, sherrors.New(sherrors.TYP001, spanOf(n.Pos), "invalid assignment target %T", n.Target)
	}
}

// elaborateIf applies the if-expression typing rule.
func (el *Elaborator) elaborateIf(n *ast.IfExpr) (HExpr, *sherrors.Report) {
	cond, err := el.elaborateExpr(n.Cond)
	if err != nil {
		return nil, err
	}
	thenH, err := el.elaborateExprSeq(n.Then)
	if err != nil {
		return nil, err
	}
	var elseH *HExprs
	if n.Else != nil {
		elseH, err = el.elaborateExprSeq(n.Else)
		if err != nil {
			return nil, err
		}
	} else {
		elseH = NewHExprs(nil) // an absent else is Void
	}
	resultTy, then2, else2, terr := el.unifyBranches(thenH, elseH, n.Pos)
	if terr != nil {
		return nil, terr
	}
	return &HIfExpr{hbase: hbase{Ty: resultTy, P: n.Pos}, Cond: cond, Then: then2, Else: else2}, nil
}

// unifyBranches applies the if/match branch-typing rule:
// Never/Never -> Never; either Void -> voidify the other, result Void;
// otherwise NCA, bit-casting whichever branch doesn't already have that
// type.
func (el *Elaborator) unifyBranches(a, b *HExprs, pos ast.Pos) (ty.TermTy, *HExprs, *HExprs, *sherrors.Report) {
	if a.Ty.Equals(ty.Never) && b.Ty.Equals(ty.Never) {
		return ty.Never, a, b, nil
	}
	if a.Ty.Equals(ty.Void) || b.Ty.Equals(ty.Void) {
		return ty.Void, voidify(a), voidify(b), nil
	}
	nca, ok := typedict.NCA(el.dict, a.Ty, b.Ty)
	if !ok {
		return ty.TermTy{}, nil, nil, sherrors.New(sherrors.TYP004, spanOf(pos),
			"branches of incompatible types %s and %s have no common ancestor", a.Ty, b.Ty)
	}
	return nca, castTo(a, nca), castTo(b, nca), nil
}

// voidify appends a trailing `::Void` reference so a branch's type becomes
// Void without discarding its side effects.
func voidify(es *HExprs) *HExprs {
	if es.Ty.Equals(ty.Void) {
		return es
	}
	exprs := append(append([]HExpr{}, es.Exprs...), &HLit{hbase: hbase{Ty: ty.Void}, Kind: LitBool})
	return &HExprs{Exprs: exprs, Ty: ty.Void}
}

func castTo(es *HExprs, target ty.TermTy) *HExprs {
	if es.Ty.Equals(target) || es.Ty.Equals(ty.Never) {
		return es
	}
	exprs := append([]HExpr{}, es.Exprs...)
	if len(exprs) == 0 {
		return &HExprs{Ty: target}
	}
	last := exprs[len(exprs)-1]
	exprs[len(exprs)-1] = &HBitCast{hbase: hbase{Ty: target, P: last.Pos()}, Expr: last}
	return &HExprs{Exprs: exprs, Ty: target}
}

func (el *Elaborator) elaborateWhile(n *ast.WhileExpr) (HExpr, *sherrors.Report) {
	cond, err := el.elaborateExpr(n.Cond)
	if err != nil {
		return nil, err
	}
	wscope := newScope(scopeWhile)
	el.push(wscope)
	body, err := el.elaborateExprSeq(n.Body)
	el.pop()
	el.absorbLocals(wscope)
	if err != nil {
		return nil, err
	}
	return &HWhileExpr{hbase: hbase{Ty: ty.Void, P: n.Pos}, Cond: cond, Body: body}, nil
}

// elaborateBreak checks break placement: in a while-context,
// HBreak(While); in a block-lambda context, HBreak(Block) and the lambda is
// marked has-break; inside an fn-lambda it's an error (PRG008); with no
// enclosing loop/block at all it's PRG001.
func (el *Elaborator) elaborateBreak(n *ast.BreakExpr) (HExpr, *sherrors.Report) {
	target, ok := el.innermostLoopOrBlock()
	if !ok {
		if fscope, isFn := el.topOfKind(scopeLambda); isFn && fscope.isFn {
			return nil, sherrors.New(sherrors.PRG008, spanOf(n.Pos), "break is not allowed inside an fn-lambda")
		}
		return nil, sherrors.New(sherrors.PRG001, spanOf(n.Pos), "break outside of a loop or block")
	}
	var value HExpr
	var err *sherrors.Report
	if n.Value != nil {
		value, err = el.elaborateExpr(n.Value)
		if err != nil {
			return nil, err
		}
	} else {
		value = &HLit{hbase: hbase{Ty: ty.Void, P: n.Pos}}
	}
	from := BreakFromWhile
	if target.kind == scopeLambda {
		from = BreakFromBlock
		target.hasBreak = true
	}
	return &HBreak{hbase: hbase{Ty: ty.Never, P: n.Pos}, From: from, Value: value}, nil
}

// elaborateReturn checks return placement: ReturnFromFn inside
// an fn-lambda, rejected (PRG010) inside a block-lambda, ReturnFromMethod
// inside a method, PRG003 elsewhere. The argument's type is checked against
// the enclosing method's declared return type.
func (el *Elaborator) elaborateReturn(n *ast.ReturnExpr) (HExpr, *sherrors.Report) {
	if lscope, ok := el.topOfKind(scopeLambda); ok && !lscope.isFn {
		if mscope2, mok := el.innermostMethodOrFn(); !mok || mscope2 != lscope {
			return nil, sherrors.New(sherrors.PRG010, spanOf(n.Pos), "return from a block-lambda is not supported")
		}
	}
	target, ok := el.innermostMethodOrFn()
	if !ok {
		return nil, sherrors.New(sherrors.PRG003, spanOf(n.Pos), "return outside a method or fn")
	}
	var value HExpr
	var err *sherrors.Report
	if n.Value != nil {
		value, err = el.elaborateExpr(n.Value)
		if err != nil {
			return nil, err
		}
	} else {
		value = &HLit{hbase: hbase{Ty: ty.Void, P: n.Pos}}
	}
	from := ReturnFromMethod
	var declaredRet ty.TermTy
	if target.kind == scopeLambda {
		from = ReturnFromFn
		declaredRet = ty.Object // fn-lambda declared return type tracked via its HIR type at construction
	} else {
		declaredRet = target.retTy
	}
	if declaredRet.BaseName != "" && !typedict.Conforms(el.dict, value.Type(), declaredRet) {
		return nil, sherrors.New(sherrors.TYP005, spanOf(n.Pos),
			"return value of type %s does not conform to declared return type %s", value.Type(), declaredRet)
	}
	return &HReturn{hbase: hbase{Ty: ty.Never, P: n.Pos}, From: from, Value: value}, nil
}

