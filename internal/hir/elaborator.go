package hir

import (
	"github.com/shiika-lang/shiika-go/internal/ast"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/ty"
	"github.com/shiika-lang/shiika-go/internal/typedict"
)

// Elaborator walks an indexed Program, converting each method
// body and the toplevel sequence to typed HIR. It assumes typedict.Index
// has already run over the same ast.Program so every signature it needs is
// already resolved.
type Elaborator struct {
	dict        *typedict.SkTypes
	scopes      []*scope
	methods     map[names.MethodFullname]*SkMethod
	methodOrder []names.MethodFullname

	lambdaCounter int
	matchCounter  int
}

// Elaborate runs the HIR elaborator over prog given its already-built type
// dictionary.
func Elaborate(prog *ast.Program, dict *typedict.SkTypes) (*Program, *sherrors.Report) {
	el := &Elaborator{dict: dict, methods: map[names.MethodFullname]*SkMethod{}}
	el.push(newScope(scopeToplevel))

	if err := el.elaborateItems(prog.Items, names.NewNamespace(), nil); err != nil {
		return nil, err
	}

	var toplevelExprs []HExpr
	for _, item := range prog.Items {
		switch n := item.(type) {
		case *ast.ConstDef:
			value, err := el.elaborateExpr(n.Value)
			if err != nil {
				return nil, err
			}
			fullname, cerr := names.NewConstFullname("::" + n.Name)
			if cerr != nil {
				return nil, sherrors.New(sherrors.NAM002, spanOf(n.Position()), "invalid constant name %q", n.Name)
			}
			el.dict.AddConst(fullname, value.Type())
			toplevelExprs = append(toplevelExprs,
				&HConstAssign{hbase: hbase{Ty: value.Type(), P: n.Position()}, Fullname: fullname, Value: value})
		case ast.Expr:
			h, err := el.elaborateExpr(n)
			if err != nil {
				return nil, err
			}
			toplevelExprs = append(toplevelExprs, h)
		}
	}
	lvars, order := localsOf(el.top())
	return &Program{
		Methods:       el.methods,
		MethodOrder:   el.methodOrder,
		Toplevel:      NewHExprs(toplevelExprs),
		ToplevelLVars: lvars,
		ToplevelOrder: order,
	}, nil
}

// elaborateItems walks class/module/enum definitions (recursively) and
// elaborates every method body it finds, skipping plain top-level
// expressions (those are collected separately by Elaborate, evaluated once
// in program order rather than per-namespace-walk order).
func (el *Elaborator) elaborateItems(items []ast.Node, ns names.Namespace, classTyParams []ty.TyParam) *sherrors.Report {
	for _, item := range items {
		switch n := item.(type) {
		case *ast.ClassDef:
			fullname := names.ClassFullname(ns.Qualify(n.Name))
			if err := el.elaborateClassBody(fullname, n.Body, ns.Add(n.Name), tyParamsOf2(n.TyParams)); err != nil {
				return err
			}
		case *ast.ModuleDef:
			fullname := names.ClassFullname(ns.Qualify(n.Name))
			if err := el.elaborateModuleBody(fullname, n.Body, ns.Add(n.Name), tyParamsOf2(n.TyParams)); err != nil {
				return err
			}
		case *ast.EnumDef:
			fullname := names.ClassFullname(ns.Qualify(n.Name))
			if err := el.elaborateClassBody(fullname, n.Body, ns.Add(n.Name), tyParamsOf2(n.TyParams)); err != nil {
				return err
			}
			for _, c := range n.Cases {
				caseFullname := names.ClassFullname(ns.Add(n.Name).Qualify(c.Name))
				if err := el.synthesizeCaseNew(caseFullname); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func tyParamsOf2(decls []ast.TyParamDecl) []ty.TyParam {
	out := make([]ty.TyParam, len(decls))
	for i, d := range decls {
		v := ty.Invariant
		switch d.Variance {
		case "in":
			v = ty.Contravariant
		case "out":
			v = ty.Covariant
		}
		out[i] = ty.TyParam{Name: d.Name, Variance: v}
	}
	return out
}

// elaborateClassBody elaborates every MethodDef in a class/enum body, plus
// the accessor and `new` bodies the indexer synthesized.
func (el *Elaborator) elaborateClassBody(fullname names.ClassFullname, body []ast.Node, ns names.Namespace, classTyParams []ty.TyParam) *sherrors.Report {
	skt, ok := el.dict.Get(fullname)
	if !ok || !skt.IsClass() {
		return sherrors.New(sherrors.NAM001, sherrors.Span{}, "internal: class %q missing from dictionary", fullname)
	}
	cls := skt.Class

	cscope := newScope(scopeClass)
	cscope.ns = ns
	cscope.classTyParams = classTyParams
	el.push(cscope)
	defer el.pop()

	defined := map[names.MethodFirstname]bool{}
	for _, item := range body {
		switch n := item.(type) {
		case *ast.ClassDef:
			if err := el.elaborateClassBody(names.ClassFullname(ns.Qualify(n.Name)), n.Body, ns.Add(n.Name), tyParamsOf2(n.TyParams)); err != nil {
				return err
			}
		case *ast.ModuleDef:
			if err := el.elaborateModuleBody(names.ClassFullname(ns.Qualify(n.Name)), n.Body, ns.Add(n.Name), tyParamsOf2(n.TyParams)); err != nil {
				return err
			}
		case *ast.EnumDef:
			nested := names.ClassFullname(ns.Qualify(n.Name))
			if err := el.elaborateClassBody(nested, n.Body, ns.Add(n.Name), tyParamsOf2(n.TyParams)); err != nil {
				return err
			}
			for _, c := range n.Cases {
				if err := el.synthesizeCaseNew(names.ClassFullname(ns.Add(n.Name).Qualify(c.Name))); err != nil {
					return err
				}
			}
		case *ast.MethodDef:
			owner := fullname
			if n.IsClassMethod {
				owner = fullname.MetaName()
			}
			defined[names.MethodFirstname(n.Name)] = true
			if err := el.elaborateMethod(n, owner, fullname, ns, classTyParams); err != nil {
				return err
			}
		}
	}

	// Synthesized accessor bodies (reader/writer pairs from `@name:`
	// initialize params) that weren't shadowed by a hand-written
	// method of the same name.
	for name, iv := range cls.Ivars {
		if !defined[names.MethodFirstname(name)] {
			if sig, ok := cls.Methods.Get(names.MethodFirstname(name)); ok {
				el.installMethod(sig.Fullname, nil, sig.RetTy, MethodBody{Kind: BodyGetter, IvarIdx: iv.Idx})
			}
		}
		setterName := names.MethodFirstname(name + "=")
		if !defined[setterName] {
			if sig, ok := cls.Methods.Get(setterName); ok {
				el.installMethod(sig.Fullname, toLParams(sig.Params), sig.RetTy, MethodBody{Kind: BodySetter, IvarIdx: iv.Idx})
			}
		}
	}
	if !defined["new"] {
		if err := el.synthesizeNewBody(cls); err != nil {
			return err
		}
	}
	return nil
}

func (el *Elaborator) elaborateModuleBody(fullname names.ClassFullname, body []ast.Node, ns names.Namespace, classTyParams []ty.TyParam) *sherrors.Report {
	cscope := newScope(scopeClass)
	cscope.ns = ns
	cscope.classTyParams = classTyParams
	el.push(cscope)
	defer el.pop()
	for _, item := range body {
		md, ok := item.(*ast.MethodDef)
		if !ok || md.IsRequirement {
			continue
		}
		owner := fullname
		if md.IsClassMethod {
			owner = fullname.MetaName()
		}
		if err := el.elaborateMethod(md, owner, fullname, ns, classTyParams); err != nil {
			return err
		}
	}
	return nil
}

func (el *Elaborator) installMethod(fullname names.MethodFullname, params []LParam, retTy ty.TermTy, body MethodBody) {
	if _, exists := el.methods[fullname]; !exists {
		el.methodOrder = append(el.methodOrder, fullname)
	}
	el.methods[fullname] = &SkMethod{Fullname: fullname, Params: params, RetTy: retTy, Body: body}
}

func toLParams(params []typedict.Param) []LParam {
	out := make([]LParam, len(params))
	for i, p := range params {
		out[i] = LParam{Name: p.Name, Ty: p.Ty}
	}
	return out
}

// synthesizeNewBody installs the auto-generated `.new` body: allocate an
// instance then call `initialize` with
// the forwarded arguments. The allocation/call itself is a MIR-level
// concern (create-object); at the HIR level `new`'s body is left as
// BodyAutoNew, a marker the MIR lowering pass expands (internal/mir).
func (el *Elaborator) synthesizeNewBody(cls *typedict.SkClass) *sherrors.Report {
	sig, ok := cls.ClassMethods.Get("new")
	if !ok {
		return nil
	}
	el.installMethod(sig.Fullname, toLParams(sig.Params), sig.RetTy, MethodBody{Kind: BodyAutoNew})
	return nil
}

// synthesizeCaseNew installs the generated bodies of an enum case class:
// its new, one reader per field, and a positional initialize that copies
// each argument into its ivar slot.
func (el *Elaborator) synthesizeCaseNew(fullname names.ClassFullname) *sherrors.Report {
	skt, ok := el.dict.Get(fullname)
	if !ok || !skt.IsClass() {
		return nil
	}
	cls := skt.Class
	for _, name := range cls.IvarOrder {
		iv := cls.Ivars[name]
		if sig, ok := cls.Methods.Get(names.MethodFirstname(name)); ok {
			el.installMethod(sig.Fullname, nil, sig.RetTy, MethodBody{Kind: BodyGetter, IvarIdx: iv.Idx})
		}
	}
	if sig, ok := cls.Methods.Get("initialize"); ok {
		var assigns []HExpr
		for i, p := range sig.Params {
			iv := cls.Ivars[p.Name]
			assigns = append(assigns, &HIVarAssign{
				hbase: hbase{Ty: p.Ty},
				Name:  p.Name,
				Idx:   iv.Idx,
				Value: &HArgRef{hbase: hbase{Ty: p.Ty}, Idx: i + 1, Name: p.Name},
			})
		}
		el.installMethod(sig.Fullname, toLParams(sig.Params), sig.RetTy, MethodBody{Kind: BodyNormal, Exprs: NewHExprs(assigns)})
	}
	return el.synthesizeNewBody(cls)
}

// elaborateMethod builds the SkMethod for a single user-written MethodDef.
func (el *Elaborator) elaborateMethod(md *ast.MethodDef, owner names.ClassFullname, instanceOwner names.ClassFullname, ns names.Namespace, classTyParams []ty.TyParam) *sherrors.Report {
	skt, ok := el.dict.Get(instanceOwner)
	if !ok {
		return sherrors.New(sherrors.NAM001, sherrors.Span{}, "internal: owner %q missing", instanceOwner)
	}
	mm := skt.BaseInfo().Methods
	if md.IsClassMethod {
		mm = skt.BaseInfo().ClassMethods
	}
	sig, ok := mm.Get(names.MethodFirstname(md.Name))
	if !ok {
		return sherrors.New(sherrors.NAM001, sherrors.Span{}, "internal: signature for %q missing", md.Name)
	}

	if md.IsRequirement {
		return nil // modules' requirement methods have no body
	}

	mscope := newScope(scopeMethod)
	mscope.params = toLParams(sig.Params)
	mscope.retTy = sig.RetTy
	mscope.methodTyParams = sig.TyParams
	mscope.methodName = md.Name
	mscope.isClassMethod = md.IsClassMethod
	for _, p := range mscope.params {
		mscope.declareLVar(p.Name, p.Ty, true)
	}
	el.push(mscope)
	defer el.pop()

	body, err := el.elaborateExprSeq(md.Body)
	if err != nil {
		return err
	}
	el.installMethod(sig.Fullname, mscope.params, sig.RetTy, MethodBody{Kind: BodyNormal, Exprs: body})
	m := el.methods[sig.Fullname]
	m.TyParams = sig.TyParams
	m.LVars, m.LVarOrder = localsOf(mscope)
	return nil
}

// localsOf extracts a scope's locals minus its formal parameters, in
// declaration order.
func localsOf(s *scope) (map[string]LVarInfo, []string) {
	formal := map[string]bool{}
	for _, p := range s.params {
		formal[p.Name] = true
	}
	lvars := map[string]LVarInfo{}
	var order []string
	for _, name := range s.lvarOrder {
		if formal[name] {
			continue
		}
		e := s.lvars[name]
		lvars[name] = LVarInfo{Ty: e.Ty, Readonly: e.Readonly}
		order = append(order, name)
	}
	return lvars, order
}

func (el *Elaborator) elaborateExprSeq(exprs []ast.Expr) (*HExprs, *sherrors.Report) {
	var out []HExpr
	for _, e := range exprs {
		h, err := el.elaborateExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return NewHExprs(out), nil
}

func spanOf(p ast.Pos) sherrors.Span {
	return sherrors.Span{File: p.File, Line: p.Line, Column: p.Column}
}
