package typedict

import (
	"github.com/shiika-lang/shiika-go/internal/ast"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/names"
	"github.com/shiika-lang/shiika-go/internal/ty"
)

// defEntry is what pass 1 records for a single class/module/enum-case
// definition before pass 2 elaborates its signatures.
type defEntry struct {
	fullname   names.ClassFullname
	ns         names.Namespace
	isModule   bool
	isEnum     bool
	isEnumCase bool
	enumCase   ast.EnumCase // populated iff isEnumCase
	tyParams   []ty.TyParam
	// Exactly one of these is set, by the entry's kind; an enum case has
	// only enumDef (its class def is synthesized from enumCase).
	classDef   *ast.ClassDef
	moduleDef  *ast.ModuleDef
	enumSelf   *ast.EnumDef // populated iff isEnum: the enum's own base class
	enumDef    *ast.EnumDef // the owning enum, for an enum-case entry
}

// Indexer performs the two-pass dictionary build.
type Indexer struct {
	dict    *SkTypes
	prelim  map[names.ClassFullname]*defEntry
	order   []names.ClassFullname
	built   map[names.ClassFullname]bool
	visited map[names.ClassFullname]bool // cycle-detection ("currently building")
}

// bootstrapObject seeds the dictionary with the handful of built-in
// classes every program's ancestor chain and literal types bottom out at
//: Object (the universal root), Metaclass (the type of a
// class literal), and the primitive literal types, each carrying its
// foreign (runtime-provided) method signatures so operator calls resolve.
func bootstrapObject(dict *SkTypes) {
	object := &SkType{Class: &SkClass{
		Base:      newBase("Object", nil),
		Ivars:     map[string]Ivar{},
	}}
	object.Class.IsForeign = true
	foreignSigs(object.Class,
		fsig("Object", "==", ty.Bool, Param{Name: "other", Ty: ty.Object}),
		fsig("Object", "!=", ty.Bool, Param{Name: "other", Ty: ty.Object}),
		fsig("Object", "to_s", ty.String),
		fsig("Object", "inspect", ty.String),
		fsig("Object", "class", ty.Lit("Metaclass")),
		fsig("Object", "panic", ty.Never, Param{Name: "msg", Ty: ty.String}),
	)
	dict.Add("Object", object)

	metaclass := &SkType{Class: &SkClass{
		Base:       newBase("Metaclass", nil),
		Superclass: &Supertype{Fullname: "Object"},
		Ivars:      map[string]Ivar{},
	}}
	metaclass.Class.IsForeign = true
	inheritForeign(metaclass.Class, object.Class)
	foreignSigs(metaclass.Class, fsig("Metaclass", "name", ty.String))
	dict.Add("Metaclass", metaclass)

	for _, prim := range []string{"Int", "Float", "Bool", "String", "Void", "Never"} {
		cls := &SkClass{
			Base:       newBase(names.ClassFullname(prim), nil),
			Superclass: &Supertype{Fullname: "Object"},
			Ivars:      map[string]Ivar{},
		}
		cls.IsForeign = true
		inheritForeign(cls, object.Class)
		dict.Add(names.ClassFullname(prim), &SkType{Class: cls})
	}

	intCls := mustClass(dict, "Int")
	intP := Param{Name: "other", Ty: ty.Int}
	for _, op := range []string{"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>"} {
		foreignSigs(intCls, fsig("Int", op, ty.Int, intP))
	}
	for _, op := range []string{"<", "<=", ">", ">=", "==", "!="} {
		foreignSigs(intCls, fsig("Int", op, ty.Bool, intP))
	}
	foreignSigs(intCls,
		fsig("Int", "-@", ty.Int),
		fsig("Int", "to_s", ty.String),
		fsig("Int", "to_f", ty.Float),
	)

	floatCls := mustClass(dict, "Float")
	floatP := Param{Name: "other", Ty: ty.Float}
	for _, op := range []string{"+", "-", "*", "/"} {
		foreignSigs(floatCls, fsig("Float", op, ty.Float, floatP))
	}
	for _, op := range []string{"<", "<=", ">", ">=", "==", "!="} {
		foreignSigs(floatCls, fsig("Float", op, ty.Bool, floatP))
	}
	foreignSigs(floatCls,
		fsig("Float", "-@", ty.Float),
		fsig("Float", "to_s", ty.String),
		fsig("Float", "to_i", ty.Int),
	)

	boolCls := mustClass(dict, "Bool")
	foreignSigs(boolCls,
		fsig("Bool", "==", ty.Bool, Param{Name: "other", Ty: ty.Bool}),
		fsig("Bool", "to_s", ty.String),
	)

	strCls := mustClass(dict, "String")
	foreignSigs(strCls,
		fsig("String", "+", ty.String, Param{Name: "other", Ty: ty.String}),
		fsig("String", "==", ty.Bool, Param{Name: "other", Ty: ty.String}),
		fsig("String", "size", ty.Int),
		fsig("String", "to_s", ty.String),
		fsig("String", "inspect", ty.String),
	)
}

func mustClass(dict *SkTypes, name names.ClassFullname) *SkClass {
	t, _ := dict.Get(name)
	return t.Class
}

func fsig(owner names.ClassFullname, name string, ret ty.TermTy, params ...Param) *Signature {
	return &Signature{
		Fullname: names.NewMethodFullname(owner, names.MethodFirstname(name)),
		Params:   params,
		RetTy:    ret,
	}
}

func foreignSigs(cls *SkClass, sigs ...*Signature) {
	for _, s := range sigs {
		cls.Methods.Add(s.Fullname.First, s)
	}
}

// inheritForeign copies Object's methods into a builtin subclass the same
// way inheritMethods does for user classes.
func inheritForeign(cls, super *SkClass) {
	for _, first := range super.Methods.Order() {
		s, _ := super.Methods.Get(first)
		cls.Methods.Add(first, s)
	}
}

// Index runs both passes over prog and returns the populated dictionary.
func Index(prog *ast.Program) (*SkTypes, *sherrors.Report) {
	dict := New()
	bootstrapObject(dict)
	ix := &Indexer{
		dict:    dict,
		prelim:  map[names.ClassFullname]*defEntry{},
		built:   map[names.ClassFullname]bool{},
		visited: map[names.ClassFullname]bool{},
	}
	if err := ix.pass1(prog.Items, names.NewNamespace()); err != nil {
		return nil, err
	}
	for _, fn := range ix.order {
		if _, err := ix.build(fn); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

func (ix *Indexer) register(e *defEntry) *sherrors.Report {
	if _, exists := ix.prelim[e.fullname]; exists {
		return sherrors.New(sherrors.NAM001, sherrors.Span{}, "duplicate type definition %q", e.fullname)
	}
	ix.prelim[e.fullname] = e
	ix.order = append(ix.order, e.fullname)
	return nil
}

func tyParamsOf(decls []ast.TyParamDecl) []ty.TyParam {
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

// pass1 walks top-level items (and, recursively, class/module bodies)
// recording every class/module/enum fullname and type-parameter list.
func (ix *Indexer) pass1(items []ast.Node, ns names.Namespace) *sherrors.Report {
	for _, item := range items {
		switch n := item.(type) {
		case *ast.ClassDef:
			fullname := names.ClassFullname(ns.Qualify(n.Name))
			if err := ix.register(&defEntry{
				fullname: fullname, ns: ns, tyParams: tyParamsOf(n.TyParams), classDef: n,
			}); err != nil {
				return err
			}
			if err := ix.pass1(n.Body, ns.Add(n.Name)); err != nil {
				return err
			}
		case *ast.ModuleDef:
			fullname := names.ClassFullname(ns.Qualify(n.Name))
			if err := ix.register(&defEntry{
				fullname: fullname, ns: ns, isModule: true, tyParams: tyParamsOf(n.TyParams), moduleDef: n,
			}); err != nil {
				return err
			}
			if err := ix.pass1(n.Body, ns.Add(n.Name)); err != nil {
				return err
			}
		case *ast.EnumDef:
			fullname := names.ClassFullname(ns.Qualify(n.Name))
			if err := ix.register(&defEntry{
				fullname: fullname, ns: ns, tyParams: tyParamsOf(n.TyParams), isEnum: true, enumSelf: n,
			}); err != nil {
				return err
			}
			caseNs := ns.Add(n.Name)
			for _, c := range n.Cases {
				caseFullname := names.ClassFullname(caseNs.Qualify(c.Name))
				if err := ix.register(&defEntry{
					fullname: caseFullname, ns: caseNs, isEnumCase: true, enumCase: c, enumDef: n,
				}); err != nil {
					return err
				}
			}
			if err := ix.pass1(n.Body, caseNs); err != nil {
				return err
			}
		}
	}
	return nil
}

// build elaborates the full signature of fullname, recursively resolving
// its superclass first (pass 2), memoizing results and
// rejecting cycles (NAM007).
func (ix *Indexer) build(fullname names.ClassFullname) (*SkType, *sherrors.Report) {
	if t, ok := ix.dict.Get(fullname); ok {
		return t, nil
	}
	if ix.visited[fullname] {
		return nil, sherrors.New(sherrors.NAM007, sherrors.Span{}, "cycle in superclass chain at %q", fullname)
	}
	e, ok := ix.prelim[fullname]
	if !ok {
		return nil, sherrors.New(sherrors.NAM001, sherrors.Span{}, "unknown type %q", fullname)
	}
	ix.visited[fullname] = true
	defer delete(ix.visited, fullname)

	if e.isEnumCase {
		return ix.buildEnumCase(e)
	}
	if e.isModule {
		return ix.buildModule(e)
	}
	return ix.buildClass(e)
}

// classLikeName and classLikeBody abstract over a plain ClassDef and the
// synthetic base class an EnumDef implies, since both go through
// buildClass's same superclass/ivar/method-map machinery.
func (e *defEntry) classLikeName() string {
	if e.isEnum {
		return e.enumSelf.Name
	}
	return e.classDef.Name
}

func (e *defEntry) classLikeSupers() []ast.TypeExpr {
	if e.isEnum {
		return nil
	}
	return e.classDef.Supers
}

func (e *defEntry) classLikeBody() []ast.Node {
	if e.isEnum {
		return e.enumSelf.Body
	}
	return e.classDef.Body
}

func (e *defEntry) classLikeFinal() bool {
	if e.isEnum {
		return false
	}
	return e.classDef.IsFinal
}

// resolveSuperName walks namespace prefixes outward looking up an unqualified
// (or qualified) supertype name against the preliminary type index and the
// already-built dictionary.
func (ix *Indexer) resolveSuperName(path []string, ns names.Namespace) (names.ClassFullname, *sherrors.Report) {
	joined := path[0]
	for _, p := range path[1:] {
		joined += "::" + p
	}
	for _, prefix := range ns.Prefixes() {
		candidate := names.ClassFullname(prefix.Qualify(joined))
		if _, ok := ix.prelim[candidate]; ok {
			return candidate, nil
		}
		if _, ok := ix.dict.Get(candidate); ok {
			return candidate, nil
		}
	}
	if _, ok := ix.dict.Get(names.ClassFullname(joined)); ok {
		return names.ClassFullname(joined), nil
	}
	return "", sherrors.New(sherrors.NAM001, sherrors.Span{}, "unknown type name %q", joined)
}

func (ix *Indexer) resolveTypeExpr(te ast.TypeExpr, ns names.Namespace, scope *TyParamScope) (ty.TermTy, *sherrors.Report) {
	if len(te.Path) == 1 && len(te.Args) == 0 && !te.IsMeta {
		if t, ok := scope.Resolve(te.Path[0]); ok {
			return t, nil
		}
	}
	fullname, err := ix.resolveSuperName(te.Path, ns)
	if err != nil {
		return ty.TermTy{}, err
	}
	if _, berr := ix.build(fullname); berr != nil {
		return ty.TermTy{}, berr
	}
	args := make([]ty.TermTy, len(te.Args))
	for i, a := range te.Args {
		at, aerr := ix.resolveTypeExpr(a, ns, scope)
		if aerr != nil {
			return ty.TermTy{}, aerr
		}
		args[i] = at
	}
	if te.IsMeta {
		return ty.Meta(string(fullname), args...), nil
	}
	return ty.Lit(string(fullname), args...), nil
}

// TyParamScope resolves a bare type-variable name against the in-scope
// class and method type parameters, with method typarams shadowing class
// typarams.
type TyParamScope struct {
	ClassParams  []ty.TyParam
	MethodParams []ty.TyParam
}

func (s *TyParamScope) Resolve(name string) (ty.TermTy, bool) {
	if s == nil {
		return ty.TermTy{}, false
	}
	for i, p := range s.MethodParams {
		if p.Name == name {
			return ty.ParamRef(ty.MethodParam, name, i, nil, nil), true
		}
	}
	for i, p := range s.ClassParams {
		if p.Name == name {
			return ty.ParamRef(ty.ClassParam, name, i, nil, nil), true
		}
	}
	return ty.TermTy{}, false
}

func classScope(tp []ty.TyParam) *TyParamScope { return &TyParamScope{ClassParams: tp} }

// resolveSupers splits a ClassDef's raw `: A, B, C` list into a superclass
// and an ordered include list, rejecting: (a)
// more than one superclass, (b) superclass after an included module, (c) a
// final class as superclass.
func (ix *Indexer) resolveSupers(supers []ast.TypeExpr, ns names.Namespace, scope *TyParamScope) (*Supertype, []Supertype, *sherrors.Report) {
	var super *Supertype
	var includes []Supertype
	for _, te := range supers {
		fullname, err := ix.resolveSuperName(te.Path, ns)
		if err != nil {
			return nil, nil, err
		}
		t, err := ix.build(fullname)
		if err != nil {
			return nil, nil, err
		}
		args := make([]ty.TermTy, len(te.Args))
		for i, a := range te.Args {
			at, aerr := ix.resolveTypeExpr(a, ns, scope)
			if aerr != nil {
				return nil, nil, aerr
			}
			args[i] = at
		}
		st := Supertype{Fullname: fullname, TyArgs: args}
		if t.IsClass() {
			if super != nil {
				return nil, nil, sherrors.New(sherrors.NAM003, sherrors.Span{}, "class has more than one superclass")
			}
			if len(includes) > 0 {
				return nil, nil, sherrors.New(sherrors.NAM004, sherrors.Span{}, "superclass %q listed after an included module", fullname)
			}
			if t.Class.IsFinal {
				return nil, nil, sherrors.New(sherrors.NAM005, sherrors.Span{}, "%q is final and cannot be a superclass", fullname)
			}
			super = &st
		} else {
			includes = append(includes, st)
		}
	}
	return super, includes, nil
}

func (ix *Indexer) resolveParams(params []ast.Param, ns names.Namespace, scope *TyParamScope) ([]Param, *sherrors.Report) {
	out := make([]Param, len(params))
	for i, p := range params {
		t := ty.Object
		if p.Type != nil {
			rt, err := ix.resolveTypeExpr(*p.Type, ns, scope)
			if err != nil {
				return nil, err
			}
			t = rt
		}
		out[i] = Param{Name: p.Name, Ty: t, HasDefault: p.Default != nil}
	}
	return out, nil
}

func (ix *Indexer) resolveMethodDef(md *ast.MethodDef, owner names.ClassFullname, ns names.Namespace, classScope *TyParamScope) (*Signature, *sherrors.Report) {
	methodTyParams := tyParamsOf(md.TyParams)
	scope := &TyParamScope{ClassParams: classScope.ClassParams, MethodParams: methodTyParams}
	params, err := ix.resolveParams(md.Params, ns, scope)
	if err != nil {
		return nil, err
	}
	ret := ty.Void
	if md.RetType != nil {
		ret, err = ix.resolveTypeExpr(*md.RetType, ns, scope)
		if err != nil {
			return nil, err
		}
	}
	return &Signature{
		Fullname: names.NewMethodFullname(owner, names.MethodFirstname(md.Name)),
		TyParams: methodTyParams,
		Params:   params,
		RetTy:    ret,
	}, nil
}

func (ix *Indexer) buildModule(e *defEntry) (*SkType, *sherrors.Report) {
	scope := classScope(e.tyParams)
	mod := &SkModule{Base: newBase(e.fullname, e.tyParams)}
	t := &SkType{Module: mod}
	ix.dict.Add(e.fullname, t)
	for _, item := range e.moduleDef.Body {
		md, ok := item.(*ast.MethodDef)
		if !ok {
			continue
		}
		sig, err := ix.resolveMethodDef(md, e.fullname, e.ns, scope)
		if err != nil {
			return nil, err
		}
		first := names.MethodFirstname(md.Name)
		if md.IsClassMethod {
			mod.ClassMethods.Add(first, sig)
		} else {
			mod.Methods.Add(first, sig)
			if md.IsRequirement {
				mod.Requirements = append(mod.Requirements, *sig)
			}
		}
	}
	return t, nil
}

func (ix *Indexer) buildEnumCase(e *defEntry) (*SkType, *sherrors.Report) {
	// e.ns already includes the owning enum's own name as its last
	// component (pass1 registers cases under caseNs = ns.Add(enumName)), so
	// the enum's fullname is simply e.ns rendered as a qualified name.
	parentFullname := names.ClassFullname(e.ns.String())
	if _, berr := ix.build(parentFullname); berr != nil {
		return nil, berr
	}
	scope := classScope(nil)
	ivars := map[string]Ivar{}
	var ivarOrder []string
	for i, p := range e.enumCase.Params {
		t := ty.Object
		if p.Type != nil {
			rt, rerr := ix.resolveTypeExpr(*p.Type, e.ns, scope)
			if rerr != nil {
				return nil, rerr
			}
			t = rt
		}
		ivars[p.Name] = Ivar{Idx: i, Ty: t, Readonly: true}
		ivarOrder = append(ivarOrder, p.Name)
	}
	cls := &SkClass{
		Base:       newBase(e.fullname, nil),
		Superclass: &Supertype{Fullname: parentFullname},
		Ivars:      ivars,
		IvarOrder:  ivarOrder,
		IsFinal:    true,
		ConstIsObj: len(e.enumCase.Params) == 0,
	}
	t := &SkType{Class: cls}
	ix.dict.Add(e.fullname, t)
	if parentT, ok := ix.dict.Get(parentFullname); ok {
		ix.inheritMethods(cls, parentT, nil)
	}
	// Reader per case field plus the positional initialize the extractor
	// pattern and the auto-generated new rely on.
	var initParams []Param
	for _, name := range ivarOrder {
		iv := ivars[name]
		cls.Methods.Add(names.MethodFirstname(name), &Signature{
			Fullname: names.NewMethodFullname(e.fullname, names.MethodFirstname(name)),
			RetTy:    iv.Ty,
		})
		initParams = append(initParams, Param{Name: name, Ty: iv.Ty})
	}
	cls.Methods.Add("initialize", &Signature{
		Fullname: names.NewMethodFullname(e.fullname, "initialize"),
		Params:   initParams,
		RetTy:    ty.Void,
	})
	ix.synthesizeInitializeAndNew(cls, e.enumCase.Params, e.ns, scope)
	constFullname, cerr := names.NewConstFullname("::" + string(e.fullname))
	if cerr == nil {
		if cls.ConstIsObj {
			ix.dict.AddConst(constFullname, ty.Lit(string(e.fullname)))
		} else {
			ix.dict.AddConst(constFullname, ty.Meta(string(e.fullname)))
		}
	}
	return t, nil
}

func (ix *Indexer) buildClass(e *defEntry) (*SkType, *sherrors.Report) {
	scope := classScope(e.tyParams)
	var super *Supertype
	var includes []Supertype
	var err *sherrors.Report
	if e.classLikeName() != "Object" {
		super, includes, err = ix.resolveSupers(e.classLikeSupers(), e.ns, scope)
		if err != nil {
			return nil, err
		}
	}
	if super == nil {
		super = &Supertype{Fullname: "Object"}
	}
	cls := &SkClass{
		Base:       newBase(e.fullname, e.tyParams),
		Superclass: super,
		Includes:   includes,
		Ivars:      map[string]Ivar{},
		IsFinal:    e.classLikeFinal(),
	}
	t := &SkType{Class: cls}
	ix.dict.Add(e.fullname, t)

	superT, serr := ix.build(super.Fullname)
	if serr != nil {
		return nil, serr
	}
	ix.inheritIvars(cls, superT, super.TyArgs)
	ix.inheritMethods(cls, superT, super.TyArgs)

	var initParams []ast.Param
	var hasOwnInit bool
	for _, item := range e.classLikeBody() {
		md, ok := item.(*ast.MethodDef)
		if !ok {
			continue
		}
		sig, serr := ix.resolveMethodDef(md, e.fullname, e.ns, scope)
		if serr != nil {
			return nil, serr
		}
		first := names.MethodFirstname(md.Name)
		if md.IsClassMethod {
			cls.ClassMethods.Add(first, sig)
		} else {
			cls.Methods.Add(first, sig)
		}
		if md.Name == "initialize" {
			initParams = md.Params
			hasOwnInit = true
			ix.synthesizeAccessors(cls, md.Params, e.ns, scope)
		}
	}
	if err := ix.buildWitnessTable(cls, e.ns); err != nil {
		return nil, err
	}
	if cls.Fullname != "Never" {
		if !hasOwnInit {
			initParams = nil // inherited `new` signature already installed by inheritMethods
		}
		ix.synthesizeInitializeAndNew(cls, initParams, e.ns, scope)
	}
	return t, nil
}

// inheritIvars copies the superclass's ivars (after substituting its own
// type arguments) into cls, preserving slot indices.
func (ix *Indexer) inheritIvars(cls *SkClass, superT *SkType, superArgs []ty.TermTy) {
	if superT == nil || !superT.IsClass() {
		return
	}
	sub := ty.Substitution{ClassArgs: superArgs}
	for name, iv := range superT.Class.Ivars {
		cls.Ivars[name] = Ivar{Idx: iv.Idx, Ty: iv.Ty.Substitute(sub), Readonly: iv.Readonly}
	}
	cls.IvarOrder = append(cls.IvarOrder, superT.Class.IvarOrder...)
}

// inheritMethods seeds cls's method maps with the superclass's signatures
// (substituted through superArgs), so that method lookup's "recurse into
// the superclass" step can, equivalently, just check cls's own
// flattened map first before walking Wtable/superclass by hand; lookup
// (query.go) still walks the chain explicitly for module/overriding
// precision, but having inherited entries here lets `new`/accessor
// synthesis see an inherited `initialize` without a separate lookup path.
func (ix *Indexer) inheritMethods(cls *SkClass, superT *SkType, superArgs []ty.TermTy) {
	if superT == nil || !superT.IsClass() {
		return
	}
	sub := ty.Substitution{ClassArgs: superArgs}
	for _, first := range superT.Class.Methods.Order() {
		sig, _ := superT.Class.Methods.Get(first)
		cls.Methods.Add(first, substituteSignature(sig, sub))
	}
	for _, first := range superT.Class.ClassMethods.Order() {
		sig, _ := superT.Class.ClassMethods.Get(first)
		cls.ClassMethods.Add(first, substituteSignature(sig, sub))
	}
}

func substituteSignature(sig *Signature, sub ty.Substitution) *Signature {
	params := make([]Param, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = Param{Name: p.Name, Ty: p.Ty.Substitute(sub), HasDefault: p.HasDefault}
	}
	return &Signature{
		Fullname: sig.Fullname,
		TyParams: sig.TyParams,
		Params:   params,
		RetTy:    sig.RetTy.Substitute(sub),
	}
}

// synthesizeAccessors: an initialize parameter declared @name creates a
// reader (and a writer, if not readonly) signature. Writer readonly-ness
// is not surfaced in the AST
// beyond the `@name` marker, so every ivar-param gets a reader; a writer is
// added too since the source grammar has no separate read-only ivar-param
// syntax (ivars declared only via plain assignment inside initialize, not
// via a param, are the readonly ones; the ivar-assign rule covers those).
func (ix *Indexer) synthesizeAccessors(cls *SkClass, params []ast.Param, ns names.Namespace, scope *TyParamScope) {
	idx := len(cls.Ivars)
	for _, p := range params {
		if !p.IsIvar {
			continue
		}
		t := ty.Object
		if p.Type != nil {
			if rt, err := ix.resolveTypeExpr(*p.Type, ns, scope); err == nil {
				t = rt
			}
		}
		if _, exists := cls.Ivars[p.Name]; !exists {
			cls.Ivars[p.Name] = Ivar{Idx: idx, Ty: t, Readonly: false}
			cls.IvarOrder = append(cls.IvarOrder, p.Name)
			idx++
		}
		reader := &Signature{
			Fullname: names.NewMethodFullname(cls.Fullname, names.MethodFirstname(p.Name)),
			RetTy:    t,
		}
		cls.Methods.Add(names.MethodFirstname(p.Name), reader)
		writer := &Signature{
			Fullname: names.NewMethodFullname(cls.Fullname, names.MethodFirstname(p.Name+"=")),
			Params:   []Param{{Name: p.Name, Ty: t}},
			RetTy:    t,
		}
		cls.Methods.Add(names.MethodFirstname(p.Name+"="), writer)
	}
}

// synthesizeInitializeAndNew: for any non-Never class, a class-method new
// is added to the metaclass with the parameter list of initialize and
// return type = the specialized instance type.
func (ix *Indexer) synthesizeInitializeAndNew(cls *SkClass, initParams []ast.Param, ns names.Namespace, scope *TyParamScope) {
	var params []Param
	if initParams != nil {
		resolved, err := ix.resolveParams(initParams, ns, scope)
		if err == nil {
			params = resolved
		}
	} else if sig, ok := cls.Methods.Get("initialize"); ok {
		params = sig.Params
	}
	classArgs := make([]ty.TermTy, len(cls.TyParams))
	for i, tp := range cls.TyParams {
		classArgs[i] = ty.ParamRef(ty.ClassParam, tp.Name, i, nil, nil)
	}
	instanceTy := ty.Lit(string(cls.Fullname), classArgs...)
	newSig := &Signature{
		Fullname: names.NewMethodFullname(cls.Fullname.MetaName(), "new"),
		Params:   params,
		RetTy:    instanceTy,
	}
	cls.ClassMethods.Add("new", newSig)
}

// buildWitnessTable builds the per-module witness tables: per included
// module, per required/provided method *in the module's own
// declaration order*, resolve the class's concrete implementation.
func (ix *Indexer) buildWitnessTable(cls *SkClass, ns names.Namespace) *sherrors.Report {
	if len(cls.Includes) == 0 {
		return nil
	}
	cls.Wtable = map[names.ClassFullname][]names.MethodFullname{}
	for _, inc := range cls.Includes {
		modT, err := ix.build(inc.Fullname)
		if err != nil {
			return err
		}
		if !modT.IsClass() && modT.Module != nil {
			required := map[names.MethodFirstname]bool{}
			for _, r := range modT.Module.Requirements {
				required[r.Fullname.First] = true
			}
			var slots []names.MethodFullname
			for _, first := range modT.Module.Methods.Order() {
				concrete, ok := cls.Methods.Get(first)
				switch {
				case ok:
					slots = append(slots, concrete.Fullname)
				case required[first]:
					return sherrors.New(sherrors.NAM006, sherrors.Span{},
						"class %q is missing required method %q for module %q", cls.Fullname, first, inc.Fullname)
				default:
					// Default implementation provided by the module itself.
					msig, _ := modT.Module.Methods.Get(first)
					slots = append(slots, msig.Fullname)
				}
			}
			cls.Wtable[inc.Fullname] = slots
		}
	}
	return nil
}

