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

// elaborateMatch compiles `match e when p then b ... end`:
// assign the scrutinee to a hidden temporary, compile each pattern to a
// Component sequence against it, append a synthesized panic clause for
// non-exhaustive fallthrough, and unify the clause-body types.
func (el *Elaborator) elaborateMatch(n *ast.MatchExpr) (HExpr, *sherrors.Report) {
	scrut, err := el.elaborateExpr(n.Scrutinee)
	if err != nil {
		return nil, err
	}
	el.matchCounter++
	tmp := fmt.Sprintf("expr_%d", el.matchCounter)
	el.top().declareLVar(tmp, scrut.Type(), true)
	assign := &HLVarAssign{hbase: hbase{Ty: scrut.Type(), P: n.Pos}, Name: tmp, Value: scrut}
	scrutRef := func(pos ast.Pos) HExpr {
		return &HLVarRef{hbase: hbase{Ty: scrut.Type(), P: pos}, Name: tmp}
	}

	var clauses []MatchClause
	for _, c := range n.Clauses {
		cscope := newScope(scopeMatch)
		el.push(cscope)
		components, cerr := el.compilePattern(c.Pattern, scrutRef(c.Pos))
		if cerr != nil {
			el.pop()
			return nil, cerr
		}
		body, berr := el.elaborateExprSeq(c.Body)
		el.pop()
		el.absorbLocals(cscope)
		if berr != nil {
			return nil, berr
		}
		clauses = append(clauses, MatchClause{Components: components, Body: body})
	}
	clauses = append(clauses, el.panicClause(n.Pos))

	resultTy, unified, uerr := el.unifyClauses(clauses, n.Pos)
	if uerr != nil {
		return nil, uerr
	}
	return &HMatchExpr{hbase: hbase{Ty: resultTy, P: n.Pos}, ScrutineeAssign: assign, Clauses: unified}, nil
}

// panicClause is the synthesized fallthrough trap: a clause
// with no tests whose body calls the builtin panic.
func (el *Elaborator) panicClause(pos ast.Pos) MatchClause {
	msg := &HLit{hbase: hbase{Ty: ty.String, P: pos}, Kind: LitString, SVal: "no matching clause"}
	call := &HMethodCall{hbase: hbase{Ty: ty.Never, P: pos}, Name: "panic", Owner: "Object", Args: []HExpr{msg}}
	return MatchClause{Body: NewHExprs([]HExpr{call})}
}

// compilePattern lowers one surface pattern against the scrutinee
// reference into a Test/Bind component sequence.
func (el *Elaborator) compilePattern(p ast.Pattern, scrut HExpr) ([]Component, *sherrors.Report) {
	switch pat := p.(type) {
	case *ast.WildcardPattern:
		return nil, nil

	case *ast.VarPattern:
		el.top().declareLVar(pat.Name, scrut.Type(), true)
		return []Component{Bind{Name: pat.Name, Expr: scrut}}, nil

	case *ast.LiteralPattern:
		lit, err := el.elaborateExpr(pat.Value)
		if err != nil {
			return nil, err
		}
		if !typedict.Conforms(el.dict, lit.Type(), scrut.Type()) && !typedict.Conforms(el.dict, scrut.Type(), lit.Type()) {
			return nil, sherrors.New(sherrors.TYP001, spanOf(pat.Position()),
				"literal of type %s can never match a scrutinee of type %s", lit.Type(), scrut.Type())
		}
		return []Component{Test{Expr: eqTest(scrut, lit)}}, nil

	case *ast.ExtractorPattern:
		return el.compileExtractor(pat, scrut)

	default:
		return nil, sherrors.New(sherrors.TYP001, spanOf(p.Position()), "unsupported pattern %T", p)
	}
}

// compileExtractor implements the `C(q1,...,qk)` rule: a value-class
// constant compares by identity, otherwise a class-tag test is emitted;
// the scrutinee is then bit-cast to the pattern's type and each
// ivar-parameter is matched recursively against the corresponding field.
func (el *Elaborator) compileExtractor(pat *ast.ExtractorPattern, scrut HExpr) ([]Component, *sherrors.Report) {
	fullname, skt, err := el.resolvePatternClass(pat.Path, pat.Position())
	if err != nil {
		return nil, err
	}
	cls := skt.Class
	patTy := ty.Lit(string(fullname))
	if !typedict.Conforms(el.dict, patTy, scrut.Type()) {
		return nil, sherrors.New(sherrors.TYP001, spanOf(pat.Position()),
			"pattern %s can never match a scrutinee of type %s", fullname, scrut.Type())
	}

	var components []Component
	if cls.ConstIsObj {
		if len(pat.Args) > 0 {
			return nil, sherrors.New(sherrors.TYP002, spanOf(pat.Position()),
				"%s is a unit case and takes no pattern arguments", fullname)
		}
		constName, _ := names.NewConstFullname("::" + string(fullname))
		constRef := &HConstRef{hbase: hbase{Ty: patTy, P: pat.Position()}, Fullname: constName}
		return []Component{Test{Expr: eqTest(constRef, scrut)}}, nil
	}

	classOf := &HMethodCall{
		hbase:    hbase{Ty: ty.Meta(string(scrut.Type().Erasure().Base())), P: pat.Position()},
		Receiver: scrut,
		Name:     "class",
		Owner:    scrut.Type().Erasure().Base(),
	}
	classLit := &HClassLiteral{hbase: hbase{Ty: ty.Meta(string(fullname)), P: pat.Position()}, Fullname: fullname}
	components = append(components, Test{Expr: eqTest(classOf, classLit)})

	cast := &HBitCast{hbase: hbase{Ty: patTy, P: pat.Position()}, Expr: scrut}
	if len(pat.Args) != len(cls.IvarOrder) {
		return nil, sherrors.New(sherrors.TYP002, spanOf(pat.Position()),
			"%s has %d fields but pattern names %d", fullname, len(cls.IvarOrder), len(pat.Args))
	}
	for i, sub := range pat.Args {
		ivName := cls.IvarOrder[i]
		iv := cls.Ivars[ivName]
		field := &HMethodCall{
			hbase:    hbase{Ty: iv.Ty, P: pat.Position()},
			Receiver: cast,
			Name:     ivName,
			Owner:    fullname,
		}
		subComponents, serr := el.compilePattern(sub, field)
		if serr != nil {
			return nil, serr
		}
		components = append(components, subComponents...)
	}
	return components, nil
}

// eqTest builds the Bool-typed `a == b` call a Test component wraps.
func eqTest(a, b HExpr) HExpr {
	owner := names.ClassFullname("Object")
	if !a.Type().IsTyParamRef() {
		owner = a.Type().Erasure().Base()
	}
	return &HMethodCall{hbase: hbase{Ty: ty.Bool, P: a.Pos()}, Receiver: a, Name: "==", Owner: owner, Args: []HExpr{b}}
}

// resolvePatternClass resolves an extractor pattern's constructor path
// against the namespace stack, like the const scope iterator.
func (el *Elaborator) resolvePatternClass(path []string, pos ast.Pos) (names.ClassFullname, *typedict.SkType, *sherrors.Report) {
	joined := strings.Join(path, "::")
	for _, ns := range el.namespaceStack() {
		for _, prefix := range ns.Prefixes() {
			candidate := names.ClassFullname(prefix.Qualify(joined))
			if skt, ok := el.dict.Get(candidate); ok && skt.IsClass() {
				return candidate, skt, nil
			}
		}
	}
	return "", nil, sherrors.New(sherrors.NAM001, spanOf(pos), "unknown pattern constructor %q", joined)
}

// unifyClauses applies the if/match branch-typing rule across
// every clause body: all-Never stays Never, any Void voidifies the rest,
// otherwise the bodies unify at their nearest common ancestor with
// bit-casts inserted where a body's type differs.
func (el *Elaborator) unifyClauses(clauses []MatchClause, pos ast.Pos) (ty.TermTy, []MatchClause, *sherrors.Report) {
	result := ty.Never
	anyVoid := false
	for _, c := range clauses {
		t := c.Body.Ty
		if t.Equals(ty.Never) {
			continue
		}
		if t.Equals(ty.Void) {
			anyVoid = true
			continue
		}
		if result.Equals(ty.Never) {
			result = t
			continue
		}
		nca, ok := typedict.NCA(el.dict, result, t)
		if !ok {
			return ty.TermTy{}, nil, sherrors.New(sherrors.TYP004, spanOf(pos),
				"match clauses of incompatible types %s and %s have no common ancestor", result, t)
		}
		result = nca
	}
	if anyVoid {
		result = ty.Void
	}
	out := make([]MatchClause, len(clauses))
	for i, c := range clauses {
		body := c.Body
		if !body.Ty.Equals(ty.Never) {
			if result.Equals(ty.Void) {
				body = voidify(body)
			} else {
				body = castTo(body, result)
			}
		}
		out[i] = MatchClause{Components: c.Components, Body: body}
	}
	return result, out, nil
}
