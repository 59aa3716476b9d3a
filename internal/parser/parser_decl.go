package parser

import (
	"github.com/shiika-lang/shiika-go/internal/ast"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/lexer"
)

// parseClassDef parses `class Name[<typarams>] [: Super, Mod...] ... end`.
// Modules cannot declare a superclass; parseModuleDef rejects one with
// PAR006.
func (p *Parser) parseClassDef() (ast.Node, *sherrors.Report) {
	pos := p.pos(p.cur)
	p.advance() // class
	isFinal := false
	if p.curIs(lexer.FINAL) {
		isFinal = true
		p.advance()
	}
	name, err := p.expect(lexer.IDENT_UPPER)
	if err != nil {
		return nil, err
	}
	tyParams, err := p.parseOptionalTyParams()
	if err != nil {
		return nil, err
	}
	var supers []ast.TypeExpr
	if p.curIs(lexer.COLON) {
		p.advance()
		for {
			s, serr := p.parseTypeExpr()
			if serr != nil {
				return nil, serr
			}
			supers = append(supers, *s)
			if p.curIs(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	body, berr := p.parseBody()
	if berr != nil {
		return nil, berr
	}
	n := &ast.ClassDef{Name: name.Literal, TyParams: tyParams, Supers: supers, IsFinal: isFinal, Body: body}
	n.Pos = pos
	return n, nil
}

// parseModuleDef parses `module Name[<typarams>] ... end`.
func (p *Parser) parseModuleDef() (ast.Node, *sherrors.Report) {
	pos := p.pos(p.cur)
	p.advance() // module
	name, err := p.expect(lexer.IDENT_UPPER)
	if err != nil {
		return nil, err
	}
	tyParams, err := p.parseOptionalTyParams()
	if err != nil {
		return nil, err
	}
	if p.curIs(lexer.COLON) {
		return nil, sherrors.New(sherrors.PAR006, p.sherrSpan(p.cur), "module %q cannot declare a superclass", name.Literal)
	}
	body, berr := p.parseBody()
	if berr != nil {
		return nil, berr
	}
	n := &ast.ModuleDef{Name: name.Literal, TyParams: tyParams, Body: body}
	n.Pos = pos
	return n, nil
}

// parseEnumDef parses `enum Name[<typarams>] \n case A \n case B(v: Int) \n
// ... \n end` plus any shared methods declared alongside the cases.
func (p *Parser) parseEnumDef() (ast.Node, *sherrors.Report) {
	pos := p.pos(p.cur)
	p.advance() // enum
	name, err := p.expect(lexer.IDENT_UPPER)
	if err != nil {
		return nil, err
	}
	tyParams, err := p.parseOptionalTyParams()
	if err != nil {
		return nil, err
	}
	var cases []ast.EnumCase
	var body []ast.Node
	for !p.curIs(lexer.END) && !p.curIs(lexer.EOF) {
		if p.curIs(lexer.CASE) {
			cpos := p.pos(p.cur)
			p.advance()
			cname, cerr := p.expect(lexer.IDENT_UPPER)
			if cerr != nil {
				return nil, cerr
			}
			var params []ast.Param
			if p.curIs(lexer.LPAREN) {
				params, cerr = p.parseParamList()
				if cerr != nil {
					return nil, cerr
				}
			}
			cases = append(cases, ast.EnumCase{Pos: cpos, Name: cname.Literal, Params: params})
			continue
		}
		item, ierr := p.parseBodyItem()
		if ierr != nil {
			return nil, ierr
		}
		body = append(body, item)
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	n := &ast.EnumDef{Name: name.Literal, TyParams: tyParams, Cases: cases, Body: body}
	n.Pos = pos
	return n, nil
}

// parseOptionalTyParams parses `<in T, out U, V>`.
func (p *Parser) parseOptionalTyParams() ([]ast.TyParamDecl, *sherrors.Report) {
	if !p.curIs(lexer.LT) {
		return nil, nil
	}
	p.enterTypeArgs()
	defer p.exitTypeArgs()
	p.advance()
	var params []ast.TyParamDecl
	seenVariance := map[string]bool{}
	for {
		pos := p.pos(p.cur)
		variance := ""
		if p.curIs(lexer.IN) {
			variance = "in"
			p.advance()
		} else if p.curIs(lexer.OUT) {
			variance = "out"
			p.advance()
		}
		name, err := p.expect(lexer.IDENT_UPPER)
		if err != nil {
			return nil, err
		}
		if seenVariance[name.Literal] {
			return nil, sherrors.New(sherrors.PAR004, p.sherrSpan(name), "duplicate type parameter %q", name.Literal)
		}
		seenVariance[name.Literal] = true
		params = append(params, ast.TyParamDecl{Pos: pos, Name: name.Literal, Variance: variance})
		if p.curIs(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.GT); err != nil {
		return nil, err
	}
	return params, nil
}

// parseBody parses a sequence of nested definitions and method defs up to
// a matching `end`, consuming the `end`.
func (p *Parser) parseBody() ([]ast.Node, *sherrors.Report) {
	var items []ast.Node
	for !p.curIs(lexer.END) && !p.curIs(lexer.EOF) {
		item, err := p.parseBodyItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *Parser) parseBodyItem() (ast.Node, *sherrors.Report) {
	switch p.cur.Type {
	case lexer.CLASS:
		return p.parseClassDef()
	case lexer.MODULE:
		return p.parseModuleDef()
	case lexer.ENUM:
		return p.parseEnumDef()
	case lexer.DEF:
		return p.parseMethodDef(false)
	case lexer.REQUIREMENT:
		p.advance()
		return p.parseMethodDef(true)
	default:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if cd, ok := asConstDef(e); ok {
			return cd, nil
		}
		return e, nil
	}
}

// asConstDef recognizes a toplevel/class-level `Name = value` assignment to
// an uppercase identifier as a constant definition, distinguishing it from a plain Assign.
func asConstDef(e ast.Expr) (*ast.ConstDef, bool) {
	a, ok := e.(*ast.Assign)
	if !ok {
		return nil, false
	}
	ref, ok := a.Target.(*ast.ConstRef)
	if !ok || len(ref.Path) != 1 {
		return nil, false
	}
	cd := &ast.ConstDef{Name: ref.Path[0], Value: a.Value}
	cd.Pos = a.Position()
	return cd, true
}

// parseMethodDef parses `def [self.]name[<typarams>][(params)] [-> Type]
// [body] end`. requirement methods have no body and no closing `end`.
func (p *Parser) parseMethodDef(isRequirement bool) (ast.Node, *sherrors.Report) {
	pos := p.pos(p.cur)
	// MethodName mode must be set before the token that will become the
	// method name is fetched, since a single-token-lookahead parser would
	// otherwise already hold that token having read it under the ambient
	// mode.
	p.lex.SetMode(lexer.MethodName)
	p.advance() // def
	isClassMethod := false
	if p.curIs(lexer.SELF) {
		p.advance() // self
		if !p.curIs(lexer.DOT) {
			return nil, p.unexpected(lexer.DOT)
		}
		p.lex.SetMode(lexer.MethodName)
		p.advance() // .
		isClassMethod = true
	}
	name, err := p.parseMethodName()
	if err != nil {
		return nil, err
	}
	p.lex.SetMode(lexer.ExprEnd)
	tyParams, err := p.parseOptionalTyParams()
	if err != nil {
		return nil, err
	}
	var params []ast.Param
	if p.curIs(lexer.LPAREN) {
		params, err = p.parseParamList()
		if err != nil {
			return nil, err
		}
	}
	var retType *ast.TypeExpr
	if p.curIs(lexer.ARROW) {
		p.advance()
		retType, err = p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
	}
	if isSetterName(name) && len(params) != 1 {
		return nil, sherrors.New(sherrors.PAR005, p.sherrSpan(p.cur),
			"setter method %q must have exactly one parameter", name)
	}
	var body []ast.Expr
	if !isRequirement {
		body, err = p.parseExprSeq(lexer.END)
		if err != nil {
			return nil, err
		}
		if err := p.expectEnd(); err != nil {
			return nil, err
		}
	}
	if name == "initialize" {
		body = prependIvarAssigns(params, body)
	}
	n := &ast.MethodDef{
		IsClassMethod: isClassMethod,
		IsRequirement: isRequirement,
		Name:          name,
		TyParams:      tyParams,
		Params:        params,
		RetType:       retType,
		Body:          body,
	}
	n.Pos = pos
	return n, nil
}

// isSetterName recognizes `kw=` setters; `[]=` is element assignment, not a
// setter, and takes index + value.
func isSetterName(name string) bool {
	if len(name) < 2 || name[len(name)-1] != '=' {
		return false
	}
	c := name[0]
	return c == '_' || (c >= 'a' && c <= 'z')
}

// prependIvarAssigns desugars initialize ivar-params: "In an initialize, an @name:
// Type parameter declares an instance variable and implicitly assigns it
// from the argument; the parser emits an implicit @name = name at the start
// of the body."
func prependIvarAssigns(params []ast.Param, body []ast.Expr) []ast.Expr {
	var prelude []ast.Expr
	for _, prm := range params {
		if prm.IsIvar {
			target := &ast.IVarRef{Name: prm.Name}
			target.Pos = prm.Pos
			assign := &ast.Assign{Target: target, Value: &ast.LVarRef{Name: prm.Name}}
			assign.Pos = prm.Pos
			prelude = append(prelude, assign)
		}
	}
	if len(prelude) == 0 {
		return body
	}
	return append(prelude, body...)
}

// parseParamList parses `(name: Type, @ivar: Type = default, ...)`.
func (p *Parser) parseParamList() ([]ast.Param, *sherrors.Report) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.curIs(lexer.RPAREN) {
		pos := p.pos(p.cur)
		isIvar := false
		if p.curIs(lexer.AT) {
			isIvar = true
			p.advance()
		}
		name, err := p.expect(lexer.IDENT_LOWER)
		if err != nil {
			return nil, err
		}
		prm := ast.Param{Pos: pos, Name: name.Literal, IsIvar: isIvar}
		if p.curIs(lexer.COLON) {
			p.advance()
			ty, terr := p.parseTypeExpr()
			if terr != nil {
				return nil, terr
			}
			prm.Type = ty
		}
		if p.curIs(lexer.ASSIGN) {
			p.advance()
			def, derr := p.parseAssign()
			if derr != nil {
				return nil, derr
			}
			prm.Default = def
		}
		params = append(params, prm)
		if p.curIs(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}
