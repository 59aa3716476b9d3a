package parser

import (
	"github.com/shiika-lang/shiika-go/internal/ast"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/lexer"
)

// parseTypeExpr parses a (possibly generic, possibly namespace-qualified)
// type expression, e.g. `Int`, `A::B`, `Array<Array<Int>>`. The
// lexer's rshiftIsGtGt mode is toggled on for the duration of any `<...>`
// argument list so that `>>` closing two nested lists lexes as two GT
// tokens rather than one RSHIFT token; a depth counter on the parser makes
// this correct for arbitrarily nested generics.
func (p *Parser) parseTypeExpr() (*ast.TypeExpr, *sherrors.Report) {
	pos := p.pos(p.cur)
	name, err := p.expect(lexer.IDENT_UPPER)
	if err != nil {
		return nil, err
	}
	path := []string{name.Literal}
	for p.curIs(lexer.DCOLON) {
		p.advance()
		n, derr := p.expect(lexer.IDENT_UPPER)
		if derr != nil {
			return nil, derr
		}
		path = append(path, n.Literal)
	}
	te := &ast.TypeExpr{Pos: pos, Path: path}
	if p.curIs(lexer.LT) {
		p.enterTypeArgs()
		defer p.exitTypeArgs()
		p.advance()
		for {
			arg, aerr := p.parseTypeExpr()
			if aerr != nil {
				return nil, aerr
			}
			te.Args = append(te.Args, *arg)
			if p.curIs(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, gerr := p.expect(lexer.GT); gerr != nil {
			return nil, gerr
		}
	}
	return te, nil
}

func (p *Parser) enterTypeArgs() {
	p.typeArgDepth++
	p.lex.SetRshiftIsGtGt(true)
}

func (p *Parser) exitTypeArgs() {
	p.typeArgDepth--
	if p.typeArgDepth == 0 {
		p.lex.SetRshiftIsGtGt(false)
	}
}

// tryParseCallTyArgs speculatively reads `<Type, ...>` as explicit method
// type arguments at a call site. `name<` with no space before the `<`
// starts the attempt; it commits only when the closing `>` is immediately
// followed by `(`, so `a<b` and `a < b` keep parsing as comparisons.
func (p *Parser) tryParseCallTyArgs() ([]ast.TypeExpr, bool) {
	if !p.curIs(lexer.LT) || p.cur.SpaceBefore {
		return nil, false
	}
	cp := p.save()
	p.enterTypeArgs()
	abort := func() ([]ast.TypeExpr, bool) {
		p.exitTypeArgs()
		p.restore(cp)
		return nil, false
	}
	p.advance()
	var args []ast.TypeExpr
	for {
		if !p.curIs(lexer.IDENT_UPPER) {
			return abort()
		}
		te, err := p.parseTypeExpr()
		if err != nil {
			return abort()
		}
		args = append(args, *te)
		if p.curIs(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if !p.curIs(lexer.GT) {
		return abort()
	}
	p.exitTypeArgs()
	p.advance()
	if !p.curIs(lexer.LPAREN) {
		p.restore(cp)
		return nil, false
	}
	return args, true
}
