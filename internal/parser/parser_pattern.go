package parser

import (
	"github.com/shiika-lang/shiika-go/internal/ast"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/lexer"
)

// parseMatch parses `match scrutinee \n when pattern \n body ... end`. A
// trailing wildcard clause is not synthesized here — that is the
// HIR pattern-match compiler's job.
func (p *Parser) parseMatch() (ast.Expr, *sherrors.Report) {
	pos := p.pos(p.cur)
	p.advance() // match
	scrutinee, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	var clauses []ast.MatchClause
	for p.curIs(lexer.WHEN) {
		cpos := p.pos(p.cur)
		p.advance()
		pat, perr := p.parsePattern()
		if perr != nil {
			return nil, perr
		}
		if p.curIs(lexer.THEN) {
			p.advance()
		}
		body, berr := p.parseExprSeq(lexer.WHEN, lexer.END)
		if berr != nil {
			return nil, berr
		}
		clauses = append(clauses, ast.MatchClause{Pos: cpos, Pattern: pat, Body: body})
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	n := &ast.MatchExpr{Scrutinee: scrutinee, Clauses: clauses}
	n.Pos = pos
	return n, nil
}

// parsePattern parses one surface pattern: `_`, a lowercase binding, a
// literal, or an extractor `Path::To::Ctor(p1, p2)`.
func (p *Parser) parsePattern() (ast.Pattern, *sherrors.Report) {
	switch p.cur.Type {
	case lexer.IDENT_LOWER:
		if p.cur.Literal == "_" {
			n := &ast.WildcardPattern{}
			n.Pos = p.pos(p.cur)
			p.advance()
			return n, nil
		}
		n := &ast.VarPattern{Name: p.cur.Literal}
		n.Pos = p.pos(p.cur)
		p.advance()
		return n, nil
	case lexer.INT, lexer.FLOAT, lexer.STRING, lexer.TRUE, lexer.FALSE:
		e, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		n := &ast.LiteralPattern{Value: e}
		n.Pos = e.Position()
		return n, nil
	case lexer.IDENT_UPPER:
		return p.parseExtractorPattern()
	}
	return nil, sherrors.New(sherrors.PAR003, p.sherrSpan(p.cur), "invalid pattern starting with %s %q", p.cur.Type, p.cur.Literal)
}

func (p *Parser) parseExtractorPattern() (ast.Pattern, *sherrors.Report) {
	pos := p.pos(p.cur)
	path := []string{p.cur.Literal}
	p.advance()
	for p.curIs(lexer.DCOLON) {
		p.advance()
		n, err := p.expect(lexer.IDENT_UPPER)
		if err != nil {
			return nil, err
		}
		path = append(path, n.Literal)
	}
	n := &ast.ExtractorPattern{Path: path}
	n.Pos = pos
	if p.curIs(lexer.LPAREN) {
		p.advance()
		for !p.curIs(lexer.RPAREN) {
			sub, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			n.Args = append(n.Args, sub)
			if p.curIs(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}
	return n, nil
}
