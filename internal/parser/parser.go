// Package parser implements the hand-written Pratt-style parser: token
// stream to concrete AST, with operator-precedence expression parsing,
// paren-less-call backtracking, and context-sensitive type-expression
// parsing, split file-per-concern (parser.go, parser_decl.go,
// parser_expr.go, parser_type.go, parser_pattern.go).
package parser

import (
	"github.com/shiika-lang/shiika-go/internal/ast"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/lexer"
)

// Parser wraps a Lexer and its single current token. Lookahead is
// deliberately kept to one token (rather than the two-token window a
// generic Pratt parser often uses) so that the lexer's StrLiteral-mode
// CloseInterp() hook — which must fire exactly between reading a `}` and
// reading whatever follows — stays synchronized with what the parser has
// actually consumed.
type Parser struct {
	lex  *lexer.Lexer
	file string

	cur lexer.Token

	typeArgDepth int

	err *sherrors.Report
}

// New constructs a Parser over already-normalized source.
func New(src []byte, file string) *Parser {
	p := &Parser{lex: lexer.New(string(lexer.Normalize(src)), file), file: file}
	p.advance()
	return p
}

func (p *Parser) pos(t lexer.Token) ast.Pos {
	return ast.Pos{File: p.file, Line: t.Line, Column: t.Column}
}

func (p *Parser) sherrSpan(t lexer.Token) sherrors.Span {
	return sherrors.Span{File: p.file, Line: t.Line, Column: t.Column, Offset: t.Offset}
}

// advance reads the next significant token, skipping NEWLINE and SEMI which
// both act as statement separators outside of contexts that parse
// them explicitly (none currently do, since the grammar treats every
// statement boundary uniformly). A token that follows a skipped separator is
// marked as not preceded by whitespace, so the indentation of a new line
// never starts a paren-less argument list for the previous line.
func (p *Parser) advance() {
	afterSeparator := false
	for {
		tok, err := p.lex.NextToken()
		if err != nil {
			if p.err == nil {
				p.err = err
			}
			p.cur = lexer.Token{Type: lexer.EOF}
			return
		}
		if tok.Type == lexer.NEWLINE || tok.Type == lexer.SEMI {
			afterSeparator = true
			continue
		}
		if afterSeparator {
			tok.SpaceBefore = false
		}
		p.cur = tok
		return
	}
}

func (p *Parser) curIs(tt lexer.TokenType) bool { return p.cur.Type == tt }

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, *sherrors.Report) {
	if p.cur.Type != tt {
		return lexer.Token{}, p.unexpected(tt)
	}
	t := p.cur
	p.advance()
	return t, nil
}

func (p *Parser) unexpected(want lexer.TokenType) *sherrors.Report {
	return sherrors.New(sherrors.PAR002, p.sherrSpan(p.cur),
		"unexpected token %s %q, expected %s", p.cur.Type, p.cur.Literal, want)
}

// expectEnd consumes a terminating `end`, reporting the dedicated
// missing-end code (rather than the generic unexpected-token one) since an
// unclosed block is the single most common parse failure in practice.
func (p *Parser) expectEnd() *sherrors.Report {
	if !p.curIs(lexer.END) {
		return sherrors.New(sherrors.PAR001, p.sherrSpan(p.cur),
			"missing `end` — found %s %q instead", p.cur.Type, p.cur.Literal)
	}
	p.advance()
	return nil
}

// Cursor is a save point over both the lexer's internal cursor and the
// parser's current token, used by the paren-less-call backtracking: if a
// speculative parse of `name arg1, arg2` as a call fails, the parser
// rewinds to before `name`'s argument list was attempted.
type Cursor struct {
	lc  lexer.Cursor
	cur lexer.Token
}

func (p *Parser) save() Cursor {
	return Cursor{lc: p.lex.Save(), cur: p.cur}
}

func (p *Parser) restore(c Cursor) {
	p.lex.Restore(c.lc)
	p.cur = c.cur
}

// ParseProgram parses a full source file into a Program.
func (p *Parser) ParseProgram() (*ast.Program, *sherrors.Report) {
	prog := &ast.Program{}
	for !p.curIs(lexer.EOF) {
		item, err := p.parseTopLevelItem()
		if err != nil {
			return nil, err
		}
		prog.Items = append(prog.Items, item)
	}
	if p.err != nil {
		return nil, p.err
	}
	return prog, nil
}

func (p *Parser) parseTopLevelItem() (ast.Node, *sherrors.Report) {
	switch p.cur.Type {
	case lexer.CLASS:
		return p.parseClassDef()
	case lexer.MODULE:
		return p.parseModuleDef()
	case lexer.ENUM:
		return p.parseEnumDef()
	case lexer.DEF:
		return nil, sherrors.New(sherrors.PAR002, p.sherrSpan(p.cur),
			"method definitions are not permitted at the top level")
	default:
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if cd, ok := asConstDef(expr); ok {
			return cd, nil
		}
		return expr, nil
	}
}
