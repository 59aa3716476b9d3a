package parser

import (
	"strconv"

	"github.com/shiika-lang/shiika-go/internal/ast"
	sherrors "github.com/shiika-lang/shiika-go/internal/errors"
	"github.com/shiika-lang/shiika-go/internal/lexer"
)

// parseExpr is the entry point for expression-position parsing, plus the
// trailing modifier-if/modifier-unless rewrite.
func (p *Parser) parseExpr() (ast.Expr, *sherrors.Report) {
	e, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return p.parseModifier(e)
}

func (p *Parser) parseModifier(e ast.Expr) (ast.Expr, *sherrors.Report) {
	switch p.cur.Type {
	case lexer.IF:
		pos := p.pos(p.cur)
		p.advance()
		cond, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		n := &ast.IfExpr{Cond: cond, Then: []ast.Expr{e}}
		n.Pos = pos
		return n, nil
	case lexer.UNLESS:
		pos := p.pos(p.cur)
		p.advance()
		cond, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		n := &ast.IfExpr{Cond: &ast.NotExpr{Operand: cond}, Then: []ast.Expr{e}}
		n.Pos = pos
		return n, nil
	}
	return e, nil
}

func (p *Parser) parseExprSeq(terminators ...lexer.TokenType) ([]ast.Expr, *sherrors.Report) {
	var exprs []ast.Expr
	for !p.atAny(terminators...) && !p.curIs(lexer.EOF) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func (p *Parser) atAny(tts ...lexer.TokenType) bool {
	for _, tt := range tts {
		if p.cur.Type == tt {
			return true
		}
	}
	return false
}

// parseAssign: the lowest-precedence level — `lhs = rhs`, `var name = rhs`.
func (p *Parser) parseAssign() (ast.Expr, *sherrors.Report) {
	if p.curIs(lexer.VAR) || p.curIs(lexer.LET) {
		pos := p.pos(p.cur)
		p.advance()
		name, err := p.expect(lexer.IDENT_LOWER)
		if err != nil {
			return nil, err
		}
		var declTy *ast.TypeExpr
		if p.curIs(lexer.COLON) {
			p.advance()
			declTy, err = p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lexer.ASSIGN); err != nil {
			return nil, err
		}
		val, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		n := &ast.VarDecl{Name: name.Literal, Type: declTy, Value: val}
		n.Pos = pos
		return n, nil
	}

	lhs, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.curIs(lexer.ASSIGN) {
		pos := p.pos(p.cur)
		p.advance()
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		target, terr := p.toAssignTarget(lhs)
		if terr != nil {
			return nil, terr
		}
		n := &ast.Assign{Target: target, Value: rhs}
		n.Pos = pos
		return n, nil
	}
	if op, ok := compoundAssignOps[p.cur.Type]; ok {
		return p.desugarCompoundAssign(lhs, op)
	}
	return lhs, nil
}

var compoundAssignOps = map[lexer.TokenType]string{
	lexer.PLUS_EQ: "+", lexer.MINUS_EQ: "-", lexer.STAR_EQ: "*",
	lexer.SLASH_EQ: "/", lexer.PERCENT_EQ: "%", lexer.LSHIFT_EQ: "<<",
	lexer.RSHIFT_EQ: ">>", lexer.AMP_EQ: "&", lexer.PIPE_EQ: "|",
	lexer.CARET_EQ: "^",
}

// desugarCompoundAssign rewrites `x op= rhs` into `x = x.op(rhs)`. Only
// lvar and ivar targets are supported; the operand is a fresh reference
// node so the AST stays an owned tree.
func (p *Parser) desugarCompoundAssign(lhs ast.Expr, op string) (ast.Expr, *sherrors.Report) {
	opTok := p.cur
	p.advance()
	rhs, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	var operand ast.Expr
	switch v := lhs.(type) {
	case *ast.LVarRef:
		r := &ast.LVarRef{Name: v.Name}
		r.Pos = v.Position()
		operand = r
	case *ast.IVarRef:
		r := &ast.IVarRef{Name: v.Name}
		r.Pos = v.Position()
		operand = r
	default:
		return nil, sherrors.New(sherrors.PAR002, p.sherrSpan(opTok),
			"invalid compound assignment target")
	}
	opCall := p.binCall(operand, lexer.Token{Literal: op, Line: opTok.Line, Column: opTok.Column, File: opTok.File}, rhs)
	n := &ast.Assign{Target: lhs, Value: opCall}
	n.Pos = p.pos(opTok)
	return n, nil
}

// toAssignTarget rewrites `recv.name` method calls used as an assignment
// target into the corresponding `name=` setter call.
func (p *Parser) toAssignTarget(e ast.Expr) (ast.Expr, *sherrors.Report) {
	switch v := e.(type) {
	case *ast.LVarRef:
		return v, nil
	case *ast.IVarRef:
		return v, nil
	case *ast.ConstRef:
		return v, nil
	case *ast.MethodCall:
		if v.Recv != nil && len(v.Args) == 0 && !v.HasParens {
			v.Name = v.Name + "="
			return v, nil
		}
	}
	return nil, sherrors.New(sherrors.PAR002, p.sherrSpan(p.cur), "invalid assignment target")
}

func (p *Parser) parseOr() (ast.Expr, *sherrors.Report) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.OR) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.OrExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, *sherrors.Report) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.AND) {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.AndExpr{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Expr, *sherrors.Report) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.EQ) || p.curIs(lexer.NE) {
		op := p.cur
		p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = p.binCall(left, op, right)
	}
	return left, nil
}

func (p *Parser) parseRelational() (ast.Expr, *sherrors.Report) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.LE) || p.curIs(lexer.GE) || p.curIs(lexer.LT) || p.curIs(lexer.GT) {
		op := p.cur
		p.advance()
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		left = p.binCall(left, op, right)
	}
	return left, nil
}

func (p *Parser) parseBitOr() (ast.Expr, *sherrors.Report) {
	left, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.PIPE) || p.curIs(lexer.CARET) {
		op := p.cur
		p.advance()
		right, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		left = p.binCall(left, op, right)
	}
	return left, nil
}

func (p *Parser) parseBitAnd() (ast.Expr, *sherrors.Report) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.AMP) {
		op := p.cur
		p.advance()
		right, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		left = p.binCall(left, op, right)
	}
	return left, nil
}

func (p *Parser) parseShift() (ast.Expr, *sherrors.Report) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.LSHIFT) || p.curIs(lexer.RSHIFT) {
		op := p.cur
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = p.binCall(left, op, right)
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, *sherrors.Report) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for (p.curIs(lexer.PLUS) || p.curIs(lexer.MINUS)) && !p.cur.IsUnaryContext() {
		op := p.cur
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = p.binCall(left, op, right)
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, *sherrors.Report) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.curIs(lexer.STAR) || p.curIs(lexer.SLASH) || p.curIs(lexer.PERCENT) {
		op := p.cur
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = p.binCall(left, op, right)
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, *sherrors.Report) {
	switch p.cur.Type {
	case lexer.MINUS:
		if p.cur.IsUnaryContext() {
			pos := p.pos(p.cur)
			p.advance()
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			n := &ast.MethodCall{Recv: operand, Name: "-@", HasParens: true}
			n.Pos = pos
			return n, nil
		}
	case lexer.PLUS:
		if p.cur.IsUnaryContext() {
			p.advance()
			return p.parseUnary()
		}
	case lexer.BANG, lexer.NOT:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.NotExpr{Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) binCall(left ast.Expr, op lexer.Token, right ast.Expr) ast.Expr {
	n := &ast.MethodCall{Recv: left, Name: op.Literal, Args: []ast.Expr{right}, HasParens: true}
	n.Pos = p.pos(op)
	return n
}

// parsePostfix handles `.name`, `.name(args)`, `.name(args) do |..| .. end`
// chains.
func (p *Parser) parsePostfix() (ast.Expr, *sherrors.Report) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Type {
		case lexer.DOT:
			pos := p.pos(p.cur)
			p.advance()
			name, nerr := p.parseMethodName()
			if nerr != nil {
				return nil, nerr
			}
			call := &ast.MethodCall{Recv: e, Name: name}
			call.Pos = pos
			if tyArgs, ok := p.tryParseCallTyArgs(); ok {
				call.TyArgs = tyArgs
			}
			if p.curIs(lexer.LPAREN) {
				args, aerr := p.parseParenArgs()
				if aerr != nil {
					return nil, aerr
				}
				call.Args = args
				call.HasParens = true
			}
			if p.curIs(lexer.DO) {
				if berr := p.parseTrailingBlock(call); berr != nil {
					return nil, berr
				}
			}
			e = call
		default:
			return e, nil
		}
	}
}

func (p *Parser) parseMethodName() (string, *sherrors.Report) {
	switch p.cur.Type {
	case lexer.IDENT_LOWER, lexer.IDENT_UPPER:
		lit := p.cur.Literal
		p.advance()
		return lit, nil
	case lexer.SYMBOL:
		lit := p.cur.Literal
		p.advance()
		return lit, nil
	}
	return "", sherrors.New(sherrors.PAR003, p.sherrSpan(p.cur), "invalid method name %q", p.cur.Literal)
}

func (p *Parser) parseParenArgs() ([]ast.Expr, *sherrors.Report) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.curIs(lexer.RPAREN) {
		a, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.curIs(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseTrailingBlock(call *ast.MethodCall) *sherrors.Report {
	p.advance() // `do`
	var params []ast.Param
	if p.curIs(lexer.PIPE) {
		p.advance()
		for !p.curIs(lexer.PIPE) {
			name, err := p.expect(lexer.IDENT_LOWER)
			if err != nil {
				return err
			}
			params = append(params, ast.Param{Name: name.Literal})
			if p.curIs(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.PIPE); err != nil {
			return err
		}
	}
	body, err := p.parseExprSeq(lexer.END)
	if err != nil {
		return err
	}
	if err := p.expectEnd(); err != nil {
		return err
	}
	call.BlockParams = params
	call.Block = body
	return nil
}

// parsePrimary parses literals, identifiers (which may become a paren-less
// or bare call), `self`, parenthesized expressions, if/while/match/
// break/return, and lambda literals.
func (p *Parser) parsePrimary() (ast.Expr, *sherrors.Report) {
	tok := p.cur
	switch tok.Type {
	case lexer.INT:
		p.advance()
		v, convErr := strconv.ParseInt(tok.Literal, 10, 64)
		if convErr != nil {
			return nil, sherrors.New(sherrors.PAR002, p.sherrSpan(tok), "invalid integer literal %q", tok.Literal)
		}
		n := &ast.IntLit{Value: v}
		n.Pos = p.pos(tok)
		return n, nil
	case lexer.FLOAT:
		p.advance()
		v, convErr := strconv.ParseFloat(tok.Literal, 64)
		if convErr != nil {
			return nil, sherrors.New(sherrors.PAR002, p.sherrSpan(tok), "invalid float literal %q", tok.Literal)
		}
		n := &ast.FloatLit{Value: v}
		n.Pos = p.pos(tok)
		return n, nil
	case lexer.TRUE:
		p.advance()
		return &ast.BoolLit{Value: true}, nil
	case lexer.FALSE:
		p.advance()
		return &ast.BoolLit{Value: false}, nil
	case lexer.STRING:
		return p.parseStringLit()
	case lexer.SELF:
		p.advance()
		return &ast.SelfExpr{}, nil
	case lexer.AT:
		p.advance()
		name, err := p.expect(lexer.IDENT_LOWER)
		if err != nil {
			return nil, err
		}
		n := &ast.IVarRef{Name: name.Literal}
		n.Pos = p.pos(tok)
		return n, nil
	case lexer.LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.IF:
		return p.parseIf()
	case lexer.UNLESS:
		return p.parseUnless()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.MATCH:
		return p.parseMatch()
	case lexer.BREAK:
		p.advance()
		var val ast.Expr
		if p.canStartExpr() {
			v, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			val = v
		}
		n := &ast.BreakExpr{Value: val}
		n.Pos = p.pos(tok)
		return n, nil
	case lexer.RETURN:
		p.advance()
		var val ast.Expr
		if p.canStartExpr() {
			v, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			val = v
		}
		n := &ast.ReturnExpr{Value: val}
		n.Pos = p.pos(tok)
		return n, nil
	case lexer.FN:
		return p.parseLambda(true)
	case lexer.DO:
		return p.parseLambda(false)
	case lexer.IDENT_UPPER:
		return p.parseConstOrCall()
	case lexer.IDENT_LOWER:
		return p.parseIdentOrCall()
	}
	return nil, sherrors.New(sherrors.PAR002, p.sherrSpan(tok), "unexpected token %s %q in expression", tok.Type, tok.Literal)
}

func (p *Parser) canStartExpr() bool {
	switch p.cur.Type {
	case lexer.END, lexer.EOF, lexer.ELSE, lexer.ELSIF, lexer.WHEN, lexer.THEN:
		return false
	}
	return true
}

// parseStringLit assembles a StringLit from the segments the lexer yields
// across `#{...}` interpolation boundaries. The parser
// holds a single token of lookahead, so the lexer's CloseInterp() hook is
// called at exactly the right moment: right after the interpolation's
// closing `}` has been consumed, before the next NextToken() call that
// would otherwise read the trailing string content as if starting fresh in
// ExprEnd mode.
func (p *Parser) parseStringLit() (ast.Expr, *sherrors.Report) {
	pos := p.pos(p.cur)
	var parts []ast.StringPart
	parts = append(parts, ast.StringPart{Literal: p.cur.Literal})
	opensInterp := p.lex.Mode() == lexer.ExprBegin
	p.advance()
	for opensInterp {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		parts = append(parts, ast.StringPart{Expr: e})
		if !p.curIs(lexer.RBRACE) {
			return nil, p.unexpected(lexer.RBRACE)
		}
		// CloseInterp must fire before the next token is fetched — not via
		// p.expect/p.advance here, which would read the string's
		// continuation under the wrong (ExprEnd) mode.
		p.lex.CloseInterp()
		p.advance()
		if !p.curIs(lexer.STRING) {
			return nil, sherrors.New(sherrors.PAR002, p.sherrSpan(p.cur),
				"expected string continuation after interpolation")
		}
		parts = append(parts, ast.StringPart{Literal: p.cur.Literal})
		opensInterp = p.lex.Mode() == lexer.ExprBegin
		p.advance()
	}
	n := &ast.StringLit{Parts: parts}
	n.Pos = pos
	return n, nil
}

func (p *Parser) parseConstOrCall() (ast.Expr, *sherrors.Report) {
	pos := p.pos(p.cur)
	path := []string{p.cur.Literal}
	p.advance()
	for p.curIs(lexer.DCOLON) {
		p.advance()
		name, err := p.expect(lexer.IDENT_UPPER)
		if err != nil {
			return nil, err
		}
		path = append(path, name.Literal)
	}
	if p.curIs(lexer.LPAREN) {
		args, err := p.parseParenArgs()
		if err != nil {
			return nil, err
		}
		n := &ast.MethodCall{Name: "new", Recv: &ast.ConstRef{Path: path}, Args: args, HasParens: true}
		n.Pos = pos
		return n, nil
	}
	n := &ast.ConstRef{Path: path}
	n.Pos = pos
	return n, nil
}

func (p *Parser) parseIdentOrCall() (ast.Expr, *sherrors.Report) {
	pos := p.pos(p.cur)
	name := p.cur.Literal
	p.advance()
	// A successful type-argument parse guarantees a `(` follows.
	tyArgs, _ := p.tryParseCallTyArgs()
	if p.curIs(lexer.LPAREN) {
		args, err := p.parseParenArgs()
		if err != nil {
			return nil, err
		}
		call := &ast.MethodCall{Name: name, TyArgs: tyArgs, Args: args, HasParens: true}
		call.Pos = pos
		if p.curIs(lexer.DO) {
			if err := p.parseTrailingBlock(call); err != nil {
				return nil, err
			}
		}
		return call, nil
	}
	if p.canStartParenlessArgs() {
		return p.tryParenlessCall(name, pos)
	}
	n := &ast.LVarRef{Name: name}
	n.Pos = pos
	return n, nil
}

// canStartParenlessArgs is a conservative guard: a paren-less call argument
// list may only start with a token preceded by whitespace and able to begin
// a primary expression.
func (p *Parser) canStartParenlessArgs() bool {
	if !p.cur.SpaceBefore {
		return false
	}
	switch p.cur.Type {
	case lexer.INT, lexer.FLOAT, lexer.STRING, lexer.TRUE, lexer.FALSE,
		lexer.SELF, lexer.IDENT_LOWER, lexer.IDENT_UPPER, lexer.AT:
		return true
	}
	return false
}

// tryParenlessCall speculatively parses `name arg1, arg2` as a call,
// restoring the saved cursor if the attempt does not parse cleanly.
func (p *Parser) tryParenlessCall(name string, pos ast.Pos) (ast.Expr, *sherrors.Report) {
	cp := p.save()
	var args []ast.Expr
	for {
		a, err := p.parseMultiplicative()
		if err != nil {
			p.restore(cp)
			n := &ast.LVarRef{Name: name}
			n.Pos = pos
			return n, nil
		}
		args = append(args, a)
		if p.curIs(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	n := &ast.MethodCall{Name: name, Args: args, HasParens: false}
	n.Pos = pos
	return n, nil
}

func (p *Parser) parseLambda(isFn bool) (ast.Expr, *sherrors.Report) {
	pos := p.pos(p.cur)
	p.advance() // fn / do
	var params []ast.Param
	if isFn {
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return nil, err
		}
		for !p.curIs(lexer.RPAREN) {
			name, err := p.expect(lexer.IDENT_LOWER)
			if err != nil {
				return nil, err
			}
			prm := ast.Param{Name: name.Literal}
			if p.curIs(lexer.COLON) {
				p.advance()
				ty, terr := p.parseTypeExpr()
				if terr != nil {
					return nil, terr
				}
				prm.Type = ty
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
		if p.curIs(lexer.DO) {
			p.advance()
		}
	} else if p.curIs(lexer.PIPE) {
		p.advance()
		for !p.curIs(lexer.PIPE) {
			name, err := p.expect(lexer.IDENT_LOWER)
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: name.Literal})
			if p.curIs(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.PIPE); err != nil {
			return nil, err
		}
	}
	body, err := p.parseExprSeq(lexer.END)
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	n := &ast.LambdaExpr{IsFn: isFn, Params: params, Body: body}
	n.Pos = pos
	return n, nil
}

func (p *Parser) parseIf() (ast.Expr, *sherrors.Report) {
	pos := p.pos(p.cur)
	p.advance() // if
	cond, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if p.curIs(lexer.THEN) {
		p.advance()
	}
	then, err := p.parseExprSeq(lexer.ELSE, lexer.ELSIF, lexer.END)
	if err != nil {
		return nil, err
	}
	var els []ast.Expr
	if p.curIs(lexer.ELSIF) {
		sub, serr := p.parseElsif()
		if serr != nil {
			return nil, serr
		}
		els = []ast.Expr{sub}
	} else if p.curIs(lexer.ELSE) {
		p.advance()
		e, eerr := p.parseExprSeq(lexer.END)
		if eerr != nil {
			return nil, eerr
		}
		els = e
		if eerr := p.expectEnd(); eerr != nil {
			return nil, eerr
		}
	} else {
		if eerr := p.expectEnd(); eerr != nil {
			return nil, eerr
		}
	}
	n := &ast.IfExpr{Cond: cond, Then: then, Else: els}
	n.Pos = pos
	return n, nil
}

// parseElsif parses one `elsif` link of the chain; it consumes its own
// trailing `end` only at the chain's tail (where the next token is not
// another `elsif`).
func (p *Parser) parseElsif() (ast.Expr, *sherrors.Report) {
	pos := p.pos(p.cur)
	p.advance() // elsif
	cond, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if p.curIs(lexer.THEN) {
		p.advance()
	}
	then, err := p.parseExprSeq(lexer.ELSE, lexer.ELSIF, lexer.END)
	if err != nil {
		return nil, err
	}
	var els []ast.Expr
	if p.curIs(lexer.ELSIF) {
		sub, serr := p.parseElsif()
		if serr != nil {
			return nil, serr
		}
		n := &ast.IfExpr{Cond: cond, Then: then, Else: []ast.Expr{sub}}
		n.Pos = pos
		return n, nil
	}
	if p.curIs(lexer.ELSE) {
		p.advance()
		e, eerr := p.parseExprSeq(lexer.END)
		if eerr != nil {
			return nil, eerr
		}
		els = e
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	n := &ast.IfExpr{Cond: cond, Then: then, Else: els}
	n.Pos = pos
	return n, nil
}

func (p *Parser) parseUnless() (ast.Expr, *sherrors.Report) {
	pos := p.pos(p.cur)
	p.advance()
	cond, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if p.curIs(lexer.THEN) {
		p.advance()
	}
	then, err := p.parseExprSeq(lexer.ELSE, lexer.END)
	if err != nil {
		return nil, err
	}
	var els []ast.Expr
	if p.curIs(lexer.ELSE) {
		p.advance()
		e, eerr := p.parseExprSeq(lexer.END)
		if eerr != nil {
			return nil, eerr
		}
		els = e
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	n := &ast.IfExpr{Cond: &ast.NotExpr{Operand: cond}, Then: then, Else: els}
	n.Pos = pos
	return n, nil
}

func (p *Parser) parseWhile() (ast.Expr, *sherrors.Report) {
	pos := p.pos(p.cur)
	p.advance()
	cond, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if p.curIs(lexer.DO) {
		p.advance()
	}
	body, err := p.parseExprSeq(lexer.END)
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	n := &ast.WhileExpr{Cond: cond, Body: body}
	n.Pos = pos
	return n, nil
}
