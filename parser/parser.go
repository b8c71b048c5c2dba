/*
File   : microperl/parser/parser.go
Package: parser

Recursive-descent parser with precedence climbing, per spec.md section
4.2. Holds the lexer.Lexer directly and keeps a single token of
lookahead, the same shape as the teacher's scanner-backed parser, so it
can reach past the ordinary lookahead and call lexer.NextAsRegex at
exactly the point the grammar guarantees a regex literal: immediately
after consuming '=~' or '!~'.
*/
package parser

import (
	"github.com/ajokela/microperl/ast"
	"github.com/ajokela/microperl/lexer"
)

// Parser turns a token stream into an ast.Program.
type Parser struct {
	lex *lexer.Lexer
	cur lexer.Token
}

// New creates a Parser over src and primes the first lookahead token.
func New(src string) (*Parser, error) {
	p := &Parser{lex: lexer.New(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse lexes and parses src in one call, returning the completed
// program or the first lexical or syntax error encountered.
func Parse(src string) (*ast.Program, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

// advanceRegex fetches the next token in regex-literal mode, used only
// right after consuming '=~' / '!~'.
func (p *Parser) advanceRegex() error {
	tok, err := p.lex.NextAsRegex()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) check(tt lexer.TokenType) bool { return p.cur.Type == tt }

func (p *Parser) checkAny(tts ...lexer.TokenType) bool {
	for _, tt := range tts {
		if p.cur.Type == tt {
			return true
		}
	}
	return false
}

// expect verifies the current token has type tt, consumes it, and
// returns it. On mismatch it reports the error kind the grammar calls
// for: MissingSemicolon/MissingParen/MissingBrace for their respective
// punctuation, UnexpectedToken otherwise.
func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if !p.check(tt) {
		pos := p.cur.Pos
		switch tt {
		case lexer.SEMI:
			return lexer.Token{}, newError(MissingSemicolon, pos, "expected ';', found %s", p.cur.Type)
		case lexer.RPAREN:
			return lexer.Token{}, newError(MissingParen, pos, "expected ')', found %s", p.cur.Type)
		case lexer.RBRACE:
			return lexer.Token{}, newError(MissingBrace, pos, "expected '}', found %s", p.cur.Type)
		default:
			return lexer.Token{}, unexpectedToken(pos, tt, p.cur.Type)
		}
	}
	tok := p.cur
	if err := p.advance(); err != nil {
		return lexer.Token{}, err
	}
	return tok, nil
}

// ---- Program & statements --------------------------------------------

func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.check(lexer.EOF) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur.Type {
	case lexer.MY:
		return p.parseDecl()
	case lexer.SUB:
		return p.parseSubDef()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.PRINT:
		return p.parsePrint()
	case lexer.LBRACE:
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseDecl() (*ast.VarDecl, error) {
	pos := p.cur.Pos
	if _, err := p.expect(lexer.MY); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SCALAR); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	decl := &ast.VarDecl{Name: nameTok.Literal, Pos: pos}
	if p.check(lexer.ASSIGN) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		decl.Init = init
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseParam() (string, error) {
	if _, err := p.expect(lexer.SCALAR); err != nil {
		return "", err
	}
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return "", err
	}
	return nameTok.Literal, nil
}

func (p *Parser) parseSubDef() (*ast.SubDef, error) {
	pos := p.cur.Pos
	if _, err := p.expect(lexer.SUB); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	if !p.check(lexer.RPAREN) {
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		for p.check(lexer.COMMA) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			param, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.SubDef{Name: nameTok.Literal, Params: params, Body: body, Pos: pos}, nil
}

func (p *Parser) parseIf() (*ast.If, error) {
	pos := p.cur.Pos
	if _, err := p.expect(lexer.IF); err != nil {
		return nil, err
	}
	cond, then, err := p.parseCondBlock()
	if err != nil {
		return nil, err
	}
	node := &ast.If{Cond: cond, Then: then, Pos: pos}
	for p.check(lexer.ELSIF) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elifCond, elifBody, err := p.parseCondBlock()
		if err != nil {
			return nil, err
		}
		node.Elifs = append(node.Elifs, ast.ElifClause{Cond: elifCond, Body: elifBody})
	}
	if p.check(lexer.ELSE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseBlock, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		node.Else = elseBlock
	}
	return node, nil
}

// parseCondBlock parses the common `'(' expr ')' block` shape shared by
// if/elsif/while.
func (p *Parser) parseCondBlock() (ast.Expr, *ast.Block, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, nil, err
	}
	return cond, body, nil
}

func (p *Parser) parseWhile() (*ast.While, error) {
	pos := p.cur.Pos
	if _, err := p.expect(lexer.WHILE); err != nil {
		return nil, err
	}
	cond, body, err := p.parseCondBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body, Pos: pos}, nil
}

// parseForInit parses the init clause of a for-loop: either a `my`
// declaration or a bare expression statement, each consuming its own
// trailing ';'.
func (p *Parser) parseForInit() (ast.Stmt, error) {
	if p.check(lexer.MY) {
		return p.parseDecl()
	}
	pos := p.cur.Pos
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: e, Pos: pos}, nil
}

func (p *Parser) parseFor() (*ast.For, error) {
	pos := p.cur.Pos
	if _, err := p.expect(lexer.FOR); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	init, err := p.parseForInit()
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	step, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{Init: init, Cond: cond, Step: step, Body: body, Pos: pos}, nil
}

func (p *Parser) parseReturn() (*ast.Return, error) {
	pos := p.cur.Pos
	if _, err := p.expect(lexer.RETURN); err != nil {
		return nil, err
	}
	node := &ast.Return{Pos: pos}
	if !p.check(lexer.SEMI) {
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node.Value = val
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parsePrint() (*ast.Print, error) {
	pos := p.cur.Pos
	if _, err := p.expect(lexer.PRINT); err != nil {
		return nil, err
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	node := &ast.Print{Args: []ast.Expr{first}, Pos: pos}
	for p.check(lexer.COMMA) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node.Args = append(node.Args, arg)
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	pos := p.cur.Pos
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	block := &ast.Block{Pos: pos}
	for !p.check(lexer.RBRACE) {
		if p.check(lexer.EOF) {
			return nil, newError(MissingBrace, p.cur.Pos, "unterminated block")
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseExprStmt() (*ast.ExprStmt, error) {
	pos := p.cur.Pos
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: e, Pos: pos}, nil
}

// ---- Expressions (precedence climbing, spec.md section 4.2) ---------

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseAssignment() }

// level 1: assignment, right-associative.
func (p *Parser) parseAssignment() (ast.Expr, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.check(lexer.ASSIGN) {
		pos := p.cur.Pos
		vr, ok := left.(*ast.VarRef)
		if !ok {
			return nil, newError(InvalidStatement, pos, "assignment target must be a variable")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &ast.Assign{Target: vr, Value: right, Pos: pos}, nil
	}
	return left, nil
}

// level 2: logical or.
func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.OROR) {
		op, pos := p.cur.Type, p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Pos: pos}
	}
	return left, nil
}

// level 3: logical and.
func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.check(lexer.ANDAND) {
		op, pos := p.cur.Type, p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Pos: pos}
	}
	return left, nil
}

// level 4: logical not, unary prefix, right-associative with itself.
func (p *Parser) parseNot() (ast.Expr, error) {
	if p.check(lexer.NOT) {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: lexer.NOT, Operand: operand, Pos: pos}, nil
	}
	return p.parseEquality()
}

var equalityOps = []lexer.TokenType{
	lexer.NUMEQ, lexer.NUMNE, lexer.NUMLT, lexer.NUMGT, lexer.NUMLE, lexer.NUMGE,
	lexer.OP_EQ, lexer.OP_NE, lexer.OP_LT, lexer.OP_GT, lexer.OP_LE, lexer.OP_GE,
}

// level 5: numeric and string equality/comparison.
func (p *Parser) parseEquality() (ast.Expr, error) {
	left, err := p.parseMatch()
	if err != nil {
		return nil, err
	}
	for p.checkAny(equalityOps...) {
		op, pos := p.cur.Type, p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMatch()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Pos: pos}
	}
	return left, nil
}

// level 6: match / non-match against a regex literal. Not chainable:
// the right-hand side is always a regex literal, never another match.
func (p *Parser) parseMatch() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.checkAny(lexer.MATCH, lexer.NOMATCH) {
		negate := p.cur.Type == lexer.NOMATCH
		pos := p.cur.Pos
		if err := p.advanceRegex(); err != nil {
			return nil, err
		}
		if !p.check(lexer.REGEX) {
			return nil, unexpectedToken(p.cur.Pos, lexer.REGEX, p.cur.Type)
		}
		regex := &ast.RegexLit{Pattern: p.cur.Literal, Pos: p.cur.Pos}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Match{Negate: negate, Target: left, Regex: regex, Pos: pos}, nil
	}
	return left, nil
}

// level 7: additive.
func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.checkAny(lexer.PLUS, lexer.MINUS) {
		op, pos := p.cur.Type, p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Pos: pos}
	}
	return left, nil
}

// level 8: multiplicative.
func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.checkAny(lexer.STAR, lexer.SLASH, lexer.PERCENT) {
		op, pos := p.cur.Type, p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Pos: pos}
	}
	return left, nil
}

// level 9: unary prefix - and prefix ++/--.
func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.check(lexer.MINUS) {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: lexer.MINUS, Operand: operand, Pos: pos}, nil
	}
	if p.checkAny(lexer.INC, lexer.DEC) {
		op, pos := p.cur.Type, p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		vr, ok := operand.(*ast.VarRef)
		if !ok {
			return nil, newError(InvalidStatement, pos, "%s operand must be a variable", op)
		}
		return &ast.Unary{Op: op, Operand: vr, Pos: pos}, nil
	}
	return p.parsePostfix()
}

// level 10: postfix ++/--.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	operand, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.checkAny(lexer.INC, lexer.DEC) {
		op, pos := p.cur.Type, p.cur.Pos
		vr, ok := operand.(*ast.VarRef)
		if !ok {
			return nil, newError(InvalidStatement, pos, "%s operand must be a variable", op)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Postfix{Op: op, Operand: vr, Pos: pos}, nil
	}
	return operand, nil
}

// level 11: primary — literals, variable references, parenthesized
// expressions, and calls.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.cur.Type {
	case lexer.INT:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.IntLit{Value: tok.Int, Pos: tok.Pos}, nil
	case lexer.STRING:
		tok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StringLit{Value: tok.Literal, Pos: tok.Pos}, nil
	case lexer.SCALAR:
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		nameTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		return &ast.VarRef{Name: nameTok.Literal, Pos: pos}, nil
	case lexer.LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.IDENT:
		nameTok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return nil, err
		}
		call := &ast.Call{Name: nameTok.Literal, Pos: nameTok.Pos}
		if !p.check(lexer.RPAREN) {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			for p.check(lexer.COMMA) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, arg)
			}
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return call, nil
	default:
		return nil, newError(InvalidStatement, p.cur.Pos, "unexpected token %s in expression", p.cur.Type)
	}
}
