package compiler

import (
	"path/filepath"

	"gocpu/internal/diag"
)

// FileLoader resolves the textual content of an #include target. The
// driver supplies one backed by the filesystem; the parser itself never
// touches disk (spec.md §1: file I/O is an external collaborator).
type FileLoader func(path string) (string, error)

// Parser is a recursive-descent parser with a single token of lookahead
// (spec.md §4.5), grounded on gocpu/pkg/compiler/parser.go's shape.
type Parser struct {
	toks     []Token
	pos      int
	filename string
	reg      *TypeRegistry
	syms     *SymbolTable
	curFunc  int // -1 at top level
	loader   FileLoader
}

// ParseProgram parses src (named filename) into a flat statement list,
// splicing in any #include targets. included threads the set of files
// already visited through nested parses so a cycle or repeated include
// is silently skipped rather than reparsed (spec.md §4.5, §9).
func ParseProgram(src, filename string, loader FileLoader, reg *TypeRegistry, syms *SymbolTable) ([]Stmt, error) {
	// The top-level file is recorded under its own name and its base name:
	// the loader Compile supplies resolves a relative include against the
	// top-level file's directory, so an include of that base name is the
	// top-level file itself.
	included := map[string]bool{filename: true, filepath.Base(filename): true}
	return parseSource(src, filename, included, loader, reg, syms)
}

func parseSource(src, filename string, included map[string]bool, loader FileLoader, reg *TypeRegistry, syms *SymbolTable) ([]Stmt, error) {
	toks, err := Lex(src, filename)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks, filename: filename, reg: reg, syms: syms, curFunc: -1, loader: loader}
	return p.parseTopLevel(included)
}

func (p *Parser) cur() Token { return p.toks[p.pos] }
func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) position() diag.Position {
	return diag.Position{Line: p.cur().Line, Filename: p.filename}
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.cur().Type != tt {
		return Token{}, newSyntaxError(p.position(), "expected %s but found %s %q", tt, p.cur().Type, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) parseTopLevel(included map[string]bool) ([]Stmt, error) {
	var stmts []Stmt
	for p.cur().Type != EOF {
		switch {
		case p.cur().Type == DIRECTIVE && p.cur().Lexeme == "#include":
			included2, err := p.parseInclude(included)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, included2...)
		case p.cur().Type == FUNC:
			fn, err := p.parseFunc()
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, fn)
		case p.cur().Type == VAR:
			decl, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(SEMICOLON); err != nil {
				return nil, err
			}
			if _, err := p.syms.DeclareGlobal(decl.Pos, decl.Name, decl.VarType); err != nil {
				return nil, err
			}
			stmts = append(stmts, decl)
		case p.cur().Type == STRUCT:
			if err := p.parseStructDecl(); err != nil {
				return nil, err
			}
		default:
			return nil, newSyntaxError(p.position(), "unexpected token %s %q at top level", p.cur().Type, p.cur().Lexeme)
		}
	}
	return stmts, nil
}

func (p *Parser) parseInclude(included map[string]bool) ([]Stmt, error) {
	pos := p.position()
	p.advance() // "#include"
	pathTok, err := p.expect(STRING)
	if err != nil {
		return nil, err
	}
	path := pathTok.Lexeme
	if included[path] {
		return nil, nil
	}
	if p.loader == nil {
		return nil, newSyntaxError(pos, "#include %q: no file loader configured", path)
	}
	included[path] = true
	src, err := p.loader(path)
	if err != nil {
		return nil, newSyntaxError(pos, "#include %q: %v", path, err)
	}
	return parseSource(src, path, included, p.loader, p.reg, p.syms)
}

func (p *Parser) parseStructDecl() error {
	pos := p.position()
	p.advance() // "struct"
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return err
	}
	if p.cur().Type == SEMICOLON {
		p.advance()
		p.reg.DeclareStruct(pos, nameTok.Lexeme)
		return nil
	}
	if _, err := p.expect(LBRACE); err != nil {
		return err
	}
	var fields []Field
	for p.cur().Type != RBRACE {
		fnTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return err
		}
		if _, err := p.expect(COLON); err != nil {
			return err
		}
		ft, err := p.parseType()
		if err != nil {
			return err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return err
		}
		fields = append(fields, Field{Name: fnTok.Lexeme, Type: ft})
	}
	if _, err := p.expect(RBRACE); err != nil {
		return err
	}
	if p.cur().Type == SEMICOLON {
		p.advance()
	}
	_, err = p.reg.DefineStruct(pos, nameTok.Lexeme, fields)
	return err
}

// parseType parses "*T" or a base type identifier (int|char|bool|void)
// or "struct Name" (spec.md §4.5).
func (p *Parser) parseType() (*Type, error) {
	if p.cur().Type == STAR {
		p.advance()
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return p.reg.Pointer(inner), nil
	}
	pos := p.position()
	switch p.cur().Type {
	case INT:
		p.advance()
		return p.reg.Primitive(TInt), nil
	case CHAR:
		p.advance()
		return p.reg.Primitive(TChar), nil
	case BOOL:
		p.advance()
		return p.reg.Primitive(TBool), nil
	case VOID:
		p.advance()
		return p.reg.Primitive(TVoid), nil
	case STRUCT:
		p.advance()
		nameTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		return p.reg.DeclareStruct(pos, nameTok.Lexeme), nil
	default:
		return nil, newSyntaxError(pos, "expected a type but found %s %q", p.cur().Type, p.cur().Lexeme)
	}
}

// parseVarDecl parses  var name : type [= init]  without consuming the
// trailing semicolon (the caller decides whether one is expected).
func (p *Parser) parseVarDecl() (*VarDeclStmt, error) {
	pos := p.position()
	p.advance() // "var"
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	var init Expr
	if p.cur().Type == ASSIGN {
		p.advance()
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return &VarDeclStmt{Node: Node{Pos: pos}, Name: nameTok.Lexeme, VarType: typ, Init: init}, nil
}

func (p *Parser) parseFunc() (*FuncDecl, error) {
	pos := p.position()
	p.advance() // "func"
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	type rawParam struct {
		pos  diag.Position
		name string
		typ  *Type
	}
	var params []rawParam
	for p.cur().Type != RPAREN {
		if len(params) > 0 {
			if _, err := p.expect(COMMA); err != nil {
				return nil, err
			}
		}
		ppos := p.position()
		pnTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		pt, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, rawParam{pos: ppos, name: pnTok.Lexeme, typ: pt})
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}

	fn, err := p.syms.DeclareFunc(pos, nameTok.Lexeme, retType)
	if err != nil {
		return nil, err
	}
	funcIdx := len(p.syms.Funcs) - 1
	for _, param := range params {
		if _, err := p.syms.DeclareArg(param.pos, funcIdx, param.name, param.typ); err != nil {
			return nil, err
		}
	}

	prevFunc := p.curFunc
	p.curFunc = funcIdx
	body, err := p.parseBlock()
	p.curFunc = prevFunc
	if err != nil {
		return nil, err
	}

	_ = fn
	return &FuncDecl{Node: Node{Pos: pos}, Name: nameTok.Lexeme, Body: body}, nil
}

func (p *Parser) parseBlock() (*BlockStmt, error) {
	pos := p.position()
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for p.cur().Type != RBRACE {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return &BlockStmt{Node: Node{Pos: pos}, Stmts: stmts}, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.cur().Type {
	case LBRACE:
		return p.parseBlock()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case FOR:
		return p.parseFor()
	case RETURN:
		return p.parseReturn()
	case ASM:
		return p.parseAsm()
	case VAR:
		decl, err := p.parseVarDecl()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		if p.curFunc >= 0 {
			if _, err := p.syms.DeclareLocal(decl.Pos, p.curFunc, decl.Name, decl.VarType); err != nil {
				return nil, err
			}
		} else {
			if _, err := p.syms.DeclareGlobal(decl.Pos, decl.Name, decl.VarType); err != nil {
				return nil, err
			}
		}
		return decl, nil
	default:
		return p.parseAssignOrCall()
	}
}

func (p *Parser) parseIf() (Stmt, error) {
	pos := p.position()
	p.advance() // "if"
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var elseStmt Stmt
	if p.cur().Type == ELSE {
		p.advance()
		elseStmt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &IfStmt{Node: Node{Pos: pos}, Cond: cond, Then: then, Else: elseStmt}, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	pos := p.position()
	p.advance() // "while"
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Node: Node{Pos: pos}, Cond: cond, Body: body}, nil
}

// parseFor desugars for (init; cond; post) body into
// { init; while (cond) { body; post; } } (SPEC_FULL.md §4.5 expansion).
func (p *Parser) parseFor() (Stmt, error) {
	pos := p.position()
	p.advance() // "for"
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	var init Stmt
	var err error
	if p.cur().Type != SEMICOLON {
		init, err = p.parseAssignOrCallNoSemi()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}

	var cond Expr
	if p.cur().Type != SEMICOLON {
		cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	} else {
		cond = &IntLiteral{Node: Node{Pos: pos}, Value: 1, Kind: TBool}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}

	var post Stmt
	if p.cur().Type != RPAREN {
		post, err = p.parseAssignOrCallNoSemi()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}

	innerStmts := []Stmt{body}
	if post != nil {
		innerStmts = append(innerStmts, post)
	}
	whileStmt := &WhileStmt{
		Node: Node{Pos: pos},
		Cond: cond,
		Body: &BlockStmt{Node: Node{Pos: pos}, Stmts: innerStmts},
	}

	outer := []Stmt{}
	if init != nil {
		outer = append(outer, init)
	}
	outer = append(outer, whileStmt)
	return &BlockStmt{Node: Node{Pos: pos}, Stmts: outer}, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	pos := p.position()
	p.advance() // "return"
	var val Expr
	var err error
	if p.cur().Type != SEMICOLON {
		val, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ReturnStmt{Node: Node{Pos: pos}, Value: val, FuncIdx: p.curFunc}, nil
}

func (p *Parser) parseAsm() (Stmt, error) {
	pos := p.position()
	p.advance() // "asm"
	textTok, err := p.expect(STRING)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &AsmStmt{Node: Node{Pos: pos}, Text: textTok.Lexeme}, nil
}

// parseAssignOrCall parses  assignable = expr ;  or  call ;  and consumes
// the trailing semicolon.
func (p *Parser) parseAssignOrCall() (Stmt, error) {
	s, err := p.parseAssignOrCallNoSemi()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Parser) parseAssignOrCallNoSemi() (Stmt, error) {
	pos := p.position()
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.cur().Type == ASSIGN {
		p.advance()
		switch lhs.(type) {
		case *Ident:
		case *UnaryExpr:
			if lhs.(*UnaryExpr).Op != STAR {
				return nil, newSyntaxError(pos, "left side of assignment must be an identifier or *expr")
			}
		default:
			return nil, newSyntaxError(pos, "left side of assignment must be an identifier or *expr")
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Node: Node{Pos: pos}, Left: lhs, Value: value}, nil
	}
	call, ok := lhs.(*CallExpr)
	if !ok {
		return nil, newSyntaxError(pos, "expected an assignment or a function call statement")
	}
	return &ExprStmt{Node: Node{Pos: pos}, Expr: call}, nil
}

// expr ::= relation ((&&|||) relation)*
func (p *Parser) parseExpr() (Expr, error) {
	left, err := p.parseRelation()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == AND_LOGICAL || p.cur().Type == OR_LOGICAL {
		op := p.advance()
		right, err := p.parseRelation()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Node: Node{Pos: diag.Position{Line: op.Line, Filename: p.filename}}, Op: op.Type, Left: left, Right: right}
	}
	return left, nil
}

func isRelOp(tt TokenType) bool {
	switch tt {
	case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ:
		return true
	}
	return false
}

// relation ::= term (relop term)? — a single comparison only, non-associative
// (spec.md §8 property 2).
func (p *Parser) parseRelation() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if isRelOp(p.cur().Type) {
		op := p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Node: Node{Pos: diag.Position{Line: op.Line, Filename: p.filename}}, Op: op.Type, Left: left, Right: right}, nil
	}
	return left, nil
}

// term ::= factor ((+|-) term)*
func (p *Parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	if p.cur().Type == PLUS || p.cur().Type == MINUS {
		op := p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Node: Node{Pos: diag.Position{Line: op.Line, Filename: p.filename}}, Op: op.Type, Left: left, Right: right}, nil
	}
	return left, nil
}

// factor ::= unary ((*|/|%) factor)*
func (p *Parser) parseFactor() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.cur().Type == STAR || p.cur().Type == SLASH || p.cur().Type == PERCENT {
		op := p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Node: Node{Pos: diag.Position{Line: op.Line, Filename: p.filename}}, Op: op.Type, Left: left, Right: right}, nil
	}
	return left, nil
}

// unary ::= (-|*|!) unary | (expr) | cast(type) unary | literal | id
//         | id(args) | [len]?]({intlits}|STRING)
func (p *Parser) parseUnary() (Expr, error) {
	pos := p.position()
	switch p.cur().Type {
	case MINUS, STAR, NOT:
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Node: Node{Pos: pos}, Op: op.Type, Operand: operand}, nil
	case LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &Paren{Node: Node{Pos: pos}, Inner: inner}, nil
	case CAST:
		p.advance()
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		target, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &CastExpr{Node: Node{Pos: pos}, Target: target, Inner: inner}, nil
	case INTEGER:
		tok := p.advance()
		return &IntLiteral{Node: Node{Pos: pos}, Value: tok.IntVal, Kind: TInt}, nil
	case CHARLIT:
		tok := p.advance()
		return &IntLiteral{Node: Node{Pos: pos}, Value: tok.IntVal, Kind: TChar}, nil
	case TRUE:
		p.advance()
		return &IntLiteral{Node: Node{Pos: pos}, Value: 1, Kind: TBool}, nil
	case FALSE:
		p.advance()
		return &IntLiteral{Node: Node{Pos: pos}, Value: 0, Kind: TBool}, nil
	case STRING:
		tok := p.advance()
		return &StringLit{Node: Node{Pos: pos}, ID: p.syms.InternString(tok.Lexeme), Value: tok.Lexeme}, nil
	case LBRACKET:
		return p.parseArrayLit()
	case IDENTIFIER:
		tok := p.advance()
		if p.cur().Type == LPAREN {
			return p.parseCall(pos, tok.Lexeme)
		}
		return &Ident{Node: Node{Pos: pos}, Name: tok.Lexeme}, nil
	default:
		return nil, newSyntaxError(pos, "unexpected token %s %q", p.cur().Type, p.cur().Lexeme)
	}
}

func (p *Parser) parseArrayLit() (Expr, error) {
	pos := p.position()
	p.advance() // "["
	declaredLen := -1
	if p.cur().Type != RBRACKET {
		lenTok, err := p.expect(INTEGER)
		if err != nil {
			return nil, err
		}
		declaredLen = int(lenTok.IntVal)
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}

	if p.cur().Type == STRING {
		tok := p.advance()
		values := make([]int64, 0, len(tok.Lexeme))
		for _, b := range []byte(tok.Lexeme) {
			values = append(values, int64(b))
		}
		return &ArrayLit{Node: Node{Pos: pos}, DeclaredLen: declaredLen, Values: values, IsChars: true}, nil
	}

	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	var values []int64
	for p.cur().Type != RBRACE {
		if len(values) > 0 {
			if _, err := p.expect(COMMA); err != nil {
				return nil, err
			}
		}
		tok, err := p.expect(INTEGER)
		if err != nil {
			return nil, err
		}
		values = append(values, tok.IntVal)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return &ArrayLit{Node: Node{Pos: pos}, DeclaredLen: declaredLen, Values: values, IsChars: false}, nil
}

// parseCall parses the argument list of name(args). It implements the
// spec's single call-site rewrite: calls to "assert" get the current
// filename and line implicitly appended as two extra arguments
// (spec.md §4.5).
func (p *Parser) parseCall(pos diag.Position, name string) (Expr, error) {
	p.advance() // "("
	var args []Expr
	for p.cur().Type != RPAREN {
		if len(args) > 0 {
			if _, err := p.expect(COMMA); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	if name == "assert" {
		args = append(args,
			&StringLit{Node: Node{Pos: pos}, ID: p.syms.InternString(p.filename), Value: p.filename},
			&IntLiteral{Node: Node{Pos: pos}, Value: int64(pos.Line), Kind: TInt},
		)
	}

	return &CallExpr{Node: Node{Pos: pos}, Callee: name, Args: args}, nil
}
