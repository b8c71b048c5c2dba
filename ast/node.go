/*
File   : microperl/ast/node.go
Package: ast

The abstract syntax tree produced by the parser, per spec.md section 3
(AST nodes) and section 4.2 (grammar). Every node implements the Visitor
pattern the same way the teacher repository's parser/node.go does — a
Node interface with Accept(Visitor), and one concrete struct per
production — generalized to MicroPerl's much smaller expression and
statement set (no arrays, maps, sets, structs, or closures: those are
spec.md Non-goals).
*/
package ast

import "github.com/ajokela/microperl/lexer"

// Node is the base interface implemented by every AST node.
type Node interface {
	Accept(v Visitor)
}

// Expr is any node that can appear where a value is expected.
type Expr interface {
	Node
	exprNode()
}

// Stmt is any node that can appear in a statement list.
type Stmt interface {
	Node
	stmtNode()
}

// Program is the root of the tree: a flat sequence of top-level
// statements (declarations, subroutine definitions, and ordinary
// statements may all appear at top level; subroutines may only be
// *defined* at top level, per spec.md section 3).
type Program struct {
	Stmts []Stmt
}

func (p *Program) Accept(v Visitor) { v.VisitProgram(p) }

// ---- Expressions ----------------------------------------------------

// IntLit is an integer literal, already range-checked to int16 by the lexer.
type IntLit struct {
	Value int16
	Pos   lexer.Position
}

func (n *IntLit) Accept(v Visitor) { v.VisitIntLit(n) }
func (n *IntLit) exprNode()        {}

// StringLit is a double-quoted string literal with escapes resolved.
type StringLit struct {
	Value string
	Pos   lexer.Position
}

func (n *StringLit) Accept(v Visitor) { v.VisitStringLit(n) }
func (n *StringLit) exprNode()        {}

// RegexLit is the `/pattern/` literal that may only appear as the
// right-hand side of =~ / !~. The supported fragment is literal bytes
// plus '.' as a single-character wildcard (spec.md sections 4.1, 9).
type RegexLit struct {
	Pattern string
	Pos     lexer.Position
}

func (n *RegexLit) Accept(v Visitor) { v.VisitRegexLit(n) }
func (n *RegexLit) exprNode()        {}

// VarRef is a reference to a scalar variable, `$name`. Whether it
// resolves to a local slot or a global index is decided by the compiler,
// not the parser (spec.md section 3: symbol tables are compile-time only).
type VarRef struct {
	Name string
	Pos  lexer.Position
}

func (n *VarRef) Accept(v Visitor) { v.VisitVarRef(n) }
func (n *VarRef) exprNode()        {}

// Assign is `$x = expr`. Assignment is itself an expression whose value
// is the stored value (spec.md section 4.3).
type Assign struct {
	Target *VarRef
	Value  Expr
	Pos    lexer.Position
}

func (n *Assign) Accept(v Visitor) { v.VisitAssign(n) }
func (n *Assign) exprNode()        {}

// Binary covers every two-operand operator at precedence levels 2-8 of
// spec.md section 4.2: && || == != < > <= >= eq ne lt gt le ge + - * / %.
// The compiler dispatches on Op to choose numeric vs. string comparison
// opcodes and short-circuit lowering for && / ||.
type Binary struct {
	Op          lexer.TokenType
	Left, Right Expr
	Pos         lexer.Position
}

func (n *Binary) Accept(v Visitor) { v.VisitBinary(n) }
func (n *Binary) exprNode()        {}

// Unary is a prefix operator: logical not (!), numeric negation (-), or
// prefix increment/decrement (++x / --x).
type Unary struct {
	Op      lexer.TokenType
	Operand Expr
	Pos     lexer.Position
}

func (n *Unary) Accept(v Visitor) { v.VisitUnary(n) }
func (n *Unary) exprNode()        {}

// Postfix is a postfix increment/decrement (x++ / x--), whose value is
// the variable's value *before* the update (spec.md section 4.3).
type Postfix struct {
	Op      lexer.TokenType
	Operand *VarRef
	Pos     lexer.Position
}

func (n *Postfix) Accept(v Visitor) { v.VisitPostfix(n) }
func (n *Postfix) exprNode()        {}

// Call is a subroutine call `name(a1, ..., an)`.
type Call struct {
	Name string
	Args []Expr
	Pos  lexer.Position
}

func (n *Call) Accept(v Visitor) { v.VisitCall(n) }
func (n *Call) exprNode()        {}

// Match is `scalar =~ /regex/` or `scalar !~ /regex/`.
type Match struct {
	Negate bool // true for !~
	Target Expr
	Regex  *RegexLit
	Pos    lexer.Position
}

func (n *Match) Accept(v Visitor) { v.VisitMatch(n) }
func (n *Match) exprNode()        {}

// ---- Statements -------------------------------------------------------

// VarDecl is `my $x = expr?;`.
type VarDecl struct {
	Name string
	Init Expr // nil if no initializer
	Pos  lexer.Position
}

func (n *VarDecl) Accept(v Visitor) { v.VisitVarDecl(n) }
func (n *VarDecl) stmtNode()        {}

// ExprStmt is an expression evaluated for its side effect, its value discarded.
type ExprStmt struct {
	Expr Expr
	Pos  lexer.Position
}

func (n *ExprStmt) Accept(v Visitor) { v.VisitExprStmt(n) }
func (n *ExprStmt) stmtNode()        {}

// Block is `{ stmt* }`; it opens a nested lexical scope (spec.md section 4.3).
type Block struct {
	Stmts []Stmt
	Pos   lexer.Position
}

func (n *Block) Accept(v Visitor) { v.VisitBlock(n) }
func (n *Block) stmtNode()        {}

// ElifClause pairs a condition with its body for one `elsif` arm.
type ElifClause struct {
	Cond Expr
	Body *Block
}

// If is `if (cond) block (elsif (cond) block)* (else block)?`.
type If struct {
	Cond  Expr
	Then  *Block
	Elifs []ElifClause
	Else  *Block // nil if no else
	Pos   lexer.Position
}

func (n *If) Accept(v Visitor) { v.VisitIf(n) }
func (n *If) stmtNode()        {}

// While is `while (cond) block`.
type While struct {
	Cond Expr
	Body *Block
	Pos  lexer.Position
}

func (n *While) Accept(v Visitor) { v.VisitWhile(n) }
func (n *While) stmtNode()        {}

// For is the C-style `for (init; cond; step) block`, lowered by the
// compiler to `{ init; while (cond) { body; step; } }` (spec.md section 4.3).
type For struct {
	Init Stmt
	Cond Expr
	Step Expr
	Body *Block
	Pos  lexer.Position
}

func (n *For) Accept(v Visitor) { v.VisitFor(n) }
func (n *For) stmtNode()        {}

// SubDef is a top-level subroutine definition.
type SubDef struct {
	Name   string
	Params []string
	Body   *Block
	Pos    lexer.Position
}

func (n *SubDef) Accept(v Visitor) { v.VisitSubDef(n) }
func (n *SubDef) stmtNode()        {}

// Return is `return expr?;`.
type Return struct {
	Value Expr // nil for bare `return;`
	Pos   lexer.Position
}

func (n *Return) Accept(v Visitor) { v.VisitReturn(n) }
func (n *Return) stmtNode()        {}

// Print is `print e1, e2, ..., en;` — a single node with an ordered list
// of operands, not a concat expression (spec.md section 4.2).
type Print struct {
	Args []Expr
	Pos  lexer.Position
}

func (n *Print) Accept(v Visitor) { v.VisitPrint(n) }
func (n *Print) stmtNode()        {}
