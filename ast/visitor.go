package ast

// Visitor receives one callback per concrete node type, mirroring the
// teacher's parser.NodeVisitor shape. The parser constructs the tree;
// PrintingVisitor walks it through this interface. The compiler
// type-switches on node types instead, and ast.Dump uses go-spew.
type Visitor interface {
	VisitProgram(n *Program)

	VisitIntLit(n *IntLit)
	VisitStringLit(n *StringLit)
	VisitRegexLit(n *RegexLit)
	VisitVarRef(n *VarRef)
	VisitAssign(n *Assign)
	VisitBinary(n *Binary)
	VisitUnary(n *Unary)
	VisitPostfix(n *Postfix)
	VisitCall(n *Call)
	VisitMatch(n *Match)

	VisitVarDecl(n *VarDecl)
	VisitExprStmt(n *ExprStmt)
	VisitBlock(n *Block)
	VisitIf(n *If)
	VisitWhile(n *While)
	VisitFor(n *For)
	VisitSubDef(n *SubDef)
	VisitReturn(n *Return)
	VisitPrint(n *Print)
}
