/*
File   : microperl/compiler/compiler.go
Package: compiler

Walks the ast.Program and emits the module image described in spec.md
section 3: code bytes, string table, and (via the bytecode package's
Encode) the fixed 12-byte header. Organized the way the teacher's
math-compiler-inspired Compiler is — a single stateful struct with one
emission method per concern — rather than the Visitor pattern used for
the AST itself, since each node must produce both bytes and, for
expressions, a value left on the runtime stack; a plain recursive
descent over the tree expresses that more directly than a void-returning
Visitor would.

Top-level statements are compiled as an implicit function frame (see
DESIGN.md): the module begins with ENTER for the program's own locals,
exactly like a subroutine's prologue, which is what lets a bare
`my $i = 0;` at the top of a script resolve to LDLOC/STLOC instead of a
global.
*/
package compiler

import (
	"github.com/ajokela/microperl/ast"
	"github.com/ajokela/microperl/bytecode"
	"github.com/ajokela/microperl/lexer"
	"github.com/ajokela/microperl/parser"
)

const (
	maxLocals  = 255
	maxGlobals = 65535
	maxStrings = 255
	maxCode    = 65535
)

// Compiler holds all compile-time state for one Compile call. It is not
// reused across calls.
type Compiler struct {
	code    []byte
	strings *stringTable
	globals *globalsTable
	subs    *subTable
	locals  *localsTable
	fixups  []callFixup

	inSub bool
}

// Compile lexes, parses, and compiles source into a finalized module
// image, matching the external-interface signature of spec.md section 6:
// compile(source) -> Result<ModuleImage, CompileError>.
func Compile(source string) (*bytecode.Module, error) {
	prog, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return CompileProgram(prog)
}

// CompileProgram compiles an already-parsed AST, for callers (tests,
// debug tooling) that want to inspect or rewrite the tree first.
func CompileProgram(prog *ast.Program) (*bytecode.Module, error) {
	_, module, err := compileWithState(prog)
	return module, err
}

// CompileWithDebug compiles source and also returns a symbol-table dump
// (globals, interned strings, subroutine offsets), one of the debug
// emitters named in spec.md section 6.
func CompileWithDebug(source string) (*bytecode.Module, string, error) {
	prog, err := parser.Parse(source)
	if err != nil {
		return nil, "", err
	}
	c, module, err := compileWithState(prog)
	if err != nil {
		return nil, "", err
	}
	return module, c.DumpSymbols(), nil
}

func compileWithState(prog *ast.Program) (*Compiler, *bytecode.Module, error) {
	c := &Compiler{
		strings: newStringTable(),
		globals: newGlobalsTable(),
		subs:    newSubTable(),
		locals:  newLocalsTable(),
	}
	module, err := c.compile(prog)
	if err != nil {
		return nil, nil, err
	}
	return c, module, nil
}

func (c *Compiler) compile(prog *ast.Program) (*bytecode.Module, error) {
	var mainStmts []ast.Stmt
	var subdefs []*ast.SubDef
	for _, s := range prog.Stmts {
		if sd, ok := s.(*ast.SubDef); ok {
			subdefs = append(subdefs, sd)
			continue
		}
		mainStmts = append(mainStmts, s)
	}

	enterAt := len(c.code)
	c.emit(bytecode.ENTER, 0) // patched below once main's locals_count is known

	for _, s := range mainStmts {
		if err := c.compileStmt(s); err != nil {
			return nil, err
		}
	}
	if c.locals.count() > maxLocals {
		return nil, newError(LocalsOverflow, lexer.Position{})
	}
	c.patchByte(enterAt+1, c.locals.count())
	c.emit(bytecode.HALT)

	for _, sd := range subdefs {
		if err := c.compileSubDef(sd); err != nil {
			return nil, err
		}
	}

	for _, fx := range c.fixups {
		entry, ok := c.subs.subs[fx.name]
		if !ok {
			return nil, unknownFunction(lexer.Position{}, fx.name)
		}
		c.patchUint16(fx.patchAt, uint16(entry.offset))
	}

	if len(c.code) > maxCode {
		return nil, newError(CodeSizeOverflow, lexer.Position{})
	}
	if c.globals.count() > maxGlobals {
		return nil, newError(GlobalsOverflow, lexer.Position{})
	}
	if c.strings.count() > maxStrings {
		return nil, newError(StringsOverflow, lexer.Position{})
	}

	return &bytecode.Module{
		EntryPoint: 0,
		Code:       c.code,
		Strings:    c.strings.entries,
	}, nil
}

// ---- emission helpers --------------------------------------------------

func (c *Compiler) emit(op bytecode.Opcode, operand ...byte) {
	c.code = append(c.code, byte(op))
	c.code = append(c.code, operand...)
}

func (c *Compiler) emitU16(op bytecode.Opcode, v uint16) {
	c.code = append(c.code, byte(op), byte(v), byte(v>>8))
}

func (c *Compiler) emitByteOperand(op bytecode.Opcode, v byte) {
	c.code = append(c.code, byte(op), v)
}

// reserveU16 emits op with a placeholder 0xFFFF operand and returns the
// offset of the operand's first byte, for later patching.
func (c *Compiler) reserveU16(op bytecode.Opcode) int {
	at := len(c.code) + 1
	c.code = append(c.code, byte(op), 0xFF, 0xFF)
	return at
}

func (c *Compiler) patchUint16(at int, v uint16) {
	c.code[at] = byte(v)
	c.code[at+1] = byte(v >> 8)
}

func (c *Compiler) patchByte(at int, v int) {
	c.code[at] = byte(v)
}

func (c *Compiler) here() uint16 { return uint16(len(c.code)) }

// ---- statements ---------------------------------------------------------

func (c *Compiler) compileStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.VarDecl:
		return c.compileVarDecl(n)
	case *ast.ExprStmt:
		if err := c.compileExpr(n.Expr); err != nil {
			return err
		}
		c.emit(bytecode.POP)
		return nil
	case *ast.Block:
		return c.compileBlock(n)
	case *ast.If:
		return c.compileIf(n)
	case *ast.While:
		return c.compileWhile(n)
	case *ast.For:
		return c.compileFor(n)
	case *ast.Return:
		return c.compileReturn(n)
	case *ast.Print:
		return c.compilePrint(n)
	case *ast.SubDef:
		// compile hoists top-level SubDefs, so one reached here is nested
		// inside a block or a subroutine body. It emits no code and is
		// never entered into the subroutine table, so calls to it fail
		// with UnknownFunction.
		return nil
	}
	return nil
}

func (c *Compiler) compileVarDecl(n *ast.VarDecl) error {
	slot := c.locals.declare(n.Name)
	if n.Init != nil {
		if err := c.compileExpr(n.Init); err != nil {
			return err
		}
	} else {
		c.emit(bytecode.PUSHBYTE, 0)
	}
	c.emitByteOperand(bytecode.STLOC, byte(slot))
	return nil
}

func (c *Compiler) compileBlock(n *ast.Block) error {
	c.locals.pushScope()
	defer c.locals.popScope()
	for _, s := range n.Stmts {
		if err := c.compileStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileIf(n *ast.If) error {
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	elseJump := c.reserveU16(bytecode.JUMPIFNOT)
	if err := c.compileBlock(n.Then); err != nil {
		return err
	}
	endJumps := []int{c.reserveU16(bytecode.JUMP)}
	c.patchUint16(elseJump, c.here())

	for _, elif := range n.Elifs {
		if err := c.compileExpr(elif.Cond); err != nil {
			return err
		}
		nextJump := c.reserveU16(bytecode.JUMPIFNOT)
		if err := c.compileBlock(elif.Body); err != nil {
			return err
		}
		endJumps = append(endJumps, c.reserveU16(bytecode.JUMP))
		c.patchUint16(nextJump, c.here())
	}

	if n.Else != nil {
		if err := c.compileBlock(n.Else); err != nil {
			return err
		}
	}

	end := c.here()
	for _, j := range endJumps {
		c.patchUint16(j, end)
	}
	return nil
}

func (c *Compiler) compileWhile(n *ast.While) error {
	top := c.here()
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	exitJump := c.reserveU16(bytecode.JUMPIFNOT)
	if err := c.compileBlock(n.Body); err != nil {
		return err
	}
	c.emitU16(bytecode.JUMP, top)
	c.patchUint16(exitJump, c.here())
	return nil
}

// compileFor lowers `for (init; cond; step) body` to
// `{ init; while (cond) { body; step; } }`, per spec.md section 4.3.
func (c *Compiler) compileFor(n *ast.For) error {
	c.locals.pushScope()
	defer c.locals.popScope()

	if err := c.compileStmt(n.Init); err != nil {
		return err
	}

	top := c.here()
	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	exitJump := c.reserveU16(bytecode.JUMPIFNOT)

	c.locals.pushScope()
	for _, s := range n.Body.Stmts {
		if err := c.compileStmt(s); err != nil {
			c.locals.popScope()
			return err
		}
	}
	c.locals.popScope()

	if err := c.compileExpr(n.Step); err != nil {
		return err
	}
	c.emit(bytecode.POP)
	c.emitU16(bytecode.JUMP, top)
	c.patchUint16(exitJump, c.here())
	return nil
}

func (c *Compiler) compileReturn(n *ast.Return) error {
	if !c.inSub {
		return newError(ReturnOutsideSub, n.Pos)
	}
	if n.Value != nil {
		if err := c.compileExpr(n.Value); err != nil {
			return err
		}
		c.emit(bytecode.RETURNVAL)
		return nil
	}
	// A value-less `return;` still leaves a value behind: calls are
	// expressions (the grammar allows `call();` as a statement, but also
	// `my $x = call();`), so every subroutine activation must hand back
	// exactly one cell. Perl itself treats a bare `return;` as returning
	// a default value, so 0 is emitted and handed back via RETURNVAL.
	c.emit(bytecode.PUSHBYTE, 0)
	c.emit(bytecode.RETURNVAL)
	return nil
}

func (c *Compiler) compilePrint(n *ast.Print) error {
	for _, arg := range n.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
		c.emit(bytecode.PRINT)
	}
	return nil
}

// ---- subroutines --------------------------------------------------------

func (c *Compiler) compileSubDef(n *ast.SubDef) error {
	seen := map[string]bool{}
	for _, p := range n.Params {
		if seen[p] {
			return newError(DuplicateParameter, n.Pos)
		}
		seen[p] = true
	}

	savedLocals := c.locals
	savedInSub := c.inSub
	c.locals = newLocalsTable()
	c.inSub = true

	offset := len(c.code)
	enterAt := offset
	c.emit(bytecode.ENTER, 0)

	slots := make([]int, len(n.Params))
	for i, p := range n.Params {
		slots[i] = c.locals.declare(p)
	}
	// Arguments arrive on the shared value stack in source order with the
	// last argument on top (LIFO), so the prologue pops them in reverse to
	// land arg[i] in slot[i]; see DESIGN.md for the frame-layout rationale.
	for i := len(slots) - 1; i >= 0; i-- {
		c.emitByteOperand(bytecode.STLOC, byte(slots[i]))
	}

	fallsThrough := true
	for _, s := range n.Body.Stmts {
		if err := c.compileStmt(s); err != nil {
			c.locals = savedLocals
			c.inSub = savedInSub
			return err
		}
		if _, ok := s.(*ast.Return); ok {
			fallsThrough = false
		} else {
			fallsThrough = true
		}
	}
	if fallsThrough {
		// Falling off the end of a subroutine's body is the same
		// no-value case as a bare `return;` above: push a default 0 and
		// hand it back with RETURNVAL so the call site always finds a
		// value, whether it's used (`my $x = f();`) or discarded
		// (`f();` as a statement, where ExprStmt emits POP).
		c.emit(bytecode.PUSHBYTE, 0)
		c.emit(bytecode.RETURNVAL)
	}

	if c.locals.count() > maxLocals {
		c.locals = savedLocals
		c.inSub = savedInSub
		return newError(LocalsOverflow, n.Pos)
	}
	c.patchByte(enterAt+1, c.locals.count())

	c.subs.subs[n.Name] = subEntry{offset: offset, arity: len(n.Params)}

	c.locals = savedLocals
	c.inSub = savedInSub
	return nil
}

// ---- expressions ---------------------------------------------------------

func (c *Compiler) compileExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.IntLit:
		return c.compileIntLit(n)
	case *ast.StringLit:
		idx := c.strings.intern(n.Value)
		c.emitU16(bytecode.PUSHSTR, uint16(idx))
		return nil
	case *ast.VarRef:
		c.emitLoad(n.Name)
		return nil
	case *ast.Assign:
		return c.compileAssign(n)
	case *ast.Binary:
		return c.compileBinary(n)
	case *ast.Unary:
		return c.compileUnary(n)
	case *ast.Postfix:
		return c.compilePostfix(n)
	case *ast.Call:
		return c.compileCall(n)
	case *ast.Match:
		return c.compileMatch(n)
	}
	return nil
}

func (c *Compiler) compileIntLit(n *ast.IntLit) error {
	if n.Value >= -128 && n.Value <= 127 {
		c.emitByteOperand(bytecode.PUSHBYTE, byte(int8(n.Value)))
	} else {
		c.emitU16(bytecode.PUSH, uint16(n.Value))
	}
	return nil
}

func (c *Compiler) emitLoad(name string) {
	if slot, ok := c.locals.lookup(name); ok {
		c.emitByteOperand(bytecode.LDLOC, byte(slot))
		return
	}
	idx := c.globals.indexOf(name)
	c.emitU16(bytecode.LDGLOB, uint16(idx))
}

func (c *Compiler) emitStore(name string) {
	if slot, ok := c.locals.lookup(name); ok {
		c.emitByteOperand(bytecode.STLOC, byte(slot))
		return
	}
	idx := c.globals.indexOf(name)
	c.emitU16(bytecode.STGLOB, uint16(idx))
}

func (c *Compiler) compileAssign(n *ast.Assign) error {
	if err := c.compileExpr(n.Value); err != nil {
		return err
	}
	c.emit(bytecode.DUP)
	c.emitStore(n.Target.Name)
	return nil
}

var numericBinaryOps = map[lexer.TokenType]bytecode.Opcode{
	lexer.PLUS: bytecode.ADD, lexer.MINUS: bytecode.SUB, lexer.STAR: bytecode.MUL,
	lexer.SLASH: bytecode.DIV, lexer.PERCENT: bytecode.MOD,
	lexer.NUMEQ: bytecode.CMPEQ, lexer.NUMNE: bytecode.CMPNE,
	lexer.NUMLT: bytecode.CMPLT, lexer.NUMGT: bytecode.CMPGT,
	lexer.NUMLE: bytecode.CMPLE, lexer.NUMGE: bytecode.CMPGE,
}

var stringBinaryOps = map[lexer.TokenType]bytecode.Opcode{
	lexer.OP_EQ: bytecode.STREQ, lexer.OP_NE: bytecode.STRNE,
	lexer.OP_LT: bytecode.STRLT, lexer.OP_GT: bytecode.STRGT,
	lexer.OP_LE: bytecode.STRLE, lexer.OP_GE: bytecode.STRGE,
}

func (c *Compiler) compileBinary(n *ast.Binary) error {
	switch n.Op {
	case lexer.ANDAND:
		return c.compileShortCircuit(n, bytecode.JUMPIFNOT)
	case lexer.OROR:
		return c.compileShortCircuit(n, bytecode.JUMPIF)
	}

	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	if op, ok := numericBinaryOps[n.Op]; ok {
		c.emit(op)
		return nil
	}
	if op, ok := stringBinaryOps[n.Op]; ok {
		c.emit(op)
		return nil
	}
	return nil
}

// compileShortCircuit implements `compile left, DUP, JUMPIFNOT/JUMPIF to
// end, POP, compile right, patch jump` from spec.md section 4.3.
func (c *Compiler) compileShortCircuit(n *ast.Binary, skip bytecode.Opcode) error {
	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	c.emit(bytecode.DUP)
	end := c.reserveU16(skip)
	c.emit(bytecode.POP)
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	c.patchUint16(end, c.here())
	return nil
}

func (c *Compiler) compileUnary(n *ast.Unary) error {
	switch n.Op {
	case lexer.NOT:
		if err := c.compileExpr(n.Operand); err != nil {
			return err
		}
		c.emit(bytecode.NOT)
		return nil
	case lexer.MINUS:
		if err := c.compileExpr(n.Operand); err != nil {
			return err
		}
		c.emit(bytecode.NEG)
		return nil
	case lexer.INC, lexer.DEC:
		// Pre-++/--: compile as `x = x +/- 1`; result is the new value.
		vr := n.Operand.(*ast.VarRef)
		c.emitLoad(vr.Name)
		c.emit(bytecode.PUSHBYTE, 1)
		if n.Op == lexer.INC {
			c.emit(bytecode.ADD)
		} else {
			c.emit(bytecode.SUB)
		}
		c.emit(bytecode.DUP)
		c.emitStore(vr.Name)
		return nil
	}
	return nil
}

func (c *Compiler) compilePostfix(n *ast.Postfix) error {
	// Post-++/--: load, dup, load-constant-1, ADD/SUB, store; result is
	// the old value (left on the stack beneath the stored new value).
	c.emitLoad(n.Operand.Name)
	c.emit(bytecode.DUP)
	c.emit(bytecode.PUSHBYTE, 1)
	if n.Op == lexer.INC {
		c.emit(bytecode.ADD)
	} else {
		c.emit(bytecode.SUB)
	}
	c.emitStore(n.Operand.Name)
	return nil
}

func (c *Compiler) compileCall(n *ast.Call) error {
	for _, arg := range n.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	patchAt := c.reserveU16(bytecode.CALL)
	if entry, ok := c.subs.subs[n.Name]; ok {
		c.patchUint16(patchAt, uint16(entry.offset))
	} else {
		c.fixups = append(c.fixups, callFixup{patchAt: patchAt, name: n.Name})
	}
	return nil
}

func (c *Compiler) compileMatch(n *ast.Match) error {
	if err := c.compileExpr(n.Target); err != nil {
		return err
	}
	idx := c.strings.intern(n.Regex.Pattern)
	c.emitU16(bytecode.PUSHSTR, uint16(idx))
	c.emit(bytecode.MATCH)
	if n.Negate {
		c.emit(bytecode.NOT)
	}
	return nil
}
