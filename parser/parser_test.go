package parser

import (
	"reflect"
	"testing"

	"github.com/ajokela/microperl/ast"
	"github.com/ajokela/microperl/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(src)
	require.NoError(t, err)
	return prog
}

func TestParse_PrintArithmetic(t *testing.T) {
	prog := mustParse(t, `print 1 + 2 * 3, "\n";`)
	require.Len(t, prog.Stmts, 1)
	stmt, ok := prog.Stmts[0].(*ast.Print)
	require.True(t, ok)
	require.Len(t, stmt.Args, 2)

	bin, ok := stmt.Args[0].(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, "+", string(bin.Op))

	rightBin, ok := bin.Right.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, "*", string(rightBin.Op))
}

func TestParse_AssignmentIsRightAssociative(t *testing.T) {
	prog := mustParse(t, `my $a = 0; my $b = 0; $a = $b = 5;`)
	exprStmt, ok := prog.Stmts[2].(*ast.ExprStmt)
	require.True(t, ok)
	outer, ok := exprStmt.Expr.(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "a", outer.Target.Name)
	inner, ok := outer.Value.(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "b", inner.Target.Name)
}

func TestParse_WhileLoop(t *testing.T) {
	prog := mustParse(t, `my $i = 0; while ($i < 3) { print $i, "\n"; $i++; }`)
	w, ok := prog.Stmts[1].(*ast.While)
	require.True(t, ok)
	cond, ok := w.Cond.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, "<", string(cond.Op))
	require.Len(t, w.Body.Stmts, 2)
}

func TestParse_SubDefAndCall(t *testing.T) {
	prog := mustParse(t, `sub add($a, $b) { return $a + $b; } print add(40, 2), "\n";`)
	sub, ok := prog.Stmts[0].(*ast.SubDef)
	require.True(t, ok)
	assert.Equal(t, "add", sub.Name)
	assert.Equal(t, []string{"a", "b"}, sub.Params)

	printStmt, ok := prog.Stmts[1].(*ast.Print)
	require.True(t, ok)
	call, ok := printStmt.Args[0].(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "add", call.Name)
	assert.Len(t, call.Args, 2)
}

func TestParse_IfElsifElse(t *testing.T) {
	prog := mustParse(t, `
		my $s = "hi";
		if ($s eq "hi") { print "y\n"; }
		elsif ($s eq "bye") { print "m\n"; }
		else { print "n\n"; }
	`)
	ifStmt, ok := prog.Stmts[1].(*ast.If)
	require.True(t, ok)
	require.Len(t, ifStmt.Elifs, 1)
	require.NotNil(t, ifStmt.Else)
}

func TestParse_ForLoopLowersShape(t *testing.T) {
	prog := mustParse(t, `for (my $i = 0; $i < 3; $i++) { print $i, "\n"; }`)
	f, ok := prog.Stmts[0].(*ast.For)
	require.True(t, ok)
	_, ok = f.Init.(*ast.VarDecl)
	require.True(t, ok)
	_, ok = f.Step.(*ast.Postfix)
	require.True(t, ok)
}

func TestParse_MatchAndNonMatch(t *testing.T) {
	prog := mustParse(t, `my $s = "abc"; if ($s =~ /a.c/) { print "y\n"; } if ($s !~ /xyz/) { print "n\n"; }`)
	ifStmt, ok := prog.Stmts[1].(*ast.If)
	require.True(t, ok)
	m, ok := ifStmt.Cond.(*ast.Match)
	require.True(t, ok)
	assert.False(t, m.Negate)
	assert.Equal(t, "a.c", m.Regex.Pattern)

	ifStmt2, ok := prog.Stmts[2].(*ast.If)
	require.True(t, ok)
	m2, ok := ifStmt2.Cond.(*ast.Match)
	require.True(t, ok)
	assert.True(t, m2.Negate)
}

func TestParse_DivisionAfterMatchKeepsLexerInDivisionMode(t *testing.T) {
	prog := mustParse(t, `my $s = "a"; if ($s =~ /a/) { print 10 / 2, "\n"; }`)
	ifStmt, ok := prog.Stmts[1].(*ast.If)
	require.True(t, ok)
	printStmt, ok := ifStmt.Then.Stmts[0].(*ast.Print)
	require.True(t, ok)
	bin, ok := printStmt.Args[0].(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, "/", string(bin.Op))
}

func TestParse_UnaryNegation(t *testing.T) {
	prog := mustParse(t, `my $x = -5; print -$x, "\n";`)
	printStmt, ok := prog.Stmts[1].(*ast.Print)
	require.True(t, ok)
	unary, ok := printStmt.Args[0].(*ast.Unary)
	require.True(t, ok)
	assert.Equal(t, "-", string(unary.Op))
}

func TestParse_MissingBraceError(t *testing.T) {
	_, err := Parse(`if (1) { print 1;`)
	require.Error(t, err)
	perr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, MissingBrace, perr.Kind)
}

func TestParse_MissingSemicolonError(t *testing.T) {
	_, err := Parse(`my $x = 1`)
	require.Error(t, err)
	perr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, MissingSemicolon, perr.Kind)
}

func TestParse_AssignmentTargetMustBeVariable(t *testing.T) {
	_, err := Parse(`5 = 6;`)
	require.Error(t, err)
	perr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, InvalidStatement, perr.Kind)
}

func TestRoundTrip_PrettyPrintReparses(t *testing.T) {
	src := `sub fact($n) {
	if ($n le 1) {
		return 1;
	}
	return $n * fact($n - 1);
}
my $i = 0;
while ($i < 3) {
	print $i, "\n";
	$i++;
}
`
	prog := mustParse(t, src)
	printed := ast.Print(prog)

	reparsed, err := Parse(printed)
	require.NoError(t, err)

	// The printer re-indents, so source positions differ; compare the
	// trees with positions zeroed.
	stripPositions(reflect.ValueOf(prog))
	stripPositions(reflect.ValueOf(reparsed))
	assert.Equal(t, ast.Dump(prog), ast.Dump(reparsed))
}

// stripPositions zeroes every lexer.Position reachable from v.
func stripPositions(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			stripPositions(v.Elem())
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			stripPositions(v.Index(i))
		}
	case reflect.Struct:
		if v.Type() == reflect.TypeOf(lexer.Position{}) {
			v.Set(reflect.Zero(v.Type()))
			return
		}
		for i := 0; i < v.NumField(); i++ {
			stripPositions(v.Field(i))
		}
	}
}
