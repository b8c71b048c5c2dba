package ast_test

import (
	"reflect"
	"testing"

	"github.com/ajokela/microperl/ast"
	"github.com/ajokela/microperl/lexer"
	"github.com/ajokela/microperl/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertRoundTrips parses src, prints the resulting tree, reparses the
// printed text, and checks the two trees are structurally equal — the
// round-trip property from spec.md section 8, item 2. Source positions
// are zeroed before comparing, since the printer's layout differs from
// the input's.
func assertRoundTrips(t *testing.T, src string) {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	printed := ast.Print(prog)

	reparsed, err := parser.Parse(printed)
	require.NoErrorf(t, err, "printed source failed to reparse:\n%s", printed)

	stripPositions(reflect.ValueOf(prog))
	stripPositions(reflect.ValueOf(reparsed))
	assert.Equalf(t, prog, reparsed, "printed source regrouped under reparse:\n%s", printed)
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

func TestPrint_RoundTripsPlainPrecedence(t *testing.T) {
	assertRoundTrips(t, `print 1 + 2 * 3, "\n";`)
}

// TestPrint_RoundTripsExplicitGrouping exercises a tree whose grouping
// disagrees with default left-to-right precedence, the case the printer
// must parenthesize to survive a reparse.
func TestPrint_RoundTripsExplicitGrouping(t *testing.T) {
	assertRoundTrips(t, `print (1 + 2) * 3, "\n";`)
}

func TestPrint_RoundTripsMixedAdditiveGrouping(t *testing.T) {
	assertRoundTrips(t, `my $x = 1 - (2 - 3);`)
}

func TestPrint_RoundTripsNegatedComparison(t *testing.T) {
	assertRoundTrips(t, `if (!($a == $b)) { print "ne\n"; }`)
}

func TestPrint_RoundTripsNestedLogical(t *testing.T) {
	assertRoundTrips(t, `if (($a && $b) || $c) { print "y\n"; }`)
}

func TestPrint_RoundTripsChainedAssignment(t *testing.T) {
	assertRoundTrips(t, `my $x = 0; $x = $x = 1;`)
}
