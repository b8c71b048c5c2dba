package vm

import (
	"bytes"
	"os"
	"testing"

	"github.com/ajokela/microperl/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type scenario struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Stdout string `yaml:"stdout"`
}

type scenarioFile struct {
	Scenarios []scenario `yaml:"scenarios"`
}

func loadScenarios(t *testing.T) []scenario {
	t.Helper()
	data, err := os.ReadFile("../compiler/testdata/scenarios.yaml")
	require.NoError(t, err)
	var sf scenarioFile
	require.NoError(t, yaml.Unmarshal(data, &sf))
	return sf.Scenarios
}

func TestRun_PositiveScenariosProduceExpectedStdout(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		sc := sc
		t.Run(sc.Name, func(t *testing.T) {
			module, err := compiler.Compile(sc.Source)
			require.NoError(t, err)

			var out bytes.Buffer
			vm := New(module)
			vm.Stdout = &out
			require.NoError(t, vm.Run())

			assert.Equal(t, sc.Stdout, out.String())
		})
	}
}

func TestRun_MatchFindsSubstring(t *testing.T) {
	module, err := compiler.Compile(`my $s = "hello world"; if ($s =~ /wor.d/) { print "y\n"; } else { print "n\n"; }`)
	require.NoError(t, err)

	var out bytes.Buffer
	vm := New(module)
	vm.Stdout = &out
	require.NoError(t, vm.Run())
	assert.Equal(t, "y\n", out.String())
}

func TestRun_NoMatchNegation(t *testing.T) {
	module, err := compiler.Compile(`my $s = "hello world"; if ($s !~ /xyz/) { print "y\n"; } else { print "n\n"; }`)
	require.NoError(t, err)

	var out bytes.Buffer
	vm := New(module)
	vm.Stdout = &out
	require.NoError(t, vm.Run())
	assert.Equal(t, "y\n", out.String())
}

func TestRun_DivisionByZeroTraps(t *testing.T) {
	module, err := compiler.Compile(`my $x = 1 / 0; print $x, "\n";`)
	require.NoError(t, err)

	vm := New(module)
	err = vm.Run()
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Contains(t, rerr.Message, "division by zero")
}

func TestRun_StackUnderflowTraps(t *testing.T) {
	vm := &VM{code: []byte{byte(0x03)}} // bare POP with nothing pushed
	err := vm.Run()
	require.Error(t, err)
	_, ok := err.(*RuntimeError)
	require.True(t, ok)
}

func TestRun_ValuelessCallAsStatementDoesNotUnderflow(t *testing.T) {
	src := `
sub greet() {
  print "hi\n";
}
greet();
`
	module, err := compiler.Compile(src)
	require.NoError(t, err)

	var out bytes.Buffer
	vm := New(module)
	vm.Stdout = &out
	require.NoError(t, vm.Run())
	assert.Equal(t, "hi\n", out.String())
}

func TestRun_BareReturnAsStatementDoesNotUnderflow(t *testing.T) {
	src := `
sub maybe($n) {
  if ($n > 0) {
    return;
  }
  print "negative\n";
}
maybe(1);
print "after\n";
`
	module, err := compiler.Compile(src)
	require.NoError(t, err)

	var out bytes.Buffer
	vm := New(module)
	vm.Stdout = &out
	require.NoError(t, vm.Run())
	assert.Equal(t, "after\n", out.String())
}

func TestRun_NestedSubroutineCallsRecurse(t *testing.T) {
	src := `
sub fact($n) {
  if ($n <= 1) {
    return 1;
  }
  return $n * fact($n - 1);
}
print fact(5), "\n";
`
	module, err := compiler.Compile(src)
	require.NoError(t, err)

	var out bytes.Buffer
	vm := New(module)
	vm.Stdout = &out
	require.NoError(t, vm.Run())
	assert.Equal(t, "120\n", out.String())
}
