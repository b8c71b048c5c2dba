package compiler

import (
	"os"
	"testing"

	"github.com/ajokela/microperl/bytecode"
	"github.com/ajokela/microperl/lexer"
	"github.com/ajokela/microperl/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type scenario struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Stdout string `yaml:"stdout"`
}

type negativeScenario struct {
	Name      string `yaml:"name"`
	Source    string `yaml:"source"`
	ErrorKind string `yaml:"error_kind"`
}

type scenarioFile struct {
	Scenarios []scenario         `yaml:"scenarios"`
	Negative  []negativeScenario `yaml:"negative"`
}

func loadScenarios(t *testing.T) scenarioFile {
	t.Helper()
	data, err := os.ReadFile("testdata/scenarios.yaml")
	require.NoError(t, err)
	var sf scenarioFile
	require.NoError(t, yaml.Unmarshal(data, &sf))
	return sf
}

func TestCompile_PositiveScenariosProduceWellFormedModules(t *testing.T) {
	sf := loadScenarios(t)
	for _, sc := range sf.Scenarios {
		sc := sc
		t.Run(sc.Name, func(t *testing.T) {
			module, err := Compile(sc.Source)
			require.NoError(t, err)

			encoded, err := module.Encode()
			require.NoError(t, err)

			decoded, err := bytecode.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, module.Code, decoded.Code)

			_, err = bytecode.DecodeInstructions(module.Code)
			assert.NoError(t, err)
		})
	}
}

func TestCompile_NegativeScenariosFailWithExpectedKind(t *testing.T) {
	sf := loadScenarios(t)
	for _, sc := range sf.Negative {
		sc := sc
		t.Run(sc.Name, func(t *testing.T) {
			_, err := Compile(sc.Source)
			require.Error(t, err)
			switch sc.ErrorKind {
			case "UnknownFunction":
				cerr, ok := err.(*Error)
				require.True(t, ok)
				assert.Equal(t, UnknownFunction, cerr.Kind)
			case "IntegerOverflow":
				lerr, ok := err.(*lexer.Error)
				require.True(t, ok)
				assert.Equal(t, lexer.IntegerOverflow, lerr.Kind)
			case "MissingBrace":
				perr, ok := err.(*parser.Error)
				require.True(t, ok)
				assert.Equal(t, parser.MissingBrace, perr.Kind)
			default:
				t.Fatalf("scenario %q has unhandled error_kind %q", sc.Name, sc.ErrorKind)
			}
			// IntegerOverflow / MissingBrace originate from the lexer and
			// parser stages respectively and are returned verbatim by Compile.
		})
	}
}

func TestCompile_Determinism(t *testing.T) {
	src := `my $i = 0; while ($i < 3) { print $i, "\n"; $i++; }`
	m1, err := Compile(src)
	require.NoError(t, err)
	m2, err := Compile(src)
	require.NoError(t, err)

	e1, err := m1.Encode()
	require.NoError(t, err)
	e2, err := m2.Encode()
	require.NoError(t, err)
	assert.Equal(t, e1, e2)
}

func TestCompile_StringInterningDeduplicates(t *testing.T) {
	module, err := Compile(`print "hi", "hi", "bye";`)
	require.NoError(t, err)
	assert.Len(t, module.Strings, 2)
}

func TestCompile_PushByteVsPushSelection(t *testing.T) {
	module, err := Compile(`print 100, 1000;`)
	require.NoError(t, err)
	instrs, err := bytecode.DecodeInstructions(module.Code)
	require.NoError(t, err)

	var ops []bytecode.Opcode
	for _, in := range instrs {
		if in.Op == bytecode.PUSHBYTE || in.Op == bytecode.PUSH {
			ops = append(ops, in.Op)
		}
	}
	require.Len(t, ops, 2)
	assert.Equal(t, bytecode.PUSHBYTE, ops[0])
	assert.Equal(t, bytecode.PUSH, ops[1])
}

func TestCompile_LocalsDiscipline(t *testing.T) {
	module, err := Compile(`sub f($a, $b) { my $c = $a + $b; return $c; } print f(1,2), "\n";`)
	require.NoError(t, err)
	instrs, err := bytecode.DecodeInstructions(module.Code)
	require.NoError(t, err)

	var enterK byte
	var sawEnter bool
	for _, in := range instrs {
		if in.Op == bytecode.ENTER {
			sawEnter = true
			enterK = byte(in.Operand)
		}
		if sawEnter && (in.Op == bytecode.LDLOC || in.Op == bytecode.STLOC) {
			assert.Less(t, byte(in.Operand), enterK)
		}
	}
}

func TestCompile_ForwardReferenceResolves(t *testing.T) {
	_, err := Compile(`print helper(), "\n"; sub helper() { return 1; }`)
	require.NoError(t, err)
}

func TestCompile_UnknownFunctionFails(t *testing.T) {
	_, err := Compile(`print foo();`)
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UnknownFunction, cerr.Kind)
	assert.Equal(t, "foo", cerr.Name)
}

func TestCompile_ReturnOutsideSubFails(t *testing.T) {
	_, err := Compile(`return 1;`)
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ReturnOutsideSub, cerr.Kind)
}

func TestCompile_DuplicateParameterFails(t *testing.T) {
	_, err := Compile(`sub f($a, $a) { return $a; }`)
	require.Error(t, err)
	cerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, DuplicateParameter, cerr.Kind)
}

func TestCompile_HeaderEntryPointIsZero(t *testing.T) {
	module, err := Compile(`print 1, "\n";`)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), module.EntryPoint)
}

func TestDumpSymbols_ContainsSubroutineAndGlobalNames(t *testing.T) {
	_, dump, err := CompileWithDebug(`sub bump() { $tally = $tally + 1; return $tally; } print bump(), "\n";`)
	require.NoError(t, err)
	assert.Contains(t, dump, "bump")
	assert.Contains(t, dump, "tally")
}
