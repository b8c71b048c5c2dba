package lexer

import "strings"

// DumpTokens renders a token stream one-per-line, for the debug emitters
// named in spec.md section 6 ("Debug emitters (tokens, AST, bytecode
// disassembly) are additional functions over the same data").
func DumpTokens(toks []Token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return b.String()
}
