package ast

import "github.com/davecgh/go-spew/spew"

// Dump renders a parsed Program as a deeply-expanded struct tree, one of
// the debug emitters named in spec.md section 6 ("Debug emitters
// (tokens, AST, bytecode disassembly) are additional functions over the
// same data").
func Dump(p *Program) string {
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
	return cfg.Sdump(p)
}
