package compiler

import "github.com/davecgh/go-spew/spew"

// symbolSnapshot is a read-only view of a finished compile's symbol
// tables, for the debug emitters named in spec.md section 6.
type symbolSnapshot struct {
	Globals []string
	Strings []string
	Subs    map[string]subEntry
}

// DumpSymbols renders a Compiler's globals, interned strings, and
// subroutine table after a successful compile.
func (c *Compiler) DumpSymbols() string {
	snap := symbolSnapshot{Globals: append([]string(nil), c.globals.names...), Subs: c.subs.subs}
	for _, s := range c.strings.entries {
		snap.Strings = append(snap.Strings, string(s))
	}
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true}
	return cfg.Sdump(snap)
}
