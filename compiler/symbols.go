package compiler

// localScope is one lexical block's name-to-slot bindings within the
// current function frame.
type localScope map[string]int

// localsTable is the scope stack for one function (or the top-level
// program, which is compiled as an implicit frame — see DESIGN.md).
// Lookup searches inner-to-outer; slots are assigned densely and never
// reused across sibling scopes, per spec.md section 4.3.
type localsTable struct {
	scopes   []localScope
	nextSlot int
}

func newLocalsTable() *localsTable {
	return &localsTable{scopes: []localScope{{}}}
}

func (l *localsTable) pushScope() { l.scopes = append(l.scopes, localScope{}) }

func (l *localsTable) popScope() { l.scopes = l.scopes[:len(l.scopes)-1] }

// declare introduces name in the innermost scope and returns its slot.
func (l *localsTable) declare(name string) int {
	slot := l.nextSlot
	l.nextSlot++
	l.scopes[len(l.scopes)-1][name] = slot
	return slot
}

// lookup searches inner-to-outer for name, returning its slot and true,
// or (0, false) if name is not a local in this function.
func (l *localsTable) lookup(name string) (int, bool) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if slot, ok := l.scopes[i][name]; ok {
			return slot, true
		}
	}
	return 0, false
}

// count is the locals_count operand for this function's ENTER.
func (l *localsTable) count() int { return l.nextSlot }

// globalsTable assigns a stable 16-bit index to every non-local name on
// its first appearance, per spec.md section 3. Globals persist across
// the whole compile and survive across calls at runtime.
type globalsTable struct {
	index map[string]int
	names []string
}

func newGlobalsTable() *globalsTable {
	return &globalsTable{index: map[string]int{}}
}

func (g *globalsTable) indexOf(name string) int {
	if idx, ok := g.index[name]; ok {
		return idx
	}
	idx := len(g.names)
	g.index[name] = idx
	g.names = append(g.names, name)
	return idx
}

func (g *globalsTable) count() int { return len(g.names) }

// stringTable interns literal content so that repeated occurrences of
// the same text share one string-table entry (spec.md section 8, item 5).
type stringTable struct {
	index   map[string]int
	entries [][]byte
}

func newStringTable() *stringTable {
	return &stringTable{index: map[string]int{}}
}

func (s *stringTable) intern(text string) int {
	if idx, ok := s.index[text]; ok {
		return idx
	}
	idx := len(s.entries)
	s.index[text] = idx
	s.entries = append(s.entries, []byte(text))
	return idx
}

func (s *stringTable) count() int { return len(s.entries) }

// subEntry records a compiled subroutine's entry offset and arity. The
// offset resolves calls; the arity is recorded but not checked against
// the argument count at call sites.
type subEntry struct {
	offset int
	arity  int
}

// subTable maps subroutine name to its compiled location. Entries are
// only added once a subroutine's ENTER has actually been emitted;
// fixups recorded before that point are patched by the compiler once
// every subroutine has been compiled (spec.md section 9: forward
// references are resolved by a two-pass-equivalent fixup mechanism).
type subTable struct {
	subs map[string]subEntry
}

func newSubTable() *subTable {
	return &subTable{subs: map[string]subEntry{}}
}

// callFixup is an unresolved CALL site: the byte offset of its 2-byte
// operand and the callee name. It carries no source position, so an
// UnknownFunction error for it is reported at the zero Position.
type callFixup struct {
	patchAt int
	name    string
}
