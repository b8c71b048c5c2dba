package compiler

import (
	"fmt"

	"github.com/ajokela/microperl/lexer"
)

// ErrorKind categorizes a compile-time failure, per spec.md section 7.
type ErrorKind int

const (
	UnknownFunction ErrorKind = iota
	DuplicateParameter
	LocalsOverflow
	GlobalsOverflow
	StringsOverflow
	CodeSizeOverflow
	ReturnOutsideSub
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownFunction:
		return "UnknownFunction"
	case DuplicateParameter:
		return "DuplicateParameter"
	case LocalsOverflow:
		return "LocalsOverflow"
	case GlobalsOverflow:
		return "GlobalsOverflow"
	case StringsOverflow:
		return "StringsOverflow"
	case CodeSizeOverflow:
		return "CodeSizeOverflow"
	case ReturnOutsideSub:
		return "ReturnOutsideSub"
	default:
		return "UnknownCompileError"
	}
}

// Error is a compile-time failure, tagged with a Kind, the Position it
// was detected at, and for UnknownFunction the offending Name.
type Error struct {
	Kind ErrorKind
	Pos  lexer.Position
	Name string
}

func (e *Error) Error() string {
	if e.Kind == UnknownFunction {
		return fmt.Sprintf("%s: CompileError(%s{name=%q})", e.Pos, e.Kind, e.Name)
	}
	return fmt.Sprintf("%s: CompileError(%s)", e.Pos, e.Kind)
}

func newError(kind ErrorKind, pos lexer.Position) *Error {
	return &Error{Kind: kind, Pos: pos}
}

func unknownFunction(pos lexer.Position, name string) *Error {
	return &Error{Kind: UnknownFunction, Pos: pos, Name: name}
}
