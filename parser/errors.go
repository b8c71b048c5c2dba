package parser

import (
	"fmt"

	"github.com/ajokela/microperl/lexer"
)

// ErrorKind categorizes a parse failure, per spec.md section 7.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota
	MissingSemicolon
	MissingParen
	MissingBrace
	InvalidStatement
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "UnexpectedToken"
	case MissingSemicolon:
		return "MissingSemicolon"
	case MissingParen:
		return "MissingParen"
	case MissingBrace:
		return "MissingBrace"
	case InvalidStatement:
		return "InvalidStatement"
	default:
		return "UnknownParseError"
	}
}

// Error is a parse failure, tagged with a Kind and the Position at which
// it was detected, plus the expected/found token kinds for
// UnexpectedToken (spec.md section 7).
type Error struct {
	Kind     ErrorKind
	Pos      lexer.Position
	Expected lexer.TokenType
	Found    lexer.TokenType
	Message  string
}

func (e *Error) Error() string {
	if e.Kind == UnexpectedToken {
		return fmt.Sprintf("%s: ParseError(%s{expected=%s, found=%s}): %s", e.Pos, e.Kind, e.Expected, e.Found, e.Message)
	}
	return fmt.Sprintf("%s: ParseError(%s): %s", e.Pos, e.Kind, e.Message)
}

func newError(kind ErrorKind, pos lexer.Position, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func unexpectedToken(pos lexer.Position, expected, found lexer.TokenType) *Error {
	return &Error{
		Kind:     UnexpectedToken,
		Pos:      pos,
		Expected: expected,
		Found:    found,
		Message:  fmt.Sprintf("expected %s, found %s", expected, found),
	}
}
