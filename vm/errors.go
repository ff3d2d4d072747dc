package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/littlec/lexer"
)

// ---------------------------------------------------------------------------
// Fatal errors
// ---------------------------------------------------------------------------

// ErrorKind classifies a fatal interpreter error.
type ErrorKind int

const (
	ErrSyntax ErrorKind = iota
	ErrUnbalancedParens
	ErrNoExpression
	ErrEqualsExpected
	ErrNotVariable
	ErrParamMismatch
	ErrSemicolonExpected
	ErrUnbalancedBraces
	ErrFuncUndefined
	ErrTypeExpected
	ErrNestedFunctions
	ErrReturnNoCall
	ErrParenExpected
	ErrWhileExpected
	ErrQuoteExpected
	ErrTooManyLocals
	ErrDivByZero
	ErrNoEntry
	ErrTokenTooLong
	ErrTableFull
	ErrProgramTooLarge
	ErrStepLimit
	ErrIntrinsic
	ErrInterrupted
)

var errorMessages = map[ErrorKind]string{
	ErrSyntax:            "syntax error",
	ErrUnbalancedParens:  "unbalanced parentheses",
	ErrNoExpression:      "no expression present",
	ErrEqualsExpected:    "equals sign expected",
	ErrNotVariable:       "not a variable",
	ErrParamMismatch:     "parameter error",
	ErrSemicolonExpected: "semicolon expected",
	ErrUnbalancedBraces:  "unbalanced braces",
	ErrFuncUndefined:     "function undefined",
	ErrTypeExpected:      "type specifier expected",
	ErrNestedFunctions:   "too many nested function calls",
	ErrReturnNoCall:      "return without call",
	ErrParenExpected:     "parentheses expected",
	ErrWhileExpected:     "while expected",
	ErrQuoteExpected:     "closing quote expected",
	ErrTooManyLocals:     "too many local variables",
	ErrDivByZero:         "division by zero",
	ErrNoEntry:           "entry point not found",
	ErrTokenTooLong:      "token too long",
	ErrTableFull:         "symbol table full",
	ErrProgramTooLarge:   "program too large",
	ErrStepLimit:         "step limit exceeded",
	ErrIntrinsic:         "intrinsic failed",
	ErrInterrupted:       "run interrupted",
}

func (k ErrorKind) String() string {
	if msg, ok := errorMessages[k]; ok {
		return msg
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// Error is a fatal interpreter error. Every error aborts the whole run.
type Error struct {
	Kind ErrorKind
	Msg  string         // detail, may be empty
	Name string         // identifier involved, if any
	Pos  lexer.Position // where the error was detected
	Err  error          // underlying cause (lexer or intrinsic error)
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Pos.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, &vm.Error{Kind: vm.ErrDivByZero}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of a fatal error, or false if err is not one.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// endSignal is panicked by the end statement and recovered at the API
// boundary as a normal completion.
type endSignal struct{}

// fail aborts the run with a fatal error at the current token.
func (in *Interpreter) fail(kind ErrorKind, format string, args ...any) {
	in.failAt(in.tok.Pos, kind, format, args...)
}

// failAt aborts the run with a fatal error at pos.
func (in *Interpreter) failAt(pos lexer.Position, kind ErrorKind, format string, args ...any) {
	e := &Error{Kind: kind, Pos: pos}
	if format != "" {
		e.Msg = fmt.Sprintf(format, args...)
	}
	panic(e)
}

// failName aborts the run with a fatal error about the identifier tok.
func (in *Interpreter) failName(tok lexer.Token, kind ErrorKind) {
	panic(&Error{Kind: kind, Msg: tok.Literal, Name: tok.Literal, Pos: tok.Pos})
}

// recoverAbort converts an abort panic into a returned error. Panics that
// did not originate from fail are re-raised.
func (in *Interpreter) recoverAbort(errp *error, ended *bool) {
	r := recover()
	if r == nil {
		return
	}
	switch sig := r.(type) {
	case *Error:
		*errp = sig
	case endSignal:
		if ended != nil {
			*ended = true
		}
	default:
		panic(r)
	}
}
