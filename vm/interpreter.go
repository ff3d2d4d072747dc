package vm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/littlec/lexer"
)

// ---------------------------------------------------------------------------
// Limits and configuration
// ---------------------------------------------------------------------------

// Limits bounds every table and stack the interpreter grows.
type Limits struct {
	MaxProgramSize int // bytes of source text
	MaxTokenLen    int // longest lexeme
	MaxFunctions   int // function table entries
	MaxGlobals     int // global variables
	MaxLocals      int // local stack slots across all active calls
	MaxCallDepth   int // nested calls
	MaxSteps       int // executed statements per run, 0 for unlimited
}

// DefaultLimits returns the classic Little C capacities.
func DefaultLimits() Limits {
	return Limits{
		MaxProgramSize: 10000,
		MaxTokenLen:    lexer.DefaultMaxTokenLen,
		MaxFunctions:   100,
		MaxGlobals:     100,
		MaxLocals:      200,
		MaxCallDepth:   100,
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxProgramSize <= 0 {
		l.MaxProgramSize = d.MaxProgramSize
	}
	if l.MaxTokenLen <= 0 {
		l.MaxTokenLen = d.MaxTokenLen
	}
	if l.MaxFunctions <= 0 {
		l.MaxFunctions = d.MaxFunctions
	}
	if l.MaxGlobals <= 0 {
		l.MaxGlobals = d.MaxGlobals
	}
	if l.MaxLocals <= 0 {
		l.MaxLocals = d.MaxLocals
	}
	if l.MaxCallDepth <= 0 {
		l.MaxCallDepth = d.MaxCallDepth
	}
	return l
}

// DefaultEntry is the function every program starts from.
const DefaultEntry = "main"

// Config configures an Interpreter. The zero value is usable.
type Config struct {
	Limits     Limits
	Entry      string           // defaults to "main"
	Intrinsics Intrinsics       // host functions, may be nil
	Logger     commonlog.Logger // defaults to the "littlec.vm" logger
}

// Result describes a completed run.
type Result struct {
	Value int  // the entry function's return value
	Ended bool // the program stopped at an end statement
	Steps int  // statements executed
}

// ---------------------------------------------------------------------------
// Interpreter: all state for one program
// ---------------------------------------------------------------------------

// Interpreter executes a Little C program directly from its source text.
// It is not safe for concurrent use.
type Interpreter struct {
	lex *lexer.Lexer
	tok lexer.Token // current token

	globals []Variable
	funcs   []Function
	locals  []Variable // shared by all active calls
	frames  []int      // frame base per active call

	limits     Limits
	entry      string
	intrinsics Intrinsics
	log        commonlog.Logger

	scanned bool
	steps   int
	ctx     context.Context // checked every interruptEvery statements
}

const interruptEvery = 1024

// NewInterpreter creates an interpreter for src. The source is validated
// against the program size limit but not scanned yet.
func NewInterpreter(src string, cfg Config) (*Interpreter, error) {
	limits := cfg.Limits.withDefaults()
	if len(src) > limits.MaxProgramSize {
		return nil, &Error{Kind: ErrProgramTooLarge, Msg: fmt.Sprintf("%d bytes exceeds the %d byte limit", len(src), limits.MaxProgramSize)}
	}

	in := &Interpreter{
		lex:        lexer.NewLexer(src),
		limits:     limits,
		entry:      cfg.Entry,
		intrinsics: cfg.Intrinsics,
		log:        cfg.Logger,
	}
	if in.entry == "" {
		in.entry = DefaultEntry
	}
	if in.intrinsics == nil {
		in.intrinsics = IntrinsicTable{}
	}
	if in.log == nil {
		in.log = commonlog.GetLogger("littlec.vm")
	}
	in.lex.SetMaxTokenLen(limits.MaxTokenLen)
	return in, nil
}

// Source returns the program text.
func (in *Interpreter) Source() string {
	return in.lex.Source()
}

// Limits returns the effective limits.
func (in *Interpreter) Limits() Limits {
	return in.limits
}

// Run prescans the program if needed and calls the entry function with no
// arguments. Global variables start at zero.
func (in *Interpreter) Run() (Result, error) {
	return in.RunContext(context.Background())
}

// RunContext is Run with cancellation: once ctx is done the run aborts with
// ErrInterrupted at the next statement check.
func (in *Interpreter) RunContext(ctx context.Context) (res Result, err error) {
	if err := in.Prescan(); err != nil {
		return Result{}, err
	}
	if in.findFunction(in.entry) == nil {
		return Result{}, &Error{Kind: ErrNoEntry, Msg: in.entry + "() not found", Name: in.entry}
	}

	in.reset()
	in.ctx = ctx
	for i := range in.globals {
		in.globals[i].Value = 0
	}
	defer func() { res.Steps = in.steps }()
	defer in.recoverAbort(&err, &res.Ended)

	in.log.Debugf("calling %s()", in.entry)
	f := in.findFunction(in.entry)
	res.Value = in.invoke(f, nil, in.lex.Position(f.Offset), in.lex.Offset())
	return res, nil
}

// Call invokes a user-defined function with host-supplied arguments.
func (in *Interpreter) Call(name string, args ...int) (value int, err error) {
	if err := in.Prescan(); err != nil {
		return 0, err
	}
	f := in.findFunction(name)
	if f == nil {
		return 0, &Error{Kind: ErrFuncUndefined, Msg: name, Name: name}
	}

	in.reset()
	defer in.recoverAbort(&err, nil)

	return in.invoke(f, args, lexer.Position{}, in.lex.Offset()), nil
}

// reset clears run state left by an earlier run or aborted call.
func (in *Interpreter) reset() {
	in.locals = in.locals[:0]
	in.frames = in.frames[:0]
	in.steps = 0
	in.tok = lexer.Token{}
	in.ctx = nil
}

// Functions returns a copy of the function table in declaration order.
func (in *Interpreter) Functions() []Function {
	out := make([]Function, len(in.funcs))
	copy(out, in.funcs)
	return out
}

// Globals returns a copy of the global table in declaration order.
func (in *Interpreter) Globals() []Variable {
	out := make([]Variable, len(in.globals))
	copy(out, in.globals)
	return out
}

// Global returns the value of a global variable.
func (in *Interpreter) Global(name string) (int, bool) {
	for _, v := range in.globals {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// LocalDepth returns the number of live local stack slots.
func (in *Interpreter) LocalDepth() int {
	return len(in.locals)
}

// CallDepth returns the number of active calls.
func (in *Interpreter) CallDepth() int {
	return len(in.frames)
}

// ---------------------------------------------------------------------------
// Cursor helpers
// ---------------------------------------------------------------------------

// next reads the next token into in.tok. Lexer errors abort the run.
func (in *Interpreter) next() lexer.Token {
	in.tok = in.lex.Next()
	if in.tok.Type == lexer.TokenError {
		in.lexError(in.tok)
	}
	return in.tok
}

// pushBack returns the current token to the input.
func (in *Interpreter) pushBack() {
	in.lex.PushBack()
}

// seek moves the cursor to off.
func (in *Interpreter) seek(off int) {
	in.lex.Seek(off)
}

// expect reads the next token and aborts with kind unless it is the
// delimiter or block token s.
func (in *Interpreter) expect(s string, kind ErrorKind) {
	in.next()
	if !in.tok.Is(s) {
		in.fail(kind, "expected %q, found %s", s, describe(in.tok))
	}
}

// step counts one executed statement against MaxSteps.
func (in *Interpreter) step() {
	in.steps++
	if in.limits.MaxSteps > 0 && in.steps > in.limits.MaxSteps {
		in.fail(ErrStepLimit, "more than %d statements executed", in.limits.MaxSteps)
	}
	if in.ctx != nil && in.steps%interruptEvery == 0 {
		if err := in.ctx.Err(); err != nil {
			panic(&Error{Kind: ErrInterrupted, Msg: err.Error(), Pos: in.tok.Pos, Err: err})
		}
	}
}

func (in *Interpreter) lexError(tok lexer.Token) {
	kind := ErrSyntax
	switch {
	case errors.Is(tok.Err, lexer.ErrTokenTooLong):
		kind = ErrTokenTooLong
	case errors.Is(tok.Err, lexer.ErrUnterminatedString), errors.Is(tok.Err, lexer.ErrUnterminatedChar):
		kind = ErrQuoteExpected
	}
	panic(&Error{Kind: kind, Msg: tok.Literal, Pos: tok.Pos, Err: tok.Err})
}

// describe renders a token for error messages.
func describe(tok lexer.Token) string {
	switch {
	case tok.IsFinished():
		return "end of program"
	case tok.Type == lexer.TokenString:
		return "string literal"
	default:
		return "'" + tok.Literal + "'"
	}
}
