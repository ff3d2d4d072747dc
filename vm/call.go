package vm

import (
	"github.com/chazu/littlec/lexer"
)

// ---------------------------------------------------------------------------
// Function calls
// ---------------------------------------------------------------------------

// call evaluates a call whose name is name and whose opening parenthesis is
// in in.tok. Intrinsics shadow user functions. The cursor is left just past
// the closing parenthesis.
func (in *Interpreter) call(name lexer.Token) int {
	if fn, ok := in.intrinsics.Lookup(name.Literal); ok {
		args := in.intrinsicArgs()
		v, err := fn(args)
		if err != nil {
			panic(&Error{Kind: ErrIntrinsic, Msg: name.Literal + ": " + err.Error(), Name: name.Literal, Pos: name.Pos, Err: err})
		}
		return v
	}

	f := in.findFunction(name.Literal)
	if f == nil {
		in.failName(name, ErrFuncUndefined)
	}
	args := in.callArgs()
	return in.invoke(f, args, name.Pos, in.lex.Offset())
}

// callArgs evaluates a comma-separated argument list up to and including
// the closing parenthesis, left to right, in the caller's scope.
func (in *Interpreter) callArgs() []int {
	if in.next(); in.tok.Is(")") {
		return nil
	}
	in.pushBack()

	var args []int
	for {
		args = append(args, in.evalExpression())
		if !in.argSeparator() {
			return args
		}
	}
}

// intrinsicArgs is callArgs for host functions, which also accept string
// literals.
func (in *Interpreter) intrinsicArgs() []Arg {
	if in.next(); in.tok.Is(")") {
		return nil
	}
	in.pushBack()

	var args []Arg
	for {
		if in.next(); in.tok.Type == lexer.TokenString {
			args = append(args, Arg{Str: in.tok.Literal, IsString: true})
		} else {
			in.pushBack()
			args = append(args, Arg{Value: in.evalExpression()})
		}
		if !in.argSeparator() {
			return args
		}
	}
}

// argSeparator reads ',' (more arguments follow) or ')' (end of list).
func (in *Interpreter) argSeparator() bool {
	in.next()
	switch {
	case in.tok.Is(","):
		return true
	case in.tok.Is(")"):
		return false
	case in.tok.IsFinished():
		in.fail(ErrUnbalancedParens, "end of program in argument list")
	}
	in.fail(ErrParenExpected, "expected ',' or ')', found %s", describe(in.tok))
	return false
}

// invoke runs f with args bound to its parameters and resumes the caller at
// ret. Functions that end without a return statement, or that leave through
// a break or continue outside any loop, return 0. An argument count that
// differs from f's parameter list fails at pos.
func (in *Interpreter) invoke(f *Function, args []int, pos lexer.Position, ret int) int {
	if len(args) != len(f.Params) {
		in.failAt(pos, ErrParamMismatch, "%s expects %d arguments, got %d", f.Name, len(f.Params), len(args))
	}
	in.pushFrame()
	for i, p := range f.Params {
		in.pushLocal(Variable{Name: p.Name, Type: p.Type, Value: args[i]})
	}

	in.seek(f.Entry)
	out := in.execStatement()

	in.popFrame()
	in.seek(ret)
	if out.flow == flowReturn {
		return out.value
	}
	return 0
}
