package vm

import (
	"github.com/chazu/littlec/lexer"
)

// ---------------------------------------------------------------------------
// Statement execution
// ---------------------------------------------------------------------------

// flow says how a statement finished.
type flow int

const (
	flowNormal flow = iota
	flowReturn
	flowBreak
	flowContinue
)

// outcome is the result of executing a statement. Non-normal outcomes
// propagate outward until a loop or the enclosing call consumes them.
type outcome struct {
	flow  flow
	value int // return value for flowReturn
}

// execStatement executes the statement at the cursor.
func (in *Interpreter) execStatement() outcome {
	in.step()
	in.next()
	tok := in.tok

	switch {
	case tok.IsFinished():
		in.fail(ErrUnbalancedBraces, "end of program inside a function body")

	case tok.Is("{"):
		return in.execBlock()

	case tok.Is("}"):
		in.fail(ErrUnbalancedBraces, "unexpected '}'")

	case tok.Is(";"):
		return outcome{}

	case tok.IsType():
		in.pushBack()
		in.declareLocals()
		return outcome{}

	case tok.Type == lexer.TokenKeyword:
		return in.execKeyword(tok)
	}

	in.pushBack()
	in.evalExpression()
	in.expect(";", ErrSemicolonExpected)
	return outcome{}
}

func (in *Interpreter) execKeyword(tok lexer.Token) outcome {
	switch tok.Keyword {
	case lexer.KeywordIf:
		return in.execIf()
	case lexer.KeywordWhile:
		return in.execWhile()
	case lexer.KeywordDo:
		return in.execDo()
	case lexer.KeywordFor:
		return in.execFor()

	case lexer.KeywordReturn:
		v := in.evalExpression()
		in.expect(";", ErrSemicolonExpected)
		return outcome{flow: flowReturn, value: v}

	case lexer.KeywordBreak:
		in.expect(";", ErrSemicolonExpected)
		return outcome{flow: flowBreak}

	case lexer.KeywordContinue:
		in.expect(";", ErrSemicolonExpected)
		return outcome{flow: flowContinue}

	case lexer.KeywordEnd:
		in.expect(";", ErrSemicolonExpected)
		in.log.Debugf("end statement at %s", tok.Pos)
		panic(endSignal{})

	case lexer.KeywordElse:
		in.fail(ErrSyntax, "else without if")
	}
	in.fail(ErrSyntax, "unexpected keyword %q", tok.Literal)
	return outcome{}
}

// execBlock executes statements up to the '}' matching the '{' just read.
// Locals declared inside the block are discarded when it exits.
func (in *Interpreter) execBlock() outcome {
	height := len(in.locals)
	defer in.truncateLocals(height)

	for {
		in.next()
		switch {
		case in.tok.Is("}"):
			return outcome{}
		case in.tok.IsFinished():
			in.fail(ErrUnbalancedBraces, "missing '}'")
		}
		in.pushBack()
		if out := in.execStatement(); out.flow != flowNormal {
			return out
		}
	}
}

// condition evaluates a parenthesized condition.
func (in *Interpreter) condition() int {
	in.expect("(", ErrParenExpected)
	v := in.evalExpression()
	in.expect(")", ErrParenExpected)
	return v
}

func (in *Interpreter) execIf() outcome {
	if in.condition() != 0 {
		if out := in.execStatement(); out.flow != flowNormal {
			return out
		}
		if in.next(); in.tok.Keyword == lexer.KeywordElse {
			in.skipStatement()
		} else {
			in.pushBack()
		}
		return outcome{}
	}

	in.skipStatement()
	if in.next(); in.tok.Keyword == lexer.KeywordElse {
		return in.execStatement()
	}
	in.pushBack()
	return outcome{}
}

func (in *Interpreter) execWhile() outcome {
	condOff := in.lex.Offset()
	height := len(in.locals)
	for {
		in.seek(condOff)
		cond := in.condition()
		bodyOff := in.lex.Offset()
		if cond == 0 {
			in.skipStatement()
			return outcome{}
		}

		out := in.execStatement()
		in.truncateLocals(height)
		switch out.flow {
		case flowReturn:
			return out
		case flowBreak:
			in.seek(bodyOff)
			in.skipStatement()
			return outcome{}
		}
	}
}

func (in *Interpreter) execDo() outcome {
	bodyOff := in.lex.Offset()
	height := len(in.locals)
	for {
		in.seek(bodyOff)
		out := in.execStatement()
		in.truncateLocals(height)
		switch out.flow {
		case flowReturn:
			return out
		case flowBreak, flowContinue:
			in.seek(bodyOff)
			in.skipStatement()
		}

		if in.next(); in.tok.Keyword != lexer.KeywordWhile {
			in.fail(ErrWhileExpected, "found %s", describe(in.tok))
		}
		if out.flow == flowBreak {
			in.skipParens()
			in.expect(";", ErrSemicolonExpected)
			return outcome{}
		}
		cond := in.condition()
		in.expect(";", ErrSemicolonExpected)
		if cond == 0 {
			return outcome{}
		}
	}
}

func (in *Interpreter) execFor() outcome {
	in.expect("(", ErrParenExpected)
	in.evalExpression()
	in.expect(";", ErrSemicolonExpected)

	condOff := in.lex.Offset()
	height := len(in.locals)
	for {
		in.seek(condOff)
		cond := 1
		if in.next(); !in.tok.Is(";") {
			in.pushBack()
			cond = in.evalExpression()
			in.expect(";", ErrSemicolonExpected)
		}
		incOff := in.lex.Offset()
		in.skipToCloseParen()
		bodyOff := in.lex.Offset()
		if cond == 0 {
			in.skipStatement()
			return outcome{}
		}

		out := in.execStatement()
		in.truncateLocals(height)
		switch out.flow {
		case flowReturn:
			return out
		case flowBreak:
			in.seek(bodyOff)
			in.skipStatement()
			return outcome{}
		}

		in.seek(incOff)
		if in.next(); !in.tok.Is(")") {
			in.pushBack()
			in.evalExpression()
			in.expect(")", ErrParenExpected)
		}
	}
}

// ---------------------------------------------------------------------------
// Skipping statements without executing them
// ---------------------------------------------------------------------------

// skipStatement moves the cursor past the statement at the cursor.
func (in *Interpreter) skipStatement() {
	in.next()
	switch {
	case in.tok.Is("{"):
		in.skipBlock()

	case in.tok.Keyword == lexer.KeywordIf:
		in.skipParens()
		in.skipStatement()
		if in.next(); in.tok.Keyword == lexer.KeywordElse {
			in.skipStatement()
		} else {
			in.pushBack()
		}

	case in.tok.Keyword == lexer.KeywordWhile, in.tok.Keyword == lexer.KeywordFor:
		in.skipParens()
		in.skipStatement()

	case in.tok.Keyword == lexer.KeywordDo:
		in.skipStatement()
		if in.next(); in.tok.Keyword != lexer.KeywordWhile {
			in.fail(ErrWhileExpected, "found %s", describe(in.tok))
		}
		in.skipParens()
		in.expect(";", ErrSemicolonExpected)

	default:
		for !in.tok.Is(";") {
			switch {
			case in.tok.IsFinished():
				in.fail(ErrSemicolonExpected, "end of program")
			case in.tok.Is("}"):
				in.fail(ErrSemicolonExpected, "found '}'")
			case in.tok.Is("'"):
				in.skipCharConst()
			}
			in.next()
		}
	}
}

// skipBlock moves the cursor past the '}' matching the '{' just read.
func (in *Interpreter) skipBlock() {
	depth := 1
	for depth > 0 {
		in.next()
		switch {
		case in.tok.IsFinished():
			in.fail(ErrUnbalancedBraces, "missing '}'")
		case in.tok.Is("{"):
			depth++
		case in.tok.Is("}"):
			depth--
		case in.tok.Is("'"):
			in.skipCharConst()
		}
	}
}

// skipParens reads a '(' and moves the cursor past its matching ')'.
func (in *Interpreter) skipParens() {
	in.expect("(", ErrParenExpected)
	in.skipToCloseParen()
}

// skipToCloseParen moves the cursor past the ')' matching a '(' already
// read.
func (in *Interpreter) skipToCloseParen() {
	depth := 1
	for depth > 0 {
		in.next()
		switch {
		case in.tok.IsFinished():
			in.fail(ErrUnbalancedParens, "")
		case in.tok.Is("("):
			depth++
		case in.tok.Is(")"):
			depth--
		case in.tok.Is("'"):
			in.skipCharConst()
		}
	}
}

// skipCharConst steps over the body of a character constant so that a
// quoted brace, parenthesis or semicolon is not counted.
func (in *Interpreter) skipCharConst() {
	in.lex.CharConst()
}
