package vm

import (
	"strconv"

	"github.com/chazu/littlec/lexer"
)

// ---------------------------------------------------------------------------
// Expression evaluation
// ---------------------------------------------------------------------------
//
// Precedence, lowest first:
//
//	0  =                 right-associative, variables only
//	1  < <= > >= == !=   non-associative, yields 1 or 0
//	2  + -               left-associative
//	3  * / %             left-associative
//	4  unary + -
//	5  ( expr ) and primaries
//
// Each level is entered with its first token in in.tok and returns with the
// first token it did not consume in in.tok.

// evalExpression reads and evaluates one expression. An expression that
// starts with ';' is empty and evaluates to 0. On return in.tok holds the
// token that stopped the expression and the cursor is positioned on it, so
// the caller reads it again with next or expect.
func (in *Interpreter) evalExpression() int {
	in.next()
	if in.tok.IsFinished() {
		in.fail(ErrNoExpression, "")
	}
	if in.tok.Is(";") {
		in.pushBack()
		return 0
	}
	v := in.evalAssign()
	in.pushBack()
	return v
}

func (in *Interpreter) evalAssign() int {
	if in.tok.Type == lexer.TokenIdentifier && in.isVariable(in.tok.Literal) {
		name := in.tok
		if in.next(); in.tok.Is("=") {
			in.next()
			v := in.evalAssign()
			in.assign(name, v)
			return v
		}
		in.seek(name.Pos.Offset)
		in.next()
	}
	return in.evalRel()
}

func (in *Interpreter) evalRel() int {
	v := in.evalAdd()
	op := in.tok.Op
	if in.tok.Type != lexer.TokenDelimiter || op == lexer.OpNone {
		return v
	}
	in.next()
	r := in.evalAdd()

	var b bool
	switch op {
	case lexer.OpLT:
		b = v < r
	case lexer.OpLE:
		b = v <= r
	case lexer.OpGT:
		b = v > r
	case lexer.OpGE:
		b = v >= r
	case lexer.OpEQ:
		b = v == r
	case lexer.OpNE:
		b = v != r
	}
	if b {
		return 1
	}
	return 0
}

func (in *Interpreter) evalAdd() int {
	v := in.evalMul()
	for in.tok.Is("+") || in.tok.Is("-") {
		op := in.tok.Literal
		in.next()
		r := in.evalMul()
		if op == "+" {
			v += r
		} else {
			v -= r
		}
	}
	return v
}

func (in *Interpreter) evalMul() int {
	v := in.evalUnary()
	for in.tok.Is("*") || in.tok.Is("/") || in.tok.Is("%") {
		opTok := in.tok
		in.next()
		r := in.evalUnary()
		switch opTok.Literal {
		case "*":
			v *= r
		case "/":
			if r == 0 {
				in.failAt(opTok.Pos, ErrDivByZero, "")
			}
			v /= r
		case "%":
			if r == 0 {
				in.failAt(opTok.Pos, ErrDivByZero, "modulus by zero")
			}
			v %= r
		}
	}
	return v
}

func (in *Interpreter) evalUnary() int {
	if in.tok.Is("+") || in.tok.Is("-") {
		neg := in.tok.Is("-")
		in.next()
		v := in.evalUnary()
		if neg {
			return -v
		}
		return v
	}
	return in.evalParen()
}

func (in *Interpreter) evalParen() int {
	if !in.tok.Is("(") {
		return in.atom()
	}
	in.next()
	v := in.evalAssign()
	if !in.tok.Is(")") {
		in.fail(ErrParenExpected, "expected ')', found %s", describe(in.tok))
	}
	in.next()
	return v
}

// atom evaluates a number, a character constant, a variable or a call.
func (in *Interpreter) atom() int {
	tok := in.tok
	switch {
	case tok.IsFinished():
		in.fail(ErrNoExpression, "")

	case tok.Type == lexer.TokenNumber:
		v, err := strconv.Atoi(tok.Literal)
		if err != nil {
			in.fail(ErrSyntax, "number %s out of range", tok.Literal)
		}
		in.next()
		return v

	case tok.Is("'"):
		c, err := in.lex.CharConst()
		if err != nil {
			in.fail(ErrQuoteExpected, "")
		}
		in.next()
		return c

	case tok.Type == lexer.TokenIdentifier:
		if in.next(); in.tok.Is("(") {
			v := in.call(tok)
			in.next()
			return v
		}
		return in.resolve(tok)

	case tok.Type == lexer.TokenString:
		in.fail(ErrSyntax, "string literal in expression")

	case tok.Type == lexer.TokenKeyword:
		in.fail(ErrSyntax, "unexpected keyword %q", tok.Literal)
	}
	in.fail(ErrSyntax, "unexpected %s", describe(tok))
	return 0
}
