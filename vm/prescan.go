package vm

import (
	"github.com/chazu/littlec/lexer"
)

// ---------------------------------------------------------------------------
// Prescan: locate functions and declare globals
// ---------------------------------------------------------------------------

// Prescan makes one forward pass over the program, recording every
// function's name, return type, parameters and entry offset, and declaring
// every top-level global. Function bodies are skipped by counting braces;
// nothing inside them is interpreted. The cursor is left at the top of the
// buffer. Prescan runs once; later calls return nil.
func (in *Interpreter) Prescan() (err error) {
	if in.scanned {
		return nil
	}
	defer in.recoverAbort(&err, nil)

	in.seek(0)
	in.prescan()
	in.seek(0)
	in.scanned = true

	in.log.Infof("prescan: %d functions, %d globals", len(in.funcs), len(in.globals))
	return nil
}

func (in *Interpreter) prescan() {
	depth := 0
	for {
		for depth > 0 {
			in.next()
			switch {
			case in.tok.IsFinished():
				in.fail(ErrUnbalancedBraces, "end of program inside a function body")
			case in.tok.Is("{"):
				depth++
			case in.tok.Is("}"):
				depth--
			case in.tok.Is("'"):
				in.skipCharConst()
			}
		}

		start := in.lex.Offset()
		in.next()
		switch {
		case in.tok.IsFinished():
			return

		case in.tok.IsType():
			typeTok := in.tok
			name := in.next()
			if name.Type != lexer.TokenIdentifier {
				in.fail(ErrSyntax, "identifier expected after %s, found %s", typeTok.Literal, describe(name))
			}
			if in.next(); in.tok.Is("(") {
				in.prescanFunction(typeTok, name)
			} else {
				in.seek(start)
				in.declareGlobals()
			}

		case in.tok.Is("{"):
			depth++

		case in.tok.Is("}"):
			in.fail(ErrUnbalancedBraces, "'}' outside of a function body")

		case in.tok.Is(";"):

		default:
			in.fail(ErrSyntax, "unexpected %s at top level", describe(in.tok))
		}
	}
}

// prescanFunction records a function whose opening parenthesis has just
// been read.
func (in *Interpreter) prescanFunction(typeTok, name lexer.Token) {
	f := Function{
		Name:       name.Literal,
		ReturnType: varTypeOf(typeTok.Keyword),
		Offset:     typeTok.Pos.Offset,
	}
	f.Params = in.parseParams()
	f.Entry = in.lex.Offset()
	in.declareFunction(f)
	in.log.Debugf("prescan: function %s at %s", f.Signature(), name.Pos)
}

// parseParams reads a parameter list up to and including its closing ')'.
func (in *Interpreter) parseParams() []Param {
	var params []Param
	if in.next(); in.tok.Is(")") {
		return nil
	}
	in.pushBack()
	for {
		in.next()
		if !in.tok.IsType() {
			in.fail(ErrTypeExpected, "parameter type expected, found %s", describe(in.tok))
		}
		typ := varTypeOf(in.tok.Keyword)
		name := in.next()
		if name.Type != lexer.TokenIdentifier {
			in.fail(ErrSyntax, "parameter name expected, found %s", describe(name))
		}
		params = append(params, Param{Name: name.Literal, Type: typ})

		in.next()
		if in.tok.Is(",") {
			continue
		}
		if !in.tok.Is(")") {
			in.fail(ErrParenExpected, "expected ')' after parameters, found %s", describe(in.tok))
		}
		return params
	}
}

// declareGlobals parses "type name, name, ...;" into the global table.
func (in *Interpreter) declareGlobals() {
	typ := varTypeOf(in.next().Keyword)
	for {
		name := in.next()
		if name.Type != lexer.TokenIdentifier {
			in.fail(ErrSyntax, "variable name expected, found %s", describe(name))
		}
		in.declareGlobal(Variable{Name: name.Literal, Type: typ})
		if in.next(); !in.tok.Is(",") {
			break
		}
	}
	if !in.tok.Is(";") {
		in.fail(ErrSemicolonExpected, "found %s", describe(in.tok))
	}
}

// declareLocals parses "type name, name, ...;" onto the local stack.
func (in *Interpreter) declareLocals() {
	typ := varTypeOf(in.next().Keyword)
	for {
		name := in.next()
		if name.Type != lexer.TokenIdentifier {
			in.fail(ErrSyntax, "variable name expected, found %s", describe(name))
		}
		if in.next(); in.tok.Is("(") {
			in.failName(name, ErrNestedFunctions)
		}
		in.pushLocal(Variable{Name: name.Literal, Type: typ})
		if !in.tok.Is(",") {
			break
		}
	}
	if !in.tok.Is(";") {
		in.fail(ErrSemicolonExpected, "found %s", describe(in.tok))
	}
}
