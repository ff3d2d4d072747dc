package vm

import (
	"github.com/chazu/littlec/lexer"
)

// ---------------------------------------------------------------------------
// Variables, functions and the local variable stack
// ---------------------------------------------------------------------------

// VarType is the declared type of a variable. TypeArg marks a slot bound
// from a call argument before its parameter type is known.
type VarType uint8

const (
	TypeInt VarType = iota
	TypeChar
	TypeArg
)

func (t VarType) String() string {
	switch t {
	case TypeChar:
		return "char"
	case TypeArg:
		return "arg"
	default:
		return "int"
	}
}

// varTypeOf maps a type keyword to a VarType.
func varTypeOf(kw lexer.Keyword) VarType {
	if kw == lexer.KeywordChar {
		return TypeChar
	}
	return TypeInt
}

// Variable is a named integer slot.
type Variable struct {
	Name  string  `cbor:"1,keyasint"`
	Type  VarType `cbor:"2,keyasint"`
	Value int     `cbor:"3,keyasint"`
}

// Param is one declared function parameter.
type Param struct {
	Name string  `cbor:"1,keyasint"`
	Type VarType `cbor:"2,keyasint"`
}

// Function is an entry in the function table.
type Function struct {
	Name       string  `cbor:"1,keyasint"`
	ReturnType VarType `cbor:"2,keyasint"`
	Params     []Param `cbor:"3,keyasint,omitempty"`
	Entry      int     `cbor:"4,keyasint"` // offset just past the closing ) of the parameter list
	Offset     int     `cbor:"5,keyasint"` // offset of the return type keyword
}

// Signature renders the function's declaration.
func (f *Function) Signature() string {
	s := f.ReturnType.String() + " " + f.Name + "("
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += p.Type.String() + " " + p.Name
	}
	return s + ")"
}

// ---------------------------------------------------------------------------
// Global and function tables
// ---------------------------------------------------------------------------

func (in *Interpreter) declareGlobal(v Variable) {
	if len(in.globals) >= in.limits.MaxGlobals {
		in.fail(ErrTableFull, "more than %d global variables", in.limits.MaxGlobals)
	}
	in.globals = append(in.globals, v)
}

func (in *Interpreter) declareFunction(f Function) {
	if len(in.funcs) >= in.limits.MaxFunctions {
		in.fail(ErrTableFull, "more than %d functions", in.limits.MaxFunctions)
	}
	in.funcs = append(in.funcs, f)
}

// findFunction returns the first function with the given name. Duplicate
// definitions are not rejected; the earliest one wins.
func (in *Interpreter) findFunction(name string) *Function {
	for i := range in.funcs {
		if in.funcs[i].Name == name {
			return &in.funcs[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Local stack and call stack
// ---------------------------------------------------------------------------

func (in *Interpreter) pushLocal(v Variable) {
	if len(in.locals) >= in.limits.MaxLocals {
		in.fail(ErrTooManyLocals, "more than %d local variables", in.limits.MaxLocals)
	}
	in.locals = append(in.locals, v)
}

// pushFrame records the current local stack height as the new frame base.
func (in *Interpreter) pushFrame() {
	if len(in.frames) >= in.limits.MaxCallDepth {
		in.fail(ErrNestedFunctions, "call depth exceeds %d", in.limits.MaxCallDepth)
	}
	in.frames = append(in.frames, len(in.locals))
}

// popFrame discards the current frame and rewinds the local stack to its
// base. Slot values are not cleared.
func (in *Interpreter) popFrame() {
	if len(in.frames) == 0 {
		in.fail(ErrReturnNoCall, "")
	}
	base := in.frames[len(in.frames)-1]
	in.frames = in.frames[:len(in.frames)-1]
	in.locals = in.locals[:base]
}

// frameBase returns the first local slot visible to the running call.
func (in *Interpreter) frameBase() int {
	if len(in.frames) == 0 {
		return len(in.locals)
	}
	return in.frames[len(in.frames)-1]
}

// truncateLocals drops block-scoped locals declared above height. It never
// cuts below the running frame's base.
func (in *Interpreter) truncateLocals(height int) {
	if base := in.frameBase(); height < base {
		height = base
	}
	if height < len(in.locals) {
		in.locals = in.locals[:height]
	}
}

// ---------------------------------------------------------------------------
// Symbol resolution: locals of the running call first, then globals
// ---------------------------------------------------------------------------

// lookup returns a pointer to the slot named name, or nil.
func (in *Interpreter) lookup(name string) *Variable {
	for i := len(in.locals) - 1; i >= in.frameBase(); i-- {
		if in.locals[i].Name == name {
			return &in.locals[i]
		}
	}
	for i := range in.globals {
		if in.globals[i].Name == name {
			return &in.globals[i]
		}
	}
	return nil
}

// isVariable reports whether name resolves on either tier.
func (in *Interpreter) isVariable(name string) bool {
	return in.lookup(name) != nil
}

// resolve returns the value of the variable named by tok.
func (in *Interpreter) resolve(tok lexer.Token) int {
	v := in.lookup(tok.Literal)
	if v == nil {
		in.failName(tok, ErrNotVariable)
	}
	return v.Value
}

// assign stores value into the variable named by tok.
func (in *Interpreter) assign(tok lexer.Token, value int) {
	v := in.lookup(tok.Literal)
	if v == nil {
		in.failName(tok, ErrNotVariable)
	}
	v.Value = value
}
