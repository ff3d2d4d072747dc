package lexer

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types for the Little C lexer
// ---------------------------------------------------------------------------

// TokenType classifies a lexeme.
type TokenType int

const (
	TokenDelimiter  TokenType = iota // ; , ( ) + - * / % = ' and relational ops
	TokenIdentifier                  // variable or function name
	TokenNumber                      // decimal integer literal
	TokenKeyword                     // entry in the keyword table
	TokenTemp                        // name not yet classified
	TokenString                      // "double quoted"
	TokenBlock                       // { or }
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenDelimiter:  "DELIMITER",
	TokenIdentifier: "IDENTIFIER",
	TokenNumber:     "NUMBER",
	TokenKeyword:    "KEYWORD",
	TokenTemp:       "TEMP",
	TokenString:     "STRING",
	TokenBlock:      "BLOCK",
	TokenError:      "ERROR",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Keyword identifies a reserved word. KeywordArg marks variables bound from
// call arguments and never appears in source; KeywordFinished marks the end
// of the buffer.
type Keyword int

const (
	KeywordNone Keyword = iota
	KeywordArg
	KeywordChar
	KeywordInt
	KeywordIf
	KeywordElse
	KeywordFor
	KeywordDo
	KeywordWhile
	KeywordReturn
	KeywordContinue
	KeywordBreak
	KeywordEnd
	KeywordFinished
)

var keywordNames = map[Keyword]string{
	KeywordNone:     "",
	KeywordArg:      "arg",
	KeywordChar:     "char",
	KeywordInt:      "int",
	KeywordIf:       "if",
	KeywordElse:     "else",
	KeywordFor:      "for",
	KeywordDo:       "do",
	KeywordWhile:    "while",
	KeywordReturn:   "return",
	KeywordContinue: "continue",
	KeywordBreak:    "break",
	KeywordEnd:      "end",
	KeywordFinished: "<finished>",
}

func (k Keyword) String() string {
	if name, ok := keywordNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Keyword(%d)", k)
}

// IsType reports whether k names a data type.
func (k Keyword) IsType() bool {
	return k == KeywordChar || k == KeywordInt
}

// keywords is the fixed keyword table. Lookups are case-sensitive.
var keywords = map[string]Keyword{
	"if":       KeywordIf,
	"else":     KeywordElse,
	"for":      KeywordFor,
	"do":       KeywordDo,
	"while":    KeywordWhile,
	"char":     KeywordChar,
	"int":      KeywordInt,
	"return":   KeywordReturn,
	"continue": KeywordContinue,
	"break":    KeywordBreak,
	"end":      KeywordEnd,
}

// LookupKeyword returns the keyword for name, or KeywordNone.
func LookupKeyword(name string) Keyword {
	return keywords[name]
}

// Keywords returns the keyword table's spellings, sorted.
func Keywords() []string {
	names := make([]string, 0, len(keywords))
	for name := range keywords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Op identifies a relational operator.
type Op int

const (
	OpNone Op = iota
	OpLT      // <
	OpLE      // <=
	OpGT      // >
	OpGE      // >=
	OpEQ      // ==
	OpNE      // !=
)

var opNames = map[Op]string{
	OpNone: "",
	OpLT:   "<",
	OpLE:   "<=",
	OpGT:   ">",
	OpGE:   ">=",
	OpEQ:   "==",
	OpNE:   "!=",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Position is a location in the source buffer.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a classified lexeme. Tokens are transient: the interpreter reads
// one, acts on it and moves on.
type Token struct {
	Type    TokenType
	Keyword Keyword // set for TokenKeyword and for the end-of-buffer token
	Op      Op      // set for relational delimiters
	Literal string  // raw text; string literals without their quotes
	Pos     Position
	End     int   // offset just past the lexeme
	Err     error // set for TokenError
}

// IsFinished reports whether t marks the end of the buffer.
func (t Token) IsFinished() bool {
	return t.Keyword == KeywordFinished
}

// Is reports whether t is the delimiter or block token spelled s.
func (t Token) Is(s string) bool {
	return (t.Type == TokenDelimiter || t.Type == TokenBlock) && t.Literal == s
}

// IsType reports whether t is a type keyword.
func (t Token) IsType() bool {
	return t.Type == TokenKeyword && t.Keyword.IsType()
}

func (t Token) String() string {
	if t.IsFinished() {
		return "FINISHED"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}
