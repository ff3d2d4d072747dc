// Package lexer tokenizes Little C source text on demand.
//
// The lexer keeps a single cursor into the source buffer. Callers move the
// cursor with Next, PushBack and Seek; there is no retained token stream.
package lexer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultMaxTokenLen is the classic token buffer size.
const DefaultMaxTokenLen = 80

var (
	ErrTokenTooLong        = errors.New("token too long")
	ErrUnterminatedString  = errors.New("unterminated string literal")
	ErrUnterminatedComment = errors.New("unterminated comment")
	ErrUnterminatedChar    = errors.New("unterminated character constant")
	ErrUnexpectedChar      = errors.New("unexpected character")
)

// ---------------------------------------------------------------------------
// Lexer: cursor-based tokenizer
// ---------------------------------------------------------------------------

// Lexer tokenizes Little C source code.
type Lexer struct {
	input  string
	pos    int   // cursor
	last   int   // start of the most recent token
	maxLen int   // longest accepted lexeme
	lines  []int // offsets of line starts
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:  input,
		maxLen: DefaultMaxTokenLen,
		lines:  []int{0},
	}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			l.lines = append(l.lines, i+1)
		}
	}
	return l
}

// SetMaxTokenLen sets the longest lexeme the lexer accepts. Values <= 0
// restore the default.
func (l *Lexer) SetMaxTokenLen(n int) {
	if n <= 0 {
		n = DefaultMaxTokenLen
	}
	l.maxLen = n
}

// Source returns the buffer being scanned.
func (l *Lexer) Source() string {
	return l.input
}

// Offset returns the cursor.
func (l *Lexer) Offset() int {
	return l.pos
}

// Seek moves the cursor. A following PushBack returns to off.
func (l *Lexer) Seek(off int) {
	if off < 0 {
		off = 0
	}
	if off > len(l.input) {
		off = len(l.input)
	}
	l.pos = off
	l.last = off
}

// PushBack rewinds the cursor by exactly one token.
func (l *Lexer) PushBack() {
	l.pos = l.last
}

// Position converts a byte offset into a line/column position.
func (l *Lexer) Position(off int) Position {
	line := sort.Search(len(l.lines), func(i int) bool { return l.lines[i] > off }) - 1
	if line < 0 {
		line = 0
	}
	return Position{
		Offset: off,
		Line:   line + 1,
		Column: off - l.lines[line] + 1,
	}
}

// ch returns the byte at off, or 0 past the end.
func (l *Lexer) ch(off int) byte {
	if off >= len(l.input) {
		return 0
	}
	return l.input[off]
}

// Next returns the next token and advances the cursor past it.
func (l *Lexer) Next() Token {
	if tok, ok := l.skipWhitespaceAndComments(); !ok {
		return tok
	}

	start := l.pos
	l.last = start
	c := l.ch(start)

	switch {
	case c == 0:
		return l.token(Token{Type: TokenDelimiter, Keyword: KeywordFinished}, start, start)

	case c == '{' || c == '}':
		l.pos++
		return l.token(Token{Type: TokenBlock, Literal: string(c)}, start, l.pos)

	case c == '<' || c == '>' || c == '!' || (c == '=' && l.ch(start+1) == '='):
		if tok, ok := l.readRelational(start); ok {
			return tok
		}
		l.pos++
		return l.errorToken(start, ErrUnexpectedChar, fmt.Sprintf("unexpected character %q", c))

	case strings.IndexByte("+-*^/%=;(),'", c) >= 0:
		l.pos++
		return l.token(Token{Type: TokenDelimiter, Literal: string(c)}, start, l.pos)

	case c == '"':
		return l.readString(start)

	case isDigit(c):
		return l.readWord(start, TokenNumber)

	case isLetter(c):
		return l.readWord(start, TokenTemp)

	default:
		l.pos++
		return l.errorToken(start, ErrUnexpectedChar, fmt.Sprintf("unexpected character %q", c))
	}
}

// skipWhitespaceAndComments skips whitespace, /* */ and // comments.
// It returns ok=false with an error token for an unterminated comment.
func (l *Lexer) skipWhitespaceAndComments() (Token, bool) {
	for {
		for isSpace(l.ch(l.pos)) {
			l.pos++
		}

		if l.ch(l.pos) == '/' && l.ch(l.pos+1) == '*' {
			start := l.pos
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				l.last = start
				l.pos = len(l.input)
				return l.errorToken(start, ErrUnterminatedComment, "unterminated comment"), false
			}
			l.pos += end + 4
			continue
		}

		if l.ch(l.pos) == '/' && l.ch(l.pos+1) == '/' {
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
			continue
		}

		return Token{}, true
	}
}

// readRelational reads < <= > >= == !=.
func (l *Lexer) readRelational(start int) (Token, bool) {
	c, next := l.ch(start), l.ch(start+1)
	var op Op
	width := 1
	switch c {
	case '<':
		op = OpLT
		if next == '=' {
			op, width = OpLE, 2
		}
	case '>':
		op = OpGT
		if next == '=' {
			op, width = OpGE, 2
		}
	case '=':
		op, width = OpEQ, 2
	case '!':
		if next != '=' {
			return Token{}, false
		}
		op, width = OpNE, 2
	}
	l.pos = start + width
	return l.token(Token{Type: TokenDelimiter, Op: op, Literal: l.input[start:l.pos]}, start, l.pos), true
}

// readString reads a double-quoted literal. Contents are copied verbatim.
func (l *Lexer) readString(start int) Token {
	i := start + 1
	for i < len(l.input) && l.input[i] != '"' && l.input[i] != '\n' && l.input[i] != '\r' && l.input[i] != 0 {
		i++
	}
	if l.ch(i) != '"' {
		l.pos = i
		return l.errorToken(start, ErrUnterminatedString, "unterminated string literal")
	}
	l.pos = i + 1
	if i-(start+1) > l.maxLen {
		return l.errorToken(start, ErrTokenTooLong, fmt.Sprintf("string literal longer than %d bytes", l.maxLen))
	}
	return l.token(Token{Type: TokenString, Literal: l.input[start+1 : i]}, start, l.pos)
}

// readWord reads a number or a name. Both run until the next delimiter.
func (l *Lexer) readWord(start int, typ TokenType) Token {
	i := start
	for i < len(l.input) && !isDelim(l.input[i]) {
		i++
	}
	l.pos = i
	literal := l.input[start:i]
	if len(literal) > l.maxLen {
		return l.errorToken(start, ErrTokenTooLong, fmt.Sprintf("token %.20q... longer than %d bytes", literal, l.maxLen))
	}

	if typ == TokenNumber {
		for j := 0; j < len(literal); j++ {
			if !isDigit(literal[j]) {
				return l.errorToken(start, ErrUnexpectedChar, fmt.Sprintf("malformed number %q", literal))
			}
		}
		return l.token(Token{Type: TokenNumber, Literal: literal}, start, i)
	}

	for j := 0; j < len(literal); j++ {
		if !isLetter(literal[j]) && !isDigit(literal[j]) {
			return l.errorToken(start, ErrUnexpectedChar, fmt.Sprintf("unexpected character %q in name", literal[j]))
		}
	}
	if kw := LookupKeyword(literal); kw != KeywordNone {
		return l.token(Token{Type: TokenKeyword, Keyword: kw, Literal: literal}, start, i)
	}
	return l.token(Token{Type: TokenIdentifier, Literal: literal}, start, i)
}

// CharConst reads the body of a character constant. The opening quote has
// already been returned by Next as a delimiter; the next byte is taken raw
// and must be followed by a closing quote.
func (l *Lexer) CharConst() (int, error) {
	if l.pos+1 >= len(l.input) || l.input[l.pos+1] != '\'' {
		return 0, ErrUnterminatedChar
	}
	c := l.input[l.pos]
	l.pos += 2
	return int(c), nil
}

func (l *Lexer) token(tok Token, start, end int) Token {
	tok.Pos = l.Position(start)
	tok.End = end
	return tok
}

func (l *Lexer) errorToken(start int, err error, msg string) Token {
	return l.token(Token{Type: TokenError, Literal: msg, Err: err}, start, l.pos)
}

// Helper functions

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isDelim reports whether c ends a number or name.
func isDelim(c byte) bool {
	return strings.IndexByte(" !;,+-<>'/*%^=(){}\"", c) >= 0 || isSpace(c) || c == 0
}

// Tokenize returns all tokens from the input, ending with the FINISHED
// token or the first error.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.IsFinished() || tok.Type == TokenError {
			break
		}
	}
	return tokens
}
