package lexer

import (
	"errors"
	"strings"
	"testing"
)

func TestLexerDelimiters(t *testing.T) {
	input := `+ - * / % = ; ( ) , { }`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenDelimiter, "+"},
		{TokenDelimiter, "-"},
		{TokenDelimiter, "*"},
		{TokenDelimiter, "/"},
		{TokenDelimiter, "%"},
		{TokenDelimiter, "="},
		{TokenDelimiter, ";"},
		{TokenDelimiter, "("},
		{TokenDelimiter, ")"},
		{TokenDelimiter, ","},
		{TokenBlock, "{"},
		{TokenBlock, "}"},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.Next()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
	if tok := l.Next(); !tok.IsFinished() {
		t.Errorf("final token = %v, want FINISHED", tok)
	}
}

func TestLexerRelationalOperators(t *testing.T) {
	tests := []struct {
		input string
		op    Op
	}{
		{"<", OpLT},
		{"<=", OpLE},
		{">", OpGT},
		{">=", OpGE},
		{"==", OpEQ},
		{"!=", OpNE},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).Next()
		if tok.Type != TokenDelimiter {
			t.Errorf("Lexer(%q): type = %v, want DELIMITER", tc.input, tok.Type)
		}
		if tok.Op != tc.op {
			t.Errorf("Lexer(%q): op = %v, want %v", tc.input, tok.Op, tc.op)
		}
		if tok.Literal != tc.input {
			t.Errorf("Lexer(%q): literal = %q", tc.input, tok.Literal)
		}
	}
}

func TestLexerAssignIsNotEquality(t *testing.T) {
	toks := Tokenize("a = b == c")
	if len(toks) != 6 {
		t.Fatalf("got %d tokens, want 6: %v", len(toks), toks)
	}
	if toks[1].Op != OpNone || toks[1].Literal != "=" {
		t.Errorf("toks[1] = %v, want plain '='", toks[1])
	}
	if toks[3].Op != OpEQ {
		t.Errorf("toks[3] = %v, want ==", toks[3])
	}
}

func TestLexerKeywordsAndIdentifiers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		kw    Keyword
	}{
		{"if", TokenKeyword, KeywordIf},
		{"else", TokenKeyword, KeywordElse},
		{"for", TokenKeyword, KeywordFor},
		{"do", TokenKeyword, KeywordDo},
		{"while", TokenKeyword, KeywordWhile},
		{"char", TokenKeyword, KeywordChar},
		{"int", TokenKeyword, KeywordInt},
		{"return", TokenKeyword, KeywordReturn},
		{"continue", TokenKeyword, KeywordContinue},
		{"break", TokenKeyword, KeywordBreak},
		{"end", TokenKeyword, KeywordEnd},
		{"If", TokenIdentifier, KeywordNone},
		{"INT", TokenIdentifier, KeywordNone},
		{"count_2", TokenIdentifier, KeywordNone},
		{"_tmp", TokenIdentifier, KeywordNone},
		{"integer", TokenIdentifier, KeywordNone},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).Next()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Keyword != tc.kw {
			t.Errorf("Lexer(%q): keyword = %v, want %v", tc.input, tok.Keyword, tc.kw)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	for _, input := range []string{"0", "42", "1234567"} {
		tok := NewLexer(input).Next()
		if tok.Type != TokenNumber || tok.Literal != input {
			t.Errorf("Lexer(%q) = %v, want NUMBER(%q)", input, tok, input)
		}
	}

	tok := NewLexer("12ab").Next()
	if tok.Type != TokenError || !errors.Is(tok.Err, ErrUnexpectedChar) {
		t.Errorf("Lexer(12ab) = %v, want malformed number error", tok)
	}
}

func TestLexerStrings(t *testing.T) {
	tok := NewLexer(`"hello, world" x`).Next()
	if tok.Type != TokenString {
		t.Fatalf("type = %v, want STRING", tok.Type)
	}
	if tok.Literal != "hello, world" {
		t.Errorf("literal = %q", tok.Literal)
	}

	// No de-escaping: the backslash is copied.
	tok = NewLexer(`"a\n"`).Next()
	if tok.Literal != `a\n` {
		t.Errorf("literal = %q, want verbatim copy", tok.Literal)
	}

	tok = NewLexer("\"open\nx").Next()
	if tok.Type != TokenError || !errors.Is(tok.Err, ErrUnterminatedString) {
		t.Errorf("unterminated string = %v", tok)
	}
}

func TestLexerComments(t *testing.T) {
	input := "/* block { */ a // line }\n b /* multi\nline */ c"
	var lits []string
	for _, tok := range Tokenize(input) {
		if tok.IsFinished() {
			break
		}
		lits = append(lits, tok.Literal)
	}
	if strings.Join(lits, " ") != "a b c" {
		t.Errorf("tokens = %v, want [a b c]", lits)
	}

	toks := Tokenize("a /* never closed")
	last := toks[len(toks)-1]
	if last.Type != TokenError || !errors.Is(last.Err, ErrUnterminatedComment) {
		t.Errorf("last token = %v, want unterminated comment", last)
	}
}

func TestLexerTokenTooLong(t *testing.T) {
	l := NewLexer(strings.Repeat("x", 81))
	tok := l.Next()
	if tok.Type != TokenError || !errors.Is(tok.Err, ErrTokenTooLong) {
		t.Errorf("81-byte name = %v, want ErrTokenTooLong", tok)
	}

	l = NewLexer(strings.Repeat("x", 10))
	l.SetMaxTokenLen(8)
	if tok := l.Next(); !errors.Is(tok.Err, ErrTokenTooLong) {
		t.Errorf("10-byte name with limit 8 = %v, want ErrTokenTooLong", tok)
	}

	l = NewLexer(strings.Repeat("x", 80))
	if tok := l.Next(); tok.Type != TokenIdentifier {
		t.Errorf("80-byte name = %v, want IDENTIFIER", tok.Type)
	}
}

func TestLexerPushBack(t *testing.T) {
	l := NewLexer("alpha  beta")
	first := l.Next()
	second := l.Next()
	l.PushBack()
	again := l.Next()
	if again.Literal != second.Literal || again.Pos != second.Pos {
		t.Errorf("after PushBack got %v, want %v", again, second)
	}
	if first.Literal != "alpha" {
		t.Errorf("first = %v", first)
	}
}

func TestLexerSeekAndPositions(t *testing.T) {
	src := "int a;\nint main() {\n  return a;\n}\n"
	l := NewLexer(src)
	for {
		tok := l.Next()
		if tok.Literal == "return" {
			if tok.Pos.Line != 3 || tok.Pos.Column != 3 {
				t.Errorf("return at %v, want 3:3", tok.Pos)
			}
			break
		}
		if tok.IsFinished() {
			t.Fatal("did not find return")
		}
	}

	off := strings.Index(src, "main")
	l.Seek(off)
	if tok := l.Next(); tok.Literal != "main" || tok.End != off+4 {
		t.Errorf("after Seek got %v end=%d", tok, tok.End)
	}
}

func TestLexerCharConst(t *testing.T) {
	l := NewLexer("'A' + 1")
	if tok := l.Next(); !tok.Is("'") {
		t.Fatalf("first token = %v, want quote", tok)
	}
	c, err := l.CharConst()
	if err != nil {
		t.Fatalf("CharConst: %v", err)
	}
	if c != 'A' {
		t.Errorf("CharConst = %d, want %d", c, 'A')
	}
	if tok := l.Next(); tok.Literal != "+" {
		t.Errorf("next = %v, want +", tok)
	}

	l = NewLexer("'AB'")
	l.Next()
	if _, err := l.CharConst(); !errors.Is(err, ErrUnterminatedChar) {
		t.Errorf("CharConst('AB') err = %v", err)
	}
}

func TestLexerFinishedOnNul(t *testing.T) {
	toks := Tokenize("a\x00b")
	if len(toks) != 2 || !toks[1].IsFinished() {
		t.Errorf("tokens = %v, want [a FINISHED]", toks)
	}
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	for _, input := range []string{"@", "!", "#", "a.b"} {
		toks := Tokenize(input)
		last := toks[len(toks)-1]
		if last.Type != TokenError || !errors.Is(last.Err, ErrUnexpectedChar) {
			t.Errorf("Tokenize(%q) last = %v, want unexpected character", input, last)
		}
	}
}
