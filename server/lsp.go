package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/littlec/lexer"
	"github.com/chazu/littlec/lib"
	"github.com/chazu/littlec/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "littlec-lsp"

// LspServer provides editor features for Little C source files.
type LspServer struct {
	pool   *RunPool // analysis runs one document at a time
	limits vm.Limits

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
	log     commonlog.Logger
}

// NewLSP creates a new LSP server.
func NewLSP(limits vm.Limits) *LspServer {
	s := &LspServer{
		pool:    NewRunPool(1),
		limits:  limits,
		docs:    make(map[string]string),
		version: "0.1.0",
		log:     commonlog.GetLogger("littlec.lsp"),
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("Little C LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.pool.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// analyze prescans text on the analysis pool.
func (s *LspServer) analyze(text string) (*analysis, error) {
	result, err := s.pool.Do(context.Background(), func(context.Context) any {
		return analyzeSource(text, s.limits)
	})
	if err != nil {
		return nil, err
	}
	return result.(*analysis), nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	a, err := s.analyze(text)
	if err != nil {
		return nil, err
	}
	return a.complete(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	a, err := s.analyze(text)
	if err != nil {
		return nil, nil
	}
	return a.hover(word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	a, err := s.analyze(text)
	if err != nil {
		return nil, nil
	}
	r, ok := a.decls[word]
	if !ok {
		return nil, nil
	}
	return []protocol.Location{{URI: uri, Range: r}}, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	var locations []protocol.Location
	for _, r := range references(text, word) {
		locations = append(locations, protocol.Location{URI: uri, Range: r})
	}
	return locations, nil
}

// --- Analysis ---

// analysis is what one prescan of a document reveals.
type analysis struct {
	funcs   []vm.Function
	globals []vm.Variable
	decls   map[string]protocol.Range // top-level declarations by name
	err     *vm.Error
}

func analyzeSource(text string, limits vm.Limits) *analysis {
	a := &analysis{decls: declarations(text)}

	in, err := vm.NewInterpreter(text, vm.Config{Limits: limits})
	if err == nil {
		err = in.Prescan()
	}
	if err != nil {
		if !errors.As(err, &a.err) {
			a.err = &vm.Error{Kind: vm.ErrSyntax, Msg: err.Error()}
		}
		return a
	}
	a.funcs = in.Functions()
	a.globals = in.Globals()
	return a
}

func (a *analysis) complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if seen[label] || !strings.HasPrefix(label, prefix) {
			return
		}
		seen[label] = true
		labelCopy := label
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &labelCopy,
		})
	}

	for _, f := range a.funcs {
		add(f.Name, protocol.CompletionItemKindFunction, f.Signature())
	}
	for _, g := range a.globals {
		add(g.Name, protocol.CompletionItemKindVariable, "global "+g.Type.String())
	}
	for _, name := range lib.Names() {
		doc, _ := lib.Doc(name)
		add(name, protocol.CompletionItemKindFunction, doc)
	}
	for _, kw := range lexer.Keywords() {
		add(kw, protocol.CompletionItemKindKeyword, "keyword")
	}
	return items
}

func (a *analysis) hover(word string) *protocol.Hover {
	var text string
	for _, f := range a.funcs {
		if f.Name == word {
			text = fmt.Sprintf("```c\n%s\n```", f.Signature())
			break
		}
	}
	if text == "" {
		for _, g := range a.globals {
			if g.Name == word {
				text = fmt.Sprintf("```c\n%s %s\n```\n\nglobal variable", g.Type, g.Name)
				break
			}
		}
	}
	if text == "" {
		if doc, ok := lib.Doc(word); ok {
			text = fmt.Sprintf("**%s** (library)\n\n%s", word, doc)
		}
	}
	if text == "" && lexer.LookupKeyword(word) != lexer.KeywordNone {
		text = fmt.Sprintf("**%s** keyword", word)
	}
	if text == "" {
		return nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: text,
		},
	}
}

// diagnostics converts a prescan error into an LSP diagnostic.
func (a *analysis) diagnostics() []protocol.Diagnostic {
	if a.err == nil {
		return []protocol.Diagnostic{}
	}
	severity := protocol.DiagnosticSeverityError
	source := lspName
	code := protocol.IntegerOrString{Value: a.err.Kind.String()}

	var r protocol.Range
	if a.err.Pos.Line > 0 {
		start := protocol.Position{
			Line:      protocol.UInteger(a.err.Pos.Line - 1),
			Character: protocol.UInteger(a.err.Pos.Column - 1),
		}
		end := start
		end.Character += protocol.UInteger(len(a.err.Name))
		r = protocol.Range{Start: start, End: end}
	}
	return []protocol.Diagnostic{{
		Range:    r,
		Severity: &severity,
		Code:     &code,
		Source:   &source,
		Message:  a.err.Msg,
	}}
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	a, err := s.analyze(text)
	if err != nil {
		s.log.Errorf("analyzing %s: %v", uri, err)
		return
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: a.diagnostics(),
	})
}

// --- Token scans ---

// scanTokens calls fn for every token in text, skipping character
// constants. It stops at the end of the text or at the first lexer error.
func scanTokens(text string, fn func(tok lexer.Token)) {
	l := lexer.NewLexer(text)
	for {
		tok := l.Next()
		if tok.IsFinished() || tok.Type == lexer.TokenError {
			return
		}
		if tok.Is("'") {
			if _, err := l.CharConst(); err != nil {
				return
			}
			continue
		}
		fn(tok)
	}
}

// declarations finds the top-level functions and globals in text.
func declarations(text string) map[string]protocol.Range {
	decls := make(map[string]protocol.Range)
	depth, parens := 0, 0
	declaring := false // inside "type name, name ..." at the top level
	scanTokens(text, func(tok lexer.Token) {
		switch {
		case tok.Is("{"):
			depth++
			declaring = false
		case tok.Is("}"):
			depth--
		case depth != 0:
		case tok.Is("("):
			parens++
			declaring = false
		case tok.Is(")"):
			parens--
		case parens != 0:
		case tok.IsType():
			declaring = true
		case tok.Is(";"):
			declaring = false
		case declaring && tok.Type == lexer.TokenIdentifier:
			if _, dup := decls[tok.Literal]; !dup {
				decls[tok.Literal] = tokenRange(tok)
			}
		}
	})
	return decls
}

// references finds every use of name as an identifier.
func references(text, name string) []protocol.Range {
	var refs []protocol.Range
	scanTokens(text, func(tok lexer.Token) {
		if tok.Type == lexer.TokenIdentifier && tok.Literal == name {
			refs = append(refs, tokenRange(tok))
		}
	})
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].Start.Line != refs[j].Start.Line {
			return refs[i].Start.Line < refs[j].Start.Line
		}
		return refs[i].Start.Character < refs[j].Start.Character
	})
	return refs
}

func tokenRange(tok lexer.Token) protocol.Range {
	start := protocol.Position{
		Line:      protocol.UInteger(tok.Pos.Line - 1),
		Character: protocol.UInteger(tok.Pos.Column - 1),
	}
	end := start
	end.Character += protocol.UInteger(tok.End - tok.Pos.Offset)
	return protocol.Range{Start: start, End: end}
}

// --- Text extraction helpers ---

// extractPrefix returns the identifier fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isIdentByte(line[end]) {
		end++
	}
	return line[start:end]
}

func isIdentByte(c byte) bool {
	ch := rune(c)
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
