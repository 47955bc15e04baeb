// Package template resolves SQL statement templates into executable SQL.
//
// Two placeholder families are recognised:
//
//	:name, :a.b.c     named parameters, bound as driver positional arguments
//	%s, %I, %L        format tokens, substituted as text before binding
//
// Scanning is purely lexical. Placeholders inside string literals and
// comments are recognised like any other, so ':x' inside a quoted string
// becomes a parameter. "::" casts and "%%" escapes are never placeholders.
package template

import (
	"strings"
	"unicode/utf8"
)

// TokenType identifies the type of token.
type TokenType int

// TokenType constants for template token types.
const (
	TokenText   TokenType = iota // Literal SQL text
	TokenParam                   // :name or :a.b
	TokenFormat                  // %s, %I, %L
	TokenEOF                     // End of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "TEXT"
	case TokenParam:
		return "PARAM"
	case TokenFormat:
		return "FORMAT"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// FormatKind identifies how a format token consumes its value.
type FormatKind byte

// FormatKind constants, named after the verb that selects them.
const (
	FormatRaw        FormatKind = 's' // inserted verbatim, rescanned
	FormatIdentifier FormatKind = 'I' // quoted as an identifier
	FormatLiteral    FormatKind = 'L' // quoted as a literal
)

// Token represents a lexical token.
// For TokenParam, Value is the dotted path without the sigil.
// For TokenFormat, Value is the full token text (e.g. "%L").
type Token struct {
	Type   TokenType
	Value  string
	Offset int // byte offset of the token in the input
	Pos    Position
}

// Lexer tokenizes a statement template.
type Lexer struct {
	input    string
	file     string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current token
	lastCol  int // column at start of current token
	lastPos  int // offset at start of current token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input, file string) *Lexer {
	return &Lexer{
		input: input,
		file:  file,
		line:  1,
		col:   1,
	}
}

// Tokenize converts the input into a slice of tokens ending with TokenEOF.
// Every input is valid: anything that is not a placeholder is text.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

func (l *Lexer) nextToken() Token {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Offset: l.pos, Pos: l.position()}
	}
	if n := paramLen(l.input, l.pos); n > 0 {
		return l.emit(TokenParam, n, 1)
	}
	if formatAt(l.input, l.pos) {
		return l.emit(TokenFormat, 2, 0)
	}
	return l.scanText()
}

// scanText scans literal text until a placeholder or EOF.
func (l *Lexer) scanText() Token {
	l.markStart()
	for l.pos < len(l.input) {
		if paramLen(l.input, l.pos) > 0 || formatAt(l.input, l.pos) {
			break
		}
		if strings.HasPrefix(l.input[l.pos:], "%%") {
			l.advance()
		}
		l.advance()
	}
	return Token{
		Type:   TokenText,
		Value:  l.input[l.lastPos:l.pos],
		Offset: l.lastPos,
		Pos:    l.startPosition(),
	}
}

// emit consumes n bytes as a token of type typ. The token value drops the
// first skip bytes (the sigil for params).
func (l *Lexer) emit(typ TokenType, n, skip int) Token {
	l.markStart()
	end := l.pos + n
	for l.pos < end {
		l.advance()
	}
	return Token{
		Type:   typ,
		Value:  l.input[l.lastPos+skip : end],
		Offset: l.lastPos,
		Pos:    l.startPosition(),
	}
}

// paramLen returns the byte length of a named parameter (sigil included)
// starting at s[i], or 0 if none starts there.
func paramLen(s string, i int) int {
	if s[i] != ':' {
		return 0
	}
	// "::" cast on either side
	if i > 0 && s[i-1] == ':' {
		return 0
	}
	j := i + 1
	if j >= len(s) || !isIdentStart(s[j]) {
		return 0
	}
	for {
		for j < len(s) && isIdentPart(s[j]) {
			j++
		}
		if j+1 < len(s) && s[j] == '.' && isIdentStart(s[j+1]) {
			j++
			continue
		}
		return j - i
	}
}

// formatAt reports whether a format token starts at s[i].
// The caller must have skipped "%%" escapes.
func formatAt(s string, i int) bool {
	if s[i] != '%' || i+1 >= len(s) {
		return false
	}
	switch FormatKind(s[i+1]) {
	case FormatRaw, FormatIdentifier, FormatLiteral:
		return true
	}
	return false
}

// nextFormat returns the offset of the first format token at or after from,
// skipping "%%" escapes, or -1.
func nextFormat(s string, from int) int {
	for i := from; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			i++
			continue
		}
		if formatAt(s, i) {
			return i
		}
	}
	return -1
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

// advance moves to the next rune, updating position tracking.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// markStart records the start position for the current token.
func (l *Lexer) markStart() {
	l.lastLine = l.line
	l.lastCol = l.col
	l.lastPos = l.pos
}

func (l *Lexer) position() Position {
	return Position{File: l.file, Line: l.line, Column: l.col}
}

func (l *Lexer) startPosition() Position {
	return Position{File: l.file, Line: l.lastLine, Column: l.lastCol}
}
