package template

import "strings"

// Reference is a single named-parameter occurrence in a template.
type Reference struct {
	Path     string
	Segments []string
	Offset   int
	Pos      Position
}

// FormatToken is a single format-token occurrence in a template.
type FormatToken struct {
	Kind   FormatKind
	Offset int
	Pos    Position
}

// Parsed holds the placeholder references extracted from a template.
// It is immutable once returned and safe to share between goroutines.
type Parsed struct {
	Text string

	// Params is the ordered set of distinct paths, by first appearance.
	Params []string

	// References holds every named occurrence, duplicates included.
	References []Reference

	// Formats holds every format-token occurrence in text order.
	Formats []FormatToken

	tokens []Token
}

// Parse extracts named-parameter and format-token references from text.
func Parse(text string) *Parsed {
	return ParseFile(text, "")
}

// ParseFile is like Parse but records file in every Position.
func ParseFile(text, file string) *Parsed {
	tokens := NewLexer(text, file).Tokenize()
	p := &Parsed{Text: text, tokens: tokens}

	seen := make(map[string]struct{})
	for _, tok := range tokens {
		switch tok.Type {
		case TokenParam:
			p.References = append(p.References, Reference{
				Path:     tok.Value,
				Segments: strings.Split(tok.Value, "."),
				Offset:   tok.Offset,
				Pos:      tok.Pos,
			})
			if _, ok := seen[tok.Value]; !ok {
				seen[tok.Value] = struct{}{}
				p.Params = append(p.Params, tok.Value)
			}
		case TokenFormat:
			p.Formats = append(p.Formats, FormatToken{
				Kind:   FormatKind(tok.Value[1]),
				Offset: tok.Offset,
				Pos:    tok.Pos,
			})
		}
	}
	return p
}

// HasFormats reports whether the template contains any format token.
func (p *Parsed) HasFormats() bool {
	return len(p.Formats) > 0
}
