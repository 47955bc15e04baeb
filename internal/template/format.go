package template

import (
	"fmt"
	"reflect"
	"strings"
)

// Escaper is the driver's quoting primitive used for %I and %L tokens.
type Escaper interface {
	QuoteIdentifier(name string) string
	QuoteLiteral(v any) string
}

// segment is a run of output text. Only scannable segments are searched
// for tokens; quoted insertions are frozen.
type segment struct {
	text     string
	scanable bool
}

// ResolveFormats substitutes format tokens in text with values, in the
// order values are given.
//
// Each value fills the first unconsumed token at or after the previous
// substitution. A %s value is spliced in verbatim and the scan resumes at its
// start, so tokens it introduces are filled by later values. %I and %L values
// are quoted by esc and never rescanned.
//
// Tokens left without a value stay in the output; surplus values are
// ignored. "%%" collapses to "%" in template and fragment text.
func ResolveFormats(text string, values []any, esc Escaper) string {
	segs := []segment{{text: text, scanable: true}}
	si, off := 0, 0

	for _, v := range values {
		at := -1
		for si < len(segs) {
			if segs[si].scanable {
				if at = nextFormat(segs[si].text, off); at >= 0 {
					break
				}
			}
			si++
			off = 0
		}
		if at < 0 {
			break
		}

		cur := segs[si].text
		before, after := cur[:at], cur[at+2:]
		switch FormatKind(cur[at+1]) {
		case FormatRaw:
			segs[si].text = before + rawText(v) + after
			off = len(before)
		case FormatIdentifier:
			segs = splice(segs, si, before, quoteEach(v, func(e any) string {
				return esc.QuoteIdentifier(rawText(e))
			}), after)
			si, off = si+2, 0
		case FormatLiteral:
			segs = splice(segs, si, before, quoteEach(v, esc.QuoteLiteral), after)
			si, off = si+2, 0
		}
	}

	var sb strings.Builder
	for _, s := range segs {
		if s.scanable {
			sb.WriteString(strings.ReplaceAll(s.text, "%%", "%"))
		} else {
			sb.WriteString(s.text)
		}
	}
	return sb.String()
}

// splice replaces segs[i] with before, a frozen quoted segment, and after.
func splice(segs []segment, i int, before, quoted, after string) []segment {
	out := make([]segment, 0, len(segs)+2)
	out = append(out, segs[:i]...)
	out = append(out,
		segment{text: before, scanable: true},
		segment{text: quoted},
		segment{text: after, scanable: true},
	)
	return append(out, segs[i+1:]...)
}

// quoteEach quotes v, expanding slices and arrays to a comma-separated list.
func quoteEach(v any, quote func(any) string) string {
	if elems, ok := listElems(v); ok {
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = quote(e)
		}
		return strings.Join(parts, ",")
	}
	return quote(v)
}

// rawText renders v for verbatim insertion.
func rawText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	}
	if elems, ok := listElems(v); ok {
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = rawText(e)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

// listElems returns the elements of a slice or array value other than []byte.
func listElems(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
