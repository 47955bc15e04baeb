package template

import (
	"reflect"
	"strings"
)

// Params is a parameter bag. Values may be nested maps or structs, which
// dotted paths walk one segment at a time.
type Params map[string]any

// PlaceholderFunc renders the driver-native placeholder for a 1-based index.
type PlaceholderFunc func(index int) string

// Bound is a template with every named parameter replaced by a positional
// placeholder.
type Bound struct {
	SQL string

	// Args holds resolved values; Args[i] belongs to placeholder i+1.
	Args []any

	// Names holds the path bound to each placeholder, index-aligned with Args.
	Names []string
}

// Bind parses text and binds its named parameters against params.
func Bind(text string, params Params, placeholder PlaceholderFunc) (*Bound, error) {
	return BindParsed(Parse(text), params, placeholder)
}

// BindParsed binds an already parsed template. If any referenced path is
// unresolved it returns a *MissingParameterError naming all of them and no
// SQL.
func BindParsed(p *Parsed, params Params, placeholder PlaceholderFunc) (*Bound, error) {
	values := make(map[string]any, len(p.Params))
	var missing []string
	for _, path := range p.Params {
		v, ok := Lookup(params, path)
		if !ok {
			missing = append(missing, path)
			continue
		}
		values[path] = v
	}
	if len(missing) > 0 {
		return nil, &MissingParameterError{Missing: missing}
	}

	b := &Bound{
		Args:  make([]any, 0, len(p.Params)),
		Names: make([]string, 0, len(p.Params)),
	}
	index := make(map[string]int, len(p.Params))

	var sb strings.Builder
	sb.Grow(len(p.Text) + 2*len(p.References))
	for _, tok := range p.tokens {
		switch tok.Type {
		case TokenParam:
			n, ok := index[tok.Value]
			if !ok {
				b.Args = append(b.Args, values[tok.Value])
				b.Names = append(b.Names, tok.Value)
				n = len(b.Args)
				index[tok.Value] = n
			}
			sb.WriteString(placeholder(n))
		case TokenText, TokenFormat:
			sb.WriteString(tok.Value)
		}
	}
	b.SQL = sb.String()
	return b, nil
}

// Lookup resolves a dotted path against params. It reports false when any
// segment is absent or cannot be walked. A present key holding nil resolves
// to nil.
func Lookup(params Params, path string) (any, bool) {
	segments := strings.Split(path, ".")
	v, ok := params[segments[0]]
	if !ok {
		return nil, false
	}
	for _, seg := range segments[1:] {
		v, ok = child(v, seg)
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// child returns the member named seg of v.
func child(v any, seg string) (any, bool) {
	switch m := v.(type) {
	case Params:
		c, ok := m[seg]
		return c, ok
	case map[string]any:
		c, ok := m[seg]
		return c, ok
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		c := rv.MapIndex(reflect.ValueOf(seg).Convert(rv.Type().Key()))
		if !c.IsValid() {
			return nil, false
		}
		return c.Interface(), true
	case reflect.Struct:
		return structField(rv, seg)
	default:
		return nil, false
	}
}

// structField finds an exported field by db tag, json tag, or name.
func structField(rv reflect.Value, seg string) (any, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if tagName(f.Tag.Get("db")) == seg || tagName(f.Tag.Get("json")) == seg {
			return rv.Field(i).Interface(), true
		}
	}
	if f, ok := rt.FieldByName(seg); ok && f.IsExported() {
		fv, err := rv.FieldByIndexErr(f.Index)
		if err != nil {
			return nil, false
		}
		return fv.Interface(), true
	}
	return nil, false
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
