package template

import (
	"fmt"
	"strings"
)

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// MissingParameterError is returned by Bind when one or more named parameters
// referenced by a template cannot be resolved against the parameter bag.
// Missing lists every unresolved path in order of first appearance.
type MissingParameterError struct {
	Missing []string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter(s): %s", strings.Join(e.Missing, ", "))
}

// Has reports whether path is among the missing parameters.
func (e *MissingParameterError) Has(path string) bool {
	for _, m := range e.Missing {
		if m == path {
			return true
		}
	}
	return false
}
