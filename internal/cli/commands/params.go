package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/query"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ParamOptions holds the parameter and format flags shared by run, query and render.
type ParamOptions struct {
	Params     []string
	ParamsFile string
	FormatArgs []string
}

func (o *ParamOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&o.Params, "param", "p", nil,
		"Named parameter as path=value; values are YAML scalars (quote to force a string)")
	cmd.Flags().StringVarP(&o.ParamsFile, "params-file", "P", "", "YAML or JSON file with nested parameters")
	cmd.Flags().StringArrayVarP(&o.FormatArgs, "format-arg", "F", nil, "Value for the next %s, %I or %L token (repeatable, in order)")
}

// Bag builds the parameter bag. Pairs override file values.
func (o *ParamOptions) Bag() (query.Params, error) {
	bag := query.Params{}

	if o.ParamsFile != "" {
		data, err := os.ReadFile(o.ParamsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read params file: %w", err)
		}
		if err := yaml.Unmarshal(data, &bag); err != nil {
			return nil, fmt.Errorf("failed to parse params file %s: %w", o.ParamsFile, err)
		}
	}

	for _, pair := range o.Params {
		if err := setParam(bag, pair); err != nil {
			return nil, err
		}
	}
	return bag, nil
}

// Formats returns the format values in flag order.
func (o *ParamOptions) Formats() []any {
	out := make([]any, len(o.FormatArgs))
	for i, v := range o.FormatArgs {
		out[i] = v
	}
	return out
}

// setParam assigns "a.b.c=value" into bag, creating nested maps as needed.
func setParam(bag query.Params, pair string) error {
	path, raw, ok := strings.Cut(pair, "=")
	if !ok || path == "" {
		return fmt.Errorf("invalid parameter %q: want path=value", pair)
	}

	value, err := parseScalar(raw)
	if err != nil {
		return fmt.Errorf("invalid value for parameter %q: %w", path, err)
	}

	segs := strings.Split(path, ".")
	node := map[string]any(bag)
	for _, seg := range segs[:len(segs)-1] {
		next, exists := node[seg]
		if !exists {
			child := map[string]any{}
			node[seg] = child
			node = child
			continue
		}
		child, isMap := next.(map[string]any)
		if !isMap {
			return fmt.Errorf("invalid parameter %q: %s is not an object", pair, seg)
		}
		node = child
	}
	node[segs[len(segs)-1]] = value
	return nil
}

// parseScalar decodes a YAML scalar: 3 is an int, true a bool, null nil
// and anything else a string.
func parseScalar(raw string) (any, error) {
	if raw == "" {
		return "", nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case map[string]any, []any:
		return raw, nil
	}
	return v, nil
}
