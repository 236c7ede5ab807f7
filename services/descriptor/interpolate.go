package descriptor

import (
	"fmt"
	"strings"

	"github.com/compose-spec/compose-go/v2/template"
	"gopkg.in/yaml.v3"
)

// LookupFunc resolves a variable name; ok is false when it is unset.
type LookupFunc func(name string) (value string, ok bool)

// Interpolate substitutes variable references in a single value using the
// compose rules: $VAR, ${VAR}, ${VAR:-default}, ${VAR-default},
// ${VAR:?message}, ${VAR?message}, ${VAR:+alt}, ${VAR+alt} and $$.
func Interpolate(value string, lookup LookupFunc) (string, error) {
	out, err := template.SubstituteWithOptions(value, template.Mapping(lookup), template.WithoutLogging)
	if err != nil {
		return "", fmt.Errorf("interpolate %q: %w", value, err)
	}
	return out, nil
}

// interpolateNode substitutes variables in every scalar value under root.
// Keys and comments are left alone, and a substituted value stays a single
// scalar whatever it contains.
func interpolateNode(root *yaml.Node, lookup LookupFunc) error {
	return eachValue(root, func(n *yaml.Node) error {
		if !strings.Contains(n.Value, "$") {
			return nil
		}
		v, err := Interpolate(n.Value, lookup)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		n.Value = v
		// A plain scalar takes its type from the substituted text, so
		// "retries: ${RETRIES:-3}" still decodes as an int.
		if n.Style&(yaml.TaggedStyle|yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0 {
			n.Tag = ""
		}
		return nil
	})
}

// escapeNode doubles every "$" in scalar values so rendered output
// interpolates back to the same text.
func escapeNode(root *yaml.Node) {
	_ = eachValue(root, func(n *yaml.Node) error {
		n.Value = strings.ReplaceAll(n.Value, "$", "$$")
		return nil
	})
}

// eachValue calls fn for every scalar that is not a mapping key.
func eachValue(n *yaml.Node, fn func(*yaml.Node) error) error {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			if err := eachValue(c, fn); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			if err := eachValue(n.Content[i], fn); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		return fn(n)
	}
	return nil
}
