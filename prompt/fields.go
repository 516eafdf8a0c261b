package prompt

import (
	"gopkg.in/yaml.v3"

	"github.com/prompteng/ape/errors"
)

// Field is one declared input or output: a name and what it holds
type Field struct {
	Name        string
	Description string
}

// Fields is an order-preserving name → description mapping. Plain Go maps
// lose declaration order, which the template format guarantees to keep,
// so this unmarshals straight from the YAML mapping node.
type Fields []Field

// Get returns the description for a name
func (f Fields) Get(name string) (string, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Description, true
		}
	}
	return "", false
}

// Has reports whether a name is declared
func (f Fields) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Names returns the declared names in order
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// UnmarshalYAML decodes a YAML mapping preserving key order
func (f *Fields) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Newf("expected a mapping, got %s", nodeKind(node))
	}

	fields := make(Fields, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		value := node.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return errors.Newf("expected a scalar key, got %s", nodeKind(key))
		}
		fields = append(fields, Field{
			Name:        key.Value,
			Description: value.Value,
		})
	}

	*f = fields
	return nil
}

// MarshalYAML encodes back to a YAML mapping in declaration order
func (f Fields) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, field := range f {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: field.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: field.Description},
		)
	}
	return node, nil
}

func nodeKind(node *yaml.Node) string {
	switch node.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
