package mdwriter

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// serializeFrontmatterYAML serializes fm into YAML bytes (without `---`
// delimiters), sorting map keys (recursively, for any nested maps) so the
// same frontmatter always renders to the same bytes regardless of Go's
// randomized map iteration order. An empty map returns an empty slice.
func serializeFrontmatterYAML(fm map[string]any) ([]byte, error) {
	if len(fm) == 0 {
		return []byte{}, nil
	}

	node, err := frontmatterNodeFromMap(fm)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func frontmatterNodeFromMap(m map[string]any) (*yaml.Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		valNode, err := frontmatterNodeFromValue(m[k])
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, keyNode, valNode)
	}
	return n, nil
}

func frontmatterNodeFromValue(v any) (*yaml.Node, error) {
	switch vv := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: vv}, nil
	case bool:
		value := "false"
		if vv {
			value = "true"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: value}, nil
	case map[string]any:
		return frontmatterNodeFromMap(vv)
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range vv {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: item})
		}
		return seq, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range vv {
			node, err := frontmatterNodeFromValue(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, node)
		}
		return seq, nil
	default:
		// Uncommon scalar types (ints, floats): let yaml.v3 encode the value
		// directly and lift the resulting node out of its document wrapper.
		var node yaml.Node
		if err := node.Encode(vv); err != nil {
			return nil, fmt.Errorf("frontmatter: encoding %T: %w", vv, err)
		}
		return &node, nil
	}
}
