package codec

import (
	"fmt"
	"io"
	"strings"

	"iosctl/internal/datastore"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML snapshots. Two layouts are accepted:
//
//	# nested, list entries keyed in braces
//	interface:
//	  GigabitEthernet{0/1}:
//	    speed: "100"
//
//	# flat
//	- path: /interface/GigabitEthernet{0/1}/speed
//	  value: "100"
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports a snapshot from YAML, keeping document order
func (c *YAMLCodec) Parse(r io.Reader) (*datastore.Snapshot, error) {
	var doc yaml.Node
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return datastore.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return fromNode(&doc)
}

// Export writes the snapshot in the flat layout
func (c *YAMLCodec) Export(snap *datastore.Snapshot, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(snap.Leaves()); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

// fromNode converts a decoded document (YAML or JSON) into a snapshot
func fromNode(doc *yaml.Node) (*datastore.Snapshot, error) {
	root := doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return datastore.NewSnapshot(), nil
		}
		root = root.Content[0]
	}

	snap := datastore.NewSnapshot()
	switch root.Kind {
	case yaml.MappingNode:
		if err := flatten(snap, "", root); err != nil {
			return nil, err
		}
	case yaml.SequenceNode:
		var leaves []datastore.Leaf
		if err := root.Decode(&leaves); err != nil {
			return nil, fmt.Errorf("failed to decode flat snapshot: %w", err)
		}
		for _, l := range leaves {
			if !strings.HasPrefix(l.Path, "/") {
				return nil, fmt.Errorf("line %d: path %q is not absolute", root.Line, l.Path)
			}
			snap.Set(l.Path, l.Value)
		}
	case yaml.ScalarNode:
		if root.Tag != "!!null" {
			return nil, fmt.Errorf("line %d: snapshot must be a mapping or a sequence", root.Line)
		}
	default:
		return nil, fmt.Errorf("line %d: unsupported snapshot root", root.Line)
	}
	return snap, nil
}

func flatten(snap *datastore.Snapshot, prefix string, m *yaml.Node) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		path := prefix + "/" + key.Value

		switch val.Kind {
		case yaml.ScalarNode:
			if val.Tag == "!!null" {
				snap.Set(path, "")
				continue
			}
			snap.Set(path, val.Value)
		case yaml.MappingNode:
			if len(val.Content) == 0 {
				snap.Set(path, "")
				continue
			}
			if err := flatten(snap, path, val); err != nil {
				return err
			}
		case yaml.SequenceNode:
			values := make([]string, 0, len(val.Content))
			for _, item := range val.Content {
				if item.Kind != yaml.ScalarNode {
					return fmt.Errorf("line %d: %s: list entries must be keyed as name{key}", item.Line, path)
				}
				values = append(values, item.Value)
			}
			snap.Set(path, strings.Join(values, " "))
		case yaml.AliasNode:
			return fmt.Errorf("line %d: %s: aliases are not supported", val.Line, path)
		}
	}
	return nil
}
