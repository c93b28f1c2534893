package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"iosctl/internal/datastore"

	"gopkg.in/yaml.v3"
)

// JSONCodec handles JSON snapshots, nested or as a flat array of
// {"path": ..., "value": ...} objects
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a snapshot from JSON
func (c *JSONCodec) Parse(r io.Reader) (*datastore.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("failed to parse JSON: invalid document")
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var leaves []datastore.Leaf
		if err := json.Unmarshal(trimmed, &leaves); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return datastore.NewSnapshot(leaves...), nil
	}

	// objects go through the YAML node tree, which preserves key order
	var doc yaml.Node
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return fromNode(&doc)
}

// Export exports the snapshot as a flat JSON array
func (c *JSONCodec) Export(snap *datastore.Snapshot, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(snap.Leaves()); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
