package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"iosctl/internal/datastore"
)

// Importer reads a configuration snapshot
type Importer interface {
	Parse(r io.Reader) (*datastore.Snapshot, error)
	Format() string
}

// Exporter writes a configuration snapshot
type Exporter interface {
	Export(snap *datastore.Snapshot, w io.Writer) error
	Format() string
}

// Codec is both an Importer and an Exporter
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec registered for a format name
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	}
	return nil, fmt.Errorf("unknown snapshot format %q", format)
}

// ForPath picks a codec from a file extension
func ForPath(path string) (Codec, error) {
	return ForFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}
