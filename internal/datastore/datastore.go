// Package datastore defines the read-only view of the orchestrator's versioned
// configuration used for live-state lookups, plus a snapshot implementation.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Side selects the configuration version within a transaction
type Side int

const (
	From Side = iota // running configuration before the transaction
	To               // configuration the transaction produces
)

func (s Side) String() string {
	if s == From {
		return "from"
	}
	return "to"
}

var (
	// ErrDetached is returned by handle reads after Detach
	ErrDetached = errors.New("datastore handle detached")

	// ErrNoTransaction is returned by Attach for an unknown transaction id
	ErrNoTransaction = errors.New("unknown transaction")
)

// Store attaches read-only handles scoped to a transaction id
type Store interface {
	Attach(ctx context.Context, txID string, side Side) (Handle, error)
}

// Handle is a read-only attachment to one side of a transaction.
// Paths look like /interface/GigabitEthernet{0/1}/speed.
type Handle interface {
	// Exists reports whether a leaf, container or list entry is present
	Exists(ctx context.Context, path string) (bool, error)

	// ReadLeaf returns the leaf value; ok is false when absent
	ReadLeaf(ctx context.Context, path string) (value string, ok bool, err error)

	// ReadList returns the entries of the list at path in datastore order
	ReadList(ctx context.Context, path string) ([]ListEntry, error)

	// Detach releases the attachment
	Detach() error
}

// ListEntry is one list element: its key and its direct leaf values
type ListEntry struct {
	Key    string
	Leaves map[string]string
}

// Leaf returns a direct leaf of the entry, or the key when name is the list name
func (e ListEntry) Leaf(name string) string {
	return e.Leaves[name]
}

// Resolve folds "/../" segments out of an absolute path
func Resolve(path string) string {
	for {
		up := strings.Index(path, "/../")
		if up <= 0 {
			return path
		}
		slash := lastSegment(path[:up])
		path = path[:slash] + path[up+3:]
	}
}

// Parent returns the path up to and including the last list key, e.g.
// /interface/Gi{0/1}/ip/address -> /interface/Gi{0/1}
func Parent(path string) string {
	i := strings.LastIndex(path, "}")
	if i < 0 {
		return ""
	}
	return path[:i+1]
}

// LastKey returns the key of the innermost list entry on path
func LastKey(path string) string {
	open := strings.LastIndex(path, "{")
	if open < 0 {
		return ""
	}
	end := strings.Index(path[open:], "}")
	if end < 0 {
		return ""
	}
	return path[open+1 : open+end]
}

// lastSegment returns the index of the '/' starting the last segment of path,
// skipping slashes inside list keys
func lastSegment(path string) int {
	depth := 0
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '}':
			depth++
		case '{':
			depth--
		case '/':
			if depth == 0 {
				return i
			}
		}
	}
	return 0
}

// WithHandles attaches both sides of txID, runs fn, and detaches
func WithHandles(ctx context.Context, s Store, txID string, fn func(from, to Handle) error) error {
	from, err := s.Attach(ctx, txID, From)
	if err != nil {
		return fmt.Errorf("attach from: %w", err)
	}
	defer from.Detach()

	to, err := s.Attach(ctx, txID, To)
	if err != nil {
		return fmt.Errorf("attach to: %w", err)
	}
	defer to.Detach()

	return fn(from, to)
}
