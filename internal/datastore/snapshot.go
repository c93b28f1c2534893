package datastore

import (
	"context"
	"strings"
	"sync"
)

// Leaf is one flattened path/value pair. Containers and list entries without
// leaves are recorded with an empty value to mark presence.
type Leaf struct {
	Path  string `json:"path" yaml:"path"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// Snapshot is an ordered, flattened configuration tree
type Snapshot struct {
	leaves []Leaf
	index  map[string]int
}

// NewSnapshot builds a snapshot; later duplicates of a path replace earlier values
func NewSnapshot(leaves ...Leaf) *Snapshot {
	s := &Snapshot{index: make(map[string]int)}
	for _, l := range leaves {
		s.Set(l.Path, l.Value)
	}
	return s
}

// Set adds or replaces the value at path
func (s *Snapshot) Set(path, value string) {
	if i, ok := s.index[path]; ok {
		s.leaves[i].Value = value
		return
	}
	s.index[path] = len(s.leaves)
	s.leaves = append(s.leaves, Leaf{Path: path, Value: value})
}

// Leaves returns the flattened content in insertion order
func (s *Snapshot) Leaves() []Leaf {
	out := make([]Leaf, len(s.leaves))
	copy(out, s.leaves)
	return out
}

// Len returns the number of recorded paths
func (s *Snapshot) Len() int {
	return len(s.leaves)
}

func (s *Snapshot) exists(path string) bool {
	path = Resolve(path)
	if _, ok := s.index[path]; ok {
		return true
	}
	for _, l := range s.leaves {
		if strings.HasPrefix(l.Path, path) && len(l.Path) > len(path) {
			switch l.Path[len(path)] {
			case '/', '{':
				return true
			}
		}
	}
	return false
}

func (s *Snapshot) leaf(path string) (string, bool) {
	i, ok := s.index[Resolve(path)]
	if !ok {
		return "", false
	}
	return s.leaves[i].Value, true
}

func (s *Snapshot) list(path string) []ListEntry {
	path = Resolve(path)
	var out []ListEntry
	pos := make(map[string]int)
	name := path[lastSegment(path)+1:]

	for _, l := range s.leaves {
		if !strings.HasPrefix(l.Path, path+"{") {
			continue
		}
		rest := l.Path[len(path)+1:]
		end := strings.Index(rest, "}")
		if end < 0 {
			continue
		}
		key := rest[:end]
		i, ok := pos[key]
		if !ok {
			i = len(out)
			pos[key] = i
			out = append(out, ListEntry{Key: key, Leaves: map[string]string{name: key}})
		}
		child := rest[end+1:]
		if strings.HasPrefix(child, "/") && !strings.ContainsAny(child[1:], "/{") {
			out[i].Leaves[child[1:]] = l.Value
		}
	}
	return out
}

// MemStore serves snapshots per transaction id and side. A snapshot
// registered under the empty transaction id answers any id.
type MemStore struct {
	mu        sync.Mutex
	snapshots map[string][2]*Snapshot
	attached  int
}

var _ Store = (*MemStore)(nil)

// NewStore creates an empty snapshot store
func NewStore() *MemStore {
	return &MemStore{snapshots: make(map[string][2]*Snapshot)}
}

// Load registers the from and to snapshots of a transaction
func (s *MemStore) Load(txID string, from, to *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[txID] = [2]*Snapshot{from, to}
}

// Attached returns the number of handles not yet detached
func (s *MemStore) Attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

func (s *MemStore) Attach(_ context.Context, txID string, side Side) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.snapshots[txID]
	if !ok {
		pair, ok = s.snapshots[""]
	}
	if !ok {
		return nil, ErrNoTransaction
	}
	snap := pair[side]
	if snap == nil {
		snap = NewSnapshot()
	}
	s.attached++
	return &snapshotHandle{store: s, snap: snap}, nil
}

type snapshotHandle struct {
	store    *MemStore
	snap     *Snapshot
	detached bool
}

func (h *snapshotHandle) Exists(_ context.Context, path string) (bool, error) {
	if h.detached {
		return false, ErrDetached
	}
	return h.snap.exists(path), nil
}

func (h *snapshotHandle) ReadLeaf(_ context.Context, path string) (string, bool, error) {
	if h.detached {
		return "", false, ErrDetached
	}
	v, ok := h.snap.leaf(path)
	return v, ok, nil
}

func (h *snapshotHandle) ReadList(_ context.Context, path string) ([]ListEntry, error) {
	if h.detached {
		return nil, ErrDetached
	}
	return h.snap.list(path), nil
}

func (h *snapshotHandle) Detach() error {
	if h.detached {
		return nil
	}
	h.detached = true
	h.store.mu.Lock()
	h.store.attached--
	h.store.mu.Unlock()
	return nil
}
