package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned by Get when a path has no entry
var ErrNotFound = errors.New("oper cache entry not found")

// Path prefixes partitioning the oper cache
const (
	PrefixSecrets   = "secrets/"
	PrefixDefaults  = "defaults/"
	PrefixInventory = "inventory/"
)

// Entry is one cached value
type Entry struct {
	Path      string    `json:"path"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OperCache defines the interface for per-device operational state
type OperCache interface {
	// Get returns the value stored at path or ErrNotFound
	Get(ctx context.Context, path string) (string, error)

	// Put stores value at path, replacing any previous value
	Put(ctx context.Context, path, value string) error

	// Delete removes path; deleting a missing path is not an error
	Delete(ctx context.Context, path string) error

	// List returns every entry whose path starts with prefix, ordered by path
	List(ctx context.Context, prefix string) ([]Entry, error)
}

// Memory implements OperCache in process memory
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemory creates an empty in-memory oper cache
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[path]
	if !ok {
		return "", ErrNotFound
	}
	return e.Value, nil
}

func (m *Memory) Put(_ context.Context, path, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[path] = Entry{Path: path, Value: value, UpdatedAt: time.Now()}
	return nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, path)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Entry
	for p, e := range m.entries {
		if strings.HasPrefix(p, prefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// DeletePrefix removes every entry under prefix
func DeletePrefix(ctx context.Context, c OperCache, prefix string) error {
	entries, err := c.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := c.Delete(ctx, e.Path); err != nil {
			return err
		}
	}
	return nil
}
