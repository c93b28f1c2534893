package apply

import (
	"iosctl/internal/domain"
	"iosctl/internal/normalize"

	"github.com/google/uuid"
)

// WriteMode selects when the running configuration is saved to NVRAM
type WriteMode string

const (
	WriteOnCommit  WriteMode = "on-commit"
	WriteOnPersist WriteMode = "on-persist"
	WriteDisabled  WriteMode = "disabled"
)

// Valid reports whether m is a known mode
func (m WriteMode) Valid() bool {
	switch m {
	case WriteOnCommit, WriteOnPersist, WriteDisabled:
		return true
	}
	return false
}

// State is everything a session remembers between operations
type State struct {
	ID           string
	Model        string
	Capabilities *normalize.Capabilities

	InConfig bool
	LastOK   string
	Warnings string

	// LastShow is consumed by the next Fingerprint
	LastShow string

	// LastApplied is the last buffer handed to the transmitter
	LastApplied *domain.Buffer

	// IgnoreNextWrite skips the save after an empty prepare
	IgnoreNextWrite bool
}

// NewState creates the record for a new session
func NewState(model string) *State {
	return &State{
		ID:           uuid.NewString(),
		Model:        model,
		Capabilities: normalize.NewCapabilities(),
	}
}
