// Package trace records the command transmission exchange with a device as a
// stream of CBOR events, one per sent line, reply or state change.
package trace

import "time"

// Direction of an exchange event
type Direction uint8

const (
	DirectionOut Direction = 0 // sent to the device
	DirectionIn  Direction = 1 // received from the device
	DirectionLog Direction = 2 // local decision (retry, answer, mode change)
)

func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "OUT"
	case DirectionIn:
		return "IN"
	case DirectionLog:
		return "LOG"
	default:
		return "UNKNOWN"
	}
}

// Event is one traced exchange. Secret values in Line and Text are masked
// before they reach a recorder.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	Session   string    `cbor:"2,keyasint"`
	Direction Direction `cbor:"3,keyasint"`
	Line      string    `cbor:"4,keyasint,omitempty"`
	Text      string    `cbor:"5,keyasint,omitempty"`
	Class     string    `cbor:"6,keyasint,omitempty"`
	Attempt   int       `cbor:"7,keyasint,omitempty"`
}

// Recorder receives trace events
type Recorder interface {
	Record(ev Event)
}

// Discard drops every event
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Event) {}

// Memory keeps events in a slice
type Memory struct {
	Events []Event
}

func (m *Memory) Record(ev Event) {
	m.Events = append(m.Events, ev)
}
