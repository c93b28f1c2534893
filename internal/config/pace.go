package config

import "time"

// Pace trades transmission speed against tolerance for slow devices
type Pace string

const (
	PaceCautious Pace = "cautious" // line by line, long timeouts
	PaceBalanced Pace = "balanced" // default
	PaceFast     Pace = "fast"     // bulk chunks, short retries
)

// ParsePace converts a string to Pace, defaulting to PaceBalanced
func ParsePace(s string) Pace {
	switch s {
	case "cautious":
		return PaceCautious
	case "balanced":
		return PaceBalanced
	case "fast":
		return PaceFast
	default:
		return PaceBalanced
	}
}

// TransmissionProfile defines timing and batching settings
type TransmissionProfile struct {
	Timeout       time.Duration
	ReloadTimeout time.Duration
	RetryMax      int
	RetryDelay    time.Duration
	AnswerWindow  time.Duration
	ChunkSize     int
}

// PaceProfiles maps paces to their default transmission profiles
var PaceProfiles = map[Pace]TransmissionProfile{
	PaceCautious: {
		Timeout:       60 * time.Second,
		ReloadTimeout: 15 * time.Minute,
		RetryMax:      120,
		RetryDelay:    2 * time.Second,
		AnswerWindow:  2 * time.Second,
		ChunkSize:     1,
	},
	PaceBalanced: {
		Timeout:       20 * time.Second,
		ReloadTimeout: 10 * time.Minute,
		RetryMax:      60,
		RetryDelay:    time.Second,
		AnswerWindow:  time.Second,
		ChunkSize:     1,
	},
	PaceFast: {
		Timeout:       10 * time.Second,
		ReloadTimeout: 10 * time.Minute,
		RetryMax:      30,
		RetryDelay:    500 * time.Millisecond,
		AnswerWindow:  500 * time.Millisecond,
		ChunkSize:     100,
	},
}

// GetProfile returns the transmission profile for a pace
func (p Pace) GetProfile() TransmissionProfile {
	if profile, ok := PaceProfiles[p]; ok {
		return profile
	}
	return PaceProfiles[PaceBalanced]
}
