package domain

// ReplyClass is the classification of a device reply to one command
type ReplyClass int

const (
	ReplyEcho      ReplyClass = iota // the device echoed the command
	ReplyPrompt                      // a clean prompt, command accepted
	ReplyWarning                     // known-harmless output, accepted and recorded
	ReplyRetryable                   // transiently busy, resubmit later
	ReplyFatal                       // rejected
)

func (c ReplyClass) String() string {
	switch c {
	case ReplyEcho:
		return "echo"
	case ReplyPrompt:
		return "prompt"
	case ReplyWarning:
		return "warning"
	case ReplyRetryable:
		return "retryable"
	case ReplyFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Accepted reports whether the class lets the next command proceed
func (c ReplyClass) Accepted() bool {
	return c == ReplyEcho || c == ReplyPrompt || c == ReplyWarning
}

// AccessListEntry is one rule of an ordered access list.
// A nil Seq marks an entry inserted during reconciliation.
type AccessListEntry struct {
	Seq  *int
	Rule string
}

// NewAccessListEntry creates an entry with a known device sequence number
func NewAccessListEntry(seq int, rule string) AccessListEntry {
	return AccessListEntry{Seq: &seq, Rule: rule}
}

// Numbered reports whether the entry carries a device sequence number
func (e AccessListEntry) Numbered() bool {
	return e.Seq != nil
}
