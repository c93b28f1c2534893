package transmit

import (
	"context"
	"regexp"
	"time"
)

// Conn is a raw interactive CLI session
type Conn interface {
	// Send writes data as is
	Send(ctx context.Context, data string) error

	// Expect reads until one of patterns matches unconsumed input, consumes
	// through the end of the match and returns it. Expiry is a
	// *domain.ProtocolTimeoutError carrying what was buffered.
	Expect(ctx context.Context, patterns []*regexp.Regexp, timeout time.Duration) (Match, error)

	Close() error
}

// Match is the result of a successful Expect
type Match struct {
	Index  int    // index of the matching pattern
	Before string // input preceding the match
	Text   string // the matched text
}

// Scan finds the pattern whose match ends first in buf, earlier patterns
// winning ties. ok is false when nothing matches.
func Scan(buf string, patterns []*regexp.Regexp) (m Match, end int, ok bool) {
	end = -1
	for i, re := range patterns {
		loc := re.FindStringIndex(buf)
		if loc == nil {
			continue
		}
		if end >= 0 && loc[1] >= end {
			continue
		}
		m = Match{Index: i, Before: buf[:loc[0]], Text: buf[loc[0]:loc[1]]}
		end = loc[1]
		ok = true
	}
	return m, end, ok
}
