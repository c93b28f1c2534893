package transmit

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"iosctl/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// device is a scripted IOS CLI. Every sent line is echoed, then followed by
// the next scripted reply for that line or by the prompt.
type device struct {
	prompt  string
	replies map[string][]string // per line, the last reply repeats
	raw     map[string]string   // exact sends answered without echo handling
	calls   map[string]int
	sent    []string
	buf     string
}

func newDevice(prompt string) *device {
	return &device{
		prompt:  prompt,
		replies: make(map[string][]string),
		raw:     make(map[string]string),
		calls:   make(map[string]int),
	}
}

func (d *device) Send(_ context.Context, data string) error {
	d.sent = append(d.sent, data)
	if out, ok := d.raw[data]; ok {
		d.buf += out
		return nil
	}
	for _, line := range strings.Split(strings.TrimSuffix(data, "\n"), "\n") {
		line = strings.ReplaceAll(line, "\x16", "")
		d.buf += line + "\r\n" + d.next(strings.TrimSpace(line))
	}
	return nil
}

func (d *device) next(line string) string {
	rs, ok := d.replies[line]
	if !ok {
		return d.prompt
	}
	i := d.calls[line]
	d.calls[line]++
	if i >= len(rs) {
		i = len(rs) - 1
	}
	return rs[i]
}

func (d *device) Expect(_ context.Context, patterns []*regexp.Regexp, _ time.Duration) (Match, error) {
	m, end, ok := Scan(d.buf, patterns)
	if !ok {
		return Match{}, &domain.ProtocolTimeoutError{Buffered: d.buf}
	}
	d.buf = d.buf[end:]
	return m, nil
}

func (d *device) Close() error { return nil }

// count returns how many times line was sent on its own
func (d *device) count(line string) int {
	n := 0
	for _, s := range d.sent {
		if s == line+"\n" {
			n++
		}
	}
	return n
}

func newTransmitter(t *testing.T, d *device, s Settings) (*Transmitter, *int) {
	t.Helper()
	tr, err := New(d, s, zerolog.Nop())
	require.NoError(t, err)
	sleeps := 0
	tr.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}
	return tr, &sleeps
}

func lines(text ...string) *domain.Buffer {
	return domain.NewBuffer(text...)
}
