package transmit

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"iosctl/internal/domain"
	"iosctl/internal/trace"
)

type bulkKind int

const (
	bulkNone bulkKind = iota
	bulkLine          // a single top-level list entry
	bulkMode          // a list mode line with its block
)

// Lists the device accepts in pushed chunks
var (
	bulkLists = []string{
		"access-list ",
		"ip as-path access-list ",
		"ip community-list ",
		"ip prefix-list ",
		"ip route",
	}
	bulkModes = []string{
		"class-map ",
		"ip access-list ",
		"ip explicit-path ",
		"ipv6 access-list ",
		"policy-map ",
		"route-map ",
	}
)

func bulkKindOf(l *domain.Line) bulkKind {
	if l.Depth > 0 || l.Substituted || l.Literal {
		return bulkNone
	}
	cmd := strings.TrimPrefix(l.Text, "no ")
	for _, p := range bulkLists {
		if strings.HasPrefix(cmd, p) {
			return bulkLine
		}
	}
	for _, p := range bulkModes {
		if strings.HasPrefix(l.Text, p) {
			return bulkMode
		}
		if strings.HasPrefix(l.Text, "no "+p) {
			return bulkLine
		}
	}
	return bulkNone
}

// bulkRun is the number of leading lines that may be pushed in chunks
func (t *Transmitter) bulkRun(lines []*domain.Line) int {
	if t.settings.ChunkSize <= 1 {
		return 0
	}
	e := 0
	for e < len(lines) {
		switch bulkKindOf(lines[e]) {
		case bulkNone:
			return e
		case bulkLine:
			e++
		case bulkMode:
			e++
			for e < len(lines) && lines[e].Depth > 0 && !lines[e].Literal && !lines[e].Substituted {
				e++
			}
			if e < len(lines) && domain.IsTopExit(lines[e].Text) {
				e++
			}
		}
	}
	return e
}

// sendBulk pushes lines chunk by chunk, then checks each echo and reply.
// Questions and busy replies are errors here.
func (t *Transmitter) sendBulk(ctx context.Context, lines []*domain.Line, mode Mode) error {
	size := t.settings.ChunkSize
	t.logger.Debug().Int("lines", len(lines)).Int("chunk", size).Msg("bulk sending")

	for i := 0; i < len(lines); i += size {
		chunk := lines[i:min(i+size, len(lines))]
		var b strings.Builder
		for _, l := range chunk {
			b.WriteString(wire(l))
			b.WriteByte('\n')
			t.record(trace.DirectionOut, l, l.Trimmed(), "", "", 0)
		}
		if err := t.conn.Send(ctx, b.String()); err != nil {
			return fmt.Errorf("send chunk at '%s': %w", chunk[0].Trimmed(), err)
		}
		for _, l := range chunk {
			if err := t.checkBulk(ctx, l, mode); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Transmitter) checkBulk(ctx context.Context, l *domain.Line, mode Mode) error {
	line := l.Trimmed()
	timeout := t.timeoutFor(line)

	if _, err := t.conn.Expect(ctx, []*regexp.Regexp{echoOf(line)}, timeout); err != nil {
		return expecting(err, line, "echo")
	}
	m, err := t.conn.Expect(ctx, t.prompts.patterns, timeout)
	if err != nil {
		return expecting(err, line, "prompt")
	}
	switch t.prompts.kind(m.Index) {
	case kindExec:
		return &domain.ModeExitUnexpectedError{Line: line, Reply: clean(m.Before)}
	case kindQuestion:
		return &domain.DeviceRejectedError{Line: line, Reply: "device prompted: " + clean(m.Before+m.Text)}
	}

	reply := clean(m.Before)
	class := t.classify.Classify(line, reply)
	t.record(trace.DirectionIn, l, line, reply, class.String(), 1)

	var rejected error
	switch class {
	case domain.ReplyRetryable:
		rejected = &domain.DeviceRejectedError{Line: line, Reply: "retry-command: " + reply, Retryable: true, Attempts: 1}
	case domain.ReplyFatal:
		rejected = &domain.DeviceRejectedError{Line: line, Reply: reply}
	case domain.ReplyWarning:
		t.warn(line, reply)
	}
	if rejected != nil {
		if mode != IgnoreErrors {
			return rejected
		}
		t.warn(line, reply)
	}
	t.lastOK = line
	return nil
}
