package transmit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"iosctl/internal/domain"
	"iosctl/internal/secrets"
	"iosctl/internal/trace"

	"github.com/rs/zerolog"
)

// Mode selects how rejected lines are treated
type Mode int

const (
	Strict       Mode = iota
	IgnoreErrors      // abort and revert: rejections are recorded as warnings
)

func (m Mode) String() string {
	if m == IgnoreErrors {
		return "ignore-errors"
	}
	return "strict"
}

// Settings tune the protocol
type Settings struct {
	Timeout       time.Duration // every expect
	ReloadTimeout time.Duration // expects after a reload command
	RetryMax      int
	RetryDelay    time.Duration
	AnswerWindow  time.Duration // wait for a prompt after answering "y"
	ChunkSize     int           // bulk mode when above 1
	RebootTimer   int           // minutes; arms "reload in N" around a send when set
	AutoAnswers   []AutoAnswer
	Warnings      []string // extra harmless reply patterns
}

// DefaultSettings returns the protocol defaults
func DefaultSettings() Settings {
	return Settings{
		Timeout:       20 * time.Second,
		ReloadTimeout: 10 * time.Minute,
		RetryMax:      60,
		RetryDelay:    time.Second,
		AnswerWindow:  time.Second,
	}
}

var (
	answerEcho = regexp.MustCompile(`y`)
	reloadLine = regexp.MustCompile(`^(do )?reload\b`)
)

// Transmitter runs the line protocol over one session
type Transmitter struct {
	conn     Conn
	settings Settings
	classify *Classifier
	prompts  *promptSet
	logger   zerolog.Logger

	session  string
	recorder trace.Recorder

	warnings strings.Builder
	lastOK   string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a transmitter on conn
func New(conn Conn, s Settings, logger zerolog.Logger) (*Transmitter, error) {
	c, err := NewClassifier(s.Warnings)
	if err != nil {
		return nil, err
	}
	ps, err := newPromptSet(s.AutoAnswers)
	if err != nil {
		return nil, fmt.Errorf("invalid auto-answer question: %w", err)
	}
	return &Transmitter{
		conn:     conn,
		settings: s,
		classify: c,
		prompts:  ps,
		logger:   logger.With().Str("component", "transmit").Logger(),
		recorder: trace.Discard,
		now:      time.Now,
		sleep:    sleepContext,
	}, nil
}

// SetRecorder sends trace events for session to r
func (t *Transmitter) SetRecorder(session string, r trace.Recorder) {
	if r == nil {
		r = trace.Discard
	}
	t.session = session
	t.recorder = r
}

// Warnings returns the replies accepted as warnings during the last Send,
// each as "> line\nreply\n"
func (t *Transmitter) Warnings() string {
	return t.warnings.String()
}

// LastOK returns the last line the device accepted
func (t *Transmitter) LastOK() string {
	return t.lastOK
}

// Send transmits every live line of buf. The session must be in config mode.
func (t *Transmitter) Send(ctx context.Context, buf *domain.Buffer, mode Mode) (err error) {
	t.warnings.Reset()
	lines := sendable(buf)
	t.logger.Debug().Int("lines", len(lines)).Stringer("mode", mode).Msg("sending configuration")

	refresh := func() error { return nil }
	if minutes := t.settings.RebootTimer; minutes > 0 {
		if err := t.setReload(ctx, minutes, true); err != nil {
			return err
		}
		armed := t.now()
		refresh = func() error {
			if t.now().Sub(armed) < time.Duration(minutes)*time.Minute/2 {
				return nil
			}
			armed = t.now()
			return t.setReload(ctx, minutes, true)
		}
		defer func() {
			configMode := !errors.Is(err, domain.ErrModeExitUnexpected)
			cerr := t.setReload(ctx, 0, configMode)
			if cerr == nil {
				return
			}
			t.logger.Error().Err(cerr).Int("minutes", minutes).Msg("reload timer still armed")
			if err == nil {
				err = cerr
			} else {
				err = errors.Join(err, cerr)
			}
		}()
	}

	for i := 0; i < len(lines); {
		if n := t.bulkRun(lines[i:]); n > 1 {
			if err := t.sendBulk(ctx, lines[i:i+n], mode); err != nil {
				return err
			}
			i += n
			continue
		}
		if err := refresh(); err != nil {
			return err
		}
		n := literalRun(lines[i:])
		if err := t.sendGroup(ctx, lines[i:i+n], mode); err != nil {
			return err
		}
		i += n
	}
	return nil
}

// sendGroup sends one line, or a run of literal text lines answered by a
// single prompt, retrying while the device is busy
func (t *Transmitter) sendGroup(ctx context.Context, group []*domain.Line, mode Mode) error {
	head := group[0]
	line := head.Trimmed()
	shown := t.mask(head, line)
	timeout := t.timeoutFor(line)

	for attempt := 1; ; attempt++ {
		reply, err := t.exchange(ctx, group, timeout)
		if err != nil {
			return err
		}
		class := t.classify.Classify(line, reply)
		t.record(trace.DirectionIn, head, line, reply, class.String(), attempt)

		var rejected error
		switch class {
		case domain.ReplyRetryable:
			if attempt <= t.settings.RetryMax {
				t.logger.Debug().Str("line", shown).Int("attempt", attempt).Msg("device busy, retrying")
				if err := t.sleep(ctx, t.settings.RetryDelay); err != nil {
					return err
				}
				continue
			}
			rejected = &domain.DeviceRejectedError{Line: shown, Reply: reply, Attempts: attempt}
		case domain.ReplyFatal:
			rejected = &domain.DeviceRejectedError{Line: shown, Reply: reply, Attempts: attempt}
		case domain.ReplyWarning:
			t.warn(shown, reply)
		}

		if rejected != nil {
			if mode != IgnoreErrors {
				t.logger.Warn().Str("line", shown).Str("reply", reply).Msg("device rejected command")
				return rejected
			}
			t.logger.Debug().Str("line", shown).Msg("ignoring rejected command")
			t.warn(shown, reply)
		}
		t.lastOK = shown
		return nil
	}
}

// exchange writes the group and returns the reply preceding the next prompt
func (t *Transmitter) exchange(ctx context.Context, group []*domain.Line, timeout time.Duration) (string, error) {
	head := group[0]
	line := head.Trimmed()

	var b strings.Builder
	sent := make([]string, 0, len(group))
	for _, l := range group {
		text := wire(l)
		sent = append(sent, strings.TrimSpace(strings.ReplaceAll(text, "\x16", "")))
		b.WriteString(text)
		b.WriteByte('\n')
		t.record(trace.DirectionOut, l, text, "", "", 0)
	}
	if err := t.conn.Send(ctx, b.String()); err != nil {
		return "", fmt.Errorf("send '%s': %w", t.mask(head, line), err)
	}

	echo := len(group) == 1 && !head.Substituted && !head.Literal
	if echo {
		if _, err := t.conn.Expect(ctx, []*regexp.Regexp{echoOf(line)}, timeout); err != nil {
			return "", expecting(err, t.mask(head, line), "echo")
		}
	}
	reply, err := t.waitPrompt(ctx, t.mask(head, line), timeout)
	if err != nil {
		return "", err
	}
	if !echo {
		reply = dropEchoes(reply, sent)
	}
	return clean(reply), nil
}

// waitPrompt awaits the config prompt, answering at most one question
func (t *Transmitter) waitPrompt(ctx context.Context, line string, timeout time.Duration) (string, error) {
	patterns := t.prompts.patterns
	m, err := t.conn.Expect(ctx, patterns, timeout)
	if err != nil {
		return "", expecting(err, line, "prompt")
	}
	for questioned := false; ; questioned = true {
		switch t.prompts.kind(m.Index) {
		case kindConfig:
			return m.Before, nil
		case kindExec:
			t.logger.Error().Str("line", line).Msg("device exited from config mode")
			return "", &domain.ModeExitUnexpectedError{Line: line, Reply: clean(m.Before)}
		}
		if questioned {
			return "", &domain.DeviceRejectedError{Line: line, Reply: "prompted twice: " + clean(m.Before+m.Text)}
		}
		if m, err = t.answer(ctx, line, m, patterns, timeout); err != nil {
			return "", err
		}
	}
}

// answer replies to the question in m and returns whatever is matched next.
// Without a configured answer "y" is sent, completed to "yes" when the
// device keeps waiting.
func (t *Transmitter) answer(ctx context.Context, line string, m Match, patterns []*regexp.Regexp, timeout time.Duration) (Match, error) {
	question := clean(m.Before + m.Text)
	t.logger.Debug().Str("line", line).Str("question", question).Msg("device asked a question")

	if ans, ok := t.prompts.answer(patterns[m.Index]); ok {
		t.recorder.Record(t.event(trace.DirectionLog, line, "answer: "+ans, "question", 0))
		if err := t.conn.Send(ctx, ans+"\n"); err != nil {
			return Match{}, err
		}
		next, err := t.conn.Expect(ctx, patterns, timeout)
		if err != nil {
			return Match{}, expecting(err, line, "prompt")
		}
		return next, nil
	}

	t.recorder.Record(t.event(trace.DirectionLog, line, "answer: y", "question", 0))
	if err := t.conn.Send(ctx, "y"); err != nil {
		return Match{}, err
	}
	if _, err := t.conn.Expect(ctx, []*regexp.Regexp{answerEcho}, timeout); err != nil {
		return Match{}, expecting(err, line, "answer echo")
	}
	next, err := t.conn.Expect(ctx, patterns, t.settings.AnswerWindow)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, domain.ErrProtocolTimeout) {
		return Match{}, err
	}
	if err := t.conn.Send(ctx, "es\n"); err != nil {
		return Match{}, err
	}
	next, err = t.conn.Expect(ctx, patterns, timeout)
	if err != nil {
		return Match{}, expecting(err, line, "prompt")
	}
	next.Before = strings.TrimPrefix(next.Before, "es")
	return next, nil
}

func (t *Transmitter) warn(line, reply string) {
	t.warnings.WriteString("> " + line + "\n" + reply + "\n")
}

func (t *Transmitter) timeoutFor(line string) time.Duration {
	if reloadLine.MatchString(line) && t.settings.ReloadTimeout > t.settings.Timeout {
		return t.settings.ReloadTimeout
	}
	return t.settings.Timeout
}

func (t *Transmitter) mask(l *domain.Line, text string) string {
	if l == nil || !l.Substituted {
		return text
	}
	return secrets.Mask(l.Top, text)
}

func (t *Transmitter) record(dir trace.Direction, l *domain.Line, line, text, class string, attempt int) {
	top := ""
	if l != nil {
		top = l.Top
	}
	ev := t.event(dir, secrets.Mask(top, line), secrets.Mask(top, text), class, attempt)
	t.recorder.Record(ev)
}

func (t *Transmitter) event(dir trace.Direction, line, text, class string, attempt int) trace.Event {
	return trace.Event{
		Timestamp: t.now(),
		Session:   t.session,
		Direction: dir,
		Line:      line,
		Text:      text,
		Class:     class,
		Attempt:   attempt,
	}
}

// sendable returns the lines that go on the wire. Comments and blank lines
// are dropped unless they are literal text.
func sendable(buf *domain.Buffer) []*domain.Line {
	out := make([]*domain.Line, 0, len(buf.Lines))
	for _, l := range buf.Lines {
		if l.Suppressed {
			continue
		}
		if !l.Literal {
			trimmed := l.Trimmed()
			if trimmed == "" || strings.HasPrefix(trimmed, "!") {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

// literalRun is the number of lines sent before the next prompt is awaited
func literalRun(lines []*domain.Line) int {
	if !lines[0].Literal {
		return 1
	}
	n := 1
	for n < len(lines) && lines[n].Literal {
		n++
	}
	return n
}

// wire renders a line for sending. Help characters are escaped with Ctrl-V
// except in literal text.
func wire(l *domain.Line) string {
	if l.Literal {
		return l.Text
	}
	return escape(l.Trimmed())
}

func escape(s string) string {
	return strings.ReplaceAll(s, "?", "\x16?")
}

func echoOf(line string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(line))
}

// dropEchoes removes reply lines that only repeat what was sent
func dropEchoes(reply string, sent []string) string {
	var keep []string
	for _, r := range strings.Split(strings.ReplaceAll(reply, "\r", ""), "\n") {
		tr := strings.TrimSpace(r)
		echoed := false
		for _, s := range sent {
			if s != "" && strings.HasSuffix(tr, s) {
				echoed = true
				break
			}
		}
		if !echoed {
			keep = append(keep, r)
		}
	}
	return strings.Join(keep, "\n")
}

func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r", ""))
}

// expecting names the line and awaited item on a timeout from the connection
func expecting(err error, line, what string) error {
	var te *domain.ProtocolTimeoutError
	if errors.As(err, &te) {
		return &domain.ProtocolTimeoutError{Line: line, Expected: what, Buffered: te.Buffered}
	}
	return fmt.Errorf("waiting for %s after '%s': %w", what, line, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
