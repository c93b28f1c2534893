package transmit

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"iosctl/internal/domain"
	"iosctl/internal/trace"
)

const (
	configCommand = "config t"
	maxQuestions  = 5
)

var (
	enterConfig = compileAll(
		`Do you want to kill that session and continue`,
		`(?m)^\S*\(config\)#`,
		`(?m)^\S*\(\S+\)#`,
		`Aborted.*\n`,
		`Error.*\n`,
		`syntax error.*\n`,
		`error:.*\n`,
	)
	reloadQuestions = compileAll(
		`System configuration has been modified`,
		`Proceed with reload`,
	)
	shutdownArmed   = regexp.MustCompile(`SHUTDOWN in .*`)
	shutdownAborted = regexp.MustCompile(`SHUTDOWN ABORTED.*`)
)

// EnterConfig switches the session from exec to config mode, taking over
// another session's configuration lock when the device offers it
func (t *Transmitter) EnterConfig(ctx context.Context) error {
	t.record(trace.DirectionOut, nil, configCommand, "", "", 0)
	if err := t.conn.Send(ctx, configCommand+"\n"); err != nil {
		return fmt.Errorf("enter config mode: %w", err)
	}
	for i := 0; i < 3; i++ {
		m, err := t.conn.Expect(ctx, enterConfig, t.settings.Timeout)
		if err != nil {
			return expecting(err, configCommand, "config prompt")
		}
		switch m.Index {
		case 0:
			t.logger.Info().Msg("terminating other configuration session")
			if err := t.conn.Send(ctx, "yes\n"); err != nil {
				return fmt.Errorf("enter config mode: %w", err)
			}
		case 1, 2:
			t.logger.Debug().Msg("entered config mode")
			return nil
		default:
			return &domain.DeviceRejectedError{Line: configCommand, Reply: clean(m.Before + m.Text)}
		}
	}
	return &domain.DeviceRejectedError{Line: configCommand, Reply: "configuration lock not released"}
}

// ExitConfig returns to exec mode
func (t *Transmitter) ExitConfig(ctx context.Context) error {
	patterns := append([]*regexp.Regexp{execPrompt}, configPrompts...)
	for i := 0; i < 3; i++ {
		t.record(trace.DirectionOut, nil, "end", "", "", 0)
		if err := t.conn.Send(ctx, "end\n"); err != nil {
			return fmt.Errorf("exit config mode: %w", err)
		}
		m, err := t.conn.Expect(ctx, patterns, t.settings.Timeout)
		if err != nil {
			return expecting(err, "end", "exec prompt")
		}
		if m.Index == 0 {
			t.logger.Debug().Msg("left config mode")
			return nil
		}
	}
	return &domain.DeviceRejectedError{Line: "end", Reply: "device stayed in config mode"}
}

// Exec runs an exec-mode command and returns its output without the echo
// and the trailing prompt. Questions are answered as in config mode.
func (t *Transmitter) Exec(ctx context.Context, cmd string) (string, error) {
	timeout := t.timeoutFor(cmd)
	patterns := t.prompts.exec()

	t.record(trace.DirectionOut, nil, cmd, "", "", 0)
	if err := t.conn.Send(ctx, escape(cmd)+"\n"); err != nil {
		return "", fmt.Errorf("send '%s': %w", cmd, err)
	}
	if _, err := t.conn.Expect(ctx, []*regexp.Regexp{echoOf(cmd)}, timeout); err != nil {
		return "", expecting(err, cmd, "echo")
	}
	m, err := t.conn.Expect(ctx, patterns, timeout)
	if err != nil {
		return "", expecting(err, cmd, "exec prompt")
	}

	var out strings.Builder
	for n := 0; m.Index != 0; n++ {
		if n == maxQuestions {
			return "", &domain.DeviceRejectedError{Line: cmd, Reply: "too many questions: " + clean(m.Before+m.Text)}
		}
		out.WriteString(m.Before + m.Text + "\n")
		if m, err = t.answer(ctx, cmd, m, patterns, timeout); err != nil {
			return "", err
		}
	}
	out.WriteString(m.Before)

	reply := strings.Trim(strings.ReplaceAll(out.String(), "\r", ""), "\n")
	t.record(trace.DirectionIn, nil, cmd, reply, "", 0)
	return reply, nil
}

// setReload arms the device reload timer, or cancels it when minutes is 0.
// configMode says which prompt the session is at.
func (t *Transmitter) setReload(ctx context.Context, minutes int, configMode bool) error {
	cmd := "reload cancel"
	notice := shutdownAborted
	if minutes > 0 {
		cmd = fmt.Sprintf("reload in %d", minutes)
		notice = shutdownArmed
	}
	prompts := []*regexp.Regexp{execPrompt}
	if configMode {
		cmd = "do " + cmd
		prompts = configPrompts
	}
	t.logger.Info().Int("minutes", minutes).Bool("config", configMode).Msg("setting reload timer")
	t.record(trace.DirectionOut, nil, cmd, "", "", 0)

	failed := func(err error) error {
		return &domain.DeviceRejectedError{Line: cmd, Reply: "reload command failed: " + err.Error()}
	}
	if err := t.conn.Send(ctx, cmd+"\n"); err != nil {
		return failed(err)
	}
	patterns := append(append([]*regexp.Regexp{}, reloadQuestions...), prompts...)
	for answered := 0; ; answered++ {
		m, err := t.conn.Expect(ctx, patterns, t.settings.ReloadTimeout)
		if err != nil {
			return failed(err)
		}
		if m.Index >= len(reloadQuestions) {
			break
		}
		if answered == maxQuestions {
			return failed(fmt.Errorf("too many questions"))
		}
		reply := "\n"
		if m.Index == 0 {
			reply = "no\n"
		}
		if err := t.conn.Send(ctx, reply); err != nil {
			return failed(err)
		}
	}
	if _, err := t.conn.Expect(ctx, []*regexp.Regexp{notice}, t.settings.ReloadTimeout); err != nil {
		return failed(err)
	}
	if _, err := t.conn.Expect(ctx, prompts, t.settings.ReloadTimeout); err != nil {
		return failed(err)
	}
	return nil
}
