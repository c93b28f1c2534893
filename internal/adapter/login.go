package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"iosctl/internal/domain"
	"iosctl/internal/transmit"
)

var (
	privPrompt     = regexp.MustCompile(`[^\s#>()]+#\s*$`)
	userPrompt     = regexp.MustCompile(`[^\s#>()]+>\s*$`)
	passwordPrompt = regexp.MustCompile(`(?i)password:\s*$`)
	errorReply     = regexp.MustCompile(`(?m)^% .*`)
)

// sessionSetup disables paging and line wrapping
var sessionSetup = []string{
	"terminal length 0",
	"terminal width 0",
}

// Login waits for the first prompt, enters privileged exec mode when the
// device starts in user mode and prepares the terminal
func Login(ctx context.Context, conn transmit.Conn, cred *domain.Credential, timeout time.Duration) error {
	m, err := conn.Expect(ctx, []*regexp.Regexp{privPrompt, userPrompt}, timeout)
	if err != nil {
		return fmt.Errorf("waiting for login prompt: %w", err)
	}
	if m.Index == 1 {
		if err := enable(ctx, conn, cred.EnableSecret(), timeout); err != nil {
			return err
		}
	}

	for _, cmd := range sessionSetup {
		if err := conn.Send(ctx, cmd+"\n"); err != nil {
			return err
		}
		m, err := conn.Expect(ctx, []*regexp.Regexp{privPrompt, errorReply}, timeout)
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		if m.Index == 1 {
			return &domain.DeviceRejectedError{Line: cmd, Reply: strings.TrimSpace(m.Text)}
		}
	}
	return nil
}

func enable(ctx context.Context, conn transmit.Conn, secret string, timeout time.Duration) error {
	if err := conn.Send(ctx, "enable\n"); err != nil {
		return err
	}
	patterns := []*regexp.Regexp{privPrompt, passwordPrompt, errorReply, userPrompt}
	sentSecret := false
	for {
		m, err := conn.Expect(ctx, patterns, timeout)
		if err != nil {
			return fmt.Errorf("enable: %w", err)
		}
		switch m.Index {
		case 0:
			return nil
		case 1:
			if sentSecret || secret == "" {
				return &domain.DeviceRejectedError{Line: "enable", Reply: "enable secret rejected or missing"}
			}
			if err := conn.Send(ctx, secret+"\n"); err != nil {
				return err
			}
			sentSecret = true
		default:
			return &domain.DeviceRejectedError{Line: "enable", Reply: strings.TrimSpace(m.Before + m.Text)}
		}
	}
}
