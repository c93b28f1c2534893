package apply

import (
	"context"
	"strings"

	"iosctl/internal/domain"
	"iosctl/internal/transmit"
)

// LiveCommand runs an operator command. A few commands are answered by the
// session itself; "config a ; b" sends lines through config mode and
// anything else goes to the device as an exec command.
func (s *Session) LiveCommand(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text = strings.TrimSpace(text)
	switch text {
	case "show warnings":
		if s.state.Warnings == "" {
			return "no warnings\n", nil
		}
		return s.state.Warnings, nil
	case "show capabilities":
		return s.state.Capabilities.String(), nil
	case "show secrets":
		keys, err := s.secrets.Cached(ctx)
		if err != nil {
			return "", err
		}
		return strings.Join(keys, "\n") + "\n", nil
	case "secrets resync":
		s.secrets.Resync()
		return "cached secrets will be dropped on the next read\n", nil
	}

	if lines, ok := strings.CutPrefix(text, "config "); ok {
		var texts []string
		for _, l := range strings.Split(lines, ";") {
			if l = strings.TrimSpace(l); l != "" {
				texts = append(texts, l)
			}
		}
		if err := s.send(ctx, domain.NewBuffer(texts...), transmit.Strict); err != nil {
			return "", err
		}
		if s.state.Warnings != "" {
			return s.state.Warnings, nil
		}
		return "ok\n", nil
	}

	return s.device.Exec(ctx, text)
}
