package apply

import (
	"context"
	"fmt"
	"strings"

	"iosctl/internal/datastore"
	"iosctl/internal/domain"
	"iosctl/internal/transmit"
)

// Prepare interprets diff against the transaction's datastores and sends it
// to the device. An empty result touches nothing and skips the next save.
func (s *Session) Prepare(ctx context.Context, txID, diff string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := s.transform(ctx, txID, diff)
	if err != nil {
		return err
	}
	s.secrets.Prepare(buf)
	s.state.LastApplied = buf

	if buf.Empty() {
		s.logger.Info().Str("tx", txID).Msg("nothing to send")
		s.state.IgnoreNextWrite = true
		return nil
	}
	return s.send(ctx, buf, transmit.Strict)
}

// Apply is Prepare for callers without a separate prepare phase
func (s *Session) Apply(ctx context.Context, txID, diff string) error {
	return s.Prepare(ctx, txID, diff)
}

// PrepareDry returns the text Prepare would send. Secrets stay sealed.
func (s *Session) PrepareDry(ctx context.Context, txID, diff string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, err := s.interpret(ctx, txID, diff)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Commit saves the configuration when configured to and caches the device
// encoding of any cleartext secrets sent during the transaction
func (s *Session) Commit(ctx context.Context, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	skip := s.state.IgnoreNextWrite
	s.state.IgnoreNextWrite = false
	if s.opts.WriteMemory == WriteOnCommit && !skip {
		if err := s.writeMemory(ctx); err != nil {
			return err
		}
	}

	if !s.secrets.Pending() {
		return nil
	}
	show, err := s.show(ctx)
	if err != nil {
		return fmt.Errorf("learn secrets: %w", err)
	}
	learned, err := s.secrets.Learn(ctx, show)
	if err != nil {
		return fmt.Errorf("learn secrets: %w", err)
	}
	if learned {
		s.logger.Debug().Str("tx", txID).Msg("learned secret encodings")
	}
	return nil
}

// Persist saves the configuration when saving is deferred to persist
func (s *Session) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.WriteMemory != WriteOnPersist {
		return nil
	}
	if s.state.IgnoreNextWrite {
		s.state.IgnoreNextWrite = false
		return nil
	}
	return s.writeMemory(ctx)
}

// Abort sends the reverse diff of a prepared transaction, ignoring rejects
func (s *Session) Abort(ctx context.Context, txID, diff string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets.Discard()
	return s.rollback(ctx, txID, diff)
}

// Revert sends the reverse diff of a committed transaction, ignoring
// rejects, and saves the result when saving on commit
func (s *Session) Revert(ctx context.Context, txID, diff string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rollback(ctx, txID, diff); err != nil {
		return err
	}
	if s.opts.WriteMemory == WriteOnCommit {
		return s.writeMemory(ctx)
	}
	return nil
}

func (s *Session) rollback(ctx context.Context, txID, diff string) error {
	buf, err := s.transform(ctx, txID, diff)
	if err != nil {
		return err
	}
	s.secrets.Prepare(buf)
	s.secrets.Discard()
	s.state.LastApplied = buf
	if buf.Empty() {
		return nil
	}
	return s.send(ctx, buf, transmit.IgnoreErrors)
}

// transform records hidden defaults and runs the annotation interpreter
func (s *Session) transform(ctx context.Context, txID, diff string) (*domain.Buffer, error) {
	buf, err := domain.ParseBuffer(diff)
	if err != nil {
		return nil, err
	}
	if err := s.defaults.Record(ctx, buf); err != nil {
		return nil, err
	}
	return s.run(ctx, txID, buf)
}

// interpret is transform without side effects on the defaults cache
func (s *Session) interpret(ctx context.Context, txID, diff string) (*domain.Buffer, error) {
	buf, err := domain.ParseBuffer(diff)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, txID, buf)
}

func (s *Session) run(ctx context.Context, txID string, buf *domain.Buffer) (*domain.Buffer, error) {
	var out *domain.Buffer
	err := datastore.WithHandles(ctx, s.store, txID, func(from, to datastore.Handle) error {
		var err error
		out, err = s.interp.Interpret(ctx, buf, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// send wraps a transmission in config mode. The mode exit is attempted even
// when the transmission fails; the transmission error wins.
func (s *Session) send(ctx context.Context, buf *domain.Buffer, mode transmit.Mode) error {
	if err := s.device.EnterConfig(ctx); err != nil {
		return fmt.Errorf("enter config mode: %w", err)
	}
	s.state.InConfig = true

	sendErr := s.device.Send(ctx, buf, mode)
	s.state.LastOK = s.device.LastOK()
	s.state.Warnings = s.device.Warnings()

	exitErr := s.device.ExitConfig(ctx)
	if exitErr == nil {
		s.state.InConfig = false
	}
	if sendErr != nil {
		if exitErr != nil {
			s.logger.Warn().Err(exitErr).Msg("could not leave config mode after failure")
		}
		return sendErr
	}
	if exitErr != nil {
		return fmt.Errorf("exit config mode: %w", exitErr)
	}
	if s.state.Warnings != "" {
		s.logger.Info().Str("warnings", s.state.Warnings).Msg("device warnings")
	}
	return nil
}

// writeMemory saves the running configuration
func (s *Session) writeMemory(ctx context.Context) error {
	reply, err := s.device.Exec(ctx, s.opts.WriteCommand)
	if err != nil {
		return fmt.Errorf("%s: %w", s.opts.WriteCommand, err)
	}
	if strings.Contains(reply, "Invalid input") || strings.Contains(reply, "Error") {
		return &domain.DeviceRejectedError{Line: s.opts.WriteCommand, Reply: strings.TrimSpace(reply)}
	}
	s.logger.Info().Msg("configuration saved")
	return nil
}
