package domain

import (
	"errors"
	"fmt"
)

// Sentinel values for errors.Is matching against the taxonomy
var (
	ErrProtocolTimeout        = errors.New("protocol timeout")
	ErrDeviceRejected         = errors.New("device rejected command")
	ErrAnnotationMalformed    = errors.New("annotation malformed")
	ErrReconcileInconsistency = errors.New("reconcile inconsistency")
	ErrModeExitUnexpected     = errors.New("unexpected exit from config mode")
	ErrQueryUnsupported       = errors.New("supplementary query unsupported")
)

// ProtocolTimeoutError is raised when a deadline expires waiting for the device
type ProtocolTimeoutError struct {
	Line     string // command being processed, empty while idle
	Expected string // what was awaited (echo, prompt, ...)
	Buffered string // partial output received before the deadline
}

func (e *ProtocolTimeoutError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("timeout waiting for %s, received: %q", e.Expected, e.Buffered)
	}
	return fmt.Sprintf("timeout waiting for %s after '%s', received: %q", e.Expected, e.Line, e.Buffered)
}

func (e *ProtocolTimeoutError) Is(target error) bool { return target == ErrProtocolTimeout }

// DeviceRejectedError carries the command and the verbatim device reply
type DeviceRejectedError struct {
	Line      string
	Reply     string
	Retryable bool
	Attempts  int
}

func (e *DeviceRejectedError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("command '%s' rejected [%d retries]: %s", e.Line, e.Attempts-1, e.Reply)
	}
	return fmt.Sprintf("command '%s' rejected: %s", e.Line, e.Reply)
}

func (e *DeviceRejectedError) Is(target error) bool { return target == ErrDeviceRejected }

// AnnotationMalformedError reports an annotation missing a required field
type AnnotationMalformedError struct {
	Annotation string
	Reason     string
}

func (e *AnnotationMalformedError) Error() string {
	return fmt.Sprintf("malformed annotation '%s': %s", e.Annotation, e.Reason)
}

func (e *AnnotationMalformedError) Is(target error) bool { return target == ErrAnnotationMalformed }

// ReconcileInconsistencyError reports a directive that contradicts the cached list
type ReconcileInconsistencyError struct {
	List   string
	Rule   string
	Reason string
}

func (e *ReconcileInconsistencyError) Error() string {
	return fmt.Sprintf("access-list %s: %s '%s'", e.List, e.Reason, e.Rule)
}

func (e *ReconcileInconsistencyError) Is(target error) bool {
	return target == ErrReconcileInconsistency
}

// ModeExitUnexpectedError is raised when the device drops back to exec mode mid-apply
type ModeExitUnexpectedError struct {
	Line  string
	Reply string
}

func (e *ModeExitUnexpectedError) Error() string {
	return fmt.Sprintf("command '%s' exited from config mode: %s", e.Line, e.Reply)
}

func (e *ModeExitUnexpectedError) Is(target error) bool { return target == ErrModeExitUnexpected }

// SupplementaryQueryUnsupportedError marks a show query the device does not know.
// It is recorded as a capability flag and never surfaced to the orchestrator.
type SupplementaryQueryUnsupportedError struct {
	Query string
	Reply string
}

func (e *SupplementaryQueryUnsupportedError) Error() string {
	return fmt.Sprintf("query '%s' unsupported: %s", e.Query, e.Reply)
}

func (e *SupplementaryQueryUnsupportedError) Is(target error) bool {
	return target == ErrQueryUnsupported
}

// IsFatal reports whether err must abort the surrounding apply without retry
func IsFatal(err error) bool {
	var rej *DeviceRejectedError
	if errors.As(err, &rej) {
		return !rej.Retryable
	}
	return err != nil && !errors.Is(err, ErrQueryUnsupported)
}
