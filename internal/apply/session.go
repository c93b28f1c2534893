package apply

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"iosctl/internal/annotate"
	"iosctl/internal/datastore"
	"iosctl/internal/defaults"
	"iosctl/internal/domain"
	"iosctl/internal/normalize"
	"iosctl/internal/repository"
	"iosctl/internal/secrets"
	"iosctl/internal/transmit"

	"github.com/rs/zerolog"
)

const showCommand = "show running-config"

// Device is the transmission surface a session drives.
// *transmit.Transmitter implements it.
type Device interface {
	EnterConfig(ctx context.Context) error
	ExitConfig(ctx context.Context) error
	Send(ctx context.Context, buf *domain.Buffer, mode transmit.Mode) error
	Exec(ctx context.Context, cmd string) (string, error)
	Warnings() string
	LastOK() string
}

// Options tune a session
type Options struct {
	WriteMemory  WriteMode
	WriteCommand string
	Normalize    normalize.Options
}

// Deps are the collaborators a session is built from
type Deps struct {
	Device    Device
	Store     datastore.Store
	Cache     repository.OperCache
	Decrypter secrets.Decrypter
}

// Session runs the operations of one device, one at a time
type Session struct {
	mu sync.Mutex

	state    *State
	device   Device
	store    datastore.Store
	secrets  *secrets.Codec
	defaults *defaults.Cache
	norm     *normalize.Normalizer
	interp   *annotate.Interpreter
	opts     Options
	logger   zerolog.Logger
}

// New creates a session around state. A nil state starts a fresh one.
func New(state *State, deps Deps, opts Options, logger zerolog.Logger) *Session {
	if state == nil {
		state = NewState("")
	}
	if state.Capabilities == nil {
		state.Capabilities = normalize.NewCapabilities()
	}
	if opts.WriteMemory == "" {
		opts.WriteMemory = WriteOnCommit
	}
	if opts.WriteCommand == "" {
		opts.WriteCommand = "write memory"
	}
	logger = logger.With().Str("session", state.ID).Logger()

	s := &Session{
		state:    state,
		device:   deps.Device,
		store:    deps.Store,
		secrets:  secrets.NewCodec(deps.Cache, deps.Decrypter, logger),
		defaults: defaults.New(deps.Cache, state.Model, logger),
		norm:     normalize.New(opts.Normalize, state.Capabilities, logger),
		interp:   annotate.New(state.Model, logger),
		opts:     opts,
		logger:   logger.With().Str("component", "apply").Logger(),
	}
	s.norm.Secrets = s.secrets
	s.norm.Defaults = s.defaults
	if deps.Store != nil {
		s.norm.Leaves = runningLeaves{store: deps.Store}
	}
	return s
}

// State returns the session record
func (s *Session) State() *State {
	return s.state
}

// Show reads and normalizes the running configuration. A non-empty
// selector keeps only the blocks whose top-level command starts with it.
func (s *Session) Show(ctx context.Context, selector string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.show(ctx)
	if err != nil {
		return "", err
	}
	return filterTop(text, selector), nil
}

func (s *Session) show(ctx context.Context) (string, error) {
	raw, err := s.device.Exec(ctx, showCommand)
	if err != nil {
		return "", fmt.Errorf("%s: %w", showCommand, err)
	}
	text, err := s.norm.Normalize(ctx, raw, s.device)
	if err != nil {
		return "", err
	}
	s.state.LastShow = text
	s.logger.Debug().Int("bytes", len(text)).Msg("read running config")
	return text, nil
}

// Fingerprint identifies the current configuration. The text of the last
// Show is used once when available.
func (s *Session) Fingerprint(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := s.state.LastShow
	s.state.LastShow = ""
	if text == "" {
		var err error
		if text, err = s.show(ctx); err != nil {
			return "", err
		}
		s.state.LastShow = ""
	}
	return Fingerprint(text), nil
}

// filterTop keeps the blocks whose top-level command starts with selector
func filterTop(text, selector string) string {
	if selector == "" {
		return text
	}
	var b strings.Builder
	keep := false
	for _, l := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		if domain.IsTop(l) && !domain.IsTopExit(l) {
			keep = strings.HasPrefix(l, selector)
		}
		if keep {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// runningLeaves reads hidden values from the running datastore
type runningLeaves struct {
	store datastore.Store
}

func (r runningLeaves) ReadLeaf(ctx context.Context, path string) (string, bool, error) {
	h, err := r.store.Attach(ctx, "", datastore.To)
	if err != nil {
		return "", false, err
	}
	defer h.Detach()
	return h.ReadLeaf(ctx, path)
}
