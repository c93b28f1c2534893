package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Restorer substitutes cached cleartext secrets into show output
type Restorer interface {
	Restore(ctx context.Context, show string) (string, error)
}

// Injector adds hidden default values back into show output
type Injector interface {
	Inject(ctx context.Context, show string) (string, error)
}

// Normalizer produces canonical configuration text for one device session
type Normalizer struct {
	opts    Options
	caps    *Capabilities
	queries []Query
	logger  zerolog.Logger

	// Secrets, Defaults and Leaves are optional
	Secrets  Restorer
	Defaults Injector
	Leaves   LeafReader
}

// New creates a normalizer. caps is shared with the session so cleared bits
// persist across reads.
func New(opts Options, caps *Capabilities, logger zerolog.Logger) *Normalizer {
	if caps == nil {
		caps = NewCapabilities()
	}
	disabled := make(map[string]bool, len(opts.DisabledQueries))
	for _, name := range opts.DisabledQueries {
		disabled[name] = true
	}
	var queries []Query
	for _, q := range Queries {
		if !disabled[q.Name] {
			queries = append(queries, q)
		}
	}
	return &Normalizer{
		opts:    opts,
		caps:    caps,
		queries: queries,
		logger:  logger.With().Str("component", "normalize").Logger(),
	}
}

// Capabilities returns the session capability record
func (n *Normalizer) Capabilities() *Capabilities {
	return n.caps
}

// Normalize converts a raw running-config dump into canonical text.
// runner may be nil, in which case no supplementary queries are sent.
func (n *Normalizer) Normalize(ctx context.Context, raw string, runner Runner) (string, error) {
	text, err := Trim(raw)
	if err != nil {
		return "", err
	}

	qc := &queryContext{
		ctx:    ctx,
		runner: runner,
		caps:   n.caps,
		leaves: n.Leaves,
		logger: n.logger,
	}

	text = n.supplement(qc, text, false)
	text = QuoteTexts(text)
	text = ApplyInputRules(text, n.opts)
	text = n.supplement(qc, text, true)

	if n.Secrets != nil {
		if text, err = n.Secrets.Restore(ctx, text); err != nil {
			return "", fmt.Errorf("restore secrets: %w", err)
		}
	}
	if n.Defaults != nil {
		if text, err = n.Defaults.Inject(ctx, text); err != nil {
			return "", fmt.Errorf("inject defaults: %w", err)
		}
	}
	if text == "" {
		return "", nil
	}
	return text + "\n", nil
}

// supplement runs the early or late queries and places their lines
func (n *Normalizer) supplement(qc *queryContext, text string, late bool) string {
	if qc.runner == nil {
		return text
	}
	var head, tail []string
	for _, q := range n.queries {
		if q.Late != late {
			continue
		}
		qc.dump = text
		lines := qc.run(q)
		if q.Place == Prepend {
			head = append(head, lines...)
		} else {
			tail = append(tail, lines...)
		}
	}

	parts := make([]string, 0, 3)
	if len(head) > 0 {
		parts = append(parts, strings.Join(head, "\n"))
	}
	if text != "" {
		parts = append(parts, text)
	}
	if len(tail) > 0 {
		parts = append(parts, strings.Join(tail, "\n"))
	}
	return strings.Join(parts, "\n")
}
