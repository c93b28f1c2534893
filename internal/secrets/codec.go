package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"iosctl/internal/domain"
	"iosctl/internal/repository"

	"github.com/rs/zerolog"
)

// pair is the cached association between what was sent and what the device shows
type pair struct {
	Encrypted string `json:"encrypted"`
	Cleartext string `json:"cleartext"`
}

// Codec tracks secrets for one device session
type Codec struct {
	cache     repository.OperCache
	decrypter Decrypter
	logger    zerolog.Logger

	// pending holds cleartext values sent in the current transaction, by key
	pending map[string]string
	resync  bool
}

// NewCodec creates a codec persisting pairs in cache
func NewCodec(cache repository.OperCache, decrypter Decrypter, logger zerolog.Logger) *Codec {
	return &Codec{
		cache:     cache,
		decrypter: decrypter,
		logger:    logger.With().Str("component", "secrets").Logger(),
		pending:   make(map[string]string),
	}
}

// Prepare scans an outgoing buffer: orchestrator-encrypted tokens are
// revealed (marking the line Substituted) and cleartext secrets are remembered
// so Learn can pair them with the device encoding after commit
func (c *Codec) Prepare(buf *domain.Buffer) {
	for _, l := range buf.Lines {
		if l.Suppressed {
			continue
		}
		if text, ok := Reveal(c.decrypter, l.Text); ok {
			l.Text = text
			l.Substituted = true
		}
		m, ok := find(l.Top, l.Text)
		if !ok || !IsClearText(m.value) {
			continue
		}
		c.pending[m.key] = m.value
	}
}

// Learn pairs pending cleartext values with the encodings shown by the
// device. It reports whether any new pair was cached.
func (c *Codec) Learn(ctx context.Context, show string) (bool, error) {
	if len(c.pending) == 0 {
		return false, nil
	}
	defer func() { c.pending = make(map[string]string) }()

	buf := domain.NewBuffer(strings.Split(show, "\n")...)
	learned := false
	for _, l := range buf.Lines {
		m, ok := find(l.Top, l.Text)
		if !ok || IsClearText(m.value) {
			continue
		}
		plain, ok := c.pending[m.key]
		if !ok {
			continue
		}
		if err := c.store(ctx, m.key, pair{Encrypted: m.value, Cleartext: plain}); err != nil {
			return learned, err
		}
		c.logger.Debug().Str("key", m.key).Msg("cached secret encoding")
		learned = true
	}
	return learned, nil
}

// Pending reports whether cleartext values await their device encoding
func (c *Codec) Pending() bool {
	return len(c.pending) > 0
}

// Discard forgets pending values (abort path)
func (c *Codec) Discard() {
	c.pending = make(map[string]string)
}

// Restore substitutes cached cleartext into show output wherever the device
// still displays the cached encoding. Stale pairs are dropped.
func (c *Codec) Restore(ctx context.Context, show string) (string, error) {
	if c.resync {
		if err := repository.DeletePrefix(ctx, c.cache, repository.PrefixSecrets); err != nil {
			return show, fmt.Errorf("resync secrets: %w", err)
		}
		c.resync = false
	}

	lines := strings.Split(show, "\n")
	buf := domain.NewBuffer(lines...)
	for i, l := range buf.Lines {
		m, ok := find(l.Top, l.Text)
		if !ok || IsClearText(m.value) {
			continue
		}
		p, err := c.load(ctx, m.key)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return show, err
		}
		if p.Encrypted != m.value {
			c.logger.Info().Str("key", m.key).Msg("secret changed on device, dropping cached cleartext")
			if err := c.cache.Delete(ctx, cachePath(m.key)); err != nil {
				return show, err
			}
			continue
		}
		lines[i] = l.Text[:m.start] + p.Cleartext + l.Text[m.start+len(m.value):]
	}
	return strings.Join(lines, "\n"), nil
}

// Resync drops every cached pair on the next Restore
func (c *Codec) Resync() {
	c.resync = true
}

// Mask replaces the secret value on a line with asterisks for tracing
func Mask(top, text string) string {
	m, ok := find(top, text)
	if !ok {
		return encryptedValue.ReplaceAllString(text, " *****")
	}
	return text[:m.start] + "*****" + text[m.start+len(m.value):]
}

// Cached returns the keys of every cached pair
func (c *Codec) Cached(ctx context.Context) ([]string, error) {
	entries, err := c.cache.List(ctx, repository.PrefixSecrets)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, strings.TrimPrefix(e.Path, repository.PrefixSecrets))
	}
	return keys, nil
}

func (c *Codec) store(ctx context.Context, key string, p pair) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.cache.Put(ctx, cachePath(key), string(data))
}

func (c *Codec) load(ctx context.Context, key string) (pair, error) {
	var p pair
	raw, err := c.cache.Get(ctx, cachePath(key))
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("corrupt secret entry %s: %w", key, err)
	}
	return p, nil
}

func cachePath(key string) string {
	return repository.PrefixSecrets + key
}
