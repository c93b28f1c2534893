// Package defaults remembers configuration the orchestrator set explicitly to
// a value the device hides because it is the default, and puts it back into
// show output so that the next read does not report a spurious diff.
//
// A "default-value" annotation carries an injection template followed by the
// candidate default lines:
//
//	! meta-data :: /interface/GigabitEthernet{0/1}/wrr-queue/cos-map :: default-value :: $1 $2<NL> <DEFAULT><NL>exit :: wrr-queue cos-map 1 1 0
//
// $N is replaced by the N'th element of the annotated path, <NL> by a line
// break and <DEFAULT> by the line itself. A candidate may end in " MODEL=re"
// to apply only on matching devices, and "MAP=<name>" names one of the
// built-in default tables.
package defaults

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"iosctl/internal/domain"
	"iosctl/internal/repository"

	"github.com/rs/zerolog"
)

// Maps are the built-in default tables selectable with MAP=<name>
var Maps = map[string][]string{
	"WRR-QUEUE-COSMAP-2": {
		"wrr-queue cos-map 1 1 0",
		"wrr-queue cos-map 1 1 1",
		"wrr-queue cos-map 1 2 2",
		"wrr-queue cos-map 1 2 3",
	},
	"WRR-QUEUE-COSMAP-3": {
		"wrr-queue cos-map 1 1 0",
		"wrr-queue cos-map 1 2 1",
		"wrr-queue cos-map 3 1 6",
	},
}

// Cache stores injected default lines in the oper cache
type Cache struct {
	cache  repository.OperCache
	model  string
	logger zerolog.Logger
}

// New creates a default-value cache for a device model
func New(cache repository.OperCache, model string, logger zerolog.Logger) *Cache {
	return &Cache{
		cache:  cache,
		model:  model,
		logger: logger.With().Str("component", "defaults").Logger(),
	}
}

// Record scans an outgoing buffer for default-value annotations. Setting a
// hidden default stores its injection, deleting it removes the entry.
func (c *Cache) Record(ctx context.Context, buf *domain.Buffer) error {
	for _, l := range buf.Lines {
		for _, a := range l.Annotations {
			if a.Kind() != domain.KindDefaultValue {
				continue
			}
			if err := c.record(ctx, a, l.Trimmed()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Cache) record(ctx context.Context, a domain.Annotation, line string) error {
	if len(a.Values) < 2 {
		return &domain.AnnotationMalformedError{Annotation: a.Raw, Reason: "default-value needs a template and a default"}
	}
	deleting := strings.HasPrefix(line, "no ")
	line = strings.TrimPrefix(line, "no ")

	root := a.Path
	if i := lastSlash(root); i > 0 {
		root = root[:i]
	}
	key := repository.PrefixDefaults + strings.TrimPrefix(root, "/") + "/" + strings.ReplaceAll(line, " ", "")

	if !c.isDefault(a, line) {
		return nil
	}
	if deleting {
		c.logger.Debug().Str("key", key).Msg("removing injected default")
		return c.cache.Delete(ctx, key)
	}

	inject, err := expand(a.Value(0), pathTokens(root), line)
	if err != nil {
		return &domain.AnnotationMalformedError{Annotation: a.Raw, Reason: err.Error()}
	}
	c.logger.Debug().Str("key", key).Msg("caching injected default")
	return c.cache.Put(ctx, key, inject)
}

// isDefault reports whether line is one of the annotation's defaults
func (c *Cache) isDefault(a domain.Annotation, line string) bool {
	for _, cand := range a.Values[1:] {
		if name, ok := strings.CutPrefix(cand, "MAP="); ok {
			for _, d := range Maps[name] {
				if d == line {
					return true
				}
			}
			continue
		}
		if i := strings.Index(cand, " MODEL="); i > 0 {
			re, err := regexp.Compile(cand[i+len(" MODEL="):])
			if err != nil || !re.MatchString(c.model) {
				continue
			}
			cand = cand[:i]
		}
		if cand == line {
			return true
		}
	}
	return false
}

// Inject prepends every cached default to show
func (c *Cache) Inject(ctx context.Context, show string) (string, error) {
	entries, err := c.cache.List(ctx, repository.PrefixDefaults)
	if err != nil {
		return show, fmt.Errorf("list defaults: %w", err)
	}
	if len(entries) == 0 {
		return show, nil
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Value)
	}
	c.logger.Debug().Int("entries", len(entries)).Msg("injected hidden defaults")
	return b.String() + show, nil
}

var placeholder = regexp.MustCompile(`\$(\d)`)

// expand fills an injection template. The result ends with a line break.
func expand(tmpl string, tokens []string, line string) (string, error) {
	var missing error
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		n := int(m[1] - '1')
		if n < 0 || n >= len(tokens) {
			missing = fmt.Errorf("template references %s of %d path elements", m, len(tokens))
			return m
		}
		return tokens[n]
	})
	if missing != nil {
		return "", missing
	}
	out = strings.ReplaceAll(out, "<NL>", "\n")
	out = strings.ReplaceAll(out, "<DEFAULT>", line)

	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	out = strings.Join(lines, "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}

// pathTokens splits a structural path into elements, rendering list keys as
// command words: /interface/GigabitEthernet{0/1} -> [interface, GigabitEthernet 0/1]
func pathTokens(path string) []string {
	var out []string
	var b strings.Builder
	depth := 0
	flush := func() {
		if t := strings.TrimSpace(b.String()); t != "" {
			out = append(out, t)
		}
		b.Reset()
	}
	for _, r := range path {
		switch {
		case r == '{':
			depth++
			b.WriteByte(' ')
		case r == '}':
			depth--
		case r == '/' && depth == 0:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

// lastSlash returns the index of the last '/' outside list keys
func lastSlash(path string) int {
	depth := 0
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '}':
			depth++
		case '{':
			depth--
		case '/':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
