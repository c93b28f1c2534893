// Package acl reconciles ordered access lists on devices that only append
// rules or renumber them wholesale.
//
// The orchestrator describes an ordering change with directive comments
// ("! insert before <rule>", "! move after <rule>") preceding a rule line.
// The Reconciler mirrors the last known device list, applies the directives
// in memory and emits numbered inserts between parked entries, bracketed by
// a resequence to a high band and back to a dense low band.
package acl

import (
	"fmt"
	"regexp"
	"strings"

	"iosctl/internal/domain"

	"github.com/rs/zerolog"
)

// Parked is the spacing of existing entries after the first resequence
const Parked = 1000

// HeaderPrefix opens an extended access list block
const HeaderPrefix = "ip access-list extended "

var directive = regexp.MustCompile(`^! (move|insert) (after|before) (.+)$`)

// Reconciler computes the command sequence for one access list change
type Reconciler struct {
	logger zerolog.Logger
}

// New creates a Reconciler
func New(logger zerolog.Logger) *Reconciler {
	return &Reconciler{logger: logger.With().Str("component", "acl").Logger()}
}

// Park numbers rules the way the device holds them after "resequence 1000 1000"
func Park(rules []string) []domain.AccessListEntry {
	out := make([]domain.AccessListEntry, len(rules))
	for i, r := range rules {
		out[i] = domain.NewAccessListEntry(Parked*(i+1), strings.TrimSpace(r))
	}
	return out
}

// Rules returns the rule texts of entries in order
func Rules(entries []domain.AccessListEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Rule
	}
	return out
}

// Reconcile turns the body of an "ip access-list extended <name>" block into
// device commands. cached is the list as last known on the device; body holds
// the directive stream without the header and exit lines.
func (r *Reconciler) Reconcile(name string, cached []domain.AccessListEntry, body []string) ([]string, error) {
	cmds, _, err := r.reconcile(name, cached, body)
	return cmds, err
}

func (r *Reconciler) reconcile(name string, cached []domain.AccessListEntry, body []string) ([]string, []domain.AccessListEntry, error) {
	if len(cached) == 0 {
		return r.create(name, body)
	}

	list := Park(Rules(cached))
	known := make(map[string]bool, len(list))
	for _, e := range list {
		known[e.Rule] = true
	}

	cmds := []string{HeaderPrefix + name}
	cursor := -1
	for i := 0; i < len(body); i++ {
		t := strings.TrimSpace(body[i])
		switch {
		case t == "":
			continue

		case strings.HasPrefix(t, "! "):
			m := directive.FindStringSubmatch(t)
			if m == nil || i+1 >= len(body) {
				return nil, nil, &domain.AnnotationMalformedError{Annotation: t, Reason: "access-list directive without rule"}
			}
			i++
			rule := strings.TrimSpace(body[i])
			op, where, ref := m[1], m[2], strings.TrimSpace(m[3])

			if op == "move" {
				idx := indexOf(list, rule)
				if idx < 0 {
					return nil, nil, &domain.ReconcileInconsistencyError{List: name, Rule: rule, Reason: "rule to move not in cached list"}
				}
				list = remove(list, idx)
				cmds = append(cmds, " no "+rule)
			}
			known[rule] = true
			cursor = -1

			at := indexOf(list, ref)
			if at < 0 {
				if !known[ref] {
					return nil, nil, &domain.ReconcileInconsistencyError{List: name, Rule: ref, Reason: "unknown reference rule"}
				}
				r.logger.Warn().Str("acl", name).Str("rule", rule).Str("ref", ref).
					Msg("reference rule already removed, inserting last")
				list = append(list, domain.AccessListEntry{Rule: rule})
				continue
			}
			if where == "after" {
				at++
			}
			list = insert(list, at, domain.AccessListEntry{Rule: rule})

		case strings.HasPrefix(t, "no "):
			rule := strings.TrimSpace(t[3:])
			idx := indexOf(list, rule)
			if idx < 0 {
				return nil, nil, &domain.ReconcileInconsistencyError{List: name, Rule: rule, Reason: "rule to delete not in cached list"}
			}
			list = remove(list, idx)
			cmds = append(cmds, " no "+rule)
			cursor = -1

		default:
			if idx := indexOf(list, t); idx >= 0 {
				r.logger.Debug().Str("acl", name).Str("rule", t).Msg("ignoring duplicate rule")
				cursor = idx + 1
				continue
			}
			known[t] = true
			if cursor >= 0 {
				list = insert(list, cursor, domain.AccessListEntry{Rule: t})
				cursor++
			} else {
				list = append(list, domain.AccessListEntry{Rule: t})
			}
		}
	}

	numbered, err := number(name, list)
	if err != nil {
		return nil, nil, err
	}
	cmds = append(cmds, numbered...)
	cmds = append(cmds, "exit")

	if len(list) > 0 {
		cmds = append([]string{resequence(name, Parked)}, cmds...)
		cmds = append(cmds, resequence(name, 10))
	}
	return cmds, list, nil
}

// create handles a list the device does not have yet: rules are sent as
// given and insert directives are meaningless
func (r *Reconciler) create(name string, body []string) ([]string, []domain.AccessListEntry, error) {
	cmds := []string{HeaderPrefix + name}
	var rules []string
	for _, l := range body {
		t := strings.TrimSpace(l)
		switch {
		case t == "":
			continue
		case strings.HasPrefix(t, "! move"):
			return nil, nil, &domain.AnnotationMalformedError{Annotation: t, Reason: "move in new access-list " + name}
		case strings.HasPrefix(t, "! insert"):
			continue
		}
		cmds = append(cmds, l)
		if !strings.HasPrefix(t, "no ") {
			rules = append(rules, t)
		}
	}
	r.logger.Debug().Str("acl", name).Int("rules", len(rules)).Msg("creating access-list")
	return append(cmds, "exit"), Park(rules), nil
}

// number assigns prev+1 to every entry without a sequence number
func number(name string, list []domain.AccessListEntry) ([]string, error) {
	var out []string
	seq := 0
	for i, e := range list {
		if e.Numbered() {
			seq = *e.Seq
			continue
		}
		seq++
		if next := nextNumbered(list, i); next >= 0 && seq >= next {
			return nil, &domain.ReconcileInconsistencyError{
				List:   name,
				Rule:   e.Rule,
				Reason: fmt.Sprintf("more than %d rules inserted before sequence %d", Parked-1, next),
			}
		}
		out = append(out, fmt.Sprintf(" %d %s", seq, e.Rule))
	}
	return out, nil
}

func nextNumbered(list []domain.AccessListEntry, from int) int {
	for _, e := range list[from+1:] {
		if e.Numbered() {
			return *e.Seq
		}
	}
	return -1
}

func resequence(name string, step int) string {
	return fmt.Sprintf("ip access-list resequence %s %d %d", name, step, step)
}

// indexOf finds rule searching from the tail, where "insert after" targets
// usually are
func indexOf(list []domain.AccessListEntry, rule string) int {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Rule == rule {
			return i
		}
	}
	return -1
}

func insert(list []domain.AccessListEntry, at int, e domain.AccessListEntry) []domain.AccessListEntry {
	list = append(list, domain.AccessListEntry{})
	copy(list[at+1:], list[at:])
	list[at] = e
	return list
}

func remove(list []domain.AccessListEntry, at int) []domain.AccessListEntry {
	return append(list[:at], list[at+1:]...)
}

// Batch reconciles the access lists of one diff. A list touched by several
// blocks is reconciled against the order produced by the earlier block.
type Batch struct {
	r     *Reconciler
	lists map[string][]domain.AccessListEntry
}

// NewBatch starts a batch
func (r *Reconciler) NewBatch() *Batch {
	return &Batch{r: r, lists: make(map[string][]domain.AccessListEntry)}
}

// Seen reports whether name was already reconciled in this batch
func (b *Batch) Seen(name string) bool {
	_, ok := b.lists[name]
	return ok
}

// Reconcile is Reconciler.Reconcile using the batch's view of name when known
func (b *Batch) Reconcile(name string, cached []domain.AccessListEntry, body []string) ([]string, error) {
	if prev, ok := b.lists[name]; ok {
		cached = prev
	}
	cmds, list, err := b.r.reconcile(name, cached, body)
	if err != nil {
		return nil, err
	}
	b.lists[name] = list
	return cmds, nil
}
