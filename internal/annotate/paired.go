package annotate

import (
	"strconv"
	"strings"

	"iosctl/internal/datastore"
	"iosctl/internal/domain"
)

// pairedOrder keeps a value below (lower-than) or above (higher-than) a
// related threshold that follows it in the buffer. When the threshold moves
// in the direction that makes the new value acceptable only afterwards, the
// threshold line is sent first.
//
// Values: target path relative to the annotated node, target default,
// target line prefix (whitespace sensitive).
func pairedOrder(p *pass, l *domain.Line, a domain.Annotation) error {
	if l.Negated() {
		return nil
	}
	var target *domain.Line
	for _, x := range p.buf.Lines[p.index(l)+1:] {
		if !x.Suppressed && strings.HasPrefix(x.Text, a.Value(2)) {
			target = x
			break
		}
	}
	if target == nil {
		return nil
	}

	def, err := strconv.ParseInt(strings.TrimSpace(a.Value(1)), 10, 64)
	if err != nil {
		return &domain.AnnotationMalformedError{Annotation: a.Raw, Reason: "target default is not a number"}
	}
	path := a.Path + "/" + a.Value(0)
	was, err := p.number(p.from, "from", path, def)
	if err != nil {
		return err
	}
	now, err := p.number(p.to, "to", path, def)
	if err != nil {
		return err
	}

	raise := a.Kind() == domain.KindLowerThan && now > was
	lower := a.Kind() == domain.KindHigherThan && now < was
	if !raise && !lower {
		return nil
	}
	p.trace(a, "moved up", target.Text)
	p.buf.Move(p.index(target), p.index(l))
	p.buf.Reindex()
	return nil
}

// number reads an integer leaf, falling back to def when unset
func (p *pass) number(h datastore.Handle, side, path string, def int64) (int64, error) {
	v, ok, err := p.leaf(h, side, path)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return def, nil
	}
	return n, nil
}
