package annotate

import (
	"strings"

	"iosctl/internal/datastore"
	"iosctl/internal/domain"
)

// deleteSyntax rewrites a delete line the device spells differently.
// No values strips the line, one value replaces it and two values are a
// regexp and its replacement.
func deleteSyntax(p *pass, l *domain.Line, a domain.Annotation) error {
	if !l.Negated() {
		return nil
	}
	switch {
	case len(a.Values) >= 2:
		re, err := compile(a, a.Value(0))
		if err != nil {
			return err
		}
		l.SetText(replaceFirst(re, l.Text, a.Value(1)))
	case len(a.Values) == 1:
		l.SetText(a.Value(0))
	default:
		l.Suppressed = true
	}
	p.trace(a, "delete syntax", l.Text)
	return nil
}

// deleteWithDefault turns "no X" into "default X" when X is gone
func deleteWithDefault(p *pass, l *domain.Line, a domain.Annotation) error {
	if !l.Negated() {
		return nil
	}
	present, err := p.exists(p.to, "to", a.Path)
	if err != nil || present {
		return err
	}
	l.SetText(l.Indent() + "default " + strings.TrimPrefix(l.Trimmed(), "no "))
	p.trace(a, "transformed", l.Text)
	return nil
}

// booleanDeleteWithDefault handles leaves whose removal is shown as the
// positive command: "X" becomes "default X" when the leaf is gone
func booleanDeleteWithDefault(p *pass, l *domain.Line, a domain.Annotation) error {
	if l.Negated() {
		return nil
	}
	present, err := p.exists(p.to, "to", a.Path)
	if err != nil || present {
		return err
	}
	l.SetText(l.Indent() + "default " + l.Trimmed())
	p.trace(a, "transformed", l.Text)
	return nil
}

// trimWhenListDeleted drops a create line whose list entry does not survive
// the transaction
func trimWhenListDeleted(p *pass, l *domain.Line, a domain.Annotation) error {
	if l.Negated() {
		return nil
	}
	present, err := p.exists(p.to, "to", datastore.Parent(a.Path))
	if err != nil {
		return err
	}
	if !present || p.deletedLater(l) {
		p.trace(a, "stripped", l.Text)
		l.Suppressed = true
	}
	return nil
}

// trimEmptyCreate drops a create line matching value 0 in full. The
// "-trimmed" variant matches the line without indentation.
func trimEmptyCreate(p *pass, l *domain.Line, a domain.Annotation) error {
	if l.Negated() {
		return nil
	}
	re, err := anchored(a, a.Value(0))
	if err != nil {
		return err
	}
	if re.MatchString(l.Text) || (strings.HasSuffix(a.Tag, "-trimmed") && re.MatchString(l.Trimmed())) {
		p.trace(a, "stripped", l.Text)
		l.Suppressed = true
	}
	return nil
}

// trimDeleteWhenEmpty cuts a delete line after the first group of value 0
// when the whole node is gone
func trimDeleteWhenEmpty(p *pass, l *domain.Line, a domain.Annotation) error {
	if !l.Negated() {
		return nil
	}
	present, err := p.exists(p.to, "to", a.Path)
	if err != nil || present {
		return err
	}
	re, err := compile(a, a.Value(0))
	if err != nil {
		return err
	}
	m := re.FindStringSubmatchIndex(l.Text)
	if m == nil || len(m) < 4 || m[3] < 0 {
		return nil
	}
	l.SetText(l.Text[:m[3]])
	p.trace(a, "deleted", l.Text)
	return nil
}
