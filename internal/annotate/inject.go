package annotate

import (
	"strings"

	"iosctl/internal/datastore"
	"iosctl/internal/domain"
)

// inject re-sends a leaf of the enclosing entry that the device resets as a
// side effect of the annotated change.
//
// Values: path relative to the entry, leaf command, after|before,
// create|delete|any, optional value to ignore.
func inject(p *pass, l *domain.Line, a domain.Annotation) error {
	switch a.Value(3) {
	case "create":
		if l.Negated() {
			return nil
		}
	case "delete":
		if !l.Negated() {
			return nil
		}
	}

	entry := datastore.Parent(a.Path)
	if p.deletedLater(l) {
		return nil
	}
	leaf := a.Value(1)
	start, end := p.block(l)
	for _, x := range p.buf.Lines[start:end] {
		t := x.Trimmed()
		if strings.HasPrefix(t, leaf+" ") || t == leaf || strings.HasPrefix(t, "no "+leaf) {
			return nil
		}
	}

	v, ok, err := p.leaf(p.to, "to", datastore.Resolve(entry+"/"+a.Value(0)))
	if err != nil || !ok {
		return err
	}
	if ignore := a.Value(4); ignore != "" && ignore == v {
		return nil
	}

	text := l.Indent() + leaf + " " + v
	p.trace(a, "injected "+a.Value(2)+" "+l.Trimmed(), text)
	if a.Value(2) == "before" {
		p.insertBefore(l, text)
	} else {
		p.insertAfter(l, text)
	}
	return nil
}

// deletedLater reports whether the top-level entry enclosing l is deleted
// further down in the same buffer
func (p *pass) deletedLater(l *domain.Line) bool {
	if l.Parent < 0 {
		return false
	}
	del := "no " + l.Top
	for _, x := range p.buf.Lines[p.index(l)+1:] {
		if !x.Suppressed && x.Text == del {
			return true
		}
	}
	return false
}
