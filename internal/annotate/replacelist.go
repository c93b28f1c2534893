package annotate

import (
	"fmt"
	"strings"

	"iosctl/internal/datastore"
	"iosctl/internal/domain"
)

// replaceList handles lists the device cannot edit member by member. When
// the diff deletes a member, the whole list is deleted and rebuilt from the
// live configuration.
//
// Values: entry prefix, sublist, leaf, optional model regexp. The
// "-withkey" variant repeats the sublist key on every member line and
// "-withdesc" re-emits the list description.
func replaceList(p *pass, l *domain.Line, a domain.Annotation) error {
	ok, err := p.modelMatches(a, a.Value(3))
	if err != nil || !ok {
		return err
	}

	prefix, sublist, leaf := a.Value(0), a.Value(1), a.Value(2)
	name := datastore.LastKey(a.Path)
	head := prefix + " " + name

	i := p.index(l)
	deletes := false
	for _, x := range p.buf.Lines[i:] {
		if strings.HasPrefix(x.Trimmed(), "no "+head+" ") {
			deletes = true
			break
		}
	}
	if !deletes {
		return nil
	}

	l.Suppressed = true
	for _, x := range p.buf.Lines[i+1:] {
		if x.Suppressed {
			continue
		}
		for _, other := range x.Annotations {
			if other.Key() == a.Key() {
				x.Suppressed = true
				x.Annotations = nil
				break
			}
		}
	}

	indent := l.Indent()
	out := []string{indent + "no " + head}
	present, err := p.exists(p.to, "to", a.Path)
	if err != nil {
		return err
	}
	if present {
		if strings.Contains(a.Tag, "-withdesc") {
			desc, ok, err := p.leaf(p.to, "to", a.Path+"/description")
			if err != nil {
				return err
			}
			if ok {
				out = append(out, indent+head+" description "+desc)
			}
		}
		entries, err := p.to.ReadList(p.ctx, a.Path+"/"+sublist)
		if err != nil {
			return fmt.Errorf("to read list %s/%s: %w", a.Path, sublist, err)
		}
		for _, e := range entries {
			line := indent + head
			if strings.Contains(a.Tag, "-withkey") {
				line += " " + sublist + " " + e.Key
			}
			out = append(out, line+" "+e.Leaf(leaf))
		}
	}

	p.trace(a, "replaced list", head)
	p.buf.Insert(p.index(l)+1, newLines(out)...)
	p.buf.Reindex()
	return nil
}
