package annotate

import (
	"iosctl/internal/domain"
)

// reorder moves the line matching value 0 immediately before or after the
// line matching value 2 within the enclosing block until no candidate is left
// out of place. A model regexp in value 3 that does not match the device
// toggles the direction. Only a line on the wrong side counts as out of
// place; one already on the right side stays where it is even when other
// lines sit between the two.
func reorder(p *pass, l *domain.Line, a domain.Annotation) error {
	before := a.Value(1) == "before"
	ok, err := p.modelMatches(a, a.Value(3))
	if err != nil {
		return err
	}
	if !ok {
		before = !before
	}

	mover, err := anchored(a, a.Value(0))
	if err != nil {
		return err
	}
	stayer, err := anchored(a, a.Value(2))
	if err != nil {
		return err
	}

	start, end := p.block(l)
	for range p.buf.Lines {
		stay := -1
		for j := start; j < end; j++ {
			x := p.buf.Lines[j]
			if !x.Suppressed && stayer.MatchString(x.Trimmed()) {
				stay = j
			}
		}
		if stay < 0 {
			return nil
		}

		move := -1
		if before {
			for j := stay + 1; j < end; j++ {
				if x := p.buf.Lines[j]; !x.Suppressed && mover.MatchString(x.Trimmed()) {
					move = j
					break
				}
			}
		} else {
			for j := start; j < stay; j++ {
				if x := p.buf.Lines[j]; !x.Suppressed && mover.MatchString(x.Trimmed()) {
					move = j
					break
				}
			}
		}
		if move < 0 {
			return nil
		}

		p.trace(a, "moved "+a.Value(1), p.buf.Lines[move].Text)
		if before {
			p.buf.Move(move, stay)
		} else {
			p.buf.Move(move, stay+1)
		}
		p.buf.Reindex()
	}
	return nil
}
