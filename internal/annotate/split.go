package annotate

import (
	"regexp"
	"strconv"
	"strings"

	"iosctl/internal/domain"
)

// MaxLineLength is the longest line split-long-line lets through
const MaxLineLength = 250

// nthIndex returns the index of the n'th occurrence of sep in s, or -1
func nthIndex(s, sep string, n int) int {
	at := -1
	for ; n > 0; n-- {
		j := strings.Index(s[at+1:], sep)
		if j < 0 {
			return -1
		}
		at += j + 1
	}
	return at
}

func intValue(a domain.Annotation, i int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(a.Value(i)))
	if err != nil {
		return 0, &domain.AnnotationMalformedError{Annotation: a.Raw, Reason: "value " + strconv.Itoa(i) + " is not a number"}
	}
	return n, nil
}

// maxValues splits a line carrying more values than the device accepts on
// one command. Values are separated by value 2 (default blank) and start
// after the offset'th word.
func maxValues(p *pass, l *domain.Line, a domain.Annotation) error {
	offset, err := intValue(a, 0)
	if err != nil {
		return err
	}
	limit, err := intValue(a, 1)
	if err != nil {
		return err
	}
	if limit < 1 {
		return &domain.AnnotationMalformedError{Annotation: a.Raw, Reason: "max-values below one"}
	}

	// mode lines only split when they carry no sub-mode content
	if strings.HasSuffix(a.Tag, "-mode") {
		if i := p.index(l); i+1 < len(p.buf.Lines) && p.buf.Lines[i+1].Depth > l.Depth {
			return nil
		}
	}

	sep := " "
	if v := a.Value(2); v != "" {
		sep = v
	}
	trimmed := l.Trimmed()
	if l.Negated() {
		offset++
	}
	start := nthIndex(trimmed, " ", offset)
	if start < 0 {
		return nil
	}

	values := regexp.MustCompile("(?:"+regexp.QuoteMeta(sep)+")+").Split(strings.TrimSpace(trimmed[start+1:]), -1)
	if len(values) <= limit {
		return nil
	}

	prefix := l.Indent() + trimmed[:start] + " "
	var out []string
	for i := 0; i < len(values); i += limit {
		end := min(i+limit, len(values))
		out = append(out, prefix+strings.Join(values[i:end], sep))
	}
	p.trace(a, "split into "+strconv.Itoa(len(out))+" lines", l.Text)
	p.replace(l, out...)
	return nil
}

// splitLongLine breaks a line longer than MaxLineLength into several lines
// repeating the first value-0 words
func splitLongLine(p *pass, l *domain.Line, a domain.Annotation) error {
	if len(l.Text) < MaxLineLength {
		return nil
	}
	words, err := intValue(a, 0)
	if err != nil {
		return err
	}
	trimmed := l.Trimmed()
	if l.Negated() {
		words++
	}
	offset := nthIndex(trimmed, " ", words)
	if offset < 0 {
		return nil
	}

	base := l.Indent() + trimmed[:offset]
	var out []string
	cur := ""
	for _, v := range strings.Fields(trimmed[offset+1:]) {
		if cur != "" && len(cur)+1+len(v) < MaxLineLength {
			cur += " " + v
			continue
		}
		if cur != "" {
			out = append(out, cur)
		}
		cur = base + " " + v
	}
	if cur != "" {
		out = append(out, cur)
	}
	if len(out) < 2 {
		return nil
	}
	p.trace(a, "split long line", l.Text)
	p.replace(l, out...)
	return nil
}
