package annotate

import (
	"strings"

	"iosctl/internal/domain"
)

// stringAddQuotes wraps the <STRING> part of the value-0 template in double
// quotes, e.g. "syslog msg <STRING>"
func stringAddQuotes(p *pass, l *domain.Line, a domain.Annotation) error {
	tmpl := a.Value(0)
	re, err := compile(a, strings.Replace(tmpl, "<STRING>", "(.*)", 1))
	if err != nil {
		return err
	}
	repl := strings.Replace(tmpl, "<STRING>", `"${1}"`, 1)
	if text := replaceFirst(re, l.Text, repl); text != l.Text {
		l.SetText(text)
		p.trace(a, "quoted", text)
	}
	return nil
}

// shutdownBeforeDelete shuts a container down before deleting it. Value 0
// overrides the shutdown command.
func shutdownBeforeDelete(p *pass, l *domain.Line, a domain.Annotation) error {
	if !l.Negated() {
		return nil
	}
	container := strings.TrimPrefix(l.Trimmed(), "no ")
	leaf := "shutdown"
	if v := a.Value(0); v != "" {
		leaf = v
	}
	indent := l.Indent()
	p.trace(a, "injected "+leaf, container)
	p.insertBefore(l, indent+container, indent+" "+leaf, indent+"exit")
	return nil
}
