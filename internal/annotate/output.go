package annotate

import (
	"regexp"
	"strings"

	"iosctl/internal/domain"
	"iosctl/internal/normalize"
)

// OutputRule unfolds one form of quoted text back into what the device
// accepts. Rewrite returns the replacement lines.
type OutputRule struct {
	Name    string
	Scope   string
	Pattern *regexp.Regexp
	Rewrite func(l *domain.Line, m []string) []*domain.Line
}

const quoted = `("(?:[^"\\]|\\.)*")`

func orule(name, scope, pattern string, rewrite func(*domain.Line, []string) []*domain.Line) OutputRule {
	return OutputRule{Name: name, Scope: scope, Pattern: regexp.MustCompile(pattern), Rewrite: rewrite}
}

// dequoteTail keeps group 1 and unquotes group 2
func dequoteTail(_ *domain.Line, m []string) []*domain.Line {
	return []*domain.Line{domain.NewLine(m[1] + normalize.Dequote(m[2]))}
}

// delimited sends group 1 followed by the text between '^' delimiters.
// Every line of a multi-line body is Literal since the device does not echo
// or prompt until the closing delimiter.
func delimited(_ *domain.Line, m []string) []*domain.Line {
	parts := strings.Split(normalize.Dequote(m[2]), "\n")
	parts[0] = m[1] + " ^" + parts[0]
	parts[len(parts)-1] += "^"
	return literal(parts)
}

// terminated sends group 1, the body lines and then a terminator line
func terminated(term string) func(*domain.Line, []string) []*domain.Line {
	return func(l *domain.Line, m []string) []*domain.Line {
		body := strings.TrimSuffix(normalize.Dequote(m[2]), "\n")
		parts := append([]string{m[1]}, strings.Split(body, "\n")...)
		return literal(append(parts, l.Indent()+term))
	}
}

func literal(texts []string) []*domain.Line {
	out := make([]*domain.Line, len(texts))
	for i, t := range texts {
		out[i] = domain.NewLine(t)
		out[i].Literal = true
	}
	return out
}

var msgBody = regexp.MustCompile(`^( msg-body \S+ )` + quoted + `$`)

// OutputRules is the ordered table applied to every outgoing line
var OutputRules = []OutputRule{
	orule("banner", "banner ", `^(banner \S+) `+quoted+`$`, delimited),
	orule("fail-message", "aaa authentication fail-message", `^(aaa authentication fail-message) `+quoted+`$`, delimited),
	orule("menu-title", "menu ", `^(menu \S+ title) `+quoted+`$`, delimited),
	orule("macro", "macro name ", `^(macro name \S+) `+quoted+`$`, terminated("@")),
	orule("certificate", "crypto pki certificate chain ", `^(\s+certificate .*?) `+quoted+`$`, terminated(" quit")),

	orule("description", "", `^(.*? description )`+quoted+`$`, dequoteTail),
	orule("snmp-contact-location", "snmp-server ", `^(snmp-server (?:contact|location) )`+quoted+`$`, dequoteTail),
	orule("alias", "alias ", `^(alias \S+ \S+ )`+quoted+`$`, dequoteTail),
	orule("chat-script", "chat-script ", `^(chat-script \S+ )`+quoted+`$`, dequoteTail),
	orule("kron-cli", "kron policy-list ", `^(\s*cli )`+quoted+`$`, dequoteTail),
	orule("trustpoint-subject", "crypto pki trustpoint ", `^(\s*subject-name )`+quoted+`$`, dequoteTail),
	orule("pki-server-issuer", "crypto pki server ", `^(\s*issuer-name )`+quoted+`$`, dequoteTail),
	orule("discriminator", "logging discriminator", `^(.*? (?:mnemonics|msg-body) \S+ )`+quoted+`(.*)$`,
		func(_ *domain.Line, m []string) []*domain.Line {
			// both clauses may be quoted
			rest := m[3]
			if sub := msgBody.FindStringSubmatch(rest); sub != nil {
				rest = sub[1] + normalize.Dequote(sub[2])
			}
			return []*domain.Line{domain.NewLine(m[1] + normalize.Dequote(m[2]) + rest)}
		}),
}

// Unquote applies OutputRules to every line of buf
func Unquote(buf *domain.Buffer) {
	out := make([]*domain.Line, 0, len(buf.Lines))
	for _, l := range buf.Lines {
		out = append(out, unquoteLine(l)...)
	}
	buf.Lines = out
	buf.Reindex()
}

func unquoteLine(l *domain.Line) []*domain.Line {
	if l.Negated() || l.Literal {
		return []*domain.Line{l}
	}
	for _, r := range OutputRules {
		if r.Scope != "" && !strings.HasPrefix(l.Top, r.Scope) {
			continue
		}
		m := r.Pattern.FindStringSubmatch(l.Text)
		if m == nil {
			continue
		}
		out := r.Rewrite(l, m)
		for _, x := range out {
			x.Substituted = x.Substituted || l.Substituted
		}
		return out
	}
	return []*domain.Line{l}
}
