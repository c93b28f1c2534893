package normalize

import (
	"regexp"
	"strings"
)

// Quote wraps s in double quotes, escaping backslash, double quote and
// control characters so that a multi-line text fits on one line. Bytes that
// are not valid UTF-8 pass through untouched.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\v':
			b.WriteString(`\v`)
		case 0x1b:
			b.WriteString(`\e`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

var unescapes = map[byte]byte{
	'\\': '\\',
	'"':  '"',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'b':  '\b',
	'f':  '\f',
	'v':  '\v',
	'e':  0x1b,
}

// IsQuoted reports whether s is a Quote result
func IsQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// Dequote reverses Quote. Text that is not quoted is returned unchanged.
func Dequote(s string) string {
	if !IsQuoted(s) {
		return s
	}
	body := s[1 : len(s)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		if u, ok := unescapes[body[i]]; ok {
			b.WriteByte(u)
		} else {
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

// textBlock folds a multi-line body following a command into a quoted
// string. Group 1 is the command, group 2 the body.
type textBlock struct {
	name    string
	pattern *regexp.Regexp
}

var textBlocks = []textBlock{
	{"menu-title", regexp.MustCompile(`(?s)\n(menu \S+ title) \^C(.*?)\^C`)},
	{"fail-message", regexp.MustCompile(`(?s)\n(aaa authentication fail-message) \^C(.*?)\^C`)},
	{"macro", regexp.MustCompile(`(?s)\n(macro name \S+)\n(.*?\n)@`)},
	{"certificate", regexp.MustCompile(`(?s)\n( certificate [^\n]*?)\n(.*?\n)[ \t]+quit`)},
}

// QuoteTexts replaces the bodies of banners, menu titles, fail messages,
// macros and certificates with a single quoted string on the command line
func QuoteTexts(text string) string {
	res := quoteBanners("\n" + text)
	for _, tb := range textBlocks {
		res = tb.pattern.ReplaceAllStringFunc(res, func(m string) string {
			g := tb.pattern.FindStringSubmatch(m)
			return "\n" + g[1] + " " + Quote(g[2])
		})
	}
	return res[1:]
}

var bannerHead = regexp.MustCompile(`^(banner \S+) (\S\S)`)

// quoteBanners handles "banner <name> <delim>...<delim>" where the two
// character delimiter is whatever the device printed after the name
func quoteBanners(text string) string {
	var b strings.Builder
	for {
		i := strings.Index(text, "\nbanner ")
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i+1])
		text = text[i+1:]

		m := bannerHead.FindStringSubmatch(text)
		if m == nil {
			b.WriteString("banner ")
			text = text[len("banner "):]
			continue
		}
		rest := text[len(m[0]):]
		end, resume := closingDelimiter(rest, m[2])
		if end < 0 {
			b.WriteString(m[0])
			text = rest
			continue
		}
		b.WriteString(m[1] + " " + Quote(rest[:end]))
		text = rest[resume:]
	}
}

// closingDelimiter finds the delimiter that ends a banner body: one followed
// only by non-blank characters up to the end of its line. It returns the
// body end and the offset of the line break after it, or -1.
func closingDelimiter(s, delim string) (int, int) {
	from := 0
	for {
		j := strings.Index(s[from:], delim)
		if j < 0 {
			return -1, -1
		}
		j += from
		after := s[j+len(delim):]
		eol := strings.IndexByte(after, '\n')
		if eol < 0 {
			eol = len(after)
		}
		if !strings.ContainsAny(after[:eol], " \t") {
			return j, j + len(delim) + eol
		}
		from = j + 1
	}
}
