package secrets

import (
	"regexp"
	"strings"
)

// rule identifies one credential-bearing line. The pattern captures the key
// part (without value) and the value part of the trimmed line.
type rule struct {
	name    string
	scope   string // toptag prefix, empty matches anywhere
	pattern *regexp.Regexp
}

var rules = []rule{
	{"enable", "", regexp.MustCompile(`^(enable (?:secret|password)(?: level \d+)?) (.+)$`)},
	{"username", "", regexp.MustCompile(`^(username \S+(?: privilege \d+)? (?:secret|password)) (.+)$`)},
	{"line-password", "line ", regexp.MustCompile(`^(password) (.+)$`)},
	{"bgp-neighbor", "router bgp ", regexp.MustCompile(`^(neighbor \S+ password) (.+)$`)},
	{"server-key", "", regexp.MustCompile(`^((?:tacacs|radius)-server(?: host \S+)? key) (.+)$`)},
	{"server-block-key", "tacacs server ", regexp.MustCompile(`^(key) (.+)$`)},
	{"radius-block-key", "radius server ", regexp.MustCompile(`^(key) (.+)$`)},
	{"key-chain", "key chain ", regexp.MustCompile(`^(key-string) (.+)$`)},
	{"ospf-auth", "interface ", regexp.MustCompile(`^(ip ospf (?:authentication-key|message-digest-key \d+ md5)) (.+)$`)},
	{"isakmp-key", "", regexp.MustCompile(`^(crypto isakmp key) (\S+(?: \S+)?) ((?:address|hostname) .+)$`)},
}

// match is a secret found on one line
type match struct {
	rule  string
	key   string // toptag and key part, identifies the secret across reads
	value string
	start int // byte offset of value within Line.Text
}

// find reports the secret carried by text (indented, inside toptag), if any
func find(top, text string) (match, bool) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "no ") {
		return match{}, false
	}
	indent := len(text) - len(strings.TrimLeft(text, " "))

	for _, r := range rules {
		if r.scope != "" && !strings.HasPrefix(top, r.scope) {
			continue
		}
		loc := r.pattern.FindStringSubmatchIndex(trimmed)
		if loc == nil {
			continue
		}
		key := trimmed[loc[2]:loc[3]]
		if len(loc) > 6 && loc[6] >= 0 {
			// trailing context (e.g. peer address) is part of the identity
			key += " " + trimmed[loc[6]:loc[7]]
		}
		if r.scope != "" {
			key = top + " / " + key
		}
		return match{
			rule:  r.name,
			key:   key,
			value: trimmed[loc[4]:loc[5]],
			start: indent + loc[4],
		}, true
	}
	return match{}, false
}

var (
	hexPairs   = regexp.MustCompile(`^[0-9a-f]{2}(:[0-9a-f]{2})+$`)
	typePrefix = regexp.MustCompile(`^[1-9] \S+`)
)

// IsClearText reports whether a secret value is cleartext rather than a
// device encoding
func IsClearText(secret string) bool {
	trimmed := strings.TrimSpace(secret)

	switch {
	case hexPairs.MatchString(secret):
		return false // aa:11:..:bb
	case strings.Contains(trimmed, " encrypted"):
		return false
	case strings.HasPrefix(trimmed, "password "):
		return false
	case strings.HasSuffix(trimmed, " 7"):
		return false
	case typePrefix.MatchString(trimmed):
		return false // [1-9] XXX
	}
	return true
}
