package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"iosctl/internal/domain"
)

// Options tunes the input transformation for one device
type Options struct {
	// ResequenceACL strips sequence numbers and remarks from extended access lists
	ResequenceACL bool

	// DisabledQueries names supplementary queries never to send
	DisabledQueries []string
}

// InputRule rewrites one line of the dump. Rules are tried in order and the
// first rule whose scope and pattern match wins.
type InputRule struct {
	Name string

	// Scope is a toptag prefix; empty matches every line
	Scope string

	// Pattern is matched against the indented line
	Pattern *regexp.Regexp

	// Rewrite returns the replacement line, or "" to drop it
	Rewrite func(line string, m []string) string
}

// BlockRule rewrites the body of every top-level block whose mode line
// matches Header
type BlockRule struct {
	Name    string
	Header  *regexp.Regexp
	Enabled func(Options) bool
	Rewrite func(body []string) []string
}

func quoteTail(_ string, m []string) string {
	return m[1] + Quote(strings.TrimSpace(m[2]))
}

func keep(line string, _ []string) string {
	return line
}

func drop(string, []string) string {
	return ""
}

func replace(from, to string) func(string, []string) string {
	return func(line string, _ []string) string {
		return strings.Replace(line, from, to, 1)
	}
}

func rule(name, scope, pattern string, rewrite func(string, []string) string) InputRule {
	return InputRule{Name: name, Scope: scope, Pattern: regexp.MustCompile(pattern), Rewrite: rewrite}
}

// InputRules is the ordered per-line rule table
var InputRules = []InputRule{
	rule("service-insertion-description", "service-insertion ", ` description `, keep),
	rule("msdp-description", "", `^(\s*ip msdp description \S+ )(.*)$`, quoteTail),
	rule("description", "", `^(.*? description )(.*)$`, quoteTail),

	rule("errdisable-stp", "errdisable", `channel-misconfig \(STP\)`,
		replace("channel-misconfig (STP)", "channel-misconfig")),
	rule("ntp-broadcast-destination", "interface ", `^(\s*ntp broadcast )(.*?) (destination \S+)(.*)$`,
		func(_ string, m []string) string { return m[1] + m[3] + " " + m[2] + m[4] }),
	rule("service-policy-direction", "interface ", `^(\s+service-policy )(in|out)( .*)$`,
		func(_ string, m []string) string { return m[1] + m[2] + "put" + m[3] }),
	rule("pki-server-issuer", "crypto pki server ", `^(\s*issuer-name )(.*)$`, quoteTail),
	rule("class-map-match-vlan", "class-map ", `^(\s*match vlan )(.*)$`,
		func(_ string, m []string) string { return m[1] + strings.Join(strings.Fields(m[2]), ",") }),
	rule("random-detect-precedence", "policy-map ", `^(\s*)random-detect( aggregate.*)?$`,
		func(_ string, m []string) string { return m[1] + "random-detect precedence-based" + m[2] }),
	rule("mst-instance-vlan", "spanning-tree mst configuration", ` instance [0-9]+ vlan `,
		replaceAll(", ", ",")),
	rule("monitor-session-vlan", "monitor session ", ` vlan `,
		func(line string, _ []string) string {
			return strings.NewReplacer(" , ", ",", " - ", "-").Replace(line)
		}),
	rule("l2tp-password-encryption", "l2tp-class ", `^\s*password encryption aes$`, drop),
	rule("keyring-unusable-vrf", "crypto keyring ", `! Keyring unusable for nonexistent vrf`,
		func(line string, _ []string) string {
			return strings.TrimRight(strings.Replace(line, "! Keyring unusable for nonexistent vrf", "", 1), " ")
		}),
	rule("regex-pattern", "parameter-map type regex ", `^(\s*pattern )(.*)$`, quoteTail),
	rule("bgp-af-vrf", "router bgp ", `^(\s*address-family ipv[46]) vrf `, replace(" vrf ", " unicast vrf ")),
	rule("track-ipv6-default", "track ", ` ipv6 route :: `, replace(" :: ", " ::/0 ")),

	rule("snmp-contact-location", "snmp-server ", `^(snmp-server (?:contact|location) )(.+)$`, quoteTail),
	rule("alias", "alias ", `^(alias \S+ \S+ )(.*)$`, quoteTail),
	rule("applet-regexp", "event manager applet ", `^(\s*action \d+ regexp )(.*)$`, quoteTail),
	rule("chat-script", "chat-script ", `^(chat-script \S+ )(.+)$`, quoteTail),
	rule("kron-cli", "kron policy-list ", `^(\s*cli )(.+)$`, quoteTail),
	rule("trustpoint-subject", "crypto pki trustpoint ", `^(\s*subject-name )(.+)$`, quoteTail),
	rule("discriminator-both", "logging discriminator", `^(.* mnemonics \S+ )(.*)( msg-body \S+ )(.*)$`,
		func(_ string, m []string) string { return m[1] + Quote(m[2]) + m[3] + Quote(m[4]) }),
	rule("discriminator-mnemonics", "logging discriminator", `^(.* mnemonics \S+ )(.*)$`, quoteTail),
	rule("discriminator-msg-body", "logging discriminator", `^(.* msg-body \S+ )(.*)$`, quoteTail),

	rule("domain-name", "", `^\s*ip domain-name`, replace("ip domain-name", "ip domain name")),
	rule("domain-list", "", `^\s*ip domain-list`, replace("ip domain-list", "ip domain list")),
	rule("domain-lookup", "", `^\s*no ip domain-lookup`, replace("no ip domain-lookup", "no ip domain lookup")),
	rule("line-console", "", `^line con 0$`, func(string, []string) string { return "line console 0" }),
	rule("authorization-order", "", `^(aaa authorization .*)local if-authenticated(.*)$`,
		func(_ string, m []string) string { return m[1] + "if-authenticated local" + m[2] }),

	rule("forward-protocol-disabled", "", `^(\s*)no ip forward-protocol udp (\S+)`,
		func(_ string, m []string) string { return m[1] + "ip forward-protocol udp " + m[2] + " disabled" }),
	noList("no passive-interface ", "disable passive-interface "),
	noList("no spanning-tree vlan ", "spanning-tree vlan no-list "),
	noList("no mac-address-table learning vlan ", "mac-address-table learning vlan no-list "),
	noList("no ip igmp snooping vlan ", "ip igmp snooping vlan no-list "),
	noList("no ip next-hop-self eigrp ", "ip next-hop-self eigrp no-list "),
	noList("no ip split-horizon eigrp ", "ip split-horizon eigrp no-list "),
	noList("no wrr-queue random-detect ", "no-list wrr-queue random-detect "),
	noList("no rcv-queue random-detect ", "no-list rcv-queue random-detect "),

	rule("boot-markers", "", `^boot-(?:start|end)-marker$`, drop),
	rule("radius-source-ports", "", `^radius-server source-ports `, drop),
	rule("license-udi", "", `^\s*license udi`, drop),
	rule("incomplete-comment", "", `^\s*! Incomplete`, drop),
	rule("msdp-cache-sa-state", "ip msdp cache-sa-state", `^ip msdp cache-sa-state$`, drop),
}

func replaceAll(from, to string) func(string, []string) string {
	return func(line string, _ []string) string {
		return strings.ReplaceAll(line, from, to)
	}
}

// noList maps a device "no <list>" line onto the model's explicit no-list form
func noList(from, to string) InputRule {
	return rule("no-list "+strings.TrimSpace(strings.TrimPrefix(from, "no ")), "",
		`^\s*`+regexp.QuoteMeta(from), replace(from, to))
}

// BlockRules rewrite whole mode bodies before the line rules run
var BlockRules = []BlockRule{
	{
		Name:    "explicit-path-index",
		Header:  regexp.MustCompile(`^ip explicit-path `),
		Rewrite: explicitPathIndex,
	},
	{
		Name:    "resequence-acl",
		Header:  regexp.MustCompile(`^ip access-list extended `),
		Enabled: func(o Options) bool { return o.ResequenceACL },
		Rewrite: stripSequences,
	},
}

var explicitIndex = regexp.MustCompile(`^ index (\d+) `)

// explicitPathIndex adds the "index N" the device hides on path hops
func explicitPathIndex(body []string) []string {
	index := 1
	for i, l := range body {
		switch {
		case strings.HasPrefix(l, " index "):
			if m := explicitIndex.FindStringSubmatch(l); m != nil {
				index, _ = strconv.Atoi(m[1])
			}
		case strings.HasPrefix(l, " next-address "), strings.HasPrefix(l, " exclude-address "):
			body[i] = " index " + strconv.Itoa(index) + l
		default:
			return body
		}
		index++
	}
	return body
}

var aclSequence = regexp.MustCompile(`^ \d+ `)

// stripSequences drops device sequence numbers and remarks from an access list
func stripSequences(body []string) []string {
	out := body[:0]
	for _, l := range body {
		if loc := aclSequence.FindStringIndex(l); loc != nil {
			l = " " + l[loc[1]:]
		}
		if strings.HasPrefix(strings.TrimSpace(l), "remark ") {
			continue
		}
		out = append(out, l)
	}
	return out
}

// RewriteLine applies the first matching InputRule to line within toptag top.
// It reports false when the line is dropped.
func RewriteLine(top, line string) (string, bool) {
	for _, r := range InputRules {
		if r.Scope != "" && !strings.HasPrefix(top, r.Scope) {
			continue
		}
		m := r.Pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out := r.Rewrite(line, m)
		return out, strings.TrimSpace(out) != ""
	}
	return line, true
}

// ApplyInputRules runs the block rules and then the line rules over a dump
func ApplyInputRules(text string, opts Options) string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	lines = applyBlockRules(lines, opts)

	buf := domain.NewBuffer(lines...)
	out := make([]string, 0, buf.Len())
	for _, l := range buf.Lines {
		top := l.Top
		if domain.IsTopExit(l.Text) {
			top = ""
		}
		if text, ok := RewriteLine(top, l.Text); ok {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n")
}

func applyBlockRules(lines []string, opts Options) []string {
	for _, br := range BlockRules {
		if br.Enabled != nil && !br.Enabled(opts) {
			continue
		}
		for i := 0; i < len(lines); i++ {
			if !br.Header.MatchString(lines[i]) {
				continue
			}
			end := i + 1
			for end < len(lines) && strings.HasPrefix(lines[end], " ") {
				end++
			}
			body := br.Rewrite(append([]string(nil), lines[i+1:end]...))
			rest := append(body, lines[end:]...)
			lines = append(lines[:i+1], rest...)
			i += len(body)
		}
	}
	return lines
}
