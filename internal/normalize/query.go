package normalize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"iosctl/internal/domain"

	"github.com/rs/zerolog"
)

// Runner executes an exec-mode command and returns its output
type Runner interface {
	Exec(ctx context.Context, cmd string) (string, error)
}

// LeafReader reads configured values the device never displays
type LeafReader interface {
	ReadLeaf(ctx context.Context, path string) (string, bool, error)
}

// UnsetPassword stands in for an SNMP password the orchestrator never configured
const UnsetPassword = "NOT-SET"

var errUnparseable = errors.New("unparseable reply")

// Placement says where synthesized lines go in the dump
type Placement int

const (
	Append Placement = iota
	Prepend
)

// Query synthesizes configuration the running-config dump leaves out
type Query struct {
	Name    string
	Command string

	// Fallback is tried when Command is unsupported or its reply unparseable
	Fallback string

	Place Placement

	// Late queries run after the rule tables, on canonical text
	Late bool

	// When gates the query on what earlier queries learned
	When func(qc *queryContext) bool

	// Parse returns the implied lines. errUnparseable clears the capability.
	Parse func(qc *queryContext, reply string) ([]string, error)
}

func (q Query) commands() []string {
	if q.Fallback == "" {
		return []string{q.Command}
	}
	return []string{q.Command, q.Fallback}
}

// Queries is the supplementary query table, run in order
var Queries = []Query{
	{Name: "logging", Command: "show logging xml", Place: Prepend, Parse: parseLogging},
	{Name: "boot", Command: "show boot", Parse: parseBoot},
	{Name: "password-recovery", Command: "show version | include password-recovery", Parse: parsePasswordRecovery},
	{Name: "vtp", Command: "show vtp status", Parse: parseVTP},
	{
		Name:     "vlan",
		Command:  "show vlan",
		Fallback: "show vlan-switch",
		When:     func(qc *queryContext) bool { return !qc.vtpClient },
		Parse:    parseVLAN,
	},
	{Name: "snmp-user", Command: "show snmp user", Late: true, Parse: parseSNMPUser},
}

// Capabilities records which supplementary commands the device answers.
// A cleared bit stays cleared for the life of the session.
type Capabilities struct {
	unsupported map[string]*domain.SupplementaryQueryUnsupportedError
}

// NewCapabilities creates a record with every command supported
func NewCapabilities() *Capabilities {
	return &Capabilities{unsupported: make(map[string]*domain.SupplementaryQueryUnsupportedError)}
}

// Supported reports whether cmd may be sent
func (c *Capabilities) Supported(cmd string) bool {
	_, off := c.unsupported[cmd]
	return !off
}

// Disable clears the bit for cmd, keeping the reply that caused it
func (c *Capabilities) Disable(cmd, reply string) {
	c.unsupported[cmd] = &domain.SupplementaryQueryUnsupportedError{Query: cmd, Reply: reply}
}

// Unsupported returns why cmd was disabled, or nil while it is supported
func (c *Capabilities) Unsupported(cmd string) error {
	if e, ok := c.unsupported[cmd]; ok {
		return e
	}
	return nil
}

// String lists the cleared bits, one per line
func (c *Capabilities) String() string {
	if len(c.unsupported) == 0 {
		return "all supplementary queries supported"
	}
	cmds := make([]string, 0, len(c.unsupported))
	for cmd := range c.unsupported {
		cmds = append(cmds, cmd)
	}
	sort.Strings(cmds)
	var b strings.Builder
	for _, cmd := range cmds {
		fmt.Fprintf(&b, "unsupported: %s (%s)\n", cmd, c.unsupported[cmd].Reply)
	}
	return b.String()
}

// queryContext is the state shared by the queries of one normalization
type queryContext struct {
	ctx    context.Context
	runner Runner
	caps   *Capabilities
	leaves LeafReader
	logger zerolog.Logger

	dump      string
	vtpClient bool
}

// exec sends cmd when its capability bit is set. The first failure,
// rejected or not answered, clears the bit.
func (qc *queryContext) exec(cmd string) (string, bool) {
	if !qc.caps.Supported(cmd) {
		return "", false
	}
	reply, err := qc.runner.Exec(qc.ctx, cmd)
	if err != nil {
		qc.logger.Warn().Str("query", cmd).Err(err).Msg("supplementary query failed")
		qc.disable(cmd, err.Error())
		return "", false
	}
	if strings.Contains(reply, "Invalid input") {
		qc.disable(cmd, reply)
		return "", false
	}
	return strings.ReplaceAll(reply, "\r", ""), true
}

func (qc *queryContext) disable(cmd, reply string) {
	reply = strings.TrimSpace(reply)
	if i := strings.IndexByte(reply, '\n'); i > 0 {
		reply = reply[:i]
	}
	qc.caps.Disable(cmd, reply)
	qc.logger.Info().Str("query", cmd).Msg("disabling unsupported supplementary query")
}

func (qc *queryContext) run(q Query) []string {
	if q.When != nil && !q.When(qc) {
		return nil
	}
	for _, cmd := range q.commands() {
		reply, ok := qc.exec(cmd)
		if !ok {
			continue
		}
		lines, err := q.Parse(qc, reply)
		if err != nil {
			qc.disable(cmd, reply)
			continue
		}
		if len(lines) > 0 {
			qc.logger.Debug().Str("query", cmd).Int("lines", len(lines)).Msg("inserted implied config")
		}
		return lines
	}
	return nil
}

// findLine returns the first line of s containing sub
func findLine(s, sub string) (string, bool) {
	for _, l := range strings.Split(s, "\n") {
		if strings.Contains(l, sub) {
			return l, true
		}
	}
	return "", false
}

// valueAfter returns the first word following label in s
func valueAfter(s, label string) (string, bool) {
	i := strings.Index(s, label)
	if i < 0 {
		return "", false
	}
	f := strings.Fields(s[i+len(label):])
	if len(f) == 0 {
		return "", true
	}
	return f[0], true
}

func parseBoot(_ *queryContext, reply string) ([]string, error) {
	l, ok := findLine(reply, "BOOT path-list:")
	if !ok {
		return nil, errUnparseable
	}
	path := strings.TrimSpace(l[strings.Index(l, "BOOT path-list:")+len("BOOT path-list:"):])
	if path == "" {
		return nil, nil
	}
	return []string{"boot system " + path}, nil
}

func parsePasswordRecovery(_ *queryContext, reply string) ([]string, error) {
	switch {
	case !strings.Contains(reply, "password-recovery"):
		return nil, nil
	case strings.Contains(reply, "enabled"):
		return []string{"service password-recovery"}, nil
	case strings.Contains(reply, "disabled"):
		return []string{"no service password-recovery"}, nil
	}
	return nil, nil
}

var loggingTypes = []struct {
	tag, name string
	level     *regexp.Regexp
}{
	{"console", "console", regexp.MustCompile(`<console-logging level="(\S+?)" `)},
	{"monitor", "monitor", regexp.MustCompile(`<monitor-logging level="(\S+?)" `)},
	{"buffer", "buffered", regexp.MustCompile(`<buffer-logging level="(\S+?)" `)},
}

func parseLogging(_ *queryContext, reply string) ([]string, error) {
	var out []string
	for _, t := range loggingTypes {
		elem := "<" + t.tag + "-logging"
		l, ok := findLine(reply, elem)
		if !ok || strings.HasPrefix(strings.TrimSpace(l), elem+">disabled<") {
			continue
		}
		if m := t.level.FindStringSubmatch(l); m != nil {
			out = append(out, "logging "+t.name+" "+m[1])
		}
	}
	return out, nil
}

var (
	vtpMode    = regexp.MustCompile(`VTP Operating Mode\s+:\s+(\S+)`)
	vtpPruning = regexp.MustCompile(`VTP Pruning Mode\s+:\s+(\S+)`)
)

func colonValue(l string) string {
	i := strings.IndexByte(l, ':')
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(l[i+1:])
}

func parseVTP(qc *queryContext, reply string) ([]string, error) {
	var out []string
	if m := vtpMode.FindStringSubmatch(reply); m != nil {
		mode := strings.ToLower(m[1])
		out = append(out, "vtp mode "+mode)
		qc.vtpClient = mode == "client"
	}
	if l, ok := findLine(reply, "VTP Domain Name"); ok {
		if v := colonValue(l); v != "" {
			out = append(out, "vtp domain "+v)
		}
	}
	l, ok := findLine(reply, "VTP version running")
	if !ok {
		l, ok = findLine(reply, "VTP Version")
	}
	if ok {
		if v := colonValue(l); v != "" {
			out = append(out, "vtp version "+v)
		}
	}
	if m := vtpPruning.FindStringSubmatch(reply); m != nil && m[1] == "Enabled" {
		out = append(out, "vtp pruning")
	}
	return out, nil
}

func parseVLAN(qc *queryContext, reply string) ([]string, error) {
	i := strings.Index(reply, "\n----")
	if i < 0 {
		return nil, errUnparseable
	}
	table := reply[i+1:]
	if nl := strings.IndexByte(table, '\n'); nl >= 0 {
		table = table[nl+1:]
	} else {
		return nil, nil
	}

	present := make(map[string]bool)
	for _, l := range strings.Split(qc.dump, "\n") {
		if strings.HasPrefix(l, "vlan ") {
			present[strings.TrimSpace(l)] = true
		}
	}

	var out []string
	for _, row := range strings.Split(table, "\n") {
		row = strings.TrimLeft(row, " ") + " "
		if strings.TrimSpace(row) == "" {
			break
		}
		// continuation rows of multi-line entries
		if !unicode.IsDigit(rune(row[0])) {
			continue
		}
		tokens := strings.Fields(row)
		if len(tokens) < 3 {
			break
		}
		status := strings.Index(row, " active ")
		if status < 0 {
			continue
		}
		vlan := "vlan " + tokens[0]
		if present[vlan] {
			continue
		}
		out = append(out, vlan)
		name := strings.TrimSpace(row[len(tokens[0]):status])
		if name != "" && !(strings.HasPrefix(name, "VLAN") && strings.HasSuffix(name, tokens[0])) {
			out = append(out, " name "+name)
		}
		out = append(out, "!")
	}
	return out, nil
}

func parseSNMPUser(qc *queryContext, reply string) ([]string, error) {
	if strings.Contains(reply, "SNMP agent not enabled") {
		return nil, nil
	}
	blocks := strings.Split(reply, "User name: ")
	var out []string
	for _, block := range blocks[1:] {
		name, _ := valueAfter(block, "")
		auth, okAuth := valueAfter(block, "Authentication Protocol: ")
		priv, okPriv := valueAfter(block, "Privacy Protocol: ")
		group, okGroup := valueAfter(block, "Group-name: ")
		if name == "" || !okAuth || !okPriv || !okGroup {
			break
		}
		auth = strings.ToLower(auth)
		priv = strings.ToLower(priv)
		if strings.HasPrefix(priv, "aes") {
			priv = "aes " + priv[3:]
		}

		acl := ""
		if v, ok := valueAfter(block, "IPv6 access-list: "); ok && v != "" {
			acl = "ipv6 " + v
		} else if v, ok := valueAfter(block, "access-list: "); ok {
			acl = v
		}

		line := "snmp-server user " + name + " " + group + " v3"
		if auth != "none" {
			line += " auth " + auth + " " + qc.password(name, "auth-password")
		}
		if priv != "none" {
			line += " priv " + priv + " " + qc.password(name, "priv-password")
		}
		if acl != "" {
			line += " access " + acl
		}
		out = append(out, line)
	}
	return out, nil
}

// password reads an SNMP user password from the configured state
func (qc *queryContext) password(user, leaf string) string {
	if qc.leaves == nil {
		return UnsetPassword
	}
	path := fmt.Sprintf("/snmp-server/user{%s}/%s", user, leaf)
	v, ok, err := qc.leaves.ReadLeaf(qc.ctx, path)
	if err != nil {
		qc.logger.Warn().Str("path", path).Err(err).Msg("reading snmp user password")
		return UnsetPassword
	}
	if !ok || v == "" {
		return UnsetPassword
	}
	return v
}
