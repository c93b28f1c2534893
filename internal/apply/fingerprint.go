package apply

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// volatileMarkers drop lines that change between two reads of the same config
var volatileMarkers = []string{
	"Load for ",
	"Time source is NTP",
	"No time source",
}

// unorderedRuns are line prefixes the device lists in no stable order
var unorderedRuns = []string{
	"ip route vrf ",
	"ipv6 route ",
	"ip nat translation max-entries vrf ",
	"aggregate-address ",
	"neighbor ",
	"match policy-list ",
}

// Canonical returns text with volatile lines removed and unordered lists sorted
func Canonical(text string) string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		if strings.TrimSpace(l) == "" || volatile(l) {
			continue
		}
		lines = append(lines, l)
	}
	for _, prefix := range unorderedRuns {
		sortRuns(lines, prefix)
	}
	sortMatchInterface(lines)
	return strings.Join(lines, "\n")
}

// Fingerprint is the MD5 of the canonical text, as 32 hex digits
func Fingerprint(text string) string {
	sum := md5.Sum([]byte(Canonical(text)))
	return hex.EncodeToString(sum[:])
}

func volatile(line string) bool {
	for _, m := range volatileMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// sortRuns sorts every contiguous run of lines starting with prefix
func sortRuns(lines []string, prefix string) {
	start := -1
	for i := 0; i <= len(lines); i++ {
		in := i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), prefix)
		switch {
		case in && start < 0:
			start = i
		case !in && start >= 0:
			sort.Strings(lines[start:i])
			start = -1
		}
	}
}

// sortMatchInterface orders the interface names of route-map match clauses
func sortMatchInterface(lines []string) {
	top := ""
	for i, l := range lines {
		if l != "" && l[0] != ' ' {
			top = l
			continue
		}
		t := strings.TrimSpace(l)
		if !strings.HasPrefix(top, "route-map ") || !strings.HasPrefix(t, "match interface ") {
			continue
		}
		indent := l[:len(l)-len(strings.TrimLeft(l, " "))]
		lines[i] = indent + sortWords(t, 2)
	}
}

// sortWords keeps the first keep words and sorts the rest
func sortWords(s string, keep int) string {
	words := strings.Fields(s)
	if len(words) <= keep {
		return s
	}
	sort.Strings(words[keep:])
	return strings.Join(words, " ")
}
