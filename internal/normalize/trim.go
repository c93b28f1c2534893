package normalize

import (
	"strings"

	"iosctl/internal/domain"
)

// headerMarkers end the preamble of a running-config dump. Everything up to
// and including the marker line is dropped.
var headerMarkers = []string{
	"Current configuration",
	"Last configuration change",
	"No configuration change since last restart",
	"No entries found.",
}

// noiseMarkers drop every line that contains them
var noiseMarkers = []string{
	"ntp clock-period",
	"%",
	"! Profile incomplete",
	"! This profile is incomplete",
}

// Trim strips the dump preamble, the trailing "end" and lines that are not
// configuration. A dump containing "Invalid input detected" is rejected.
func Trim(dump string) (string, error) {
	if i := strings.Index(dump, "Invalid input detected"); i >= 0 {
		return "", &domain.DeviceRejectedError{
			Line:  "show running-config",
			Reply: lineAt(dump, i),
		}
	}

	res := strings.ReplaceAll(dump, "\r\n", "\n")
	res = strings.ReplaceAll(res, "\r", "")

	for _, marker := range headerMarkers {
		res = cutThroughLine(res, strings.Index(res, marker))
	}
	// multiple entries, the last one wins
	res = cutThroughLine(res, strings.LastIndex(res, "NVRAM config last updated"))

	if i := strings.LastIndex(res, "\nend"); i >= 0 {
		res = res[:i]
	}

	for _, marker := range noiseMarkers {
		res = stripLines(res, marker)
	}
	return strings.TrimSpace(res), nil
}

// cutThroughLine drops text up to and including the line holding offset i
func cutThroughLine(s string, i int) string {
	if i < 0 {
		return s
	}
	nl := strings.IndexByte(s[i:], '\n')
	if nl < 0 {
		return s
	}
	return s[i+nl+1:]
}

// stripLines removes every line containing sub
func stripLines(s, sub string) string {
	if !strings.Contains(s, sub) {
		return s
	}
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if !strings.Contains(l, sub) {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// lineAt returns the trimmed line holding offset i
func lineAt(s string, i int) string {
	start := strings.LastIndexByte(s[:i], '\n') + 1
	end := strings.IndexByte(s[i:], '\n')
	if end < 0 {
		return strings.TrimSpace(s[start:])
	}
	return strings.TrimSpace(s[start : i+end])
}
