package domain

import (
	"strings"
)

// Line is one command line of a configuration buffer
type Line struct {
	// Text is the line as sent to or read from the device, including indentation
	Text string

	// Depth is the number of leading spaces
	Depth int

	// Annotations are the meta-data comments that preceded this line
	Annotations []Annotation

	// Parent is the index of the enclosing mode-enter line (-1 at top level)
	Parent int

	// Top is the trimmed text of the outermost enclosing mode line (the toptag)
	Top string

	// Substituted is set when a secret was revealed into Text; echo is not awaited
	Substituted bool

	// Literal marks a multi-line text body line that the device does not echo
	Literal bool

	// Suppressed lines are kept for position bookkeeping but never emitted
	Suppressed bool
}

// NewLine creates a line from raw text
func NewLine(text string) *Line {
	text = strings.TrimRight(text, "\r")
	return &Line{
		Text:   text,
		Depth:  indentOf(text),
		Parent: -1,
	}
}

// Trimmed returns the text without surrounding whitespace
func (l *Line) Trimmed() string {
	return strings.TrimSpace(l.Text)
}

// Negated reports whether the line is a delete ("no ...") line
func (l *Line) Negated() bool {
	return strings.HasPrefix(l.Trimmed(), "no ")
}

// Indent returns the leading whitespace of the line
func (l *Line) Indent() string {
	return strings.Repeat(" ", l.Depth)
}

// SetText replaces the text keeping the current indentation rules
func (l *Line) SetText(text string) {
	l.Text = text
	l.Depth = indentOf(text)
}

// IsExit reports whether the line closes a mode
func (l *Line) IsExit() bool {
	return IsExitMarker(l.Trimmed())
}

// IsTop reports whether the line starts at column zero with a letter
func (l *Line) IsTop() bool {
	return IsTop(l.Text)
}

// HasAnnotation reports whether an annotation with the given tag precedes the line
func (l *Line) HasAnnotation(tag string) bool {
	for _, a := range l.Annotations {
		if a.Tag == tag {
			return true
		}
	}
	return false
}

// IsTop reports whether text starts with a letter (a top-level command)
func IsTop(text string) bool {
	if text == "" {
		return false
	}
	c := text[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// IsExitMarker reports whether trimmed text is a mode exit marker
func IsExitMarker(trimmed string) bool {
	return trimmed == "exit" || trimmed == "!" || strings.HasPrefix(trimmed, "exit-")
}

// IsTopExit reports whether the raw line is a top-level exit ("!" or "exit" at column zero)
func IsTopExit(text string) bool {
	return text == "!" || text == "exit"
}

func indentOf(text string) int {
	n := 0
	for n < len(text) && text[n] == ' ' {
		n++
	}
	return n
}
