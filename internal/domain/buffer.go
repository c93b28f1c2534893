package domain

import (
	"strings"
)

// Buffer is an ordered sequence of configuration lines
type Buffer struct {
	Lines []*Line
}

// ParseBuffer splits text into lines, attaching annotation comments to the
// command line that follows them
func ParseBuffer(text string) (*Buffer, error) {
	b := &Buffer{}
	var pending []Annotation

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if IsAnnotationLine(raw) {
			a, err := ParseAnnotation(raw)
			if err != nil {
				return nil, err
			}
			pending = append(pending, a)
			continue
		}
		l := NewLine(raw)
		l.Annotations = pending
		pending = nil
		b.Lines = append(b.Lines, l)
	}

	b.Reindex()
	return b, nil
}

// NewBuffer creates a buffer from raw lines without annotation parsing
func NewBuffer(lines ...string) *Buffer {
	b := &Buffer{}
	for _, raw := range lines {
		b.Lines = append(b.Lines, NewLine(raw))
	}
	b.Reindex()
	return b
}

// Len returns the number of lines, suppressed lines included
func (b *Buffer) Len() int {
	return len(b.Lines)
}

// Reindex recomputes the enclosing mode and toptag of every line using a
// block-scope stack
func (b *Buffer) Reindex() {
	var stack ScopeStack

	for i, l := range b.Lines {
		t := l.Trimmed()

		if IsExitMarker(t) {
			stack.PopDeeper(l.Depth)
			l.Parent, l.Top = -1, t
			if top, ok := stack.Peek(); ok && top.Depth == l.Depth {
				l.Parent = top.Index
				l.Top = stack.Outer().Text
				stack.Pop()
			}
			continue
		}

		stack.PopDeeper(l.Depth - 1)
		if top, ok := stack.Peek(); ok {
			l.Parent = top.Index
			l.Top = stack.Outer().Text
		} else {
			l.Parent = -1
			l.Top = t
		}

		if next := b.nextLive(i); next >= 0 && b.Lines[next].Depth > l.Depth {
			stack.Push(Scope{Index: i, Depth: l.Depth, Text: t})
		}
	}
}

// BlockEnd returns the index of the line that terminates the block opened at
// index p: the matching exit marker, the first line at or above p's depth, or
// Len() when the block runs to the end
func (b *Buffer) BlockEnd(p int) int {
	if p < 0 {
		return len(b.Lines)
	}
	depth := b.Lines[p].Depth
	for j := p + 1; j < len(b.Lines); j++ {
		if b.Lines[j].Depth <= depth {
			return j
		}
	}
	return len(b.Lines)
}

// Insert places lines before index i
func (b *Buffer) Insert(i int, lines ...*Line) {
	if i > len(b.Lines) {
		i = len(b.Lines)
	}
	out := make([]*Line, 0, len(b.Lines)+len(lines))
	out = append(out, b.Lines[:i]...)
	out = append(out, lines...)
	out = append(out, b.Lines[i:]...)
	b.Lines = out
}

// Move relocates the line at index from so that it ends up at index to
// (indices refer to the buffer before the move)
func (b *Buffer) Move(from, to int) {
	if from == to {
		return
	}
	l := b.Lines[from]
	b.Lines = append(b.Lines[:from], b.Lines[from+1:]...)
	if to > from {
		to--
	}
	b.Insert(to, l)
}

// Compact drops suppressed lines
func (b *Buffer) Compact() {
	out := b.Lines[:0]
	for _, l := range b.Lines {
		if !l.Suppressed {
			out = append(out, l)
		}
	}
	b.Lines = out
}

// Texts returns the emitted line texts
func (b *Buffer) Texts() []string {
	out := make([]string, 0, len(b.Lines))
	for _, l := range b.Lines {
		if !l.Suppressed {
			out = append(out, l.Text)
		}
	}
	return out
}

// String renders the buffer as newline terminated text
func (b *Buffer) String() string {
	texts := b.Texts()
	if len(texts) == 0 {
		return ""
	}
	return strings.Join(texts, "\n") + "\n"
}

// Empty reports whether the buffer emits nothing but exit markers
func (b *Buffer) Empty() bool {
	for _, l := range b.Lines {
		if !l.Suppressed && !l.IsExit() {
			return false
		}
	}
	return true
}

func (b *Buffer) nextLive(i int) int {
	for j := i + 1; j < len(b.Lines); j++ {
		if !b.Lines[j].Suppressed {
			return j
		}
	}
	return -1
}
