package domain

// Scope is one open mode on the block-scope stack
type Scope struct {
	Index int    // buffer index of the mode-enter line
	Depth int    // indentation of the mode-enter line
	Text  string // trimmed mode-enter line
}

// ScopeStack tracks the nested modes enclosing the current line.
// Modes are pushed on enter and popped on exit markers or dedent.
type ScopeStack struct {
	frames []Scope
}

// Push enters a mode
func (s *ScopeStack) Push(sc Scope) {
	s.frames = append(s.frames, sc)
}

// Pop leaves the innermost mode
func (s *ScopeStack) Pop() (Scope, bool) {
	if len(s.frames) == 0 {
		return Scope{}, false
	}
	sc := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return sc, true
}

// Peek returns the innermost mode
func (s *ScopeStack) Peek() (Scope, bool) {
	if len(s.frames) == 0 {
		return Scope{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Outer returns the outermost mode (the toptag), or the zero Scope
func (s *ScopeStack) Outer() Scope {
	if len(s.frames) == 0 {
		return Scope{}
	}
	return s.frames[0]
}

// PopDeeper pops every mode whose enter line is indented more than depth
func (s *ScopeStack) PopDeeper(depth int) {
	for len(s.frames) > 0 && s.frames[len(s.frames)-1].Depth > depth {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Len returns the nesting level
func (s *ScopeStack) Len() int {
	return len(s.frames)
}

// Reset empties the stack
func (s *ScopeStack) Reset() {
	s.frames = s.frames[:0]
}
