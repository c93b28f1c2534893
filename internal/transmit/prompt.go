package transmit

import (
	"regexp"
)

type promptKind int

const (
	kindConfig promptKind = iota
	kindExec
	kindQuestion
)

// Prompt and question patterns, in match priority order
var (
	configPrompts = compileAll(
		`(?m)^\S*\(cfg\)#`,
		`(?m)^\S*\(config\)#`,
		`(?m)^\S*\(\S+\)#`,
	)
	execPrompt = regexp.MustCompile(`(?m)^[^\s#()]+#`)
	questions  = compileAll(
		`\?[ ]{0,2}\(yes/\[no\]\)`,
		`\?[ ]{0,2}\[[Yy]es/[Nn]o\]`,
		`\?[ ]{0,2}\[[Yy]es\]`,
		`\?[ ]{0,2}\[[Nn]o\]`,
		`\?[ ]{0,2}\[confirm\]`,
	)
)

// AutoAnswer is a configured reply to a device question
type AutoAnswer struct {
	Question string // regexp matched against the question text
	Answer   string // sent followed by a newline, empty sends just the newline
}

// builtinAnswers are always present after the configured ones
var builtinAnswers = []AutoAnswer{
	{Question: `Destination filename \[.*\]\?`, Answer: ""},
}

// promptSet is the ordered list awaited after a line is echoed. Configured
// answers precede the generic questions so they win on equal matches.
type promptSet struct {
	patterns []*regexp.Regexp
	answers  map[*regexp.Regexp]string
}

func newPromptSet(auto []AutoAnswer) (*promptSet, error) {
	ps := &promptSet{answers: make(map[*regexp.Regexp]string)}
	ps.patterns = append(ps.patterns, configPrompts...)
	ps.patterns = append(ps.patterns, execPrompt)
	for _, a := range append(append([]AutoAnswer{}, auto...), builtinAnswers...) {
		re, err := regexp.Compile(a.Question)
		if err != nil {
			return nil, err
		}
		ps.answers[re] = a.Answer
		ps.patterns = append(ps.patterns, re)
	}
	ps.patterns = append(ps.patterns, questions...)
	return ps, nil
}

func (ps *promptSet) kind(i int) promptKind {
	switch {
	case i < len(configPrompts):
		return kindConfig
	case i == len(configPrompts):
		return kindExec
	default:
		return kindQuestion
	}
}

// exec is the list awaited after an exec-mode command; index 0 is the prompt
func (ps *promptSet) exec() []*regexp.Regexp {
	return ps.patterns[len(configPrompts):]
}

// answer returns the configured answer for the question matched by re
func (ps *promptSet) answer(re *regexp.Regexp) (string, bool) {
	a, ok := ps.answers[re]
	return a, ok
}
