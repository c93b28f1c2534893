package annotate

import (
	"context"
	"fmt"
	"regexp"

	"iosctl/internal/acl"
	"iosctl/internal/datastore"
	"iosctl/internal/domain"

	"github.com/rs/zerolog"
)

// handler applies one annotation to the line it precedes
type handler struct {
	// min is the number of values the annotation must carry
	min int

	// collapse applies identical annotations once per enclosing block
	collapse bool

	apply func(p *pass, l *domain.Line, a domain.Annotation) error
}

// handlers maps every known annotation kind to its policy
var handlers = map[domain.AnnotationKind]handler{
	domain.KindReorder:                  {min: 3, collapse: true, apply: reorder},
	domain.KindMaxValues:                {min: 2, apply: maxValues},
	domain.KindSplitLongLine:            {min: 1, apply: splitLongLine},
	domain.KindReplaceList:              {min: 3, apply: replaceList},
	domain.KindInject:                   {min: 4, collapse: true, apply: inject},
	domain.KindDeleteSyntax:             {apply: deleteSyntax},
	domain.KindDeleteWithDefault:        {apply: deleteWithDefault},
	domain.KindBooleanDeleteWithDefault: {apply: booleanDeleteWithDefault},
	domain.KindTrimWhenListDeleted:      {apply: trimWhenListDeleted},
	domain.KindTrimEmptyCreate:          {min: 1, apply: trimEmptyCreate},
	domain.KindTrimDeleteWhenEmpty:      {min: 1, apply: trimDeleteWhenEmpty},
	domain.KindLowerThan:                {min: 3, apply: pairedOrder},
	domain.KindHigherThan:               {min: 3, apply: pairedOrder},
	domain.KindStringAddQuotes:          {min: 1, apply: stringAddQuotes},
	domain.KindShutdownBeforeDelete:     {apply: shutdownBeforeDelete},

	// cached ahead of interpretation by the defaults injector
	domain.KindDefaultValue: {min: 2, apply: func(*pass, *domain.Line, domain.Annotation) error { return nil }},
}

// Interpreter applies annotation policies for one device model
type Interpreter struct {
	model  string
	acls   *acl.Reconciler
	logger zerolog.Logger
}

// New creates an interpreter. model is the device model string that
// model-gated annotations are matched against.
func New(model string, logger zerolog.Logger) *Interpreter {
	return &Interpreter{
		model:  model,
		acls:   acl.New(logger),
		logger: logger.With().Str("component", "annotate").Logger(),
	}
}

// pass is the state of one Interpret call
type pass struct {
	ctx      context.Context
	buf      *domain.Buffer
	from, to datastore.Handle
	model    string
	logger   zerolog.Logger

	// applied records collapsed annotation keys per enclosing mode line
	applied map[*domain.Line]map[string]bool
}

// Interpret consumes the annotations of buf and returns the buffer to send.
// from and to are read-only views of the configuration before and after the
// transaction.
func (in *Interpreter) Interpret(ctx context.Context, buf *domain.Buffer, from, to datastore.Handle) (*domain.Buffer, error) {
	p := &pass{
		ctx:     ctx,
		buf:     buf,
		from:    from,
		to:      to,
		model:   in.model,
		logger:  in.logger,
		applied: make(map[*domain.Line]map[string]bool),
	}
	buf.Reindex()

	for {
		i := p.nextPending()
		if i < 0 {
			break
		}
		l := buf.Lines[i]
		anns := l.Annotations
		l.Annotations = nil
		for _, a := range anns {
			if err := p.apply(l, a); err != nil {
				return nil, err
			}
		}
	}
	buf.Compact()
	buf.Reindex()

	if err := in.reconcileACLs(p); err != nil {
		return nil, err
	}
	Unquote(buf)
	return buf, nil
}

func (p *pass) nextPending() int {
	for i, l := range p.buf.Lines {
		if len(l.Annotations) > 0 && !l.Suppressed {
			return i
		}
	}
	return -1
}

func (p *pass) apply(l *domain.Line, a domain.Annotation) error {
	h, ok := handlers[a.Kind()]
	if !ok {
		p.logger.Debug().Str("tag", a.Tag).Str("path", a.Path).Msg("ignoring unknown annotation")
		return nil
	}
	if len(a.Values) < h.min {
		return &domain.AnnotationMalformedError{
			Annotation: a.Raw,
			Reason:     fmt.Sprintf("%s needs %d values, got %d", a.Tag, h.min, len(a.Values)),
		}
	}
	if h.collapse && !p.first(l, a) {
		return nil
	}
	if err := h.apply(p, l, a); err != nil {
		return err
	}
	return nil
}

// first reports whether a is the first instance of its key in l's block
func (p *pass) first(l *domain.Line, a domain.Annotation) bool {
	var parent *domain.Line
	if l.Parent >= 0 && l.Parent < len(p.buf.Lines) {
		parent = p.buf.Lines[l.Parent]
	}
	seen := p.applied[parent]
	if seen == nil {
		seen = make(map[string]bool)
		p.applied[parent] = seen
	}
	if seen[a.Key()] {
		return false
	}
	seen[a.Key()] = true
	return true
}

// index returns the current position of l
func (p *pass) index(l *domain.Line) int {
	for i, x := range p.buf.Lines {
		if x == l {
			return i
		}
	}
	return -1
}

// block returns the half-open range of lines sharing l's enclosing mode
func (p *pass) block(l *domain.Line) (int, int) {
	if l.Parent < 0 {
		return 0, len(p.buf.Lines)
	}
	return l.Parent + 1, p.buf.BlockEnd(l.Parent)
}

func (p *pass) insertBefore(l *domain.Line, texts ...string) {
	p.buf.Insert(p.index(l), newLines(texts)...)
	p.buf.Reindex()
}

func (p *pass) insertAfter(l *domain.Line, texts ...string) {
	p.buf.Insert(p.index(l)+1, newLines(texts)...)
	p.buf.Reindex()
}

// replace substitutes texts for l, keeping the annotations of later lines
func (p *pass) replace(l *domain.Line, texts ...string) {
	i := p.index(l)
	l.Suppressed = true
	p.buf.Insert(i+1, newLines(texts)...)
	p.buf.Reindex()
}

func (p *pass) exists(h datastore.Handle, side, path string) (bool, error) {
	ok, err := h.Exists(p.ctx, path)
	if err != nil {
		return false, fmt.Errorf("%s exists %s: %w", side, path, err)
	}
	return ok, nil
}

func (p *pass) leaf(h datastore.Handle, side, path string) (string, bool, error) {
	v, ok, err := h.ReadLeaf(p.ctx, path)
	if err != nil {
		return "", false, fmt.Errorf("%s read %s: %w", side, path, err)
	}
	return v, ok, nil
}

// modelMatches reports whether an optional model regexp matches the device
func (p *pass) modelMatches(a domain.Annotation, expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	re, err := compile(a, expr)
	if err != nil {
		return false, err
	}
	return re.MatchString(p.model), nil
}

func (p *pass) trace(a domain.Annotation, msg, line string) {
	p.logger.Debug().Str("tag", a.Tag).Str("line", line).Msg(msg)
}

func compile(a domain.Annotation, expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &domain.AnnotationMalformedError{Annotation: a.Raw, Reason: err.Error()}
	}
	return re, nil
}

// anchored compiles expr to match a whole trimmed line
func anchored(a domain.Annotation, expr string) (*regexp.Regexp, error) {
	return compile(a, "^(?:"+expr+")$")
}

func newLines(texts []string) []*domain.Line {
	out := make([]*domain.Line, len(texts))
	for i, t := range texts {
		out[i] = domain.NewLine(t)
	}
	return out
}

// replaceFirst is regexp replacement limited to the leftmost match
func replaceFirst(re *regexp.Regexp, s, repl string) string {
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return s
	}
	out := re.ExpandString(nil, repl, s, m)
	return s[:m[0]] + string(out) + s[m[1]:]
}
