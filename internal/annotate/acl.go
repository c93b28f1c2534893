package annotate

import (
	"fmt"
	"strings"

	"iosctl/internal/acl"
)

// ACLRulesPath locates the rule list of an extended access list
const ACLRulesPath = "/ip/access-list/extended{%s}/rule"

// reconcileACLs replaces every extended access list block with the commands
// the reconciler computes against the list the device holds before the
// transaction
func (in *Interpreter) reconcileACLs(p *pass) error {
	batch := in.acls.NewBatch()
	lines := p.buf.Lines
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if l.Depth != 0 || !strings.HasPrefix(l.Text, acl.HeaderPrefix) {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(l.Text, acl.HeaderPrefix))
		end := p.buf.BlockEnd(i)
		var body []string
		for _, x := range lines[i+1 : end] {
			body = append(body, x.Text)
		}
		if end < len(lines) && lines[end].IsExit() {
			end++
		}

		var cached []string
		if !batch.Seen(name) {
			entries, err := p.from.ReadList(p.ctx, fmt.Sprintf(ACLRulesPath, name))
			if err != nil {
				return fmt.Errorf("from read access-list %s: %w", name, err)
			}
			for _, e := range entries {
				cached = append(cached, e.Key)
			}
		}
		cmds, err := batch.Reconcile(name, acl.Park(cached), body)
		if err != nil {
			return err
		}

		rest := append(newLines(cmds), lines[end:]...)
		lines = append(lines[:i], rest...)
		p.buf.Lines = lines
		i += len(cmds) - 1
	}
	p.buf.Reindex()
	return nil
}
