package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"iosctl/internal/repository"

	"github.com/rs/zerolog"
)

// Execer runs an exec-mode command on a logged-in device
type Execer interface {
	Exec(ctx context.Context, cmd string) (string, error)
}

// FactCommand defines a command to run for fact gathering
type FactCommand struct {
	Name    string                                         // e.g., "version"
	Command string                                         // e.g., "show version"
	Parser  func(output string) (map[string]string, error) // parse command output into facts
}

// DefaultFactCommands are the standard fact-gathering commands
var DefaultFactCommands = []FactCommand{
	{
		Name:    "version",
		Command: "show version",
		Parser:  parseVersion,
	},
	{
		Name:    "inventory",
		Command: "show inventory",
		Parser:  parseInventory,
	},
}

var (
	versionRe = regexp.MustCompile(`(?m)^Cisco IOS.*Version ([^\s,]+)`)
	uptimeRe  = regexp.MustCompile(`(?m)^(\S+) uptime is (.+)$`)
	imageRe   = regexp.MustCompile(`(?m)^System image file is "([^"]+)"`)
	modelRe   = regexp.MustCompile(`(?mi)^cisco (\S+) .*(processor|bytes of memory)`)
	pidRe     = regexp.MustCompile(`PID:\s*([^,\s]*)\s*,.*SN:\s*(\S*)`)
)

// parseVersion extracts software and platform facts from show version
func parseVersion(output string) (map[string]string, error) {
	output = strings.ReplaceAll(output, "\r", "")
	m := versionRe.FindStringSubmatch(output)
	if m == nil {
		return nil, fmt.Errorf("no IOS version found")
	}
	facts := map[string]string{"version": m[1]}

	if m := uptimeRe.FindStringSubmatch(output); m != nil {
		facts["hostname"] = m[1]
		facts["uptime"] = strings.TrimSpace(m[2])
	}
	if m := imageRe.FindStringSubmatch(output); m != nil {
		facts["image"] = m[1]
	}
	if m := modelRe.FindStringSubmatch(output); m != nil {
		facts["model"] = m[1]
	}
	return facts, nil
}

// parseInventory takes the chassis entry (the first one) of show inventory
func parseInventory(output string) (map[string]string, error) {
	m := pidRe.FindStringSubmatch(output)
	if m == nil {
		return nil, fmt.Errorf("no inventory entries")
	}
	facts := map[string]string{}
	if m[1] != "" {
		facts["pid"] = m[1]
	}
	if m[2] != "" {
		facts["serial"] = m[2]
	}
	return facts, nil
}

// Facts runs the fact commands against a device and records the results
type Facts struct {
	commands []FactCommand
	cache    repository.OperCache
	logger   zerolog.Logger
}

// NewFacts creates a fact gatherer writing to cache
func NewFacts(cache repository.OperCache, logger zerolog.Logger) *Facts {
	return &Facts{
		commands: DefaultFactCommands,
		cache:    cache,
		logger:   logger.With().Str("component", "facts").Logger(),
	}
}

// Gather runs every fact command. A failing command is logged and skipped.
// The merged facts are stored under inventory/<address>/.
func (f *Facts) Gather(ctx context.Context, device Execer, address string) (map[string]string, error) {
	facts := make(map[string]string)
	for _, fc := range f.commands {
		output, err := device.Exec(ctx, fc.Command)
		if err != nil {
			return facts, fmt.Errorf("%s: %w", fc.Command, err)
		}
		parsed, err := fc.Parser(output)
		if err != nil {
			f.logger.Debug().Str("fact", fc.Name).Err(err).Msg("no facts")
			continue
		}
		for k, v := range parsed {
			facts[k] = v
		}
	}

	for k, v := range facts {
		if err := f.cache.Put(ctx, factPath(address, k), v); err != nil {
			return facts, err
		}
	}
	f.logger.Info().Str("device", address).Str("model", Model(facts)).Msg("gathered facts")
	return facts, nil
}

// Model picks the platform name used for model-gated annotations
func Model(facts map[string]string) string {
	if m := facts["model"]; m != "" {
		return m
	}
	return facts["pid"]
}

func factPath(address, name string) string {
	return repository.PrefixInventory + address + "/" + name
}
