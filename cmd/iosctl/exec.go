package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// liveRunner is the part of a session the operator console needs
type liveRunner interface {
	LiveCommand(ctx context.Context, text string) (string, error)
}

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec [command]",
		Short: "Run a live command, or open an operator console without one",
		Long: `Runs one command against the device and prints its reply. Without a
command an interactive console is started.

Besides exec commands the console understands:
  show warnings       replies accepted as warnings during the last send
  show capabilities   which show queries the device supports
  show secrets        cache keys of learned secrets
  secrets resync      drop cached secrets on the next read
  config a ; b        send lines through configuration mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			ds, err := openSession(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer ds.Close()

			if len(args) > 0 {
				out, err := ds.LiveCommand(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}
			return console(ctx, ds, cfg.Device.Address)
		},
	}
}

// console reads commands until EOF, "exit" or cancellation
func console(ctx context.Context, live liveRunner, device string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          device + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}
		if done := runLine(ctx, live, line, rl.Stdout(), rl.Stderr()); done {
			return nil
		}
	}
}

// runLine executes one console line and reports whether the console should end
func runLine(ctx context.Context, live liveRunner, line string, stdout, stderr io.Writer) bool {
	input := strings.TrimSpace(line)
	switch input {
	case "":
		return false
	case "exit", "quit":
		return true
	}

	out, err := live.LiveCommand(ctx, input)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return false
	}
	fmt.Fprint(stdout, out)
	return false
}
