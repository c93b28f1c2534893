package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"iosctl/internal/trace"

	"github.com/spf13/cobra"
)

func newTraceCmd() *cobra.Command {
	var (
		session string
		path    string
	)
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a recorded transmission trace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				cfg, _, err := loadConfig()
				if err != nil {
					return err
				}
				path = cfg.Store.TracePath
			}
			if path == "" {
				return fmt.Errorf("no trace file: set store.trace_path or --file")
			}

			events, err := trace.ReadFile(path, session)
			if err != nil {
				return err
			}
			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "only print events of this session")
	cmd.Flags().StringVar(&path, "file", "", "trace file (default is store.trace_path)")
	return cmd
}

func printEvents(w io.Writer, events []trace.Event) {
	for _, ev := range events {
		head := fmt.Sprintf("%s %-3s", ev.Timestamp.Format(time.RFC3339Nano), ev.Direction)
		if ev.Class != "" {
			head += " [" + ev.Class + "]"
		}
		if ev.Attempt > 1 {
			head += fmt.Sprintf(" attempt=%d", ev.Attempt)
		}
		switch {
		case ev.Line != "" && ev.Text != "" && ev.Text != ev.Line:
			fmt.Fprintf(w, "%s %s\n", head, ev.Line)
			for _, l := range strings.Split(strings.TrimRight(ev.Text, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", l)
			}
		case ev.Line != "":
			fmt.Fprintf(w, "%s %s\n", head, ev.Line)
		default:
			fmt.Fprintf(w, "%s %s\n", head, strings.TrimRight(ev.Text, "\n"))
		}
	}
}
