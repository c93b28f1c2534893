package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [selector]",
		Short: "Print the normalized running configuration",
		Long: `Reads the running configuration, normalizes it into the canonical form the
orchestrator parses and prints it. A selector keeps only the top-level blocks
whose first line starts with it, for example "interface".`,
		Args: cobra.MaximumNArgs(1),
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

			selector := ""
			if len(args) == 1 {
				selector = args[0]
			}
			text, err := ds.Show(ctx, selector)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the change-detection hash of the running configuration",
		Args:  cobra.NoArgs,
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

			fp, err := ds.Fingerprint(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), fp)
			return nil
		},
	}
}
