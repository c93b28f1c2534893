package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// txFlags are shared by every command that sends a diff
type txFlags struct {
	from string
	to   string
	diff string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "snapshot of the configuration before the transaction (yaml or json)")
	cmd.Flags().StringVar(&f.to, "to", "", "snapshot of the configuration after the transaction (yaml or json)")
	cmd.Flags().StringVarP(&f.diff, "diff", "d", "-", "file holding the CLI diff, - for stdin")
}

func newApplyCmd() *cobra.Command {
	var (
		flags   txFlags
		dry     bool
		persist bool
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Send a configuration diff and commit it",
		Long: `Interprets the meta-data annotations of a CLI diff against the given
snapshots, sends the result through configuration mode and commits it.

With --dry the interpreted text is printed and nothing is sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			diff, err := readDiff(flags.diff)
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

			txID := uuid.NewString()
			if err := ds.loadTransaction(txID, flags.from, flags.to); err != nil {
				return err
			}

			if dry {
				out, err := ds.PrepareDry(ctx, txID, diff)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}

			if err := ds.Prepare(ctx, txID, diff); err != nil {
				return err
			}
			if err := ds.Commit(ctx, txID); err != nil {
				return err
			}
			if persist {
				if err := ds.Persist(ctx); err != nil {
					return err
				}
			}

			if w := ds.State().Warnings; w != "" {
				fmt.Fprint(cmd.ErrOrStderr(), w)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transaction %s committed\n", txID)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&dry, "dry", false, "print the interpreted diff without sending it")
	cmd.Flags().BoolVar(&persist, "persist", false, "save the configuration after commit (write_memory: on-persist)")
	return cmd
}

func newAbortCmd() *cobra.Command {
	var flags txFlags
	cmd := &cobra.Command{
		Use:   "abort",
		Short: "Send the reverse diff of a failed transaction, ignoring rejections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rollback(cmd, flags, false)
		},
	}
	flags.register(cmd)
	return cmd
}

func newRevertCmd() *cobra.Command {
	var flags txFlags
	cmd := &cobra.Command{
		Use:   "revert",
		Short: "Send the reverse diff of a committed transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rollback(cmd, flags, true)
		},
	}
	flags.register(cmd)
	return cmd
}

func rollback(cmd *cobra.Command, flags txFlags, committed bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	diff, err := readDiff(flags.diff)
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

	txID := uuid.NewString()
	if err := ds.loadTransaction(txID, flags.from, flags.to); err != nil {
		return err
	}
	if committed {
		err = ds.Revert(ctx, txID, diff)
	} else {
		err = ds.Abort(ctx, txID, diff)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "transaction %s rolled back\n", txID)
	return nil
}
