package main

import (
	"os"

	"iosctl/internal/domain"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "iosctl",
	Short: "Drive Cisco IOS devices over their CLI",
	Long: `iosctl reads, normalizes and changes the running configuration of a
Cisco IOS device through its interactive SSH command line.

Configuration changes are computed elsewhere and handed to iosctl as CLI
text together with the before and after configuration snapshots. iosctl
interprets the embedded meta-data annotations, sends the result line by line
and classifies every reply.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "iosctl version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitRetry tells a calling script the device was busy and the same
// transaction may be sent again
const exitRetry = 75

func exitCode(err error) int {
	if !domain.IsFatal(err) {
		return exitRetry
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $IOSCTL_CONFIG or iosctl.yaml)")

	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newFingerprintCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newAbortCmd())
	rootCmd.AddCommand(newRevertCmd())
	rootCmd.AddCommand(newExecCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newTraceCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}
