package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"iosctl/internal/adapter"
	"iosctl/internal/repository/sqlite"

	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	var (
		fast    bool
		detect  bool
		ports   string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "scan [target...]",
		Short: "Find devices with a reachable CLI and record them in the inventory",
		Long: `Runs an nmap scan of the given targets, or of scan.targets from the config,
and lists the hosts offering SSH or telnet. Results are stored under
inventory/<address>/ in the oper cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			targets := args
			if len(targets) == 0 {
				targets = cfg.Scan.Targets
			}
			if len(targets) == 0 {
				return fmt.Errorf("no scan targets")
			}

			var opts []adapter.ScanOption
			if fast {
				opts = append(opts, adapter.WithFastScan())
			}
			if ports == "" {
				ports = cfg.Scan.Ports
			}
			if ports != "" {
				opts = append(opts, adapter.WithPortRange(ports))
			}
			if cfg.Scan.SkipHostDiscovery {
				opts = append(opts, adapter.WithSkipHostDiscovery(true))
			}
			if cmd.Flags().Changed("service-detection") {
				opts = append(opts, adapter.WithServiceDetection(detect))
			}
			if timeout > 0 {
				opts = append(opts, adapter.WithTimeout(timeout))
			}

			ctx, cancel := signalContext()
			defer cancel()

			hosts, err := adapter.NewInventoryScanner(logger, opts...).Scan(ctx, targets)
			if err != nil {
				return err
			}

			repo, err := sqlite.New(cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer repo.Close()
			for _, h := range hosts {
				if err := adapter.Record(ctx, repo.Device(h.Address), []adapter.Host{h}); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tHOSTNAME\tSSH\tCISCO")
			for _, h := range hosts {
				fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", h.Address, h.Hostname, h.SSH(), h.Cisco())
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&fast, "fast", false, "only probe ssh and telnet without service detection")
	cmd.Flags().StringVar(&ports, "ports", "", "port range to scan (overrides scan.ports)")
	cmd.Flags().BoolVar(&detect, "service-detection", true, "run nmap -sV to identify the SSH server; --service-detection=false skips it")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "limit for the whole scan (default 10m, 2m with --fast)")
	return cmd
}
