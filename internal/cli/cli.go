// Package cli builds sentryd's command-line surface (spec §6 "CLI") on
// top of github.com/spf13/cobra, mirroring the root-command structure used
// by praetorian-inc/titus and DataDog/datadog-agent.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Options carries the parsed CLI flags (spec §6 table: -c, -a, -s).
type Options struct {
	ConfigPath    string
	ReadFromStart bool
	Simulate      bool
}

// RunFunc is invoked once flags are parsed; it owns the daemon's lifetime
// and should return when ctx is cancelled.
type RunFunc func(ctx context.Context, opts Options) error

// NewRootCommand builds the sentryd root command. cobra supplies -h
// automatically (spec §6: "-h: print usage and exit 0").
func NewRootCommand(run RunFunc) *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "sentryd",
		Short: "Tail log files, detect attack patterns, jail offending IPs",
		Long: `sentryd watches configured log files for operator-defined attack
signatures. When a source IP exceeds a configured hit rate within a sliding
time window it executes an external jail command against that IP; after a
configurable cooldown it executes an unjail command. Repeat offenders are
jailed for geometrically longer intervals.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file path (default: search /etc/sentryd.xml, ./sentryd.xml)")
	cmd.Flags().BoolVarP(&opts.ReadFromStart, "from-start", "a", false, "read each observed file from the beginning")
	cmd.Flags().BoolVarP(&opts.Simulate, "simulate", "s", false, "simulate: log commands, never spawn them")

	return cmd
}
