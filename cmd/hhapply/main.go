// Command hhapply applies to hh.ru vacancies from saved searches and keeps a
// ledger of every decision so nothing is applied to twice.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-hh-autoapply/internal/config"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "hhapply",
		Short: "Automatic applications to hh.ru vacancies",
		Long: `hhapply walks the configured hh.ru searches page by page, applies to matching
vacancies with the résumé picked by your rules and records every outcome in
processed/skipped ledger files. It runs in cycles until interrupted.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Verbose logging and failure screenshots")

	cmd.AddCommand(newLedgerCmd(opts))
	return cmd
}

// loadConfig wraps config.Load with a hint for first-time users.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, fmt.Errorf("%w\nhint: copy configs/config.example.yaml to %s and fill in your searches", err, opts.configPath)
		}
		return nil, err
	}
	if opts.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
