// Package main provides the vhl-classify command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vhl-acmg-classifier/internal/app"
	"github.com/vhl-acmg-classifier/internal/config"
	"github.com/vhl-acmg-classifier/internal/domain"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// usageError marks bad arguments or flags, which exit with ExitUsage.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	tablesPath string
	logLevel   string
	jsonOutput bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var uerr usageError
		if errors.As(err, &uerr) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "vhl-classify",
		Short: "ACMG/AMP evidence classification for VHL variants",
		Long: `vhl-classify evaluates ACMG/AMP evidence codes for coding HGVS variants
in VHL (NM_000551.4) following the ClinGen VHL expert panel rules,
and combines them into a five-tier classification.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: ./config.yaml, ./config/config.yaml or /etc/vhl-classifier/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.tablesPath, "tables", "", "Gene table YAML file (default: built-in VHL tables)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Write JSON instead of text")

	cmd.AddCommand(newClassifyCmd(opts))
	cmd.AddCommand(newEvaluateCmd(opts))
	cmd.AddCommand(newCombineCmd(opts))
	cmd.AddCommand(newTablesCmd(opts))
	cmd.AddCommand(newFrequencyCmd(opts))
	cmd.AddCommand(newFeedbackCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))

	return cmd
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// load reads the configuration, applies the command-line overrides and mutate,
// and builds the application. CLI logs are text on stderr.
func (o *globalOptions) load(ctx context.Context, mutate func(*domain.Config)) (*app.App, error) {
	manager, err := config.NewManager(o.configPath)
	if err != nil {
		return nil, err
	}

	cfg := manager.GetConfig()
	cfg.Logging.Format = "text"
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.tablesPath != "" {
		cfg.Tables.Path = o.tablesPath
	}
	if mutate != nil {
		mutate(cfg)
	}

	if err := manager.Validate(); err != nil {
		return nil, usageError{fmt.Errorf("configuration validation failed: %w", err)}
	}
	return app.New(ctx, cfg)
}

// withoutFeedback disables the feedback store for commands that never touch it.
func withoutFeedback(cfg *domain.Config) {
	cfg.Feedback.Driver = "none"
}
