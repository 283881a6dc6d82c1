package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vhl-acmg-classifier/internal/app"
	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/pkg/external"
)

var errFeedbackDisabled = errors.New("feedback store is disabled (feedback.driver: none)")

func newFeedbackCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Inspect, export or import curator feedback",
	}

	open := func(cmd *cobra.Command) (*app.App, error) {
		a, err := opts.load(cmd.Context(), func(cfg *domain.Config) {
			cfg.Frequency.Backend = external.BackendNone
		})
		if err != nil {
			return nil, err
		}
		if a.Feedback == nil {
			a.Close()
			return nil, errFeedbackDisabled
		}
		return a, nil
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded reviews, newest first",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Feedback.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), items)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VARIANT\tENGINE\tCURATOR\tAGREED\tUPDATED")
			for _, fb := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", fb.NormalizedHGVS, fb.EngineClassification,
					fb.CuratorClassification, fb.Agreed, fb.UpdatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "Maximum number of reviews")
	list.Flags().IntVar(&offset, "offset", 0, "Number of reviews to skip")
	cmd.AddCommand(list)

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write every review as JSON",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return a.Feedback.ExportJSON(cmd.Context(), out)
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.AddCommand(export)

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Load reviews from a JSON export, skipping variants already reviewed",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening export: %w", err)
			}
			defer f.Close()

			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			imported, skipped, err := a.Feedback.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d reviews, skipped %d existing\n", imported, skipped)
			return nil
		},
	})

	return cmd
}
