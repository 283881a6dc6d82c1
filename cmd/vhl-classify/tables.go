package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vhl-acmg-classifier/internal/genemodel"
)

func newTablesCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Export or validate gene tables",
		Long: `The classifier ships with built-in VHL tables. Export them to YAML, edit
the copy for a new panel version, validate it, and point tables.path (or
--tables) at the file.`,
	}
	cmd.AddCommand(newTablesExportCmd(opts))
	cmd.AddCommand(newTablesValidateCmd())
	return cmd
}

func newTablesExportCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the active gene tables as YAML",
		Example: `  vhl-classify tables export > vhl.yaml
  vhl-classify tables export -o vhl.yaml`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := genemodel.Load(opts.tablesPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if opts.jsonOutput {
				return writeJSON(out, tables)
			}
			return tables.WriteYAML(out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newTablesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a gene table file for consistency",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := genemodel.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%s %s, version %s, %d reference variants)\n",
				args[0], tables.Gene, tables.Transcript, tables.Version, len(tables.Reference))
			return nil
		},
	}
}
