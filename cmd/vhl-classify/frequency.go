package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vhl-acmg-classifier/pkg/external"
)

func newFrequencyCmd(opts *globalOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "frequency",
		Short: "Manage the local gnomAD frequency table",
		Long: `The local backend (frequency.backend: local) reads allele counts and
filtering allele frequencies from a SQLite table built from a gnomAD VCF slice.`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Local frequency database (default: frequency.local.path from config)")

	open := func(cmd *cobra.Command) (*external.LocalFrequencyStore, error) {
		path := dbPath
		if path == "" {
			a, err := opts.load(cmd.Context(), withoutFeedback)
			if err != nil {
				return nil, err
			}
			path = a.Config.Frequency.Local.Path
			a.Close()
		}
		return external.NewLocalFrequencyStore(path)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import-vcf <file|->",
		Short: "Load AC, AN and faf95_popmax from a gnomAD VCF",
		Example: `  vhl-classify frequency import-vcf --db data/gnomad_vhl.db gnomad.exomes.v4.chr3_vhl.vcf
  bcftools view -r chr3:10141778-10153667 gnomad.vcf.bgz | vhl-classify frequency import-vcf -`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("opening VCF: %w", err)
				}
				defer f.Close()
				in = f
			}

			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.ImportVCF(cmd.Context(), in)
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d alleles (%d in table)\n", n, total)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "lookup <chrom-pos-ref-alt>",
		Short:   "Query one GRCh38 allele in the local table",
		Example: `  vhl-classify frequency lookup 3-10142187-C-T`,
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locus, err := external.ParseLocusID(args[0])
			if err != nil {
				return usageError{err}
			}

			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := store.Query(cmd.Context(), *locus)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", locus.ID(), describeFrequency(*result))
			return nil
		},
	})

	return cmd
}
