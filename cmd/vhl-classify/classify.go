package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vhl-acmg-classifier/internal/app"
	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/service"
	"github.com/vhl-acmg-classifier/pkg/external"
)

// evidenceFlags collects the caller-supplied context and frequency overrides.
type evidenceFlags struct {
	exonSkipping  bool
	crypticFrame  string
	dupTandem     string
	deNovo        bool
	familyHistory bool
	phenotype     string
	panelSubgroup string
	panelNegative []string
	faf           float64
	absent        bool
}

func (f *evidenceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.exonSkipping, "exon-skipping", false, "Splice variant is known to cause in-frame exon skipping")
	fs.StringVar(&f.crypticFrame, "cryptic-frame", "", "Cryptic splice site effect: disrupts or preserves")
	fs.StringVar(&f.dupTandem, "dup-tandem", "", "Duplication orientation: tandem or not_tandem")
	fs.BoolVar(&f.deNovo, "de-novo", false, "De novo occurrence confirmed with maternity and paternity")
	fs.BoolVar(&f.familyHistory, "family-history", false, "Proband has a family history of VHL disease")
	fs.StringVar(&f.phenotype, "phenotype", "", "Phenotype: highly_specific, consistent or nonspecific")
	fs.StringVar(&f.panelSubgroup, "panel-subgroup", "", "Differential panel: pheo_para, vhl_type2c or rcc_pheo")
	fs.StringSliceVar(&f.panelNegative, "panel-negative", nil, "Genes that tested negative (comma-separated)")
	fs.Float64Var(&f.faf, "faf", 0, "Use this gnomAD filtering allele frequency instead of querying a backend")
	fs.BoolVar(&f.absent, "absent", false, "Treat the variant as absent from gnomAD instead of querying a backend")
	cmd.MarkFlagsMutuallyExclusive("faf", "absent")
}

func (f *evidenceFlags) context() domain.EvidenceContext {
	ctx := domain.EvidenceContext{
		ExonSkipping:    f.exonSkipping,
		CrypticFrame:    domain.FrameEffect(strings.ToLower(f.crypticFrame)),
		DupTandem:       domain.TandemStatus(strings.ToLower(f.dupTandem)),
		DeNovoConfirmed: f.deNovo,
		FamilyHistory:   f.familyHistory,
		Phenotype:       domain.PhenotypeCategory(strings.ToLower(f.phenotype)),
		PanelSubgroup:   domain.PanelSubgroup(strings.ToLower(f.panelSubgroup)),
	}
	if len(f.panelNegative) > 0 {
		ctx.PanelNegative = make(map[string]bool, len(f.panelNegative))
		for _, gene := range f.panelNegative {
			ctx.PanelNegative[strings.ToUpper(strings.TrimSpace(gene))] = true
		}
	}
	return ctx
}

// classifier returns the configured service, or one backed by a static adapter
// when --faf or --absent is set.
func (f *evidenceFlags) classifier(ctx context.Context, cmd *cobra.Command, opts *globalOptions) (*app.App, *service.ClassifierService, error) {
	static := cmd.Flags().Changed("faf") || f.absent
	a, err := opts.load(ctx, func(cfg *domain.Config) {
		withoutFeedback(cfg)
		if static {
			cfg.Frequency.Backend = external.BackendNone
		}
	})
	if err != nil {
		return nil, nil, err
	}
	if !static {
		return a, a.Classifier, nil
	}

	var faf *float64
	if cmd.Flags().Changed("faf") {
		if f.faf < 0 || f.faf > 1 {
			a.Close()
			return nil, nil, usageError{fmt.Errorf("--faf must be between 0 and 1, got %g", f.faf)}
		}
		faf = &f.faf
	}
	svc := service.NewClassifierService(a.Logger, a.Tables, external.NewStaticAdapter(faf, f.absent), a.Config.Frequency.Timeout)
	return a, svc, nil
}

func newClassifyCmd(opts *globalOptions) *cobra.Command {
	flags := &evidenceFlags{}
	var codes []string

	cmd := &cobra.Command{
		Use:   "classify <hgvs>",
		Short: "Evaluate evidence codes and combine them into a classification",
		Example: `  vhl-classify classify "NM_000551.4:c.263G>A" --absent
  vhl-classify classify "c.499C>T (p.Arg167Trp)" --faf 0.00001 --phenotype highly_specific
  vhl-classify classify "c.341-1G>A" --codes PVS1,PM2_Supporting --json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := parseCodes(codes)
			if err != nil {
				return err
			}

			a, svc, err := flags.classifier(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := svc.Classify(cmd.Context(), args[0], flags.context(), selected...)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return writeReport(cmd.OutOrStdout(), report)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringSliceVar(&codes, "codes", nil, "Evaluate only these codes (default: all)")
	return cmd
}

func newEvaluateCmd(opts *globalOptions) *cobra.Command {
	flags := &evidenceFlags{}

	cmd := &cobra.Command{
		Use:   "evaluate <code> <hgvs>",
		Short: "Evaluate a single evidence code",
		Example: `  vhl-classify evaluate PVS1 "c.463+1G>A"
  vhl-classify evaluate PS2 "c.499C>T" --de-novo --phenotype highly_specific`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, svc, err := flags.classifier(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			result := svc.EvaluateCode(cmd.Context(), args[0], args[1], flags.context())
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			writeEvidenceRow(w, result)
			return w.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}

func newCombineCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "combine <CODE[=Strength]>...",
		Short: "Combine evidence codes into a classification",
		Long: `Combine applies the ACMG/AMP combining rules to the given codes. A code
without a strength uses its default; CODE=None marks it as evaluated but not met.`,
		Example: `  vhl-classify combine PS1 PM1 PM4
  vhl-classify combine PVS1=Strong PM2_Supporting`,
		Args: minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]domain.EvidenceResult, 0, len(args))
			for _, arg := range args {
				r, err := parseEvidenceArg(arg)
				if err != nil {
					return usageError{err}
				}
				results = append(results, r)
			}

			a, err := opts.load(cmd.Context(), func(cfg *domain.Config) {
				withoutFeedback(cfg)
				cfg.Frequency.Backend = external.BackendNone
			})
			if err != nil {
				return err
			}
			defer a.Close()

			verdict := a.Classifier.Engine().Combine(results)
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), verdict)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Classification: %s\nContributing:   %s\n", verdict.Label, joinLabels(verdict.Contributing))
			return nil
		},
	}
}

// parseEvidenceArg reads "PM2_Supporting", "PS1=Moderate" or "BS1=None".
func parseEvidenceArg(arg string) (domain.EvidenceResult, error) {
	name, strengthName, hasStrength := strings.Cut(arg, "=")
	code, err := domain.ParseEvidenceCode(name)
	if err != nil {
		return domain.EvidenceResult{}, err
	}

	strength := code.DefaultStrength()
	if hasStrength {
		if strength, err = domain.ParseStrength(strengthName); err != nil {
			return domain.EvidenceResult{}, err
		}
	}
	return domain.EvidenceResult{Code: code, Strength: strength, Justification: "supplied on the command line"}, nil
}

func parseCodes(raw []string) ([]domain.EvidenceCode, error) {
	codes := make([]domain.EvidenceCode, 0, len(raw))
	for _, r := range raw {
		code, err := domain.ParseEvidenceCode(strings.TrimSpace(r))
		if err != nil {
			return nil, usageError{err}
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func writeReport(out io.Writer, report *domain.ClassificationReport) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	v := report.Variant
	if v.ParseError != "" {
		fmt.Fprintf(w, "Variant:\t%s (not parsed: %s)\n", v.Input, v.ParseError)
	} else {
		fmt.Fprintf(w, "Variant:\t%s\t%s\n", v.HGVS(), v.Type)
	}
	if f := report.Frequency; f != nil {
		fmt.Fprintf(w, "Frequency:\t%s\n", describeFrequency(*f))
	}
	fmt.Fprintf(w, "Tables:\t%s\n\n", report.Tables)

	for _, r := range report.Evidence {
		writeEvidenceRow(w, r)
	}

	fmt.Fprintf(w, "\nClassification:\t%s\n", report.Verdict.Label)
	fmt.Fprintf(w, "Contributing:\t%s\n", joinLabels(report.Verdict.Contributing))
	return w.Flush()
}

func writeEvidenceRow(w io.Writer, r domain.EvidenceResult) {
	strength := string(r.Strength)
	if r.Strength == domain.NOT_APPLICABLE {
		strength = "-"
	}
	fmt.Fprintf(w, "%s\t%s\t%s\n", r.Code, strength, r.Justification)
}

func describeFrequency(f domain.FrequencyResult) string {
	switch {
	case !f.Resolved():
		return fmt.Sprintf("unresolved (%s: %s)", f.Source, f.Detail)
	case !f.Present:
		return fmt.Sprintf("absent (%s)", f.Source)
	case f.FAF == nil:
		return fmt.Sprintf("present, no FAF (%s)", f.Source)
	default:
		return fmt.Sprintf("FAF %.3g (%s)", *f.FAF, f.Source)
	}
}

func joinLabels(results []domain.EvidenceResult) string {
	if len(results) == 0 {
		return "none"
	}
	labels := make([]string, len(results))
	for i, r := range results {
		labels[i] = r.Label()
	}
	return strings.Join(labels, ", ")
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
