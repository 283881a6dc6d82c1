// Package genemodel holds the versioned, read-only gene tables the evidence classifiers
// consult: exon bounds, functional domains, hotspot codons, reference variants and
// frequency thresholds. Tables are validated once and never mutated afterwards.
package genemodel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// Range is a closed codon or coding-position range.
type Range struct {
	Start int    `yaml:"start" json:"start"`
	End   int    `yaml:"end" json:"end"`
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
}

// Interval converts the range to the domain interval type.
func (r Range) Interval() domain.Interval {
	return domain.Interval{Start: r.Start, End: r.End}
}

// Contains reports closed-interval membership.
func (r Range) Contains(pos int) bool {
	return pos >= r.Start && pos <= r.End
}

// ReferenceVariant is a previously classified pathogenic variant from the expert panel list.
type ReferenceVariant struct {
	CDNA      string `yaml:"cdna" json:"cdna"`
	Protein   string `yaml:"protein,omitempty" json:"protein,omitempty"`
	ClinVarID string `yaml:"clinvar_id" json:"clinvar_id"`
	CAID      string `yaml:"caid" json:"caid"`
	Missense  bool   `yaml:"missense" json:"missense"`
}

// Thresholds holds the filtering-allele-frequency cutoffs.
type Thresholds struct {
	PM2 float64 `yaml:"pm2" json:"pm2"` // applies at or below
	BS1 float64 `yaml:"bs1" json:"bs1"` // applies at or above
	BA1 float64 `yaml:"ba1" json:"ba1"` // applies at or above
}

// DeNovoPoints holds the PS2 phenotype point table and strength cutoffs.
type DeNovoPoints struct {
	HighlySpecific       float64 `yaml:"highly_specific" json:"highly_specific"`
	ConsistentPanelNeg   float64 `yaml:"consistent_panel_negative" json:"consistent_panel_negative"`
	ConsistentIncomplete float64 `yaml:"consistent_incomplete" json:"consistent_incomplete"`
	Nonspecific          float64 `yaml:"nonspecific" json:"nonspecific"`
	VeryStrong           float64 `yaml:"very_strong" json:"very_strong"`
	Strong               float64 `yaml:"strong" json:"strong"`
	Moderate             float64 `yaml:"moderate" json:"moderate"`
	Supporting           float64 `yaml:"supporting" json:"supporting"`
}

// Tables is one versioned set of gene constants.
type Tables struct {
	Version       string `yaml:"version" json:"version"`
	Gene          string `yaml:"gene" json:"gene"`
	Transcript    string `yaml:"transcript" json:"transcript"`
	ProteinLength int    `yaml:"protein_length" json:"protein_length"`
	EarlyCodon    int    `yaml:"early_codon" json:"early_codon"`
	AltStartCodon int    `yaml:"alt_start_codon" json:"alt_start_codon"`
	SomaticCutoff int    `yaml:"somatic_moderate_cutoff" json:"somatic_moderate_cutoff"`

	Exons           []Range `yaml:"exons" json:"exons"`
	CriticalDomains []Range `yaml:"critical_domains" json:"critical_domains"`
	PM1Domain       Range   `yaml:"pm1_domain" json:"pm1_domain"`
	CTerminalTail   Range   `yaml:"c_terminal_tail" json:"c_terminal_tail"`
	NMDRange        Range   `yaml:"nmd_range" json:"nmd_range"`
	CrypticSpecial  Range   `yaml:"cryptic_special_range" json:"cryptic_special_range"`

	GermlineHotspots []int              `yaml:"germline_hotspots" json:"germline_hotspots"`
	SomaticHotspots  map[int]int        `yaml:"somatic_hotspots" json:"somatic_hotspots"`
	Reference        []ReferenceVariant `yaml:"reference_pathogenic" json:"reference_pathogenic"`

	Thresholds Thresholds                        `yaml:"thresholds" json:"thresholds"`
	DeNovo     DeNovoPoints                      `yaml:"de_novo" json:"de_novo"`
	Panels     map[domain.PanelSubgroup][]string `yaml:"panels" json:"panels"`

	germline  map[int]bool
	byProtein map[string]ReferenceVariant
}

// Validate checks the tables for internal consistency and builds lookup indexes.
// Every failure wraps domain.ErrInvalidTables.
func (t *Tables) Validate() error {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if t.Version == "" {
		fail("version is required")
	}
	if t.Transcript == "" {
		fail("transcript is required")
	}
	if t.ProteinLength <= 0 {
		fail("protein_length must be positive")
	}

	if len(t.Exons) == 0 {
		fail("at least one exon is required")
	}
	for i, ex := range t.Exons {
		if !ex.Interval().Valid() {
			fail("exon %d has invalid bounds %d-%d", i+1, ex.Start, ex.End)
		}
		if i > 0 && ex.Start != t.Exons[i-1].End+1 {
			fail("exon %d does not start right after exon %d", i+1, i)
		}
	}
	if n := len(t.Exons); n > 0 && t.Exons[n-1].End < t.ProteinLength*3 {
		fail("exons end at c.%d, before the stop codon of a %d residue protein", t.Exons[n-1].End, t.ProteinLength)
	}

	codonRange := func(name string, r Range) {
		if !r.Interval().Valid() || r.End > t.ProteinLength {
			fail("%s %d-%d is not a codon range inside the protein", name, r.Start, r.End)
		}
	}
	if len(t.CriticalDomains) == 0 {
		fail("at least one critical domain is required")
	}
	for _, d := range t.CriticalDomains {
		codonRange("critical domain "+d.Name, d)
	}
	codonRange("pm1_domain", t.PM1Domain)
	codonRange("c_terminal_tail", t.CTerminalTail)
	codonRange("nmd_range", t.NMDRange)
	codonRange("cryptic_special_range", t.CrypticSpecial)

	if t.EarlyCodon <= 0 || t.EarlyCodon > t.ProteinLength {
		fail("early_codon %d is outside the protein", t.EarlyCodon)
	}
	if t.AltStartCodon <= 1 || t.AltStartCodon > t.ProteinLength {
		fail("alt_start_codon %d is outside the protein", t.AltStartCodon)
	}
	if t.SomaticCutoff <= 0 {
		fail("somatic_moderate_cutoff must be positive")
	}
	for _, c := range t.GermlineHotspots {
		if c <= 0 || c > t.ProteinLength {
			fail("germline hotspot %d is outside the protein", c)
		}
	}
	for c, n := range t.SomaticHotspots {
		if c <= 0 || c > t.ProteinLength || n <= 0 {
			fail("somatic hotspot %d:%d is invalid", c, n)
		}
	}

	th := t.Thresholds
	if !(th.PM2 > 0 && th.PM2 < th.BS1 && th.BS1 < th.BA1 && th.BA1 <= 1) {
		fail("thresholds must satisfy 0 < pm2 < bs1 < ba1 <= 1, got %g/%g/%g", th.PM2, th.BS1, th.BA1)
	}

	dn := t.DeNovo
	if !(dn.Supporting > 0 && dn.Supporting < dn.Moderate && dn.Moderate < dn.Strong && dn.Strong < dn.VeryStrong) {
		fail("de_novo cutoffs must increase from supporting to very_strong")
	}
	if dn.ConsistentIncomplete > dn.ConsistentPanelNeg || dn.ConsistentPanelNeg > dn.HighlySpecific {
		fail("de_novo phenotype points must not rank a less specific phenotype higher")
	}
	if len(t.Panels[domain.PANEL_PHEO_PARA]) == 0 {
		fail("panel %s is required", domain.PANEL_PHEO_PARA)
	}

	t.byProtein = make(map[string]ReferenceVariant, len(t.Reference))
	for _, ref := range t.Reference {
		if ref.CDNA == "" {
			fail("reference variant without cdna")
			continue
		}
		if ref.Missense && ref.Protein == "" {
			fail("missense reference %s has no protein change", ref.CDNA)
			continue
		}
		if ref.Protein != "" {
			key, err := ProteinKey(ref.Protein)
			if err != nil {
				fail("reference %s: %v", ref.CDNA, err)
				continue
			}
			t.byProtein[key] = ref
		}
	}

	t.germline = make(map[int]bool, len(t.GermlineHotspots))
	for _, c := range t.GermlineHotspots {
		t.germline[c] = true
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w (%s): %s", domain.ErrInvalidTables, t.Version, strings.Join(problems, "; "))
	}
	return nil
}

// MustValidate panics when the tables are malformed. It is meant for built-in tables.
func (t *Tables) MustValidate() *Tables {
	if err := t.Validate(); err != nil {
		panic(err)
	}
	return t
}

// CombinedCriticalDomain returns the span from the first to the last critical domain.
func (t *Tables) CombinedCriticalDomain() Range {
	r := Range{Start: t.CriticalDomains[0].Start, End: t.CriticalDomains[0].End, Name: "critical"}
	for _, d := range t.CriticalDomains[1:] {
		if d.Start < r.Start {
			r.Start = d.Start
		}
		if d.End > r.End {
			r.End = d.End
		}
	}
	return r
}
