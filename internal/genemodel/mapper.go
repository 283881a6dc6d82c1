package genemodel

import (
	"fmt"

	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/pkg/hgvs"
)

// CodonOf maps a 1-based coding position to its codon.
func CodonOf(pos int) int {
	return ((pos - 1) / 3) + 1
}

// CodonInterval maps a coding interval to the codons it touches.
func CodonInterval(i domain.Interval) domain.Interval {
	return domain.Interval{Start: CodonOf(i.Start), End: CodonOf(i.End)}
}

// InCriticalDomain reports whether the codon lies in any critical domain.
func (t *Tables) InCriticalDomain(codon int) bool {
	for _, d := range t.CriticalDomains {
		if d.Contains(codon) {
			return true
		}
	}
	return false
}

// CriticalDomainName returns the name of the domain holding codon, or "".
func (t *Tables) CriticalDomainName(codon int) string {
	for _, d := range t.CriticalDomains {
		if d.Contains(codon) {
			return d.Name
		}
	}
	return ""
}

func (t *Tables) InPM1Domain(codon int) bool {
	return t.PM1Domain.Contains(codon)
}

func (t *Tables) InCTerminalTail(codon int) bool {
	return t.CTerminalTail.Contains(codon)
}

func (t *Tables) InCrypticSpecialRange(codon int) bool {
	return t.CrypticSpecial.Contains(codon)
}

// OverlapsCriticalDomain reports whether a codon interval touches the combined critical region.
func (t *Tables) OverlapsCriticalDomain(codons domain.Interval) bool {
	return t.CombinedCriticalDomain().Interval().Overlaps(codons)
}

// CoversWholeExon reports whether a coding interval spans at least one complete exon.
func (t *Tables) CoversWholeExon(i domain.Interval) bool {
	for _, ex := range t.Exons {
		if i.Covers(ex.Interval()) {
			return true
		}
	}
	return false
}

// ExonOf returns the 1-based exon number holding a coding position, or 0.
func (t *Tables) ExonOf(pos int) int {
	for n, ex := range t.Exons {
		if ex.Contains(pos) {
			return n + 1
		}
	}
	return 0
}

// PredictNMD reports whether a premature stop at codon is expected to trigger
// nonsense-mediated decay.
func (t *Tables) PredictNMD(codon int) bool {
	return t.NMDRange.Contains(codon)
}

func (t *Tables) IsGermlineHotspot(codon int) bool {
	return t.germline[codon]
}

// SomaticCount returns the number of somatic observations at codon, 0 when unlisted.
func (t *Tables) SomaticCount(codon int) int {
	return t.SomaticHotspots[codon]
}

// LookupReferenceProtein finds a reference variant by protein change. The lookup
// ignores the p. prefix, predicted parentheses and one/three-letter spelling.
func (t *Tables) LookupReferenceProtein(protein string) (ReferenceVariant, bool) {
	key, err := ProteinKey(protein)
	if err != nil {
		return ReferenceVariant{}, false
	}
	ref, ok := t.byProtein[key]
	return ref, ok
}

// PanelGenes returns the differential panel for a subgroup, defaulting to pheo_para.
func (t *Tables) PanelGenes(sub domain.PanelSubgroup) []string {
	if sub == "" {
		sub = domain.PANEL_PHEO_PARA
	}
	return t.Panels[sub]
}

// ProteinKey normalizes a protein change to canonical three-letter notation.
func ProteinKey(protein string) (string, error) {
	p, err := hgvs.ParseProtein(protein)
	if err != nil {
		return "", fmt.Errorf("failed to normalize protein change: %w", err)
	}
	return p.String(), nil
}
