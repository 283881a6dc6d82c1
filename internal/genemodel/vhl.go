package genemodel

import "github.com/vhl-acmg-classifier/internal/domain"

// VHLVersion identifies the built-in table set.
const VHLVersion = "VHL-VCEP-1.0"

// VHL returns a fresh, validated copy of the built-in VHL tables for NM_000551.4.
// Each call returns an independent value so callers may derive alternate tables in tests.
func VHL() *Tables {
	t := &Tables{
		Version:       VHLVersion,
		Gene:          "VHL",
		Transcript:    "NM_000551.4",
		ProteinLength: 213,
		EarlyCodon:    54,
		AltStartCodon: 54,
		SomaticCutoff: 10,

		Exons: []Range{
			{Start: 1, End: 340, Name: "exon 1"},
			{Start: 341, End: 463, Name: "exon 2"},
			{Start: 464, End: 642, Name: "exon 3"},
		},
		CriticalDomains: []Range{
			{Start: 63, End: 155, Name: "beta"},
			{Start: 156, End: 192, Name: "alpha"},
			{Start: 193, End: 204, Name: "second beta"},
		},
		PM1Domain:      Range{Start: 63, End: 192, Name: "beta/alpha"},
		CTerminalTail:  Range{Start: 205, End: 213, Name: "C-terminal tail"},
		NMDRange:       Range{Start: 55, End: 136, Name: "NMD"},
		CrypticSpecial: Range{Start: 55, End: 62, Name: "p19 N-terminus"},

		GermlineHotspots: []int{65, 76, 78, 80, 86, 88, 96, 98, 112, 117, 161, 162, 167, 170, 176, 178},
		SomaticHotspots: map[int]int{
			65: 5, 68: 12, 74: 11, 80: 6, 88: 15, 89: 10, 96: 4, 111: 14,
			114: 13, 115: 10, 121: 11, 135: 17, 151: 10, 158: 11, 169: 10,
		},
		Reference: []ReferenceVariant{
			{CDNA: "c.191G>C", Protein: "p.Arg64Pro", ClinVarID: "2226", CAID: "CA020089", Missense: true},
			{CDNA: "c.194C>G", Protein: "p.Ser65Trp", ClinVarID: "43597", CAID: "CA020099", Missense: true},
			{CDNA: "c.500G>A", Protein: "p.Arg167Gln", ClinVarID: "2216", CAID: "CA020454", Missense: true},
			{CDNA: "c.263G>A", Protein: "p.Trp88Ter", ClinVarID: "182978", CAID: "CA020197"},
			{CDNA: "c.208G>T", Protein: "p.Glu70Ter", ClinVarID: "428806", CAID: "CA16602179"},
			{CDNA: "c.463+1G>A", ClinVarID: "526679", CAID: "CA16621909"},
			{CDNA: "c.586A>T", Protein: "p.Lys196Ter", ClinVarID: "196284", CAID: "CA020507"},
			{CDNA: "c.583C>T", Protein: "p.Gln195Ter", ClinVarID: "428794", CAID: "CA70052558"},
			{CDNA: "c.477del", Protein: "p.Glu160fs", ClinVarID: "182959", CAID: "CA020404"},
			{CDNA: "c.422dup", Protein: "p.Asn141fs", ClinVarID: "411979", CAID: "CA16611276"},
			{CDNA: "c.408del", Protein: "p.Phe136fs", ClinVarID: "43601", CAID: "CA020343"},
			{CDNA: "c.341-2A>G", ClinVarID: "223194", CAID: "CA357004"},
		},

		Thresholds: Thresholds{
			PM2: 1.56e-6,
			BS1: 1.56e-5,
			BA1: 1.56e-4,
		},
		DeNovo: DeNovoPoints{
			HighlySpecific:       2,
			ConsistentPanelNeg:   1,
			ConsistentIncomplete: 0.5,
			Nonspecific:          0.5,
			VeryStrong:           4,
			Strong:               2,
			Moderate:             1,
			Supporting:           0.5,
		},
		Panels: map[domain.PanelSubgroup][]string{
			domain.PANEL_PHEO_PARA:  {"SDHB", "SDHC", "SDHD"},
			domain.PANEL_VHL_TYPE2C: {"MAX", "NF1", "RET", "SDHA", "SDHB", "SDHC", "SDHD", "SDHAF2", "TMEM127", "VHL"},
			domain.PANEL_RCC_PHEO:   {"MAX", "FH", "SDHA", "SDHB", "SDHC", "SDHD", "SDHAF2", "TMEM127"},
		},
	}
	return t.MustValidate()
}
