package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EvidenceCode names a VCEP-adapted ACMG/AMP criterion.
type EvidenceCode string

const (
	PVS1           EvidenceCode = "PVS1"
	PS1            EvidenceCode = "PS1"
	PS2            EvidenceCode = "PS2"
	PM1            EvidenceCode = "PM1"
	PM2_SUPPORTING EvidenceCode = "PM2_Supporting"
	PM4            EvidenceCode = "PM4"
	BA1            EvidenceCode = "BA1"
	BS1            EvidenceCode = "BS1"
)

// AllEvidenceCodes lists the codes in canonical report order.
var AllEvidenceCodes = []EvidenceCode{PVS1, PS1, PS2, PM1, PM2_SUPPORTING, PM4, BA1, BS1}

// ParseEvidenceCode is case-insensitive and accepts "PM2" for PM2_Supporting.
func ParseEvidenceCode(s string) (EvidenceCode, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if upper == "PM2" {
		return PM2_SUPPORTING, nil
	}
	for _, code := range AllEvidenceCodes {
		if strings.ToUpper(string(code)) == upper {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCode, s)
}

// DefaultStrength is the strength a code carries when applied without modification.
func (c EvidenceCode) DefaultStrength() Strength {
	switch c {
	case PVS1:
		return VERY_STRONG
	case PS1, PS2, BS1:
		return STRONG
	case PM1, PM4:
		return MODERATE
	case PM2_SUPPORTING:
		return SUPPORTING
	case BA1:
		return STAND_ALONE
	}
	return NOT_APPLICABLE
}

// Direction reports which side of the combination table the code counts toward.
func (c EvidenceCode) Direction() Direction {
	if strings.HasPrefix(string(c), "B") {
		return BENIGN_DIRECTION
	}
	return PATHOGENIC_DIRECTION
}

// MarshalJSON renders the not-applicable strength as null.
func (s Strength) MarshalJSON() ([]byte, error) {
	if s == NOT_APPLICABLE {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts null and every spelling ParseStrength accepts.
func (s *Strength) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = NOT_APPLICABLE
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode strength: %w", err)
	}
	parsed, err := ParseStrength(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// EvidenceResult is one classifier verdict. Justification is non-empty on every branch.
type EvidenceResult struct {
	Code          EvidenceCode `json:"code"`
	Strength      Strength     `json:"strength"`
	Justification string       `json:"justification"`
}

// Applicable reports whether the result carries weight.
func (r EvidenceResult) Applicable() bool {
	return r.Strength.Applicable()
}

// Label renders the applied code the way curators write it, e.g. "PVS1_Moderate".
// It is empty when the code does not apply.
func (r EvidenceResult) Label() string {
	if !r.Applicable() {
		return ""
	}
	if r.Strength == r.Code.DefaultStrength() {
		return string(r.Code)
	}
	base := strings.TrimSuffix(string(r.Code), "_Supporting")
	return base + "_" + string(r.Strength)
}

// Applied builds an applicable result.
func Applied(code EvidenceCode, strength Strength, format string, args ...any) EvidenceResult {
	return EvidenceResult{Code: code, Strength: strength, Justification: fmt.Sprintf(format, args...)}
}

// NotApplied builds a not-applicable result.
func NotApplied(code EvidenceCode, format string, args ...any) EvidenceResult {
	return EvidenceResult{Code: code, Strength: NOT_APPLICABLE, Justification: fmt.Sprintf(format, args...)}
}

// FrameEffect is the curator's assessment of a cryptic splice site.
type FrameEffect string

const (
	FRAME_UNKNOWN   FrameEffect = ""
	FRAME_DISRUPTS  FrameEffect = "disrupts"
	FRAME_PRESERVES FrameEffect = "preserves"
)

// TandemStatus records whether a duplication is known to be in tandem.
type TandemStatus string

const (
	TANDEM_UNKNOWN TandemStatus = ""
	TANDEM         TandemStatus = "tandem"
	NOT_TANDEM     TandemStatus = "not_tandem"
)

// PhenotypeCategory grades how specific the proband phenotype is for VHL.
type PhenotypeCategory string

const (
	PHENOTYPE_NONE            PhenotypeCategory = ""
	PHENOTYPE_HIGHLY_SPECIFIC PhenotypeCategory = "highly_specific"
	PHENOTYPE_CONSISTENT      PhenotypeCategory = "consistent"
	PHENOTYPE_NONSPECIFIC     PhenotypeCategory = "nonspecific"
)

// PanelSubgroup selects the differential-diagnosis gene panel for a consistent phenotype.
type PanelSubgroup string

const (
	PANEL_PHEO_PARA  PanelSubgroup = "pheo_para"
	PANEL_VHL_TYPE2C PanelSubgroup = "vhl_type2c"
	PANEL_RCC_PHEO   PanelSubgroup = "rcc_pheo"
)

// EvidenceContext carries the caller-supplied flags some classifiers need.
type EvidenceContext struct {
	ExonSkipping    bool              `json:"exon_skipping,omitempty"`
	CrypticFrame    FrameEffect       `json:"cryptic_frame,omitempty"`
	DupTandem       TandemStatus      `json:"duplication_tandem,omitempty"`
	DeNovoConfirmed bool              `json:"de_novo_confirmed,omitempty"`
	FamilyHistory   bool              `json:"family_history,omitempty"`
	Phenotype       PhenotypeCategory `json:"phenotype,omitempty"`
	PanelSubgroup   PanelSubgroup     `json:"panel_subgroup,omitempty"`
	// PanelNegative maps gene symbol to whether it tested negative.
	PanelNegative map[string]bool `json:"panel_negative,omitempty"`
}

// Validate rejects unknown enum spellings in user-supplied flags.
func (c EvidenceContext) Validate() error {
	switch c.CrypticFrame {
	case FRAME_UNKNOWN, FRAME_DISRUPTS, FRAME_PRESERVES:
	default:
		return NewValidationError("cryptic_frame", "must be disrupts, preserves or empty", c.CrypticFrame)
	}
	switch c.DupTandem {
	case TANDEM_UNKNOWN, TANDEM, NOT_TANDEM:
	default:
		return NewValidationError("duplication_tandem", "must be tandem, not_tandem or empty", c.DupTandem)
	}
	switch c.Phenotype {
	case PHENOTYPE_NONE, PHENOTYPE_HIGHLY_SPECIFIC, PHENOTYPE_CONSISTENT, PHENOTYPE_NONSPECIFIC:
	default:
		return NewValidationError("phenotype", "must be highly_specific, consistent, nonspecific or empty", c.Phenotype)
	}
	switch c.PanelSubgroup {
	case "", PANEL_PHEO_PARA, PANEL_VHL_TYPE2C, PANEL_RCC_PHEO:
	default:
		return NewValidationError("panel_subgroup", "must be pheo_para, vhl_type2c or rcc_pheo", c.PanelSubgroup)
	}
	return nil
}

// StrengthCounts tallies applicable codes per direction and strength.
type StrengthCounts struct {
	Pathogenic map[Strength]int `json:"pathogenic"`
	Benign     map[Strength]int `json:"benign"`
}

// ClassificationVerdict is the combiner output for one variant.
type ClassificationVerdict struct {
	Label        Classification   `json:"label"`
	Contributing []EvidenceResult `json:"contributing_codes"`
	Counts       StrengthCounts   `json:"counts"`
}

// ClassificationReport bundles everything one classification run produced.
type ClassificationReport struct {
	Variant   VariantDescriptor     `json:"variant"`
	Frequency *FrequencyResult      `json:"frequency,omitempty"`
	Evidence  []EvidenceResult      `json:"evidence"`
	Verdict   ClassificationVerdict `json:"verdict"`
	Tables    string                `json:"tables_version"`
}
