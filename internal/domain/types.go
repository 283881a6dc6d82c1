// Package domain contains the core entities for VHL variant classification
// under the ClinGen VHL expert panel rules for the ACMG/AMP guidelines.
//
// Reference: Richards et al. (2015) Standards and guidelines for the interpretation of sequence variants.
// Genet Med. 17(5):405-24. doi: 10.1038/gim.2015.30
package domain

import (
	"errors"
	"fmt"
)

// Classification represents the final ACMG/AMP label for a variant.
//
// Reference: ACMG/AMP 2015 Guidelines, Table 5
type Classification string

const (
	PATHOGENIC        Classification = "Pathogenic"
	LIKELY_PATHOGENIC Classification = "Likely Pathogenic"
	VUS               Classification = "Uncertain Significance"
	LIKELY_BENIGN     Classification = "Likely Benign"
	BENIGN            Classification = "Benign"
)

// Strength is the weight assigned to an applicable evidence code.
// The zero value means the code does not apply and serializes as JSON null.
type Strength string

const (
	NOT_APPLICABLE Strength = ""
	NONE           Strength = "None"
	SUPPORTING     Strength = "Supporting"
	MODERATE       Strength = "Moderate"
	STRONG         Strength = "Strong"
	VERY_STRONG    Strength = "VeryStrong"
	STAND_ALONE    Strength = "StandAlone"
)

// Direction tells the combiner which side of the table a code counts toward.
type Direction string

const (
	PATHOGENIC_DIRECTION Direction = "pathogenic"
	BENIGN_DIRECTION     Direction = "benign"
)

// VariantType is the tag derived from the parsed coding change.
type VariantType string

const (
	MISSENSE               VariantType = "missense"
	NONSENSE               VariantType = "nonsense"
	FRAMESHIFT             VariantType = "frameshift"
	CANONICAL_SPLICE       VariantType = "canonical_splice"
	CRYPTIC_SPLICE         VariantType = "cryptic_splice"
	INFRAME_DEL            VariantType = "inframe_del"
	INFRAME_INS            VariantType = "inframe_ins"
	INFRAME_INDEL          VariantType = "inframe_indel"
	DUPLICATION_TANDEM     VariantType = "duplication_tandem"
	DUPLICATION_NOT_TANDEM VariantType = "duplication_not_tandem"
	DUPLICATION_UNKNOWN    VariantType = "duplication_unknown"
	STOP_LOSS              VariantType = "stop_loss"
	SYNONYMOUS             VariantType = "synonymous"
	EXON_DELETION          VariantType = "exon_deletion"
	START_LOSS             VariantType = "start_loss"
	OTHER                  VariantType = "other"
)

// Validation errors
var (
	ErrInvalidClassification = errors.New("invalid classification")
	ErrInvalidStrength       = errors.New("invalid evidence strength")
	ErrInvalidVariantType    = errors.New("invalid variant type")
)

// IsValid reports whether c is one of the five ACMG/AMP labels.
func (c Classification) IsValid() bool {
	switch c {
	case PATHOGENIC, LIKELY_PATHOGENIC, VUS, LIKELY_BENIGN, BENIGN:
		return true
	default:
		return false
	}
}

// String returns the string representation of the classification.
func (c Classification) String() string {
	return string(c)
}

// LogFields returns structured logging fields for audit trails.
func (c Classification) LogFields() map[string]any {
	return map[string]any{
		"classification":  string(c),
		"requires_action": c.RequiresClinicalAction(),
	}
}

// RequiresClinicalAction reports whether the label is actionable for VHL surveillance.
func (c Classification) RequiresClinicalAction() bool {
	return c == PATHOGENIC || c == LIKELY_PATHOGENIC
}

// ParseClassification accepts the display form or the upper-snake form.
func ParseClassification(s string) (Classification, error) {
	switch s {
	case "Pathogenic", "PATHOGENIC", "P":
		return PATHOGENIC, nil
	case "Likely Pathogenic", "LIKELY_PATHOGENIC", "LP":
		return LIKELY_PATHOGENIC, nil
	case "Uncertain Significance", "VUS", "Uncertain":
		return VUS, nil
	case "Likely Benign", "LIKELY_BENIGN", "LB":
		return LIKELY_BENIGN, nil
	case "Benign", "BENIGN", "B":
		return BENIGN, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidClassification, s)
}

// IsValid reports whether s is a known strength. The not-applicable zero value is valid.
func (s Strength) IsValid() bool {
	switch s {
	case NOT_APPLICABLE, NONE, SUPPORTING, MODERATE, STRONG, VERY_STRONG, STAND_ALONE:
		return true
	default:
		return false
	}
}

// Applicable reports whether the strength carries weight in the combiner.
func (s Strength) Applicable() bool {
	return s != NOT_APPLICABLE && s != NONE
}

func (s Strength) String() string {
	if s == NOT_APPLICABLE {
		return "null"
	}
	return string(s)
}

// ParseStrength accepts the canonical names plus the upper-snake forms.
func ParseStrength(s string) (Strength, error) {
	switch s {
	case "", "null":
		return NOT_APPLICABLE, nil
	case "None", "NONE":
		return NONE, nil
	case "Supporting", "SUPPORTING":
		return SUPPORTING, nil
	case "Moderate", "MODERATE":
		return MODERATE, nil
	case "Strong", "STRONG":
		return STRONG, nil
	case "VeryStrong", "VERY_STRONG", "Very Strong":
		return VERY_STRONG, nil
	case "StandAlone", "STAND_ALONE", "Stand-alone":
		return STAND_ALONE, nil
	}
	return NOT_APPLICABLE, fmt.Errorf("%w: %q", ErrInvalidStrength, s)
}

// IsValid reports whether t is a known variant type tag.
func (t VariantType) IsValid() bool {
	switch t {
	case MISSENSE, NONSENSE, FRAMESHIFT, CANONICAL_SPLICE, CRYPTIC_SPLICE,
		INFRAME_DEL, INFRAME_INS, INFRAME_INDEL,
		DUPLICATION_TANDEM, DUPLICATION_NOT_TANDEM, DUPLICATION_UNKNOWN,
		STOP_LOSS, SYNONYMOUS, EXON_DELETION, START_LOSS, OTHER:
		return true
	default:
		return false
	}
}

func (t VariantType) String() string {
	return string(t)
}

// IsInFrameIndel covers the three in-frame length-changing tags.
func (t VariantType) IsInFrameIndel() bool {
	return t == INFRAME_DEL || t == INFRAME_INS || t == INFRAME_INDEL
}

// IsDuplication covers the three duplication tags.
func (t VariantType) IsDuplication() bool {
	return t == DUPLICATION_TANDEM || t == DUPLICATION_NOT_TANDEM || t == DUPLICATION_UNKNOWN
}

// IsSplice covers canonical and cryptic splice tags.
func (t VariantType) IsSplice() bool {
	return t == CANONICAL_SPLICE || t == CRYPTIC_SPLICE
}

// IsTruncating covers nonsense and frameshift.
func (t VariantType) IsTruncating() bool {
	return t == NONSENSE || t == FRAMESHIFT
}
