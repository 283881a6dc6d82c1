// Package evidence implements the VHL-adapted ACMG/AMP criteria. Each classifier is a
// pure function of the variant descriptor, an optional frequency result and the
// caller-supplied context; none of them perform I/O or log.
package evidence

import (
	"github.com/vhl-acmg-classifier/internal/domain"
	"github.com/vhl-acmg-classifier/internal/genemodel"
)

// Classifier evaluates one evidence code.
type Classifier interface {
	Code() domain.EvidenceCode
	Direction() domain.Direction
	// NeedsFrequency reports whether Classify reads the frequency result.
	NeedsFrequency() bool
	Classify(v domain.VariantDescriptor, freq *domain.FrequencyResult, ctx domain.EvidenceContext) domain.EvidenceResult
}

// Registry holds one classifier per code in canonical report order.
type Registry struct {
	byCode map[domain.EvidenceCode]Classifier
	order  []Classifier
}

// NewRegistry builds every classifier against the same tables.
func NewRegistry(tables *genemodel.Tables) *Registry {
	r := &Registry{byCode: make(map[domain.EvidenceCode]Classifier)}
	r.register(NewPVS1(tables))
	r.register(NewPS1(tables))
	r.register(NewPS2(tables))
	r.register(NewPM1(tables))
	r.register(NewPM2(tables))
	r.register(NewPM4(tables))
	r.register(NewBA1(tables))
	r.register(NewBS1(tables))
	return r
}

func (r *Registry) register(c Classifier) {
	r.byCode[c.Code()] = c
	r.order = append(r.order, c)
}

// Get returns the classifier for code.
func (r *Registry) Get(code domain.EvidenceCode) (Classifier, bool) {
	c, ok := r.byCode[code]
	return c, ok
}

// All returns every classifier in canonical order.
func (r *Registry) All() []Classifier {
	out := make([]Classifier, len(r.order))
	copy(out, r.order)
	return out
}

// Select returns the classifiers for codes in canonical order, ignoring duplicates
// and unknown codes. No codes selects all of them.
func (r *Registry) Select(codes ...domain.EvidenceCode) []Classifier {
	if len(codes) == 0 {
		return r.All()
	}
	want := make(map[domain.EvidenceCode]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var out []Classifier
	for _, c := range r.order {
		if want[c.Code()] {
			out = append(out, c)
		}
	}
	return out
}

// unparsed returns the null result every classifier gives a descriptor it cannot read.
func unparsed(code domain.EvidenceCode, v domain.VariantDescriptor) (domain.EvidenceResult, bool) {
	if v.ParseError != "" {
		return domain.NotApplied(code, "Could not parse variant %q: %s; %s not evaluated.", v.Input, v.ParseError, code), true
	}
	if !v.Classifiable() {
		return domain.NotApplied(code, "Could not parse a classifiable coding change from %q (outside the coding sequence or unsupported edit); %s not evaluated.", v.Input, code), true
	}
	return domain.EvidenceResult{}, false
}

// pathogenic and benign are embedded to supply Direction.
type pathogenic struct{}

func (pathogenic) Direction() domain.Direction { return domain.PATHOGENIC_DIRECTION }

type benign struct{}

func (benign) Direction() domain.Direction { return domain.BENIGN_DIRECTION }

// noFrequency is embedded by classifiers that ignore population data.
type noFrequency struct{}

func (noFrequency) NeedsFrequency() bool { return false }
