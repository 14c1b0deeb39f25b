// Package knowledge holds the static, versioned protocol knowledge base the
// regimen and radiation matchers score against. The base is immutable after
// construction and safe to share by reference across concurrent invocations.
package knowledge

import (
	"strings"

	"github.com/therapy-abstraction-server/internal/domain"
)

// Protocol describes a reference treatment protocol: the component set a
// treatment line is expected to carry when it follows this protocol.
type Protocol struct {
	Name      string
	Reference string
	Evidence  domain.EvidenceLevel
	Intent    domain.TreatmentIntent

	// IndicationKeywords filter candidates by diagnosis label (case-blind
	// substring match). Empty means the protocol applies to any indication.
	IndicationKeywords []string

	// Age eligibility in years at diagnosis; nil bound means unbounded.
	MinAge *int
	MaxAge *int

	// Required components
	RequiresSurgery   bool
	DrugClasses       []domain.DrugClass
	RequiresRadiation bool
	// Expected radiation total dose window in Gy; only meaningful when
	// RequiresRadiation is set.
	RadiationDoseMinGy *float64
	RadiationDoseMaxGy *float64
	ConcurrentChemoRT  bool
}

// RadiationProtocol describes a reference radiation prescription.
type RadiationProtocol struct {
	Name               string
	Reference          string
	Evidence           domain.EvidenceLevel
	IndicationKeywords []string
	TotalDoseMinGy     float64
	TotalDoseMaxGy     float64
	Fractionation      domain.FractionationType
	// PhaseCount of 0 matches any phase structure.
	PhaseCount int
}

// Base is the loaded knowledge base.
type Base struct {
	version   string
	protocols []Protocol
	radiation []RadiationProtocol
}

// Version returns the knowledge base version string, recorded on every
// abstraction for reproducibility.
func (b *Base) Version() string { return b.version }

// Protocols returns the candidate protocols for the given diagnosis label and
// patient age. A nil age skips age filtering; an unrecognized label still
// yields indication-agnostic protocols.
func (b *Base) Protocols(diagnosisLabel string, age *int) []Protocol {
	label := strings.ToLower(diagnosisLabel)
	var out []Protocol
	for _, p := range b.protocols {
		if !matchesIndication(p.IndicationKeywords, label) {
			continue
		}
		if !matchesAge(p.MinAge, p.MaxAge, age) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// AllProtocols returns every systemic protocol in the base, unfiltered.
func (b *Base) AllProtocols() []Protocol {
	out := make([]Protocol, len(b.protocols))
	copy(out, b.protocols)
	return out
}

// AllRadiationProtocols returns every radiation prescription in the base,
// unfiltered.
func (b *Base) AllRadiationProtocols() []RadiationProtocol {
	out := make([]RadiationProtocol, len(b.radiation))
	copy(out, b.radiation)
	return out
}

// RadiationProtocols returns candidate radiation prescriptions for the given
// diagnosis label.
func (b *Base) RadiationProtocols(diagnosisLabel string) []RadiationProtocol {
	label := strings.ToLower(diagnosisLabel)
	var out []RadiationProtocol
	for _, p := range b.radiation {
		if matchesIndication(p.IndicationKeywords, label) {
			out = append(out, p)
		}
	}
	return out
}

func matchesIndication(keywords []string, label string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

func matchesAge(min, max, age *int) bool {
	if age == nil {
		return true
	}
	if min != nil && *age < *min {
		return false
	}
	if max != nil && *age > *max {
		return false
	}
	return true
}
