package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/domain"
	"github.com/therapy-abstraction-server/internal/knowledge"
)

// lineComposition summarizes a line's non-radiation-course components for
// protocol scoring.
type lineComposition struct {
	hasSurgery  bool
	drugClasses []domain.DrugClass
	drugNames   []string
	classSet    map[domain.DrugClass]struct{}

	hasRadiation    bool
	radiationDoseGy *float64
	concurrent      bool

	eventRefs []string
}

// candidateMatch is one scored protocol candidate.
type candidateMatch struct {
	protocol   knowledge.Protocol
	score      int
	deviations []domain.Deviation
}

// severeDeviations counts deviations tagged protocol_deviation.
func (c *candidateMatch) severeDeviations() int {
	n := 0
	for _, d := range c.deviations {
		if d.ClinicalSignificance == domain.PROTOCOL_DEVIATION {
			n++
		}
	}
	return n
}

// RegimenMatcher scores a line's composition against the protocol knowledge
// base and reports confidence and deviations. A line that matches nothing gets
// a synthesized description, never an error.
type RegimenMatcher struct {
	logger *logrus.Logger
	kb     *knowledge.Base
	cfg    domain.AbstractionConfig
}

// NewRegimenMatcher creates a new regimen matcher.
func NewRegimenMatcher(logger *logrus.Logger, kb *knowledge.Base, cfg domain.AbstractionConfig) *RegimenMatcher {
	return &RegimenMatcher{logger: logger, kb: kb, cfg: cfg}
}

// Match scores the line against every eligible protocol and returns the
// winning regimen plus the treatment intent it implies.
func (m *RegimenMatcher) Match(line *LineDraft, diagnosisLabel string, age *int, lineNumber int) (*domain.Regimen, domain.TreatmentIntent) {
	comp := composeLine(line)
	candidates := m.kb.Protocols(diagnosisLabel, age)

	scored := make([]candidateMatch, 0, len(candidates))
	for _, p := range candidates {
		scored = append(scored, m.scoreProtocol(p, comp))
	}

	best := pickBest(scored)
	if best == nil || best.score < m.cfg.LowConfidenceScore {
		regimen := m.synthesizeRegimen(line, comp, best)
		m.logger.WithFields(logrus.Fields{
			"line_number":  lineNumber,
			"regimen_name": regimen.RegimenName,
			"candidates":   len(scored),
		}).Info("No protocol match cleared threshold; synthesized regimen description")
		return regimen, fallbackIntent(lineNumber)
	}

	regimen := &domain.Regimen{
		RegimenName:       best.protocol.Name,
		ProtocolReference: best.protocol.Reference,
		MatchConfidence:   m.confidenceForScore(best.score),
		EvidenceLevel:     best.protocol.Evidence,
		MatchScore:        best.score,
		Deviations:        best.deviations,
		TimelineEventRefs: comp.eventRefs,
	}

	m.logger.WithFields(logrus.Fields{
		"line_number":  lineNumber,
		"regimen_name": regimen.RegimenName,
		"score":        best.score,
		"confidence":   regimen.MatchConfidence.String(),
		"deviations":   len(best.deviations),
	}).Info("Matched treatment line against protocol knowledge base")

	return regimen, best.protocol.Intent
}

// composeLine extracts the scoring-relevant composition from a line draft.
func composeLine(line *LineDraft) lineComposition {
	comp := lineComposition{classSet: make(map[domain.DrugClass]struct{})}

	var radTotal float64
	var radSeen bool
	var chemoDates, radDates []int64

	for _, ev := range line.Treatments {
		comp.eventRefs = append(comp.eventRefs, ev.ID)
		switch {
		case ev.Type == domain.SURGERY:
			comp.hasSurgery = true
		case ev.Type == domain.CHEMO_ADMINISTRATION:
			if ev.DrugClass != domain.UNKNOWN_DRUG_CLASS {
				if _, ok := comp.classSet[ev.DrugClass]; !ok {
					comp.classSet[ev.DrugClass] = struct{}{}
					comp.drugClasses = append(comp.drugClasses, ev.DrugClass)
				}
			}
			name := strings.ToLower(strings.TrimSpace(ev.DrugName))
			if name != "" && !containsString(comp.drugNames, name) {
				comp.drugNames = append(comp.drugNames, name)
			}
			chemoDates = append(chemoDates, ev.Date.Unix())
		case ev.Type.IsRadiation():
			comp.hasRadiation = true
			if ev.DoseGy != nil {
				radTotal += *ev.DoseGy
				radSeen = true
			}
			radDates = append(radDates, ev.Date.Unix())
		}
	}
	if radSeen {
		comp.radiationDoseGy = &radTotal
	}
	comp.concurrent = datesOverlap(chemoDates, radDates)
	return comp
}

// scoreProtocol applies the additive component weights. Absent or out-of-range
// components become deviations, never hard failures.
func (m *RegimenMatcher) scoreProtocol(p knowledge.Protocol, comp lineComposition) candidateMatch {
	c := candidateMatch{protocol: p}

	if p.RequiresSurgery {
		if comp.hasSurgery {
			c.score += m.cfg.SurgeryWeight
		} else {
			c.deviations = append(c.deviations, domain.Deviation{
				Description:          "protocol expects surgical resection; none documented in this line",
				ClinicalSignificance: domain.PROTOCOL_DEVIATION,
			})
		}
	}

	if len(p.DrugClasses) > 0 {
		matched := 0
		for _, required := range p.DrugClasses {
			if _, ok := comp.classSet[required]; ok {
				matched++
			} else {
				c.deviations = append(c.deviations, domain.Deviation{
					Description:          fmt.Sprintf("required drug class %s not observed", required),
					ClinicalSignificance: domain.PROTOCOL_DEVIATION,
				})
			}
		}
		c.score += m.cfg.ChemoWeight * matched / len(p.DrugClasses)

		for _, observed := range comp.drugClasses {
			if !containsClass(p.DrugClasses, observed) {
				c.deviations = append(c.deviations, domain.Deviation{
					Description:          fmt.Sprintf("additional drug class %s beyond protocol", observed),
					Rationale:            "agent substitution or supportive escalation",
					ClinicalSignificance: domain.STANDARD_VARIATION,
				})
			}
		}
	} else if len(comp.drugClasses) > 0 {
		c.deviations = append(c.deviations, domain.Deviation{
			Description:          "systemic therapy delivered outside protocol definition",
			ClinicalSignificance: domain.STANDARD_VARIATION,
		})
	}

	if p.RequiresRadiation {
		if comp.hasRadiation {
			c.score += m.cfg.RadiationPresenceWeight
			m.scoreRadiationDose(p, comp, &c)
		} else {
			c.deviations = append(c.deviations, domain.Deviation{
				Description:          "protocol expects radiation therapy; none documented in this line",
				ClinicalSignificance: domain.PROTOCOL_DEVIATION,
			})
		}
	} else if comp.hasRadiation {
		c.deviations = append(c.deviations, domain.Deviation{
			Description:          "radiation delivered beyond protocol definition",
			ClinicalSignificance: domain.STANDARD_VARIATION,
		})
	}

	if p.ConcurrentChemoRT && comp.hasRadiation && len(comp.drugClasses) > 0 && !comp.concurrent {
		c.deviations = append(c.deviations, domain.Deviation{
			Description:          "chemotherapy and radiation delivered sequentially where protocol expects concurrent chemoradiation",
			ClinicalSignificance: domain.STANDARD_VARIATION,
		})
	}

	return c
}

// scoreRadiationDose awards the dose bonus when the observed total dose falls
// in the protocol window, and classifies shortfalls: modest de-escalation is a
// standard variation (common in pediatric and elderly practice), a larger
// shortfall suggests early discontinuation.
func (m *RegimenMatcher) scoreRadiationDose(p knowledge.Protocol, comp lineComposition, c *candidateMatch) {
	if comp.radiationDoseGy == nil || p.RadiationDoseMinGy == nil || p.RadiationDoseMaxGy == nil {
		return
	}
	dose := *comp.radiationDoseGy
	switch {
	case dose >= *p.RadiationDoseMinGy && dose <= *p.RadiationDoseMaxGy:
		c.score += m.cfg.RadiationDoseBonusWeight
	case dose < *p.RadiationDoseMinGy && dose >= 0.8*(*p.RadiationDoseMinGy):
		c.deviations = append(c.deviations, domain.Deviation{
			Description:          fmt.Sprintf("radiation dose %.1f Gy below protocol window %.1f-%.1f Gy", dose, *p.RadiationDoseMinGy, *p.RadiationDoseMaxGy),
			Rationale:            "dose de-escalation",
			ClinicalSignificance: domain.STANDARD_VARIATION,
		})
	case dose < *p.RadiationDoseMinGy:
		c.deviations = append(c.deviations, domain.Deviation{
			Description:          fmt.Sprintf("radiation dose %.1f Gy well below protocol window %.1f-%.1f Gy", dose, *p.RadiationDoseMinGy, *p.RadiationDoseMaxGy),
			Rationale:            "possible early discontinuation",
			ClinicalSignificance: domain.PROTOCOL_DEVIATION,
		})
	default:
		c.deviations = append(c.deviations, domain.Deviation{
			Description:          fmt.Sprintf("radiation dose %.1f Gy exceeds protocol window %.1f-%.1f Gy", dose, *p.RadiationDoseMinGy, *p.RadiationDoseMaxGy),
			ClinicalSignificance: domain.PROTOCOL_DEVIATION,
		})
	}
}

// pickBest sorts candidates by score, then fewer/less-severe deviations, then
// evidence-level rank, then name for full determinism, and returns the winner.
func pickBest(scored []candidateMatch) *candidateMatch {
	if len(scored) == 0 {
		return nil
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := &scored[i], &scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.severeDeviations() != b.severeDeviations() {
			return a.severeDeviations() < b.severeDeviations()
		}
		if len(a.deviations) != len(b.deviations) {
			return len(a.deviations) < len(b.deviations)
		}
		if a.protocol.Evidence.Rank() != b.protocol.Evidence.Rank() {
			return a.protocol.Evidence.Rank() > b.protocol.Evidence.Rank()
		}
		return a.protocol.Name < b.protocol.Name
	})
	return &scored[0]
}

// confidenceForScore maps the 0-100 match score onto the ordinal confidence
// scale using the configured cut-offs.
func (m *RegimenMatcher) confidenceForScore(score int) domain.MatchConfidence {
	switch {
	case score >= m.cfg.HighConfidenceScore:
		return domain.HIGH
	case score >= m.cfg.MediumConfidenceScore:
		return domain.MEDIUM
	case score >= m.cfg.LowConfidenceScore:
		return domain.LOW
	default:
		return domain.NO_MATCH
	}
}

// synthesizeRegimen builds a human-readable description of the observed
// components in chronological order when no protocol cleared the threshold.
func (m *RegimenMatcher) synthesizeRegimen(line *LineDraft, comp lineComposition, best *candidateMatch) *domain.Regimen {
	var parts []string
	if comp.hasSurgery {
		parts = append(parts, "Surgery")
	}

	var systemic []string
	systemic = append(systemic, comp.drugNames...)
	if comp.hasRadiation {
		if comp.radiationDoseGy != nil {
			systemic = append(systemic, fmt.Sprintf("radiation %.1f Gy", *comp.radiationDoseGy))
		} else {
			systemic = append(systemic, "radiation")
		}
	}
	if len(systemic) > 0 {
		parts = append(parts, strings.Join(systemic, " + "))
	}

	name := strings.Join(parts, " → ")
	if name == "" {
		name = "No documented treatment components"
	}

	score := 0
	if best != nil {
		score = best.score
	}
	return &domain.Regimen{
		RegimenName:       name,
		MatchConfidence:   domain.NO_MATCH,
		MatchScore:        score,
		TimelineEventRefs: comp.eventRefs,
	}
}

// fallbackIntent assigns intent when no protocol informs it: the initial line
// is presumed curative, later unmatched lines palliative.
func fallbackIntent(lineNumber int) domain.TreatmentIntent {
	if lineNumber <= 1 {
		return domain.CURATIVE
	}
	return domain.PALLIATIVE
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsClass(haystack []domain.DrugClass, needle domain.DrugClass) bool {
	for _, c := range haystack {
		if c == needle {
			return true
		}
	}
	return false
}

// datesOverlap reports whether the two unix-timestamp sets have overlapping
// ranges, the signal for concurrent chemoradiation.
func datesOverlap(a, b []int64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	aMin, aMax := minMax(a)
	bMin, bMax := minMax(b)
	return aMin <= bMax && bMin <= aMax
}

func minMax(v []int64) (int64, int64) {
	min, max := v[0], v[0]
	for _, x := range v[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}
