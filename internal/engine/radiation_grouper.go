package engine

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/domain"
	"github.com/therapy-abstraction-server/internal/knowledge"
)

// RadiationGrouper groups a line's radiation events into multi-phase courses
// and matches them against the radiation protocol knowledge base.
type RadiationGrouper struct {
	logger *logrus.Logger
	kb     *knowledge.Base
	cfg    domain.AbstractionConfig
}

// NewRadiationGrouper creates a new radiation course grouper.
func NewRadiationGrouper(logger *logrus.Logger, kb *knowledge.Base, cfg domain.AbstractionConfig) *RadiationGrouper {
	return &RadiationGrouper{logger: logger, kb: kb, cfg: cfg}
}

// Group partitions the line's radiation events into courses separated by gaps
// above the re-irradiation threshold, detects phase boundaries within each
// course, and classifies fractionation. Operates only on radiation events;
// other event types are ignored.
func (g *RadiationGrouper) Group(line *LineDraft, diagnosisLabel string) []domain.RadiationCourse {
	var radiation []NormalizedEvent
	for _, ev := range line.Treatments {
		if ev.Type.IsRadiation() {
			radiation = append(radiation, ev)
		}
	}
	if len(radiation) == 0 {
		return nil
	}

	var courses []domain.RadiationCourse
	start := 0
	for i := 1; i <= len(radiation); i++ {
		if i == len(radiation) || daysBetween(*radiation[i-1].Date, *radiation[i].Date) > g.cfg.RadiationCourseGapDays {
			course := g.buildCourse(radiation[start:i], len(courses)+1)
			g.matchCourse(&course, diagnosisLabel)
			courses = append(courses, course)
			start = i
		}
	}

	g.logger.WithFields(logrus.Fields{
		"radiation_events": len(radiation),
		"courses":          len(courses),
	}).Debug("Grouped radiation events into courses")

	return courses
}

// buildCourse assembles one course from a contiguous run of radiation events,
// splitting phases on target-volume or dose-per-fraction change.
func (g *RadiationGrouper) buildCourse(events []NormalizedEvent, number int) domain.RadiationCourse {
	course := domain.RadiationCourse{
		CourseNumber: number,
		StartDate:    events[0].Date,
		EndDate:      events[len(events)-1].Date,
	}

	var phases [][]NormalizedEvent
	cur := []NormalizedEvent{events[0]}
	for _, ev := range events[1:] {
		if g.phaseBoundary(cur[len(cur)-1], ev) {
			phases = append(phases, cur)
			cur = []NormalizedEvent{ev}
		} else {
			cur = append(cur, ev)
		}
	}
	phases = append(phases, cur)

	var totalDose float64
	totalFractions := 0
	fractionsKnown := true

	for i, phaseEvents := range phases {
		phase := domain.RadiationPhase{
			PhaseNumber:  i + 1,
			TargetVolume: domain.NormalizeTargetVolume(phaseEvents[0].TargetVolume),
		}
		phaseFractions := 0
		phaseFractionsKnown := true
		for _, ev := range phaseEvents {
			course.TimelineEventRefs = append(course.TimelineEventRefs, ev.ID)
			phase.TimelineEventRefs = append(phase.TimelineEventRefs, ev.ID)
			if ev.DoseGy != nil {
				phase.DoseGy += *ev.DoseGy
			}
			if n, ok := eventFractions(ev); ok {
				phaseFractions += n
			} else {
				phaseFractionsKnown = false
			}
		}
		if phaseFractionsKnown {
			fx := phaseFractions
			phase.Fractions = &fx
			if fx > 0 && phase.DoseGy > 0 {
				dpf := phase.DoseGy / float64(fx)
				phase.DosePerFractionGy = &dpf
			}
			totalFractions += phaseFractions
		} else {
			fractionsKnown = false
		}
		totalDose += phase.DoseGy
		course.Phases = append(course.Phases, phase)
	}

	course.TotalDoseGy = totalDose
	course.FractionationType = classifyFractionation(totalDose, totalFractions, fractionsKnown)
	return course
}

// phaseBoundary reports whether consecutive radiation events belong to
// different phases: a change of normalized target volume or a dose-per-
// fraction shift beyond the configured delta.
func (g *RadiationGrouper) phaseBoundary(prev, next NormalizedEvent) bool {
	prevTarget := domain.NormalizeTargetVolume(prev.TargetVolume)
	nextTarget := domain.NormalizeTargetVolume(next.TargetVolume)
	if prevTarget != "" && nextTarget != "" && prevTarget != nextTarget {
		return true
	}

	prevDPF, prevOK := dosePerFraction(prev)
	nextDPF, nextOK := dosePerFraction(next)
	if prevOK && nextOK {
		delta := nextDPF - prevDPF
		if delta < 0 {
			delta = -delta
		}
		return delta > g.cfg.PhaseDoseDeltaGy
	}
	return false
}

// eventFractions returns the fraction count an event represents. A
// radiation_fraction event is one fraction; a summarized appointment event
// must carry an explicit count to contribute.
func eventFractions(ev NormalizedEvent) (int, bool) {
	if ev.Fractions != nil && *ev.Fractions > 0 {
		return *ev.Fractions, true
	}
	if ev.Type == domain.RADIATION_FRACTION {
		return 1, true
	}
	return 0, false
}

func dosePerFraction(ev NormalizedEvent) (float64, bool) {
	if ev.DoseGy == nil {
		return 0, false
	}
	n, ok := eventFractions(ev)
	if !ok || n == 0 {
		return 0, false
	}
	return *ev.DoseGy / float64(n), true
}

// classifyFractionation maps dose per fraction onto the fractionation enum:
// >=5.0 Gy/fx stereotactic, 2.5-4.9 hypofractionated, 1.8-2.0 standard,
// anything else (including unknown fraction counts) unknown. Never errors.
func classifyFractionation(totalDose float64, totalFractions int, known bool) domain.FractionationType {
	if !known || totalFractions == 0 || totalDose <= 0 {
		return domain.UNKNOWN_FRACTIONATION
	}
	dpf := totalDose / float64(totalFractions)
	switch {
	case dpf >= 5.0:
		return domain.STEREOTACTIC
	case dpf >= 2.5:
		return domain.HYPOFRACTIONATED
	case dpf >= 1.8 && dpf <= 2.0:
		return domain.STANDARD_FRACTIONATION
	default:
		return domain.UNKNOWN_FRACTIONATION
	}
}

// matchCourse scores the course against the radiation protocol table using
// the same confidence scale as the regimen matcher.
func (g *RadiationGrouper) matchCourse(course *domain.RadiationCourse, diagnosisLabel string) {
	candidates := g.kb.RadiationProtocols(diagnosisLabel)
	if len(candidates) == 0 {
		course.MatchConfidence = domain.NO_MATCH
		return
	}

	type scoredRT struct {
		protocol   knowledge.RadiationProtocol
		score      int
		deviations []domain.Deviation
	}

	scored := make([]scoredRT, 0, len(candidates))
	for _, p := range candidates {
		s := scoredRT{protocol: p}

		if course.TotalDoseGy >= p.TotalDoseMinGy && course.TotalDoseGy <= p.TotalDoseMaxGy {
			s.score += 60
		} else {
			significance := domain.PROTOCOL_DEVIATION
			if course.TotalDoseGy >= 0.8*p.TotalDoseMinGy && course.TotalDoseGy < p.TotalDoseMinGy {
				significance = domain.STANDARD_VARIATION
			}
			s.deviations = append(s.deviations, domain.Deviation{
				Description:          fmt.Sprintf("total dose %.1f Gy outside prescription window %.1f-%.1f Gy", course.TotalDoseGy, p.TotalDoseMinGy, p.TotalDoseMaxGy),
				ClinicalSignificance: significance,
			})
		}

		if course.FractionationType == p.Fractionation {
			s.score += 25
		} else if course.FractionationType != domain.UNKNOWN_FRACTIONATION {
			s.deviations = append(s.deviations, domain.Deviation{
				Description:          fmt.Sprintf("fractionation %s differs from prescription %s", course.FractionationType, p.Fractionation),
				ClinicalSignificance: domain.PROTOCOL_DEVIATION,
			})
		}

		if p.PhaseCount == 0 || p.PhaseCount == len(course.Phases) {
			s.score += 15
		}

		scored = append(scored, s)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := &scored[i], &scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if len(a.deviations) != len(b.deviations) {
			return len(a.deviations) < len(b.deviations)
		}
		if a.protocol.Evidence.Rank() != b.protocol.Evidence.Rank() {
			return a.protocol.Evidence.Rank() > b.protocol.Evidence.Rank()
		}
		return a.protocol.Name < b.protocol.Name
	})

	best := scored[0]
	confidence := g.confidenceForScore(best.score)
	if confidence == domain.NO_MATCH {
		course.MatchConfidence = domain.NO_MATCH
		return
	}
	course.ProtocolReference = best.protocol.Reference
	course.MatchConfidence = confidence
	course.Deviations = best.deviations
}

func (g *RadiationGrouper) confidenceForScore(score int) domain.MatchConfidence {
	switch {
	case score >= g.cfg.HighConfidenceScore:
		return domain.HIGH
	case score >= g.cfg.MediumConfidenceScore:
		return domain.MEDIUM
	case score >= g.cfg.LowConfidenceScore:
		return domain.LOW
	default:
		return domain.NO_MATCH
	}
}
