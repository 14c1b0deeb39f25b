// Package engine implements the therapeutic approach abstraction pipeline:
// normalization, treatment line segmentation, protocol matching, radiation
// course grouping, cycle detection, response integration and endpoint
// derivation. The engine is a pure transformation over an immutable input
// snapshot: it holds no mutable cross-run state and is safe to share across
// concurrent invocations.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/domain"
	"github.com/therapy-abstraction-server/internal/knowledge"
)

// Version identifies the abstraction pipeline implementation, recorded on
// every output for reproducibility.
const Version = "1.3.0"

// Engine composes the pipeline components in strict dependency order.
type Engine struct {
	logger     *logrus.Logger
	kb         *knowledge.Base
	cfg        domain.AbstractionConfig
	normalizer *Normalizer
	segmenter  *Segmenter
	matcher    *RegimenMatcher
	radiation  *RadiationGrouper
	cycles     *CycleDetector
	responses  *ResponseIntegrator
	endpoints  *EndpointCalculator
}

// New creates an abstraction engine over the given knowledge base and
// threshold configuration.
func New(logger *logrus.Logger, kb *knowledge.Base, cfg domain.AbstractionConfig) *Engine {
	return &Engine{
		logger:     logger,
		kb:         kb,
		cfg:        cfg,
		normalizer: NewNormalizer(logger),
		segmenter:  NewSegmenter(logger, cfg),
		matcher:    NewRegimenMatcher(logger, kb, cfg),
		radiation:  NewRadiationGrouper(logger, kb, cfg),
		cycles:     NewCycleDetector(logger, cfg),
		responses:  NewResponseIntegrator(logger, cfg),
		endpoints:  NewEndpointCalculator(logger),
	}
}

// DefaultConfig returns the abstraction thresholds of the source design.
// These are heuristics, exposed as configuration rather than constants.
func DefaultConfig() domain.AbstractionConfig {
	return domain.AbstractionConfig{
		ProgressionGapDays:       30,
		EscalationGapDays:        14,
		RadiationCourseGapDays:   60,
		PhaseDoseDeltaGy:         0.3,
		CycleWindowDays:          7,
		LineChangeWindowDays:     60,
		SurgeryWeight:            20,
		ChemoWeight:              30,
		RadiationPresenceWeight:  30,
		RadiationDoseBonusWeight: 20,
		HighConfidenceScore:      90,
		MediumConfidenceScore:    70,
		LowConfidenceScore:       50,
	}
}

// Abstract runs the full pipeline over one patient timeline. now is the
// reference time for ongoing lines; callers pass it explicitly so that a
// given (input, now) pair always produces byte-identical output.
//
// The only hard failure is an input that violates the contract (duplicate or
// missing event IDs). Everything else degrades: malformed events become
// warnings, unmatched lines get synthesized regimens, missing dates yield nil
// fields.
func (e *Engine) Abstract(ctx context.Context, input *domain.PatientTimeline, now time.Time) (*domain.TherapyAbstraction, error) {
	if input == nil {
		return nil, domain.NewEngineError(domain.ErrInvalidInput, "patient timeline is required", "", "")
	}
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid patient timeline: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"patient_id": input.PatientID,
		"events":     len(input.Events),
		"diagnosis":  input.DiagnosisLabel,
	}).Info("Starting therapy abstraction")

	abstraction := &domain.TherapyAbstraction{
		PatientID:            input.PatientID,
		LinesOfTherapy:       []domain.TreatmentLine{},
		EngineVersion:        Version,
		KnowledgeBaseVersion: e.kb.Version(),
		GeneratedAt:          now.UTC(),
	}

	normalized := e.normalizer.Normalize(input.Events, input.DiagnosisDate)
	abstraction.Warnings = append(abstraction.Warnings, normalized.Warnings...)

	drafts := e.segmenter.Segment(normalized.Events)
	lines := make([]domain.TreatmentLine, 0, len(drafts))
	for i := range drafts {
		line, warnings := e.assembleLine(&drafts[i], i+1, input)
		abstraction.Warnings = append(abstraction.Warnings, warnings...)
		lines = append(lines, line)
	}

	// The last line has no documented end; it is reported as ongoing.
	// Earlier lines end at their final treatment event and carry the next
	// line's reason as their discontinuation.
	for i := range lines {
		if i+1 < len(lines) {
			lines[i].Discontinuation = &domain.Discontinuation{
				Reason:   lines[i+1].ReasonForChange,
				Evidence: drafts[i+1].BoundaryEvidence,
				Date:     lines[i].EndDate,
			}
		} else {
			lines[i].EndDate = nil
		}
	}

	var imaging []NormalizedEvent
	for _, ev := range normalized.Events {
		if ev.Type == domain.IMAGING_ASSESSMENT {
			imaging = append(imaging, ev)
		}
	}
	e.responses.Integrate(lines, imaging, now)

	abstraction.LinesOfTherapy = lines
	abstraction.ClinicalEndpoints = e.endpoints.Calculate(lines, input.DiagnosisDate, now)

	e.logger.WithFields(logrus.Fields{
		"patient_id": input.PatientID,
		"lines":      len(lines),
		"warnings":   len(abstraction.Warnings),
	}).Info("Completed therapy abstraction")

	return abstraction, nil
}

// assembleLine builds one TreatmentLine from its draft, running the regimen
// matcher, radiation grouper and cycle detector. A matcher failure degrades
// the line to a synthesized no-match regimen instead of aborting the run.
func (e *Engine) assembleLine(draft *LineDraft, number int, input *domain.PatientTimeline) (domain.TreatmentLine, []domain.Warning) {
	var warnings []domain.Warning

	line := domain.TreatmentLine{
		LineNumber:        number,
		StartDate:         draft.StartDate(),
		EndDate:           draft.EndDate(),
		ReasonForChange:   draft.Reason,
		TimelineEventRefs: draft.EventRefs(),
	}

	// Clinical documentation is imperfect; clamp instead of aborting.
	if line.StartDate != nil && line.EndDate != nil && line.EndDate.Before(*line.StartDate) {
		warnings = append(warnings, domain.NewWarning(
			domain.ErrInternalInconsistency,
			fmt.Sprintf("line %d end date precedes start date; clamped to start", number),
			"",
		))
		line.EndDate = line.StartDate
	}

	regimen, intent := e.safeMatch(draft, input, number, &warnings)
	line.Regimen = regimen
	line.TreatmentIntent = intent

	line.RadiationCourses = e.radiation.Group(draft, input.DiagnosisLabel)
	line.ChemotherapyCycles = e.cycles.Detect(draft)

	return line, warnings
}

// safeMatch shields the run from a matcher panic (e.g. a malformed knowledge
// base entry): the affected line degrades to no_match and downstream lines
// proceed.
func (e *Engine) safeMatch(draft *LineDraft, input *domain.PatientTimeline, number int, warnings *[]domain.Warning) (regimen *domain.Regimen, intent domain.TreatmentIntent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"line_number": number,
				"panic":       r,
			}).Error("Regimen matching failed; degrading line to no_match")
			*warnings = append(*warnings, domain.NewWarning(
				domain.ErrComponentFailure,
				fmt.Sprintf("regimen matching failed for line %d; reported as no_match", number),
				"",
			))
			regimen = &domain.Regimen{
				RegimenName:       "Unmatched treatment components",
				MatchConfidence:   domain.NO_MATCH,
				TimelineEventRefs: draft.EventRefs(),
			}
			intent = fallbackIntent(number)
		}
	}()

	regimen, intent = e.matcher.Match(draft, input.DiagnosisLabel, input.AgeAtDiagnosis, number)
	return regimen, intent
}
