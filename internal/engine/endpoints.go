package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/domain"
)

// EndpointCalculator derives per-line and overall clinical metrics from the
// assembled lines. Every output here is optional by design: missing evidence
// yields nil fields, never errors.
type EndpointCalculator struct {
	logger *logrus.Logger
}

// NewEndpointCalculator creates a new endpoint calculator.
func NewEndpointCalculator(logger *logrus.Logger) *EndpointCalculator {
	return &EndpointCalculator{logger: logger}
}

// Calculate fills per-line PFS, best response and duration, propagates PFS
// onto each line's discontinuation record, and derives the overall endpoints.
// Overall-survival fields stay nil: no vital-status input exists at this
// layer.
func (ec *EndpointCalculator) Calculate(lines []domain.TreatmentLine, diagnosisDate *time.Time, now time.Time) domain.ClinicalEndpoints {
	endpoints := domain.ClinicalEndpoints{
		NumberOfTreatmentLines: len(lines),
	}

	for i := range lines {
		line := &lines[i]
		le := domain.LineEndpoints{
			LineNumber:   line.LineNumber,
			BestResponse: bestResponse(line.ResponseAssessments),
		}

		if line.StartDate != nil {
			end := now
			if line.EndDate != nil {
				end = *line.EndDate
			}
			duration := daysBetween(*line.StartDate, end)
			le.DurationDays = &duration
		}

		le.ProgressionFreeSurvivalDays = progressionFreeSurvival(line)
		if line.Discontinuation != nil {
			line.Discontinuation.ProgressionFreeSurvivalDays = le.ProgressionFreeSurvivalDays
		}

		endpoints.PerLine = append(endpoints.PerLine, le)
	}

	endpoints.TimeToFirstProgressionDays = timeToFirstProgression(endpoints.PerLine, lines, diagnosisDate)

	ec.logger.WithFields(logrus.Fields{
		"lines":             endpoints.NumberOfTreatmentLines,
		"first_progression": endpoints.TimeToFirstProgressionDays != nil,
	}).Debug("Calculated clinical endpoints")

	return endpoints
}

// progressionFreeSurvival is the duration from line start to the assessment
// flagged led_to_line_change, or to the discontinuation date when the line was
// discontinued for progression without a flagged assessment.
func progressionFreeSurvival(line *domain.TreatmentLine) *int {
	if line.StartDate == nil {
		return nil
	}
	for _, a := range line.ResponseAssessments {
		if a.LedToLineChange && a.Date != nil {
			days := daysBetween(*line.StartDate, *a.Date)
			return &days
		}
	}
	if line.Discontinuation != nil &&
		line.Discontinuation.Reason == domain.DISEASE_PROGRESSION &&
		line.Discontinuation.Date != nil {
		days := daysBetween(*line.StartDate, *line.Discontinuation.Date)
		return &days
	}
	return nil
}

// bestResponse is the highest-ranked RANO category observed, unknown when no
// classifiable assessments exist.
func bestResponse(assessments []domain.ResponseAssessment) domain.RANOCategory {
	best := domain.UNKNOWN_RESPONSE
	for _, a := range assessments {
		if a.Category.Rank() > best.Rank() {
			best = a.Category
		}
	}
	return best
}

// timeToFirstProgression is the day offset from diagnosis of the first
// documented progression: the first line with a non-nil PFS contributes its
// start offset plus its PFS.
func timeToFirstProgression(perLine []domain.LineEndpoints, lines []domain.TreatmentLine, diagnosisDate *time.Time) *int {
	if diagnosisDate == nil {
		return nil
	}
	for i, le := range perLine {
		if le.ProgressionFreeSurvivalDays == nil || lines[i].StartDate == nil {
			continue
		}
		days := daysBetween(*diagnosisDate, *lines[i].StartDate) + *le.ProgressionFreeSurvivalDays
		return &days
	}
	return nil
}
