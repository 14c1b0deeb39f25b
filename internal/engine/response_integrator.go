package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/domain"
)

// ResponseIntegrator associates imaging assessments with the treatment line
// they evaluated and flags the assessment, if any, that triggered the next
// line.
type ResponseIntegrator struct {
	logger *logrus.Logger
	cfg    domain.AbstractionConfig
}

// NewResponseIntegrator creates a new response integrator.
func NewResponseIntegrator(logger *logrus.Logger, cfg domain.AbstractionConfig) *ResponseIntegrator {
	return &ResponseIntegrator{logger: logger, cfg: cfg}
}

// Integrate assigns each imaging assessment to the line whose observation
// interval contains it. A line's interval runs from its start to the next
// line's start (so assessments inside the inter-line gap attach to the line
// they evaluated), and for the last line to the reference time. A
// progressive-disease assessment followed by the next line's start within the
// configured window is flagged led_to_line_change.
func (ri *ResponseIntegrator) Integrate(lines []domain.TreatmentLine, imaging []NormalizedEvent, now time.Time) {
	for i := range lines {
		line := &lines[i]
		if line.StartDate == nil {
			continue
		}
		start := *line.StartDate

		var upper time.Time
		var nextStart *time.Time
		if i+1 < len(lines) && lines[i+1].StartDate != nil {
			nextStart = lines[i+1].StartDate
			upper = *nextStart
		} else {
			upper = now
		}

		for _, ev := range imaging {
			if ev.Date == nil || ev.Date.Before(start) {
				continue
			}
			// Interval is half-open against the next line, closed at "now"
			// for the last line.
			if nextStart != nil {
				if !ev.Date.Before(upper) {
					continue
				}
			} else if ev.Date.After(upper) {
				continue
			}

			days := daysBetween(start, *ev.Date)
			assessment := domain.ResponseAssessment{
				Date:              ev.Date,
				Category:          ev.Response,
				DaysOnTreatment:   &days,
				TimelineEventRefs: []string{ev.ID},
			}
			if ev.Response == domain.PROGRESSIVE_DISEASE && nextStart != nil {
				gap := daysBetween(*ev.Date, *nextStart)
				if gap >= 0 && gap <= ri.cfg.LineChangeWindowDays {
					assessment.LedToLineChange = true
				}
			}
			line.ResponseAssessments = append(line.ResponseAssessments, assessment)
		}

		if n := len(line.ResponseAssessments); n > 0 {
			ri.logger.WithFields(logrus.Fields{
				"line_number": line.LineNumber,
				"assessments": n,
			}).Debug("Integrated response assessments")
		}
	}
}
