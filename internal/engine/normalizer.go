package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/domain"
)

// NormalizedEvent wraps a source event with derived fields the pipeline needs:
// original input position, day offset from diagnosis, and resolved enum values
// for the event's free-text labels.
type NormalizedEvent struct {
	domain.TimelineEvent

	// Seq is the event's position in the input list, used as the final sort
	// key so normalization is stable and deterministic.
	Seq int

	// DaysFromDiagnosis is nil when either the event or the diagnosis has no
	// usable date.
	DaysFromDiagnosis *int

	DrugClass domain.DrugClass
	Response  domain.RANOCategory
}

// NormalizeResult is the normalizer output. Events holds the dated, sorted
// events that feed segmentation; Excluded holds events without a usable date,
// retained for audit but never segmented.
type NormalizeResult struct {
	Events   []NormalizedEvent
	Excluded []NormalizedEvent
	Warnings []domain.Warning
}

// Normalizer sorts and annotates the raw event list. It never fails: missing
// or unparsable dates degrade to exclusions with warnings.
type Normalizer struct {
	logger *logrus.Logger
}

// NewNormalizer creates a new event normalizer.
func NewNormalizer(logger *logrus.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize sorts events by date ascending with a stable secondary key (type,
// then original input order) and computes day offsets from the diagnosis
// anchor. A nil diagnosis date yields nil offsets for all events; the engine
// proceeds.
func (n *Normalizer) Normalize(events []domain.TimelineEvent, diagnosisDate *time.Time) NormalizeResult {
	result := NormalizeResult{}

	for i, ev := range events {
		ne := NormalizedEvent{TimelineEvent: ev, Seq: i}

		if ev.Type == domain.CHEMO_ADMINISTRATION {
			ne.DrugClass = domain.ClassifyDrugLabel(ev.DrugName)
		}
		if ev.Type == domain.IMAGING_ASSESSMENT {
			ne.Response = domain.ClassifyResponseLabel(ev.ResponseText)
		}

		if ev.Date == nil {
			if ev.DateText != "" {
				result.Warnings = append(result.Warnings, domain.NewWarning(
					domain.ErrMalformedEvent,
					fmt.Sprintf("event date %q could not be parsed; excluded from segmentation", ev.DateText),
					ev.ID,
				))
			} else {
				result.Warnings = append(result.Warnings, domain.NewWarning(
					domain.ErrMalformedEvent,
					"event has no date; excluded from segmentation",
					ev.ID,
				))
			}
			result.Excluded = append(result.Excluded, ne)
			continue
		}

		if diagnosisDate != nil {
			days := daysBetween(*diagnosisDate, *ev.Date)
			ne.DaysFromDiagnosis = &days
		}
		result.Events = append(result.Events, ne)
	}

	sort.SliceStable(result.Events, func(i, j int) bool {
		a, b := result.Events[i], result.Events[j]
		if !a.Date.Equal(*b.Date) {
			return a.Date.Before(*b.Date)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Seq < b.Seq
	})

	n.logger.WithFields(logrus.Fields{
		"input_events":  len(events),
		"dated_events":  len(result.Events),
		"excluded":      len(result.Excluded),
		"has_diagnosis": diagnosisDate != nil,
	}).Debug("Normalized event timeline")

	return result
}

// daysBetween returns whole days from a to b, negative when b precedes a.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
