package engine

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/domain"
)

// LineDraft is the segmenter's intermediate product: the events of one
// treatment line before regimen matching and response integration.
type LineDraft struct {
	// Events holds everything attached to the line (treatments and visits)
	// in chronological order; Treatments is the treatment-only subset that
	// drives dates and boundary decisions.
	Events     []NormalizedEvent
	Treatments []NormalizedEvent

	Reason domain.ChangeReason
	// BoundaryEvidence describes the signal that opened the line, recorded on
	// the previous line's discontinuation.
	BoundaryEvidence string

	drugClasses map[domain.DrugClass]struct{}
}

// StartDate returns the date of the first treatment event.
func (ld *LineDraft) StartDate() *time.Time {
	if len(ld.Treatments) == 0 {
		return nil
	}
	return ld.Treatments[0].Date
}

// EndDate returns the date of the last treatment event.
func (ld *LineDraft) EndDate() *time.Time {
	if len(ld.Treatments) == 0 {
		return nil
	}
	return ld.Treatments[len(ld.Treatments)-1].Date
}

// EventRefs returns the IDs of all events attached to the line.
func (ld *LineDraft) EventRefs() []string {
	refs := make([]string, 0, len(ld.Events))
	for _, ev := range ld.Events {
		refs = append(refs, ev.ID)
	}
	return refs
}

func (ld *LineDraft) add(ev NormalizedEvent) {
	ld.Events = append(ld.Events, ev)
	if ev.Type.IsTreatment() {
		ld.Treatments = append(ld.Treatments, ev)
	}
	if ev.Type == domain.CHEMO_ADMINISTRATION && ev.DrugClass != domain.UNKNOWN_DRUG_CLASS {
		ld.drugClasses[ev.DrugClass] = struct{}{}
	}
}

func newLineDraft(ev NormalizedEvent, reason domain.ChangeReason, evidence string) *LineDraft {
	ld := &LineDraft{
		Reason:           reason,
		BoundaryEvidence: evidence,
		drugClasses:      make(map[domain.DrugClass]struct{}),
	}
	ld.add(ev)
	return ld
}

// hasNonSurgicalTreatment reports whether the line already includes therapy
// beyond surgery, which makes a later surgery a salvage re-resection signal.
func (ld *LineDraft) hasNonSurgicalTreatment() bool {
	for _, ev := range ld.Treatments {
		if ev.Type != domain.SURGERY {
			return true
		}
	}
	return false
}

// Segmenter partitions the normalized timeline into ordered, non-overlapping
// treatment lines using multi-signal boundary detection.
type Segmenter struct {
	logger *logrus.Logger
	cfg    domain.AbstractionConfig
}

// NewSegmenter creates a new treatment line segmenter.
func NewSegmenter(logger *logrus.Logger, cfg domain.AbstractionConfig) *Segmenter {
	return &Segmenter{logger: logger, cfg: cfg}
}

// boundaryVerdict is the outcome of evaluating one event against the open line.
type boundaryVerdict struct {
	newLine             bool
	progressionEvidence bool
	evidence            string
}

// Segment walks the dated events chronologically. The first treatment event
// opens line 1; subsequent treatment events either extend the open line or
// open a new one when a boundary signal fires. Zero treatment events yield an
// empty slice, never an error.
func (s *Segmenter) Segment(events []NormalizedEvent) []LineDraft {
	var lines []LineDraft
	var cur *LineDraft
	var imaging []NormalizedEvent

	for _, ev := range events {
		switch {
		case ev.Type == domain.IMAGING_ASSESSMENT:
			imaging = append(imaging, ev)
			continue
		case ev.Type == domain.VISIT:
			if cur != nil {
				cur.add(ev)
			}
			continue
		case !ev.Type.IsTreatment():
			continue
		}

		if cur == nil {
			cur = newLineDraft(ev, domain.INITIAL_DIAGNOSIS, "")
			continue
		}

		verdict := s.evaluateBoundary(cur, ev, imaging)
		if verdict.newLine {
			lines = append(lines, *cur)
			cur = newLineDraft(ev, s.classifyReason(ev, verdict), verdict.evidence)
		} else {
			cur.add(ev)
		}
	}
	if cur != nil {
		lines = append(lines, *cur)
	}

	s.logger.WithFields(logrus.Fields{
		"events": len(events),
		"lines":  len(lines),
	}).Info("Segmented timeline into treatment lines")

	return lines
}

// evaluateBoundary applies the boundary signals in order. Any single firing
// signal opens a new line.
func (s *Segmenter) evaluateBoundary(cur *LineDraft, ev NormalizedEvent, imaging []NormalizedEvent) boundaryVerdict {
	last := s.lastComparableDate(cur, ev)
	gapDays := daysBetween(last, *ev.Date)
	pdEvent := progressionInGap(imaging, last, *ev.Date)

	// Signal 1: progression-confirmed gap.
	if gapDays > s.cfg.ProgressionGapDays && pdEvent != nil {
		return boundaryVerdict{
			newLine:             true,
			progressionEvidence: true,
			evidence:            "treatment gap with interval progressive disease on imaging",
		}
	}

	// Signal 2: drug-class escalation after progression or a shorter gap.
	if ev.Type == domain.CHEMO_ADMINISTRATION && ev.DrugClass != domain.UNKNOWN_DRUG_CLASS {
		if _, known := cur.drugClasses[ev.DrugClass]; !known && len(cur.drugClasses) > 0 {
			if pdEvent != nil || gapDays > s.cfg.EscalationGapDays {
				return boundaryVerdict{
					newLine:             true,
					progressionEvidence: pdEvent != nil,
					evidence:            "new drug class introduced after treatment gap",
				}
			}
		}
	}

	// Signal 3: salvage surgery after non-surgical treatment.
	if ev.Type == domain.SURGERY && cur.hasNonSurgicalTreatment() {
		return boundaryVerdict{
			newLine:             true,
			progressionEvidence: pdEvent != nil,
			evidence:            "surgery after prior non-surgical treatment (salvage re-resection)",
		}
	}

	// Signal 4: explicit textual signal in provenance text.
	if marker := lineChangeMarker(ev.SourceText); marker != "" {
		return boundaryVerdict{
			newLine:             true,
			progressionEvidence: pdEvent != nil || marker == "recurrence" || marker == "progression",
			evidence:            "documentation references " + marker,
		}
	}

	return boundaryVerdict{}
}

// lastComparableDate returns the date of the line's most recent treatment
// event of the same type as ev, falling back to its most recent treatment
// event of any type.
func (s *Segmenter) lastComparableDate(cur *LineDraft, ev NormalizedEvent) time.Time {
	for i := len(cur.Treatments) - 1; i >= 0; i-- {
		if cur.Treatments[i].Type == ev.Type {
			return *cur.Treatments[i].Date
		}
	}
	return *cur.Treatments[len(cur.Treatments)-1].Date
}

// progressionInGap returns the first progressive-disease imaging assessment
// strictly inside (from, to], or nil.
func progressionInGap(imaging []NormalizedEvent, from, to time.Time) *NormalizedEvent {
	for i := range imaging {
		ev := &imaging[i]
		if ev.Response != domain.PROGRESSIVE_DISEASE {
			continue
		}
		if ev.Date.After(from) && !ev.Date.After(to) {
			return ev
		}
	}
	return nil
}

// lineChangeMarker scans provenance text for phrases that explicitly signal a
// change of treatment strategy.
func lineChangeMarker(text string) string {
	if text == "" {
		return ""
	}
	normalized := strings.ToLower(text)
	for _, marker := range []string{"second-line", "second line", "third-line", "third line", "salvage", "recurrence", "recurrent"} {
		if strings.Contains(normalized, marker) {
			if marker == "recurrent" {
				return "recurrence"
			}
			return marker
		}
	}
	return ""
}

// classifyReason picks the reason_for_change for the new line by keyword
// evidence near the boundary event, defaulting to disease_progression when
// imaging evidence exists and unclear otherwise.
func (s *Segmenter) classifyReason(ev NormalizedEvent, verdict boundaryVerdict) domain.ChangeReason {
	text := strings.ToLower(ev.SourceText)

	switch {
	case containsAny(text, "toxicity", "intoleran", "adverse event", "side effect"):
		return domain.TOXICITY_INTOLERANCE
	case containsAny(text, "completion of protocol", "protocol completed", "completed therapy", "end of therapy"):
		return domain.PROTOCOL_COMPLETION
	case containsAny(text, "patient preference", "patient declined", "refused"):
		return domain.PATIENT_PREFERENCE
	case containsAny(text, "clinical trial", "enrolled", "study protocol"):
		return domain.CLINICAL_TRIAL_ENROLLMENT
	case containsAny(text, "recurren", "salvage", "progress"):
		return domain.DISEASE_PROGRESSION
	case verdict.progressionEvidence:
		return domain.DISEASE_PROGRESSION
	default:
		return domain.UNCLEAR
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
