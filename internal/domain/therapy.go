package domain

import "time"

// Derived hierarchical model. Every entity below carries TimelineEventRefs
// pointing back into the input event list; consumers can reconstruct full
// provenance from the output alone (traceability invariant).

// TreatmentLine is a temporally bounded, clinically coherent treatment episode
// beginning at diagnosis or at a documented change in treatment strategy.
type TreatmentLine struct {
	LineNumber int `json:"line_number"`

	StartDate *time.Time `json:"start_date,omitempty"`
	// EndDate is nil while the line is ongoing.
	EndDate *time.Time `json:"end_date,omitempty"`

	TreatmentIntent TreatmentIntent `json:"treatment_intent"`
	ReasonForChange ChangeReason    `json:"reason_for_change"`

	Regimen             *Regimen             `json:"regimen,omitempty"`
	RadiationCourses    []RadiationCourse    `json:"radiation_courses,omitempty"`
	ChemotherapyCycles  []ChemoCycle         `json:"chemotherapy_cycles,omitempty"`
	ResponseAssessments []ResponseAssessment `json:"response_assessments,omitempty"`
	Discontinuation     *Discontinuation     `json:"discontinuation,omitempty"`

	TimelineEventRefs []string `json:"timeline_event_refs"`
}

// Regimen is the line's treatment composition matched against the protocol
// knowledge base, or a synthesized description when nothing matched.
type Regimen struct {
	RegimenName       string          `json:"regimen_name"`
	ProtocolReference string          `json:"protocol_reference,omitempty"`
	MatchConfidence   MatchConfidence `json:"match_confidence"`
	EvidenceLevel     EvidenceLevel   `json:"evidence_level,omitempty"`
	MatchScore        int             `json:"match_score"`
	Deviations        []Deviation     `json:"deviations,omitempty"`
	TimelineEventRefs []string        `json:"timeline_event_refs"`
}

// Deviation records a departure from the matched protocol. Deviations are
// informational, never match failures.
type Deviation struct {
	Description          string               `json:"description"`
	Rationale            string               `json:"rationale,omitempty"`
	ClinicalSignificance ClinicalSignificance `json:"clinical_significance"`
}

// RadiationCourse groups radiation events separated by no more than the
// re-irradiation gap, possibly spanning multiple phases (e.g. craniospinal
// axis followed by a boost to the tumor bed).
type RadiationCourse struct {
	CourseNumber      int               `json:"course_number"`
	StartDate         *time.Time        `json:"start_date,omitempty"`
	EndDate           *time.Time        `json:"end_date,omitempty"`
	Phases            []RadiationPhase  `json:"phases"`
	TotalDoseGy       float64           `json:"total_dose_gy"`
	FractionationType FractionationType `json:"fractionation_type"`
	ProtocolReference string            `json:"protocol_reference,omitempty"`
	MatchConfidence   MatchConfidence   `json:"match_confidence"`
	Deviations        []Deviation       `json:"deviations,omitempty"`
	TimelineEventRefs []string          `json:"timeline_event_refs"`
}

// RadiationPhase is a dose/target-homogeneous segment within a course.
type RadiationPhase struct {
	PhaseNumber       int      `json:"phase_number"`
	DoseGy            float64  `json:"dose_gy"`
	Fractions         *int     `json:"fractions,omitempty"`
	DosePerFractionGy *float64 `json:"dose_per_fraction_gy,omitempty"`
	TargetVolume      string   `json:"target_volume,omitempty"`
	TimelineEventRefs []string `json:"timeline_event_refs"`
}

// ChemoCycle is a grouped set of drug administrations delivered as one
// scheduled unit.
type ChemoCycle struct {
	CycleNumber         int        `json:"cycle_number"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	AdministrationCount int        `json:"administration_count"`
	TimelineEventRefs   []string   `json:"timeline_event_refs"`
}

// ResponseAssessment associates an imaging assessment with the treatment line
// it evaluated.
type ResponseAssessment struct {
	Date            *time.Time   `json:"date,omitempty"`
	Category        RANOCategory `json:"category"`
	DaysOnTreatment *int         `json:"days_on_treatment,omitempty"`
	// LedToLineChange is true when this progressive-disease assessment was
	// followed within the configured window by the opening of the next line.
	LedToLineChange   bool     `json:"led_to_line_change"`
	TimelineEventRefs []string `json:"timeline_event_refs"`
}

// Discontinuation records why and when a line ended.
type Discontinuation struct {
	Reason                      ChangeReason `json:"reason"`
	Evidence                    string       `json:"evidence,omitempty"`
	Date                        *time.Time   `json:"date,omitempty"`
	ProgressionFreeSurvivalDays *int         `json:"progression_free_survival_days,omitempty"`
}

// LineEndpoints holds per-line derived clinical metrics.
type LineEndpoints struct {
	LineNumber                  int          `json:"line_number"`
	ProgressionFreeSurvivalDays *int         `json:"progression_free_survival_days,omitempty"`
	BestResponse                RANOCategory `json:"best_response"`
	DurationDays                *int         `json:"duration_days,omitempty"`
}

// ClinicalEndpoints aggregates per-line and overall derived metrics.
// Overall-survival fields stay nil unless a vital-status input is supplied;
// nil is a valid, expected terminal state, not an error.
type ClinicalEndpoints struct {
	PerLine                    []LineEndpoints `json:"per_line"`
	NumberOfTreatmentLines     int             `json:"number_of_treatment_lines"`
	TimeToFirstProgressionDays *int            `json:"time_to_first_progression_days,omitempty"`
	OverallSurvivalDays        *int            `json:"overall_survival_days,omitempty"`
}

// Warning is a recoverable, non-fatal condition encountered during
// abstraction. Warnings augment the output; they never suppress it.
type Warning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	EventRef string `json:"event_ref,omitempty"`
}

// TherapyAbstraction is the complete derived structure for one invocation.
// It is additive: the input event list is untouched and every derived object
// references back into it.
type TherapyAbstraction struct {
	PatientID            string            `json:"patient_id"`
	LinesOfTherapy       []TreatmentLine   `json:"lines_of_therapy"`
	ClinicalEndpoints    ClinicalEndpoints `json:"clinical_endpoints"`
	Warnings             []Warning         `json:"warnings,omitempty"`
	EngineVersion        string            `json:"engine_version"`
	KnowledgeBaseVersion string            `json:"knowledge_base_version"`
	GeneratedAt          time.Time         `json:"generated_at"`
}

// EventRefSet returns the union of all timeline event references in the
// abstraction, used to check referential closure against the input.
func (ta *TherapyAbstraction) EventRefSet() map[string]struct{} {
	refs := make(map[string]struct{})
	add := func(ids []string) {
		for _, id := range ids {
			refs[id] = struct{}{}
		}
	}
	for i := range ta.LinesOfTherapy {
		line := &ta.LinesOfTherapy[i]
		add(line.TimelineEventRefs)
		if line.Regimen != nil {
			add(line.Regimen.TimelineEventRefs)
		}
		for j := range line.RadiationCourses {
			add(line.RadiationCourses[j].TimelineEventRefs)
			for k := range line.RadiationCourses[j].Phases {
				add(line.RadiationCourses[j].Phases[k].TimelineEventRefs)
			}
		}
		for j := range line.ChemotherapyCycles {
			add(line.ChemotherapyCycles[j].TimelineEventRefs)
		}
		for j := range line.ResponseAssessments {
			add(line.ResponseAssessments[j].TimelineEventRefs)
		}
	}
	return refs
}
