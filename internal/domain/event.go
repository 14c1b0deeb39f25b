package domain

import (
	"errors"
	"fmt"
	"time"
)

// TimelineEvent is a single source record on a patient's clinical timeline,
// produced by the upstream extraction and adjudication pipeline. Events are
// immutable inputs: the abstraction engine never mutates or discards them, it
// only references them by ID from derived entities.
type TimelineEvent struct {
	// Core identification
	ID   string    `json:"id" validate:"required"`
	Type EventType `json:"type" validate:"required"`

	// Date is nil when the source carried no usable date. DateText preserves
	// the raw string for audit when parsing failed upstream.
	Date     *time.Time `json:"date,omitempty"`
	DateText string     `json:"date_text,omitempty"`

	// Chemotherapy administration fields
	DrugName string   `json:"drug_name,omitempty"`
	DoseMg   *float64 `json:"dose_mg,omitempty"`

	// Surgery fields
	ResectionExtent string `json:"resection_extent,omitempty"`

	// Radiation fields. DoseGy is the dose delivered by this event, which may
	// be a single fraction or a summarized treatment segment; Fractions is set
	// when the event summarizes more than one fraction.
	DoseGy       *float64 `json:"dose_gy,omitempty"`
	Fractions    *int     `json:"fractions,omitempty"`
	TargetVolume string   `json:"target_volume,omitempty"`

	// Imaging assessment fields
	ResponseText string `json:"response_text,omitempty"`

	// SourceText carries associated plan/note provenance text, when available.
	SourceText string `json:"source_text,omitempty"`
}

// Validate ensures the event meets the minimum input contract. The engine
// validates events once at the boundary; malformed events degrade to warnings
// rather than failures further in.
func (e *TimelineEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("timeline event validation: %w", errors.New("ID is required"))
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("timeline event validation: %w: %q", ErrInvalidEventType, e.Type)
	}
	return nil
}

// PatientTimeline is the full input snapshot for one engine invocation.
type PatientTimeline struct {
	PatientID      string          `json:"patient_id"`
	DiagnosisLabel string          `json:"diagnosis_label"`
	DiagnosisDate  *time.Time      `json:"diagnosis_date,omitempty"`
	AgeAtDiagnosis *int            `json:"age_at_diagnosis,omitempty"`
	Events         []TimelineEvent `json:"events"`
}

// Validate checks the input contract. An empty event list is valid input
// (the engine degrades to an empty abstraction); duplicate event IDs are not,
// because traceability references would become ambiguous.
func (pt *PatientTimeline) Validate() error {
	seen := make(map[string]struct{}, len(pt.Events))
	for i := range pt.Events {
		if err := pt.Events[i].Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if _, dup := seen[pt.Events[i].ID]; dup {
			return fmt.Errorf("event %d: duplicate event ID %q", i, pt.Events[i].ID)
		}
		seen[pt.Events[i].ID] = struct{}{}
	}
	return nil
}
