// Package domain contains core business entities and types for therapeutic
// approach abstraction: the conversion of a flat clinical event timeline into
// a hierarchical model of treatment lines, regimens, courses and endpoints.
//
// Response categories follow the RANO (Response Assessment in Neuro-Oncology)
// working group criteria. Wen et al. (2010) Updated response assessment
// criteria for high-grade gliomas. J Clin Oncol. 28(11):1963-72.
package domain

import "errors"

// EventType represents the kind of source timeline event. These are the only
// event types the abstraction engine understands; unknown types are carried
// through untouched but never segmented.
type EventType string

const (
	SURGERY               EventType = "surgery"
	CHEMO_ADMINISTRATION  EventType = "chemotherapy_administration"
	RADIATION_FRACTION    EventType = "radiation_fraction"
	RADIATION_APPOINTMENT EventType = "radiation_appointment"
	IMAGING_ASSESSMENT    EventType = "imaging_assessment"
	VISIT                 EventType = "visit"
)

// MatchConfidence represents the confidence in a protocol match. It is an
// ordinal scale; use Rank for comparisons, never string ordering.
type MatchConfidence string

const (
	HIGH     MatchConfidence = "high"
	MEDIUM   MatchConfidence = "medium"
	LOW      MatchConfidence = "low"
	NO_MATCH MatchConfidence = "no_match"
)

// EvidenceLevel represents the strength of clinical evidence behind a matched
// protocol. Ordinal; higher Rank wins tie-breaks.
type EvidenceLevel string

const (
	STANDARD_OF_CARE       EvidenceLevel = "standard_of_care"
	CLINICAL_TRIAL         EvidenceLevel = "clinical_trial"
	INSTITUTIONAL_PROTOCOL EvidenceLevel = "institutional_protocol"
	EXPERIMENTAL           EvidenceLevel = "experimental"
	SALVAGE                EvidenceLevel = "salvage"
)

// TreatmentIntent represents the therapeutic goal of a treatment line.
type TreatmentIntent string

const (
	CURATIVE            TreatmentIntent = "curative"
	PALLIATIVE          TreatmentIntent = "palliative"
	EXPERIMENTAL_INTENT TreatmentIntent = "experimental"
	HOSPICE             TreatmentIntent = "hospice"
)

// RANOCategory represents a standardized imaging response classification.
type RANOCategory string

const (
	COMPLETE_RESPONSE   RANOCategory = "complete_response"
	PARTIAL_RESPONSE    RANOCategory = "partial_response"
	STABLE_DISEASE      RANOCategory = "stable_disease"
	PROGRESSIVE_DISEASE RANOCategory = "progressive_disease"
	UNKNOWN_RESPONSE    RANOCategory = "unknown"
)

// DrugClass represents the pharmacological class of a chemotherapy agent.
// Classification from free-text drug labels happens in exactly one place,
// ClassifyDrugLabel; nothing else in the engine inspects drug name strings.
type DrugClass string

const (
	ALKYLATING_AGENT        DrugClass = "alkylating_agent"
	PLATINUM_COMPOUND       DrugClass = "platinum_compound"
	VINCA_ALKALOID          DrugClass = "vinca_alkaloid"
	TOPOISOMERASE_INHIBITOR DrugClass = "topoisomerase_inhibitor"
	ANTIMETABOLITE          DrugClass = "antimetabolite"
	ANTIANGIOGENIC          DrugClass = "antiangiogenic"
	IMMUNOTHERAPY           DrugClass = "immunotherapy"
	TARGETED_THERAPY        DrugClass = "targeted_therapy"
	UNKNOWN_DRUG_CLASS      DrugClass = "unknown"
)

// FractionationType classifies a radiation course by dose per fraction.
type FractionationType string

const (
	STANDARD_FRACTIONATION FractionationType = "standard"
	HYPOFRACTIONATED       FractionationType = "hypofractionated"
	STEREOTACTIC           FractionationType = "stereotactic"
	PALLIATIVE_COURSE      FractionationType = "palliative"
	UNKNOWN_FRACTIONATION  FractionationType = "unknown"
)

// ChangeReason classifies why a treatment line was opened (for line 1:
// initial_diagnosis) or, equivalently, why the previous line was discontinued.
type ChangeReason string

const (
	INITIAL_DIAGNOSIS         ChangeReason = "initial_diagnosis"
	DISEASE_PROGRESSION       ChangeReason = "disease_progression"
	TOXICITY_INTOLERANCE      ChangeReason = "toxicity_intolerance"
	PROTOCOL_COMPLETION       ChangeReason = "protocol_completion"
	PATIENT_PREFERENCE        ChangeReason = "patient_preference"
	CLINICAL_TRIAL_ENROLLMENT ChangeReason = "clinical_trial_enrollment"
	UNCLEAR                   ChangeReason = "unclear"
)

// ClinicalSignificance tags a protocol deviation.
type ClinicalSignificance string

const (
	STANDARD_VARIATION ClinicalSignificance = "standard_variation"
	PROTOCOL_DEVIATION ClinicalSignificance = "protocol_deviation"
)

// ExtentOfResection represents surgical extent (EOR).
type ExtentOfResection string

const (
	GROSS_TOTAL_RESECTION ExtentOfResection = "gross_total"
	SUBTOTAL_RESECTION    ExtentOfResection = "subtotal"
	PARTIAL_RESECTION     ExtentOfResection = "partial"
	BIOPSY_ONLY           ExtentOfResection = "biopsy_only"
	UNKNOWN_EOR           ExtentOfResection = "unknown"
)

// Validation errors for medical data integrity
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidEventType  = errors.New("invalid timeline event type")
	ErrInvalidConfidence = errors.New("invalid match confidence")
	ErrInvalidEvidence   = errors.New("invalid evidence level")
	ErrInvalidReason     = errors.New("invalid change reason")
)

// IsValid validates the event type.
func (et EventType) IsValid() bool {
	switch et {
	case SURGERY, CHEMO_ADMINISTRATION, RADIATION_FRACTION, RADIATION_APPOINTMENT, IMAGING_ASSESSMENT, VISIT:
		return true
	default:
		return false
	}
}

// IsTreatment reports whether events of this type deliver therapy and can
// therefore open or extend a treatment line.
func (et EventType) IsTreatment() bool {
	switch et {
	case SURGERY, CHEMO_ADMINISTRATION, RADIATION_FRACTION, RADIATION_APPOINTMENT:
		return true
	default:
		return false
	}
}

// IsRadiation reports whether the event is a radiation delivery event.
func (et EventType) IsRadiation() bool {
	return et == RADIATION_FRACTION || et == RADIATION_APPOINTMENT
}

func (et EventType) String() string { return string(et) }

// IsValid validates the confidence level.
func (mc MatchConfidence) IsValid() bool {
	switch mc {
	case HIGH, MEDIUM, LOW, NO_MATCH:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position of the confidence level, higher is more
// confident. Tie-break logic must use Rank, not string comparison.
func (mc MatchConfidence) Rank() int {
	switch mc {
	case HIGH:
		return 3
	case MEDIUM:
		return 2
	case LOW:
		return 1
	default:
		return 0
	}
}

func (mc MatchConfidence) String() string { return string(mc) }

// IsValid validates the evidence level.
func (el EvidenceLevel) IsValid() bool {
	switch el {
	case STANDARD_OF_CARE, CLINICAL_TRIAL, INSTITUTIONAL_PROTOCOL, EXPERIMENTAL, SALVAGE:
		return true
	default:
		return false
	}
}

// Rank returns the ordinal position of the evidence level used for protocol
// match tie-breaks: standard_of_care > clinical_trial > institutional_protocol
// > experimental > salvage.
func (el EvidenceLevel) Rank() int {
	switch el {
	case STANDARD_OF_CARE:
		return 5
	case CLINICAL_TRIAL:
		return 4
	case INSTITUTIONAL_PROTOCOL:
		return 3
	case EXPERIMENTAL:
		return 2
	case SALVAGE:
		return 1
	default:
		return 0
	}
}

func (el EvidenceLevel) String() string { return string(el) }

// IsValid validates the treatment intent.
func (ti TreatmentIntent) IsValid() bool {
	switch ti {
	case CURATIVE, PALLIATIVE, EXPERIMENTAL_INTENT, HOSPICE:
		return true
	default:
		return false
	}
}

// IsValid validates the RANO category.
func (rc RANOCategory) IsValid() bool {
	switch rc {
	case COMPLETE_RESPONSE, PARTIAL_RESPONSE, STABLE_DISEASE, PROGRESSIVE_DISEASE, UNKNOWN_RESPONSE:
		return true
	default:
		return false
	}
}

// Rank orders RANO categories from best to worst response:
// Complete > Partial > Stable > Progressive. Unknown ranks below all.
func (rc RANOCategory) Rank() int {
	switch rc {
	case COMPLETE_RESPONSE:
		return 4
	case PARTIAL_RESPONSE:
		return 3
	case STABLE_DISEASE:
		return 2
	case PROGRESSIVE_DISEASE:
		return 1
	default:
		return 0
	}
}

func (rc RANOCategory) String() string { return string(rc) }

// LogFields returns structured logging fields for audit trails.
// Returns strongly-typed fields to prevent logging errors in medical contexts.
func (rc RANOCategory) LogFields() map[string]any {
	return map[string]any{
		"rano_category":  string(rc),
		"response_rank":  rc.Rank(),
		"is_valid":       rc.IsValid(),
		"is_progression": rc == PROGRESSIVE_DISEASE,
	}
}

// IsValid validates the change reason.
func (cr ChangeReason) IsValid() bool {
	switch cr {
	case INITIAL_DIAGNOSIS, DISEASE_PROGRESSION, TOXICITY_INTOLERANCE,
		PROTOCOL_COMPLETION, PATIENT_PREFERENCE, CLINICAL_TRIAL_ENROLLMENT, UNCLEAR:
		return true
	default:
		return false
	}
}

func (cr ChangeReason) String() string { return string(cr) }

// IsValid validates the fractionation type.
func (ft FractionationType) IsValid() bool {
	switch ft {
	case STANDARD_FRACTIONATION, HYPOFRACTIONATED, STEREOTACTIC, PALLIATIVE_COURSE, UNKNOWN_FRACTIONATION:
		return true
	default:
		return false
	}
}

// IsValid validates the drug class.
func (dc DrugClass) IsValid() bool {
	switch dc {
	case ALKYLATING_AGENT, PLATINUM_COMPOUND, VINCA_ALKALOID, TOPOISOMERASE_INHIBITOR,
		ANTIMETABOLITE, ANTIANGIOGENIC, IMMUNOTHERAPY, TARGETED_THERAPY, UNKNOWN_DRUG_CLASS:
		return true
	default:
		return false
	}
}

func (dc DrugClass) String() string { return string(dc) }
