package domain

import "strings"

// This file is the single fuzzy-matching boundary of the engine: every
// free-text label coming from upstream extraction (drug names, imaging
// response text, resection descriptions, radiation target volumes) is mapped
// to a closed enum here and nowhere else.

// drugClassKeywords maps lowercase drug-name substrings to drug classes.
// Coverage is neuro-oncology centric, matching the protocol knowledge base.
var drugClassKeywords = []struct {
	keyword string
	class   DrugClass
}{
	{"temozolomide", ALKYLATING_AGENT},
	{"temodar", ALKYLATING_AGENT},
	{"lomustine", ALKYLATING_AGENT},
	{"ccnu", ALKYLATING_AGENT},
	{"carmustine", ALKYLATING_AGENT},
	{"bcnu", ALKYLATING_AGENT},
	{"cyclophosphamide", ALKYLATING_AGENT},
	{"ifosfamide", ALKYLATING_AGENT},
	{"procarbazine", ALKYLATING_AGENT},
	{"thiotepa", ALKYLATING_AGENT},
	{"busulfan", ALKYLATING_AGENT},
	{"cisplatin", PLATINUM_COMPOUND},
	{"carboplatin", PLATINUM_COMPOUND},
	{"oxaliplatin", PLATINUM_COMPOUND},
	{"vincristine", VINCA_ALKALOID},
	{"vinblastine", VINCA_ALKALOID},
	{"vinorelbine", VINCA_ALKALOID},
	{"etoposide", TOPOISOMERASE_INHIBITOR},
	{"vp-16", TOPOISOMERASE_INHIBITOR},
	{"irinotecan", TOPOISOMERASE_INHIBITOR},
	{"topotecan", TOPOISOMERASE_INHIBITOR},
	{"methotrexate", ANTIMETABOLITE},
	{"cytarabine", ANTIMETABOLITE},
	{"bevacizumab", ANTIANGIOGENIC},
	{"avastin", ANTIANGIOGENIC},
	{"nivolumab", IMMUNOTHERAPY},
	{"pembrolizumab", IMMUNOTHERAPY},
	{"ipilimumab", IMMUNOTHERAPY},
	{"dabrafenib", TARGETED_THERAPY},
	{"trametinib", TARGETED_THERAPY},
	{"vemurafenib", TARGETED_THERAPY},
	{"everolimus", TARGETED_THERAPY},
	{"selumetinib", TARGETED_THERAPY},
	{"larotrectinib", TARGETED_THERAPY},
	{"erlotinib", TARGETED_THERAPY},
}

// ClassifyDrugLabel maps a free-text drug name to its pharmacological class.
// Unrecognized labels map to UNKNOWN_DRUG_CLASS, never an error.
func ClassifyDrugLabel(label string) DrugClass {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return UNKNOWN_DRUG_CLASS
	}
	for _, entry := range drugClassKeywords {
		if strings.Contains(normalized, entry.keyword) {
			return entry.class
		}
	}
	return UNKNOWN_DRUG_CLASS
}

// ClassifyResponseLabel maps free-text imaging response language to a RANO
// category. Abbreviations (CR/PR/SD/PD) are matched as whole tokens so that
// e.g. "PD-L1" in a note does not read as progressive disease.
func ClassifyResponseLabel(label string) RANOCategory {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return UNKNOWN_RESPONSE
	}

	switch {
	case strings.Contains(normalized, "complete response"), strings.Contains(normalized, "complete remission"):
		return COMPLETE_RESPONSE
	case strings.Contains(normalized, "partial response"):
		return PARTIAL_RESPONSE
	case strings.Contains(normalized, "stable disease"), strings.Contains(normalized, "no change"):
		return STABLE_DISEASE
	case strings.Contains(normalized, "progressive disease"),
		strings.Contains(normalized, "progression"),
		strings.Contains(normalized, "disease progressed"),
		strings.Contains(normalized, "interval growth"):
		return PROGRESSIVE_DISEASE
	}

	for _, token := range strings.Fields(strings.ReplaceAll(normalized, ",", " ")) {
		switch token {
		case "cr":
			return COMPLETE_RESPONSE
		case "pr":
			return PARTIAL_RESPONSE
		case "sd":
			return STABLE_DISEASE
		case "pd":
			return PROGRESSIVE_DISEASE
		}
	}

	return UNKNOWN_RESPONSE
}

// ClassifyResectionLabel maps free-text extent-of-resection language to an
// ExtentOfResection value.
func ClassifyResectionLabel(label string) ExtentOfResection {
	normalized := strings.ToLower(strings.TrimSpace(label))
	switch {
	case normalized == "":
		return UNKNOWN_EOR
	case strings.Contains(normalized, "gross total"), strings.Contains(normalized, "gtr"), strings.Contains(normalized, "complete resection"):
		return GROSS_TOTAL_RESECTION
	case strings.Contains(normalized, "near total"), strings.Contains(normalized, "subtotal"), normalized == "str":
		return SUBTOTAL_RESECTION
	case strings.Contains(normalized, "partial"), strings.Contains(normalized, "debulking"):
		return PARTIAL_RESECTION
	case strings.Contains(normalized, "biopsy"):
		return BIOPSY_ONLY
	default:
		return UNKNOWN_EOR
	}
}

// NormalizeTargetVolume canonicalizes a radiation target volume description so
// that phase-boundary detection compares like with like. It lowercases, trims
// and collapses internal whitespace; it deliberately does not attempt anatomy
// synonym resolution.
func NormalizeTargetVolume(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
