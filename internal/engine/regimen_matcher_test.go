package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapy-abstraction-server/internal/domain"
	"github.com/therapy-abstraction-server/internal/knowledge"
)

func newTestMatcher() *RegimenMatcher {
	return NewRegimenMatcher(testLogger(), knowledge.NewBase(), DefaultConfig())
}

// stuppDraft is a complete first-line high-grade glioma course: resection,
// concurrent chemoradiation to 60 Gy, adjuvant temozolomide.
func stuppDraft() *LineDraft {
	events := []domain.TimelineEvent{
		{ID: "ev-surg", Type: domain.SURGERY, Date: day(0)},
	}
	for i := 0; i < 30; i++ {
		events = append(events, radiationEvent("ev-rt-"+string(rune('a'+i/10))+string(rune('0'+i%10)), day(14+i), 2.0, "tumor bed"))
	}
	events = append(events,
		chemoEvent("ev-tmz-1", day(14), "temozolomide"),
		chemoEvent("ev-tmz-2", day(28), "temozolomide"),
		chemoEvent("ev-tmz-3", day(75), "temozolomide"),
	)
	return makeDraft(events...)
}

func TestMatchStuppHighConfidence(t *testing.T) {
	matcher := newTestMatcher()
	age := 54

	regimen, intent := matcher.Match(stuppDraft(), "glioblastoma, IDH-wildtype", &age, 1)

	require.NotNil(t, regimen)
	assert.Contains(t, regimen.RegimenName, "Stupp")
	assert.Equal(t, domain.HIGH, regimen.MatchConfidence)
	assert.Equal(t, domain.STANDARD_OF_CARE, regimen.EvidenceLevel)
	assert.Equal(t, 100, regimen.MatchScore)
	assert.Empty(t, regimen.Deviations)
	assert.Equal(t, domain.CURATIVE, intent)
}

func TestMatchMissingSurgeryRecordsDeviation(t *testing.T) {
	matcher := newTestMatcher()
	age := 67

	var events []domain.TimelineEvent
	for i := 0; i < 30; i++ {
		events = append(events, radiationEvent("ev-rt-"+string(rune('a'+i/10))+string(rune('0'+i%10)), day(i), 2.0, "tumor bed"))
	}
	events = append(events, chemoEvent("ev-tmz", day(0), "temozolomide"))

	regimen, _ := matcher.Match(makeDraft(events...), "glioblastoma", &age, 1)

	require.NotNil(t, regimen)
	assert.Contains(t, regimen.RegimenName, "Stupp")
	assert.Equal(t, domain.MEDIUM, regimen.MatchConfidence)

	require.NotEmpty(t, regimen.Deviations)
	found := false
	for _, d := range regimen.Deviations {
		if d.ClinicalSignificance == domain.PROTOCOL_DEVIATION {
			assert.Contains(t, d.Description, "surgical resection")
			found = true
		}
	}
	assert.True(t, found, "missing surgery should be a protocol deviation")
}

func TestMatchDoseDeescalationIsStandardVariation(t *testing.T) {
	matcher := newTestMatcher()
	age := 54

	events := []domain.TimelineEvent{
		{ID: "ev-surg", Type: domain.SURGERY, Date: day(0)},
		chemoEvent("ev-tmz", day(14), "temozolomide"),
	}
	// 45 Gy: below the 54 Gy floor but above 80% of it.
	for i := 0; i < 25; i++ {
		events = append(events, radiationEvent("ev-rt-"+string(rune('a'+i/10))+string(rune('0'+i%10)), day(14+i), 1.8, "tumor bed"))
	}

	regimen, _ := matcher.Match(makeDraft(events...), "glioblastoma", &age, 1)

	require.NotNil(t, regimen)
	found := false
	for _, d := range regimen.Deviations {
		if d.Rationale == "dose de-escalation" {
			assert.Equal(t, domain.STANDARD_VARIATION, d.ClinicalSignificance)
			found = true
		}
	}
	assert.True(t, found, "modest dose shortfall should be a standard variation")
}

func TestMatchNothingSynthesizesDescription(t *testing.T) {
	matcher := newTestMatcher()
	age := 45

	draft := makeDraft(
		chemoEvent("ev-mtx-1", day(0), "methotrexate"),
		chemoEvent("ev-mtx-2", day(14), "methotrexate"),
	)

	regimen, intent := matcher.Match(draft, "ependymoma", &age, 2)

	require.NotNil(t, regimen)
	assert.Equal(t, domain.NO_MATCH, regimen.MatchConfidence)
	assert.Contains(t, regimen.RegimenName, "methotrexate")
	assert.Empty(t, regimen.ProtocolReference)
	assert.Equal(t, domain.EvidenceLevel(""), regimen.EvidenceLevel)
	assert.Equal(t, domain.PALLIATIVE, intent)
}

func TestMatchSynthesizedNameOrdersComponents(t *testing.T) {
	matcher := newTestMatcher()

	draft := makeDraft(
		domain.TimelineEvent{ID: "ev-surg", Type: domain.SURGERY, Date: day(0)},
		chemoEvent("ev-mtx", day(10), "methotrexate"),
		radiationEvent("ev-rt", day(20), 20.0, "spine"),
	)

	regimen, intent := matcher.Match(draft, "ependymoma", nil, 1)

	require.NotNil(t, regimen)
	assert.Equal(t, domain.NO_MATCH, regimen.MatchConfidence)
	assert.Contains(t, regimen.RegimenName, "Surgery")
	assert.Contains(t, regimen.RegimenName, "methotrexate")
	assert.Contains(t, regimen.RegimenName, "radiation 20.0 Gy")
	assert.Equal(t, domain.CURATIVE, intent, "unmatched first line is presumed curative")
}

func TestMatchAgeEligibilityFiltersPediatricProtocols(t *testing.T) {
	matcher := newTestMatcher()
	adult := 40

	draft := makeDraft(
		domain.TimelineEvent{ID: "ev-surg", Type: domain.SURGERY, Date: day(0)},
		chemoEvent("ev-cis", day(30), "cisplatin"),
		chemoEvent("ev-vcr", day(31), "vincristine"),
		chemoEvent("ev-ccnu", day(32), "lomustine"),
	)

	regimen, _ := matcher.Match(draft, "medulloblastoma", &adult, 1)

	require.NotNil(t, regimen)
	assert.NotContains(t, regimen.RegimenName, "Packer",
		"Packer regimen is age-capped at 21")
}

func TestPickBestIsDeterministic(t *testing.T) {
	age := 54
	matcher := newTestMatcher()

	var first string
	for i := 0; i < 10; i++ {
		regimen, _ := matcher.Match(stuppDraft(), "glioblastoma", &age, 1)
		require.NotNil(t, regimen)
		if i == 0 {
			first = regimen.RegimenName
			continue
		}
		assert.Equal(t, first, regimen.RegimenName)
	}
}
