package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therapy-abstraction-server/internal/domain"
)

func TestCalculatePFSFromFlaggedAssessment(t *testing.T) {
	calc := NewEndpointCalculator(testLogger())

	lines := []domain.TreatmentLine{
		{
			LineNumber: 1,
			StartDate:  day(0),
			EndDate:    day(100),
			ResponseAssessments: []domain.ResponseAssessment{
				{Date: day(60), Category: domain.STABLE_DISEASE},
				{Date: day(110), Category: domain.PROGRESSIVE_DISEASE, LedToLineChange: true},
			},
			Discontinuation: &domain.Discontinuation{Reason: domain.DISEASE_PROGRESSION, Date: day(100)},
		},
		{LineNumber: 2, StartDate: day(130)},
	}

	endpoints := calc.Calculate(lines, day(-10), *day(365))

	require.Len(t, endpoints.PerLine, 2)
	require.NotNil(t, endpoints.PerLine[0].ProgressionFreeSurvivalDays)
	assert.Equal(t, 110, *endpoints.PerLine[0].ProgressionFreeSurvivalDays)
	assert.Equal(t, domain.STABLE_DISEASE, endpoints.PerLine[0].BestResponse)

	// PFS propagates onto the discontinuation record.
	require.NotNil(t, lines[0].Discontinuation.ProgressionFreeSurvivalDays)
	assert.Equal(t, 110, *lines[0].Discontinuation.ProgressionFreeSurvivalDays)

	// 10 days from diagnosis to line start, plus 110 days on treatment.
	require.NotNil(t, endpoints.TimeToFirstProgressionDays)
	assert.Equal(t, 120, *endpoints.TimeToFirstProgressionDays)
}

func TestCalculatePFSFromDiscontinuationFallback(t *testing.T) {
	calc := NewEndpointCalculator(testLogger())

	lines := []domain.TreatmentLine{
		{
			LineNumber:      1,
			StartDate:       day(0),
			EndDate:         day(90),
			Discontinuation: &domain.Discontinuation{Reason: domain.DISEASE_PROGRESSION, Date: day(90)},
		},
	}

	endpoints := calc.Calculate(lines, day(0), *day(365))

	require.NotNil(t, endpoints.PerLine[0].ProgressionFreeSurvivalDays)
	assert.Equal(t, 90, *endpoints.PerLine[0].ProgressionFreeSurvivalDays)
}

func TestCalculateNoPFSWithoutProgression(t *testing.T) {
	calc := NewEndpointCalculator(testLogger())

	lines := []domain.TreatmentLine{
		{
			LineNumber:      1,
			StartDate:       day(0),
			EndDate:         day(90),
			Discontinuation: &domain.Discontinuation{Reason: domain.TOXICITY_INTOLERANCE, Date: day(90)},
			ResponseAssessments: []domain.ResponseAssessment{
				{Date: day(60), Category: domain.PARTIAL_RESPONSE},
			},
		},
	}

	endpoints := calc.Calculate(lines, day(0), *day(365))

	assert.Nil(t, endpoints.PerLine[0].ProgressionFreeSurvivalDays)
	assert.Nil(t, endpoints.TimeToFirstProgressionDays)
	assert.Equal(t, domain.PARTIAL_RESPONSE, endpoints.PerLine[0].BestResponse)
}

func TestCalculateOngoingLineDuration(t *testing.T) {
	calc := NewEndpointCalculator(testLogger())

	lines := []domain.TreatmentLine{
		{LineNumber: 1, StartDate: day(0)},
	}

	endpoints := calc.Calculate(lines, day(0), *day(200))

	require.NotNil(t, endpoints.PerLine[0].DurationDays)
	assert.Equal(t, 200, *endpoints.PerLine[0].DurationDays)
}

func TestCalculateBestResponseRanking(t *testing.T) {
	tests := []struct {
		name        string
		assessments []domain.ResponseAssessment
		want        domain.RANOCategory
	}{
		{
			"complete beats partial",
			[]domain.ResponseAssessment{
				{Category: domain.PARTIAL_RESPONSE},
				{Category: domain.COMPLETE_RESPONSE},
				{Category: domain.PROGRESSIVE_DISEASE},
			},
			domain.COMPLETE_RESPONSE,
		},
		{
			"progression alone",
			[]domain.ResponseAssessment{{Category: domain.PROGRESSIVE_DISEASE}},
			domain.PROGRESSIVE_DISEASE,
		},
		{
			"no assessments",
			nil,
			domain.UNKNOWN_RESPONSE,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bestResponse(tt.assessments))
		})
	}
}

func TestCalculateOverallSurvivalStaysNil(t *testing.T) {
	calc := NewEndpointCalculator(testLogger())

	endpoints := calc.Calculate([]domain.TreatmentLine{
		{LineNumber: 1, StartDate: day(0)},
	}, day(0), *day(100))

	assert.Nil(t, endpoints.OverallSurvivalDays, "no vital-status input exists at this layer")
}
