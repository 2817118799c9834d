package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":            "dQw4w9WgXcQ",
		"youtube.com/watch?v=dQw4w9WgXcQ&t=42":                   "dQw4w9WgXcQ",
		"https://m.youtube.com/watch?feature=share&v=abc12345678": "abc12345678",
		"https://youtu.be/abc12345678":                            "abc12345678",
		"https://www.youtube.com/embed/abc-_234567":               "abc-_234567",
		"https://youtube.com/shorts/abc12345678":                  "abc12345678",
	}
	for in, want := range cases {
		got, err := ExtractVideoID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestExtractVideoID_Invalid(t *testing.T) {
	for _, in := range []string{"", "https://vimeo.com/12345", "https://youtube.com/watch?v=short"} {
		_, err := ExtractVideoID(in)
		assert.True(t, errors.Is(err, ErrInvalidVideoURL), in)
	}
}

func TestParseISODuration(t *testing.T) {
	assert.Equal(t, 5415, ParseISODuration("PT1H30M15S"))
	assert.Equal(t, 300, ParseISODuration("PT5M"))
	assert.Equal(t, 42, ParseISODuration("PT42S"))
	assert.Equal(t, 86400, ParseISODuration("P1D"))
	assert.Equal(t, 93780, ParseISODuration("P1DT2H3M"))
	assert.Equal(t, 0, ParseISODuration("P0D"))
	assert.Equal(t, 0, ParseISODuration(""))
	assert.Equal(t, 0, ParseISODuration("PT"))
	assert.Equal(t, 0, ParseISODuration("1H"))
	assert.Equal(t, 1563, MinutesFromSeconds(ParseISODuration("P1DT2H3M")))
}

func TestMinutesFromSeconds(t *testing.T) {
	assert.Equal(t, 1, MinutesFromSeconds(0))
	assert.Equal(t, 1, MinutesFromSeconds(20))
	assert.Equal(t, 5, MinutesFromSeconds(300))
	assert.Equal(t, 6, MinutesFromSeconds(330))
}

func TestJobStatusTransitions(t *testing.T) {
	assert.True(t, JobStatusPending.CanTransition(JobStatusProcessing))
	assert.True(t, JobStatusPending.CanTransition(JobStatusFailed))
	assert.True(t, JobStatusProcessing.CanTransition(JobStatusCompleted))
	assert.False(t, JobStatusCompleted.CanTransition(JobStatusFailed))
	assert.False(t, JobStatusFailed.CanTransition(JobStatusProcessing))
}

func TestQuotaRecord_CheckFits(t *testing.T) {
	q := &QuotaRecord{MinutesUsed: 29, MinutesLimit: 30}
	err := q.CheckFits(5)
	var qe *QuotaExceededError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 4, qe.Deficit)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))

	assert.NoError(t, q.CheckFits(1))
	assert.Equal(t, 1, q.Remaining())
	assert.Equal(t, 96, q.PercentageUsed())

	unlimited := &QuotaRecord{MinutesUsed: 5000, MinutesLimit: Unlimited}
	assert.NoError(t, unlimited.CheckFits(600))
	assert.Equal(t, 0, unlimited.PercentageUsed())
}

func TestPlanCatalog_LimitFor(t *testing.T) {
	c := PlanCatalog{PlanFree: 30, PlanPro: 100}
	assert.Equal(t, 100, c.LimitFor(PlanPro))
	assert.Equal(t, 30, c.LimitFor("platinum"))
	assert.Equal(t, PlanFree, NormalizePlanTier(" "))
	assert.Equal(t, PlanPro, NormalizePlanTier("PRO"))
}
