package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOccurrencesPerMonth(t *testing.T) {
	cases := []struct {
		freq     Frequency
		expected int64
	}{
		{FrequencyDaily, 30},
		{FrequencyEvery2Days, 15},
		{FrequencyEvery3Days, 10},
		{FrequencyWeekly, 4},
		{FrequencyEvery15Days, 2},
		{FrequencyMonthly, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, c.freq.OccurrencesPerMonth(), "frequency %s", c.freq)
		assert.True(t, c.freq.Valid())
		assert.NotEmpty(t, c.freq.ShortLabel())
	}
}

func TestUnknownFrequency(t *testing.T) {
	bogus := Frequency("fortnightly")
	assert.False(t, bogus.Valid())
	assert.Equal(t, int64(0), bogus.OccurrencesPerMonth())
}
