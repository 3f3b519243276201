package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOccurrencePresets(t *testing.T) {
	last := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	next, err := NextOccurrence(PatternDaily, last)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), next)

	next, err = NextOccurrence(PatternWeekly, last)
	require.NoError(t, err)
	assert.Equal(t, last.Add(7*24*time.Hour), next)

	// monthly and yearly are fixed-length offsets, not calendar months/years
	next, err = NextOccurrence(PatternMonthly, last)
	require.NoError(t, err)
	assert.Equal(t, last.Add(30*24*time.Hour), next)

	next, err = NextOccurrence(PatternYearly, last)
	require.NoError(t, err)
	assert.Equal(t, last.Add(365*24*time.Hour), next)
}

func TestNextOccurrenceStrictlyIncreasing(t *testing.T) {
	for _, pattern := range []string{PatternDaily, PatternWeekly, PatternMonthly, PatternYearly} {
		current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			next, err := NextOccurrence(pattern, current)
			require.NoError(t, err)
			assert.True(t, next.After(current), "pattern %s must strictly advance", pattern)
			current = next
		}
	}
}

func TestNextOccurrenceCronExpression(t *testing.T) {
	next, err := NextOccurrence("0 9 * * MON-FRI", time.Now())
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 9, next.Hour())
	assert.NotEqual(t, time.Saturday, next.Weekday())
	assert.NotEqual(t, time.Sunday, next.Weekday())
}

func TestNextOccurrenceInvalidPattern(t *testing.T) {
	_, err := NextOccurrence("not a pattern", time.Now())
	assert.Error(t, err)
}

func TestNextOccurrenceCronDateNeverFires(t *testing.T) {
	// day 30 in February parses as a valid field value but never lands on a
	// real date, so the search for the next occurrence comes up empty
	_, err := NextOccurrence("0 0 30 2 *", time.Now())
	assert.Error(t, err)

	occurrences, err := Upcoming("0 0 30 2 *", 3)
	require.NoError(t, err)
	assert.Empty(t, occurrences)
}

func TestUpcomingPresetCount(t *testing.T) {
	occurrences, err := Upcoming(PatternDaily, 3)
	require.NoError(t, err)
	require.Len(t, occurrences, 3)
	for i := 1; i < len(occurrences); i++ {
		assert.Equal(t, 24*time.Hour, occurrences[i].Sub(occurrences[i-1]))
	}
}

func TestUpcomingCron(t *testing.T) {
	occurrences, err := Upcoming("0 0 1 * *", 2)
	require.NoError(t, err)
	require.Len(t, occurrences, 2)
	assert.True(t, occurrences[1].After(occurrences[0]))
	assert.Equal(t, 1, occurrences[0].Day())
}

func TestValidPattern(t *testing.T) {
	assert.True(t, ValidPattern("weekly"))
	assert.True(t, ValidPattern("0 9 * * MON-FRI"))
	assert.False(t, ValidPattern("every other blue moon"))
}
