package schedule

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mailpilot/backend/internal/apperr"
)

// Recurrence presets. Monthly and yearly use fixed-length offsets rather than
// calendar arithmetic; changing that would shift every stored recurrence date.
const (
	PatternDaily   = "daily"
	PatternWeekly  = "weekly"
	PatternMonthly = "monthly"
	PatternYearly  = "yearly"
)

var presetOffsets = map[string]time.Duration{
	PatternDaily:   24 * time.Hour,
	PatternWeekly:  7 * 24 * time.Hour,
	PatternMonthly: 30 * 24 * time.Hour,
	PatternYearly:  365 * 24 * time.Hour,
}

// NextOccurrence computes when a recurrence pattern fires next after last.
// Presets add their fixed offset to last; any other pattern is parsed as a
// standard 5-field cron expression and resolved against the current time.
func NextOccurrence(pattern string, last time.Time) (time.Time, error) {
	if offset, ok := presetOffsets[pattern]; ok {
		return last.Add(offset), nil
	}
	sched, err := cron.ParseStandard(pattern)
	if err != nil {
		return time.Time{}, apperr.Config("invalid recurrence pattern "+pattern, err)
	}
	next := sched.Next(time.Now().UTC())
	if next.IsZero() {
		return time.Time{}, apperr.Config("no upcoming occurrence for pattern "+pattern, nil)
	}
	return next, nil
}

// Upcoming returns the next n occurrences of a pattern, anchored at now.
func Upcoming(pattern string, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	occurrences := make([]time.Time, 0, n)
	if offset, ok := presetOffsets[pattern]; ok {
		current := time.Now().UTC()
		for i := 0; i < n; i++ {
			current = current.Add(offset)
			occurrences = append(occurrences, current)
		}
		return occurrences, nil
	}
	sched, err := cron.ParseStandard(pattern)
	if err != nil {
		return nil, apperr.Config("invalid recurrence pattern "+pattern, err)
	}
	t := time.Now().UTC()
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		occurrences = append(occurrences, t)
	}
	return occurrences, nil
}

// ValidPattern reports whether pattern is a preset or a parseable cron expression.
func ValidPattern(pattern string) bool {
	if _, ok := presetOffsets[pattern]; ok {
		return true
	}
	_, err := cron.ParseStandard(pattern)
	return err == nil
}
