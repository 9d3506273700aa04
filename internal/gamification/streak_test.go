package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

func TestComputeStreaksEmptyHistory(t *testing.T) {
	summary := ComputeStreaks(nil, time.Now())
	require.Equal(t, StreakSummary{}, summary)
}

func TestComputeStreaksSingleWorkoutToday(t *testing.T) {
	now := day(t, "2025-06-10").Add(18 * time.Hour)
	summary := ComputeStreaks([]time.Time{now.Add(-2 * time.Hour)}, now)
	require.Equal(t, StreakSummary{Current: 1, Longest: 1}, summary)
}

func TestComputeStreaksGracePeriod(t *testing.T) {
	now := day(t, "2025-06-10")
	history := []time.Time{
		day(t, "2025-06-09"),
		day(t, "2025-06-08"),
		day(t, "2025-06-07"),
	}

	summary := ComputeStreaks(history, now)
	require.Equal(t, 3, summary.Current, "a workout yesterday keeps the streak alive")
	require.Equal(t, 3, summary.Longest)
}

func TestComputeStreaksBreaksAfterTwoDayGap(t *testing.T) {
	// Workouts on T and T-1 only, evaluated at T+2.
	history := []time.Time{
		day(t, "2025-06-08"),
		day(t, "2025-06-07"),
	}

	summary := ComputeStreaks(history, day(t, "2025-06-10"))
	require.Equal(t, 0, summary.Current)
	require.Equal(t, 2, summary.Longest)
}

func TestComputeStreaksMultipleWorkoutsPerDayCountOnce(t *testing.T) {
	base := day(t, "2025-06-10")
	history := []time.Time{
		base.Add(7 * time.Hour),
		base.Add(19 * time.Hour),
		base.AddDate(0, 0, -1).Add(6 * time.Hour),
	}

	summary := ComputeStreaks(history, base.Add(20*time.Hour))
	require.Equal(t, 2, summary.Current)
	require.Equal(t, 2, summary.Longest)
}

func TestComputeStreaksLongestRunInOldHistory(t *testing.T) {
	now := day(t, "2025-06-10")
	history := []time.Time{
		day(t, "2025-06-10"),
		// Five-day run a month ago, longer than the active streak.
		day(t, "2025-05-05"),
		day(t, "2025-05-04"),
		day(t, "2025-05-03"),
		day(t, "2025-05-02"),
		day(t, "2025-05-01"),
	}

	summary := ComputeStreaks(history, now)
	require.Equal(t, 1, summary.Current)
	require.Equal(t, 5, summary.Longest)
}

func TestComputeStreaksUnsortedInput(t *testing.T) {
	now := day(t, "2025-06-10")
	history := []time.Time{
		day(t, "2025-06-08"),
		day(t, "2025-06-10"),
		day(t, "2025-06-09"),
	}

	summary := ComputeStreaks(history, now)
	require.Equal(t, 3, summary.Current)
	require.Equal(t, 3, summary.Longest)
}

func TestComputeStreaksLongestNeverBelowCurrent(t *testing.T) {
	now := day(t, "2025-06-10")
	histories := [][]time.Time{
		{day(t, "2025-06-10")},
		{day(t, "2025-06-10"), day(t, "2025-06-09")},
		{day(t, "2025-06-09"), day(t, "2025-06-05"), day(t, "2025-06-04")},
		{day(t, "2025-06-01")},
	}

	for _, history := range histories {
		summary := ComputeStreaks(history, now)
		require.GreaterOrEqual(t, summary.Longest, summary.Current)
	}
}
