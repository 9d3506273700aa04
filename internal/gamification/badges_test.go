package gamification

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBadgeProgressStreak(t *testing.T) {
	criteria := StreakCriteria{Days: 30}

	require.InDelta(t, 50.0, BadgeProgress(criteria, UserProgress{LongestStreak: 15}), 0.001)
	require.Equal(t, 100.0, BadgeProgress(criteria, UserProgress{LongestStreak: 30}))
	require.Equal(t, 100.0, BadgeProgress(criteria, UserProgress{LongestStreak: 90}), "clamped at 100")
	require.Equal(t, 0.0, BadgeProgress(criteria, UserProgress{}))
}

func TestBadgeProgressTotalWorkouts(t *testing.T) {
	criteria := TotalWorkoutsCriteria{Count: 100}

	require.InDelta(t, 25.0, BadgeProgress(criteria, UserProgress{TotalWorkouts: 25}), 0.001)
	require.Equal(t, 0.0, BadgeProgress(criteria, UserProgress{}), "zero history reports zero progress")
}

func TestBadgeProgressWeightLoss(t *testing.T) {
	criteria := WeightLossCriteria{TargetPct: 10}

	// 5% lost of a 10% target.
	progress := UserProgress{StartingWeightKg: 100, CurrentWeightKg: 95}
	require.InDelta(t, 50.0, BadgeProgress(criteria, progress), 0.001)

	// Weight gained: a loss badge accrues nothing.
	progress = UserProgress{StartingWeightKg: 100, CurrentWeightKg: 105}
	require.Equal(t, 0.0, BadgeProgress(criteria, progress))

	// Target exceeded clamps to 100.
	progress = UserProgress{StartingWeightKg: 100, CurrentWeightKg: 80}
	require.Equal(t, 100.0, BadgeProgress(criteria, progress))
}

func TestBadgeProgressWeightGain(t *testing.T) {
	criteria := WeightGainCriteria{TargetPct: 5}

	progress := UserProgress{StartingWeightKg: 60, CurrentWeightKg: 61.5}
	require.InDelta(t, 50.0, BadgeProgress(criteria, progress), 0.001)

	progress = UserProgress{StartingWeightKg: 60, CurrentWeightKg: 58}
	require.Equal(t, 0.0, BadgeProgress(criteria, progress))
}

type unknownCriteria struct{}

func (unknownCriteria) badgeCriteria() {}

func TestBadgeProgressUnknownCriteriaReportsZero(t *testing.T) {
	require.Equal(t, 0.0, BadgeProgress(unknownCriteria{}, UserProgress{LongestStreak: 100, TotalWorkouts: 100}))
}

func TestBadgeProgressMissingStartingWeight(t *testing.T) {
	criteria := WeightLossCriteria{TargetPct: 10}
	require.Equal(t, 0.0, BadgeProgress(criteria, UserProgress{CurrentWeightKg: 80}))
}
