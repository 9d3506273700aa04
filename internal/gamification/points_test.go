package gamification

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sumBreakdown(b PointsBreakdown) int {
	total := 0
	for _, v := range b.Breakdown {
		total += v
	}
	return total
}

func TestCalculatePointsBaseOnly(t *testing.T) {
	b := CalculatePoints(0, WorkoutContext{}, nil, 1.0)

	require.Equal(t, BaseWorkoutPoints, b.BasePoints)
	require.Equal(t, 0, b.BuddyBonus)
	require.Equal(t, 0, b.PhotoBonus)
	require.Equal(t, 0, b.ConsistencyBonus)
	require.Equal(t, 0, b.ProgressBonus)
	require.Equal(t, BaseWorkoutPoints, b.TotalPoints)
	require.Equal(t, b.TotalPoints, sumBreakdown(b))
}

func TestCalculatePointsFourteenDayStreakScenario(t *testing.T) {
	// Streak 14, buddy workout, one photo, one PR (100kg x 5 over 90kg x 5).
	workout := WorkoutContext{
		PairedWithBuddy: true,
		PhotoCount:      1,
		Exercises: []Exercise{
			{Name: "deadlift", Sets: []Set{{Reps: 5, Weight: 100, Unit: UnitKg}}},
		},
	}
	records := map[string]PersonalRecord{
		"deadlift": {Exercise: "deadlift", WeightKg: 90, Reps: 5},
	}

	b := CalculatePoints(14, workout, records, 1.0)

	require.Equal(t, 10, b.BasePoints)
	require.Equal(t, 15, b.BuddyBonus)
	require.Equal(t, 5, b.PhotoBonus)
	require.Equal(t, 1.25, b.ConsistencyMultiplier)
	require.Equal(t, 8, b.ConsistencyBonus, "round(30 * 0.25)")
	require.Equal(t, 25, b.ProgressBonus)
	require.Equal(t, 63, b.TotalPoints)
	require.Equal(t, b.TotalPoints, sumBreakdown(b))
}

func TestCalculatePointsComebackMultiplierScenario(t *testing.T) {
	workout := WorkoutContext{
		PairedWithBuddy: true,
		PhotoCount:      1,
		Exercises: []Exercise{
			{Name: "deadlift", Sets: []Set{{Reps: 5, Weight: 100, Unit: UnitKg}}},
		},
	}
	records := map[string]PersonalRecord{
		"deadlift": {Exercise: "deadlift", WeightKg: 90, Reps: 5},
	}

	b := CalculatePoints(14, workout, records, 1.5)

	// Comeback applies to the full subtotal including PR and consistency bonus.
	require.Equal(t, 95, b.TotalPoints)
	require.Equal(t, b.TotalPoints, sumBreakdown(b))
	require.Equal(t, 32, b.Breakdown["comeback_bonus"])
}

func TestCalculatePointsConsistencyExcludesPRBonus(t *testing.T) {
	workout := WorkoutContext{
		Exercises: []Exercise{
			{Name: "squat", Sets: []Set{{Reps: 5, Weight: 120, Unit: UnitKg}}},
		},
	}

	b := CalculatePoints(30, workout, map[string]PersonalRecord{}, 1.0)

	// Subtotal 10 at the 1.5x tier; the 25-point PR bonus stays outside it.
	require.Equal(t, 5, b.ConsistencyBonus)
	require.Equal(t, 25, b.ProgressBonus)
	require.Equal(t, 40, b.TotalPoints)
}

func TestCalculatePointsSubUnityComebackClamped(t *testing.T) {
	b := CalculatePoints(0, WorkoutContext{}, nil, 0.5)
	require.Equal(t, 1.0, b.ComebackMultiplier)
	require.Equal(t, BaseWorkoutPoints, b.TotalPoints)
}

func TestCalculatePointsBreakdownSumsAcrossTiers(t *testing.T) {
	workout := WorkoutContext{
		PairedWithBuddy: true,
		PhotoCount:      3,
		Exercises: []Exercise{
			{Name: "bench", Sets: []Set{{Reps: 8, Weight: 80, Unit: UnitKg}}},
			{Name: "row", Sets: []Set{{Reps: 10, Weight: 60, Unit: UnitKg}}},
		},
	}

	for _, streak := range []int{0, 6, 7, 14, 30, 60, 100, 365, 400} {
		for _, comeback := range []float64{1.0, 1.2, 1.5} {
			b := CalculatePoints(streak, workout, map[string]PersonalRecord{}, comeback)
			require.Equal(t, b.TotalPoints, sumBreakdown(b), "streak=%d comeback=%.2f", streak, comeback)
		}
	}
}

func TestConsistencyMultiplierTiers(t *testing.T) {
	cases := map[int]float64{
		0:   1.0,
		6:   1.0,
		7:   1.1,
		13:  1.1,
		14:  1.25,
		29:  1.25,
		30:  1.5,
		60:  1.75,
		99:  1.75,
		100: 2.0,
		364: 2.0,
		365: 3.0,
		999: 3.0,
	}
	for streak, want := range cases {
		require.Equal(t, want, ConsistencyMultiplier(streak), "streak %d", streak)
	}
}

func TestDetectRecordsOnlyBestSetCounts(t *testing.T) {
	exercises := []Exercise{
		{Name: "squat", Sets: []Set{
			{Reps: 5, Weight: 100, Unit: UnitKg},
			{Reps: 5, Weight: 110, Unit: UnitKg},
			{Reps: 3, Weight: 105, Unit: UnitKg},
		}},
	}
	records := map[string]PersonalRecord{
		"squat": {Exercise: "squat", WeightKg: 100, Reps: 5},
	}

	broken := DetectRecords(exercises, records)
	require.Len(t, broken, 1, "multiple improving sets still count as one PR")
	require.Equal(t, 110.0, broken[0].WeightKg)
	require.Equal(t, 5, broken[0].Reps)
}

func TestDetectRecordsWeightBeforeReps(t *testing.T) {
	records := map[string]PersonalRecord{
		"press": {Exercise: "press", WeightKg: 60, Reps: 5},
	}

	// Same weight, more reps breaks the record.
	broken := DetectRecords([]Exercise{
		{Name: "press", Sets: []Set{{Reps: 6, Weight: 60, Unit: UnitKg}}},
	}, records)
	require.Len(t, broken, 1)

	// Same weight, same reps does not.
	broken = DetectRecords([]Exercise{
		{Name: "press", Sets: []Set{{Reps: 5, Weight: 60, Unit: UnitKg}}},
	}, records)
	require.Empty(t, broken)

	// Lower weight with huge volume does not.
	broken = DetectRecords([]Exercise{
		{Name: "press", Sets: []Set{{Reps: 20, Weight: 50, Unit: UnitKg}}},
	}, records)
	require.Empty(t, broken)
}

func TestDetectRecordsFirstEverSetsRecord(t *testing.T) {
	broken := DetectRecords([]Exercise{
		{Name: "curl", Sets: []Set{{Reps: 10, Weight: 20, Unit: UnitKg}}},
	}, map[string]PersonalRecord{})
	require.Len(t, broken, 1)
	require.Equal(t, "curl", broken[0].Exercise)
}

func TestDetectRecordsNormalisesPounds(t *testing.T) {
	records := map[string]PersonalRecord{
		"bench": {Exercise: "bench", WeightKg: 100, Reps: 5},
	}

	// 225 lbs is about 102 kg.
	broken := DetectRecords([]Exercise{
		{Name: "bench", Sets: []Set{{Reps: 5, Weight: 225, Unit: UnitLbs}}},
	}, records)
	require.Len(t, broken, 1)
	require.InDelta(t, 102.06, broken[0].WeightKg, 0.1)
}

func TestDetectRecordsDuplicateExerciseEntriesCountOnce(t *testing.T) {
	exercises := []Exercise{
		{Name: "squat", Sets: []Set{{Reps: 5, Weight: 110, Unit: UnitKg}}},
		{Name: "squat", Sets: []Set{{Reps: 5, Weight: 120, Unit: UnitKg}}},
	}

	broken := DetectRecords(exercises, map[string]PersonalRecord{})
	require.Len(t, broken, 1)
}

func TestLevelFromPointsMonotonic(t *testing.T) {
	require.Equal(t, 1, LevelFromPoints(0))
	require.Equal(t, 1, LevelFromPoints(99))
	require.Equal(t, 2, LevelFromPoints(100))
	require.Equal(t, 10, LevelFromPoints(11000))

	previous := 0
	for points := 0; points <= 50000; points += 137 {
		level := LevelFromPoints(points)
		require.GreaterOrEqual(t, level, previous, "points %d", points)
		previous = level
	}
}
