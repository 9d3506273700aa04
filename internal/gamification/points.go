package gamification

import (
	"math"
	"sort"
)

// Point award constants. These are the tunable knobs of the scoring engine.
const (
	BaseWorkoutPoints = 10
	BuddyWorkoutBonus = 15
	PhotoBonusPoints  = 5
	PRBonusPoints     = 25
)

// consistencyTiers maps a minimum streak length to its points multiplier.
// Checked from the highest tier down; the first tier the streak meets wins.
var consistencyTiers = []struct {
	Days       int
	Multiplier float64
}{
	{365, 3.0},
	{100, 2.0},
	{60, 1.75},
	{30, 1.5},
	{14, 1.25},
	{7, 1.1},
}

// ConsistencyMultiplier returns the multiplier for the highest streak tier
// the given streak length meets or exceeds, or 1.0 below the first tier.
func ConsistencyMultiplier(streakDays int) float64 {
	for _, tier := range consistencyTiers {
		if streakDays >= tier.Days {
			return tier.Multiplier
		}
	}
	return 1.0
}

// WeightUnit identifies how a set's weight was recorded.
type WeightUnit string

const (
	UnitKg  WeightUnit = "kg"
	UnitLbs WeightUnit = "lbs"
)

const lbsPerKg = 2.20462

// Set is a single performed set within an exercise.
type Set struct {
	Reps   int        `json:"reps"`
	Weight float64    `json:"weight"`
	Unit   WeightUnit `json:"unit"`
}

// WeightKg returns the set weight normalised to kilograms.
func (s Set) WeightKg() float64 {
	if s.Unit == UnitLbs {
		return s.Weight / lbsPerKg
	}
	return s.Weight
}

// Exercise is a named exercise with its sets, embedded in a workout.
type Exercise struct {
	Name string `json:"name"`
	Sets []Set  `json:"sets"`
}

// PersonalRecord is the best known weight x reps performance for an exercise.
type PersonalRecord struct {
	Exercise string
	WeightKg float64
	Reps     int
}

// WorkoutContext carries the per-workout inputs to the points calculation.
type WorkoutContext struct {
	PairedWithBuddy bool
	PhotoCount      int
	Exercises       []Exercise
}

// PointsBreakdown itemises a single workout point award. Breakdown maps a
// label to each nonzero component and always sums to TotalPoints.
type PointsBreakdown struct {
	BasePoints            int
	BuddyBonus            int
	PhotoBonus            int
	ConsistencyBonus      int
	ProgressBonus         int
	ConsistencyMultiplier float64
	ComebackMultiplier    float64
	TotalPoints           int
	NewRecords            []PersonalRecord
	Breakdown             map[string]int
}

// CalculatePoints computes the point award for one workout.
//
// The additive phase sums base points, buddy bonus, and photo bonuses. The
// consistency bonus is round(subtotal * (multiplier-1)) over that subtotal
// only; the PR bonus is exempt from the consistency multiplier and added
// afterwards. The comeback multiplier then applies to the full subtotal
// including both bonuses, and the result is rounded to the nearest point.
func CalculatePoints(currentStreak int, workout WorkoutContext, records map[string]PersonalRecord, comebackMultiplier float64) PointsBreakdown {
	if comebackMultiplier < 1.0 {
		comebackMultiplier = 1.0
	}

	breakdown := PointsBreakdown{
		BasePoints:            BaseWorkoutPoints,
		ConsistencyMultiplier: ConsistencyMultiplier(currentStreak),
		ComebackMultiplier:    comebackMultiplier,
		Breakdown:             make(map[string]int),
	}

	if workout.PairedWithBuddy {
		breakdown.BuddyBonus = BuddyWorkoutBonus
	}
	breakdown.PhotoBonus = PhotoBonusPoints * workout.PhotoCount

	breakdown.NewRecords = DetectRecords(workout.Exercises, records)
	breakdown.ProgressBonus = PRBonusPoints * len(breakdown.NewRecords)

	subtotal := breakdown.BasePoints + breakdown.BuddyBonus + breakdown.PhotoBonus
	breakdown.ConsistencyBonus = roundToInt(float64(subtotal) * (breakdown.ConsistencyMultiplier - 1))

	preComeback := subtotal + breakdown.ConsistencyBonus + breakdown.ProgressBonus
	breakdown.TotalPoints = roundToInt(float64(preComeback) * comebackMultiplier)

	breakdown.Breakdown["base"] = breakdown.BasePoints
	if breakdown.BuddyBonus > 0 {
		breakdown.Breakdown["buddy_bonus"] = breakdown.BuddyBonus
	}
	if breakdown.PhotoBonus > 0 {
		breakdown.Breakdown["photo_bonus"] = breakdown.PhotoBonus
	}
	if breakdown.ConsistencyBonus > 0 {
		breakdown.Breakdown["consistency_bonus"] = breakdown.ConsistencyBonus
	}
	if breakdown.ProgressBonus > 0 {
		breakdown.Breakdown["personal_record_bonus"] = breakdown.ProgressBonus
	}
	if comeback := breakdown.TotalPoints - preComeback; comeback != 0 {
		breakdown.Breakdown["comeback_bonus"] = comeback
	}

	return breakdown
}

// DetectRecords finds the personal records set by a workout. For each
// exercise only the single best set counts: the one with maximal volume
// (weight x reps, lbs normalised to kg). A record is broken when the best
// set strictly improves on the stored record, comparing weight first and
// breaking ties by reps. Exercises with no stored record set an initial one.
func DetectRecords(exercises []Exercise, existing map[string]PersonalRecord) []PersonalRecord {
	var broken []PersonalRecord
	seen := make(map[string]struct{}, len(exercises))

	for _, exercise := range exercises {
		if _, done := seen[exercise.Name]; done {
			continue
		}
		seen[exercise.Name] = struct{}{}

		best, ok := bestSet(exercise.Sets)
		if !ok {
			continue
		}

		candidate := PersonalRecord{
			Exercise: exercise.Name,
			WeightKg: best.WeightKg(),
			Reps:     best.Reps,
		}

		record, has := existing[exercise.Name]
		if !has || beatsRecord(candidate, record) {
			broken = append(broken, candidate)
		}
	}

	sort.Slice(broken, func(i, j int) bool { return broken[i].Exercise < broken[j].Exercise })
	return broken
}

// bestSet picks the set with the highest volume. Ties keep the earlier set.
func bestSet(sets []Set) (Set, bool) {
	var best Set
	found := false
	for _, set := range sets {
		if set.Reps <= 0 || set.Weight < 0 {
			continue
		}
		if !found || set.WeightKg()*float64(set.Reps) > best.WeightKg()*float64(best.Reps) {
			best = set
			found = true
		}
	}
	return best, found
}

func beatsRecord(candidate, record PersonalRecord) bool {
	if candidate.WeightKg != record.WeightKg {
		return candidate.WeightKg > record.WeightKg
	}
	return candidate.Reps > record.Reps
}

func roundToInt(v float64) int {
	return int(math.Round(v))
}
