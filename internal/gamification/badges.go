package gamification

// BadgeCriteria is the closed set of badge rule kinds. Each variant carries
// its own strongly typed parameters; evaluation dispatches exhaustively and
// unknown kinds report zero progress instead of erroring.
type BadgeCriteria interface {
	badgeCriteria()
}

// StreakCriteria is earned by reaching a longest streak of Days.
type StreakCriteria struct {
	Days int
}

// TotalWorkoutsCriteria is earned by logging Count workouts.
type TotalWorkoutsCriteria struct {
	Count int
}

// WeightLossCriteria is earned by losing TargetPct percent of starting weight.
type WeightLossCriteria struct {
	TargetPct float64
}

// WeightGainCriteria is earned by gaining TargetPct percent of starting weight.
type WeightGainCriteria struct {
	TargetPct float64
}

func (StreakCriteria) badgeCriteria()        {}
func (TotalWorkoutsCriteria) badgeCriteria() {}
func (WeightLossCriteria) badgeCriteria()    {}
func (WeightGainCriteria) badgeCriteria()    {}

// UserProgress is the live statistics snapshot badge criteria evaluate
// against.
type UserProgress struct {
	LongestStreak    int
	TotalWorkouts    int
	StartingWeightKg float64
	CurrentWeightKg  float64
}

// BadgeProgress returns the completion percentage in [0, 100] for a badge
// criteria against the user's statistics. Weight badges only accrue progress
// while the weight change points in the badge's direction.
func BadgeProgress(criteria BadgeCriteria, progress UserProgress) float64 {
	switch c := criteria.(type) {
	case StreakCriteria:
		if c.Days <= 0 {
			return 0
		}
		return clampPct(float64(progress.LongestStreak) / float64(c.Days) * 100)
	case TotalWorkoutsCriteria:
		if c.Count <= 0 {
			return 0
		}
		return clampPct(float64(progress.TotalWorkouts) / float64(c.Count) * 100)
	case WeightLossCriteria:
		change := weightChangePct(progress)
		if c.TargetPct <= 0 || change >= 0 {
			return 0
		}
		return clampPct(-change / c.TargetPct * 100)
	case WeightGainCriteria:
		change := weightChangePct(progress)
		if c.TargetPct <= 0 || change <= 0 {
			return 0
		}
		return clampPct(change / c.TargetPct * 100)
	default:
		return 0
	}
}

func weightChangePct(progress UserProgress) float64 {
	if progress.StartingWeightKg <= 0 {
		return 0
	}
	return (progress.CurrentWeightKg - progress.StartingWeightKg) / progress.StartingWeightKg * 100
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
