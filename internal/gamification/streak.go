// Package gamification implements the scoring rules: streaks, point awards,
// comeback multipliers, badge progress, and leaderboard ranking. Everything in
// this package is pure computation; persistence lives in the repositories.
package gamification

import "time"

// StreakSummary holds the outcome of a streak scan.
type StreakSummary struct {
	Current int
	Longest int
}

// ComputeStreaks derives the current and longest workout streaks from a list
// of workout timestamps. Multiple workouts on the same calendar day count
// once. The current streak is non-zero only when the most recent workout day
// is today or yesterday relative to now (one-day grace period); the longest
// streak considers every run in the history, including runs that ended long
// ago. Deletions require a full rescan, so callers always pass the complete
// history.
func ComputeStreaks(timestamps []time.Time, now time.Time) StreakSummary {
	days := uniqueDaysDescending(timestamps)
	if len(days) == 0 {
		return StreakSummary{}
	}

	today := civilDay(now)

	var summary StreakSummary
	if gap := daysBetween(days[0], today); gap <= 1 {
		summary.Current = 1
		for i := 1; i < len(days); i++ {
			if daysBetween(days[i], days[i-1]) != 1 {
				break
			}
			summary.Current++
		}
	}

	run := 1
	summary.Longest = 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i], days[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > summary.Longest {
			summary.Longest = run
		}
	}

	if summary.Longest < summary.Current {
		summary.Longest = summary.Current
	}
	return summary
}

// uniqueDaysDescending collapses timestamps onto unique UTC calendar days,
// newest first.
func uniqueDaysDescending(timestamps []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(timestamps))
	days := make([]time.Time, 0, len(timestamps))
	for _, ts := range timestamps {
		day := civilDay(ts)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}

	for i := 1; i < len(days); i++ {
		for j := i; j > 0 && days[j].After(days[j-1]); j-- {
			days[j], days[j-1] = days[j-1], days[j]
		}
	}
	return days
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from earlier to later.
func daysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}
