package gamification

import (
	"sort"
	"time"
)

// Period selects which point metric a ranking call reads. A single call never
// mixes metrics.
type Period string

const (
	PeriodTotal   Period = "total"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Valid reports whether the period is one of the supported metrics.
func (p Period) Valid() bool {
	switch p {
	case PeriodTotal, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// LeaderboardEntry is one participant's score in the selected metric.
type LeaderboardEntry struct {
	UserID       string
	Points       int
	LastEarnedAt time.Time
}

// RankedEntry is a leaderboard row with its assigned rank.
type RankedEntry struct {
	Rank   int
	UserID string
	Points int
}

// Rank orders entries by points descending and assigns sequential ranks.
// Ties break by earliest LastEarnedAt (the user who reached the score first
// ranks higher; a zero timestamp sorts last), then by userID ascending, so
// two calls over the same entries always produce identical rankings. A
// non-positive limit returns the full table.
func Rank(entries []LeaderboardEntry, limit int) []RankedEntry {
	ordered := make([]LeaderboardEntry, len(entries))
	copy(ordered, entries)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Points != ordered[j].Points {
			return ordered[i].Points > ordered[j].Points
		}
		if !ordered[i].LastEarnedAt.Equal(ordered[j].LastEarnedAt) {
			if ordered[i].LastEarnedAt.IsZero() {
				return false
			}
			if ordered[j].LastEarnedAt.IsZero() {
				return true
			}
			return ordered[i].LastEarnedAt.Before(ordered[j].LastEarnedAt)
		}
		return ordered[i].UserID < ordered[j].UserID
	})

	if limit > 0 && limit < len(ordered) {
		ordered = ordered[:limit]
	}

	ranked := make([]RankedEntry, len(ordered))
	for i, entry := range ordered {
		ranked[i] = RankedEntry{Rank: i + 1, UserID: entry.UserID, Points: entry.Points}
	}
	return ranked
}
