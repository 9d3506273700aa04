package domain

import (
	"time"

	"example.com/gamification/internal/gamification"
)

// WorkoutRecord is the canonical workout stored in PostgreSQL. Exercises are
// embedded, not persisted independently.
type WorkoutRecord struct {
	ID            string
	TenantID      string
	UserID        string
	PairingID     *string
	CompletedAt   time.Time
	DurationMin   int
	Notes         string
	Exercises     []gamification.Exercise
	TotalVolumeKg float64
	PhotoCount    int
	PointsAwarded int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TotalVolume sums weight x reps over every set, normalised to kilograms.
func TotalVolume(exercises []gamification.Exercise) float64 {
	total := 0.0
	for _, exercise := range exercises {
		for _, set := range exercise.Sets {
			if set.Reps > 0 {
				total += set.WeightKg() * float64(set.Reps)
			}
		}
	}
	return total
}

// StreakState is the persisted streak snapshot for a user. longestStreak is
// never below currentStreak.
type StreakState struct {
	UserID          string
	CurrentStreak   int
	LongestStreak   int
	LastWorkoutDate *time.Time
}

// UserStats holds the derived point aggregates for a user. Totals are
// maintained by atomic increments at the store layer; the ledger is the
// source of truth for rebuilding them.
type UserStats struct {
	UserID        string
	TotalPoints   int
	WeeklyPoints  int
	MonthlyPoints int
	Level         int
	LastWorkoutAt *time.Time
}

// LedgerEntry is one append-only row in the points ledger. Entries are never
// mutated or deleted.
type LedgerEntry struct {
	ID        int64
	UserID    string
	Points    int
	Reason    string
	Metadata  map[string]any
	CreatedAt time.Time
}

// ComebackState is the persisted comeback mechanic for one
// (user, competitionType, competitionID) tuple.
type ComebackState struct {
	UserID          string
	CompetitionType string
	CompetitionID   string
	BehindByPct     float64
	Multiplier      float64
	BonusActive     bool
	BonusExpiresAt  *time.Time
}

// BadgeDefinition is an immutable catalog entry.
type BadgeDefinition struct {
	ID       string
	Name     string
	Category string
	Rarity   string
	Criteria gamification.BadgeCriteria
}

// UserBadge records a badge earned by a user. EarnedAt is set once.
type UserBadge struct {
	UserID   string
	BadgeID  string
	EarnedAt time.Time
}

// BadgeStatus pairs a definition with a user's progress toward it.
type BadgeStatus struct {
	Definition BadgeDefinition
	Progress   float64
	Earned     bool
	EarnedAt   *time.Time
}

// StatsView is the aggregate snapshot returned to clients.
type StatsView struct {
	UserID        string
	CurrentStreak int
	LongestStreak int
	TotalWorkouts int
	TotalPoints   int
	WeeklyPoints  int
	MonthlyPoints int
	Level         int
}

// Cursor models the keyset pagination token for workout listings.
type Cursor struct {
	CompletedAt time.Time
	ID          string
}
