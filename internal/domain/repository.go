package domain

import (
	"context"
	"time"

	"example.com/gamification/internal/gamification"
)

// WorkoutAward bundles the side effects of a point award so the repository
// can apply them in a single transaction: workout insert, ledger append,
// record upserts, streak upsert, and atomic stats increment, plus the outbox
// events derived from them.
type WorkoutAward struct {
	Points    gamification.PointsBreakdown
	Streak    StreakState
	Reason    string
	AwardedAt time.Time
}

// WorkoutStore covers workout persistence.
type WorkoutStore interface {
	FindWorkoutByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*WorkoutRecord, error)
	CreateWorkoutAward(ctx context.Context, workout WorkoutRecord, idempotencyKey string, award WorkoutAward) error
	GetWorkout(ctx context.Context, tenantID, workoutID string) (*WorkoutRecord, error)
	ListWorkoutsByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]WorkoutRecord, *Cursor, error)
	ListWorkoutTimes(ctx context.Context, tenantID, userID string) ([]time.Time, error)
	CountWorkouts(ctx context.Context, tenantID, userID string) (int, error)
	DeleteWorkout(ctx context.Context, tenantID, workoutID string) error
}

// StreakStore covers the per-user streak snapshot.
type StreakStore interface {
	GetStreak(ctx context.Context, tenantID, userID string) (*StreakState, error)
	UpsertStreak(ctx context.Context, tenantID string, state StreakState) error
}

// LedgerStore covers the points ledger and derived aggregates.
type LedgerStore interface {
	GetUserStats(ctx context.Context, tenantID, userID string) (*UserStats, error)
	ListLedgerEntries(ctx context.Context, tenantID, userID string, limit int) ([]LedgerEntry, error)
	ResetWeeklyPoints(ctx context.Context, tenantID string) error
	ResetMonthlyPoints(ctx context.Context, tenantID string) error
}

// RecordStore covers personal records keyed by exercise name.
type RecordStore interface {
	ListPersonalRecords(ctx context.Context, tenantID, userID string, exercises []string) (map[string]gamification.PersonalRecord, error)
}

// PairingStore resolves buddy pairings.
type PairingStore interface {
	VerifyPairing(ctx context.Context, tenantID, pairingID, userID string) (bool, error)
}

// ComebackStore covers comeback mechanic rows.
type ComebackStore interface {
	CompetitionStanding(ctx context.Context, tenantID, competitionType, competitionID, userID string) (gamification.Standing, error)
	UpsertComeback(ctx context.Context, tenantID string, state ComebackState) error
	ActiveComebackMultiplier(ctx context.Context, tenantID, userID string, now time.Time) (float64, error)
}

// BadgeStore covers the badge catalog and earned badges.
type BadgeStore interface {
	ListBadgeDefinitions(ctx context.Context) ([]BadgeDefinition, error)
	ListUserBadges(ctx context.Context, tenantID, userID string) ([]UserBadge, error)
	// AwardBadge is idempotent: awarding an already-earned badge reports
	// awarded=false without touching the stored earnedAt.
	AwardBadge(ctx context.Context, tenantID, userID, badgeID string, earnedAt time.Time) (awarded bool, err error)
	BadgeProgressInputs(ctx context.Context, tenantID, userID string) (gamification.UserProgress, error)
}

// LeaderboardStore reads the ranked point snapshots.
type LeaderboardStore interface {
	TopByPoints(ctx context.Context, tenantID string, period gamification.Period, limit int) ([]gamification.LeaderboardEntry, error)
	UserStanding(ctx context.Context, tenantID string, period gamification.Period, userID string) (*gamification.RankedEntry, error)
}

// Repository aggregates every store the service depends on. The Postgres
// implementation satisfies the whole interface.
type Repository interface {
	WorkoutStore
	StreakStore
	LedgerStore
	RecordStore
	PairingStore
	ComebackStore
	BadgeStore
	LeaderboardStore
}
