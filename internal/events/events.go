// Package events defines the domain event payloads emitted through the outbox.
package events

import "time"

// WorkoutLogged is emitted when a workout is accepted and persisted.
type WorkoutLogged struct {
	WorkoutID   string    `json:"workout_id"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMin int       `json:"duration_min"`
	PhotoCount  int       `json:"photo_count"`
	Paired      bool      `json:"paired"`
}

// PointsAwarded is emitted alongside every points ledger append.
type PointsAwarded struct {
	WorkoutID       string    `json:"workout_id"`
	TenantID        string    `json:"tenant_id"`
	UserID          string    `json:"user_id"`
	Points          int       `json:"points"`
	CurrentStreak   int       `json:"current_streak"`
	RecordsBroken   int       `json:"records_broken"`
	ComebackApplied bool      `json:"comeback_applied"`
	AwardedAt       time.Time `json:"awarded_at"`
}

// BadgeEarned is emitted the first time a badge is awarded to a user.
type BadgeEarned struct {
	BadgeID  string    `json:"badge_id"`
	TenantID string    `json:"tenant_id"`
	UserID   string    `json:"user_id"`
	EarnedAt time.Time `json:"earned_at"`
}
