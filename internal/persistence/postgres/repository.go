// Package postgres implements the domain repository on top of pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/events"
	"example.com/gamification/internal/gamification"
	"example.com/gamification/internal/observability"
)

// Repository provides Postgres-backed persistence for workouts, scoring
// state, badges, and outbox events. Every query runs inside a transaction
// that first pins app.tenant_id so row-level security applies.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// withTenantTx runs fn inside a transaction scoped to the tenant.
func (r *Repository) withTenantTx(ctx context.Context, tenantID string, fn func(pgx.Tx) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const workoutColumns = `workout_id, tenant_id, user_id, pairing_id, completed_at, duration_min, notes, exercises, total_volume_kg, photo_count, points_awarded, created_at, updated_at`

func scanWorkout(row pgx.Row) (*domain.WorkoutRecord, error) {
	var w domain.WorkoutRecord
	var exercisesJSON []byte
	if err := row.Scan(&w.ID, &w.TenantID, &w.UserID, &w.PairingID, &w.CompletedAt, &w.DurationMin, &w.Notes, &exercisesJSON, &w.TotalVolumeKg, &w.PhotoCount, &w.PointsAwarded, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	if len(exercisesJSON) > 0 {
		if err := json.Unmarshal(exercisesJSON, &w.Exercises); err != nil {
			return nil, fmt.Errorf("decode exercises: %w", err)
		}
	}
	return &w, nil
}

// FindWorkoutByIdempotency checks if a workout already exists for the
// supplied idempotency key.
func (r *Repository) FindWorkoutByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*domain.WorkoutRecord, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE tenant_id=$1 AND user_id=$2 AND idempotency_key=$3`

	var workout *domain.WorkoutRecord
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		w, err := scanWorkout(tx.QueryRow(ctx, query, tenantID, userID, idempotencyKey))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		workout = w
		return err
	})
	if err != nil {
		return nil, err
	}
	return workout, nil
}

// CreateWorkoutAward persists the workout and every scoring side effect in a
// single transaction: the workout row, the ledger append, record upserts, the
// streak snapshot, atomic stats increments, and the outbox events. Either all
// of it lands or none of it does.
func (r *Repository) CreateWorkoutAward(ctx context.Context, workout domain.WorkoutRecord, idempotencyKey string, award domain.WorkoutAward) error {
	return r.withTenantTx(ctx, workout.TenantID, func(tx pgx.Tx) error {
		exercisesJSON, err := json.Marshal(workout.Exercises)
		if err != nil {
			return fmt.Errorf("encode exercises: %w", err)
		}

		const insertWorkout = `INSERT INTO workouts (workout_id, tenant_id, user_id, pairing_id, completed_at, duration_min, notes, exercises, total_volume_kg, photo_count, points_awarded, idempotency_key, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
		if _, err := tx.Exec(ctx, insertWorkout,
			workout.ID,
			workout.TenantID,
			workout.UserID,
			workout.PairingID,
			workout.CompletedAt,
			workout.DurationMin,
			workout.Notes,
			exercisesJSON,
			workout.TotalVolumeKg,
			workout.PhotoCount,
			workout.PointsAwarded,
			nullIfEmpty(idempotencyKey),
			workout.CreatedAt,
			workout.UpdatedAt,
		); err != nil {
			return err
		}

		if err := appendLedger(ctx, tx, workout, award); err != nil {
			return err
		}

		for _, record := range award.Points.NewRecords {
			const upsertRecord = `INSERT INTO personal_records (tenant_id, user_id, exercise, weight_kg, reps, achieved_at)
                VALUES ($1,$2,$3,$4,$5,$6)
                ON CONFLICT (tenant_id, user_id, exercise)
                DO UPDATE SET weight_kg=EXCLUDED.weight_kg, reps=EXCLUDED.reps, achieved_at=EXCLUDED.achieved_at`
			if _, err := tx.Exec(ctx, upsertRecord, workout.TenantID, workout.UserID, record.Exercise, record.WeightKg, record.Reps, workout.CompletedAt); err != nil {
				return err
			}
		}

		if err := upsertStreak(ctx, tx, workout.TenantID, award.Streak); err != nil {
			return err
		}

		if err := incrementStats(ctx, tx, workout.TenantID, workout.UserID, award.Points.TotalPoints, award.AwardedAt); err != nil {
			return err
		}

		if err := insertOutbox(ctx, tx, workout.TenantID, "workout", workout.ID, "workout.logged", workout.UserID, events.WorkoutLogged{
			WorkoutID:   workout.ID,
			TenantID:    workout.TenantID,
			UserID:      workout.UserID,
			CompletedAt: workout.CompletedAt,
			DurationMin: workout.DurationMin,
			PhotoCount:  workout.PhotoCount,
			Paired:      award.Points.BuddyBonus > 0,
		}); err != nil {
			return err
		}

		if err := insertOutbox(ctx, tx, workout.TenantID, "workout", workout.ID, "points.awarded", workout.UserID, events.PointsAwarded{
			WorkoutID:       workout.ID,
			TenantID:        workout.TenantID,
			UserID:          workout.UserID,
			Points:          award.Points.TotalPoints,
			CurrentStreak:   award.Streak.CurrentStreak,
			RecordsBroken:   len(award.Points.NewRecords),
			ComebackApplied: award.Points.ComebackMultiplier > 1.0,
			AwardedAt:       award.AwardedAt,
		}); err != nil {
			return err
		}

		observability.RecordAwardPersisted(award.AwardedAt)
		return nil
	})
}

// appendLedger writes the immutable ledger row with the itemised breakdown
// as metadata.
func appendLedger(ctx context.Context, tx pgx.Tx, workout domain.WorkoutRecord, award domain.WorkoutAward) error {
	metadata := map[string]any{
		"workout_id":             workout.ID,
		"breakdown":              award.Points.Breakdown,
		"consistency_multiplier": award.Points.ConsistencyMultiplier,
		"comeback_multiplier":    award.Points.ComebackMultiplier,
	}
	body, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode ledger metadata: %w", err)
	}

	const stmt = `INSERT INTO points_ledger (tenant_id, user_id, points, reason, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err = tx.Exec(ctx, stmt, workout.TenantID, workout.UserID, award.Points.TotalPoints, award.Reason, body, award.AwardedAt)
	return err
}

func upsertStreak(ctx context.Context, tx pgx.Tx, tenantID string, state domain.StreakState) error {
	// GREATEST keeps longest_streak monotonic even if the caller recomputed
	// from a partial history.
	const stmt = `INSERT INTO streaks (tenant_id, user_id, current_streak, longest_streak, last_workout_date, updated_at)
        VALUES ($1,$2,$3,GREATEST($3,$4),$5,now())
        ON CONFLICT (tenant_id, user_id)
        DO UPDATE SET current_streak=EXCLUDED.current_streak,
            longest_streak=GREATEST(streaks.longest_streak, EXCLUDED.longest_streak),
            last_workout_date=EXCLUDED.last_workout_date,
            updated_at=now()`
	_, err := tx.Exec(ctx, stmt, tenantID, state.UserID, state.CurrentStreak, state.LongestStreak, state.LastWorkoutDate)
	return err
}

// incrementStats applies the award to user_stats without a read-modify-write:
// concurrent awards both land because the increment happens in SQL. The level
// is recomputed from the post-increment total.
func incrementStats(ctx context.Context, tx pgx.Tx, tenantID, userID string, points int, awardedAt time.Time) error {
	const stmt = `INSERT INTO user_stats (tenant_id, user_id, total_points, weekly_points, monthly_points, level, last_workout_at, updated_at)
        VALUES ($1,$2,$3,$3,$3,1,$4,now())
        ON CONFLICT (tenant_id, user_id)
        DO UPDATE SET total_points=user_stats.total_points+EXCLUDED.total_points,
            weekly_points=user_stats.weekly_points+EXCLUDED.weekly_points,
            monthly_points=user_stats.monthly_points+EXCLUDED.monthly_points,
            last_workout_at=EXCLUDED.last_workout_at,
            updated_at=now()
        RETURNING total_points`
	var total int
	if err := tx.QueryRow(ctx, stmt, tenantID, userID, points, awardedAt).Scan(&total); err != nil {
		return err
	}

	level := gamification.LevelFromPoints(total)
	_, err := tx.Exec(ctx, `UPDATE user_stats SET level=$3 WHERE tenant_id=$1 AND user_id=$2 AND level<>$3`, tenantID, userID, level)
	return err
}

// GetWorkout retrieves a workout by ID.
func (r *Repository) GetWorkout(ctx context.Context, tenantID, workoutID string) (*domain.WorkoutRecord, error) {
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE tenant_id=$1 AND workout_id=$2`

	var workout *domain.WorkoutRecord
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		w, err := scanWorkout(tx.QueryRow(ctx, query, tenantID, workoutID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		workout = w
		return err
	})
	if err != nil {
		return nil, err
	}
	return workout, nil
}

// ListWorkoutsByUser returns workouts for a user ordered by completion time,
// newest first, with keyset pagination.
func (r *Repository) ListWorkoutsByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.WorkoutRecord, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE tenant_id=$1 AND user_id=$2`

	if cursor != nil {
		query += ` AND (completed_at, workout_id) < ($4, $5)`
		args = append(args, cursor.CompletedAt, cursor.ID)
	}

	query += ` ORDER BY completed_at DESC, workout_id DESC LIMIT $3`

	results := make([]domain.WorkoutRecord, 0, limit)
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			w, err := scanWorkout(rows)
			if err != nil {
				return err
			}
			results = append(results, *w)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{CompletedAt: last.CompletedAt, ID: last.ID}
	}
	return results, nextCursor, nil
}

// ListWorkoutTimes returns every workout completion timestamp for a user.
// The streak engine consumes the full history.
func (r *Repository) ListWorkoutTimes(ctx context.Context, tenantID, userID string) ([]time.Time, error) {
	const query = `SELECT completed_at FROM workouts WHERE tenant_id=$1 AND user_id=$2 ORDER BY completed_at DESC`

	var times []time.Time
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ts time.Time
			if err := rows.Scan(&ts); err != nil {
				return err
			}
			times = append(times, ts)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return times, nil
}

// CountWorkouts returns the user's total workout count.
func (r *Repository) CountWorkouts(ctx context.Context, tenantID, userID string) (int, error) {
	var count int
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT COUNT(*) FROM workouts WHERE tenant_id=$1 AND user_id=$2`, tenantID, userID).Scan(&count)
	})
	return count, err
}

// DeleteWorkout removes a workout row. Ledger entries referencing it are
// retained.
func (r *Repository) DeleteWorkout(ctx context.Context, tenantID, workoutID string) error {
	return r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM workouts WHERE tenant_id=$1 AND workout_id=$2`, tenantID, workoutID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrWorkoutNotFound
		}
		return nil
	})
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	"workout.logged": {
		Topic:         "gamification_workout_events",
		SchemaSubject: "gamification_workout_events-value",
	},
	"points.awarded": {
		Topic:         "gamification_points_events",
		SchemaSubject: "gamification_points_events-value",
	},
	"badge.earned": {
		Topic:         "gamification_badge_events",
		SchemaSubject: "gamification_badge_events-value",
	},
}

// insertOutbox stages an event for the dispatcher. Events partition by
// tenant and user so one user's events stay ordered.
func insertOutbox(ctx context.Context, tx pgx.Tx, tenantID, aggregateType, aggregateID, eventType, userID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta := eventCatalog[eventType]
	if meta.Topic == "" {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	partitionKey := fmt.Sprintf("%s:%s", tenantID, userID)
	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		tenantID,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}
