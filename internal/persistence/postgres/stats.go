package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/gamification"
)

// GetStreak returns the persisted streak snapshot, or nil for users with no
// history.
func (r *Repository) GetStreak(ctx context.Context, tenantID, userID string) (*domain.StreakState, error) {
	const query = `SELECT user_id, current_streak, longest_streak, last_workout_date
        FROM streaks WHERE tenant_id=$1 AND user_id=$2`

	var state *domain.StreakState
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		var s domain.StreakState
		err := tx.QueryRow(ctx, query, tenantID, userID).Scan(&s.UserID, &s.CurrentStreak, &s.LongestStreak, &s.LastWorkoutDate)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		state = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// UpsertStreak replaces the streak snapshot for a user.
func (r *Repository) UpsertStreak(ctx context.Context, tenantID string, state domain.StreakState) error {
	return r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		return upsertStreak(ctx, tx, tenantID, state)
	})
}

// GetUserStats returns the derived point aggregates, or nil for users with no
// history.
func (r *Repository) GetUserStats(ctx context.Context, tenantID, userID string) (*domain.UserStats, error) {
	const query = `SELECT user_id, total_points, weekly_points, monthly_points, level, last_workout_at
        FROM user_stats WHERE tenant_id=$1 AND user_id=$2`

	var stats *domain.UserStats
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		var s domain.UserStats
		err := tx.QueryRow(ctx, query, tenantID, userID).Scan(&s.UserID, &s.TotalPoints, &s.WeeklyPoints, &s.MonthlyPoints, &s.Level, &s.LastWorkoutAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		stats = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ListLedgerEntries returns the newest ledger rows for a user.
func (r *Repository) ListLedgerEntries(ctx context.Context, tenantID, userID string, limit int) ([]domain.LedgerEntry, error) {
	const query = `SELECT id, user_id, points, reason, metadata, created_at
        FROM points_ledger WHERE tenant_id=$1 AND user_id=$2 ORDER BY id DESC LIMIT $3`

	var entries []domain.LedgerEntry
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var entry domain.LedgerEntry
			var metadataJSON []byte
			if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Points, &entry.Reason, &metadataJSON, &entry.CreatedAt); err != nil {
				return err
			}
			if len(metadataJSON) > 0 {
				if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
					return fmt.Errorf("decode ledger metadata: %w", err)
				}
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ResetWeeklyPoints zeroes weekly points for every user in the tenant.
func (r *Repository) ResetWeeklyPoints(ctx context.Context, tenantID string) error {
	return r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE user_stats SET weekly_points=0, updated_at=now() WHERE tenant_id=$1 AND weekly_points<>0`, tenantID)
		return err
	})
}

// ResetMonthlyPoints zeroes monthly points for every user in the tenant.
func (r *Repository) ResetMonthlyPoints(ctx context.Context, tenantID string) error {
	return r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE user_stats SET monthly_points=0, updated_at=now() WHERE tenant_id=$1 AND monthly_points<>0`, tenantID)
		return err
	})
}

// ListPersonalRecords returns the stored records for the named exercises,
// keyed by exercise name.
func (r *Repository) ListPersonalRecords(ctx context.Context, tenantID, userID string, exercises []string) (map[string]gamification.PersonalRecord, error) {
	records := make(map[string]gamification.PersonalRecord, len(exercises))
	if len(exercises) == 0 {
		return records, nil
	}

	const query = `SELECT exercise, weight_kg, reps FROM personal_records
        WHERE tenant_id=$1 AND user_id=$2 AND exercise=ANY($3)`

	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, userID, exercises)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var record gamification.PersonalRecord
			if err := rows.Scan(&record.Exercise, &record.WeightKg, &record.Reps); err != nil {
				return err
			}
			records[record.Exercise] = record
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// VerifyPairing reports whether the pairing exists, is active, and includes
// the user.
func (r *Repository) VerifyPairing(ctx context.Context, tenantID, pairingID, userID string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM pairings
        WHERE tenant_id=$1 AND pairing_id=$2 AND status='active' AND (user_a=$3 OR user_b=$3))`

	var ok bool
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, tenantID, pairingID, userID).Scan(&ok)
	})
	return ok, err
}
