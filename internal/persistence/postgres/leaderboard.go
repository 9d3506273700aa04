package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/gamification"
)

// metricColumn maps a period to its user_stats column. Periods outside the
// whitelist never reach SQL.
func metricColumn(period gamification.Period) (string, error) {
	switch period {
	case gamification.PeriodTotal:
		return "total_points", nil
	case gamification.PeriodWeekly:
		return "weekly_points", nil
	case gamification.PeriodMonthly:
		return "monthly_points", nil
	}
	return "", domain.ErrInvalidPeriod
}

// TopByPoints returns the highest scorers for the period. Ordering matches
// the ranking rules so pagination inside SQL and ranking in Go agree.
func (r *Repository) TopByPoints(ctx context.Context, tenantID string, period gamification.Period, limit int) ([]gamification.LeaderboardEntry, error) {
	column, err := metricColumn(period)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT user_id, %s, last_workout_at FROM user_stats
        WHERE tenant_id=$1 AND %s > 0
        ORDER BY %s DESC, last_workout_at ASC NULLS LAST, user_id ASC
        LIMIT $2`, column, column, column)

	var entries []gamification.LeaderboardEntry
	err = r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var entry gamification.LeaderboardEntry
			var lastEarned *time.Time
			if err := rows.Scan(&entry.UserID, &entry.Points, &lastEarned); err != nil {
				return err
			}
			if lastEarned != nil {
				entry.LastEarnedAt = *lastEarned
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

// UserStanding computes a single user's rank without ranking the whole
// table: the rank is one plus the count of users ordered strictly ahead
// under the same tie-break rules.
func (r *Repository) UserStanding(ctx context.Context, tenantID string, period gamification.Period, userID string) (*gamification.RankedEntry, error) {
	column, err := metricColumn(period)
	if err != nil {
		return nil, err
	}

	selfQuery := fmt.Sprintf(`SELECT %s, last_workout_at FROM user_stats WHERE tenant_id=$1 AND user_id=$2`, column)
	aheadQuery := fmt.Sprintf(`SELECT COUNT(*) FROM user_stats
        WHERE tenant_id=$1 AND (
            %s > $2
            OR (%s = $2 AND last_workout_at < $3)
            OR (%s = $2 AND last_workout_at = $3 AND user_id < $4))`, column, column, column)

	var standing *gamification.RankedEntry
	err = r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		var points int
		var lastEarned *time.Time
		err := tx.QueryRow(ctx, selfQuery, tenantID, userID).Scan(&points, &lastEarned)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		var ahead int
		if err := tx.QueryRow(ctx, aheadQuery, tenantID, points, lastEarned, userID).Scan(&ahead); err != nil {
			return err
		}
		standing = &gamification.RankedEntry{Rank: ahead + 1, UserID: userID, Points: points}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return standing, nil
}

// CompetitionStanding reads the leader's points and the user's points for a
// competition. A competition with no participants does not exist.
func (r *Repository) CompetitionStanding(ctx context.Context, tenantID, competitionType, competitionID, userID string) (gamification.Standing, error) {
	const query = `SELECT
        COALESCE(MAX(points), 0),
        COALESCE(MAX(points) FILTER (WHERE user_id=$4), 0),
        COUNT(*)
        FROM competition_participants
        WHERE tenant_id=$1 AND competition_type=$2 AND competition_id=$3`

	var standing gamification.Standing
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		var participants int
		if err := tx.QueryRow(ctx, query, tenantID, competitionType, competitionID, userID).Scan(&standing.LeaderPoints, &standing.UserPoints, &participants); err != nil {
			return err
		}
		if participants == 0 {
			return domain.ErrCompetitionNotFound
		}
		return nil
	})
	if err != nil {
		return gamification.Standing{}, err
	}
	return standing, nil
}

// UpsertComeback replaces the comeback row for one competition membership.
func (r *Repository) UpsertComeback(ctx context.Context, tenantID string, state domain.ComebackState) error {
	return r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		const stmt = `INSERT INTO comeback_mechanics (tenant_id, user_id, competition_type, competition_id, behind_by_pct, multiplier, bonus_active, bonus_expires_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
            ON CONFLICT (tenant_id, user_id, competition_type, competition_id)
            DO UPDATE SET behind_by_pct=EXCLUDED.behind_by_pct,
                multiplier=EXCLUDED.multiplier,
                bonus_active=EXCLUDED.bonus_active,
                bonus_expires_at=EXCLUDED.bonus_expires_at,
                updated_at=now()`
		_, err := tx.Exec(ctx, stmt, tenantID, state.UserID, state.CompetitionType, state.CompetitionID,
			state.BehindByPct, state.Multiplier, state.BonusActive, state.BonusExpiresAt)
		return err
	})
}

// ActiveComebackMultiplier returns the highest unexpired comeback multiplier
// across the user's competitions, or 1.0 when none is active. Multipliers
// never stack.
func (r *Repository) ActiveComebackMultiplier(ctx context.Context, tenantID, userID string, now time.Time) (float64, error) {
	const query = `SELECT COALESCE(MAX(multiplier), 1.0) FROM comeback_mechanics
        WHERE tenant_id=$1 AND user_id=$2 AND bonus_active AND bonus_expires_at > $3`

	multiplier := 1.0
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, tenantID, userID, now).Scan(&multiplier)
	})
	if err != nil {
		return 1.0, err
	}
	if multiplier < 1.0 {
		multiplier = 1.0
	}
	return multiplier, nil
}
