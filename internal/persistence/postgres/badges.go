package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/events"
	"example.com/gamification/internal/gamification"
)

// criteriaDoc is the jsonb encoding of a badge criteria variant. Only the
// fields for the named kind are populated.
type criteriaDoc struct {
	Kind      string  `json:"kind"`
	Days      int     `json:"days,omitempty"`
	Count     int     `json:"count,omitempty"`
	TargetPct float64 `json:"target_pct,omitempty"`
}

func encodeCriteria(criteria gamification.BadgeCriteria) ([]byte, error) {
	var doc criteriaDoc
	switch c := criteria.(type) {
	case gamification.StreakCriteria:
		doc = criteriaDoc{Kind: "streak", Days: c.Days}
	case gamification.TotalWorkoutsCriteria:
		doc = criteriaDoc{Kind: "total_workouts", Count: c.Count}
	case gamification.WeightLossCriteria:
		doc = criteriaDoc{Kind: "weight_loss", TargetPct: c.TargetPct}
	case gamification.WeightGainCriteria:
		doc = criteriaDoc{Kind: "weight_gain", TargetPct: c.TargetPct}
	default:
		return nil, fmt.Errorf("unknown badge criteria type %T", criteria)
	}
	return json.Marshal(doc)
}

// decodeCriteria maps a stored criteria document back to its variant.
// Unknown kinds decode to nil; progress evaluation treats nil as zero.
func decodeCriteria(raw []byte) (gamification.BadgeCriteria, error) {
	var doc criteriaDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	switch doc.Kind {
	case "streak":
		return gamification.StreakCriteria{Days: doc.Days}, nil
	case "total_workouts":
		return gamification.TotalWorkoutsCriteria{Count: doc.Count}, nil
	case "weight_loss":
		return gamification.WeightLossCriteria{TargetPct: doc.TargetPct}, nil
	case "weight_gain":
		return gamification.WeightGainCriteria{TargetPct: doc.TargetPct}, nil
	default:
		return nil, nil
	}
}

// ListBadgeDefinitions returns the full badge catalog. The catalog is global,
// not tenant-scoped.
func (r *Repository) ListBadgeDefinitions(ctx context.Context) ([]domain.BadgeDefinition, error) {
	const query = `SELECT badge_id, name, category, rarity, criteria FROM badge_definitions ORDER BY badge_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var definitions []domain.BadgeDefinition
	for rows.Next() {
		var def domain.BadgeDefinition
		var criteriaJSON []byte
		if err := rows.Scan(&def.ID, &def.Name, &def.Category, &def.Rarity, &criteriaJSON); err != nil {
			return nil, err
		}
		if def.Criteria, err = decodeCriteria(criteriaJSON); err != nil {
			return nil, fmt.Errorf("decode criteria for badge %s: %w", def.ID, err)
		}
		definitions = append(definitions, def)
	}
	return definitions, rows.Err()
}

// ListUserBadges returns every badge the user has earned.
func (r *Repository) ListUserBadges(ctx context.Context, tenantID, userID string) ([]domain.UserBadge, error) {
	const query = `SELECT user_id, badge_id, earned_at FROM user_badges
        WHERE tenant_id=$1 AND user_id=$2 ORDER BY earned_at`

	var badges []domain.UserBadge
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tenantID, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var badge domain.UserBadge
			if err := rows.Scan(&badge.UserID, &badge.BadgeID, &badge.EarnedAt); err != nil {
				return err
			}
			badges = append(badges, badge)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return badges, nil
}

// AwardBadge records a badge award. ON CONFLICT DO NOTHING makes repeated
// awards a no-op, so earned_at never moves once set. The badge.earned event
// is staged only when the insert actually lands.
func (r *Repository) AwardBadge(ctx context.Context, tenantID, userID, badgeID string, earnedAt time.Time) (bool, error) {
	var awarded bool
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		const stmt = `INSERT INTO user_badges (tenant_id, user_id, badge_id, earned_at)
            VALUES ($1,$2,$3,$4)
            ON CONFLICT (tenant_id, user_id, badge_id) DO NOTHING`
		tag, err := tx.Exec(ctx, stmt, tenantID, userID, badgeID, earnedAt)
		if err != nil {
			return err
		}
		awarded = tag.RowsAffected() > 0
		if !awarded {
			return nil
		}

		return insertOutbox(ctx, tx, tenantID, "badge", fmt.Sprintf("%s:%s", userID, badgeID), "badge.earned", userID, events.BadgeEarned{
			BadgeID:  badgeID,
			TenantID: tenantID,
			UserID:   userID,
			EarnedAt: earnedAt,
		})
	})
	if err != nil {
		return false, err
	}
	return awarded, nil
}

// BadgeProgressInputs gathers the statistics badge criteria evaluate against:
// the streak snapshot, the workout count, and the profile weights.
func (r *Repository) BadgeProgressInputs(ctx context.Context, tenantID, userID string) (gamification.UserProgress, error) {
	const query = `SELECT
        COALESCE((SELECT longest_streak FROM streaks WHERE tenant_id=$1 AND user_id=$2), 0),
        (SELECT COUNT(*) FROM workouts WHERE tenant_id=$1 AND user_id=$2),
        COALESCE((SELECT starting_weight_kg FROM user_profiles WHERE tenant_id=$1 AND user_id=$2), 0),
        COALESCE((SELECT current_weight_kg FROM user_profiles WHERE tenant_id=$1 AND user_id=$2), 0)`

	var progress gamification.UserProgress
	err := r.withTenantTx(ctx, tenantID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, query, tenantID, userID).Scan(
			&progress.LongestStreak,
			&progress.TotalWorkouts,
			&progress.StartingWeightKg,
			&progress.CurrentWeightKg,
		)
	})
	return progress, err
}
