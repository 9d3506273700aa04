package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/events"
)

// BadgeEvaluator awards every badge a user newly qualifies for.
type BadgeEvaluator interface {
	EvaluateBadges(ctx context.Context, tenantID, userID string) ([]domain.UserBadge, error)
}

// BadgeEvaluationHandler re-evaluates badge criteria whenever points are
// awarded. Workouts complete without waiting on badge checks; this handler
// picks them up off the points.awarded stream.
type BadgeEvaluationHandler struct {
	evaluator BadgeEvaluator
	logger    *zap.SugaredLogger
}

// NewBadgeEvaluationHandler constructs the handler.
func NewBadgeEvaluationHandler(evaluator BadgeEvaluator, logger *zap.SugaredLogger) *BadgeEvaluationHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &BadgeEvaluationHandler{evaluator: evaluator, logger: logger}
}

// Handle processes a points.awarded event. Other event types pass through
// untouched so the handler composes in a Fanout.
func (h *BadgeEvaluationHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != "points.awarded" {
		return nil
	}

	var payload events.PointsAwarded
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("decode points.awarded payload: %w", err)
	}
	if payload.TenantID == "" || payload.UserID == "" {
		return fmt.Errorf("points.awarded payload missing tenant or user")
	}

	earned, err := h.evaluator.EvaluateBadges(ctx, payload.TenantID, payload.UserID)
	if err != nil {
		return err
	}
	for _, badge := range earned {
		h.logger.Infow("badge earned",
			"tenant_id", payload.TenantID, "user_id", badge.UserID, "badge_id", badge.BadgeID)
	}
	return nil
}
