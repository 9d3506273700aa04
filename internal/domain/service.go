// Package domain defines the business logic for the gamification service.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/gamification/internal/gamification"
	"example.com/gamification/internal/observability"
)

var (
	// ErrIdempotentReplay indicates an existing workout was found for the provided idempotency key.
	ErrIdempotentReplay = errors.New("workout already exists for idempotency key")
	// ErrWorkoutNotFound is returned when a workout cannot be located or belongs to another user.
	ErrWorkoutNotFound = errors.New("workout not found")
	// ErrCompetitionNotFound is returned when a comeback assessment references an unknown competition.
	ErrCompetitionNotFound = errors.New("competition not found")
	// ErrInvalidPeriod is returned for unsupported leaderboard periods.
	ErrInvalidPeriod = errors.New("invalid leaderboard period")
)

// streakMilestones are the streak lengths that trigger a milestone message.
var streakMilestones = map[int]struct{}{7: {}, 14: {}, 30: {}, 60: {}, 100: {}, 365: {}}

// Service orchestrates the scoring workflows.
type Service struct {
	repo      Repository
	motivator Motivator
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// NewService constructs a Service. The motivator may be nil, in which case
// no messages are generated.
func NewService(repo Repository, motivator Motivator, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		repo:      repo,
		motivator: motivator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// LogWorkoutInput captures the payload from the API layer.
type LogWorkoutInput struct {
	TenantID       string
	UserID         string
	PairingID      *string
	CompletedAt    time.Time
	DurationMin    int
	Notes          string
	Exercises      []gamification.Exercise
	PhotoCount     int
	IdempotencyKey string
}

// LogWorkoutResult is the outcome of a workout submission.
type LogWorkoutResult struct {
	Workout *WorkoutRecord
	Points  gamification.PointsBreakdown
	Streak  gamification.StreakSummary
	Message string
	Replay  bool
}

// LogWorkout runs the full scoring sequence for a completed workout: streak
// recomputation, point calculation with bonuses and multipliers, and a single
// transactional write covering the workout, ledger entry, personal records,
// streak snapshot, and stats increments. Auxiliary reads degrade to safe
// defaults; failures on the write path propagate to the caller.
func (s *Service) LogWorkout(ctx context.Context, input LogWorkoutInput) (*LogWorkoutResult, error) {
	if existing, err := s.repo.FindWorkoutByIdempotency(ctx, input.TenantID, input.UserID, input.IdempotencyKey); err == nil && existing != nil {
		return &LogWorkoutResult{
			Workout: existing,
			Points:  gamification.PointsBreakdown{TotalPoints: existing.PointsAwarded},
			Replay:  true,
		}, nil
	}

	now := s.now()

	times, err := s.repo.ListWorkoutTimes(ctx, input.TenantID, input.UserID)
	if err != nil {
		return nil, err
	}
	times = append(times, input.CompletedAt)
	streak := gamification.ComputeStreaks(times, now)

	paired := false
	if input.PairingID != nil {
		ok, pairErr := s.repo.VerifyPairing(ctx, input.TenantID, *input.PairingID, input.UserID)
		if pairErr != nil {
			s.logger.Warnw("pairing lookup failed, awarding without buddy bonus",
				"user_id", input.UserID, "pairing_id", *input.PairingID, "error", pairErr)
		} else {
			paired = ok
		}
	}

	records, err := s.repo.ListPersonalRecords(ctx, input.TenantID, input.UserID, exerciseNames(input.Exercises))
	if err != nil {
		s.logger.Warnw("personal record lookup failed, skipping PR detection",
			"user_id", input.UserID, "error", err)
		records = map[string]gamification.PersonalRecord{}
	}

	comeback, err := s.repo.ActiveComebackMultiplier(ctx, input.TenantID, input.UserID, now)
	if err != nil {
		s.logger.Warnw("comeback lookup failed, using neutral multiplier",
			"user_id", input.UserID, "error", err)
		comeback = 1.0
	}

	breakdown := gamification.CalculatePoints(streak.Current, gamification.WorkoutContext{
		PairedWithBuddy: paired,
		PhotoCount:      input.PhotoCount,
		Exercises:       input.Exercises,
	}, records, comeback)

	lastDay := civilDate(input.CompletedAt)
	workout := WorkoutRecord{
		ID:            uuid.NewString(),
		TenantID:      input.TenantID,
		UserID:        input.UserID,
		PairingID:     input.PairingID,
		CompletedAt:   input.CompletedAt.UTC(),
		DurationMin:   input.DurationMin,
		Notes:         input.Notes,
		Exercises:     input.Exercises,
		TotalVolumeKg: TotalVolume(input.Exercises),
		PhotoCount:    input.PhotoCount,
		PointsAwarded: breakdown.TotalPoints,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	award := WorkoutAward{
		Points: breakdown,
		Streak: StreakState{
			UserID:          input.UserID,
			CurrentStreak:   streak.Current,
			LongestStreak:   streak.Longest,
			LastWorkoutDate: &lastDay,
		},
		Reason:    "workout",
		AwardedAt: now,
	}

	if err := s.repo.CreateWorkoutAward(ctx, workout, input.IdempotencyKey, award); err != nil {
		return nil, err
	}

	observability.RecordPointsAwarded(breakdown.TotalPoints, now)
	observability.RecordPersonalRecords(len(breakdown.NewRecords))

	result := &LogWorkoutResult{
		Workout: &workout,
		Points:  breakdown,
		Streak:  streak,
	}
	result.Message = s.generateMessage(ctx, input.UserID, streak, breakdown)
	return result, nil
}

// generateMessage asks the motivator for a message matching the award. The
// motivator handles its own fallbacks and never blocks the scoring path
// beyond its configured timeout.
func (s *Service) generateMessage(ctx context.Context, userID string, streak gamification.StreakSummary, breakdown gamification.PointsBreakdown) string {
	if s.motivator == nil {
		return ""
	}

	messageType := MessageMotivation
	if breakdown.ComebackMultiplier > 1.0 {
		messageType = MessageComeback
	} else if _, milestone := streakMilestones[streak.Current]; milestone {
		messageType = MessageStreakMilestone
	}

	return s.motivator.Generate(ctx, MotivationContext{
		UserID:        userID,
		CurrentStreak: streak.Current,
		PointsAwarded: breakdown.TotalPoints,
		RecordsBroken: len(breakdown.NewRecords),
	}, messageType)
}

// GetWorkout fetches a workout by ID, scoped to its owner.
func (s *Service) GetWorkout(ctx context.Context, tenantID, userID, workoutID string) (*WorkoutRecord, error) {
	workout, err := s.repo.GetWorkout(ctx, tenantID, workoutID)
	if err != nil {
		return nil, err
	}
	if workout == nil || workout.UserID != userID {
		return nil, ErrWorkoutNotFound
	}
	return workout, nil
}

// ListWorkouts fetches workouts with cursor pagination.
func (s *Service) ListWorkouts(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]WorkoutRecord, *Cursor, error) {
	return s.repo.ListWorkoutsByUser(ctx, tenantID, userID, cursor, limit)
}

// DeleteWorkout removes a workout and rescans the full remaining history to
// rebuild the streak snapshot, since the deletion may have opened a gap
// anywhere. Ledger entries are never removed.
func (s *Service) DeleteWorkout(ctx context.Context, tenantID, userID, workoutID string) error {
	workout, err := s.repo.GetWorkout(ctx, tenantID, workoutID)
	if err != nil {
		return err
	}
	if workout == nil || workout.UserID != userID {
		return ErrWorkoutNotFound
	}

	if err := s.repo.DeleteWorkout(ctx, tenantID, workoutID); err != nil {
		return err
	}

	times, err := s.repo.ListWorkoutTimes(ctx, tenantID, userID)
	if err != nil {
		return err
	}

	streak := gamification.ComputeStreaks(times, s.now())

	var lastDay *time.Time
	if len(times) > 0 {
		latest := times[0]
		for _, ts := range times[1:] {
			if ts.After(latest) {
				latest = ts
			}
		}
		day := civilDate(latest)
		lastDay = &day
	}

	return s.repo.UpsertStreak(ctx, tenantID, StreakState{
		UserID:          userID,
		CurrentStreak:   streak.Current,
		LongestStreak:   streak.Longest,
		LastWorkoutDate: lastDay,
	})
}

// GetStats assembles the aggregate stats view for a user. Users with no
// history report zeroes rather than an error.
func (s *Service) GetStats(ctx context.Context, tenantID, userID string) (*StatsView, error) {
	view := &StatsView{UserID: userID, Level: gamification.LevelFromPoints(0)}

	streak, err := s.repo.GetStreak(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if streak != nil {
		if streak.LongestStreak < streak.CurrentStreak {
			// Should never happen; repair rather than surface a broken invariant.
			s.logger.Errorw("streak invariant violated, repairing",
				"user_id", userID, "current", streak.CurrentStreak, "longest", streak.LongestStreak)
			streak.LongestStreak = streak.CurrentStreak
		}
		view.CurrentStreak = streak.CurrentStreak
		view.LongestStreak = streak.LongestStreak
	}

	stats, err := s.repo.GetUserStats(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if stats != nil {
		view.TotalPoints = stats.TotalPoints
		view.WeeklyPoints = stats.WeeklyPoints
		view.MonthlyPoints = stats.MonthlyPoints
		view.Level = stats.Level
	}

	count, err := s.repo.CountWorkouts(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	view.TotalWorkouts = count

	return view, nil
}

// BadgeStatuses reports every badge definition with the user's progress.
// Earned badges pin progress to 100 regardless of current statistics.
func (s *Service) BadgeStatuses(ctx context.Context, tenantID, userID string) ([]BadgeStatus, error) {
	definitions, err := s.repo.ListBadgeDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	earned, err := s.repo.ListUserBadges(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	earnedByID := make(map[string]UserBadge, len(earned))
	for _, badge := range earned {
		earnedByID[badge.BadgeID] = badge
	}

	inputs, err := s.repo.BadgeProgressInputs(ctx, tenantID, userID)
	if err != nil {
		s.logger.Warnw("badge progress inputs unavailable, reporting zero progress",
			"user_id", userID, "error", err)
		inputs = gamification.UserProgress{}
	}

	statuses := make([]BadgeStatus, 0, len(definitions))
	for _, definition := range definitions {
		status := BadgeStatus{Definition: definition}
		if badge, ok := earnedByID[definition.ID]; ok {
			status.Earned = true
			status.Progress = 100
			earnedAt := badge.EarnedAt
			status.EarnedAt = &earnedAt
		} else {
			status.Progress = gamification.BadgeProgress(definition.Criteria, inputs)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// EvaluateBadges awards every badge whose criteria the user now satisfies.
// Awarding is idempotent; badges already earned are skipped.
func (s *Service) EvaluateBadges(ctx context.Context, tenantID, userID string) ([]UserBadge, error) {
	statuses, err := s.BadgeStatuses(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var newlyEarned []UserBadge
	for _, status := range statuses {
		if status.Earned || status.Progress < 100 {
			continue
		}
		awarded, err := s.repo.AwardBadge(ctx, tenantID, userID, status.Definition.ID, now)
		if err != nil {
			return newlyEarned, err
		}
		if awarded {
			observability.RecordBadgeEarned()
			newlyEarned = append(newlyEarned, UserBadge{UserID: userID, BadgeID: status.Definition.ID, EarnedAt: now})
		}
	}
	return newlyEarned, nil
}

// AssessComeback recomputes the comeback mechanic for a participant in a
// competition and persists the updated row. Stacking across competitions is
// resolved at award time by taking the single highest active multiplier.
func (s *Service) AssessComeback(ctx context.Context, tenantID, userID, competitionType, competitionID string) (gamification.ComebackAssessment, error) {
	standing, err := s.repo.CompetitionStanding(ctx, tenantID, competitionType, competitionID, userID)
	if err != nil {
		return gamification.ComebackAssessment{}, err
	}

	now := s.now()
	assessment := gamification.AssessComeback(standing, now)

	state := ComebackState{
		UserID:          userID,
		CompetitionType: competitionType,
		CompetitionID:   competitionID,
		BehindByPct:     assessment.BehindByPct,
		Multiplier:      assessment.Multiplier,
		BonusActive:     assessment.Active,
	}
	if assessment.Active {
		expires := assessment.ExpiresAt
		state.BonusExpiresAt = &expires
	}

	if err := s.repo.UpsertComeback(ctx, tenantID, state); err != nil {
		return gamification.ComebackAssessment{}, err
	}
	return assessment, nil
}

// LeaderboardView is a ranked leaderboard plus the requesting user's own
// standing when they fall outside the returned rows.
type LeaderboardView struct {
	Period  gamification.Period
	Entries []gamification.RankedEntry
	Me      *gamification.RankedEntry
}

// Leaderboard ranks participants by the selected metric. When the requester
// is outside the top rows their standing comes from an indexed count query
// rather than ranking the whole table.
func (s *Service) Leaderboard(ctx context.Context, tenantID string, period gamification.Period, limit int, meUserID string) (*LeaderboardView, error) {
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	if limit <= 0 {
		limit = 10
	}

	entries, err := s.repo.TopByPoints(ctx, tenantID, period, limit)
	if err != nil {
		return nil, err
	}

	view := &LeaderboardView{
		Period:  period,
		Entries: gamification.Rank(entries, limit),
	}

	if meUserID == "" {
		return view, nil
	}
	for _, entry := range view.Entries {
		if entry.UserID == meUserID {
			return view, nil
		}
	}

	standing, err := s.repo.UserStanding(ctx, tenantID, period, meUserID)
	if err != nil {
		return nil, err
	}
	view.Me = standing
	return view, nil
}

// ResetWeeklyPoints zeroes every user's weekly points. Invoked by an
// external scheduler at week rollover.
func (s *Service) ResetWeeklyPoints(ctx context.Context, tenantID string) error {
	return s.repo.ResetWeeklyPoints(ctx, tenantID)
}

// ResetMonthlyPoints zeroes every user's monthly points.
func (s *Service) ResetMonthlyPoints(ctx context.Context, tenantID string) error {
	return s.repo.ResetMonthlyPoints(ctx, tenantID)
}

func exerciseNames(exercises []gamification.Exercise) []string {
	names := make([]string, 0, len(exercises))
	seen := make(map[string]struct{}, len(exercises))
	for _, exercise := range exercises {
		if _, ok := seen[exercise.Name]; ok {
			continue
		}
		seen[exercise.Name] = struct{}{}
		names = append(names, exercise.Name)
	}
	return names
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
