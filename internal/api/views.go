package api

import (
	"time"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/gamification"
)

// WorkoutView exposes full details about a workout.
type WorkoutView struct {
	WorkoutID     string         `json:"workout_id"`
	UserID        string         `json:"user_id"`
	PairingID     *string        `json:"pairing_id,omitempty"`
	CompletedAt   time.Time      `json:"completed_at"`
	DurationMin   int            `json:"duration_min"`
	Notes         string         `json:"notes,omitempty"`
	Exercises     []ExerciseView `json:"exercises"`
	TotalVolumeKg float64        `json:"total_volume_kg"`
	PhotoCount    int            `json:"photo_count"`
	PointsAwarded int            `json:"points_awarded"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ExerciseView mirrors the stored exercise payload.
type ExerciseView struct {
	Name string    `json:"name"`
	Sets []SetView `json:"sets"`
}

// SetView mirrors one performed set.
type SetView struct {
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
	Unit   string  `json:"unit"`
}

// PointsView itemises a point award for clients.
type PointsView struct {
	Total                 int            `json:"total"`
	Breakdown             map[string]int `json:"breakdown"`
	ConsistencyMultiplier float64        `json:"consistency_multiplier"`
	ComebackMultiplier    float64        `json:"comeback_multiplier,omitempty"`
	NewRecords            []RecordView   `json:"new_records,omitempty"`
}

// RecordView is a personal record set or broken by a workout.
type RecordView struct {
	Exercise string  `json:"exercise"`
	WeightKg float64 `json:"weight_kg"`
	Reps     int     `json:"reps"`
}

// StreakView summarises the user's streak after a workout.
type StreakView struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// LogWorkoutResponse describes the response body for workout submission.
type LogWorkoutResponse struct {
	Workout WorkoutView `json:"workout"`
	Points  PointsView  `json:"points"`
	Streak  StreakView  `json:"streak"`
	Message string      `json:"message,omitempty"`
	Replay  bool        `json:"idempotent_replay"`
}

// ListWorkoutsResponse packages list results.
type ListWorkoutsResponse struct {
	Items      []WorkoutView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// StatsResponse is the aggregate stats snapshot for a user.
type StatsResponse struct {
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	TotalWorkouts int    `json:"total_workouts"`
	TotalPoints   int    `json:"total_points"`
	WeeklyPoints  int    `json:"weekly_points"`
	MonthlyPoints int    `json:"monthly_points"`
	Level         int    `json:"level"`
}

// BadgeView pairs a badge definition with the user's progress.
type BadgeView struct {
	BadgeID  string     `json:"badge_id"`
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Rarity   string     `json:"rarity"`
	Progress float64    `json:"progress"`
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

// BadgesResponse lists every badge with progress.
type BadgesResponse struct {
	Items []BadgeView `json:"items"`
}

// LeaderboardEntryView is a ranked leaderboard row.
type LeaderboardEntryView struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Points int    `json:"points"`
}

// LeaderboardResponse is the ranked leaderboard plus the caller's own
// standing when outside the listed rows.
type LeaderboardResponse struct {
	Period  string                 `json:"period"`
	Entries []LeaderboardEntryView `json:"entries"`
	Me      *LeaderboardEntryView  `json:"me,omitempty"`
}

// ComebackResponse reports a comeback assessment.
type ComebackResponse struct {
	BehindByPct float64    `json:"behind_by_pct"`
	Multiplier  float64    `json:"multiplier"`
	Active      bool       `json:"active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func toWorkoutView(workout domain.WorkoutRecord) WorkoutView {
	exercises := make([]ExerciseView, 0, len(workout.Exercises))
	for _, exercise := range workout.Exercises {
		sets := make([]SetView, 0, len(exercise.Sets))
		for _, set := range exercise.Sets {
			sets = append(sets, SetView{Reps: set.Reps, Weight: set.Weight, Unit: string(set.Unit)})
		}
		exercises = append(exercises, ExerciseView{Name: exercise.Name, Sets: sets})
	}

	return WorkoutView{
		WorkoutID:     workout.ID,
		UserID:        workout.UserID,
		PairingID:     workout.PairingID,
		CompletedAt:   workout.CompletedAt,
		DurationMin:   workout.DurationMin,
		Notes:         workout.Notes,
		Exercises:     exercises,
		TotalVolumeKg: workout.TotalVolumeKg,
		PhotoCount:    workout.PhotoCount,
		PointsAwarded: workout.PointsAwarded,
		CreatedAt:     workout.CreatedAt,
	}
}

func toPointsView(breakdown gamification.PointsBreakdown) PointsView {
	view := PointsView{
		Total:                 breakdown.TotalPoints,
		Breakdown:             breakdown.Breakdown,
		ConsistencyMultiplier: breakdown.ConsistencyMultiplier,
	}
	if breakdown.ComebackMultiplier > 1.0 {
		view.ComebackMultiplier = breakdown.ComebackMultiplier
	}
	for _, record := range breakdown.NewRecords {
		view.NewRecords = append(view.NewRecords, RecordView{
			Exercise: record.Exercise,
			WeightKg: record.WeightKg,
			Reps:     record.Reps,
		})
	}
	return view
}

func toBadgeView(status domain.BadgeStatus) BadgeView {
	return BadgeView{
		BadgeID:  status.Definition.ID,
		Name:     status.Definition.Name,
		Category: status.Definition.Category,
		Rarity:   status.Definition.Rarity,
		Progress: status.Progress,
		Earned:   status.Earned,
		EarnedAt: status.EarnedAt,
	}
}
