// Package api exposes HTTP handlers for the gamification service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"example.com/gamification/internal/auth"
	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/gamification"
	"example.com/gamification/internal/persistence"
)

var validate = validator.New()

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/stats", h.stats)
	mux.HandleFunc("/v1/badges", h.badges)
	mux.HandleFunc("/v1/leaderboard", h.leaderboard)
	mux.HandleFunc("/v1/comeback/assess", h.assessComeback)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.logWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getWorkout(w, r, id)
	case http.MethodDelete:
		h.deleteWorkout(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) logWorkout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:write required")
		return
	}

	var req LogWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	result, err := h.service.LogWorkout(r.Context(), domain.LogWorkoutInput{
		TenantID:       claims.TenantID,
		UserID:         claims.Subject,
		PairingID:      req.PairingID,
		CompletedAt:    req.CompletedAt,
		DurationMin:    req.DurationMin,
		Notes:          req.Notes,
		Exercises:      req.exercises(),
		PhotoCount:     req.PhotoCount,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := LogWorkoutResponse{
		Workout: toWorkoutView(*result.Workout),
		Points:  toPointsView(result.Points),
		Streak: StreakView{
			Current: result.Streak.Current,
			Longest: result.Streak.Longest,
		},
		Message: result.Message,
		Replay:  result.Replay,
	}

	status := http.StatusCreated
	if result.Replay {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireReadScope(w, r)
	if !ok {
		return
	}

	workout, err := h.service.GetWorkout(r.Context(), claims.TenantID, claims.Subject, id)
	if err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:write required")
		return
	}

	if err := h.service.DeleteWorkout(r.Context(), claims.TenantID, claims.Subject, id); err != nil {
		if errors.Is(err, domain.ErrWorkoutNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "workout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireReadScope(w, r)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	cursorToken := r.URL.Query().Get("cursor")
	cursor, err := persistence.DecodeCursor(cursorToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	workouts, next, err := h.service.ListWorkouts(r.Context(), claims.TenantID, claims.Subject, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]WorkoutView, 0, len(workouts))
	for _, workout := range workouts {
		items = append(items, toWorkoutView(workout))
	}

	writeJSON(w, http.StatusOK, ListWorkoutsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireReadScope(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetStats(r.Context(), claims.TenantID, claims.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		UserID:        view.UserID,
		CurrentStreak: view.CurrentStreak,
		LongestStreak: view.LongestStreak,
		TotalWorkouts: view.TotalWorkouts,
		TotalPoints:   view.TotalPoints,
		WeeklyPoints:  view.WeeklyPoints,
		MonthlyPoints: view.MonthlyPoints,
		Level:         view.Level,
	})
}

func (h *Handler) badges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireReadScope(w, r)
	if !ok {
		return
	}

	statuses, err := h.service.BadgeStatuses(r.Context(), claims.TenantID, claims.Subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]BadgeView, 0, len(statuses))
	for _, status := range statuses {
		items = append(items, toBadgeView(status))
	}
	writeJSON(w, http.StatusOK, BadgesResponse{Items: items})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeLeaderboardRead) && !claims.HasScope(auth.ScopeWorkoutsRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope leaderboard:read required")
		return
	}

	period := gamification.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = gamification.PeriodTotal
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 100 {
				parsed = 100
			}
			limit = parsed
		}
	}

	view, err := h.service.Leaderboard(r.Context(), claims.TenantID, period, limit, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "validation_failed", "period must be total, weekly, or monthly")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := LeaderboardResponse{Period: string(view.Period)}
	for _, entry := range view.Entries {
		resp.Entries = append(resp.Entries, LeaderboardEntryView{Rank: entry.Rank, UserID: entry.UserID, Points: entry.Points})
	}
	if view.Me != nil {
		resp.Me = &LeaderboardEntryView{Rank: view.Me.Rank, UserID: view.Me.UserID, Points: view.Me.Points}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) assessComeback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:write required")
		return
	}

	var req AssessComebackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	assessment, err := h.service.AssessComeback(r.Context(), claims.TenantID, claims.Subject, req.CompetitionType, req.CompetitionID)
	if err != nil {
		if errors.Is(err, domain.ErrCompetitionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "competition not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := ComebackResponse{
		BehindByPct: assessment.BehindByPct,
		Multiplier:  assessment.Multiplier,
		Active:      assessment.Active,
	}
	if assessment.Active {
		expires := assessment.ExpiresAt
		resp.ExpiresAt = &expires
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireReadScope(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(auth.ScopeWorkoutsRead) && !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:read required")
		return nil, false
	}
	return claims, true
}

// LogWorkoutRequest is the payload for POST /v1/workouts.
type LogWorkoutRequest struct {
	CompletedAt time.Time         `json:"completed_at" validate:"required"`
	DurationMin int               `json:"duration_min" validate:"required,gt=0,lte=1440"`
	Notes       string            `json:"notes" validate:"max=2000"`
	PairingID   *string           `json:"pairing_id,omitempty" validate:"omitempty,min=1"`
	PhotoCount  int               `json:"photo_count" validate:"gte=0,lte=10"`
	Exercises   []ExercisePayload `json:"exercises" validate:"required,min=1,max=50,dive"`
}

// ExercisePayload is one exercise within a logged workout.
type ExercisePayload struct {
	Name string       `json:"name" validate:"required,max=120"`
	Sets []SetPayload `json:"sets" validate:"required,min=1,max=30,dive"`
}

// SetPayload is one performed set.
type SetPayload struct {
	Reps   int     `json:"reps" validate:"required,gt=0"`
	Weight float64 `json:"weight" validate:"gte=0"`
	Unit   string  `json:"unit" validate:"omitempty,oneof=kg lbs"`
}

// Validate ensures request correctness beyond field tags.
func (r LogWorkoutRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.CompletedAt.After(time.Now().Add(5 * time.Minute)) {
		return fmt.Errorf("completed_at cannot be in the future")
	}
	return nil
}

func (r LogWorkoutRequest) exercises() []gamification.Exercise {
	out := make([]gamification.Exercise, 0, len(r.Exercises))
	for _, exercise := range r.Exercises {
		sets := make([]gamification.Set, 0, len(exercise.Sets))
		for _, set := range exercise.Sets {
			unit := gamification.WeightUnit(set.Unit)
			if unit == "" {
				unit = gamification.UnitKg
			}
			sets = append(sets, gamification.Set{Reps: set.Reps, Weight: set.Weight, Unit: unit})
		}
		out = append(out, gamification.Exercise{Name: exercise.Name, Sets: sets})
	}
	return out
}

// AssessComebackRequest is the payload for POST /v1/comeback/assess.
type AssessComebackRequest struct {
	CompetitionType string `json:"competition_type" validate:"required,oneof=duel group"`
	CompetitionID   string `json:"competition_id" validate:"required,min=1"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
