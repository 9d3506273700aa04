package auth

// Known OAuth scopes used by the gamification endpoints.
const (
	ScopeWorkoutsWrite   = "workouts:write"
	ScopeWorkoutsRead    = "workouts:read"
	ScopeLeaderboardRead = "leaderboard:read"
)
