package outbox

const workoutLoggedSchema = `{
  "type": "object",
  "title": "WorkoutLogged",
  "properties": {
    "workout_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "completed_at": {"type": "string", "format": "date-time"},
    "duration_min": {"type": "integer"},
    "photo_count": {"type": "integer"},
    "paired": {"type": "boolean"}
  },
  "required": ["workout_id", "tenant_id", "user_id", "completed_at", "duration_min", "photo_count", "paired"],
  "additionalProperties": false
}`

const pointsAwardedSchema = `{
  "type": "object",
  "title": "PointsAwarded",
  "properties": {
    "workout_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "points": {"type": "integer"},
    "current_streak": {"type": "integer"},
    "records_broken": {"type": "integer"},
    "comeback_applied": {"type": "boolean"},
    "awarded_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workout_id", "tenant_id", "user_id", "points", "current_streak", "records_broken", "comeback_applied", "awarded_at"],
  "additionalProperties": false
}`

const badgeEarnedSchema = `{
  "type": "object",
  "title": "BadgeEarned",
  "properties": {
    "badge_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "earned_at": {"type": "string", "format": "date-time"}
  },
  "required": ["badge_id", "tenant_id", "user_id", "earned_at"],
  "additionalProperties": false
}`
