package domain

import "context"

// MessageType selects the tone of a generated motivational message.
type MessageType string

const (
	MessageMotivation      MessageType = "motivation"
	MessageStreakMilestone MessageType = "streak_milestone"
	MessageComeback        MessageType = "comeback"
	MessageShame           MessageType = "shame"
)

// MotivationContext is the opaque context object handed to the message
// generator.
type MotivationContext struct {
	UserID        string
	CurrentStreak int
	PointsAwarded int
	RecordsBroken int
}

// Motivator produces short motivational or shame messages. Implementations
// are best-effort: they must return a usable fallback message rather than an
// error when the upstream generator is slow or unavailable.
type Motivator interface {
	Generate(ctx context.Context, mc MotivationContext, messageType MessageType) string
}
