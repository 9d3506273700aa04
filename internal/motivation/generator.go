// Package motivation generates short motivational and shame messages for
// scoring results, with a static fallback when the AI backend is slow or
// unavailable.
package motivation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"

	"example.com/gamification/internal/domain"
)

const systemPrompt = "You write one-sentence messages for a fitness accountability app. " +
	"Be punchy and concrete. Never exceed 25 words. No emoji, no hashtags."

// Generator produces messages via the OpenAI chat API. Failures and timeouts
// fall back to a canned message so the scoring path never degrades.
type Generator struct {
	client  openai.Client
	model   openai.ChatModel
	timeout time.Duration
	logger  *zap.SugaredLogger
	enabled bool
}

// Config carries the OpenAI connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewGenerator constructs a Generator. An empty APIKey yields a generator
// that serves fallback messages only.
func NewGenerator(cfg Config, logger *zap.SugaredLogger) *Generator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Generator{
		client:  openai.NewClient(opts...),
		model:   openai.ChatModel(cfg.Model),
		timeout: timeout,
		logger:  logger,
		enabled: cfg.APIKey != "",
	}
}

// Generate implements domain.Motivator.
func (g *Generator) Generate(ctx context.Context, mc domain.MotivationContext, messageType domain.MessageType) string {
	if !g.enabled {
		return fallbackMessage(mc, messageType)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(mc, messageType)),
		},
	})
	if err != nil {
		g.logger.Warnw("message generation failed, using fallback",
			"message_type", messageType, "error", err)
		return fallbackMessage(mc, messageType)
	}
	if len(completion.Choices) == 0 {
		return fallbackMessage(mc, messageType)
	}

	message := strings.TrimSpace(completion.Choices[0].Message.Content)
	if message == "" {
		return fallbackMessage(mc, messageType)
	}
	return message
}

func userPrompt(mc domain.MotivationContext, messageType domain.MessageType) string {
	var b strings.Builder
	switch messageType {
	case domain.MessageStreakMilestone:
		fmt.Fprintf(&b, "The user just hit a %d-day workout streak milestone.", mc.CurrentStreak)
	case domain.MessageComeback:
		b.WriteString("The user is behind in a competition and just earned comeback bonus points.")
	case domain.MessageShame:
		b.WriteString("The user skipped their planned workout. Write a guilt-trip message from their workout buddy's perspective.")
	default:
		fmt.Fprintf(&b, "The user finished a workout on a %d-day streak.", mc.CurrentStreak)
	}
	fmt.Fprintf(&b, " They earned %d points", mc.PointsAwarded)
	if mc.RecordsBroken > 0 {
		fmt.Fprintf(&b, " and broke %d personal record(s)", mc.RecordsBroken)
	}
	b.WriteString(". Write the message.")
	return b.String()
}

var fallbacks = map[domain.MessageType][]string{
	domain.MessageMotivation: {
		"Workout logged. Keep stacking those days.",
		"Another one in the books. Consistency beats intensity.",
		"Done is better than perfect. Nice work today.",
	},
	domain.MessageStreakMilestone: {
		"Streak milestone reached. This is what discipline looks like.",
		"Your streak just hit a new tier. The multiplier is yours now.",
	},
	domain.MessageComeback: {
		"Comeback bonus active. Every workout counts extra right now.",
		"You're closing the gap. Keep the pressure on.",
	},
	domain.MessageShame: {
		"Your buddy showed up today. You didn't.",
		"The streak doesn't care about your excuses.",
	},
}

// fallbackMessage returns a deterministic canned message for the type. The
// award size rotates through the pool so repeat awards vary.
func fallbackMessage(mc domain.MotivationContext, messageType domain.MessageType) string {
	pool, ok := fallbacks[messageType]
	if !ok || len(pool) == 0 {
		pool = fallbacks[domain.MessageMotivation]
	}
	index := (mc.CurrentStreak + mc.PointsAwarded) % len(pool)
	if index < 0 {
		index = 0
	}
	return pool[index]
}
