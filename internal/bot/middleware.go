package bot

import (
	"context"
	"fmt"
	"time"
)

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// allow applies the per-user message rate limit. Managers are not limited.
func (b *Bot) allow(ctx context.Context, userID int64) bool {
	if b.isManager(userID) {
		return true
	}
	window := time.Duration(b.config.Bot.RateLimitWindow) * time.Second
	return b.sessions.Allow(ctx, fmt.Sprintf("tg:%d", userID), b.config.Bot.RateLimitMessages, window)
}

func (b *Bot) countUpdate(kind string) {
	if b.metrics != nil {
		b.metrics.UpdatesProcessed.WithLabelValues(kind).Inc()
	}
}
