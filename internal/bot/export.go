package bot

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/detailongo/dotg-team/internal/logging"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleExport sends managers an XLSX of the orders created in the
// requested period. Both dates are inclusive and optional.
func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.isManager(msg.From.ID) {
		b.sendMessage(chatID, "⛔ This command is available to managers only.")
		return
	}

	from, to, err := parseExportPeriod(msg.CommandArguments())
	if err != nil {
		b.sendMessage(chatID, "⚠️ "+err.Error())
		return
	}

	path, err := b.orders.ExportFile(ctx, b.config.Exports.Path, from, to)
	if err != nil {
		b.reportError(ctx, chatID, err)
		return
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			logging.FromContext(ctx, b.logger).Warn().Err(rmErr).Str("path", path).Msg("failed to remove export file")
		}
	}()

	if _, err := b.tgService.SendDocument(chatID, path, "📊 Orders export"); err != nil {
		b.reportError(ctx, chatID, err)
		return
	}
	if b.metrics != nil {
		b.metrics.ExportsTotal.Inc()
	}
}

// parseExportPeriod reads "[from] [to]". The returned upper bound is
// exclusive.
func parseExportPeriod(args string) (time.Time, time.Time, error) {
	var from, to time.Time
	parts := strings.Fields(args)
	if len(parts) > 2 {
		return from, to, fmt.Errorf("usage: /export [from] [to]")
	}
	if len(parts) > 0 {
		d, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			return from, to, fmt.Errorf("invalid from date %q, expected YYYY-MM-DD", parts[0])
		}
		from = d
	}
	if len(parts) > 1 {
		d, err := time.Parse("2006-01-02", parts[1])
		if err != nil {
			return from, to, fmt.Errorf("invalid to date %q, expected YYYY-MM-DD", parts[1])
		}
		to = d.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("from must not be after to")
	}
	return from, to, nil
}
