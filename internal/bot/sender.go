package bot

import (
	"github.com/detailongo/dotg-team/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type apiSender struct {
	*tgbotapi.BotAPI
}

func (s apiSender) GetSelf() tgbotapi.User {
	return s.Self
}

// NewSender adapts a connected BotAPI to the sender the Telegram service
// wraps.
func NewSender(api *tgbotapi.BotAPI) domain.TelegramSender {
	return apiSender{BotAPI: api}
}
