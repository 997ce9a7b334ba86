package domain

import (
	"context"
	"time"

	"github.com/detailongo/dotg-team/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SessionRepository stores serialized wizard sessions.
type SessionRepository interface {
	GetSession(ctx context.Context, sessionID string) (*models.SessionState, error)
	SaveSession(ctx context.Context, state *models.SessionState) error
	DeleteSession(ctx context.Context, sessionID string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// OrderJournal is the local record of submitted orders.
type OrderJournal interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, from, to time.Time) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

type SheetsWriter interface {
	AppendOrder(ctx context.Context, order *models.Order) error
	UpsertOrder(ctx context.Context, order *models.Order) error
	ReplaceOrdersSheet(ctx context.Context, orders []*models.Order) error
}

type SyncWorker interface {
	EnqueueOrder(ctx context.Context, taskType string, order *models.Order) error
	EnqueueResync(ctx context.Context) error
}

type TelegramService interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendMarkdown(chatID int64, text string) (tgbotapi.Message, error)
	SendDocument(chatID int64, path, caption string) (tgbotapi.Message, error)
	SendWithInlineKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	EditMessage(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error)
	AnswerCallback(callbackID string, text string) error
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
