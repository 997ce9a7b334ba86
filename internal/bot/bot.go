// Package bot is the Telegram frontend of the booking wizard. Every chat
// owns one wizard session; managers can also export the order journal.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/config"
	"github.com/detailongo/dotg-team/internal/domain"
	"github.com/detailongo/dotg-team/internal/logging"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/service"
	"github.com/detailongo/dotg-team/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type Sessions interface {
	GetOrCreate(ctx context.Context, sessionID string) (wizard.View, error)
	Dispatch(ctx context.Context, sessionID string, action wizard.Action) (wizard.View, error)
	Update(ctx context.Context, sessionID string, upd service.FieldUpdate) (wizard.View, error)
	Delete(ctx context.Context, sessionID string) error
	Allow(ctx context.Context, key string, limit int, window time.Duration) bool
	SetTempData(ctx context.Context, sessionID, key string, value interface{}) error
	TempData(ctx context.Context, sessionID string) (*models.SessionState, error)
}

type OrderExporter interface {
	ExportFile(ctx context.Context, dir string, from, to time.Time) (string, error)
}

type Bot struct {
	tgService domain.TelegramService
	config    *config.Config
	sessions  Sessions
	orders    OrderExporter
	metrics   *Metrics
	logger    *zerolog.Logger
}

func NewBot(
	tgService domain.TelegramService,
	cfg *config.Config,
	sessions Sessions,
	orders OrderExporter,
	metrics *Metrics,
	logger *zerolog.Logger,
) *Bot {
	return &Bot{
		tgService: tgService,
		config:    cfg,
		sessions:  sessions,
		orders:    orders,
		metrics:   metrics,
		logger:    logging.Component(logger, "bot"),
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop stops receiving Telegram updates.
func (b *Bot) Stop() {
	if b == nil || b.tgService == nil {
		return
	}
	b.tgService.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	updateCtx, _ = logging.WithRequestID(updateCtx, b.logger, "")

	b.withRecovery(func() {
		var userID, chatID int64
		switch {
		case update.Message != nil && update.Message.From != nil:
			userID, chatID = update.Message.From.ID, update.Message.Chat.ID
		case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
			userID, chatID = update.CallbackQuery.From.ID, update.CallbackQuery.Message.Chat.ID
		default:
			return
		}

		if !b.allow(updateCtx, userID) {
			logging.FromContext(updateCtx, b.logger).Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
			if update.Message != nil {
				b.sendMessage(chatID, "⚠️ You are sending messages too quickly. Please wait a moment.")
			}
			return
		}

		if update.CallbackQuery != nil {
			b.countUpdate("callback")
			b.handleCallback(updateCtx, update.CallbackQuery)
			return
		}
		b.countUpdate("message")
		b.handleMessage(updateCtx, update.Message)
	})
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sessionID := sessionKey(chatID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.showSession(ctx, chatID, sessionID)
		case "reset":
			if err := b.sessions.Delete(ctx, sessionID); err != nil {
				b.reportError(ctx, chatID, err)
				return
			}
			b.showSession(ctx, chatID, sessionID)
		case "export":
			b.handleExport(ctx, msg)
		default:
			b.sendMessage(chatID, helpText)
		}
		return
	}

	view, err := b.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		b.reportError(ctx, chatID, err)
		return
	}

	upd, ok := fieldUpdate(view, parseFields(msg.Text))
	if !ok {
		b.sendView(ctx, chatID, view)
		return
	}

	next, err := b.sessions.Update(ctx, sessionID, upd)
	if err != nil {
		b.reportError(ctx, chatID, err)
		return
	}
	b.sendView(ctx, chatID, next)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if err := b.tgService.AnswerCallback(cb.ID, ""); err != nil {
		logging.FromContext(ctx, b.logger).Debug().Err(err).Msg("answer callback failed")
	}

	data := cb.Data
	if data == cbNoop {
		return
	}

	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	sessionID := sessionKey(chatID)

	var (
		view wizard.View
		err  error
	)
	switch {
	case strings.HasPrefix(data, cbEvent):
		ev := wizard.Event(strings.TrimPrefix(data, cbEvent))
		view, err = b.sessions.Dispatch(ctx, sessionID, wizard.Action{Event: ev})
		if needsConfirmation(err) {
			var verr *apperr.ValidationError
			errors.As(err, &verr)
			kb := confirmKeyboard(ev)
			if _, sendErr := b.tgService.SendWithInlineKeyboard(chatID, verr.Message, kb); sendErr != nil {
				logging.FromContext(ctx, b.logger).Error().Err(sendErr).Msg("send confirmation failed")
			}
			return
		}
	case strings.HasPrefix(data, cbConfirm):
		ev := wizard.Event(strings.TrimPrefix(data, cbConfirm))
		view, err = b.sessions.Dispatch(ctx, sessionID, wizard.Action{Event: ev, Confirmed: true})
	default:
		upd, ok := callbackUpdate(data)
		if !ok {
			return
		}
		view, err = b.sessions.Update(ctx, sessionID, upd)
	}

	if err != nil {
		b.reportError(ctx, chatID, err)
		if view.SessionID == "" {
			return
		}
	}
	b.editView(ctx, chatID, messageID, view)
}

func (b *Bot) showSession(ctx context.Context, chatID int64, sessionID string) {
	view, err := b.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		b.reportError(ctx, chatID, err)
		return
	}
	b.sendView(ctx, chatID, view)
}

// sendView posts the view as a new message and strips the keyboard from the
// previous one so only the latest view takes input.
func (b *Bot) sendView(ctx context.Context, chatID int64, view wizard.View) {
	log := logging.FromContext(ctx, b.logger)

	var prevID int64
	if state, err := b.sessions.TempData(ctx, view.SessionID); err == nil {
		prevID = state.GetInt64(viewMessageKey)
	}

	msg, err := b.tgService.SendWithInlineKeyboard(chatID, renderView(view), viewKeyboard(view))
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send view failed")
		return
	}
	if err := b.sessions.SetTempData(ctx, view.SessionID, viewMessageKey, msg.MessageID); err != nil {
		log.Debug().Err(err).Msg("store view message id failed")
	}

	if prevID != 0 && prevID != int64(msg.MessageID) {
		strip := tgbotapi.NewEditMessageReplyMarkup(chatID, int(prevID), tgbotapi.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
		})
		if _, err := b.tgService.Request(strip); err != nil {
			log.Debug().Err(err).Int64("message_id", prevID).Msg("strip old keyboard failed")
		}
	}
}

func (b *Bot) editView(ctx context.Context, chatID int64, messageID int, view wizard.View) {
	kb := viewKeyboard(view)
	if _, err := b.tgService.EditMessage(chatID, messageID, renderView(view), &kb); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return
		}
		logging.FromContext(ctx, b.logger).Debug().Err(err).Msg("edit failed, sending new message")
		b.sendView(ctx, chatID, view)
	}
}

// reportError tells the user what went wrong. Validation messages are
// shown as is; anything else gets a generic retry hint.
func (b *Bot) reportError(ctx context.Context, chatID int64, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		b.sendMessage(chatID, "⚠️ "+verr.Message)
	case apperr.IsSubmission(err):
		b.sendMessage(chatID, "❌ We could not complete that request. Please try again.")
	default:
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
		logging.FromContext(ctx, b.logger).Error().Err(err).Int64("chat_id", chatID).Msg("update failed")
		b.sendMessage(chatID, "❌ Something went wrong. Please try again later.")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tgService.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}

func (b *Bot) isManager(userID int64) bool {
	for _, managerID := range b.config.Bot.Managers {
		if userID == managerID {
			return true
		}
	}
	return false
}

func needsConfirmation(err error) bool {
	var verr *apperr.ValidationError
	return errors.As(err, &verr) && verr.Field == "confirm"
}

const viewMessageKey = "view_message_id"

func sessionKey(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}

const helpText = `/start - continue your booking
/reset - start over
/export [from] [to] - managers: export orders (dates as YYYY-MM-DD)`
