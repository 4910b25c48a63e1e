package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"availability-bot/internal/bot"
	"availability-bot/internal/dialog"
	"availability-bot/pkg/logger"
)

const (
	TextUsage      = "Use /start to pick the dates that suit you."
	TextGroupUsage = "Please message me privately and send /start to take part in the poll."
)

// EventHandler applies a dialog event.
type EventHandler interface {
	Handle(ctx context.Context, ev dialog.Event) error
}

// Dispatcher runs tasks one at a time per key.
type Dispatcher interface {
	Submit(key int64, fn func())
}

// Handler turns Telegram updates into dialog events. Events of one user run
// in arrival order; different users are handled in parallel.
type Handler struct {
	events    EventHandler
	transport dialog.Transport
	serial    Dispatcher
	log       *zap.Logger
}

func New(events EventHandler, transport dialog.Transport, serial Dispatcher, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		events:    events,
		transport: transport,
		serial:    serial,
		log:       log,
	}
}

// HandleUpdate routes one update. It does not block on the dialog; ctx is
// handed to the queued work and must outlive the update loop.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		h.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.From.IsBot {
		return
	}
	identity := bot.IdentityOf(message.From)
	chatID := message.Chat.ID

	if !message.Chat.IsPrivate() {
		if message.IsCommand() {
			h.reply(ctx, identity.UserID, chatID, TextGroupUsage)
		}
		return
	}

	if message.IsCommand() && message.Command() == "start" {
		h.dispatch(ctx, dialog.StartEvent(identity, chatID))
		return
	}

	h.reply(ctx, identity.UserID, chatID, TextUsage)
}

func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.From == nil {
		return
	}

	// Inline-mode callbacks carry no message and can never match a session.
	var ref dialog.MessageRef
	if callback.Message != nil {
		ref = dialog.MessageRef{ChatID: callback.Message.Chat.ID, MessageID: callback.Message.MessageID}
	}

	ev := dialog.CallbackEvent(bot.IdentityOf(callback.From), ref, callback.ID, callback.Data)
	h.dispatch(ctx, ev)
}

func (h *Handler) dispatch(ctx context.Context, ev dialog.Event) {
	userID := ev.Identity.UserID
	h.serial.Submit(userID, func() {
		if err := h.events.Handle(ctx, ev); err != nil {
			h.log.Error("Error handling event",
				zap.Int64(logger.FieldUserID, userID),
				zap.Int64(logger.FieldChatID, ev.ChatID),
				zap.Stringer(logger.FieldOperation, ev.Kind),
				zap.Error(err),
			)
		}
	})
}

// reply goes through the user's queue so it cannot overtake their dialog.
func (h *Handler) reply(ctx context.Context, userID, chatID int64, text string) {
	h.serial.Submit(userID, func() {
		if _, err := h.transport.SendMessage(ctx, chatID, text, nil); err != nil {
			h.log.Error("Error sending message",
				zap.Int64(logger.FieldUserID, userID),
				zap.Int64(logger.FieldChatID, chatID),
				zap.Error(err),
			)
		}
	})
}
