package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"availability-bot/internal/dialog"
	"availability-bot/internal/models"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	API Sender
	log *zap.Logger
}

var _ dialog.Transport = (*Bot)(nil)

func New(token, endpoint string, log *zap.Logger) (*Bot, *tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bot: %w", err)
	}

	log.Info("Authorized on account", zap.String("account", api.Self.UserName))

	return NewWithSender(api, log), api, nil
}

func NewWithSender(api Sender, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{API: api, log: log}
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, kb dialog.Keyboard) (dialog.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return dialog.MessageRef{}, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if kb != nil {
		msg.ReplyMarkup = Markup(kb)
	}

	sent, err := b.API.Send(msg)
	if err != nil {
		return dialog.MessageRef{}, err
	}
	return dialog.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (b *Bot) EditMessageKeyboard(ctx context.Context, ref dialog.MessageRef, kb dialog.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(ref.ChatID, ref.MessageID, Markup(kb))
	_, err := b.API.Request(edit)
	return ignoreNotModified(err)
}

func (b *Bot) EditMessageText(ctx context.Context, ref dialog.MessageRef, text string, kb dialog.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var edit tgbotapi.EditMessageTextConfig
	if kb != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(ref.ChatID, ref.MessageID, text, Markup(kb))
	} else {
		edit = tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	}

	_, err := b.API.Request(edit)
	return ignoreNotModified(err)
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, alert string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	callback := tgbotapi.NewCallback(callbackID, alert)
	if alert != "" {
		callback = tgbotapi.NewCallbackWithAlert(callbackID, alert)
	}
	_, err := b.API.Request(callback)
	return err
}

// Markup converts a dialog keyboard to Telegram inline markup.
func Markup(kb dialog.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, r := range kb {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, btn := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// IdentityOf builds the poll identity for a Telegram user: the username, or
// the full name for users without one.
func IdentityOf(u *tgbotapi.User) models.Identity {
	name := u.UserName
	if name == "" {
		name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return models.Identity{UserID: u.ID, DisplayName: name}
}

// Telegram rejects edits that leave the message unchanged.
func ignoreNotModified(err error) error {
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}
