package bot

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"availability-bot/internal/dialog"
)

type fakeSender struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	err      error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 77}, f.err
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: f.err == nil}, f.err
}

var kb = dialog.Keyboard{
	{{Text: "A", Data: "a"}, {Text: "B", Data: "b"}},
	{{Text: "C", Data: "c"}},
}

func TestSendMessage(t *testing.T) {
	s := &fakeSender{}
	b := NewWithSender(s, nil)

	ref, err := b.SendMessage(context.Background(), 10, "hi", kb)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if ref != (dialog.MessageRef{ChatID: 10, MessageID: 77}) {
		t.Fatalf("ref = %+v", ref)
	}

	msg, ok := s.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", s.sent[0])
	}
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 2 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected markup %#v", msg.ReplyMarkup)
	}
	if *markup.InlineKeyboard[1][0].CallbackData != "c" {
		t.Fatalf("callback data = %q", *markup.InlineKeyboard[1][0].CallbackData)
	}
}

func TestEditMessageText(t *testing.T) {
	s := &fakeSender{}
	b := NewWithSender(s, nil)
	ref := dialog.MessageRef{ChatID: 1, MessageID: 2}

	if err := b.EditMessageText(context.Background(), ref, "with keyboard", kb); err != nil {
		t.Fatal(err)
	}
	if err := b.EditMessageText(context.Background(), ref, "plain", nil); err != nil {
		t.Fatal(err)
	}

	withKB := s.requests[0].(tgbotapi.EditMessageTextConfig)
	if withKB.ReplyMarkup == nil || withKB.Text != "with keyboard" || withKB.MessageID != 2 {
		t.Fatalf("unexpected edit %#v", withKB)
	}
	plain := s.requests[1].(tgbotapi.EditMessageTextConfig)
	if plain.ReplyMarkup != nil {
		t.Fatal("plain edit should drop the keyboard")
	}
}

func TestEditIgnoresNotModified(t *testing.T) {
	s := &fakeSender{err: errors.New("Bad Request: message is not modified")}
	b := NewWithSender(s, nil)

	if err := b.EditMessageKeyboard(context.Background(), dialog.MessageRef{ChatID: 1, MessageID: 1}, kb); err != nil {
		t.Fatalf("expected not-modified to be ignored, got %v", err)
	}

	s.err = errors.New("Forbidden: bot was blocked by the user")
	if err := b.EditMessageKeyboard(context.Background(), dialog.MessageRef{ChatID: 1, MessageID: 1}, kb); err == nil {
		t.Fatal("expected error")
	}
}

func TestAnswerCallback(t *testing.T) {
	s := &fakeSender{}
	b := NewWithSender(s, nil)

	if err := b.AnswerCallback(context.Background(), "id-1", ""); err != nil {
		t.Fatal(err)
	}
	if err := b.AnswerCallback(context.Background(), "id-2", "warning"); err != nil {
		t.Fatal(err)
	}

	quiet := s.requests[0].(tgbotapi.CallbackConfig)
	alert := s.requests[1].(tgbotapi.CallbackConfig)
	if quiet.ShowAlert || !alert.ShowAlert || alert.Text != "warning" {
		t.Fatalf("unexpected callbacks %#v %#v", quiet, alert)
	}
}

func TestCancelledContext(t *testing.T) {
	s := &fakeSender{}
	b := NewWithSender(s, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.SendMessage(ctx, 1, "x", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(s.sent) != 0 {
		t.Fatal("nothing should be sent on a cancelled context")
	}
}

func TestIdentityOf(t *testing.T) {
	if id := IdentityOf(&tgbotapi.User{ID: 1, UserName: "alice", FirstName: "Alice"}); id.DisplayName != "alice" || id.UserID != 1 {
		t.Fatalf("identity = %+v", id)
	}
	if id := IdentityOf(&tgbotapi.User{ID: 2, FirstName: "Bob", LastName: "Smith"}); id.DisplayName != "Bob Smith" {
		t.Fatalf("identity = %+v", id)
	}
	if id := IdentityOf(&tgbotapi.User{ID: 3, FirstName: "Cher"}); id.DisplayName != "Cher" {
		t.Fatalf("identity = %+v", id)
	}
}
