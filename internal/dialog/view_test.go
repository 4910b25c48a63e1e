package dialog

import (
	"strings"
	"testing"
	"time"

	"availability-bot/internal/calendar"
	"availability-bot/internal/models"
)

func TestCallbackEvent(t *testing.T) {
	msg := MessageRef{ChatID: 1, MessageID: 2}
	id := models.Identity{UserID: 3}

	tests := []struct {
		payload string
		kind    EventKind
		date    models.DateKey
	}{
		{"toggle:2025:8:21", EventToggle, "21.08.2025"},
		{"toggle:2025:2:29", EventIgnore, ""},
		{"toggle:2025:8", EventIgnore, ""},
		{"toggle:a:b:c", EventIgnore, ""},
		{"done", EventDone, ""},
		{"cancel", EventCancel, ""},
		{"confirm", EventConfirm, ""},
		{"edit", EventEdit, ""},
		{"ignore", EventIgnore, ""},
		{"", EventIgnore, ""},
		{"date_2025_8_21", EventIgnore, ""},
	}

	for _, tt := range tests {
		ev := CallbackEvent(id, msg, "cb-1", tt.payload)
		if ev.Kind != tt.kind || ev.Date != tt.date {
			t.Errorf("CallbackEvent(%q) = kind %d date %q, want kind %d date %q", tt.payload, ev.Kind, ev.Date, tt.kind, tt.date)
		}
		if ev.CallbackID != "cb-1" || ev.Message != msg || ev.ChatID != 1 {
			t.Errorf("CallbackEvent(%q) lost routing fields: %#v", tt.payload, ev)
		}
	}
}

func TestTogglePayloadRoundTrip(t *testing.T) {
	key := models.NewDateKey(2025, time.August, 5)
	payload := TogglePayload(key)
	if payload != "toggle:2025:8:5" {
		t.Fatalf("TogglePayload = %q", payload)
	}
	if ev := CallbackEvent(models.Identity{}, MessageRef{}, "", payload); ev.Date != key {
		t.Fatalf("decoded %q, want %q", ev.Date, key)
	}
	if TogglePayload("bogus") != PayloadIgnore {
		t.Fatal("invalid keys should map to the ignore payload")
	}
}

func TestCalendarKeyboard(t *testing.T) {
	restricted := map[models.DateKey]struct{}{"01.08.2025": {}}
	selected := map[models.DateKey]struct{}{"21.08.2025": {}}
	kb := CalendarKeyboard(calendar.Render(2025, time.August, selected, restricted))

	// title + weekdays + 5 weeks + actions
	if len(kb) != 8 {
		t.Fatalf("keyboard has %d rows, want 8", len(kb))
	}
	if kb[0][0].Text != "August 2025" || kb[0][0].Data != PayloadIgnore {
		t.Fatalf("unexpected title %#v", kb[0][0])
	}
	if len(kb[1]) != 7 || kb[1][0].Text != "Mo" {
		t.Fatalf("unexpected weekday row %#v", kb[1])
	}

	labels := map[string]string{}
	for _, row := range kb[2:7] {
		for _, b := range row {
			labels[b.Data] = b.Text
		}
	}
	if labels["toggle:2025:8:1"] != "❌🔴1" {
		t.Errorf("restricted label = %q", labels["toggle:2025:8:1"])
	}
	if labels["toggle:2025:8:21"] != "✅21" {
		t.Errorf("selected label = %q", labels["toggle:2025:8:21"])
	}
	if labels["toggle:2025:8:22"] != "⚪22" {
		t.Errorf("normal label = %q", labels["toggle:2025:8:22"])
	}

	actions := kb[len(kb)-1]
	if actions[0].Data != PayloadCancel || actions[1].Data != PayloadDone {
		t.Fatalf("unexpected action row %#v", actions)
	}
}

func TestStartText(t *testing.T) {
	poll, _ := models.NewPollConfig(2025, time.August, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 25})
	text := StartText(poll)
	if !strings.Contains(text, "August 2025") || !strings.Contains(text, "1–18, 25") {
		t.Fatalf("unexpected start text %q", text)
	}

	open, _ := models.NewPollConfig(2025, time.July, nil)
	if strings.Contains(StartText(open), "not recommended") {
		t.Fatal("no warning expected without restrictions")
	}
}

func TestSummaryText(t *testing.T) {
	text := SummaryText([]models.DateKey{"05.07.2025", "12.07.2025"})
	want := "📋 Your selection:\n• 05.07.2025\n• 12.07.2025\n\nConfirm?"
	if text != want {
		t.Fatalf("SummaryText = %q, want %q", text, want)
	}
}
