package dialog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"availability-bot/internal/models"
)

type EventKind int

const (
	EventIgnore EventKind = iota
	EventStart
	EventToggle
	EventDone
	EventCancel
	EventConfirm
	EventEdit
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventToggle:
		return PayloadToggle
	case EventDone:
		return PayloadDone
	case EventCancel:
		return PayloadCancel
	case EventConfirm:
		return PayloadConfirm
	case EventEdit:
		return PayloadEdit
	default:
		return PayloadIgnore
	}
}

// Callback payloads. Toggle payloads are "toggle:YYYY:M:D".
const (
	PayloadToggle  = "toggle"
	PayloadDone    = "done"
	PayloadCancel  = "cancel"
	PayloadConfirm = "confirm"
	PayloadEdit    = "edit"
	PayloadIgnore  = "ignore"
)

// MessageRef points at the chat message holding the calendar.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

type Event struct {
	Kind       EventKind
	Identity   models.Identity
	ChatID     int64
	Message    MessageRef
	CallbackID string
	Date       models.DateKey
}

func StartEvent(identity models.Identity, chatID int64) Event {
	return Event{Kind: EventStart, Identity: identity, ChatID: chatID}
}

// CallbackEvent decodes a button payload. Anything it does not recognise
// becomes EventIgnore.
func CallbackEvent(identity models.Identity, msg MessageRef, callbackID, payload string) Event {
	ev := Event{
		Kind:       EventIgnore,
		Identity:   identity,
		ChatID:     msg.ChatID,
		Message:    msg,
		CallbackID: callbackID,
	}

	parts := strings.Split(payload, ":")
	switch parts[0] {
	case PayloadToggle:
		if key, ok := parseToggle(parts[1:]); ok {
			ev.Kind = EventToggle
			ev.Date = key
		}
	case PayloadDone:
		ev.Kind = EventDone
	case PayloadCancel:
		ev.Kind = EventCancel
	case PayloadConfirm:
		ev.Kind = EventConfirm
	case PayloadEdit:
		ev.Kind = EventEdit
	}

	return ev
}

func TogglePayload(key models.DateKey) string {
	t, err := time.Parse(models.DateKeyLayout, string(key))
	if err != nil {
		return PayloadIgnore
	}
	return fmt.Sprintf("%s:%d:%d:%d", PayloadToggle, t.Year(), int(t.Month()), t.Day())
}

func parseToggle(args []string) (models.DateKey, bool) {
	if len(args) != 3 {
		return "", false
	}

	nums := make([]int, 3)
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return "", false
		}
		nums[i] = n
	}

	year, month, day := nums[0], time.Month(nums[1]), nums[2]
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// Reject dates that time.Date had to normalise, such as 31 June.
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return "", false
	}

	return models.NewDateKey(year, month, day), true
}
