package dialog

import (
	"context"
	"fmt"
	"strings"

	"availability-bot/internal/calendar"
	"availability-bot/internal/models"
)

type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard, row by row.
type Keyboard [][]Button

// Transport is the chat side of the dialog.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error)
	EditMessageKeyboard(ctx context.Context, msg MessageRef, kb Keyboard) error
	EditMessageText(ctx context.Context, msg MessageRef, text string, kb Keyboard) error
	// AnswerCallback acknowledges a button press. A non-empty alert is
	// shown to the user as a popup.
	AnswerCallback(ctx context.Context, callbackID, alert string) error
}

const (
	TextRestricted     = "This date is not recommended for selection!"
	TextEmptySelection = "Select at least one date!"
	TextCancelled      = "❌ Poll cancelled"
	TextSaved          = "✅ Your dates have been saved! Thank you!"
	TextSaveFailed     = "⚠️ Sorry, we could not save your dates right now. Please try again."
	TextEditPrompt     = "📅 Select dates:"
)

var weekdays = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// CalendarKeyboard renders the grid with a title row, weekday row, the
// day buttons and the cancel/done actions.
func CalendarKeyboard(g calendar.Grid) Keyboard {
	kb := Keyboard{
		{{Text: fmt.Sprintf("%s %d", g.Month, g.Year), Data: PayloadIgnore}},
	}

	header := make([]Button, 0, len(weekdays))
	for _, d := range weekdays {
		header = append(header, Button{Text: d, Data: PayloadIgnore})
	}
	kb = append(kb, header)

	for _, week := range g.Weeks {
		row := make([]Button, 0, len(week))
		for _, c := range week {
			if c.Blank {
				row = append(row, Button{Text: " ", Data: PayloadIgnore})
				continue
			}
			row = append(row, Button{Text: cellLabel(c), Data: TogglePayload(c.Key)})
		}
		kb = append(kb, row)
	}

	kb = append(kb, []Button{
		{Text: "🚫 Cancel", Data: PayloadCancel},
		{Text: "✅ Done", Data: PayloadDone},
	})
	return kb
}

func cellLabel(c calendar.Cell) string {
	switch c.State {
	case calendar.StateSelected:
		return fmt.Sprintf("✅%d", c.Day)
	case calendar.StateRestricted:
		return fmt.Sprintf("❌🔴%d", c.Day)
	default:
		return fmt.Sprintf("⚪%d", c.Day)
	}
}

func ConfirmKeyboard() Keyboard {
	return Keyboard{
		{{Text: "✅ Yes", Data: PayloadConfirm}},
		{{Text: "✏️ Edit", Data: PayloadEdit}},
	}
}

// StartText introduces the poll and warns about restricted days.
func StartText(poll models.PollConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Select the dates in %s %d when you are available:", poll.Month, poll.Year)
	if days := poll.RestrictedDays(); len(days) > 0 {
		fmt.Fprintf(&b, "\n🔴 Dates %s are not recommended", dayRanges(days))
	}
	return b.String()
}

// SummaryText lists the selection in canonical string order, which is
// chronological within one month.
func SummaryText(dates []models.DateKey) string {
	var b strings.Builder
	b.WriteString("📋 Your selection:\n")
	for _, d := range dates {
		fmt.Fprintf(&b, "• %s\n", d)
	}
	b.WriteString("\nConfirm?")
	return b.String()
}

// dayRanges collapses sorted day numbers into "1–18, 25" form.
func dayRanges(days []int) string {
	var parts []string
	for i := 0; i < len(days); {
		j := i
		for j+1 < len(days) && days[j+1] == days[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, fmt.Sprintf("%d", days[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d–%d", days[i], days[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}
