package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"availability-bot/internal/calendar"
	"availability-bot/internal/models"
	"availability-bot/internal/session"
	"availability-bot/pkg/logger"
)

const noticeTimeout = 10 * time.Second

// Persister stores a confirmed selection.
type Persister interface {
	Persist(ctx context.Context, snap session.Snapshot) models.Outcome
}

// Machine drives the poll dialog. Handle must not be called concurrently
// for the same user.
type Machine struct {
	poll      models.PollConfig
	sessions  *session.Registry
	transport Transport
	persister Persister
	log       *zap.Logger
}

func NewMachine(poll models.PollConfig, sessions *session.Registry, transport Transport, persister Persister, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{
		poll:      poll,
		sessions:  sessions,
		transport: transport,
		persister: persister,
		log:       log,
	}
}

// replier answers a callback at most once.
type replier struct {
	ctx       context.Context
	transport Transport
	id        string
	done      bool
	err       error
}

func (r *replier) reply(alert string) {
	if r.done || r.id == "" {
		return
	}
	r.done = true
	r.err = r.transport.AnswerCallback(r.ctx, r.id, alert)
}

// Handle applies one event. Events that do not fit the current phase are
// ignored. The returned error is a transport failure; session state has
// already been updated when it is returned.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	log := m.log.With(zap.Int64(logger.FieldUserID, ev.Identity.UserID))

	if ev.Kind == EventStart {
		return m.start(ctx, ev, log)
	}

	r := &replier{ctx: ctx, transport: m.transport, id: ev.CallbackID}
	var err error

	if s, ok := m.sessions.Get(ev.Identity.UserID); ok && m.owns(s, ev) {
		log = log.With(zap.String(logger.FieldPhase, string(s.Phase)))
		switch s.Phase {
		case models.PhaseBrowsing:
			err = m.browsing(ctx, s, ev, r, log)
		case models.PhaseConfirming:
			err = m.confirming(ctx, s, ev, r, log)
		}
	}

	r.reply("")
	return errors.Join(err, r.err)
}

// owns reports whether the callback came from the session's own message.
// Presses on keyboards left over from earlier sessions are ignored.
func (m *Machine) owns(s *session.Session, ev Event) bool {
	if s.MessageID == 0 || ev.Message.MessageID == 0 {
		return true
	}
	return s.ChatID == ev.Message.ChatID && s.MessageID == ev.Message.MessageID
}

func (m *Machine) start(ctx context.Context, ev Event, log *zap.Logger) error {
	s := m.sessions.Start(ev.Identity)
	log.Debug("Poll started")

	ref, err := m.transport.SendMessage(ctx, ev.ChatID, StartText(m.poll), m.calendar(s))
	if err != nil {
		return fmt.Errorf("failed to send calendar: %w", err)
	}
	s.ChatID, s.MessageID = ref.ChatID, ref.MessageID
	return nil
}

func (m *Machine) browsing(ctx context.Context, s *session.Session, ev Event, r *replier, log *zap.Logger) error {
	switch ev.Kind {
	case EventToggle:
		res, err := s.Toggle(ev.Date)
		if errors.Is(err, session.ErrRestrictedDate) {
			r.reply(TextRestricted)
			return nil
		}
		if res == session.Unchanged {
			return nil
		}
		log.Debug("Date toggled", zap.String("date", ev.Date.String()), zap.Stringer("result", res))
		return m.transport.EditMessageKeyboard(ctx, ev.Message, m.calendar(s))

	case EventDone:
		if s.IsEmpty() {
			r.reply(TextEmptySelection)
			return nil
		}
		s.Phase = models.PhaseConfirming
		return m.transport.EditMessageText(ctx, ev.Message, SummaryText(s.SortedDates()), ConfirmKeyboard())

	case EventCancel:
		s.Phase = models.PhaseCancelled
		m.sessions.End(s.Identity.UserID)
		log.Debug("Poll cancelled")
		return m.transport.EditMessageText(ctx, ev.Message, TextCancelled, nil)
	}

	return nil
}

func (m *Machine) confirming(ctx context.Context, s *session.Session, ev Event, r *replier, log *zap.Logger) error {
	switch ev.Kind {
	case EventConfirm:
		// Storing can take several backoff intervals; acknowledge first.
		r.reply("")

		outcome := m.persister.Persist(ctx, s.Snapshot())
		log.Info("Selection persisted", zap.Stringer(logger.FieldOutcome, outcome))

		// The user must learn the outcome even if ctx was cancelled while
		// the store was retrying.
		noticeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), noticeTimeout)
		defer cancel()

		if !outcome.Saved() {
			text := TextSaveFailed + "\n\n" + SummaryText(s.SortedDates())
			return m.transport.EditMessageText(noticeCtx, ev.Message, text, ConfirmKeyboard())
		}

		s.Phase = models.PhaseDone
		m.sessions.End(s.Identity.UserID)
		return m.transport.EditMessageText(noticeCtx, ev.Message, TextSaved, nil)

	case EventEdit:
		s.Phase = models.PhaseBrowsing
		return m.transport.EditMessageText(ctx, ev.Message, TextEditPrompt, m.calendar(s))
	}

	return nil
}

func (m *Machine) calendar(s *session.Session) Keyboard {
	return CalendarKeyboard(calendar.Render(m.poll.Year, m.poll.Month, s.Selected(), m.poll.Restricted()))
}
