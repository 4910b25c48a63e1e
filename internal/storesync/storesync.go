package storesync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"availability-bot/internal/models"
	"availability-bot/internal/session"
	"availability-bot/internal/tablestore"
	"availability-bot/pkg/logger"
)

const (
	DefaultBackoff             = 10 * time.Second
	DefaultMaxRetries          = 2
	DefaultMaxConcurrentWrites = 4

	TimestampLayout = "2006-01-02 15:04:05"

	// Fixed leading columns before the per-day cells.
	colTimestamp = 0
	colUserID    = tablestore.UserIDColumn
	colUsername  = 2
	dayColOffset = 3
)

type Config struct {
	Backoff             time.Duration
	MaxRetries          uint64
	MaxConcurrentWrites int64
}

type Option func(*Syncer)

// WithClock overrides the source of row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// Syncer writes finished selections to the table store, one row per user.
type Syncer struct {
	store    tablestore.Store
	fallback *FallbackLog
	poll     models.PollConfig
	cfg      Config
	sem      *semaphore.Weighted
	now      func() time.Time
	log      *zap.Logger
}

func New(store tablestore.Store, fallback *FallbackLog, poll models.PollConfig, cfg Config, log *zap.Logger, opts ...Option) *Syncer {
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxConcurrentWrites <= 0 {
		cfg.MaxConcurrentWrites = DefaultMaxConcurrentWrites
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Syncer{
		store:    store,
		fallback: fallback,
		poll:     poll,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrentWrites),
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Header returns the table header: fixed columns then one label per day.
func (s *Syncer) Header() []string {
	header := []string{"Timestamp", "User ID", "Username"}
	for d := 1; d <= s.poll.Days(); d++ {
		header = append(header, fmt.Sprintf("%02d.%02d", d, int(s.poll.Month)))
	}
	return header
}

// BuildRow renders a snapshot as a dense row with a "1" or "0" cell for
// every day of the month.
func (s *Syncer) BuildRow(snap session.Snapshot, at time.Time) []string {
	keys := s.poll.DateKeys()
	row := make([]string, dayColOffset+len(keys))
	row[colTimestamp] = at.Format(TimestampLayout)
	row[colUserID] = strconv.FormatInt(snap.Identity.UserID, 10)
	row[colUsername] = snap.Identity.DisplayName

	chosen := make(map[models.DateKey]struct{}, len(snap.Dates))
	for _, d := range snap.Dates {
		chosen[d] = struct{}{}
	}
	for i, k := range keys {
		if _, ok := chosen[k]; ok {
			row[dayColOffset+i] = "1"
		} else {
			row[dayColOffset+i] = "0"
		}
	}
	return row
}

// Persist upserts the user's row. Quota errors are retried with a constant
// backoff up to the configured limit; transport errors and exhausted retries
// go to the fallback log. Store errors never escape: the result is always
// one of the three outcomes.
func (s *Syncer) Persist(ctx context.Context, snap session.Snapshot) models.Outcome {
	log := s.log.With(
		zap.String(logger.FieldPersistID, uuid.NewString()),
		zap.Int64(logger.FieldUserID, snap.Identity.UserID),
	)

	row := s.BuildRow(snap, s.now())

	attempt := 0
	backoff := retry.WithMaxRetries(s.cfg.MaxRetries, retry.NewConstant(s.cfg.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.tryUpsert(ctx, row)
		if tablestore.IsRetryable(err) {
			log.Warn("Retryable store error, backing off",
				zap.Int(logger.FieldAttempt, attempt),
				zap.Duration("backoff", s.cfg.Backoff),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		log.Info("Selection stored", zap.Int(logger.FieldAttempt, attempt))
		s.format(ctx, log)
		return models.OutcomeStored

	case tablestore.IsRetryable(err),
		errors.Is(err, tablestore.ErrTransport),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		log.Error("Store unavailable, writing to fallback log",
			zap.Int(logger.FieldAttempt, attempt),
			zap.Error(err))
		if s.fallback == nil {
			return models.OutcomeFailed
		}
		if ferr := s.fallback.Append(row); ferr != nil {
			log.Error("Failed to write fallback log", zap.String("path", s.fallback.Path()), zap.Error(ferr))
			return models.OutcomeFailed
		}
		return models.OutcomeStoredToFallback

	default:
		log.Error("Unexpected store error", zap.Int(logger.FieldAttempt, attempt), zap.Error(err))
		return models.OutcomeFailed
	}
}

// tryUpsert runs one upsert while holding a writer slot. The slot is released
// before any backoff so waiting writers do not hold up other users.
func (s *Syncer) tryUpsert(ctx context.Context, row []string) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	return s.upsert(ctx, row)
}

// upsert overwrites the user's existing row or appends a new one. The scan
// and the write are separate calls, so two concurrent writes for the same
// user resolve as last-write-wins.
func (s *Syncer) upsert(ctx context.Context, row []string) error {
	if err := s.store.EnsureHeader(ctx, s.Header()); err != nil {
		return fmt.Errorf("ensure header: %w", err)
	}

	index, found, err := s.store.FindRowByUserID(ctx, row[colUserID])
	if err != nil {
		return fmt.Errorf("find row: %w", err)
	}
	if !found {
		index = tablestore.Append
	}

	if err := s.store.WriteRow(ctx, index, row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	return nil
}

func (s *Syncer) format(ctx context.Context, log *zap.Logger) {
	f, ok := s.store.(tablestore.Formatter)
	if !ok {
		return
	}

	spec := tablestore.FormatSpec{
		Columns:      dayColOffset + s.poll.Days(),
		HeaderRows:   1,
		FirstDayCol:  dayColOffset,
		HighlightVal: "1",
	}
	if err := f.ApplyFormatting(ctx, spec); err != nil {
		log.Warn("Failed to apply table formatting", zap.Error(err))
	}
}
