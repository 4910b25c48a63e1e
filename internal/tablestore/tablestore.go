// Package tablestore defines the row-oriented store the poll results are
// written to, and the error kinds every backend maps its failures onto.
package tablestore

import (
	"context"
	"errors"
)

const (
	// Append is passed to WriteRow to add a new row at the end of the table.
	Append = -1
	// UserIDColumn is the zero-based column holding the user id.
	UserIDColumn = 1
)

var (
	// ErrQuota marks a transient failure (rate limit, busy database). The
	// whole write may be retried after a backoff.
	ErrQuota = errors.New("table store quota exceeded")
	// ErrTransport marks a failure to reach the store. It is not retried.
	ErrTransport = errors.New("table store transport error")
	// ErrConflict marks a write that lost a race with another write for
	// the same user. Retrying resolves it as last-write-wins.
	ErrConflict = errors.New("table store write conflict")
)

type Store interface {
	// EnsureHeader writes the header row if the table is empty. It is a
	// no-op when a header already exists.
	EnsureHeader(ctx context.Context, columns []string) error
	// FindRowByUserID returns the index of the row whose user id column
	// matches, or false if there is none.
	FindRowByUserID(ctx context.Context, userID string) (int, bool, error)
	// WriteRow overwrites the row at index, or appends when index is Append.
	WriteRow(ctx context.Context, index int, row []string) error
}

// FormatSpec describes the cosmetic layout applied after a write.
type FormatSpec struct {
	Columns      int
	HeaderRows   int
	FirstDayCol  int // zero-based column of the first day cell
	HighlightVal string
}

// Formatter is implemented by stores that support cosmetic formatting.
// Failures are never fatal to a write.
type Formatter interface {
	ApplyFormatting(ctx context.Context, spec FormatSpec) error
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrQuota) || errors.Is(err, ErrConflict)
}
