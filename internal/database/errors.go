package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
	"modernc.org/sqlite"

	"availability-bot/internal/tablestore"
)

const (
	sqliteBusy       = 5
	sqliteLocked     = 6
	sqliteConstraint = 19
)

// classify maps driver errors onto the table store error kinds. Errors it
// does not recognise are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		// insufficient_resources, e.g. too_many_connections
		case pqErr.Code.Class() == "53":
			return fmt.Errorf("%w: %w", tablestore.ErrQuota, err)
		// cannot_connect_now, admin_shutdown
		case pqErr.Code == "57P03" || pqErr.Code == "57P01":
			return fmt.Errorf("%w: %w", tablestore.ErrTransport, err)
		case pqErr.Code.Name() == "unique_violation":
			return fmt.Errorf("%w: %w", tablestore.ErrConflict, err)
		}
		return err
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return fmt.Errorf("%w: %w", tablestore.ErrQuota, err)
		case sqliteConstraint:
			return fmt.Errorf("%w: %w", tablestore.ErrConflict, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %w", tablestore.ErrTransport, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", tablestore.ErrTransport, err)
	}

	return err
}
