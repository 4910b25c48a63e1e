package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"availability-bot/internal/tablestore"
)

var _ tablestore.Store = (*DB)(nil)

// Header operations
func (db *DB) EnsureHeader(ctx context.Context, columns []string) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, ignoreDone(tx.Rollback()))
		}
	}()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM poll_header`).Scan(&count); err != nil {
		return classify(fmt.Errorf("failed to count header columns: %w", err))
	}
	if count > 0 {
		return classify(tx.Commit())
	}

	insert := db.rebind(`INSERT INTO poll_header (position, label) VALUES (?, ?)`)
	for i, label := range columns {
		if _, err := tx.ExecContext(ctx, insert, i, label); err != nil {
			return classify(fmt.Errorf("failed to insert header column %d: %w", i, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit header: %w", err))
	}

	db.log.Info("Header row created")
	return nil
}

func (db *DB) Header(ctx context.Context) (columns []string, err error) {
	rows, err := db.QueryContext(ctx, `SELECT label FROM poll_header ORDER BY position`)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		columns = append(columns, label)
	}

	return columns, rows.Err()
}

// Row operations
func (db *DB) FindRowByUserID(ctx context.Context, userID string) (int, bool, error) {
	var index int
	err := db.QueryRowContext(ctx, db.rebind(`
		SELECT row_index FROM poll_rows WHERE user_id = ?
	`), userID).Scan(&index)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify(fmt.Errorf("failed to find row: %w", err))
	}

	return index, true, nil
}

func (db *DB) WriteRow(ctx context.Context, index int, row []string) error {
	if len(row) <= tablestore.UserIDColumn {
		return fmt.Errorf("row has %d cells, missing user id", len(row))
	}

	cells, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	userID := row[tablestore.UserIDColumn]

	if index == tablestore.Append {
		_, err = db.ExecContext(ctx, db.rebind(`
			INSERT INTO poll_rows (user_id, cells) VALUES (?, ?)
		`), userID, string(cells))
		if err != nil {
			return classify(fmt.Errorf("failed to append row: %w", err))
		}
		return nil
	}

	res, err := db.ExecContext(ctx, db.rebind(`
		UPDATE poll_rows
		SET user_id = ?,
		    cells = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE row_index = ?
	`), userID, string(cells), index)
	if err != nil {
		return classify(fmt.Errorf("failed to update row %d: %w", index, err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		// The row vanished between the scan and the write.
		return fmt.Errorf("%w: row %d not found", tablestore.ErrConflict, index)
	}

	return nil
}

// Rows returns every stored row in insertion order, for reconciliation
// against the fallback log.
func (db *DB) Rows(ctx context.Context) (out [][]string, err error) {
	rows, err := db.QueryContext(ctx, `SELECT cells FROM poll_rows ORDER BY row_index`)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { err = multierr.Append(err, rows.Close()) }()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("failed to decode row: %w", err)
		}
		out = append(out, cells)
	}

	return out, rows.Err()
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
