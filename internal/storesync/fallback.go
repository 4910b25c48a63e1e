package storesync

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"
)

// FallbackLog is an append-only local file of rows that could not reach
// the table store. One line per row, same column order as the table. Cells
// are comma-joined with CSV quoting; line breaks inside a cell become spaces.
type FallbackLog struct {
	mu   sync.Mutex
	path string
}

func NewFallbackLog(path string) *FallbackLog {
	return &FallbackLog{path: path}
}

func (f *FallbackLog) Path() string {
	return f.path
}

func (f *FallbackLog) Append(row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open fallback log: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(singleLine(row)); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write fallback row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to flush fallback row: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close fallback log: %w", err)
	}
	return nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func singleLine(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = lineBreaks.Replace(cell)
	}
	return out
}
