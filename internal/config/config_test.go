package config

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"

	"availability-bot/internal/database"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var cfg Config
	parser, err := kong.New(&cfg, kong.Name("availability-bot"))
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}
	_, err = parser.Parse(args)
	return &cfg, err
}

func TestParseFromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("POLL_YEAR", "2025")
	t.Setenv("POLL_MONTH", "8")
	t.Setenv("POLL_RESTRICTED", "1-18")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/poll.db")
	t.Setenv("RETRY_BACKOFF", "3s")

	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	poll, err := cfg.PollConfig()
	if err != nil {
		t.Fatalf("PollConfig failed: %v", err)
	}
	if poll.Month != time.August || len(poll.RestrictedDays()) != 18 {
		t.Fatalf("unexpected poll %+v", poll)
	}

	if cfg.Retry.Backoff != 3*time.Second || cfg.Retry.Max != 2 {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("session TTL = %s, want 24h", cfg.Session.TTL)
	}

	db := cfg.Database()
	if db.Driver != database.DriverSQLite || db.Path != "/tmp/poll.db" {
		t.Errorf("database config = %+v", db)
	}
	if sc := cfg.Sync(); sc.Backoff != 3*time.Second || sc.MaxRetries != 2 || sc.MaxConcurrentWrites != 4 {
		t.Errorf("sync config = %+v", sc)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("POLL_YEAR", "2025")
	t.Setenv("POLL_MONTH", "8")
	t.Setenv("SHEETS_SPREADSHEET_ID", "abc")

	cfg, err := parse(t, "--poll-month=7", "--log-format=console")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Poll.Month != 7 || cfg.Log.Format != "console" {
		t.Fatalf("flags not applied: %+v %+v", cfg.Poll, cfg.Log)
	}
	if s := cfg.Sheets(); s.SpreadsheetID != "abc" || s.SheetName != "Sheet1" {
		t.Fatalf("sheets config = %+v", s)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := &Config{
		Poll:    PollFlags{Year: 2025, Month: 13},
		Store:   StoreFlags{Backend: BackendSheets, FallbackPath: "x", MaxWriters: 1},
		Retry:   RetryFlags{Backoff: time.Second, Max: 9},
		Session: SessionFlags{TTL: time.Hour, Capacity: 1},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, key := range []string{"POLL_", "RETRY_MAX", "SHEETS_SPREADSHEET_ID"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"", nil},
		{"  ", nil},
		{"5", []int{5}},
		{"1-3, 7", []int{1, 2, 3, 7}},
		{"2-3,3-4", []int{2, 3, 4}},
	}
	for _, tt := range tests {
		got, err := ParseDays(tt.in)
		if err != nil {
			t.Errorf("ParseDays(%q) failed: %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseDays(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"a", "5-2", "1-", "1,,2"} {
		if _, err := ParseDays(bad); !errors.Is(err, ErrInvalidDayList) {
			t.Errorf("ParseDays(%q) = %v, want ErrInvalidDayList", bad, err)
		}
	}
}
