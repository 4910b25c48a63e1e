package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"availability-bot/internal/database"
	"availability-bot/internal/models"
	"availability-bot/internal/sheets"
	"availability-bot/internal/storesync"
	"availability-bot/pkg/logger"
)

const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

var ErrInvalidDayList = errors.New("invalid day list")

// Config is the full process configuration. Every flag can also be set from
// the environment; .env files are loaded before parsing.
type Config struct {
	BotToken    string `name:"bot-token" env:"BOT_TOKEN" required:"" help:"Telegram bot token."`
	APIEndpoint string `name:"api-endpoint" env:"BOT_API_ENDPOINT" default:"https://api.telegram.org/bot%s/%s" help:"Bot API endpoint format."`

	Poll    PollFlags    `embed:"" prefix:"poll-"`
	Store   StoreFlags   `embed:"" prefix:"store-"`
	Retry   RetryFlags   `embed:"" prefix:"retry-"`
	Session SessionFlags `embed:"" prefix:"session-"`
	Log     LogFlags     `embed:"" prefix:"log-"`
}

type PollFlags struct {
	Year       int    `name:"year" env:"POLL_YEAR" required:"" help:"Poll year."`
	Month      int    `name:"month" env:"POLL_MONTH" required:"" help:"Poll month (1-12)."`
	Restricted string `name:"restricted" env:"POLL_RESTRICTED" help:"Discouraged days, e.g. 1-18,25."`
}

type StoreFlags struct {
	Backend      string `name:"backend" env:"STORE_BACKEND" enum:"sheets,postgres,sqlite" default:"sheets" help:"Table store backend."`
	FallbackPath string `name:"fallback-path" env:"FALLBACK_PATH" default:"backup_results.csv" help:"Append-only fallback log."`
	MaxWriters   int64  `name:"max-writers" env:"STORE_MAX_WRITERS" default:"4" help:"Concurrent store writes."`

	SpreadsheetID   string `name:"spreadsheet-id" env:"SHEETS_SPREADSHEET_ID" help:"Google spreadsheet id."`
	SheetName       string `name:"sheet-name" env:"SHEETS_SHEET_NAME" default:"Sheet1" help:"Worksheet title."`
	CredentialsFile string `name:"credentials-file" env:"SHEETS_CREDENTIALS_FILE" default:"credentials.json" help:"Service account key file."`

	DBHost     string `name:"db-host" env:"DB_HOST" default:"localhost"`
	DBPort     string `name:"db-port" env:"DB_PORT" default:"5432"`
	DBUser     string `name:"db-user" env:"DB_USER"`
	DBPassword string `name:"db-password" env:"DB_PASSWORD"`
	DBName     string `name:"db-name" env:"DB_NAME"`
	DBSSLMode  string `name:"db-sslmode" env:"DB_SSLMODE" default:"disable"`

	SQLitePath string `name:"sqlite-path" env:"SQLITE_PATH" default:"poll.db"`
}

type RetryFlags struct {
	Backoff time.Duration `name:"backoff" env:"RETRY_BACKOFF" default:"10s" help:"Wait before retrying a rate-limited write."`
	Max     uint64        `name:"max" env:"RETRY_MAX" default:"2" help:"Retries of a rate-limited write (1-3)."`
}

type SessionFlags struct {
	TTL      time.Duration `name:"ttl" env:"SESSION_TTL" default:"24h" help:"Idle time before a session is dropped."`
	Capacity int           `name:"capacity" env:"SESSION_CAPACITY" default:"10000" help:"Maximum live sessions."`
}

type LogFlags struct {
	Level      string `name:"level" env:"LOG_LEVEL" default:"info"`
	Format     string `name:"format" env:"LOG_FORMAT" default:"json"`
	Output     string `name:"output" env:"LOG_OUTPUT" default:"stdout"`
	MaxSizeMB  int    `name:"max-size-mb" env:"LOG_MAX_SIZE_MB" default:"10"`
	MaxBackups int    `name:"max-backups" env:"LOG_MAX_BACKUPS" default:"3"`
	MaxAgeDays int    `name:"max-age-days" env:"LOG_MAX_AGE_DAYS" default:"28"`
}

// Validate reports every invalid setting at once. kong calls it after parsing.
func (c *Config) Validate() error {
	var invalid []string

	if _, err := c.PollConfig(); err != nil {
		invalid = append(invalid, fmt.Sprintf("POLL_*: %v", err))
	}
	if c.Retry.Backoff <= 0 {
		invalid = append(invalid, "RETRY_BACKOFF")
	}
	if c.Retry.Max < 1 || c.Retry.Max > 3 {
		invalid = append(invalid, "RETRY_MAX")
	}
	if c.Session.TTL <= 0 {
		invalid = append(invalid, "SESSION_TTL")
	}
	if c.Session.Capacity <= 0 {
		invalid = append(invalid, "SESSION_CAPACITY")
	}
	if c.Store.MaxWriters <= 0 {
		invalid = append(invalid, "STORE_MAX_WRITERS")
	}
	if strings.TrimSpace(c.Store.FallbackPath) == "" {
		invalid = append(invalid, "FALLBACK_PATH")
	}

	switch c.Store.Backend {
	case BackendSheets:
		if c.Store.SpreadsheetID == "" {
			invalid = append(invalid, "SHEETS_SPREADSHEET_ID")
		}
	case BackendPostgres:
		if c.Store.DBName == "" {
			invalid = append(invalid, "DB_NAME")
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func (c *Config) PollConfig() (models.PollConfig, error) {
	days, err := ParseDays(c.Poll.Restricted)
	if err != nil {
		return models.PollConfig{}, err
	}
	return models.NewPollConfig(c.Poll.Year, time.Month(c.Poll.Month), days)
}

func (c *Config) Database() database.Config {
	if c.Store.Backend == BackendSQLite {
		return database.Config{Driver: database.DriverSQLite, Path: c.Store.SQLitePath}
	}
	return database.Config{
		Driver:   database.DriverPostgres,
		Host:     c.Store.DBHost,
		Port:     c.Store.DBPort,
		User:     c.Store.DBUser,
		Password: c.Store.DBPassword,
		DBName:   c.Store.DBName,
		SSLMode:  c.Store.DBSSLMode,
	}
}

func (c *Config) Sheets() sheets.Config {
	return sheets.Config{
		SpreadsheetID:   c.Store.SpreadsheetID,
		SheetName:       c.Store.SheetName,
		CredentialsFile: c.Store.CredentialsFile,
	}
}

func (c *Config) Sync() storesync.Config {
	return storesync.Config{
		Backoff:             c.Retry.Backoff,
		MaxRetries:          c.Retry.Max,
		MaxConcurrentWrites: c.Store.MaxWriters,
	}
}

func (c *Config) Logger() *logger.Config {
	return &logger.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		Output:     c.Log.Output,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// ParseDays parses a comma separated list of days and inclusive ranges,
// such as "1-18,25". An empty string means no days.
func ParseDays(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	seen := map[int]bool{}
	var days []int
	add := func(d int) {
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")

		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDayList, part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || to < from {
				return nil, fmt.Errorf("%w: %q", ErrInvalidDayList, part)
			}
		}

		for d := from; d <= to; d++ {
			add(d)
		}
	}

	return days, nil
}
