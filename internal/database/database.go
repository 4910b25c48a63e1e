package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"availability-bot/pkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

type DB struct {
	*sql.DB
	driver string
	log    *zap.Logger
}

type Config struct {
	Driver string

	// Postgres
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	// SQLite
	Path string
}

func (c Config) dsn() (string, error) {
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
		), nil
	case DriverSQLite:
		if c.Path == "" {
			return "", fmt.Errorf("sqlite path is required")
		}
		return c.Path + "?_pragma=busy_timeout(5000)", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func New(ctx context.Context, cfg Config, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// One writer keeps sqlite from reporting SQLITE_BUSY under load.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database connection established", zap.String(logger.FieldBackend, cfg.Driver))

	return &DB{DB: db, driver: cfg.Driver, log: log}, nil
}

func (db *DB) RunMigrations() error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	dialect, dir := "postgres", "migrations/postgres"
	if db.driver == DriverSQLite {
		dialect, dir = "sqlite3", "migrations/sqlite"
	}

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	db.log.Info("Running database migrations", zap.String("dir", dir))

	if err := goose.Up(db.DB, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db.log.Info("Database migrations completed")
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
