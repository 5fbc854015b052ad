package budget

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"promptops-hq/promptops/pkg/pricing"
)

const schema = `
CREATE TABLE IF NOT EXISTS budget_limits (
	org TEXT NOT NULL,
	project TEXT NOT NULL,
	monthly_limit_usd REAL NOT NULL,
	alert_threshold REAL NOT NULL DEFAULT 0.8,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (org, project)
);

CREATE TABLE IF NOT EXISTS spend_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	org TEXT NOT NULL,
	project TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	cost_usd REAL NOT NULL,
	timestamp INTEGER NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_spend_org_project_ts
	ON spend_records(org, project, timestamp);

CREATE TABLE IF NOT EXISTS reservations (
	token TEXT PRIMARY KEY,
	org TEXT NOT NULL,
	project TEXT NOT NULL,
	estimated_cost_usd REAL NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
`

// StoreConfig configures the budget store.
type StoreConfig struct {
	// Path is the SQLite database file path.
	Path string

	// Calculator computes call costs. Required.
	Calculator *pricing.Calculator

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// ReservationTTL is how long admission reservations stay consumable.
	// Default: 5 minutes
	ReservationTTL time.Duration

	// Metrics receives budget observations. Nil disables metrics.
	Metrics *Metrics

	// Logger is the structured logger. Nil uses slog.Default().
	Logger *slog.Logger
}

// Store combines the spend ledger, the budget policy table, and the
// admission controller over a single SQLite database.
//
// The ledger is financial state: each write is one atomic, durable SQL
// statement. Multi-step flows (check then record) are deliberately not
// wrapped in one transaction; admission is a best-effort guard, not a
// hard guarantee, unless the caller threads a reservation token through.
type Store struct {
	db             *sql.DB
	calc           *pricing.Calculator
	reservationTTL time.Duration
	metrics        *Metrics
	logger         *slog.Logger

	// now is the clock; replaced in tests.
	now func() time.Time
}

// NewStore opens (creating if necessary) the budget database at cfg.Path.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("budget store path cannot be empty")
	}
	if cfg.Calculator == nil {
		return nil, fmt.Errorf("budget store requires a cost calculator")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.ReservationTTL == 0 {
		cfg.ReservationTTL = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "budget.store")

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open budget database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize budget schema: %w", err)
	}

	logger.Debug("budget store opened", "path", cfg.Path)

	return &Store{
		db:             db,
		calc:           cfg.Calculator,
		reservationTTL: cfg.ReservationTTL,
		metrics:        cfg.Metrics,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
