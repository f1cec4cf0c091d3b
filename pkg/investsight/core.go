package investsight

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Options controls Core initialization.
type Options struct {
	DBPath             string
	Logger             *slog.Logger
	QuoteCacheTTL      time.Duration
	QuoteFailThreshold int
	QuoteFailWindow    time.Duration
	QuoteCooldown      time.Duration
	HTTPTimeout        time.Duration
	// HTTPClient overrides the market data HTTP client, mainly for tests.
	HTTPClient HTTPDoer
	// ActionResolver infers corporate actions from trade/market price
	// deviations during replay. Nil selects the default ratio heuristic.
	ActionResolver CorporateActionResolver
}

// Core provides access to InvestSight business logic and storage.
type Core struct {
	db      *sql.DB
	logger  *slog.Logger
	market  *marketData
	cache   *analyticsCache
	actions CorporateActionResolver
	dbPath  string
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logger.Warn("pragma foreign_keys failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	md := newMarketData(marketDataOptions{
		Logger:        logger,
		CacheTTL:      defaultDuration(opts.QuoteCacheTTL, 30*time.Second),
		FailThreshold: defaultInt(opts.QuoteFailThreshold, 3),
		FailWindow:    defaultDuration(opts.QuoteFailWindow, 60*time.Second),
		Cooldown:      defaultDuration(opts.QuoteCooldown, 120*time.Second),
		HTTPTimeout:   defaultDuration(opts.HTTPTimeout, 10*time.Second),
		HTTPClient:    opts.HTTPClient,
	})

	resolver := opts.ActionResolver
	if resolver == nil {
		resolver = NewRatioHeuristicResolver(defaultSplitUpperRatio, defaultSplitLowerRatio)
	}

	return &Core{
		db:      db,
		logger:  logger,
		market:  md,
		cache:   newAnalyticsCache(),
		actions: resolver,
		dbPath:  cleanPath,
	}, nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
