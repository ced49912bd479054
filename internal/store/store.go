// Package store persists the evidence cache and the run ledger.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/turnover-cli/internal/model"
)

// Supported drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultCacheTTL applies when a cache write is given a non-positive TTL.
const DefaultCacheTTL = 7 * 24 * time.Hour

// Cache entry kinds.
const (
	kindSearch = "search"
	kindPage   = "page"
)

// ErrRunNotFound is returned by GetRun and CompleteRun for unknown ids.
var ErrRunNotFound = eris.New("store: run not found")

// Store is the persistence interface shared by the sqlite and postgres
// backends.
type Store interface {
	// Run ledger
	CreateRun(ctx context.Context, source string, total int) (*model.Run, error)
	CompleteRun(ctx context.Context, id string, status model.RunStatus, stats *model.RunStats) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Evidence cache. A miss is reported with ok == false and a nil error.
	GetSearch(ctx context.Context, query string) (results []model.SearchResult, ok bool, err error)
	SetSearch(ctx context.Context, query string, results []model.SearchResult, ttl time.Duration) error
	GetPage(ctx context.Context, url string) (text string, ok bool, err error)
	SetPage(ctx context.Context, url, text string, ttl time.Duration) error
	DeleteExpired(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and applies migrations. The none
// driver returns a nil Store and no error.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		st, err = NewSQLite(dsn)
	case DriverPostgres:
		st, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return now.Add(ttl)
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
