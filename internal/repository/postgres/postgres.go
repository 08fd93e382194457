// Package postgres implements the auction store, bid ledger and catalog
// store on PostgreSQL with sqlx.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"live-shopping/internal/biddingerrors"
	"live-shopping/internal/config"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

//go:embed migrations/001_initial.sql
var initialSchema string

const uniqueViolation = "23505"

// Store implements repository.AuctionStore, repository.BidLedger and
// repository.CatalogStore.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// New wraps an open connection. Every query is bounded by timeout.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// Connect opens and verifies a Postgres connection with OTEL instrumentation.
func Connect(ctx context.Context, cfg config.StoreConfig) (*sqlx.DB, error) {
	// Register the OTel-instrumented driver wrapping lib/pq.
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("registering otel driver: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, initialSchema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w: %w", biddingerrors.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// storeErr classifies a driver error: missing rows become notFound, anything
// else is reported as the store being unavailable.
func storeErr(op string, err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return fmt.Errorf("%s: %w: %w", op, biddingerrors.ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// dbTime truncates to the microsecond precision Postgres keeps, so values
// written and later compared in preconditions round-trip exactly.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func dbTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := dbTime(*t)
	return &v
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
