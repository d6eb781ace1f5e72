package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/horizontool/horizon/internal/domain/series"
	"github.com/horizontool/horizon/pkg/metrics"
)

const (
	defaultQueryTimeout = 30 * time.Second
	pingTimeout         = 10 * time.Second
)

// PostgresConfig holds connection pool settings for PostgresStore.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryTimeout    time.Duration
}

// PostgresStore reads series from PostgreSQL or TimescaleDB tables shaped
// as (time column, value column).
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// OpenPostgres connects, configures the pool and pings the server.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresStore(db, cfg.QueryTimeout), nil
}

// NewPostgresStore wraps an open database.
func NewPostgresStore(db *sqlx.DB, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &PostgresStore{db: db, timeout: timeout}
}

// Acquire checks out a dedicated connection.
func (s *PostgresStore) Acquire(ctx context.Context) (Handle, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		metrics.RecordStoreError("acquire")
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	metrics.UpdateStoreHandles(1)
	return &pgHandle{conn: conn, timeout: s.timeout}, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// EnsureSeries creates the table if needed.
func (s *PostgresStore) EnsureSeries(ctx context.Context, ref SeriesRef) error {
	ref = ref.Normalize()
	if err := ref.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s TIMESTAMPTZ PRIMARY KEY, %s DOUBLE PRECISION)`,
		pq.QuoteIdentifier(ref.Table), pq.QuoteIdentifier(ref.TimeColumn), pq.QuoteIdentifier(ref.ValueColumn))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s: %w", ref.Table, err)
	}
	return nil
}

// Write upserts points in one transaction. NaN values are stored as NULL.
func (s *PostgresStore) Write(ctx context.Context, ref SeriesRef, points series.Series) error {
	ref = ref.Normalize()
	if err := ref.Validate(); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout*time.Duration(len(points)/1000+1))
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertQuery(ref))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		var v sql.NullFloat64
		if !p.Missing() {
			v = sql.NullFloat64{Float64: p.Value, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, p.Time.UTC(), v); err != nil {
			return fmt.Errorf("failed to write %s at %s: %w", ref.Table, p.Time.Format(time.RFC3339), err)
		}
	}

	return tx.Commit()
}

func upsertQuery(ref SeriesRef) string {
	t, v := pq.QuoteIdentifier(ref.TimeColumn), pq.QuoteIdentifier(ref.ValueColumn)
	return fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2) ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s`,
		pq.QuoteIdentifier(ref.Table), t, v, t, v, v)
}

// fetchQuery renders a bounded, newest-first select.
func fetchQuery(ref SeriesRef, q Query) (string, []any) {
	t := pq.QuoteIdentifier(ref.TimeColumn)
	var (
		b     strings.Builder
		args  []any
		where []string
	)
	fmt.Fprintf(&b, `SELECT %s, %s FROM %s`, t, pq.QuoteIdentifier(ref.ValueColumn), pq.QuoteIdentifier(ref.Table))

	if !q.From.IsZero() {
		op := ">"
		if q.FromInclusive {
			op = ">="
		}
		args = append(args, q.From.UTC())
		where = append(where, fmt.Sprintf("%s %s $%d", t, op, len(args)))
	}
	if !q.To.IsZero() {
		op := "<"
		if q.ToInclusive {
			op = "<="
		}
		args = append(args, q.To.UTC())
		where = append(where, fmt.Sprintf("%s %s $%d", t, op, len(args)))
	}
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s DESC", t)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

type pgHandle struct {
	conn     *sqlx.Conn
	timeout  time.Duration
	released atomic.Bool
}

func (h *pgHandle) Fetch(ctx context.Context, ref SeriesRef, q Query) (out series.Series, err error) {
	defer func(start time.Time) { observe("fetch", start, err) }(time.Now())
	if h.released.Load() {
		return nil, ErrReleased
	}
	ref = ref.Normalize()
	if err = ref.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	query, args := fetchQuery(ref, q)
	rows, err := h.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", ref, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ts time.Time
			v  sql.NullFloat64
		)
		if err = rows.Scan(&ts, &v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", ref, err)
		}
		value := math.NaN()
		if v.Valid {
			value = v.Float64
		}
		out = append(out, series.TimePoint{Time: ts, Value: value})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return out, nil
}

func (h *pgHandle) Bounds(ctx context.Context, ref SeriesRef) (b Bounds, err error) {
	defer func(start time.Time) { observe("bounds", start, err) }(time.Now())
	if h.released.Load() {
		return Bounds{}, ErrReleased
	}
	ref = ref.Normalize()
	if err = ref.Validate(); err != nil {
		return Bounds{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	t := pq.QuoteIdentifier(ref.TimeColumn)
	query := fmt.Sprintf(`SELECT MIN(%s), MAX(%s) FROM %s`, t, t, pq.QuoteIdentifier(ref.Table))

	var lo, hi sql.NullTime
	if err = h.conn.QueryRowxContext(ctx, query).Scan(&lo, &hi); err != nil {
		return Bounds{}, fmt.Errorf("failed to read bounds of %s: %w", ref, err)
	}
	if !lo.Valid || !hi.Valid {
		return Bounds{}, ErrEmptySeries
	}
	return Bounds{Min: lo.Time, Max: hi.Time}, nil
}

func (h *pgHandle) Release() error {
	if h.released.Swap(true) {
		return ErrReleased
	}
	metrics.UpdateStoreHandles(-1)
	return h.conn.Close()
}
