package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver registration

	"rateservice/internal/config"
)

// NewPostgresDB opens a pool through the pgx stdlib driver and waits up to five seconds
// for the first ping.
func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSec) * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return db, nil
}

var _ Store = (*PostgresStore)(nil)

// PostgresStore keeps the cache in the rate_pairs/rate_cache_meta tables and the history
// in rate_history. PutCache replaces the whole cache in a single transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetCache reads pairs and the refresh marker from one consistent snapshot.
func (s *PostgresStore) GetCache(ctx context.Context) (snap Snapshot, err error) {
	snap = NewSnapshot()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return snap, fmt.Errorf("begin read tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT pair_key, rate, updated_at, source FROM rate_pairs`)
	if err != nil {
		return snap, fmt.Errorf("query rate_pairs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // best-effort close

	for rows.Next() {
		var key string
		var q Quote
		if err := rows.Scan(&key, &q.Rate, &q.UpdatedAt, &q.Source); err != nil {
			return NewSnapshot(), fmt.Errorf("scan rate_pairs: %w", err)
		}
		snap.Pairs[key] = q
	}
	if err := rows.Err(); err != nil {
		return NewSnapshot(), fmt.Errorf("iterate rate_pairs: %w", err)
	}

	var last sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT last_refresh FROM rate_cache_meta WHERE id = 1`).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return NewSnapshot(), fmt.Errorf("query rate_cache_meta: %w", err)
	}
	snap.LastRefresh = last.String
	return snap, nil
}

// PutCache replaces every pair and the refresh marker.
func (s *PostgresStore) PutCache(ctx context.Context, snap Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM rate_pairs`); err != nil {
		return fmt.Errorf("clear rate_pairs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rate_pairs (pair_key, rate, updated_at, source) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // best-effort close

	for key, q := range snap.Pairs {
		if _, err = stmt.ExecContext(ctx, key, q.Rate, q.UpdatedAt, q.Source); err != nil {
			return fmt.Errorf("insert pair %s: %w", key, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rate_cache_meta (id, last_refresh) VALUES (1, NULLIF($1, ''))
		 ON CONFLICT (id) DO UPDATE SET last_refresh = EXCLUDED.last_refresh`, snap.LastRefresh)
	if err != nil {
		return fmt.Errorf("upsert rate_cache_meta: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cache: %w", err)
	}
	return nil
}

// AppendHistory inserts a history record. A record with an already stored id is ignored.
func (s *PostgresStore) AppendHistory(ctx context.Context, rec HistoryRecord) error {
	if rec.Meta == nil {
		rec.Meta = map[string]string{}
	}
	meta, err := json.Marshal(rec.Meta)
	if err != nil {
		return fmt.Errorf("encode history meta: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rate_history (id, from_currency, to_currency, rate, ts, source, meta)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.From, rec.To, rec.Rate, rec.Timestamp, rec.Source, string(meta))
	if err != nil {
		return fmt.Errorf("insert history %s: %w", rec.ID, err)
	}
	return nil
}

// History returns every stored record in insertion order.
func (s *PostgresStore) History(ctx context.Context) ([]HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_currency, to_currency, rate, ts, source, meta
		 FROM rate_history ORDER BY inserted_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query rate_history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // best-effort close

	var out []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var meta []byte
		if err := rows.Scan(&rec.ID, &rec.From, &rec.To, &rec.Rate, &rec.Timestamp, &rec.Source, &meta); err != nil {
			return nil, fmt.Errorf("scan rate_history: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Meta); err != nil {
				return nil, fmt.Errorf("decode history meta: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
