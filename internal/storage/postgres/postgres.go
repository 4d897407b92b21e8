package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikhailRaia/media-proxy/internal/model"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type Storage struct {
	pool *pgxpool.Pool
}

func NewStorage(dsn string) (*Storage, error) {
	if dsn == "" {
		return nil, errors.New("database connection string is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	storage := &Storage{
		pool: pool,
	}

	if err := storage.createTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

func (s *Storage) createTable(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS fetch_records (
			id UUID PRIMARY KEY,
			client_id TEXT NOT NULL,
			url TEXT NOT NULL,
			host TEXT NOT NULL DEFAULT '',
			status_code INTEGER NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			content_length BIGINT NOT NULL DEFAULT -1,
			error TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_records_client ON fetch_records(client_id, created_at DESC)`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			if isConcurrentDDL(err) {
				continue
			}
			return fmt.Errorf("create schema: %w", err)
		}
	}

	return nil
}

// isConcurrentDDL reports the errors Postgres raises when two instances run
// CREATE ... IF NOT EXISTS at the same time.
func isConcurrentDDL(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.UniqueViolation ||
		pgErr.Code == pgerrcode.DuplicateTable ||
		pgErr.Code == pgerrcode.DuplicateObject
}

func (s *Storage) SaveBatch(ctx context.Context, records []model.FetchRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(
			`INSERT INTO fetch_records
				(id, client_id, url, host, status_code, content_type, content_length, error, duration_ms, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING`,
			r.ID, r.ClientID, r.URL, r.Host, r.StatusCode, r.ContentType,
			r.ContentLength, r.Error, r.Duration.Milliseconds(), r.CreatedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("error inserting fetch record: %w", err)
		}
	}

	return nil
}

func (s *Storage) ListByClient(ctx context.Context, clientID string, limit int) ([]model.FetchRecord, error) {
	query := `SELECT id, client_id, url, host, status_code, content_type, content_length, error, duration_ms, created_at
		FROM fetch_records WHERE client_id = $1 ORDER BY created_at DESC`
	args := []interface{}{clientID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying fetch records: %w", err)
	}
	defer rows.Close()

	var result []model.FetchRecord
	for rows.Next() {
		var (
			r          model.FetchRecord
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.ClientID, &r.URL, &r.Host, &r.StatusCode, &r.ContentType,
			&r.ContentLength, &r.Error, &durationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning fetch record: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		result = append(result, r)
	}

	return result, rows.Err()
}

func (s *Storage) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT client_id), COALESCE(SUM(GREATEST(content_length, 0)), 0)
		FROM fetch_records`,
	).Scan(&stats.Fetches, &stats.Clients, &stats.Bytes)
	if err != nil {
		return model.Stats{}, fmt.Errorf("error querying stats: %w", err)
	}
	return stats, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
