package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryanbastic/go-repopager/internal/repo"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresStore creates a Store backed by pool.
// queryTimeout sets the per-query context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pool:         pool,
		queryTimeout: queryTimeout,
	}
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := fn(ctx, &pgTx{q: tx}); err != nil {
			return err
		}
		return ctx.Err()
	})
	if err != nil {
		return fmt.Errorf("repo transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoteKeysByRepoID(ctx context.Context, repoID int64) (*repo.RemoteKeys, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return remoteKeysByRepoID(ctx, s.pool, repoID)
}

func (s *PostgresStore) ReposByQuery(ctx context.Context, query string, offset, limit int) ([]repo.Repo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, url, stars, forks, language
		FROM repos
		WHERE name ILIKE $1 ESCAPE '' OR description ILIKE $1 ESCAPE ''
		ORDER BY stars DESC, lower(name) COLLATE "C" ASC
		LIMIT $2 OFFSET $3
	`, LikePattern(query), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("repos by query: %w", err)
	}
	defer rows.Close()

	var repos []repo.Repo
	for rows.Next() {
		var r repo.Repo
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.URL, &r.Stars, &r.Forks, &r.Language); err != nil {
			return nil, fmt.Errorf("repos by query scan: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

func (s *PostgresStore) CountRepos(ctx context.Context, query string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM repos WHERE name ILIKE $1 ESCAPE '' OR description ILIKE $1 ESCAPE ''`,
		LikePattern(query),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count repos: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type pgTx struct {
	q querier
}

func (t *pgTx) ClearRepos(ctx context.Context) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM repos`); err != nil {
		return fmt.Errorf("clear repos: %w", err)
	}
	return nil
}

func (t *pgTx) ClearRemoteKeys(ctx context.Context) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM remote_keys`); err != nil {
		return fmt.Errorf("clear remote keys: %w", err)
	}
	return nil
}

func (t *pgTx) InsertRepos(ctx context.Context, repos []repo.Repo) error {
	if len(repos) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range repos {
		batch.Queue(`
			INSERT INTO repos (id, name, description, url, stars, forks, language)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				url = EXCLUDED.url,
				stars = EXCLUDED.stars,
				forks = EXCLUDED.forks,
				language = EXCLUDED.language
		`, r.ID, r.Name, r.Description, r.URL, r.Stars, r.Forks, r.Language)
	}
	if err := t.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert repos: %w", err)
	}
	return nil
}

func (t *pgTx) InsertRemoteKeys(ctx context.Context, keys []repo.RemoteKeys) error {
	if len(keys) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(`
			INSERT INTO remote_keys (repo_id, prev_key, next_key)
			VALUES ($1, $2, $3)
			ON CONFLICT (repo_id) DO UPDATE SET
				prev_key = EXCLUDED.prev_key,
				next_key = EXCLUDED.next_key
		`, k.RepoID, k.PrevKey, k.NextKey)
	}
	if err := t.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert remote keys: %w", err)
	}
	return nil
}

func (t *pgTx) RemoteKeysByRepoID(ctx context.Context, repoID int64) (*repo.RemoteKeys, error) {
	return remoteKeysByRepoID(ctx, t.q, repoID)
}

func remoteKeysByRepoID(ctx context.Context, q querier, repoID int64) (*repo.RemoteKeys, error) {
	var k repo.RemoteKeys
	err := q.QueryRow(ctx,
		`SELECT repo_id, prev_key, next_key FROM remote_keys WHERE repo_id = $1`,
		repoID,
	).Scan(&k.RepoID, &k.PrevKey, &k.NextKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRemoteKeysNotFound
		}
		return nil, fmt.Errorf("get remote keys: %w", err)
	}
	return &k, nil
}
