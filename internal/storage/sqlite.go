package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ryanbastic/go-repopager/internal/repo"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// OpenSQLite opens (or creates) the database at path and applies the
// migrations. path may be ":memory:".
func OpenSQLite(ctx context.Context, path string, queryTimeout time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps :memory: databases alive and serializes
	// writers, so readers never observe a partially written page.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if err := Migrate(ctx, db, DialectSQLite); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, queryTimeout: queryTimeout}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin repo transaction: %w", err)
	}
	if err := fn(ctx, &sqliteTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit repo transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RemoteKeysByRepoID(ctx context.Context, repoID int64) (*repo.RemoteKeys, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return sqliteRemoteKeys(ctx, s.db, repoID)
}

func (s *SQLiteStore) ReposByQuery(ctx context.Context, query string, offset, limit int) ([]repo.Repo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, url, stars, forks, language
		FROM repos
		WHERE name LIKE ?1 OR description LIKE ?1
		ORDER BY stars DESC, name COLLATE NOCASE ASC
		LIMIT ?2 OFFSET ?3
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

func (s *SQLiteStore) CountRepos(ctx context.Context, query string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM repos WHERE name LIKE ?1 OR description LIKE ?1`,
		LikePattern(query),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count repos: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) ClearRepos(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM repos`); err != nil {
		return fmt.Errorf("clear repos: %w", err)
	}
	return nil
}

func (t *sqliteTx) ClearRemoteKeys(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM remote_keys`); err != nil {
		return fmt.Errorf("clear remote keys: %w", err)
	}
	return nil
}

func (t *sqliteTx) InsertRepos(ctx context.Context, repos []repo.Repo) error {
	if len(repos) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO repos (id, name, description, url, stars, forks, language)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert repos: %w", err)
	}
	defer stmt.Close()

	for _, r := range repos {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Name, r.Description, r.URL, r.Stars, r.Forks, r.Language); err != nil {
			return fmt.Errorf("insert repo %d: %w", r.ID, err)
		}
	}
	return nil
}

func (t *sqliteTx) InsertRemoteKeys(ctx context.Context, keys []repo.RemoteKeys) error {
	if len(keys) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO remote_keys (repo_id, prev_key, next_key)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert remote keys: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k.RepoID, nullInt(k.PrevKey), nullInt(k.NextKey)); err != nil {
			return fmt.Errorf("insert remote keys %d: %w", k.RepoID, err)
		}
	}
	return nil
}

func (t *sqliteTx) RemoteKeysByRepoID(ctx context.Context, repoID int64) (*repo.RemoteKeys, error) {
	return sqliteRemoteKeys(ctx, t.tx, repoID)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sqliteRemoteKeys(ctx context.Context, q rowQuerier, repoID int64) (*repo.RemoteKeys, error) {
	var (
		k          = repo.RemoteKeys{RepoID: repoID}
		prev, next sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT prev_key, next_key FROM remote_keys WHERE repo_id = ?`,
		repoID,
	).Scan(&prev, &next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRemoteKeysNotFound
		}
		return nil, fmt.Errorf("get remote keys: %w", err)
	}
	k.PrevKey = intPtr(prev)
	k.NextKey = intPtr(next)
	return &k, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
