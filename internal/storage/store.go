package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/ryanbastic/go-repopager/internal/repo"
)

// ErrRemoteKeysNotFound is returned when no remote keys exist for a repo.
var ErrRemoteKeysNotFound = errors.New("remote keys not found")

// Tx is the unit of work handed to Store.WithTx. Nothing written through
// a Tx is visible to readers until the transaction commits.
type Tx interface {
	ClearRepos(ctx context.Context) error
	ClearRemoteKeys(ctx context.Context) error

	// InsertRepos inserts repos, replacing rows with the same id.
	InsertRepos(ctx context.Context, repos []repo.Repo) error

	// InsertRemoteKeys inserts keys, replacing rows with the same repo id.
	InsertRemoteKeys(ctx context.Context, keys []repo.RemoteKeys) error

	RemoteKeysByRepoID(ctx context.Context, repoID int64) (*repo.RemoteKeys, error)
}

// Store is the local source of truth for search results.
type Store interface {
	// WithTx runs fn in one atomic transaction. If fn returns an error or
	// ctx is cancelled before commit, nothing is written.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// RemoteKeysByRepoID returns ErrRemoteKeysNotFound when absent.
	RemoteKeysByRepoID(ctx context.Context, repoID int64) (*repo.RemoteKeys, error)

	// ReposByQuery returns repos whose name or description matches query,
	// ordered by stars descending then name ascending.
	ReposByQuery(ctx context.Context, query string, offset, limit int) ([]repo.Repo, error)

	// CountRepos returns how many repos match query.
	CountRepos(ctx context.Context, query string) (int, error)

	Ping(ctx context.Context) error
}

// LikePattern turns a user query into the LIKE pattern used for local
// matching: spaces act as wildcards, and so do '%' and '_' typed by the
// user. Every backend matches case-insensitively without an escape
// character and breaks star ties by lowercased name. Case folding beyond
// ASCII is backend dependent (SQLite folds ASCII only).
func LikePattern(query string) string {
	return "%" + strings.ReplaceAll(query, " ", "%") + "%"
}
