package reposearch

import (
	"context"
	"log/slog"

	"github.com/ryanbastic/go-repopager/internal/github"
	"github.com/ryanbastic/go-repopager/internal/paging"
	"github.com/ryanbastic/go-repopager/internal/repo"
	"github.com/ryanbastic/go-repopager/internal/storage"
)

// Repository builds paging streams over the local store, extended from
// GitHub on demand.
type Repository struct {
	store    storage.Store
	searcher github.Searcher
	pageSize int
	logger   *slog.Logger
}

// NewRepository creates a Repository. pageSize is the network page size.
func NewRepository(store storage.Store, searcher github.Searcher, pageSize int, logger *slog.Logger) *Repository {
	return &Repository{
		store:    store,
		searcher: searcher,
		pageSize: pageSize,
		logger:   logger,
	}
}

// SearchStream returns a new stream of repos matching query. Each call
// builds its own mediator.
func (r *Repository) SearchStream(query string) *paging.Pager[repo.Repo] {
	source := paging.SourceFunc[repo.Repo](func(ctx context.Context, offset, limit int) ([]repo.Repo, error) {
		return r.store.ReposByQuery(ctx, query, offset, limit)
	})
	mediator := NewRemoteMediator(query, r.store, r.searcher, r.logger)
	return paging.NewPager(paging.Config{PageSize: r.pageSize}, source, mediator, r.logger.With("query", query))
}
