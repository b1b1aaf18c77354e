// Package reposearch bridges GitHub search pages into the local store and
// builds the paging stream a query is browsed through.
package reposearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ryanbastic/go-repopager/internal/github"
	"github.com/ryanbastic/go-repopager/internal/metrics"
	"github.com/ryanbastic/go-repopager/internal/paging"
	"github.com/ryanbastic/go-repopager/internal/repo"
	"github.com/ryanbastic/go-repopager/internal/storage"
)

// StartingPage is the first page of GitHub search results.
const StartingPage = 1

// QueryQualifier restricts GitHub matching to repository names and
// descriptions.
const QueryQualifier = " in:name,description"

// RemoteMediator loads GitHub search pages for one query into the store,
// keeping a RemoteKeys row per repo so the neighbouring pages can be found
// again.
type RemoteMediator struct {
	query    string
	store    storage.Store
	searcher github.Searcher
	logger   *slog.Logger

	// furthest is the last non-empty page stored by a refresh or append.
	mu       sync.Mutex
	furthest int
}

// NewRemoteMediator creates a mediator for query.
func NewRemoteMediator(query string, store storage.Store, searcher github.Searcher, logger *slog.Logger) *RemoteMediator {
	return &RemoteMediator{
		query:    query,
		store:    store,
		searcher: searcher,
		logger:   logger.With("query", query),
	}
}

// Load implements paging.RemoteMediator.
func (m *RemoteMediator) Load(ctx context.Context, loadType paging.LoadType, state paging.PagingState[repo.Repo]) (paging.MediatorResult, error) {
	res, err := m.load(ctx, loadType, state)
	metrics.ObserveMediatorLoad(loadType.String(), loadOutcome(res, err))
	return res, err
}

func (m *RemoteMediator) load(ctx context.Context, loadType paging.LoadType, state paging.PagingState[repo.Repo]) (paging.MediatorResult, error) {
	if err := ctx.Err(); err != nil {
		return paging.MediatorResult{}, err
	}

	page, end, err := m.resolvePage(ctx, loadType, state)
	if err != nil {
		return paging.MediatorResult{}, err
	}
	if end {
		return paging.MediatorResult{EndOfPaginationReached: true}, nil
	}

	pageSize := state.Config.PageSize
	if pageSize <= 0 {
		pageSize = paging.DefaultPageSize
	}

	searchCtx := ctx
	if loadType == paging.Refresh {
		searchCtx = github.WithoutCache(ctx)
	}
	items, err := m.searcher.Search(searchCtx, m.query+QueryQualifier, page, pageSize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return paging.MediatorResult{}, ctxErr
		}
		return paging.MediatorResult{}, &paging.FetchError{Page: page, Err: err}
	}

	endOfData := len(items) == 0
	if err := ctx.Err(); err != nil {
		return paging.MediatorResult{}, err
	}
	if err := m.reconcile(ctx, loadType, page, endOfData, items); err != nil {
		return paging.MediatorResult{}, err
	}
	m.track(loadType, page, endOfData)

	m.logger.DebugContext(ctx, "mediator page stored",
		"load_type", loadType.String(), "page", page, "items", len(items), "end_of_data", endOfData)
	return paging.MediatorResult{EndOfPaginationReached: endOfData}, nil
}

// resolvePage picks the network page for loadType. end reports that there
// is nothing to fetch in that direction.
func (m *RemoteMediator) resolvePage(ctx context.Context, loadType paging.LoadType, state paging.PagingState[repo.Repo]) (page int, end bool, err error) {
	switch loadType {
	case paging.Refresh:
		page, err := m.refreshPage(ctx, state)
		return page, false, err

	case paging.Prepend:
		first, ok := state.FirstItem()
		if !ok {
			return 0, false, fmt.Errorf("%w: prepend with no loaded items", paging.ErrInvalidState)
		}
		keys, err := m.keysFor(ctx, first.ID)
		if err != nil {
			return 0, false, err
		}
		if keys.PrevKey == nil {
			return 0, true, nil
		}
		return *keys.PrevKey, false, nil

	case paging.Append:
		last, ok := state.LastItem()
		if !ok {
			return 0, false, fmt.Errorf("%w: append with no loaded items", paging.ErrInvalidState)
		}
		keys, err := m.keysFor(ctx, last.ID)
		if err != nil {
			return 0, false, err
		}
		if keys.NextKey == nil {
			return 0, false, fmt.Errorf("%w: append past last page at repo %d", paging.ErrInvalidState, last.ID)
		}
		// Pages whose repos the local query filters out leave the last
		// loaded item behind; skip what was already stored.
		m.mu.Lock()
		furthest := m.furthest
		m.mu.Unlock()
		if *keys.NextKey <= furthest {
			return furthest + 1, false, nil
		}
		return *keys.NextKey, false, nil

	default:
		return 0, false, fmt.Errorf("%w: unknown load type %v", paging.ErrInvalidState, loadType)
	}
}

func (m *RemoteMediator) track(loadType paging.LoadType, page int, endOfData bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case loadType == paging.Refresh:
		m.furthest = 0
		if !endOfData {
			m.furthest = page
		}
	case loadType == paging.Append && !endOfData:
		m.furthest = max(m.furthest, page)
	}
}

// refreshPage reloads around the anchor when its keys are known.
func (m *RemoteMediator) refreshPage(ctx context.Context, state paging.PagingState[repo.Repo]) (int, error) {
	if state.AnchorPosition == nil {
		return StartingPage, nil
	}
	item, ok := state.ClosestItemToPosition(*state.AnchorPosition)
	if !ok {
		return StartingPage, nil
	}

	keys, err := m.store.RemoteKeysByRepoID(ctx, item.ID)
	if errors.Is(err, storage.ErrRemoteKeysNotFound) {
		m.logger.WarnContext(ctx, "refresh anchor has no remote keys, restarting at first page",
			"anchor", *state.AnchorPosition, "repo_id", item.ID)
		metrics.IncRefreshFallback()
		return StartingPage, nil
	}
	if err != nil {
		return 0, fmt.Errorf("refresh anchor keys: %w", err)
	}

	switch {
	case keys.NextKey != nil:
		return *keys.NextKey - 1, nil
	case keys.PrevKey != nil:
		return *keys.PrevKey + 1, nil
	default:
		return StartingPage, nil
	}
}

func (m *RemoteMediator) keysFor(ctx context.Context, repoID int64) (*repo.RemoteKeys, error) {
	keys, err := m.store.RemoteKeysByRepoID(ctx, repoID)
	if errors.Is(err, storage.ErrRemoteKeysNotFound) {
		return nil, fmt.Errorf("%w: no remote keys for loaded repo %d", paging.ErrInvalidState, repoID)
	}
	if err != nil {
		return nil, fmt.Errorf("remote keys for repo %d: %w", repoID, err)
	}
	return keys, nil
}

// reconcile writes one fetched page. On refresh the previous result set is
// dropped in the same transaction.
func (m *RemoteMediator) reconcile(ctx context.Context, loadType paging.LoadType, page int, endOfData bool, items []repo.Repo) error {
	var prevKey, nextKey *int
	if page != StartingPage {
		prev := page - 1
		prevKey = &prev
	}
	if !endOfData {
		next := page + 1
		nextKey = &next
	}

	keys := make([]repo.RemoteKeys, len(items))
	for i, it := range items {
		keys[i] = repo.RemoteKeys{RepoID: it.ID, PrevKey: prevKey, NextKey: nextKey}
	}

	err := m.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if loadType == paging.Refresh {
			if err := tx.ClearRemoteKeys(ctx); err != nil {
				return err
			}
			if err := tx.ClearRepos(ctx); err != nil {
				return err
			}
		}
		if err := tx.InsertRemoteKeys(ctx, keys); err != nil {
			return err
		}
		return tx.InsertRepos(ctx, items)
	})
	if err != nil {
		return fmt.Errorf("store page %d: %w", page, err)
	}
	return nil
}

func loadOutcome(res paging.MediatorResult, err error) string {
	switch {
	case err == nil && res.EndOfPaginationReached:
		return metrics.OutcomeEndOfData
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, paging.ErrInvalidState):
		return metrics.OutcomeInvalidState
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCancelled
	default:
		var fe *paging.FetchError
		if errors.As(err, &fe) {
			return metrics.OutcomeFetchError
		}
		return metrics.OutcomeError
	}
}
