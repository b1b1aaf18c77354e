package storage

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/ryanbastic/go-repopager/internal/repo"
)

// MemoryStore is an in-process Store. Transactions work on a copy of the
// tables that replaces the live tables on commit.
type MemoryStore struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	repos map[int64]repo.Repo
	keys  map[int64]repo.RemoteKeys
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		repos: make(map[int64]repo.Repo),
		keys:  make(map[int64]repo.RemoteKeys),
	}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	tx := &memTx{
		repos: make(map[int64]repo.Repo, len(s.repos)),
		keys:  make(map[int64]repo.RemoteKeys, len(s.keys)),
	}
	for id, r := range s.repos {
		tx.repos[id] = r
	}
	for id, k := range s.keys {
		tx.keys[id] = k
	}
	s.mu.RUnlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.repos = tx.repos
	s.keys = tx.keys
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) RemoteKeysByRepoID(ctx context.Context, repoID int64) (*repo.RemoteKeys, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookupKeys(s.keys, repoID)
}

func (s *MemoryStore) ReposByQuery(ctx context.Context, query string, offset, limit int) ([]repo.Repo, error) {
	matched := s.match(query)
	if offset >= len(matched) {
		return nil, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}

func (s *MemoryStore) CountRepos(ctx context.Context, query string) (int, error) {
	return len(s.match(query)), nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) match(query string) []repo.Repo {
	pattern := []rune(strings.ToLower(LikePattern(query)))

	s.mu.RLock()
	var out []repo.Repo
	for _, r := range s.repos {
		if likeMatch([]rune(strings.ToLower(r.Name)), pattern) || likeMatch([]rune(strings.ToLower(r.Description)), pattern) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b repo.Repo) int {
		if c := cmp.Compare(b.Stars, a.Stars); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

// likeMatch reports whether s matches a LIKE pattern: '%' matches any run
// of characters, '_' exactly one. There is no escape character.
func likeMatch(s, pattern []rune) bool {
	si, pi := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '_' || pattern[pi] == s[si]):
			si++
			pi++
		case pi < len(pattern) && pattern[pi] == '%':
			star, mark = pi, si
			pi++
		case star >= 0:
			mark++
			si, pi = mark, star+1
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '%' {
		pi++
	}
	return pi == len(pattern)
}

type memTx struct {
	repos map[int64]repo.Repo
	keys  map[int64]repo.RemoteKeys
}

func (t *memTx) ClearRepos(ctx context.Context) error {
	clear(t.repos)
	return ctx.Err()
}

func (t *memTx) ClearRemoteKeys(ctx context.Context) error {
	clear(t.keys)
	return ctx.Err()
}

func (t *memTx) InsertRepos(ctx context.Context, repos []repo.Repo) error {
	for _, r := range repos {
		t.repos[r.ID] = r
	}
	return ctx.Err()
}

func (t *memTx) InsertRemoteKeys(ctx context.Context, keys []repo.RemoteKeys) error {
	for _, k := range keys {
		t.keys[k.RepoID] = k
	}
	return ctx.Err()
}

func (t *memTx) RemoteKeysByRepoID(ctx context.Context, repoID int64) (*repo.RemoteKeys, error) {
	return lookupKeys(t.keys, repoID)
}

func lookupKeys(keys map[int64]repo.RemoteKeys, repoID int64) (*repo.RemoteKeys, error) {
	k, ok := keys[repoID]
	if !ok {
		return nil, ErrRemoteKeysNotFound
	}
	return &k, nil
}
