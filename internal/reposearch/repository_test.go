package reposearch

import (
	"context"
	"testing"
	"time"

	"github.com/ryanbastic/go-repopager/internal/repo"
	"github.com/ryanbastic/go-repopager/internal/storage"
)

func collect(t *testing.T, r *Repository, query string) []repo.Repo {
	t.Helper()
	var items []repo.Repo
	for page, err := range r.SearchStream(query).Pages(context.Background()) {
		if err != nil {
			t.Fatalf("Pages: %v", err)
		}
		items = append(items, page.Data...)
	}
	return items
}

func TestSearchStreamPagesThroughNetwork(t *testing.T) {
	backends := map[string]func(t *testing.T) storage.Store{
		"memory": func(t *testing.T) storage.Store { return storage.NewMemoryStore() },
		"sqlite": func(t *testing.T) storage.Store {
			s, err := storage.OpenSQLite(context.Background(), ":memory:", 5*time.Second)
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			search := &fakeSearcher{pages: netPages(3, 2)}
			r := NewRepository(newStore(t), search, 2, testLogger())

			items := collect(t, r, "foo")
			if len(items) != 6 {
				t.Fatalf("items = %d, want 6", len(items))
			}
			for i, it := range items {
				if it.ID != int64(i+1) {
					t.Errorf("items[%d].ID = %d, want %d", i, it.ID, i+1)
				}
			}

			var fetched []int
			for _, c := range search.calls {
				fetched = append(fetched, c.page)
			}
			want := []int{1, 2, 3, 4}
			if len(fetched) != len(want) {
				t.Fatalf("fetched pages = %v, want %v", fetched, want)
			}
			for i := range want {
				if fetched[i] != want[i] {
					t.Errorf("fetched pages = %v, want %v", fetched, want)
					break
				}
			}
		})
	}
}

func TestSearchStreamRefreshAroundAnchor(t *testing.T) {
	store := storage.NewMemoryStore()
	search := &fakeSearcher{pages: netPages(3, 2)}
	r := NewRepository(store, search, 2, testLogger())
	p := r.SearchStream("foo")
	ctx := context.Background()

	if err := p.Ensure(ctx); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := p.Append(ctx); err != nil {
		t.Fatalf("Append: %v", err)
	}
	p.SetAnchor(3)
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if got := search.lastCall().page; got != 2 {
		t.Errorf("refresh page = %d, want 2", got)
	}
	items := p.Snapshot().Items()
	if len(items) != 2 || items[0].ID != 3 {
		t.Errorf("items after anchored refresh = %+v", items)
	}

	if err := p.Prepend(ctx); err != nil {
		t.Fatalf("Prepend: %v", err)
	}
	items = p.Snapshot().Items()
	if len(items) != 4 || items[0].ID != 1 {
		t.Errorf("items after prepend = %+v", items)
	}
	if err := p.Prepend(ctx); err != nil {
		t.Fatalf("second Prepend: %v", err)
	}
	if !p.Snapshot().LoadStates.Prepend.EndOfPaginationReached {
		t.Error("expected prepend end of pagination at page 1")
	}
}

func TestSearchStreamFiltersLocalRows(t *testing.T) {
	pages := netPages(1, 2)
	pages[1] = append(pages[1], repo.Repo{ID: 500, Name: "zzz/unrelated", Stars: 1})
	search := &fakeSearcher{pages: pages}
	r := NewRepository(storage.NewMemoryStore(), search, 2, testLogger())

	items := collect(t, r, "foo")
	if len(items) != 2 {
		t.Fatalf("items = %+v, want 2 matching repos", items)
	}
}

func TestSearchStreamPagesPastFilteredRows(t *testing.T) {
	// Four repos per network page; "foo" matches two of page 1, none of
	// page 2 and all of page 3.
	names := map[int][]string{
		1: {"acme/foo-a", "acme/foo-b", "acme/bar-c", "acme/bar-d"},
		2: {"acme/bar-e", "acme/bar-f", "acme/bar-g", "acme/bar-h"},
		3: {"acme/foo-i", "acme/foo-j", "acme/foo-k", "acme/foo-l"},
	}
	pages := map[int][]repo.Repo{}
	id, stars := int64(1), 100_000
	for p := 1; p <= 3; p++ {
		for _, name := range names[p] {
			pages[p] = append(pages[p], repo.Repo{ID: id, Name: name, Stars: stars})
			id++
			stars -= 1000
		}
	}
	search := &fakeSearcher{pages: pages}
	r := NewRepository(storage.NewMemoryStore(), search, 4, testLogger())

	var got []string
	for _, it := range collect(t, r, "foo") {
		got = append(got, it.Name)
	}
	want := []string{"acme/foo-a", "acme/foo-b", "acme/foo-i", "acme/foo-j", "acme/foo-k", "acme/foo-l"}
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSearchStreamWithoutLocalMatches(t *testing.T) {
	// GitHub matches words in any order; the local pattern does not.
	search := &fakeSearcher{pages: map[int][]repo.Repo{
		1: {{ID: 1, Name: "bar/foo", Stars: 20}, {ID: 2, Name: "bar-foo", Stars: 10}},
	}}
	r := NewRepository(storage.NewMemoryStore(), search, 2, testLogger())
	p := r.SearchStream("foo bar")
	ctx := context.Background()

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := p.Append(ctx); err != nil {
		t.Fatalf("Append: %v", err)
	}
	snap := p.Snapshot()
	if n := len(snap.Items()); n != 0 {
		t.Errorf("items = %d, want 0", n)
	}
	if !snap.LoadStates.Append.EndOfPaginationReached {
		t.Error("expected append end of pagination")
	}
	if n := search.callCount(); n != 1 {
		t.Errorf("search calls = %d, want 1", n)
	}
}
