package paging

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"
)

// Pager owns the paging pipeline of one query. Loads are serialized: at
// most one Refresh, Prepend or Append runs at a time, so a Refresh always
// finishes clearing and inserting before an extension may start.
//
// The local window always starts at offset 0 of the source; Prepend
// therefore goes straight to the mediator.
type Pager[T any] struct {
	config   Config
	source   PagingSource[T]
	mediator RemoteMediator[T]
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	loadMu sync.Mutex

	mu               sync.RWMutex
	pages            []Page[T]
	anchor           *int
	states           LoadStates
	initialized      bool
	remoteAppendEnd  bool
	remotePrependEnd bool
	failed           map[LoadType]bool
}

// NewPager creates a Pager. mediator may be nil, in which case only the
// local source is paged.
func NewPager[T any](config Config, source PagingSource[T], mediator RemoteMediator[T], logger *slog.Logger) *Pager[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pager[T]{
		config:   Config{PageSize: config.pageSize()},
		source:   source,
		mediator: mediator,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		failed:   make(map[LoadType]bool),
	}
}

// Snapshot is a consistent copy of the loaded pages and load states.
type Snapshot[T any] struct {
	Pages      []Page[T]
	LoadStates LoadStates
}

// Items returns the loaded items in order.
func (s Snapshot[T]) Items() []T {
	var out []T
	for _, p := range s.Pages {
		out = append(out, p.Data...)
	}
	return out
}

// Snapshot returns the current pages and load states.
func (p *Pager[T]) Snapshot() Snapshot[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pages := make([]Page[T], len(p.pages))
	copy(pages, p.pages)
	return Snapshot[T]{Pages: pages, LoadStates: p.states}
}

// SetAnchor records the position the user is currently looking at. The
// next Refresh reloads the network page around it.
func (p *Pager[T]) SetAnchor(pos int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.anchor = &pos
}

// Close cancels any in-flight load. Later loads return ErrClosed.
func (p *Pager[T]) Close() {
	p.cancel()
}

// Closed reports whether Close has been called.
func (p *Pager[T]) Closed() bool {
	return p.ctx.Err() != nil
}

// Ensure runs the initial Refresh once.
func (p *Pager[T]) Ensure(ctx context.Context) error {
	lctx, done, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	p.mu.RLock()
	initialized := p.initialized
	p.mu.RUnlock()
	if initialized {
		return nil
	}
	return p.refresh(lctx)
}

// Refresh reloads from the first network page, or from the page around
// the anchor when one is set.
func (p *Pager[T]) Refresh(ctx context.Context) error {
	lctx, done, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return p.refresh(lctx)
}

// Append loads the next page, from the local source if it has more and
// from the mediator otherwise.
func (p *Pager[T]) Append(ctx context.Context) error {
	lctx, done, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return p.appendPage(lctx)
}

// Prepend asks the mediator for the page before the first loaded item.
func (p *Pager[T]) Prepend(ctx context.Context) error {
	lctx, done, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return p.prependPage(lctx)
}

// Load dispatches to Refresh, Prepend or Append.
func (p *Pager[T]) Load(ctx context.Context, t LoadType) error {
	switch t {
	case Prepend:
		return p.Prepend(ctx)
	case Append:
		return p.Append(ctx)
	default:
		return p.Refresh(ctx)
	}
}

// Retry re-runs every direction whose last load failed with a retryable
// error. A failing Refresh stops the retry.
func (p *Pager[T]) Retry(ctx context.Context) error {
	lctx, done, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	p.mu.RLock()
	pending := make(map[LoadType]bool, len(p.failed))
	for t, v := range p.failed {
		pending[t] = v
	}
	p.mu.RUnlock()

	if pending[Refresh] {
		return p.refresh(lctx)
	}
	var errs []error
	if pending[Prepend] {
		errs = append(errs, p.prependPage(lctx))
	}
	if pending[Append] {
		errs = append(errs, p.appendPage(lctx))
	}
	return errors.Join(errs...)
}

// Pages returns a lazy sequence over the list. Loaded pages are yielded
// first; once they run out more are appended on demand until the end of
// data or an error. Each call starts again from the first page.
//
// Progress is tracked by item count, not page index: an Append reloads the
// window from offset 0 and a short local page can be regrouped with the
// rows that follow it.
func (p *Pager[T]) Pages(ctx context.Context) iter.Seq2[Page[T], error] {
	return func(yield func(Page[T], error) bool) {
		if err := p.Ensure(ctx); err != nil {
			yield(Page[T]{}, err)
			return
		}
		yielded := 0
		for {
			snap := p.Snapshot()
			start := 0
			for _, page := range snap.Pages {
				end := start + len(page.Data)
				if end > yielded {
					if start < yielded {
						page = p.tail(page, start, yielded)
					}
					if !yield(page, nil) {
						return
					}
					yielded = end
				}
				start = end
			}
			if snap.LoadStates.Append.EndOfPaginationReached {
				return
			}
			if err := ctx.Err(); err != nil {
				yield(Page[T]{}, err)
				return
			}
			if err := p.Append(ctx); err != nil {
				yield(Page[T]{}, err)
				return
			}
		}
	}
}

// tail returns the rows of page, which starts at offset start, from offset
// from onwards.
func (p *Pager[T]) tail(page Page[T], start, from int) Page[T] {
	out := Page[T]{Data: page.Data[from-start:], NextKey: page.NextKey}
	prev := max(0, from-p.config.PageSize)
	out.PrevKey = &prev
	return out
}

// begin takes the load slot. The returned context is cancelled when
// either ctx is done or the pager is closed.
func (p *Pager[T]) begin(ctx context.Context) (context.Context, func(), error) {
	p.loadMu.Lock()
	if p.ctx.Err() != nil {
		p.loadMu.Unlock()
		return nil, nil, ErrClosed
	}
	lctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(p.ctx, cancel)
	return lctx, func() {
		stop()
		cancel()
		p.loadMu.Unlock()
	}, nil
}

func (p *Pager[T]) refresh(ctx context.Context) error {
	p.setState(Refresh, LoadState{Status: StatusLoading})

	appendEnd := false
	if p.mediator != nil {
		res, err := p.mediator.Load(ctx, Refresh, p.state())
		if err != nil {
			return p.fail(ctx, Refresh, err)
		}
		appendEnd = res.EndOfPaginationReached
	}

	pages, err := p.reload(ctx, p.config.PageSize)
	if err != nil {
		return p.fail(ctx, Refresh, err)
	}
	// With no local rows there is no item to resolve the next page from.
	if countItems(pages) == 0 {
		appendEnd = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = pages
	p.initialized = true
	p.remoteAppendEnd = appendEnd
	// Nothing loaded means nothing to prepend before.
	p.remotePrependEnd = p.mediator == nil || countItems(pages) == 0
	p.failed = make(map[LoadType]bool)
	p.states = LoadStates{
		Refresh: LoadState{Status: StatusNotLoading},
		Prepend: LoadState{Status: StatusNotLoading, EndOfPaginationReached: p.remotePrependEnd},
		Append:  LoadState{Status: StatusNotLoading, EndOfPaginationReached: appendEnd && localExhausted(pages)},
	}
	return nil
}

func (p *Pager[T]) appendPage(ctx context.Context) error {
	p.mu.RLock()
	initialized := p.initialized
	p.mu.RUnlock()
	if !initialized {
		return p.refresh(ctx)
	}

	p.setState(Append, LoadState{Status: StatusLoading})
	size := p.config.PageSize

	p.mu.RLock()
	loaded := countItems(p.pages)
	var next *int
	if len(p.pages) > 0 {
		next = p.pages[len(p.pages)-1].NextKey
	}
	p.mu.RUnlock()

	if next != nil {
		items, err := p.source.Load(ctx, *next, size)
		if err != nil {
			return p.fail(ctx, Append, err)
		}
		if len(items) > 0 {
			p.mu.Lock()
			p.pages = append(p.pages, makePage(*next, items, size))
			p.states.Append = LoadState{Status: StatusNotLoading}
			delete(p.failed, Append)
			p.mu.Unlock()
			return nil
		}
	}

	p.mu.RLock()
	remoteEnd := p.remoteAppendEnd
	p.mu.RUnlock()
	if p.mediator == nil || remoteEnd {
		p.mu.Lock()
		p.states.Append = LoadState{Status: StatusNotLoading, EndOfPaginationReached: true}
		delete(p.failed, Append)
		p.mu.Unlock()
		return nil
	}

	res, err := p.mediator.Load(ctx, Append, p.state())
	if err != nil {
		return p.fail(ctx, Append, err)
	}

	pages, err := p.reload(ctx, loaded+size)
	if err != nil {
		return p.fail(ctx, Append, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages = pages
	p.remoteAppendEnd = res.EndOfPaginationReached
	p.states.Append = LoadState{
		Status:                 StatusNotLoading,
		EndOfPaginationReached: res.EndOfPaginationReached && localExhausted(pages),
	}
	delete(p.failed, Append)
	return nil
}

func (p *Pager[T]) prependPage(ctx context.Context) error {
	p.mu.RLock()
	initialized := p.initialized
	remoteEnd := p.remotePrependEnd
	loaded := countItems(p.pages)
	p.mu.RUnlock()
	if !initialized {
		return p.refresh(ctx)
	}

	if p.mediator == nil || remoteEnd {
		p.mu.Lock()
		p.states.Prepend = LoadState{Status: StatusNotLoading, EndOfPaginationReached: true}
		delete(p.failed, Prepend)
		p.mu.Unlock()
		return nil
	}

	p.setState(Prepend, LoadState{Status: StatusLoading})
	res, err := p.mediator.Load(ctx, Prepend, p.state())
	if err != nil {
		return p.fail(ctx, Prepend, err)
	}

	var pages []Page[T]
	if !res.EndOfPaginationReached {
		pages, err = p.reload(ctx, loaded+p.config.PageSize)
		if err != nil {
			return p.fail(ctx, Prepend, err)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if pages != nil {
		p.pages = pages
	}
	p.remotePrependEnd = res.EndOfPaginationReached
	p.states.Prepend = LoadState{Status: StatusNotLoading, EndOfPaginationReached: res.EndOfPaginationReached}
	delete(p.failed, Prepend)
	return nil
}

// reload reads the first n items of the source and splits them into pages.
func (p *Pager[T]) reload(ctx context.Context, n int) ([]Page[T], error) {
	items, err := p.source.Load(ctx, 0, n)
	if err != nil {
		return nil, err
	}
	size := p.config.PageSize
	var pages []Page[T]
	for off := 0; off < len(items); off += size {
		end := min(off+size, len(items))
		page := makePage(off, items[off:end], size)
		if end == len(items) && len(items) < n {
			page.NextKey = nil
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func (p *Pager[T]) state() PagingState[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pages := make([]Page[T], len(p.pages))
	copy(pages, p.pages)
	var anchor *int
	if p.anchor != nil {
		a := *p.anchor
		anchor = &a
	}
	return PagingState[T]{Pages: pages, AnchorPosition: anchor, Config: p.config}
}

func (p *Pager[T]) setState(t LoadType, s LoadState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states.set(t, s)
}

func (p *Pager[T]) fail(ctx context.Context, t LoadType, err error) error {
	p.mu.Lock()
	p.states.set(t, LoadState{Status: StatusError, Err: err})
	if IsRetryable(err) {
		p.failed[t] = true
	} else {
		delete(p.failed, t)
	}
	p.mu.Unlock()

	if errors.Is(err, ErrInvalidState) {
		p.logger.ErrorContext(ctx, "paging load failed", "load_type", t.String(), "error", err)
	} else {
		p.logger.WarnContext(ctx, "paging load failed", "load_type", t.String(), "retryable", IsRetryable(err), "error", err)
	}
	return err
}

func makePage[T any](offset int, items []T, size int) Page[T] {
	page := Page[T]{Data: items}
	if offset > 0 {
		prev := max(0, offset-size)
		page.PrevKey = &prev
	}
	if len(items) >= size {
		next := offset + len(items)
		page.NextKey = &next
	}
	return page
}

func countItems[T any](pages []Page[T]) int {
	n := 0
	for _, pg := range pages {
		n += len(pg.Data)
	}
	return n
}

func localExhausted[T any](pages []Page[T]) bool {
	return len(pages) == 0 || pages[len(pages)-1].NextKey == nil
}
