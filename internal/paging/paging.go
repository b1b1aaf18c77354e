// Package paging drives incremental loading of a list that is backed by a
// local source of truth and extended from the network by a RemoteMediator.
package paging

import (
	"context"
	"fmt"
)

// LoadType is the direction of a load request.
type LoadType int

const (
	// Refresh discards everything loaded so far and starts over.
	Refresh LoadType = iota
	// Prepend extends the list toward its beginning.
	Prepend
	// Append extends the list toward its end.
	Append
)

func (t LoadType) String() string {
	switch t {
	case Refresh:
		return "refresh"
	case Prepend:
		return "prepend"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("LoadType(%d)", int(t))
	}
}

// ParseLoadType is the inverse of LoadType.String.
func ParseLoadType(s string) (LoadType, error) {
	switch s {
	case "refresh":
		return Refresh, nil
	case "prepend":
		return Prepend, nil
	case "append":
		return Append, nil
	default:
		return 0, fmt.Errorf("unknown load type %q", s)
	}
}

// DefaultPageSize is used when Config.PageSize is not positive.
const DefaultPageSize = 20

// Config controls page sizing.
type Config struct {
	PageSize int
}

func (c Config) pageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

// Page is a contiguous slice of loaded items. Keys are offsets into the
// local source; a nil key means there is nothing more locally in that
// direction.
type Page[T any] struct {
	Data    []T  `json:"data"`
	PrevKey *int `json:"prev_key,omitempty"`
	NextKey *int `json:"next_key,omitempty"`
}

// MediatorResult is the successful outcome of a RemoteMediator load.
type MediatorResult struct {
	EndOfPaginationReached bool
}

// RemoteMediator fetches more data from the network into the local source.
// Implementations report transient failures as *FetchError and broken
// bookkeeping as ErrInvalidState.
type RemoteMediator[T any] interface {
	Load(ctx context.Context, loadType LoadType, state PagingState[T]) (MediatorResult, error)
}

// PagingSource reads items from the local source of truth.
type PagingSource[T any] interface {
	Load(ctx context.Context, offset, limit int) ([]T, error)
}

// SourceFunc adapts a function to the PagingSource interface.
type SourceFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Load implements PagingSource.
func (f SourceFunc[T]) Load(ctx context.Context, offset, limit int) ([]T, error) {
	return f(ctx, offset, limit)
}
