package paging

// PagingState is the view of loaded pages handed to a RemoteMediator.
// AnchorPosition is an index into the concatenated items of Pages.
type PagingState[T any] struct {
	Pages          []Page[T]
	AnchorPosition *int
	Config         Config
}

// ItemCount returns the number of loaded items across all pages.
func (s PagingState[T]) ItemCount() int {
	n := 0
	for _, p := range s.Pages {
		n += len(p.Data)
	}
	return n
}

// ClosestItemToPosition returns the loaded item at pos, clamped to the
// loaded range.
func (s PagingState[T]) ClosestItemToPosition(pos int) (T, bool) {
	var zero T
	n := s.ItemCount()
	if n == 0 {
		return zero, false
	}
	pos = max(0, min(pos, n-1))
	for _, p := range s.Pages {
		if pos < len(p.Data) {
			return p.Data[pos], true
		}
		pos -= len(p.Data)
	}
	return zero, false
}

// FirstItem returns the first item of the first non-empty page.
func (s PagingState[T]) FirstItem() (T, bool) {
	for _, p := range s.Pages {
		if len(p.Data) > 0 {
			return p.Data[0], true
		}
	}
	var zero T
	return zero, false
}

// LastItem returns the last item of the last non-empty page.
func (s PagingState[T]) LastItem() (T, bool) {
	for i := len(s.Pages) - 1; i >= 0; i-- {
		if d := s.Pages[i].Data; len(d) > 0 {
			return d[len(d)-1], true
		}
	}
	var zero T
	return zero, false
}
