package paging

import "testing"

func intPages(pages ...[]int) []Page[int] {
	out := make([]Page[int], len(pages))
	for i, d := range pages {
		out[i] = Page[int]{Data: d}
	}
	return out
}

func TestPagingState_ClosestItemToPosition(t *testing.T) {
	state := PagingState[int]{Pages: intPages([]int{1, 2}, nil, []int{3, 4, 5})}

	tests := []struct {
		name string
		pos  int
		want int
	}{
		{"first", 0, 1},
		{"second page after empty page", 2, 3},
		{"last", 4, 5},
		{"clamped high", 99, 5},
		{"clamped low", -3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := state.ClosestItemToPosition(tt.pos)
			if !ok {
				t.Fatal("expected an item")
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPagingState_Empty(t *testing.T) {
	state := PagingState[int]{Pages: intPages(nil, []int{})}

	if _, ok := state.ClosestItemToPosition(0); ok {
		t.Error("ClosestItemToPosition: expected no item")
	}
	if _, ok := state.FirstItem(); ok {
		t.Error("FirstItem: expected no item")
	}
	if _, ok := state.LastItem(); ok {
		t.Error("LastItem: expected no item")
	}
}

func TestPagingState_FirstAndLastSkipEmptyPages(t *testing.T) {
	state := PagingState[int]{Pages: intPages(nil, []int{7, 8}, []int{9}, nil)}

	first, ok := state.FirstItem()
	if !ok || first != 7 {
		t.Errorf("FirstItem = %d, %v; want 7, true", first, ok)
	}
	last, ok := state.LastItem()
	if !ok || last != 9 {
		t.Errorf("LastItem = %d, %v; want 9, true", last, ok)
	}
}

func TestParseLoadType(t *testing.T) {
	for _, lt := range []LoadType{Refresh, Prepend, Append} {
		got, err := ParseLoadType(lt.String())
		if err != nil {
			t.Fatalf("ParseLoadType(%q): %v", lt.String(), err)
		}
		if got != lt {
			t.Errorf("got %v, want %v", got, lt)
		}
	}
	if _, err := ParseLoadType("sideways"); err == nil {
		t.Error("expected error for unknown load type")
	}
}
