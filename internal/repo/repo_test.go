package repo

import "testing"

func TestRoundedStars(t *testing.T) {
	tests := []struct {
		stars int
		want  int
	}{
		{0, 0},
		{9_999, 0},
		{10_000, 1},
		{19_999, 1},
		{25_000, 2},
		{123_456, 12},
	}

	for _, tt := range tests {
		got := Repo{Stars: tt.stars}.RoundedStars()
		if got != tt.want {
			t.Errorf("RoundedStars(%d) = %d, want %d", tt.stars, got, tt.want)
		}
	}
}
