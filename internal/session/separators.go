package session

import (
	"fmt"

	"github.com/ryanbastic/go-repopager/internal/repo"
)

// UIModel is one row of the result list: a repo or a separator header.
type UIModel struct {
	Repo      *repo.Repo `json:"repo,omitempty"`
	Separator string     `json:"separator,omitempty"`
}

// IsSeparator reports whether m is a header row.
func (m UIModel) IsSeparator() bool {
	return m.Repo == nil
}

// InsertSeparators groups repos by star bucket (stars / 10.000), placing a
// header before the first repo and wherever the bucket drops.
func InsertSeparators(repos []repo.Repo) []UIModel {
	out := make([]UIModel, 0, len(repos)+1)
	for i := range repos {
		r := &repos[i]
		switch {
		case i == 0:
			out = append(out, UIModel{Separator: separatorLabel(r.RoundedStars())})
		case repos[i-1].RoundedStars() > r.RoundedStars():
			out = append(out, UIModel{Separator: separatorLabel(r.RoundedStars())})
		}
		out = append(out, UIModel{Repo: r})
	}
	return out
}

func separatorLabel(bucket int) string {
	if bucket >= 1 {
		return fmt.Sprintf("%d0.000+ Stars", bucket)
	}
	return "< 10.000 stars"
}
