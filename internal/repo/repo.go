package repo

// Repo is one repository returned by a search. ID is the natural key;
// a later fetch of the same ID replaces the stored row.
type Repo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	Language    string `json:"language"`
}

// RemoteKeys records which network page a stored repo came from.
// A nil PrevKey means the repo was on the first page; a nil NextKey means
// the end of the result set was reached at or before this repo.
type RemoteKeys struct {
	RepoID  int64 `json:"repo_id"`
	PrevKey *int  `json:"prev_key,omitempty"`
	NextKey *int  `json:"next_key,omitempty"`
}

// RoundedStars buckets the star count by tens of thousands.
func (r Repo) RoundedStars() int {
	return r.Stars / 10_000
}
