package paging

import "encoding/json"

// Status is the activity of one load direction.
type Status int

const (
	StatusNotLoading Status = iota
	StatusLoading
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "not_loading"
	}
}

// LoadState is what the presentation layer shows for one direction:
// a spinner while loading, a retry affordance on error, nothing otherwise.
type LoadState struct {
	Status                 Status
	EndOfPaginationReached bool
	Err                    error
}

func (s LoadState) MarshalJSON() ([]byte, error) {
	out := struct {
		Status                 string `json:"status"`
		EndOfPaginationReached bool   `json:"end_of_pagination_reached"`
		Error                  string `json:"error,omitempty"`
		Retryable              bool   `json:"retryable,omitempty"`
	}{
		Status:                 s.Status.String(),
		EndOfPaginationReached: s.EndOfPaginationReached,
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
		out.Retryable = IsRetryable(s.Err)
	}
	return json.Marshal(out)
}

// LoadStates groups the state of every direction.
type LoadStates struct {
	Refresh LoadState `json:"refresh"`
	Prepend LoadState `json:"prepend"`
	Append  LoadState `json:"append"`
}

// Get returns the state for a direction.
func (l LoadStates) Get(t LoadType) LoadState {
	switch t {
	case Prepend:
		return l.Prepend
	case Append:
		return l.Append
	default:
		return l.Refresh
	}
}

func (l *LoadStates) set(t LoadType, s LoadState) {
	switch t {
	case Prepend:
		l.Prepend = s
	case Append:
		l.Append = s
	default:
		l.Refresh = s
	}
}
