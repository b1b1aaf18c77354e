package paging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"fetch error", &FetchError{Page: 2, Err: errors.New("503")}, true},
		{"wrapped fetch error", fmt.Errorf("load: %w", &FetchError{Page: 1, Err: errors.New("eof")}), true},
		{"invalid state", fmt.Errorf("%w: no remote keys", ErrInvalidState), false},
		{"closed", ErrClosed, false},
		{"cancelled", context.Canceled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&FetchError{Page: 3, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("expected FetchError to unwrap to its cause")
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Page != 3 {
		t.Errorf("errors.As: got %+v", fe)
	}
	if !strings.Contains(err.Error(), "page 3") {
		t.Errorf("message %q does not mention the page", err.Error())
	}
}

func TestLoadState_MarshalJSON(t *testing.T) {
	s := LoadState{Status: StatusError, Err: &FetchError{Page: 2, Err: errors.New("timeout")}}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["status"] != "error" {
		t.Errorf("status = %v, want error", got["status"])
	}
	if got["retryable"] != true {
		t.Errorf("retryable = %v, want true", got["retryable"])
	}
}
