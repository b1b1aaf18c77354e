package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ryanbastic/go-repopager/internal/paging"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// loadError maps a paging load failure to an HTTP error.
func loadError(err error) error {
	var fetchErr *paging.FetchError
	switch {
	case errors.Is(err, paging.ErrInvalidState):
		return huma.Error500InternalServerError("invalid paging state")
	case errors.Is(err, paging.ErrClosed), errors.Is(err, context.Canceled):
		return huma.Error409Conflict("search stream was replaced by a newer query")
	case errors.As(err, &fetchErr):
		return huma.Error502BadGateway("upstream search failed, retry to continue", err)
	case errors.Is(err, context.DeadlineExceeded):
		return huma.Error504GatewayTimeout("search timed out, retry to continue")
	default:
		return huma.Error503ServiceUnavailable("local store unavailable, retry to continue")
	}
}
