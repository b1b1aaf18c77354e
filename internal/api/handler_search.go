package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ryanbastic/go-repopager/internal/paging"
	"github.com/ryanbastic/go-repopager/internal/repo"
	"github.com/ryanbastic/go-repopager/internal/session"
)

// --- Huma Input/Output types ---

type SearchInput struct {
	Query  string `query:"q" doc:"Search query" required:"true" minLength:"1"`
	Anchor int    `query:"anchor" doc:"Index of the item in view; the next refresh reloads around it" default:"-1" minimum:"-1"`
}

type LoadInput struct {
	Direction string `path:"direction" doc:"Load direction" enum:"append,prepend,refresh,retry"`
}

type LoadStateResponse struct {
	Status                 string `json:"status" doc:"not_loading, loading or error"`
	EndOfPaginationReached bool   `json:"end_of_pagination_reached"`
	Error                  string `json:"error,omitempty"`
	Retryable              bool   `json:"retryable,omitempty"`
}

type LoadStatesResponse struct {
	Refresh LoadStateResponse `json:"refresh"`
	Prepend LoadStateResponse `json:"prepend"`
	Append  LoadStateResponse `json:"append"`
}

type RowResponse struct {
	Separator string     `json:"separator,omitempty" doc:"Star bucket header"`
	Repo      *repo.Repo `json:"repo,omitempty"`
}

type SearchResponse struct {
	Query      string             `json:"query"`
	ItemCount  int                `json:"item_count" doc:"Repos loaded so far"`
	Rows       []RowResponse      `json:"rows" doc:"Repos with star bucket separators"`
	LoadStates LoadStatesResponse `json:"load_states"`
}

type SearchOutput struct {
	Body SearchResponse
}

// --- Handler ---

type SearchHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewSearchHandler(sessions *session.Manager, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{sessions: sessions, logger: logger}
}

func registerSearchRoutes(api huma.API, h *SearchHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/v1/search",
		Summary:     "Start or continue a repository search",
		Tags:        []string{"search"},
	}, h.Search)

	huma.Register(api, huma.Operation{
		OperationID: "search-load",
		Method:      http.MethodPost,
		Path:        "/v1/search/{direction}",
		Summary:     "Load more results for the current search",
		Tags:        []string{"search"},
	}, h.Load)
}

func (h *SearchHandler) Search(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	stream := h.sessions.Stream(input.Query)
	if input.Anchor >= 0 {
		stream.SetAnchor(input.Anchor)
	}
	if err := stream.Ensure(ctx); err != nil {
		h.logger.WarnContext(ctx, "search failed", "query", input.Query, "error", err)
		return nil, loadError(err)
	}
	return &SearchOutput{Body: searchResponse(input.Query, stream.Snapshot())}, nil
}

func (h *SearchHandler) Load(ctx context.Context, input *LoadInput) (*SearchOutput, error) {
	query, stream, ok := h.sessions.Current()
	if !ok {
		return nil, huma.Error409Conflict("no active search, call GET /v1/search first")
	}

	var err error
	switch input.Direction {
	case "retry":
		err = stream.Retry(ctx)
	default:
		t, perr := paging.ParseLoadType(input.Direction)
		if perr != nil {
			return nil, huma.Error400BadRequest("invalid direction")
		}
		err = stream.Load(ctx, t)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "search load failed", "query", query, "direction", input.Direction, "error", err)
		return nil, loadError(err)
	}
	return &SearchOutput{Body: searchResponse(query, stream.Snapshot())}, nil
}

func searchResponse(query string, snap paging.Snapshot[repo.Repo]) SearchResponse {
	items := snap.Items()
	models := session.InsertSeparators(items)
	rows := make([]RowResponse, len(models))
	for i, m := range models {
		rows[i] = RowResponse{Separator: m.Separator, Repo: m.Repo}
	}
	return SearchResponse{
		Query:     query,
		ItemCount: len(items),
		Rows:      rows,
		LoadStates: LoadStatesResponse{
			Refresh: loadStateResponse(snap.LoadStates.Refresh),
			Prepend: loadStateResponse(snap.LoadStates.Prepend),
			Append:  loadStateResponse(snap.LoadStates.Append),
		},
	}
}

func loadStateResponse(s paging.LoadState) LoadStateResponse {
	out := LoadStateResponse{
		Status:                 s.Status.String(),
		EndOfPaginationReached: s.EndOfPaginationReached,
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
		out.Retryable = paging.IsRetryable(s.Err)
	}
	return out
}
