package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ryanbastic/go-repopager/internal/repo"
	"github.com/ryanbastic/go-repopager/internal/storage"
)

type ListReposInput struct {
	Query  string `query:"q" doc:"Filter by name or description"`
	Cursor string `query:"cursor" doc:"Opaque cursor from a previous page"`
	Limit  int    `query:"limit" doc:"Maximum repos to return" default:"20" minimum:"1" maximum:"100"`
}

type ListReposResponse struct {
	Repos      []repo.Repo `json:"repos"`
	Total      int         `json:"total" doc:"Stored repos matching the query"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

type ListReposOutput struct {
	Body ListReposResponse
}

// RepoHandler lists what the local store holds, without touching GitHub.
type RepoHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewRepoHandler(store storage.Store, logger *slog.Logger) *RepoHandler {
	return &RepoHandler{store: store, logger: logger}
}

func registerRepoRoutes(api huma.API, h *RepoHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-repos",
		Method:      http.MethodGet,
		Path:        "/v1/repos",
		Summary:     "List stored repos",
		Tags:        []string{"repos"},
	}, h.ListRepos)
}

func (h *RepoHandler) ListRepos(ctx context.Context, input *ListReposInput) (*ListReposOutput, error) {
	offset := 0
	if input.Cursor != "" {
		c, err := storage.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid cursor")
		}
		if c.Query != input.Query {
			return nil, huma.Error400BadRequest("cursor belongs to a different query")
		}
		offset = c.Offset
	}

	repos, err := h.store.ReposByQuery(ctx, input.Query, offset, input.Limit+1)
	if err != nil {
		h.logger.ErrorContext(ctx, "list repos failed", "query", input.Query, "error", err)
		return nil, huma.Error500InternalServerError("failed to list repos")
	}
	total, err := h.store.CountRepos(ctx, input.Query)
	if err != nil {
		h.logger.ErrorContext(ctx, "count repos failed", "query", input.Query, "error", err)
		return nil, huma.Error500InternalServerError("failed to count repos")
	}

	resp := ListReposResponse{Repos: repos, Total: total}
	if len(repos) > input.Limit {
		resp.Repos = repos[:input.Limit]
		next := storage.Cursor{Query: input.Query, Offset: offset + input.Limit}
		resp.NextCursor, err = next.Encode()
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to encode cursor")
		}
	}
	if resp.Repos == nil {
		resp.Repos = []repo.Repo{}
	}
	return &ListReposOutput{Body: resp}, nil
}
