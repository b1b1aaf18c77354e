// Package github searches GitHub repositories over the REST search API.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/github"
	"golang.org/x/oauth2"

	"github.com/ryanbastic/go-repopager/internal/circuitbreaker"
	"github.com/ryanbastic/go-repopager/internal/metrics"
	"github.com/ryanbastic/go-repopager/internal/repo"
)

// Searcher fetches one page of repository search results.
type Searcher interface {
	Search(ctx context.Context, query string, page, perPage int) ([]repo.Repo, error)
}

// Config configures a Client.
type Config struct {
	BaseURL      string // empty means api.github.com
	Token        string // optional personal access token
	Timeout      time.Duration
	MaxFailures  int
	ResetTimeout time.Duration
}

// Client searches repositories sorted by stars.
type Client struct {
	gh      *gh.Client
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// NewClient creates a Client from cfg.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   http.DefaultTransport,
		}
	}

	client := gh.NewClient(httpClient)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		client.BaseURL = u
	}

	return &Client{
		gh:      client,
		breaker: circuitbreaker.New("github-search", cfg.MaxFailures, cfg.ResetTimeout, logger),
		logger:  logger,
	}, nil
}

// Search returns page (1-based) of repositories matching query.
func (c *Client) Search(ctx context.Context, query string, page, perPage int) ([]repo.Repo, error) {
	start := time.Now()
	var repos []repo.Repo

	err := c.breaker.Execute(func() error {
		opts := &gh.SearchOptions{
			Sort:        "stars",
			ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
		}
		result, _, err := c.gh.Search.Repositories(ctx, query, opts)
		if err != nil {
			return err
		}
		repos = make([]repo.Repo, 0, len(result.Repositories))
		for i := range result.Repositories {
			repos = append(repos, toRepo(&result.Repositories[i]))
		}
		return nil
	})

	metrics.ObserveSearch(searchOutcome(err), time.Since(start))
	if err != nil {
		var rateErr *gh.RateLimitError
		if errors.As(err, &rateErr) {
			c.logger.Warn("github rate limit reached", "reset", rateErr.Rate.Reset.Time)
		}
		return nil, fmt.Errorf("search repositories %q page %d: %w", query, page, err)
	}

	c.logger.Debug("github search", "query", query, "page", page, "items", len(repos))
	return repos, nil
}

// State reports the circuit breaker state.
func (c *Client) State() circuitbreaker.State {
	return c.breaker.GetState()
}

func toRepo(r *gh.Repository) repo.Repo {
	return repo.Repo{
		ID:          r.GetID(),
		Name:        r.GetFullName(),
		Description: r.GetDescription(),
		URL:         r.GetHTMLURL(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		Language:    r.GetLanguage(),
	}
}

func searchOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeError
	}
}

type bypassKey struct{}

// WithoutCache marks ctx so caching Searchers go straight to upstream. The
// fresh result is still stored.
func WithoutCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

// CacheBypassed reports whether ctx was marked by WithoutCache.
func CacheBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}
