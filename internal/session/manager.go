// Package session keeps the paging stream of the current search query.
package session

import (
	"log/slog"
	"sync"

	"github.com/ryanbastic/go-repopager/internal/paging"
	"github.com/ryanbastic/go-repopager/internal/repo"
)

// StreamSource builds a fresh stream for a query.
type StreamSource interface {
	SearchStream(query string) *paging.Pager[repo.Repo]
}

// Manager memoizes one stream per process: asking again for the current
// query returns the same stream, a new query closes the old one.
type Manager struct {
	source StreamSource
	logger *slog.Logger

	mu     sync.Mutex
	query  string
	stream *paging.Pager[repo.Repo]
}

// NewManager creates a Manager.
func NewManager(source StreamSource, logger *slog.Logger) *Manager {
	return &Manager{source: source, logger: logger}
}

// Stream returns the stream for query.
func (m *Manager) Stream(query string) *paging.Pager[repo.Repo] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil && m.query == query && !m.stream.Closed() {
		return m.stream
	}
	if m.stream != nil {
		m.stream.Close()
		m.logger.Info("search stream replaced", "previous_query", m.query, "query", query)
	}
	m.query = query
	m.stream = m.source.SearchStream(query)
	return m.stream
}

// Current returns the active stream and its query, if any.
func (m *Manager) Current() (string, *paging.Pager[repo.Repo], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return "", nil, false
	}
	return m.query, m.stream, true
}

// Close closes the active stream.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		m.stream.Close()
	}
}
