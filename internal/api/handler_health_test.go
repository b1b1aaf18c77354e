package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error {
	return m.err
}

func TestLivez_ReturnsOK(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/v1/livez")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	if resp := decode[map[string]string](t, w); resp["status"] != "ok" {
		t.Errorf("status: got %q, want %q", resp["status"], "ok")
	}
}

func TestReadyz_NoBackends_ReturnsOK(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/v1/readyz")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusOK)
	}
}

func TestReadyz_AllHealthy(t *testing.T) {
	env := newTestEnv(t, map[string]Pinger{
		"store": &mockPinger{},
		"redis": &mockPinger{},
	})

	w := env.do(t, http.MethodGet, "/v1/readyz")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	resp := decode[readyzResponse](t, w)
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if len(resp.Backends) != 2 {
		t.Fatalf("backends: got %d, want 2", len(resp.Backends))
	}
	for name, bs := range resp.Backends {
		if bs.Status != "ok" {
			t.Errorf("backend %s: got %q, want %q", name, bs.Status, "ok")
		}
	}
}

func TestReadyz_OneBackendDown(t *testing.T) {
	env := newTestEnv(t, map[string]Pinger{
		"store": &mockPinger{},
		"redis": &mockPinger{err: errors.New("connection refused")},
	})

	w := env.do(t, http.MethodGet, "/v1/readyz")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want %d\nbody: %s", w.Code, http.StatusServiceUnavailable, w.Body.String())
	}

	resp := decode[readyzResponse](t, w)
	if resp.Status != "unavailable" {
		t.Errorf("status: got %q, want %q", resp.Status, "unavailable")
	}
	if resp.Backends["store"].Status != "ok" {
		t.Errorf("store: got %q, want %q", resp.Backends["store"].Status, "ok")
	}
	if resp.Backends["redis"].Error != "connection refused" {
		t.Errorf("redis error: got %q", resp.Backends["redis"].Error)
	}
}
