package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"photo-wallet/internal/cache"
	"photo-wallet/internal/handlers"
	"photo-wallet/internal/reset"
	"photo-wallet/internal/settings"
	"photo-wallet/internal/startup"
	"photo-wallet/internal/wallet"
)

// idleBackend is a wallet that never finished loading.
type idleBackend struct{}

func (idleBackend) Store() *wallet.Store                   { return nil }
func (idleBackend) Queue() *wallet.Queue                   { return nil }
func (idleBackend) Settings() *settings.Store              { return nil }
func (idleBackend) Caches() *cache.Caches                  { return nil }
func (idleBackend) HardReset(context.Context) reset.Report { return reset.Report{} }
func (idleBackend) Ready() bool                            { return false }

func routeSet(t *testing.T, r *mux.Router) map[string]bool {
	t.Helper()
	routes, err := startup.GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	set := make(map[string]bool)
	for _, route := range routes {
		set[route.Method+" "+route.Path] = true
	}
	return set
}

func TestSetupRouter(t *testing.T) {
	config := &startup.Config{MetricsEnabled: true, MaxFileSize: 1 << 20}
	r := setupRouter(handlers.New(idleBackend{}, config), config)
	routes := routeSet(t, r)

	for _, want := range []string{
		"GET /api/photos",
		"POST /api/photos",
		"PUT /api/photos/order",
		"DELETE /api/photos/{id}",
		"POST /api/photos/{id}/archive",
		"POST /api/photos/archive-oldest",
		"GET /api/photos/{id}/thumbnail",
		"GET /api/photos/{id}/display",
		"GET /api/archive",
		"POST /api/archive/{id}/restore",
		"DELETE /api/archive/{id}",
		"PUT /api/viewer/index",
		"PUT /api/settings/{key}",
		"POST /api/reset",
		"GET /metrics",
		"GET /readyz",
	} {
		if !routes[want] {
			t.Errorf("route %q not registered", want)
		}
	}
}

func TestSetupRouterWithoutMetrics(t *testing.T) {
	config := &startup.Config{}
	r := setupRouter(handlers.New(idleBackend{}, config), config)

	if routeSet(t, r)["GET /metrics"] {
		t.Error("Expected /metrics to be absent when metrics are disabled")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 from /readyz before load, got %d", w.Code)
	}
}
