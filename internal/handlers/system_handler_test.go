package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSystem struct {
	pingErr error
	entries int
}

func (m *mockSystem) Ping(context.Context) error { return m.pingErr }

func (m *mockSystem) ClearCache() int {
	n := m.entries
	m.entries = 0
	return n
}

func (m *mockSystem) CacheSize() int { return m.entries }

func serveSystem(t *testing.T, svc SystemService, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	r := mux.NewRouter()
	NewSystemHandler(svc, BuildInfo{Version: "1.2.3", Commit: "abc", Date: "today"}).RegisterRoutes(r, zap.NewNop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantCode   int
		wantStatus string
		wantStore  string
	}{
		{name: "healthy", wantCode: http.StatusOK, wantStatus: "success", wantStore: "up"},
		{name: "storage down", pingErr: errors.New("dial tcp: refused"), wantCode: http.StatusServiceUnavailable, wantStatus: "error", wantStore: "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serveSystem(t, &mockSystem{pingErr: tt.pingErr, entries: 4}, http.MethodGet, "/health")
			require.Equal(t, tt.wantCode, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))
			require.Equal(t, tt.wantStatus, body["status"])

			data := body["data"].(map[string]interface{})
			require.Equal(t, tt.wantStore, data["storage"])
		})
	}
}

func TestSystemHandler_Index(t *testing.T) {
	w, body := serveSystem(t, &mockSystem{}, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]interface{})
	build := data["build"].(map[string]interface{})
	require.Equal(t, "1.2.3", build["version"])

	endpoints := data["endpoints"].(map[string]interface{})
	require.Equal(t, "GET /organizations/{id}", endpoints["organization"])
	require.Contains(t, endpoints, "clear_cache")
}

func TestSystemHandler_ClearCache(t *testing.T) {
	svc := &mockSystem{entries: 3}

	w, body := serveSystem(t, svc, http.MethodDelete, "/cache")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Cache cleared", body["message"])
	require.EqualValues(t, 3, body["data"].(map[string]interface{})["cleared"])
	require.Zero(t, svc.CacheSize())
}

func TestSystemHandler_WrongMethod(t *testing.T) {
	r := mux.NewRouter()
	NewSystemHandler(&mockSystem{}, BuildInfo{}).RegisterRoutes(r, zap.NewNop())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
