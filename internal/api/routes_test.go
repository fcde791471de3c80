package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_DegradedWithoutBackends(t *testing.T) {
	f := setupAPI(t, 0.5)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestSetupRoutes_RegistersEndpoints(t *testing.T) {
	f := setupAPI(t, 0.5)

	routes := f.router.Routes()
	paths := make(map[string]bool, len(routes))
	for _, r := range routes {
		paths[r.Method+" "+r.Path] = true
	}

	require.True(t, paths["GET /health"])
	assert.True(t, paths["GET /api/v1/conditions/current"])
	assert.True(t, paths["POST /api/v1/conditions/scenario"])
	assert.True(t, paths["GET /api/v1/forecast"])
	assert.True(t, paths["GET /api/v1/lines/:name"])
	assert.True(t, paths["GET /api/v1/lines/:name/history"])
	assert.True(t, paths["POST /api/v1/alerts/dispatch"])
	assert.True(t, paths["GET /api/v1/alerts/recent"])
}
