package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/walletpool/internal/server/responses"
)

func TestHandleHealthCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return fmt.Errorf("database is locked") }

	t.Run("healthy", func(t *testing.T) {
		h := NewMonitoringHandlers(time.Now(), map[string]HealthCheck{"store": ok}, nil)
		rec := httptest.NewRecorder()
		h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body responses.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "ok", body.Checks["store"])
	})

	t.Run("degraded", func(t *testing.T) {
		h := NewMonitoringHandlers(time.Now(), map[string]HealthCheck{"store": down, "events": ok}, nil)
		rec := httptest.NewRecorder()
		h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body responses.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "database is locked", body.Checks["store"])
		assert.Equal(t, "ok", body.Checks["events"])
	})
}

func TestMonitoringRegister_Metrics(t *testing.T) {
	mux := http.NewServeMux()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("walletpool_free_addresses 3\n"))
	})
	NewMonitoringHandlers(time.Now(), nil, metrics).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "walletpool_free_addresses")
}
