package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/config"
	"git.home.luguber.info/inful/walletpool/internal/pool"
	"git.home.luguber.info/inful/walletpool/internal/server/handlers"
	"git.home.luguber.info/inful/walletpool/internal/server/responses"
	"git.home.luguber.info/inful/walletpool/internal/storage"
	"git.home.luguber.info/inful/walletpool/internal/walletd"
)

// countingDaemon mints sequential addresses and reports zero balances.
type countingDaemon struct {
	n       int
	tracked []string
}

func (d *countingDaemon) CreateAddress(context.Context) (string, error) {
	d.n++
	a := fmt.Sprintf("TRTL%d", d.n)
	d.tracked = append(d.tracked, a)
	return a, nil
}

func (d *countingDaemon) GetSpendKeys(_ context.Context, a string) (address.Keys, error) {
	return address.Keys{SpendPublicKey: "pub-" + a, SpendSecretKey: "sec-" + a}, nil
}

func (d *countingDaemon) GetBalance(context.Context, string) (walletd.Balance, error) {
	return walletd.Balance{AvailableBalance: 7}, nil
}

func (d *countingDaemon) GetAddresses(context.Context) ([]string, error) {
	return append([]string{}, d.tracked...), nil
}

func (d *countingDaemon) DeleteAddress(context.Context, string) error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := pool.New(storage.NewMockStore(), &countingDaemon{},
		pool.WithClock(clock.NewTestClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
	return New(config.HTTPConfig{Addr: "127.0.0.1:0", MaxConnections: 4}, svc, Options{
		HealthChecks: map[string]handlers.HealthCheck{"store": func(context.Context) error { return nil }},
	})
}

func TestServer_AllocateReleaseFlow(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/alice/addresses", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var allocated responses.AddressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &allocated))
	assert.Equal(t, "TRTL1", allocated.Address.Address)
	assert.Empty(t, allocated.Address.Keys.SpendSecretKey)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/balances/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/bob/addresses/TRTL1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "bob does not own TRTL1")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/alice/addresses/TRTL1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/alice/addresses", nil))
	var list responses.AddressListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Zero(t, list.Count)
}

func TestServer_StartStop(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	require.Error(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"store":"ok"`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Empty(t, s.Addr())
	require.NoError(t, s.Stop(ctx))
}
