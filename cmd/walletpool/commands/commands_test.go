package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/walletpool/internal/eventstore"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/server/responses"
)

// walletdStub is a stateful JSON-RPC wallet daemon.
type walletdStub struct {
	mu    sync.Mutex
	next  int
	addrs map[string]bool
}

func (s *walletdStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     uint64 `json:"id"`
		Method string `json:"method"`
		Params struct {
			Address string `json:"address"`
		} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	var result any
	switch req.Method {
	case "createAddress":
		s.next++
		a := fmt.Sprintf("WLT%04d", s.next)
		s.addrs[a] = true
		result = map[string]string{"address": a}
	case "getSpendKeys":
		result = map[string]string{"spendPublicKey": "pub-" + req.Params.Address, "spendSecretKey": "sec-" + req.Params.Address}
	case "getBalance":
		result = map[string]uint64{"availableBalance": 100, "lockedAmount": 5}
	case "getAddresses":
		list := make([]string, 0, len(s.addrs))
		for a := range s.addrs {
			list = append(list, a)
		}
		sort.Strings(list)
		result = map[string][]string{"addresses": list}
	case "deleteAddress":
		delete(s.addrs, req.Params.Address)
		result = map[string]any{}
	}
	s.mu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

type cliEnv struct {
	t          *testing.T
	configPath string
	stub       *walletdStub
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	stub := &walletdStub{addrs: map[string]bool{}}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "walletpool.yaml")
	raw := fmt.Sprintf("daemon:\n  url: %s\n  retry:\n    max_retries: 0\nstore:\n  path: %s\nevents:\n  journal: true\n",
		srv.URL, filepath.Join(dir, "pool.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(raw), 0o600))
	return &cliEnv{t: t, configPath: cfgPath, stub: stub}
}

func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("walletpool"),
		kong.Vars{"version": "test"},
		kong.Exit(func(int) { e.t.Fatalf("unexpected exit for %v", args) }))
	require.NoError(e.t, err)

	kctx, err := parser.Parse(append([]string{"--config", e.configPath}, args...))
	require.NoError(e.t, err)

	var out bytes.Buffer
	err = kctx.Run(&Global{Out: &out}, &cli)
	return out.String(), err
}

func TestCLI_MintAllocateListRelease(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("mint")
	require.NoError(t, err)
	var minted responses.AddressResponse
	require.NoError(t, json.Unmarshal([]byte(out), &minted))
	assert.Equal(t, "WLT0001", minted.Address.Address)
	assert.Empty(t, minted.Address.OwnerID)
	assert.Empty(t, minted.Address.Keys.SpendSecretKey, "secret keys are never printed")

	out, err = env.run("allocate", "--owner", "alice")
	require.NoError(t, err)
	var allocated responses.AddressResponse
	require.NoError(t, json.Unmarshal([]byte(out), &allocated))
	assert.Equal(t, "WLT0001", allocated.Address.Address, "free address is reused before minting")
	assert.Equal(t, "alice", allocated.Address.OwnerID)

	out, err = env.run("list", "--owner", "alice")
	require.NoError(t, err)
	var list responses.AddressListResponse
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, 1, list.Count)

	_, err = env.run("release", "WLT0001", "--owner", "alice")
	require.NoError(t, err)
	env.stub.mu.Lock()
	assert.Empty(t, env.stub.addrs)
	env.stub.mu.Unlock()

	out, err = env.run("list")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Zero(t, list.Count)

	out, err = env.run("history", "WLT0001")
	require.NoError(t, err)
	var tl eventstore.Timeline
	require.NoError(t, json.Unmarshal([]byte(out), &tl))
	assert.NotNil(t, tl.MintedAt)
	require.Len(t, tl.Allocations, 1)
	assert.Equal(t, "alice", tl.Allocations[0].OwnerID)
	assert.NotNil(t, tl.ReleasedAt)
	assert.False(t, tl.ReleaseIncomplete)

	_, err = env.run("history", "WLT0404")
	assert.True(t, errors.IsNotFound(err))
}

func TestCLI_ReleaseUnknownAddressExitsNotFound(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("release", "WLT9999")
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, "The address WLT9999 not found", ce.Message())
	assert.Equal(t, 3, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestCLI_PrefillSyncAudit(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("prefill", "--target", "2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"minted":2,"target":2}`, out)

	out, err = env.run("sync", "--strict")
	require.NoError(t, err)
	var synced responses.ReconcileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &synced))
	require.Len(t, synced.Updated, 2)
	assert.Equal(t, uint64(100), synced.Updated[0].Balance.Available)
	assert.Empty(t, synced.Failures)

	env.stub.mu.Lock()
	env.stub.addrs["WLT-orphan"] = true
	env.stub.mu.Unlock()

	out, err = env.run("audit")
	require.NoError(t, err)
	var audit responses.AuditResponse
	require.NoError(t, json.Unmarshal([]byte(out), &audit))
	assert.False(t, audit.Consistent)
	assert.Equal(t, []string{"WLT-orphan"}, audit.UntrackedByStore)
}

func TestCLI_Init(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(t.TempDir(), "fresh.yaml")
	env.configPath = path

	out, err := env.run("init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")
	assert.FileExists(t, path)

	_, err = env.run("init")
	require.Error(t, err, "existing file without --force")

	_, err = env.run("init", "--force")
	require.NoError(t, err)
}

func TestCLI_AllocateRequiresOwner(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"allocate"})
	require.Error(t, err)
}
