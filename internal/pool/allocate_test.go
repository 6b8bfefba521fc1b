package pool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/events"
	"git.home.luguber.info/inful/walletpool/internal/foundation/errors"
	"git.home.luguber.info/inful/walletpool/internal/storage"
	"git.home.luguber.info/inful/walletpool/internal/walletd"
)

func TestAllocate_ReusesOldestFreeRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	newer := h.seed("A2", "", t0.Add(time.Hour))
	oldest := h.seed("A1", "", t0)
	h.seed("A3", "someone", t0.Add(-time.Hour))

	now := t0.Add(24 * time.Hour)
	h.clock.SetTime(now)

	got, err := h.svc.Allocate(ctx, "ownerX")
	require.NoError(t, err)
	assert.Equal(t, oldest.ID, got.ID)
	assert.Equal(t, "ownerX", got.OwnerID)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, now.Equal(*got.UpdatedAt))
	assert.Equal(t, oldest.Keys, got.Keys)

	assert.Empty(t, h.daemon.Calls(), "reuse must not call the daemon")
	assert.Equal(t, 1, h.store.GetCalls().Claim)
	assert.Equal(t, 0, h.store.GetCalls().Save)
	assert.True(t, h.find(t, newer.ID).IsFree())
	assert.Equal(t, []events.Type{events.AddressAllocated}, h.events.Types())
}

func TestAllocate_MintsWhenPoolEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seed("A1", "taken", t0)

	got, err := h.svc.Allocate(ctx, "ownerX")
	require.NoError(t, err)
	assert.Equal(t, "TRTLminted001", got.Address)
	assert.Equal(t, "ownerX", got.OwnerID)
	assert.NotEmpty(t, got.ID)
	assert.True(t, got.IsEnabled)
	assert.Equal(t, address.Balance{}, got.Balance)
	assert.Equal(t, address.Keys{SpendPublicKey: "pub-TRTLminted001", SpendSecretKey: "sec-TRTLminted001"}, got.Keys)
	assert.True(t, t0.Equal(got.CreatedAt))

	assert.Equal(t, []string{walletd.MethodCreateAddress, walletd.MethodGetSpendKeys}, h.daemon.Calls())
	assert.Equal(t, 0, h.store.GetCalls().Claim)
	assert.Equal(t, []events.Type{events.AddressMinted, events.AddressAllocated}, h.events.Types())
}

func TestAllocate_TwoOwnersOneFreeAddress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	free := h.seed("A1", "", t0)

	first, err := h.svc.Allocate(ctx, "owner-1")
	require.NoError(t, err)
	second, err := h.svc.Allocate(ctx, "owner-2")
	require.NoError(t, err)

	assert.Equal(t, free.Address, first.Address)
	assert.NotEqual(t, first.Address, second.Address)
	assert.Equal(t, "owner-2", second.OwnerID)
	assert.Equal(t, 1, h.daemon.count(walletd.MethodCreateAddress))
}

func TestAllocate_RetriesAfterLostClaim(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	stolen := h.seed("A1", "", t0)
	next := h.seed("A2", "", t0.Add(time.Minute))

	h.store.BeforeClaim = func(id, _ string) {
		h.store.BeforeClaim = nil
		_, err := h.store.Claim(ctx, id, "thief", t0)
		require.NoError(t, err)
	}

	got, err := h.svc.Allocate(ctx, "ownerX")
	require.NoError(t, err)
	assert.Equal(t, next.ID, got.ID)
	assert.Equal(t, "thief", h.find(t, stolen.ID).OwnerID)
	assert.Empty(t, h.daemon.Calls())
}

func TestAllocate_MintsWhenClaimsKeepLosing(t *testing.T) {
	h := newHarness(t, WithMaxClaimAttempts(2))
	ctx := context.Background()
	for i := range 4 {
		h.seed(fmt.Sprintf("F%d", i), "", t0.Add(time.Duration(i)*time.Minute))
	}

	stealing := false
	h.store.BeforeClaim = func(id, _ string) {
		if stealing {
			return
		}
		stealing = true
		defer func() { stealing = false }()
		_, _ = h.store.Claim(ctx, id, "thief", t0)
	}

	got, err := h.svc.Allocate(ctx, "ownerX")
	require.NoError(t, err)
	assert.Equal(t, "TRTLminted001", got.Address)

	free, err := h.svc.GetFreeAddresses(ctx)
	require.NoError(t, err)
	assert.Len(t, free, 2, "two free records stolen, two left")
}

func TestAllocate_ConcurrentCallersNeverShareAnAddress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := range 3 {
		h.seed(fmt.Sprintf("F%d", i), "", t0.Add(time.Duration(i)*time.Minute))
	}

	const callers = 10
	results := make([]*address.Address, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := h.svc.Allocate(ctx, fmt.Sprintf("owner-%d", i))
			assert.NoError(t, err)
			results[i] = got
		}()
	}
	wg.Wait()

	seen := make(map[string]string)
	for i, r := range results {
		require.NotNil(t, r)
		owner, dup := seen[r.Address]
		assert.False(t, dup, "address %s given to %s and owner-%d", r.Address, owner, i)
		seen[r.Address] = r.OwnerID
	}
	assert.Len(t, seen, callers)
	// Callers that keep losing claims mint instead, so at least callers-3 mint.
	assert.GreaterOrEqual(t, h.daemon.count(walletd.MethodCreateAddress), callers-3)
}

func TestAllocate_RequiresOwner(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Allocate(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Equal(t, 0, h.store.GetCalls().GetAll)
}

func TestAllocate_StoreReadFailure(t *testing.T) {
	h := newHarness(t)
	h.store.FailWith(storage.MethodGetAll, fmt.Errorf("connection reset"))

	_, err := h.svc.Allocate(context.Background(), "ownerX")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryStore))
	assert.Empty(t, h.daemon.Calls())
}

func TestCreateAddressFromDaemon_EmptyOwnerJoinsFreePool(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	got, err := h.svc.CreateAddressFromDaemon(ctx, "")
	require.NoError(t, err)
	assert.True(t, got.IsFree())
	assert.Equal(t, []events.Type{events.AddressMinted}, h.events.Types())

	free, err := h.svc.GetFreeAddresses(ctx)
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, got.ID, free[0].ID)
}

func TestCreateAddressFromDaemon_DaemonFailures(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		h := newHarness(t)
		h.daemon.failWith(walletd.MethodCreateAddress, fmt.Errorf("connection refused"))

		_, err := h.svc.CreateAddressFromDaemon(context.Background(), "ownerX")
		require.Error(t, err)
		assert.True(t, errors.IsDaemon(err))
		assert.Equal(t, 0, h.store.GetCalls().Save)
		assert.Equal(t, 0, h.daemon.count(walletd.MethodDeleteAddress))
	})

	t.Run("spend keys", func(t *testing.T) {
		h := newHarness(t)
		h.daemon.failWith(walletd.MethodGetSpendKeys, errors.DaemonError("daemon call timed out").Build())

		_, err := h.svc.CreateAddressFromDaemon(context.Background(), "ownerX")
		require.Error(t, err)
		assert.True(t, errors.IsDaemon(err))
		assert.Equal(t, 0, h.store.GetCalls().Save)
		assert.Equal(t, 1, h.daemon.count(walletd.MethodDeleteAddress))
	})
}

func TestCreateAddressFromDaemon_SaveFailureCompensates(t *testing.T) {
	boom := errors.StoreError("database is locked").Build()

	t.Run("compensated", func(t *testing.T) {
		h := newHarness(t)
		h.store.FailWith(storage.MethodSave, boom)

		_, err := h.svc.CreateAddressFromDaemon(context.Background(), "ownerX")
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryStore))

		ce, ok := errors.AsClassified(err)
		require.True(t, ok)
		v, _ := ce.Context().Get("compensated")
		assert.Equal(t, true, v)

		assert.Equal(t, []string{
			walletd.MethodCreateAddress,
			walletd.MethodGetSpendKeys,
			walletd.MethodDeleteAddress,
		}, h.daemon.Calls())
		list, _ := h.daemon.GetAddresses(context.Background())
		assert.Empty(t, list)
	})

	t.Run("compensation fails", func(t *testing.T) {
		h := newHarness(t)
		h.store.FailWith(storage.MethodSave, boom)
		h.daemon.failWith(walletd.MethodDeleteAddress, fmt.Errorf("daemon gone"))

		_, err := h.svc.CreateAddressFromDaemon(context.Background(), "ownerX")
		require.Error(t, err)
		ce, ok := errors.AsClassified(err)
		require.True(t, ok)
		msg, _ := ce.Context().GetString("compensation_error")
		assert.Equal(t, "daemon gone", msg)
	})

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, WithCompensation(false))
		h.store.FailWith(storage.MethodSave, boom)

		_, err := h.svc.CreateAddressFromDaemon(context.Background(), "ownerX")
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, h.daemon.count(walletd.MethodDeleteAddress))

		report, err := h.svc.Audit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"TRTLminted001"}, report.UntrackedByStore)
	})
}
