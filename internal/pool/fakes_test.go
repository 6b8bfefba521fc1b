package pool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"

	"git.home.luguber.info/inful/walletpool/internal/address"
	"git.home.luguber.info/inful/walletpool/internal/events"
	"git.home.luguber.info/inful/walletpool/internal/storage"
	"git.home.luguber.info/inful/walletpool/internal/walletd"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeDaemon is an in-memory wallet daemon that records every call.
type fakeDaemon struct {
	mu          sync.Mutex
	minted      int
	addresses   []string
	balances    map[string]walletd.Balance
	balanceErrs map[string]error
	delays      map[string]time.Duration
	errs        map[string]error
	calls       []string
	onDelete    func(addr string)
	onBalance   func(addr string)
}

func newFakeDaemon() *fakeDaemon {
	return &fakeDaemon{
		balances:    make(map[string]walletd.Balance),
		balanceErrs: make(map[string]error),
		delays:      make(map[string]time.Duration),
		errs:        make(map[string]error),
	}
}

func (d *fakeDaemon) record(method string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, method)
	return d.errs[method]
}

func (d *fakeDaemon) failWith(method string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs[method] = err
}

func (d *fakeDaemon) track(addrs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addresses = append(d.addresses, addrs...)
}

func (d *fakeDaemon) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDaemon) count(method string) int {
	n := 0
	for _, c := range d.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

func (d *fakeDaemon) CreateAddress(context.Context) (string, error) {
	if err := d.record(walletd.MethodCreateAddress); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.minted++
	addr := fmt.Sprintf("TRTLminted%03d", d.minted)
	d.addresses = append(d.addresses, addr)
	return addr, nil
}

func (d *fakeDaemon) GetSpendKeys(_ context.Context, addr string) (address.Keys, error) {
	if err := d.record(walletd.MethodGetSpendKeys); err != nil {
		return address.Keys{}, err
	}
	return address.Keys{SpendPublicKey: "pub-" + addr, SpendSecretKey: "sec-" + addr}, nil
}

func (d *fakeDaemon) GetBalance(ctx context.Context, addr string) (walletd.Balance, error) {
	if d.onBalance != nil {
		d.onBalance(addr)
	}
	if err := d.record(walletd.MethodGetBalance); err != nil {
		return walletd.Balance{}, err
	}
	d.mu.Lock()
	delay := d.delays[addr]
	bal, err := d.balances[addr], d.balanceErrs[addr]
	d.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return walletd.Balance{}, ctx.Err()
		}
	}
	return bal, err
}

func (d *fakeDaemon) GetAddresses(context.Context) ([]string, error) {
	if err := d.record(walletd.MethodGetAddresses); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string{}, d.addresses...), nil
}

func (d *fakeDaemon) DeleteAddress(_ context.Context, addr string) error {
	if d.onDelete != nil {
		d.onDelete(addr)
	}
	if err := d.record(walletd.MethodDeleteAddress); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.addresses[:0]
	for _, a := range d.addresses {
		if a != addr {
			kept = append(kept, a)
		}
	}
	d.addresses = kept
	return nil
}

type harness struct {
	svc    *Service
	store  *storage.MockStore
	daemon *fakeDaemon
	events *events.Recorder
	clock  *clock.TestClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		store:  storage.NewMockStore(),
		daemon: newFakeDaemon(),
		events: &events.Recorder{},
		clock:  clock.NewTestClock(t0),
	}
	opts = append([]Option{WithClock(h.clock), WithPublisher(h.events)}, opts...)
	h.svc = New(h.store, h.daemon, opts...)
	return h
}

// seed stores a record directly and returns it with its id.
func (h *harness) seed(addr, owner string, createdAt time.Time) *address.Address {
	a := &address.Address{
		ID:        "id-" + addr,
		OwnerID:   owner,
		Address:   addr,
		Keys:      address.Keys{SpendPublicKey: "pub-" + addr, SpendSecretKey: "sec-" + addr},
		CreatedAt: createdAt,
		IsEnabled: true,
	}
	h.store.Seed(a)
	return a
}

func (h *harness) find(t *testing.T, id string) *address.Address {
	t.Helper()
	all, err := h.store.GetAll(context.Background(), address.Filter{ID: id}, nil, address.Sort{})
	if err != nil || len(all) != 1 {
		t.Fatalf("record %s not found: %v", id, err)
	}
	return all[0]
}
