package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/walletpool/internal/config"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "walletpool.address.minted", Subject("walletpool", AddressMinted))
	assert.Equal(t, "audit.drift", Subject("", AuditDrift))
}

func TestNewEvent(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	e := New(BalanceReconciled, at)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, BalanceReconciled, e.Type)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "available")
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, New(AddressMinted, time.Now())))

	boom := errors.New("broker down")
	r.FailWith(boom)
	require.ErrorIs(t, r.Publish(ctx, New(AddressAllocated, time.Now())), boom)

	assert.Equal(t, []Type{AddressMinted, AddressAllocated}, r.Types())
	assert.Len(t, r.Events(), 2)
}

func TestNewNATSPublisher_Disabled(t *testing.T) {
	_, err := NewNATSPublisher(config.EventsConfig{Enabled: false})
	require.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), Event{}))
}

func TestFanout(t *testing.T) {
	first, second := &Recorder{}, &Recorder{}
	boom := errors.New("broker down")
	first.FailWith(boom)

	err := Fanout{first, second}.Publish(context.Background(), New(AddressReleased, time.Now()))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []Type{AddressReleased}, first.Types())
	assert.Equal(t, []Type{AddressReleased}, second.Types(), "delivery continues past a failing publisher")

	require.NoError(t, Fanout{}.Publish(context.Background(), New(AuditDrift, time.Now())))
}
