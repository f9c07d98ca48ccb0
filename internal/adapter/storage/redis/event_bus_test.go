package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	s, client := newTestClient(t)
	bus := NewEventBus(client, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	// Undecodable payloads are dropped without closing the stream.
	s.Publish(WagerChannel, "garbage")

	w := &domain.Wager{
		ID:            uuid.New(),
		BettorAddress: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		AssetSymbol:   "BONK",
		EntryPrice:    decimal.RequireFromString("0.00002"),
		Stake:         decimal.RequireFromString("0.5"),
		Direction:     domain.DirectionLong,
		Status:        domain.WagerStatusOpen,
	}
	require.NoError(t, bus.Publish(ctx, domain.NewWagerEvent(domain.EventWagerPlaced, w, time.Now())))

	select {
	case ev := <-events:
		assert.Equal(t, domain.EventWagerPlaced, ev.Type)
		assert.Equal(t, w.ID, ev.Wager.ID)
		assert.True(t, ev.Wager.Stake.Equal(w.Stake))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should close after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close")
	}
}

func TestEventBus_SubscribeFailsWhenDown(t *testing.T) {
	s, client := newTestClient(t)
	s.Close()

	_, err := NewEventBus(client, zerolog.Nop()).Subscribe(context.Background())
	assert.Error(t, err)
}
