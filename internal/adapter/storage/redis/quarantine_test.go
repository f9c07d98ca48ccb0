package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/ports"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuarantine_Lifecycle(t *testing.T) {
	_, client := newTestClient(t)
	q := NewQuarantine(client)
	ctx := context.Background()

	first := ports.QuarantineEntry{WagerID: uuid.New(), BettorAddress: "bad-addr", Reason: "invalid address", AddedAt: time.Now().Add(-time.Hour).UTC()}
	second := ports.QuarantineEntry{WagerID: uuid.New(), BettorAddress: "also-bad", Reason: "invalid address", AddedAt: time.Now().UTC()}

	require.NoError(t, q.Add(ctx, second))
	require.NoError(t, q.Add(ctx, first))

	ok, err := q.Contains(ctx, first.WagerID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.WagerID, entries[0].WagerID, "oldest first")
	assert.Equal(t, "bad-addr", entries[0].BettorAddress)

	released, err := q.Release(ctx, first.WagerID)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = q.Release(ctx, first.WagerID)
	require.NoError(t, err)
	assert.False(t, released)

	ok, err = q.Contains(ctx, first.WagerID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuarantine_EmptyList(t *testing.T) {
	_, client := newTestClient(t)
	entries, err := NewQuarantine(client).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
