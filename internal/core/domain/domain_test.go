package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		entry     string
		observed  string
		want      bool
	}{
		{"long rises", DirectionLong, "100", "110", true},
		{"long falls", DirectionLong, "100", "90", false},
		{"long flat", DirectionLong, "100", "100", false},
		{"short falls", DirectionShort, "100", "90", true},
		{"short rises", DirectionShort, "100", "110", false},
		{"short flat", DirectionShort, "100", "100", false},
		{"long tiny move", DirectionLong, "0.00002131", "0.00002132", true},
		{"unknown direction", Direction("sideways"), "100", "110", false},
	}

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Wager{ID: uuid.New(), Direction: tt.direction, EntryPrice: dec(tt.entry)}
			d := Decide(w, dec(tt.observed), at)
			assert.Equal(t, tt.want, d.Won)
			assert.Equal(t, w.ID, d.WagerID)
			assert.True(t, d.ObservedPrice.Equal(dec(tt.observed)))
			assert.Equal(t, at, d.DecidedAt)
		})
	}
}

func TestWager_IsExpired(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := &Wager{CreatedAt: created}
	window := 5 * time.Minute

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just placed", created, false},
		{"one second short", created.Add(4*time.Minute + 59*time.Second), false},
		{"exactly at window", created.Add(window), true},
		{"long after", created.Add(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.IsExpired(tt.now, window))
		})
	}
}

func TestWager_PayoutAmount(t *testing.T) {
	w := &Wager{Stake: dec("1.0")}
	assert.True(t, w.PayoutAmount(dec("1.9")).Equal(dec("1.9")))

	w = &Wager{Stake: dec("0.25")}
	assert.True(t, w.PayoutAmount(dec("1.9")).Equal(dec("0.475")))
}

func TestToLamports(t *testing.T) {
	tests := []struct {
		sol  string
		want uint64
	}{
		{"1.9", 1_900_000_000},
		{"0.1234567899", 123_456_789},
		{"0.0000000009", 0},
		{"0", 0},
		{"-1", 0},
		{"42", 42_000_000_000},
		{"9223372036.854775807", 9_223_372_036_854_775_807},
	}

	for _, tt := range tests {
		t.Run(tt.sol, func(t *testing.T) {
			got, err := ToLamports(dec(tt.sol))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToLamports_OutOfRange(t *testing.T) {
	for _, sol := range []string{"9223372036.854775808", "18446744073.709551616", "1e30"} {
		got, err := ToLamports(dec(sol))
		assert.ErrorIs(t, err, ErrAmountOutOfRange, sol)
		assert.Zero(t, got, sol)
	}
}

func TestSignedTransfer_Receipt(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := SignedTransfer{Signature: "5h3kQx", Amount: dec("0.95"), Lamports: 950_000_000}

	r := tr.Receipt(at)
	assert.Equal(t, "5h3kQx", r.TransactionRef)
	assert.True(t, r.Amount.Equal(dec("0.95")))
	assert.Equal(t, uint64(950_000_000), r.Lamports)
	assert.Equal(t, at, r.ConfirmedAt)
}

func TestLamportsToSOL(t *testing.T) {
	assert.True(t, LamportsToSOL(1_900_000_000).Equal(dec("1.9")))
	assert.True(t, LamportsToSOL(1).Equal(dec("0.000000001")))
}

func TestWagerStatus_IsTerminal(t *testing.T) {
	assert.False(t, WagerStatusOpen.IsTerminal())
	assert.True(t, WagerStatusWon.IsTerminal())
	assert.True(t, WagerStatusLost.IsTerminal())
}

func TestWager_Validate(t *testing.T) {
	valid := func() *Wager {
		return &Wager{
			BettorAddress: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
			AssetSymbol:   "BONK",
			EntryPrice:    dec("0.00002"),
			Stake:         dec("0.5"),
			Direction:     DirectionShort,
		}
	}

	tests := []struct {
		name   string
		mutate func(w *Wager)
		want   error
	}{
		{"valid", func(w *Wager) {}, nil},
		{"no bettor", func(w *Wager) { w.BettorAddress = "" }, ErrInvalidAddress},
		{"no asset", func(w *Wager) { w.AssetSymbol = "" }, ErrUnknownAsset},
		{"zero stake", func(w *Wager) { w.Stake = decimal.Zero }, ErrInvalidStake},
		{"negative stake", func(w *Wager) { w.Stake = dec("-1") }, ErrInvalidStake},
		{"stake at cap", func(w *Wager) { w.Stake = MaxStakeSOL }, nil},
		{"stake above cap", func(w *Wager) { w.Stake = MaxStakeSOL.Add(dec("0.000000001")) }, ErrStakeTooLarge},
		{"zero entry", func(w *Wager) { w.EntryPrice = decimal.Zero }, ErrInvalidEntryPrice},
		{"bad direction", func(w *Wager) { w.Direction = "up" }, ErrInvalidDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := valid()
			tt.mutate(w)
			err := w.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalizeSymbol(t *testing.T) {
	tests := map[string]string{
		"bonk":      "BONK",
		"$wif":      "WIF",
		" $Popcat ": "POPCAT",
		"JUP":       "JUP",
		"":          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSymbol(in), "input %q", in)
	}
}

func TestAssetRegistry(t *testing.T) {
	r := NewAssetRegistry(nil)

	addr, err := r.Resolve("$bonk")
	require.NoError(t, err)
	assert.Equal(t, "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", addr)

	sym, ok := r.SymbolFor(addr)
	assert.True(t, ok)
	assert.Equal(t, "BONK", sym)

	_, err = r.Resolve("DOGE")
	assert.True(t, errors.Is(err, ErrUnknownAsset))

	assert.Len(t, r.Symbols(), 20)
	assert.Len(t, r.Addresses(), 20)
	assert.Equal(t, "ACT", r.Symbols()[0])
}

func TestAssetRegistry_Overrides(t *testing.T) {
	r := NewAssetRegistry(map[string]string{
		"pepe": "PepeMint1111111111111111111111111111111111",
		"WIF":  "",
	})

	addr, err := r.Resolve("PEPE")
	require.NoError(t, err)
	assert.Equal(t, "PepeMint1111111111111111111111111111111111", addr)

	_, err = r.Resolve("wif")
	assert.ErrorIs(t, err, ErrUnknownAsset)
	assert.Len(t, r.Symbols(), 20)
}

func TestNewWagerEvent(t *testing.T) {
	w := &Wager{ID: uuid.New(), Status: WagerStatusOpen}
	at := time.Now()
	ev := NewWagerEvent(EventWagerPlaced, w, at)

	w.Status = WagerStatusWon
	assert.Equal(t, WagerStatusOpen, ev.Wager.Status, "event must snapshot the wager")
	assert.Equal(t, EventWagerPlaced, ev.Type)
	assert.Equal(t, at, ev.OccurredAt)
}
