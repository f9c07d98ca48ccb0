package chain

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Jamarblack/Degen-Arena/config"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRPC struct {
	mu sync.Mutex

	blockhashErr   error
	sendErr        error
	statuses       []*rpc.SignatureStatusesResult // returned in order; last one repeats
	statusErr      error
	statusCalls    int
	balance        uint64
	health         string
	blockHeight    uint64
	lastValidBlock uint64

	sent [][]byte
}

func (f *fakeRPC) GetLatestBlockhash(_ context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if f.blockhashErr != nil {
		return nil, f.blockhashErr
	}
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{
		Blockhash:            solana.Hash{1, 2, 3},
		LastValidBlockHeight: f.lastValidBlock,
	}}, nil
}

func (f *fakeRPC) SendRawTransactionWithOpts(_ context.Context, raw []byte, _ rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, raw)
	tx, err := decodeTx(raw)
	if err != nil {
		return solana.Signature{}, err
	}
	return tx.Signatures[0], nil
}

func (f *fakeRPC) GetSignatureStatuses(_ context.Context, _ bool, _ ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if len(f.statuses) == 0 {
		return nil, rpc.ErrNotFound
	}
	i := min(f.statusCalls, len(f.statuses)-1)
	f.statusCalls++
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{f.statuses[i]}}, nil
}

func (f *fakeRPC) GetBalance(_ context.Context, _ solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	return &rpc.GetBalanceResult{Value: f.balance}, nil
}

func (f *fakeRPC) GetBlockHeight(_ context.Context, _ rpc.CommitmentType) (uint64, error) {
	return f.blockHeight, nil
}

func (f *fakeRPC) GetHealth(_ context.Context) (string, error) {
	return f.health, nil
}

func decodeTx(raw []byte) (*solana.Transaction, error) {
	return solana.TransactionFromBase64(base64.StdEncoding.EncodeToString(raw))
}

func newTestExecutor(t *testing.T, client *fakeRPC, commitment string) (*Executor, solana.PrivateKey) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	e := NewExecutor(client, key, config.SolanaConfig{Commitment: commitment, PollInterval: 5 * time.Millisecond}, zerolog.Nop())
	e.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return e, key
}

func randomPayee(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return k.PublicKey()
}

// pay prepares and submits one transfer, as the settlement engine does.
func pay(ctx context.Context, e *Executor, payee string, amount decimal.Decimal) (*domain.PayoutReceipt, error) {
	t, err := e.Prepare(ctx, payee, amount)
	if err != nil {
		return nil, err
	}
	return e.Submit(ctx, *t)
}

func TestPrepare_SignsFlooredTransfer(t *testing.T) {
	client := &fakeRPC{lastValidBlock: 1_000}
	e, key := newTestExecutor(t, client, "confirmed")
	payee := randomPayee(t)

	tr, err := e.Prepare(context.Background(), payee.String(), decimal.RequireFromString("0.1234567899"))
	require.NoError(t, err)
	assert.Empty(t, client.sent, "prepare never broadcasts")

	assert.Equal(t, uint64(123456789), tr.Lamports)
	assert.Equal(t, "0.123456789", tr.Amount.String())
	assert.Equal(t, payee.String(), tr.Payee)
	assert.Equal(t, uint64(1_000), tr.LastValidBlockHeight)

	tx, err := decodeTx(tr.Raw)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0].String(), tr.Signature)
	require.NoError(t, tx.VerifySignatures())
	assert.True(t, tx.Message.AccountKeys[0].Equals(key.PublicKey()), "pool pays fees")
	assert.Contains(t, tx.Message.AccountKeys, payee)

	require.Len(t, tx.Message.Instructions, 1)
	data := tx.Message.Instructions[0].Data
	require.Len(t, data, 12)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[:4]), "system transfer")
	assert.Equal(t, uint64(123456789), binary.LittleEndian.Uint64(data[4:]))
}

func TestSubmit_ConfirmsAndReturnsReceipt(t *testing.T) {
	client := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{
		nil,
		{ConfirmationStatus: rpc.ConfirmationStatusProcessed},
		{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
	}}
	e, _ := newTestExecutor(t, client, "confirmed")

	tr, err := e.Prepare(context.Background(), randomPayee(t).String(), decimal.RequireFromString("1.9"))
	require.NoError(t, err)

	receipt, err := e.Submit(context.Background(), *tr)
	require.NoError(t, err)
	assert.Equal(t, tr.Signature, receipt.TransactionRef)
	assert.Equal(t, uint64(1_900_000_000), receipt.Lamports)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), receipt.ConfirmedAt)

	require.Len(t, client.sent, 1)
	assert.Equal(t, tr.Raw, client.sent[0], "the journaled bytes are what goes on the wire")
}

func TestSubmit_ResendUsesSameTransaction(t *testing.T) {
	client := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}}}
	e, _ := newTestExecutor(t, client, "confirmed")

	tr, err := e.Prepare(context.Background(), randomPayee(t).String(), decimal.NewFromInt(1))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := e.Submit(context.Background(), *tr)
		require.NoError(t, err)
	}
	require.Len(t, client.sent, 2)
	assert.Equal(t, client.sent[0], client.sent[1])
}

func TestSubmit_SendErrorForLandedTransferStillConfirms(t *testing.T) {
	client := &fakeRPC{
		sendErr:  errors.New("This transaction has already been processed"),
		statuses: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusFinalized}},
	}
	e, _ := newTestExecutor(t, client, "confirmed")

	tr, err := e.Prepare(context.Background(), randomPayee(t).String(), decimal.NewFromInt(1))
	require.NoError(t, err)

	receipt, err := e.Submit(context.Background(), *tr)
	require.NoError(t, err)
	assert.Equal(t, tr.Signature, receipt.TransactionRef)
}

func TestPayout_FinalizedCommitmentWaitsForFinalized(t *testing.T) {
	client := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{
		{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		{ConfirmationStatus: rpc.ConfirmationStatusFinalized},
	}}
	e, _ := newTestExecutor(t, client, "finalized")

	_, err := pay(context.Background(), e, randomPayee(t).String(), decimal.RequireFromString("1.9"))
	require.NoError(t, err)
	assert.Equal(t, 3, client.statusCalls)
}

func TestPrepare_InvalidAddress(t *testing.T) {
	client := &fakeRPC{}
	e, _ := newTestExecutor(t, client, "confirmed")

	for _, payee := range []string{"", "not-base58-0OIl", "3yZe7d"} {
		_, err := e.Prepare(context.Background(), payee, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, domain.ErrInvalidAddress, payee)
	}
	assert.Empty(t, client.sent)
}

func TestPrepare_AmountChecks(t *testing.T) {
	e, _ := newTestExecutor(t, &fakeRPC{}, "confirmed")

	_, err := e.Prepare(context.Background(), randomPayee(t).String(), decimal.RequireFromString("0.0000000009"))
	assert.ErrorIs(t, err, domain.ErrPayoutFailed)

	_, err = e.Prepare(context.Background(), randomPayee(t).String(), decimal.RequireFromString("1e12"))
	assert.ErrorIs(t, err, domain.ErrAmountOutOfRange)
}

func TestPayout_Failures(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeRPC
	}{
		{"blockhash", &fakeRPC{blockhashErr: errors.New("node behind")}},
		{"submit", &fakeRPC{sendErr: errors.New("insufficient funds for fee")}},
		{"on chain error", &fakeRPC{statuses: []*rpc.SignatureStatusesResult{{Err: map[string]any{"InstructionError": []any{0, "Custom"}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestExecutor(t, tt.client, "confirmed")
			_, err := pay(context.Background(), e, randomPayee(t).String(), decimal.NewFromInt(1))
			assert.ErrorIs(t, err, domain.ErrPayoutFailed)
		})
	}
}

func TestSubmit_ConfirmationTimeout(t *testing.T) {
	client := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusProcessed}}}
	e, _ := newTestExecutor(t, client, "confirmed")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := pay(ctx, e, randomPayee(t).String(), decimal.NewFromInt(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPayoutFailed)
	assert.Contains(t, err.Error(), "not confirmed")
}

func TestStatus(t *testing.T) {
	onChainErr := map[string]any{"InstructionError": []any{0, "Custom"}}
	tests := []struct {
		name   string
		client *fakeRPC
		want   domain.TransferState
	}{
		{"confirmed", &fakeRPC{statuses: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}}}, domain.TransferConfirmed},
		{"processed only", &fakeRPC{statuses: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusProcessed}}}, domain.TransferPending},
		{"failed on chain", &fakeRPC{statuses: []*rpc.SignatureStatusesResult{{Err: onChainErr}}}, domain.TransferDropped},
		{"unseen, blockhash live", &fakeRPC{lastValidBlock: 500, blockHeight: 500}, domain.TransferPending},
		{"unseen, blockhash expired", &fakeRPC{lastValidBlock: 500, blockHeight: 501}, domain.TransferDropped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestExecutor(t, tt.client, "confirmed")
			tr, err := e.Prepare(context.Background(), randomPayee(t).String(), decimal.NewFromInt(1))
			require.NoError(t, err)

			got, err := e.Status(context.Background(), *tr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, tt.client.sent)
		})
	}
}

func TestStatus_LookupError(t *testing.T) {
	client := &fakeRPC{}
	e, _ := newTestExecutor(t, client, "confirmed")
	tr, err := e.Prepare(context.Background(), randomPayee(t).String(), decimal.NewFromInt(1))
	require.NoError(t, err)

	client.statusErr = errors.New("429 too many requests")
	_, err = e.Status(context.Background(), *tr)
	assert.Error(t, err)
}

func TestPoolBalance(t *testing.T) {
	e, _ := newTestExecutor(t, &fakeRPC{balance: 2_500_000_000}, "confirmed")
	bal, err := e.PoolBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.5", bal.String())
}

func TestHealthCheck(t *testing.T) {
	hc := NewHealthCheck(&fakeRPC{health: "ok"})
	assert.Equal(t, "solana-rpc", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))

	assert.Error(t, NewHealthCheck(&fakeRPC{health: "behind"}).Ping(context.Background()))
}
