package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jamarblack/Degen-Arena/config"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RPCClient is the subset of *rpc.Client the executor needs.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	GetHealth(ctx context.Context) (string, error)
}

// NewRPCClient dials the JSON-RPC endpoint.
func NewRPCClient(url string) *rpc.Client {
	return rpc.New(url)
}

// Executor implements ports.PayoutExecutor with native SOL transfers from the
// custodial pool wallet.
type Executor struct {
	client       RPCClient
	key          solana.PrivateKey
	pool         solana.PublicKey
	commitment   rpc.CommitmentType
	pollInterval time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewExecutor creates an executor signing with key. The key is copied.
func NewExecutor(client RPCClient, key solana.PrivateKey, cfg config.SolanaConfig, log zerolog.Logger) *Executor {
	k := make(solana.PrivateKey, len(key))
	copy(k, key)

	commitment := rpc.CommitmentConfirmed
	if cfg.Commitment == string(rpc.CommitmentFinalized) {
		commitment = rpc.CommitmentFinalized
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}

	return &Executor{
		client:       client,
		key:          k,
		pool:         k.PublicKey(),
		commitment:   commitment,
		pollInterval: poll,
		now:          time.Now,
		log:          log,
	}
}

// PoolAddress returns the custodial wallet's public key.
func (e *Executor) PoolAddress() string {
	return e.pool.String()
}

// Prepare builds and signs a transfer of floor(amount * 1e9) lamports from the
// pool to payee. Nothing is sent.
func (e *Executor) Prepare(ctx context.Context, payee string, amount decimal.Decimal) (*domain.SignedTransfer, error) {
	to, err := solana.PublicKeyFromBase58(payee)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrInvalidAddress, payee, err)
	}

	lamports, err := domain.ToLamports(amount)
	if err != nil {
		return nil, err
	}
	if lamports == 0 {
		return nil, fmt.Errorf("%w: amount %s rounds to zero lamports", domain.ErrPayoutFailed, amount)
	}

	bh, err := e.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("%w: latest blockhash: %v", domain.ErrPayoutFailed, err)
	}
	if bh == nil || bh.Value == nil {
		return nil, fmt.Errorf("%w: latest blockhash: empty response", domain.ErrPayoutFailed)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(lamports, e.pool, to).Build()},
		bh.Value.Blockhash,
		solana.TransactionPayer(e.pool),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: build transaction: %v", domain.ErrPayoutFailed, err)
	}
	sigs, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(e.pool) {
			return &e.key
		}
		return nil
	})
	if err != nil || len(sigs) == 0 {
		return nil, fmt.Errorf("%w: sign transaction: %v", domain.ErrPayoutFailed, err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: encode transaction: %v", domain.ErrPayoutFailed, err)
	}

	return &domain.SignedTransfer{
		Signature:            sigs[0].String(),
		Payee:                to.String(),
		Amount:               domain.LamportsToSOL(lamports),
		Lamports:             lamports,
		LastValidBlockHeight: bh.Value.LastValidBlockHeight,
		Raw:                  raw,
	}, nil
}

// Submit broadcasts the signed transfer and waits for the configured
// commitment. The caller's context bounds the whole operation. A send error
// is not final: the transaction may already be on chain from an earlier
// attempt, so its status is checked before giving up.
func (e *Executor) Submit(ctx context.Context, t domain.SignedTransfer) (*domain.PayoutReceipt, error) {
	sig, err := solana.SignatureFromBase58(t.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: bad signature %q: %v", domain.ErrPayoutFailed, t.Signature, err)
	}

	if _, err := e.client.SendRawTransactionWithOpts(ctx, t.Raw, rpc.TransactionOpts{PreflightCommitment: e.commitment}); err != nil {
		st, lookupErr := e.lookup(ctx, sig)
		if lookupErr != nil || st == nil {
			return nil, fmt.Errorf("%w: submit: %v", domain.ErrPayoutFailed, err)
		}
		e.log.Info().Err(err).Str("signature", t.Signature).Msg("transfer already on chain, send error ignored")
	}

	e.log.Info().
		Str("signature", t.Signature).
		Str("payee", t.Payee).
		Uint64("lamports", t.Lamports).
		Msg("payout submitted")

	if err := e.awaitConfirmation(ctx, sig); err != nil {
		return nil, err
	}

	receipt := t.Receipt(e.now().UTC())
	return &receipt, nil
}

// Status looks up a signed transfer. A transfer the chain has not seen is
// dropped once its blockhash has expired, and pending before that.
func (e *Executor) Status(ctx context.Context, t domain.SignedTransfer) (domain.TransferState, error) {
	sig, err := solana.SignatureFromBase58(t.Signature)
	if err != nil {
		return "", fmt.Errorf("bad signature %q: %w", t.Signature, err)
	}

	// Height first: once it has passed the last valid block, any landing is
	// already finalized and visible to the lookup below.
	height, err := e.client.GetBlockHeight(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("block height: %w", err)
	}

	st, err := e.lookup(ctx, sig)
	if err != nil {
		return "", fmt.Errorf("signature status: %w", err)
	}
	switch {
	case st == nil && height > t.LastValidBlockHeight:
		return domain.TransferDropped, nil
	case st == nil:
		return domain.TransferPending, nil
	case st.Err != nil:
		return domain.TransferDropped, nil
	case e.reached(st.ConfirmationStatus):
		return domain.TransferConfirmed, nil
	default:
		return domain.TransferPending, nil
	}
}

// lookup returns the signature status, or nil when the chain has no record.
func (e *Executor) lookup(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	res, err := e.client.GetSignatureStatuses(ctx, true, sig)
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

func (e *Executor) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s not confirmed: %v", domain.ErrPayoutFailed, sig, ctx.Err())
		case <-ticker.C:
		}

		st, err := e.lookup(ctx, sig)
		if err != nil {
			e.log.Warn().Err(err).Str("signature", sig.String()).Msg("signature status poll failed")
			continue
		}
		if st == nil {
			continue
		}
		if st.Err != nil {
			return fmt.Errorf("%w: %s failed on chain: %v", domain.ErrPayoutFailed, sig, st.Err)
		}
		if e.reached(st.ConfirmationStatus) {
			return nil
		}
	}
}

func (e *Executor) reached(status rpc.ConfirmationStatusType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return e.commitment == rpc.CommitmentConfirmed
	default:
		return false
	}
}

// PoolBalance returns the custodial wallet balance in SOL.
func (e *Executor) PoolBalance(ctx context.Context) (decimal.Decimal, error) {
	res, err := e.client.GetBalance(ctx, e.pool, rpc.CommitmentConfirmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get pool balance: %w", err)
	}
	if res == nil {
		return decimal.Zero, errors.New("get pool balance: empty response")
	}
	return domain.LamportsToSOL(res.Value), nil
}

// HealthCheck implements ports.HealthChecker for the Solana RPC endpoint.
type HealthCheck struct {
	client RPCClient
}

// NewHealthCheck creates an RPC health checker.
func NewHealthCheck(client RPCClient) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping calls getHealth.
func (h *HealthCheck) Ping(ctx context.Context) error {
	status, err := h.client.GetHealth(ctx)
	if err != nil {
		return err
	}
	if status != rpc.HealthOk {
		return fmt.Errorf("rpc unhealthy: %s", status)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "solana-rpc"
}
