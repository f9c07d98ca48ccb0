package ports

import (
	"context"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Crypto & Auth Ports ---

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
	Role    string
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, accessKey string, nonce string, ttl time.Duration) (bool, error)
}

// --- Market Data Ports ---

// PriceOracle resolves an asset symbol to its current USD price.
// Failures wrap domain.ErrUnknownAsset or domain.ErrPriceUnavailable.
type PriceOracle interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// MarketLister returns the tradable asset pool with live quotes.
type MarketLister interface {
	ListMarket(ctx context.Context) ([]domain.MarketToken, error)
}

// PriceCache is a short-lived quote cache keyed by normalized symbol.
type PriceCache interface {
	Get(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration) error
}

// MarketCache holds the last market listing so page loads do not fan out to the oracle.
type MarketCache interface {
	Get(ctx context.Context) ([]domain.MarketToken, bool, error)
	Set(ctx context.Context, tokens []domain.MarketToken, ttl time.Duration) error
}

// --- Payout Ports ---

// PayoutExecutor transfers winnings from the custodial pool. A transfer is
// signed before it is sent so its signature can be journaled first.
type PayoutExecutor interface {
	// Prepare signs a transfer of floor(amount) lamports to payee. Failures wrap
	// domain.ErrInvalidAddress or domain.ErrAmountOutOfRange (permanent) or
	// domain.ErrPayoutFailed (retryable).
	Prepare(ctx context.Context, payee string, amount decimal.Decimal) (*domain.SignedTransfer, error)
	// Submit broadcasts t and waits for confirmation. Resubmitting the same
	// transfer is safe. Failures wrap domain.ErrPayoutFailed.
	Submit(ctx context.Context, t domain.SignedTransfer) (*domain.PayoutReceipt, error)
	// Status reports whether t landed, may still land, or never will.
	Status(ctx context.Context, t domain.SignedTransfer) (domain.TransferState, error)
	PoolBalance(ctx context.Context) (decimal.Decimal, error)
}

// ReceiptJournal holds signed payouts whose won status write has not landed yet.
type ReceiptJournal interface {
	Record(ctx context.Context, entry domain.JournaledPayout) error
	// Lookup returns nil, nil when nothing is journaled for the wager.
	Lookup(ctx context.Context, wagerID uuid.UUID) (*domain.JournaledPayout, error)
	Clear(ctx context.Context, wagerID uuid.UUID) error
}

// QuarantineEntry describes a wager excluded from settlement.
type QuarantineEntry struct {
	WagerID       uuid.UUID `json:"wager_id"`
	BettorAddress string    `json:"bettor_address"`
	Reason        string    `json:"reason"`
	AddedAt       time.Time `json:"added_at"`
}

// Quarantine tracks wagers with permanently failing payouts.
type Quarantine interface {
	Add(ctx context.Context, entry QuarantineEntry) error
	Contains(ctx context.Context, wagerID uuid.UUID) (bool, error)
	List(ctx context.Context) ([]QuarantineEntry, error)
	// Release removes the entry and reports whether it existed.
	Release(ctx context.Context, wagerID uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// LockManager provides distributed locking.
// Acquire returns domain.ErrLockHeld when another owner holds the key.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// --- Events & Notifications ---

// EventPublisher emits wager lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.WagerEvent) error
}

// EventBus is an EventPublisher whose events can be consumed in-process.
type EventBus interface {
	EventPublisher
	Subscribe(ctx context.Context) (<-chan domain.WagerEvent, error)
}

// Notifier escalates operational problems to a human.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// SettlementMetrics records settlement observations.
type SettlementMetrics interface {
	ObservePass(report PassReport, elapsed time.Duration)
	ObserveOutcome(outcome string)
	ObservePayout(result string, amount decimal.Decimal)
	ObserveSkip(reason string)
}

// --- Service Ports (Business Logic) ---

// PassReport summarizes one settlement pass.
type PassReport struct {
	Scanned     int `json:"scanned"`
	Pending     int `json:"pending"`
	Won         int `json:"won"`
	Lost        int `json:"lost"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	Quarantined int `json:"quarantined"`
}

// SettlementService resolves expired wagers.
type SettlementService interface {
	// RunPass performs one sweep over all open wagers.
	RunPass(ctx context.Context) (*PassReport, error)
	// Run drives passes on the configured interval until ctx is done.
	Run(ctx context.Context) error
	// Trigger requests an immediate pass. Requests made while one is pending coalesce.
	Trigger() bool
}

// PlaceWagerRequest holds validated input from the wager-creation collaborator.
type PlaceWagerRequest struct {
	BettorAddress string
	AssetSymbol   string
	EntryPrice    decimal.Decimal
	Stake         decimal.Decimal
	Direction     domain.Direction
	ClientTxRef   string
	ClientIP      string
}

// WagerService is the ingestion and read side used by the UI collaborator.
type WagerService interface {
	// Place stores a new wager. created is false when the client reference was seen before.
	Place(ctx context.Context, req PlaceWagerRequest) (w *domain.Wager, created bool, err error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Wager, error)
	ListByBettor(ctx context.Context, bettor string, limit int) ([]domain.Wager, error)
	ListHighStakes(ctx context.Context, minStake decimal.Decimal, limit int) ([]domain.Wager, error)
	ListWinners(ctx context.Context, limit int) ([]domain.Wager, error)
	Stats(ctx context.Context) (*domain.WagerStats, error)
}

// AuthService authenticates the operator.
type AuthService interface {
	Login(ctx context.Context, username, password, clientIP string) (string, time.Time, error) // token, expiry, error
}

// AuditService records audited actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
