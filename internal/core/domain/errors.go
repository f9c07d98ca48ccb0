package domain

import "errors"

// Settlement error taxonomy. Adapters wrap these so callers can match with errors.Is.
var (
	// ErrUnknownAsset means the symbol has no venue address mapping.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrPriceUnavailable means the oracle returned nothing usable.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrInvalidAddress means the payee is not a valid account. Permanent.
	ErrInvalidAddress = errors.New("invalid payee address")
	// ErrPayoutFailed means the transfer was not confirmed. Retryable.
	ErrPayoutFailed = errors.New("payout failed")
	// ErrAmountOutOfRange means the amount does not fit a lamport transfer. Permanent.
	ErrAmountOutOfRange = errors.New("amount out of range")
	// ErrStoreUnavailable means the wager store could not be read or written.
	ErrStoreUnavailable = errors.New("wager store unavailable")
	// ErrLockHeld means another worker owns the lock.
	ErrLockHeld = errors.New("lock held by another owner")

	ErrInvalidStake      = errors.New("stake must be positive")
	ErrStakeTooLarge     = errors.New("stake exceeds the maximum")
	ErrInvalidEntryPrice = errors.New("entry price must be positive")
	ErrInvalidDirection  = errors.New("direction must be long or short")
)
