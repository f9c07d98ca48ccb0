package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionWagerPlaced         AuditAction = "WAGER_PLACED"
	AuditActionWagerWon            AuditAction = "WAGER_WON"
	AuditActionWagerLost           AuditAction = "WAGER_LOST"
	AuditActionPayoutFailed        AuditAction = "PAYOUT_FAILED"
	AuditActionPayoutRejected      AuditAction = "PAYOUT_REJECTED"
	AuditActionOperatorLogin       AuditAction = "OPERATOR_LOGIN"
	AuditActionLoginFailed         AuditAction = "OPERATOR_LOGIN_FAILED"
	AuditActionSettlementTriggered AuditAction = "SETTLEMENT_TRIGGERED"
	AuditActionQuarantineReleased  AuditAction = "QUARANTINE_RELEASED"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
