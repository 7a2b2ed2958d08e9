package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by committed vault operations.
const (
	EventInitialized     = "protocol_initialized"
	EventDeposit         = "deposit"
	EventWithdraw        = "withdraw"
	EventCapitalDeployed = "capital_deployed"
	EventCapitalReturned = "capital_returned"
	EventValuationUpdate = "valuation_update"
	EventFeesSwept       = "fees_swept"
	EventPaused          = "protocol_paused"
	EventUnpaused        = "protocol_unpaused"
)

// VaultEvent is one emitted record. Payload holds the type-specific fields;
// external monitoring consumes these via the event log, webhooks, and the
// websocket stream.
type VaultEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"` // unix seconds
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}

type DepositPayload struct {
	User            string `json:"user"`
	Amount          uint64 `json:"amount"`
	SharesMinted    uint64 `json:"sharesMinted"`
	TreasuryBalance uint64 `json:"treasuryBalance"`
}

type WithdrawPayload struct {
	User            string `json:"user"`
	Amount          uint64 `json:"amount"`
	SharesBurned    uint64 `json:"sharesBurned"`
	RemainingShares uint64 `json:"remainingShares"`
}

type CapitalDeployedPayload struct {
	Amount            uint64 `json:"amount"`
	TotalDeployed     uint64 `json:"totalDeployed"`
	TreasuryRemaining uint64 `json:"treasuryRemaining"`
}

type CapitalReturnedPayload struct {
	AmountReturned     uint64 `json:"amountReturned"`
	RealizedPnl        int64  `json:"realizedPnl"`
	FeeAccrued         uint64 `json:"feeAccrued"`
	TotalDeployed      uint64 `json:"totalDeployed"`
	NewTreasuryBalance uint64 `json:"newTreasuryBalance"`
}

type ValuationUpdatePayload struct {
	DeploymentID          string `json:"deploymentId"`
	TotalDeployedOriginal uint64 `json:"totalDeployedOriginal"`
	TotalDeployedCurrent  uint64 `json:"totalDeployedCurrent"`
	OrcaValue             uint64 `json:"orcaValue"`
	DriftValue            uint64 `json:"driftValue"`
	UncollectedFees       uint64 `json:"uncollectedFees"`
	UnrealizedPnl         int64  `json:"unrealizedPnl"`
	PendingFees           uint64 `json:"pendingFees"`
}

type FeesSweptPayload struct {
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
}

type InitializedPayload struct {
	Admin             string `json:"admin"`
	Operator          string `json:"operator"`
	FeeRecipient      string `json:"feeRecipient"`
	PerformanceFeeBps uint16 `json:"performanceFeeBps"`
}

type PausePayload struct {
	By string `json:"by"`
}

// NewEvent builds a VaultEvent from a typed payload. Marshalling the
// payload structs above cannot fail, so errors here indicate a bug.
func NewEvent(eventType string, ts int64, payload any) VaultEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	return VaultEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: ts,
		Payload:   raw,
	}
}
