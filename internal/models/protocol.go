package models

import "time"

// ProtocolConfig is the singleton accounting record for the vault. The
// treasury balance is the idle (undeployed) custodial balance; all amounts
// are fixed-point integers at 1e6 scale.
type ProtocolConfig struct {
	Admin        string `json:"admin"`
	Operator     string `json:"operator"` // the trading bot identity
	FeeRecipient string `json:"feeRecipient"`

	TreasuryBalance      uint64 `json:"treasuryBalance"`
	TotalShares          uint64 `json:"totalShares"`
	TotalTradingDeployed uint64 `json:"totalTradingDeployed"`
	AccumulatedFees      uint64 `json:"accumulatedFees"`
	PerformanceFeeBps    uint16 `json:"performanceFeeBps"`
	IsPaused             bool   `json:"isPaused"`

	// Mark-to-market state for capital currently deployed off-ledger.
	DeployedCurrentValue   uint64 `json:"deployedCurrentValue"`
	LastValuationTimestamp int64  `json:"lastValuationTimestamp"` // unix seconds, 0 = never
	PendingUnrealizedFees  uint64 `json:"pendingUnrealizedFees"`

	LastFeeSweep int64     `json:"lastFeeSweep"` // unix seconds, 0 = never
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserPosition is a principal's proportional claim on the pool.
// Shares reaching zero closes the position logically; the row stays
// queryable with a zero balance.
type UserPosition struct {
	Owner           string    `json:"owner"`
	Shares          uint64    `json:"shares"`
	DepositedAmount uint64    `json:"depositedAmount"` // cumulative
	WithdrawnAmount uint64    `json:"withdrawnAmount"` // cumulative
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ProtocolStats is the aggregate view returned by the stats endpoint.
type ProtocolStats struct {
	TotalValueLocked       uint64 `json:"totalValueLocked"` // idle + deployed mark - fees
	TreasuryBalance        uint64 `json:"treasuryBalance"`
	TotalTradingDeployed   uint64 `json:"totalTradingDeployed"`
	DeployedCurrentValue   uint64 `json:"deployedCurrentValue"`
	AccumulatedFees        uint64 `json:"accumulatedFees"`
	TotalShares            uint64 `json:"totalShares"`
	DeploymentRatioBps     uint64 `json:"deploymentRatioBps"` // deployed / (idle + deployed)
	PerformanceFeeBps      uint16 `json:"performanceFeeBps"`
	IsPaused               bool   `json:"isPaused"`
	LastValuationTimestamp int64  `json:"lastValuationTimestamp"`
}

// Balance is the result of a user balance query. Stale is advisory: the
// balance is still computed, but the underlying valuation is older than
// the staleness window.
type Balance struct {
	Owner            string `json:"owner"`
	Shares           uint64 `json:"shares"`
	Amount           uint64 `json:"amount"`
	StaleValuation   bool   `json:"staleValuation"`
	ValuationAgeSecs int64  `json:"valuationAgeSecs,omitempty"`
}
