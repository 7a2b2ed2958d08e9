package models

// ValuationReport is the mark-to-market record produced by the off-chain
// valuation reporter for capital currently deployed to trading venues.
// Component values are fixed-point at 1e6 scale; Timestamp is unix seconds
// as observed by the reporter.
type ValuationReport struct {
	DeploymentID       string `json:"deploymentId"`
	OrcaPositionsValue uint64 `json:"orcaPositionsValue"`
	DriftEquityValue   uint64 `json:"driftEquityValue"`
	UncollectedFees    uint64 `json:"uncollectedFees"`
	UnrealizedPnl      int64  `json:"unrealizedPnl"`
	Timestamp          int64  `json:"timestamp"`
}

// TotalValue is the mark for the whole deployed bucket. Callers must use
// checked addition on the money path; this helper is for display only.
func (v ValuationReport) TotalValue() uint64 {
	return v.OrcaPositionsValue + v.DriftEquityValue + v.UncollectedFees
}
