// Package vault implements the pooled-treasury accounting state machine.
// Transitions are pure: they mutate an in-memory State loaded by the caller
// and return the events to emit. The repository applies each transition
// inside a single database transaction, so a committed operation is atomic
// and a failed one leaves no observable effect.
package vault

import (
	"time"

	"github.com/lhermoso/grid-vault/internal/fixedpoint"
	"github.com/lhermoso/grid-vault/internal/models"
)

const (
	// MaxFeeBps bounds the performance fee (10000 = 100%).
	MaxFeeBps uint16 = 10_000

	// TradingAllocationBps caps deployed capital at 90% of pooled value,
	// checked at the instant of deployment only.
	TradingAllocationBps uint16 = 9_000

	// ValuationWindow is the reporter clock-skew tolerance.
	ValuationWindow = 5 * time.Minute

	// StalenessWindow is the advisory valuation-age threshold for reads.
	StalenessWindow = 24 * time.Hour
)

// State is the working copy of the ledger an operation mutates. Positions
// holds only the rows the operation touches, keyed by owner.
type State struct {
	Config    *models.ProtocolConfig
	Positions map[string]*models.UserPosition
}

// Transition is one atomic operation applied to a loaded State. The caller
// persists the mutated state and the returned events together, or nothing.
type Transition func(*State) ([]models.VaultEvent, error)

func NewState(cfg *models.ProtocolConfig) *State {
	return &State{
		Config:    cfg,
		Positions: make(map[string]*models.UserPosition),
	}
}

// Initialize builds the singleton config with zeroed aggregates. The caller
// is responsible for rejecting a second initialization (ErrAlreadyInitialized
// at the persistence layer).
func Initialize(admin, operator, feeRecipient string, feeBps uint16, now time.Time) (*models.ProtocolConfig, models.VaultEvent, error) {
	if feeBps > MaxFeeBps {
		return nil, models.VaultEvent{}, ErrInvalidFeeBps
	}
	if admin == "" || operator == "" || feeRecipient == "" {
		return nil, models.VaultEvent{}, ErrInvalidAmount
	}
	cfg := &models.ProtocolConfig{
		Admin:             admin,
		Operator:          operator,
		FeeRecipient:      feeRecipient,
		PerformanceFeeBps: feeBps,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	ev := models.NewEvent(models.EventInitialized, now.Unix(), models.InitializedPayload{
		Admin:             admin,
		Operator:          operator,
		FeeRecipient:      feeRecipient,
		PerformanceFeeBps: feeBps,
	})
	return cfg, ev, nil
}

// pool is the distributable value backing shares:
// idle treasury + deployed mark - accumulated fees.
func (s *State) pool() (uint64, error) {
	total, err := fixedpoint.Add(s.Config.TreasuryBalance, s.Config.DeployedCurrentValue)
	if err != nil {
		return 0, err
	}
	return fixedpoint.Sub(total, s.Config.AccumulatedFees)
}

func (s *State) position(owner string) (*models.UserPosition, bool) {
	p, ok := s.Positions[owner]
	return p, ok
}

func (s *State) requireOperator(caller string) error {
	if caller != s.Config.Operator {
		return ErrUnauthorized
	}
	return nil
}

func (s *State) requireAdmin(caller string) error {
	if caller != s.Config.Admin {
		return ErrUnauthorized
	}
	return nil
}

// CreatePosition registers an empty position for owner.
func (s *State) CreatePosition(owner string, now time.Time) (*models.UserPosition, error) {
	if owner == "" {
		return nil, ErrInvalidAmount
	}
	if _, ok := s.position(owner); ok {
		return nil, ErrPositionExists
	}
	p := &models.UserPosition{Owner: owner, CreatedAt: now, UpdatedAt: now}
	s.Positions[owner] = p
	return p, nil
}

// Deposit mints shares at the pre-deposit NAV so existing holders are not
// diluted, then moves amount into the treasury. The first deposit (no shares
// outstanding) is priced 1:1. minShares is the depositor's slippage guard;
// zero disables it. Creates the position on first deposit.
func (s *State) Deposit(owner string, amount, minShares uint64, now time.Time) (models.VaultEvent, error) {
	var none models.VaultEvent
	if s.Config.IsPaused {
		return none, ErrPaused
	}
	if amount == 0 {
		return none, ErrZeroAmount
	}

	var sharesToMint uint64
	if s.Config.TotalShares == 0 {
		sharesToMint = amount
	} else {
		pool, err := s.pool()
		if err != nil {
			return none, err
		}
		sharesToMint, err = fixedpoint.MulDiv(amount, s.Config.TotalShares, pool)
		if err != nil {
			return none, err
		}
	}
	if minShares > 0 && sharesToMint < minShares {
		return none, ErrSlippageExceeded
	}

	pos, ok := s.position(owner)
	if !ok {
		var err error
		pos, err = s.CreatePosition(owner, now)
		if err != nil {
			return none, err
		}
	}

	newTreasury, err := fixedpoint.Add(s.Config.TreasuryBalance, amount)
	if err != nil {
		return none, err
	}
	newUserShares, err := fixedpoint.Add(pos.Shares, sharesToMint)
	if err != nil {
		return none, err
	}
	newTotalShares, err := fixedpoint.Add(s.Config.TotalShares, sharesToMint)
	if err != nil {
		return none, err
	}
	newDeposited, err := fixedpoint.Add(pos.DepositedAmount, amount)
	if err != nil {
		return none, err
	}

	s.Config.TreasuryBalance = newTreasury
	s.Config.TotalShares = newTotalShares
	pos.Shares = newUserShares
	pos.DepositedAmount = newDeposited
	pos.UpdatedAt = now
	s.Config.UpdatedAt = now

	return models.NewEvent(models.EventDeposit, now.Unix(), models.DepositPayload{
		User:            owner,
		Amount:          amount,
		SharesMinted:    sharesToMint,
		TreasuryBalance: newTreasury,
	}), nil
}

// Withdraw redeems sharesToRedeem for their floor NAV value, paid from idle
// treasury only. Withdrawals never force recall of deployed capital.
func (s *State) Withdraw(owner string, sharesToRedeem uint64, now time.Time) (models.VaultEvent, error) {
	var none models.VaultEvent
	if s.Config.IsPaused {
		return none, ErrPaused
	}
	if sharesToRedeem == 0 {
		return none, ErrZeroAmount
	}
	pos, ok := s.position(owner)
	if !ok {
		return none, ErrPositionNotFound
	}
	if sharesToRedeem > pos.Shares {
		return none, ErrInsufficientShares
	}

	pool, err := s.pool()
	if err != nil {
		return none, err
	}
	payout, err := fixedpoint.MulDiv(sharesToRedeem, pool, s.Config.TotalShares)
	if err != nil {
		return none, err
	}
	if payout > s.Config.TreasuryBalance {
		return none, ErrInsufficientLiquidity
	}

	newTreasury, err := fixedpoint.Sub(s.Config.TreasuryBalance, payout)
	if err != nil {
		return none, err
	}
	newTotalShares, err := fixedpoint.Sub(s.Config.TotalShares, sharesToRedeem)
	if err != nil {
		return none, err
	}
	newWithdrawn, err := fixedpoint.Add(pos.WithdrawnAmount, payout)
	if err != nil {
		return none, err
	}

	s.Config.TreasuryBalance = newTreasury
	s.Config.TotalShares = newTotalShares
	pos.Shares -= sharesToRedeem
	pos.WithdrawnAmount = newWithdrawn
	pos.UpdatedAt = now
	s.Config.UpdatedAt = now

	return models.NewEvent(models.EventWithdraw, now.Unix(), models.WithdrawPayload{
		User:            owner,
		Amount:          payout,
		SharesBurned:    sharesToRedeem,
		RemainingShares: pos.Shares,
	}), nil
}

// DeployCapital moves amount from the treasury into the deployed bucket.
// The 90% allocation ceiling is checked against pooled capital
// (idle + already deployed) at this instant only; a later adverse mark can
// push the effective ratio past the ceiling without corrective action.
func (s *State) DeployCapital(caller string, amount uint64, now time.Time) (models.VaultEvent, error) {
	var none models.VaultEvent
	if err := s.requireOperator(caller); err != nil {
		return none, err
	}
	if s.Config.IsPaused {
		return none, ErrPaused
	}
	if amount == 0 {
		return none, ErrZeroAmount
	}

	capitalBase, err := fixedpoint.Add(s.Config.TreasuryBalance, s.Config.TotalTradingDeployed)
	if err != nil {
		return none, err
	}
	maxDeployable, err := fixedpoint.ApplyBps(capitalBase, TradingAllocationBps)
	if err != nil {
		return none, err
	}
	newDeployed, err := fixedpoint.Add(s.Config.TotalTradingDeployed, amount)
	if err != nil {
		return none, err
	}
	if newDeployed > maxDeployable {
		return none, ErrExceedsDeploymentLimit
	}

	newTreasury, err := fixedpoint.Sub(s.Config.TreasuryBalance, amount)
	if err != nil {
		return none, ErrInsufficientLiquidity
	}
	// Until the next oracle mark, valuation tracks principal.
	newValue, err := fixedpoint.Add(s.Config.DeployedCurrentValue, amount)
	if err != nil {
		return none, err
	}

	s.Config.TreasuryBalance = newTreasury
	s.Config.TotalTradingDeployed = newDeployed
	s.Config.DeployedCurrentValue = newValue
	s.Config.UpdatedAt = now

	return models.NewEvent(models.EventCapitalDeployed, now.Unix(), models.CapitalDeployedPayload{
		Amount:            amount,
		TotalDeployed:     newDeployed,
		TreasuryRemaining: newTreasury,
	}), nil
}

// ReturnCapital brings amountReturned back into treasury custody.
// realizedPnl is the profit (positive) or loss (negative) embedded in the
// return; the principal portion is amountReturned - realizedPnl. A positive
// realized PnL accrues the performance fee; losses reduce NAV in full.
func (s *State) ReturnCapital(caller string, amountReturned uint64, realizedPnl int64, now time.Time) (models.VaultEvent, error) {
	var none models.VaultEvent
	if err := s.requireOperator(caller); err != nil {
		return none, err
	}
	if amountReturned == 0 && realizedPnl == 0 {
		return none, ErrZeroAmount
	}

	principal, err := fixedpoint.SubSigned(amountReturned, realizedPnl)
	if err != nil {
		return none, ErrInvalidAmount
	}
	if principal > s.Config.TotalTradingDeployed {
		return none, ErrReturnExceedsDeployed
	}

	newTreasury, err := fixedpoint.Add(s.Config.TreasuryBalance, amountReturned)
	if err != nil {
		return none, err
	}

	var fee uint64
	if realizedPnl > 0 {
		fee, err = fixedpoint.ApplyBps(uint64(realizedPnl), s.Config.PerformanceFeeBps)
		if err != nil {
			return none, err
		}
	}
	newFees, err := fixedpoint.Add(s.Config.AccumulatedFees, fee)
	if err != nil {
		return none, err
	}

	s.Config.TreasuryBalance = newTreasury
	s.Config.TotalTradingDeployed -= principal
	s.Config.AccumulatedFees = newFees
	// The deployed mark sheds what actually came back; saturate because the
	// mark may lag the principal bookkeeping between oracle reports.
	if amountReturned >= s.Config.DeployedCurrentValue {
		s.Config.DeployedCurrentValue = 0
	} else {
		s.Config.DeployedCurrentValue -= amountReturned
	}
	s.Config.UpdatedAt = now

	return models.NewEvent(models.EventCapitalReturned, now.Unix(), models.CapitalReturnedPayload{
		AmountReturned:     amountReturned,
		RealizedPnl:        realizedPnl,
		FeeAccrued:         fee,
		TotalDeployed:      s.Config.TotalTradingDeployed,
		NewTreasuryBalance: newTreasury,
	}), nil
}

// UpdateValuation admits an externally reported mark for deployed capital.
// The report must be fresh (within ValuationWindow of now, either direction)
// and monotonic relative to the last accepted mark. Fees on unrealized gains
// are tracked as a pending marker only; they are charged at realization in
// ReturnCapital.
func (s *State) UpdateValuation(caller string, rep models.ValuationReport, now time.Time) (models.VaultEvent, error) {
	var none models.VaultEvent
	if err := s.requireOperator(caller); err != nil {
		return none, err
	}

	age := now.Unix() - rep.Timestamp
	if age > int64(ValuationWindow.Seconds()) || -age > int64(ValuationWindow.Seconds()) {
		return none, ErrInvalidValuation
	}
	if rep.Timestamp < s.Config.LastValuationTimestamp {
		return none, ErrNonMonotonicValuation
	}

	venueValue, err := fixedpoint.Add(rep.OrcaPositionsValue, rep.DriftEquityValue)
	if err != nil {
		return none, err
	}
	currentValue, err := fixedpoint.Add(venueValue, rep.UncollectedFees)
	if err != nil {
		return none, err
	}

	var pendingFees uint64
	if rep.UnrealizedPnl > 0 {
		pendingFees, err = fixedpoint.ApplyBps(uint64(rep.UnrealizedPnl), s.Config.PerformanceFeeBps)
		if err != nil {
			return none, err
		}
	}

	s.Config.DeployedCurrentValue = currentValue
	s.Config.PendingUnrealizedFees = pendingFees
	s.Config.LastValuationTimestamp = rep.Timestamp
	s.Config.UpdatedAt = now

	return models.NewEvent(models.EventValuationUpdate, now.Unix(), models.ValuationUpdatePayload{
		DeploymentID:          rep.DeploymentID,
		TotalDeployedOriginal: s.Config.TotalTradingDeployed,
		TotalDeployedCurrent:  currentValue,
		OrcaValue:             rep.OrcaPositionsValue,
		DriftValue:            rep.DriftEquityValue,
		UncollectedFees:       rep.UncollectedFees,
		UnrealizedPnl:         rep.UnrealizedPnl,
		PendingFees:           pendingFees,
	}), nil
}

// UserBalance values a position at the current NAV. Staleness is advisory
// and only meaningful while capital is deployed; reads are never blocked.
func (s *State) UserBalance(owner string, now time.Time) (models.Balance, error) {
	pos, ok := s.position(owner)
	if !ok {
		return models.Balance{}, ErrPositionNotFound
	}
	if s.Config.TotalShares == 0 {
		return models.Balance{}, ErrUndefinedNav
	}

	pool, err := s.pool()
	if err != nil {
		return models.Balance{}, err
	}
	amount, err := fixedpoint.MulDiv(pos.Shares, pool, s.Config.TotalShares)
	if err != nil {
		return models.Balance{}, err
	}

	b := models.Balance{Owner: owner, Shares: pos.Shares, Amount: amount}
	if s.Config.TotalTradingDeployed > 0 {
		if s.Config.LastValuationTimestamp == 0 {
			b.StaleValuation = true
		} else {
			b.ValuationAgeSecs = now.Unix() - s.Config.LastValuationTimestamp
			b.StaleValuation = b.ValuationAgeSecs > int64(StalenessWindow.Seconds())
		}
	}
	return b, nil
}

// SweepFees pays the accumulated performance fees out of the treasury to
// the configured fee recipient.
func (s *State) SweepFees(caller string, now time.Time) (models.VaultEvent, error) {
	var none models.VaultEvent
	if err := s.requireAdmin(caller); err != nil {
		return none, err
	}
	fees := s.Config.AccumulatedFees
	if fees == 0 {
		return none, ErrNothingToSweep
	}
	newTreasury, err := fixedpoint.Sub(s.Config.TreasuryBalance, fees)
	if err != nil {
		return none, ErrInsufficientLiquidity
	}

	s.Config.TreasuryBalance = newTreasury
	s.Config.AccumulatedFees = 0
	s.Config.LastFeeSweep = now.Unix()
	s.Config.UpdatedAt = now

	return models.NewEvent(models.EventFeesSwept, now.Unix(), models.FeesSweptPayload{
		Amount:    fees,
		Recipient: s.Config.FeeRecipient,
	}), nil
}

// Pause halts deposits, withdrawals, and deployments. Returning capital and
// valuation reports stay enabled so the operator can unwind while paused.
func (s *State) Pause(caller string, now time.Time) (models.VaultEvent, error) {
	if err := s.requireAdmin(caller); err != nil {
		return models.VaultEvent{}, err
	}
	s.Config.IsPaused = true
	s.Config.UpdatedAt = now
	return models.NewEvent(models.EventPaused, now.Unix(), models.PausePayload{By: caller}), nil
}

func (s *State) Unpause(caller string, now time.Time) (models.VaultEvent, error) {
	if err := s.requireAdmin(caller); err != nil {
		return models.VaultEvent{}, err
	}
	s.Config.IsPaused = false
	s.Config.UpdatedAt = now
	return models.NewEvent(models.EventUnpaused, now.Unix(), models.PausePayload{By: caller}), nil
}

// Stats summarizes the aggregate ledger. The deployment ratio uses principal
// bookkeeping, matching the ceiling check in DeployCapital.
func (s *State) Stats() models.ProtocolStats {
	cfg := s.Config
	st := models.ProtocolStats{
		TreasuryBalance:        cfg.TreasuryBalance,
		TotalTradingDeployed:   cfg.TotalTradingDeployed,
		DeployedCurrentValue:   cfg.DeployedCurrentValue,
		AccumulatedFees:        cfg.AccumulatedFees,
		TotalShares:            cfg.TotalShares,
		PerformanceFeeBps:      cfg.PerformanceFeeBps,
		IsPaused:               cfg.IsPaused,
		LastValuationTimestamp: cfg.LastValuationTimestamp,
	}
	if tvl, err := s.pool(); err == nil {
		st.TotalValueLocked = tvl
	}
	if base, err := fixedpoint.Add(cfg.TreasuryBalance, cfg.TotalTradingDeployed); err == nil && base > 0 {
		if ratio, err := fixedpoint.MulDiv(cfg.TotalTradingDeployed, fixedpoint.BpsDenom, base); err == nil {
			st.DeploymentRatioBps = ratio
		}
	}
	return st
}
