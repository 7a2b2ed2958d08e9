// Package engine wires the vault state machine to its persistence boundary
// and fans committed events out to monitoring consumers. One method call is
// one atomic operation: it either commits fully or returns an error with no
// observable effect.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lhermoso/grid-vault/internal/models"
	"github.com/lhermoso/grid-vault/internal/vault"
)

// Store is the transactional persistence boundary the engine drives.
// *repository.VaultRepo is the production implementation.
type Store interface {
	Initialize(ctx context.Context, admin, operator, feeRecipient string, feeBps uint16, now time.Time) (*models.ProtocolConfig, []models.VaultEvent, error)
	CreatePosition(ctx context.Context, owner string, now time.Time) (*models.UserPosition, error)
	Mutate(ctx context.Context, owner string, fn vault.Transition) ([]models.VaultEvent, error)
	View(ctx context.Context, owner string, fn func(*vault.State) error) error
	GetConfig(ctx context.Context) (*models.ProtocolConfig, error)
	GetPosition(ctx context.Context, owner string) (*models.UserPosition, error)
	ListPositions(ctx context.Context, limit int) ([]models.UserPosition, error)
}

// Notifier sends a human-readable message to the ops channel.
type Notifier interface {
	Send(msg string)
}

// Broadcaster pushes a committed event to live subscribers.
type Broadcaster interface {
	Broadcast(ev models.VaultEvent)
}

type Engine struct {
	store  Store
	notify Notifier
	stream Broadcaster
	now    func() time.Time
}

// NewEngine builds an engine. notify and stream may be nil when those sinks
// are not configured.
func NewEngine(store Store, notify Notifier, stream Broadcaster) *Engine {
	return &Engine{
		store:  store,
		notify: notify,
		stream: stream,
		now:    time.Now,
	}
}

func (e *Engine) Initialize(ctx context.Context, admin, operator, feeRecipient string, feeBps uint16) (*models.ProtocolConfig, error) {
	cfg, events, err := e.store.Initialize(ctx, admin, operator, feeRecipient, feeBps, e.now())
	if err != nil {
		return nil, err
	}
	e.publish(events)
	return cfg, nil
}

func (e *Engine) CreatePosition(ctx context.Context, owner string) (*models.UserPosition, error) {
	return e.store.CreatePosition(ctx, owner, e.now())
}

func (e *Engine) Deposit(ctx context.Context, owner string, amount, minShares uint64) (models.DepositPayload, error) {
	var out models.DepositPayload
	now := e.now()
	events, err := e.store.Mutate(ctx, owner, func(s *vault.State) ([]models.VaultEvent, error) {
		ev, err := s.Deposit(owner, amount, minShares, now)
		if err != nil {
			return nil, err
		}
		return []models.VaultEvent{ev}, nil
	})
	if err != nil {
		return out, err
	}
	e.publish(events)
	return out, decodePayload(events[0], &out)
}

func (e *Engine) Withdraw(ctx context.Context, owner string, shares uint64) (models.WithdrawPayload, error) {
	var out models.WithdrawPayload
	now := e.now()
	events, err := e.store.Mutate(ctx, owner, func(s *vault.State) ([]models.VaultEvent, error) {
		ev, err := s.Withdraw(owner, shares, now)
		if err != nil {
			return nil, err
		}
		return []models.VaultEvent{ev}, nil
	})
	if err != nil {
		return out, err
	}
	e.publish(events)
	return out, decodePayload(events[0], &out)
}

func (e *Engine) DeployCapital(ctx context.Context, caller string, amount uint64) (models.CapitalDeployedPayload, error) {
	var out models.CapitalDeployedPayload
	now := e.now()
	events, err := e.store.Mutate(ctx, "", func(s *vault.State) ([]models.VaultEvent, error) {
		ev, err := s.DeployCapital(caller, amount, now)
		if err != nil {
			return nil, err
		}
		return []models.VaultEvent{ev}, nil
	})
	if err != nil {
		return out, err
	}
	e.publish(events)
	return out, decodePayload(events[0], &out)
}

func (e *Engine) ReturnCapital(ctx context.Context, caller string, amountReturned uint64, realizedPnl int64) (models.CapitalReturnedPayload, error) {
	var out models.CapitalReturnedPayload
	now := e.now()
	events, err := e.store.Mutate(ctx, "", func(s *vault.State) ([]models.VaultEvent, error) {
		ev, err := s.ReturnCapital(caller, amountReturned, realizedPnl, now)
		if err != nil {
			return nil, err
		}
		return []models.VaultEvent{ev}, nil
	})
	if err != nil {
		return out, err
	}
	e.publish(events)
	return out, decodePayload(events[0], &out)
}

func (e *Engine) UpdateValuation(ctx context.Context, caller string, report models.ValuationReport) (models.ValuationUpdatePayload, error) {
	var out models.ValuationUpdatePayload
	now := e.now()
	events, err := e.store.Mutate(ctx, "", func(s *vault.State) ([]models.VaultEvent, error) {
		ev, err := s.UpdateValuation(caller, report, now)
		if err != nil {
			return nil, err
		}
		return []models.VaultEvent{ev}, nil
	})
	if err != nil {
		return out, err
	}
	e.publish(events)
	return out, decodePayload(events[0], &out)
}

func (e *Engine) SweepFees(ctx context.Context, caller string) (models.FeesSweptPayload, error) {
	var out models.FeesSweptPayload
	now := e.now()
	events, err := e.store.Mutate(ctx, "", func(s *vault.State) ([]models.VaultEvent, error) {
		ev, err := s.SweepFees(caller, now)
		if err != nil {
			return nil, err
		}
		return []models.VaultEvent{ev}, nil
	})
	if err != nil {
		return out, err
	}
	e.publish(events)
	return out, decodePayload(events[0], &out)
}

func (e *Engine) Pause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, true)
}

func (e *Engine) Unpause(ctx context.Context, caller string) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller string, paused bool) error {
	now := e.now()
	events, err := e.store.Mutate(ctx, "", func(s *vault.State) ([]models.VaultEvent, error) {
		var ev models.VaultEvent
		var err error
		if paused {
			ev, err = s.Pause(caller, now)
		} else {
			ev, err = s.Unpause(caller, now)
		}
		if err != nil {
			return nil, err
		}
		return []models.VaultEvent{ev}, nil
	})
	if err != nil {
		return err
	}
	e.publish(events)
	return nil
}

// UserBalance is a read; it never blocks on staleness.
func (e *Engine) UserBalance(ctx context.Context, owner string) (models.Balance, error) {
	var out models.Balance
	now := e.now()
	err := e.store.View(ctx, owner, func(s *vault.State) error {
		bal, err := s.UserBalance(owner, now)
		if err != nil {
			return err
		}
		out = bal
		return nil
	})
	return out, err
}

func (e *Engine) Stats(ctx context.Context) (models.ProtocolStats, error) {
	var out models.ProtocolStats
	err := e.store.View(ctx, "", func(s *vault.State) error {
		out = s.Stats()
		return nil
	})
	return out, err
}

func (e *Engine) Position(ctx context.Context, owner string) (*models.UserPosition, error) {
	pos, err := e.store.GetPosition(ctx, owner)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, vault.ErrPositionNotFound
	}
	return pos, nil
}

func (e *Engine) Positions(ctx context.Context, limit int) ([]models.UserPosition, error) {
	return e.store.ListPositions(ctx, limit)
}

func (e *Engine) Config(ctx context.Context) (*models.ProtocolConfig, error) {
	return e.store.GetConfig(ctx)
}

// publish fans a committed batch out to the ops webhook and the live stream.
// Sinks are best-effort: the operation has already committed.
func (e *Engine) publish(events []models.VaultEvent) {
	for _, ev := range events {
		if e.stream != nil {
			e.stream.Broadcast(ev)
		}
		if e.notify != nil {
			if msg := describe(ev); msg != "" {
				e.notify.Send(msg)
			}
		}
	}
}

func decodePayload(ev models.VaultEvent, dst any) error {
	return json.Unmarshal(ev.Payload, dst)
}

// describe renders an event as an ops-channel message.
func describe(ev models.VaultEvent) string {
	switch ev.Type {
	case models.EventInitialized:
		var p models.InitializedPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return ""
		}
		return fmt.Sprintf("Protocol initialized (fee %d bps, operator %s)", p.PerformanceFeeBps, shorten(p.Operator))
	case models.EventDeposit:
		var p models.DepositPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return ""
		}
		return fmt.Sprintf("Deposit: %s from %s, minted %s shares", FormatAmount(p.Amount), shorten(p.User), FormatAmount(p.SharesMinted))
	case models.EventWithdraw:
		var p models.WithdrawPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return ""
		}
		return fmt.Sprintf("Withdraw: %s to %s, burned %s shares", FormatAmount(p.Amount), shorten(p.User), FormatAmount(p.SharesBurned))
	case models.EventCapitalDeployed:
		var p models.CapitalDeployedPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return ""
		}
		return fmt.Sprintf("Capital deployed: %s (total out: %s)", FormatAmount(p.Amount), FormatAmount(p.TotalDeployed))
	case models.EventCapitalReturned:
		var p models.CapitalReturnedPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return ""
		}
		sign := ""
		pnl := p.RealizedPnl
		if pnl < 0 {
			sign = "-"
			pnl = -pnl
		}
		return fmt.Sprintf("Capital returned: %s, PnL %s%s, fee %s", FormatAmount(p.AmountReturned), sign, FormatAmount(uint64(pnl)), FormatAmount(p.FeeAccrued))
	case models.EventValuationUpdate:
		var p models.ValuationUpdatePayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return ""
		}
		return fmt.Sprintf("Valuation: deployed marked at %s (principal %s)", FormatAmount(p.TotalDeployedCurrent), FormatAmount(p.TotalDeployedOriginal))
	case models.EventFeesSwept:
		var p models.FeesSweptPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return ""
		}
		return fmt.Sprintf("Fees swept: %s to %s", FormatAmount(p.Amount), shorten(p.Recipient))
	case models.EventPaused:
		return "Protocol PAUSED"
	case models.EventUnpaused:
		return "Protocol unpaused"
	}
	return ""
}

// FormatAmount renders a 1e6-scale fixed-point value as a decimal string.
func FormatAmount(v uint64) string {
	return fmt.Sprintf("%d.%06d", v/1_000_000, v%1_000_000)
}

func shorten(id string) string {
	if len(id) > 12 {
		return id[:8] + "..."
	}
	return id
}
