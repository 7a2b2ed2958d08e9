// Package monitor runs scheduled checks against the vault state and
// raises alerts through the notification webhook.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lhermoso/grid-vault/internal/models"
	"github.com/lhermoso/grid-vault/internal/vault"
	"github.com/robfig/cron/v3"
)

// ConfigSource reads the current protocol configuration.
type ConfigSource interface {
	Config(ctx context.Context) (*models.ProtocolConfig, error)
}

// Notifier delivers alert messages.
type Notifier interface {
	Send(message string)
}

// StalenessMonitor periodically verifies that deployed capital has a
// recent valuation mark. Valuations older than the staleness window
// mean withdrawals are being priced on stale data.
type StalenessMonitor struct {
	source ConfigSource
	notify Notifier
	cron   *cron.Cron
	window time.Duration
	now    func() time.Time

	// lastAlerted suppresses repeat alerts for the same stale mark.
	lastAlerted int64
}

func NewStalenessMonitor(source ConfigSource, notify Notifier) *StalenessMonitor {
	return &StalenessMonitor{
		source: source,
		notify: notify,
		cron:   cron.New(cron.WithSeconds()),
		window: vault.StalenessWindow,
		now:    time.Now,
	}
}

// Start registers the check on the given six-field cron expression
// (with seconds) and starts the scheduler.
func (m *StalenessMonitor) Start(spec string) error {
	if _, err := m.cron.AddFunc(spec, m.runCheck); err != nil {
		return fmt.Errorf("register staleness check: %w", err)
	}
	m.cron.Start()
	fmt.Printf("[MONITOR] Staleness monitor started (spec %q, window %s)\n", spec, m.window)
	return nil
}

// Stop stops the scheduler and waits for a running check to finish.
func (m *StalenessMonitor) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	fmt.Println("[MONITOR] Staleness monitor stopped")
}

func (m *StalenessMonitor) runCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.Check(ctx)
}

// Check runs one staleness evaluation. It is exposed for manual
// triggering and returns whether an alert was raised.
func (m *StalenessMonitor) Check(ctx context.Context) bool {
	cfg, err := m.source.Config(ctx)
	if errors.Is(err, vault.ErrNotInitialized) {
		return false
	}
	if err != nil {
		fmt.Printf("[MONITOR] Config read failed: %v\n", err)
		return false
	}
	if cfg == nil || cfg.TotalTradingDeployed == 0 {
		// Nothing deployed, treasury is fully idle and NAV needs no mark.
		return false
	}

	age := m.now().Unix() - cfg.LastValuationTimestamp
	if cfg.LastValuationTimestamp > 0 && age <= int64(m.window.Seconds()) {
		m.lastAlerted = 0
		return false
	}

	if m.lastAlerted == cfg.LastValuationTimestamp {
		// Already alerted for this mark.
		return false
	}
	m.lastAlerted = cfg.LastValuationTimestamp

	var msg string
	if cfg.LastValuationTimestamp == 0 {
		msg = fmt.Sprintf("⚠️ Capital deployed (%d) with no valuation report on record", cfg.TotalTradingDeployed)
	} else {
		msg = fmt.Sprintf("⚠️ Valuation is stale: last report %s old with %d deployed",
			(time.Duration(age) * time.Second).Round(time.Minute), cfg.TotalTradingDeployed)
	}
	fmt.Printf("[MONITOR] %s\n", msg)
	m.notify.Send(msg)
	return true
}
