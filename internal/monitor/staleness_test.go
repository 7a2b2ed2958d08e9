package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/lhermoso/grid-vault/internal/models"
)

type fakeSource struct {
	cfg *models.ProtocolConfig
	err error
}

func (f *fakeSource) Config(_ context.Context) (*models.ProtocolConfig, error) {
	return f.cfg, f.err
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Send(msg string) {
	f.messages = append(f.messages, msg)
}

func newTestMonitor(cfg *models.ProtocolConfig, at time.Time) (*StalenessMonitor, *fakeNotifier) {
	notify := &fakeNotifier{}
	m := NewStalenessMonitor(&fakeSource{cfg: cfg}, notify)
	m.now = func() time.Time { return at }
	return m, notify
}

func TestCheck_FreshValuationNoAlert(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := &models.ProtocolConfig{
		TotalTradingDeployed:   50_000_000,
		LastValuationTimestamp: now.Add(-23 * time.Hour).Unix(),
	}
	m, notify := newTestMonitor(cfg, now)

	if m.Check(context.Background()) {
		t.Fatal("expected no alert for a 23h-old valuation")
	}
	if len(notify.messages) != 0 {
		t.Fatalf("expected no messages, got %v", notify.messages)
	}
}

func TestCheck_StaleValuationAlerts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := &models.ProtocolConfig{
		TotalTradingDeployed:   50_000_000,
		LastValuationTimestamp: now.Add(-25 * time.Hour).Unix(),
	}
	m, notify := newTestMonitor(cfg, now)

	if !m.Check(context.Background()) {
		t.Fatal("expected alert for a 25h-old valuation")
	}
	if len(notify.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(notify.messages))
	}
}

func TestCheck_DeployedWithNoMarkAlerts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := &models.ProtocolConfig{
		TotalTradingDeployed:   10_000_000,
		LastValuationTimestamp: 0,
	}
	m, notify := newTestMonitor(cfg, now)

	if !m.Check(context.Background()) {
		t.Fatal("expected alert when deployed with no valuation on record")
	}
	if len(notify.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(notify.messages))
	}
}

func TestCheck_NothingDeployedNeverAlerts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := &models.ProtocolConfig{
		TreasuryBalance:        100_000_000,
		TotalTradingDeployed:   0,
		LastValuationTimestamp: 0,
	}
	m, notify := newTestMonitor(cfg, now)

	if m.Check(context.Background()) {
		t.Fatal("expected no alert with zero deployed capital")
	}
	if len(notify.messages) != 0 {
		t.Fatalf("expected no messages, got %v", notify.messages)
	}
}

func TestCheck_RepeatAlertSuppressed(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := &models.ProtocolConfig{
		TotalTradingDeployed:   50_000_000,
		LastValuationTimestamp: now.Add(-25 * time.Hour).Unix(),
	}
	m, notify := newTestMonitor(cfg, now)

	if !m.Check(context.Background()) {
		t.Fatal("expected first check to alert")
	}
	if m.Check(context.Background()) {
		t.Fatal("expected second check for the same mark to be suppressed")
	}
	if len(notify.messages) != 1 {
		t.Fatalf("expected 1 message total, got %d", len(notify.messages))
	}
}

func TestCheck_NewStaleMarkAlertsAgain(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := &models.ProtocolConfig{
		TotalTradingDeployed:   50_000_000,
		LastValuationTimestamp: now.Add(-48 * time.Hour).Unix(),
	}
	m, notify := newTestMonitor(cfg, now)

	if !m.Check(context.Background()) {
		t.Fatal("expected first check to alert")
	}

	// A fresh report arrives, then goes stale again.
	cfg.LastValuationTimestamp = now.Add(-25 * time.Hour).Unix()
	if !m.Check(context.Background()) {
		t.Fatal("expected alert for the newer stale mark")
	}
	if len(notify.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(notify.messages))
	}
}

func TestCheck_UninitializedProtocolNoAlert(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m, notify := newTestMonitor(nil, now)

	if m.Check(context.Background()) {
		t.Fatal("expected no alert before initialization")
	}
	if len(notify.messages) != 0 {
		t.Fatalf("expected no messages, got %v", notify.messages)
	}
}
