// Package notify defines the outbound notification collaborator. Delivery is
// fire-and-forget: services log failures and never let them affect balance or
// ledger state.
package notify

import (
	"context"

	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/pkg/logger"
)

// Notifier receives domain events worth telling the user about.
type Notifier interface {
	EntryProcessed(ctx context.Context, entry ledger.Entry) error
	InvestmentCompleted(ctx context.Context, inv investment.Investment, packageName string) error
	TransferReceived(ctx context.Context, entry ledger.Entry, senderName string) error
}

// LogNotifier writes notifications to the log. It is the default wiring when
// no mail backend is configured.
type LogNotifier struct {
	log *logger.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.NewDefault("notify")
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) EntryProcessed(_ context.Context, entry ledger.Entry) error {
	n.log.WithField("account_id", entry.AccountID).
		WithField("entry_id", entry.ID).
		WithField("type", entry.Type).
		WithField("status", entry.Status).
		Info("transaction processed notification")
	return nil
}

func (n *LogNotifier) InvestmentCompleted(_ context.Context, inv investment.Investment, packageName string) error {
	n.log.WithField("account_id", inv.AccountID).
		WithField("investment_id", inv.ID).
		WithField("package", packageName).
		WithField("payout", inv.CurrentValue).
		Info("investment completed notification")
	return nil
}

func (n *LogNotifier) TransferReceived(_ context.Context, entry ledger.Entry, senderName string) error {
	n.log.WithField("account_id", entry.AccountID).
		WithField("entry_id", entry.ID).
		WithField("sender", senderName).
		WithField("amount", entry.Amount).
		Info("transfer received notification")
	return nil
}
