// Package transfers moves funds between accounts addressed by wallet ID.
package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/metrics"
	"github.com/mctcapital/invest_layer/internal/app/notify"
	"github.com/mctcapital/invest_layer/internal/app/storage"
	"github.com/mctcapital/invest_layer/pkg/logger"
)

var (
	// ErrSelfTransfer reports a transfer addressed to the sender's own
	// wallet.
	ErrSelfTransfer = errors.New("cannot transfer to own wallet")
	// ErrInvalidAmount reports a non-positive transfer amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrAccountInactive reports a transfer from a deactivated sender.
	ErrAccountInactive = errors.New("account is deactivated")
)

// Result describes a completed transfer.
type Result struct {
	Out           ledger.Entry    `json:"out"`
	SenderBalance decimal.Decimal `json:"sender_balance"`
	RecipientName string          `json:"recipient_name"`
}

// Service moves funds between accounts.
type Service struct {
	accounts storage.AccountStore
	balances storage.BalanceStore
	notifier notify.Notifier
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a transfer service.
func New(accounts storage.AccountStore, balances storage.BalanceStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("transfers")
	}
	return &Service{
		accounts: accounts,
		balances: balances,
		notifier: notify.NewLogNotifier(log),
		log:      log,
		now:      time.Now,
	}
}

// WithNotifier replaces the default log notifier.
func (s *Service) WithNotifier(n notify.Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// Lookup resolves a wallet ID to its account for pre-transfer confirmation.
// The caller's own wallet resolves to ErrSelfTransfer so the UI can reject
// early.
func (s *Service) Lookup(ctx context.Context, senderAccountID, walletID string) (account.Account, error) {
	recipient, err := s.accounts.GetAccountByWalletID(ctx, normalizeWalletID(walletID))
	if err != nil {
		return account.Account{}, err
	}
	if recipient.ID == senderAccountID {
		return account.Account{}, ErrSelfTransfer
	}
	return recipient, nil
}

// Transfer moves amount from the sender to the wallet ID's owner. The debit,
// credit and both ledger entries commit as one unit; a failure anywhere
// leaves every balance untouched.
func (s *Service) Transfer(ctx context.Context, senderAccountID, recipientWalletID string, amount decimal.Decimal, note string) (Result, error) {
	if !amount.IsPositive() {
		return Result{}, ErrInvalidAmount
	}

	sender, err := s.accounts.GetAccount(ctx, senderAccountID)
	if err != nil {
		return Result{}, fmt.Errorf("sender: %w", err)
	}
	if !sender.Active {
		return Result{}, ErrAccountInactive
	}
	recipient, err := s.accounts.GetAccountByWalletID(ctx, normalizeWalletID(recipientWalletID))
	if err != nil {
		return Result{}, fmt.Errorf("recipient: %w", err)
	}
	if recipient.ID == sender.ID {
		return Result{}, ErrSelfTransfer
	}

	now := s.now().UTC()
	out := ledger.Entry{
		AccountID:   sender.ID,
		Type:        ledger.TypeTransferOut,
		Amount:      amount,
		Status:      ledger.StatusApproved,
		Method:      ledger.MethodInternal,
		Description: fmt.Sprintf("Transfer to %s (%s)", recipient.Name, recipient.WalletID),
		AdminNotes:  note,
		ProcessedAt: now,
	}
	in := ledger.Entry{
		AccountID:   recipient.ID,
		Type:        ledger.TypeTransferIn,
		Amount:      amount,
		Status:      ledger.StatusApproved,
		Method:      ledger.MethodInternal,
		Description: fmt.Sprintf("Transfer from %s (%s)", sender.Name, sender.WalletID),
		AdminNotes:  note,
		ProcessedAt: now,
	}

	storedOut, senderAfter, _, err := s.balances.ApplyTransfer(ctx, sender.ID, recipient.ID, amount, out, in)
	if err != nil {
		return Result{}, err
	}
	out = storedOut
	metrics.CountLedgerEntry(string(ledger.TypeTransferOut))
	metrics.CountLedgerEntry(string(ledger.TypeTransferIn))

	if err := s.notifier.TransferReceived(ctx, in, sender.Name); err != nil {
		s.log.WithError(err).WithField("recipient_id", recipient.ID).Warn("transfer notification failed")
	}

	s.log.WithField("sender_id", sender.ID).
		WithField("recipient_id", recipient.ID).
		WithField("amount", amount).
		Info("transfer completed")
	return Result{Out: out, SenderBalance: senderAfter.Balance, RecipientName: recipient.Name}, nil
}

func normalizeWalletID(walletID string) string {
	return strings.ToUpper(strings.TrimSpace(walletID))
}
