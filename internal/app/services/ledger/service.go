// Package ledger manages the append-only transaction ledger and the
// deposit/withdrawal flows that feed it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/metrics"
	"github.com/mctcapital/invest_layer/internal/app/notify"
	"github.com/mctcapital/invest_layer/internal/app/storage"
	"github.com/mctcapital/invest_layer/pkg/logger"
)

var (
	// ErrInvalidAmount reports a non-positive submission amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidDecision reports a processing decision other than approved
	// or rejected.
	ErrInvalidDecision = errors.New("decision must be approved or rejected")
	// ErrAccountInactive reports a submission from a deactivated account.
	ErrAccountInactive = errors.New("account is deactivated")
)

// DefaultWithdrawalFeePercent is the platform fee charged on withdrawals.
var DefaultWithdrawalFeePercent = decimal.NewFromInt(2)

var hundred = decimal.NewFromInt(100)

// Service manages ledger entries.
type Service struct {
	accounts   storage.AccountStore
	store      storage.LedgerStore
	balances   storage.BalanceStore
	stats      storage.StatsStore
	notifier   notify.Notifier
	feePercent decimal.Decimal
	log        *logger.Logger
	now        func() time.Time
}

// New constructs a ledger service charging the given withdrawal fee percent.
// A nil feePercent falls back to the default; an explicit zero disables the
// fee.
func New(accounts storage.AccountStore, store storage.LedgerStore, balances storage.BalanceStore, stats storage.StatsStore, feePercent *decimal.Decimal, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	fee := DefaultWithdrawalFeePercent
	if feePercent != nil {
		fee = *feePercent
	}
	return &Service{
		accounts:   accounts,
		store:      store,
		balances:   balances,
		stats:      stats,
		notifier:   notify.NewLogNotifier(log),
		feePercent: fee,
		log:        log,
		now:        time.Now,
	}
}

// WithNotifier replaces the default log notifier.
func (s *Service) WithNotifier(n notify.Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// SubmitDeposit records a pending deposit. The balance is untouched until an
// administrator approves the entry.
func (s *Service) SubmitDeposit(ctx context.Context, accountID string, amount decimal.Decimal, method ledger.Method, walletAddress string) (ledger.Entry, error) {
	if !amount.IsPositive() {
		return ledger.Entry{}, ErrInvalidAmount
	}
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return ledger.Entry{}, err
	}
	if !acct.Active {
		return ledger.Entry{}, ErrAccountInactive
	}

	entry := ledger.Entry{
		AccountID:     acct.ID,
		Type:          ledger.TypeDeposit,
		Amount:        amount,
		Status:        ledger.StatusPending,
		Method:        method,
		WalletAddress: strings.TrimSpace(walletAddress),
		Description:   fmt.Sprintf("Deposit via %s", method),
	}
	created, err := s.store.CreateEntry(ctx, entry)
	if err != nil {
		return ledger.Entry{}, err
	}
	metrics.CountLedgerEntry(string(ledger.TypeDeposit))

	s.log.WithField("entry_id", created.ID).
		WithField("account_id", acct.ID).
		WithField("amount", amount).
		Info("deposit submitted")
	return created, nil
}

// SubmitWithdrawal records a pending withdrawal carrying the platform fee.
// The available balance is checked at submission for early feedback, but
// funds are not reserved: the balance is re-checked inside the approval.
func (s *Service) SubmitWithdrawal(ctx context.Context, accountID string, amount decimal.Decimal, method ledger.Method, walletAddress string) (ledger.Entry, error) {
	if !amount.IsPositive() {
		return ledger.Entry{}, ErrInvalidAmount
	}
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return ledger.Entry{}, err
	}
	if !acct.Active {
		return ledger.Entry{}, ErrAccountInactive
	}
	if acct.Balance.LessThan(amount) {
		return ledger.Entry{}, fmt.Errorf("balance %s below requested %s: %w", acct.Balance, amount, storage.ErrInsufficientBalance)
	}

	fee := amount.Mul(s.feePercent).Div(hundred)
	entry := ledger.Entry{
		AccountID:     acct.ID,
		Type:          ledger.TypeWithdrawal,
		Amount:        amount,
		Fee:           fee,
		Status:        ledger.StatusPending,
		Method:        method,
		WalletAddress: strings.TrimSpace(walletAddress),
		Description:   fmt.Sprintf("Withdrawal via %s", method),
	}
	created, err := s.store.CreateEntry(ctx, entry)
	if err != nil {
		return ledger.Entry{}, err
	}
	metrics.CountLedgerEntry(string(ledger.TypeWithdrawal))

	s.log.WithField("entry_id", created.ID).
		WithField("account_id", acct.ID).
		WithField("amount", amount).
		WithField("fee", fee).
		Info("withdrawal submitted")
	return created, nil
}

// Process applies an administrative decision to a pending entry. Approval
// moves the funds: deposits credit the full amount, withdrawals debit the
// full requested amount while the account receives the net after fee off
// platform. Entries already decided return storage.ErrAlreadyProcessed.
func (s *Service) Process(ctx context.Context, entryID string, decision ledger.Status, adminID, notes string) (ledger.Entry, error) {
	if decision != ledger.StatusApproved && decision != ledger.StatusRejected {
		return ledger.Entry{}, fmt.Errorf("%w: got %q", ErrInvalidDecision, decision)
	}

	entry, _, err := s.balances.ApplyEntryDecision(ctx, entryID, decision, adminID, notes, s.now().UTC())
	if err != nil {
		return ledger.Entry{}, err
	}

	if err := s.notifier.EntryProcessed(ctx, entry); err != nil {
		s.log.WithError(err).WithField("entry_id", entry.ID).Warn("processing notification failed")
	}

	s.log.WithField("entry_id", entry.ID).
		WithField("decision", decision).
		WithField("admin_id", adminID).
		Info("entry processed")
	return entry, nil
}

// Get returns a single entry.
func (s *Service) Get(ctx context.Context, id string) (ledger.Entry, error) {
	return s.store.GetEntry(ctx, id)
}

// List returns entries matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter storage.EntryFilter) ([]ledger.Entry, error) {
	return s.store.ListEntries(ctx, filter)
}

// Stats returns the per-type/per-status entry rollup for an account.
func (s *Service) Stats(ctx context.Context, accountID string) (storage.EntryStats, error) {
	return s.stats.EntryStats(ctx, accountID)
}

// Dashboard returns the platform-wide rollup used by the admin overview.
func (s *Service) Dashboard(ctx context.Context) (storage.DashboardStats, error) {
	return s.stats.DashboardStats(ctx, s.now().UTC())
}
