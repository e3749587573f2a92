package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/catalog"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
)

// AccountFilter narrows account listings.
type AccountFilter struct {
	Search string // matches name or email, case-insensitive
	Active *bool
}

// InvestmentFilter narrows investment listings.
type InvestmentFilter struct {
	AccountID string
	Status    investment.Status
}

// EntryFilter narrows ledger listings.
type EntryFilter struct {
	AccountID string
	Type      ledger.Type
	Status    ledger.Status
}

// AccountStore persists account records. Updates use optimistic versioning:
// a mismatched Version fails with ErrVersionConflict.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	GetAccountByWalletID(ctx context.Context, walletID string) (account.Account, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]account.Account, error)
}

// PackageStore persists the catalog of investable plans.
type PackageStore interface {
	CreatePackage(ctx context.Context, pkg catalog.Package) (catalog.Package, error)
	UpdatePackage(ctx context.Context, pkg catalog.Package) (catalog.Package, error)
	GetPackage(ctx context.Context, id string) (catalog.Package, error)
	ListPackages(ctx context.Context, onlyActive bool) ([]catalog.Package, error)
	DeletePackage(ctx context.Context, id string) error
}

// InvestmentStore persists investment records. Investments are never
// deleted; UpdateInvestment uses optimistic versioning like accounts.
type InvestmentStore interface {
	UpdateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error)
	GetInvestment(ctx context.Context, id string) (investment.Investment, error)
	ListInvestments(ctx context.Context, filter InvestmentFilter) ([]investment.Investment, error)
	// ListOpenInvestments returns investments still subject to accrual
	// passes, i.e. status pending or active.
	ListOpenInvestments(ctx context.Context) ([]investment.Investment, error)
}

// LedgerStore persists append-only ledger entries.
type LedgerStore interface {
	CreateEntry(ctx context.Context, entry ledger.Entry) (ledger.Entry, error)
	GetEntry(ctx context.Context, id string) (ledger.Entry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]ledger.Entry, error)
}

// BalanceStore groups the compound mutations behind every balance-affecting
// flow. Each method applies its balance change together with its ledger
// append (and investment write, where applicable) as one atomic unit: either
// everything is durably recorded or nothing is.
type BalanceStore interface {
	// OpenInvestment debits the owning account by inv.Amount, creates the
	// investment record and appends the initiating entry. Fails with
	// ErrInsufficientBalance leaving no trace.
	OpenInvestment(ctx context.Context, inv investment.Investment, entry ledger.Entry) (investment.Investment, account.Account, error)

	// SettleInvestment persists a completed investment, credits the owning
	// account by inv.CurrentValue and appends the return entry. If the
	// stored record is already completed it fails with ErrAlreadySettled and
	// applies nothing, so concurrent passes cannot double-credit.
	SettleInvestment(ctx context.Context, inv investment.Investment, entry ledger.Entry) (investment.Investment, account.Account, error)

	// ApplyEntryDecision moves a pending entry to approved or rejected and,
	// on approval, applies the balance effect (credit for deposits, debit of
	// the full amount for withdrawals). Non-pending entries fail with
	// ErrAlreadyProcessed.
	ApplyEntryDecision(ctx context.Context, entryID string, decision ledger.Status, processedBy, notes string, now time.Time) (ledger.Entry, account.Account, error)

	// ApplyTransfer debits the sender, credits the recipient and appends
	// both entries in one unit.
	ApplyTransfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal, out, in ledger.Entry) (ledger.Entry, account.Account, account.Account, error)

	// AdjustBalance applies an administrative delta (negative deltas are
	// balance-checked) and, unless entry is nil, appends the audit entry.
	AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal, entry *ledger.Entry) (account.Account, error)
}

// StatsStore exposes the typed aggregations used by user and admin views.
type StatsStore interface {
	InvestmentStats(ctx context.Context, accountID string) (InvestmentStats, error)
	EntryStats(ctx context.Context, accountID string) (EntryStats, error)
	DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error)
}
