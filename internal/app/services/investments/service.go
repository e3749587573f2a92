// Package investments manages the investment lifecycle: creation against a
// catalog package, valuation, completion and settlement back to the owning
// account.
package investments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/catalog"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/metrics"
	"github.com/mctcapital/invest_layer/internal/app/notify"
	"github.com/mctcapital/invest_layer/internal/app/storage"
	"github.com/mctcapital/invest_layer/pkg/logger"
)

var (
	// ErrAmountOutOfRange reports an investment amount outside the package
	// bounds.
	ErrAmountOutOfRange = errors.New("amount outside package bounds")
	// ErrPackageInactive reports an attempt to invest in a disabled package.
	ErrPackageInactive = errors.New("package is not active")
	// ErrAccountInactive reports an operation initiated by a deactivated
	// account.
	ErrAccountInactive = errors.New("account is not active")
	// ErrInvalidTransition reports a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// casRetries bounds how often a valuation write is retried after losing an
// optimistic-concurrency race against a concurrent pass.
const casRetries = 3

// Service manages investments.
type Service struct {
	accounts storage.AccountStore
	packages storage.PackageStore
	store    storage.InvestmentStore
	balances storage.BalanceStore
	stats    storage.StatsStore
	notifier notify.Notifier
	log      *logger.Logger
	now      func() time.Time
}

// New constructs an investment service.
func New(accounts storage.AccountStore, packages storage.PackageStore, store storage.InvestmentStore, balances storage.BalanceStore, stats storage.StatsStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("investments")
	}
	return &Service{
		accounts: accounts,
		packages: packages,
		store:    store,
		balances: balances,
		stats:    stats,
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

// WithClock overrides the wall clock; tests use it to control elapsed days.
func (s *Service) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create opens a new investment: the principal is debited from the account
// and the initiating ledger entry written atomically with the investment
// record. The investment starts pending until an administrator approves it.
func (s *Service) Create(ctx context.Context, accountID, packageID string, amount decimal.Decimal) (investment.Investment, error) {
	accountID = strings.TrimSpace(accountID)
	packageID = strings.TrimSpace(packageID)
	if accountID == "" || packageID == "" {
		return investment.Investment{}, fmt.Errorf("account_id and package_id are required")
	}

	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return investment.Investment{}, fmt.Errorf("account validation failed: %w", err)
	}
	if !acct.Active {
		return investment.Investment{}, ErrAccountInactive
	}

	pkg, err := s.packages.GetPackage(ctx, packageID)
	if err != nil {
		return investment.Investment{}, fmt.Errorf("package validation failed: %w", err)
	}
	if !pkg.Active {
		return investment.Investment{}, ErrPackageInactive
	}
	if amount.LessThan(pkg.MinAmount) || amount.GreaterThan(pkg.MaxAmount) {
		return investment.Investment{}, fmt.Errorf("%w: must be between %s and %s", ErrAmountOutOfRange, pkg.MinAmount, pkg.MaxAmount)
	}

	start := s.now().UTC()
	inv := investment.Investment{
		AccountID:      accountID,
		PackageID:      packageID,
		Amount:         amount,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, pkg.DurationDays),
		CurrentValue:   amount,
		DailyReturn:    decimal.Zero,
		TotalReturns:   decimal.Zero,
		Status:         investment.StatusPending,
		LastCalculated: start,
	}
	entry := ledger.Entry{
		AccountID:   accountID,
		Type:        ledger.TypeInvestment,
		Amount:      amount,
		Status:      ledger.StatusApproved,
		Method:      ledger.MethodCrypto,
		Description: fmt.Sprintf("Investment in %s", pkg.Name),
	}

	inv, _, err = s.balances.OpenInvestment(ctx, inv, entry)
	if err != nil {
		return investment.Investment{}, err
	}
	metrics.CountLedgerEntry(string(ledger.TypeInvestment))

	s.log.WithField("investment_id", inv.ID).
		WithField("account_id", accountID).
		WithField("package_id", packageID).
		WithField("amount", amount).
		Info("investment created")
	return inv, nil
}

// Approve activates a pending investment and records the approving admin.
func (s *Service) Approve(ctx context.Context, id, adminID string) (investment.Investment, error) {
	inv, err := s.store.GetInvestment(ctx, id)
	if err != nil {
		return investment.Investment{}, err
	}
	if !inv.Status.CanTransitionTo(investment.StatusActive) {
		return investment.Investment{}, fmt.Errorf("%w: %s -> active", ErrInvalidTransition, inv.Status)
	}

	now := s.now().UTC()
	inv.Status = investment.StatusActive
	inv.ApprovedBy = adminID
	inv.ApprovedAt = now

	inv, err = s.store.UpdateInvestment(ctx, inv)
	if err != nil {
		return investment.Investment{}, err
	}
	s.log.WithField("investment_id", inv.ID).
		WithField("admin_id", adminID).
		Info("investment approved")
	return inv, nil
}

// Cancel terminates a pending or active investment. No funds move: refunds,
// when warranted, go through the administrative balance adjustment.
func (s *Service) Cancel(ctx context.Context, id string) (investment.Investment, error) {
	inv, err := s.store.GetInvestment(ctx, id)
	if err != nil {
		return investment.Investment{}, err
	}
	if !inv.Status.CanTransitionTo(investment.StatusCancelled) {
		return investment.Investment{}, fmt.Errorf("%w: %s -> cancelled", ErrInvalidTransition, inv.Status)
	}

	inv.Status = investment.StatusCancelled
	inv, err = s.store.UpdateInvestment(ctx, inv)
	if err != nil {
		return investment.Investment{}, err
	}
	s.log.WithField("investment_id", inv.ID).Info("investment cancelled")
	return inv, nil
}

// Get returns a single investment, revalued as of now.
func (s *Service) Get(ctx context.Context, id string) (investment.Investment, error) {
	inv, err := s.store.GetInvestment(ctx, id)
	if err != nil {
		return investment.Investment{}, err
	}
	inv, _, err = s.refresh(ctx, inv, s.now())
	return inv, err
}

// List returns investments matching the filter, each revalued as of now.
// Reads are a second valuation trigger besides the accrual runner, so the
// refresh path must tolerate racing a concurrent pass.
func (s *Service) List(ctx context.Context, filter storage.InvestmentFilter) ([]investment.Investment, error) {
	invs, err := s.store.ListInvestments(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range invs {
		refreshed, _, err := s.refresh(ctx, invs[i], now)
		if err != nil {
			s.log.WithError(err).
				WithField("investment_id", invs[i].ID).
				Warn("revalue on read failed")
			continue
		}
		invs[i] = refreshed
	}
	return invs, nil
}

// Revalue runs a single-investment valuation pass on demand.
func (s *Service) Revalue(ctx context.Context, id string) (investment.Investment, error) {
	return s.Get(ctx, id)
}

// Stats returns the per-status investment rollup for an account.
func (s *Service) Stats(ctx context.Context, accountID string) (storage.InvestmentStats, error) {
	return s.stats.InvestmentStats(ctx, accountID)
}

// refresh valuates an active investment and persists the result, settling it
// when the pass crossed the end date. It reports whether this call settled
// the investment. Lost optimistic-concurrency races are retried against a
// re-read record; a concurrent settlement surfaces as ErrAlreadySettled and
// is resolved by returning the stored record.
func (s *Service) refresh(ctx context.Context, inv investment.Investment, now time.Time) (investment.Investment, bool, error) {
	if inv.Status != investment.StatusActive {
		return inv, false, nil
	}

	pkg, err := s.packages.GetPackage(ctx, inv.PackageID)
	if err != nil {
		return investment.Investment{}, false, fmt.Errorf("load package: %w", err)
	}

	for attempt := 0; ; attempt++ {
		updated := Valuate(inv, pkg, now)

		if updated.Status == investment.StatusCompleted {
			settled, err := s.settle(ctx, updated, pkg)
			if err == nil {
				return settled, true, nil
			}
			if errors.Is(err, storage.ErrAlreadySettled) {
				stored, getErr := s.store.GetInvestment(ctx, inv.ID)
				if getErr != nil {
					return investment.Investment{}, false, getErr
				}
				return stored, false, nil
			}
			if errors.Is(err, storage.ErrVersionConflict) && attempt < casRetries {
				if inv, err = s.store.GetInvestment(ctx, inv.ID); err != nil {
					return investment.Investment{}, false, err
				}
				if inv.Status != investment.StatusActive {
					return inv, false, nil
				}
				continue
			}
			return investment.Investment{}, false, err
		}

		persisted, err := s.store.UpdateInvestment(ctx, updated)
		if err == nil {
			return persisted, false, nil
		}
		if errors.Is(err, storage.ErrVersionConflict) && attempt < casRetries {
			if inv, err = s.store.GetInvestment(ctx, inv.ID); err != nil {
				return investment.Investment{}, false, err
			}
			if inv.Status != investment.StatusActive {
				return inv, false, nil
			}
			continue
		}
		return investment.Investment{}, false, err
	}
}

// settle credits the final accrued value back to the account together with
// the return entry, in one atomic unit.
func (s *Service) settle(ctx context.Context, inv investment.Investment, pkg catalog.Package) (investment.Investment, error) {
	entry := ledger.Entry{
		AccountID:   inv.AccountID,
		Type:        ledger.TypeReturn,
		Amount:      inv.CurrentValue,
		Status:      ledger.StatusApproved,
		Method:      ledger.MethodInternal,
		Description: fmt.Sprintf("Return on %s investment", pkg.Name),
		ProcessedAt: s.now().UTC(),
	}

	settled, _, err := s.balances.SettleInvestment(ctx, inv, entry)
	if err != nil {
		return investment.Investment{}, err
	}
	metrics.CountLedgerEntry(string(ledger.TypeReturn))

	if err := s.notifier.InvestmentCompleted(ctx, settled, pkg.Name); err != nil {
		s.log.WithError(err).WithField("investment_id", settled.ID).Warn("completion notification failed")
	}

	s.log.WithField("investment_id", settled.ID).
		WithField("account_id", settled.AccountID).
		WithField("payout", settled.CurrentValue).
		Info("investment settled")
	return settled, nil
}
