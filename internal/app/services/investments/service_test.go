package investments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/catalog"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/storage"
	"github.com/mctcapital/invest_layer/internal/app/storage/memory"
)

func newFixture(t *testing.T) (*Service, *memory.Store, account.Account, catalog.Package) {
	t.Helper()
	store := memory.New()

	acct, err := store.CreateAccount(context.Background(), account.Account{
		Email:    "investor@example.com",
		Name:     "Investor",
		WalletID: "MCT01A",
		Balance:  decimal.NewFromInt(5000),
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	pkg, err := store.CreatePackage(context.Background(), catalog.Package{
		Name:         "Starter",
		MinAmount:    decimal.NewFromInt(100),
		MaxAmount:    decimal.NewFromInt(10000),
		DurationDays: 5,
		ROIPercent:   decimal.NewFromInt(10),
		RiskLevel:    catalog.RiskLow,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("create package: %v", err)
	}

	svc := New(store, store, store, store, store, nil)
	return svc, store, acct, pkg
}

func TestService_CreateDebitsPrincipal(t *testing.T) {
	svc, store, acct, pkg := newFixture(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("create investment: %v", err)
	}
	if inv.Status != investment.StatusPending {
		t.Fatalf("status = %s, want pending", inv.Status)
	}
	if !inv.CurrentValue.Equal(inv.Amount) {
		t.Fatalf("initial value = %s, want %s", inv.CurrentValue, inv.Amount)
	}
	if !inv.EndDate.Equal(inv.StartDate.AddDate(0, 0, pkg.DurationDays)) {
		t.Fatalf("end date %s does not match duration", inv.EndDate)
	}

	after, err := store.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !after.Balance.Equal(decimal.NewFromInt(4000)) {
		t.Fatalf("balance = %s, want 4000", after.Balance)
	}

	entries, err := store.ListEntries(ctx, storage.EntryFilter{AccountID: acct.ID, Type: ledger.TypeInvestment})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].InvestmentID != inv.ID || entries[0].Status != ledger.StatusApproved {
		t.Fatalf("entry not linked to investment: %+v", entries[0])
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, store, acct, pkg := newFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(50)); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("below minimum: got %v", err)
	}
	if _, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(20000)); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("above maximum: got %v", err)
	}
	if _, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(6000)); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("insufficient balance: got %v", err)
	}

	// a failed creation must leave no trace
	after, _ := store.GetAccount(ctx, acct.ID)
	if !after.Balance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("balance changed after failed creation: %s", after.Balance)
	}
	entries, _ := store.ListEntries(ctx, storage.EntryFilter{AccountID: acct.ID})
	if len(entries) != 0 {
		t.Fatalf("entries written after failed creation: %d", len(entries))
	}

	pkg.Active = false
	if _, err := store.UpdatePackage(ctx, pkg); err != nil {
		t.Fatalf("deactivate package: %v", err)
	}
	if _, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(1000)); !errors.Is(err, ErrPackageInactive) {
		t.Fatalf("inactive package: got %v", err)
	}
}

func TestService_ApproveTransitions(t *testing.T) {
	svc, _, acct, pkg := newFixture(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	approved, err := svc.Approve(ctx, inv.ID, "admin-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != investment.StatusActive {
		t.Fatalf("status = %s, want active", approved.Status)
	}
	if approved.ApprovedBy != "admin-1" || approved.ApprovedAt.IsZero() {
		t.Fatalf("approval audit fields missing: %+v", approved)
	}

	if _, err := svc.Approve(ctx, inv.ID, "admin-2"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double approval: got %v", err)
	}
}

func TestService_CancelMovesNoFunds(t *testing.T) {
	svc, store, acct, pkg := newFixture(t)
	ctx := context.Background()

	inv, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, inv.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != investment.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	after, _ := store.GetAccount(ctx, acct.ID)
	if !after.Balance.Equal(decimal.NewFromInt(4000)) {
		t.Fatalf("cancellation must not move funds, balance = %s", after.Balance)
	}

	if _, err := svc.Cancel(ctx, inv.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancelling a cancelled investment: got %v", err)
	}
}

func TestService_GetRevaluesActive(t *testing.T) {
	svc, _, acct, pkg := newFixture(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return start })

	inv, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Approve(ctx, inv.ID, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	svc.WithClock(func() time.Time { return start.AddDate(0, 0, 3) })
	got, err := svc.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.CurrentValue.Equal(decimal.NewFromInt(1060)) {
		t.Fatalf("value after 3 days = %s, want 1060", got.CurrentValue)
	}
	if got.Status != investment.StatusActive {
		t.Fatalf("status = %s, want active", got.Status)
	}
}

func TestService_SettlementCreditsOnce(t *testing.T) {
	svc, store, acct, pkg := newFixture(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return start })

	inv, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Approve(ctx, inv.ID, "admin-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	svc.WithClock(func() time.Time { return start.AddDate(0, 0, 7) })
	got, err := svc.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get past end date: %v", err)
	}
	if got.Status != investment.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if !got.CurrentValue.Equal(decimal.NewFromInt(1100)) {
		t.Fatalf("final value = %s, want 1100", got.CurrentValue)
	}

	after, _ := store.GetAccount(ctx, acct.ID)
	if !after.Balance.Equal(decimal.NewFromInt(5100)) {
		t.Fatalf("balance after settlement = %s, want 5100", after.Balance)
	}

	// repeated reads must not credit again
	if _, err := svc.Get(ctx, inv.ID); err != nil {
		t.Fatalf("second get: %v", err)
	}
	after, _ = store.GetAccount(ctx, acct.ID)
	if !after.Balance.Equal(decimal.NewFromInt(5100)) {
		t.Fatalf("double settlement, balance = %s", after.Balance)
	}

	returns, err := store.ListEntries(ctx, storage.EntryFilter{AccountID: acct.ID, Type: ledger.TypeReturn})
	if err != nil {
		t.Fatalf("list return entries: %v", err)
	}
	if len(returns) != 1 {
		t.Fatalf("return entries = %d, want 1", len(returns))
	}
	if !returns[0].Amount.Equal(decimal.NewFromInt(1100)) {
		t.Fatalf("return entry amount = %s, want 1100", returns[0].Amount)
	}
}

func TestService_RunAccrualPass(t *testing.T) {
	svc, _, acct, pkg := newFixture(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return start })

	first, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.Approve(ctx, first.ID, "admin-1"); err != nil {
		t.Fatalf("approve first: %v", err)
	}
	second, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	report, err := svc.RunAccrualPass(ctx, start.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("accrual pass: %v", err)
	}
	if report.Examined != 2 {
		t.Fatalf("examined = %d, want 2", report.Examined)
	}
	if report.Completed != 1 {
		t.Fatalf("completed = %d, want 1", report.Completed)
	}
	if report.Failed != 0 {
		t.Fatalf("failed = %d, want 0", report.Failed)
	}

	// the pending investment is untouched by the pass
	got, err := svc.Get(ctx, second.ID)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if got.Status != investment.StatusPending {
		t.Fatalf("pending investment mutated: %s", got.Status)
	}
}

func TestService_StatsRollup(t *testing.T) {
	svc, _, acct, pkg := newFixture(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, acct.ID, pkg.ID, decimal.NewFromInt(500)); err != nil {
		t.Fatalf("create: %v", err)
	}

	stats, err := svc.Stats(ctx, acct.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("total = %d, want 2", stats.Total)
	}
	if !stats.TotalInvested.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("total invested = %s, want 1500", stats.TotalInvested)
	}
}
