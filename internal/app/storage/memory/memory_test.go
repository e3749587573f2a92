package memory

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
)

func seedAccount(t *testing.T, store *Store, balance int64) account.Account {
	t.Helper()
	acct, err := store.CreateAccount(context.Background(), account.Account{
		Email:    "user@example.com",
		Name:     "User",
		WalletID: "MCT31C",
		Balance:  decimal.NewFromInt(balance),
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acct
}

func TestCreateAccountWalletCollision(t *testing.T) {
	store := New()
	ctx := context.Background()
	seedAccount(t, store, 0)

	_, err := store.CreateAccount(ctx, account.Account{
		Email:    "other@example.com",
		Name:     "Other",
		WalletID: "MCT31C",
	})
	if !errors.Is(err, storage.ErrWalletIDInUse) {
		t.Fatalf("wallet collision: got %v, want ErrWalletIDInUse", err)
	}
	// the specific sentinel still reads as a duplicate
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("wallet collision: got %v, want ErrDuplicate", err)
	}
}

func TestAccountVersionConflict(t *testing.T) {
	store := New()
	ctx := context.Background()
	acct := seedAccount(t, store, 100)

	first := acct
	first.Name = "First"
	if _, err := store.UpdateAccount(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// the second writer still holds the old version
	second := acct
	second.Name = "Second"
	if _, err := store.UpdateAccount(ctx, second); !errors.Is(err, storage.ErrVersionConflict) {
		t.Fatalf("stale update: got %v, want ErrVersionConflict", err)
	}
}

func TestOpenInvestmentAtomicity(t *testing.T) {
	store := New()
	ctx := context.Background()
	acct := seedAccount(t, store, 100)

	inv := investment.Investment{
		AccountID:    acct.ID,
		PackageID:    "pkg-1",
		Amount:       decimal.NewFromInt(500),
		StartDate:    time.Now(),
		EndDate:      time.Now().AddDate(0, 0, 5),
		CurrentValue: decimal.NewFromInt(500),
		Status:       investment.StatusPending,
	}
	entry := ledger.Entry{AccountID: acct.ID, Type: ledger.TypeInvestment, Amount: inv.Amount, Status: ledger.StatusApproved, Method: ledger.MethodCrypto}

	if _, _, err := store.OpenInvestment(ctx, inv, entry); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("over-balance open: got %v", err)
	}

	// the failed unit leaves nothing behind
	after, _ := store.GetAccount(ctx, acct.ID)
	if !after.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance = %s, want 100", after.Balance)
	}
	invs, _ := store.ListInvestments(ctx, storage.InvestmentFilter{AccountID: acct.ID})
	if len(invs) != 0 {
		t.Fatalf("investments = %d, want 0", len(invs))
	}
	entries, _ := store.ListEntries(ctx, storage.EntryFilter{AccountID: acct.ID})
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}
}

func TestSettleInvestmentRejectsTerminal(t *testing.T) {
	store := New()
	ctx := context.Background()
	acct := seedAccount(t, store, 1000)

	inv := investment.Investment{
		AccountID:    acct.ID,
		PackageID:    "pkg-1",
		Amount:       decimal.NewFromInt(500),
		StartDate:    time.Now(),
		EndDate:      time.Now().AddDate(0, 0, 5),
		CurrentValue: decimal.NewFromInt(500),
		Status:       investment.StatusActive,
	}
	opened, _, err := store.OpenInvestment(ctx, inv, ledger.Entry{
		AccountID: acct.ID, Type: ledger.TypeInvestment, Amount: inv.Amount,
		Status: ledger.StatusApproved, Method: ledger.MethodCrypto,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	opened.Status = investment.StatusCompleted
	opened.CurrentValue = decimal.NewFromInt(550)
	settled, after, err := store.SettleInvestment(ctx, opened, ledger.Entry{
		AccountID: acct.ID, Type: ledger.TypeReturn, Amount: opened.CurrentValue,
		Status: ledger.StatusApproved, Method: ledger.MethodInternal,
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != investment.StatusCompleted {
		t.Fatalf("status = %s", settled.Status)
	}
	if !after.Balance.Equal(decimal.NewFromInt(1050)) {
		t.Fatalf("balance = %s, want 1050", after.Balance)
	}

	// a second settlement attempt fails without crediting again
	if _, _, err := store.SettleInvestment(ctx, settled, ledger.Entry{
		AccountID: acct.ID, Type: ledger.TypeReturn, Amount: settled.CurrentValue,
		Status: ledger.StatusApproved, Method: ledger.MethodInternal,
	}); !errors.Is(err, storage.ErrAlreadySettled) {
		t.Fatalf("double settle: got %v", err)
	}
	final, _ := store.GetAccount(ctx, acct.ID)
	if !final.Balance.Equal(decimal.NewFromInt(1050)) {
		t.Fatalf("balance after double settle = %s, want 1050", final.Balance)
	}
}

func TestEntryImmutableOnceDecided(t *testing.T) {
	store := New()
	ctx := context.Background()
	acct := seedAccount(t, store, 0)

	entry, err := store.CreateEntry(ctx, ledger.Entry{
		AccountID: acct.ID, Type: ledger.TypeDeposit, Amount: decimal.NewFromInt(100),
		Status: ledger.StatusPending, Method: ledger.MethodCrypto,
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	if _, _, err := store.ApplyEntryDecision(ctx, entry.ID, ledger.StatusApproved, "admin", "", time.Now()); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, _, err := store.ApplyEntryDecision(ctx, entry.ID, ledger.StatusRejected, "admin", "", time.Now()); !errors.Is(err, storage.ErrAlreadyProcessed) {
		t.Fatalf("redecide: got %v", err)
	}
}

func TestListPackagesFilter(t *testing.T) {
	store := New()
	ctx := context.Background()

	active, err := store.CreatePackage(ctx, catalog.Package{Name: "A", MinAmount: decimal.NewFromInt(1), MaxAmount: decimal.NewFromInt(10), DurationDays: 1, Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreatePackage(ctx, catalog.Package{Name: "B", MinAmount: decimal.NewFromInt(1), MaxAmount: decimal.NewFromInt(10), DurationDays: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.ListPackages(ctx, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Fatalf("active filter returned %d packages", len(got))
	}
}
