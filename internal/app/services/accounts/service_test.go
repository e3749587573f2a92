package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/storage"
	"github.com/mctcapital/invest_layer/internal/app/storage/memory"
)

var walletIDPattern = regexp.MustCompile(`^MCT[0-9]{2}[A-Z]$`)

func TestService_Create(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	acct, err := svc.Create(ctx, " Investor@Example.COM ", "Investor")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acct.Email != "investor@example.com" {
		t.Fatalf("email not normalised: %s", acct.Email)
	}
	if !walletIDPattern.MatchString(acct.WalletID) {
		t.Fatalf("wallet id %q does not match expected format", acct.WalletID)
	}
	if !acct.Balance.IsZero() {
		t.Fatalf("new account balance = %s, want 0", acct.Balance)
	}
	if !acct.Active {
		t.Fatal("new account should be active")
	}

	if _, err := svc.Create(ctx, "investor@example.com", "Other"); !errors.Is(err, storage.ErrDuplicate) {
		t.Fatalf("duplicate email: got %v", err)
	}
	if _, err := svc.Create(ctx, "not-an-email", "X"); err == nil {
		t.Fatal("invalid email accepted")
	}
}

// collidingStore fakes wallet-id unique violations for the first few creates.
type collidingStore struct {
	*memory.Store
	collisions int
}

func (s *collidingStore) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if s.collisions > 0 {
		s.collisions--
		return account.Account{}, fmt.Errorf("wallet id %s: %w", acct.WalletID, storage.ErrWalletIDInUse)
	}
	return s.Store.CreateAccount(ctx, acct)
}

func TestService_WalletIDCollisionRetry(t *testing.T) {
	mem := memory.New()
	store := &collidingStore{Store: mem, collisions: 2}
	svc := New(store, mem, nil)
	ctx := context.Background()

	acct, err := svc.Create(ctx, "retry@example.com", "Retry")
	if err != nil {
		t.Fatalf("create with colliding wallet ids: %v", err)
	}
	if !walletIDPattern.MatchString(acct.WalletID) {
		t.Fatalf("wallet id %q does not match expected format", acct.WalletID)
	}
}

func TestService_GetByWalletID(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	acct, err := svc.Create(ctx, "a@example.com", "A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := svc.GetByWalletID(ctx, "  "+acct.WalletID+"  ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != acct.ID {
		t.Fatalf("lookup returned %s, want %s", found.ID, acct.ID)
	}

	if _, err := svc.GetByWalletID(ctx, "MCT99Z"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown wallet: got %v", err)
	}
}

func TestService_AdjustBalance(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	acct, err := svc.Create(ctx, "a@example.com", "A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	after, err := svc.AdjustBalance(ctx, acct.ID, decimal.NewFromInt(250), "admin-1", "welcome bonus", false)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if !after.Balance.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("balance = %s, want 250", after.Balance)
	}

	bonuses, err := store.ListEntries(ctx, storage.EntryFilter{AccountID: acct.ID, Type: ledger.TypeBonus})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(bonuses) != 1 {
		t.Fatalf("bonus entries = %d, want 1", len(bonuses))
	}
	if bonuses[0].ProcessedBy != "admin-1" {
		t.Fatalf("processed_by = %q, want admin-1", bonuses[0].ProcessedBy)
	}

	after, err = svc.AdjustBalance(ctx, acct.ID, decimal.NewFromInt(-100), "admin-1", "correction", false)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !after.Balance.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("balance = %s, want 150", after.Balance)
	}
	withdrawals, _ := store.ListEntries(ctx, storage.EntryFilter{AccountID: acct.ID, Type: ledger.TypeWithdrawal})
	if len(withdrawals) != 1 {
		t.Fatalf("withdrawal entries = %d, want 1", len(withdrawals))
	}

	if _, err := svc.AdjustBalance(ctx, acct.ID, decimal.NewFromInt(-10000), "admin-1", "", false); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("overdraft: got %v", err)
	}
	if _, err := svc.AdjustBalance(ctx, acct.ID, decimal.Zero, "admin-1", "", false); !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("zero delta: got %v", err)
	}
}

func TestService_AdjustBalanceSilent(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	acct, err := svc.Create(ctx, "a@example.com", "A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	after, err := svc.AdjustBalance(ctx, acct.ID, decimal.NewFromInt(50), "admin-1", "", true)
	if err != nil {
		t.Fatalf("silent credit: %v", err)
	}
	if !after.Balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("balance = %s, want 50", after.Balance)
	}
	entries, _ := store.ListEntries(ctx, storage.EntryFilter{AccountID: acct.ID})
	if len(entries) != 0 {
		t.Fatalf("silent adjustment wrote %d entries", len(entries))
	}
}

func TestService_SetActive(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	acct, err := svc.Create(ctx, "a@example.com", "A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	disabled, err := svc.SetActive(ctx, acct.ID, false)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if disabled.Active {
		t.Fatal("account still active")
	}

	// no-op toggle returns the current state without a store write
	again, err := svc.SetActive(ctx, acct.ID, false)
	if err != nil {
		t.Fatalf("repeated deactivate: %v", err)
	}
	if again.Version != disabled.Version {
		t.Fatalf("no-op toggle bumped version: %d -> %d", disabled.Version, again.Version)
	}
}
