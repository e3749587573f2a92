package transfers

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/storage"
	"github.com/mctcapital/invest_layer/internal/app/storage/memory"
)

func newFixture(t *testing.T) (*Service, *memory.Store, account.Account, account.Account) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	sender, err := store.CreateAccount(ctx, account.Account{
		Email:    "sender@example.com",
		Name:     "Sender",
		WalletID: "MCT10A",
		Balance:  decimal.NewFromInt(1000),
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create sender: %v", err)
	}
	recipient, err := store.CreateAccount(ctx, account.Account{
		Email:    "recipient@example.com",
		Name:     "Recipient",
		WalletID: "MCT20B",
		Balance:  decimal.NewFromInt(100),
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create recipient: %v", err)
	}
	return New(store, store, nil), store, sender, recipient
}

func TestService_TransferConservation(t *testing.T) {
	svc, store, sender, recipient := newFixture(t)
	ctx := context.Background()

	result, err := svc.Transfer(ctx, sender.ID, recipient.WalletID, decimal.NewFromInt(400), "rent")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !result.SenderBalance.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("sender balance = %s, want 600", result.SenderBalance)
	}
	if result.RecipientName != "Recipient" {
		t.Fatalf("recipient name = %q", result.RecipientName)
	}
	if result.Out.Reference == "" || result.Out.ID == "" {
		t.Fatalf("out entry not persisted: %+v", result.Out)
	}

	after, _ := store.GetAccount(ctx, recipient.ID)
	if !after.Balance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("recipient balance = %s, want 500", after.Balance)
	}

	// total funds are conserved
	senderAfter, _ := store.GetAccount(ctx, sender.ID)
	total := senderAfter.Balance.Add(after.Balance)
	if !total.Equal(decimal.NewFromInt(1100)) {
		t.Fatalf("total funds = %s, want 1100", total)
	}

	outs, _ := store.ListEntries(ctx, storage.EntryFilter{AccountID: sender.ID, Type: ledger.TypeTransferOut})
	ins, _ := store.ListEntries(ctx, storage.EntryFilter{AccountID: recipient.ID, Type: ledger.TypeTransferIn})
	if len(outs) != 1 || len(ins) != 1 {
		t.Fatalf("entries: out=%d in=%d, want 1 each", len(outs), len(ins))
	}
	if !outs[0].Amount.Equal(ins[0].Amount) {
		t.Fatalf("entry amounts differ: %s vs %s", outs[0].Amount, ins[0].Amount)
	}
}

func TestService_TransferValidation(t *testing.T) {
	svc, store, sender, _ := newFixture(t)
	ctx := context.Background()

	if _, err := svc.Transfer(ctx, sender.ID, sender.WalletID, decimal.NewFromInt(10), ""); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("self transfer: got %v", err)
	}
	if _, err := svc.Transfer(ctx, sender.ID, "MCT20B", decimal.Zero, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
	if _, err := svc.Transfer(ctx, sender.ID, "MCT99Z", decimal.NewFromInt(10), ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown wallet: got %v", err)
	}
	if _, err := svc.Transfer(ctx, sender.ID, "MCT20B", decimal.NewFromInt(5000), ""); !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("over balance: got %v", err)
	}

	// failed transfers leave no entries behind
	entries, _ := store.ListEntries(ctx, storage.EntryFilter{AccountID: sender.ID})
	if len(entries) != 0 {
		t.Fatalf("failed transfers wrote %d entries", len(entries))
	}
}

func TestService_InactiveSenderBlocked(t *testing.T) {
	svc, store, sender, recipient := newFixture(t)
	ctx := context.Background()

	deactivated := sender
	deactivated.Active = false
	if _, err := store.UpdateAccount(ctx, deactivated); err != nil {
		t.Fatalf("deactivate sender: %v", err)
	}

	if _, err := svc.Transfer(ctx, sender.ID, recipient.WalletID, decimal.NewFromInt(100), ""); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("transfer from inactive sender: got %v", err)
	}

	after, _ := store.GetAccount(ctx, recipient.ID)
	if !after.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("recipient balance = %s, want 100", after.Balance)
	}
	entries, _ := store.ListEntries(ctx, storage.EntryFilter{})
	if len(entries) != 0 {
		t.Fatalf("blocked transfer wrote %d entries", len(entries))
	}
}

func TestService_Lookup(t *testing.T) {
	svc, _, sender, recipient := newFixture(t)
	ctx := context.Background()

	found, err := svc.Lookup(ctx, sender.ID, " mct20b ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.ID != recipient.ID {
		t.Fatalf("lookup returned %s, want %s", found.ID, recipient.ID)
	}

	if _, err := svc.Lookup(ctx, sender.ID, sender.WalletID); !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("own wallet lookup: got %v", err)
	}
}
