package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/storage"
)

// BalanceStore implementation. Every method here holds the store mutex for
// its whole duration so the balance mutation, the ledger append and any
// investment write land together or not at all.

func (s *Store) OpenInvestment(_ context.Context, inv investment.Investment, entry ledger.Entry) (investment.Investment, account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.debitLocked(inv.AccountID, inv.Amount)
	if err != nil {
		return investment.Investment{}, account.Account{}, err
	}

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	} else if _, exists := s.investments[inv.ID]; exists {
		return investment.Investment{}, account.Account{}, fmt.Errorf("investment %s: %w", inv.ID, storage.ErrDuplicate)
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now
	inv.Version = 1
	s.investments[inv.ID] = inv

	entry.InvestmentID = inv.ID
	if _, err := s.createEntryLocked(entry); err != nil {
		// the debited balance was never stored, so dropping the investment
		// rolls the whole unit back
		delete(s.investments, inv.ID)
		return investment.Investment{}, account.Account{}, err
	}

	s.accounts[acct.ID] = acct
	return inv, acct, nil
}

func (s *Store) SettleInvestment(_ context.Context, inv investment.Investment, entry ledger.Entry) (investment.Investment, account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.investments[inv.ID]
	if !ok {
		return investment.Investment{}, account.Account{}, fmt.Errorf("investment %s: %w", inv.ID, storage.ErrNotFound)
	}
	if stored.Status.Terminal() {
		return investment.Investment{}, account.Account{}, fmt.Errorf("investment %s: %w", inv.ID, storage.ErrAlreadySettled)
	}
	if stored.Version != inv.Version {
		return investment.Investment{}, account.Account{}, fmt.Errorf("investment %s: %w", inv.ID, storage.ErrVersionConflict)
	}

	acct, ok := s.accounts[inv.AccountID]
	if !ok {
		return investment.Investment{}, account.Account{}, fmt.Errorf("account %s: %w", inv.AccountID, storage.ErrNotFound)
	}

	entry.InvestmentID = inv.ID
	if _, err := s.createEntryLocked(entry); err != nil {
		return investment.Investment{}, account.Account{}, err
	}

	updated, err := s.updateInvestmentLocked(inv)
	if err != nil {
		return investment.Investment{}, account.Account{}, err
	}

	acct.Balance = acct.Balance.Add(inv.CurrentValue)
	acct.UpdatedAt = time.Now().UTC()
	acct.Version++
	s.accounts[acct.ID] = acct

	return updated, acct, nil
}

func (s *Store) ApplyEntryDecision(_ context.Context, entryID string, decision ledger.Status, processedBy, notes string, now time.Time) (ledger.Entry, account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return ledger.Entry{}, account.Account{}, fmt.Errorf("entry %s: %w", entryID, storage.ErrNotFound)
	}
	if entry.Status != ledger.StatusPending {
		return ledger.Entry{}, account.Account{}, fmt.Errorf("entry %s: %w", entryID, storage.ErrAlreadyProcessed)
	}

	acct, ok := s.accounts[entry.AccountID]
	if !ok {
		return ledger.Entry{}, account.Account{}, fmt.Errorf("account %s: %w", entry.AccountID, storage.ErrNotFound)
	}

	if decision == ledger.StatusApproved {
		switch entry.Type {
		case ledger.TypeDeposit:
			acct.Balance = acct.Balance.Add(entry.Amount)
		case ledger.TypeWithdrawal:
			// the full requested amount is debited; the fee stays with the
			// platform and only NetAmount leaves over the wire
			if acct.Balance.LessThan(entry.Amount) {
				return ledger.Entry{}, account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrInsufficientBalance)
			}
			acct.Balance = acct.Balance.Sub(entry.Amount)
		}
		acct.UpdatedAt = now.UTC()
		acct.Version++
		s.accounts[acct.ID] = acct
	}

	entry.Status = decision
	entry.AdminNotes = notes
	entry.ProcessedBy = processedBy
	entry.ProcessedAt = now.UTC()
	entry.UpdatedAt = now.UTC()
	s.entries[entry.ID] = entry

	return entry, acct, nil
}

func (s *Store) ApplyTransfer(_ context.Context, senderID, recipientID string, amount decimal.Decimal, out, in ledger.Entry) (ledger.Entry, account.Account, account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.debitLocked(senderID, amount)
	if err != nil {
		return ledger.Entry{}, account.Account{}, account.Account{}, err
	}
	recipient, ok := s.accounts[recipientID]
	if !ok {
		return ledger.Entry{}, account.Account{}, account.Account{}, fmt.Errorf("account %s: %w", recipientID, storage.ErrNotFound)
	}

	storedOut, err := s.createEntryLocked(out)
	if err != nil {
		return ledger.Entry{}, account.Account{}, account.Account{}, err
	}
	if _, err := s.createEntryLocked(in); err != nil {
		// the debit was never stored; dropping the out entry rolls the
		// whole unit back
		delete(s.entries, storedOut.ID)
		delete(s.entriesByRef, storedOut.Reference)
		return ledger.Entry{}, account.Account{}, account.Account{}, err
	}

	recipient.Balance = recipient.Balance.Add(amount)
	recipient.UpdatedAt = time.Now().UTC()
	recipient.Version++

	s.accounts[sender.ID] = sender
	s.accounts[recipient.ID] = recipient
	return storedOut, sender, recipient, nil
}

func (s *Store) AdjustBalance(_ context.Context, accountID string, delta decimal.Decimal, entry *ledger.Entry) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[accountID]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", accountID, storage.ErrNotFound)
	}
	next := acct.Balance.Add(delta)
	if next.IsNegative() {
		return account.Account{}, fmt.Errorf("account %s: %w", accountID, storage.ErrInsufficientBalance)
	}

	if entry != nil {
		if _, err := s.createEntryLocked(*entry); err != nil {
			return account.Account{}, err
		}
	}

	acct.Balance = next
	acct.UpdatedAt = time.Now().UTC()
	acct.Version++
	s.accounts[acct.ID] = acct
	return acct, nil
}

// debitLocked computes the debited account without storing it; callers store
// once the rest of the unit has succeeded.
func (s *Store) debitLocked(accountID string, amount decimal.Decimal) (account.Account, error) {
	acct, ok := s.accounts[accountID]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", accountID, storage.ErrNotFound)
	}
	if acct.Balance.LessThan(amount) {
		return account.Account{}, fmt.Errorf("account %s: %w", accountID, storage.ErrInsufficientBalance)
	}
	acct.Balance = acct.Balance.Sub(amount)
	acct.UpdatedAt = time.Now().UTC()
	acct.Version++
	return acct, nil
}
