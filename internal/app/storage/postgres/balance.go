package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/storage"
)

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// lockAccount reads an account row under FOR UPDATE so balance changes in
// this transaction serialize against concurrent writers.
func lockAccount(ctx context.Context, tx *sql.Tx, id string) (account.Account, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, id)
	acct, err := scanAccount(row)
	if err != nil {
		return account.Account{}, fmt.Errorf("account %s: %w", id, mapError(err))
	}
	return acct, nil
}

// storeBalance writes a locked account's new balance and bumps its version.
func storeBalance(ctx context.Context, tx *sql.Tx, acct *account.Account) error {
	acct.UpdatedAt = time.Now().UTC()
	acct.Version++
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $2, version = $3, updated_at = $4
		WHERE id = $1
	`, acct.ID, acct.Balance, acct.Version, acct.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store balance for %s: %w", acct.ID, mapError(err))
	}
	return nil
}

func (s *Store) OpenInvestment(ctx context.Context, inv investment.Investment, entry ledger.Entry) (investment.Investment, account.Account, error) {
	var acct account.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if acct, err = lockAccount(ctx, tx, inv.AccountID); err != nil {
			return err
		}
		if acct.Balance.LessThan(inv.Amount) {
			return fmt.Errorf("account %s: %w", acct.ID, storage.ErrInsufficientBalance)
		}
		acct.Balance = acct.Balance.Sub(inv.Amount)

		if inv, err = s.createInvestmentTx(ctx, tx, inv); err != nil {
			return err
		}
		entry.InvestmentID = inv.ID
		if _, err = s.createEntryTx(ctx, tx, entry); err != nil {
			return err
		}
		return storeBalance(ctx, tx, &acct)
	})
	if err != nil {
		return investment.Investment{}, account.Account{}, err
	}
	return inv, acct, nil
}

func (s *Store) SettleInvestment(ctx context.Context, inv investment.Investment, entry ledger.Entry) (investment.Investment, account.Account, error) {
	var acct account.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+investmentColumns+`
			FROM investments
			WHERE id = $1
			FOR UPDATE
		`, inv.ID)
		stored, err := scanInvestment(row)
		if err != nil {
			return fmt.Errorf("investment %s: %w", inv.ID, mapError(err))
		}
		if stored.Status.Terminal() {
			return fmt.Errorf("investment %s: %w", inv.ID, storage.ErrAlreadySettled)
		}
		if stored.Version != inv.Version {
			return fmt.Errorf("investment %s: %w", inv.ID, storage.ErrVersionConflict)
		}

		entry.InvestmentID = inv.ID
		if _, err = s.createEntryTx(ctx, tx, entry); err != nil {
			return err
		}
		if inv, err = s.updateInvestmentTx(ctx, tx, inv); err != nil {
			return err
		}

		if acct, err = lockAccount(ctx, tx, inv.AccountID); err != nil {
			return err
		}
		acct.Balance = acct.Balance.Add(inv.CurrentValue)
		return storeBalance(ctx, tx, &acct)
	})
	if err != nil {
		return investment.Investment{}, account.Account{}, err
	}
	return inv, acct, nil
}

func (s *Store) ApplyEntryDecision(ctx context.Context, entryID string, decision ledger.Status, processedBy, notes string, now time.Time) (ledger.Entry, account.Account, error) {
	var (
		entry ledger.Entry
		acct  account.Account
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+entryColumns+`
			FROM ledger_entries
			WHERE id = $1
			FOR UPDATE
		`, entryID)
		var err error
		if entry, err = scanEntry(row); err != nil {
			return fmt.Errorf("entry %s: %w", entryID, mapError(err))
		}
		if entry.Status != ledger.StatusPending {
			return fmt.Errorf("entry %s is %s: %w", entryID, entry.Status, storage.ErrAlreadyProcessed)
		}

		if acct, err = lockAccount(ctx, tx, entry.AccountID); err != nil {
			return err
		}

		if decision == ledger.StatusApproved {
			switch entry.Type {
			case ledger.TypeDeposit:
				acct.Balance = acct.Balance.Add(entry.Amount)
			case ledger.TypeWithdrawal:
				if acct.Balance.LessThan(entry.Amount) {
					return fmt.Errorf("account %s: %w", acct.ID, storage.ErrInsufficientBalance)
				}
				acct.Balance = acct.Balance.Sub(entry.Amount)
			}
			if err := storeBalance(ctx, tx, &acct); err != nil {
				return err
			}
		}

		entry.Status = decision
		entry.AdminNotes = notes
		entry.ProcessedBy = processedBy
		entry.ProcessedAt = now.UTC()
		entry.UpdatedAt = now.UTC()
		_, err = tx.ExecContext(ctx, `
			UPDATE ledger_entries
			SET status = $2, admin_notes = $3, processed_by = $4, processed_at = $5, updated_at = $6
			WHERE id = $1
		`, entry.ID, string(entry.Status), entry.AdminNotes, entry.ProcessedBy, entry.ProcessedAt, entry.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update entry %s: %w", entry.ID, mapError(err))
		}
		return nil
	})
	if err != nil {
		return ledger.Entry{}, account.Account{}, err
	}
	return entry, acct, nil
}

func (s *Store) ApplyTransfer(ctx context.Context, senderID, recipientID string, amount decimal.Decimal, out, in ledger.Entry) (ledger.Entry, account.Account, account.Account, error) {
	var (
		sender    account.Account
		recipient account.Account
		storedOut ledger.Entry
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// lock in ID order so two opposing transfers cannot deadlock
		first, second := senderID, recipientID
		if second < first {
			first, second = second, first
		}
		locked := map[string]account.Account{}
		for _, id := range []string{first, second} {
			acct, err := lockAccount(ctx, tx, id)
			if err != nil {
				return err
			}
			locked[id] = acct
		}
		sender, recipient = locked[senderID], locked[recipientID]

		if sender.Balance.LessThan(amount) {
			return fmt.Errorf("account %s: %w", sender.ID, storage.ErrInsufficientBalance)
		}
		sender.Balance = sender.Balance.Sub(amount)
		recipient.Balance = recipient.Balance.Add(amount)

		var err error
		if storedOut, err = s.createEntryTx(ctx, tx, out); err != nil {
			return err
		}
		if _, err = s.createEntryTx(ctx, tx, in); err != nil {
			return err
		}
		if err := storeBalance(ctx, tx, &sender); err != nil {
			return err
		}
		return storeBalance(ctx, tx, &recipient)
	})
	if err != nil {
		return ledger.Entry{}, account.Account{}, account.Account{}, err
	}
	return storedOut, sender, recipient, nil
}

func (s *Store) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal, entry *ledger.Entry) (account.Account, error) {
	var acct account.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if acct, err = lockAccount(ctx, tx, accountID); err != nil {
			return err
		}
		next := acct.Balance.Add(delta)
		if next.IsNegative() {
			return fmt.Errorf("account %s: %w", accountID, storage.ErrInsufficientBalance)
		}
		acct.Balance = next

		if entry != nil {
			if _, err := s.createEntryTx(ctx, tx, *entry); err != nil {
				return err
			}
		}
		return storeBalance(ctx, tx, &acct)
	})
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}
