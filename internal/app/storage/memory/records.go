package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/catalog"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/storage"
)

// AccountStore implementation -------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(acct.Email))
	if _, exists := s.accountsByEmail[email]; exists {
		return account.Account{}, fmt.Errorf("email %s: %w", email, storage.ErrDuplicate)
	}
	if _, exists := s.accountsByWallet[acct.WalletID]; exists {
		return account.Account{}, fmt.Errorf("wallet id %s: %w", acct.WalletID, storage.ErrWalletIDInUse)
	}

	if acct.ID == "" {
		acct.ID = uuid.NewString()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrDuplicate)
	}

	now := time.Now().UTC()
	acct.Email = email
	acct.CreatedAt = now
	acct.UpdatedAt = now
	acct.Version = 1

	s.accounts[acct.ID] = acct
	s.accountsByEmail[email] = acct.ID
	s.accountsByWallet[acct.WalletID] = acct.ID
	return acct, nil
}

func (s *Store) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateAccountLocked(acct)
}

func (s *Store) updateAccountLocked(acct account.Account) (account.Account, error) {
	original, ok := s.accounts[acct.ID]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrNotFound)
	}
	if original.Version != acct.Version {
		return account.Account{}, fmt.Errorf("account %s: %w", acct.ID, storage.ErrVersionConflict)
	}

	acct.Email = original.Email
	acct.WalletID = original.WalletID
	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()
	acct.Version = original.Version + 1

	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return acct, nil
}

func (s *Store) GetAccountByWalletID(_ context.Context, walletID string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountsByWallet[walletID]
	if !ok {
		return account.Account{}, fmt.Errorf("wallet id %s: %w", walletID, storage.ErrNotFound)
	}
	return s.accounts[id], nil
}

func (s *Store) ListAccounts(_ context.Context, filter storage.AccountFilter) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		if filter.Active != nil && acct.Active != *filter.Active {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(acct.Name), search) &&
			!strings.Contains(acct.Email, search) {
			continue
		}
		result = append(result, acct)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// PackageStore implementation -------------------------------------------------

func (s *Store) CreatePackage(_ context.Context, pkg catalog.Package) (catalog.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pkg.ID == "" {
		pkg.ID = uuid.NewString()
	} else if _, exists := s.packages[pkg.ID]; exists {
		return catalog.Package{}, fmt.Errorf("package %s: %w", pkg.ID, storage.ErrDuplicate)
	}

	now := time.Now().UTC()
	pkg.CreatedAt = now
	pkg.UpdatedAt = now
	pkg.Features = append([]string(nil), pkg.Features...)

	s.packages[pkg.ID] = pkg
	return clonePackage(pkg), nil
}

func (s *Store) UpdatePackage(_ context.Context, pkg catalog.Package) (catalog.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.packages[pkg.ID]
	if !ok {
		return catalog.Package{}, fmt.Errorf("package %s: %w", pkg.ID, storage.ErrNotFound)
	}

	pkg.CreatedAt = original.CreatedAt
	pkg.UpdatedAt = time.Now().UTC()
	pkg.Features = append([]string(nil), pkg.Features...)

	s.packages[pkg.ID] = pkg
	return clonePackage(pkg), nil
}

func (s *Store) GetPackage(_ context.Context, id string) (catalog.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pkg, ok := s.packages[id]
	if !ok {
		return catalog.Package{}, fmt.Errorf("package %s: %w", id, storage.ErrNotFound)
	}
	return clonePackage(pkg), nil
}

func (s *Store) ListPackages(_ context.Context, onlyActive bool) ([]catalog.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]catalog.Package, 0, len(s.packages))
	for _, pkg := range s.packages {
		if onlyActive && !pkg.Active {
			continue
		}
		result = append(result, clonePackage(pkg))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) DeletePackage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.packages[id]; !ok {
		return fmt.Errorf("package %s: %w", id, storage.ErrNotFound)
	}
	delete(s.packages, id)
	return nil
}

// InvestmentStore implementation ----------------------------------------------

func (s *Store) UpdateInvestment(_ context.Context, inv investment.Investment) (investment.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateInvestmentLocked(inv)
}

func (s *Store) updateInvestmentLocked(inv investment.Investment) (investment.Investment, error) {
	original, ok := s.investments[inv.ID]
	if !ok {
		return investment.Investment{}, fmt.Errorf("investment %s: %w", inv.ID, storage.ErrNotFound)
	}
	if original.Version != inv.Version {
		return investment.Investment{}, fmt.Errorf("investment %s: %w", inv.ID, storage.ErrVersionConflict)
	}

	inv.AccountID = original.AccountID
	inv.PackageID = original.PackageID
	inv.CreatedAt = original.CreatedAt
	inv.UpdatedAt = time.Now().UTC()
	inv.Version = original.Version + 1

	s.investments[inv.ID] = inv
	return inv, nil
}

func (s *Store) GetInvestment(_ context.Context, id string) (investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.investments[id]
	if !ok {
		return investment.Investment{}, fmt.Errorf("investment %s: %w", id, storage.ErrNotFound)
	}
	return inv, nil
}

func (s *Store) ListInvestments(_ context.Context, filter storage.InvestmentFilter) ([]investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]investment.Investment, 0)
	for _, inv := range s.investments {
		if filter.AccountID != "" && inv.AccountID != filter.AccountID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		result = append(result, inv)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) ListOpenInvestments(_ context.Context) ([]investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]investment.Investment, 0)
	for _, inv := range s.investments {
		if inv.Status == investment.StatusActive || inv.Status == investment.StatusPending {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) CreateEntry(_ context.Context, entry ledger.Entry) (ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createEntryLocked(entry)
}

func (s *Store) createEntryLocked(entry ledger.Entry) (ledger.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	} else if _, exists := s.entries[entry.ID]; exists {
		return ledger.Entry{}, fmt.Errorf("entry %s: %w", entry.ID, storage.ErrDuplicate)
	}

	now := time.Now().UTC()
	entry.Normalize(now)
	if _, exists := s.entriesByRef[entry.Reference]; exists {
		return ledger.Entry{}, fmt.Errorf("reference %s: %w", entry.Reference, storage.ErrDuplicate)
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now

	s.entries[entry.ID] = entry
	s.entriesByRef[entry.Reference] = entry.ID
	return entry, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return ledger.Entry{}, fmt.Errorf("entry %s: %w", id, storage.ErrNotFound)
	}
	return entry, nil
}

func (s *Store) ListEntries(_ context.Context, filter storage.EntryFilter) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ledger.Entry, 0)
	for _, entry := range s.entries {
		if filter.AccountID != "" && entry.AccountID != filter.AccountID {
			continue
		}
		if filter.Type != "" && entry.Type != filter.Type {
			continue
		}
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func clonePackage(pkg catalog.Package) catalog.Package {
	pkg.Features = append([]string(nil), pkg.Features...)
	return pkg
}
