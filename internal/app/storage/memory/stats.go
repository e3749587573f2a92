package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/storage"
)

// StatsStore implementation ---------------------------------------------------

func (s *Store) InvestmentStats(_ context.Context, accountID string) (storage.InvestmentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := storage.InvestmentStats{
		TotalInvested: decimal.Zero,
		TotalReturns:  decimal.Zero,
	}
	groups := make(map[investment.Status]*storage.InvestmentStatusStats)
	for _, inv := range s.investments {
		if accountID != "" && inv.AccountID != accountID {
			continue
		}
		stats.Total++
		stats.TotalInvested = stats.TotalInvested.Add(inv.Amount)
		stats.TotalReturns = stats.TotalReturns.Add(inv.TotalReturns)

		group, ok := groups[inv.Status]
		if !ok {
			group = &storage.InvestmentStatusStats{
				Status:       inv.Status,
				TotalAmount:  decimal.Zero,
				CurrentValue: decimal.Zero,
				TotalReturns: decimal.Zero,
			}
			groups[inv.Status] = group
		}
		group.Count++
		group.TotalAmount = group.TotalAmount.Add(inv.Amount)
		group.CurrentValue = group.CurrentValue.Add(inv.CurrentValue)
		group.TotalReturns = group.TotalReturns.Add(inv.TotalReturns)
	}

	for _, group := range groups {
		stats.ByStatus = append(stats.ByStatus, *group)
	}
	sort.Slice(stats.ByStatus, func(i, j int) bool {
		return stats.ByStatus[i].Status < stats.ByStatus[j].Status
	})
	return stats, nil
}

func (s *Store) EntryStats(_ context.Context, accountID string) (storage.EntryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := storage.EntryStats{
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
	}
	type key struct {
		t ledger.Type
		s ledger.Status
	}
	groups := make(map[key]*storage.EntryGroupStats)
	for _, entry := range s.entries {
		if accountID != "" && entry.AccountID != accountID {
			continue
		}
		k := key{entry.Type, entry.Status}
		group, ok := groups[k]
		if !ok {
			group = &storage.EntryGroupStats{Type: entry.Type, Status: entry.Status, TotalAmount: decimal.Zero}
			groups[k] = group
		}
		group.Count++
		group.TotalAmount = group.TotalAmount.Add(entry.Amount)

		if entry.Status == ledger.StatusApproved {
			switch entry.Type {
			case ledger.TypeDeposit:
				stats.TotalDeposits = stats.TotalDeposits.Add(entry.Amount)
			case ledger.TypeWithdrawal:
				stats.TotalWithdrawals = stats.TotalWithdrawals.Add(entry.Amount)
			}
		}
	}

	for _, group := range groups {
		stats.ByTypeAndStatus = append(stats.ByTypeAndStatus, *group)
	}
	sort.Slice(stats.ByTypeAndStatus, func(i, j int) bool {
		a, b := stats.ByTypeAndStatus[i], stats.ByTypeAndStatus[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Status < b.Status
	})
	return stats, nil
}

func (s *Store) DashboardStats(_ context.Context, now time.Time) (storage.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	stats := storage.DashboardStats{
		TotalInvested:    decimal.Zero,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
	}

	signups := make(map[int]int64)
	for _, acct := range s.accounts {
		stats.TotalAccounts++
		if acct.Active {
			stats.ActiveAccounts++
		}
		if !acct.CreatedAt.Before(monthStart) {
			stats.NewAccountsMonth++
		}
		if !acct.CreatedAt.Before(yearStart) {
			signups[int(acct.CreatedAt.Month())]++
		}
	}

	invested := make(map[int]decimal.Decimal)
	for _, inv := range s.investments {
		stats.TotalInvestments++
		if inv.Status == investment.StatusActive {
			stats.ActiveInvestments++
		}
		stats.TotalInvested = stats.TotalInvested.Add(inv.Amount)
		if !inv.CreatedAt.Before(yearStart) {
			month := int(inv.CreatedAt.Month())
			current, ok := invested[month]
			if !ok {
				current = decimal.Zero
			}
			invested[month] = current.Add(inv.Amount)
		}
	}

	for _, entry := range s.entries {
		if entry.Status == ledger.StatusPending {
			stats.PendingEntries++
		}
		if entry.Status == ledger.StatusApproved {
			switch entry.Type {
			case ledger.TypeDeposit:
				stats.TotalDeposits = stats.TotalDeposits.Add(entry.Amount)
			case ledger.TypeWithdrawal:
				stats.TotalWithdrawals = stats.TotalWithdrawals.Add(entry.Amount)
			}
		}
	}

	for month, count := range signups {
		stats.MonthlySignups = append(stats.MonthlySignups, storage.MonthCount{Month: month, Count: count})
	}
	sort.Slice(stats.MonthlySignups, func(i, j int) bool {
		return stats.MonthlySignups[i].Month < stats.MonthlySignups[j].Month
	})
	for month, amount := range invested {
		stats.MonthlyInvested = append(stats.MonthlyInvested, storage.MonthAmount{Month: month, Amount: amount})
	}
	sort.Slice(stats.MonthlyInvested, func(i, j int) bool {
		return stats.MonthlyInvested[i].Month < stats.MonthlyInvested[j].Month
	})

	return stats, nil
}
