package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/storage"
)

func (s *Store) InvestmentStats(ctx context.Context, accountID string) (storage.InvestmentStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0), COALESCE(SUM(current_value), 0), COALESCE(SUM(total_returns), 0)
		FROM investments
		WHERE $1 = '' OR account_id::text = $1
		GROUP BY status
		ORDER BY status
	`, accountID)
	if err != nil {
		return storage.InvestmentStats{}, err
	}
	defer rows.Close()

	stats := storage.InvestmentStats{
		TotalInvested: decimal.Zero,
		TotalReturns:  decimal.Zero,
	}
	for rows.Next() {
		var (
			group  storage.InvestmentStatusStats
			status string
		)
		if err := rows.Scan(&status, &group.Count, &group.TotalAmount, &group.CurrentValue, &group.TotalReturns); err != nil {
			return storage.InvestmentStats{}, err
		}
		group.Status = investment.Status(status)
		stats.ByStatus = append(stats.ByStatus, group)
		stats.Total += group.Count
		stats.TotalInvested = stats.TotalInvested.Add(group.TotalAmount)
		stats.TotalReturns = stats.TotalReturns.Add(group.TotalReturns)
	}
	return stats, rows.Err()
}

func (s *Store) EntryStats(ctx context.Context, accountID string) (storage.EntryStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE $1 = '' OR account_id::text = $1
		GROUP BY type, status
		ORDER BY type, status
	`, accountID)
	if err != nil {
		return storage.EntryStats{}, err
	}
	defer rows.Close()

	stats := storage.EntryStats{
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
	}
	for rows.Next() {
		var (
			group storage.EntryGroupStats
			typ   string
			st    string
		)
		if err := rows.Scan(&typ, &st, &group.Count, &group.TotalAmount); err != nil {
			return storage.EntryStats{}, err
		}
		group.Type = ledger.Type(typ)
		group.Status = ledger.Status(st)
		stats.ByTypeAndStatus = append(stats.ByTypeAndStatus, group)
		if group.Status == ledger.StatusApproved {
			switch group.Type {
			case ledger.TypeDeposit:
				stats.TotalDeposits = stats.TotalDeposits.Add(group.TotalAmount)
			case ledger.TypeWithdrawal:
				stats.TotalWithdrawals = stats.TotalWithdrawals.Add(group.TotalAmount)
			}
		}
	}
	return stats, rows.Err()
}

func (s *Store) DashboardStats(ctx context.Context, now time.Time) (storage.DashboardStats, error) {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	stats := storage.DashboardStats{
		TotalInvested:    decimal.Zero,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE active),
		       COUNT(*) FILTER (WHERE created_at >= $1)
		FROM accounts
	`, monthStart)
	if err := row.Scan(&stats.TotalAccounts, &stats.ActiveAccounts, &stats.NewAccountsMonth); err != nil {
		return storage.DashboardStats{}, err
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'active'),
		       COALESCE(SUM(amount), 0)
		FROM investments
	`)
	if err := row.Scan(&stats.TotalInvestments, &stats.ActiveInvestments, &stats.TotalInvested); err != nil {
		return storage.DashboardStats{}, err
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'pending'),
		       COALESCE(SUM(amount) FILTER (WHERE type = 'deposit' AND status = 'approved'), 0),
		       COALESCE(SUM(amount) FILTER (WHERE type = 'withdrawal' AND status = 'approved'), 0)
		FROM ledger_entries
	`)
	if err := row.Scan(&stats.PendingEntries, &stats.TotalDeposits, &stats.TotalWithdrawals); err != nil {
		return storage.DashboardStats{}, err
	}

	signupRows, err := s.db.QueryContext(ctx, `
		SELECT EXTRACT(MONTH FROM created_at)::int, COUNT(*)
		FROM accounts
		WHERE created_at >= $1
		GROUP BY 1
		ORDER BY 1
	`, yearStart)
	if err != nil {
		return storage.DashboardStats{}, err
	}
	defer signupRows.Close()
	for signupRows.Next() {
		var bucket storage.MonthCount
		if err := signupRows.Scan(&bucket.Month, &bucket.Count); err != nil {
			return storage.DashboardStats{}, err
		}
		stats.MonthlySignups = append(stats.MonthlySignups, bucket)
	}
	if err := signupRows.Err(); err != nil {
		return storage.DashboardStats{}, err
	}

	investedRows, err := s.db.QueryContext(ctx, `
		SELECT EXTRACT(MONTH FROM created_at)::int, COALESCE(SUM(amount), 0)
		FROM investments
		WHERE created_at >= $1
		GROUP BY 1
		ORDER BY 1
	`, yearStart)
	if err != nil {
		return storage.DashboardStats{}, err
	}
	defer investedRows.Close()
	for investedRows.Next() {
		var bucket storage.MonthAmount
		if err := investedRows.Scan(&bucket.Month, &bucket.Amount); err != nil {
			return storage.DashboardStats{}, err
		}
		stats.MonthlyInvested = append(stats.MonthlyInvested, bucket)
	}
	return stats, investedRows.Err()
}
