package storage

import (
	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
)

// InvestmentStatusStats is one group of the per-status investment rollup.
type InvestmentStatusStats struct {
	Status       investment.Status `json:"status"`
	Count        int64             `json:"count"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	CurrentValue decimal.Decimal   `json:"total_current_value"`
	TotalReturns decimal.Decimal   `json:"total_returns"`
}

// InvestmentStats summarises an account's investments.
type InvestmentStats struct {
	Total         int64                   `json:"total"`
	TotalInvested decimal.Decimal         `json:"total_invested"`
	TotalReturns  decimal.Decimal         `json:"total_returns"`
	ByStatus      []InvestmentStatusStats `json:"by_status"`
}

// EntryGroupStats is one (type, status) group of the ledger rollup.
type EntryGroupStats struct {
	Type        ledger.Type     `json:"type"`
	Status      ledger.Status   `json:"status"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// EntryStats summarises an account's ledger activity.
type EntryStats struct {
	TotalDeposits    decimal.Decimal   `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal   `json:"total_withdrawals"`
	ByTypeAndStatus  []EntryGroupStats `json:"by_type_and_status"`
}

// MonthCount is a month-of-year bucket in a yearly series.
type MonthCount struct {
	Month int   `json:"month"`
	Count int64 `json:"count"`
}

// MonthAmount is a month-of-year amount bucket in a yearly series.
type MonthAmount struct {
	Month  int             `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// DashboardStats backs the admin overview.
type DashboardStats struct {
	TotalAccounts     int64           `json:"total_accounts"`
	ActiveAccounts    int64           `json:"active_accounts"`
	NewAccountsMonth  int64           `json:"new_accounts_this_month"`
	TotalInvestments  int64           `json:"total_investments"`
	ActiveInvestments int64           `json:"active_investments"`
	TotalInvested     decimal.Decimal `json:"total_invested"`
	PendingEntries    int64           `json:"pending_entries"`
	TotalDeposits     decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals  decimal.Decimal `json:"total_withdrawals"`
	MonthlySignups    []MonthCount    `json:"monthly_signups"`
	MonthlyInvested   []MonthAmount   `json:"monthly_invested"`
}
