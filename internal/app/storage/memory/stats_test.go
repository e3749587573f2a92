package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
)

func TestDashboardStats(t *testing.T) {
	store := New()
	ctx := context.Background()

	active, err := store.CreateAccount(ctx, account.Account{
		Email: "a@example.com", Name: "A", WalletID: "MCT01A",
		Balance: decimal.NewFromInt(2000), Active: true,
	})
	require.NoError(t, err)

	inactive, err := store.CreateAccount(ctx, account.Account{
		Email: "b@example.com", Name: "B", WalletID: "MCT02B",
	})
	require.NoError(t, err)
	_ = inactive

	opened, _, err := store.OpenInvestment(ctx, investment.Investment{
		AccountID:    active.ID,
		PackageID:    "pkg-1",
		Amount:       decimal.NewFromInt(800),
		StartDate:    time.Now(),
		EndDate:      time.Now().AddDate(0, 0, 10),
		CurrentValue: decimal.NewFromInt(800),
		Status:       investment.StatusActive,
	}, ledger.Entry{
		AccountID: active.ID, Type: ledger.TypeInvestment,
		Amount: decimal.NewFromInt(800), Status: ledger.StatusApproved, Method: ledger.MethodCrypto,
	})
	require.NoError(t, err)
	require.NotEmpty(t, opened.ID)

	_, err = store.CreateEntry(ctx, ledger.Entry{
		AccountID: active.ID, Type: ledger.TypeDeposit,
		Amount: decimal.NewFromInt(300), Status: ledger.StatusPending, Method: ledger.MethodCrypto,
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	stats, err := store.DashboardStats(ctx, now)
	require.NoError(t, err)

	require.EqualValues(t, 2, stats.TotalAccounts)
	require.EqualValues(t, 1, stats.ActiveAccounts)
	require.EqualValues(t, 2, stats.NewAccountsMonth)
	require.EqualValues(t, 1, stats.TotalInvestments)
	require.EqualValues(t, 1, stats.ActiveInvestments)
	require.True(t, stats.TotalInvested.Equal(decimal.NewFromInt(800)), "total invested = %s", stats.TotalInvested)
	require.EqualValues(t, 1, stats.PendingEntries)
	require.True(t, stats.TotalDeposits.IsZero(), "pending deposits must not count")

	require.Len(t, stats.MonthlySignups, 1)
	require.Equal(t, int(now.Month()), stats.MonthlySignups[0].Month)
	require.EqualValues(t, 2, stats.MonthlySignups[0].Count)

	require.Len(t, stats.MonthlyInvested, 1)
	require.True(t, stats.MonthlyInvested[0].Amount.Equal(decimal.NewFromInt(800)))
}
