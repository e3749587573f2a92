// Package app wires the domain services together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/notify"
	accountssvc "github.com/mctcapital/invest_layer/internal/app/services/accounts"
	catalogsvc "github.com/mctcapital/invest_layer/internal/app/services/catalog"
	investmentssvc "github.com/mctcapital/invest_layer/internal/app/services/investments"
	ledgersvc "github.com/mctcapital/invest_layer/internal/app/services/ledger"
	transferssvc "github.com/mctcapital/invest_layer/internal/app/services/transfers"
	"github.com/mctcapital/invest_layer/internal/app/storage"
	"github.com/mctcapital/invest_layer/internal/app/storage/memory"
	"github.com/mctcapital/invest_layer/internal/app/system"
	"github.com/mctcapital/invest_layer/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts    storage.AccountStore
	Packages    storage.PackageStore
	Investments storage.InvestmentStore
	Ledger      storage.LedgerStore
	Balances    storage.BalanceStore
	Stats       storage.StatsStore
}

// Options tunes application behaviour beyond the stores.
type Options struct {
	// AccrualSchedule is the cron expression driving valuation passes. Empty
	// selects the six-hour default.
	AccrualSchedule string
	// WithdrawalFeePercent is the platform fee on withdrawals. Nil selects
	// the default; an explicit zero disables the fee.
	WithdrawalFeePercent *decimal.Decimal
	// Notifier receives user-facing event notifications. Nil selects the
	// log-backed notifier.
	Notifier notify.Notifier
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Accounts    *accountssvc.Service
	Catalog     *catalogsvc.Service
	Investments *investmentssvc.Service
	Ledger      *ledgersvc.Service
	Transfers   *transferssvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Accounts == nil {
		stores.Accounts = mem
	}
	if stores.Packages == nil {
		stores.Packages = mem
	}
	if stores.Investments == nil {
		stores.Investments = mem
	}
	if stores.Ledger == nil {
		stores.Ledger = mem
	}
	if stores.Balances == nil {
		stores.Balances = mem
	}
	if stores.Stats == nil {
		stores.Stats = mem
	}

	manager := system.NewManager()

	acctService := accountssvc.New(stores.Accounts, stores.Balances, log)
	catalogService := catalogsvc.New(stores.Packages, log)
	investService := investmentssvc.New(stores.Accounts, stores.Packages, stores.Investments, stores.Balances, stores.Stats, log)
	ledgerService := ledgersvc.New(stores.Accounts, stores.Ledger, stores.Balances, stores.Stats, opts.WithdrawalFeePercent, log)
	transferService := transferssvc.New(stores.Accounts, stores.Balances, log)

	if opts.Notifier != nil {
		investService.WithNotifier(opts.Notifier)
		ledgerService.WithNotifier(opts.Notifier)
		transferService.WithNotifier(opts.Notifier)
	}

	for _, name := range []string{"accounts", "catalog", "ledger", "transfers"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	accrualRunner := investmentssvc.NewRunner(investService, opts.AccrualSchedule, log)
	if err := manager.Register(accrualRunner); err != nil {
		return nil, fmt.Errorf("register %s: %w", accrualRunner.Name(), err)
	}

	return &Application{
		manager:     manager,
		log:         log,
		Accounts:    acctService,
		Catalog:     catalogService,
		Investments: investService,
		Ledger:      ledgerService,
		Transfers:   transferService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
