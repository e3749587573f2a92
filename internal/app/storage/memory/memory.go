// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development. All compound mutations run under a single
// mutex, which makes them trivially atomic.
package memory

import (
	"sync"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/catalog"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/storage"
)

// Store is the in-memory persistence layer.
type Store struct {
	mu               sync.RWMutex
	accounts         map[string]account.Account
	accountsByWallet map[string]string
	accountsByEmail  map[string]string
	packages         map[string]catalog.Package
	investments      map[string]investment.Investment
	entries          map[string]ledger.Entry
	entriesByRef     map[string]string
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.PackageStore = (*Store)(nil)
var _ storage.InvestmentStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.BalanceStore = (*Store)(nil)
var _ storage.StatsStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:         make(map[string]account.Account),
		accountsByWallet: make(map[string]string),
		accountsByEmail:  make(map[string]string),
		packages:         make(map[string]catalog.Package),
		investments:      make(map[string]investment.Investment),
		entries:          make(map[string]ledger.Entry),
		entriesByRef:     make(map[string]string),
	}
}
