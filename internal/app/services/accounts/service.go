// Package accounts manages platform accounts: registration, wallet ID
// assignment, activation state and administrative balance adjustments.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/account"
	"github.com/mctcapital/invest_layer/internal/app/domain/ledger"
	"github.com/mctcapital/invest_layer/internal/app/metrics"
	"github.com/mctcapital/invest_layer/internal/app/storage"
	"github.com/mctcapital/invest_layer/pkg/logger"
)

// ErrInvalidAdjustment reports a balance adjustment with a zero delta.
var ErrInvalidAdjustment = errors.New("adjustment amount must be non-zero")

// walletIDAttempts bounds retries when a generated wallet ID collides.
const walletIDAttempts = 10

// Service manages accounts.
type Service struct {
	store    storage.AccountStore
	balances storage.BalanceStore
	log      *logger.Logger
	now      func() time.Time
	rand     *rand.Rand
}

// New constructs an account service.
func New(store storage.AccountStore, balances storage.BalanceStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{
		store:    store,
		balances: balances,
		log:      log,
		now:      time.Now,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create registers an account with a freshly assigned wallet ID. Emails are
// unique across the platform.
func (s *Service) Create(ctx context.Context, email, name string) (account.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return account.Account{}, fmt.Errorf("invalid email %q", email)
	}
	if name == "" {
		return account.Account{}, fmt.Errorf("name is required")
	}

	acct := account.Account{
		Email:   email,
		Name:    name,
		Balance: decimal.Zero,
		Active:  true,
	}

	// Wallet IDs are random; regenerate on the rare collision.
	var (
		created account.Account
		err     error
	)
	for attempt := 0; attempt < walletIDAttempts; attempt++ {
		acct.WalletID = s.newWalletID()
		created, err = s.store.CreateAccount(ctx, acct)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrWalletIDInUse) {
			return account.Account{}, err
		}
	}
	if err != nil {
		return account.Account{}, fmt.Errorf("allocate wallet id: %w", err)
	}

	s.log.WithField("account_id", created.ID).
		WithField("wallet_id", created.WalletID).
		Info("account created")
	return created, nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, id string) (account.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// GetByWalletID returns an account by its wallet ID.
func (s *Service) GetByWalletID(ctx context.Context, walletID string) (account.Account, error) {
	return s.store.GetAccountByWalletID(ctx, strings.ToUpper(strings.TrimSpace(walletID)))
}

// List returns accounts matching the filter.
func (s *Service) List(ctx context.Context, filter storage.AccountFilter) ([]account.Account, error) {
	return s.store.ListAccounts(ctx, filter)
}

// SetActive flips the account activation flag.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (account.Account, error) {
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return account.Account{}, err
	}
	if acct.Active == active {
		return acct, nil
	}
	acct.Active = active
	acct, err = s.store.UpdateAccount(ctx, acct)
	if err != nil {
		return account.Account{}, err
	}
	s.log.WithField("account_id", id).WithField("active", active).Info("account activation changed")
	return acct, nil
}

// AdjustBalance applies an administrative balance change. Additions are
// recorded as bonus entries, subtractions as withdrawal entries checked
// against the available balance. When silent is set no ledger entry is
// written; the bypass is logged so the audit trail gap is at least visible.
func (s *Service) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal, adminID, reason string, silent bool) (account.Account, error) {
	if delta.IsZero() {
		return account.Account{}, ErrInvalidAdjustment
	}

	var entry *ledger.Entry
	if !silent {
		e := ledger.Entry{
			AccountID:   accountID,
			Amount:      delta.Abs(),
			Status:      ledger.StatusApproved,
			Method:      ledger.MethodInternal,
			Description: reason,
			ProcessedBy: adminID,
			ProcessedAt: s.now().UTC(),
		}
		if delta.IsPositive() {
			e.Type = ledger.TypeBonus
		} else {
			e.Type = ledger.TypeWithdrawal
		}
		entry = &e
	}

	acct, err := s.balances.AdjustBalance(ctx, accountID, delta, entry)
	if err != nil {
		return account.Account{}, err
	}
	if entry != nil {
		metrics.CountLedgerEntry(string(entry.Type))
	}

	ev := s.log.WithField("account_id", accountID).
		WithField("delta", delta).
		WithField("admin_id", adminID)
	if silent {
		ev.Warn("silent balance adjustment applied, no ledger entry written")
	} else {
		ev.Info("balance adjustment applied")
	}
	return acct, nil
}

// newWalletID produces an ID of the form MCT followed by two digits and an
// uppercase letter, e.g. MCT47K.
func (s *Service) newWalletID() string {
	return fmt.Sprintf("MCT%02d%c", s.rand.Intn(100), 'A'+rune(s.rand.Intn(26)))
}
