// Package postgres implements the storage interfaces backed by PostgreSQL.
// Compound balance operations run inside a transaction with row locks so a
// debit, its ledger entry and any investment write commit as one unit.
package postgres

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/mctcapital/invest_layer/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.PackageStore = (*Store)(nil)
var _ storage.InvestmentStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.BalanceStore = (*Store)(nil)
var _ storage.StatsStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is the PostgreSQL error code for a unique-constraint
// failure.
const uniqueViolation = "23505"

// mapError translates driver errors into the storage sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if strings.Contains(pqErr.Constraint, "wallet_id") {
			return storage.ErrWalletIDInUse
		}
		return storage.ErrDuplicate
	}
	return err
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
