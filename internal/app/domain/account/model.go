// Package account defines the balance-holding projection of a platform user.
package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a user's spendable balance. Balance never goes negative as
// the result of a single operation; Version is an optimistic concurrency
// token bumped by every store update.
type Account struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	WalletID  string          `json:"wallet_id"`
	Balance   decimal.Decimal `json:"balance"`
	Active    bool            `json:"active"`
	Version   int64           `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
