// Package investment defines a user's committed principal against a catalog
// package, with its accruing value.
package investment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an investment. Transitions are monotonic:
// pending -> active -> completed, with cancelled a terminal side branch
// reachable from pending or active.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusActive || next == StatusCancelled
	case StatusActive:
		return next == StatusCompleted || next == StatusCancelled
	default:
		return false
	}
}

// Investment records committed principal and its accrued state. The
// invariant CurrentValue = Amount + TotalReturns holds after every valuation
// pass. Records are never deleted.
type Investment struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"account_id"`
	PackageID      string          `json:"package_id"`
	Amount         decimal.Decimal `json:"amount"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	DailyReturn    decimal.Decimal `json:"daily_return"`
	TotalReturns   decimal.Decimal `json:"total_returns"`
	Status         Status          `json:"status"`
	LastCalculated time.Time       `json:"last_calculated"`
	ApprovedBy     string          `json:"approved_by,omitempty"`
	ApprovedAt     time.Time       `json:"approved_at,omitempty"`
	Version        int64           `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
