// Package catalog defines the investable plan templates.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel grades a package for display purposes only; it has no effect on
// valuation.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Package describes an investment plan: the amount bounds, the term in days
// and the total return promised over that term. ROIPercent is the total
// percentage return over the full duration, accrued linearly per day.
type Package struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	MinAmount    decimal.Decimal `json:"min_amount"`
	MaxAmount    decimal.Decimal `json:"max_amount"`
	DurationDays int             `json:"duration_days"`
	ROIPercent   decimal.Decimal `json:"roi_percent"`
	RiskLevel    RiskLevel       `json:"risk_level"`
	Features     []string        `json:"features,omitempty"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
