package investments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mctcapital/invest_layer/internal/app/domain/catalog"
	"github.com/mctcapital/invest_layer/internal/app/domain/investment"
)

var hundred = decimal.NewFromInt(100)

// Valuate computes the accrued value of inv against pkg at the given instant
// and returns the updated record. It is a pure function of its inputs:
// calling it twice with the same now yields the same result, which makes it
// safe to trigger from both the accrual runner and user read paths.
//
// Accrual is simple linear: the package promises ROIPercent of the principal
// over DurationDays, so each elapsed whole day earns
// amount * roi/100/duration. Elapsed days are capped at the package duration
// before computing returns, so CurrentValue never exceeds the maximum
// promised payout even when a pass runs late. Completion is triggered by
// now >= EndDate independently of the cap.
//
// Only active investments are revalued; any other status is returned
// unchanged.
func Valuate(inv investment.Investment, pkg catalog.Package, now time.Time) investment.Investment {
	if inv.Status != investment.StatusActive {
		return inv
	}

	duration := int64(pkg.DurationDays)
	if duration < 1 {
		duration = 1
	}

	dailyRate := pkg.ROIPercent.Div(hundred).Div(decimal.NewFromInt(duration))
	inv.DailyReturn = inv.Amount.Mul(dailyRate)

	days := elapsedDays(inv.StartDate, now)
	if days > duration {
		days = duration
	}

	inv.TotalReturns = inv.DailyReturn.Mul(decimal.NewFromInt(days))
	inv.CurrentValue = inv.Amount.Add(inv.TotalReturns)
	inv.LastCalculated = now.UTC()

	if !now.Before(inv.EndDate) {
		inv.Status = investment.StatusCompleted
	}

	return inv
}

// elapsedDays returns the number of whole days between start and now,
// clamped at zero for clocks that have not reached the start date yet.
func elapsedDays(start, now time.Time) int64 {
	if now.Before(start) {
		return 0
	}
	return int64(now.Sub(start) / (24 * time.Hour))
}
