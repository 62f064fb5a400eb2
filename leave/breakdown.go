/*
breakdown.go - Ordered consumption sequence over grant periods

PURPOSE:
  Builds the order in which an employee's accumulated grant periods are
  consumed when a request is approved. Newly issued days are used before
  older carry-over days ("last granted, first consumed"), which matches the
  statutory intent of not artificially extending carry-over exposure.

ORDERING:
  Two-level priority:
    1. Records with fiscal year >= reference year (current-year grants)
    2. Records with fiscal year <  reference year (carried-over grants)
  Within a tier, ties break by descending fiscal year, then by descending
  grant date.

WINDOW:
  Only the reference year and the immediately preceding year(s) inside the
  carry-over window can hold usable balance; anything older is excluded at
  the read.

  Pure read, no side effects, no locks.
*/
package leave

import (
	"context"
	"sort"
	"time"
)

// BreakdownPeriod is one consumable grant period with its remaining days.
type BreakdownPeriod struct {
	FiscalYear int
	GrantDate  time.Time
	Available  Days
}

// BreakdownBuilder produces the ordered consumption sequence.
type BreakdownBuilder struct {
	regime Regime
}

func NewBreakdownBuilder(regime Regime) *BreakdownBuilder {
	return &BreakdownBuilder{regime: regime}
}

// Build returns the employee's consumable periods for refYear, in
// consumption order. Records with zero or negative balance are skipped.
//
// The GrantStore is passed in (rather than held) so the builder reads
// through whatever transaction the caller has open; the deduction engine
// must never deduct from a stale snapshot.
func (b *BreakdownBuilder) Build(ctx context.Context, grants GrantStore, employee EmployeeID, refYear int) ([]BreakdownPeriod, error) {
	records, err := grants.GrantsForEmployee(ctx, employee, b.regime.OldestUsableYear(refYear))
	if err != nil {
		return nil, err
	}

	var periods []BreakdownPeriod
	for _, rec := range records {
		if !rec.Balance.IsPositive() {
			continue
		}
		periods = append(periods, BreakdownPeriod{
			FiscalYear: rec.FiscalYear,
			GrantDate:  rec.GrantDate,
			Available:  rec.Balance,
		})
	}

	sort.SliceStable(periods, func(i, j int) bool {
		pi, pj := periods[i], periods[j]
		ti, tj := tierOf(pi.FiscalYear, refYear), tierOf(pj.FiscalYear, refYear)
		if ti != tj {
			return ti < tj
		}
		if pi.FiscalYear != pj.FiscalYear {
			return pi.FiscalYear > pj.FiscalYear
		}
		return pi.GrantDate.After(pj.GrantDate)
	})

	return periods, nil
}

// TotalAvailable sums the breakdown. Used for the balance view and for the
// requested-vs-available detail on insufficient-balance failures.
func (b *BreakdownBuilder) TotalAvailable(ctx context.Context, grants GrantStore, employee EmployeeID, refYear int) (Days, error) {
	periods, err := b.Build(ctx, grants, employee, refYear)
	if err != nil {
		return ZeroDays(), err
	}
	total := ZeroDays()
	for _, p := range periods {
		total = total.Add(p.Available)
	}
	return total, nil
}

// tierOf: 0 for current-year grants (consumed first), 1 for carried-over.
func tierOf(year, refYear int) int {
	if year >= refYear {
		return 0
	}
	return 1
}
