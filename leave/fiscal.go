package leave

import "time"

// =============================================================================
// FISCAL CALENDAR - Which fiscal year a date belongs to
// =============================================================================

// FiscalYearOf returns the fiscal year containing t, for a fiscal year
// beginning on the first day of startMonth. A date before the start month
// belongs to the previous fiscal year.
//
// Example (April start): 2025-03-31 -> 2024, 2025-04-01 -> 2025.
func FiscalYearOf(t time.Time, startMonth time.Month) int {
	if t.Month() < startMonth {
		return t.Year() - 1
	}
	return t.Year()
}

// FiscalYearStart returns the first day of the given fiscal year.
func FiscalYearStart(year int, startMonth time.Month) time.Time {
	return time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
}

// FiscalYearEnd returns the last day of the given fiscal year.
func FiscalYearEnd(year int, startMonth time.Month) time.Time {
	return FiscalYearStart(year+1, startMonth).AddDate(0, 0, -1)
}

// FiscalYear convenience bound to a regime.
func (r Regime) FiscalYear(t time.Time) int {
	return FiscalYearOf(t, r.FiscalYearStartMonth)
}

// OldestUsableYear returns the oldest fiscal year whose grants are still
// usable when refYear is current. With a two-year window this is refYear-1.
func (r Regime) OldestUsableYear(refYear int) int {
	return refYear - (r.CarryoverWindowYears - 1)
}

// IsExpiredByRule reports whether a grant originating in originYear has
// lapsed by rule when currentYear is current, even if the record was never
// physically expired.
func (r Regime) IsExpiredByRule(originYear, currentYear int) bool {
	return originYear < r.OldestUsableYear(currentYear)
}
