/*
config.go - Immutable regime configuration

PURPOSE:
  All statutory parameters live in a single Regime value that is passed to
  each component at construction time. There is NO module-level mutable
  configuration: tests can substitute an alternate regime (different
  carry-over cap, different grant table) without touching process-wide state.

THE DEFAULT REGIME:
  Mirrors the Japanese Labor Standards Act annual-leave rules:
  - Seniority grant table: 10 days at 6 months of service, rising to
    20 days at 6.5 years
  - Two-year carry-over window
  - 40-day accumulation cap across one employee's usable records
  - Mandatory minimum use of 5 days/year for employees granted 10+ days
  - Fiscal year starting in April
  - Grant records retained three fiscal years for audit, then deleted

SEE ALSO:
  - carryover.go: Uses MaxAccumulatedDays, CarryoverWindowYears, RetentionYears
  - compliance.go: Uses MinimumAnnualUse, ComplianceGrantThreshold
  - grant.go: Uses GrantTable via GrantForService
*/
package leave

import (
	"time"
)

// GrantStep maps a minimum length of service to the days granted at that
// seniority. ServiceMonths is measured from the hire date.
type GrantStep struct {
	ServiceMonths int
	Granted       Days
}

// Regime is the immutable configuration for one statutory regime.
type Regime struct {
	// GrantTable maps seniority to annual grant, ascending by ServiceMonths.
	GrantTable []GrantStep

	// CarryoverWindowYears is how many fiscal years a grant stays usable,
	// counting its originating year. Statutory value: 2.
	CarryoverWindowYears int

	// MaxAccumulatedDays caps the summed balance of one employee's records
	// in one fiscal year immediately after carryover. Statutory value: 40.
	MaxAccumulatedDays Days

	// MinimumAnnualUse is the mandatory minimum days an employee granted at
	// least ComplianceGrantThreshold days must use per year. Statutory: 5.
	MinimumAnnualUse Days

	// ComplianceGrantThreshold exempts employees granted fewer days from
	// the minimum-use rule. Statutory value: 10.
	ComplianceGrantThreshold Days

	// AtRiskUseThreshold splits non-compliant employees into at-risk
	// (used >= threshold) and non-compliant (used < threshold) buckets.
	AtRiskUseThreshold Days

	// RetentionYears is how long grant records are kept for audit before
	// retention cleanup hard-deletes them. Statutory value: 3.
	RetentionYears int

	// FiscalYearStartMonth is the month the fiscal year begins (April in
	// the default regime).
	FiscalYearStartMonth time.Month
}

// DefaultRegime returns the statutory Japanese annual-leave regime.
func DefaultRegime() Regime {
	return Regime{
		GrantTable: []GrantStep{
			{ServiceMonths: 6, Granted: DaysFromInt(10)},
			{ServiceMonths: 18, Granted: DaysFromInt(11)},
			{ServiceMonths: 30, Granted: DaysFromInt(12)},
			{ServiceMonths: 42, Granted: DaysFromInt(14)},
			{ServiceMonths: 54, Granted: DaysFromInt(16)},
			{ServiceMonths: 66, Granted: DaysFromInt(18)},
			{ServiceMonths: 78, Granted: DaysFromInt(20)},
		},
		CarryoverWindowYears:     2,
		MaxAccumulatedDays:       DaysFromInt(40),
		MinimumAnnualUse:         DaysFromInt(5),
		ComplianceGrantThreshold: DaysFromInt(10),
		AtRiskUseThreshold:       DaysFromInt(3),
		RetentionYears:           3,
		FiscalYearStartMonth:     time.April,
	}
}

// Validate checks the regime for internal consistency.
func (r Regime) Validate() error {
	if len(r.GrantTable) == 0 {
		return &ValidationError{Field: "grant_table", Message: "grant table cannot be empty"}
	}
	prev := -1
	for _, step := range r.GrantTable {
		if step.ServiceMonths <= prev {
			return &ValidationError{Field: "grant_table", Message: "grant table must be ascending by service months"}
		}
		if step.Granted.IsNegative() {
			return &ValidationError{Field: "grant_table", Message: "granted days cannot be negative"}
		}
		prev = step.ServiceMonths
	}
	if r.CarryoverWindowYears < 1 {
		return &ValidationError{Field: "carryover_window_years", Message: "carry-over window must be at least one year"}
	}
	if !r.MaxAccumulatedDays.IsPositive() {
		return &ValidationError{Field: "max_accumulated_days", Message: "accumulation cap must be positive"}
	}
	if r.RetentionYears < r.CarryoverWindowYears {
		return &ValidationError{Field: "retention_years", Message: "retention window cannot be shorter than the carry-over window"}
	}
	return nil
}

// GrantForService resolves the grant table for an employee hired at
// hireDate, as of the given date. Returns zero days for service shorter
// than the first step.
//
// A zero or future hire date is a validation failure: seniority cannot be
// computed from it.
func (r Regime) GrantForService(hireDate, asOf time.Time) (Days, error) {
	if hireDate.IsZero() {
		return ZeroDays(), &ValidationError{Field: "hire_date", Message: "hire date is required"}
	}
	if hireDate.After(asOf) {
		return ZeroDays(), &ValidationError{Field: "hire_date", Message: "hire date is in the future"}
	}

	months := monthsBetween(hireDate, asOf)
	granted := ZeroDays()
	for _, step := range r.GrantTable {
		if months >= step.ServiceMonths {
			granted = step.Granted
		}
	}
	return granted, nil
}

// monthsBetween counts whole calendar months from a to b.
func monthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
