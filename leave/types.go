/*
Package leave implements a statutory paid-leave entitlement engine.

PURPOSE:
  This package contains the domain types and algorithms for administering
  paid-leave ("yukyu") balances under a labor-law regime with seniority-based
  grants, a two-year carry-over window, a 40-day accumulation cap, and a
  mandatory minimum annual usage rule.

KEY CONCEPTS IN THIS FILE (types.go):
  - Days: A day count backed by decimal.Decimal (supports 0.25/0.5 grants)
  - GrantRecord: One row per (employee, fiscal year, grant date)
  - LeaveRequest: A request to consume days, with its approval lifecycle
  - Employee: Entity record with hire date (drives seniority grants)

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere; fractional half/quarter days
     must sum exactly across a deduction trail, with no float drift
  2. Type Safety: Typed identifiers prevent mixing employee and request IDs
  3. Derived Invariant: Balance is always Granted - Used - CarriedOut -
     Expired; a record that violates this fails Validate() and is never
     persisted
  4. Auditability: Every mutation of a GrantRecord or LeaveRequest is
     mirrored by an AuditEntry (see audit.go)

SEE ALSO:
  - config.go: The immutable Regime configuration value
  - breakdown.go: Ordered consumption sequence (LIFO)
  - deduction.go: Balance deduction against the ordered sequence
  - approval.go: Request lifecycle state machine
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Day count with exact decimal arithmetic
// =============================================================================

// Days is a count of leave days. Backed by decimal.Decimal so that
// fractional half-day (0.5) and hourly (0.25) amounts carry no rounding
// drift through deduction trails and carryover math.
type Days struct {
	value decimal.Decimal
}

func DaysOf(v float64) Days      { return Days{value: decimal.NewFromFloat(v)} }
func DaysFromInt(v int) Days     { return Days{value: decimal.NewFromInt(int64(v))} }
func ZeroDays() Days             { return Days{value: decimal.Zero} }
func daysFromDecimal(d decimal.Decimal) Days { return Days{value: d} }

// ParseDays parses a decimal day-count string from untrusted input.
func ParseDays(s string) (Days, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Days{}, &ValidationError{Field: "days", Message: "not a decimal day count: " + s}
	}
	return Days{value: d}, nil
}

// MustParseDays is ParseDays for trusted input (literals in tests, values
// the engine wrote itself). It panics on a malformed string.
func MustParseDays(s string) Days {
	d, err := ParseDays(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Days) Add(o Days) Days          { return Days{value: d.value.Add(o.value)} }
func (d Days) Sub(o Days) Days          { return Days{value: d.value.Sub(o.value)} }
func (d Days) Neg() Days                { return Days{value: d.value.Neg()} }
func (d Days) Min(o Days) Days          { if d.LessThan(o) { return d }; return o }
func (d Days) IsZero() bool             { return d.value.IsZero() }
func (d Days) IsNegative() bool         { return d.value.IsNegative() }
func (d Days) IsPositive() bool         { return d.value.IsPositive() }
func (d Days) Equal(o Days) bool        { return d.value.Equal(o.value) }
func (d Days) LessThan(o Days) bool     { return d.value.LessThan(o.value) }
func (d Days) GreaterThan(o Days) bool  { return d.value.GreaterThan(o.value) }
func (d Days) Float64() float64         { f, _ := d.value.Float64(); return f }
func (d Days) String() string           { return d.value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RequestID string

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID        EmployeeID
	Name      string
	Email     string
	HireDate  time.Time // drives the seniority grant table
	CreatedAt time.Time
}

// =============================================================================
// GRANT RECORD - One row per (employee, fiscal year, grant date)
// =============================================================================

// GrantRecord holds the days awarded for one grant period and how many of
// them have been consumed.
//
// INVARIANT: Balance == Granted - Used - CarriedOut - Expired, and Balance
// is never negative after a successful mutation. The set of records for
// one employee and one fiscal year, summed, never exceeds
// Regime.MaxAccumulatedDays immediately after a carryover.
type GrantRecord struct {
	EmployeeID EmployeeID
	FiscalYear int
	GrantDate  time.Time

	Granted Days // days awarded for this period
	Used    Days // cumulative days consumed from this period
	Balance Days // derived: Granted - Used - CarriedOut - Expired

	// CarriedOut is the balance moved into a later year at carryover;
	// Expired is the balance that lapsed at the end of the carry-over
	// window. Neither ever touches Used, so per-year usage statistics
	// stay truthful after a record is retired.
	CarriedOut Days
	Expired    Days

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the record's internal invariants.
func (g *GrantRecord) Validate() error {
	switch {
	case g.EmployeeID == "":
		return &ValidationError{Field: "employee_id", Message: "employee id is required"}
	case g.FiscalYear <= 0:
		return &ValidationError{Field: "fiscal_year", Message: "fiscal year is required"}
	case g.Granted.IsNegative():
		return &ValidationError{Field: "granted", Message: "granted days cannot be negative"}
	case g.Used.IsNegative():
		return &ValidationError{Field: "used", Message: "used days cannot be negative"}
	case g.Used.GreaterThan(g.Granted):
		return &ValidationError{Field: "used", Message: "used days cannot exceed granted days"}
	case g.CarriedOut.IsNegative():
		return &ValidationError{Field: "carried_out", Message: "carried-out days cannot be negative"}
	case g.Expired.IsNegative():
		return &ValidationError{Field: "expired", Message: "expired days cannot be negative"}
	case !g.Balance.Equal(g.Granted.Sub(g.Used).Sub(g.CarriedOut).Sub(g.Expired)):
		return &ValidationError{Field: "balance", Message: "balance must equal granted - used - carried_out - expired"}
	}
	return nil
}

// Snapshot returns a flat view of the record for audit old/new capture.
func (g *GrantRecord) Snapshot() map[string]any {
	if g == nil {
		return nil
	}
	return map[string]any{
		"employee_id": string(g.EmployeeID),
		"fiscal_year": g.FiscalYear,
		"grant_date":  g.GrantDate.Format("2006-01-02"),
		"granted":     g.Granted.String(),
		"used":        g.Used.String(),
		"balance":     g.Balance.String(),
		"carried_out": g.CarriedOut.String(),
		"expired":     g.Expired.String(),
	}
}

// =============================================================================
// LEAVE REQUEST - Request to consume days, with approval lifecycle
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"

	// StatusDesignated is terminal and created out-of-band by the
	// ComplianceChecker. It never passes through pending.
	StatusDesignated RequestStatus = "designated"
)

// LeaveRequest represents one request to consume leave days.
//
// LIFECYCLE:
//   pending -> approved | rejected      (ApprovalService.Approve / Reject)
//   approved -> cancelled               (ApprovalService.Revert)
//   designated                          (terminal, ComplianceChecker only)
//
// Balance mutation happens exactly once per request, at the
// pending -> approved transition, and is undone exactly once at
// approved -> cancelled.
type LeaveRequest struct {
	ID         RequestID
	EmployeeID EmployeeID

	// FiscalYear the deduction applies against (derived from StartDate).
	FiscalYear int
	StartDate  time.Time
	EndDate    time.Time

	DaysRequested Days
	Status        RequestStatus
	Reason        string

	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectedBy      string
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot returns a flat view of the request for audit old/new capture.
func (r *LeaveRequest) Snapshot() map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"id":             string(r.ID),
		"employee_id":    string(r.EmployeeID),
		"fiscal_year":    r.FiscalYear,
		"days_requested": r.DaysRequested.String(),
		"status":         string(r.Status),
	}
}
