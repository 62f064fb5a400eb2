/*
deduction.go - LIFO deduction against the ordered breakdown

PURPOSE:
  Consumes a requested day count against the employee's grant periods in
  breakdown order, mutating records and producing a per-period trail.

RESULT SEMANTICS:
  Success means the full requested amount was deducted. A partial deduction
  still mutates state and reports Success=false: the CALLER decides whether
  a partial result is acceptable and rolls the whole transaction back when
  it is not (the approval state machine always rolls back).

  Deducting zero days is a no-op returning Success=true with an empty trail.
  Negative day counts are a validation failure before anything is read.

PRECISION:
  Amounts are decimal; a request for 1.75 days reproduces exactly 1.75 when
  the trail is summed, never 1.7499999....

SEE ALSO:
  - breakdown.go: Consumption ordering
  - approval.go: The only production caller, inside a locked transaction
*/
package leave

import (
	"context"
	"time"
)

// PeriodDeduction is one step of the deduction trail.
type PeriodDeduction struct {
	FiscalYear    int
	GrantDate     time.Time
	DaysDeducted  Days
	BalanceBefore Days
	BalanceAfter  Days
}

// DeductionResult reports what a deduction did.
type DeductionResult struct {
	TotalDeducted        Days
	RemainingUnfulfilled Days
	Trail                []PeriodDeduction
	Success              bool
}

// DeductionEngine mutates grant records in LIFO breakdown order.
type DeductionEngine struct {
	regime  Regime
	builder *BreakdownBuilder
	audit   Recorder
}

func NewDeductionEngine(regime Regime, audit Recorder) *DeductionEngine {
	return &DeductionEngine{
		regime:  regime,
		builder: NewBreakdownBuilder(regime),
		audit:   audit,
	}
}

// Deduct consumes daysToUse against the employee's periods through tx.
// The caller must already hold the grant-record locks; the breakdown is
// recomputed here, inside the transaction, so a second approval serialized
// behind a first one observes the already-decremented balances.
func (e *DeductionEngine) Deduct(ctx context.Context, tx Tx, employee EmployeeID,
	daysToUse Days, refYear int, actor, reason string) (*DeductionResult, error) {

	if daysToUse.IsNegative() {
		return nil, &ValidationError{Field: "days", Message: "day count cannot be negative"}
	}
	if daysToUse.IsZero() {
		return &DeductionResult{
			TotalDeducted:        ZeroDays(),
			RemainingUnfulfilled: ZeroDays(),
			Success:              true,
		}, nil
	}

	periods, err := e.builder.Build(ctx, tx, employee, refYear)
	if err != nil {
		return nil, err
	}

	result := &DeductionResult{TotalDeducted: ZeroDays()}
	remaining := daysToUse

	for _, period := range periods {
		if !remaining.IsPositive() {
			break
		}
		take := period.Available.Min(remaining)
		if !take.IsPositive() {
			continue
		}

		rec, err := tx.Grant(ctx, employee, period.FiscalYear, period.GrantDate)
		if err != nil {
			return nil, err
		}

		before := rec.Snapshot()
		balanceBefore := rec.Balance
		rec.Used = rec.Used.Add(take)
		rec.Balance = rec.Balance.Sub(take)
		rec.UpdatedAt = e.audit.now()
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		if err := tx.PutGrant(ctx, *rec); err != nil {
			return nil, err
		}

		if err := e.audit.Record(ctx, tx, actor, AuditDeduction, employee,
			GrantKey(rec), before, rec.Snapshot(), reason); err != nil {
			return nil, err
		}

		result.Trail = append(result.Trail, PeriodDeduction{
			FiscalYear:    period.FiscalYear,
			GrantDate:     period.GrantDate,
			DaysDeducted:  take,
			BalanceBefore: balanceBefore,
			BalanceAfter:  rec.Balance,
		})
		result.TotalDeducted = result.TotalDeducted.Add(take)
		remaining = remaining.Sub(take)
	}

	result.RemainingUnfulfilled = remaining
	result.Success = remaining.IsZero()
	return result, nil
}
