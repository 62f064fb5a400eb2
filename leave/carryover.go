/*
carryover.go - Year-end carryover, expiry, and retention cleanup

PURPOSE:
  Runs once per fiscal-year boundary (triggered externally; the engine does
  not self-schedule). For every employee with positive balance in the
  expiring year it copies unused balance into the new year, applies the
  accumulation cap, records the excess as expired, reports balances that
  have lapsed by rule, and hard-deletes records older than the retention
  window.

CAP MATH:
  carried   = min(balance, MaxAccumulatedDays)
  expired  += balance - carried
  When merging into an existing new-year record, the SUM is re-capped at
  MaxAccumulatedDays and any overflow is also recorded as expired.

TRANSACTION SHAPE:
  One transaction per (employee, record) pair, holding the employee's grant
  locks for the duration of that pair's update. A concurrent approval
  against the same records serializes behind (or ahead of) each pair; it
  never interleaves inside one.

SEE ALSO:
  - config.go: MaxAccumulatedDays, CarryoverWindowYears, RetentionYears
  - store.go: LockScope
*/
package leave

import (
	"context"

	"github.com/rs/zerolog"
)

// EmployeeCarryover reports what happened to one employee-record pair.
type EmployeeCarryover struct {
	EmployeeID EmployeeID
	FromYear   int
	Carried    Days
	Expired    Days
}

// CarryoverReport summarizes one year-end run.
type CarryoverReport struct {
	FromYear      int
	ToYear        int
	Processed     int
	CarriedOver   Days
	Expired       Days
	ExpiredByRule Days // balances lapsed by rule on records older than the window
	Deleted       int  // records removed by retention cleanup
	PerEmployee   []EmployeeCarryover
}

// CarryoverProcessor owns cross-year record creation and expiry.
type CarryoverProcessor struct {
	store  TxStore
	regime Regime
	audit  Recorder
	log    zerolog.Logger
}

func NewCarryoverProcessor(store TxStore, regime Regime, audit Recorder, log zerolog.Logger) *CarryoverProcessor {
	return &CarryoverProcessor{store: store, regime: regime, audit: audit, log: log}
}

// ProcessYearEnd carries unused balances from fromYear into toYear.
func (p *CarryoverProcessor) ProcessYearEnd(ctx context.Context, fromYear, toYear int) (*CarryoverReport, error) {
	if toYear <= fromYear {
		return nil, &ValidationError{Field: "to_year", Message: "target year must follow source year"}
	}

	expiring, err := p.store.GrantsForYear(ctx, fromYear)
	if err != nil {
		return nil, err
	}

	report := &CarryoverReport{
		FromYear:    fromYear,
		ToYear:      toYear,
		CarriedOver: ZeroDays(),
		Expired:     ZeroDays(),
	}

	for _, rec := range expiring {
		if !rec.Balance.IsPositive() {
			continue
		}
		ec, err := p.carryOne(ctx, rec, toYear)
		if err != nil {
			return nil, err
		}
		report.Processed++
		report.CarriedOver = report.CarriedOver.Add(ec.Carried)
		report.Expired = report.Expired.Add(ec.Expired)
		report.PerEmployee = append(report.PerEmployee, *ec)
	}

	expiredByRule, err := p.reportExpiredByRule(ctx, toYear)
	if err != nil {
		return nil, err
	}
	report.ExpiredByRule = expiredByRule

	deleted, err := p.retentionSweep(ctx, toYear)
	if err != nil {
		return nil, err
	}
	report.Deleted = deleted

	p.log.Info().
		Int("from_year", fromYear).
		Int("to_year", toYear).
		Int("processed", report.Processed).
		Str("carried_over", report.CarriedOver.String()).
		Str("expired", report.Expired.String()).
		Int("deleted", deleted).
		Msg("year-end carryover complete")
	return report, nil
}

// carryOne processes a single employee-record pair in its own locked
// transaction.
func (p *CarryoverProcessor) carryOne(ctx context.Context, src GrantRecord, toYear int) (*EmployeeCarryover, error) {
	result := &EmployeeCarryover{EmployeeID: src.EmployeeID, FromYear: src.FiscalYear}

	err := p.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockEmployeeGrants(ctx, src.EmployeeID); err != nil {
			return err
		}

		// Re-read under the lock; an approval may have consumed from this
		// record since the unlocked scan.
		rec, err := tx.Grant(ctx, src.EmployeeID, src.FiscalYear, src.GrantDate)
		if err != nil {
			return err
		}
		if !rec.Balance.IsPositive() {
			return nil
		}

		carried := rec.Balance.Min(p.regime.MaxAccumulatedDays)
		expired := rec.Balance.Sub(carried)

		// Merge first: the target's re-cap may shift part of carried into
		// expired, and the source must record the final split.
		carried, expired, err = p.mergeIntoTarget(ctx, tx, rec.EmployeeID, toYear, carried, expired)
		if err != nil {
			return err
		}

		// Retire the source record: its balance moves to the new year or
		// lapses into the expired counter. Used is untouched so the year's
		// consumption statistics survive the retirement.
		srcBefore := rec.Snapshot()
		rec.CarriedOut = rec.CarriedOut.Add(carried)
		rec.Expired = rec.Expired.Add(expired)
		rec.Balance = ZeroDays()
		rec.UpdatedAt = p.audit.now()
		if err := rec.Validate(); err != nil {
			return err
		}
		if err := tx.PutGrant(ctx, *rec); err != nil {
			return err
		}
		if err := p.audit.Record(ctx, tx, "system", AuditCarryover, rec.EmployeeID,
			GrantKey(rec), srcBefore, rec.Snapshot(), "year-end carryover: source retired"); err != nil {
			return err
		}

		result.Carried = carried
		result.Expired = expired
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mergeIntoTarget adds the carried amount to the employee's toYear record,
// creating a zero-grant record if none exists. The summed balance is
// re-capped at MaxAccumulatedDays; overflow counts as expired.
func (p *CarryoverProcessor) mergeIntoTarget(ctx context.Context, tx Tx,
	employee EmployeeID, toYear int, carried, expired Days) (Days, Days, error) {

	grantDate := FiscalYearStart(toYear, p.regime.FiscalYearStartMonth)
	now := p.audit.now()

	target, err := tx.Grant(ctx, employee, toYear, grantDate)
	switch {
	case err == nil:
		before := target.Snapshot()
		newBalance := target.Balance.Add(carried)
		if newBalance.GreaterThan(p.regime.MaxAccumulatedDays) {
			overflow := newBalance.Sub(p.regime.MaxAccumulatedDays)
			carried = carried.Sub(overflow)
			expired = expired.Add(overflow)
			newBalance = p.regime.MaxAccumulatedDays
		}
		target.Granted = target.Granted.Add(carried)
		target.Balance = newBalance
		target.UpdatedAt = now
		if err := target.Validate(); err != nil {
			return carried, expired, err
		}
		if err := tx.PutGrant(ctx, *target); err != nil {
			return carried, expired, err
		}
		if err := p.audit.Record(ctx, tx, "system", AuditCarryover, employee,
			GrantKey(target), before, target.Snapshot(), "year-end carryover: merged into existing record"); err != nil {
			return carried, expired, err
		}

	case IsNotFound(err):
		rec := GrantRecord{
			EmployeeID: employee,
			FiscalYear: toYear,
			GrantDate:  grantDate,
			Granted:    carried,
			Used:       ZeroDays(),
			Balance:    carried,
			CarriedOut: ZeroDays(),
			Expired:    ZeroDays(),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.PutGrant(ctx, rec); err != nil {
			return carried, expired, err
		}
		if err := p.audit.Record(ctx, tx, "system", AuditCarryover, employee,
			GrantKey(&rec), nil, rec.Snapshot(), "year-end carryover: carried balance record created"); err != nil {
			return carried, expired, err
		}

	default:
		return carried, expired, err
	}

	return carried, expired, nil
}

// reportExpiredByRule sums balances on records whose originating year is
// outside the carry-over window relative to currentYear. These are expired
// by rule even if never physically retired; they are reported, not deleted.
func (p *CarryoverProcessor) reportExpiredByRule(ctx context.Context, currentYear int) (Days, error) {
	total := ZeroDays()
	oldest := p.regime.OldestUsableYear(currentYear)
	for year := currentYear - p.regime.RetentionYears; year < oldest; year++ {
		records, err := p.store.GrantsForYear(ctx, year)
		if err != nil {
			return total, err
		}
		for _, rec := range records {
			if rec.Balance.IsPositive() {
				total = total.Add(rec.Balance)
			}
		}
	}
	return total, nil
}

// retentionSweep hard-deletes grant records older than the retention
// window, along with audit entries from before that window's start.
func (p *CarryoverProcessor) retentionSweep(ctx context.Context, currentYear int) (int, error) {
	cutoffYear := currentYear - p.regime.RetentionYears
	var deleted int
	err := p.store.WithTx(ctx, func(tx Tx) error {
		n, err := tx.DeleteGrantsBefore(ctx, cutoffYear)
		if err != nil {
			return err
		}
		deleted = n

		cutoffAt := FiscalYearStart(cutoffYear, p.regime.FiscalYearStartMonth)
		expiredEntries, err := tx.DeleteAuditBefore(ctx, cutoffAt)
		if err != nil {
			return err
		}
		if n == 0 && expiredEntries == 0 {
			return nil
		}
		return p.audit.Record(ctx, tx, "system", AuditRetentionSweep, "",
			"", nil, map[string]any{
				"grants_deleted": n,
				"audit_deleted":  expiredEntries,
				"before_year":    cutoffYear,
			},
			"retention cleanup of grant records and audit entries")
	})
	return deleted, err
}
