/*
grant.go - Grant issuance, import upsert, and manual correction

PURPOSE:
  Three ways a grant record comes into existence or is corrected outside
  the deduction/carryover paths:

  1. IssueAnnualGrant: the seniority-based annual grant computed from the
     employee's hire date and the regime's grant table
  2. ImportGrants: the spreadsheet/CSV pipeline boundary. The caller hands
     structured rows; upsert is idempotent on (employee, year, grant date)
     and NEVER loses deductions recorded since the last import
  3. Adjust: manual admin correction of a record's used days

VALIDATION:
  Malformed hire dates, negative day counts, and a projected cumulative
  year balance over the accumulation cap are all rejected before any lock
  is taken.
*/
package leave

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GrantImportRow is one structured row from the import pipeline.
type GrantImportRow struct {
	EmployeeID EmployeeID
	FiscalYear int
	GrantDate  time.Time
	Granted    Days
}

// GrantService owns the grant creation and correction paths.
type GrantService struct {
	store  TxStore
	regime Regime
	audit  Recorder
	log    zerolog.Logger
}

func NewGrantService(store TxStore, regime Regime, audit Recorder, log zerolog.Logger) *GrantService {
	return &GrantService{store: store, regime: regime, audit: audit, log: log}
}

// =============================================================================
// ANNUAL GRANT - Seniority-based issuance
// =============================================================================

// IssueAnnualGrant creates the employee's annual grant record for the
// fiscal year, with days resolved from the seniority table. Re-issuing for
// an existing (employee, year, grant date) key is rejected as a validation
// failure; corrections go through Adjust or the import path.
func (s *GrantService) IssueAnnualGrant(ctx context.Context, employee EmployeeID,
	fiscalYear int, grantDate time.Time, actor string) (*GrantRecord, error) {

	var created *GrantRecord
	err := s.store.WithTx(ctx, func(tx Tx) error {
		emp, err := tx.Employee(ctx, employee)
		if err != nil {
			return err
		}

		granted, err := s.regime.GrantForService(emp.HireDate, grantDate)
		if err != nil {
			return err
		}
		if !granted.IsPositive() {
			return &ValidationError{Field: "service", Message: "employee has not reached the first grant step"}
		}

		if _, err := tx.Grant(ctx, employee, fiscalYear, grantDate); err == nil {
			return &ValidationError{Field: "grant_date", Message: "grant already issued for this date"}
		} else if !IsNotFound(err) {
			return err
		}

		if err := s.checkProjectedCap(ctx, tx, employee, fiscalYear, granted); err != nil {
			return err
		}

		now := s.audit.now()
		rec := GrantRecord{
			EmployeeID: employee,
			FiscalYear: fiscalYear,
			GrantDate:  grantDate,
			Granted:    granted,
			Used:       ZeroDays(),
			Balance:    granted,
			CarriedOut: ZeroDays(),
			Expired:    ZeroDays(),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.PutGrant(ctx, rec); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, actor, AuditGrantCreated, employee,
			GrantKey(&rec), nil, rec.Snapshot(), "annual seniority grant"); err != nil {
			return err
		}
		created = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("employee_id", string(employee)).
		Int("fiscal_year", fiscalYear).
		Str("granted", created.Granted.String()).
		Msg("annual grant issued")
	return created, nil
}

// checkProjectedCap rejects a grant that would push the employee's summed
// year balance over the accumulation cap.
func (s *GrantService) checkProjectedCap(ctx context.Context, tx Tx,
	employee EmployeeID, fiscalYear int, adding Days) error {

	records, err := tx.GrantsForEmployee(ctx, employee, fiscalYear)
	if err != nil {
		return err
	}
	projected := adding
	for _, rec := range records {
		if rec.FiscalYear == fiscalYear {
			projected = projected.Add(rec.Balance)
		}
	}
	if projected.GreaterThan(s.regime.MaxAccumulatedDays) {
		return &ValidationError{
			Field:   "granted",
			Message: "projected cumulative balance exceeds the accumulation cap",
		}
	}
	return nil
}

// =============================================================================
// IMPORT - Idempotent upsert boundary
// =============================================================================

// ImportGrants upserts rows keyed on (employee, year, grant date).
// Re-importing the same source neither duplicates rows nor loses
// deductions applied since the last import: Granted is taken from the
// source, Used is preserved, Balance is recomputed.
func (s *GrantService) ImportGrants(ctx context.Context, rows []GrantImportRow, actor string) (int, error) {
	for _, row := range rows {
		if row.Granted.IsNegative() {
			return 0, &ValidationError{Field: "granted", Message: "granted days cannot be negative"}
		}
		if row.EmployeeID == "" {
			return 0, &ValidationError{Field: "employee_id", Message: "employee id is required"}
		}
	}

	var upserted int
	err := s.store.WithTx(ctx, func(tx Tx) error {
		for _, row := range rows {
			if err := tx.LockEmployeeGrants(ctx, row.EmployeeID); err != nil {
				return err
			}
			existing, err := tx.Grant(ctx, row.EmployeeID, row.FiscalYear, row.GrantDate)
			now := s.audit.now()

			switch {
			case err == nil:
				if row.Granted.LessThan(existing.Used) {
					return &ValidationError{Field: "granted",
						Message: "imported grant is smaller than days already used"}
				}
				before := existing.Snapshot()
				existing.Granted = row.Granted
				existing.Balance = existing.Granted.Sub(existing.Used).Sub(existing.CarriedOut).Sub(existing.Expired)
				existing.UpdatedAt = now
				if err := tx.PutGrant(ctx, *existing); err != nil {
					return err
				}
				if err := s.audit.Record(ctx, tx, actor, AuditImportUpsert, row.EmployeeID,
					GrantKey(existing), before, existing.Snapshot(), "grant import"); err != nil {
					return err
				}

			case IsNotFound(err):
				rec := GrantRecord{
					EmployeeID: row.EmployeeID,
					FiscalYear: row.FiscalYear,
					GrantDate:  row.GrantDate,
					Granted:    row.Granted,
					Used:       ZeroDays(),
					Balance:    row.Granted,
					CarriedOut: ZeroDays(),
					Expired:    ZeroDays(),
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := tx.PutGrant(ctx, rec); err != nil {
					return err
				}
				if err := s.audit.Record(ctx, tx, actor, AuditImportUpsert, row.EmployeeID,
					GrantKey(&rec), nil, rec.Snapshot(), "grant import"); err != nil {
					return err
				}

			default:
				return err
			}
			upserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().Int("rows", upserted).Msg("grant import complete")
	return upserted, nil
}

// =============================================================================
// MANUAL CORRECTION
// =============================================================================

// Adjust applies a manual correction to a record's used days. Positive
// deltaUsed consumes, negative restores. The record invariants still hold
// after the correction or the whole operation is rejected.
func (s *GrantService) Adjust(ctx context.Context, employee EmployeeID, fiscalYear int,
	grantDate time.Time, deltaUsed Days, actor, reason string) (*GrantRecord, error) {

	var adjusted *GrantRecord
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockEmployeeGrants(ctx, employee); err != nil {
			return err
		}
		rec, err := tx.Grant(ctx, employee, fiscalYear, grantDate)
		if err != nil {
			return err
		}

		before := rec.Snapshot()
		rec.Used = rec.Used.Add(deltaUsed)
		rec.Balance = rec.Granted.Sub(rec.Used).Sub(rec.CarriedOut).Sub(rec.Expired)
		rec.UpdatedAt = s.audit.now()
		if err := rec.Validate(); err != nil {
			return err
		}
		if err := tx.PutGrant(ctx, *rec); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, actor, AuditManualAdjust, employee,
			GrantKey(rec), before, rec.Snapshot(), reason); err != nil {
			return err
		}
		adjusted = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}
