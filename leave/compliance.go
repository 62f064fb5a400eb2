/*
compliance.go - Mandatory minimum-use checking and designation

PURPOSE:
  Employees granted at least ComplianceGrantThreshold days must use at
  least MinimumAnnualUse days per fiscal year. This component partitions
  employees into compliant / at-risk / non-compliant / exempt buckets and
  can auto-generate a compensating "designated" leave record for the
  shortfall.

  Designation is a legal act, not a balance deduction: the generated
  request is created directly in the terminal designated status and no
  grant record is touched.

  Classification is read-only and takes no locks.
*/
package leave

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// =============================================================================
// CLASSIFICATION
// =============================================================================

// EmployeeCompliance is one employee's standing for a fiscal year,
// aggregated across the year's grant records.
type EmployeeCompliance struct {
	EmployeeID        EmployeeID
	FiscalYear        int
	Granted           Days
	Used              Days
	RemainingRequired Days
}

// ComplianceReport buckets employees for one fiscal year.
type ComplianceReport struct {
	FiscalYear   int
	Compliant    []EmployeeCompliance // used >= MinimumAnnualUse
	AtRisk       []EmployeeCompliance // AtRiskUseThreshold <= used < MinimumAnnualUse
	NonCompliant []EmployeeCompliance // used < AtRiskUseThreshold
	Exempt       []EmployeeCompliance // granted < ComplianceGrantThreshold
}

// DesignationReason explains a non-created designation result.
type DesignationReason string

const (
	ReasonDesignated        DesignationReason = "designated"
	ReasonExempt            DesignationReason = "exempt"
	ReasonAlreadyCompliant  DesignationReason = "already_compliant"
	ReasonAlreadyDesignated DesignationReason = "already_designated"
)

// DesignationResult reports what AutoDesignate did.
type DesignationResult struct {
	Created bool
	Reason  DesignationReason
	Request *LeaveRequest
}

// ComplianceChecker derives minimum-use standing and issues designations.
type ComplianceChecker struct {
	store  TxStore
	regime Regime
	audit  Recorder
	log    zerolog.Logger
}

func NewComplianceChecker(store TxStore, regime Regime, audit Recorder, log zerolog.Logger) *ComplianceChecker {
	return &ComplianceChecker{store: store, regime: regime, audit: audit, log: log}
}

// Classify partitions all employees with grant records in the given fiscal
// year. Pure read.
func (c *ComplianceChecker) Classify(ctx context.Context, fiscalYear int) (*ComplianceReport, error) {
	records, err := c.store.GrantsForYear(ctx, fiscalYear)
	if err != nil {
		return nil, err
	}

	totals := map[EmployeeID]*EmployeeCompliance{}
	for _, rec := range records {
		t, ok := totals[rec.EmployeeID]
		if !ok {
			t = &EmployeeCompliance{
				EmployeeID: rec.EmployeeID,
				FiscalYear: fiscalYear,
				Granted:    ZeroDays(),
				Used:       ZeroDays(),
			}
			totals[rec.EmployeeID] = t
		}
		t.Granted = t.Granted.Add(rec.Granted)
		t.Used = t.Used.Add(rec.Used)
	}

	ids := make([]EmployeeID, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	report := &ComplianceReport{FiscalYear: fiscalYear}
	for _, id := range ids {
		t := totals[id]
		t.RemainingRequired = c.remainingRequired(t.Used)
		switch {
		case t.Granted.LessThan(c.regime.ComplianceGrantThreshold):
			report.Exempt = append(report.Exempt, *t)
		case !t.Used.LessThan(c.regime.MinimumAnnualUse):
			report.Compliant = append(report.Compliant, *t)
		case !t.Used.LessThan(c.regime.AtRiskUseThreshold):
			report.AtRisk = append(report.AtRisk, *t)
		default:
			report.NonCompliant = append(report.NonCompliant, *t)
		}
	}
	return report, nil
}

// =============================================================================
// AUTO-DESIGNATION
// =============================================================================

// AutoDesignate creates a terminal designated leave record covering the
// employee's remaining mandatory-use shortfall for the year, net of any
// designation already filed. Exempt, already-compliant, and
// already-designated employees get a non-success result with a reason code.
func (c *ComplianceChecker) AutoDesignate(ctx context.Context, employee EmployeeID,
	fiscalYear int, actor string) (*DesignationResult, error) {

	var result *DesignationResult
	err := c.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.Employee(ctx, employee); err != nil {
			return err
		}

		records, err := tx.GrantsForEmployee(ctx, employee, fiscalYear)
		if err != nil {
			return err
		}
		granted, used := ZeroDays(), ZeroDays()
		for _, rec := range records {
			if rec.FiscalYear != fiscalYear {
				continue
			}
			granted = granted.Add(rec.Granted)
			used = used.Add(rec.Used)
		}

		if granted.LessThan(c.regime.ComplianceGrantThreshold) {
			result = &DesignationResult{Created: false, Reason: ReasonExempt}
			return nil
		}

		// Designations already on file for the year count toward the
		// shortfall; a repeated sweep must not stack duplicates.
		designated, err := c.designatedDays(ctx, tx, employee, fiscalYear)
		if err != nil {
			return err
		}
		remaining := c.remainingRequired(used.Add(designated))
		if !remaining.IsPositive() {
			reason := ReasonAlreadyCompliant
			if used.LessThan(c.regime.MinimumAnnualUse) {
				reason = ReasonAlreadyDesignated
			}
			result = &DesignationResult{Created: false, Reason: reason}
			return nil
		}

		now := c.audit.now()
		req := LeaveRequest{
			ID:            RequestID(uuid.NewString()),
			EmployeeID:    employee,
			FiscalYear:    fiscalYear,
			StartDate:     FiscalYearStart(fiscalYear, c.regime.FiscalYearStartMonth),
			EndDate:       FiscalYearEnd(fiscalYear, c.regime.FiscalYearStartMonth),
			DaysRequested: remaining,
			Status:        StatusDesignated,
			Reason:        "mandatory minimum-use designation",
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.PutRequest(ctx, req); err != nil {
			return err
		}
		if err := c.audit.Record(ctx, tx, actor, AuditRequestDesignated,
			employee, string(req.ID), nil, req.Snapshot(),
			"auto-designated for minimum-use shortfall"); err != nil {
			return err
		}

		result = &DesignationResult{Created: true, Reason: ReasonDesignated, Request: &req}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created {
		c.log.Info().
			Str("employee_id", string(employee)).
			Int("fiscal_year", fiscalYear).
			Str("days", result.Request.DaysRequested.String()).
			Msg("minimum-use leave designated")
	}
	return result, nil
}

// Sweep runs AutoDesignate for every non-compliant and at-risk employee of
// the year. Invoked by the external scheduler on a fiscal-year cadence.
func (c *ComplianceChecker) Sweep(ctx context.Context, fiscalYear int, actor string) ([]DesignationResult, error) {
	report, err := c.Classify(ctx, fiscalYear)
	if err != nil {
		return nil, err
	}

	var results []DesignationResult
	for _, bucket := range [][]EmployeeCompliance{report.NonCompliant, report.AtRisk} {
		for _, ec := range bucket {
			r, err := c.AutoDesignate(ctx, ec.EmployeeID, fiscalYear, actor)
			if err != nil {
				return results, err
			}
			results = append(results, *r)
		}
	}
	return results, nil
}

// designatedDays sums the days of designated requests already filed for
// the employee in the fiscal year.
func (c *ComplianceChecker) designatedDays(ctx context.Context, tx Tx,
	employee EmployeeID, fiscalYear int) (Days, error) {

	requests, err := tx.RequestsForEmployee(ctx, employee)
	if err != nil {
		return ZeroDays(), err
	}
	total := ZeroDays()
	for _, req := range requests {
		if req.Status == StatusDesignated && req.FiscalYear == fiscalYear {
			total = total.Add(req.DaysRequested)
		}
	}
	return total, nil
}

func (c *ComplianceChecker) remainingRequired(used Days) Days {
	remaining := c.regime.MinimumAnnualUse.Sub(used)
	if remaining.IsNegative() {
		return ZeroDays()
	}
	return remaining
}
