/*
approval.go - Leave request lifecycle state machine

PURPOSE:
  Governs the lifecycle of a LeaveRequest and invokes the deduction engine
  exactly once, inside one locked transaction, when a request transitions
  from pending to approved.

REQUEST FLOW:
  Submit    -> pending
  Approve   -> pending  -> approved   (deducts, or rolls back entirely)
  Reject    -> pending  -> rejected   (status only)
  Cancel    -> pending  -> deleted    (nothing was ever deducted)
  Revert    -> approved -> cancelled  (single-record balance credit)

CONCURRENCY:
  Approve and Revert open one transaction, lock the request row and every
  grant record of the employee, and only then read balances. Two concurrent
  approvals against overlapping records serialize on the lock; the second
  recomputes its breakdown against the already-decremented balances and
  fails cleanly with insufficient balance if it can no longer be satisfied.
  There is no mid-operation cancellation: an approval either commits fully
  or rolls back fully.

FAILURE SIGNALING:
  Insufficient balance  -> *InsufficientBalanceError (request stays pending)
  Wrong source status   -> *StateConflictError
  Unknown request       -> ErrRequestNotFound
  All are caller-visible and leave stored state untouched.

SEE ALSO:
  - deduction.go: The engine invoked at pending -> approved
  - store.go: LockScope, the explicit row-lock capability
*/
package leave

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ApprovalService owns every transition of a LeaveRequest's status field.
type ApprovalService struct {
	store  TxStore
	engine *DeductionEngine
	regime Regime
	audit  Recorder
	log    zerolog.Logger
}

func NewApprovalService(store TxStore, regime Regime, audit Recorder, log zerolog.Logger) *ApprovalService {
	return &ApprovalService{
		store:  store,
		engine: NewDeductionEngine(regime, audit),
		regime: regime,
		audit:  audit,
		log:    log,
	}
}

// =============================================================================
// SUBMIT - Create a pending request
// =============================================================================

// Submit validates and creates a pending request. No balance is touched
// here; deduction happens at approval.
func (s *ApprovalService) Submit(ctx context.Context, employee EmployeeID,
	start, end time.Time, days Days, reason string) (*LeaveRequest, error) {

	if !days.IsPositive() {
		return nil, &ValidationError{Field: "days", Message: "requested days must be positive"}
	}
	if end.Before(start) {
		return nil, &ValidationError{Field: "date_range", Message: "end date before start date"}
	}

	var req *LeaveRequest
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.Employee(ctx, employee); err != nil {
			return err
		}

		now := s.audit.now()
		req = &LeaveRequest{
			ID:            RequestID(uuid.NewString()),
			EmployeeID:    employee,
			FiscalYear:    s.regime.FiscalYear(start),
			StartDate:     start,
			EndDate:       end,
			DaysRequested: days,
			Status:        StatusPending,
			Reason:        reason,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.PutRequest(ctx, *req); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, string(employee), AuditRequestCreated,
			employee, string(req.ID), nil, req.Snapshot(), reason)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", string(req.ID)).
		Str("employee_id", string(employee)).
		Str("days", days.String()).
		Msg("leave request submitted")
	return req, nil
}

// =============================================================================
// APPROVE - The only balance-mutating transition
// =============================================================================

// Approve transitions a pending request to approved, deducting its day
// count inside one locked transaction. On insufficient balance the whole
// transaction rolls back and the request remains pending.
func (s *ApprovalService) Approve(ctx context.Context, id RequestID, actor string) (*LeaveRequest, error) {
	var approved *LeaveRequest

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockRequest(ctx, id); err != nil {
			return err
		}
		req, err := tx.Request(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &StateConflictError{RequestID: id, Required: StatusPending, Current: req.Status, Operation: "approve"}
		}

		if err := tx.LockEmployeeGrants(ctx, req.EmployeeID); err != nil {
			return err
		}

		result, err := s.engine.Deduct(ctx, tx, req.EmployeeID,
			req.DaysRequested, req.FiscalYear, actor, req.Reason)
		if err != nil {
			return err
		}
		if !result.Success {
			// Rolling back the enclosing transaction discards the partial
			// deduction; report requested vs. available.
			available := result.TotalDeducted
			return &InsufficientBalanceError{
				EmployeeID: req.EmployeeID,
				RequestID:  id,
				Requested:  req.DaysRequested,
				Available:  available,
			}
		}

		before := req.Snapshot()
		now := s.audit.now()
		req.Status = StatusApproved
		req.ApprovedBy = actor
		req.ApprovedAt = &now
		req.UpdatedAt = now
		if err := tx.PutRequest(ctx, *req); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, actor, AuditRequestApproved,
			req.EmployeeID, string(id), before, req.Snapshot(), req.Reason); err != nil {
			return err
		}
		approved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", string(id)).
		Str("approver", actor).
		Msg("leave request approved")
	return approved, nil
}

// =============================================================================
// REJECT / CANCEL - Status-only paths
// =============================================================================

// Reject transitions a pending request to rejected. No balance effect.
func (s *ApprovalService) Reject(ctx context.Context, id RequestID, actor, reason string) (*LeaveRequest, error) {
	var rejected *LeaveRequest

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockRequest(ctx, id); err != nil {
			return err
		}
		req, err := tx.Request(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &StateConflictError{RequestID: id, Required: StatusPending, Current: req.Status, Operation: "reject"}
		}

		before := req.Snapshot()
		req.Status = StatusRejected
		req.RejectedBy = actor
		req.RejectionReason = reason
		req.UpdatedAt = s.audit.now()
		if err := tx.PutRequest(ctx, *req); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, actor, AuditRequestRejected,
			req.EmployeeID, string(id), before, req.Snapshot(), reason); err != nil {
			return err
		}
		rejected = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// Cancel deletes a pending request. Nothing was ever deducted, so there is
// no balance effect.
func (s *ApprovalService) Cancel(ctx context.Context, id RequestID) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockRequest(ctx, id); err != nil {
			return err
		}
		req, err := tx.Request(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return &StateConflictError{RequestID: id, Required: StatusPending, Current: req.Status, Operation: "cancel"}
		}
		if err := tx.DeleteRequest(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, string(req.EmployeeID), AuditRequestCancelled,
			req.EmployeeID, string(id), req.Snapshot(), nil, "pending request cancelled")
	})
}

// =============================================================================
// REVERT - Undo an approved request
// =============================================================================

// Revert transitions an approved request to cancelled and credits its day
// count back onto the employee's most recent grant record. This is a
// best-effort single-record credit, not a replay of the original
// per-period trail.
func (s *ApprovalService) Revert(ctx context.Context, id RequestID, actor string) (*LeaveRequest, error) {
	var reverted *LeaveRequest

	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.LockRequest(ctx, id); err != nil {
			return err
		}
		req, err := tx.Request(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != StatusApproved {
			return &StateConflictError{RequestID: id, Required: StatusApproved, Current: req.Status, Operation: "revert"}
		}

		if err := tx.LockEmployeeGrants(ctx, req.EmployeeID); err != nil {
			return err
		}

		rec, err := s.revertTarget(ctx, tx, req)
		if err != nil {
			return err
		}

		before := rec.Snapshot()
		// Credit is capped at the record's Used so the record invariants
		// (used >= 0, balance <= granted) hold.
		credit := req.DaysRequested.Min(rec.Used)
		rec.Used = rec.Used.Sub(credit)
		rec.Balance = rec.Granted.Sub(rec.Used).Sub(rec.CarriedOut).Sub(rec.Expired)
		rec.UpdatedAt = s.audit.now()
		if err := rec.Validate(); err != nil {
			return err
		}
		if err := tx.PutGrant(ctx, *rec); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, actor, AuditRequestReverted,
			req.EmployeeID, GrantKey(rec), before, rec.Snapshot(),
			"approved request reverted"); err != nil {
			return err
		}

		reqBefore := req.Snapshot()
		req.Status = StatusCancelled
		req.UpdatedAt = s.audit.now()
		if err := tx.PutRequest(ctx, *req); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, tx, actor, AuditRequestReverted,
			req.EmployeeID, string(id), reqBefore, req.Snapshot(),
			"approved request reverted"); err != nil {
			return err
		}
		reverted = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", string(id)).
		Str("actor", actor).
		Msg("approved request reverted")
	return reverted, nil
}

// revertTarget picks the most recent grant record for the request's fiscal
// year, falling back to the employee's latest record overall.
func (s *ApprovalService) revertTarget(ctx context.Context, tx Tx, req *LeaveRequest) (*GrantRecord, error) {
	records, err := tx.GrantsForEmployee(ctx, req.EmployeeID, req.FiscalYear)
	if err != nil {
		return nil, err
	}
	var target *GrantRecord
	for i := range records {
		rec := &records[i]
		if rec.FiscalYear != req.FiscalYear {
			continue
		}
		if target == nil || rec.GrantDate.After(target.GrantDate) {
			target = rec
		}
	}
	if target != nil {
		return target, nil
	}
	return tx.LatestGrant(ctx, req.EmployeeID)
}

// =============================================================================
// BALANCE VIEW - What the caller sees
// =============================================================================

// BalanceView is the caller-facing balance summary for one employee.
type BalanceView struct {
	EmployeeID     EmployeeID
	ReferenceYear  int
	TotalAvailable Days
	Periods        []BreakdownPeriod
}

// BalanceView returns the employee's usable periods and total for refYear.
// Read-only, no locks.
func (s *ApprovalService) BalanceView(ctx context.Context, employee EmployeeID, refYear int) (*BalanceView, error) {
	if _, err := s.store.Employee(ctx, employee); err != nil {
		return nil, err
	}
	builder := NewBreakdownBuilder(s.regime)
	periods, err := builder.Build(ctx, s.store, employee, refYear)
	if err != nil {
		return nil, err
	}
	total := ZeroDays()
	for _, p := range periods {
		total = total.Add(p.Available)
	}
	return &BalanceView{
		EmployeeID:     employee,
		ReferenceYear:  refYear,
		TotalAvailable: total,
		Periods:        periods,
	}, nil
}
