/*
audit.go - Append-only audit trail

PURPOSE:
  Every mutation performed by the deduction engine, approval state machine,
  carryover processor, compliance checker, and grant/import paths is
  mirrored by an immutable AuditEntry carrying actor, action, before/after
  snapshots, and a free-text reason.

INVARIANTS:
  1. APPEND-ONLY: Entries are never updated. The only delete path is the
     time-based retention sweep, which is unrelated to correctness.
  2. SAME TRANSACTION: The Recorder writes through the enclosing Tx, so an
     aborted operation leaves no orphan audit entries.

SEE ALSO:
  - store.go: AuditStore interface
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// AUDIT ENTRY
// =============================================================================

type AuditAction string

const (
	AuditGrantCreated      AuditAction = "grant_created"
	AuditGrantUpdated      AuditAction = "grant_updated"
	AuditDeduction         AuditAction = "deduction"
	AuditRequestCreated    AuditAction = "request_created"
	AuditRequestApproved   AuditAction = "request_approved"
	AuditRequestRejected   AuditAction = "request_rejected"
	AuditRequestCancelled  AuditAction = "request_cancelled"
	AuditRequestReverted   AuditAction = "request_reverted"
	AuditRequestDesignated AuditAction = "request_designated"
	AuditCarryover         AuditAction = "carryover"
	AuditExpiry            AuditAction = "expiry"
	AuditRetentionSweep    AuditAction = "retention_sweep"
	AuditImportUpsert      AuditAction = "import_upsert"
	AuditManualAdjust      AuditAction = "manual_adjustment"
)

// AuditEntry is one immutable before/after record.
type AuditEntry struct {
	ID         string
	Actor      string
	Action     AuditAction
	EmployeeID EmployeeID
	TargetID   string // affected entity key: request ID or grant key
	OldValue   map[string]any
	NewValue   map[string]any
	Reason     string
	At         time.Time
}

// AuditFilter narrows audit queries. Nil/zero fields match everything.
type AuditFilter struct {
	EmployeeID *EmployeeID
	Actions    []AuditAction
	From       *time.Time
	To         *time.Time
}

// Matches reports whether the entry passes the filter.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if e.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && e.At.Before(*f.From) {
		return false
	}
	if f.To != nil && e.At.After(*f.To) {
		return false
	}
	return true
}

// =============================================================================
// RECORDER - Helper for writing entries through a Tx
// =============================================================================

// Recorder builds and appends audit entries. Zero value is usable; Clock is
// overridable for tests.
type Recorder struct {
	Clock func() time.Time
}

func (r Recorder) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

// Record appends one entry through the given store (normally the enclosing Tx).
func (r Recorder) Record(ctx context.Context, s AuditStore, actor string, action AuditAction,
	employee EmployeeID, targetID string, oldValue, newValue map[string]any, reason string) error {

	return s.AppendAudit(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Actor:      actor,
		Action:     action,
		EmployeeID: employee,
		TargetID:   targetID,
		OldValue:   oldValue,
		NewValue:   newValue,
		Reason:     reason,
		At:         r.now(),
	})
}

// GrantKey renders the audit target key for a grant record.
func GrantKey(g *GrantRecord) string {
	return fmt.Sprintf("%s/%d/%s", g.EmployeeID, g.FiscalYear, g.GrantDate.Format("2006-01-02"))
}
