/*
store.go - Persistence interfaces for grant records, requests, and audit

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage; any target
  engine must expose an exclusive-row-lock-within-transaction primitive,
  surfaced here as the LockScope capability.

KEY INTERFACES:
  GrantStore:    Grant record reads and keyed upsert
  RequestStore:  Leave request persistence
  EmployeeStore: Entity records
  AuditStore:    Append-only audit trail
  TxStore:       Store plus WithTx for atomic multi-write operations
  LockScope:     Explicit row-lock acquisition inside a transaction

LOCKING MODEL:
  Grant records are the only resource requiring locks. ApprovalService and
  CarryoverProcessor call LockEmployeeGrants (and LockRequest) at the start
  of their transaction; everything they subsequently read inside that
  transaction is therefore current, never a stale snapshot. The breakdown
  builder and compliance checker are read-only and take no locks.

ATOMICITY:
  WithTx ensures all-or-nothing semantics. An approval that deducts from
  three grant periods either persists all three mutations, the request
  status change, and the audit entries, or none of them.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - leave/store/memory.go:  In-memory for testing/dev

SEE ALSO:
  - audit.go: AuditEntry and action constants
  - approval.go, carryover.go: The two lock-taking components
*/
package leave

import (
	"context"
	"time"
)

// =============================================================================
// GRANT STORE
// =============================================================================

// GrantStore handles grant record persistence. Records are keyed by
// (employee, fiscal year, grant date); PutGrant is an idempotent upsert on
// that key, which is what the import pipeline relies on.
type GrantStore interface {
	// Grant returns the record for the exact key, or ErrGrantNotFound.
	Grant(ctx context.Context, employee EmployeeID, fiscalYear int, grantDate time.Time) (*GrantRecord, error)

	// GrantsForEmployee returns all records for the employee with fiscal
	// year >= fromYear, ordered by fiscal year then grant date ascending.
	GrantsForEmployee(ctx context.Context, employee EmployeeID, fromYear int) ([]GrantRecord, error)

	// GrantsForYear returns all records for one fiscal year, all employees.
	GrantsForYear(ctx context.Context, fiscalYear int) ([]GrantRecord, error)

	// LatestGrant returns the employee's most recent record (highest fiscal
	// year, then latest grant date), or ErrGrantNotFound.
	LatestGrant(ctx context.Context, employee EmployeeID) (*GrantRecord, error)

	// PutGrant inserts or replaces the record at its key.
	PutGrant(ctx context.Context, rec GrantRecord) error

	// DeleteGrantsBefore hard-deletes records with fiscal year < year and
	// returns how many were removed. Retention cleanup only.
	DeleteGrantsBefore(ctx context.Context, year int) (int, error)
}

// =============================================================================
// REQUEST STORE
// =============================================================================

type RequestStore interface {
	// Request returns the request by ID, or ErrRequestNotFound.
	Request(ctx context.Context, id RequestID) (*LeaveRequest, error)

	// PutRequest inserts or replaces the request.
	PutRequest(ctx context.Context, req LeaveRequest) error

	// DeleteRequest removes the request. Used only when cancelling a
	// pending request (nothing was ever deducted).
	DeleteRequest(ctx context.Context, id RequestID) error

	// RequestsForEmployee returns the employee's requests, newest first.
	RequestsForEmployee(ctx context.Context, employee EmployeeID) ([]LeaveRequest, error)

	// RequestsByStatus returns all requests with the given status, oldest first.
	RequestsByStatus(ctx context.Context, status RequestStatus) ([]LeaveRequest, error)
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

type EmployeeStore interface {
	// Employee returns the employee by ID, or ErrEmployeeNotFound.
	Employee(ctx context.Context, id EmployeeID) (*Employee, error)

	// PutEmployee inserts or replaces the employee.
	PutEmployee(ctx context.Context, emp Employee) error

	// Employees returns all employees, ordered by ID.
	Employees(ctx context.Context) ([]Employee, error)
}

// =============================================================================
// AUDIT STORE - Append-only
// =============================================================================

// AuditStore persists audit entries. Entries are never updated; the only
// delete path is the time-based retention sweep.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
	DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// =============================================================================
// COMBINED STORE, LOCK SCOPE, TRANSACTIONS
// =============================================================================

// Store is the full read/write surface without transactional capability.
type Store interface {
	GrantStore
	RequestStore
	EmployeeStore
	AuditStore
}

// LockScope acquires exclusive row locks inside an open transaction.
// Callers block until the lock is granted or the surrounding transaction
// times out per the storage engine's policy.
type LockScope interface {
	// LockRequest locks the leave request row. ErrRequestNotFound if absent.
	LockRequest(ctx context.Context, id RequestID) error

	// LockEmployeeGrants locks every grant record row for the employee.
	LockEmployeeGrants(ctx context.Context, employee EmployeeID) error
}

// Tx is the store surface visible inside a transaction.
type Tx interface {
	Store
	LockScope
}

// TxStore is a Store that can run atomic operations.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back and no partial mutation survives; if fn
	// returns nil the transaction commits.
	WithTx(ctx context.Context, fn func(Tx) error) error
}
