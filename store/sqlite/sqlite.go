/*
Package sqlite provides a SQLite-backed implementation of leave.TxStore.

PURPOSE:
  Implements the full storage surface (grant records, leave requests,
  employees, audit trail) plus the transactional LockScope capability the
  approval and carryover components require. In production against
  PostgreSQL the same patterns apply with minor dialect differences.

KEY TABLES:
  employees:       Entity records with hire dates
  grant_records:   One row per (employee, fiscal year, grant date);
                   decimal day counts stored as TEXT to avoid float drift
  leave_requests:  Request lifecycle rows
  audit_entries:   Append-only before/after records (snapshots as JSON)

LOCKING:
  SQLite has no SELECT ... FOR UPDATE; the single-writer transaction IS the
  row-lock primitive. WithTx holds the store mutex for the duration, so
  concurrent approvals serialize exactly as they would on row locks, and
  LockRequest/LockEmployeeGrants reduce to existence checks inside the open
  transaction. A PostgreSQL implementation would issue FOR UPDATE reads in
  those two methods and drop the mutex.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): readers don't block, single writer
  at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  svc := leave.NewApprovalService(store, leave.DefaultRegime(), leave.Recorder{}, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a versioned
  migration tool.

SEE ALSO:
  - leave/store.go: Interface definitions
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kyuka/leave-engine/leave"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339Nano
)

// Store implements leave.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The in-memory database vanishes if its only connection closes.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- One row per (employee, fiscal year, grant date). Day counts stored
	-- as decimal TEXT, never REAL.
	CREATE TABLE IF NOT EXISTS grant_records (
		employee_id TEXT NOT NULL,
		fiscal_year INTEGER NOT NULL,
		grant_date TEXT NOT NULL,
		granted TEXT NOT NULL,
		used TEXT NOT NULL,
		balance TEXT NOT NULL,
		carried_out TEXT NOT NULL,
		expired TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, fiscal_year, grant_date)
	);

	CREATE INDEX IF NOT EXISTS idx_grant_records_employee
		ON grant_records(employee_id, fiscal_year);
	CREATE INDEX IF NOT EXISTS idx_grant_records_year
		ON grant_records(fiscal_year);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		fiscal_year INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days_requested TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		approved_by TEXT,
		approved_at TEXT,
		rejected_by TEXT,
		rejection_reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);

	-- Append-only. No UPDATE path exists; the only DELETE is the
	-- time-based retention sweep.
	CREATE TABLE IF NOT EXISTS audit_entries (
		id TEXT PRIMARY KEY,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		employee_id TEXT,
		target_id TEXT,
		old_value_json TEXT,
		new_value_json TEXT,
		reason TEXT,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_entries_employee
		ON audit_entries(employee_id, at);
	CREATE INDEX IF NOT EXISTS idx_audit_entries_action
		ON audit_entries(action);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// sqlTx implements leave.Tx over an open *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
}

// WithTx executes fn within a database transaction. The store mutex is held
// for the duration: with SQLite the serialized write transaction is the
// row-lock primitive (see package comment).
func (s *Store) WithTx(ctx context.Context, fn func(leave.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// LockRequest verifies the row exists inside the open transaction. With
// PostgreSQL this becomes SELECT ... FOR UPDATE.
func (t *sqlTx) LockRequest(ctx context.Context, id leave.RequestID) error {
	var found string
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM leave_requests WHERE id = ?`, string(id)).Scan(&found)
	if err == sql.ErrNoRows {
		return leave.ErrRequestNotFound
	}
	return err
}

// LockEmployeeGrants reads the employee's grant rows inside the open
// transaction. With PostgreSQL this becomes SELECT ... FOR UPDATE.
func (t *sqlTx) LockEmployeeGrants(ctx context.Context, employee leave.EmployeeID) error {
	var n int
	return t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM grant_records WHERE employee_id = ?`, string(employee)).Scan(&n)
}

// =============================================================================
// QUERY PLUMBING - Shared between Store and sqlTx
// =============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ----- grant records -----

const grantColumns = `employee_id, fiscal_year, grant_date, granted, used, balance,
	carried_out, expired, created_at, updated_at`

func getGrant(ctx context.Context, q querier, employee leave.EmployeeID, year int, grantDate time.Time) (*leave.GrantRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+grantColumns+` FROM grant_records
		 WHERE employee_id = ? AND fiscal_year = ? AND grant_date = ?`,
		string(employee), year, grantDate.Format(dateLayout))
	rec, err := scanGrant(row)
	if err == sql.ErrNoRows {
		return nil, leave.ErrGrantNotFound
	}
	return rec, err
}

func listGrants(ctx context.Context, q querier, query string, args ...any) ([]leave.GrantRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grant records: %w", err)
	}
	defer rows.Close()

	var records []leave.GrantRecord
	for rows.Next() {
		rec, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func grantsForEmployee(ctx context.Context, q querier, employee leave.EmployeeID, fromYear int) ([]leave.GrantRecord, error) {
	return listGrants(ctx, q,
		`SELECT `+grantColumns+` FROM grant_records
		 WHERE employee_id = ? AND fiscal_year >= ?
		 ORDER BY fiscal_year ASC, grant_date ASC`,
		string(employee), fromYear)
}

func grantsForYear(ctx context.Context, q querier, year int) ([]leave.GrantRecord, error) {
	return listGrants(ctx, q,
		`SELECT `+grantColumns+` FROM grant_records
		 WHERE fiscal_year = ?
		 ORDER BY employee_id ASC, grant_date ASC`, year)
}

func latestGrant(ctx context.Context, q querier, employee leave.EmployeeID) (*leave.GrantRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+grantColumns+` FROM grant_records
		 WHERE employee_id = ?
		 ORDER BY fiscal_year DESC, grant_date DESC LIMIT 1`, string(employee))
	rec, err := scanGrant(row)
	if err == sql.ErrNoRows {
		return nil, leave.ErrGrantNotFound
	}
	return rec, err
}

func putGrant(ctx context.Context, q querier, rec leave.GrantRecord) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO grant_records (employee_id, fiscal_year, grant_date, granted, used,
			balance, carried_out, expired, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(employee_id, fiscal_year, grant_date) DO UPDATE SET
			granted = excluded.granted,
			used = excluded.used,
			balance = excluded.balance,
			carried_out = excluded.carried_out,
			expired = excluded.expired,
			updated_at = excluded.updated_at`,
		string(rec.EmployeeID), rec.FiscalYear, rec.GrantDate.Format(dateLayout),
		rec.Granted.String(), rec.Used.String(), rec.Balance.String(),
		rec.CarriedOut.String(), rec.Expired.String(),
		rec.CreatedAt.UTC().Format(tsLayout), rec.UpdatedAt.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("failed to put grant record: %w", err)
	}
	return nil
}

func deleteGrantsBefore(ctx context.Context, q querier, year int) (int, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM grant_records WHERE fiscal_year < ?`, year)
	if err != nil {
		return 0, fmt.Errorf("failed to delete grant records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanGrant(row rowScanner) (*leave.GrantRecord, error) {
	var (
		rec                  leave.GrantRecord
		employeeID           string
		grantDate            string
		granted, used        string
		balance, carriedOut  string
		expired              string
		createdAt, updatedAt string
	)
	err := row.Scan(&employeeID, &rec.FiscalYear, &grantDate, &granted, &used,
		&balance, &carriedOut, &expired, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rec.EmployeeID = leave.EmployeeID(employeeID)
	rec.GrantDate, _ = time.Parse(dateLayout, grantDate)
	rec.Granted = leave.MustParseDays(granted)
	rec.Used = leave.MustParseDays(used)
	rec.Balance = leave.MustParseDays(balance)
	rec.CarriedOut = leave.MustParseDays(carriedOut)
	rec.Expired = leave.MustParseDays(expired)
	rec.CreatedAt, _ = time.Parse(tsLayout, createdAt)
	rec.UpdatedAt, _ = time.Parse(tsLayout, updatedAt)
	return &rec, nil
}

// ----- leave requests -----

const requestColumns = `id, employee_id, fiscal_year, start_date, end_date, days_requested,
	status, reason, approved_by, approved_at, rejected_by, rejection_reason, created_at, updated_at`

func getRequest(ctx context.Context, q querier, id leave.RequestID) (*leave.LeaveRequest, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM leave_requests WHERE id = ?`, string(id))
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, leave.ErrRequestNotFound
	}
	return req, err
}

func listRequests(ctx context.Context, q querier, query string, args ...any) ([]leave.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

func putRequest(ctx context.Context, q querier, req leave.LeaveRequest) error {
	var approvedAt any
	if req.ApprovedAt != nil {
		approvedAt = req.ApprovedAt.UTC().Format(tsLayout)
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO leave_requests (id, employee_id, fiscal_year, start_date, end_date,
			days_requested, status, reason, approved_by, approved_at, rejected_by,
			rejection_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason,
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at,
			rejected_by = excluded.rejected_by,
			rejection_reason = excluded.rejection_reason,
			updated_at = excluded.updated_at`,
		string(req.ID), string(req.EmployeeID), req.FiscalYear,
		req.StartDate.Format(dateLayout), req.EndDate.Format(dateLayout),
		req.DaysRequested.String(), string(req.Status), req.Reason,
		nullString(req.ApprovedBy), approvedAt,
		nullString(req.RejectedBy), nullString(req.RejectionReason),
		req.CreatedAt.UTC().Format(tsLayout), req.UpdatedAt.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("failed to put leave request: %w", err)
	}
	return nil
}

func deleteRequest(ctx context.Context, q querier, id leave.RequestID) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM leave_requests WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete leave request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return leave.ErrRequestNotFound
	}
	return nil
}

func scanRequest(row rowScanner) (*leave.LeaveRequest, error) {
	var (
		req                       leave.LeaveRequest
		id, employeeID            string
		startDate, endDate        string
		daysRequested, status     string
		reason                    sql.NullString
		approvedBy, approvedAt    sql.NullString
		rejectedBy, rejectionNote sql.NullString
		createdAt, updatedAt      string
	)
	err := row.Scan(&id, &employeeID, &req.FiscalYear, &startDate, &endDate,
		&daysRequested, &status, &reason, &approvedBy, &approvedAt,
		&rejectedBy, &rejectionNote, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	req.ID = leave.RequestID(id)
	req.EmployeeID = leave.EmployeeID(employeeID)
	req.StartDate, _ = time.Parse(dateLayout, startDate)
	req.EndDate, _ = time.Parse(dateLayout, endDate)
	req.DaysRequested = leave.MustParseDays(daysRequested)
	req.Status = leave.RequestStatus(status)
	req.Reason = reason.String
	req.ApprovedBy = approvedBy.String
	if approvedAt.Valid {
		t, _ := time.Parse(tsLayout, approvedAt.String)
		req.ApprovedAt = &t
	}
	req.RejectedBy = rejectedBy.String
	req.RejectionReason = rejectionNote.String
	req.CreatedAt, _ = time.Parse(tsLayout, createdAt)
	req.UpdatedAt, _ = time.Parse(tsLayout, updatedAt)
	return &req, nil
}

// ----- employees -----

func getEmployee(ctx context.Context, q querier, id leave.EmployeeID) (*leave.Employee, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, email, hire_date, created_at FROM employees WHERE id = ?`, string(id))
	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, leave.ErrEmployeeNotFound
	}
	return emp, err
}

func putEmployee(ctx context.Context, q querier, emp leave.Employee) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO employees (id, name, email, hire_date, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			hire_date = excluded.hire_date`,
		string(emp.ID), emp.Name, emp.Email,
		emp.HireDate.Format(dateLayout), emp.CreatedAt.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("failed to put employee: %w", err)
	}
	return nil
}

func listEmployees(ctx context.Context, q querier) ([]leave.Employee, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, email, hire_date, created_at FROM employees ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

func scanEmployee(row rowScanner) (*leave.Employee, error) {
	var (
		emp                 leave.Employee
		id                  string
		email               sql.NullString
		hireDate, createdAt string
	)
	if err := row.Scan(&id, &emp.Name, &email, &hireDate, &createdAt); err != nil {
		return nil, err
	}
	emp.ID = leave.EmployeeID(id)
	emp.Email = email.String
	emp.HireDate, _ = time.Parse(dateLayout, hireDate)
	emp.CreatedAt, _ = time.Parse(tsLayout, createdAt)
	return &emp, nil
}

// ----- audit -----

func appendAudit(ctx context.Context, q querier, entry leave.AuditEntry) error {
	oldJSON, _ := json.Marshal(entry.OldValue)
	newJSON, _ := json.Marshal(entry.NewValue)
	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_entries
		 (id, actor, action, employee_id, target_id, old_value_json, new_value_json, reason, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Actor, string(entry.Action), string(entry.EmployeeID),
		entry.TargetID, string(oldJSON), string(newJSON), entry.Reason,
		entry.At.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func queryAudit(ctx context.Context, q querier, filter leave.AuditFilter) ([]leave.AuditEntry, error) {
	query := `SELECT id, actor, action, employee_id, target_id, old_value_json,
		new_value_json, reason, at FROM audit_entries`
	var (
		conds []string
		args  []any
	)
	if filter.EmployeeID != nil {
		conds = append(conds, "employee_id = ?")
		args = append(args, string(*filter.EmployeeID))
	}
	if len(filter.Actions) > 0 {
		placeholders := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			placeholders[i] = "?"
			args = append(args, string(a))
		}
		conds = append(conds, "action IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.From != nil {
		conds = append(conds, "at >= ?")
		args = append(args, filter.From.UTC().Format(tsLayout))
	}
	if filter.To != nil {
		conds = append(conds, "at <= ?")
		args = append(args, filter.To.UTC().Format(tsLayout))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY at ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []leave.AuditEntry
	for rows.Next() {
		var (
			e                leave.AuditEntry
			action           string
			employeeID       string
			oldJSON, newJSON sql.NullString
			reason           sql.NullString
			at               string
		)
		if err := rows.Scan(&e.ID, &e.Actor, &action, &employeeID, &e.TargetID,
			&oldJSON, &newJSON, &reason, &at); err != nil {
			return nil, err
		}
		e.Action = leave.AuditAction(action)
		e.EmployeeID = leave.EmployeeID(employeeID)
		if oldJSON.Valid && oldJSON.String != "null" {
			json.Unmarshal([]byte(oldJSON.String), &e.OldValue)
		}
		if newJSON.Valid && newJSON.String != "null" {
			json.Unmarshal([]byte(newJSON.String), &e.NewValue)
		}
		e.Reason = reason.String
		e.At, _ = time.Parse(tsLayout, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func deleteAuditBefore(ctx context.Context, q querier, cutoff time.Time) (int, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM audit_entries WHERE at < ?`, cutoff.UTC().Format(tsLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// =============================================================================
// STORE INTERFACE (outside transactions)
// =============================================================================

func (s *Store) Grant(ctx context.Context, employee leave.EmployeeID, year int, grantDate time.Time) (*leave.GrantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getGrant(ctx, s.db, employee, year, grantDate)
}

func (s *Store) GrantsForEmployee(ctx context.Context, employee leave.EmployeeID, fromYear int) ([]leave.GrantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return grantsForEmployee(ctx, s.db, employee, fromYear)
}

func (s *Store) GrantsForYear(ctx context.Context, year int) ([]leave.GrantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return grantsForYear(ctx, s.db, year)
}

func (s *Store) LatestGrant(ctx context.Context, employee leave.EmployeeID) (*leave.GrantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestGrant(ctx, s.db, employee)
}

func (s *Store) PutGrant(ctx context.Context, rec leave.GrantRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putGrant(ctx, s.db, rec)
}

func (s *Store) DeleteGrantsBefore(ctx context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteGrantsBefore(ctx, s.db, year)
}

func (s *Store) Request(ctx context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func (s *Store) PutRequest(ctx context.Context, req leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putRequest(ctx, s.db, req)
}

func (s *Store) DeleteRequest(ctx context.Context, id leave.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteRequest(ctx, s.db, id)
}

func (s *Store) RequestsForEmployee(ctx context.Context, employee leave.EmployeeID) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequests(ctx, s.db,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE employee_id = ? ORDER BY created_at DESC`, string(employee))
}

func (s *Store) RequestsByStatus(ctx context.Context, status leave.RequestStatus) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequests(ctx, s.db,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE status = ? ORDER BY created_at ASC`, string(status))
}

func (s *Store) Employee(ctx context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, id)
}

func (s *Store) PutEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putEmployee(ctx, s.db, emp)
}

func (s *Store) Employees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEmployees(ctx, s.db)
}

func (s *Store) AppendAudit(ctx context.Context, entry leave.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAudit(ctx, s.db, entry)
}

func (s *Store) QueryAudit(ctx context.Context, filter leave.AuditFilter) ([]leave.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAudit(ctx, s.db, filter)
}

func (s *Store) DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAuditBefore(ctx, s.db, cutoff)
}

// =============================================================================
// TX INTERFACE (inside transactions)
// =============================================================================

func (t *sqlTx) Grant(ctx context.Context, employee leave.EmployeeID, year int, grantDate time.Time) (*leave.GrantRecord, error) {
	return getGrant(ctx, t.tx, employee, year, grantDate)
}

func (t *sqlTx) GrantsForEmployee(ctx context.Context, employee leave.EmployeeID, fromYear int) ([]leave.GrantRecord, error) {
	return grantsForEmployee(ctx, t.tx, employee, fromYear)
}

func (t *sqlTx) GrantsForYear(ctx context.Context, year int) ([]leave.GrantRecord, error) {
	return grantsForYear(ctx, t.tx, year)
}

func (t *sqlTx) LatestGrant(ctx context.Context, employee leave.EmployeeID) (*leave.GrantRecord, error) {
	return latestGrant(ctx, t.tx, employee)
}

func (t *sqlTx) PutGrant(ctx context.Context, rec leave.GrantRecord) error {
	return putGrant(ctx, t.tx, rec)
}

func (t *sqlTx) DeleteGrantsBefore(ctx context.Context, year int) (int, error) {
	return deleteGrantsBefore(ctx, t.tx, year)
}

func (t *sqlTx) Request(ctx context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	return getRequest(ctx, t.tx, id)
}

func (t *sqlTx) PutRequest(ctx context.Context, req leave.LeaveRequest) error {
	return putRequest(ctx, t.tx, req)
}

func (t *sqlTx) DeleteRequest(ctx context.Context, id leave.RequestID) error {
	return deleteRequest(ctx, t.tx, id)
}

func (t *sqlTx) RequestsForEmployee(ctx context.Context, employee leave.EmployeeID) ([]leave.LeaveRequest, error) {
	return listRequests(ctx, t.tx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE employee_id = ? ORDER BY created_at DESC`, string(employee))
}

func (t *sqlTx) RequestsByStatus(ctx context.Context, status leave.RequestStatus) ([]leave.LeaveRequest, error) {
	return listRequests(ctx, t.tx,
		`SELECT `+requestColumns+` FROM leave_requests
		 WHERE status = ? ORDER BY created_at ASC`, string(status))
}

func (t *sqlTx) Employee(ctx context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	return getEmployee(ctx, t.tx, id)
}

func (t *sqlTx) PutEmployee(ctx context.Context, emp leave.Employee) error {
	return putEmployee(ctx, t.tx, emp)
}

func (t *sqlTx) Employees(ctx context.Context) ([]leave.Employee, error) {
	return listEmployees(ctx, t.tx)
}

func (t *sqlTx) AppendAudit(ctx context.Context, entry leave.AuditEntry) error {
	return appendAudit(ctx, t.tx, entry)
}

func (t *sqlTx) QueryAudit(ctx context.Context, filter leave.AuditFilter) ([]leave.AuditEntry, error) {
	return queryAudit(ctx, t.tx, filter)
}

func (t *sqlTx) DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return deleteAuditBefore(ctx, t.tx, cutoff)
}

// Compile-time interface checks.
var (
	_ leave.TxStore = (*Store)(nil)
	_ leave.Tx      = (*sqlTx)(nil)
)
