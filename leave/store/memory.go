// Package store provides an in-memory leave.TxStore for testing and dev.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kyuka/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements leave.TxStore. A single mutex serializes WithTx, which
// is the in-memory analogue of row-level locking: two concurrent approvals
// against the same employee run strictly one after the other, and the
// second observes the first's committed balances. Rollback is implemented
// by snapshotting state before fn and restoring it on error.
type Memory struct {
	mu   sync.RWMutex
	data *state
}

type grantKey struct {
	Employee  leave.EmployeeID
	Year      int
	GrantDate string // 2006-01-02
}

type state struct {
	grants    map[grantKey]leave.GrantRecord
	requests  map[leave.RequestID]leave.LeaveRequest
	employees map[leave.EmployeeID]leave.Employee
	audits    []leave.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{data: newState()}
}

func newState() *state {
	return &state{
		grants:    make(map[grantKey]leave.GrantRecord),
		requests:  make(map[leave.RequestID]leave.LeaveRequest),
		employees: make(map[leave.EmployeeID]leave.Employee),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.grants {
		c.grants[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	c.audits = append(c.audits, s.audits...)
	return c
}

func keyOf(employee leave.EmployeeID, year int, grantDate time.Time) grantKey {
	return grantKey{Employee: employee, Year: year, GrantDate: grantDate.Format("2006-01-02")}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// memTx operates on the live state under the store's exclusive lock.
type memTx struct {
	s *state
}

// WithTx runs fn atomically. The exclusive lock is held for the duration,
// so transactions never interleave; on error the pre-transaction snapshot
// is restored and no partial mutation survives.
func (m *Memory) WithTx(_ context.Context, fn func(leave.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&memTx{s: m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

// LockRequest validates existence; the store-wide lock already grants
// exclusivity.
func (t *memTx) LockRequest(_ context.Context, id leave.RequestID) error {
	if _, ok := t.s.requests[id]; !ok {
		return leave.ErrRequestNotFound
	}
	return nil
}

func (t *memTx) LockEmployeeGrants(_ context.Context, _ leave.EmployeeID) error {
	return nil
}

// =============================================================================
// STATE OPERATIONS - Shared by Tx and top-level reads
// =============================================================================

func (s *state) grant(employee leave.EmployeeID, year int, grantDate time.Time) (*leave.GrantRecord, error) {
	rec, ok := s.grants[keyOf(employee, year, grantDate)]
	if !ok {
		return nil, leave.ErrGrantNotFound
	}
	return &rec, nil
}

func (s *state) grantsForEmployee(employee leave.EmployeeID, fromYear int) []leave.GrantRecord {
	var out []leave.GrantRecord
	for _, rec := range s.grants {
		if rec.EmployeeID == employee && rec.FiscalYear >= fromYear {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FiscalYear != out[j].FiscalYear {
			return out[i].FiscalYear < out[j].FiscalYear
		}
		return out[i].GrantDate.Before(out[j].GrantDate)
	})
	return out
}

func (s *state) grantsForYear(year int) []leave.GrantRecord {
	var out []leave.GrantRecord
	for _, rec := range s.grants {
		if rec.FiscalYear == year {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].GrantDate.Before(out[j].GrantDate)
	})
	return out
}

func (s *state) latestGrant(employee leave.EmployeeID) (*leave.GrantRecord, error) {
	var latest *leave.GrantRecord
	for k := range s.grants {
		rec := s.grants[k]
		if rec.EmployeeID != employee {
			continue
		}
		if latest == nil ||
			rec.FiscalYear > latest.FiscalYear ||
			(rec.FiscalYear == latest.FiscalYear && rec.GrantDate.After(latest.GrantDate)) {
			r := rec
			latest = &r
		}
	}
	if latest == nil {
		return nil, leave.ErrGrantNotFound
	}
	return latest, nil
}

func (s *state) deleteGrantsBefore(year int) int {
	var deleted int
	for k, rec := range s.grants {
		if rec.FiscalYear < year {
			delete(s.grants, k)
			deleted++
		}
	}
	return deleted
}

func (s *state) requestsForEmployee(employee leave.EmployeeID) []leave.LeaveRequest {
	var out []leave.LeaveRequest
	for _, req := range s.requests {
		if req.EmployeeID == employee {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *state) requestsByStatus(status leave.RequestStatus) []leave.LeaveRequest {
	var out []leave.LeaveRequest
	for _, req := range s.requests {
		if req.Status == status {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *state) employeesSorted() []leave.Employee {
	out := make([]leave.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *state) queryAudit(filter leave.AuditFilter) []leave.AuditEntry {
	var out []leave.AuditEntry
	for _, e := range s.audits {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *state) deleteAuditBefore(cutoff time.Time) int {
	kept := s.audits[:0]
	var deleted int
	for _, e := range s.audits {
		if e.At.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.audits = kept
	return deleted
}

// =============================================================================
// TX INTERFACE (operates under the exclusive lock)
// =============================================================================

func (t *memTx) Grant(_ context.Context, employee leave.EmployeeID, year int, grantDate time.Time) (*leave.GrantRecord, error) {
	return t.s.grant(employee, year, grantDate)
}

func (t *memTx) GrantsForEmployee(_ context.Context, employee leave.EmployeeID, fromYear int) ([]leave.GrantRecord, error) {
	return t.s.grantsForEmployee(employee, fromYear), nil
}

func (t *memTx) GrantsForYear(_ context.Context, year int) ([]leave.GrantRecord, error) {
	return t.s.grantsForYear(year), nil
}

func (t *memTx) LatestGrant(_ context.Context, employee leave.EmployeeID) (*leave.GrantRecord, error) {
	return t.s.latestGrant(employee)
}

func (t *memTx) PutGrant(_ context.Context, rec leave.GrantRecord) error {
	t.s.grants[keyOf(rec.EmployeeID, rec.FiscalYear, rec.GrantDate)] = rec
	return nil
}

func (t *memTx) DeleteGrantsBefore(_ context.Context, year int) (int, error) {
	return t.s.deleteGrantsBefore(year), nil
}

func (t *memTx) Request(_ context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	req, ok := t.s.requests[id]
	if !ok {
		return nil, leave.ErrRequestNotFound
	}
	return &req, nil
}

func (t *memTx) PutRequest(_ context.Context, req leave.LeaveRequest) error {
	t.s.requests[req.ID] = req
	return nil
}

func (t *memTx) DeleteRequest(_ context.Context, id leave.RequestID) error {
	if _, ok := t.s.requests[id]; !ok {
		return leave.ErrRequestNotFound
	}
	delete(t.s.requests, id)
	return nil
}

func (t *memTx) RequestsForEmployee(_ context.Context, employee leave.EmployeeID) ([]leave.LeaveRequest, error) {
	return t.s.requestsForEmployee(employee), nil
}

func (t *memTx) RequestsByStatus(_ context.Context, status leave.RequestStatus) ([]leave.LeaveRequest, error) {
	return t.s.requestsByStatus(status), nil
}

func (t *memTx) Employee(_ context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	emp, ok := t.s.employees[id]
	if !ok {
		return nil, leave.ErrEmployeeNotFound
	}
	return &emp, nil
}

func (t *memTx) PutEmployee(_ context.Context, emp leave.Employee) error {
	t.s.employees[emp.ID] = emp
	return nil
}

func (t *memTx) Employees(_ context.Context) ([]leave.Employee, error) {
	return t.s.employeesSorted(), nil
}

func (t *memTx) AppendAudit(_ context.Context, entry leave.AuditEntry) error {
	t.s.audits = append(t.s.audits, entry)
	return nil
}

func (t *memTx) QueryAudit(_ context.Context, filter leave.AuditFilter) ([]leave.AuditEntry, error) {
	return t.s.queryAudit(filter), nil
}

func (t *memTx) DeleteAuditBefore(_ context.Context, cutoff time.Time) (int, error) {
	return t.s.deleteAuditBefore(cutoff), nil
}

// =============================================================================
// TOP-LEVEL STORE (read/write outside transactions)
// =============================================================================

func (m *Memory) Grant(ctx context.Context, employee leave.EmployeeID, year int, grantDate time.Time) (*leave.GrantRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.grant(employee, year, grantDate)
}

func (m *Memory) GrantsForEmployee(_ context.Context, employee leave.EmployeeID, fromYear int) ([]leave.GrantRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.grantsForEmployee(employee, fromYear), nil
}

func (m *Memory) GrantsForYear(_ context.Context, year int) ([]leave.GrantRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.grantsForYear(year), nil
}

func (m *Memory) LatestGrant(_ context.Context, employee leave.EmployeeID) (*leave.GrantRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.latestGrant(employee)
}

func (m *Memory) PutGrant(_ context.Context, rec leave.GrantRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.grants[keyOf(rec.EmployeeID, rec.FiscalYear, rec.GrantDate)] = rec
	return nil
}

func (m *Memory) DeleteGrantsBefore(_ context.Context, year int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.deleteGrantsBefore(year), nil
}

func (m *Memory) Request(_ context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.data.requests[id]
	if !ok {
		return nil, leave.ErrRequestNotFound
	}
	return &req, nil
}

func (m *Memory) PutRequest(_ context.Context, req leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.requests[req.ID] = req
	return nil
}

func (m *Memory) DeleteRequest(_ context.Context, id leave.RequestID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data.requests[id]; !ok {
		return leave.ErrRequestNotFound
	}
	delete(m.data.requests, id)
	return nil
}

func (m *Memory) RequestsForEmployee(_ context.Context, employee leave.EmployeeID) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.requestsForEmployee(employee), nil
}

func (m *Memory) RequestsByStatus(_ context.Context, status leave.RequestStatus) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.requestsByStatus(status), nil
}

func (m *Memory) Employee(_ context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.data.employees[id]
	if !ok {
		return nil, leave.ErrEmployeeNotFound
	}
	return &emp, nil
}

func (m *Memory) PutEmployee(_ context.Context, emp leave.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.employees[emp.ID] = emp
	return nil
}

func (m *Memory) Employees(_ context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.employeesSorted(), nil
}

func (m *Memory) AppendAudit(_ context.Context, entry leave.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.audits = append(m.data.audits, entry)
	return nil
}

func (m *Memory) QueryAudit(_ context.Context, filter leave.AuditFilter) ([]leave.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.queryAudit(filter), nil
}

func (m *Memory) DeleteAuditBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.deleteAuditBefore(cutoff), nil
}

// Compile-time interface checks.
var (
	_ leave.TxStore = (*Memory)(nil)
	_ leave.Tx      = (*memTx)(nil)
)
