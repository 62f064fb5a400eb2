/*
handlers.go - HTTP handlers for the leave engine

PURPOSE:
  Thin I/O wrappers around the ledger engine. Handlers parse input, call
  one engine operation, and surface the structured result as an HTTP
  status without reinterpreting it:

    validation failure    -> 400
    not found             -> 404
    state conflict        -> 409
    insufficient balance  -> 422 (with requested/available detail)
    everything else       -> 500

  No authentication middleware here; that belongs to an outer layer.

SEE ALSO:
  - server.go: Router configuration
  - dto.go: Request/response shapes
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kyuka/leave-engine/leave"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      leave.TxStore
	Regime     leave.Regime
	Approvals  *leave.ApprovalService
	Carryover  *leave.CarryoverProcessor
	Compliance *leave.ComplianceChecker
	Grants     *leave.GrantService
}

// NewHandler wires the full service set over one store and regime.
func NewHandler(store leave.TxStore, regime leave.Regime, log zerolog.Logger) *Handler {
	audit := leave.Recorder{}
	return &Handler{
		Store:      store,
		Regime:     regime,
		Approvals:  leave.NewApprovalService(store, regime, audit, log),
		Carryover:  leave.NewCarryoverProcessor(store, regime, audit, log),
		Compliance: leave.NewComplianceChecker(store, regime, audit, log),
		Grants:     leave.NewGrantService(store, regime, audit, log),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.Employees(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.Employee(r.Context(), leave.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates a new employee.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	hireDate, err := time.Parse("2006-01-02", req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	emp := leave.Employee{
		ID:        leave.EmployeeID(req.ID),
		Name:      req.Name,
		Email:     req.Email,
		HireDate:  hireDate,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.PutEmployee(r.Context(), emp); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// GetBalance returns the employee's usable periods and total.
// GET /api/employees/{id}/balance?year=2025
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))
	year, err := yearParam(r, h.Regime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year parameter", err)
		return
	}

	view, err := h.Approvals.BalanceView(r.Context(), employee, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(view))
}

// ListGrants returns the employee's grant records.
// GET /api/employees/{id}/grants?from_year=2024
func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))
	fromYear := 0
	if v := r.URL.Query().Get("from_year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from_year parameter", err)
			return
		}
		fromYear = n
	}

	records, err := h.Store.GrantsForEmployee(r.Context(), employee, fromYear)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]GrantRecordDTO, len(records))
	for i, g := range records {
		dtos[i] = toGrantRecordDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// IssueGrant issues the seniority-based annual grant.
// POST /api/employees/{id}/grants
func (h *Handler) IssueGrant(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))
	var req IssueGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	grantDate, err := time.Parse("2006-01-02", req.GrantDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid grant_date format (use YYYY-MM-DD)", err)
		return
	}

	rec, err := h.Grants.IssueAnnualGrant(r.Context(), employee, req.FiscalYear, grantDate, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGrantRecordDTO(*rec))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest creates a pending leave request.
// POST /api/employees/{id}/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	employee := leave.EmployeeID(chi.URLParam(r, "id"))
	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}
	days, err := leave.ParseDays(req.Days)
	if err != nil || !days.IsPositive() {
		writeError(w, http.StatusBadRequest, "days must be a positive decimal string", err)
		return
	}

	created, err := h.Approvals.Submit(r.Context(), employee, start, end, days, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(*created))
}

// ListPendingRequests returns all pending requests.
// GET /api/requests/pending
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.RequestsByStatus(r.Context(), leave.StatusPending)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]LeaveRequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toLeaveRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveRequest approves a pending request, deducting its days.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	approved, err := h.Approvals.Approve(r.Context(), id, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*approved))
}

// RejectRequest rejects a pending request.
// POST /api/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rejected, err := h.Approvals.Reject(r.Context(), id, req.Actor, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*rejected))
}

// CancelRequest deletes a pending request.
// DELETE /api/requests/{id}
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.Approvals.Cancel(r.Context(), leave.RequestID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevertRequest reverts an approved request, restoring balance.
// POST /api/requests/{id}/revert
func (h *Handler) RevertRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	reverted, err := h.Approvals.Revert(r.Context(), id, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*reverted))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerCarryover runs year-end carryover.
// POST /api/admin/carryover
func (h *Handler) TriggerCarryover(w http.ResponseWriter, r *http.Request) {
	var req CarryoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	report, err := h.Carryover.ProcessYearEnd(r.Context(), req.FromYear, req.ToYear)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CarryoverReportDTO{
		FromYear:      report.FromYear,
		ToYear:        report.ToYear,
		Processed:     report.Processed,
		CarriedOver:   report.CarriedOver.String(),
		Expired:       report.Expired.String(),
		ExpiredByRule: report.ExpiredByRule.String(),
		Deleted:       report.Deleted,
	})
}

// GetCompliance classifies employees for a fiscal year.
// GET /api/admin/compliance?year=2025
func (h *Handler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r, h.Regime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year parameter", err)
		return
	}

	report, err := h.Compliance.Classify(r.Context(), year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toComplianceReportDTO(report))
}

// Designate auto-designates minimum-use leave for one employee.
// POST /api/admin/compliance/designate
func (h *Handler) Designate(w http.ResponseWriter, r *http.Request) {
	var req DesignateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Compliance.AutoDesignate(r.Context(),
		leave.EmployeeID(req.EmployeeID), req.FiscalYear, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dto := DesignationResultDTO{Created: result.Created, Reason: string(result.Reason)}
	if result.Request != nil {
		rd := toLeaveRequestDTO(*result.Request)
		dto.Request = &rd
	}
	writeJSON(w, http.StatusOK, dto)
}

// ImportGrants upserts grant records from the import pipeline.
// POST /api/admin/grants/import
func (h *Handler) ImportGrants(w http.ResponseWriter, r *http.Request) {
	var req ImportGrantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]leave.GrantImportRow, 0, len(req.Rows))
	for _, row := range req.Rows {
		grantDate, err := time.Parse("2006-01-02", row.GrantDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid grant_date format (use YYYY-MM-DD)", err)
			return
		}
		granted, err := leave.ParseDays(row.Granted)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid granted value (use a decimal string)", err)
			return
		}
		rows = append(rows, leave.GrantImportRow{
			EmployeeID: leave.EmployeeID(row.EmployeeID),
			FiscalYear: row.FiscalYear,
			GrantDate:  grantDate,
			Granted:    granted,
		})
	}

	n, err := h.Grants.ImportGrants(r.Context(), rows, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"upserted": n})
}

// CreateAdjustment applies a manual correction.
// POST /api/admin/adjustments
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	grantDate, err := time.Parse("2006-01-02", req.GrantDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid grant_date format (use YYYY-MM-DD)", err)
		return
	}

	deltaUsed, err := leave.ParseDays(req.DeltaUsed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid delta_used value (use a decimal string)", err)
		return
	}

	rec, err := h.Grants.Adjust(r.Context(), leave.EmployeeID(req.EmployeeID),
		req.FiscalYear, grantDate, deltaUsed, req.Actor, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGrantRecordDTO(*rec))
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// QueryAudit returns audit entries filtered by employee/action/date range.
// GET /api/audit?employee_id=emp-1&action=deduction&from=...&to=...
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	var filter leave.AuditFilter
	if v := r.URL.Query().Get("employee_id"); v != "" {
		id := leave.EmployeeID(v)
		filter.EmployeeID = &id
	}
	if v := r.URL.Query().Get("action"); v != "" {
		filter.Actions = []leave.AuditAction{leave.AuditAction(v)}
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from parameter (use RFC3339)", err)
			return
		}
		filter.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to parameter (use RFC3339)", err)
			return
		}
		filter.To = &t
	}

	entries, err := h.Store.QueryAudit(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func toComplianceReportDTO(report *leave.ComplianceReport) ComplianceReportDTO {
	convert := func(bucket []leave.EmployeeCompliance) []ComplianceBucketDTO {
		out := make([]ComplianceBucketDTO, len(bucket))
		for i, ec := range bucket {
			out[i] = ComplianceBucketDTO{
				EmployeeID:        string(ec.EmployeeID),
				Granted:           ec.Granted.String(),
				Used:              ec.Used.String(),
				RemainingRequired: ec.RemainingRequired.String(),
			}
		}
		return out
	}
	return ComplianceReportDTO{
		FiscalYear:   report.FiscalYear,
		Compliant:    convert(report.Compliant),
		AtRisk:       convert(report.AtRisk),
		NonCompliant: convert(report.NonCompliant),
		Exempt:       convert(report.Exempt),
	}
}

// yearParam reads ?year=, defaulting to the current fiscal year.
func yearParam(r *http.Request, regime leave.Regime) (int, error) {
	v := r.URL.Query().Get("year")
	if v == "" {
		return regime.FiscalYear(time.Now().UTC()), nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses with structured
// detail, without reinterpreting the result.
func writeDomainError(w http.ResponseWriter, err error) {
	var ibe *leave.InsufficientBalanceError
	if errors.As(err, &ibe) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:     "insufficient balance",
			Details:   ibe.Error(),
			Requested: ibe.Requested.String(),
			Available: ibe.Available.String(),
		})
		return
	}
	var sce *leave.StateConflictError
	if errors.As(err, &sce) {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "state conflict",
			Details: sce.Error(),
			Status:  string(sce.Current),
		})
		return
	}
	switch {
	case errors.Is(err, leave.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation failure", err)
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
