/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model from
  the external contract. Day counts cross the wire as decimal strings so
  fractional half/quarter days survive round-trips exactly.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Handlers validate; DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/kyuka/leave-engine/leave"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	HireDate  string `json:"hire_date"`
	CreatedAt string `json:"created_at"`
}

type CreateEmployeeRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	HireDate string `json:"hire_date"` // YYYY-MM-DD
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		Name:      e.Name,
		Email:     e.Email,
		HireDate:  e.HireDate.Format("2006-01-02"),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// BALANCE
// =============================================================================

type BalanceDTO struct {
	EmployeeID     string       `json:"employee_id"`
	ReferenceYear  int          `json:"reference_year"`
	TotalAvailable string       `json:"total_available"`
	Periods        []PeriodDTO  `json:"periods"`
}

type PeriodDTO struct {
	FiscalYear int    `json:"fiscal_year"`
	GrantDate  string `json:"grant_date"`
	Available  string `json:"available"`
}

func toBalanceDTO(v *leave.BalanceView) BalanceDTO {
	dto := BalanceDTO{
		EmployeeID:     string(v.EmployeeID),
		ReferenceYear:  v.ReferenceYear,
		TotalAvailable: v.TotalAvailable.String(),
		Periods:        []PeriodDTO{},
	}
	for _, p := range v.Periods {
		dto.Periods = append(dto.Periods, PeriodDTO{
			FiscalYear: p.FiscalYear,
			GrantDate:  p.GrantDate.Format("2006-01-02"),
			Available:  p.Available.String(),
		})
	}
	return dto
}

// =============================================================================
// GRANTS
// =============================================================================

type GrantRecordDTO struct {
	EmployeeID string `json:"employee_id"`
	FiscalYear int    `json:"fiscal_year"`
	GrantDate  string `json:"grant_date"`
	Granted    string `json:"granted"`
	Used       string `json:"used"`
	Balance    string `json:"balance"`
	CarriedOut string `json:"carried_out"`
	Expired    string `json:"expired"`
}

func toGrantRecordDTO(g leave.GrantRecord) GrantRecordDTO {
	return GrantRecordDTO{
		EmployeeID: string(g.EmployeeID),
		FiscalYear: g.FiscalYear,
		GrantDate:  g.GrantDate.Format("2006-01-02"),
		Granted:    g.Granted.String(),
		Used:       g.Used.String(),
		Balance:    g.Balance.String(),
		CarriedOut: g.CarriedOut.String(),
		Expired:    g.Expired.String(),
	}
}

type IssueGrantRequest struct {
	FiscalYear int    `json:"fiscal_year"`
	GrantDate  string `json:"grant_date"` // YYYY-MM-DD
	Actor      string `json:"actor"`
}

type ImportGrantsRequest struct {
	Actor string           `json:"actor"`
	Rows  []ImportGrantRow `json:"rows"`
}

type ImportGrantRow struct {
	EmployeeID string `json:"employee_id"`
	FiscalYear int    `json:"fiscal_year"`
	GrantDate  string `json:"grant_date"` // YYYY-MM-DD
	Granted    string `json:"granted"`    // decimal string
}

type AdjustmentRequest struct {
	EmployeeID string `json:"employee_id"`
	FiscalYear int    `json:"fiscal_year"`
	GrantDate  string `json:"grant_date"`
	DeltaUsed  string `json:"delta_used"` // decimal string; negative restores
	Actor      string `json:"actor"`
	Reason     string `json:"reason"`
}

// =============================================================================
// REQUESTS
// =============================================================================

type SubmitLeaveRequest struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`
	Days      string `json:"days"` // decimal string
	Reason    string `json:"reason"`
}

type DecisionRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

type LeaveRequestDTO struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	FiscalYear    int    `json:"fiscal_year"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	DaysRequested string `json:"days_requested"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	ApprovedBy    string `json:"approved_by,omitempty"`
	ApprovedAt    string `json:"approved_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toLeaveRequestDTO(r leave.LeaveRequest) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:            string(r.ID),
		EmployeeID:    string(r.EmployeeID),
		FiscalYear:    r.FiscalYear,
		StartDate:     r.StartDate.Format("2006-01-02"),
		EndDate:       r.EndDate.Format("2006-01-02"),
		DaysRequested: r.DaysRequested.String(),
		Status:        string(r.Status),
		Reason:        r.Reason,
		ApprovedBy:    r.ApprovedBy,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if r.ApprovedAt != nil {
		dto.ApprovedAt = r.ApprovedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

type CarryoverRequest struct {
	FromYear int `json:"from_year"`
	ToYear   int `json:"to_year"`
}

type CarryoverReportDTO struct {
	FromYear      int    `json:"from_year"`
	ToYear        int    `json:"to_year"`
	Processed     int    `json:"processed"`
	CarriedOver   string `json:"carried_over"`
	Expired       string `json:"expired"`
	ExpiredByRule string `json:"expired_by_rule"`
	Deleted       int    `json:"deleted"`
}

type ComplianceBucketDTO struct {
	EmployeeID        string `json:"employee_id"`
	Granted           string `json:"granted"`
	Used              string `json:"used"`
	RemainingRequired string `json:"remaining_required"`
}

type ComplianceReportDTO struct {
	FiscalYear   int                   `json:"fiscal_year"`
	Compliant    []ComplianceBucketDTO `json:"compliant"`
	AtRisk       []ComplianceBucketDTO `json:"at_risk"`
	NonCompliant []ComplianceBucketDTO `json:"non_compliant"`
	Exempt       []ComplianceBucketDTO `json:"exempt"`
}

type DesignateRequest struct {
	EmployeeID string `json:"employee_id"`
	FiscalYear int    `json:"fiscal_year"`
	Actor      string `json:"actor"`
}

type DesignationResultDTO struct {
	Created bool             `json:"created"`
	Reason  string           `json:"reason"`
	Request *LeaveRequestDTO `json:"request,omitempty"`
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditEntryDTO struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EmployeeID string         `json:"employee_id,omitempty"`
	TargetID   string         `json:"target_id,omitempty"`
	OldValue   map[string]any `json:"old_value,omitempty"`
	NewValue   map[string]any `json:"new_value,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	At         string         `json:"at"`
}

func toAuditEntryDTO(e leave.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:         e.ID,
		Actor:      e.Actor,
		Action:     string(e.Action),
		EmployeeID: string(e.EmployeeID),
		TargetID:   e.TargetID,
		OldValue:   e.OldValue,
		NewValue:   e.NewValue,
		Reason:     e.Reason,
		At:         e.At.Format(time.RFC3339),
	}
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Requested string `json:"requested,omitempty"`
	Available string `json:"available,omitempty"`
	Status    string `json:"status,omitempty"`
}
