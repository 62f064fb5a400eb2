package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyuka/leave-engine/api"
	"github.com/kyuka/leave-engine/leave"
	"github.com/kyuka/leave-engine/leave/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	h := api.NewHandler(s, leave.DefaultRegime(), zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, s
}

func seedEmployee(t *testing.T, s *store.Memory, id string) {
	t.Helper()
	require.NoError(t, s.PutEmployee(context.Background(), leave.Employee{
		ID:        leave.EmployeeID(id),
		Name:      "Employee " + id,
		HireDate:  time.Date(2015, time.April, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Now().UTC(),
	}))
}

func seedGrant(t *testing.T, s *store.Memory, id string, year int, granted string) {
	t.Helper()
	g := leave.MustParseDays(granted)
	now := time.Now().UTC()
	require.NoError(t, s.PutGrant(context.Background(), leave.GrantRecord{
		EmployeeID: leave.EmployeeID(id),
		FiscalYear: year,
		GrantDate:  time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC),
		Granted:    g,
		Used:       leave.ZeroDays(),
		Balance:    g,
		CarriedOut: leave.ZeroDays(),
		Expired:    leave.ZeroDays(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}))
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// EMPLOYEES AND BALANCE
// =============================================================================

func TestAPI_CreateAndGetEmployee(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees", api.CreateEmployeeRequest{
		ID: "emp-1", Name: "Sato Ichiro", HireDate: "2019-04-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.EmployeeDTO](t, resp)
	assert.Equal(t, "emp-1", created.ID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[api.EmployeeDTO](t, resp)
	assert.Equal(t, "Sato Ichiro", got.Name)
}

func TestAPI_GetEmployee_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAPI_Balance(t *testing.T) {
	srv, s := newTestServer(t)
	seedEmployee(t, s, "emp-1")
	seedGrant(t, s, "emp-1", 2025, "20")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/balance?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[api.BalanceDTO](t, resp)

	assert.Equal(t, "20", got.TotalAvailable)
	require.Len(t, got.Periods, 1)
	assert.Equal(t, 2025, got.Periods[0].FiscalYear)
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

func TestAPI_SubmitApproveFlow(t *testing.T) {
	srv, s := newTestServer(t)
	seedEmployee(t, s, "emp-1")
	seedGrant(t, s, "emp-1", 2025, "20")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", api.SubmitLeaveRequest{
		StartDate: "2025-06-02", EndDate: "2025-06-04", Days: "3", Reason: "vacation",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	req := decode[api.LeaveRequestDTO](t, resp)
	assert.Equal(t, "pending", req.Status)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.ID+"/approve",
		api.DecisionRequest{Actor: "manager"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decode[api.LeaveRequestDTO](t, resp)
	assert.Equal(t, "approved", approved.Status)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/employees/emp-1/balance?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balance := decode[api.BalanceDTO](t, resp)
	assert.Equal(t, "17", balance.TotalAvailable)
}

func TestAPI_Approve_InsufficientBalance_422WithDetail(t *testing.T) {
	srv, s := newTestServer(t)
	seedEmployee(t, s, "emp-1")
	seedGrant(t, s, "emp-1", 2025, "5")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", api.SubmitLeaveRequest{
		StartDate: "2025-06-02", EndDate: "2025-06-13", Days: "8",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	req := decode[api.LeaveRequestDTO](t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.ID+"/approve",
		api.DecisionRequest{Actor: "manager"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errResp := decode[api.ErrorResponse](t, resp)
	assert.Equal(t, "8", errResp.Requested)
	assert.Equal(t, "5", errResp.Available)
}

func TestAPI_Approve_Twice_409(t *testing.T) {
	srv, s := newTestServer(t)
	seedEmployee(t, s, "emp-1")
	seedGrant(t, s, "emp-1", 2025, "20")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", api.SubmitLeaveRequest{
		StartDate: "2025-06-02", EndDate: "2025-06-04", Days: "3",
	})
	req := decode[api.LeaveRequestDTO](t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.ID+"/approve",
		api.DecisionRequest{Actor: "manager"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/requests/"+req.ID+"/approve",
		api.DecisionRequest{Actor: "manager"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	errResp := decode[api.ErrorResponse](t, resp)
	assert.Equal(t, "approved", errResp.Status)
}

func TestAPI_CancelPendingRequest(t *testing.T) {
	srv, s := newTestServer(t)
	seedEmployee(t, s, "emp-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", api.SubmitLeaveRequest{
		StartDate: "2025-06-02", EndDate: "2025-06-03", Days: "2",
	})
	req := decode[api.LeaveRequestDTO](t, resp)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/requests/"+req.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/requests/pending", nil)
	pending := decode[[]api.LeaveRequestDTO](t, resp)
	assert.Empty(t, pending)
}

func TestAPI_SubmitValidation_400(t *testing.T) {
	srv, s := newTestServer(t)
	seedEmployee(t, s, "emp-1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", api.SubmitLeaveRequest{
		StartDate: "2025-06-02", EndDate: "2025-06-04", Days: "0",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", api.SubmitLeaveRequest{
		StartDate: "not-a-date", EndDate: "2025-06-04", Days: "1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", api.SubmitLeaveRequest{
		StartDate: "2025-06-02", EndDate: "2025-06-04", Days: "three",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

// =============================================================================
// ADMIN OPERATIONS
// =============================================================================

func TestAPI_Carryover(t *testing.T) {
	srv, s := newTestServer(t)
	seedGrant(t, s, "emp-1", 2025, "20")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/carryover", api.CarryoverRequest{
		FromYear: 2025, ToYear: 2026,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[api.CarryoverReportDTO](t, resp)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, "20", report.CarriedOver)
}

func TestAPI_ComplianceAndDesignate(t *testing.T) {
	srv, s := newTestServer(t)
	seedEmployee(t, s, "emp-1")
	seedGrant(t, s, "emp-1", 2025, "12")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/admin/compliance?year=2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[api.ComplianceReportDTO](t, resp)
	require.Len(t, report.NonCompliant, 1)
	assert.Equal(t, "5", report.NonCompliant[0].RemainingRequired)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/admin/compliance/designate", api.DesignateRequest{
		EmployeeID: "emp-1", FiscalYear: 2025, Actor: "hr-admin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[api.DesignationResultDTO](t, resp)
	assert.True(t, result.Created)
	require.NotNil(t, result.Request)
	assert.Equal(t, "5", result.Request.DaysRequested)
}

func TestAPI_ImportGrants(t *testing.T) {
	srv, s := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/grants/import", api.ImportGrantsRequest{
		Actor: "importer",
		Rows: []api.ImportGrantRow{
			{EmployeeID: "emp-1", FiscalYear: 2025, GrantDate: "2025-04-01", Granted: "10"},
			{EmployeeID: "emp-2", FiscalYear: 2025, GrantDate: "2025-04-01", Granted: "14"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[map[string]int](t, resp)
	assert.Equal(t, 2, result["upserted"])

	rec, err := s.Grant(context.Background(), "emp-1", 2025,
		time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, rec.Granted.Equal(leave.MustParseDays("10")))
}

func TestAPI_ImportGrants_MalformedGranted_400(t *testing.T) {
	// A non-decimal granted value must be rejected before any write; it
	// must never be coerced to zero and persisted.
	srv, s := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/grants/import", api.ImportGrantsRequest{
		Actor: "importer",
		Rows: []api.ImportGrantRow{
			{EmployeeID: "emp-1", FiscalYear: 2025, GrantDate: "2025-04-01", Granted: "twelve"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	_, err := s.Grant(context.Background(), "emp-1", 2025,
		time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, leave.ErrGrantNotFound)
}

func TestAPI_ImportGrants_MalformedReimport_PreservesRecord(t *testing.T) {
	// GIVEN: An existing 12-day grant record
	// WHEN: Re-importing it with a malformed granted value
	// THEN: The request fails with 400 and the stored record is untouched

	srv, s := newTestServer(t)
	seedGrant(t, s, "emp-1", 2025, "12")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/grants/import", api.ImportGrantsRequest{
		Actor: "importer",
		Rows: []api.ImportGrantRow{
			{EmployeeID: "emp-1", FiscalYear: 2025, GrantDate: "2025-04-01", Granted: "not-a-number"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	rec, err := s.Grant(context.Background(), "emp-1", 2025,
		time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, rec.Granted.Equal(leave.MustParseDays("12")))
}

func TestAPI_Adjustment_MalformedDelta_400(t *testing.T) {
	srv, s := newTestServer(t)
	seedGrant(t, s, "emp-1", 2025, "12")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/admin/adjustments", api.AdjustmentRequest{
		EmployeeID: "emp-1", FiscalYear: 2025, GrantDate: "2025-04-01",
		DeltaUsed: "abc", Actor: "hr-admin", Reason: "correction",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	rec, err := s.Grant(context.Background(), "emp-1", 2025,
		time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, rec.Used.IsZero())
}

func TestAPI_AuditQuery(t *testing.T) {
	srv, s := newTestServer(t)
	seedEmployee(t, s, "emp-1")
	seedGrant(t, s, "emp-1", 2025, "20")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/employees/emp-1/requests", api.SubmitLeaveRequest{
		StartDate: "2025-06-02", EndDate: "2025-06-04", Days: "3",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/audit?employee_id=emp-1&action=request_created", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[[]api.AuditEntryDTO](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, "request_created", entries[0].Action)
}
