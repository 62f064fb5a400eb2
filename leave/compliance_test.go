package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyuka/leave-engine/leave"
	"github.com/kyuka/leave-engine/leave/store"
)

func newChecker(s *store.Memory) *leave.ComplianceChecker {
	return leave.NewComplianceChecker(s, leave.DefaultRegime(), leave.Recorder{}, testLogger())
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestClassify_BucketsByUsage(t *testing.T) {
	// Default regime: minimum use 5, at-risk threshold 3, exemption below
	// 10 granted days.

	s := newTestStore(t)
	seedGrant(t, s, "emp-compliant", 2025, date(2025, time.April, 1), days("12"), days("5"))
	seedGrant(t, s, "emp-at-risk", 2025, date(2025, time.April, 1), days("12"), days("3.5"))
	seedGrant(t, s, "emp-behind", 2025, date(2025, time.April, 1), days("12"), days("1"))
	seedGrant(t, s, "emp-exempt", 2025, date(2025, time.April, 1), days("8"), days("0"))

	report, err := newChecker(s).Classify(context.Background(), 2025)
	require.NoError(t, err)

	require.Len(t, report.Compliant, 1)
	assert.Equal(t, leave.EmployeeID("emp-compliant"), report.Compliant[0].EmployeeID)

	require.Len(t, report.AtRisk, 1)
	assert.Equal(t, leave.EmployeeID("emp-at-risk"), report.AtRisk[0].EmployeeID)

	require.Len(t, report.NonCompliant, 1)
	assert.Equal(t, leave.EmployeeID("emp-behind"), report.NonCompliant[0].EmployeeID)
	assert.True(t, report.NonCompliant[0].RemainingRequired.Equal(days("4")))

	require.Len(t, report.Exempt, 1)
	assert.Equal(t, leave.EmployeeID("emp-exempt"), report.Exempt[0].EmployeeID)
}

func TestClassify_AggregatesAcrossRecordsOfTheYear(t *testing.T) {
	// An employee exempt per-record can cross the threshold in aggregate.

	s := newTestStore(t)
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("8"), days("2"))
	seedGrant(t, s, "emp-1", 2025, date(2025, time.October, 1), days("4"), days("1"))

	report, err := newChecker(s).Classify(context.Background(), 2025)
	require.NoError(t, err)

	require.Len(t, report.AtRisk, 1)
	assert.True(t, report.AtRisk[0].Granted.Equal(days("12")))
	assert.True(t, report.AtRisk[0].Used.Equal(days("3")))
}

// =============================================================================
// AUTO-DESIGNATION
// =============================================================================

func TestAutoDesignate_CreatesShortfallRequest(t *testing.T) {
	// GIVEN: 12 days granted, 1 used, 4 short of the 5-day minimum
	// WHEN: Auto-designating
	// THEN: A terminal designated request for exactly 4 days exists

	s := newTestStore(t)
	seedEmployee(t, s, "emp-1")
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("12"), days("1"))

	result, err := newChecker(s).AutoDesignate(context.Background(), "emp-1", 2025, "hr-admin")
	require.NoError(t, err)

	assert.True(t, result.Created)
	assert.Equal(t, leave.ReasonDesignated, result.Reason)
	require.NotNil(t, result.Request)
	assert.Equal(t, leave.StatusDesignated, result.Request.Status)
	assert.True(t, result.Request.DaysRequested.Equal(days("4")))
	assert.Equal(t, date(2025, time.April, 1), result.Request.StartDate)
	assert.Equal(t, date(2026, time.March, 31), result.Request.EndDate)

	stored, err := s.Request(context.Background(), result.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusDesignated, stored.Status)
}

func TestAutoDesignate_ExemptEmployee_NoRequest(t *testing.T) {
	s := newTestStore(t)
	seedEmployee(t, s, "emp-1")
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("8"), days("0"))

	result, err := newChecker(s).AutoDesignate(context.Background(), "emp-1", 2025, "hr-admin")
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Equal(t, leave.ReasonExempt, result.Reason)
}

func TestAutoDesignate_AlreadyCompliant_NoRequest(t *testing.T) {
	s := newTestStore(t)
	seedEmployee(t, s, "emp-1")
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("12"), days("6"))

	result, err := newChecker(s).AutoDesignate(context.Background(), "emp-1", 2025, "hr-admin")
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Equal(t, leave.ReasonAlreadyCompliant, result.Reason)
}

func TestAutoDesignate_UnknownEmployee_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := newChecker(s).AutoDesignate(context.Background(), "ghost", 2025, "hr-admin")
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

func TestSweep_DesignatesEveryLaggingEmployee(t *testing.T) {
	s := newTestStore(t)
	seedEmployee(t, s, "emp-behind")
	seedEmployee(t, s, "emp-at-risk")
	seedEmployee(t, s, "emp-ok")
	seedGrant(t, s, "emp-behind", 2025, date(2025, time.April, 1), days("12"), days("0"))
	seedGrant(t, s, "emp-at-risk", 2025, date(2025, time.April, 1), days("12"), days("4"))
	seedGrant(t, s, "emp-ok", 2025, date(2025, time.April, 1), days("12"), days("5"))

	results, err := newChecker(s).Sweep(context.Background(), 2025, "hr-admin")
	require.NoError(t, err)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Created)
	}

	designated, err := s.RequestsByStatus(context.Background(), leave.StatusDesignated)
	require.NoError(t, err)
	assert.Len(t, designated, 2)
}

func TestSweep_SecondRunFilesNoDuplicates(t *testing.T) {
	// GIVEN: A sweep has already designated every lagging employee
	// WHEN: Running the same sweep again
	// THEN: No additional designated requests appear

	s := newTestStore(t)
	seedEmployee(t, s, "emp-behind")
	seedGrant(t, s, "emp-behind", 2025, date(2025, time.April, 1), days("12"), days("0"))

	checker := newChecker(s)
	_, err := checker.Sweep(context.Background(), 2025, "hr-admin")
	require.NoError(t, err)

	results, err := checker.Sweep(context.Background(), 2025, "hr-admin")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Created)
	assert.Equal(t, leave.ReasonAlreadyDesignated, results[0].Reason)

	designated, err := s.RequestsByStatus(context.Background(), leave.StatusDesignated)
	require.NoError(t, err)
	assert.Len(t, designated, 1)
}

func TestAutoDesignate_SubtractsPriorDesignation(t *testing.T) {
	// GIVEN: 1 day used and a 2-day designation already on file
	// WHEN: Auto-designating again
	// THEN: Only the residual 2-day shortfall is designated

	s := newTestStore(t)
	seedEmployee(t, s, "emp-1")
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("12"), days("1"))

	checker := newChecker(s)
	first, err := checker.AutoDesignate(context.Background(), "emp-1", 2025, "hr-admin")
	require.NoError(t, err)
	require.True(t, first.Created)
	require.True(t, first.Request.DaysRequested.Equal(days("4")))

	// Simulate 2 of the 4 designated days replaced by a smaller filing.
	require.NoError(t, s.DeleteRequest(context.Background(), first.Request.ID))
	partial := *first.Request
	partial.DaysRequested = days("2")
	require.NoError(t, s.PutRequest(context.Background(), partial))

	second, err := checker.AutoDesignate(context.Background(), "emp-1", 2025, "hr-admin")
	require.NoError(t, err)
	assert.True(t, second.Created)
	assert.True(t, second.Request.DaysRequested.Equal(days("2")))
}
