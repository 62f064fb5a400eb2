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

func newGrantService(s *store.Memory) *leave.GrantService {
	return leave.NewGrantService(s, leave.DefaultRegime(), leave.Recorder{}, testLogger())
}

func seedEmployeeHired(t *testing.T, s *store.Memory, id string, hired time.Time) {
	t.Helper()
	require.NoError(t, s.PutEmployee(context.Background(), leave.Employee{
		ID:        leave.EmployeeID(id),
		Name:      "Employee " + id,
		HireDate:  hired,
		CreatedAt: time.Now().UTC(),
	}))
}

// =============================================================================
// SENIORITY TABLE
// =============================================================================

func TestGrantForService_SeniorityTable(t *testing.T) {
	regime := leave.DefaultRegime()
	hired := date(2019, time.April, 1)

	cases := []struct {
		name string
		asOf time.Time
		want string
	}{
		{"before first step", date(2019, time.September, 30), "0"},
		{"six months", date(2019, time.October, 1), "10"},
		{"eighteen months", date(2020, time.October, 1), "11"},
		{"thirty months", date(2021, time.October, 1), "12"},
		{"forty-two months", date(2022, time.October, 1), "14"},
		{"fifty-four months", date(2023, time.October, 1), "16"},
		{"sixty-six months", date(2024, time.October, 1), "18"},
		{"top of the table", date(2025, time.October, 1), "20"},
		{"beyond the table", date(2035, time.October, 1), "20"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := regime.GrantForService(hired, tc.asOf)
			require.NoError(t, err)
			assert.True(t, got.Equal(days(tc.want)), "want %s got %s", tc.want, got)
		})
	}
}

func TestGrantForService_InvalidHireDate(t *testing.T) {
	regime := leave.DefaultRegime()

	_, err := regime.GrantForService(time.Time{}, date(2025, time.April, 1))
	assert.ErrorIs(t, err, leave.ErrValidation, "zero hire date")

	_, err = regime.GrantForService(date(2026, time.April, 1), date(2025, time.April, 1))
	assert.ErrorIs(t, err, leave.ErrValidation, "future hire date")
}

// =============================================================================
// ANNUAL GRANT ISSUANCE
// =============================================================================

func TestIssueAnnualGrant_ResolvesDaysFromSeniority(t *testing.T) {
	s := newTestStore(t)
	seedEmployeeHired(t, s, "emp-1", date(2025, time.January, 6))
	svc := newGrantService(s)

	rec, err := svc.IssueAnnualGrant(context.Background(), "emp-1", 2025, date(2025, time.July, 6), "hr-admin")
	require.NoError(t, err)

	assert.True(t, rec.Granted.Equal(days("10")), "first step at six months")
	assert.True(t, rec.Balance.Equal(days("10")))
	assert.True(t, rec.Used.IsZero())
	require.NoError(t, rec.Validate())
}

func TestIssueAnnualGrant_BeforeFirstStep_Rejected(t *testing.T) {
	s := newTestStore(t)
	seedEmployeeHired(t, s, "emp-1", date(2025, time.May, 1))
	svc := newGrantService(s)

	_, err := svc.IssueAnnualGrant(context.Background(), "emp-1", 2025, date(2025, time.July, 1), "hr-admin")
	assert.ErrorIs(t, err, leave.ErrValidation)
}

func TestIssueAnnualGrant_DuplicateDate_Rejected(t *testing.T) {
	s := newTestStore(t)
	seedEmployeeHired(t, s, "emp-1", date(2015, time.April, 1))
	svc := newGrantService(s)

	_, err := svc.IssueAnnualGrant(context.Background(), "emp-1", 2025, date(2025, time.April, 1), "hr-admin")
	require.NoError(t, err)

	_, err = svc.IssueAnnualGrant(context.Background(), "emp-1", 2025, date(2025, time.April, 1), "hr-admin")
	assert.ErrorIs(t, err, leave.ErrValidation)
}

func TestIssueAnnualGrant_ProjectedOverCap_Rejected(t *testing.T) {
	// GIVEN: 35 days of balance already sitting in the year against a
	//        40-day cap
	// WHEN: Issuing a 20-day grant
	// THEN: The issuance is rejected before any write

	s := newTestStore(t)
	seedEmployeeHired(t, s, "emp-1", date(2015, time.April, 1))
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("35"), days("0"))
	svc := newGrantService(s)

	_, err := svc.IssueAnnualGrant(context.Background(), "emp-1", 2025, date(2025, time.October, 1), "hr-admin")
	assert.ErrorIs(t, err, leave.ErrValidation)
}

// =============================================================================
// IMPORT UPSERT
// =============================================================================

func TestImportGrants_CreatesAndUpdates(t *testing.T) {
	s := newTestStore(t)
	svc := newGrantService(s)
	rows := []leave.GrantImportRow{
		{EmployeeID: "emp-1", FiscalYear: 2025, GrantDate: date(2025, time.April, 1), Granted: days("10")},
		{EmployeeID: "emp-2", FiscalYear: 2025, GrantDate: date(2025, time.April, 1), Granted: days("14")},
	}

	n, err := svc.ImportGrants(context.Background(), rows, "importer")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec, err := s.Grant(context.Background(), "emp-2", 2025, date(2025, time.April, 1))
	require.NoError(t, err)
	assert.True(t, rec.Granted.Equal(days("14")))
}

func TestImportGrants_ReimportPreservesUsage(t *testing.T) {
	// GIVEN: An imported 10-day grant with 3 days consumed since
	// WHEN: Re-importing the row with 12 granted days
	// THEN: Granted updates, the 3 used days survive, balance recomputes

	s := newTestStore(t)
	svc := newGrantService(s)
	row := leave.GrantImportRow{
		EmployeeID: "emp-1", FiscalYear: 2025,
		GrantDate: date(2025, time.April, 1), Granted: days("10"),
	}
	_, err := svc.ImportGrants(context.Background(), []leave.GrantImportRow{row}, "importer")
	require.NoError(t, err)

	_, err = svc.Adjust(context.Background(), "emp-1", 2025, date(2025, time.April, 1), days("3"), "hr-admin", "recorded usage")
	require.NoError(t, err)

	row.Granted = days("12")
	_, err = svc.ImportGrants(context.Background(), []leave.GrantImportRow{row}, "importer")
	require.NoError(t, err)

	rec, err := s.Grant(context.Background(), "emp-1", 2025, date(2025, time.April, 1))
	require.NoError(t, err)
	assert.True(t, rec.Granted.Equal(days("12")))
	assert.True(t, rec.Used.Equal(days("3")))
	assert.True(t, rec.Balance.Equal(days("9")))
}

func TestImportGrants_SmallerThanUsed_Rejected(t *testing.T) {
	s := newTestStore(t)
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("10"), days("6"))
	svc := newGrantService(s)

	row := leave.GrantImportRow{
		EmployeeID: "emp-1", FiscalYear: 2025,
		GrantDate: date(2025, time.April, 1), Granted: days("5"),
	}
	_, err := svc.ImportGrants(context.Background(), []leave.GrantImportRow{row}, "importer")
	assert.ErrorIs(t, err, leave.ErrValidation)
}

func TestImportGrants_InvalidRow_NothingWritten(t *testing.T) {
	s := newTestStore(t)
	svc := newGrantService(s)
	rows := []leave.GrantImportRow{
		{EmployeeID: "emp-1", FiscalYear: 2025, GrantDate: date(2025, time.April, 1), Granted: days("10")},
		{EmployeeID: "", FiscalYear: 2025, GrantDate: date(2025, time.April, 1), Granted: days("10")},
	}

	_, err := svc.ImportGrants(context.Background(), rows, "importer")
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = s.Grant(context.Background(), "emp-1", 2025, date(2025, time.April, 1))
	assert.ErrorIs(t, err, leave.ErrGrantNotFound, "pre-validation rejects the whole batch")
}

// =============================================================================
// MANUAL CORRECTION
// =============================================================================

func TestAdjust_AppliesDeltaAndKeepsInvariants(t *testing.T) {
	s := newTestStore(t)
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("10"), days("4"))
	svc := newGrantService(s)

	rec, err := svc.Adjust(context.Background(), "emp-1", 2025, date(2025, time.April, 1), days("-2"), "hr-admin", "payroll correction")
	require.NoError(t, err)

	assert.True(t, rec.Used.Equal(days("2")))
	assert.True(t, rec.Balance.Equal(days("8")))
	require.NoError(t, rec.Validate())
}

func TestAdjust_BreakingInvariants_Rejected(t *testing.T) {
	s := newTestStore(t)
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("10"), days("4"))
	svc := newGrantService(s)

	_, err := svc.Adjust(context.Background(), "emp-1", 2025, date(2025, time.April, 1), days("-5"), "hr-admin", "bad correction")
	assert.ErrorIs(t, err, leave.ErrValidation, "used would go negative")

	rec, err := s.Grant(context.Background(), "emp-1", 2025, date(2025, time.April, 1))
	require.NoError(t, err)
	assert.True(t, rec.Used.Equal(days("4")), "rejected adjustment must roll back")
}
