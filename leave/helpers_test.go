package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kyuka/leave-engine/leave"
	"github.com/kyuka/leave-engine/leave/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *store.Memory {
	t.Helper()
	return store.NewMemory()
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func days(s string) leave.Days {
	return leave.MustParseDays(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedEmployee writes an employee hired long enough ago to sit at the top
// of the seniority table unless a test overrides the hire date.
func seedEmployee(t *testing.T, s *store.Memory, id string) leave.Employee {
	t.Helper()
	emp := leave.Employee{
		ID:        leave.EmployeeID(id),
		Name:      "Test Employee " + id,
		HireDate:  date(2015, time.April, 1),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.PutEmployee(context.Background(), emp))
	return emp
}

// seedGrant writes a grant record with the balance invariant satisfied.
func seedGrant(t *testing.T, s *store.Memory, id string, year int, grantDate time.Time, granted, used leave.Days) leave.GrantRecord {
	t.Helper()
	now := time.Now().UTC()
	rec := leave.GrantRecord{
		EmployeeID: leave.EmployeeID(id),
		FiscalYear: year,
		GrantDate:  grantDate,
		Granted:    granted,
		Used:       used,
		Balance:    granted.Sub(used),
		CarriedOut: leave.ZeroDays(),
		Expired:    leave.ZeroDays(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, rec.Validate())
	require.NoError(t, s.PutGrant(context.Background(), rec))
	return rec
}

func newApprovalService(s *store.Memory) *leave.ApprovalService {
	return leave.NewApprovalService(s, leave.DefaultRegime(), leave.Recorder{}, testLogger())
}
