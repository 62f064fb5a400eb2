package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyuka/leave-engine/leave"
)

// =============================================================================
// CONSUMPTION ORDER TESTS
// =============================================================================

func TestBreakdown_CurrentYearBeforeCarriedOver(t *testing.T) {
	// GIVEN: A carried-over 2024 grant and a current 2025 grant
	// WHEN: Building the breakdown for reference year 2025
	// THEN: The 2025 period comes first (newest consumed first)

	s := newTestStore(t)
	seedGrant(t, s, "emp-1", 2024, date(2024, time.April, 1), days("10"), days("5"))
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("20"), days("0"))

	builder := leave.NewBreakdownBuilder(leave.DefaultRegime())
	periods, err := builder.Build(context.Background(), s, "emp-1", 2025)
	require.NoError(t, err)

	require.Len(t, periods, 2)
	assert.Equal(t, 2025, periods[0].FiscalYear)
	assert.True(t, periods[0].Available.Equal(days("20")))
	assert.Equal(t, 2024, periods[1].FiscalYear)
	assert.True(t, periods[1].Available.Equal(days("5")))
}

func TestBreakdown_SameTierOrdersByGrantDateDescending(t *testing.T) {
	// GIVEN: Two 2025 grants issued on different dates
	// WHEN: Building the breakdown for 2025
	// THEN: The later grant date comes first within the tier

	s := newTestStore(t)
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("10"), days("0"))
	seedGrant(t, s, "emp-1", 2025, date(2025, time.October, 1), days("3"), days("0"))

	builder := leave.NewBreakdownBuilder(leave.DefaultRegime())
	periods, err := builder.Build(context.Background(), s, "emp-1", 2025)
	require.NoError(t, err)

	require.Len(t, periods, 2)
	assert.Equal(t, date(2025, time.October, 1), periods[0].GrantDate)
	assert.Equal(t, date(2025, time.April, 1), periods[1].GrantDate)
}

func TestBreakdown_ExcludesGrantsOutsideWindow(t *testing.T) {
	// GIVEN: Grants from 2023, 2024, and 2025 under a two-year window
	// WHEN: Building the breakdown for 2025
	// THEN: The 2023 grant is excluded; it lapsed by rule

	s := newTestStore(t)
	seedGrant(t, s, "emp-1", 2023, date(2023, time.April, 1), days("10"), days("0"))
	seedGrant(t, s, "emp-1", 2024, date(2024, time.April, 1), days("11"), days("0"))
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("12"), days("0"))

	builder := leave.NewBreakdownBuilder(leave.DefaultRegime())
	periods, err := builder.Build(context.Background(), s, "emp-1", 2025)
	require.NoError(t, err)

	require.Len(t, periods, 2)
	for _, p := range periods {
		assert.GreaterOrEqual(t, p.FiscalYear, 2024)
	}
}

func TestBreakdown_SkipsExhaustedRecords(t *testing.T) {
	// GIVEN: A fully consumed 2024 grant next to a live 2025 grant
	// WHEN: Building the breakdown
	// THEN: Only the record with positive balance appears

	s := newTestStore(t)
	seedGrant(t, s, "emp-1", 2024, date(2024, time.April, 1), days("10"), days("10"))
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("20"), days("0"))

	builder := leave.NewBreakdownBuilder(leave.DefaultRegime())
	periods, err := builder.Build(context.Background(), s, "emp-1", 2025)
	require.NoError(t, err)

	require.Len(t, periods, 1)
	assert.Equal(t, 2025, periods[0].FiscalYear)
}

func TestBreakdown_TotalAvailableSumsPeriods(t *testing.T) {
	s := newTestStore(t)
	seedGrant(t, s, "emp-1", 2024, date(2024, time.April, 1), days("10"), days("2.5"))
	seedGrant(t, s, "emp-1", 2025, date(2025, time.April, 1), days("20"), days("0"))

	builder := leave.NewBreakdownBuilder(leave.DefaultRegime())
	total, err := builder.TotalAvailable(context.Background(), s, "emp-1", 2025)
	require.NoError(t, err)

	assert.True(t, total.Equal(days("27.5")), "got %s", total)
}

func TestBreakdown_NoGrants_EmptySequence(t *testing.T) {
	s := newTestStore(t)

	builder := leave.NewBreakdownBuilder(leave.DefaultRegime())
	periods, err := builder.Build(context.Background(), s, "emp-absent", 2025)
	require.NoError(t, err)
	assert.Empty(t, periods)
}
