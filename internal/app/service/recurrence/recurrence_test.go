package recurrence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nebulahq/nebula/pkg/types"
)

func TestIsValidISODate(t *testing.T) {
	require.True(t, IsValidISODate("2024-02-29"))
	require.True(t, IsValidISODate("2023-12-31"))
	require.False(t, IsValidISODate("2023-02-29"))
	require.False(t, IsValidISODate("2024-13-01"))
	require.False(t, IsValidISODate("2024-04-31"))
	require.False(t, IsValidISODate("2024-1-05"))
	require.False(t, IsValidISODate("20240105"))
	require.False(t, IsValidISODate(""))
}

func TestAddMonths_ClampsToEndOfMonth(t *testing.T) {
	got, err := AddMonths("2024-01-31", 1)
	require.NoError(t, err)
	require.Equal(t, "2024-02-29", got)

	got, err = AddMonths("2023-01-31", 1)
	require.NoError(t, err)
	require.Equal(t, "2023-02-28", got)

	got, err = AddMonths("2024-03-15", 1)
	require.NoError(t, err)
	require.Equal(t, "2024-04-15", got)
}

func TestAddMonths_NegativeOffsetsCrossYears(t *testing.T) {
	got, err := AddMonths("2024-03-31", -1)
	require.NoError(t, err)
	require.Equal(t, "2024-02-29", got)

	got, err = AddMonths("2024-01-15", -2)
	require.NoError(t, err)
	require.Equal(t, "2023-11-15", got)
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2024-03-15", 10)
	require.NoError(t, err)
	require.Equal(t, "2024-03-25", got)

	got, err = AddDays("2024-02-28", 2)
	require.NoError(t, err)
	require.Equal(t, "2024-03-01", got)

	_, err = AddDays("not-a-date", 1)
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestAddYears_LeapDayClamps(t *testing.T) {
	got, err := AddYears("2024-02-29", 1)
	require.NoError(t, err)
	require.Equal(t, "2025-02-28", got)
}

func TestDiffDays(t *testing.T) {
	d, err := DiffDays("2024-01-01", "2024-01-10")
	require.NoError(t, err)
	require.Equal(t, 9, d)

	d, err = DiffDays("2024-01-10", "2024-01-01")
	require.NoError(t, err)
	require.Equal(t, -9, d)

	d, err = DiffDays("2024-02-28", "2024-03-01")
	require.NoError(t, err)
	require.Equal(t, 2, d)
}

func TestComputeNextDueDate(t *testing.T) {
	got, err := ComputeNextDueDate(NextDueDateInput{StartDate: "2024-03-15", Cycle: types.PaymentCycleMonthly})
	require.NoError(t, err)
	require.Equal(t, "2024-04-15", got)

	ten := 10
	got, err = ComputeNextDueDate(NextDueDateInput{StartDate: "2024-03-15", Cycle: types.PaymentCycleCustomDays, CustomDays: &ten})
	require.NoError(t, err)
	require.Equal(t, "2024-03-25", got)

	got, err = ComputeNextDueDate(NextDueDateInput{StartDate: "2024-02-29", Cycle: types.PaymentCycleYearly})
	require.NoError(t, err)
	require.Equal(t, "2025-02-28", got)
}

func TestComputeNextDueDate_ExplicitOverrideWins(t *testing.T) {
	got, err := ComputeNextDueDate(NextDueDateInput{
		StartDate:           "2024-03-15",
		Cycle:               types.PaymentCycleMonthly,
		ExplicitNextDueDate: "2024-06-01",
	})
	require.NoError(t, err)
	require.Equal(t, "2024-06-01", got)

	_, err = ComputeNextDueDate(NextDueDateInput{
		StartDate:           "2024-03-15",
		Cycle:               types.PaymentCycleMonthly,
		ExplicitNextDueDate: "2024-06-99",
	})
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestComputeNextDueDate_Errors(t *testing.T) {
	_, err := ComputeNextDueDate(NextDueDateInput{StartDate: "bogus", Cycle: types.PaymentCycleMonthly})
	require.ErrorIs(t, err, ErrInvalidDate)

	_, err = ComputeNextDueDate(NextDueDateInput{StartDate: "2024-03-15", Cycle: types.PaymentCycleCustomDays})
	require.ErrorIs(t, err, ErrInvalidCustomDays)

	zero := 0
	_, err = ComputeNextDueDate(NextDueDateInput{StartDate: "2024-03-15", Cycle: types.PaymentCycleCustomDays, CustomDays: &zero})
	require.ErrorIs(t, err, ErrInvalidCustomDays)
}
