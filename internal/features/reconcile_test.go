package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrition-dashboard/backend/internal/employee"
)

var modelColumns = []string{
	"satisfaction_level",
	"last_evaluation",
	"number_project",
	"average_monthly_hours",
	"tenure",
	"work_accident",
	"promotion_last_5years",
	"salary",
	"department_IT",
	"department_hr",
	"department_sales",
}

func formRecord(department, salary string) RawRecord {
	return RawRecord{
		Numeric: map[string]float64{
			"satisfaction_level":    0.5,
			"last_evaluation":       0.6,
			"number_project":        3,
			"average_monthly_hours": 160,
			"tenure":                3,
		},
		Categorical: map[string]string{
			"department": department,
			"salary":     salary,
		},
	}
}

func TestReconcile_SalaryOrdinal(t *testing.T) {
	tests := []struct {
		salary string
		want   float64
	}{
		{"low", 0},
		{"medium", 1},
		{"high", 2},
		{"HIGH", 2},
	}

	for _, tt := range tests {
		t.Run(tt.salary, func(t *testing.T) {
			v, err := Reconcile(formRecord("sales", tt.salary), modelColumns, DefaultOptions())
			require.NoError(t, err)

			got, ok := v.Get("salary")
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconcile_UnknownSalaryIsInvalidInput(t *testing.T) {
	_, err := Reconcile(formRecord("sales", "platinum"), modelColumns, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, employee.ErrInvalidInput)
	assert.Contains(t, err.Error(), "platinum")
}

func TestReconcile_MissingSalaryIsInvalidInput(t *testing.T) {
	raw := formRecord("sales", "low")
	delete(raw.Categorical, "salary")

	_, err := Reconcile(raw, modelColumns, DefaultOptions())
	assert.ErrorIs(t, err, employee.ErrInvalidInput)
}

func TestReconcile_NonFiniteNumberIsInvalidInput(t *testing.T) {
	raw := formRecord("sales", "low")
	raw.Numeric["tenure"] = math.NaN()

	_, err := Reconcile(raw, modelColumns, DefaultOptions())
	assert.ErrorIs(t, err, employee.ErrInvalidInput)
}

func TestReconcile_OneHotAndOrder(t *testing.T) {
	v, err := Reconcile(formRecord("hr", "medium"), modelColumns, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, modelColumns, v.Columns)
	assert.Equal(t, []float64{0.5, 0.6, 3, 160, 3, 0, 0, 1, 0, 1, 0}, v.Values)
}

func TestReconcile_UnknownDepartmentDroppedAndZeroFilled(t *testing.T) {
	expected := []string{"satisfaction_level", "number_project", "department_sales", "department_hr"}

	v, err := Reconcile(formRecord("engineering", "low"), expected, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, expected, v.Columns)
	assert.Equal(t, []float64{0.5, 3, 0, 0}, v.Values)
	_, ok := v.Get("department_engineering")
	assert.False(t, ok)
	_, ok = v.Get("salary")
	assert.False(t, ok, "encoded columns outside the model are dropped")
}

func TestReconcile_UnderivableColumnIsZeroFilled(t *testing.T) {
	expected := []string{"tenure", "bonus_paid", "number_project"}

	v, err := Reconcile(formRecord("sales", "low"), expected, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0, 3}, v.Values)
}

func TestReconcile_DefaultsAreCallerSupplied(t *testing.T) {
	opts := DefaultOptions()
	opts.Defaults[employee.ColPromotionLast5Years] = 1

	v, err := Reconcile(formRecord("sales", "low"), modelColumns, opts)
	require.NoError(t, err)
	got, _ := v.Get("promotion_last_5years")
	assert.Equal(t, 1.0, got)

	raw := formRecord("sales", "low")
	raw.Numeric["promotion_last_5years"] = 0
	v, err = Reconcile(raw, modelColumns, opts)
	require.NoError(t, err)
	got, _ = v.Get("promotion_last_5years")
	assert.Equal(t, 0.0, got, "explicit values win over defaults")
}

func TestReconcile_LegacyFieldNames(t *testing.T) {
	raw := RawRecord{
		Numeric: map[string]float64{
			"time_spend_company":   4,
			"Work_accident":        1,
			"average_montly_hours": 210,
		},
		Categorical: map[string]string{"Department": "IT", "salary": "low"},
	}

	v, err := Reconcile(raw, modelColumns, DefaultOptions())
	require.NoError(t, err)

	m := v.Map()
	assert.Equal(t, 4.0, m["tenure"])
	assert.Equal(t, 1.0, m["work_accident"])
	assert.Equal(t, 210.0, m["average_monthly_hours"])
	assert.Equal(t, 1.0, m["department_IT"])
}

func TestReconcile_Idempotent(t *testing.T) {
	raw := formRecord("sales", "high")

	first, err := Reconcile(raw, modelColumns, DefaultOptions())
	require.NoError(t, err)
	second, err := Reconcile(raw, modelColumns, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Key(), second.Key())

	// Feeding the reconciled vector back in as numeric input keeps the same layout.
	again, err := Reconcile(RawRecord{
		Numeric:     first.Map(),
		Categorical: map[string]string{"salary": "high"},
	}, modelColumns, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, first.Equal(again))
}

func TestVector_Key(t *testing.T) {
	v := Vector{Columns: []string{"a", "b"}, Values: []float64{1, 0.25}}
	assert.Equal(t, "a=1|b=0.25", v.Key())
	assert.False(t, v.Equal(Vector{Columns: []string{"b", "a"}, Values: []float64{0.25, 1}}))
}
