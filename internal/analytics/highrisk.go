package analytics

import "github.com/attrition-dashboard/backend/internal/employee"

// High-risk list thresholds.
const (
	HighRiskMaxSatisfaction = 0.4
	HighRiskMinHours        = 250
)

// IsHighRisk reports whether r is dissatisfied and overworked.
func IsHighRisk(r employee.Record) bool {
	return r.SatisfactionLevel < HighRiskMaxSatisfaction && r.AverageMonthlyHours > HighRiskMinHours
}

// HighRisk scans the whole dataset, ignoring the sidebar filters, and returns the
// dissatisfied and overworked employees in dataset order.
func HighRisk(ds *employee.Dataset) []employee.Record {
	out := make([]employee.Record, 0)
	ds.Each(func(r employee.Record) bool {
		if IsHighRisk(r) {
			out = append(out, r)
		}
		return true
	})
	return out
}
