package analytics

import (
	"sort"

	"github.com/attrition-dashboard/backend/internal/employee"
)

// Summary holds the key metrics of a filtered view. Every metric is nil when the view
// is empty, so callers render a "no data" state instead of NaN.
type Summary struct {
	Count             int      `json:"count"`
	AttritionRate     *float64 `json:"attrition_rate"`
	AvgSatisfaction   *float64 `json:"avg_satisfaction"`
	TopRiskDepartment *string  `json:"top_risk_department"`
}

// Empty reports whether the summary carries no metrics.
func (s Summary) Empty() bool {
	return s.Count == 0
}

// DepartmentRate is the attrition rate of one department within a view.
type DepartmentRate struct {
	Department string  `json:"department"`
	Employees  int     `json:"employees"`
	Left       int     `json:"left"`
	Rate       float64 `json:"rate"`
}

// Summarize computes the key metrics over view. An empty view returns a Summary with
// all metrics absent together with employee.ErrEmptyResult.
func Summarize(view []employee.Record) (Summary, error) {
	if len(view) == 0 {
		return Summary{}, employee.ErrEmptyResult
	}

	var left, satisfaction float64
	for _, r := range view {
		left += float64(r.Left)
		satisfaction += r.SatisfactionLevel
	}
	n := float64(len(view))
	rate := left / n
	avg := satisfaction / n

	ranking := DepartmentRanking(view)
	top := ranking[0].Department

	return Summary{
		Count:             len(view),
		AttritionRate:     &rate,
		AvgSatisfaction:   &avg,
		TopRiskDepartment: &top,
	}, nil
}

// DepartmentRanking returns per-department attrition rates, highest first. Equal rates
// keep ascending department-name order, which makes the top entry deterministic.
func DepartmentRanking(view []employee.Record) []DepartmentRate {
	byDept := make(map[string]*DepartmentRate)
	for _, r := range view {
		d, ok := byDept[r.Department]
		if !ok {
			d = &DepartmentRate{Department: r.Department}
			byDept[r.Department] = d
		}
		d.Employees++
		d.Left += r.Left
	}

	ranking := make([]DepartmentRate, 0, len(byDept))
	for _, d := range byDept {
		d.Rate = float64(d.Left) / float64(d.Employees)
		ranking = append(ranking, *d)
	}

	sort.Slice(ranking, func(i, j int) bool {
		return ranking[i].Department < ranking[j].Department
	})
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Rate > ranking[j].Rate
	})

	return ranking
}
