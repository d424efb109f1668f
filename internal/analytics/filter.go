package analytics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/attrition-dashboard/backend/internal/employee"
)

// OverworkedHours is the monthly-hours threshold behind the "overworked only" toggle.
const OverworkedHours = 250

// Range is an inclusive integer range. It is encoded as a two-element JSON array.
type Range struct {
	Min int
	Max int
}

func (r Range) Contains(v int) bool {
	return r.Min <= v && v <= r.Max
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Min, r.Max})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("range must be [min, max]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("range must have exactly two bounds, got %d", len(pair))
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// Criteria is the conjunction of sidebar filters. Empty department or salary sets
// let every value through.
type Criteria struct {
	ProjectRange   Range    `json:"project_range"`
	TenureRange    Range    `json:"tenure_range"`
	OverworkedOnly bool     `json:"overworked_only"`
	Departments    []string `json:"departments"`
	SalaryLevels   []string `json:"salary_levels"`
}

// DefaultCriteria mirrors the dashboard's initial slider positions.
func DefaultCriteria() Criteria {
	return Criteria{
		ProjectRange: Range{Min: 2, Max: 6},
		TenureRange:  Range{Min: 2, Max: 6},
	}
}

// Matches reports whether a single record passes every predicate.
func (c Criteria) Matches(r employee.Record) bool {
	return newMatcher(c).match(r)
}

type matcher struct {
	c           Criteria
	departments map[string]bool
	salaries    map[string]bool
}

func newMatcher(c Criteria) matcher {
	m := matcher{c: c}
	if len(c.Departments) > 0 {
		m.departments = make(map[string]bool, len(c.Departments))
		for _, d := range c.Departments {
			m.departments[d] = true
		}
	}
	if len(c.SalaryLevels) > 0 {
		m.salaries = make(map[string]bool, len(c.SalaryLevels))
		for _, s := range c.SalaryLevels {
			m.salaries[strings.ToLower(strings.TrimSpace(s))] = true
		}
	}
	return m
}

func (m matcher) match(r employee.Record) bool {
	if !m.c.ProjectRange.Contains(r.NumberProject) {
		return false
	}
	if !m.c.TenureRange.Contains(r.Tenure) {
		return false
	}
	if m.c.OverworkedOnly && r.AverageMonthlyHours <= OverworkedHours {
		return false
	}
	if m.departments != nil && !m.departments[r.Department] {
		return false
	}
	if m.salaries != nil && !m.salaries[r.Salary] {
		return false
	}
	return true
}

// Apply returns the rows of ds that satisfy c, in dataset order. The dataset is not
// modified. A reversed range (min > max) simply matches nothing.
func Apply(ds *employee.Dataset, c Criteria) []employee.Record {
	m := newMatcher(c)
	view := make([]employee.Record, 0)
	ds.Each(func(r employee.Record) bool {
		if m.match(r) {
			view = append(view, r)
		}
		return true
	})
	return view
}

// Bounds returns the observed project and tenure extents of ds, used as slider limits.
// Both ranges are zero for an empty dataset.
func Bounds(ds *employee.Dataset) (projects, tenure Range) {
	first := true
	ds.Each(func(r employee.Record) bool {
		if first {
			projects = Range{Min: r.NumberProject, Max: r.NumberProject}
			tenure = Range{Min: r.Tenure, Max: r.Tenure}
			first = false
			return true
		}
		projects.Min = min(projects.Min, r.NumberProject)
		projects.Max = max(projects.Max, r.NumberProject)
		tenure.Min = min(tenure.Min, r.Tenure)
		tenure.Max = max(tenure.Max, r.Tenure)
		return true
	})
	return projects, tenure
}
