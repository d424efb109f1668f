package analytics

import (
	"sort"

	"github.com/attrition-dashboard/backend/internal/employee"
)

// OutcomeCount splits a group into employees who stayed and who left.
type OutcomeCount struct {
	Key    string `json:"key"`
	Stayed int    `json:"stayed"`
	Left   int    `json:"left"`
}

// TrendPoint is the mean satisfaction for one tenure year.
type TrendPoint struct {
	Tenure          int     `json:"tenure"`
	Employees       int     `json:"employees"`
	AvgSatisfaction float64 `json:"avg_satisfaction"`
}

// PromotionImpactRow is one row of the promotion x attrition crosstab, normalised per row.
type PromotionImpactRow struct {
	Promoted    int     `json:"promoted"`
	Employees   int     `json:"employees"`
	StayedShare float64 `json:"stayed_share"`
	LeftShare   float64 `json:"left_share"`
}

// CorrelationMatrix holds Pearson coefficients between numeric columns. A nil cell means
// the coefficient is undefined for the view (a constant column or fewer than two rows).
type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// TenureBucket is the histogram bar and satisfaction spread for one tenure year.
type TenureBucket struct {
	Tenure             int       `json:"tenure"`
	Stayed             int       `json:"stayed"`
	Left               int       `json:"left"`
	StayedSatisfaction *BoxStats `json:"stayed_satisfaction"`
	LeftSatisfaction   *BoxStats `json:"left_satisfaction"`
}

// Charts bundles every chart input the dashboard renders.
type Charts struct {
	Empty                bool                 `json:"empty"`
	DepartmentOutcomes   []OutcomeCount       `json:"department_outcomes"`
	SatisfactionByTenure []TrendPoint         `json:"satisfaction_by_tenure"`
	PromotionImpact      []PromotionImpactRow `json:"promotion_impact"`
	Correlation          CorrelationMatrix    `json:"correlation"`
	TenureDistribution   []TenureBucket       `json:"tenure_distribution"`
}

// BuildCharts computes all chart inputs. Promotion impact always covers the full dataset;
// the others follow the filtered view.
func BuildCharts(ds *employee.Dataset, view []employee.Record) Charts {
	return Charts{
		Empty:                len(view) == 0,
		DepartmentOutcomes:   DepartmentOutcomes(view),
		SatisfactionByTenure: SatisfactionByTenure(view),
		PromotionImpact:      PromotionImpact(ds),
		Correlation:          Correlation(view),
		TenureDistribution:   TenureDistribution(view),
	}
}

// DepartmentOutcomes counts stayed/left per department, ordered by department name.
func DepartmentOutcomes(view []employee.Record) []OutcomeCount {
	counts := make(map[string]*OutcomeCount)
	for _, r := range view {
		c, ok := counts[r.Department]
		if !ok {
			c = &OutcomeCount{Key: r.Department}
			counts[r.Department] = c
		}
		if r.HasLeft() {
			c.Left++
		} else {
			c.Stayed++
		}
	}

	out := make([]OutcomeCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SatisfactionByTenure averages satisfaction per tenure year, ascending.
func SatisfactionByTenure(view []employee.Record) []TrendPoint {
	groups := groupByTenure(view)

	out := make([]TrendPoint, 0, len(groups))
	for _, tenure := range sortedKeys(groups) {
		rows := groups[tenure]
		xs := make([]float64, len(rows))
		for i, r := range rows {
			xs[i] = r.SatisfactionLevel
		}
		out = append(out, TrendPoint{
			Tenure:          tenure,
			Employees:       len(rows),
			AvgSatisfaction: mean(xs),
		})
	}
	return out
}

// PromotionImpact is computed over the full dataset regardless of filters.
func PromotionImpact(ds *employee.Dataset) []PromotionImpactRow {
	type tally struct{ total, left int }
	tallies := make(map[int]*tally)

	ds.Each(func(r employee.Record) bool {
		t, ok := tallies[r.PromotionLast5Years]
		if !ok {
			t = &tally{}
			tallies[r.PromotionLast5Years] = t
		}
		t.total++
		t.left += r.Left
		return true
	})

	keys := make([]int, 0, len(tallies))
	for k := range tallies {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]PromotionImpactRow, 0, len(keys))
	for _, k := range keys {
		t := tallies[k]
		leftShare := float64(t.left) / float64(t.total)
		out = append(out, PromotionImpactRow{
			Promoted:    k,
			Employees:   t.total,
			StayedShare: 1 - leftShare,
			LeftShare:   leftShare,
		})
	}
	return out
}

// Correlation computes the Pearson matrix over the numeric columns of view.
func Correlation(view []employee.Record) CorrelationMatrix {
	columns := employee.NumericColumns
	series := make([][]float64, len(columns))
	for i := range columns {
		series[i] = make([]float64, len(view))
	}
	for j, r := range view {
		for i, v := range numericValues(r) {
			series[i][j] = v
		}
	}

	values := make([][]*float64, len(columns))
	for i := range columns {
		values[i] = make([]*float64, len(columns))
		for j := range columns {
			if r, ok := pearson(series[i], series[j]); ok {
				r := r
				values[i][j] = &r
			}
		}
	}

	return CorrelationMatrix{
		Columns: append([]string(nil), columns...),
		Values:  values,
	}
}

// TenureDistribution counts stayed/left per tenure year with satisfaction box stats.
func TenureDistribution(view []employee.Record) []TenureBucket {
	groups := groupByTenure(view)

	out := make([]TenureBucket, 0, len(groups))
	for _, tenure := range sortedKeys(groups) {
		var stayed, left []float64
		for _, r := range groups[tenure] {
			if r.HasLeft() {
				left = append(left, r.SatisfactionLevel)
			} else {
				stayed = append(stayed, r.SatisfactionLevel)
			}
		}
		out = append(out, TenureBucket{
			Tenure:             tenure,
			Stayed:             len(stayed),
			Left:               len(left),
			StayedSatisfaction: boxStats(stayed),
			LeftSatisfaction:   boxStats(left),
		})
	}
	return out
}

// numericValues follows the order of employee.NumericColumns.
func numericValues(r employee.Record) []float64 {
	return []float64{
		r.SatisfactionLevel,
		r.LastEvaluation,
		float64(r.NumberProject),
		float64(r.AverageMonthlyHours),
		float64(r.Tenure),
		float64(r.WorkAccident),
		float64(r.PromotionLast5Years),
		float64(r.Left),
	}
}

func groupByTenure(view []employee.Record) map[int][]employee.Record {
	groups := make(map[int][]employee.Record)
	for _, r := range view {
		groups[r.Tenure] = append(groups[r.Tenure], r)
	}
	return groups
}

func sortedKeys(m map[int][]employee.Record) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
