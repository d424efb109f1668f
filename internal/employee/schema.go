package employee

import "strings"

// Canonical column names.
const (
	ColSatisfactionLevel   = "satisfaction_level"
	ColLastEvaluation      = "last_evaluation"
	ColNumberProject       = "number_project"
	ColAverageMonthlyHours = "average_monthly_hours"
	ColTenure              = "tenure"
	ColWorkAccident        = "work_accident"
	ColPromotionLast5Years = "promotion_last_5years"
	ColDepartment          = "department"
	ColSalary              = "salary"
	ColLeft                = "left"
)

// RequiredColumns must be present in every dataset file. The label column is optional.
var RequiredColumns = []string{
	ColSatisfactionLevel,
	ColLastEvaluation,
	ColNumberProject,
	ColAverageMonthlyHours,
	ColTenure,
	ColWorkAccident,
	ColPromotionLast5Years,
	ColDepartment,
	ColSalary,
}

// NumericColumns lists the numeric columns in canonical order.
var NumericColumns = []string{
	ColSatisfactionLevel,
	ColLastEvaluation,
	ColNumberProject,
	ColAverageMonthlyHours,
	ColTenure,
	ColWorkAccident,
	ColPromotionLast5Years,
	ColLeft,
}

// CategoricalColumns are one-hot or ordinal encoded before inference.
var CategoricalColumns = []string{ColDepartment, ColSalary}

// columnAliases maps lower-cased names seen across dataset versions to the canonical schema.
var columnAliases = map[string]string{
	"department":            ColDepartment,
	"dept":                  ColDepartment,
	"sales":                 ColDepartment,
	"time_spend_company":    ColTenure,
	"tenure":                ColTenure,
	"work_accident":         ColWorkAccident,
	"average_montly_hours":  ColAverageMonthlyHours,
	"average_monthly_hours": ColAverageMonthlyHours,
	"promotion_last_5years": ColPromotionLast5Years,
	"satisfaction_level":    ColSatisfactionLevel,
	"last_evaluation":       ColLastEvaluation,
	"number_project":        ColNumberProject,
	"salary":                ColSalary,
	"left":                  ColLeft,
}

// CanonicalColumn maps a column name from any known dataset or model version onto the
// canonical schema. One-hot columns keep their value suffix untouched, so
// "Department_RandD" becomes "department_RandD". Unknown names are returned trimmed.
func CanonicalColumn(name string) string {
	name = strings.TrimSpace(name)
	key := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	if canonical, ok := columnAliases[key]; ok {
		return canonical
	}

	for alias, canonical := range columnAliases {
		if !isCategorical(canonical) {
			continue
		}
		prefix := alias + "_"
		if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			return canonical + "_" + name[len(prefix):]
		}
	}

	return name
}

// OneHotColumn names the indicator column for a categorical value.
func OneHotColumn(field, value string) string {
	return field + "_" + value
}

func isCategorical(col string) bool {
	for _, c := range CategoricalColumns {
		if c == col {
			return true
		}
	}
	return false
}
