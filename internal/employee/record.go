package employee

// Salary levels in ordinal order.
const (
	SalaryLow    = "low"
	SalaryMedium = "medium"
	SalaryHigh   = "high"
)

// SalaryLevels is the fixed ordinal order used for encoding salary.
var SalaryLevels = []string{SalaryLow, SalaryMedium, SalaryHigh}

// Record is one employee row in the canonical schema.
type Record struct {
	SatisfactionLevel   float64 `json:"satisfaction_level"`
	LastEvaluation      float64 `json:"last_evaluation"`
	NumberProject       int     `json:"number_project"`
	AverageMonthlyHours int     `json:"average_monthly_hours"`
	Tenure              int     `json:"tenure"`
	WorkAccident        int     `json:"work_accident"`
	PromotionLast5Years int     `json:"promotion_last_5years"`
	Department          string  `json:"department"`
	Salary              string  `json:"salary"`
	Left                int     `json:"left"`
}

// HasLeft reports whether the attrition label is set.
func (r Record) HasLeft() bool {
	return r.Left == 1
}
