package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/attrition-dashboard/backend/internal/employee"
)

// ExportFilename is the suggested download name for the high-risk table.
const ExportFilename = "high_risk_employees.csv"

// ExportColumns is the column subset shown in the high-risk table view.
var ExportColumns = []string{
	employee.ColDepartment,
	employee.ColNumberProject,
	employee.ColTenure,
	employee.ColSatisfactionLevel,
	employee.ColSalary,
	employee.ColAverageMonthlyHours,
	employee.ColLeft,
}

// CSVColumns is the fixed column order of the downloadable export: every canonical column.
var CSVColumns = append(append([]string{}, employee.RequiredColumns...), employee.ColLeft)

func cell(r employee.Record, col string) string {
	switch col {
	case employee.ColSatisfactionLevel:
		return strconv.FormatFloat(r.SatisfactionLevel, 'f', -1, 64)
	case employee.ColLastEvaluation:
		return strconv.FormatFloat(r.LastEvaluation, 'f', -1, 64)
	case employee.ColNumberProject:
		return strconv.Itoa(r.NumberProject)
	case employee.ColAverageMonthlyHours:
		return strconv.Itoa(r.AverageMonthlyHours)
	case employee.ColTenure:
		return strconv.Itoa(r.Tenure)
	case employee.ColWorkAccident:
		return strconv.Itoa(r.WorkAccident)
	case employee.ColPromotionLast5Years:
		return strconv.Itoa(r.PromotionLast5Years)
	case employee.ColDepartment:
		return r.Department
	case employee.ColSalary:
		return r.Salary
	case employee.ColLeft:
		return strconv.Itoa(r.Left)
	}
	return ""
}

// WriteCSV writes records to w with a header row and CSVColumns ordering.
func WriteCSV(w io.Writer, records []employee.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(CSVColumns))
	for _, r := range records {
		for i, col := range CSVColumns {
			row[i] = cell(r, col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
