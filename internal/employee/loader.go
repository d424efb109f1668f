package employee

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/pkg/logger"
)

// LoadCSV reads the dataset file at path. Any failure is a *StartupError.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &StartupError{Source: path, Err: err}
	}
	defer f.Close()

	ds, err := ParseCSV(f, path)
	if err != nil {
		return nil, err
	}

	logger.Info("Dataset loaded",
		zap.String("path", path),
		zap.Int("rows", ds.Len()),
		zap.Bool("has_label", ds.HasLabel()),
		zap.Int("departments", len(ds.Departments())),
	)

	return ds, nil
}

// ParseCSV parses a dataset from r. Header names are passed through CanonicalColumn so
// older dataset versions ("Department", "time_spend_company", "Work_accident") load
// into the same schema. Every cell is read as text and typed here, so a malformed
// value is reported with its line instead of silently becoming NaN.
func ParseCSV(r io.Reader, source string) (*Dataset, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, &StartupError{Source: source, Err: fmt.Errorf("failed to read CSV: %w", df.Err)}
	}

	columns := make(map[string][]string, df.Ncol())
	for _, name := range df.Names() {
		col := CanonicalColumn(name)
		if _, dup := columns[col]; dup {
			return nil, &StartupError{Source: source, Err: fmt.Errorf("duplicate column %q (header %q)", col, name)}
		}
		columns[col] = df.Col(name).Records()
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &StartupError{Source: source, Err: fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))}
	}

	_, hasLabel := columns[ColLeft]

	records := make([]Record, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		rec, err := parseRow(columns, i, hasLabel)
		if err != nil {
			// Line 1 is the header.
			return nil, &StartupError{Source: source, Err: fmt.Errorf("line %d: %w", i+2, err)}
		}
		records = append(records, rec)
	}

	return NewDataset(source, records, hasLabel), nil
}

func parseRow(columns map[string][]string, i int, hasLabel bool) (Record, error) {
	var (
		rec  Record
		errs []error
	)

	cell := func(col string) string {
		return strings.TrimSpace(columns[col][i])
	}
	float := func(col string) float64 {
		v, err := parseFloat(cell(col))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", col, err))
		}
		return v
	}
	integer := func(col string) int {
		v, err := parseInt(cell(col))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", col, err))
		}
		return v
	}

	rec.SatisfactionLevel = float(ColSatisfactionLevel)
	rec.LastEvaluation = float(ColLastEvaluation)
	rec.NumberProject = integer(ColNumberProject)
	rec.AverageMonthlyHours = integer(ColAverageMonthlyHours)
	rec.Tenure = integer(ColTenure)
	rec.WorkAccident = integer(ColWorkAccident)
	rec.PromotionLast5Years = integer(ColPromotionLast5Years)
	rec.Department = cell(ColDepartment)
	rec.Salary = strings.ToLower(cell(ColSalary))
	if hasLabel {
		rec.Left = integer(ColLeft)
	}

	return rec, errors.Join(errs...)
}


func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

// parseInt accepts "3" as well as integral floats such as "3.0" written by pandas.
func parseInt(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	switch strings.ToLower(s) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	f, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}
