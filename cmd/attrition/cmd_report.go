package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/internal/analytics"
	"github.com/attrition-dashboard/backend/internal/api/handlers"
	"github.com/attrition-dashboard/backend/internal/bootstrap"
	"github.com/attrition-dashboard/backend/internal/employee"
	"github.com/attrition-dashboard/backend/internal/model"
	appLogger "github.com/attrition-dashboard/backend/pkg/logger"
)

var filterFlags struct {
	projects    []int
	tenure      []int
	overworked  bool
	departments string
	salaries    string
}

func registerFilterFlags(cmd *cobra.Command) {
	defaults := analytics.DefaultCriteria()
	f := cmd.Flags()
	f.IntSliceVar(&filterFlags.projects, "projects", []int{defaults.ProjectRange.Min, defaults.ProjectRange.Max}, "project count range min,max")
	f.IntSliceVar(&filterFlags.tenure, "tenure", []int{defaults.TenureRange.Min, defaults.TenureRange.Max}, "tenure range min,max")
	f.BoolVar(&filterFlags.overworked, "overworked", false, "only employees working more than 250 hours a month")
	f.StringVar(&filterFlags.departments, "departments", "", "comma-separated departments (default all)")
	f.StringVar(&filterFlags.salaries, "salaries", "", "comma-separated salary levels (default all)")
}

func criteriaFromFlags() (analytics.Criteria, error) {
	if len(filterFlags.projects) != 2 {
		return analytics.Criteria{}, fmt.Errorf("--projects needs exactly two values, got %d", len(filterFlags.projects))
	}
	if len(filterFlags.tenure) != 2 {
		return analytics.Criteria{}, fmt.Errorf("--tenure needs exactly two values, got %d", len(filterFlags.tenure))
	}
	return analytics.Criteria{
		ProjectRange:   analytics.Range{Min: filterFlags.projects[0], Max: filterFlags.projects[1]},
		TenureRange:    analytics.Range{Min: filterFlags.tenure[0], Max: filterFlags.tenure[1]},
		OverworkedOnly: filterFlags.overworked,
		Departments:    splitList(filterFlags.departments),
		SalaryLevels:   splitList(filterFlags.salaries),
	}, nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	criteria, err := criteriaFromFlags()
	if err != nil {
		return err
	}

	ds, err := loadDataset()
	if err != nil {
		return err
	}

	view := handlers.BuildView(ds, criteria)
	if view.Empty {
		appLogger.Warn("No employees match the filters", zap.Any("criteria", criteria))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func runExportHighRisk(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset()
	if err != nil {
		return err
	}

	employees := analytics.HighRisk(ds)

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", args[0], err)
		}
		defer f.Close()
		out = f
	}

	if err := analytics.WriteCSV(out, employees); err != nil {
		return err
	}

	appLogger.Info("High-risk employees exported", zap.Int("count", len(employees)))
	return nil
}

func loadDataset() (*employee.Dataset, error) {
	ds, err := employee.LoadCSV(cfg.Data.DatasetPath)
	if err != nil {
		logStartupFailure(err)
		return nil, err
	}
	return ds, nil
}

func loadModel(cmd *cobra.Command) (model.Model, error) {
	m, err := bootstrap.LoadModel(cmd.Context(), cfg.Data)
	if err != nil {
		logStartupFailure(err)
		return nil, err
	}
	return m, nil
}
