package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attrition-dashboard/backend/internal/api/handlers"
	"github.com/attrition-dashboard/backend/internal/features"
	"github.com/attrition-dashboard/backend/internal/middleware/validation"
	"github.com/attrition-dashboard/backend/internal/prediction"
)

var predictForm struct {
	satisfaction float64
	evaluation   float64
	projects     int
	hours        int
	tenure       int
	accident     int
	promotion    int
	department   string
	salary       string
}

func registerPredictFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&predictForm.satisfaction, "satisfaction", 0.5, "satisfaction level (0-1)")
	f.Float64Var(&predictForm.evaluation, "evaluation", 0.7, "last evaluation score (0-1)")
	f.IntVar(&predictForm.projects, "projects", 3, "number of projects")
	f.IntVar(&predictForm.hours, "hours", 160, "average monthly hours")
	f.IntVar(&predictForm.tenure, "tenure", 3, "years at the company")
	f.IntVar(&predictForm.accident, "work-accident", 0, "had a work accident (0 or 1)")
	f.IntVar(&predictForm.promotion, "promoted", 0, "promoted in the last 5 years (0 or 1)")
	f.StringVar(&predictForm.department, "department", "sales", "department")
	f.StringVar(&predictForm.salary, "salary", "low", "salary level")
}

func runPredict(cmd *cobra.Command, args []string) error {
	req := handlers.PredictRequest{
		SatisfactionLevel:   &predictForm.satisfaction,
		LastEvaluation:      &predictForm.evaluation,
		NumberProject:       &predictForm.projects,
		AverageMonthlyHours: &predictForm.hours,
		Tenure:              &predictForm.tenure,
		Department:          predictForm.department,
		Salary:              predictForm.salary,
	}
	if cmd.Flags().Changed("work-accident") {
		req.WorkAccident = &predictForm.accident
	}
	if cmd.Flags().Changed("promoted") {
		req.PromotionLast5Years = &predictForm.promotion
	}

	if err := validation.Struct(req); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	m, err := loadModel(cmd)
	if err != nil {
		return err
	}

	options := features.Options{
		Ordinals: cfg.Prediction.Ordinals,
		Defaults: cfg.Prediction.Defaults,
	}
	svc := prediction.NewService(m, options, nil, 0, nil)

	result, err := svc.Predict(cmd.Context(), prediction.Request{Record: req.RawRecord(), ClientID: "cli"})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
