package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attrition-dashboard/backend/pkg/config"
	appLogger "github.com/attrition-dashboard/backend/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config

	rootCmd = &cobra.Command{
		Use:           "attrition",
		Short:         "Employee attrition dashboard backend",
		Long:          "Serves attrition analytics and single-employee risk predictions over a fixed HR dataset.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded

			if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			appLogger.Sync()
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Load the dataset and model, then serve the HTTP and websocket API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	predictCmd = &cobra.Command{
		Use:   "predict",
		Short: "Predict one employee's attrition risk",
		Args:  cobra.NoArgs,
		RunE:  runPredict,
	}

	summaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "Print key metrics for a filtered view of the dataset",
		Args:  cobra.NoArgs,
		RunE:  runSummary,
	}

	exportCmd = &cobra.Command{
		Use:   "export-high-risk [output.csv]",
		Short: "Write dissatisfied and overworked employees as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExportHighRisk,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")

	registerPredictFlags(predictCmd)
	registerFilterFlags(summaryCmd)

	rootCmd.AddCommand(serveCmd, predictCmd, summaryCmd, exportCmd)
}
