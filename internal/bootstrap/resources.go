package bootstrap

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/attrition-dashboard/backend/internal/employee"
	"github.com/attrition-dashboard/backend/internal/metrics"
	"github.com/attrition-dashboard/backend/internal/model"
	"github.com/attrition-dashboard/backend/pkg/config"
	"github.com/attrition-dashboard/backend/pkg/logger"
)

// Resources holds everything loaded once at startup. Both values are
// read-only afterwards and safe to share across requests.
type Resources struct {
	Dataset *employee.Dataset
	Model   model.Model
}

// Load reads the dataset and the model concurrently and fails on the first
// error. Every failure is an *employee.StartupError.
func Load(ctx context.Context, cfg config.DataConfig) (*Resources, error) {
	var res Resources

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ds, err := employee.LoadCSV(cfg.DatasetPath)
		if err != nil {
			return err
		}
		res.Dataset = ds
		return nil
	})

	g.Go(func() error {
		m, err := LoadModel(ctx, cfg)
		if err != nil {
			return err
		}
		res.Model = m
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.DatasetRows.Set(float64(res.Dataset.Len()))

	logger.Info("Resources loaded",
		zap.String("dataset", res.Dataset.Source()),
		zap.Int("rows", res.Dataset.Len()),
		zap.Bool("labelled", res.Dataset.HasLabel()),
		zap.String("model", res.Model.Name()),
		zap.Int("features", len(res.Model.FeatureNames())),
	)

	return &res, nil
}

// LoadModel opens the local artifact or connects to the remote model server.
func LoadModel(ctx context.Context, cfg config.DataConfig) (model.Model, error) {
	if cfg.ModelKind == config.ModelKindRemote {
		return model.NewRemoteModel(ctx, cfg.ModelEndpoint, cfg.ModelTimeout)
	}
	return model.LoadArtifact(cfg.ModelPath)
}
