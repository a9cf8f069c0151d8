package stats

import (
	"context"

	"github.com/verte-zerg/typerace/internal/model"
)

// Lister reads stored results.
type Lister interface {
	ListResults(ctx context.Context, cfg model.StatsConfig) ([]model.Result, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Results    []model.Result
	Aggregates []model.ResultAggregate
	Window     []model.Result
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st Lister, cfg model.StatsConfig) (Report, error) {
	results, err := st.ListResults(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(results) > cfg.Last {
		results = results[len(results)-cfg.Last:]
	}
	return Report{
		Results:    results,
		Aggregates: Summarize(results),
		Window:     lastResults(results, cfg.CurveWindow),
	}, nil
}

func lastResults(results []model.Result, window int) []model.Result {
	if window <= 0 || len(results) <= window {
		return results
	}
	return results[len(results)-window:]
}
