package tables

import (
	"context"

	"github.com/pastorenue/expothesis/internal/core"
)

func init() {
	core.Register(core.TableDefinition{
		Name:  "cuped_configs",
		Order: 5, // strictly after experiments; see buildCupedConfig
		Columns: []string{
			"experiment_id", "covariate_metric", "lookback_days",
			"min_sample_size", "created_at", "updated_at",
		},
		ConflictKeys: []string{"experiment_id"},
		Build:        buildCupedConfig,
	})
}

func buildCupedConfig(ctx context.Context, deps *core.BuildDeps, row core.SourceRow) ([]any, error) {
	// The referenced experiment id is the natural key.
	expID := core.ToPgUUID(row["experiment_id"])
	if !expID.Valid {
		return nil, core.Skip("invalid experiment id")
	}

	// Queried live mid-transaction: experiments written earlier in this
	// run are visible here even though nothing is committed yet.
	exists, err := core.ExperimentExists(ctx, deps.DB, expID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, core.Skipf("experiment %s not in destination", core.PgUUIDString(expID))
	}

	return []any{
		expID,
		core.ToString(row["covariate_metric"], ""),
		core.ToInt64(row["lookback_days"], 14),
		core.ToInt64(row["min_sample_size"], 100),
		core.ToPgTimestampOrNow(row["created_at"], deps.Now),
		core.ToPgTimestampOrNow(row["updated_at"], deps.Now),
	}, nil
}
