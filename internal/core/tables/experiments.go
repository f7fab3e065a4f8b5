// Package tables registers the migrated table definitions with the core
// registry. Import this package for its side effects to make every table
// available to the orchestrator.
//
// The dependency order is load-bearing: cuped_configs must run after
// experiments because its transform checks, mid-transaction, that the
// referenced experiment has already been written.
package tables

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pastorenue/expothesis/internal/core"
)

func init() {
	core.Register(core.TableDefinition{
		Name:  "experiments",
		Order: 1,
		Columns: []string{
			"id", "org_id", "name", "description", "status", "experiment_type",
			"sampling_method", "analysis_engine", "sampling_seed",
			"feature_flag_id", "feature_gate_id", "health_checks", "hypothesis",
			"variants", "user_groups", "primary_metric",
			"start_date", "end_date", "created_at", "updated_at",
		},
		ConflictKeys: []string{"id"},
		Build:        buildExperiment,
	})
}

func buildExperiment(ctx context.Context, deps *core.BuildDeps, row core.SourceRow) ([]any, error) {
	id := core.ToPgUUID(row["id"])
	if !id.Valid {
		return nil, core.Skip("invalid experiment id")
	}

	orgID, err := deps.Orgs.Resolve(ctx, row["org_id"])
	if err != nil {
		if errors.Is(err, core.ErrNoOrganizations) {
			return nil, core.Skip("no organization to attach to")
		}
		return nil, err
	}

	return []any{
		id,
		orgID,
		core.ToString(row["name"], ""),
		core.ToString(row["description"], ""),
		core.ToString(row["status"], "draft"),
		core.ToString(row["experiment_type"], "a_b"),
		core.ToString(row["sampling_method"], "random"),
		core.ToString(row["analysis_engine"], "frequentist"),
		core.ToInt64(row["sampling_seed"], 0),
		core.ToPgUUID(row["feature_flag_id"]),
		core.ToPgUUID(row["feature_gate_id"]),
		core.JSONArrayText(row["health_checks"]),
		buildHypothesis(row),
		core.JSONArrayText(row["variants"]),
		core.JSONArrayText(row["user_groups"]),
		core.ToString(row["primary_metric"], ""),
		core.ToPgTimestamp(row["start_date"]),
		core.ToPgTimestamp(row["end_date"]),
		core.ToPgTimestampOrNow(row["created_at"], deps.Now),
		core.ToPgTimestampOrNow(row["updated_at"], deps.Now),
	}, nil
}

// hypothesis is the nested structure the destination stores as one jsonb
// object. The source flattens it into separate columns.
type hypothesis struct {
	NullHypothesis        string  `json:"null_hypothesis"`
	AlternativeHypothesis string  `json:"alternative_hypothesis"`
	ExpectedEffectSize    float64 `json:"expected_effect_size"`
	MetricType            string  `json:"metric_type"`
	SignificanceLevel     float64 `json:"significance_level"`
	Power                 float64 `json:"power"`
	MinimumSampleSize     *int64  `json:"minimum_sample_size"`
}

// buildHypothesis reassembles the flattened hypothesis columns into one
// object, but only when at least one sub-field carries a value; otherwise
// the destination column stays NULL.
func buildHypothesis(row core.SourceRow) any {
	nullText := core.ToString(row["hypothesis_null"], "")
	altText := core.ToString(row["hypothesis_alternative"], "")
	effectSize := core.ToFloat64(row["expected_effect_size"], 0)

	var minSample *int64
	if row["minimum_sample_size"] != nil {
		n := core.ToInt64(row["minimum_sample_size"], 0)
		minSample = &n
	}

	if nullText == "" && altText == "" && effectSize == 0 && minSample == nil {
		return nil
	}

	h := hypothesis{
		NullHypothesis:        nullText,
		AlternativeHypothesis: altText,
		ExpectedEffectSize:    effectSize,
		MetricType:            core.ToString(row["metric_type"], ""),
		SignificanceLevel:     core.ToFloat64(row["significance_level"], 0.05),
		Power:                 core.ToFloat64(row["power"], 0.8),
		MinimumSampleSize:     minSample,
	}

	b, err := json.Marshal(h)
	if err != nil {
		return nil
	}
	return string(b)
}
