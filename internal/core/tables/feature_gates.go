package tables

import (
	"context"
	"errors"

	"github.com/pastorenue/expothesis/internal/core"
)

func init() {
	core.Register(core.TableDefinition{
		Name:  "feature_gates",
		Order: 4,
		Columns: []string{
			"id", "org_id", "flag_id", "name", "description", "status",
			"rule", "default_value", "pass_value", "created_at", "updated_at",
		},
		ConflictKeys: []string{"id"},
		Build:        buildFeatureGate,
	})
}

func buildFeatureGate(ctx context.Context, deps *core.BuildDeps, row core.SourceRow) ([]any, error) {
	id := core.ToPgUUID(row["id"])
	if !id.Valid {
		return nil, core.Skip("invalid feature gate id")
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
		core.ToPgUUID(row["flag_id"]), // optional, NULL when absent or malformed
		core.ToString(row["name"], ""),
		core.ToString(row["description"], ""),
		core.ToString(row["status"], "inactive"),
		core.ToString(row["rule"], ""),
		core.IntFlagToBool(row["default_value"], false),
		core.IntFlagToBool(row["pass_value"], true),
		core.ToPgTimestampOrNow(row["created_at"], deps.Now),
		core.ToPgTimestampOrNow(row["updated_at"], deps.Now),
	}, nil
}
