package tables

import (
	"context"
	"errors"

	"github.com/pastorenue/expothesis/internal/core"
)

func init() {
	core.Register(core.TableDefinition{
		Name:  "feature_flags",
		Order: 3,
		Columns: []string{
			"id", "org_id", "name", "description", "status", "tags",
			"environment", "owner", "user_groups", "created_at", "updated_at",
		},
		ConflictKeys: []string{"id"},
		Build:        buildFeatureFlag,
	})
}

func buildFeatureFlag(ctx context.Context, deps *core.BuildDeps, row core.SourceRow) ([]any, error) {
	id := core.ToPgUUID(row["id"])
	if !id.Valid {
		return nil, core.Skip("invalid feature flag id")
	}

	orgID, err := deps.Orgs.Resolve(ctx, row["org_id"])
	if err != nil {
		if errors.Is(err, core.ErrNoOrganizations) {
			return nil, core.Skip("no organization to attach to")
		}
		return nil, err
	}

	// tags and user_groups are stored as JSON strings in some source
	// versions and as structured arrays in others; both normalize to a
	// well-formed jsonb array, malformed input to [].
	return []any{
		id,
		orgID,
		core.ToString(row["name"], ""),
		core.ToString(row["description"], ""),
		core.ToString(row["status"], "inactive"),
		core.JSONArrayText(row["tags"]),
		core.ToString(row["environment"], ""),
		core.ToString(row["owner"], ""),
		core.JSONArrayText(row["user_groups"]),
		core.ToPgTimestampOrNow(row["created_at"], deps.Now),
		core.ToPgTimestampOrNow(row["updated_at"], deps.Now),
	}, nil
}
