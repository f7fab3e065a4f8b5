package tables

import (
	"context"
	"errors"

	"github.com/pastorenue/expothesis/internal/core"
)

func init() {
	core.Register(core.TableDefinition{
		Name:  "user_groups",
		Order: 2,
		Columns: []string{
			"id", "org_id", "name", "description", "assignment_rule", "size",
			"created_at", "updated_at",
		},
		ConflictKeys: []string{"id"},
		Build:        buildUserGroup,
	})
}

func buildUserGroup(ctx context.Context, deps *core.BuildDeps, row core.SourceRow) ([]any, error) {
	id := core.ToPgUUID(row["id"])
	if !id.Valid {
		return nil, core.Skip("invalid user group id")
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
		core.ToString(row["assignment_rule"], ""),
		core.ToInt64(row["size"], 0),
		core.ToPgTimestampOrNow(row["created_at"], deps.Now),
		core.ToPgTimestampOrNow(row["updated_at"], deps.Now),
	}, nil
}
