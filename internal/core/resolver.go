package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrNoOrganizations is returned when the destination holds no
// organizations at all, so not even the fallback can resolve.
var ErrNoOrganizations = errors.New("no organizations exist in destination")

// OrgResolver resolves a source organization reference to a valid
// destination organization id. Source and destination identity spaces are
// not guaranteed to align, so implementations may apply a fallback policy.
type OrgResolver interface {
	Resolve(ctx context.Context, raw any) (pgtype.UUID, error)
}

// orgResolver resolves against the destination inside the migration
// transaction: exact-id lookup first, then the earliest-created
// organization as fallback. The fallback is memoized for the run; within
// one transaction the answer cannot change.
type orgResolver struct {
	db  DBTX
	log *slog.Logger

	fallback       pgtype.UUID
	fallbackLoaded bool
}

// NewOrgResolver returns the production resolver bound to the given
// transaction or pool.
func NewOrgResolver(db DBTX, log *slog.Logger) OrgResolver {
	if log == nil {
		log = slog.Default()
	}
	return &orgResolver{db: db, log: log}
}

func (r *orgResolver) Resolve(ctx context.Context, raw any) (pgtype.UUID, error) {
	cand := ToPgUUID(raw)
	if cand.Valid {
		var id pgtype.UUID
		err := r.db.QueryRow(ctx,
			"SELECT id FROM organizations WHERE id = $1", cand).Scan(&id)
		switch {
		case err == nil:
			return id, nil
		case errors.Is(err, pgx.ErrNoRows):
			// fall through to the fallback
		default:
			return pgtype.UUID{}, fmt.Errorf("org lookup: %w", err)
		}
	}

	fallback, err := r.earliestOrg(ctx)
	if err != nil {
		return pgtype.UUID{}, err
	}
	r.log.Warn("org reference unresolved, using earliest organization",
		"raw", ToString(raw, ""),
		"fallback", PgUUIDString(fallback),
	)
	return fallback, nil
}

// earliestOrg returns the destination organization with the oldest
// creation timestamp, memoized for the life of the resolver.
func (r *orgResolver) earliestOrg(ctx context.Context) (pgtype.UUID, error) {
	if r.fallbackLoaded {
		return r.fallback, nil
	}

	var id pgtype.UUID
	err := r.db.QueryRow(ctx,
		"SELECT id FROM organizations ORDER BY created_at LIMIT 1").Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return pgtype.UUID{}, ErrNoOrganizations
	case err != nil:
		return pgtype.UUID{}, fmt.Errorf("org fallback lookup: %w", err)
	}

	r.fallback = id
	r.fallbackLoaded = true
	return id, nil
}

// ExperimentExists reports whether an experiment row is visible in the
// destination. Called mid-transaction, so it observes experiments written
// earlier in the same run even before commit.
func ExperimentExists(ctx context.Context, db DBTX, id pgtype.UUID) (bool, error) {
	var found pgtype.UUID
	err := db.QueryRow(ctx,
		"SELECT id FROM experiments WHERE id = $1", id).Scan(&found)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("experiment lookup: %w", err)
	}
}
