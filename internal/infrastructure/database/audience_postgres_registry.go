package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/repository"
)

type pgxAudienceRegistry struct {
	db *pgxpool.Pool
}

// NewPgxAudienceRegistry creates a new instance of pgxAudienceRegistry.
func NewPgxAudienceRegistry(db *pgxpool.Pool) repository.AudienceRegistry {
	return &pgxAudienceRegistry{db: db}
}

// Resolve returns the stable reference for (kind, audienceID), creating
// it on first use. The insert uses ON CONFLICT DO NOTHING followed by a
// reselect, so the loser of a concurrent create resolves to the
// winner's row instead of erroring.
func (r *pgxAudienceRegistry) Resolve(ctx context.Context, kind, audienceID string) (int64, error) {
	selectQuery := `SELECT id FROM role_audiences WHERE audience = $1 AND audience_id = $2`

	var ref int64
	err := r.db.QueryRow(ctx, selectQuery, kind, audienceID).Scan(&ref)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, domainErrors.NewServerError("failed to resolve audience reference", err)
	}

	insertQuery := `
		INSERT INTO role_audiences (audience, audience_id)
		VALUES ($1, $2)
		ON CONFLICT (audience, audience_id) DO NOTHING`
	if _, err := r.db.Exec(ctx, insertQuery, kind, audienceID); err != nil {
		return 0, domainErrors.NewServerError("failed to create audience reference", err)
	}

	if err := r.db.QueryRow(ctx, selectQuery, kind, audienceID).Scan(&ref); err != nil {
		return 0, domainErrors.NewServerError("audience reference missing after insert", err)
	}
	return ref, nil
}

func (r *pgxAudienceRegistry) Get(ctx context.Context, ref int64) (*entity.RoleAudience, error) {
	query := `SELECT audience, audience_id FROM role_audiences WHERE id = $1`
	audience := &entity.RoleAudience{}
	err := r.db.QueryRow(ctx, query, ref).Scan(&audience.Kind, &audience.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewServerError(
				fmt.Sprintf("audience reference %d not found", ref), domainErrors.ErrAudienceNotFound)
		}
		return nil, fmt.Errorf("failed to get audience reference: %w", err)
	}
	return audience, nil
}

var _ repository.AudienceRegistry = (*pgxAudienceRegistry)(nil)
