package repository

import (
	"context"

	"github.com/gameplatform/role-service/internal/domain/entity"
)

// AudienceRegistry resolves an (audience-kind, audience-id) pair to a
// stable internal reference, creating the reference lazily on first
// use. Resolve must be idempotent under concurrent callers: when two
// callers race to create the same pair, the loser resolves to the
// winner's reference instead of erroring.
type AudienceRegistry interface {
	Resolve(ctx context.Context, kind, audienceID string) (int64, error)

	// Get performs the reverse lookup from a reference to its pair.
	Get(ctx context.Context, ref int64) (*entity.RoleAudience, error)
}
