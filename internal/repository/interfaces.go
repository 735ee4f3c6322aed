package repository

import (
	"context"
	"time"

	"github.com/crewbook/portal/internal/domain"
)

// UserRepository exposes persistence for directory users.
type UserRepository interface {
	GetByFirebaseID(ctx context.Context, firebaseID string) (domain.User, error)
	// Upsert creates the user on first sign-in or refreshes email/name/photo
	// on later ones. Empty name/photo values never overwrite stored ones.
	Upsert(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, firebaseID string, patch domain.UserPatch) (domain.User, error)
}

// EnrichmentCache remembers provider lookups so repeated enrichment of the
// same key does not spend provider quota. A nil result with nil error means
// cache miss.
type EnrichmentCache interface {
	Get(ctx context.Context, key string) (*domain.Enrichment, error)
	Set(ctx context.Context, key string, e domain.Enrichment, ttl time.Duration) error
}

// CompanyRepository exposes persistence for directory companies.
type CompanyRepository interface {
	GetByID(ctx context.Context, id int64) (domain.Company, error)
	// GetByNameOrDomain matches name case-insensitively, or the exact domain
	// when one is given.
	GetByNameOrDomain(ctx context.Context, name, companyDomain string) (domain.Company, error)
	GetByApolloID(ctx context.Context, apolloID string) (domain.Company, error)
	SearchByName(ctx context.Context, query string, limit int) ([]domain.Company, error)
	Create(ctx context.Context, company domain.Company) (domain.Company, error)
	// ApplyEnrichment overwrites the enrichment columns of an existing
	// company and stamps enriched_at.
	ApplyEnrichment(ctx context.Context, id int64, e domain.Enrichment, enrichedAt time.Time) (domain.Company, error)
}
