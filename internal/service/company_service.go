package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/crewbook/portal/internal/adapter/apollo"
	"github.com/crewbook/portal/internal/domain"
	"github.com/crewbook/portal/internal/metrics"
	"github.com/crewbook/portal/internal/repository"
)

// searchLimit caps directory search results.
const searchLimit = 20

// lookupTag says how an existing company was matched during enrichment.
type lookupTag int

const (
	lookupNone lookupTag = iota
	lookupByApolloID
	lookupByNameOrDomain
)

// CompanyService implements directory company operations and enrichment.
type CompanyService struct {
	companies repository.CompanyRepository
	provider  apollo.Client
	cache     repository.EnrichmentCache
	cacheTTL  time.Duration
	snowflake *snowflake.Node
	recorder  metrics.Recorder
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewCompanyService wires dependencies. cache may be nil when no cache is
// configured.
func NewCompanyService(companies repository.CompanyRepository, provider apollo.Client, cache repository.EnrichmentCache, cacheTTL time.Duration, node *snowflake.Node, recorder metrics.Recorder, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		companies: companies,
		provider:  provider,
		cache:     cache,
		cacheTTL:  cacheTTL,
		snowflake: node,
		recorder:  recorder,
		logger:    logger,
		tracer:    otel.Tracer("internal/service"),
	}
}

// Create returns the existing company when the name or domain is already
// present, else creates one. The bool reports "already existed". Safe to
// call twice with the same input: both calls return the same record.
func (s *CompanyService) Create(ctx context.Context, name, companyDomain string) (domain.Company, bool, error) {
	ctx, span := s.tracer.Start(ctx, "CompanyService.Create")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Company{}, false, domain.NewValidationError("name is required")
	}

	existing, err := s.companies.GetByNameOrDomain(ctx, name, companyDomain)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Company{}, false, err
	}

	created, err := s.companies.Create(ctx, domain.Company{
		ID:     s.snowflake.Generate().Int64(),
		Name:   name,
		Domain: companyDomain,
	})
	if err != nil {
		// A concurrent create with the same key wins the race; the store's
		// unique constraint is the arbiter.
		return domain.Company{}, false, err
	}
	return created, false, nil
}

// Search returns up to 20 companies whose name contains the query
// case-insensitively, ascending by name. An empty result is not an error.
func (s *CompanyService) Search(ctx context.Context, query string) ([]domain.Company, error) {
	ctx, span := s.tracer.Start(ctx, "CompanyService.Search")
	defer span.End()

	if query == "" {
		return nil, domain.NewValidationError("query must be at least 1 character")
	}
	return s.companies.SearchByName(ctx, query, searchLimit)
}

// EnrichByLookup fetches provider data for the lookup key and upserts the
// matching company: updated in place when one exists (matched by provider id
// first, then by name/domain), created otherwise.
func (s *CompanyService) EnrichByLookup(ctx context.Context, lookup apollo.Lookup) (domain.Company, error) {
	ctx, span := s.tracer.Start(ctx, "CompanyService.EnrichByLookup")
	defer span.End()

	if lookup.Empty() {
		return domain.Company{}, domain.NewValidationError("name, domain, or linkedinUrl is required")
	}

	enrichment, err := s.fetchEnrichment(ctx, lookup)
	if err != nil {
		return domain.Company{}, err
	}

	tag, existing, err := s.findExisting(ctx, enrichment)
	if err != nil {
		return domain.Company{}, err
	}

	now := time.Now().UTC()
	switch tag {
	case lookupByApolloID, lookupByNameOrDomain:
		return s.companies.ApplyEnrichment(ctx, existing.ID, enrichment, now)
	default:
		return s.companies.Create(ctx, companyFromEnrichment(s.snowflake.Generate().Int64(), enrichment, now))
	}
}

// EnrichByID enriches a stored company in place, deriving the provider
// lookup from its own fields.
func (s *CompanyService) EnrichByID(ctx context.Context, companyID int64) (domain.Company, error) {
	ctx, span := s.tracer.Start(ctx, "CompanyService.EnrichByID")
	defer span.End()

	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return domain.Company{}, err
	}

	enrichment, err := s.fetchEnrichment(ctx, apollo.Lookup{
		Name:        company.Name,
		Domain:      company.Domain,
		LinkedinURL: company.LinkedinURL,
	})
	if err != nil {
		return domain.Company{}, err
	}

	return s.companies.ApplyEnrichment(ctx, company.ID, enrichment, time.Now().UTC())
}

// fetchEnrichment resolves a lookup via the cache or the provider. The
// configuration check comes first so a missing key can never cause a
// partial write.
func (s *CompanyService) fetchEnrichment(ctx context.Context, lookup apollo.Lookup) (domain.Enrichment, error) {
	if !s.provider.Configured() {
		return domain.Enrichment{}, fmt.Errorf("enrichment provider key missing: %w", domain.ErrConfiguration)
	}

	key := lookupCacheKey(lookup)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("enrichment cache read failed", zap.String("key", key), zap.Error(err))
		} else if cached != nil {
			s.recorder.RecordEnrichmentCacheHit()
			return *cached, nil
		}
	}

	enrichment, err := s.provider.FetchCompany(ctx, lookup)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.recorder.RecordEnrichmentFailure("not_found")
		case errors.Is(err, domain.ErrProvider):
			s.recorder.RecordEnrichmentFailure("provider")
		default:
			s.recorder.RecordEnrichmentFailure("other")
		}
		return domain.Enrichment{}, err
	}
	s.recorder.RecordEnrichmentSuccess()

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, enrichment, s.cacheTTL); err != nil {
			s.logger.Warn("enrichment cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return enrichment, nil
}

// findExisting resolves the enrichment target as a tagged lookup: matched by
// provider id, matched by name/domain, or absent.
func (s *CompanyService) findExisting(ctx context.Context, e domain.Enrichment) (lookupTag, domain.Company, error) {
	if e.ApolloID != "" {
		company, err := s.companies.GetByApolloID(ctx, e.ApolloID)
		if err == nil {
			return lookupByApolloID, company, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return lookupNone, domain.Company{}, err
		}
	}

	company, err := s.companies.GetByNameOrDomain(ctx, e.Name, e.Domain)
	if err == nil {
		return lookupByNameOrDomain, company, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return lookupNone, domain.Company{}, err
	}

	return lookupNone, domain.Company{}, nil
}

func companyFromEnrichment(id int64, e domain.Enrichment, enrichedAt time.Time) domain.Company {
	return domain.Company{
		ID:            id,
		Name:          e.Name,
		Domain:        e.Domain,
		Industry:      e.Industry,
		Size:          e.EmployeeRange,
		LogoURL:       e.LogoURL,
		ApolloID:      e.ApolloID,
		Website:       e.Website,
		LinkedinURL:   e.LinkedinURL,
		Description:   e.Description,
		SubIndustry:   e.SubIndustry,
		CompanyType:   e.CompanyType,
		EmployeeCount: e.EmployeeCount,
		EmployeeRange: e.EmployeeRange,
		FoundedYear:   e.FoundedYear,
		Revenue:       e.Revenue,
		HQCity:        e.HQCity,
		HQState:       e.HQState,
		HQCountry:     e.HQCountry,
		Phone:         e.Phone,
		TwitterURL:    e.TwitterURL,
		FacebookURL:   e.FacebookURL,
		EnrichedAt:    &enrichedAt,
	}
}

func lookupCacheKey(lookup apollo.Lookup) string {
	switch {
	case strings.TrimSpace(lookup.Domain) != "":
		return "domain:" + strings.ToLower(strings.TrimSpace(lookup.Domain))
	case strings.TrimSpace(lookup.LinkedinURL) != "":
		return "linkedin:" + strings.ToLower(strings.TrimSpace(lookup.LinkedinURL))
	default:
		return "name:" + strings.ToLower(strings.TrimSpace(lookup.Name))
	}
}
