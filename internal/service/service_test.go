package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crewbook/portal/internal/adapter/apollo"
	"github.com/crewbook/portal/internal/domain"
	"github.com/crewbook/portal/internal/repository"
)

// memoryUserRepo is an in-memory UserRepository for service tests.
type memoryUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]domain.User
}

var _ repository.UserRepository = (*memoryUserRepo)(nil)

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.User)}
}

func (m *memoryUserRepo) GetByFirebaseID(ctx context.Context, firebaseID string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[firebaseID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[user.FirebaseID]
	if !ok {
		user.CreatedAt = time.Now()
		user.UpdatedAt = user.CreatedAt
		m.users[user.FirebaseID] = user
		return user, nil
	}
	existing.Email = user.Email
	if user.Name != "" {
		existing.Name = user.Name
	}
	if user.PhotoURL != "" {
		existing.PhotoURL = user.PhotoURL
	}
	existing.UpdatedAt = time.Now()
	m.users[user.FirebaseID] = existing
	return existing, nil
}

func (m *memoryUserRepo) Update(ctx context.Context, firebaseID string, patch domain.UserPatch) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[firebaseID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Title != nil {
		user.Title = *patch.Title
	}
	if patch.PhotoURL != nil {
		user.PhotoURL = *patch.PhotoURL
	}
	switch {
	case patch.ClearCompany:
		user.CompanyID = nil
	case patch.CompanyID != nil:
		val := *patch.CompanyID
		user.CompanyID = &val
	}
	if patch.Division != nil {
		user.Division = *patch.Division
	}
	if patch.Unit != nil {
		user.Unit = *patch.Unit
	}
	user.UpdatedAt = time.Now()
	m.users[firebaseID] = user
	return user, nil
}

// memoryCompanyRepo is an in-memory CompanyRepository for service tests.
type memoryCompanyRepo struct {
	mu        sync.Mutex
	companies map[int64]domain.Company
}

var _ repository.CompanyRepository = (*memoryCompanyRepo)(nil)

func newMemoryCompanyRepo() *memoryCompanyRepo {
	return &memoryCompanyRepo{companies: make(map[int64]domain.Company)}
}

func (m *memoryCompanyRepo) GetByID(ctx context.Context, id int64) (domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	company, ok := m.companies[id]
	if !ok {
		return domain.Company{}, domain.ErrNotFound
	}
	return company, nil
}

func (m *memoryCompanyRepo) GetByNameOrDomain(ctx context.Context, name, companyDomain string) (domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, company := range m.companies {
		if strings.EqualFold(company.Name, name) {
			return company, nil
		}
		if companyDomain != "" && company.Domain == companyDomain {
			return company, nil
		}
	}
	return domain.Company{}, domain.ErrNotFound
}

func (m *memoryCompanyRepo) GetByApolloID(ctx context.Context, apolloID string) (domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, company := range m.companies {
		if company.ApolloID == apolloID {
			return company, nil
		}
	}
	return domain.Company{}, domain.ErrNotFound
}

func (m *memoryCompanyRepo) SearchByName(ctx context.Context, query string, limit int) ([]domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.Company
	needle := strings.ToLower(query)
	for _, company := range m.companies {
		if strings.Contains(strings.ToLower(company.Name), needle) {
			matched = append(matched, company)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memoryCompanyRepo) Create(ctx context.Context, company domain.Company) (domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.companies {
		if strings.EqualFold(existing.Name, company.Name) {
			return domain.Company{}, domain.ErrConflict
		}
	}
	company.CreatedAt = time.Now()
	company.UpdatedAt = company.CreatedAt
	m.companies[company.ID] = company
	return company, nil
}

func (m *memoryCompanyRepo) ApplyEnrichment(ctx context.Context, id int64, e domain.Enrichment, enrichedAt time.Time) (domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	company, ok := m.companies[id]
	if !ok {
		return domain.Company{}, domain.ErrNotFound
	}
	company.ApolloID = e.ApolloID
	company.Name = e.Name
	company.Domain = e.Domain
	company.Website = e.Website
	company.LinkedinURL = e.LinkedinURL
	company.Description = e.Description
	company.LogoURL = e.LogoURL
	company.Industry = e.Industry
	company.SubIndustry = e.SubIndustry
	company.CompanyType = e.CompanyType
	company.EmployeeCount = e.EmployeeCount
	company.EmployeeRange = e.EmployeeRange
	company.FoundedYear = e.FoundedYear
	company.Revenue = e.Revenue
	company.HQCity = e.HQCity
	company.HQState = e.HQState
	company.HQCountry = e.HQCountry
	company.Phone = e.Phone
	company.TwitterURL = e.TwitterURL
	company.FacebookURL = e.FacebookURL
	company.EnrichedAt = &enrichedAt
	company.UpdatedAt = time.Now()
	m.companies[id] = company
	return company, nil
}

func (m *memoryCompanyRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.companies)
}

// fakeProvider is a scripted apollo.Client.
type fakeProvider struct {
	configured bool
	result     domain.Enrichment
	err        error
	calls      int
}

var _ apollo.Client = (*fakeProvider)(nil)

func (f *fakeProvider) FetchCompany(ctx context.Context, lookup apollo.Lookup) (domain.Enrichment, error) {
	f.calls++
	if f.err != nil {
		return domain.Enrichment{}, f.err
	}
	return f.result, nil
}

func (f *fakeProvider) Configured() bool { return f.configured }

// memoryCache is an in-memory EnrichmentCache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]domain.Enrichment
}

var _ repository.EnrichmentCache = (*memoryCache)(nil)

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]domain.Enrichment)}
}

func (m *memoryCache) Get(ctx context.Context, key string) (*domain.Enrichment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, e domain.Enrichment, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}
