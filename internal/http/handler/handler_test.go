package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crewbook/portal/internal/adapter/apollo"
	"github.com/crewbook/portal/internal/config"
	"github.com/crewbook/portal/internal/domain"
	httptransport "github.com/crewbook/portal/internal/http"
	"github.com/crewbook/portal/internal/http/handler"
	"github.com/crewbook/portal/internal/http/middleware"
	"github.com/crewbook/portal/internal/identity"
	"github.com/crewbook/portal/internal/metrics"
	"github.com/crewbook/portal/internal/repository"
	"github.com/crewbook/portal/internal/service"
)

type staticVerifier struct {
	claims identity.Claims
	err    error
}

func (v *staticVerifier) Verify(ctx context.Context, token string) (identity.Claims, error) {
	if v.err != nil {
		return identity.Claims{}, v.err
	}
	return v.claims, nil
}

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.User)}
}

func (r *memoryUserRepo) GetByFirebaseID(ctx context.Context, firebaseID string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[firebaseID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) Upsert(ctx context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.FirebaseID]
	if !ok {
		user.CreatedAt = time.Now()
		user.UpdatedAt = user.CreatedAt
		r.users[user.FirebaseID] = user
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
	r.users[user.FirebaseID] = existing
	return existing, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, firebaseID string, patch domain.UserPatch) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[firebaseID]
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
	if patch.Division != nil {
		user.Division = *patch.Division
	}
	if patch.Unit != nil {
		user.Unit = *patch.Unit
	}
	if patch.ClearCompany {
		user.CompanyID = nil
	} else if patch.CompanyID != nil {
		id := *patch.CompanyID
		user.CompanyID = &id
	}
	user.UpdatedAt = time.Now()
	r.users[firebaseID] = user
	return user, nil
}

type memoryCompanyRepo struct {
	mu        sync.Mutex
	companies map[int64]domain.Company
}

func newMemoryCompanyRepo() *memoryCompanyRepo {
	return &memoryCompanyRepo{companies: make(map[int64]domain.Company)}
}

func (r *memoryCompanyRepo) GetByID(ctx context.Context, id int64) (domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	company, ok := r.companies[id]
	if !ok {
		return domain.Company{}, domain.ErrNotFound
	}
	return company, nil
}

func (r *memoryCompanyRepo) GetByNameOrDomain(ctx context.Context, name, companyDomain string) (domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, company := range r.companies {
		if strings.EqualFold(company.Name, name) {
			return company, nil
		}
		if companyDomain != "" && company.Domain == companyDomain {
			return company, nil
		}
	}
	return domain.Company{}, domain.ErrNotFound
}

func (r *memoryCompanyRepo) GetByApolloID(ctx context.Context, apolloID string) (domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, company := range r.companies {
		if company.ApolloID != "" && company.ApolloID == apolloID {
			return company, nil
		}
	}
	return domain.Company{}, domain.ErrNotFound
}

func (r *memoryCompanyRepo) SearchByName(ctx context.Context, query string, limit int) ([]domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Company
	for _, company := range r.companies {
		if strings.Contains(strings.ToLower(company.Name), strings.ToLower(query)) {
			result = append(result, company)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memoryCompanyRepo) Create(ctx context.Context, company domain.Company) (domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.companies {
		if strings.EqualFold(existing.Name, company.Name) {
			return domain.Company{}, domain.ErrConflict
		}
	}
	company.CreatedAt = time.Now()
	company.UpdatedAt = company.CreatedAt
	r.companies[company.ID] = company
	return company, nil
}

func (r *memoryCompanyRepo) ApplyEnrichment(ctx context.Context, id int64, e domain.Enrichment, enrichedAt time.Time) (domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	company, ok := r.companies[id]
	if !ok {
		return domain.Company{}, domain.ErrNotFound
	}
	company.ApolloID = e.ApolloID
	company.Industry = e.Industry
	company.EnrichedAt = &enrichedAt
	r.companies[id] = company
	return company, nil
}

var (
	_ repository.UserRepository    = (*memoryUserRepo)(nil)
	_ repository.CompanyRepository = (*memoryCompanyRepo)(nil)
)

type testEnv struct {
	router    *gin.Engine
	users     *memoryUserRepo
	companies *memoryCompanyRepo
	verifier  *staticVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	logger := zap.NewNop()
	users := newMemoryUserRepo()
	companies := newMemoryCompanyRepo()
	verifier := &staticVerifier{claims: identity.Claims{Subject: "firebase-1", Email: "ana@example.com"}}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewCollector(registry)

	userService := service.NewUserService(users, companies, node, logger)
	companyService := service.NewCompanyService(companies, unconfiguredProvider{}, nil, 0, node, recorder, logger)

	cfg := &config.Config{Environment: "test", ServiceName: "portal-test"}
	router := httptransport.NewRouter(
		cfg,
		&middleware.Auth{Verifier: verifier},
		handler.NewUserHandler(userService, logger),
		handler.NewCompanyHandler(companyService, logger),
		recorder,
		registry,
		logger,
	)

	return &testEnv{router: router, users: users, companies: companies, verifier: verifier}
}

type unconfiguredProvider struct{}

func (unconfiguredProvider) FetchCompany(ctx context.Context, lookup apollo.Lookup) (domain.Enrichment, error) {
	return domain.Enrichment{}, domain.ErrConfiguration
}

func (unconfiguredProvider) Configured() bool { return false }

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMissingToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/user/get", "", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	require.Equal(t, false, body["success"])
	require.Contains(t, body["error"], "Missing token")
}

func TestAuthExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.verifier.err = identity.ErrTokenExpired

	w := env.do(t, http.MethodGet, "/user/get", "stale", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	require.Contains(t, body["error"], "expired")
}

func TestUpsertThenGet(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/user/upsert", "valid", map[string]any{
		"firebaseId":  "firebase-1",
		"email":       "ana@example.com",
		"displayName": "Ana",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/user/get", "valid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "ana@example.com", user["email"])
	require.Equal(t, "Ana", user["name"])
}

func TestUpsertSubjectMismatch(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/user/upsert", "valid", map[string]any{
		"firebaseId": "someone-else",
		"email":      "ana@example.com",
	})

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, env.users.users)
}

func TestUpsertRejectsBadEmail(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/user/upsert", "valid", map[string]any{
		"firebaseId": "firebase-1",
		"email":      "not-an-email",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/user/update", "valid", map[string]any{"title": "Engineer"})

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePartialPreservesFields(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/user/upsert", "valid", map[string]any{
		"firebaseId":  "firebase-1",
		"email":       "ana@example.com",
		"displayName": "Ana",
		"photoUrl":    "https://example.com/a.png",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/user/update", "valid", map[string]any{"title": "Engineer"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	user := body["user"].(map[string]any)
	require.Equal(t, "Engineer", user["title"])
	require.Equal(t, "Ana", user["name"])
	require.Equal(t, "https://example.com/a.png", user["photoUrl"])
}

func TestUpdateRejectsDanglingCompany(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/user/upsert", "valid", map[string]any{
		"firebaseId": "firebase-1",
		"email":      "ana@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/user/update", "valid", map[string]any{"companyId": "999"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateCompanyIdempotent(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/company/create", "valid", map[string]any{
		"name":   "Acme Corp",
		"domain": "acme.example",
	})
	require.Equal(t, http.StatusOK, w.Code)
	first := decodeBody(t, w)
	require.Equal(t, false, first["alreadyExists"])
	firstID := first["company"].(map[string]any)["id"]

	w = env.do(t, http.MethodPost, "/company/create", "valid", map[string]any{"name": "acme corp"})
	require.Equal(t, http.StatusOK, w.Code)
	second := decodeBody(t, w)
	require.Equal(t, true, second["alreadyExists"])
	require.Equal(t, firstID, second["company"].(map[string]any)["id"])
}

func TestCreateCompanyRequiresName(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/company/create", "valid", map[string]any{"domain": "acme.example"})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchCompanies(t *testing.T) {
	env := newTestEnv(t)

	for _, name := range []string{"Tractor Works", "Acme Corp", "Acme Labs"} {
		w := env.do(t, http.MethodPost, "/company/create", "valid", map[string]any{"name": name})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(t, http.MethodPost, "/company/search", "valid", map[string]any{"query": "acme"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	companies := body["companies"].([]any)
	require.Len(t, companies, 2)
	require.Equal(t, "Acme Corp", companies[0].(map[string]any)["name"])
	require.Equal(t, "Acme Labs", companies[1].(map[string]any)["name"])
}

func TestSearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/company/search", "valid", map[string]any{"query": ""})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrichWithoutProviderKey(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/company/enrich", "valid", map[string]any{"domain": "acme.example"})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	require.Contains(t, body["error"], "misconfigured")
	require.Empty(t, env.companies.companies)
}

func TestEnrichRejectsBadCompanyID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/company/enrich", "valid", map[string]any{"companyId": "abc"})

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthzUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/healthz", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
}
