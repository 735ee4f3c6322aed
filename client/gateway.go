// Package client is the Go SDK for the portal API. The Gateway attaches the
// caller's bearer credential to every request and decodes the stable response
// envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crewbook/portal/internal/domain"
)

// TokenSource supplies the current bearer credential. Implementations
// typically wrap the identity provider's SDK and refresh under the hood.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token. Useful for tests and scripts.
type StaticTokenSource string

func (s StaticTokenSource) Token(ctx context.Context) (string, error) {
	return string(s), nil
}

// Gateway is the typed HTTP client for the portal API.
type Gateway struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *zap.Logger
}

// NewGateway builds a Gateway against baseURL. A nil httpClient gets a
// 15 second timeout; a nil logger disables logging.
func NewGateway(baseURL string, tokens TokenSource, httpClient *http.Client, logger *zap.Logger) *Gateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
	}
}

// User is the API's profile representation. Ids are decimal strings.
type User struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name,omitempty"`
	PhotoURL  string   `json:"photoUrl,omitempty"`
	Title     string   `json:"title,omitempty"`
	CompanyID string   `json:"companyId,omitempty"`
	Division  string   `json:"division,omitempty"`
	Unit      string   `json:"unit,omitempty"`
	Company   *Company `json:"company,omitempty"`
}

// Company is the API's company representation.
type Company struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"domain,omitempty"`
	Industry string `json:"industry,omitempty"`
	Size     string `json:"size,omitempty"`
	LogoURL  string `json:"logoUrl,omitempty"`

	ApolloID      string     `json:"apolloId,omitempty"`
	Website       string     `json:"website,omitempty"`
	LinkedinURL   string     `json:"linkedinUrl,omitempty"`
	Description   string     `json:"description,omitempty"`
	SubIndustry   string     `json:"subIndustry,omitempty"`
	CompanyType   string     `json:"companyType,omitempty"`
	EmployeeCount *int       `json:"employeeCount,omitempty"`
	EmployeeRange string     `json:"employeeRange,omitempty"`
	FoundedYear   *int       `json:"foundedYear,omitempty"`
	Revenue       string     `json:"revenue,omitempty"`
	HQCity        string     `json:"hqCity,omitempty"`
	HQState       string     `json:"hqState,omitempty"`
	HQCountry     string     `json:"hqCountry,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	TwitterURL    string     `json:"twitterUrl,omitempty"`
	FacebookURL   string     `json:"facebookUrl,omitempty"`
	EnrichedAt    *time.Time `json:"enrichedAt,omitempty"`
}

// UpsertUserRequest mirrors POST /user/upsert.
type UpsertUserRequest struct {
	FirebaseID  string `json:"firebaseId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// UpdateUserRequest mirrors POST /user/update. Nil fields are left
// untouched; an empty-string CompanyID detaches the company.
type UpdateUserRequest struct {
	Name      *string `json:"name,omitempty"`
	Title     *string `json:"title,omitempty"`
	PhotoURL  *string `json:"photoUrl,omitempty"`
	CompanyID *string `json:"companyId,omitempty"`
	Division  *string `json:"division,omitempty"`
	Unit      *string `json:"unit,omitempty"`
}

// CreateCompanyRequest mirrors POST /company/create.
type CreateCompanyRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// CreateCompanyResult reports whether the directory already had the company.
type CreateCompanyResult struct {
	Company       Company
	AlreadyExists bool
}

// EnrichCompanyRequest mirrors POST /company/enrich. Set CompanyID to
// enrich an existing record, or lookup keys for one that may not exist yet.
type EnrichCompanyRequest struct {
	CompanyID   string `json:"companyId,omitempty"`
	Name        string `json:"name,omitempty"`
	Domain      string `json:"domain,omitempty"`
	LinkedinURL string `json:"linkedinUrl,omitempty"`
}

type envelope struct {
	Success       bool      `json:"success"`
	Error         string    `json:"error"`
	Details       []string  `json:"details"`
	User          *User     `json:"user"`
	Company       *Company  `json:"company"`
	Companies     []Company `json:"companies"`
	AlreadyExists bool      `json:"alreadyExists"`
}

// APIError is a non-2xx response from the portal.
type APIError struct {
	StatusCode int
	Message    string
	Details    []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal api: %d %s", e.StatusCode, e.Message)
}

// Unwrap maps auth failures onto the domain sentinels so callers can use
// errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	default:
		return nil
	}
}

// UpsertUser creates or refreshes the caller's profile.
func (g *Gateway) UpsertUser(ctx context.Context, req UpsertUserRequest) (User, error) {
	env, err := g.call(ctx, http.MethodPost, "/user/upsert", req)
	if err != nil {
		return User{}, err
	}
	if env.User == nil {
		return User{}, fmt.Errorf("portal api: response missing user")
	}
	return *env.User, nil
}

// GetUser fetches the caller's profile.
func (g *Gateway) GetUser(ctx context.Context) (User, error) {
	env, err := g.call(ctx, http.MethodGet, "/user/get", nil)
	if err != nil {
		return User{}, err
	}
	if env.User == nil {
		return User{}, fmt.Errorf("portal api: response missing user")
	}
	return *env.User, nil
}

// UpdateUser applies a partial profile edit.
func (g *Gateway) UpdateUser(ctx context.Context, req UpdateUserRequest) (User, error) {
	env, err := g.call(ctx, http.MethodPost, "/user/update", req)
	if err != nil {
		return User{}, err
	}
	if env.User == nil {
		return User{}, fmt.Errorf("portal api: response missing user")
	}
	return *env.User, nil
}

// CreateCompany registers a company, or returns the existing one.
func (g *Gateway) CreateCompany(ctx context.Context, req CreateCompanyRequest) (CreateCompanyResult, error) {
	env, err := g.call(ctx, http.MethodPost, "/company/create", req)
	if err != nil {
		return CreateCompanyResult{}, err
	}
	if env.Company == nil {
		return CreateCompanyResult{}, fmt.Errorf("portal api: response missing company")
	}
	return CreateCompanyResult{Company: *env.Company, AlreadyExists: env.AlreadyExists}, nil
}

// SearchCompanies lists companies whose name contains query.
func (g *Gateway) SearchCompanies(ctx context.Context, query string) ([]Company, error) {
	env, err := g.call(ctx, http.MethodPost, "/company/search", map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	return env.Companies, nil
}

// EnrichCompany refreshes a company from the business-data provider.
func (g *Gateway) EnrichCompany(ctx context.Context, req EnrichCompanyRequest) (Company, error) {
	env, err := g.call(ctx, http.MethodPost, "/company/enrich", req)
	if err != nil {
		return Company{}, err
	}
	if env.Company == nil {
		return Company{}, fmt.Errorf("portal api: response missing company")
	}
	return *env.Company, nil
}

// call performs one request. The request is sent even when the token source
// fails; the server decides whether an anonymous call is acceptable.
func (g *Gateway) call(ctx context.Context, method, path string, body any) (envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return envelope{}, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return envelope{}, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := g.tokens.Token(ctx)
	if err != nil {
		g.logger.Warn("token source failed, sending request without credential", zap.Error(err))
	} else if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("portal api: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Auth failures are terminal for the current credential; the gateway
		// never retries them.
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			g.logger.Warn("request rejected",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.String("error", env.Error),
			)
		}
		return envelope{}, &APIError{StatusCode: resp.StatusCode, Message: env.Error, Details: env.Details}
	}

	return env, nil
}
