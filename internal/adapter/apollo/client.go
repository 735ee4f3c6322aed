// Package apollo implements the outbound company-data provider client.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/crewbook/portal/internal/domain"
)

// Lookup identifies a company to the provider. At least one field is
// required; domain wins over linkedin URL, which wins over name.
type Lookup struct {
	Name        string
	Domain      string
	LinkedinURL string
}

// Empty reports whether no lookup key was supplied.
func (l Lookup) Empty() bool {
	return strings.TrimSpace(l.Name) == "" &&
		strings.TrimSpace(l.Domain) == "" &&
		strings.TrimSpace(l.LinkedinURL) == ""
}

// Client performs a one-shot company lookup against the provider.
type Client interface {
	// FetchCompany returns the mapped enrichment record,
	// domain.ErrNotFound when the provider has no match, or a
	// domain.ErrProvider-wrapped error on any provider failure.
	FetchCompany(ctx context.Context, lookup Lookup) (domain.Enrichment, error)
	// Configured reports whether provider credentials are present.
	Configured() bool
}

// HTTPClient is the default HTTP implementation.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs the default provider client. The limiter keeps
// outbound calls inside the provider's quota.
func NewHTTPClient(client *http.Client, baseURL, apiKey string, requestsPerMinute int) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &HTTPClient{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

// Configured reports whether an API key is present.
func (c *HTTPClient) Configured() bool {
	return c.apiKey != ""
}

// FetchCompany queries the provider's mixed company search for the single
// best match and maps it into the Company enrichment schema.
func (c *HTTPClient) FetchCompany(ctx context.Context, lookup Lookup) (domain.Enrichment, error) {
	if !c.Configured() {
		return domain.Enrichment{}, fmt.Errorf("fetch company: %w", domain.ErrConfiguration)
	}
	query, err := searchQuery(lookup)
	if err != nil {
		return domain.Enrichment{}, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Enrichment{}, fmt.Errorf("throttle provider call: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"q_keywords": query,
		"page":       1,
		"per_page":   1,
	})
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("encode provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mixed_companies/search", bytes.NewReader(payload))
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("%w: read response: %v", domain.ErrProvider, err)
	}
	if resp.StatusCode >= 300 {
		return domain.Enrichment{}, fmt.Errorf("%w: status=%d", domain.ErrProvider, resp.StatusCode)
	}

	var raw struct {
		Organizations []map[string]any `json:"organizations"`
		Companies     []map[string]any `json:"companies"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Enrichment{}, fmt.Errorf("%w: decode response: %v", domain.ErrProvider, err)
	}

	records := raw.Organizations
	if len(records) == 0 {
		records = raw.Companies
	}
	if len(records) == 0 {
		return domain.Enrichment{}, fmt.Errorf("fetch company: %w", domain.ErrNotFound)
	}

	return mapRecord(records[0]), nil
}

func searchQuery(lookup Lookup) (string, error) {
	switch {
	case strings.TrimSpace(lookup.Domain) != "":
		return "domain:" + strings.TrimSpace(lookup.Domain), nil
	case strings.TrimSpace(lookup.LinkedinURL) != "":
		return "linkedin_url:" + strings.TrimSpace(lookup.LinkedinURL), nil
	case strings.TrimSpace(lookup.Name) != "":
		return fmt.Sprintf("name:%q", strings.TrimSpace(lookup.Name)), nil
	}
	return "", domain.NewValidationError("name, domain, or linkedinUrl is required")
}

// mapRecord maps a provider organization into the enrichment schema. The
// provider serves several payload variants, hence the fallback chains.
func mapRecord(record map[string]any) domain.Enrichment {
	e := domain.Enrichment{
		ApolloID:      stringValue(coalesce(record["id"], record["apollo_id"])),
		Name:          stringValue(record["name"]),
		Domain:        stringValue(coalesce(record["primary_domain"], record["domain"])),
		Website:       stringValue(coalesce(record["website_url"], record["website"])),
		LinkedinURL:   stringValue(record["linkedin_url"]),
		Description:   stringValue(coalesce(record["description"], record["short_description"])),
		LogoURL:       stringValue(coalesce(record["logo_url"], record["logo"])),
		Industry:      stringValue(coalesce(record["industry"], record["industry_tag"])),
		SubIndustry:   stringValue(record["sub_industry"]),
		CompanyType:   stringValue(coalesce(record["type"], record["company_type"])),
		EmployeeRange: stringValue(record["employee_range"]),
		Revenue:       stringValue(record["revenue"]),
		Phone:         stringValue(coalesce(record["phone"], record["phone_number"])),
		TwitterURL:    stringValue(coalesce(record["twitter_url"], record["twitter"])),
		FacebookURL:   stringValue(coalesce(record["facebook_url"], record["facebook"])),
	}

	if count, ok := intValue(coalesce(record["estimated_num_employees"], record["num_employees"])); ok {
		e.EmployeeCount = &count
	}
	if year, ok := intValue(record["founded_year"]); ok {
		e.FoundedYear = &year
	}

	location, ok := record["organization_raw_address"].(map[string]any)
	if !ok {
		location, _ = record["location"].(map[string]any)
	}
	if location != nil {
		e.HQCity = stringValue(location["city"])
		e.HQState = stringValue(location["state"])
		e.HQCountry = stringValue(location["country"])
	}

	return e
}

func stringValue(input any) string {
	switch v := input.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func intValue(input any) (int, bool) {
	switch v := input.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

func coalesce(values ...any) any {
	for _, v := range values {
		switch val := v.(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				return v
			}
		case nil:
			continue
		default:
			return v
		}
	}
	return nil
}
