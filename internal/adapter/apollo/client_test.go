package apollo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crewbook/portal/internal/adapter/apollo"
	"github.com/crewbook/portal/internal/domain"
)

const fixtureResponse = `{
  "organizations": [{
    "id": "apollo-123",
    "name": "Acme Corp",
    "primary_domain": "acme.io",
    "website_url": "https://acme.io",
    "linkedin_url": "https://linkedin.com/company/acme",
    "short_description": "Widgets at scale",
    "logo": "https://cdn/acme.png",
    "industry": "Manufacturing",
    "sub_industry": "Widgets",
    "type": "private",
    "estimated_num_employees": 420,
    "employee_range": "201-500",
    "founded_year": 1991,
    "revenue": "$50M",
    "location": {"city": "Portland", "state": "OR", "country": "US"},
    "phone_number": "+1 555 0100",
    "twitter": "https://twitter.com/acme",
    "facebook_url": "https://facebook.com/acme"
  }]
}`

func TestFetchCompanyMapsProviderFields(t *testing.T) {
	var gotBody map[string]any
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(fixtureResponse))
	}))
	defer srv.Close()

	client := apollo.NewHTTPClient(srv.Client(), srv.URL, "secret-key", 600)
	e, err := client.FetchCompany(context.Background(), apollo.Lookup{Domain: "acme.io"})
	require.NoError(t, err)

	require.Equal(t, "secret-key", gotKey)
	require.Equal(t, "domain:acme.io", gotBody["q_keywords"])
	require.EqualValues(t, 1, gotBody["per_page"])

	require.Equal(t, "apollo-123", e.ApolloID)
	require.Equal(t, "Acme Corp", e.Name)
	require.Equal(t, "acme.io", e.Domain)
	require.Equal(t, "https://acme.io", e.Website)
	require.Equal(t, "Widgets at scale", e.Description)
	require.Equal(t, "https://cdn/acme.png", e.LogoURL)
	require.Equal(t, "Manufacturing", e.Industry)
	require.Equal(t, "private", e.CompanyType)
	require.NotNil(t, e.EmployeeCount)
	require.Equal(t, 420, *e.EmployeeCount)
	require.NotNil(t, e.FoundedYear)
	require.Equal(t, 1991, *e.FoundedYear)
	require.Equal(t, "Portland", e.HQCity)
	require.Equal(t, "OR", e.HQState)
	require.Equal(t, "US", e.HQCountry)
	require.Equal(t, "+1 555 0100", e.Phone)
	require.Equal(t, "https://twitter.com/acme", e.TwitterURL)
}

func TestFetchCompanyQueryPriority(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery, _ = body["q_keywords"].(string)
		_, _ = w.Write([]byte(fixtureResponse))
	}))
	defer srv.Close()

	client := apollo.NewHTTPClient(srv.Client(), srv.URL, "k", 600)
	ctx := context.Background()

	_, err := client.FetchCompany(ctx, apollo.Lookup{Name: "Acme", Domain: "acme.io", LinkedinURL: "https://linkedin.com/company/acme"})
	require.NoError(t, err)
	require.Equal(t, "domain:acme.io", gotQuery)

	_, err = client.FetchCompany(ctx, apollo.Lookup{Name: "Acme", LinkedinURL: "https://linkedin.com/company/acme"})
	require.NoError(t, err)
	require.Equal(t, "linkedin_url:https://linkedin.com/company/acme", gotQuery)

	_, err = client.FetchCompany(ctx, apollo.Lookup{Name: "Acme"})
	require.NoError(t, err)
	require.Equal(t, `name:"Acme"`, gotQuery)
}

func TestFetchCompanyNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"organizations": []}`))
	}))
	defer srv.Close()

	client := apollo.NewHTTPClient(srv.Client(), srv.URL, "k", 600)
	_, err := client.FetchCompany(context.Background(), apollo.Lookup{Name: "Nobody"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchCompanyProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := apollo.NewHTTPClient(srv.Client(), srv.URL, "k", 600)
	_, err := client.FetchCompany(context.Background(), apollo.Lookup{Name: "Acme"})
	require.ErrorIs(t, err, domain.ErrProvider)
}

func TestFetchCompanyMissingKey(t *testing.T) {
	client := apollo.NewHTTPClient(nil, "https://api.invalid", "", 600)
	require.False(t, client.Configured())

	_, err := client.FetchCompany(context.Background(), apollo.Lookup{Name: "Acme"})
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestFetchCompanyEmptyLookup(t *testing.T) {
	client := apollo.NewHTTPClient(nil, "https://api.invalid", "k", 600)
	var verr *domain.ValidationError
	_, err := client.FetchCompany(context.Background(), apollo.Lookup{})
	require.ErrorAs(t, err, &verr)
}
