package domain

import "time"

// Company represents a directory company. Name is unique under
// case-insensitive comparison; Domain and ApolloID are unique when set.
type Company struct {
	ID       int64
	Name     string
	Domain   string
	Industry string
	Size     string
	LogoURL  string

	// Enrichment fields populated from the business-data provider.
	ApolloID      string
	Website       string
	LinkedinURL   string
	Description   string
	SubIndustry   string
	CompanyType   string
	EmployeeCount *int
	EmployeeRange string
	FoundedYear   *int
	Revenue       string
	HQCity        string
	HQState       string
	HQCountry     string
	Phone         string
	TwitterURL    string
	FacebookURL   string
	EnrichedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Enrichment is the provider-supplied field set applied to a Company during
// enrichment. Zero-valued pointer fields map to NULL columns.
type Enrichment struct {
	ApolloID      string
	Name          string
	Domain        string
	Website       string
	LinkedinURL   string
	Description   string
	LogoURL       string
	Industry      string
	SubIndustry   string
	CompanyType   string
	EmployeeCount *int
	EmployeeRange string
	FoundedYear   *int
	Revenue       string
	HQCity        string
	HQState       string
	HQCountry     string
	Phone         string
	TwitterURL    string
	FacebookURL   string
}
