package handler

import (
	"strconv"
	"time"

	"github.com/crewbook/portal/internal/domain"
	"github.com/crewbook/portal/internal/service"
)

// Snowflake ids travel as strings so they survive JSON number precision.

type companyView struct {
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

type userView struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name,omitempty"`
	PhotoURL  string       `json:"photoUrl,omitempty"`
	Title     string       `json:"title,omitempty"`
	CompanyID string       `json:"companyId,omitempty"`
	Division  string       `json:"division,omitempty"`
	Unit      string       `json:"unit,omitempty"`
	Company   *companyView `json:"company,omitempty"`
}

func companyToView(company domain.Company) companyView {
	return companyView{
		ID:            strconv.FormatInt(company.ID, 10),
		Name:          company.Name,
		Domain:        company.Domain,
		Industry:      company.Industry,
		Size:          company.Size,
		LogoURL:       company.LogoURL,
		ApolloID:      company.ApolloID,
		Website:       company.Website,
		LinkedinURL:   company.LinkedinURL,
		Description:   company.Description,
		SubIndustry:   company.SubIndustry,
		CompanyType:   company.CompanyType,
		EmployeeCount: company.EmployeeCount,
		EmployeeRange: company.EmployeeRange,
		FoundedYear:   company.FoundedYear,
		Revenue:       company.Revenue,
		HQCity:        company.HQCity,
		HQState:       company.HQState,
		HQCountry:     company.HQCountry,
		Phone:         company.Phone,
		TwitterURL:    company.TwitterURL,
		FacebookURL:   company.FacebookURL,
		EnrichedAt:    company.EnrichedAt,
	}
}

func profileToView(profile service.UserProfile) userView {
	view := userView{
		ID:       strconv.FormatInt(profile.User.ID, 10),
		Email:    profile.User.Email,
		Name:     profile.User.Name,
		PhotoURL: profile.User.PhotoURL,
		Title:    profile.User.Title,
		Division: profile.User.Division,
		Unit:     profile.User.Unit,
	}
	if profile.User.CompanyID != nil {
		view.CompanyID = strconv.FormatInt(*profile.User.CompanyID, 10)
	}
	if profile.Company != nil {
		company := companyToView(*profile.Company)
		view.Company = &company
	}
	return view
}
