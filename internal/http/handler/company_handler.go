package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crewbook/portal/internal/adapter/apollo"
	"github.com/crewbook/portal/internal/domain"
	"github.com/crewbook/portal/internal/service"
)

// CompanyHandler serves the company directory endpoints.
type CompanyHandler struct {
	companies *service.CompanyService
	logger    *zap.Logger
}

func NewCompanyHandler(companies *service.CompanyService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, logger: logger}
}

type createCompanyRequest struct {
	Name   string `json:"name" binding:"required"`
	Domain string `json:"domain"`
}

// Create registers a company, returning the existing record when the name or
// domain is already taken.
func (h *CompanyHandler) Create(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	company, alreadyExists, err := h.companies.Create(c.Request.Context(), req.Name, req.Domain)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"company":       companyToView(company),
		"alreadyExists": alreadyExists,
	})
}

type searchCompanyRequest struct {
	Query string `json:"query" binding:"required"`
}

// Search lists companies whose name contains the query.
func (h *CompanyHandler) Search(c *gin.Context) {
	var req searchCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	companies, err := h.companies.Search(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	views := make([]companyView, 0, len(companies))
	for _, company := range companies {
		views = append(views, companyToView(company))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "companies": views})
}

type enrichCompanyRequest struct {
	CompanyID   string `json:"companyId"`
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	LinkedinURL string `json:"linkedinUrl"`
}

// Enrich refreshes a company from the business-data provider. Callers pass
// either a companyId or lookup keys for a company that may not exist yet.
func (h *CompanyHandler) Enrich(c *gin.Context) {
	var req enrichCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var (
		company domain.Company
		err     error
	)
	if req.CompanyID != "" {
		var id int64
		id, err = strconv.ParseInt(req.CompanyID, 10, 64)
		if err != nil {
			respondError(c, h.logger, domain.NewValidationError("companyId must be a numeric id"))
			return
		}
		company, err = h.companies.EnrichByID(c.Request.Context(), id)
	} else {
		company, err = h.companies.EnrichByLookup(c.Request.Context(), apollo.Lookup{
			Name:        req.Name,
			Domain:      req.Domain,
			LinkedinURL: req.LinkedinURL,
		})
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "company": companyToView(company)})
}
