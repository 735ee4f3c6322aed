package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crewbook/portal/internal/domain"
	"github.com/crewbook/portal/internal/http/middleware"
	"github.com/crewbook/portal/internal/service"
)

// UserHandler serves the profile endpoints.
type UserHandler struct {
	users  *service.UserService
	logger *zap.Logger
}

func NewUserHandler(users *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type upsertUserRequest struct {
	FirebaseID  string `json:"firebaseId" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

// Upsert creates or refreshes the caller's profile on sign-in.
func (h *UserHandler) Upsert(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthorized)
		return
	}

	var req upsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	profile, err := h.users.Upsert(c.Request.Context(), claims.Subject, service.UpsertUserInput{
		FirebaseID:  req.FirebaseID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": profileToView(profile)})
}

// Get returns the caller's profile with its company attached.
func (h *UserHandler) Get(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthorized)
		return
	}

	profile, err := h.users.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": profileToView(profile)})
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Title    *string `json:"title"`
	PhotoURL *string `json:"photoUrl"`
	// CompanyID is a string snowflake id; an explicit empty string detaches
	// the user from its company.
	CompanyID *string `json:"companyId"`
	Division  *string `json:"division"`
	Unit      *string `json:"unit"`
}

// Update applies a partial profile edit.
func (h *UserHandler) Update(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		respondError(c, h.logger, domain.ErrUnauthorized)
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	patch := domain.UserPatch{
		Name:     req.Name,
		Title:    req.Title,
		PhotoURL: req.PhotoURL,
		Division: req.Division,
		Unit:     req.Unit,
	}
	if req.CompanyID != nil {
		if *req.CompanyID == "" {
			patch.ClearCompany = true
		} else {
			id, err := strconv.ParseInt(*req.CompanyID, 10, 64)
			if err != nil {
				respondError(c, h.logger, domain.NewValidationError("companyId must be a numeric id"))
				return
			}
			patch.CompanyID = &id
		}
	}

	profile, err := h.users.Update(c.Request.Context(), claims.Subject, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": profileToView(profile)})
}
