package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/crewbook/portal/internal/domain"
	"github.com/crewbook/portal/internal/repository"
)

// UserProfile is a user joined with its company reference, the shape
// returned by every user endpoint.
type UserProfile struct {
	User    domain.User
	Company *domain.Company
}

// UpsertUserInput is the payload for session hydration upserts.
type UpsertUserInput struct {
	FirebaseID  string
	Email       string
	DisplayName string
	PhotoURL    string
}

// UserService implements directory user operations.
type UserService struct {
	users     repository.UserRepository
	companies repository.CompanyRepository
	snowflake *snowflake.Node
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewUserService wires dependencies.
func NewUserService(users repository.UserRepository, companies repository.CompanyRepository, node *snowflake.Node, logger *zap.Logger) *UserService {
	return &UserService{
		users:     users,
		companies: companies,
		snowflake: node,
		logger:    logger,
		tracer:    otel.Tracer("internal/service"),
	}
}

// Upsert creates or refreshes the directory record for a verified subject.
// The body's firebase id must match the credential's subject: anyone may
// hydrate only their own record.
func (s *UserService) Upsert(ctx context.Context, subject string, input UpsertUserInput) (UserProfile, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Upsert")
	defer span.End()

	var details []string
	if strings.TrimSpace(input.FirebaseID) == "" {
		details = append(details, "firebaseId is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		details = append(details, "email is required")
	}
	if len(details) > 0 {
		return UserProfile{}, domain.NewValidationError(details...)
	}

	if input.FirebaseID != subject {
		s.logger.Warn("upsert subject mismatch",
			zap.String("subject", subject),
			zap.String("body_firebase_id", input.FirebaseID))
		return UserProfile{}, fmt.Errorf("upsert user: %w", domain.ErrForbidden)
	}

	user, err := s.users.Upsert(ctx, domain.User{
		ID:         s.snowflake.Generate().Int64(),
		FirebaseID: input.FirebaseID,
		Email:      input.Email,
		Name:       input.DisplayName,
		PhotoURL:   input.PhotoURL,
	})
	if err != nil {
		return UserProfile{}, err
	}

	return s.withCompany(ctx, user)
}

// Get loads the directory record for a verified subject.
func (s *UserService) Get(ctx context.Context, subject string) (UserProfile, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Get")
	defer span.End()

	user, err := s.users.GetByFirebaseID(ctx, subject)
	if err != nil {
		return UserProfile{}, err
	}
	return s.withCompany(ctx, user)
}

// Update applies a partial profile patch to the subject's record. Fields not
// present in the patch are left untouched.
func (s *UserService) Update(ctx context.Context, subject string, patch domain.UserPatch) (UserProfile, error) {
	ctx, span := s.tracer.Start(ctx, "UserService.Update")
	defer span.End()

	if patch.CompanyID != nil && !patch.ClearCompany {
		if _, err := s.companies.GetByID(ctx, *patch.CompanyID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return UserProfile{}, domain.NewValidationError("companyId does not reference an existing company")
			}
			return UserProfile{}, err
		}
	}

	user, err := s.users.Update(ctx, subject, patch)
	if err != nil {
		return UserProfile{}, err
	}
	return s.withCompany(ctx, user)
}

// withCompany attaches the company reference when one is set. A dangling
// reference degrades to a nil company rather than failing the user read.
func (s *UserService) withCompany(ctx context.Context, user domain.User) (UserProfile, error) {
	profile := UserProfile{User: user}
	if user.CompanyID == nil {
		return profile, nil
	}

	company, err := s.companies.GetByID(ctx, *user.CompanyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("user references missing company",
				zap.Int64("user_id", user.ID),
				zap.Int64("company_id", *user.CompanyID))
			return profile, nil
		}
		return UserProfile{}, err
	}
	profile.Company = &company
	return profile, nil
}
