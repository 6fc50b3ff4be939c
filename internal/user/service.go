package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/firebase"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the account use-case boundary.
type Service interface {
	Register(ctx context.Context, params RegisterParams) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*User, error)
	ChangeRole(ctx context.Context, actor *common.Actor, targetID uuid.UUID, role string) (*User, error)
	Delete(ctx context.Context, actor *common.Actor, targetID uuid.UUID) error
	GrantAdmin(ctx context.Context, email string) (*User, error)
}

// ProductIndexRemover drops deleted products from the search index.
type ProductIndexRemover interface {
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// LogoRemover deletes stored product logos.
type LogoRemover interface {
	DeleteByURL(ctx context.Context, url string) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo     Repository
	identity firebase.IdentityProvider
	authz    authz.Authorizer
	index    ProductIndexRemover
	logos    LogoRemover
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new user service.
func NewService(
	repo Repository,
	identity firebase.IdentityProvider,
	authorizer authz.Authorizer,
	index ProductIndexRemover,
	logos LogoRemover,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		identity: identity,
		authz:    authorizer,
		index:    index,
		logos:    logos,
		logger:   logger.Named("user_service"),
	}
}

// Register stores the account record for an identity that already exists.
func (s *ServiceImplementation) Register(ctx context.Context, params RegisterParams) (*User, error) {
	username := strings.ToLower(strings.TrimSpace(params.Username))
	if !common.IsValidUsername(username) {
		return nil, common.NewValidationAPIError(map[string]string{
			"Username": "The username field must be 3-30 lowercase letters, digits or underscores.",
		})
	}
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		displayName = username
	}

	u := &User{
		FirebaseUID:   params.FirebaseUID,
		Username:      username,
		Email:         params.Email,
		Role:          common.RoleUser,
		DisplayName:   displayName,
		EmailVerified: params.EmailVerified,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("User registered", zap.String("userID", u.ID.String()), zap.String("username", u.Username))
	return u, nil
}

func (s *ServiceImplementation) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ServiceImplementation) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error) {
	return s.repo.FindByFirebaseUID(ctx, firebaseUID)
}

func (s *ServiceImplementation) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// UpdateProfile applies the non-nil fields of req. Empty strings clear optional fields.
func (s *ServiceImplementation) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*User, error) {
	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	setOptional := func(column string, v *string) {
		if v == nil {
			return
		}
		if trimmed := strings.TrimSpace(*v); trimmed != "" {
			updates[column] = trimmed
		} else {
			updates[column] = nil
		}
	}
	setOptional("bio", req.Bio)
	setOptional("website", req.Website)
	setOptional("twitter", req.Twitter)
	setOptional("avatar", req.Avatar)

	if len(updates) == 0 {
		return s.repo.FindByID(ctx, id)
	}
	return s.repo.UpdateFields(ctx, id, updates)
}

// ChangeRole promotes or demotes an account. Admins cannot demote themselves.
func (s *ServiceImplementation) ChangeRole(ctx context.Context, actor *common.Actor, targetID uuid.UUID, role string) (*User, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectUser, authz.ActionChangeRole); err != nil {
		return nil, err
	}
	if !common.IsValidUserRole(role) {
		return nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("Unknown role %q.", role))
	}
	if actor.Owns(targetID) && role != common.RoleAdmin {
		return nil, common.ErrConflict.WithDetails("Admins cannot remove their own admin role.")
	}
	return s.setRole(ctx, targetID, role)
}

// GrantAdmin promotes the account with the given email. It is an operator
// action with no request actor and is only reachable from the CLI.
func (s *ServiceImplementation) GrantAdmin(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.setRole(ctx, u.ID, common.RoleAdmin)
}

func (s *ServiceImplementation) setRole(ctx context.Context, id uuid.UUID, role string) (*User, error) {
	u, err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"role": role})
	if err != nil {
		return nil, err
	}
	if err := s.identity.SetRoleClaim(ctx, u.FirebaseUID, role); err != nil {
		s.logger.Warn("Failed to mirror role into identity claims", zap.Error(err), zap.String("userID", id.String()))
	}
	s.logger.Info("User role changed", zap.String("userID", id.String()), zap.String("role", role))
	return u, nil
}

// Delete removes an account, its products and its identity record.
func (s *ServiceImplementation) Delete(ctx context.Context, actor *common.Actor, targetID uuid.UUID) error {
	if actor == nil {
		return common.ErrUnauthorized
	}
	if !actor.Owns(targetID) {
		if err := s.authz.Authorize(ctx, actor, authz.ObjectUser, authz.ActionDeleteAny); err != nil {
			return err
		}
	}

	u, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.identity.DeleteAccount(ctx, u.FirebaseUID); err != nil {
		// The store record is gone; a dangling identity can no longer reach any data.
		s.logger.Error("Failed to delete identity account", zap.Error(err), zap.String("userID", targetID.String()))
	}
	for _, p := range removed {
		if s.index != nil {
			if err := s.index.DeleteProduct(ctx, p.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
				s.logger.Warn("Failed to remove product from search index", zap.Error(err), zap.String("productID", p.ID.String()))
			}
		}
		if s.logos != nil && p.Logo != nil && *p.Logo != "" {
			if err := s.logos.DeleteByURL(ctx, *p.Logo); err != nil {
				s.logger.Warn("Failed to delete product logo", zap.Error(err), zap.String("productID", p.ID.String()))
			}
		}
	}
	s.logger.Info("User deleted", zap.String("userID", targetID.String()), zap.Int("products_removed", len(removed)))
	return nil
}
