// File: internal/middleware/auth.go
package middleware

import (
	"context"
	"errors"

	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/firebase"
	"launchpad_backend/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccountLookup resolves a verified identity to its account.
type AccountLookup interface {
	GetByFirebaseUID(ctx context.Context, firebaseUID string) (*user.User, error)
}

// Authenticator verifies Firebase ID tokens and loads the caller's account.
type Authenticator struct {
	identity  firebase.IdentityProvider
	accounts  AccountLookup
	blocklist auth.SessionBlocklist
	logger    *zap.Logger
}

func NewAuthenticator(identity firebase.IdentityProvider, accounts AccountLookup, blocklist auth.SessionBlocklist, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		identity:  identity,
		accounts:  accounts,
		blocklist: blocklist,
		logger:    logger.Named("auth_middleware"),
	}
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := common.GetTokenFromContext(c)
		if token == "" {
			if c.GetHeader(common.AuthorizationHeader) == "" {
				common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			} else {
				common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			}
			return
		}
		if err := a.authenticate(c, token); err != nil {
			common.RespondWithError(c, err)
			return
		}
		c.Next()
	}
}

// Optional identifies the caller when a token is present and lets anonymous
// requests through. A malformed or invalid token is still rejected.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(common.AuthorizationHeader) == "" {
			c.Next()
			return
		}
		token := common.GetTokenFromContext(c)
		if token == "" {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}
		if err := a.authenticate(c, token); err != nil {
			common.RespondWithError(c, err)
			return
		}
		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context, token string) error {
	ctx := c.Request.Context()
	identity, err := a.identity.VerifyIDToken(ctx, token)
	if err != nil {
		a.logger.Debug("Token verification failed", zap.Error(err))
		if _, ok := common.IsAPIError(err); ok {
			return err
		}
		return common.ErrUnauthorized.WithDetails("Invalid or expired ID token.")
	}
	if a.blocklist.IsRevoked(identity.Subject, identity.IssuedAt) {
		return common.ErrUnauthorized.WithDetails("This session has been signed out.")
	}

	account, err := a.accounts.GetByFirebaseUID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUnauthorized.WithDetails("No account is registered for this identity.")
		}
		a.logger.Error("Failed to load account for token", zap.Error(err))
		return common.ErrInternalServer
	}

	c.Set(common.UserIDKey, account.ID)
	c.Set(common.UserEmailKey, account.Email)
	c.Set(common.UserRoleKey, account.Role)
	c.Set(common.FirebaseUIDKey, identity.Subject)
	c.Set(common.TokenIssuedAtKey, identity.IssuedAt)
	return nil
}

// RoleAuthMiddleware creates a middleware to check if the authenticated user has one of the required roles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		if userRole == "" {
			common.RespondWithError(c, common.ErrUnauthorized)
			return
		}
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}

// AdminOnly admits admins.
func AdminOnly() gin.HandlerFunc {
	return RoleAuthMiddleware(common.RoleAdmin)
}
