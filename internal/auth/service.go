// File: internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"strings"

	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/email"
	"launchpad_backend/internal/firebase"
	"launchpad_backend/internal/user"

	"go.uber.org/zap"
)

type Service interface {
	SignUp(ctx context.Context, req SignUpRequest) (*user.User, *firebase.Session, error)
	SignIn(ctx context.Context, req LoginRequest) (*user.User, *firebase.Session, error)
	SignOut(ctx context.Context, firebaseUID string) error
}

type ServiceImplementation struct {
	identity  firebase.IdentityProvider
	users     user.Service
	blocklist SessionBlocklist
	mailer    email.Sender
	clock     clock.Clock
	cfg       *config.Config
	logger    *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

func NewService(
	identity firebase.IdentityProvider,
	users user.Service,
	blocklist SessionBlocklist,
	mailer email.Sender,
	clk clock.Clock,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		identity:  identity,
		users:     users,
		blocklist: blocklist,
		mailer:    mailer,
		clock:     clk,
		cfg:       cfg,
		logger:    logger.Named("auth_service"),
	}
}

// SignUp creates the identity first, then the account record. If the record
// cannot be stored the identity is deleted again.
func (s *ServiceImplementation) SignUp(ctx context.Context, req SignUpRequest) (*user.User, *firebase.Session, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, nil, common.ErrConflict.WithDetails("This username is already taken.")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, nil, err
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	subject, err := s.identity.SignUp(ctx, emailAddr, req.Password, strings.TrimSpace(req.DisplayName))
	if err != nil {
		return nil, nil, err
	}

	u, err := s.users.Register(ctx, user.RegisterParams{
		FirebaseUID: subject,
		Username:    username,
		Email:       emailAddr,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		if delErr := s.identity.DeleteAccount(ctx, subject); delErr != nil {
			s.logger.Error("Failed to roll back identity after signup failure",
				zap.Error(delErr), zap.String("subject", subject))
		}
		return nil, nil, err
	}

	s.mailer.Send(u.Email, email.TemplateWelcome, email.WelcomeData{
		Name:    u.DisplayName,
		SiteURL: s.cfg.PublicBaseURL,
	})

	session, err := s.identity.SignIn(ctx, emailAddr, req.Password)
	if err != nil {
		// The account exists; the client can sign in separately.
		s.logger.Warn("Sign-in after signup failed", zap.Error(err), zap.String("userID", u.ID.String()))
		return u, nil, nil
	}
	return u, session, nil
}

func (s *ServiceImplementation) SignIn(ctx context.Context, req LoginRequest) (*user.User, *firebase.Session, error) {
	session, err := s.identity.SignIn(ctx, strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.users.GetByFirebaseUID(ctx, session.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrUnauthorized.WithDetails("No account is registered for this identity.")
		}
		return nil, nil, err
	}
	return u, session, nil
}

// SignOut revokes the subject's refresh tokens and refuses its outstanding ID tokens.
func (s *ServiceImplementation) SignOut(ctx context.Context, firebaseUID string) error {
	if firebaseUID == "" {
		return common.ErrUnauthorized
	}
	if err := s.identity.RevokeSessions(ctx, firebaseUID); err != nil {
		s.logger.Error("Failed to revoke sessions", zap.Error(err), zap.String("subject", firebaseUID))
		return common.ErrServiceUnavailable.WithDetails("Could not sign out. Please try again.")
	}
	s.blocklist.Revoke(firebaseUID, s.clock.Now())
	return nil
}
