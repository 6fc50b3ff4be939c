package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
)

// Identity is what a verified ID token says about its bearer.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Session is returned by a successful password sign-in.
type Session struct {
	Subject      string `json:"subject"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IdentityProvider is the boundary to the managed authentication service.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, displayName string) (string, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
	RevokeSessions(ctx context.Context, subject string) error
	DeleteAccount(ctx context.Context, subject string) error
	SetRoleClaim(ctx context.Context, subject, role string) error
}

// FirebaseService implements IdentityProvider with the Firebase Admin SDK
// and the Identity Toolkit REST API for password sign-in.
type FirebaseService struct {
	authClient *auth.Client
	toolkit    *identitytoolkit.Service
	logger     *zap.Logger
}

var _ IdentityProvider = (*FirebaseService)(nil)

// NewFirebaseService initializes the Firebase Admin SDK once for the process.
func NewFirebaseService(cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	if cfg.FirebaseServiceAccountKeyPath == "" {
		return nil, fmt.Errorf("firebase service account key path is required")
	}
	ctx := context.Background()
	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsFile(cleanPath))
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	var toolkit *identitytoolkit.Service
	if cfg.FirebaseWebAPIKey != "" {
		toolkit, err = identitytoolkit.NewService(ctx, option.WithAPIKey(cfg.FirebaseWebAPIKey))
		if err != nil {
			return nil, fmt.Errorf("error creating identity toolkit client: %w", err)
		}
	} else {
		logger.Warn("FIREBASE_WEB_API_KEY not set; password sign-in endpoint is disabled")
	}

	logger.Info("Firebase Admin SDK initialized")
	return &FirebaseService{
		authClient: authClient,
		toolkit:    toolkit,
		logger:     logger.Named("firebase"),
	}, nil
}

// SignUp creates an identity account and returns its subject id.
func (s *FirebaseService) SignUp(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName).
		EmailVerified(false)

	record, err := s.authClient.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", common.ErrConflict.WithDetails("An account with this email already exists.")
		}
		return "", fmt.Errorf("firebase create user: %w", err)
	}
	return record.UID, nil
}

// SignIn exchanges email and password for an ID token.
func (s *FirebaseService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if s.toolkit == nil {
		return nil, common.ErrServiceUnavailable.WithDetails("Password sign-in is not configured.")
	}
	resp, err := s.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && gErr.Code == http.StatusBadRequest {
			return nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
		}
		return nil, fmt.Errorf("identity toolkit verify password: %w", err)
	}
	return &Session{
		Subject:      resp.LocalId,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

// VerifyIDToken verifies a Firebase ID token.
func (s *FirebaseService) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	if idToken == "" {
		return nil, common.ErrUnauthorized.WithDetails("ID token must not be empty.")
	}
	token, err := s.authClient.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Debug("Firebase ID token verification failed", zap.Error(err))
		return nil, common.ErrUnauthorized.WithDetails("Invalid or expired ID token.")
	}
	return identityFromToken(token), nil
}

func identityFromToken(token *auth.Token) *Identity {
	id := &Identity{
		Subject:   token.UID,
		IssuedAt:  time.Unix(token.IssuedAt, 0).UTC(),
		ExpiresAt: time.Unix(token.Expires, 0).UTC(),
	}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		id.EmailVerified = verified
	}
	return id
}

// RevokeSessions revokes all refresh tokens for a subject.
func (s *FirebaseService) RevokeSessions(ctx context.Context, subject string) error {
	if err := s.authClient.RevokeRefreshTokens(ctx, subject); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

func (s *FirebaseService) DeleteAccount(ctx context.Context, subject string) error {
	if err := s.authClient.DeleteUser(ctx, subject); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("firebase delete user: %w", err)
	}
	return nil
}

// SetRoleClaim mirrors the stored role into the token's custom claims so
// clients can gate their UI without another round trip.
func (s *FirebaseService) SetRoleClaim(ctx context.Context, subject, role string) error {
	if err := s.authClient.SetCustomUserClaims(ctx, subject, map[string]interface{}{"role": role}); err != nil {
		return fmt.Errorf("firebase set custom claims: %w", err)
	}
	return nil
}
