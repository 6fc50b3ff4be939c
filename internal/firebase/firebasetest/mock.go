// Package firebasetest provides a testify mock of firebase.IdentityProvider.
package firebasetest

import (
	"context"

	"launchpad_backend/internal/firebase"

	"github.com/stretchr/testify/mock"
)

type MockIdentityProvider struct {
	mock.Mock
}

var _ firebase.IdentityProvider = (*MockIdentityProvider)(nil)

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password, displayName string) (string, error) {
	args := m.Called(ctx, email, password, displayName)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*firebase.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firebase.Session), args.Error(1)
}

func (m *MockIdentityProvider) VerifyIDToken(ctx context.Context, idToken string) (*firebase.Identity, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firebase.Identity), args.Error(1)
}

func (m *MockIdentityProvider) RevokeSessions(ctx context.Context, subject string) error {
	return m.Called(ctx, subject).Error(0)
}

func (m *MockIdentityProvider) DeleteAccount(ctx context.Context, subject string) error {
	return m.Called(ctx, subject).Error(0)
}

func (m *MockIdentityProvider) SetRoleClaim(ctx context.Context, subject, role string) error {
	return m.Called(ctx, subject, role).Error(0)
}
