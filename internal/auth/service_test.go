package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/email"
	"launchpad_backend/internal/firebase"
	"launchpad_backend/internal/firebase/firebasetest"
	"launchpad_backend/internal/platform/database/dbtest"
	"launchpad_backend/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopIndex struct{}

func (nopIndex) DeleteProduct(context.Context, uuid.UUID) error { return nil }

type sentMail struct {
	to   string
	tmpl email.Template
	data interface{}
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(to string, tmpl email.Template, data interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, tmpl, data})
}

type authEnv struct {
	identity  *firebasetest.MockIdentityProvider
	users     *user.ServiceImplementation
	blocklist *InMemoryBlocklistService
	mailer    *recordingMailer
	clock     *clock.FakeClock
	service   *ServiceImplementation
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	db := dbtest.New(t, &user.User{})
	enforcer, err := authz.NewMemoryEnforcer()
	require.NoError(t, err)

	env := &authEnv{
		identity:  new(firebasetest.MockIdentityProvider),
		blocklist: NewInMemoryBlocklistService(DefaultBlocklistConfig()),
		mailer:    &recordingMailer{},
		clock:     clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)),
	}
	env.users = user.NewService(user.NewGORMRepository(db), env.identity, authz.NewService(enforcer, zap.NewNop()), nopIndex{}, nil, zap.NewNop())
	env.service = NewService(env.identity, env.users, env.blocklist, env.mailer, env.clock,
		&config.Config{PublicBaseURL: "https://launchpad.test"}, zap.NewNop())
	return env
}

func TestSignUp_CreatesAccountAndSession(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	session := &firebase.Session{Subject: "fb-alice", IDToken: "id", RefreshToken: "refresh", ExpiresIn: 3600}
	env.identity.On("SignUp", mock.Anything, "alice@example.com", "s3cretpass", "Alice").Return("fb-alice", nil)
	env.identity.On("SignIn", mock.Anything, "alice@example.com", "s3cretpass").Return(session, nil)

	u, got, err := env.service.SignUp(ctx, SignUpRequest{
		Email:       " Alice@Example.com ",
		Password:    "s3cretpass",
		Username:    "Alice",
		DisplayName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "fb-alice", u.FirebaseUID)
	assert.Equal(t, common.RoleUser, u.Role)
	assert.Equal(t, session, got)

	stored, err := env.users.GetByFirebaseUID(ctx, "fb-alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)

	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, email.TemplateWelcome, env.mailer.sent[0].tmpl)
	assert.Equal(t, email.WelcomeData{Name: "Alice", SiteURL: "https://launchpad.test"}, env.mailer.sent[0].data)
	env.identity.AssertExpectations(t)
}

func TestSignUp_UsernameTaken(t *testing.T) {
	env := newAuthEnv(t)
	_, err := env.users.Register(context.Background(), user.RegisterParams{FirebaseUID: "fb-x", Username: "alice", Email: "x@example.com"})
	require.NoError(t, err)

	_, _, err = env.service.SignUp(context.Background(), SignUpRequest{Email: "a@example.com", Password: "s3cretpass", Username: "alice"})
	assert.ErrorIs(t, err, common.ErrConflict)
	env.identity.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignUp_IdentityRejected(t *testing.T) {
	env := newAuthEnv(t)
	env.identity.On("SignUp", mock.Anything, "a@example.com", "s3cretpass", "").
		Return("", common.ErrConflict.WithDetails("An account with this email already exists."))

	_, _, err := env.service.SignUp(context.Background(), SignUpRequest{Email: "a@example.com", Password: "s3cretpass", Username: "alice"})
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Empty(t, env.mailer.sent)
}

func TestSignUp_RollsBackIdentityWhenAccountFails(t *testing.T) {
	env := newAuthEnv(t)
	env.identity.On("SignUp", mock.Anything, "a@example.com", "s3cretpass", "").Return("fb-new", nil)
	env.identity.On("DeleteAccount", mock.Anything, "fb-new").Return(nil)

	// too short for an account handle
	_, _, err := env.service.SignUp(context.Background(), SignUpRequest{Email: "a@example.com", Password: "s3cretpass", Username: "ab"})
	require.Error(t, err)

	env.identity.AssertCalled(t, "DeleteAccount", mock.Anything, "fb-new")
	env.identity.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, env.mailer.sent)
}

func TestSignUp_SignInFailureStillReturnsAccount(t *testing.T) {
	env := newAuthEnv(t)
	env.identity.On("SignUp", mock.Anything, "a@example.com", "s3cretpass", "").Return("fb-a", nil)
	env.identity.On("SignIn", mock.Anything, "a@example.com", "s3cretpass").Return(nil, errors.New("network"))

	u, session, err := env.service.SignUp(context.Background(), SignUpRequest{Email: "a@example.com", Password: "s3cretpass", Username: "anna"})
	require.NoError(t, err)
	assert.NotNil(t, u)
	assert.Nil(t, session)
}

func TestSignIn(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	registered, err := env.users.Register(ctx, user.RegisterParams{FirebaseUID: "fb-bob", Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)

	env.identity.On("SignIn", mock.Anything, "bob@example.com", "pw").Return(&firebase.Session{Subject: "fb-bob", IDToken: "id"}, nil)
	env.identity.On("SignIn", mock.Anything, "ghost@example.com", "pw").Return(&firebase.Session{Subject: "fb-ghost"}, nil)
	env.identity.On("SignIn", mock.Anything, "bob@example.com", "wrong").Return(nil, common.ErrUnauthorized.WithDetails("Invalid email or password."))

	u, session, err := env.service.SignIn(ctx, LoginRequest{Email: "BOB@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)
	assert.Equal(t, "id", session.IDToken)

	_, _, err = env.service.SignIn(ctx, LoginRequest{Email: "ghost@example.com", Password: "pw"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, _, err = env.service.SignIn(ctx, LoginRequest{Email: "bob@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSignOut(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	issued := env.clock.Now().Add(-5 * time.Minute)
	env.identity.On("RevokeSessions", mock.Anything, "fb-bob").Return(nil)

	require.NoError(t, env.service.SignOut(ctx, "fb-bob"))
	assert.True(t, env.blocklist.IsRevoked("fb-bob", issued))
	assert.False(t, env.blocklist.IsRevoked("fb-bob", env.clock.Now().Add(time.Second)))

	assert.ErrorIs(t, env.service.SignOut(ctx, ""), common.ErrUnauthorized)
}

func TestSignOut_ProviderUnavailable(t *testing.T) {
	env := newAuthEnv(t)
	env.identity.On("RevokeSessions", mock.Anything, "fb-bob").Return(errors.New("timeout"))

	err := env.service.SignOut(context.Background(), "fb-bob")
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
	assert.False(t, env.blocklist.IsRevoked("fb-bob", env.clock.Now().Add(-time.Minute)))
}
