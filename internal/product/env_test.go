package product

import (
	"context"
	"sync"
	"testing"
	"time"

	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/email"
	"launchpad_backend/internal/notification"
	"launchpad_backend/internal/platform/database/dbtest"
	"launchpad_backend/internal/platform/metrics"
	"launchpad_backend/internal/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) SyncProduct(ctx context.Context, p *Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockIndexer) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockLogoStore struct {
	mock.Mock
}

func (m *MockLogoStore) Confirm(ctx context.Context, ownerID, uploadID uuid.UUID) (string, error) {
	args := m.Called(ctx, ownerID, uploadID)
	return args.String(0), args.Error(1)
}

func (m *MockLogoStore) DeleteByURL(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

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
	m.sent = append(m.sent, sentMail{to: to, tmpl: tmpl, data: data})
}

func (m *recordingMailer) templates() []email.Template {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]email.Template, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.tmpl
	}
	return out
}

type testEnv struct {
	db       *gorm.DB
	repo     Repository
	users    user.Repository
	service  *ServiceImplementation
	clock    *clock.FakeClock
	indexer  *MockIndexer
	logos    *MockLogoStore
	mailer   *recordingMailer
	notifier notification.Service
	cfg      *config.Config
}

var testStart = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t, &user.User{}, &Product{}, &Upvote{}, &notification.Notification{})

	enforcer, err := authz.NewMemoryEnforcer()
	require.NoError(t, err)

	cfg := &config.Config{
		PublicBaseURL:            "https://launchpad.test",
		RejectionReasonMinLength: 10,
		FeaturedCarouselSize:     3,
		MaxFeatureDurationDays:   365,
	}
	env := &testEnv{
		db:       db,
		repo:     NewGORMRepository(db),
		users:    user.NewGORMRepository(db),
		clock:    clock.NewFakeClock(testStart),
		indexer:  new(MockIndexer),
		logos:    new(MockLogoStore),
		mailer:   &recordingMailer{},
		notifier: notification.NewService(notification.NewGORMRepository(db), zap.NewNop()),
		cfg:      cfg,
	}
	env.indexer.On("SyncProduct", mock.Anything, mock.Anything).Return(nil).Maybe()
	env.indexer.On("DeleteProduct", mock.Anything, mock.Anything).Return(nil).Maybe()

	env.service = NewService(
		env.repo,
		env.users,
		authz.NewService(enforcer, zap.NewNop()),
		env.logos,
		env.indexer,
		env.notifier,
		env.mailer,
		metrics.Nop{},
		env.clock,
		cfg,
		zap.NewNop(),
	)
	return env
}

func (e *testEnv) createUser(t *testing.T, username, role string) *common.Actor {
	t.Helper()
	u := &user.User{
		FirebaseUID: "fb-" + username,
		Username:    username,
		Email:       username + "@example.com",
		Role:        role,
		DisplayName: username,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u.Actor()
}

func (e *testEnv) createProduct(t *testing.T, owner *common.Actor, name string) *Product {
	t.Helper()
	p, err := e.service.Create(context.Background(), owner, CreateProductRequest{
		Name:             name,
		ShortDescription: "A short pitch",
		Description:      "<p>Longer <b>description</b></p>",
		WebsiteURL:       "https://example.com",
		Category:         "productivity",
		Tags:             []string{"Tools"},
	})
	require.NoError(t, err)
	return p
}

// publish walks a new product through submit and approve.
func (e *testEnv) publish(t *testing.T, owner, admin *common.Actor, name string) *Product {
	t.Helper()
	ctx := context.Background()
	p := e.createProduct(t, owner, name)
	p, err := e.service.Submit(ctx, owner, p.ID, 0)
	require.NoError(t, err)
	p, err = e.service.Approve(ctx, admin, p.ID, 0)
	require.NoError(t, err)
	return p
}
