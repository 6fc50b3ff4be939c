package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"launchpad_backend/internal/common"
	"launchpad_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockNotificationRepository is a mock type for notification.Repository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *Notification) error {
	return m.Called(ctx, notification).Error(0)
}

func (m *MockNotificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, *common.Pagination, error) {
	args := m.Called(ctx, userID, page, pageSize)
	var notifications []Notification
	if args.Get(0) != nil {
		notifications = args.Get(0).([]Notification)
	}
	var pagination *common.Pagination
	if args.Get(1) != nil {
		pagination = args.Get(1).(*common.Pagination)
	}
	return notifications, pagination, args.Error(2)
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (*Notification, error) {
	args := m.Called(ctx, notificationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	return m.Called(ctx, notificationID, userID).Error(0)
}

func (m *MockNotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func TestCreateNotification_PassesFieldsThrough(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()
	userID, productID := uuid.New(), uuid.New()

	repo.On("Create", ctx, mock.MatchedBy(func(n *Notification) bool {
		return n.UserID == userID && n.Type == ProductApproved && n.Message == "Your product is live!" &&
			n.RelatedProductID != nil && *n.RelatedProductID == productID && !n.IsRead
	})).Return(nil).Once()

	n, err := svc.CreateNotification(ctx, userID, ProductApproved, "Your product is live!", &productID)

	require.NoError(t, err)
	assert.Equal(t, userID, n.UserID)
	repo.AssertExpectations(t)
}

func TestService_RepositoryFailuresBecomeInternalErrors(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repoErr := errors.New("connection refused")

	tests := []struct {
		name  string
		setup func(repo *MockNotificationRepository)
		call  func(svc Service) error
	}{
		{
			name:  "create",
			setup: func(repo *MockNotificationRepository) { repo.On("Create", ctx, mock.Anything).Return(repoErr) },
			call: func(svc Service) error {
				_, err := svc.CreateNotification(ctx, userID, ProductFeatured, "featured", nil)
				return err
			},
		},
		{
			name:  "list",
			setup: func(repo *MockNotificationRepository) { repo.On("GetByUserID", ctx, userID, 1, 5).Return(nil, nil, repoErr) },
			call: func(svc Service) error {
				_, _, err := svc.GetNotificationsForUser(ctx, userID, 1, 5)
				return err
			},
		},
		{
			name:  "mark one",
			setup: func(repo *MockNotificationRepository) { repo.On("MarkAsRead", ctx, mock.Anything, userID).Return(repoErr) },
			call:  func(svc Service) error { return svc.MarkNotificationAsRead(ctx, uuid.New(), userID) },
		},
		{
			name:  "mark all",
			setup: func(repo *MockNotificationRepository) { repo.On("MarkAllAsRead", ctx, userID).Return(int64(0), repoErr) },
			call: func(svc Service) error {
				_, err := svc.MarkAllUserNotificationsAsRead(ctx, userID)
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockNotificationRepository)
			tt.setup(repo)

			err := tt.call(NewService(repo, zap.NewNop()))

			apiErr, ok := common.IsAPIError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, common.ErrInternalServer.Code, apiErr.Code)
			assert.NotContains(t, apiErr.Error(), "connection refused")
		})
	}
}

func TestMarkNotificationAsRead_KeepsNotFound(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := NewService(repo, zap.NewNop())
	ctx := context.Background()
	userID, notificationID := uuid.New(), uuid.New()
	repo.On("MarkAsRead", ctx, notificationID, userID).Return(common.ErrNotFound.WithDetails("Notification not found.")).Once()

	err := svc.MarkNotificationAsRead(ctx, notificationID, userID)

	assert.ErrorIs(t, err, common.ErrNotFound)
	repo.AssertExpectations(t)
}

func TestService_ProductLifecycleInbox(t *testing.T) {
	svc := NewService(NewGORMRepository(dbtest.New(t, &Notification{})), zap.NewNop())
	ctx := context.Background()
	owner := uuid.New()
	productID := uuid.New()

	lifecycle := []NotificationType{
		ProductRejected, ProductApproved, ProductFeatured, PaymentCompleted, ProductSuspended, ProductReinstated,
	}
	for _, kind := range lifecycle {
		_, err := svc.CreateNotification(ctx, owner, kind, string(kind), &productID)
		require.NoError(t, err)
		// distinct created_at values keep the ordering deterministic
		time.Sleep(2 * time.Millisecond)
	}

	inbox, pagination, err := svc.GetNotificationsForUser(ctx, owner, 1, 20)
	require.NoError(t, err)
	require.Len(t, inbox, len(lifecycle))
	assert.Equal(t, int64(len(lifecycle)), pagination.TotalItems)
	assert.Equal(t, ProductReinstated, inbox[0].Type, "newest first")
	assert.Equal(t, ProductRejected, inbox[len(inbox)-1].Type)
	for _, n := range inbox {
		require.NotNil(t, n.RelatedProductID)
		assert.Equal(t, productID, *n.RelatedProductID)
		assert.False(t, n.IsRead)
	}

	suspended := inbox[1]
	require.Equal(t, ProductSuspended, suspended.Type)
	require.NoError(t, svc.MarkNotificationAsRead(ctx, suspended.ID, owner))
	require.NoError(t, svc.MarkNotificationAsRead(ctx, suspended.ID, owner))
	assert.ErrorIs(t, svc.MarkNotificationAsRead(ctx, suspended.ID, uuid.New()), common.ErrNotFound)

	marked, err := svc.MarkAllUserNotificationsAsRead(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(len(lifecycle)-1), marked)

	marked, err = svc.MarkAllUserNotificationsAsRead(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, marked)
}
