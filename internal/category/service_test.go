package category

import (
	"context"
	"errors"
	"testing"

	"launchpad_backend/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockProductCounter struct {
	mock.Mock
}

func (m *MockProductCounter) CountPublishedByCategory(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func TestParse(t *testing.T) {
	c, ok := Parse("developer-tools")
	assert.True(t, ok)
	assert.Equal(t, DeveloperTools, c)

	_, ok = Parse("gardening")
	assert.False(t, ok)
}

func TestList_ZeroFillsMissingCategories(t *testing.T) {
	counter := new(MockProductCounter)
	counter.On("CountPublishedByCategory", mock.Anything).Return(map[string]int64{"ai": 4, "design": 1}, nil)
	svc := NewService(counter, zap.NewNop())

	got, err := svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, got, len(All))
	byslug := map[string]int64{}
	for _, c := range got {
		byslug[c.Slug] = c.ProductCount
	}
	assert.Equal(t, int64(4), byslug["ai"])
	assert.Equal(t, int64(1), byslug["design"])
	assert.Equal(t, int64(0), byslug["finance"])
}

func TestList_CounterFailure(t *testing.T) {
	counter := new(MockProductCounter)
	counter.On("CountPublishedByCategory", mock.Anything).Return(nil, errors.New("db down"))
	svc := NewService(counter, zap.NewNop())

	_, err := svc.List(context.Background())

	assert.ErrorIs(t, err, common.ErrInternalServer)
}

func TestGet_UnknownCategory(t *testing.T) {
	svc := NewService(new(MockProductCounter), zap.NewNop())

	_, err := svc.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, common.ErrNotFound)
}
