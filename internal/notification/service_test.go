package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"floatbook/internal/domain"
	"floatbook/pkg/errors"
	"floatbook/pkg/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *MockRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockRecipientSource struct {
	mock.Mock
}

func (m *MockRecipientSource) KioskUserIDs(ctx context.Context, kioskID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, kioskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func TestNotifyInviteDefaults(t *testing.T) {
	userID := uuid.New()
	kioskID := uuid.New()

	repo := new(MockRepository)
	var created *domain.Notification
	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.Notification)
	}).Return(nil)

	svc := NewService(repo, new(MockRecipientSource), logger.NewNop())

	err := svc.NotifyInvite(context.Background(), userID, kioskID, "Central")

	assert.NoError(t, err)
	assert.Equal(t, domain.NotifyInvite, created.Type)
	assert.Equal(t, domain.PriorityHigh, created.Priority)
	assert.Equal(t, userID, created.UserID)
	assert.Contains(t, created.Title, "Central")
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.IsRead)
}

func TestNotifyLowBalanceFansOutToTeam(t *testing.T) {
	kioskID := uuid.New()
	owner := uuid.New()
	agent := uuid.New()

	repo := new(MockRepository)
	var recipients []uuid.UUID
	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recipients = append(recipients, args.Get(1).(*domain.Notification).UserID)
	}).Return(nil)

	members := new(MockRecipientSource)
	members.On("KioskUserIDs", mock.Anything, kioskID).Return([]uuid.UUID{owner, agent}, nil)

	svc := NewService(repo, members, logger.NewNop())

	err := svc.NotifyLowBalance(context.Background(), kioskID, []domain.LowBalanceAlert{
		{NetworkCode: "MTN", NetworkName: "MTN Mobile Money", Balance: decimal.NewFromInt(12000), Threshold: decimal.NewFromInt(50000)},
	})

	assert.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{owner, agent}, recipients)
}

func TestNotifyLowBalanceNoAlertsIsNoop(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, new(MockRecipientSource), logger.NewNop())

	err := svc.NotifyLowBalance(context.Background(), uuid.New(), nil)

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMarkReadRejectsOtherUsersNotification(t *testing.T) {
	owner := uuid.New()
	n := &domain.Notification{ID: uuid.New(), UserID: owner}

	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, n.ID).Return(n, nil)

	svc := NewService(repo, new(MockRecipientSource), logger.NewNop())

	err := svc.MarkRead(context.Background(), uuid.New(), n.ID)

	assert.ErrorIs(t, err, errors.ErrNotAuthorized)
	repo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestListClampsLimit(t *testing.T) {
	userID := uuid.New()

	repo := new(MockRepository)
	repo.On("FindByUser", mock.Anything, userID, 20, 0).Return([]domain.Notification{}, nil)

	svc := NewService(repo, new(MockRecipientSource), logger.NewNop())

	_, err := svc.List(context.Background(), userID, 500, -3)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}
