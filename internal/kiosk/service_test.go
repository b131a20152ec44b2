package kiosk

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"floatbook/internal/domain"
	"floatbook/pkg/errors"
	"floatbook/pkg/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, kiosk *domain.Kiosk) error {
	args := m.Called(ctx, kiosk)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, kiosk *domain.Kiosk) error {
	args := m.Called(ctx, kiosk)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Kiosk, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Kiosk), args.Error(1)
}

func (m *MockRepository) FindBySlug(ctx context.Context, slug string) (*domain.Kiosk, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Kiosk), args.Error(1)
}

func (m *MockRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Kiosk, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Kiosk), args.Error(1)
}

func (m *MockRepository) AddMember(ctx context.Context, member *domain.KioskMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockRepository) RemoveMember(ctx context.Context, kioskID, userID uuid.UUID) error {
	args := m.Called(ctx, kioskID, userID)
	return args.Error(0)
}

func (m *MockRepository) FindMember(ctx context.Context, kioskID, userID uuid.UUID) (*domain.KioskMember, error) {
	args := m.Called(ctx, kioskID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KioskMember), args.Error(1)
}

func (m *MockRepository) ListMembers(ctx context.Context, kioskID uuid.UUID) ([]domain.KioskMember, error) {
	args := m.Called(ctx, kioskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.KioskMember), args.Error(1)
}

type MockUserSource struct {
	mock.Mock
}

func (m *MockUserSource) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyInvite(ctx context.Context, userID, kioskID uuid.UUID, kioskName string) error {
	args := m.Called(ctx, userID, kioskID, kioskName)
	return args.Error(0)
}

func TestCreateKioskSlugFromName(t *testing.T) {
	repo := new(MockRepository)
	repo.On("SlugExists", mock.Anything, "chez-tantine-douala").Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, new(MockUserSource), nil, logger.NewNop())

	kiosk, err := svc.CreateKiosk(context.Background(), &CreateKioskRequest{
		Name:    "Chez Tantine (Douala)",
		OwnerID: uuid.New(),
	})

	assert.NoError(t, err)
	assert.Equal(t, "chez-tantine-douala", kiosk.Slug)
	assert.True(t, kiosk.IsActive)
}

func TestCreateKioskSlugCollisionGetsSuffix(t *testing.T) {
	repo := new(MockRepository)
	repo.On("SlugExists", mock.Anything, "central").Return(true, nil)
	repo.On("SlugExists", mock.Anything, "central-2").Return(true, nil)
	repo.On("SlugExists", mock.Anything, "central-3").Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, new(MockUserSource), nil, logger.NewNop())

	kiosk, err := svc.CreateKiosk(context.Background(), &CreateKioskRequest{
		Name:    "Central",
		OwnerID: uuid.New(),
	})

	assert.NoError(t, err)
	assert.Equal(t, "central-3", kiosk.Slug)
}

func TestCreateKioskNonLatinNameFallsBack(t *testing.T) {
	repo := new(MockRepository)
	repo.On("SlugExists", mock.Anything, "kiosk").Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, new(MockUserSource), nil, logger.NewNop())

	kiosk, err := svc.CreateKiosk(context.Background(), &CreateKioskRequest{
		Name:    "!!!",
		OwnerID: uuid.New(),
	})

	assert.NoError(t, err)
	assert.Equal(t, "kiosk", kiosk.Slug)
}

func TestUpdateKioskOwnerOnly(t *testing.T) {
	ownerID := uuid.New()
	kiosk := &domain.Kiosk{ID: uuid.New(), OwnerID: ownerID, Name: "Central"}

	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, kiosk.ID).Return(kiosk, nil)

	svc := NewService(repo, new(MockUserSource), nil, logger.NewNop())

	name := "Renamed"
	_, err := svc.UpdateKiosk(context.Background(), kiosk.ID, uuid.New(), &UpdateKioskRequest{Name: &name})

	assert.ErrorIs(t, err, errors.ErrOwnerOnly)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestInviteMemberNotifies(t *testing.T) {
	ownerID := uuid.New()
	invitee := &domain.User{ID: uuid.New(), Email: "agent@example.com"}
	kiosk := &domain.Kiosk{ID: uuid.New(), OwnerID: ownerID, Name: "Central"}

	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, kiosk.ID).Return(kiosk, nil)
	repo.On("FindMember", mock.Anything, kiosk.ID, invitee.ID).Return(nil, errors.ErrMemberNotFound)
	repo.On("AddMember", mock.Anything, mock.Anything).Return(nil)

	users := new(MockUserSource)
	users.On("FindByEmail", mock.Anything, "agent@example.com").Return(invitee, nil)

	notifier := new(MockNotifier)
	notifier.On("NotifyInvite", mock.Anything, invitee.ID, kiosk.ID, "Central").Return(nil)

	svc := NewService(repo, users, notifier, logger.NewNop())

	member, err := svc.InviteMember(context.Background(), kiosk.ID, ownerID, &InviteRequest{
		Email: "agent@example.com",
		Role:  domain.RoleAgent,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, member.Role)
	notifier.AssertExpectations(t)
}

func TestInviteMemberRejectsDuplicate(t *testing.T) {
	ownerID := uuid.New()
	invitee := &domain.User{ID: uuid.New(), Email: "agent@example.com"}
	kiosk := &domain.Kiosk{ID: uuid.New(), OwnerID: ownerID}

	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, kiosk.ID).Return(kiosk, nil)
	repo.On("FindMember", mock.Anything, kiosk.ID, invitee.ID).Return(&domain.KioskMember{}, nil)

	users := new(MockUserSource)
	users.On("FindByEmail", mock.Anything, "agent@example.com").Return(invitee, nil)

	svc := NewService(repo, users, nil, logger.NewNop())

	_, err := svc.InviteMember(context.Background(), kiosk.ID, ownerID, &InviteRequest{
		Email: "agent@example.com",
		Role:  domain.RoleAgent,
	})

	assert.ErrorIs(t, err, errors.ErrAlreadyMember)
}

func TestInviteMemberRejectsOwnerAsInvitee(t *testing.T) {
	ownerID := uuid.New()
	kiosk := &domain.Kiosk{ID: uuid.New(), OwnerID: ownerID}

	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, kiosk.ID).Return(kiosk, nil)

	users := new(MockUserSource)
	users.On("FindByEmail", mock.Anything, "owner@example.com").Return(&domain.User{ID: ownerID}, nil)

	svc := NewService(repo, users, nil, logger.NewNop())

	_, err := svc.InviteMember(context.Background(), kiosk.ID, ownerID, &InviteRequest{
		Email: "owner@example.com",
		Role:  domain.RoleAdmin,
	})

	assert.ErrorIs(t, err, errors.ErrAlreadyMember)
}

func TestInviteMemberRequiresManageRole(t *testing.T) {
	agentID := uuid.New()
	kiosk := &domain.Kiosk{ID: uuid.New(), OwnerID: uuid.New()}

	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, kiosk.ID).Return(kiosk, nil)
	repo.On("FindMember", mock.Anything, kiosk.ID, agentID).Return(&domain.KioskMember{
		KioskID: kiosk.ID, UserID: agentID, Role: domain.RoleAgent,
	}, nil)

	svc := NewService(repo, new(MockUserSource), nil, logger.NewNop())

	_, err := svc.InviteMember(context.Background(), kiosk.ID, agentID, &InviteRequest{
		Email: "x@example.com",
		Role:  domain.RoleAgent,
	})

	assert.ErrorIs(t, err, errors.ErrNotAuthorized)
}

func TestRemoveAdminIsOwnerOnly(t *testing.T) {
	ownerID := uuid.New()
	adminID := uuid.New()
	targetID := uuid.New()
	kiosk := &domain.Kiosk{ID: uuid.New(), OwnerID: ownerID}

	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, kiosk.ID).Return(kiosk, nil)
	repo.On("FindMember", mock.Anything, kiosk.ID, adminID).Return(&domain.KioskMember{
		KioskID: kiosk.ID, UserID: adminID, Role: domain.RoleAdmin,
	}, nil)
	repo.On("FindMember", mock.Anything, kiosk.ID, targetID).Return(&domain.KioskMember{
		KioskID: kiosk.ID, UserID: targetID, Role: domain.RoleAdmin,
	}, nil)

	svc := NewService(repo, new(MockUserSource), nil, logger.NewNop())

	err := svc.RemoveMember(context.Background(), kiosk.ID, adminID, targetID)

	assert.ErrorIs(t, err, errors.ErrOwnerOnly)
	repo.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestCanViewOwnerAndMemberButNotStranger(t *testing.T) {
	ownerID := uuid.New()
	memberID := uuid.New()
	strangerID := uuid.New()
	kiosk := &domain.Kiosk{ID: uuid.New(), OwnerID: ownerID}

	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, kiosk.ID).Return(kiosk, nil)
	repo.On("FindMember", mock.Anything, kiosk.ID, memberID).Return(&domain.KioskMember{
		KioskID: kiosk.ID, UserID: memberID, Role: domain.RoleAgent,
	}, nil)
	repo.On("FindMember", mock.Anything, kiosk.ID, strangerID).Return(nil, errors.ErrMemberNotFound)

	svc := NewService(repo, new(MockUserSource), nil, logger.NewNop())

	ok, err := svc.CanView(context.Background(), kiosk.ID, ownerID)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanView(context.Background(), kiosk.ID, memberID)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanView(context.Background(), kiosk.ID, strangerID)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCanManageAgentIsFalse(t *testing.T) {
	agentID := uuid.New()
	kiosk := &domain.Kiosk{ID: uuid.New(), OwnerID: uuid.New()}

	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, kiosk.ID).Return(kiosk, nil)
	repo.On("FindMember", mock.Anything, kiosk.ID, agentID).Return(&domain.KioskMember{
		KioskID: kiosk.ID, UserID: agentID, Role: domain.RoleAgent,
	}, nil)

	svc := NewService(repo, new(MockUserSource), nil, logger.NewNop())

	ok, err := svc.CanManage(context.Background(), kiosk.ID, agentID)
	assert.NoError(t, err)
	assert.False(t, ok)
}
