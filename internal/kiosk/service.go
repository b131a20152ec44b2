// Package kiosk manages agent locations and team membership. Every other
// surface checks access through this package: the owner can do anything,
// admins manage day-to-day operation, agents record transactions.
package kiosk

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"floatbook/internal/domain"
	"floatbook/pkg/errors"
	"floatbook/pkg/logger"
)

type Repository interface {
	Create(ctx context.Context, kiosk *domain.Kiosk) error
	Update(ctx context.Context, kiosk *domain.Kiosk) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Kiosk, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Kiosk, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Kiosk, error)

	AddMember(ctx context.Context, member *domain.KioskMember) error
	RemoveMember(ctx context.Context, kioskID, userID uuid.UUID) error
	FindMember(ctx context.Context, kioskID, userID uuid.UUID) (*domain.KioskMember, error)
	ListMembers(ctx context.Context, kioskID uuid.UUID) ([]domain.KioskMember, error)
}

// UserSource resolves invitees by email.
type UserSource interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Notifier delivers the in-app invite notice. Nil disables it.
type Notifier interface {
	NotifyInvite(ctx context.Context, userID, kioskID uuid.UUID, kioskName string) error
}

type Service struct {
	repo     Repository
	users    UserSource
	notifier Notifier
	logger   logger.Logger
}

func NewService(repo Repository, users UserSource, notifier Notifier, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		logger:   log,
	}
}

type CreateKioskRequest struct {
	Name     string    `json:"name" validate:"required,min=2,max=120"`
	Location string    `json:"location" validate:"max=255"`
	OwnerID  uuid.UUID `json:"-"`
}

func (s *Service) CreateKiosk(ctx context.Context, req *CreateKioskRequest) (*domain.Kiosk, error) {
	slug, err := s.uniqueSlug(ctx, req.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	kiosk := &domain.Kiosk{
		ID:        uuid.New(),
		Name:      req.Name,
		Slug:      slug,
		OwnerID:   req.OwnerID,
		Location:  req.Location,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, kiosk); err != nil {
		return nil, err
	}

	s.logger.Info("Kiosk created", map[string]interface{}{
		"kiosk_id": kiosk.ID,
		"slug":     kiosk.Slug,
		"owner_id": kiosk.OwnerID,
	})

	return kiosk, nil
}

type UpdateKioskRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=120"`
	Location *string `json:"location" validate:"omitempty,max=255"`
	IsActive *bool   `json:"is_active"`
}

// UpdateKiosk is owner-only. The slug is fixed at creation so that external
// links keep working across renames.
func (s *Service) UpdateKiosk(ctx context.Context, kioskID, actorID uuid.UUID, req *UpdateKioskRequest) (*domain.Kiosk, error) {
	kiosk, err := s.repo.FindByID(ctx, kioskID)
	if err != nil {
		return nil, err
	}
	if kiosk.OwnerID != actorID {
		return nil, errors.ErrOwnerOnly
	}

	if req.Name != nil {
		kiosk.Name = *req.Name
	}
	if req.Location != nil {
		kiosk.Location = *req.Location
	}
	if req.IsActive != nil {
		kiosk.IsActive = *req.IsActive
	}
	kiosk.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, kiosk); err != nil {
		return nil, err
	}
	return kiosk, nil
}

func (s *Service) GetKiosk(ctx context.Context, id uuid.UUID) (*domain.Kiosk, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetKioskBySlug(ctx context.Context, slug string) (*domain.Kiosk, error) {
	return s.repo.FindBySlug(ctx, slug)
}

// ListForUser returns every kiosk the user owns or is a member of.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Kiosk, error) {
	return s.repo.FindByUser(ctx, userID)
}

type InviteRequest struct {
	Email string            `json:"email" validate:"required,email"`
	Role  domain.MemberRole `json:"role" validate:"required,oneof=ADMIN AGENT"`
}

// InviteMember adds a registered user to the kiosk team and notifies them.
// Only the owner or an admin can invite, and nobody can be added twice.
func (s *Service) InviteMember(ctx context.Context, kioskID, actorID uuid.UUID, req *InviteRequest) (*domain.KioskMember, error) {
	kiosk, err := s.repo.FindByID(ctx, kioskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManage(ctx, kiosk, actorID); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user.ID == kiosk.OwnerID {
		return nil, errors.ErrAlreadyMember
	}
	if _, err := s.repo.FindMember(ctx, kioskID, user.ID); err == nil {
		return nil, errors.ErrAlreadyMember
	} else if !errors.Is(err, errors.ErrMemberNotFound) {
		return nil, err
	}

	member := &domain.KioskMember{
		ID:       uuid.New(),
		KioskID:  kioskID,
		UserID:   user.ID,
		Role:     req.Role,
		JoinedAt: time.Now(),
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyInvite(ctx, user.ID, kioskID, kiosk.Name); err != nil {
			s.logger.Warn("Invite notification failed", map[string]interface{}{
				"kiosk_id": kioskID,
				"user_id":  user.ID,
				"error":    err.Error(),
			})
		}
	}

	s.logger.Info("Member added", map[string]interface{}{
		"kiosk_id": kioskID,
		"user_id":  user.ID,
		"role":     member.Role,
	})
	return member, nil
}

// RemoveMember is owner-or-admin, except that only the owner can remove an
// admin. The owner is not a member row and cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, kioskID, actorID, userID uuid.UUID) error {
	kiosk, err := s.repo.FindByID(ctx, kioskID)
	if err != nil {
		return err
	}
	if err := s.requireManage(ctx, kiosk, actorID); err != nil {
		return err
	}

	member, err := s.repo.FindMember(ctx, kioskID, userID)
	if err != nil {
		return err
	}
	if member.Role == domain.RoleAdmin && actorID != kiosk.OwnerID {
		return errors.ErrOwnerOnly
	}

	if err := s.repo.RemoveMember(ctx, kioskID, userID); err != nil {
		return err
	}

	s.logger.Info("Member removed", map[string]interface{}{
		"kiosk_id": kioskID,
		"user_id":  userID,
	})
	return nil
}

func (s *Service) ListMembers(ctx context.Context, kioskID uuid.UUID) ([]domain.KioskMember, error) {
	return s.repo.ListMembers(ctx, kioskID)
}

// CanView reports whether the user may read the kiosk's ledger and reports.
func (s *Service) CanView(ctx context.Context, kioskID, userID uuid.UUID) (bool, error) {
	kiosk, err := s.repo.FindByID(ctx, kioskID)
	if err != nil {
		return false, err
	}
	if kiosk.OwnerID == userID {
		return true, nil
	}
	_, err = s.repo.FindMember(ctx, kioskID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errors.ErrMemberNotFound) {
		return false, nil
	}
	return false, err
}

// CanManage reports whether the user may change rates, team, and settings:
// the owner or an admin member.
func (s *Service) CanManage(ctx context.Context, kioskID, userID uuid.UUID) (bool, error) {
	kiosk, err := s.repo.FindByID(ctx, kioskID)
	if err != nil {
		return false, err
	}
	err = s.requireManage(ctx, kiosk, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errors.ErrNotAuthorized) {
		return false, nil
	}
	return false, err
}

// IsOwner reports whether the user owns the kiosk. Rate tables and ledger
// deletes are owner-only.
func (s *Service) IsOwner(ctx context.Context, kioskID, userID uuid.UUID) (bool, error) {
	kiosk, err := s.repo.FindByID(ctx, kioskID)
	if err != nil {
		return false, err
	}
	return kiosk.OwnerID == userID, nil
}

func (s *Service) requireManage(ctx context.Context, kiosk *domain.Kiosk, userID uuid.UUID) error {
	if kiosk.OwnerID == userID {
		return nil
	}
	member, err := s.repo.FindMember(ctx, kiosk.ID, userID)
	if errors.Is(err, errors.ErrMemberNotFound) {
		return errors.ErrNotAuthorized
	}
	if err != nil {
		return err
	}
	if member.Role != domain.RoleAdmin {
		return errors.ErrNotAuthorized
	}
	return nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// uniqueSlug derives a URL slug from the kiosk name, suffixing -2, -3, ...
// until the slug is free.
func (s *Service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if base == "" {
		base = "kiosk"
	}

	slug := base
	for n := 2; ; n++ {
		exists, err := s.repo.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}
