// Package notification manages the in-app inbox. Push and email delivery are
// out of scope; other services create notifications here and the handler
// exposes list, read, and unread-count operations.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"floatbook/internal/domain"
	"floatbook/pkg/errors"
	"floatbook/pkg/logger"
)

type Repository interface {
	Create(ctx context.Context, n *domain.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// RecipientSource lists the users a kiosk-scoped notification fans out to:
// the owner plus every member.
type RecipientSource interface {
	KioskUserIDs(ctx context.Context, kioskID uuid.UUID) ([]uuid.UUID, error)
}

type Service struct {
	repo       Repository
	recipients RecipientSource
	logger     logger.Logger
}

func NewService(repo Repository, recipients RecipientSource, log logger.Logger) *Service {
	return &Service{
		repo:       repo,
		recipients: recipients,
		logger:     log,
	}
}

// Notify creates a single notification for one user.
func (s *Service) Notify(ctx context.Context, n *domain.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Priority == "" {
		n.Priority = domain.PriorityNormal
	}
	n.CreatedAt = time.Now()

	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	s.logger.Info("Notification created", map[string]interface{}{
		"user_id": n.UserID,
		"type":    n.Type,
	})
	return nil
}

// NotifyInvite tells a user they were added to a kiosk team.
func (s *Service) NotifyInvite(ctx context.Context, userID, kioskID uuid.UUID, kioskName string) error {
	return s.Notify(ctx, &domain.Notification{
		UserID:    userID,
		Type:      domain.NotifyInvite,
		Priority:  domain.PriorityHigh,
		Title:     fmt.Sprintf("Invitation to %s", kioskName),
		Message:   fmt.Sprintf("You have been added to the %s team. Open the kiosk to start recording transactions.", kioskName),
		KioskID:   &kioskID,
		ActionURL: fmt.Sprintf("/kiosks/%s", kioskID),
	})
}

// NotifyLowBalance fans a low-balance warning out to the kiosk's team.
func (s *Service) NotifyLowBalance(ctx context.Context, kioskID uuid.UUID, alerts []domain.LowBalanceAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	parts := make([]string, 0, len(alerts))
	for i := range alerts {
		parts = append(parts, fmt.Sprintf("%s at %s CFA", alerts[i].NetworkName, alerts[i].Balance.StringFixed(0)))
	}
	message := fmt.Sprintf("Balances below %s CFA: %s. Consider recharging before opening.",
		alerts[0].Threshold.StringFixed(0), strings.Join(parts, ", "))

	return s.fanOut(ctx, kioskID, &domain.Notification{
		Type:      domain.NotifyLowBalance,
		Priority:  domain.PriorityUrgent,
		Title:     "Low balance warning",
		Message:   message,
		ActionURL: fmt.Sprintf("/kiosks/%s/balances", kioskID),
	})
}

// NotifyDailySummary sends the end-of-day figures to the kiosk's team.
func (s *Service) NotifyDailySummary(ctx context.Context, kioskID uuid.UUID, data *domain.ReportData) error {
	message := fmt.Sprintf("%s on %s: %d transactions, %s CFA profit, cash %s CFA, float %s CFA.",
		data.KioskName, data.Date, data.TransactionCount,
		data.TotalProfit.StringFixed(0), data.CashBalance.StringFixed(0), data.FloatBalance.StringFixed(0))

	return s.fanOut(ctx, kioskID, &domain.Notification{
		Type:      domain.NotifyDailySummary,
		Priority:  domain.PriorityNormal,
		Title:     fmt.Sprintf("Daily summary for %s", data.KioskName),
		Message:   message,
		ActionURL: fmt.Sprintf("/kiosks/%s/reports/%s", kioskID, data.Date),
	})
}

func (s *Service) fanOut(ctx context.Context, kioskID uuid.UUID, template *domain.Notification) error {
	userIDs, err := s.recipients.KioskUserIDs(ctx, kioskID)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		n := *template
		n.ID = uuid.New()
		n.UserID = userID
		n.KioskID = &kioskID
		if err := s.Notify(ctx, &n); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.FindByUser(ctx, userID, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one notification read, only for its owner.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return errors.ErrNotAuthorized
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
