// Package ledger records individual cash movements and assigns commission to
// them at write time.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"floatbook/internal/commission"
	"floatbook/internal/domain"
	"floatbook/pkg/logger"
)

// Repository is the transaction persistence surface.
type Repository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	Update(ctx context.Context, tx *domain.Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	FindByKiosk(ctx context.Context, kioskID uuid.UUID, limit, offset int) ([]domain.Transaction, error)
	CountByKiosk(ctx context.Context, kioskID uuid.UUID) (int, error)
	FindByKioskAndDay(ctx context.Context, kioskID uuid.UUID, day time.Time) ([]domain.Transaction, error)
	FindByCustomerPhone(ctx context.Context, kioskID uuid.UUID, phone string, limit int) ([]domain.Transaction, error)
}

// Service validates, prices, and persists ledger entries. Commission comes
// from the resolver on every write; the agent may pin profit manually, after
// which recomputation only refreshes the calculated figure for audit display.
type Service struct {
	repo     Repository
	resolver *commission.Resolver
	logger   logger.Logger
}

func NewService(repo Repository, resolver *commission.Resolver, log logger.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, logger: log}
}

// RecordRequest is the transaction-entry input shape. Candidate tuples from
// the OCR/SMS collaborators arrive through the same struct with no special
// trust; they are re-validated and re-priced like manual entry.
type RecordRequest struct {
	KioskID         uuid.UUID              `json:"kiosk_id" validate:"required"`
	NetworkID       uuid.UUID              `json:"network_id" validate:"required"`
	RecordedBy      *uuid.UUID             `json:"-"`
	TransactionType domain.TransactionType `json:"transaction_type" validate:"required,oneof=DEPOSIT WITHDRAWAL PROFIT_WITHDRAWAL"`
	Amount          decimal.Decimal        `json:"amount" validate:"required,gt=0"`
	CustomerPhone   string                 `json:"customer_phone" validate:"omitempty,msisdn"`
	CustomerName    string                 `json:"customer_name" validate:"max=100"`
	TransactionRef  string                 `json:"transaction_ref" validate:"max=100"`
	Notes           string                 `json:"notes"`
	SMSText         string                 `json:"sms_text"`
	Timestamp       *time.Time             `json:"timestamp"`
	// ProfitOverride pins profit from birth; the entry starts USER_OVERRIDDEN.
	ProfitOverride *decimal.Decimal `json:"profit_override"`
}

// UpdateRequest carries an edit to an existing entry. Nil fields are left
// untouched. Setting Profit flips the entry to USER_OVERRIDDEN permanently.
type UpdateRequest struct {
	Amount         *decimal.Decimal        `json:"amount" validate:"omitempty,gt=0"`
	NetworkID      *uuid.UUID              `json:"network_id"`
	Type           *domain.TransactionType `json:"transaction_type" validate:"omitempty,oneof=DEPOSIT WITHDRAWAL PROFIT_WITHDRAWAL"`
	Profit         *decimal.Decimal        `json:"profit" validate:"omitempty,gte=0"`
	CustomerPhone  *string                 `json:"customer_phone"`
	CustomerName   *string                 `json:"customer_name"`
	TransactionRef *string                 `json:"transaction_ref"`
	Notes          *string                 `json:"notes"`
	Timestamp      *time.Time              `json:"timestamp"`
}

// Record prices and persists a new ledger entry.
func (s *Service) Record(ctx context.Context, req *RecordRequest) (*domain.Transaction, error) {
	now := time.Now()
	ts := now
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	calculated, err := s.resolver.ResolveForTransaction(
		ctx, req.KioskID, req.NetworkID, req.TransactionType, req.Amount)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:               uuid.New(),
		KioskID:          req.KioskID,
		NetworkID:        req.NetworkID,
		RecordedBy:       req.RecordedBy,
		TransactionType:  req.TransactionType,
		Amount:           req.Amount,
		CalculatedProfit: calculated,
		Profit:           calculated,
		ProfitState:      domain.ProfitSystemComputed,
		CustomerPhone:    req.CustomerPhone,
		CustomerName:     req.CustomerName,
		TransactionRef:   req.TransactionRef,
		Notes:            req.Notes,
		SMSText:          req.SMSText,
		Timestamp:        ts,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if req.ProfitOverride != nil {
		tx.Profit = *req.ProfitOverride
		tx.ProfitState = domain.ProfitUserOverridden
	}

	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("Transaction recorded", map[string]interface{}{
		"transaction_id": tx.ID,
		"kiosk_id":       tx.KioskID,
		"type":           tx.TransactionType,
		"amount":         tx.Amount.String(),
		"profit":         tx.Profit.String(),
	})
	return tx, nil
}

// Update edits an entry and re-runs commission resolution. CalculatedProfit
// is always refreshed; Profit follows it only while the entry is still
// SYSTEM_COMPUTED.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*domain.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Amount != nil {
		tx.Amount = *req.Amount
	}
	if req.NetworkID != nil {
		tx.NetworkID = *req.NetworkID
	}
	if req.Type != nil {
		tx.TransactionType = *req.Type
	}
	if req.CustomerPhone != nil {
		tx.CustomerPhone = *req.CustomerPhone
	}
	if req.CustomerName != nil {
		tx.CustomerName = *req.CustomerName
	}
	if req.TransactionRef != nil {
		tx.TransactionRef = *req.TransactionRef
	}
	if req.Notes != nil {
		tx.Notes = *req.Notes
	}
	if req.Timestamp != nil {
		tx.Timestamp = *req.Timestamp
	}

	if req.Profit != nil {
		tx.Profit = *req.Profit
		tx.ProfitState = domain.ProfitUserOverridden
	}

	calculated, err := s.resolver.ResolveForTransaction(
		ctx, tx.KioskID, tx.NetworkID, tx.TransactionType, tx.Amount)
	if err != nil {
		return nil, err
	}
	tx.CalculatedProfit = calculated
	if tx.ProfitState == domain.ProfitSystemComputed {
		tx.Profit = calculated
	}

	tx.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("Transaction updated", map[string]interface{}{
		"transaction_id": tx.ID,
		"profit_state":   tx.ProfitState,
	})
	return tx, nil
}

// Delete removes an entry permanently. There is no tombstone; past day folds
// that included this entry change retroactively. Owner-only at the handler
// layer.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Warn("Transaction hard-deleted", map[string]interface{}{"transaction_id": id})
	return nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.repo.FindByID(ctx, id)
}

// ListForKiosk returns a kiosk's entries, newest first, with the total count
// for pagination. The limit defaults to 50 and is capped at 200.
func (s *Service) ListForKiosk(ctx context.Context, kioskID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	txs, err := s.repo.FindByKiosk(ctx, kioskID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountByKiosk(ctx, kioskID)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// ListForDay returns every entry timestamped on the given calendar day. This
// is the feed the balance engine folds.
func (s *Service) ListForDay(ctx context.Context, kioskID uuid.UUID, day time.Time) ([]domain.Transaction, error) {
	return s.repo.FindByKioskAndDay(ctx, kioskID, day)
}

// SearchByCustomer returns a kiosk's recent entries for one customer phone.
func (s *Service) SearchByCustomer(ctx context.Context, kioskID uuid.UUID, phone string, limit int) ([]domain.Transaction, error) {
	return s.repo.FindByCustomerPhone(ctx, kioskID, phone, limit)
}
