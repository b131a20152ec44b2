package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"floatbook/internal/domain"
	"floatbook/pkg/errors"
	"floatbook/pkg/logger"
)

// Repository is the persistence surface for rate-table administration. The
// read half mirrors RateSource; the rest mutates the tables.
type Repository interface {
	RateSource

	ListRatesByNetwork(ctx context.Context, networkID uuid.UUID) ([]domain.CommissionRate, error)
	CreateRate(ctx context.Context, rate *domain.CommissionRate) error
	UpdateRate(ctx context.Context, rate *domain.CommissionRate) error
	FindRateByID(ctx context.Context, id uuid.UUID) (*domain.CommissionRate, error)

	ListAgentRates(ctx context.Context, kioskID, networkID uuid.UUID, txType domain.TransactionType) ([]domain.AgentCommissionRate, error)
	UpsertAgentRate(ctx context.Context, rate *domain.AgentCommissionRate) error
	FindAgentRateByID(ctx context.Context, id uuid.UUID) (*domain.AgentCommissionRate, error)
	DeactivateAgentRate(ctx context.Context, id uuid.UUID) error
}

// Invalidator drops cached tier lists after a rate-table write. The cached
// rate source implements it; uncached deployments pass nil.
type Invalidator interface {
	InvalidateNetwork(ctx context.Context, networkID uuid.UUID)
	InvalidateAgent(ctx context.Context, kioskID, networkID uuid.UUID)
}

// Service owns rate-table administration. Every write invalidates the
// affected cache keys so the resolver never serves stale tiers.
type Service struct {
	repo        Repository
	invalidator Invalidator
	logger      logger.Logger
}

func NewService(repo Repository, inv Invalidator, log logger.Logger) *Service {
	return &Service{repo: repo, invalidator: inv, logger: log}
}

type RateRequest struct {
	NetworkID uuid.UUID       `json:"network_id" validate:"required"`
	MinAmount decimal.Decimal `json:"min_amount" validate:"gte=0"`
	MaxAmount decimal.Decimal `json:"max_amount" validate:"gt=0"`
	RateKind  domain.RateKind `json:"rate_kind" validate:"required,oneof=FIXED PERCENTAGE"`
	RateValue decimal.Decimal `json:"rate_value" validate:"gte=0"`
}

type AgentRateRequest struct {
	KioskID         uuid.UUID              `json:"kiosk_id" validate:"required"`
	NetworkID       uuid.UUID              `json:"network_id" validate:"required"`
	TransactionType domain.TransactionType `json:"transaction_type" validate:"required,oneof=DEPOSIT WITHDRAWAL"`
	MinAmount       decimal.Decimal        `json:"min_amount" validate:"gte=0"`
	MaxAmount       decimal.Decimal        `json:"max_amount" validate:"gt=0"`
	RateKind        domain.RateKind        `json:"rate_kind" validate:"required,oneof=FIXED PERCENTAGE"`
	RateValue       decimal.Decimal        `json:"rate_value" validate:"gte=0"`
}

// ListRates returns all tiers for a network, active or not, for the admin
// screen.
func (s *Service) ListRates(ctx context.Context, networkID uuid.UUID) ([]domain.CommissionRate, error) {
	return s.repo.ListRatesByNetwork(ctx, networkID)
}

// CreateRate adds a network-wide tier. Overlapping ranges are schema-legal;
// resolution picks the lowest min_amount first, so overlap is a configuration
// concern surfaced in the admin UI, not rejected here.
func (s *Service) CreateRate(ctx context.Context, req *RateRequest) (*domain.CommissionRate, error) {
	now := time.Now()
	rate := &domain.CommissionRate{
		ID:        uuid.New(),
		NetworkID: req.NetworkID,
		MinAmount: req.MinAmount,
		MaxAmount: req.MaxAmount,
		RateKind:  req.RateKind,
		RateValue: req.RateValue,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateRate(ctx, rate); err != nil {
		return nil, err
	}
	s.invalidateNetwork(ctx, req.NetworkID)

	s.logger.Info("Commission rate created", map[string]interface{}{
		"rate_id":    rate.ID,
		"network_id": rate.NetworkID,
		"range":      rate.MinAmount.String() + "-" + rate.MaxAmount.String(),
	})
	return rate, nil
}

// UpdateRate replaces a tier's range and value in place.
func (s *Service) UpdateRate(ctx context.Context, id uuid.UUID, req *RateRequest) (*domain.CommissionRate, error) {
	rate, err := s.repo.FindRateByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rate.MinAmount = req.MinAmount
	rate.MaxAmount = req.MaxAmount
	rate.RateKind = req.RateKind
	rate.RateValue = req.RateValue
	rate.UpdatedAt = time.Now()

	if err := s.repo.UpdateRate(ctx, rate); err != nil {
		return nil, err
	}
	s.invalidateNetwork(ctx, rate.NetworkID)
	return rate, nil
}

// DeactivateRate retires a tier without deleting it; historical transactions
// keep their already-resolved profit.
func (s *Service) DeactivateRate(ctx context.Context, id uuid.UUID) error {
	rate, err := s.repo.FindRateByID(ctx, id)
	if err != nil {
		return err
	}

	rate.IsActive = false
	rate.UpdatedAt = time.Now()
	if err := s.repo.UpdateRate(ctx, rate); err != nil {
		return err
	}
	s.invalidateNetwork(ctx, rate.NetworkID)
	return nil
}

// ListAgentRates returns a kiosk's override tiers for one network and type.
func (s *Service) ListAgentRates(ctx context.Context, kioskID, networkID uuid.UUID, txType domain.TransactionType) ([]domain.AgentCommissionRate, error) {
	return s.repo.ListAgentRates(ctx, kioskID, networkID, txType)
}

// UpsertAgentRate creates or replaces the override tier keyed on
// (kiosk, network, type, min, max).
func (s *Service) UpsertAgentRate(ctx context.Context, req *AgentRateRequest) (*domain.AgentCommissionRate, error) {
	now := time.Now()
	rate := &domain.AgentCommissionRate{
		ID:              uuid.New(),
		KioskID:         req.KioskID,
		NetworkID:       req.NetworkID,
		TransactionType: req.TransactionType,
		MinAmount:       req.MinAmount,
		MaxAmount:       req.MaxAmount,
		RateKind:        req.RateKind,
		RateValue:       req.RateValue,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.UpsertAgentRate(ctx, rate); err != nil {
		return nil, err
	}
	s.invalidateAgent(ctx, req.KioskID, req.NetworkID)

	s.logger.Info("Agent commission rate saved", map[string]interface{}{
		"kiosk_id":         rate.KioskID,
		"network_id":       rate.NetworkID,
		"transaction_type": rate.TransactionType,
	})
	return rate, nil
}

// DeactivateAgentRate retires an override tier. The rate must belong to the
// given kiosk.
func (s *Service) DeactivateAgentRate(ctx context.Context, kioskID, id uuid.UUID) error {
	rate, err := s.repo.FindAgentRateByID(ctx, id)
	if err != nil {
		return err
	}
	if rate.KioskID != kioskID {
		return errors.ErrRateNotFound
	}

	if err := s.repo.DeactivateAgentRate(ctx, id); err != nil {
		return err
	}
	s.invalidateAgent(ctx, rate.KioskID, rate.NetworkID)
	return nil
}

func (s *Service) invalidateNetwork(ctx context.Context, networkID uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.InvalidateNetwork(ctx, networkID)
	}
}

func (s *Service) invalidateAgent(ctx context.Context, kioskID, networkID uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.InvalidateAgent(ctx, kioskID, networkID)
	}
}
