package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"floatbook/internal/domain"
	"floatbook/pkg/errors"
)

// CommissionRateRepository stores both the network-wide tier tables and the
// kiosk-scoped agent overrides. Tier reads are ordered lowest minimum first,
// oldest first, which is the resolution order.
type CommissionRateRepository struct {
	db *sqlx.DB
}

func NewCommissionRateRepository(db *sqlx.DB) *CommissionRateRepository {
	return &CommissionRateRepository{db: db}
}

func (r *CommissionRateRepository) ActiveRatesByNetwork(ctx context.Context, networkID uuid.UUID) ([]domain.CommissionRate, error) {
	var rates []domain.CommissionRate
	query := `
		SELECT * FROM commission_rates
		WHERE network_id = $1 AND is_active = true
		ORDER BY min_amount ASC, created_at ASC
	`
	err := r.db.SelectContext(ctx, &rates, query, networkID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active commission rates")
	}
	return rates, nil
}

func (r *CommissionRateRepository) ListRatesByNetwork(ctx context.Context, networkID uuid.UUID) ([]domain.CommissionRate, error) {
	var rates []domain.CommissionRate
	query := `
		SELECT * FROM commission_rates
		WHERE network_id = $1
		ORDER BY min_amount ASC, created_at ASC
	`
	err := r.db.SelectContext(ctx, &rates, query, networkID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list commission rates")
	}
	return rates, nil
}

func (r *CommissionRateRepository) CreateRate(ctx context.Context, rate *domain.CommissionRate) error {
	query := `
		INSERT INTO commission_rates (
			id, network_id, min_amount, max_amount, rate_kind, rate_value, is_active, created_at, updated_at
		) VALUES (
			:id, :network_id, :min_amount, :max_amount, :rate_kind, :rate_value, :is_active, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, rate)
	return errors.Wrap(err, "failed to create commission rate")
}

func (r *CommissionRateRepository) UpdateRate(ctx context.Context, rate *domain.CommissionRate) error {
	rate.UpdatedAt = time.Now()
	query := `
		UPDATE commission_rates SET
			min_amount = :min_amount,
			max_amount = :max_amount,
			rate_kind = :rate_kind,
			rate_value = :rate_value,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id
	`
	_, err := r.db.NamedExecContext(ctx, query, rate)
	return errors.Wrap(err, "failed to update commission rate")
}

func (r *CommissionRateRepository) FindRateByID(ctx context.Context, id uuid.UUID) (*domain.CommissionRate, error) {
	rate := &domain.CommissionRate{}
	query := `SELECT * FROM commission_rates WHERE id = $1`
	err := r.db.GetContext(ctx, rate, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrRateNotFound
		}
		return nil, errors.Wrap(err, "failed to find commission rate")
	}
	return rate, nil
}

func (r *CommissionRateRepository) ActiveAgentRates(ctx context.Context, kioskID, networkID uuid.UUID, txType domain.TransactionType) ([]domain.AgentCommissionRate, error) {
	var rates []domain.AgentCommissionRate
	query := `
		SELECT * FROM agent_commission_rates
		WHERE kiosk_id = $1 AND network_id = $2 AND transaction_type = $3 AND is_active = true
		ORDER BY min_amount ASC, created_at ASC
	`
	err := r.db.SelectContext(ctx, &rates, query, kioskID, networkID, txType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active agent rates")
	}
	return rates, nil
}

func (r *CommissionRateRepository) ListAgentRates(ctx context.Context, kioskID, networkID uuid.UUID, txType domain.TransactionType) ([]domain.AgentCommissionRate, error) {
	var rates []domain.AgentCommissionRate
	query := `
		SELECT * FROM agent_commission_rates
		WHERE kiosk_id = $1 AND network_id = $2 AND transaction_type = $3
		ORDER BY min_amount ASC, created_at ASC
	`
	err := r.db.SelectContext(ctx, &rates, query, kioskID, networkID, txType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list agent rates")
	}
	return rates, nil
}

// UpsertAgentRate replaces the tier with the same range if one exists, so
// editing a tier in place does not accumulate duplicates.
func (r *CommissionRateRepository) UpsertAgentRate(ctx context.Context, rate *domain.AgentCommissionRate) error {
	query := `
		INSERT INTO agent_commission_rates (
			id, kiosk_id, network_id, transaction_type, min_amount, max_amount,
			rate_kind, rate_value, is_active, created_at, updated_at
		) VALUES (
			:id, :kiosk_id, :network_id, :transaction_type, :min_amount, :max_amount,
			:rate_kind, :rate_value, :is_active, :created_at, :updated_at
		)
		ON CONFLICT (kiosk_id, network_id, transaction_type, min_amount, max_amount)
		DO UPDATE SET
			rate_kind = EXCLUDED.rate_kind,
			rate_value = EXCLUDED.rate_value,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.NamedExecContext(ctx, query, rate)
	return errors.Wrap(err, "failed to upsert agent rate")
}

func (r *CommissionRateRepository) FindAgentRateByID(ctx context.Context, id uuid.UUID) (*domain.AgentCommissionRate, error) {
	rate := &domain.AgentCommissionRate{}
	query := `SELECT * FROM agent_commission_rates WHERE id = $1`
	err := r.db.GetContext(ctx, rate, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrRateNotFound
		}
		return nil, errors.Wrap(err, "failed to find agent rate")
	}
	return rate, nil
}

func (r *CommissionRateRepository) DeactivateAgentRate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE agent_commission_rates SET is_active = false, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return errors.Wrap(err, "failed to deactivate agent rate")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrRateNotFound
	}
	return nil
}
