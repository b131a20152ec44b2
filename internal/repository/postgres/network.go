package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"floatbook/internal/domain"
	"floatbook/pkg/errors"
)

type NetworkRepository struct {
	db *sqlx.DB
}

func NewNetworkRepository(db *sqlx.DB) *NetworkRepository {
	return &NetworkRepository{db: db}
}

func (r *NetworkRepository) Create(ctx context.Context, network *domain.Network) error {
	query := `
		INSERT INTO networks (id, code, name, color, is_active, created_at)
		VALUES (:id, :code, :name, :color, :is_active, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, network)
	return errors.Wrap(err, "failed to create network")
}

func (r *NetworkRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Network, error) {
	network := &domain.Network{}
	query := `SELECT * FROM networks WHERE id = $1`
	err := r.db.GetContext(ctx, network, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNetworkNotFound
		}
		return nil, errors.Wrap(err, "failed to find network by id")
	}
	return network, nil
}

func (r *NetworkRepository) FindByCode(ctx context.Context, code string) (*domain.Network, error) {
	network := &domain.Network{}
	query := `SELECT * FROM networks WHERE code = $1`
	err := r.db.GetContext(ctx, network, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNetworkNotFound
		}
		return nil, errors.Wrap(err, "failed to find network by code")
	}
	return network, nil
}

func (r *NetworkRepository) AllNetworks(ctx context.Context) ([]domain.Network, error) {
	var networks []domain.Network
	query := `SELECT * FROM networks ORDER BY code`
	err := r.db.SelectContext(ctx, &networks, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list networks")
	}
	return networks, nil
}

func (r *NetworkRepository) ActiveNetworks(ctx context.Context) ([]domain.Network, error) {
	var networks []domain.Network
	query := `SELECT * FROM networks WHERE is_active = true ORDER BY code`
	err := r.db.SelectContext(ctx, &networks, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list active networks")
	}
	return networks, nil
}
