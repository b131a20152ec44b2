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

// DailyBalanceRepository stores explicit opening balances and their
// per-network float children. Create writes both in one transaction so a day
// never starts half-initialized.
type DailyBalanceRepository struct {
	db *sqlx.DB
}

func NewDailyBalanceRepository(db *sqlx.DB) *DailyBalanceRepository {
	return &DailyBalanceRepository{db: db}
}

func (r *DailyBalanceRepository) FindByKioskAndDate(ctx context.Context, kioskID uuid.UUID, date time.Time) (*domain.DailyOpeningBalance, error) {
	bal := &domain.DailyOpeningBalance{}
	query := `SELECT * FROM daily_opening_balances WHERE kiosk_id = $1 AND date = $2`
	err := r.db.GetContext(ctx, bal, query, kioskID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrOpeningBalanceNotFound
		}
		return nil, errors.Wrap(err, "failed to find opening balance")
	}
	return bal, nil
}

func (r *DailyBalanceRepository) FindLatestBefore(ctx context.Context, kioskID uuid.UUID, date time.Time) (*domain.DailyOpeningBalance, error) {
	bal := &domain.DailyOpeningBalance{}
	query := `
		SELECT * FROM daily_opening_balances
		WHERE kiosk_id = $1 AND date < $2
		ORDER BY date DESC
		LIMIT 1
	`
	err := r.db.GetContext(ctx, bal, query, kioskID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrOpeningBalanceNotFound
		}
		return nil, errors.Wrap(err, "failed to find latest opening balance")
	}
	return bal, nil
}

func (r *DailyBalanceRepository) FloatsForBalance(ctx context.Context, balanceID uuid.UUID) ([]domain.NetworkFloatBalance, error) {
	var floats []domain.NetworkFloatBalance
	query := `SELECT * FROM network_float_balances WHERE daily_balance_id = $1`
	err := r.db.SelectContext(ctx, &floats, query, balanceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list float balances")
	}
	return floats, nil
}

func (r *DailyBalanceRepository) Create(ctx context.Context, bal *domain.DailyOpeningBalance, floats []domain.NetworkFloatBalance) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	balQuery := `
		INSERT INTO daily_opening_balances (
			id, kiosk_id, date, opening_cash, adjustment_reason, adjustment_notes,
			created_by, created_at, updated_at
		) VALUES (
			:id, :kiosk_id, :date, :opening_cash, :adjustment_reason, :adjustment_notes,
			:created_by, :created_at, :updated_at
		)
	`
	if _, err := tx.NamedExecContext(ctx, balQuery, bal); err != nil {
		return errors.Wrap(err, "failed to create opening balance")
	}

	floatQuery := `
		INSERT INTO network_float_balances (id, daily_balance_id, network_id, opening_float)
		VALUES (:id, :daily_balance_id, :network_id, :opening_float)
	`
	for i := range floats {
		if _, err := tx.NamedExecContext(ctx, floatQuery, &floats[i]); err != nil {
			return errors.Wrap(err, "failed to create float balance")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit opening balance")
}

func (r *DailyBalanceRepository) Update(ctx context.Context, bal *domain.DailyOpeningBalance) error {
	bal.UpdatedAt = time.Now()
	query := `
		UPDATE daily_opening_balances SET
			opening_cash = :opening_cash,
			adjustment_reason = :adjustment_reason,
			adjustment_notes = :adjustment_notes,
			updated_at = :updated_at
		WHERE id = :id
	`
	_, err := r.db.NamedExecContext(ctx, query, bal)
	return errors.Wrap(err, "failed to update opening balance")
}

func (r *DailyBalanceRepository) UpsertFloat(ctx context.Context, f *domain.NetworkFloatBalance) error {
	query := `
		INSERT INTO network_float_balances (id, daily_balance_id, network_id, opening_float)
		VALUES (:id, :daily_balance_id, :network_id, :opening_float)
		ON CONFLICT (daily_balance_id, network_id)
		DO UPDATE SET opening_float = EXCLUDED.opening_float
	`
	_, err := r.db.NamedExecContext(ctx, query, f)
	return errors.Wrap(err, "failed to upsert float balance")
}
