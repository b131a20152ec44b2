package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"floatbook/internal/domain"
	"floatbook/pkg/errors"
)

// TransactionRepository is the ledger store. Besides CRUD it provides the
// day-windowed reads the balance engine folds over and the aggregates the
// report service asks for.
type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, kiosk_id, network_id, recorded_by, transaction_type, amount,
			calculated_profit, profit, profit_state, customer_phone, customer_name,
			transaction_ref, notes, sms_text, timestamp, created_at, updated_at
		) VALUES (
			:id, :kiosk_id, :network_id, :recorded_by, :transaction_type, :amount,
			:calculated_profit, :profit, :profit_state, :customer_phone, :customer_name,
			:transaction_ref, :notes, :sms_text, :timestamp, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, tx)
	return errors.Wrap(err, "failed to create transaction")
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	tx.UpdatedAt = time.Now()
	query := `
		UPDATE transactions SET
			network_id = :network_id,
			transaction_type = :transaction_type,
			amount = :amount,
			calculated_profit = :calculated_profit,
			profit = :profit,
			profit_state = :profit_state,
			customer_phone = :customer_phone,
			customer_name = :customer_name,
			transaction_ref = :transaction_ref,
			notes = :notes,
			timestamp = :timestamp,
			updated_at = :updated_at
		WHERE id = :id
	`
	_, err := r.db.NamedExecContext(ctx, query, tx)
	return errors.Wrap(err, "failed to update transaction")
}

func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete transaction")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	tx := &domain.Transaction{}
	query := `SELECT * FROM transactions WHERE id = $1`
	err := r.db.GetContext(ctx, tx, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrTransactionNotFound
		}
		return nil, errors.Wrap(err, "failed to find transaction")
	}
	return tx, nil
}

func (r *TransactionRepository) FindByKiosk(ctx context.Context, kioskID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	query := `
		SELECT * FROM transactions
		WHERE kiosk_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	err := r.db.SelectContext(ctx, &txs, query, kioskID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list transactions")
	}
	return txs, nil
}

func (r *TransactionRepository) CountByKiosk(ctx context.Context, kioskID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM transactions WHERE kiosk_id = $1`, kioskID)
	return count, errors.Wrap(err, "failed to count transactions")
}

func (r *TransactionRepository) FindByKioskAndDay(ctx context.Context, kioskID uuid.UUID, day time.Time) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	query := `
		SELECT * FROM transactions
		WHERE kiosk_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC
	`
	err := r.db.SelectContext(ctx, &txs, query, kioskID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list day transactions")
	}
	return txs, nil
}

// FindByKioskBetween returns transactions with from <= date(timestamp) <= to.
func (r *TransactionRepository) FindByKioskBetween(ctx context.Context, kioskID uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	query := `
		SELECT * FROM transactions
		WHERE kiosk_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC
	`
	err := r.db.SelectContext(ctx, &txs, query, kioskID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list transactions in range")
	}
	return txs, nil
}

func (r *TransactionRepository) FindByCustomerPhone(ctx context.Context, kioskID uuid.UUID, phone string, limit int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	query := `
		SELECT * FROM transactions
		WHERE kiosk_id = $1 AND customer_phone = $2
		ORDER BY timestamp DESC
		LIMIT $3
	`
	err := r.db.SelectContext(ctx, &txs, query, kioskID, phone, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search transactions by customer")
	}
	return txs, nil
}

func (r *TransactionRepository) EarliestTimestamp(ctx context.Context, kioskID uuid.UUID) (*time.Time, error) {
	var ts sql.NullTime
	query := `SELECT MIN(timestamp) FROM transactions WHERE kiosk_id = $1`
	if err := r.db.GetContext(ctx, &ts, query, kioskID); err != nil {
		return nil, errors.Wrap(err, "failed to find earliest transaction")
	}
	if !ts.Valid {
		return nil, nil
	}
	return &ts.Time, nil
}

func (r *TransactionRepository) ProfitSumByDay(ctx context.Context, kioskID uuid.UUID, day time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `
		SELECT COALESCE(SUM(profit), 0) FROM transactions
		WHERE kiosk_id = $1 AND timestamp >= $2 AND timestamp < $3
	`
	err := r.db.GetContext(ctx, &sum, query, kioskID, day, day.AddDate(0, 0, 1))
	return sum, errors.Wrap(err, "failed to sum profit for day")
}

func (r *TransactionRepository) AvgProfitBetween(ctx context.Context, kioskID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var avg decimal.Decimal
	query := `
		SELECT COALESCE(AVG(profit), 0) FROM transactions
		WHERE kiosk_id = $1 AND timestamp >= $2 AND timestamp < $3
	`
	err := r.db.GetContext(ctx, &avg, query, kioskID, from, to.AddDate(0, 0, 1))
	return avg, errors.Wrap(err, "failed to average profit")
}

func (r *TransactionRepository) AmountSumByType(ctx context.Context, kioskID uuid.UUID, txType domain.TransactionType, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE kiosk_id = $1 AND transaction_type = $2 AND timestamp >= $3 AND timestamp < $4
	`
	err := r.db.GetContext(ctx, &sum, query, kioskID, txType, from, to.AddDate(0, 0, 1))
	return sum, errors.Wrap(err, "failed to sum amount by type")
}

func (r *TransactionRepository) TopCustomers(ctx context.Context, kioskID uuid.UUID, from, to time.Time, limit int) ([]domain.CustomerVolume, error) {
	var customers []domain.CustomerVolume
	query := `
		SELECT customer_phone, SUM(amount) AS total_amount, COUNT(*) AS tx_count
		FROM transactions
		WHERE kiosk_id = $1 AND timestamp >= $2 AND timestamp < $3 AND customer_phone <> ''
		GROUP BY customer_phone
		ORDER BY total_amount DESC
		LIMIT $4
	`
	err := r.db.SelectContext(ctx, &customers, query, kioskID, from, to.AddDate(0, 0, 1), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to rank customers")
	}
	return customers, nil
}
