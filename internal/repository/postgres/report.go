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

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, report *domain.DailyReport) error {
	query := `
		INSERT INTO daily_reports (id, kiosk_id, date, data, created_at)
		VALUES (:id, :kiosk_id, :date, :data, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, report)
	return errors.Wrap(err, "failed to create report")
}

func (r *ReportRepository) FindByKioskAndDate(ctx context.Context, kioskID uuid.UUID, date time.Time) (*domain.DailyReport, error) {
	report := &domain.DailyReport{}
	query := `SELECT * FROM daily_reports WHERE kiosk_id = $1 AND date = $2`
	err := r.db.GetContext(ctx, report, query, kioskID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrReportNotFound
		}
		return nil, errors.Wrap(err, "failed to find report")
	}
	return report, nil
}

func (r *ReportRepository) ListByKiosk(ctx context.Context, kioskID uuid.UUID, limit int) ([]domain.DailyReport, error) {
	var reports []domain.DailyReport
	query := `
		SELECT * FROM daily_reports
		WHERE kiosk_id = $1
		ORDER BY date DESC
		LIMIT $2
	`
	err := r.db.SelectContext(ctx, &reports, query, kioskID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reports")
	}
	return reports, nil
}
