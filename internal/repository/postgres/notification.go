package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"floatbook/internal/domain"
	"floatbook/pkg/errors"
)

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, type, priority, title, message, kiosk_id, action_url, is_read, created_at
		) VALUES (
			:id, :user_id, :type, :priority, :title, :message, :kiosk_id, :action_url, :is_read, :created_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, n)
	return errors.Wrap(err, "failed to create notification")
}

func (r *NotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	n := &domain.Notification{}
	query := `SELECT * FROM notifications WHERE id = $1`
	err := r.db.GetContext(ctx, n, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotificationNotFound
		}
		return nil, errors.Wrap(err, "failed to find notification")
	}
	return n, nil
}

func (r *NotificationRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, error) {
	var notifications []domain.Notification
	query := `
		SELECT * FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	err := r.db.SelectContext(ctx, &notifications, query, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	return notifications, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`
	err := r.db.GetContext(ctx, &count, query, userID)
	return count, errors.Wrap(err, "failed to count unread notifications")
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to mark notification read")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`, userID)
	return errors.Wrap(err, "failed to mark notifications read")
}
