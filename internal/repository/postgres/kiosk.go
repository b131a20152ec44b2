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

type KioskRepository struct {
	db *sqlx.DB
}

func NewKioskRepository(db *sqlx.DB) *KioskRepository {
	return &KioskRepository{db: db}
}

func (r *KioskRepository) Create(ctx context.Context, kiosk *domain.Kiosk) error {
	query := `
		INSERT INTO kiosks (id, name, slug, owner_id, location, is_active, created_at, updated_at)
		VALUES (:id, :name, :slug, :owner_id, :location, :is_active, :created_at, :updated_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, kiosk)
	return errors.Wrap(err, "failed to create kiosk")
}

func (r *KioskRepository) Update(ctx context.Context, kiosk *domain.Kiosk) error {
	kiosk.UpdatedAt = time.Now()
	query := `
		UPDATE kiosks SET
			name = :name,
			location = :location,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id
	`
	_, err := r.db.NamedExecContext(ctx, query, kiosk)
	return errors.Wrap(err, "failed to update kiosk")
}

func (r *KioskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Kiosk, error) {
	kiosk := &domain.Kiosk{}
	query := `SELECT * FROM kiosks WHERE id = $1`
	err := r.db.GetContext(ctx, kiosk, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrKioskNotFound
		}
		return nil, errors.Wrap(err, "failed to find kiosk by id")
	}
	return kiosk, nil
}

func (r *KioskRepository) FindBySlug(ctx context.Context, slug string) (*domain.Kiosk, error) {
	kiosk := &domain.Kiosk{}
	query := `SELECT * FROM kiosks WHERE slug = $1`
	err := r.db.GetContext(ctx, kiosk, query, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrKioskNotFound
		}
		return nil, errors.Wrap(err, "failed to find kiosk by slug")
	}
	return kiosk, nil
}

// AllActive returns every active kiosk, for batch jobs.
func (r *KioskRepository) AllActive(ctx context.Context) ([]domain.Kiosk, error) {
	kiosks := []domain.Kiosk{}
	query := `SELECT * FROM kiosks WHERE is_active = TRUE ORDER BY created_at`
	err := r.db.SelectContext(ctx, &kiosks, query)
	return kiosks, errors.Wrap(err, "failed to list active kiosks")
}

func (r *KioskRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM kiosks WHERE slug = $1)`, slug)
	return exists, errors.Wrap(err, "failed to check slug")
}

// FindByUser returns active kiosks the user owns plus active kiosks they are
// a member of.
func (r *KioskRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Kiosk, error) {
	var kiosks []domain.Kiosk
	query := `
		SELECT k.* FROM kiosks k
		WHERE k.owner_id = $1 AND k.is_active = TRUE
		UNION
		SELECT k.* FROM kiosks k
		JOIN kiosk_members m ON m.kiosk_id = k.id
		WHERE m.user_id = $1 AND k.is_active = TRUE
		ORDER BY name
	`
	err := r.db.SelectContext(ctx, &kiosks, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list kiosks for user")
	}
	return kiosks, nil
}

func (r *KioskRepository) AddMember(ctx context.Context, member *domain.KioskMember) error {
	query := `
		INSERT INTO kiosk_members (id, kiosk_id, user_id, role, joined_at)
		VALUES (:id, :kiosk_id, :user_id, :role, :joined_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, member)
	return errors.Wrap(err, "failed to add member")
}

func (r *KioskRepository) RemoveMember(ctx context.Context, kioskID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM kiosk_members WHERE kiosk_id = $1 AND user_id = $2`, kioskID, userID)
	if err != nil {
		return errors.Wrap(err, "failed to remove member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrMemberNotFound
	}
	return nil
}

func (r *KioskRepository) FindMember(ctx context.Context, kioskID, userID uuid.UUID) (*domain.KioskMember, error) {
	member := &domain.KioskMember{}
	query := `SELECT * FROM kiosk_members WHERE kiosk_id = $1 AND user_id = $2`
	err := r.db.GetContext(ctx, member, query, kioskID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrMemberNotFound
		}
		return nil, errors.Wrap(err, "failed to find member")
	}
	return member, nil
}

func (r *KioskRepository) ListMembers(ctx context.Context, kioskID uuid.UUID) ([]domain.KioskMember, error) {
	var members []domain.KioskMember
	query := `SELECT * FROM kiosk_members WHERE kiosk_id = $1 ORDER BY joined_at`
	err := r.db.SelectContext(ctx, &members, query, kioskID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list members")
	}
	return members, nil
}

// KioskUserIDs returns the owner and every member, for notification fan-out.
func (r *KioskRepository) KioskUserIDs(ctx context.Context, kioskID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `
		SELECT owner_id FROM kiosks WHERE id = $1
		UNION
		SELECT user_id FROM kiosk_members WHERE kiosk_id = $1
	`
	err := r.db.SelectContext(ctx, &ids, query, kioskID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list kiosk users")
	}
	return ids, nil
}
