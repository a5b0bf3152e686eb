package notifications

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	Insert(ctx context.Context, notification *Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	ListUserIDsByDivision(ctx context.Context, divisionID uuid.UUID) ([]uuid.UUID, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Insert(ctx context.Context, notification *Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, submission_id, kind, subject, body)
		VALUES (:id, :user_id, :submission_id, :kind, :subject, :body)`
	_, err := r.db.NamedExecContext(ctx, query, notification)
	return err
}

func (r *postgresRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, error) {
	items := []Notification{}
	query := `
		SELECT * FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &items, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *postgresRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		UPDATE notifications SET read_at = NOW()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *postgresRepository) ListUserIDsByDivision(ctx context.Context, divisionID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	query := `SELECT id FROM users WHERE division_id = $1`
	if err := r.db.SelectContext(ctx, &ids, query, divisionID); err != nil {
		return nil, err
	}
	return ids, nil
}
