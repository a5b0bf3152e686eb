package verification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"docuflow/approval-portal/approval-portal-backend/internal/apperrors"
)

// Summary is the public verification view of a submission. Only fields a
// third party holding the printed stamp may see.
type Summary struct {
	SubmissionID uuid.UUID  `json:"submission_id" db:"submission_id"`
	Title        string     `json:"title" db:"title"`
	Status       string     `json:"status" db:"status"`
	ApprovedBy   *string    `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Service issues and resolves public verification tokens. Tokens are lazily
// created on first use and never rotate; they are independent of workflow
// state.
type Service struct {
	db        *sqlx.DB
	publicURL string
	logger    *zap.Logger
}

func NewService(db *sqlx.DB, publicURL string, logger *zap.Logger) *Service {
	return &Service{db: db, publicURL: publicURL, logger: logger}
}

// EnsureToken returns the submission's verification token, minting one on
// first call. COALESCE keeps concurrent first calls converging on whichever
// token committed first.
func (s *Service) EnsureToken(ctx context.Context, submissionID uuid.UUID) (uuid.UUID, error) {
	var token uuid.UUID
	err := s.db.GetContext(ctx, &token,
		`UPDATE submissions
		 SET verification_token = COALESCE(verification_token, $2)
		 WHERE id = $1
		 RETURNING verification_token`,
		submissionID, uuid.New())
	if err == sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("submission %s: %w", submissionID, apperrors.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("ensure verification token: %w", err)
	}
	return token, nil
}

// URL builds the public verification URL for a token.
func (s *Service) URL(token uuid.UUID) string {
	return fmt.Sprintf("%s/api/v1/verify/%s", s.publicURL, token)
}

// Lookup resolves a token to its public summary.
func (s *Service) Lookup(ctx context.Context, token uuid.UUID) (*Summary, error) {
	var summary Summary
	err := s.db.GetContext(ctx, &summary,
		`SELECT s.id AS submission_id, s.title, s.status, u.name AS approved_by, s.approved_at, s.created_at
		 FROM submissions s
		 LEFT JOIN users u ON u.id = s.approved_by
		 WHERE s.verification_token = $1`,
		token)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("token %s: %w", token, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup verification token: %w", err)
	}
	return &summary, nil
}
