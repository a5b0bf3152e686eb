package permissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages the global subdivision permission table. Step permissions
// are edited through the workflow editor and only read here.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListGlobal(ctx context.Context) ([]GlobalPermission, error) {
	return s.repo.ListGlobal(ctx)
}

func (s *Service) GetGlobal(ctx context.Context, subdivisionID uuid.UUID) (*GlobalPermission, error) {
	perm, err := s.repo.GetGlobalForSubdivision(ctx, subdivisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load global permission: %w", err)
	}
	if perm == nil {
		// Absent row means no grants; return an explicit all-false row so
		// the admin UI always has something to render.
		return &GlobalPermission{SubdivisionID: subdivisionID}, nil
	}
	return perm, nil
}

// SetGlobal replaces the permission row for a subdivision.
func (s *Service) SetGlobal(ctx context.Context, perm *GlobalPermission) (*GlobalPermission, error) {
	if perm.ID == uuid.Nil {
		perm.ID = uuid.New()
	}
	if err := s.repo.UpsertGlobal(ctx, perm); err != nil {
		return nil, fmt.Errorf("failed to save global permission: %w", err)
	}

	s.logger.Info("Global permission updated",
		zap.String("subdivision_id", perm.SubdivisionID.String()),
		zap.Bool("can_view", perm.CanView),
		zap.Bool("can_edit", perm.CanEdit))

	return s.repo.GetGlobalForSubdivision(ctx, perm.SubdivisionID)
}

func (s *Service) ListForStep(ctx context.Context, workflowStepID uuid.UUID) ([]StepPermission, error) {
	return s.repo.ListStepPermissions(ctx, workflowStepID)
}
