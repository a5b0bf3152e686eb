package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docuflow/approval-portal/approval-portal-backend/internal/apperrors"
	"docuflow/approval-portal/approval-portal-backend/internal/permissions"
)

// Service provides business logic for workflow definition management.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateWorkflowRequest is the API payload for creating a workflow.
type CreateWorkflowRequest struct {
	Name           string      `json:"name"`
	DivisionID     uuid.UUID   `json:"division_id"`
	DocumentTypeID uuid.UUID   `json:"document_type_id"`
	IsActive       bool        `json:"is_active"`
	Steps          []StepInput `json:"steps"`
}

// CreateWorkflow validates and persists a new workflow definition. Steps are
// assigned contiguous orders starting at 1; the last step becomes final.
func (s *Service) CreateWorkflow(ctx context.Context, req *CreateWorkflowRequest) (*Workflow, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	workflow := &Workflow{
		ID:             uuid.New(),
		Name:           req.Name,
		DivisionID:     req.DivisionID,
		DocumentTypeID: req.DocumentTypeID,
		IsActive:       req.IsActive,
		TotalSteps:     len(req.Steps),
	}
	workflow.Steps = buildSteps(workflow.ID, req.Steps, false)

	if err := s.repo.CreateWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.logger.Info("Workflow created",
		zap.String("workflow_id", workflow.ID.String()),
		zap.String("name", workflow.Name),
		zap.Int("total_steps", workflow.TotalSteps))

	return workflow, nil
}

// UpdateWorkflow replaces a workflow's step list. Steps arriving without
// explicit permissions keep whatever was configured for the same
// (order, division) pair before the edit.
func (s *Service) UpdateWorkflow(ctx context.Context, id uuid.UUID, req *CreateWorkflowRequest) (*Workflow, error) {
	existing, err := s.repo.GetWorkflowByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("workflow %s: %w", id, apperrors.ErrNotFound)
	}
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	workflow := &Workflow{
		ID:             id,
		Name:           req.Name,
		DivisionID:     req.DivisionID,
		DocumentTypeID: req.DocumentTypeID,
		IsActive:       req.IsActive,
		TotalSteps:     len(req.Steps),
	}
	workflow.Steps = buildSteps(workflow.ID, req.Steps, true)

	if err := s.repo.UpdateWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	s.logger.Info("Workflow updated",
		zap.String("workflow_id", workflow.ID.String()),
		zap.Int("total_steps", workflow.TotalSteps))

	return s.repo.GetWorkflowByID(ctx, id)
}

func (s *Service) DeleteWorkflow(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetWorkflowByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("workflow %s: %w", id, apperrors.ErrNotFound)
	}
	if err := s.repo.DeleteWorkflow(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	s.logger.Info("Workflow deleted", zap.String("workflow_id", id.String()))
	return nil
}

func (s *Service) GetWorkflow(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	workflow, err := s.repo.GetWorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if workflow == nil {
		return nil, fmt.Errorf("workflow %s: %w", id, apperrors.ErrNotFound)
	}
	return workflow, nil
}

func (s *Service) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	return s.repo.ListWorkflows(ctx)
}

// ResolveActiveForDivision returns the active workflow owned by a division,
// or ErrNoWorkflow when none is configured.
func (s *Service) ResolveActiveForDivision(ctx context.Context, divisionID uuid.UUID) (*Workflow, error) {
	workflow, err := s.repo.GetActiveWorkflowForDivision(ctx, divisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workflow: %w", err)
	}
	if workflow == nil {
		return nil, apperrors.ErrNoWorkflow
	}
	return workflow, nil
}

func (s *Service) validate(ctx context.Context, req *CreateWorkflowRequest) error {
	if req.Name == "" {
		return apperrors.NewValidation("name", "name is required")
	}
	if len(req.Steps) == 0 {
		return apperrors.NewValidation("steps", "at least one step is required")
	}
	if ok, err := s.repo.DivisionExists(ctx, req.DivisionID); err != nil {
		return fmt.Errorf("failed to check division: %w", err)
	} else if !ok {
		return apperrors.NewValidation("division_id", "division does not exist")
	}
	if ok, err := s.repo.DocumentTypeExists(ctx, req.DocumentTypeID); err != nil {
		return fmt.Errorf("failed to check document type: %w", err)
	} else if !ok {
		return apperrors.NewValidation("document_type_id", "document type does not exist")
	}
	for i, step := range req.Steps {
		if ok, err := s.repo.DivisionExists(ctx, step.DivisionID); err != nil {
			return fmt.Errorf("failed to check step division: %w", err)
		} else if !ok {
			return apperrors.NewValidation(fmt.Sprintf("steps[%d].division_id", i), "division does not exist")
		}
	}
	return nil
}

// buildSteps materializes step rows with contiguous orders from 1 and the
// final flag on the last step. When restoreAbsent is set, steps without
// explicit permissions get a nil Permissions slice, which the repository
// treats as "restore from snapshot"; an explicit empty set stays empty.
func buildSteps(workflowID uuid.UUID, inputs []StepInput, restoreAbsent bool) []WorkflowStep {
	steps := make([]WorkflowStep, len(inputs))
	for i, input := range inputs {
		actions := input.AllowedActions
		if len(actions) == 0 {
			actions = []string{ActionApprove, ActionReject, ActionRequestNext}
		}
		step := WorkflowStep{
			ID:             uuid.New(),
			WorkflowID:     workflowID,
			StepOrder:      i + 1,
			DivisionID:     input.DivisionID,
			RoleLabel:      input.RoleLabel,
			Instructions:   input.Instructions,
			AllowedActions: actions,
			IsFinal:        i == len(inputs)-1,
		}
		if input.Permissions != nil {
			step.Permissions = make([]permissions.StepPermission, 0, len(input.Permissions))
			for _, perm := range input.Permissions {
				step.Permissions = append(step.Permissions, permissions.StepPermission{
					ID:             uuid.New(),
					WorkflowStepID: step.ID,
					SubdivisionID:  perm.SubdivisionID,
					CanView:        perm.CanView,
					CanApprove:     perm.CanApprove,
					CanReject:      perm.CanReject,
					CanRequestNext: perm.CanRequestNext,
				})
			}
		} else if !restoreAbsent {
			step.Permissions = []permissions.StepPermission{}
		}
		steps[i] = step
	}
	return steps
}
