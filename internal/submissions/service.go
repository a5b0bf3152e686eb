package submissions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docuflow/approval-portal/approval-portal-backend/internal/apperrors"
	"docuflow/approval-portal/approval-portal-backend/internal/identity"
	"docuflow/approval-portal/approval-portal-backend/internal/notifications"
	"docuflow/approval-portal/approval-portal-backend/internal/permissions"
	wfdef "docuflow/approval-portal/approval-portal-backend/internal/workflows"
	"docuflow/approval-portal/approval-portal-backend/pkg/storage"
	"docuflow/approval-portal/approval-portal-backend/pkg/workflows"
)

// WorkflowResolver supplies the active workflow definition for a division.
type WorkflowResolver interface {
	ResolveActiveForDivision(ctx context.Context, divisionID uuid.UUID) (*wfdef.Workflow, error)
}

// StampEnqueuer accepts fire-and-forget stamping jobs for finally approved
// submissions. Enqueue failures must never surface to the approver.
type StampEnqueuer interface {
	Enqueue(ctx context.Context, submissionID uuid.UUID) error
}

// Notifier fans submission lifecycle events out to in-app notifications.
// Best effort like stamping; may be nil when notifications are disabled.
type Notifier interface {
	Publish(ctx context.Context, event notifications.Event)
}

// Service runs the submission state machine: creation with ledger
// materialization, the three step actions, and the edit/delete paths gated
// by the permission resolver.
type Service struct {
	repo      Repository
	workflows WorkflowResolver
	identity  identity.Repository
	resolver  *permissions.Resolver
	storage   storage.Client
	stamps    StampEnqueuer
	notifier  Notifier
	states    *workflows.StateMachine
	bucket    string
	logger    *zap.Logger
}

func NewService(
	repo Repository,
	workflowResolver WorkflowResolver,
	identityRepo identity.Repository,
	resolver *permissions.Resolver,
	storageClient storage.Client,
	stamps StampEnqueuer,
	notifier Notifier,
	bucket string,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		workflows: workflowResolver,
		identity:  identityRepo,
		resolver:  resolver,
		storage:   storageClient,
		stamps:    stamps,
		notifier:  notifier,
		states:    workflows.NewStateMachine(),
		bucket:    bucket,
		logger:    logger,
	}
}

func (s *Service) notify(ctx context.Context, event notifications.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, event)
}

// CreateSubmissionRequest is the payload for creating a submission. The form
// payload is opaque here; the document-type schema service validates it
// before the request reaches this service.
type CreateSubmissionRequest struct {
	Title       string
	Description string
	FormPayload json.RawMessage
	FileName    string
	FileContent io.Reader
}

// SubmissionDetail is the full read model for one submission.
type SubmissionDetail struct {
	Submission   *Submission              `json:"submission"`
	Capabilities permissions.Capabilities `json:"capabilities"`
}

// =====================================================
// Creation
// =====================================================

// CreateSubmission resolves the active workflow for the creator's division
// and materializes the step ledger. With two or more steps the originating
// division's own first step is pre-satisfied and the pointer starts at 2; a
// single-step workflow starts pending at 1.
func (s *Service) CreateSubmission(ctx context.Context, actor identity.Actor, req *CreateSubmissionRequest) (*Submission, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.NewValidation("title", "title is required")
	}

	workflow, err := s.workflows.ResolveActiveForDivision(ctx, actor.DivisionID)
	if err != nil {
		return nil, err
	}
	if len(workflow.Steps) == 0 {
		return nil, fmt.Errorf("workflow %s has no steps: %w", workflow.ID, apperrors.ErrNoWorkflow)
	}

	submissionID := uuid.New()
	now := time.Now()

	steps := make([]SubmissionStep, len(workflow.Steps))
	for i, def := range workflow.Steps {
		division, err := s.identity.GetDivisionByID(ctx, def.DivisionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load division: %w", err)
		}
		if division == nil {
			return nil, fmt.Errorf("division %s: %w", def.DivisionID, apperrors.ErrNotFound)
		}
		steps[i] = SubmissionStep{
			ID:             uuid.New(),
			SubmissionID:   submissionID,
			WorkflowStepID: def.ID,
			StepOrder:      def.StepOrder,
			DivisionID:     def.DivisionID,
			DivisionName:   division.Name,
			RoleLabel:      def.RoleLabel,
			Status:         workflows.StepPending,
		}
	}

	currentStep := 1
	status := workflows.StatusPending
	var waitingFor *string
	if len(steps) > 1 {
		// The creating division implicitly satisfies its own first step.
		actedAt := now
		steps[0].Status = workflows.StepApproved
		steps[0].ActorID = &actor.ID
		steps[0].ActedAt = &actedAt
		currentStep = 2
		name := steps[1].DivisionName
		status = workflows.WaitingStatus(name)
		waitingFor = &name
	}

	sub := &Submission{
		ID:          submissionID,
		CreatorID:   actor.ID,
		DivisionID:  steps[currentStep-1].DivisionID,
		WorkflowID:  workflow.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		CurrentStep: currentStep,
		WaitingFor:  waitingFor,
		FormPayload: req.FormPayload,
		RowVersion:  1,
		CreatedAt:   now,
		Steps:       steps,
	}

	if req.FileContent != nil {
		key := fmt.Sprintf("submissions/%s/%s", submissionID, req.FileName)
		if err := s.storage.Upload(ctx, s.bucket, key, req.FileContent); err != nil {
			return nil, fmt.Errorf("failed to store file: %w", err)
		}
		sub.FileBucket = &s.bucket
		sub.FileKey = &key
	}

	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		if sub.FileKey != nil {
			// The blob went in before the row; don't leave it orphaned.
			if derr := s.storage.Delete(ctx, s.bucket, *sub.FileKey); derr != nil {
				s.logger.Warn("Failed to remove file of unsaved submission",
					zap.String("key", *sub.FileKey),
					zap.Error(derr))
			}
		}
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	s.logger.Info("Submission created",
		zap.String("submission_id", sub.ID.String()),
		zap.String("workflow_id", workflow.ID.String()),
		zap.Int("total_steps", len(steps)),
		zap.Int("current_step", currentStep))

	s.notify(ctx, notifications.Event{
		SubmissionID: sub.ID,
		Title:        sub.Title,
		Kind:         notifications.KindReceived,
		CreatorID:    sub.CreatorID,
		DivisionID:   sub.DivisionID,
		ActorName:    actor.Name,
	})

	return sub, nil
}

// =====================================================
// State machine actions
// =====================================================

// Approve marks the active step approved. On the last step the submission
// becomes terminally approved and a stamping job is enqueued; otherwise the
// pointer advances to the next division.
func (s *Service) Approve(ctx context.Context, actor identity.Actor, id uuid.UUID, note string) (*Submission, error) {
	sub, active, err := s.loadForAction(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := sub.Status

	now := time.Now()
	active.Status = workflows.StepApproved
	active.ActorID = &actor.ID
	active.ActedAt = &now
	if note != "" {
		active.Note = &note
	}

	next, err := s.repo.GetStepByOrder(ctx, sub.ID, sub.CurrentStep+1)
	if err != nil {
		return nil, fmt.Errorf("failed to load next step: %w", err)
	}

	if next == nil {
		sub.Status = workflows.StatusApproved
		sub.WaitingFor = nil
		// First-approval-wins: the submission-level final-approver fields
		// are display conveniences; the ledger row is the audit trail.
		if sub.ApprovedBy == nil {
			sub.ApprovedBy = &actor.ID
			sub.ApprovedAt = &now
			if note != "" {
				sub.ApprovalNote = &note
			}
		}
	} else {
		s.advance(sub, next)
	}

	if err := s.transition(ctx, sub, active, from); err != nil {
		return nil, err
	}

	s.logger.Info("Submission step approved",
		zap.String("submission_id", sub.ID.String()),
		zap.Int("step", active.StepOrder),
		zap.String("status", sub.Status))

	if next == nil {
		// Best effort: stamping must never undo a committed approval.
		if err := s.stamps.Enqueue(ctx, sub.ID); err != nil {
			s.logger.Warn("Failed to enqueue stamping job",
				zap.String("submission_id", sub.ID.String()),
				zap.Error(err))
		}
		s.notify(ctx, notifications.Event{
			SubmissionID: sub.ID,
			Title:        sub.Title,
			Kind:         notifications.KindApproved,
			CreatorID:    sub.CreatorID,
			ActorName:    actor.Name,
		})
	} else {
		s.notify(ctx, notifications.Event{
			SubmissionID: sub.ID,
			Title:        sub.Title,
			Kind:         notifications.KindReceived,
			CreatorID:    sub.CreatorID,
			DivisionID:   sub.DivisionID,
			ActorName:    actor.Name,
		})
	}

	return sub, nil
}

// Reject marks the active step rejected and terminates the submission. The
// note is mandatory so the creator learns why.
func (s *Service) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, note string) (*Submission, error) {
	if strings.TrimSpace(note) == "" {
		return nil, apperrors.NewValidation("note", "a rejection note is required")
	}

	sub, active, err := s.loadForAction(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := sub.Status

	now := time.Now()
	active.Status = workflows.StepRejected
	active.ActorID = &actor.ID
	active.ActedAt = &now
	active.Note = &note

	sub.Status = workflows.StatusRejected
	sub.WaitingFor = nil

	if err := s.transition(ctx, sub, active, from); err != nil {
		return nil, err
	}

	s.logger.Info("Submission rejected",
		zap.String("submission_id", sub.ID.String()),
		zap.Int("step", active.StepOrder))

	s.notify(ctx, notifications.Event{
		SubmissionID: sub.ID,
		Title:        sub.Title,
		Kind:         notifications.KindRejected,
		CreatorID:    sub.CreatorID,
		ActorName:    actor.Name,
		Note:         note,
	})

	return sub, nil
}

// RequestToNextStep forwards the submission without approving: the active
// ledger row is marked forwarded with its actor fields cleared, then the
// pointer advances exactly as on approval.
func (s *Service) RequestToNextStep(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Submission, error) {
	sub, active, err := s.loadForAction(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := sub.Status

	next, err := s.repo.GetStepByOrder(ctx, sub.ID, sub.CurrentStep+1)
	if err != nil {
		return nil, fmt.Errorf("failed to load next step: %w", err)
	}
	if next == nil {
		return nil, apperrors.ErrNoNextStep
	}

	active.Status = workflows.StepForwarded
	active.ActorID = nil
	active.ActedAt = nil

	s.advance(sub, next)

	if err := s.transition(ctx, sub, active, from); err != nil {
		return nil, err
	}

	s.logger.Info("Submission forwarded",
		zap.String("submission_id", sub.ID.String()),
		zap.Int("from_step", active.StepOrder),
		zap.Int("to_step", sub.CurrentStep))

	s.notify(ctx, notifications.Event{
		SubmissionID: sub.ID,
		Title:        sub.Title,
		Kind:         notifications.KindForwarded,
		CreatorID:    sub.CreatorID,
		DivisionID:   sub.DivisionID,
		ActorName:    actor.Name,
	})

	return sub, nil
}

// transition checks the status change against the transition table before
// persisting it, so a corrupt stored status can never advance.
func (s *Service) transition(ctx context.Context, sub *Submission, active *SubmissionStep, from string) error {
	if !s.states.CanTransition(from, sub.Status) {
		return fmt.Errorf("status %q cannot become %q: %w", from, sub.Status, apperrors.ErrConflict)
	}
	return s.repo.ApplyTransition(ctx, sub, active)
}

// advance moves the pointer onto next and retargets the owning division.
func (s *Service) advance(sub *Submission, next *SubmissionStep) {
	sub.CurrentStep = next.StepOrder
	sub.DivisionID = next.DivisionID
	sub.Status = workflows.WaitingStatus(next.DivisionName)
	name := next.DivisionName
	sub.WaitingFor = &name
}

// loadForAction runs the shared guard: the submission exists, is still in
// flight, has an active ledger row, and that row's division is the actor's.
// All guard failures happen before any mutation.
func (s *Service) loadForAction(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Submission, *SubmissionStep, error) {
	sub, err := s.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if sub == nil {
		return nil, nil, fmt.Errorf("submission %s: %w", id, apperrors.ErrNotFound)
	}
	if workflows.IsTerminal(sub.Status) {
		return nil, nil, fmt.Errorf("submission is already %s: %w", sub.Status, apperrors.ErrForbidden)
	}

	active, err := s.repo.GetStepByOrder(ctx, sub.ID, sub.CurrentStep)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load active step: %w", err)
	}
	if active == nil {
		return nil, nil, fmt.Errorf("no ledger row at step %d: %w", sub.CurrentStep, apperrors.ErrForbidden)
	}
	if active.DivisionID != actor.DivisionID {
		return nil, nil, fmt.Errorf("step %d is held by %s: %w", active.StepOrder, active.DivisionName, apperrors.ErrForbidden)
	}

	return sub, active, nil
}

// =====================================================
// Ledger query helpers
// =====================================================

// GetActiveStep returns the ledger row the pointer currently references.
func (s *Service) GetActiveStep(ctx context.Context, sub *Submission) (*SubmissionStep, error) {
	return s.repo.GetStepByOrder(ctx, sub.ID, sub.CurrentStep)
}

// GetNextStep returns the ledger row after the pointer, or nil on the last
// step.
func (s *Service) GetNextStep(ctx context.Context, sub *Submission) (*SubmissionStep, error) {
	return s.repo.GetStepByOrder(ctx, sub.ID, sub.CurrentStep+1)
}

// CanActorAct reports whether the actor's division holds the active step of
// an in-flight submission.
func (s *Service) CanActorAct(ctx context.Context, actor identity.Actor, sub *Submission) (bool, error) {
	if !workflows.IsInFlight(sub.Status) {
		return false, nil
	}
	active, err := s.GetActiveStep(ctx, sub)
	if err != nil {
		return false, err
	}
	return active != nil && active.DivisionID == actor.DivisionID, nil
}

// =====================================================
// Reads
// =====================================================

// GetSubmissionDetail loads a submission with its ledger and the actor's
// resolved capabilities. Viewing is itself a resolved capability.
func (s *Service) GetSubmissionDetail(ctx context.Context, actor identity.Actor, id uuid.UUID) (*SubmissionDetail, error) {
	sub, err := s.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("submission %s: %w", id, apperrors.ErrNotFound)
	}

	steps, err := s.repo.ListSteps(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	sub.Steps = steps

	caps, err := s.capabilities(ctx, actor, sub)
	if err != nil {
		return nil, err
	}
	if !caps.CanView {
		return nil, fmt.Errorf("not visible to actor: %w", apperrors.ErrForbidden)
	}

	return &SubmissionDetail{Submission: sub, Capabilities: caps}, nil
}

func (s *Service) ListMine(ctx context.Context, actor identity.Actor, limit, offset int) ([]Submission, error) {
	return s.repo.ListByCreator(ctx, actor.ID, limit, offset)
}

func (s *Service) ListInbox(ctx context.Context, actor identity.Actor, limit, offset int) ([]Submission, error) {
	return s.repo.ListInboxForDivision(ctx, actor.DivisionID, limit, offset)
}

// =====================================================
// Edit / delete (secondary capabilities)
// =====================================================

// UpdateSubmissionRequest carries the editable submission fields.
type UpdateSubmissionRequest struct {
	Title       string
	Description string
	FormPayload json.RawMessage
	FileName    string
	FileContent io.Reader
}

func (s *Service) UpdateSubmissionContent(ctx context.Context, actor identity.Actor, id uuid.UUID, req *UpdateSubmissionRequest) (*Submission, error) {
	sub, err := s.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if sub == nil {
		return nil, fmt.Errorf("submission %s: %w", id, apperrors.ErrNotFound)
	}

	caps, err := s.capabilities(ctx, actor, sub)
	if err != nil {
		return nil, err
	}
	if !caps.CanEdit {
		return nil, fmt.Errorf("edit not permitted: %w", apperrors.ErrForbidden)
	}

	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.NewValidation("title", "title is required")
	}
	sub.Title = req.Title
	sub.Description = req.Description
	if req.FormPayload != nil {
		sub.FormPayload = req.FormPayload
	}
	if req.FileContent != nil {
		key := fmt.Sprintf("submissions/%s/%s", sub.ID, req.FileName)
		if err := s.storage.Upload(ctx, s.bucket, key, req.FileContent); err != nil {
			return nil, fmt.Errorf("failed to store file: %w", err)
		}
		sub.FileBucket = &s.bucket
		sub.FileKey = &key
	}

	if err := s.repo.UpdateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) DeleteSubmission(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	sub, err := s.repo.GetSubmissionByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}
	if sub == nil {
		return fmt.Errorf("submission %s: %w", id, apperrors.ErrNotFound)
	}

	caps, err := s.capabilities(ctx, actor, sub)
	if err != nil {
		return err
	}
	if !caps.CanDelete {
		return fmt.Errorf("delete not permitted: %w", apperrors.ErrForbidden)
	}

	if err := s.repo.DeleteSubmission(ctx, id); err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	if sub.FileKey != nil && sub.FileBucket != nil {
		if err := s.storage.Delete(ctx, *sub.FileBucket, *sub.FileKey); err != nil {
			s.logger.Warn("Failed to delete stored file",
				zap.String("submission_id", id.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("Submission deleted", zap.String("submission_id", id.String()))
	return nil
}

// DownloadFile streams the submission's stored document.
func (s *Service) DownloadFile(ctx context.Context, actor identity.Actor, id uuid.UUID) (io.ReadCloser, error) {
	detail, err := s.GetSubmissionDetail(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	sub := detail.Submission
	if sub.FileKey == nil || sub.FileBucket == nil {
		return nil, fmt.Errorf("submission has no file: %w", apperrors.ErrNotFound)
	}
	return s.storage.Download(ctx, *sub.FileBucket, *sub.FileKey)
}

// capabilities derives the resolver input from the ledger. The current
// owning division comes from the active ledger row, not the denormalized
// submission column.
func (s *Service) capabilities(ctx context.Context, actor identity.Actor, sub *Submission) (permissions.Capabilities, error) {
	active, err := s.repo.GetStepByOrder(ctx, sub.ID, sub.CurrentStep)
	if err != nil {
		return permissions.Capabilities{}, fmt.Errorf("failed to load active step: %w", err)
	}
	next, err := s.repo.GetStepByOrder(ctx, sub.ID, sub.CurrentStep+1)
	if err != nil {
		return permissions.Capabilities{}, fmt.Errorf("failed to load next step: %w", err)
	}

	subCtx := permissions.SubmissionContext{
		CreatorID:   sub.CreatorID,
		Status:      sub.Status,
		HasNextStep: next != nil,
	}
	if active != nil {
		subCtx.CurrentDivisionID = active.DivisionID
		subCtx.ActiveStepDefID = active.WorkflowStepID
	}

	return s.resolver.Resolve(ctx, actor, subCtx)
}
