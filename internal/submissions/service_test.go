package submissions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"docuflow/approval-portal/approval-portal-backend/internal/apperrors"
	"docuflow/approval-portal/approval-portal-backend/internal/identity"
	"docuflow/approval-portal/approval-portal-backend/internal/permissions"
	wfdef "docuflow/approval-portal/approval-portal-backend/internal/workflows"
	"docuflow/approval-portal/approval-portal-backend/pkg/workflows"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateSubmission(ctx context.Context, sub *Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockRepository) GetSubmissionByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Submission), args.Error(1)
}

func (m *MockRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID, limit, offset int) ([]Submission, error) {
	args := m.Called(ctx, creatorID, limit, offset)
	return args.Get(0).([]Submission), args.Error(1)
}

func (m *MockRepository) ListInboxForDivision(ctx context.Context, divisionID uuid.UUID, limit, offset int) ([]Submission, error) {
	args := m.Called(ctx, divisionID, limit, offset)
	return args.Get(0).([]Submission), args.Error(1)
}

func (m *MockRepository) ListSteps(ctx context.Context, submissionID uuid.UUID) ([]SubmissionStep, error) {
	args := m.Called(ctx, submissionID)
	return args.Get(0).([]SubmissionStep), args.Error(1)
}

func (m *MockRepository) GetStepByOrder(ctx context.Context, submissionID uuid.UUID, order int) (*SubmissionStep, error) {
	args := m.Called(ctx, submissionID, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubmissionStep), args.Error(1)
}

func (m *MockRepository) ApplyTransition(ctx context.Context, sub *Submission, step *SubmissionStep) error {
	args := m.Called(ctx, sub, step)
	return args.Error(0)
}

func (m *MockRepository) UpdateSubmission(ctx context.Context, sub *Submission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockRepository) DeleteSubmission(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// stubWorkflows resolves a fixed workflow, or ErrNoWorkflow when nil.
type stubWorkflows struct {
	workflow *wfdef.Workflow
}

func (s *stubWorkflows) ResolveActiveForDivision(ctx context.Context, divisionID uuid.UUID) (*wfdef.Workflow, error) {
	if s.workflow == nil || s.workflow.DivisionID != divisionID {
		return nil, apperrors.ErrNoWorkflow
	}
	return s.workflow, nil
}

// stubIdentity maps division ids to names.
type stubIdentity struct {
	divisions map[uuid.UUID]string
}

func (s *stubIdentity) GetUserByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return nil, nil
}

func (s *stubIdentity) GetDivisionByID(ctx context.Context, id uuid.UUID) (*identity.Division, error) {
	name, ok := s.divisions[id]
	if !ok {
		return nil, nil
	}
	return &identity.Division{ID: id, Name: name}, nil
}

func (s *stubIdentity) ListDivisions(ctx context.Context) ([]identity.Division, error) {
	return nil, nil
}

func (s *stubIdentity) ListSubdivisions(ctx context.Context, divisionID *uuid.UUID) ([]identity.Subdivision, error) {
	return nil, nil
}

// stubPermissions has no permission rows configured.
type stubPermissions struct{}

func (s *stubPermissions) GetGlobalForSubdivision(ctx context.Context, subdivisionID uuid.UUID) (*permissions.GlobalPermission, error) {
	return nil, nil
}

func (s *stubPermissions) UpsertGlobal(ctx context.Context, perm *permissions.GlobalPermission) error {
	return nil
}

func (s *stubPermissions) ListGlobal(ctx context.Context) ([]permissions.GlobalPermission, error) {
	return nil, nil
}

func (s *stubPermissions) GetStepPermission(ctx context.Context, workflowStepID, subdivisionID uuid.UUID) (*permissions.StepPermission, error) {
	return nil, nil
}

func (s *stubPermissions) ListStepPermissions(ctx context.Context, workflowStepID uuid.UUID) ([]permissions.StepPermission, error) {
	return nil, nil
}

// stubStorage is a blob store that only remembers what was deleted.
type stubStorage struct {
	deleted []string
}

func (s *stubStorage) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	return nil
}

func (s *stubStorage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return nil, errors.New("not stored")
}

func (s *stubStorage) Delete(ctx context.Context, bucket, key string) error {
	s.deleted = append(s.deleted, bucket+"/"+key)
	return nil
}

func (s *stubStorage) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	return "", nil
}

// recordingStamps records enqueued submission ids.
type recordingStamps struct {
	enqueued []uuid.UUID
	fail     bool
}

func (r *recordingStamps) Enqueue(ctx context.Context, submissionID uuid.UUID) error {
	if r.fail {
		return errors.New("queue unavailable")
	}
	r.enqueued = append(r.enqueued, submissionID)
	return nil
}

type fixture struct {
	repo    *MockRepository
	stamps  *recordingStamps
	storage *stubStorage
	service *Service

	divisionA uuid.UUID
	divisionB uuid.UUID
	divisionC uuid.UUID
	workflow  *wfdef.Workflow
}

// newFixture builds a service wired to stubs around a workflow with the
// given division chain.
func newFixture(t *testing.T, chain ...string) *fixture {
	t.Helper()

	f := &fixture{
		repo:      new(MockRepository),
		stamps:    &recordingStamps{},
		storage:   &stubStorage{},
		divisionA: uuid.New(),
		divisionB: uuid.New(),
		divisionC: uuid.New(),
	}

	names := map[uuid.UUID]string{
		f.divisionA: "DivisionA",
		f.divisionB: "DivisionB",
		f.divisionC: "DivisionC",
	}
	byName := map[string]uuid.UUID{
		"DivisionA": f.divisionA,
		"DivisionB": f.divisionB,
		"DivisionC": f.divisionC,
	}

	workflow := &wfdef.Workflow{
		ID:         uuid.New(),
		Name:       "Standard Approval",
		DivisionID: byName[chain[0]],
		IsActive:   true,
		TotalSteps: len(chain),
	}
	for i, name := range chain {
		workflow.Steps = append(workflow.Steps, wfdef.WorkflowStep{
			ID:         uuid.New(),
			WorkflowID: workflow.ID,
			StepOrder:  i + 1,
			DivisionID: byName[name],
			IsFinal:    i == len(chain)-1,
		})
	}
	f.workflow = workflow

	resolver := permissions.NewResolver(&stubPermissions{}, true)
	f.service = NewService(
		f.repo,
		&stubWorkflows{workflow: workflow},
		&stubIdentity{divisions: names},
		resolver,
		f.storage,
		f.stamps,
		nil,
		"test-bucket",
		zap.NewNop(),
	)
	return f
}

func (f *fixture) actor(divisionID uuid.UUID) identity.Actor {
	return identity.Actor{
		ID:            uuid.New(),
		Name:          "tester",
		DivisionID:    divisionID,
		SubdivisionID: uuid.New(),
	}
}

// submissionAt builds an in-flight submission parked at the given step of
// the fixture workflow, with a matching ledger.
func (f *fixture) submissionAt(step int) (*Submission, []*SubmissionStep) {
	sub := &Submission{
		ID:          uuid.New(),
		CreatorID:   uuid.New(),
		WorkflowID:  f.workflow.ID,
		Title:       "Travel order",
		Status:      workflows.StatusPending,
		CurrentStep: step,
		RowVersion:  1,
	}

	names := map[uuid.UUID]string{
		f.divisionA: "DivisionA",
		f.divisionB: "DivisionB",
		f.divisionC: "DivisionC",
	}

	steps := make([]*SubmissionStep, len(f.workflow.Steps))
	for i, def := range f.workflow.Steps {
		status := workflows.StepPending
		if def.StepOrder < step {
			status = workflows.StepApproved
		}
		steps[i] = &SubmissionStep{
			ID:             uuid.New(),
			SubmissionID:   sub.ID,
			WorkflowStepID: def.ID,
			StepOrder:      def.StepOrder,
			DivisionID:     def.DivisionID,
			DivisionName:   names[def.DivisionID],
			Status:         status,
		}
	}

	sub.DivisionID = steps[step-1].DivisionID
	if workflows.IsInFlight(sub.Status) && step > 1 {
		name := steps[step-1].DivisionName
		sub.Status = workflows.WaitingStatus(name)
		sub.WaitingFor = &name
	}
	return sub, steps
}

// =====================================================
// Creation
// =====================================================

func TestCreateSubmissionTwoSteps(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	actor := f.actor(f.divisionA)

	f.repo.On("CreateSubmission", ctx, mock.AnythingOfType("*submissions.Submission")).Return(nil)

	sub, err := f.service.CreateSubmission(ctx, actor, &CreateSubmissionRequest{Title: "Travel order"})

	assert.NoError(t, err)
	assert.Equal(t, 2, sub.CurrentStep)
	assert.Equal(t, "waiting to DivisionB", sub.Status)
	assert.Equal(t, "DivisionB", *sub.WaitingFor)
	assert.Equal(t, f.divisionB, sub.DivisionID)

	assert.Len(t, sub.Steps, 2)
	assert.Equal(t, workflows.StepApproved, sub.Steps[0].Status)
	assert.Equal(t, &actor.ID, sub.Steps[0].ActorID)
	assert.NotNil(t, sub.Steps[0].ActedAt)
	assert.Equal(t, workflows.StepPending, sub.Steps[1].Status)

	f.repo.AssertExpectations(t)
}

func TestCreateSubmissionSingleStep(t *testing.T) {
	f := newFixture(t, "DivisionA")
	ctx := context.Background()
	actor := f.actor(f.divisionA)

	f.repo.On("CreateSubmission", ctx, mock.AnythingOfType("*submissions.Submission")).Return(nil)

	sub, err := f.service.CreateSubmission(ctx, actor, &CreateSubmissionRequest{Title: "Budget memo"})

	assert.NoError(t, err)
	assert.Equal(t, 1, sub.CurrentStep)
	assert.Equal(t, workflows.StatusPending, sub.Status)
	assert.Nil(t, sub.WaitingFor)
	// A single-step workflow is not pre-approved; its one row stays pending.
	assert.Len(t, sub.Steps, 1)
	assert.Equal(t, workflows.StepPending, sub.Steps[0].Status)
	assert.Nil(t, sub.Steps[0].ActorID)
}

func TestCreateSubmissionLedgerComplete(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB", "DivisionC")
	ctx := context.Background()

	f.repo.On("CreateSubmission", ctx, mock.AnythingOfType("*submissions.Submission")).Return(nil)

	sub, err := f.service.CreateSubmission(ctx, f.actor(f.divisionA), &CreateSubmissionRequest{Title: "Contract"})

	assert.NoError(t, err)
	assert.Len(t, sub.Steps, 3)
	for i, step := range sub.Steps {
		assert.Equal(t, i+1, step.StepOrder)
	}
}

func TestCreateSubmissionNoWorkflow(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()

	// Actor from a division with no configured workflow.
	_, err := f.service.CreateSubmission(ctx, f.actor(f.divisionC), &CreateSubmissionRequest{Title: "Travel order"})

	assert.ErrorIs(t, err, apperrors.ErrNoWorkflow)
	f.repo.AssertNotCalled(t, "CreateSubmission", mock.Anything, mock.Anything)
}

func TestCreateSubmissionCleansUpFileOnInsertFailure(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()

	f.repo.On("CreateSubmission", ctx, mock.AnythingOfType("*submissions.Submission")).Return(errors.New("insert failed"))

	_, err := f.service.CreateSubmission(ctx, f.actor(f.divisionA), &CreateSubmissionRequest{
		Title:       "Travel order",
		FileName:    "order.pdf",
		FileContent: strings.NewReader("%PDF-1.4"),
	})

	assert.Error(t, err)
	// The blob uploaded ahead of the row must be removed again.
	assert.Len(t, f.storage.deleted, 1)
	assert.Contains(t, f.storage.deleted[0], "test-bucket/submissions/")
}

func TestCreateSubmissionMissingTitle(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")

	_, err := f.service.CreateSubmission(context.Background(), f.actor(f.divisionA), &CreateSubmissionRequest{Title: "   "})

	assert.True(t, apperrors.IsValidation(err))
}

// =====================================================
// Approve
// =====================================================

func TestApproveFinalStep(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)
	actor := f.actor(f.divisionB)

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(nil, nil)
	f.repo.On("ApplyTransition", ctx, sub, steps[1]).Return(nil)

	result, err := f.service.Approve(ctx, actor, sub.ID, "looks good")

	assert.NoError(t, err)
	assert.Equal(t, workflows.StatusApproved, result.Status)
	assert.Equal(t, 2, result.CurrentStep)
	assert.Nil(t, result.WaitingFor)
	assert.Equal(t, &actor.ID, result.ApprovedBy)
	assert.NotNil(t, result.ApprovedAt)
	assert.Equal(t, "looks good", *result.ApprovalNote)

	assert.Equal(t, workflows.StepApproved, steps[1].Status)
	assert.Equal(t, &actor.ID, steps[1].ActorID)

	assert.Equal(t, []uuid.UUID{sub.ID}, f.stamps.enqueued)
	f.repo.AssertExpectations(t)
}

func TestApproveIntermediateAdvances(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB", "DivisionC")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)
	actor := f.actor(f.divisionB)

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(steps[2], nil)
	f.repo.On("ApplyTransition", ctx, sub, steps[1]).Return(nil)

	result, err := f.service.Approve(ctx, actor, sub.ID, "")

	assert.NoError(t, err)
	assert.Equal(t, 3, result.CurrentStep)
	assert.Equal(t, f.divisionC, result.DivisionID)
	assert.Equal(t, "waiting to DivisionC", result.Status)
	assert.Equal(t, "DivisionC", *result.WaitingFor)
	// Final-approver fields stay reserved for the terminal branch.
	assert.Nil(t, result.ApprovedBy)
	assert.Nil(t, result.ApprovedAt)
	assert.Empty(t, f.stamps.enqueued)
}

func TestApproveWrongDivision(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB", "DivisionC")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)

	_, err := f.service.Approve(ctx, f.actor(f.divisionC), sub.ID, "")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	f.repo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything)
}

func TestOwnershipGatingEveryStep(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB", "DivisionC")
	ctx := context.Background()

	owners := []uuid.UUID{f.divisionA, f.divisionB, f.divisionC}
	for pos := 1; pos <= 3; pos++ {
		sub, steps := f.submissionAt(pos)
		repo := new(MockRepository)
		repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
		repo.On("GetStepByOrder", ctx, sub.ID, pos).Return(steps[pos-1], nil)
		f.service.repo = repo

		for _, divisionID := range owners {
			if divisionID == steps[pos-1].DivisionID {
				continue
			}
			_, err := f.service.Approve(ctx, f.actor(divisionID), sub.ID, "")
			assert.ErrorIs(t, err, apperrors.ErrForbidden, "step %d, division %s", pos, divisionID)
		}
		repo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestApproveTerminalSubmission(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	sub, _ := f.submissionAt(2)
	sub.Status = workflows.StatusApproved

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)

	_, err := f.service.Approve(ctx, f.actor(f.divisionB), sub.ID, "")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	f.repo.AssertNotCalled(t, "GetStepByOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveNotFound(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	id := uuid.New()

	f.repo.On("GetSubmissionByID", ctx, id).Return(nil, nil)

	_, err := f.service.Approve(ctx, f.actor(f.divisionB), id, "")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestApproveConflictSurfaces(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(nil, nil)
	f.repo.On("ApplyTransition", ctx, sub, steps[1]).Return(apperrors.ErrConflict)

	_, err := f.service.Approve(ctx, f.actor(f.divisionB), sub.ID, "")

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, f.stamps.enqueued)
}

func TestApproveRefusesUnknownStoredStatus(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)
	// A status outside the transition table (for example a bad manual edit)
	// passes the terminal guard but must never be persisted over.
	sub.Status = "archived"

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(nil, nil)

	_, err := f.service.Approve(ctx, f.actor(f.divisionB), sub.ID, "")

	assert.ErrorIs(t, err, apperrors.ErrConflict)
	f.repo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.stamps.enqueued)
}

func TestApproveStampEnqueueFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	f.stamps.fail = true
	ctx := context.Background()
	sub, steps := f.submissionAt(2)

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(nil, nil)
	f.repo.On("ApplyTransition", ctx, sub, steps[1]).Return(nil)

	result, err := f.service.Approve(ctx, f.actor(f.divisionB), sub.ID, "")

	assert.NoError(t, err)
	assert.Equal(t, workflows.StatusApproved, result.Status)
}

// =====================================================
// Reject
// =====================================================

func TestRejectRequiresNote(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")

	_, err := f.service.Reject(context.Background(), f.actor(f.divisionB), uuid.New(), "   ")

	assert.True(t, apperrors.IsValidation(err))
	f.repo.AssertNotCalled(t, "GetSubmissionByID", mock.Anything, mock.Anything)
}

func TestRejectMidWorkflow(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB", "DivisionC")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)
	actor := f.actor(f.divisionB)

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("ApplyTransition", ctx, sub, steps[1]).Return(nil)

	result, err := f.service.Reject(ctx, actor, sub.ID, "not compliant")

	assert.NoError(t, err)
	assert.Equal(t, workflows.StatusRejected, result.Status)
	assert.Equal(t, 2, result.CurrentStep)
	assert.Nil(t, result.WaitingFor)
	assert.Equal(t, workflows.StepRejected, steps[1].Status)
	assert.Equal(t, "not compliant", *steps[1].Note)
	assert.Equal(t, &actor.ID, steps[1].ActorID)

	// A later approval by the next division must hit the terminal guard.
	repo2 := new(MockRepository)
	repo2.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.service.repo = repo2
	_, err = f.service.Approve(ctx, f.actor(f.divisionC), sub.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

// =====================================================
// Request to next step
// =====================================================

func TestRequestNextForwards(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB", "DivisionC")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)

	// Simulate a row that already carried actor data before forwarding.
	priorActor := uuid.New()
	priorTime := time.Now()
	steps[1].ActorID = &priorActor
	steps[1].ActedAt = &priorTime

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(steps[2], nil)
	f.repo.On("ApplyTransition", ctx, sub, steps[1]).Return(nil)

	result, err := f.service.RequestToNextStep(ctx, f.actor(f.divisionB), sub.ID)

	assert.NoError(t, err)
	assert.Equal(t, workflows.StepForwarded, steps[1].Status)
	assert.Nil(t, steps[1].ActorID)
	assert.Nil(t, steps[1].ActedAt)
	assert.Equal(t, 3, result.CurrentStep)
	assert.Equal(t, "waiting to DivisionC", result.Status)
}

func TestRequestNextOnFinalStep(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(nil, nil)

	_, err := f.service.RequestToNextStep(ctx, f.actor(f.divisionB), sub.ID)

	assert.ErrorIs(t, err, apperrors.ErrNoNextStep)
	assert.Equal(t, workflows.StepPending, steps[1].Status)
	f.repo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything)
}

// =====================================================
// Pointer monotonicity across a full run
// =====================================================

func TestPointerNeverDecreases(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB", "DivisionC")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)

	seen := []int{sub.CurrentStep}

	repo := new(MockRepository)
	repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(steps[2], nil)
	repo.On("GetStepByOrder", ctx, sub.ID, 4).Return(nil, nil)
	repo.On("ApplyTransition", ctx, sub, mock.AnythingOfType("*submissions.SubmissionStep")).Return(nil)
	f.service.repo = repo

	_, err := f.service.Approve(ctx, f.actor(f.divisionB), sub.ID, "")
	assert.NoError(t, err)
	seen = append(seen, sub.CurrentStep)

	_, err = f.service.Approve(ctx, f.actor(f.divisionC), sub.ID, "sign-off")
	assert.NoError(t, err)
	seen = append(seen, sub.CurrentStep)

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1], fmt.Sprintf("pointer decreased: %v", seen))
	}
	assert.Equal(t, workflows.StatusApproved, sub.Status)
}

// =====================================================
// Edit / delete gating
// =====================================================

func TestCreatorCanEditInFlight(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)
	creator := f.actor(f.divisionA)
	sub.CreatorID = creator.ID

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(nil, nil)
	f.repo.On("UpdateSubmission", ctx, sub).Return(nil)

	result, err := f.service.UpdateSubmissionContent(ctx, creator, sub.ID, &UpdateSubmissionRequest{Title: "Revised"})

	assert.NoError(t, err)
	assert.Equal(t, "Revised", result.Title)
}

func TestEditForbiddenOnceApproved(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)
	creator := f.actor(f.divisionA)
	sub.CreatorID = creator.ID
	sub.Status = workflows.StatusApproved

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(nil, nil)

	_, err := f.service.UpdateSubmissionContent(ctx, creator, sub.ID, &UpdateSubmissionRequest{Title: "Revised"})

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	f.repo.AssertNotCalled(t, "UpdateSubmission", mock.Anything, mock.Anything)
}

func TestStrangerCannotDelete(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)

	f.repo.On("GetSubmissionByID", ctx, sub.ID).Return(sub, nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)
	f.repo.On("GetStepByOrder", ctx, sub.ID, 3).Return(nil, nil)

	err := f.service.DeleteSubmission(ctx, f.actor(f.divisionC), sub.ID)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	f.repo.AssertNotCalled(t, "DeleteSubmission", mock.Anything, mock.Anything)
}

// =====================================================
// Ledger query helpers
// =====================================================

func TestCanActorAct(t *testing.T) {
	f := newFixture(t, "DivisionA", "DivisionB")
	ctx := context.Background()
	sub, steps := f.submissionAt(2)

	f.repo.On("GetStepByOrder", ctx, sub.ID, 2).Return(steps[1], nil)

	ok, err := f.service.CanActorAct(ctx, f.actor(f.divisionB), sub)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.service.CanActorAct(ctx, f.actor(f.divisionA), sub)
	assert.NoError(t, err)
	assert.False(t, ok)

	sub.Status = workflows.StatusRejected
	ok, err = f.service.CanActorAct(ctx, f.actor(f.divisionB), sub)
	assert.NoError(t, err)
	assert.False(t, ok)
}
