package permissions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"docuflow/approval-portal/approval-portal-backend/internal/identity"
	"docuflow/approval-portal/approval-portal-backend/pkg/workflows"
)

// fakeRepo serves permission rows from maps.
type fakeRepo struct {
	global map[uuid.UUID]*GlobalPermission
	step   map[[2]uuid.UUID]*StepPermission
}

func (f *fakeRepo) GetGlobalForSubdivision(ctx context.Context, subdivisionID uuid.UUID) (*GlobalPermission, error) {
	return f.global[subdivisionID], nil
}

func (f *fakeRepo) UpsertGlobal(ctx context.Context, perm *GlobalPermission) error { return nil }

func (f *fakeRepo) ListGlobal(ctx context.Context) ([]GlobalPermission, error) { return nil, nil }

func (f *fakeRepo) GetStepPermission(ctx context.Context, workflowStepID, subdivisionID uuid.UUID) (*StepPermission, error) {
	return f.step[[2]uuid.UUID{workflowStepID, subdivisionID}], nil
}

func (f *fakeRepo) ListStepPermissions(ctx context.Context, workflowStepID uuid.UUID) ([]StepPermission, error) {
	return nil, nil
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		global: map[uuid.UUID]*GlobalPermission{},
		step:   map[[2]uuid.UUID]*StepPermission{},
	}
}

func TestActCapabilitiesFollowOwnership(t *testing.T) {
	repo := newFakeRepo()
	resolver := NewResolver(repo, true)
	ctx := context.Background()

	divisionID := uuid.New()
	owner := identity.Actor{ID: uuid.New(), DivisionID: divisionID, SubdivisionID: uuid.New()}
	outsider := identity.Actor{ID: uuid.New(), DivisionID: uuid.New(), SubdivisionID: uuid.New()}

	sub := SubmissionContext{
		CreatorID:         uuid.New(),
		Status:            workflows.WaitingStatus("Finance"),
		CurrentDivisionID: divisionID,
		HasNextStep:       true,
	}

	caps, err := resolver.Resolve(ctx, owner, sub)
	assert.NoError(t, err)
	assert.True(t, caps.CanApprove)
	assert.True(t, caps.CanReject)
	assert.True(t, caps.CanRequestNext)

	caps, err = resolver.Resolve(ctx, outsider, sub)
	assert.NoError(t, err)
	assert.False(t, caps.CanApprove)
	assert.False(t, caps.CanReject)
	assert.False(t, caps.CanRequestNext)
}

func TestRequestNextNeedsNextStep(t *testing.T) {
	repo := newFakeRepo()
	resolver := NewResolver(repo, true)

	divisionID := uuid.New()
	owner := identity.Actor{ID: uuid.New(), DivisionID: divisionID, SubdivisionID: uuid.New()}
	sub := SubmissionContext{
		Status:            workflows.StatusPending,
		CurrentDivisionID: divisionID,
		HasNextStep:       false,
	}

	caps, err := resolver.Resolve(context.Background(), owner, sub)
	assert.NoError(t, err)
	assert.True(t, caps.CanApprove)
	assert.False(t, caps.CanRequestNext)
}

func TestNoActionsOnTerminal(t *testing.T) {
	repo := newFakeRepo()
	resolver := NewResolver(repo, true)

	divisionID := uuid.New()
	owner := identity.Actor{ID: uuid.New(), DivisionID: divisionID, SubdivisionID: uuid.New()}

	for _, status := range []string{workflows.StatusApproved, workflows.StatusRejected} {
		caps, err := resolver.Resolve(context.Background(), owner, SubmissionContext{
			Status:            status,
			CurrentDivisionID: divisionID,
		})
		assert.NoError(t, err)
		assert.False(t, caps.CanApprove, status)
		assert.False(t, caps.CanReject, status)
		assert.False(t, caps.CanRequestNext, status)
	}
}

func TestCreatorEditsWhileInFlight(t *testing.T) {
	repo := newFakeRepo()
	resolver := NewResolver(repo, true)

	creator := identity.Actor{ID: uuid.New(), DivisionID: uuid.New(), SubdivisionID: uuid.New()}
	sub := SubmissionContext{
		CreatorID:         creator.ID,
		Status:            workflows.WaitingStatus("Legal"),
		CurrentDivisionID: uuid.New(),
	}

	caps, err := resolver.Resolve(context.Background(), creator, sub)
	assert.NoError(t, err)
	assert.True(t, caps.CanEdit)
	assert.True(t, caps.CanDelete)
	assert.True(t, caps.CanView)
}

func TestApprovedIsImmutableForEveryone(t *testing.T) {
	repo := newFakeRepo()
	creator := identity.Actor{ID: uuid.New(), DivisionID: uuid.New(), SubdivisionID: uuid.New()}
	repo.global[creator.SubdivisionID] = &GlobalPermission{
		SubdivisionID: creator.SubdivisionID,
		CanEdit:       true,
		CanDelete:     true,
	}
	resolver := NewResolver(repo, true)

	sub := SubmissionContext{
		CreatorID:         creator.ID,
		Status:            workflows.StatusApproved,
		CurrentDivisionID: creator.DivisionID,
	}

	caps, err := resolver.Resolve(context.Background(), creator, sub)
	assert.NoError(t, err)
	assert.False(t, caps.CanEdit)
	assert.False(t, caps.CanDelete)
}

func TestRejectedMutabilityIsPolicy(t *testing.T) {
	repo := newFakeRepo()
	creator := identity.Actor{ID: uuid.New(), DivisionID: uuid.New(), SubdivisionID: uuid.New()}
	sub := SubmissionContext{
		CreatorID: creator.ID,
		Status:    workflows.StatusRejected,
	}

	caps, err := NewResolver(repo, true).Resolve(context.Background(), creator, sub)
	assert.NoError(t, err)
	assert.True(t, caps.CanEdit)

	caps, err = NewResolver(repo, false).Resolve(context.Background(), creator, sub)
	assert.NoError(t, err)
	assert.False(t, caps.CanEdit)
}

func TestNonCreatorEditNeedsGrantAndDivision(t *testing.T) {
	repo := newFakeRepo()
	resolver := NewResolver(repo, true)
	ctx := context.Background()

	divisionID := uuid.New()
	sub := SubmissionContext{
		CreatorID:         uuid.New(),
		Status:            workflows.StatusPending,
		CurrentDivisionID: divisionID,
	}

	// Same division, no grant.
	ungrantedPeer := identity.Actor{ID: uuid.New(), DivisionID: divisionID, SubdivisionID: uuid.New()}
	caps, err := resolver.Resolve(ctx, ungrantedPeer, sub)
	assert.NoError(t, err)
	assert.False(t, caps.CanEdit)

	// Grant but wrong division.
	grantedOutsider := identity.Actor{ID: uuid.New(), DivisionID: uuid.New(), SubdivisionID: uuid.New()}
	repo.global[grantedOutsider.SubdivisionID] = &GlobalPermission{
		SubdivisionID: grantedOutsider.SubdivisionID,
		CanEdit:       true,
	}
	caps, err = resolver.Resolve(ctx, grantedOutsider, sub)
	assert.NoError(t, err)
	assert.False(t, caps.CanEdit)

	// Grant and same division.
	grantedPeer := identity.Actor{ID: uuid.New(), DivisionID: divisionID, SubdivisionID: uuid.New()}
	repo.global[grantedPeer.SubdivisionID] = &GlobalPermission{
		SubdivisionID: grantedPeer.SubdivisionID,
		CanEdit:       true,
	}
	caps, err = resolver.Resolve(ctx, grantedPeer, sub)
	assert.NoError(t, err)
	assert.True(t, caps.CanEdit)
	assert.False(t, caps.CanDelete)
}

func TestViewComposesBothTables(t *testing.T) {
	repo := newFakeRepo()
	resolver := NewResolver(repo, true)
	ctx := context.Background()

	stepDefID := uuid.New()
	sub := SubmissionContext{
		CreatorID:         uuid.New(),
		Status:            workflows.StatusPending,
		CurrentDivisionID: uuid.New(),
		ActiveStepDefID:   stepDefID,
	}

	stranger := identity.Actor{ID: uuid.New(), DivisionID: uuid.New(), SubdivisionID: uuid.New()}
	caps, err := resolver.Resolve(ctx, stranger, sub)
	assert.NoError(t, err)
	assert.False(t, caps.CanView)

	// Global can_view opens the list.
	globalViewer := identity.Actor{ID: uuid.New(), DivisionID: uuid.New(), SubdivisionID: uuid.New()}
	repo.global[globalViewer.SubdivisionID] = &GlobalPermission{SubdivisionID: globalViewer.SubdivisionID, CanView: true}
	caps, err = resolver.Resolve(ctx, globalViewer, sub)
	assert.NoError(t, err)
	assert.True(t, caps.CanView)

	// Step-level can_view opens it too.
	stepViewer := identity.Actor{ID: uuid.New(), DivisionID: uuid.New(), SubdivisionID: uuid.New()}
	repo.step[[2]uuid.UUID{stepDefID, stepViewer.SubdivisionID}] = &StepPermission{
		WorkflowStepID: stepDefID,
		SubdivisionID:  stepViewer.SubdivisionID,
		CanView:        true,
	}
	caps, err = resolver.Resolve(ctx, stepViewer, sub)
	assert.NoError(t, err)
	assert.True(t, caps.CanView)
}
