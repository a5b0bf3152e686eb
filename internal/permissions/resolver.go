package permissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docuflow/approval-portal/approval-portal-backend/internal/identity"
	"docuflow/approval-portal/approval-portal-backend/pkg/workflows"
)

// SubmissionContext is the slice of submission state the resolver needs.
// The caller derives CurrentDivisionID from the active ledger row, never
// from a stored pointer.
type SubmissionContext struct {
	CreatorID         uuid.UUID
	Status            string
	CurrentDivisionID uuid.UUID
	// ActiveStepDefID is the workflow step definition the active ledger row
	// was copied from. Nil UUID when the definition no longer exists.
	ActiveStepDefID uuid.UUID
	HasNextStep     bool
}

// Resolver composes the two permission tables with step ownership into one
// effective capability set. The tables stay separate because they have
// different write lifecycles: global rows are admin-wide, step rows are
// regenerated with every workflow edit.
type Resolver struct {
	repo             Repository
	rejectedEditable bool
}

func NewResolver(repo Repository, rejectedEditable bool) *Resolver {
	return &Resolver{repo: repo, rejectedEditable: rejectedEditable}
}

// Resolve computes the effective capabilities of an actor on a submission.
//
// Action-taking (approve/reject/request-next) is gated purely by division
// ownership of the active step while the submission is in flight. The
// permission tables gate the secondary capabilities: viewing, and
// editing/deleting a submission the actor did not create.
func (r *Resolver) Resolve(ctx context.Context, actor identity.Actor, sub SubmissionContext) (Capabilities, error) {
	caps := Capabilities{}

	inFlight := workflows.IsInFlight(sub.Status)
	ownsActiveStep := inFlight && actor.DivisionID == sub.CurrentDivisionID

	caps.CanApprove = ownsActiveStep
	caps.CanReject = ownsActiveStep
	caps.CanRequestNext = ownsActiveStep && sub.HasNextStep

	global, err := r.repo.GetGlobalForSubdivision(ctx, actor.SubdivisionID)
	if err != nil {
		return Capabilities{}, fmt.Errorf("resolve global permissions: %w", err)
	}

	var step *StepPermission
	if sub.ActiveStepDefID != uuid.Nil {
		step, err = r.repo.GetStepPermission(ctx, sub.ActiveStepDefID, actor.SubdivisionID)
		if err != nil {
			return Capabilities{}, fmt.Errorf("resolve step permissions: %w", err)
		}
	}

	isCreator := actor.ID == sub.CreatorID
	caps.CanView = isCreator || actor.DivisionID == sub.CurrentDivisionID ||
		(global != nil && global.CanView) || (step != nil && step.CanView)

	caps.CanEdit = r.mutable(actor, sub, isCreator, global, func(g *GlobalPermission) bool { return g.CanEdit })
	caps.CanDelete = r.mutable(actor, sub, isCreator, global, func(g *GlobalPermission) bool { return g.CanDelete })

	return caps, nil
}

// mutable applies the edit/delete composition rule: approved submissions are
// immutable for everyone; creators may mutate while in flight (and, per
// policy, after rejection); anyone else needs the global grant plus
// membership in the submission's current owning division.
func (r *Resolver) mutable(actor identity.Actor, sub SubmissionContext, isCreator bool, global *GlobalPermission, grant func(*GlobalPermission) bool) bool {
	if sub.Status == workflows.StatusApproved {
		return false
	}
	if sub.Status == workflows.StatusRejected {
		return r.rejectedEditable && isCreator
	}
	if isCreator {
		return true
	}
	return global != nil && grant(global) && actor.DivisionID == sub.CurrentDivisionID
}
