package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is an employee account. Division membership drives step ownership;
// subdivision membership drives permission-table lookups.
type User struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Email         string    `json:"email" db:"email"`
	DivisionID    uuid.UUID `json:"division_id" db:"division_id"`
	SubdivisionID uuid.UUID `json:"subdivision_id" db:"subdivision_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type Division struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

type Subdivision struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DivisionID uuid.UUID `json:"division_id" db:"division_id"`
	Name       string    `json:"name" db:"name"`
}

// Actor is the identity attached to every authenticated request. It is the
// only identity shape the workflow engine consumes.
type Actor struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	DivisionID    uuid.UUID `json:"division_id"`
	SubdivisionID uuid.UUID `json:"subdivision_id"`
}

// ActorFromUser builds the request actor for a user row.
func ActorFromUser(u *User) Actor {
	return Actor{
		ID:            u.ID,
		Name:          u.Name,
		DivisionID:    u.DivisionID,
		SubdivisionID: u.SubdivisionID,
	}
}
