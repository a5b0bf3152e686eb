package identity

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetDivisionByID(ctx context.Context, id uuid.UUID) (*Division, error)
	ListDivisions(ctx context.Context) ([]Division, error)
	ListSubdivisions(ctx context.Context, divisionID *uuid.UUID) ([]Subdivision, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &user, err
}

func (r *postgresRepository) GetDivisionByID(ctx context.Context, id uuid.UUID) (*Division, error) {
	var division Division
	err := r.db.GetContext(ctx, &division, "SELECT * FROM divisions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &division, err
}

func (r *postgresRepository) ListDivisions(ctx context.Context) ([]Division, error) {
	var divisions []Division
	err := r.db.SelectContext(ctx, &divisions, "SELECT * FROM divisions ORDER BY name")
	return divisions, err
}

func (r *postgresRepository) ListSubdivisions(ctx context.Context, divisionID *uuid.UUID) ([]Subdivision, error) {
	var subdivisions []Subdivision
	if divisionID != nil {
		err := r.db.SelectContext(ctx, &subdivisions, "SELECT * FROM subdivisions WHERE division_id = $1 ORDER BY name", *divisionID)
		return subdivisions, err
	}
	err := r.db.SelectContext(ctx, &subdivisions, "SELECT * FROM subdivisions ORDER BY name")
	return subdivisions, err
}
