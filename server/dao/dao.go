// Package dao provides data access objects for use in the pastprint server.
package dao

import (
	"context"
	"time"

	"github.com/dekarrin/pastprint/interp"
	"github.com/google/uuid"
)

// Store holds all the repositories.
type Store interface {
	Sessions() SessionRepository
	Close() error
}

// SessionRepository persists interactive rewriting sessions.
type SessionRepository interface {

	// Create creates a new Session. All attributes except for auto-generated
	// fields are taken from the provided Session.
	Create(ctx context.Context, s Session) (Session, error)

	// GetAll returns every Session, ordered by creation time.
	GetAll(ctx context.Context) ([]Session, error)

	GetByID(ctx context.Context, id uuid.UUID) (Session, error)

	// Update replaces the Session with the given ID. Created is not changed
	// and Updated is set to the current time.
	Update(ctx context.Context, id uuid.UUID, s Session) (Session, error)

	Delete(ctx context.Context, id uuid.UUID) (Session, error)

	Close() error
}

// Session is a stored interactive rewriting session.
type Session struct {
	ID      uuid.UUID
	Created time.Time
	Updated time.Time

	// Lines is the number of lines fed to the session so far.
	Lines int

	State *interp.Session
}
