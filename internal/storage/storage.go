package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/passage-engine/pkg/state"
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoryNotFound is returned when no story document matches an id.
	ErrStoryNotFound = errors.New("story not found")
)

// Storage keeps live session state between requests.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// SaveGameState stores gs under gs.ID, refreshing its expiry.
	SaveGameState(ctx context.Context, gs *state.GameState) error
	// LoadGameState returns ErrSessionNotFound if the session doesn't exist or expired.
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}
