// Package store provides the persistence contract for rooms and timers,
// with a durable Postgres implementation and an ephemeral in-memory one.
// Callers pick a backend once at startup and stay agnostic afterwards.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cueview/cueview/internal/models"
)

// ErrNotFound is returned when a room (or timer) does not exist or has been
// deactivated.
var ErrNotFound = errors.New("not found")

// Store is the uniform contract over both backends. Room codes are
// case-normalized inside every implementation, so lookups for "ab12-cd34"
// and "AB12-CD34" hit the same record.
type Store interface {
	// CreateRoom persists a new room together with its initial timers.
	CreateRoom(ctx context.Context, room *models.Room) error

	// GetRoom returns an active room with its timers in position order.
	GetRoom(ctx context.Context, code string) (*models.Room, error)

	// RoomExists reports whether an active room holds the code. Used for
	// collision checks during code generation.
	RoomExists(ctx context.Context, code string) (bool, error)

	// SaveRoom commits the room's current state: room fields plus the full
	// timer set. Timers absent from the room are removed from the backend.
	SaveRoom(ctx context.Context, room *models.Room) error

	// DeleteRoom removes a room. The ephemeral backend discards it; the
	// durable backend flips is_active instead, keeping history. Idempotent.
	DeleteRoom(ctx context.Context, code string) error

	// TouchRoom refreshes the room's persisted activity timestamp. Joins go
	// through this so a room someone is using never hits the expiry sweep.
	TouchRoom(ctx context.Context, code string, at time.Time) error

	// ActiveRoomCount returns the number of active rooms.
	ActiveRoomCount(ctx context.Context) (int, error)

	// ExpireRoomsIdleSince expires rooms whose last activity predates the
	// cutoff and returns how many were expired.
	ExpireRoomsIdleSince(ctx context.Context, cutoff time.Time) (int, error)
}
