package rooms

import "errors"

var (
	// ErrRoomNotFound is returned when a room code resolves to nothing.
	ErrRoomNotFound = errors.New("room not found")

	// ErrTimerNotFound is returned when a timer id is absent from its room.
	ErrTimerNotFound = errors.New("timer not found")

	// ErrCodesExhausted is returned when code generation keeps colliding.
	// It points at a configuration problem (far too many live rooms for the
	// code space), not a transient fault.
	ErrCodesExhausted = errors.New("room code space exhausted")
)
