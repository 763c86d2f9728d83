package models

import (
	"time"

	"github.com/google/uuid"
)

// Room groups an ordered set of timers under one shareable code. At most
// one timer per room is on air; ActiveTimerID names it, or is empty when
// the room has no timers.
type Room struct {
	Code           string     `json:"roomId"`
	Name           string     `json:"name,omitempty"`
	OwnerUserID    *uuid.UUID `json:"ownerUserId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastActivityAt time.Time  `json:"lastActivityAt"`
	ActiveTimerID  string     `json:"activeTimerId,omitempty"`
	Timers         []*Timer   `json:"timers"`
	IsActive       bool       `json:"isActive"`
}

// Timer returns the timer with the given id, or nil.
func (r *Room) Timer(id string) *Timer {
	for _, t := range r.Timers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// OnAir returns the timer currently on air, or nil.
func (r *Room) OnAir() *Timer {
	if r.ActiveTimerID == "" {
		return nil
	}
	return r.Timer(r.ActiveTimerID)
}

// Clone returns a deep copy safe to hand to other goroutines.
func (r *Room) Clone() *Room {
	cp := *r
	if r.OwnerUserID != nil {
		id := *r.OwnerUserID
		cp.OwnerUserID = &id
	}
	cp.Timers = make([]*Timer, len(r.Timers))
	for i, t := range r.Timers {
		cp.Timers[i] = t.Clone()
	}
	return &cp
}
