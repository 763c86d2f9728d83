package session

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/cueview/cueview/internal/models"
	"github.com/cueview/cueview/internal/rooms"
	"github.com/cueview/cueview/internal/timer"
)

// DefaultReconcileInterval is how often running timers are rebroadcast.
const DefaultReconcileInterval = time.Second

// Reconciler periodically re-derives and rebroadcasts snapshots for every
// room with a running timer. Clients that missed a transition event
// converge on the next pass, and zero-crossing into overtime is observed
// server-side without waiting for a client request. Derivation goes through
// the same formula as on-demand reads, so the two paths cannot drift apart.
type Reconciler struct {
	registry *rooms.Registry
	hub      *Hub
	clock    clockwork.Clock
	interval time.Duration
}

func NewReconciler(registry *rooms.Registry, hub *Hub, clock clockwork.Clock, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &Reconciler{
		registry: registry,
		hub:      hub,
		clock:    clock,
		interval: interval,
	}
}

// Run ticks until the context ends. Each pass also gives the registry a
// chance to expire idle rooms.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	sweepEvery := int(rooms.DefaultTTL / (10 * r.interval))
	if sweepEvery < 1 {
		sweepEvery = 1
	}
	ticks := 0

	log.Info().Dur("interval", r.interval).Msg("timer reconciler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer reconciler shutting down")
			return
		case <-ticker.Chan():
			r.Pass(ctx)
			ticks++
			if ticks%sweepEvery == 0 {
				if _, err := r.registry.Sweep(ctx); err != nil {
					log.Warn().Err(err).Msg("expiry sweep failed")
				}
			}
		}
	}
}

// Pass rebroadcasts one snapshot per running timer.
func (r *Reconciler) Pass(ctx context.Context) {
	now := r.clock.Now()
	for _, code := range r.registry.RunningRooms() {
		room, err := r.registry.GetRoom(ctx, code)
		if err != nil {
			log.Warn().Err(err).Str("room", code).Msg("reconcile pass skipped room")
			continue
		}
		for _, tm := range room.Timers {
			if tm.Status != models.TimerStatusRunning {
				continue
			}
			snap := timer.Derive(tm, now)
			r.hub.Broadcast(code, &Event{
				Type:    EventTimerSync,
				TimerID: snap.ID,
				Data:    timerSyncEvent{TimerID: snap.ID, Timer: snap},
			})
		}
	}
}
