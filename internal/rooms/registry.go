// Package rooms owns room lifecycle: code generation, lookup, controller
// assignment, activity tracking, and expiry. Persisted state lives in the
// configured store; transient runtime state (controller socket, viewer
// counts, timer counters) lives only here and is merged into the persisted
// view at read time.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/cueview/cueview/internal/models"
	"github.com/cueview/cueview/internal/store"
	"github.com/cueview/cueview/internal/timer"
)

// DefaultTTL is the inactivity window after which a room expires.
const DefaultTTL = 24 * time.Hour

// codeRetries bounds regeneration when a generated code collides with a
// live room.
const codeRetries = 5

// runtimeState holds the per-room fields that are never persisted. Losing
// them on restart is harmless: the next controller join reclaims the room.
type runtimeState struct {
	controllerSocketID string
	viewerCount        int
	peakViewers        int
	timerSeq           int
	lastActivity       time.Time
	hasRunning         bool
}

// Registry is the room registry. All mutating operations on the same room
// are serialized through a per-room lock, so interleaved commands cannot
// race; distinct rooms proceed concurrently.
type Registry struct {
	store store.Store
	clock clockwork.Clock
	ttl   time.Duration
	rng   *rand.Rand

	mu      sync.Mutex
	runtime map[string]*runtimeState
	locks   map[string]*sync.Mutex
}

func NewRegistry(st store.Store, clock clockwork.Clock, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		store:   st,
		clock:   clock,
		ttl:     ttl,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		runtime: make(map[string]*runtimeState),
		locks:   make(map[string]*sync.Mutex),
	}
}

// CreateRoom generates a collision-checked code, persists the room with its
// auto-created first timer already on air, and registers runtime state. An
// opportunistic expiry sweep keeps the ephemeral backend from accumulating
// dead rooms.
func (r *Registry) CreateRoom(ctx context.Context, owner *uuid.UUID) (*models.Room, error) {
	code, err := r.newCode(ctx)
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	room := &models.Room{
		Code:           code,
		OwnerUserID:    owner,
		CreatedAt:      now,
		LastActivityAt: now,
		IsActive:       true,
	}
	first := timer.New("t1", "Timer 1", models.DefaultTimerSettings(), 1, true)
	room.Timers = []*models.Timer{first}
	room.ActiveTimerID = first.ID

	if err := r.store.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("persist room: %w", err)
	}

	r.mu.Lock()
	r.runtime[code] = &runtimeState{timerSeq: 1, lastActivity: now}
	r.mu.Unlock()

	log.Info().Str("room", code).Msg("room created")

	if _, err := r.Sweep(ctx); err != nil {
		log.Warn().Err(err).Msg("opportunistic expiry sweep failed")
	}
	return room.Clone(), nil
}

// GetRoom returns the merged view of a room: persisted fields from the
// store, activity from whichever side saw it last.
func (r *Registry) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	room, err := r.load(ctx, Normalize(code))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if rt, ok := r.runtime[room.Code]; ok && rt.lastActivity.After(room.LastActivityAt) {
		room.LastActivityAt = rt.lastActivity
	}
	r.mu.Unlock()
	return room, nil
}

// DeleteRoom tears down runtime state and removes (or deactivates) the
// persisted record. Idempotent.
func (r *Registry) DeleteRoom(ctx context.Context, code string) error {
	code = Normalize(code)
	r.mu.Lock()
	delete(r.runtime, code)
	delete(r.locks, code)
	r.mu.Unlock()

	if err := r.store.DeleteRoom(ctx, code); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	log.Info().Str("room", code).Msg("room deleted")
	return nil
}

// SetController assigns or replaces the room's single authoritative writer.
// Returns false if the room does not exist.
func (r *Registry) SetController(ctx context.Context, code, sessionID string) bool {
	code = Normalize(code)
	if _, err := r.load(ctx, code); err != nil {
		return false
	}

	r.mu.Lock()
	rt := r.ensureRuntimeLocked(code)
	rt.controllerSocketID = sessionID
	r.mu.Unlock()
	r.Touch(ctx, code)
	return true
}

// Touch refreshes the room's activity on both the runtime and persisted
// sides. The expiry sweep reads the persisted timestamp, so a join on its
// own has to reach the store or the room expires while in use.
func (r *Registry) Touch(ctx context.Context, code string) {
	code = Normalize(code)
	now := r.clock.Now()
	r.mu.Lock()
	r.ensureRuntimeLocked(code).lastActivity = now
	r.mu.Unlock()

	if err := r.store.TouchRoom(ctx, code, now); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Str("room", code).Msg("activity refresh failed")
	}
}

// IsController is the authorization check behind every mutating command.
func (r *Registry) IsController(code, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.runtime[Normalize(code)]
	return ok && sessionID != "" && rt.controllerSocketID == sessionID
}

// ClearController drops the controller assignment if it still belongs to
// the given session. The room itself stays alive until TTL expiry.
func (r *Registry) ClearController(code, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rt, ok := r.runtime[Normalize(code)]; ok && rt.controllerSocketID == sessionID {
		rt.controllerSocketID = ""
	}
}

// ControllerSocket returns the current controller's session id, or "".
func (r *Registry) ControllerSocket(code string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rt, ok := r.runtime[Normalize(code)]; ok {
		return rt.controllerSocketID
	}
	return ""
}

// HasController reports whether a controller socket is currently assigned.
func (r *Registry) HasController(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.runtime[Normalize(code)]
	return ok && rt.controllerSocketID != ""
}

// Update runs fn against the room's current state under the room's lock and
// commits the result before returning. The returned room is the committed
// snapshot; callers broadcast only after Update succeeds, so clients never
// see state a subsequent read would not reproduce.
func (r *Registry) Update(ctx context.Context, code string, fn func(room *models.Room) error) (*models.Room, error) {
	code = Normalize(code)
	lock := r.roomLock(code)
	lock.Lock()
	defer lock.Unlock()

	room, err := r.load(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := fn(room); err != nil {
		return nil, err
	}

	now := r.clock.Now()
	room.LastActivityAt = now
	if err := r.store.SaveRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("persist room %s: %w", code, err)
	}

	r.mu.Lock()
	rt := r.ensureRuntimeLocked(code)
	rt.lastActivity = now
	rt.hasRunning = false
	for _, tm := range room.Timers {
		if tm.Status == models.TimerStatusRunning {
			rt.hasRunning = true
			break
		}
	}
	r.mu.Unlock()

	return room.Clone(), nil
}

// CreateTimer appends a timer with the next sequential id. Timer ids are
// monotonic per room and never reused, even after deletions.
func (r *Registry) CreateTimer(ctx context.Context, code, name string, duration *int) (*models.Timer, error) {
	var created *models.Timer
	_, err := r.Update(ctx, code, func(room *models.Room) error {
		seq := r.nextTimerSeq(room)
		settings := models.DefaultTimerSettings()
		if duration != nil {
			settings.Duration = *duration
		}
		if name == "" {
			name = fmt.Sprintf("Timer %d", len(room.Timers)+1)
		}
		created = timer.New(fmt.Sprintf("t%d", seq), name, settings, seq, len(room.Timers) == 0)
		room.Timers = append(room.Timers, created)
		if created.IsOnAir {
			room.ActiveTimerID = created.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("room", Normalize(code)).Str("timer", created.ID).Msg("timer created")
	return created.Clone(), nil
}

// ViewerJoined bumps the room's viewer count and returns the new count.
func (r *Registry) ViewerJoined(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt := r.ensureRuntimeLocked(Normalize(code))
	rt.viewerCount++
	if rt.viewerCount > rt.peakViewers {
		rt.peakViewers = rt.viewerCount
	}
	return rt.viewerCount
}

// ViewerLeft decrements the room's viewer count and returns the new count.
func (r *Registry) ViewerLeft(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt := r.ensureRuntimeLocked(Normalize(code))
	if rt.viewerCount > 0 {
		rt.viewerCount--
	}
	return rt.viewerCount
}

// ViewerCount returns the current viewer count for a room.
func (r *Registry) ViewerCount(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rt, ok := r.runtime[Normalize(code)]; ok {
		return rt.viewerCount
	}
	return 0
}

// PeakViewers returns the highest viewer count the room has seen.
func (r *Registry) PeakViewers(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rt, ok := r.runtime[Normalize(code)]; ok {
		return rt.peakViewers
	}
	return 0
}

// RunningRooms lists codes of rooms with at least one running timer, for
// the periodic rebroadcast pass.
func (r *Registry) RunningRooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var codes []string
	for code, rt := range r.runtime {
		if rt.hasRunning {
			codes = append(codes, code)
		}
	}
	return codes
}

// ActiveRoomCount exposes the store's active-room count for monitoring.
func (r *Registry) ActiveRoomCount(ctx context.Context) (int, error) {
	return r.store.ActiveRoomCount(ctx)
}

// Sweep expires rooms idle past the TTL and drops their runtime state.
func (r *Registry) Sweep(ctx context.Context) (int, error) {
	cutoff := r.clock.Now().Add(-r.ttl)
	expired, err := r.store.ExpireRoomsIdleSince(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire idle rooms: %w", err)
	}

	r.mu.Lock()
	for code, rt := range r.runtime {
		if rt.lastActivity.Before(cutoff) {
			delete(r.runtime, code)
			delete(r.locks, code)
		}
	}
	r.mu.Unlock()

	if expired > 0 {
		log.Info().Int("rooms", expired).Msg("expired idle rooms")
	}
	return expired, nil
}

func (r *Registry) load(ctx context.Context, code string) (*models.Room, error) {
	room, err := r.store.GetRoom(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	return room, nil
}

func (r *Registry) newCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeRetries; attempt++ {
		r.mu.Lock()
		code := generateCode(r.rng)
		r.mu.Unlock()

		exists, err := r.store.RoomExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("collision check: %w", err)
		}
		if !exists {
			return code, nil
		}
		log.Warn().Str("room", code).Int("attempt", attempt+1).Msg("room code collision")
	}
	return "", ErrCodesExhausted
}

// nextTimerSeq advances the room's monotonic timer counter. After a restart
// the counter is rebuilt from the highest persisted timer id so ids are
// never reissued.
func (r *Registry) nextTimerSeq(room *models.Room) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt := r.ensureRuntimeLocked(room.Code)
	if rt.timerSeq == 0 {
		for _, tm := range room.Timers {
			if n, ok := parseTimerID(tm.ID); ok && n > rt.timerSeq {
				rt.timerSeq = n
			}
		}
	}
	rt.timerSeq++
	return rt.timerSeq
}

func (r *Registry) ensureRuntimeLocked(code string) *runtimeState {
	rt, ok := r.runtime[code]
	if !ok {
		rt = &runtimeState{lastActivity: r.clock.Now()}
		r.runtime[code] = rt
	}
	return rt
}

func (r *Registry) roomLock(code string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[code]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[code] = lock
	}
	return lock
}

func parseTimerID(id string) (int, bool) {
	if !strings.HasPrefix(id, "t") {
		return 0, false
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
