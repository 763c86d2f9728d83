package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/cueview/cueview/internal/auth"
	"github.com/cueview/cueview/internal/models"
	"github.com/cueview/cueview/internal/rooms"
	"github.com/cueview/cueview/internal/store"
	"github.com/cueview/cueview/internal/timer"
)

// Handler executes client commands against the room registry and fans the
// results out through the hub. Authorization: only the room's recorded
// controller may mutate; request/response commands answer "Not authorized",
// fire-and-forget commands are dropped silently.
type Handler struct {
	registry *rooms.Registry
	hub      *Hub
	verifier auth.Verifier
	clock    clockwork.Clock
	sink     EventSink
}

func NewHandler(registry *rooms.Registry, hub *Hub, verifier auth.Verifier, clock clockwork.Clock, sink EventSink) *Handler {
	if sink == nil {
		sink = NopSink{}
	}
	return &Handler{
		registry: registry,
		hub:      hub,
		verifier: verifier,
		clock:    clock,
		sink:     sink,
	}
}

// Dispatch parses and executes one inbound message. Every failure is scoped
// to this command; nothing here is fatal to the connection or the process.
func (h *Handler) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("unparseable command")
		return
	}

	switch cmd.Type {
	case CmdRoomCreate:
		h.roomCreate(ctx, c, cmd)
	case CmdRoomJoinController:
		h.joinController(ctx, c, cmd)
	case CmdRoomJoinViewer:
		h.joinViewer(ctx, c, cmd)
	case CmdRoomDelete:
		h.roomDelete(ctx, c, cmd)
	case CmdTimerCreate:
		h.timerCreate(ctx, c, cmd)
	case CmdTimerDelete:
		h.timerDelete(ctx, c, cmd)
	case CmdTimerRename:
		h.timerRename(ctx, c, cmd)
	case CmdTimerSetOnAir:
		h.timerSetOnAir(ctx, c, cmd)
	case CmdTimerStart:
		h.timerTransition(ctx, c, cmd, func(tm *models.Timer) { timer.Start(tm, h.clock.Now()) })
	case CmdTimerPause:
		h.timerTransition(ctx, c, cmd, func(tm *models.Timer) { timer.Pause(tm, h.clock.Now()) })
	case CmdTimerReset:
		h.timerTransition(ctx, c, cmd, func(tm *models.Timer) { timer.Reset(tm) })
	case CmdTimerSettings:
		h.timerSettings(ctx, c, cmd)
	case CmdTimerState:
		h.timerState(ctx, c, cmd)
	case CmdMessageSend:
		h.messageSend(ctx, c, cmd)
	case CmdBlackoutSet:
		h.blackoutSet(ctx, c, cmd)
	default:
		h.fail(c, cmd, "Unknown command")
	}
}

// Disconnected runs when a connection's read loop ends. Controller loss
// leaves the room alive for TTL-based reclaim; viewer loss re-notifies the
// controller with the updated count.
func (h *Handler) Disconnected(c *Client) {
	if c.roomCode == "" {
		return
	}
	switch c.role {
	case RoleViewer:
		count := h.registry.ViewerLeft(c.roomCode)
		h.notifyViewerCount(c.roomCode, count)
	case RoleController:
		h.registry.ClearController(c.roomCode, c.ID)
		log.Info().Str("room", c.roomCode).Msg("controller disconnected, awaiting rejoin")
	}
}

func (h *Handler) roomCreate(ctx context.Context, c *Client, cmd Command) {
	var payload createRoomPayload
	if len(cmd.Data) > 0 {
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			h.fail(c, cmd, errInternal)
			return
		}
	}

	var owner *uuid.UUID
	if payload.Token != "" {
		if userID, err := h.verifier.Verify(payload.Token); err == nil {
			owner = &userID
			c.userID = &userID
		} else {
			log.Debug().Err(err).Msg("room created with unverifiable token, treating as anonymous")
		}
	}

	room, err := h.registry.CreateRoom(ctx, owner)
	if err != nil {
		log.Error().Err(err).Msg("room creation failed")
		h.fail(c, cmd, errInternal)
		return
	}

	h.registry.SetController(ctx, room.Code, c.ID)
	c.role = RoleController
	h.hub.joinRoom(c, room.Code, "")

	h.sink.Publish(ctx, "room_created", map[string]interface{}{"room": room.Code})
	h.respond(c, cmd, createRoomResult{RoomID: room.Code, Timers: room.Timers})
}

func (h *Handler) joinController(ctx context.Context, c *Client, cmd Command) {
	var payload joinControllerPayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		h.fail(c, cmd, errInternal)
		return
	}

	room, err := h.registry.GetRoom(ctx, payload.RoomID)
	if err != nil {
		h.fail(c, cmd, h.wireError(err))
		return
	}

	// Owned rooms only readmit their owner. Ownerless rooms admit anyone,
	// which keeps codes shared before accounts existed working.
	if room.OwnerUserID != nil {
		userID, err := h.verifier.Verify(payload.Token)
		if err != nil || userID != *room.OwnerUserID {
			h.fail(c, cmd, errNotAuthorized)
			return
		}
		c.userID = &userID
	}

	h.registry.SetController(ctx, room.Code, c.ID)
	c.role = RoleController
	h.hub.joinRoom(c, room.Code, "")
	log.Info().Str("room", room.Code).Str("connection_id", c.ID).Msg("controller rejoined")

	h.respond(c, cmd, joinResult{
		RoomID:        room.Code,
		Timers:        h.deriveAll(room),
		ActiveTimerID: room.ActiveTimerID,
	})
}

func (h *Handler) joinViewer(ctx context.Context, c *Client, cmd Command) {
	var payload joinViewerPayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		h.fail(c, cmd, errInternal)
		return
	}

	room, err := h.registry.GetRoom(ctx, payload.RoomID)
	if err != nil {
		h.fail(c, cmd, h.wireError(err))
		return
	}

	// A viewer re-joining (same room or another) releases its previous
	// membership first so counts do not drift upward.
	if c.role == RoleViewer && c.RoomCode() != "" {
		prev := c.RoomCode()
		count := h.registry.ViewerLeft(prev)
		if prev != room.Code {
			h.notifyViewerCount(prev, count)
		}
	}

	c.role = RoleViewer
	h.hub.joinRoom(c, room.Code, payload.TimerID)

	count := h.registry.ViewerJoined(room.Code)
	h.registry.Touch(ctx, room.Code)
	h.notifyViewerCount(room.Code, count)
	log.Info().Str("room", room.Code).Int("viewers", count).Msg("viewer joined")

	h.respond(c, cmd, joinResult{
		RoomID:        room.Code,
		Timers:        h.deriveAll(room),
		ActiveTimerID: room.ActiveTimerID,
	})
}

func (h *Handler) roomDelete(ctx context.Context, c *Client, cmd Command) {
	var payload roomPayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		h.fail(c, cmd, errInternal)
		return
	}
	if !h.registry.IsController(payload.RoomID, c.ID) {
		h.fail(c, cmd, errNotAuthorized)
		return
	}

	code := rooms.Normalize(payload.RoomID)
	h.hub.Broadcast(code, &Event{Type: EventRoomDeleted, Data: roomPayload{RoomID: code}})
	if err := h.registry.DeleteRoom(ctx, code); err != nil {
		log.Error().Err(err).Str("room", code).Msg("room deletion failed")
		h.fail(c, cmd, errInternal)
		return
	}
	h.sink.Publish(ctx, "room_deleted", map[string]interface{}{"room": code})
	h.respond(c, cmd, nil)
}

func (h *Handler) timerCreate(ctx context.Context, c *Client, cmd Command) {
	var payload createTimerPayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		h.fail(c, cmd, errInternal)
		return
	}
	if !h.registry.IsController(payload.RoomID, c.ID) {
		h.fail(c, cmd, errNotAuthorized)
		return
	}

	created, err := h.registry.CreateTimer(ctx, payload.RoomID, payload.Name, payload.Duration)
	if err != nil {
		h.fail(c, cmd, h.wireError(err))
		return
	}

	h.hub.Broadcast(payload.RoomID, &Event{
		Type:    EventTimerCreated,
		TimerID: created.ID,
		Data:    timerSyncEvent{TimerID: created.ID, Timer: created},
	})
	h.respond(c, cmd, timerResult{Timer: created})
}

func (h *Handler) timerDelete(ctx context.Context, c *Client, cmd Command) {
	var payload timerPayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		h.fail(c, cmd, errInternal)
		return
	}
	if !h.registry.IsController(payload.RoomID, c.ID) {
		h.fail(c, cmd, errNotAuthorized)
		return
	}

	var newActive string
	_, err := h.registry.Update(ctx, payload.RoomID, func(room *models.Room) error {
		if !timer.Remove(room, payload.TimerID) {
			return rooms.ErrTimerNotFound
		}
		newActive = room.ActiveTimerID
		return nil
	})
	if err != nil {
		h.fail(c, cmd, h.wireError(err))
		return
	}

	h.hub.Broadcast(payload.RoomID, &Event{
		Type: EventTimerDeleted,
		Data: timerDeletedEvent{TimerID: payload.TimerID, NewActiveTimerID: newActive},
	})
	h.respond(c, cmd, nil)
}

func (h *Handler) timerRename(ctx context.Context, c *Client, cmd Command) {
	var payload renameTimerPayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		h.fail(c, cmd, errInternal)
		return
	}
	if !h.registry.IsController(payload.RoomID, c.ID) {
		h.fail(c, cmd, errNotAuthorized)
		return
	}

	updated, err := h.mutateTimer(ctx, payload.RoomID, payload.TimerID, func(tm *models.Timer) {
		tm.Name = payload.Name
	})
	if err != nil {
		h.fail(c, cmd, h.wireError(err))
		return
	}

	h.broadcastSnapshot(payload.RoomID, updated)
	h.respond(c, cmd, timerResult{Timer: updated})
}

func (h *Handler) timerSetOnAir(ctx context.Context, c *Client, cmd Command) {
	var payload timerPayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		h.fail(c, cmd, errInternal)
		return
	}
	if !h.registry.IsController(payload.RoomID, c.ID) {
		h.fail(c, cmd, errNotAuthorized)
		return
	}

	_, err := h.registry.Update(ctx, payload.RoomID, func(room *models.Room) error {
		if !timer.SetOnAir(room, payload.TimerID) {
			return rooms.ErrTimerNotFound
		}
		return nil
	})
	if err != nil {
		h.fail(c, cmd, h.wireError(err))
		return
	}

	// Room-level event: pinned viewers of every timer need to see on-air
	// move, so no TimerID filter here.
	h.hub.Broadcast(payload.RoomID, &Event{
		Type: EventOnAirChanged,
		Data: timerPayload{RoomID: rooms.Normalize(payload.RoomID), TimerID: payload.TimerID},
	})
	h.respond(c, cmd, nil)
}

// timerTransition runs start/pause/reset. The transitions are idempotent:
// starting a running timer or pausing a stopped one succeeds without effect.
func (h *Handler) timerTransition(ctx context.Context, c *Client, cmd Command, apply func(tm *models.Timer)) {
	var payload timerPayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		h.fail(c, cmd, errInternal)
		return
	}
	if !h.registry.IsController(payload.RoomID, c.ID) {
		h.fail(c, cmd, errNotAuthorized)
		return
	}

	updated, err := h.mutateTimer(ctx, payload.RoomID, payload.TimerID, apply)
	if err != nil {
		h.fail(c, cmd, h.wireError(err))
		return
	}

	h.broadcastSnapshot(payload.RoomID, updated)
	h.respond(c, cmd, timerResult{Timer: updated})
}

func (h *Handler) timerSettings(ctx context.Context, c *Client, cmd Command) {
	var payload timerSettingsPayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		h.fail(c, cmd, errInternal)
		return
	}
	if !h.registry.IsController(payload.RoomID, c.ID) {
		h.fail(c, cmd, errNotAuthorized)
		return
	}

	updated, err := h.mutateTimer(ctx, payload.RoomID, payload.TimerID, func(tm *models.Timer) {
		timer.MergeSettings(tm, payload.Patch)
	})
	if err != nil {
		h.fail(c, cmd, h.wireError(err))
		return
	}

	h.broadcastSnapshot(payload.RoomID, updated)
	h.respond(c, cmd, timerResult{Timer: updated})
}

// timerState applies a raw state override pushed by the controller. The
// resulting snapshot is relayed to everyone else in the room.
func (h *Handler) timerState(ctx context.Context, c *Client, cmd Command) {
	var payload timerStatePayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		h.fail(c, cmd, errInternal)
		return
	}
	if !h.registry.IsController(payload.RoomID, c.ID) {
		h.fail(c, cmd, errNotAuthorized)
		return
	}

	updated, err := h.mutateTimer(ctx, payload.RoomID, payload.TimerID, func(tm *models.Timer) {
		timer.ApplyPatch(tm, payload.State, h.clock.Now())
	})
	if err != nil {
		h.fail(c, cmd, h.wireError(err))
		return
	}

	h.hub.BroadcastExcept(payload.RoomID, c.ID, &Event{
		Type:    EventTimerSync,
		TimerID: updated.ID,
		Data:    timerSyncEvent{TimerID: updated.ID, Timer: updated},
	})
	h.respond(c, cmd, timerResult{Timer: updated})
}

func (h *Handler) messageSend(ctx context.Context, c *Client, cmd Command) {
	var payload messagePayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		return
	}
	// Fire-and-forget: unauthorized senders are dropped without a reply.
	if !h.registry.IsController(payload.RoomID, c.ID) {
		return
	}

	msg := models.SpeakerMessage{
		Text:       payload.Text,
		DurationMS: payload.DurationMS,
		Priority:   payload.Priority,
	}
	if msg.DurationMS <= 0 {
		msg.DurationMS = models.DefaultMessageDurationMS
	}
	if msg.Priority == "" {
		msg.Priority = models.PriorityNormal
	}

	h.hub.BroadcastExcept(payload.RoomID, c.ID, &Event{Type: EventMessageShow, Data: msg})
}

func (h *Handler) blackoutSet(ctx context.Context, c *Client, cmd Command) {
	var payload blackoutPayload
	if err := json.Unmarshal(cmd.Data, &payload); err != nil {
		return
	}
	if !h.registry.IsController(payload.RoomID, c.ID) {
		return
	}
	h.hub.BroadcastExcept(payload.RoomID, c.ID, &Event{Type: EventBlackoutSync, Data: payload})
}

// mutateTimer updates one timer under the room lock and returns the
// committed snapshot.
func (h *Handler) mutateTimer(ctx context.Context, code, timerID string, apply func(tm *models.Timer)) (*models.Timer, error) {
	var updated *models.Timer
	_, err := h.registry.Update(ctx, code, func(room *models.Room) error {
		tm := room.Timer(timerID)
		if tm == nil {
			return rooms.ErrTimerNotFound
		}
		apply(tm)
		updated = tm.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// broadcastSnapshot emits the full timer snapshot after a committed write.
// Clients need no catch-up call beyond their join response.
func (h *Handler) broadcastSnapshot(code string, tm *models.Timer) {
	h.hub.Broadcast(code, &Event{
		Type:    EventTimerSync,
		TimerID: tm.ID,
		Data:    timerSyncEvent{TimerID: tm.ID, Timer: tm},
	})
}

func (h *Handler) notifyViewerCount(code string, count int) {
	ctrl := h.registry.ControllerSocket(code)
	if ctrl == "" {
		return
	}
	h.hub.SendTo(code, ctrl, &Event{Type: EventViewerCount, Data: viewerCountEvent{Count: count}})
}

// deriveAll returns snapshots with running timers advanced to "now".
func (h *Handler) deriveAll(room *models.Room) []*models.Timer {
	now := h.clock.Now()
	out := make([]*models.Timer, len(room.Timers))
	for i, tm := range room.Timers {
		out[i] = timer.Derive(tm, now)
	}
	return out
}

func (h *Handler) respond(c *Client, cmd Command, data interface{}) {
	if cmd.ID == "" {
		return
	}
	c.sendJSON(Response{ID: cmd.ID, OK: true, Data: data})
}

func (h *Handler) fail(c *Client, cmd Command, message string) {
	if cmd.ID == "" {
		return
	}
	c.sendJSON(Response{ID: cmd.ID, OK: false, Error: message})
}

func (h *Handler) wireError(err error) string {
	switch {
	// store.ErrNotFound surfaces when the room vanishes between an update's
	// load and its commit; to the caller that is the same as a missing room.
	case errors.Is(err, rooms.ErrRoomNotFound), errors.Is(err, store.ErrNotFound):
		return errRoomNotFound
	case errors.Is(err, rooms.ErrTimerNotFound):
		return errTimerNotFound
	default:
		log.Error().Err(err).Msg("command failed")
		return errInternal
	}
}
