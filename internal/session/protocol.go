package session

import (
	"encoding/json"

	"github.com/cueview/cueview/internal/models"
	"github.com/cueview/cueview/internal/timer"
)

// CommandType enumerates everything a client can send.
type CommandType string

const (
	CmdRoomCreate         CommandType = "room:create"
	CmdRoomJoinController CommandType = "room:join-controller"
	CmdRoomJoinViewer     CommandType = "room:join-viewer"
	CmdRoomDelete         CommandType = "room:delete"
	CmdTimerCreate        CommandType = "timer:create"
	CmdTimerDelete        CommandType = "timer:delete"
	CmdTimerRename        CommandType = "timer:rename"
	CmdTimerSetOnAir      CommandType = "timer:set-on-air"
	CmdTimerStart         CommandType = "timer:start"
	CmdTimerPause         CommandType = "timer:pause"
	CmdTimerReset         CommandType = "timer:reset"
	CmdTimerSettings      CommandType = "timer:settings"
	CmdTimerState         CommandType = "timer:state"
	CmdMessageSend        CommandType = "message:send"
	CmdBlackoutSet        CommandType = "blackout:set"
)

// EventType enumerates server-pushed events.
type EventType string

const (
	EventTimerSync    EventType = "timer:sync"
	EventTimerCreated EventType = "timer:created"
	EventTimerDeleted EventType = "timer:deleted"
	EventOnAirChanged EventType = "timer:on-air-changed"
	EventViewerCount  EventType = "room:viewer-count"
	EventRoomDeleted  EventType = "room:deleted"
	EventMessageShow  EventType = "message:show"
	EventBlackoutSync EventType = "blackout:sync"
)

// Command is the request envelope. ID correlates the response; commands
// without an ID are fire-and-forget and never answered.
type Command struct {
	ID   string          `json:"id,omitempty"`
	Type CommandType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the reply envelope for request/response commands.
type Response struct {
	ID    string      `json:"id,omitempty"`
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// Event is the broadcast envelope. TimerID, when set, lets pinned viewers
// filter events down to a single timer's sub-channel.
type Event struct {
	Type    EventType   `json:"type"`
	TimerID string      `json:"timerId,omitempty"`
	Data    interface{} `json:"data"`
}

// Wire error strings. Request/response commands surface these; broadcast
// commands fail closed instead.
const (
	errRoomNotFound  = "Room not found"
	errTimerNotFound = "Timer not found"
	errNotAuthorized = "Not authorized"
	errInternal      = "Internal error"
)

// Command payloads.

type createRoomPayload struct {
	Token string `json:"token,omitempty"`
}

type joinControllerPayload struct {
	RoomID string `json:"roomId"`
	Token  string `json:"token,omitempty"`
}

type joinViewerPayload struct {
	RoomID  string `json:"roomId"`
	TimerID string `json:"timerId,omitempty"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type createTimerPayload struct {
	RoomID   string `json:"roomId"`
	Name     string `json:"name,omitempty"`
	Duration *int   `json:"duration,omitempty"`
}

type timerPayload struct {
	RoomID  string `json:"roomId"`
	TimerID string `json:"timerId"`
}

type renameTimerPayload struct {
	RoomID  string `json:"roomId"`
	TimerID string `json:"timerId"`
	Name    string `json:"name"`
}

type timerSettingsPayload struct {
	RoomID  string              `json:"roomId"`
	TimerID string              `json:"timerId"`
	Patch   timer.SettingsPatch `json:"settings"`
}

type timerStatePayload struct {
	RoomID  string           `json:"roomId"`
	TimerID string           `json:"timerId"`
	State   timer.StatePatch `json:"state"`
}

type messagePayload struct {
	RoomID     string                 `json:"roomId"`
	Text       string                 `json:"text"`
	DurationMS int                    `json:"duration,omitempty"`
	Priority   models.MessagePriority `json:"priority,omitempty"`
}

type blackoutPayload struct {
	RoomID  string `json:"roomId"`
	Enabled bool   `json:"enabled"`
}

// Response payloads.

type createRoomResult struct {
	RoomID string          `json:"roomId"`
	Timers []*models.Timer `json:"timers"`
}

type joinResult struct {
	RoomID        string          `json:"roomId"`
	Timers        []*models.Timer `json:"timers"`
	ActiveTimerID string          `json:"activeTimerId,omitempty"`
}

type timerResult struct {
	Timer *models.Timer `json:"timer"`
}

// Event payloads.

type timerSyncEvent struct {
	TimerID string        `json:"timerId"`
	Timer   *models.Timer `json:"timer"`
}

type timerDeletedEvent struct {
	TimerID          string `json:"timerId"`
	NewActiveTimerID string `json:"newActiveTimerId,omitempty"`
}

type viewerCountEvent struct {
	Count int `json:"count"`
}
