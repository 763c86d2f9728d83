package models

import "time"

// TimerMode defines how a timer counts.
type TimerMode string

const (
	TimerModeCountdown TimerMode = "countdown"
	TimerModeCountup   TimerMode = "countup"
	TimerModeClock     TimerMode = "clock"
)

// TimerStatus defines the lifecycle state of a timer.
type TimerStatus string

const (
	TimerStatusStopped TimerStatus = "stopped"
	TimerStatusRunning TimerStatus = "running"
	TimerStatusPaused  TimerStatus = "paused"
)

// ColorState is the display color derived from remaining time and thresholds.
type ColorState string

const (
	ColorGreen  ColorState = "green"
	ColorYellow ColorState = "yellow"
	ColorRed    ColorState = "red"
)

// TimerSettings holds per-timer configuration, persisted as JSONB on the
// durable backend.
type TimerSettings struct {
	Duration        int       `json:"duration"`
	YellowThreshold int       `json:"yellowThreshold"`
	RedThreshold    int       `json:"redThreshold"`
	Mode            TimerMode `json:"mode"`
	SoundEnabled    bool      `json:"soundEnabled"`
	OvertimeEnabled bool      `json:"overtimeEnabled"`
}

// DefaultTimerSettings returns the settings applied to newly created timers.
func DefaultTimerSettings() TimerSettings {
	return TimerSettings{
		Duration:        5 * 60,
		YellowThreshold: 60,
		RedThreshold:    30,
		Mode:            TimerModeCountdown,
		SoundEnabled:    true,
		OvertimeEnabled: true,
	}
}

// Timer is the authoritative state of a single timer within a room.
//
// ElapsedSeconds and RemainingSeconds are only rewritten at transition
// points (start/pause/reset). While a timer is running, StartedAt anchors
// the wall-clock moment it entered the running state so elapsed time can be
// derived on demand without per-tick writes.
type Timer struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Settings         TimerSettings `json:"settings"`
	ElapsedSeconds   int           `json:"elapsedSeconds"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Status           TimerStatus   `json:"status"`
	StartedAt        *time.Time    `json:"startedAt,omitempty"`
	IsOnAir          bool          `json:"isOnAir"`
	Position         int           `json:"position"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (t *Timer) Clone() *Timer {
	cp := *t
	if t.StartedAt != nil {
		at := *t.StartedAt
		cp.StartedAt = &at
	}
	return &cp
}

// MessagePriority ranks speaker messages on the viewer display.
type MessagePriority string

const (
	PriorityNormal MessagePriority = "normal"
	PriorityUrgent MessagePriority = "urgent"
)

// SpeakerMessage is a transient message shown on viewer displays. It is
// broadcast fire-and-forget and never persisted.
type SpeakerMessage struct {
	Text       string          `json:"text"`
	DurationMS int             `json:"duration"`
	Priority   MessagePriority `json:"priority"`
}

// DefaultMessageDurationMS is how long a speaker message stays on screen
// when the controller does not specify a duration.
const DefaultMessageDurationMS = 5000
