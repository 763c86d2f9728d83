package timer

import (
	"fmt"
	"time"

	"github.com/cueview/cueview/internal/models"
)

// New builds a stopped timer seeded from its settings. The first timer in a
// room goes on air immediately.
func New(id, name string, settings models.TimerSettings, position int, onAir bool) *models.Timer {
	if name == "" {
		name = fmt.Sprintf("Timer %d", position)
	}
	return &models.Timer{
		ID:               id,
		Name:             name,
		Settings:         settings,
		ElapsedSeconds:   0,
		RemainingSeconds: settings.Duration,
		Status:           models.TimerStatusStopped,
		IsOnAir:          onAir,
		Position:         position,
	}
}

// Start transitions a timer into the running state, anchoring the current
// wall clock. Starting an already-running timer is a no-op.
func Start(tm *models.Timer, now time.Time) bool {
	if tm.Status == models.TimerStatusRunning {
		return false
	}
	tm.Status = models.TimerStatusRunning
	tm.StartedAt = &now
	return true
}

// Pause folds the time accrued since the anchor into ElapsedSeconds and
// clears the anchor. Pausing a timer that is not running is a no-op.
func Pause(tm *models.Timer, now time.Time) bool {
	if tm.Status != models.TimerStatusRunning {
		return false
	}
	tm.ElapsedSeconds += anchorDelta(tm, now)
	tm.RemainingSeconds = remaining(tm.Settings, tm.ElapsedSeconds)
	tm.Status = models.TimerStatusPaused
	tm.StartedAt = nil
	return true
}

// Reset zeroes elapsed time and re-seeds remaining time from the configured
// duration, from any state.
func Reset(tm *models.Timer) {
	tm.Status = models.TimerStatusStopped
	tm.ElapsedSeconds = 0
	tm.RemainingSeconds = tm.Settings.Duration
	tm.StartedAt = nil
}

// SettingsPatch is a partial update to timer settings. Nil fields are left
// untouched.
type SettingsPatch struct {
	Duration        *int              `json:"duration,omitempty"`
	YellowThreshold *int              `json:"yellowThreshold,omitempty"`
	RedThreshold    *int              `json:"redThreshold,omitempty"`
	Mode            *models.TimerMode `json:"mode,omitempty"`
	SoundEnabled    *bool             `json:"soundEnabled,omitempty"`
	OvertimeEnabled *bool             `json:"overtimeEnabled,omitempty"`
}

// MergeSettings applies a partial settings update. It never resets elapsed
// time; a duration change only re-seeds RemainingSeconds while the timer is
// stopped.
func MergeSettings(tm *models.Timer, patch SettingsPatch) {
	if patch.Duration != nil {
		tm.Settings.Duration = *patch.Duration
		if tm.Status == models.TimerStatusStopped {
			tm.RemainingSeconds = tm.Settings.Duration
		}
	}
	if patch.YellowThreshold != nil {
		tm.Settings.YellowThreshold = *patch.YellowThreshold
	}
	if patch.RedThreshold != nil {
		tm.Settings.RedThreshold = *patch.RedThreshold
	}
	if patch.Mode != nil {
		tm.Settings.Mode = *patch.Mode
	}
	if patch.SoundEnabled != nil {
		tm.Settings.SoundEnabled = *patch.SoundEnabled
	}
	if patch.OvertimeEnabled != nil {
		tm.Settings.OvertimeEnabled = *patch.OvertimeEnabled
	}
}

// StatePatch is a raw state override from the controller. It exists for
// controllers that track state locally and push it to the room.
type StatePatch struct {
	Settings         *SettingsPatch      `json:"settings,omitempty"`
	ElapsedSeconds   *int                `json:"elapsedSeconds,omitempty"`
	RemainingSeconds *int                `json:"remainingSeconds,omitempty"`
	Status           *models.TimerStatus `json:"status,omitempty"`
}

// ApplyPatch merges a raw state override into the timer. A status change to
// running anchors now; leaving running clears the anchor.
func ApplyPatch(tm *models.Timer, patch StatePatch, now time.Time) {
	if patch.Settings != nil {
		MergeSettings(tm, *patch.Settings)
	}
	if patch.ElapsedSeconds != nil {
		tm.ElapsedSeconds = *patch.ElapsedSeconds
	}
	if patch.RemainingSeconds != nil {
		tm.RemainingSeconds = *patch.RemainingSeconds
	}
	if patch.Status != nil && *patch.Status != tm.Status {
		switch *patch.Status {
		case models.TimerStatusRunning:
			tm.StartedAt = &now
		default:
			tm.StartedAt = nil
		}
		tm.Status = *patch.Status
	}
}

// SetOnAir makes the target timer the room's single live timer. Every other
// timer's flag is cleared in the same pass so no reader under the room lock
// can observe two timers on air.
func SetOnAir(room *models.Room, timerID string) bool {
	target := room.Timer(timerID)
	if target == nil {
		return false
	}
	for _, tm := range room.Timers {
		tm.IsOnAir = false
	}
	target.IsOnAir = true
	room.ActiveTimerID = timerID
	return true
}

// Remove deletes a timer from the room. If the removed timer was on air the
// flag moves to the first remaining timer by position; an emptied room has
// no active timer.
func Remove(room *models.Room, timerID string) bool {
	idx := -1
	for i, tm := range room.Timers {
		if tm.ID == timerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	wasOnAir := room.Timers[idx].IsOnAir
	room.Timers = append(room.Timers[:idx], room.Timers[idx+1:]...)

	if len(room.Timers) == 0 {
		room.ActiveTimerID = ""
		return true
	}
	if wasOnAir {
		first := room.Timers[0]
		for _, tm := range room.Timers[1:] {
			if tm.Position < first.Position {
				first = tm
			}
		}
		first.IsOnAir = true
		room.ActiveTimerID = first.ID
	}
	return true
}

// anchorDelta is the whole seconds accrued since the running anchor.
func anchorDelta(tm *models.Timer, now time.Time) int {
	if tm.StartedAt == nil {
		return 0
	}
	d := int(now.Sub(*tm.StartedAt) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

func remaining(s models.TimerSettings, elapsed int) int {
	rem := s.Duration - elapsed
	if rem < 0 && !s.OvertimeEnabled {
		return 0
	}
	return rem
}
