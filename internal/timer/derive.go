package timer

import (
	"time"

	"github.com/cueview/cueview/internal/models"
)

// Derive returns a copy of the timer with elapsed and remaining seconds
// recomputed for the given instant. The stored timer is never mutated;
// running timers combine the persisted elapsed count with the time accrued
// since the anchor, all other states report stored values as-is.
//
// This is the single authoritative formula. The periodic rebroadcast pass
// and the viewer-side display both go through it so the two can never
// diverge.
func Derive(tm *models.Timer, now time.Time) *models.Timer {
	cp := tm.Clone()
	if cp.Status != models.TimerStatusRunning {
		return cp
	}
	cp.ElapsedSeconds += anchorDelta(tm, now)
	cp.RemainingSeconds = remaining(cp.Settings, cp.ElapsedSeconds)
	return cp
}

// ColorOf maps remaining time onto the display color thresholds. Clock-mode
// timers are always green.
func ColorOf(tm *models.Timer) models.ColorState {
	if tm.Settings.Mode == models.TimerModeClock {
		return models.ColorGreen
	}
	switch {
	case tm.RemainingSeconds <= tm.Settings.RedThreshold:
		return models.ColorRed
	case tm.RemainingSeconds <= tm.Settings.YellowThreshold:
		return models.ColorYellow
	default:
		return models.ColorGreen
	}
}

// Overtime reports whether a countdown timer has crossed zero.
func Overtime(tm *models.Timer) bool {
	return tm.Settings.Mode == models.TimerModeCountdown && tm.RemainingSeconds < 0
}
