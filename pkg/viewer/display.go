// Package viewer reconciles server timer snapshots into a smoothly ticking
// local display. A client feeds every timer:sync payload it receives into a
// Display and reads the extrapolated state as often as it likes. Between
// snapshots the display advances on the local clock; each snapshot re-anchors
// it, so transport jitter shows up as a sub-second correction instead of a
// frozen or drifting clock.
package viewer

import (
	"fmt"
	"sync"
	"time"
)

// Timer states and modes as they appear on the wire.
const (
	StatusStopped = "stopped"
	StatusRunning = "running"
	StatusPaused  = "paused"

	ModeCountdown = "countdown"
	ModeCountup   = "countup"
	ModeClock     = "clock"
)

// Color zones for the on-stage display.
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorRed    = "red"
)

// Snapshot is the timer payload of a timer:sync event.
type Snapshot struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Settings         SnapshotSettings `json:"settings"`
	ElapsedSeconds   int              `json:"elapsedSeconds"`
	RemainingSeconds int              `json:"remainingSeconds"`
	Status           string           `json:"status"`
	IsOnAir          bool             `json:"isOnAir"`
}

type SnapshotSettings struct {
	Duration        int    `json:"duration"`
	YellowThreshold int    `json:"yellowThreshold"`
	RedThreshold    int    `json:"redThreshold"`
	Mode            string `json:"mode"`
	OvertimeEnabled bool   `json:"overtimeEnabled"`
}

// Reading is the reconciled state at one instant.
type Reading struct {
	TimerID          string
	Name             string
	ElapsedSeconds   int
	RemainingSeconds int
	Status           string
	Color            string
	Overtime         bool
	Text             string
}

// Display tracks the latest snapshot of a single timer and extrapolates
// between snapshots. Safe for concurrent use: a websocket read loop applies
// snapshots while a render loop reads.
type Display struct {
	mu       sync.Mutex
	snap     Snapshot
	anchor   time.Time
	hasState bool
}

func NewDisplay() *Display {
	return &Display{}
}

// Apply ingests a snapshot received at the given local instant. The receipt
// time becomes the new extrapolation anchor, which absorbs any skew between
// the server clock and ours. Later snapshots always win; the session layer
// delivers them in order.
func (d *Display) Apply(snap Snapshot, receivedAt time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = snap
	d.anchor = receivedAt
	d.hasState = true
}

// At returns the reconciled reading for the given local instant. Before any
// snapshot has arrived it returns a zero Reading and false.
func (d *Display) At(now time.Time) (Reading, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hasState {
		return Reading{}, false
	}

	elapsed := d.snap.ElapsedSeconds
	remaining := d.snap.RemainingSeconds
	if d.snap.Status == StatusRunning {
		delta := int(now.Sub(d.anchor) / time.Second)
		if delta > 0 {
			elapsed += delta
			remaining = d.snap.Settings.Duration - elapsed
			if remaining < 0 && !d.snap.Settings.OvertimeEnabled {
				remaining = 0
			}
		}
	}

	r := Reading{
		TimerID:          d.snap.ID,
		Name:             d.snap.Name,
		ElapsedSeconds:   elapsed,
		RemainingSeconds: remaining,
		Status:           d.snap.Status,
	}
	r.Overtime = d.snap.Settings.Mode == ModeCountdown && remaining < 0
	r.Color = colorOf(d.snap.Settings, remaining)
	r.Text = displayText(d.snap.Settings.Mode, elapsed, remaining, now)
	return r, true
}

func colorOf(s SnapshotSettings, remaining int) string {
	if s.Mode == ModeClock {
		return ColorGreen
	}
	switch {
	case remaining <= s.RedThreshold:
		return ColorRed
	case remaining <= s.YellowThreshold:
		return ColorYellow
	default:
		return ColorGreen
	}
}

func displayText(mode string, elapsed, remaining int, now time.Time) string {
	switch mode {
	case ModeClock:
		return now.Format("15:04:05")
	case ModeCountup:
		return FormatSeconds(elapsed)
	default:
		return FormatSeconds(remaining)
	}
}

// FormatSeconds renders a second count as MM:SS, or H:MM:SS past an hour.
// Negative values carry a leading minus for overtime display.
func FormatSeconds(total int) string {
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%s%02d:%02d", sign, m, s)
}
