package viewer

import (
	"testing"
	"time"
)

func countdownSnap(elapsed, remaining int, status string) Snapshot {
	return Snapshot{
		ID:   "t1",
		Name: "Keynote",
		Settings: SnapshotSettings{
			Duration:        300,
			YellowThreshold: 60,
			RedThreshold:    30,
			Mode:            ModeCountdown,
			OvertimeEnabled: true,
		},
		ElapsedSeconds:   elapsed,
		RemainingSeconds: remaining,
		Status:           status,
	}
}

func TestDisplay_EmptyBeforeFirstSnapshot(t *testing.T) {
	d := NewDisplay()
	if _, ok := d.At(time.Now()); ok {
		t.Error("display should report no state before the first snapshot")
	}
}

func TestDisplay_ExtrapolatesRunningTimer(t *testing.T) {
	d := NewDisplay()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	d.Apply(countdownSnap(10, 290, StatusRunning), base)

	r, ok := d.At(base.Add(7 * time.Second))
	if !ok {
		t.Fatal("expected a reading")
	}
	if r.ElapsedSeconds != 17 || r.RemainingSeconds != 283 {
		t.Errorf("reading = (%d, %d), want (17, 283)", r.ElapsedSeconds, r.RemainingSeconds)
	}
	if r.Text != "04:43" {
		t.Errorf("text = %q, want 04:43", r.Text)
	}
}

func TestDisplay_PausedTimerDoesNotAdvance(t *testing.T) {
	d := NewDisplay()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	d.Apply(countdownSnap(45, 255, StatusPaused), base)

	r, _ := d.At(base.Add(time.Hour))
	if r.ElapsedSeconds != 45 || r.RemainingSeconds != 255 {
		t.Errorf("paused reading = (%d, %d), want frozen (45, 255)", r.ElapsedSeconds, r.RemainingSeconds)
	}
}

func TestDisplay_SnapshotReanchors(t *testing.T) {
	d := NewDisplay()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// First snapshot, then local drift of 5s.
	d.Apply(countdownSnap(10, 290, StatusRunning), base)

	// A fresh server snapshot disagrees with our extrapolation; it wins and
	// extrapolation restarts from its receipt time.
	d.Apply(countdownSnap(12, 288, StatusRunning), base.Add(5*time.Second))

	r, _ := d.At(base.Add(8 * time.Second))
	if r.ElapsedSeconds != 15 || r.RemainingSeconds != 285 {
		t.Errorf("reanchored reading = (%d, %d), want (15, 285)", r.ElapsedSeconds, r.RemainingSeconds)
	}
}

func TestDisplay_OvertimeGoesNegative(t *testing.T) {
	d := NewDisplay()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	d.Apply(countdownSnap(295, 5, StatusRunning), base)

	r, _ := d.At(base.Add(15 * time.Second))
	if r.RemainingSeconds != -10 || !r.Overtime {
		t.Errorf("reading = (%d, overtime=%v), want (-10, true)", r.RemainingSeconds, r.Overtime)
	}
	if r.Text != "-00:10" {
		t.Errorf("text = %q, want -00:10", r.Text)
	}
	if r.Color != ColorRed {
		t.Errorf("color = %q, want red", r.Color)
	}
}

func TestDisplay_ClampsAtZeroWithoutOvertime(t *testing.T) {
	d := NewDisplay()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := countdownSnap(295, 5, StatusRunning)
	snap.Settings.OvertimeEnabled = false
	d.Apply(snap, base)

	r, _ := d.At(base.Add(time.Minute))
	if r.RemainingSeconds != 0 || r.Overtime {
		t.Errorf("reading = (%d, overtime=%v), want clamped (0, false)", r.RemainingSeconds, r.Overtime)
	}
}

func TestDisplay_ColorThresholds(t *testing.T) {
	cases := []struct {
		remaining int
		want      string
	}{
		{remaining: 120, want: ColorGreen},
		{remaining: 60, want: ColorYellow},
		{remaining: 31, want: ColorYellow},
		{remaining: 30, want: ColorRed},
		{remaining: -5, want: ColorRed},
	}
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, tc := range cases {
		d := NewDisplay()
		d.Apply(countdownSnap(300-tc.remaining, tc.remaining, StatusPaused), base)
		if r, _ := d.At(base); r.Color != tc.want {
			t.Errorf("remaining %d: color = %q, want %q", tc.remaining, r.Color, tc.want)
		}
	}
}

func TestDisplay_CountupShowsElapsed(t *testing.T) {
	d := NewDisplay()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := countdownSnap(0, 300, StatusRunning)
	snap.Settings.Mode = ModeCountup
	d.Apply(snap, base)

	r, _ := d.At(base.Add(75 * time.Second))
	if r.Text != "01:15" {
		t.Errorf("countup text = %q, want 01:15", r.Text)
	}
}

func TestDisplay_ClockModeShowsWallTime(t *testing.T) {
	d := NewDisplay()
	base := time.Date(2025, 3, 1, 14, 30, 45, 0, time.UTC)

	snap := countdownSnap(0, 300, StatusStopped)
	snap.Settings.Mode = ModeClock
	d.Apply(snap, base)

	r, _ := d.At(base)
	if r.Text != "14:30:45" {
		t.Errorf("clock text = %q, want 14:30:45", r.Text)
	}
	if r.Color != ColorGreen {
		t.Errorf("clock color = %q, want green", r.Color)
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{60, "01:00"},
		{300, "05:00"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{-90, "-01:30"},
		{-3660, "-1:01:00"},
	}
	for _, tc := range cases {
		if got := FormatSeconds(tc.in); got != tc.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
