package timer

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cueview/cueview/internal/models"
)

func TestDerive_RunningTimer(t *testing.T) {
	tm := newTestTimer("t1", 1, true)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	Start(tm, start)

	got := Derive(tm, start.Add(45*time.Second))
	if got.ElapsedSeconds != 45 {
		t.Errorf("derived elapsed = %d, want 45", got.ElapsedSeconds)
	}
	if got.RemainingSeconds != 255 {
		t.Errorf("derived remaining = %d, want 255", got.RemainingSeconds)
	}

	// The stored timer is untouched.
	if tm.ElapsedSeconds != 0 || tm.RemainingSeconds != 300 {
		t.Error("Derive must not mutate the stored timer")
	}
}

func TestDerive_MatchesPauseFormula(t *testing.T) {
	// Deriving at instant X and pausing at instant X must agree, otherwise
	// reads and transitions would disagree about the same moment.
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := start.Add(73 * time.Second)

	derived := newTestTimer("t1", 1, true)
	Start(derived, start)
	snap := Derive(derived, at)

	paused := newTestTimer("t1", 1, true)
	Start(paused, start)
	Pause(paused, at)

	if snap.ElapsedSeconds != paused.ElapsedSeconds || snap.RemainingSeconds != paused.RemainingSeconds {
		t.Errorf("derive (%d, %d) != pause (%d, %d)",
			snap.ElapsedSeconds, snap.RemainingSeconds,
			paused.ElapsedSeconds, paused.RemainingSeconds)
	}
}

func TestDerive_NonRunningIsIdentity(t *testing.T) {
	tm := newTestTimer("t1", 1, true)
	now := time.Now()
	Start(tm, now)
	Pause(tm, now.Add(10*time.Second))

	got := Derive(tm, now.Add(2*time.Hour))
	if diff := cmp.Diff(tm, got); diff != "" {
		t.Errorf("paused timer should derive to itself (-stored +derived):\n%s", diff)
	}
}

func TestColorOf_Thresholds(t *testing.T) {
	tm := newTestTimer("t1", 1, true)

	cases := []struct {
		remaining int
		want      models.ColorState
	}{
		{300, models.ColorGreen},
		{61, models.ColorGreen},
		{60, models.ColorYellow},
		{31, models.ColorYellow},
		{30, models.ColorRed},
		{0, models.ColorRed},
		{-5, models.ColorRed},
	}
	for _, tc := range cases {
		tm.RemainingSeconds = tc.remaining
		if got := ColorOf(tm); got != tc.want {
			t.Errorf("remaining %d: color = %q, want %q", tc.remaining, got, tc.want)
		}
	}

	tm.Settings.Mode = models.TimerModeClock
	tm.RemainingSeconds = 0
	if got := ColorOf(tm); got != models.ColorGreen {
		t.Errorf("clock mode: color = %q, want green", got)
	}
}

func TestOvertime(t *testing.T) {
	tm := newTestTimer("t1", 1, true)
	tm.RemainingSeconds = -1
	if !Overtime(tm) {
		t.Error("negative remaining in countdown mode is overtime")
	}
	tm.Settings.Mode = models.TimerModeCountup
	if Overtime(tm) {
		t.Error("countup mode never reports overtime")
	}
}
