package domain

import (
	"fmt"
	"time"
)

// WeeklyWindow is a recurring weekly interval, e.g. "Mon 18:00-20:00".
type WeeklyWindow struct {
	Weekday   time.Weekday
	StartHHMM string
	EndHHMM   string
}

// Contains reports whether the given local instant falls inside this window.
func (w WeeklyWindow) Contains(t time.Time) bool {
	if t.Weekday() != w.Weekday {
		return false
	}
	start, err := parseHHMM(w.StartHHMM)
	if err != nil {
		return false
	}
	end, err := parseHHMM(w.EndHHMM)
	if err != nil {
		return false
	}
	minuteOfDay := t.Hour()*60 + t.Minute()
	return minuteOfDay >= start && minuteOfDay < end
}

func parseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

// Preferences captures the per-user scheduling policy knobs described in the
// planning model: working hours, daily effort caps, break cadence, and the
// soft/hard windows that bias or forbid placement.
type Preferences struct {
	Timezone                  string
	WorkdayStartHHMM          string
	WorkdayEndHHMM            string
	MaxDailyEffortMinutes     int
	SessionGranularityMinutes int // 15 or 30
	BreakEveryMinutes         int
	BreakDurationMinutes      int
	DeepWorkWindows           []WeeklyWindow
	NoStudyWindows            []WeeklyWindow
	MinGapBetweenBlocksMin    int
	SoftNoStudyWindows        bool

	LateNightPenalty    float64
	MorningBonus        float64
	ContextSwitchWeight float64
}

// DefaultPreferences returns a sane baseline: 09:00-17:00 workday, 30 minute
// granularity, 6 hour daily cap, hard no-study windows.
func DefaultPreferences() Preferences {
	return Preferences{
		Timezone:                  "UTC",
		WorkdayStartHHMM:          "09:00",
		WorkdayEndHHMM:            "17:00",
		MaxDailyEffortMinutes:     360,
		SessionGranularityMinutes: 30,
		BreakEveryMinutes:         90,
		BreakDurationMinutes:      10,
		MinGapBetweenBlocksMin:    0,
		SoftNoStudyWindows:        false,
		LateNightPenalty:          0.5,
		MorningBonus:              0.1,
		ContextSwitchWeight:       0.2,
	}
}

// Location resolves the preference timezone, defaulting to UTC on error.
func (p Preferences) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InWorkday reports whether the local instant falls within the configured
// workday window (civil time, DST-aware via the resolved Location).
func (p Preferences) InWorkday(t time.Time) bool {
	start, err := parseHHMM(p.WorkdayStartHHMM)
	if err != nil {
		return true
	}
	end, err := parseHHMM(p.WorkdayEndHHMM)
	if err != nil {
		return true
	}
	local := t.In(p.Location())
	minuteOfDay := local.Hour()*60 + local.Minute()
	return minuteOfDay >= start && minuteOfDay < end
}

// InNoStudyWindow reports whether the instant falls in a configured no-study window.
func (p Preferences) InNoStudyWindow(t time.Time) bool {
	local := t.In(p.Location())
	for _, w := range p.NoStudyWindows {
		if w.Contains(local) {
			return true
		}
	}
	return false
}

// InDeepWorkWindow reports whether the instant falls in a deep-work window.
func (p Preferences) InDeepWorkWindow(t time.Time) bool {
	local := t.In(p.Location())
	for _, w := range p.DeepWorkWindows {
		if w.Contains(local) {
			return true
		}
	}
	return false
}
