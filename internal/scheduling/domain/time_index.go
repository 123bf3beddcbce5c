package domain

import (
	"errors"
	"time"
)

// ErrInvalidGranularity is returned when TimeIndex is built with an unsupported slot size.
var ErrInvalidGranularity = errors.New("slot granularity must be 15 or 30 minutes")

// SlotContext describes derived attributes of a single slot, used by the
// feature extractor and by window checks.
type SlotContext struct {
	Start       time.Time
	Hour        int
	Weekday     time.Weekday
	IsWeekend   bool
	InWorkday   bool
	PartOfDay   string // "morning", "afternoon", "evening", "night"
}

// TimeIndex discretizes a horizon into fixed-length half-open slots and
// provides datetime<->index mapping plus busy/free slot queries.
type TimeIndex struct {
	loc         *time.Location
	start       time.Time // local midnight preceding the horizon start
	granularity time.Duration
	numSlots    int
}

// NewTimeIndex builds a TimeIndex covering [horizonStart, horizonEnd) in the
// given location: it starts at the local midnight preceding horizonStart and
// ends at horizonEnd rounded up to a whole slot.
func NewTimeIndex(loc *time.Location, horizonStart, horizonEnd time.Time, granularityMinutes int) (*TimeIndex, error) {
	if granularityMinutes != 15 && granularityMinutes != 30 {
		return nil, ErrInvalidGranularity
	}
	if loc == nil {
		loc = time.UTC
	}
	hs := horizonStart.In(loc)
	midnight := time.Date(hs.Year(), hs.Month(), hs.Day(), 0, 0, 0, 0, loc)
	granularity := time.Duration(granularityMinutes) * time.Minute
	span := horizonEnd.Sub(midnight)
	numSlots := int(span / granularity)
	if span%granularity != 0 {
		numSlots++
	}
	if numSlots < 0 {
		numSlots = 0
	}
	return &TimeIndex{loc: loc, start: midnight, granularity: granularity, numSlots: numSlots}, nil
}

// Len returns the number of slots in the index.
func (ti *TimeIndex) Len() int { return ti.numSlots }

// Granularity returns the slot length.
func (ti *TimeIndex) Granularity() time.Duration { return ti.granularity }

// IndexToDatetime returns the start instant of slot i.
func (ti *TimeIndex) IndexToDatetime(i int) time.Time {
	return ti.start.Add(time.Duration(i) * ti.granularity)
}

// DatetimeToIndex maps an instant to the containing slot index, clamped to [0, Len()).
func (ti *TimeIndex) DatetimeToIndex(t time.Time) int {
	d := t.In(ti.loc).Sub(ti.start)
	idx := int(d / ti.granularity)
	if idx < 0 {
		idx = 0
	}
	if idx >= ti.numSlots {
		idx = ti.numSlots - 1
	}
	return idx
}

// GetSlotContext returns derived attributes for slot i.
func (ti *TimeIndex) GetSlotContext(i int, prefs Preferences) SlotContext {
	t := ti.IndexToDatetime(i)
	local := t.In(ti.loc)
	hour := local.Hour()
	var part string
	switch {
	case hour < 6:
		part = "night"
	case hour < 12:
		part = "morning"
	case hour < 18:
		part = "afternoon"
	default:
		part = "evening"
	}
	return SlotContext{
		Start:     t,
		Hour:      hour,
		Weekday:   local.Weekday(),
		IsWeekend: local.Weekday() == time.Saturday || local.Weekday() == time.Sunday,
		InWorkday: prefs.InWorkday(t),
		PartOfDay: part,
	}
}

// FilterBusySlots returns the set of slot indices that intersect any of the given events.
func (ti *TimeIndex) FilterBusySlots(events []BusyEvent) map[int]bool {
	blocked := make(map[int]bool)
	for _, e := range events {
		startIdx := ti.DatetimeToIndex(e.Start)
		endIdx := ti.DatetimeToIndex(e.End.Add(-time.Nanosecond))
		if e.End.Equal(ti.IndexToDatetime(endIdx)) {
			endIdx--
		}
		for i := startIdx; i <= endIdx && i < ti.numSlots; i++ {
			if i < 0 {
				continue
			}
			blocked[i] = true
		}
	}
	return blocked
}

// FreeRange is a maximal contiguous run of free, in-window slot indices [StartIdx, EndIdx).
type FreeRange struct {
	StartIdx int
	EndIdx   int
}

// Minutes returns the range's span in minutes.
func (r FreeRange) Minutes(gran time.Duration) int {
	return int(gran/time.Minute) * (r.EndIdx - r.StartIdx)
}

// GetFreeSlots returns maximal contiguous free ranges, restricted to the
// workday window per-day and with hard no-study windows subtracted.
func (ti *TimeIndex) GetFreeSlots(events []BusyEvent, prefs Preferences) []FreeRange {
	blocked := ti.FilterBusySlots(events)
	var ranges []FreeRange
	inRange := false
	var rangeStart int
	for i := 0; i < ti.numSlots; i++ {
		ctx := ti.GetSlotContext(i, prefs)
		free := !blocked[i] && ctx.InWorkday
		if free && !prefs.SoftNoStudyWindows && prefs.InNoStudyWindow(ctx.Start) {
			free = false
		}
		if free && !inRange {
			inRange = true
			rangeStart = i
		} else if !free && inRange {
			inRange = false
			ranges = append(ranges, FreeRange{StartIdx: rangeStart, EndIdx: i})
		}
	}
	if inRange {
		ranges = append(ranges, FreeRange{StartIdx: rangeStart, EndIdx: ti.numSlots})
	}
	return ranges
}
