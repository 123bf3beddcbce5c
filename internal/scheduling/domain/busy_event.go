package domain

import "time"

// BusyEventSource identifies where a busy event originated.
type BusyEventSource string

const (
	// SourceGoogle indicates the event was imported from Google Calendar.
	SourceGoogle BusyEventSource = "google"
	// SourceMicrosoft indicates the event was imported from Microsoft 365.
	SourceMicrosoft BusyEventSource = "microsoft"
	// SourcePulse indicates the event originates from this system's own schedule.
	SourcePulse BusyEventSource = "pulse"
)

// BusyEvent represents a block of time the user is unavailable for scheduling,
// whether imported from an external calendar or produced by a prior run of the
// scheduler itself. The interval is half-open: [Start, End).
type BusyEvent struct {
	ID        string
	Source    BusyEventSource
	Title     string
	Start     time.Time
	End       time.Time
	Hard      bool // true if this time cannot be displaced under any circumstance
	Movable   bool // true if the scheduler is permitted to move this event itself
	OwnEvent  bool // true if this event was created by this system (skip self-conflicts)
}

// Interval returns the event's time range.
func (e BusyEvent) Interval() TimeRange {
	return TimeRange{Start: e.Start, End: e.End}
}

// Overlaps reports whether this busy event overlaps the given time range.
func (e BusyEvent) Overlaps(r TimeRange) bool {
	return e.Interval().Overlaps(r)
}
