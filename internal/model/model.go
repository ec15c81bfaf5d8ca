package model

import (
	"time"

	"intentcal/internal/calquery"
)

// Occurrence represents a single concrete instance of a calendar event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // calendar ID from config
	UID      string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool

	// Start / End are in the configured timezone.
	Start time.Time
	End   time.Time
}

// QueryEvent converts the occurrence into the shape the calendar summary
// renderer reads.
func (o Occurrence) QueryEvent() calquery.Event {
	return calquery.Event{
		Title: o.Summary,
		Start: o.Start,
		End:   o.End,
	}
}

// Overlaps reports whether the occurrence intersects the half-open window
// [start, end). A zero-width window matches occurrences covering that
// instant. A zero-duration occurrence is the point at its Start.
func (o Occurrence) Overlaps(start, end time.Time) bool {
	if o.Start.Equal(o.End) {
		if o.Start.Before(start) {
			return false
		}
		return o.Start.Before(end) || (start.Equal(end) && o.Start.Equal(start))
	}
	if end.Equal(start) {
		return !o.Start.After(start) && o.End.After(start)
	}
	return o.Start.Before(end) && o.End.After(start)
}
