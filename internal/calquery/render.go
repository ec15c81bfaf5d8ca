package calquery

import (
	"strings"
	"time"
)

const (
	// NoEventsText is spoken when the window contains no events.
	NoEventsText = "There are no events."

	leadIn = "The events are: "
)

// Event is a single calendar entry as returned by the event source. The
// renderer only reads it.
type Event struct {
	Title string
	Start time.Time
	End   time.Time
}

// eventKind classifies an event by its length relative to one calendar day.
type eventKind int

const (
	kindTimed eventKind = iota
	kindAllDay
	kindMultiDay
)

func classify(e Event, loc *time.Location) eventKind {
	start := e.Start.In(loc)
	oneDay := start.AddDate(0, 0, 1)
	switch {
	case e.End.Equal(oneDay):
		return kindAllDay
	case e.End.After(oneDay):
		return kindMultiDay
	default:
		return kindTimed
	}
}

// Render produces the spoken summary of events found in r. Events are
// rendered in input order. Day qualifiers ("Today", "on Monday") are only
// added when r spans at least one calendar day in loc.
func Render(loc *time.Location, now time.Time, r DateRange, events []Event) string {
	if len(events) == 0 {
		return NoEventsText
	}
	if loc == nil {
		loc = time.Local
	}

	d := dayRef{
		today:    midnight(now.In(loc)),
		multiDay: !r.End.Before(r.Start.In(loc).AddDate(0, 0, 1)),
	}
	d.tomorrow = d.today.AddDate(0, 0, 1)

	phrases := make([]string, 0, len(events))
	for _, e := range events {
		phrases = append(phrases, e.Title+" "+d.label(e, loc))
	}
	return leadIn + strings.Join(phrases, ", ") + "."
}

type dayRef struct {
	today    time.Time
	tomorrow time.Time
	multiDay bool
}

func (d dayRef) label(e Event, loc *time.Location) string {
	start := e.Start.In(loc)
	day := midnight(start)

	switch classify(e, loc) {
	case kindAllDay:
		if !d.multiDay {
			return "all day"
		}
		switch {
		case day.Equal(d.today):
			return "Today"
		case day.Equal(d.tomorrow):
			return "Tomorrow"
		default:
			return "on " + start.Weekday().String()
		}

	case kindMultiDay:
		if !d.multiDay {
			return "continued"
		}
		switch {
		case day.Before(d.today):
			return "ending on " + e.End.In(loc).Weekday().String()
		case day.Equal(d.today):
			return "starting today"
		case day.Equal(d.tomorrow):
			return "starting tomorrow"
		default:
			return "starting on " + start.Weekday().String()
		}
	}

	at := "at " + start.Format("3:04 PM")
	if !d.multiDay {
		return at
	}
	switch {
	case day.Equal(d.today):
		return "Today " + at
	case day.Equal(d.tomorrow):
		return "Tomorrow " + at
	default:
		return "on " + start.Weekday().String() + " " + at
	}
}
