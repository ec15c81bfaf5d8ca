package intent

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"intentcal/internal/calquery"
	appLog "intentcal/internal/log"
	"intentcal/internal/speech"
)

// EventSource fetches the events of one calendar overlapping [start, end),
// in stable order.
type EventSource interface {
	QueryEvents(ctx context.Context, calendarID string, start, end time.Time) ([]calquery.Event, error)
}

// ReadCalendar answers "what is on my <name> calendar <when>" questions.
type ReadCalendar struct {
	Calendars *Matcher
	Events    EventSource
	Location  *time.Location
	Clock     Clock
	Speech    *speech.Catalog
}

func (h *ReadCalendar) Type() string { return "ReadCalendar" }

func (h *ReadCalendar) Description() string {
	return "Reads the events of a calendar for a day, weekday, weekend or week."
}

func (h *ReadCalendar) Schema() Schema {
	return Schema{
		"name":            {Required: true},
		"relative_day":    {OneOf: []string{"today", "tomorrow"}},
		"this":            {OneOf: calquery.PeriodNames()},
		"next":            {OneOf: calquery.PeriodNames()},
		"day":             {Kind: KindInt, Min: 1, Max: 31},
		"month":           {Kind: KindInt, Min: 1, Max: 12},
		"before_at_after": {OneOf: []string{"before", "at", "after"}},
		"hour":            {Kind: KindInt, Min: 0, Max: 23},
		"minute":          {Kind: KindInt, Min: 0, Max: 59},
		"ampm":            {OneOf: []string{"am", "pm"}},
	}
}

func (h *ReadCalendar) Handle(ctx context.Context, in *Intent, v Values) (*Response, error) {
	name, _ := v.String("name")

	target, ok := h.Calendars.Match(name, DomainCalendar)
	if !ok {
		return speak(h.Speech.Say(in.Language, speech.KeyUnknownCalendar, map[string]any{"Name": name})), nil
	}

	slots, err := calendarSlots(v)
	if err != nil {
		return nil, err
	}

	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	now := h.Clock.Now().In(loc)

	r := calquery.Resolve(loc, now, slots)
	appLog.Debug("calendar range resolved",
		"calendar", target.ID,
		"start", r.Start.Format(time.RFC3339),
		"end", r.End.Format(time.RFC3339),
	)

	// A window entirely in the past cannot contain upcoming events.
	if r.Inverted() {
		return speak(calquery.NoEventsText), nil
	}

	events, err := h.Events.QueryEvents(ctx, target.ID, r.Start, r.End)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch events for %q", target.ID)
	}

	return speak(calquery.Render(loc, now, r, events)), nil
}

// calendarSlots maps validated values onto the resolver's slot set. before
// and at need an hour to mean anything.
func calendarSlots(v Values) (calquery.Slots, error) {
	var (
		s   calquery.Slots
		err error
	)

	str := func(name string) string {
		x, _ := v.String(name)
		return x
	}

	if s.RelativeDay, err = calquery.ParseRelativeDay(str("relative_day")); err != nil {
		return s, errors.Wrap(ErrInvalidSlot, err.Error())
	}
	if s.This, err = calquery.ParsePeriod(str("this")); err != nil {
		return s, errors.Wrap(ErrInvalidSlot, err.Error())
	}
	if s.Next, err = calquery.ParsePeriod(str("next")); err != nil {
		return s, errors.Wrap(ErrInvalidSlot, err.Error())
	}
	if s.Qualifier, err = calquery.ParseQualifier(str("before_at_after")); err != nil {
		return s, errors.Wrap(ErrInvalidSlot, err.Error())
	}
	if s.Meridiem, err = calquery.ParseMeridiem(str("ampm")); err != nil {
		return s, errors.Wrap(ErrInvalidSlot, err.Error())
	}

	s.Day, _ = v.Int("day")
	s.Month, _ = v.Int("month")
	s.Hour = v.IntPtr("hour")
	s.Minute = v.IntPtr("minute")

	if s.Month != 0 && s.Day == 0 {
		appLog.Debug("month without day ignored", "month", s.Month)
	}
	if (s.Qualifier == calquery.QualifierBefore || s.Qualifier == calquery.QualifierAt) && s.Hour == nil {
		return s, errors.Wrap(ErrInvalidSlot, "before_at_after: needs hour")
	}
	return s, nil
}
