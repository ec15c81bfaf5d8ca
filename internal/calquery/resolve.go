package calquery

import "time"

// DateRange is the half-open window [Start, End) a calendar question asks
// about.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Instant reports whether the range is a zero-width "at" query.
func (r DateRange) Instant() bool {
	return r.End.Equal(r.Start)
}

// Inverted reports whether End lies before Start. This happens when the
// question names a moment that is already over (an explicit past date, or
// "at 9" asked at noon) and the start was clamped to now. Such a window
// contains no events.
func (r DateRange) Inverted() bool {
	return r.End.Before(r.Start)
}

// stage is one step of the resolution pipeline. Each stage receives the
// range produced so far and may overwrite either bound.
type stage func(r DateRange, s Slots, loc *time.Location) DateRange

// pipeline is applied in order; later stages win.
var pipeline = []stage{
	relativeDayStage, // may overwrite start and end
	thisStage,        // may overwrite start and end
	nextStage,        // may overwrite start and end
	dayMonthStage,    // may overwrite start and end
	clockStage,       // before: end; at: start and end; after: end, start if hour given
}

// Resolve computes the window a calendar question refers to. now is the
// resolution instant; every computation happens in loc.
//
// The result's Start is never before now. End is not clamped, so callers
// must check Inverted before querying.
func Resolve(loc *time.Location, now time.Time, s Slots) DateRange {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	s = s.normalized()

	r := DateRange{
		Start: now,
		End:   atClock(now, 23, 59, 59),
	}
	for _, st := range pipeline {
		r = st(r, s, loc)
	}

	if r.Start.Before(now) {
		r.Start = now
	}
	return r
}

func relativeDayStage(r DateRange, s Slots, _ *time.Location) DateRange {
	switch s.RelativeDay {
	case RelativeDayTomorrow:
		day := midnight(r.Start).AddDate(0, 0, 1)
		return DateRange{Start: day, End: atClock(day, 23, 59, 59)}
	default:
		// today keeps the baseline
		return r
	}
}

func thisStage(r DateRange, s Slots, _ *time.Location) DateRange {
	return periodRange(r, s.This, 0)
}

func nextStage(r DateRange, s Slots, _ *time.Location) DateRange {
	return periodRange(r, s.Next, 1)
}

// periodRange anchors p inside the Monday-based week containing r.Start,
// shifted by weeks.
func periodRange(r DateRange, p Period, weeks int) DateRange {
	span, ok := periodSpans[p]
	if !ok {
		return r
	}
	delta := span.offset - weekdayIndex(r.Start) + 7*weeks
	start := midnight(r.Start).AddDate(0, 0, delta)
	return DateRange{Start: start, End: start.AddDate(0, 0, span.days)}
}

func dayMonthStage(r DateRange, s Slots, loc *time.Location) DateRange {
	if s.Day == 0 {
		return r
	}
	year, month, _ := r.Start.Date()
	if s.Month != 0 {
		month = time.Month(s.Month)
	}
	day := s.Day
	if n := daysIn(year, month, loc); day > n {
		day = n
	}
	start := time.Date(year, month, day,
		r.Start.Hour(), r.Start.Minute(), r.Start.Second(), r.Start.Nanosecond(), loc)
	return DateRange{Start: start, End: start.AddDate(0, 0, 1)}
}

func clockStage(r DateRange, s Slots, _ *time.Location) DateRange {
	hour, minute := s.clock()
	switch s.Qualifier {
	case QualifierBefore:
		if s.Hour != nil {
			r.End = atClock(r.End, hour, minute, 0)
		}
	case QualifierAt:
		if s.Hour != nil {
			r.Start = atClock(r.Start, hour, minute, 0)
			r.End = r.Start
		}
	case QualifierAfter:
		r.End = atClock(r.End, 23, 59, 59)
		if s.Hour != nil {
			r.Start = atClock(r.Start, hour, minute, 0)
		}
	}
	return r
}

// weekdayIndex returns the weekday of t with Monday as 0.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func midnight(t time.Time) time.Time {
	return atClock(t, 0, 0, 0)
}

func atClock(t time.Time, hour, minute, second int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, minute, second, 0, t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
