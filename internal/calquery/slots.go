// Package calquery turns partially specified calendar questions ("next
// friday after 3 pm", "tomorrow") into a concrete time window and renders
// the events found in that window as a spoken sentence.
//
// Everything in this package is pure: no I/O, no shared state, and "now"
// is always passed in by the caller.
package calquery

import (
	"fmt"
	"strings"
)

// RelativeDay is the value of the relative_day slot.
type RelativeDay int

const (
	RelativeDayNone RelativeDay = iota
	RelativeDayToday
	RelativeDayTomorrow
)

// ParseRelativeDay parses "today" / "tomorrow". The empty string yields
// RelativeDayNone.
func ParseRelativeDay(s string) (RelativeDay, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return RelativeDayNone, nil
	case "today":
		return RelativeDayToday, nil
	case "tomorrow":
		return RelativeDayTomorrow, nil
	}
	return RelativeDayNone, fmt.Errorf("calquery: unknown relative day %q", s)
}

// Period is the value of the this / next slots: a weekday, the weekend or
// the whole week.
type Period int

const (
	PeriodNone Period = iota
	PeriodMonday
	PeriodTuesday
	PeriodWednesday
	PeriodThursday
	PeriodFriday
	PeriodSaturday
	PeriodSunday
	PeriodWeekend
	PeriodWeek
)

// periodSpan describes where a period starts within a Monday-based week and
// how many days it covers.
type periodSpan struct {
	offset int // days after Monday
	days   int
}

var periodSpans = map[Period]periodSpan{
	PeriodMonday:    {offset: 0, days: 1},
	PeriodTuesday:   {offset: 1, days: 1},
	PeriodWednesday: {offset: 2, days: 1},
	PeriodThursday:  {offset: 3, days: 1},
	PeriodFriday:    {offset: 4, days: 1},
	PeriodSaturday:  {offset: 5, days: 1},
	PeriodSunday:    {offset: 6, days: 1},
	PeriodWeekend:   {offset: 5, days: 2},
	PeriodWeek:      {offset: 0, days: 7},
}

var periodNames = map[string]Period{
	"monday":    PeriodMonday,
	"tuesday":   PeriodTuesday,
	"wednesday": PeriodWednesday,
	"thursday":  PeriodThursday,
	"friday":    PeriodFriday,
	"saturday":  PeriodSaturday,
	"sunday":    PeriodSunday,
	"weekend":   PeriodWeekend,
	"week":      PeriodWeek,
}

// PeriodNames lists the accepted slot values for this / next.
func PeriodNames() []string {
	return []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday", "weekend", "week"}
}

// ParsePeriod parses a weekday name, "weekend" or "week".
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PeriodNone, nil
	}
	p, ok := periodNames[s]
	if !ok {
		return PeriodNone, fmt.Errorf("calquery: unknown period %q", s)
	}
	return p, nil
}

// Qualifier is the value of the before_at_after slot.
type Qualifier int

const (
	QualifierNone Qualifier = iota
	QualifierBefore
	QualifierAt
	QualifierAfter
)

// ParseQualifier parses "before" / "at" / "after".
func ParseQualifier(s string) (Qualifier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return QualifierNone, nil
	case "before":
		return QualifierBefore, nil
	case "at":
		return QualifierAt, nil
	case "after":
		return QualifierAfter, nil
	}
	return QualifierNone, fmt.Errorf("calquery: unknown qualifier %q", s)
}

// Meridiem is the value of the ampm slot.
type Meridiem int

const (
	MeridiemNone Meridiem = iota
	MeridiemAM
	MeridiemPM
)

// ParseMeridiem parses "am" / "pm".
func ParseMeridiem(s string) (Meridiem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return MeridiemNone, nil
	case "am":
		return MeridiemAM, nil
	case "pm":
		return MeridiemPM, nil
	}
	return MeridiemNone, fmt.Errorf("calquery: unknown meridiem %q", s)
}

// Slots holds the already validated slot values of a calendar question.
// Zero values mean "absent"; Hour and Minute are pointers because 0 is a
// valid value for both.
type Slots struct {
	RelativeDay RelativeDay
	This        Period
	Next        Period

	Day   int // 1-31, 0 when absent
	Month int // 1-12, 0 when absent; ignored without Day

	Qualifier Qualifier
	Hour      *int
	Minute    *int
	Meridiem  Meridiem
}

// Int returns a pointer to v, for filling Slots.Hour / Slots.Minute.
func Int(v int) *int {
	return &v
}

// normalized returns a copy with the pm promotion applied to Hour.
func (s Slots) normalized() Slots {
	if s.Meridiem == MeridiemPM && s.Hour != nil && *s.Hour < 12 {
		s.Hour = Int(*s.Hour + 12)
	}
	return s
}

// clock returns hour and minute, treating an absent minute as 0.
func (s Slots) clock() (hour, minute int) {
	if s.Hour != nil {
		hour = *s.Hour
	}
	if s.Minute != nil {
		minute = *s.Minute
	}
	return hour, minute
}
