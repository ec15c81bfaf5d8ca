package calquery

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_NoEvents(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 8, 0, 0)

	ranges := []DateRange{
		{},
		{Start: now, End: now},
		{Start: now, End: now.AddDate(0, 0, 7)},
	}
	for _, r := range ranges {
		assert.Equal(t, NoEventsText, Render(time.UTC, now, r, nil))
		assert.Equal(t, NoEventsText, Render(time.UTC, now, r, []Event{}))
	}
}

func TestRender_SingleDayWindow(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 8, 0, 0)
	r := Resolve(time.UTC, now, Slots{})
	require.True(t, r.Duration() < 24*time.Hour)

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "timed",
			event: Event{Title: "Standup", Start: date(time.UTC, 2024, 1, 1, 9, 0, 0), End: date(time.UTC, 2024, 1, 1, 9, 30, 0)},
			want:  "Standup at 9:00 AM",
		},
		{
			name:  "timed afternoon",
			event: Event{Title: "Review", Start: date(time.UTC, 2024, 1, 1, 13, 5, 0), End: date(time.UTC, 2024, 1, 1, 14, 0, 0)},
			want:  "Review at 1:05 PM",
		},
		{
			name:  "timed noon",
			event: Event{Title: "Lunch", Start: date(time.UTC, 2024, 1, 1, 12, 0, 0), End: date(time.UTC, 2024, 1, 1, 13, 0, 0)},
			want:  "Lunch at 12:00 PM",
		},
		{
			name:  "all day",
			event: Event{Title: "Holiday", Start: date(time.UTC, 2024, 1, 1, 0, 0, 0), End: date(time.UTC, 2024, 1, 2, 0, 0, 0)},
			want:  "Holiday all day",
		},
		{
			name:  "multi day",
			event: Event{Title: "Conference", Start: date(time.UTC, 2023, 12, 30, 0, 0, 0), End: date(time.UTC, 2024, 1, 3, 0, 0, 0)},
			want:  "Conference continued",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(time.UTC, now, r, []Event{tt.event})
			assert.Equal(t, "The events are: "+tt.want+".", got)
		})
	}
}

func TestRender_MultiDayWindow(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 8, 0, 0)
	r := DateRange{Start: now, End: date(time.UTC, 2024, 1, 8, 0, 0, 0)}

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "all day today",
			event: Event{Title: "Holiday", Start: date(time.UTC, 2024, 1, 1, 0, 0, 0), End: date(time.UTC, 2024, 1, 2, 0, 0, 0)},
			want:  "Holiday Today",
		},
		{
			name:  "all day tomorrow",
			event: Event{Title: "Offsite", Start: date(time.UTC, 2024, 1, 2, 0, 0, 0), End: date(time.UTC, 2024, 1, 3, 0, 0, 0)},
			want:  "Offsite Tomorrow",
		},
		{
			name:  "all day later",
			event: Event{Title: "Birthday", Start: date(time.UTC, 2024, 1, 5, 0, 0, 0), End: date(time.UTC, 2024, 1, 6, 0, 0, 0)},
			want:  "Birthday on Friday",
		},
		{
			name:  "multi day started earlier",
			event: Event{Title: "Conference", Start: date(time.UTC, 2023, 12, 30, 0, 0, 0), End: date(time.UTC, 2024, 1, 3, 0, 0, 0)},
			want:  "Conference ending on Wednesday",
		},
		{
			name:  "multi day starting today",
			event: Event{Title: "Trip", Start: date(time.UTC, 2024, 1, 1, 0, 0, 0), End: date(time.UTC, 2024, 1, 4, 0, 0, 0)},
			want:  "Trip starting today",
		},
		{
			name:  "multi day starting tomorrow",
			event: Event{Title: "Trip", Start: date(time.UTC, 2024, 1, 2, 0, 0, 0), End: date(time.UTC, 2024, 1, 4, 0, 0, 0)},
			want:  "Trip starting tomorrow",
		},
		{
			name:  "multi day starting later",
			event: Event{Title: "Trip", Start: date(time.UTC, 2024, 1, 6, 0, 0, 0), End: date(time.UTC, 2024, 1, 9, 0, 0, 0)},
			want:  "Trip starting on Saturday",
		},
		{
			name:  "timed today",
			event: Event{Title: "Standup", Start: date(time.UTC, 2024, 1, 1, 9, 0, 0), End: date(time.UTC, 2024, 1, 1, 9, 15, 0)},
			want:  "Standup Today at 9:00 AM",
		},
		{
			name:  "timed tomorrow",
			event: Event{Title: "Dentist", Start: date(time.UTC, 2024, 1, 2, 16, 45, 0), End: date(time.UTC, 2024, 1, 2, 17, 30, 0)},
			want:  "Dentist Tomorrow at 4:45 PM",
		},
		{
			name:  "timed later",
			event: Event{Title: "Dinner", Start: date(time.UTC, 2024, 1, 4, 19, 0, 0), End: date(time.UTC, 2024, 1, 4, 21, 0, 0)},
			want:  "Dinner on Thursday at 7:00 PM",
		},
		{
			name:  "timed spanning midnight is not multi day",
			event: Event{Title: "Deploy", Start: date(time.UTC, 2024, 1, 3, 22, 0, 0), End: date(time.UTC, 2024, 1, 4, 2, 0, 0)},
			want:  "Deploy on Wednesday at 10:00 PM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(time.UTC, now, r, []Event{tt.event})
			assert.Equal(t, "The events are: "+tt.want+".", got)
		})
	}
}

func TestRender_ExactlyOneDayWindowShowsQualifiers(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 0, 0, 0)
	r := Resolve(time.UTC, now, Slots{This: PeriodFriday})
	require.Equal(t, 24*time.Hour, r.Duration())

	got := Render(time.UTC, now, r, []Event{
		{Title: "Demo", Start: date(time.UTC, 2024, 1, 5, 10, 0, 0), End: date(time.UTC, 2024, 1, 5, 11, 0, 0)},
	})
	assert.Equal(t, "The events are: Demo on Friday at 10:00 AM.", got)
}

func TestRender_PreservesOrder(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 8, 0, 0)
	r := Resolve(time.UTC, now, Slots{})

	var events []Event
	for i := 5; i >= 1; i-- {
		start := date(time.UTC, 2024, 1, 1, 10+i, 0, 0)
		events = append(events, Event{Title: fmt.Sprintf("E%d", i), Start: start, End: start.Add(30 * time.Minute)})
	}

	got := Render(time.UTC, now, r, events)
	assert.Equal(t, "The events are: E5 at 3:00 PM, E4 at 2:00 PM, E3 at 1:00 PM, E2 at 12:00 PM, E1 at 11:00 AM.", got)

	body := strings.TrimSuffix(strings.TrimPrefix(got, "The events are: "), ".")
	assert.Len(t, strings.Split(body, ", "), len(events))
	assert.False(t, strings.HasSuffix(got, ", ."))
}

func TestRender_UsesZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// "now" at 03:00 UTC Tuesday is still Monday evening in New York, so
	// 23:30 UTC Tuesday (6:30 PM local) is tomorrow there.
	now := date(time.UTC, 2024, 1, 2, 3, 0, 0)
	r := DateRange{Start: now.In(ny), End: now.In(ny).AddDate(0, 0, 3)}

	got := Render(ny, now, r, []Event{
		{Title: "Call", Start: date(time.UTC, 2024, 1, 2, 23, 30, 0), End: date(time.UTC, 2024, 1, 3, 0, 0, 0)},
	})
	assert.Equal(t, "The events are: Call Tomorrow at 6:30 PM.", got)
}

func TestRender_AllDayAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	now := date(ny, 2024, 3, 8, 9, 0, 0)
	r := DateRange{Start: now, End: now.AddDate(0, 0, 7)}

	// 2024-03-10 is only 23 hours long in New York.
	got := Render(ny, now, r, []Event{
		{Title: "Daylight", Start: date(ny, 2024, 3, 10, 0, 0, 0), End: date(ny, 2024, 3, 11, 0, 0, 0)},
	})
	assert.Equal(t, "The events are: Daylight on Sunday.", got)
}

func TestRender_ShortDSTDayStillQualified(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	brunch := func(d int) []Event {
		return []Event{{Title: "Brunch", Start: date(ny, 2024, 3, d, 11, 0, 0), End: date(ny, 2024, 3, d, 12, 0, 0)}}
	}

	// "this sunday" on the spring-forward weekend is a 23 hour window.
	now := date(ny, 2024, 3, 4, 0, 0, 0)
	r := Resolve(ny, now, Slots{This: PeriodSunday})
	require.Equal(t, 23*time.Hour, r.Duration())
	assert.Equal(t, "The events are: Brunch on Sunday at 11:00 AM.", Render(ny, now, r, brunch(10)))

	later := now.AddDate(0, 0, 7)
	r = Resolve(ny, later, Slots{This: PeriodSunday})
	require.Equal(t, 24*time.Hour, r.Duration())
	assert.Equal(t, "The events are: Brunch on Sunday at 11:00 AM.", Render(ny, later, r, brunch(17)))

	// The same day as a single-day "today" window keeps the bare label.
	sunday := date(ny, 2024, 3, 10, 0, 0, 0)
	r = Resolve(ny, sunday, Slots{})
	assert.Equal(t, "The events are: Brunch at 11:00 AM.", Render(ny, sunday, r, brunch(10)))
}
