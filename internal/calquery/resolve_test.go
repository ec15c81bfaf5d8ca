package calquery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-01 is a Monday.
func date(loc *time.Location, y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, loc)
}

func TestResolve_Baseline(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 10, 0, 0)

	r := Resolve(time.UTC, now, Slots{})
	assert.Equal(t, now, r.Start)
	assert.Equal(t, date(time.UTC, 2024, 1, 1, 23, 59, 59), r.End)

	today := Resolve(time.UTC, now, Slots{RelativeDay: RelativeDayToday})
	assert.Equal(t, r, today)
}

func TestResolve_Tomorrow(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 10, 30, 0)

	r := Resolve(time.UTC, now, Slots{RelativeDay: RelativeDayTomorrow})
	assert.Equal(t, date(time.UTC, 2024, 1, 2, 0, 0, 0), r.Start)
	assert.Equal(t, date(time.UTC, 2024, 1, 2, 23, 59, 59), r.End)
}

func TestResolve_TomorrowAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Clocks jump forward on 2024-03-10 in New York.
	now := date(ny, 2024, 3, 9, 22, 0, 0)
	r := Resolve(ny, now, Slots{RelativeDay: RelativeDayTomorrow})

	assert.Equal(t, date(ny, 2024, 3, 10, 0, 0, 0), r.Start)
	assert.Equal(t, date(ny, 2024, 3, 10, 23, 59, 59), r.End)
	assert.Equal(t, ny, r.Start.Location())
}

func TestResolve_ThisFriday(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 10, 0, 0)

	r := Resolve(time.UTC, now, Slots{This: PeriodFriday})
	assert.Equal(t, date(time.UTC, 2024, 1, 5, 0, 0, 0), r.Start)
	assert.Equal(t, date(time.UTC, 2024, 1, 6, 0, 0, 0), r.End)
}

func TestResolve_ThisWeekday_AllDays(t *testing.T) {
	weekdays := []struct {
		period Period
		want   time.Weekday
	}{
		{PeriodMonday, time.Monday},
		{PeriodTuesday, time.Tuesday},
		{PeriodWednesday, time.Wednesday},
		{PeriodThursday, time.Thursday},
		{PeriodFriday, time.Friday},
		{PeriodSaturday, time.Saturday},
		{PeriodSunday, time.Sunday},
	}

	// Every day of one week, at several times of day.
	for day := 1; day <= 7; day++ {
		for _, hour := range []int{0, 9, 23} {
			now := date(time.UTC, 2024, 1, day, hour, 15, 0)
			for _, wd := range weekdays {
				r := periodRange(DateRange{Start: now}, wd.period, 0)
				assert.Equal(t, wd.want, r.Start.Weekday(), "now=%s period=%d", now, wd.period)
				assert.Equal(t, r.Start.AddDate(0, 0, 1), r.End)
				assert.Equal(t, 0, r.Start.Hour())

				next := periodRange(DateRange{Start: now}, wd.period, 1)
				assert.Equal(t, r.Start.AddDate(0, 0, 7), next.Start)
			}
		}
	}
}

func TestResolve_ThisWeekday_NoClampAtStartOfWeek(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 0, 0, 0)

	for i, p := range []Period{PeriodMonday, PeriodTuesday, PeriodWednesday, PeriodThursday, PeriodFriday, PeriodSaturday, PeriodSunday} {
		this := Resolve(time.UTC, now, Slots{This: p})
		next := Resolve(time.UTC, now, Slots{Next: p})

		assert.Equal(t, date(time.UTC, 2024, 1, 1+i, 0, 0, 0), this.Start)
		assert.Equal(t, this.Start.AddDate(0, 0, 1), this.End)
		assert.Equal(t, this.Start.AddDate(0, 0, 7), next.Start)
		assert.Equal(t, next.Start.AddDate(0, 0, 1), next.End)
	}
}

func TestResolve_WeekendAndWeek(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 0, 0, 0)

	weekend := Resolve(time.UTC, now, Slots{This: PeriodWeekend})
	assert.Equal(t, date(time.UTC, 2024, 1, 6, 0, 0, 0), weekend.Start)
	assert.Equal(t, date(time.UTC, 2024, 1, 8, 0, 0, 0), weekend.End)

	week := Resolve(time.UTC, now, Slots{This: PeriodWeek})
	assert.Equal(t, date(time.UTC, 2024, 1, 1, 0, 0, 0), week.Start)
	assert.Equal(t, date(time.UTC, 2024, 1, 8, 0, 0, 0), week.End)

	nextWeek := Resolve(time.UTC, now, Slots{Next: PeriodWeek})
	assert.Equal(t, date(time.UTC, 2024, 1, 8, 0, 0, 0), nextWeek.Start)
	assert.Equal(t, date(time.UTC, 2024, 1, 15, 0, 0, 0), nextWeek.End)
}

func TestResolve_ThisWeekMidweekClampsStart(t *testing.T) {
	now := date(time.UTC, 2024, 1, 3, 14, 0, 0)

	r := Resolve(time.UTC, now, Slots{This: PeriodWeek})
	assert.Equal(t, now, r.Start)
	assert.Equal(t, date(time.UTC, 2024, 1, 8, 0, 0, 0), r.End)
}

func TestResolve_NextAfterThis(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 0, 0, 0)

	// next is anchored on the week the this-stage landed in, one week later.
	r := Resolve(time.UTC, now, Slots{This: PeriodFriday, Next: PeriodMonday})
	assert.Equal(t, date(time.UTC, 2024, 1, 8, 0, 0, 0), r.Start)
	assert.Equal(t, date(time.UTC, 2024, 1, 9, 0, 0, 0), r.End)
}

func TestResolve_DayMonth(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 10, 0, 0)

	tests := []struct {
		name      string
		slots     Slots
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "day keeps time of day",
			slots:     Slots{Day: 15},
			wantStart: date(time.UTC, 2024, 1, 15, 10, 0, 0),
			wantEnd:   date(time.UTC, 2024, 1, 16, 10, 0, 0),
		},
		{
			name:      "month and day",
			slots:     Slots{Day: 15, Month: 3},
			wantStart: date(time.UTC, 2024, 3, 15, 10, 0, 0),
			wantEnd:   date(time.UTC, 2024, 3, 16, 10, 0, 0),
		},
		{
			name:      "month without day is ignored",
			slots:     Slots{Month: 3},
			wantStart: now,
			wantEnd:   date(time.UTC, 2024, 1, 1, 23, 59, 59),
		},
		{
			name:      "day overrides weekday",
			slots:     Slots{This: PeriodFriday, Day: 20},
			wantStart: date(time.UTC, 2024, 1, 20, 0, 0, 0),
			wantEnd:   date(time.UTC, 2024, 1, 21, 0, 0, 0),
		},
		{
			name:      "day beyond month end is clamped",
			slots:     Slots{Day: 31, Month: 2},
			wantStart: date(time.UTC, 2024, 2, 29, 10, 0, 0),
			wantEnd:   date(time.UTC, 2024, 3, 1, 10, 0, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(time.UTC, now, tt.slots)
			assert.Equal(t, tt.wantStart, r.Start)
			assert.Equal(t, tt.wantEnd, r.End)
		})
	}
}

func TestResolve_PastDateIsInverted(t *testing.T) {
	now := date(time.UTC, 2024, 1, 10, 10, 0, 0)

	r := Resolve(time.UTC, now, Slots{Day: 5})
	assert.Equal(t, now, r.Start)
	assert.Equal(t, date(time.UTC, 2024, 1, 6, 10, 0, 0), r.End)
	assert.True(t, r.Inverted())
}

func TestResolve_Clock(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 8, 0, 0)

	tests := []struct {
		name      string
		slots     Slots
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "at today is zero width",
			slots:     Slots{RelativeDay: RelativeDayToday, Qualifier: QualifierAt, Hour: Int(14), Minute: Int(30)},
			wantStart: date(time.UTC, 2024, 1, 1, 14, 30, 0),
			wantEnd:   date(time.UTC, 2024, 1, 1, 14, 30, 0),
		},
		{
			name:      "pm promotes hour",
			slots:     Slots{Qualifier: QualifierAt, Hour: Int(2), Meridiem: MeridiemPM},
			wantStart: date(time.UTC, 2024, 1, 1, 14, 0, 0),
			wantEnd:   date(time.UTC, 2024, 1, 1, 14, 0, 0),
		},
		{
			name:      "pm leaves afternoon hours alone",
			slots:     Slots{Qualifier: QualifierAt, Hour: Int(15), Meridiem: MeridiemPM},
			wantStart: date(time.UTC, 2024, 1, 1, 15, 0, 0),
			wantEnd:   date(time.UTC, 2024, 1, 1, 15, 0, 0),
		},
		{
			name:      "am does not change hour",
			slots:     Slots{Qualifier: QualifierAt, Hour: Int(11), Meridiem: MeridiemAM},
			wantStart: date(time.UTC, 2024, 1, 1, 11, 0, 0),
			wantEnd:   date(time.UTC, 2024, 1, 1, 11, 0, 0),
		},
		{
			name:      "before only moves end",
			slots:     Slots{Qualifier: QualifierBefore, Hour: Int(17)},
			wantStart: now,
			wantEnd:   date(time.UTC, 2024, 1, 1, 17, 0, 0),
		},
		{
			name:      "after moves start",
			slots:     Slots{Qualifier: QualifierAfter, Hour: Int(6), Minute: Int(15), Meridiem: MeridiemPM},
			wantStart: date(time.UTC, 2024, 1, 1, 18, 15, 0),
			wantEnd:   date(time.UTC, 2024, 1, 1, 23, 59, 59),
		},
		{
			name:      "after without hour extends end of day",
			slots:     Slots{This: PeriodFriday, Qualifier: QualifierAfter},
			wantStart: date(time.UTC, 2024, 1, 5, 0, 0, 0),
			wantEnd:   date(time.UTC, 2024, 1, 6, 23, 59, 59),
		},
		{
			name:      "before tomorrow",
			slots:     Slots{RelativeDay: RelativeDayTomorrow, Qualifier: QualifierBefore, Hour: Int(9)},
			wantStart: date(time.UTC, 2024, 1, 2, 0, 0, 0),
			wantEnd:   date(time.UTC, 2024, 1, 2, 9, 0, 0),
		},
		{
			name:      "at on an explicit day",
			slots:     Slots{Day: 3, Qualifier: QualifierAt, Hour: Int(9), Minute: Int(45)},
			wantStart: date(time.UTC, 2024, 1, 3, 9, 45, 0),
			wantEnd:   date(time.UTC, 2024, 1, 3, 9, 45, 0),
		},
		{
			name:      "after earlier than now is clamped",
			slots:     Slots{Qualifier: QualifierAfter, Hour: Int(6)},
			wantStart: now,
			wantEnd:   date(time.UTC, 2024, 1, 1, 23, 59, 59),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(time.UTC, now, tt.slots)
			assert.Equal(t, tt.wantStart, r.Start)
			assert.Equal(t, tt.wantEnd, r.End)
		})
	}
}

func TestResolve_AtInThePast(t *testing.T) {
	now := date(time.UTC, 2024, 1, 1, 12, 0, 0)

	r := Resolve(time.UTC, now, Slots{Qualifier: QualifierAt, Hour: Int(9)})
	assert.Equal(t, now, r.Start)
	assert.Equal(t, date(time.UTC, 2024, 1, 1, 9, 0, 0), r.End)
	assert.True(t, r.Inverted())
}

func TestResolve_StartNeverBeforeNow(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	combos := []Slots{
		{},
		{RelativeDay: RelativeDayToday},
		{RelativeDay: RelativeDayTomorrow},
		{This: PeriodMonday},
		{This: PeriodWeek},
		{Next: PeriodSunday},
		{This: PeriodWeekend, Next: PeriodTuesday},
		{Day: 1},
		{Day: 28, Month: 12},
		{Qualifier: QualifierBefore, Hour: Int(1)},
		{Qualifier: QualifierAfter, Hour: Int(3), Meridiem: MeridiemAM},
		{This: PeriodThursday, Qualifier: QualifierAfter, Hour: Int(7), Minute: Int(5)},
	}

	for day := 1; day <= 7; day++ {
		now := date(ny, 2024, 1, day, 13, 37, 0)
		for _, s := range combos {
			r := Resolve(ny, now, s)
			assert.False(t, r.Start.Before(now), "now=%s slots=%+v start=%s", now, s, r.Start)
		}
	}
}

func TestResolve_NowConvertedToZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 2024-01-01 20:00 UTC is already Tuesday morning in Tokyo.
	now := date(time.UTC, 2024, 1, 1, 20, 0, 0)
	r := Resolve(tokyo, now, Slots{RelativeDay: RelativeDayTomorrow})

	assert.Equal(t, date(tokyo, 2024, 1, 3, 0, 0, 0), r.Start)
	assert.Equal(t, date(tokyo, 2024, 1, 3, 23, 59, 59), r.End)
}

func TestParseSlotEnums(t *testing.T) {
	p, err := ParsePeriod(" Friday ")
	require.NoError(t, err)
	assert.Equal(t, PeriodFriday, p)

	p, err = ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodNone, p)

	_, err = ParsePeriod("fortnight")
	assert.Error(t, err)

	rd, err := ParseRelativeDay("TOMORROW")
	require.NoError(t, err)
	assert.Equal(t, RelativeDayTomorrow, rd)

	_, err = ParseRelativeDay("yesterday")
	assert.Error(t, err)

	q, err := ParseQualifier("after")
	require.NoError(t, err)
	assert.Equal(t, QualifierAfter, q)

	_, err = ParseQualifier("around")
	assert.Error(t, err)

	m, err := ParseMeridiem("pm")
	require.NoError(t, err)
	assert.Equal(t, MeridiemPM, m)

	_, err = ParseMeridiem("noon")
	assert.Error(t, err)

	for _, name := range PeriodNames() {
		_, err := ParsePeriod(name)
		assert.NoError(t, err, name)
	}
}
