// Package icsexport writes expanded occurrences back out as iCalendar.
package icsexport

import (
	"bytes"
	"io"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/pkg/errors"

	"intentcal/internal/model"
)

const prodID = "-//intentcal//events//EN"

// stubCalendar is written when there is nothing to encode; the encoder
// rejects a VCALENDAR without components.
const stubCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + prodID + "\r\nEND:VCALENDAR\r\n"

// Encode writes occurrences as a VCALENDAR to w. now stamps DTSTAMP.
func Encode(w io.Writer, name string, occs []model.Occurrence, now time.Time) error {
	if len(occs) == 0 {
		_, err := io.WriteString(w, stubCalendar)
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	if name != "" {
		cal.Props.SetText("X-WR-CALNAME", name)
	}

	stamp := now.UTC()
	for _, o := range occs {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, o.UID+"/"+o.InstanceKey)
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		ev.Props.SetText(ical.PropSummary, o.Summary)
		if o.Description != "" {
			ev.Props.SetText(ical.PropDescription, o.Description)
		}
		if o.Location != "" {
			ev.Props.SetText(ical.PropLocation, o.Location)
		}
		if o.AllDay {
			ev.Props.SetDate(ical.PropDateTimeStart, o.Start)
			ev.Props.SetDate(ical.PropDateTimeEnd, o.End)
		} else {
			ev.Props.SetDateTime(ical.PropDateTimeStart, o.Start.UTC())
			ev.Props.SetDateTime(ical.PropDateTimeEnd, o.End.UTC())
		}
		cal.Children = append(cal.Children, ev.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return errors.Wrap(err, "encode calendar")
	}
	return nil
}

// Bytes is Encode into a buffer.
func Bytes(name string, occs []model.Occurrence, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, name, occs, now); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
