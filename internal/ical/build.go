package ical

import (
	"bytes"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ExportEvent is one VEVENT in a generated availability calendar.
type ExportEvent struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
}

// Build renders a complete VCALENDAR document with CRLF line endings and
// UTC timestamps, the dialect Airbnb and the other platforms accept on
// import. An empty event list yields a valid calendar with no VEVENTs.
func Build(name string, events []ExportEvent) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//MVP1//Direct Booking Calendar//EN")
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	if name != "" {
		cal.SetXWRCalName(name)
	}

	now := time.Now().UTC()
	for _, event := range events {
		e := cal.AddEvent(event.UID)
		e.SetDtStampTime(now)
		e.SetStartAt(event.Start.UTC())

		end := event.End
		if !end.After(event.Start) {
			end = event.Start.Add(24 * time.Hour)
		}
		e.SetEndAt(end.UTC())

		e.SetSummary(event.Summary)
		e.SetStatus(ics.ObjectStatusConfirmed)
		e.SetTimeTransparency(ics.TransparencyOpaque)
	}

	var buf bytes.Buffer
	if err := cal.SerializeTo(&buf); err != nil {
		return nil, fmt.Errorf("serializing calendar: %w", err)
	}

	return buf.Bytes(), nil
}
