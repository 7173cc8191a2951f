package ical

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/Sauce8888/MVP1/internal/logger"
)

// Defaults for recurrence expansion.
const (
	DefaultHorizon     = 365 * 24 * time.Hour
	DefaultMaxPerEvent = 1000
)

// Occurrence is one normalized busy interval from a feed. Recurring
// events contribute one Occurrence per expanded instance, each with a
// derived UID so every instance occupies its own reconciliation slot.
type Occurrence struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
	AllDay  bool
}

// ExpandOptions bounds recurrence expansion. Non-recurring events pass
// through regardless of the window.
type ExpandOptions struct {
	// Now anchors the expansion window. Zero means the current time.
	Now time.Time
	// Horizon is how far past Now recurring events are expanded.
	Horizon time.Duration
	// MaxPerEvent caps the occurrences generated from one RRULE.
	MaxPerEvent int
}

// ParseError reports a feed body that could not be understood as
// iCalendar at all. Broken individual VEVENTs inside an otherwise valid
// feed are skipped instead.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing calendar: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns raw iCalendar bodies into normalized occurrences.
type Parser struct {
	log *logger.Logger
}

// NewParser creates a parser that logs skipped events and capped
// expansions through the given logger.
func NewParser(log *logger.Logger) *Parser {
	return &Parser{log: log}
}

// Parse decodes an iCalendar body and returns every busy occurrence in
// it, with recurring events expanded per opts. Events whose dates cannot
// be read are skipped and logged; a body that is not iCalendar at all
// returns a *ParseError.
func (p *Parser) Parse(data []byte, opts ExpandOptions) ([]Occurrence, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	if opts.Horizon <= 0 {
		opts.Horizon = DefaultHorizon
	}
	if opts.MaxPerEvent <= 0 {
		opts.MaxPerEvent = DefaultMaxPerEvent
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: errors.New("empty feed body")}
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	var occurrences []Occurrence
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve)
		if err != nil {
			p.log.Warn("skipping unusable calendar event", "uid", eventUID(ve), "error", err)
			continue
		}
		occurrences = append(occurrences, p.expand(ev, opts)...)
	}

	return occurrences, nil
}

// feedEvent is a VEVENT lifted out of the library representation, before
// recurrence expansion.
type feedEvent struct {
	uid     string
	summary string
	start   time.Time
	end     time.Time
	allDay  bool
	rrule   string
	exDates []time.Time
}

func parseVEvent(ve *ics.VEvent) (feedEvent, error) {
	var ev feedEvent

	ev.uid = eventUID(ve)
	if ev.uid == "" {
		// Some feeds omit UIDs entirely. A generated one keeps the event
		// usable; it is treated as new on every sync.
		ev.uid = uuid.NewString()
	}

	if p := ve.GetProperty(ics.ComponentPropertySummary); p != nil {
		ev.summary = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, fmt.Errorf("reading DTSTART: %w", err)
	}
	if start.IsZero() {
		return ev, errors.New("event has no usable start")
	}
	ev.start = start

	if end, err := ve.GetEndAt(); err == nil && !end.IsZero() {
		ev.end = end
	}

	ev.allDay = isAllDay(ve)
	if ev.allDay {
		// Date-only values parse in the host zone. Rebase them to UTC
		// midnight on the written date so the civil day never shifts
		// with the server's own timezone.
		ev.start = dateOnly(ev.start)
		if !ev.end.IsZero() {
			ev.end = dateOnly(ev.end)
		}
	}
	if ev.end.IsZero() {
		// RFC 5545: an all-day event without DTEND lasts one day.
		if ev.allDay {
			ev.end = ev.start.Add(24 * time.Hour)
		} else {
			ev.end = ev.start
		}
	}

	if p := ve.GetProperty(ics.ComponentPropertyRrule); p != nil {
		ev.rrule = p.Value
	}

	for _, p := range ve.GetProperties(ics.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, ev.start.Location()); err == nil {
				ev.exDates = append(ev.exDates, t)
			}
		}
	}

	return ev, nil
}

func eventUID(ve *ics.VEvent) string {
	if p := ve.GetProperty(ics.ComponentPropertyUniqueId); p != nil {
		return p.Value
	}
	return ""
}

// isAllDay detects date-only events via the VALUE=DATE parameter, or by a
// DTSTART value without a time part for feeds that omit the parameter.
func isAllDay(ve *ics.VEvent) bool {
	p := ve.GetProperty(ics.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if vals, ok := p.ICalParameters["VALUE"]; ok && len(vals) > 0 && strings.EqualFold(vals[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// expand turns one feed event into its occurrences. Events without an
// RRULE come back unchanged as a single occurrence; recurring ones are
// expanded into the window, with EXDATEs honored and a hard cap per
// event. An unparsable RRULE degrades to the base occurrence.
func (p *Parser) expand(ev feedEvent, opts ExpandOptions) []Occurrence {
	if ev.rrule == "" {
		return []Occurrence{ev.occurrence(ev.start, ev.end)}
	}

	rule, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		p.log.Warn("unparsable RRULE, keeping base occurrence", "uid", ev.uid, "rrule", ev.rrule, "error", err)
		return []Occurrence{ev.occurrence(ev.start, ev.end)}
	}
	rule.DTStart(ev.start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range ev.exDates {
		set.ExDate(ex)
	}

	loc := ev.start.Location()
	starts := set.Between(opts.Now.In(loc), opts.Now.Add(opts.Horizon).In(loc), true)
	if len(starts) > opts.MaxPerEvent {
		p.log.Warn("recurrence expansion capped", "uid", ev.uid, "cap", opts.MaxPerEvent)
		starts = starts[:opts.MaxPerEvent]
	}

	duration := ev.end.Sub(ev.start)
	occurrences := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		occ := ev.occurrence(start, start.Add(duration))
		occ.UID = fmt.Sprintf("%s:%s", ev.uid, start.UTC().Format(time.RFC3339))
		occurrences = append(occurrences, occ)
	}

	return occurrences
}

func (ev feedEvent) occurrence(start, end time.Time) Occurrence {
	return Occurrence{
		UID:     ev.uid,
		Summary: ev.summary,
		Start:   start,
		End:     end,
		AllDay:  ev.allDay,
	}
}

// dateOnly keeps a time's written calendar date and moves it to UTC
// midnight.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseICSTime parses the basic iCalendar date and date-time forms used
// by EXDATE values. Values without a zone designator are read in the
// event's own location.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
