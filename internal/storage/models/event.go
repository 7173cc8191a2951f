package models

import (
	"time"
)

// CalendarEvent is a normalized busy range on a property's calendar.
// Feed-imported events carry the remote UID in ExternalID; manually
// entered events leave it nil. EndDate is exclusive: a stay from day 1
// to day 3 occupies days 1 and 2.
type CalendarEvent struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	Source     Source    `json:"source"`
	ExternalID *string   `json:"external_id,omitempty"`
	Summary    string    `json:"summary"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Unchanged reports whether the stored event already matches the given
// summary and date range. Sync passes skip rewriting unchanged rows so
// repeated imports of the same feed leave the table untouched.
func (e *CalendarEvent) Unchanged(summary string, start, end time.Time) bool {
	return e.Summary == summary && e.StartDate.Equal(start) && e.EndDate.Equal(end)
}
