package models

import (
	"fmt"
	"time"
)

// Source identifies which external platform a calendar record came from.
type Source string

// Supported calendar sources. "other" covers feeds from platforms we have
// no dedicated integration for. "manual" is reserved for events entered by
// hosts directly and is never a valid connection source.
const (
	SourceAirbnb Source = "airbnb"
	SourceOther  Source = "other"
	SourceManual Source = "manual"
)

// ParseSource validates a connection source string from the API or CLI.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceAirbnb:
		return SourceAirbnb, nil
	case SourceOther:
		return SourceOther, nil
	default:
		return "", fmt.Errorf("unknown calendar source %q", s)
	}
}

// CalendarConnection represents a property's subscription to an external
// iCal feed. At most one connection exists per (property, source).
type CalendarConnection struct {
	ID           string     `json:"id"`
	PropertyID   string     `json:"property_id"`
	Source       Source     `json:"source"`
	URL          string     `json:"url"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SyncResult contains the outcome of one sync pass over a connection.
// Error carries the typed failure for callers; ErrorMessage mirrors it
// for JSON responses and notifications.
type SyncResult struct {
	ConnectionID string    `json:"connection_id"`
	PropertyID   string    `json:"property_id"`
	Source       Source    `json:"source"`
	EventsFound  int       `json:"events_found"`
	Added        int       `json:"added"`
	Updated      int       `json:"updated"`
	Removed      int       `json:"removed"`
	Error        error     `json:"-"`
	ErrorMessage string    `json:"error,omitempty"`
	SyncedAt     time.Time `json:"synced_at"`
}
