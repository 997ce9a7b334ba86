package models

import "time"

// CalendarEvent is an existing booking in the external calendar.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	TimeZone    string    `json:"timeZone"`
	Recurrence  []string  `json:"recurrence,omitempty"`
}
