package gateway

import (
	"context"
	"fmt"
	"net/url"
)

// ModifyEventRequest updates an existing calendar event. Start and End are
// RFC 3339 with offset; Recurrence is either empty or one "RRULE:" line.
type ModifyEventRequest struct {
	EventID     string   `json:"eventId"`
	Summary     string   `json:"summary"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Recurrence  []string `json:"recurrence"`
	TimeZone    string   `json:"timeZone"`
}

// ModifyEvent posts the update on behalf of the staff member email.
func (c *Client) ModifyEvent(ctx context.Context, email string, req ModifyEventRequest) error {
	if c.cfg.EventsURL == "" {
		return fmt.Errorf("%w: events", ErrNotConfigured)
	}
	if req.Recurrence == nil {
		req.Recurrence = []string{}
	}
	endpoint := joinURL(c.cfg.EventsURL, "/modify-event") + "?email=" + url.QueryEscape(email)
	return c.doPost(ctx, endpoint, req, nil)
}
