// Package editor edits an existing calendar event and its recurrence.
package editor

import (
	"context"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/gateway"
	"github.com/detailongo/dotg-team/internal/metrics"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/recurrence"

	"github.com/rs/zerolog"
)

const localLayout = "2006-01-02T15:04"

// TimeZones is the fixed list offered by the editor. The first entry is
// the default.
var TimeZones = []string{
	"America/Chicago",
	"Pacific/Honolulu",
	"America/Anchorage",
	"America/Los_Angeles",
	"America/Denver",
	"America/New_York",
	"Europe/London",
	"Europe/Paris",
	"Asia/Tokyo",
	"Australia/Sydney",
}

func knownZone(tz string) bool {
	for _, z := range TimeZones {
		if z == tz {
			return true
		}
	}
	return false
}

// Form is the editable state of one event. Start and End are wall-clock
// times in TimeZone.
type Form struct {
	EventID     string          `json:"eventId"`
	Summary     string          `json:"summary"`
	Start       string          `json:"start"`
	End         string          `json:"end"`
	Location    string          `json:"location"`
	Description string          `json:"description"`
	TimeZone    string          `json:"timeZone"`
	Recurrence  recurrence.Form `json:"recurrence"`
}

// Load turns an event into a form. Unknown zones fall back to the first
// entry of TimeZones.
func Load(ev models.CalendarEvent) Form {
	tz := ev.TimeZone
	if !knownZone(tz) {
		tz = TimeZones[0]
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	f := Form{
		EventID:     ev.ID,
		Summary:     ev.Title,
		Location:    ev.Location,
		Description: ev.Description,
		TimeZone:    tz,
		Recurrence:  recurrence.DefaultForm(),
	}
	if !ev.Start.IsZero() {
		f.Start = ev.Start.In(loc).Format(localLayout)
	}
	if !ev.End.IsZero() {
		f.End = ev.End.In(loc).Format(localLayout)
	}
	return f
}

// WithStart sets a new start and moves the end onto the same date, keeping
// the end's time of day.
func (f Form) WithStart(start string) (Form, error) {
	s, err := time.Parse(localLayout, start)
	if err != nil {
		return f, apperr.Validation("start", "invalid start time")
	}
	f.Start = start

	e, err := time.Parse(localLayout, f.End)
	if err != nil {
		return f, nil
	}
	end := time.Date(s.Year(), s.Month(), s.Day(), e.Hour(), e.Minute(), 0, 0, time.UTC)
	f.End = end.Format(localLayout)
	return f, nil
}

// Times resolves Start and End in the form's zone.
func (f Form) Times() (start, end time.Time, err error) {
	if !knownZone(f.TimeZone) {
		return start, end, apperr.Validation("timeZone", "unsupported time zone %q", f.TimeZone)
	}
	loc, err := time.LoadLocation(f.TimeZone)
	if err != nil {
		return start, end, apperr.Validation("timeZone", "unsupported time zone %q", f.TimeZone)
	}
	if start, err = time.ParseInLocation(localLayout, f.Start, loc); err != nil {
		return start, end, apperr.Validation("start", "invalid start time")
	}
	if end, err = time.ParseInLocation(localLayout, f.End, loc); err != nil {
		return start, end, apperr.Validation("end", "invalid end time")
	}
	return start, end, nil
}

// Presets lists the recurrence choices labelled for the form's start.
func (f Form) Presets() []recurrence.Option {
	start, _, err := f.Times()
	if err != nil {
		if start, err = time.Parse(localLayout, f.Start); err != nil {
			start = time.Now()
		}
	}
	return recurrence.Options(start)
}

type EventUpdater interface {
	ModifyEvent(ctx context.Context, email string, req gateway.ModifyEventRequest) error
}

// Result reports what was sent. Warning is set when the recurrence was
// dropped.
type Result struct {
	Request gateway.ModifyEventRequest `json:"request"`
	Warning string                     `json:"warning,omitempty"`
}

type Editor struct {
	events EventUpdater
	logger *zerolog.Logger
}

func New(events EventUpdater, logger *zerolog.Logger) *Editor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "editor").Logger()
	return &Editor{events: events, logger: &l}
}

// Save validates the form, compiles its recurrence and posts the update on
// behalf of email. A failed post is a SubmissionError; the form can be
// saved again unchanged.
func (e *Editor) Save(ctx context.Context, email string, f Form) (Result, error) {
	if strings.TrimSpace(f.EventID) == "" {
		return Result{}, apperr.Validation("eventId", "event id is required")
	}
	if strings.TrimSpace(email) == "" {
		return Result{}, apperr.Validation("email", "staff email is required")
	}
	start, end, err := f.Times()
	if err != nil {
		return Result{}, err
	}
	if !start.Before(end) {
		return Result{}, apperr.Validation("end", "End time must be after start time")
	}

	rule, warning, err := recurrence.CompileForm(f.Recurrence, start, e.logger)
	if err != nil {
		return Result{}, err
	}

	req := gateway.ModifyEventRequest{
		EventID:     f.EventID,
		Summary:     f.Summary,
		Start:       start.Format(time.RFC3339),
		End:         end.Format(time.RFC3339),
		Location:    f.Location,
		Description: f.Description,
		Recurrence:  recurrence.RRuleLines(rule),
		TimeZone:    f.TimeZone,
	}
	if e.events == nil {
		return Result{}, apperr.Submission("event", gateway.ErrNotConfigured)
	}

	err = e.events.ModifyEvent(ctx, email, req)
	metrics.IncSubmission("event", err == nil)
	if err != nil {
		e.logger.Error().Err(err).Str("event_id", f.EventID).Msg("event update failed")
		return Result{}, apperr.Submission("event", err)
	}

	e.logger.Info().Str("event_id", f.EventID).Str("rule", rule).Msg("event updated")
	return Result{Request: req, Warning: warning}, nil
}
