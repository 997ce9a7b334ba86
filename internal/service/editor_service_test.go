package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/editor"
	"github.com/detailongo/dotg-team/internal/events"
	"github.com/detailongo/dotg-team/internal/gateway"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/recurrence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdater struct {
	err error
	got gateway.ModifyEventRequest
}

func (f *fakeUpdater) ModifyEvent(ctx context.Context, email string, req gateway.ModifyEventRequest) error {
	f.got = req
	return f.err
}

func TestEditorService_SavePublishes(t *testing.T) {
	updater := &fakeUpdater{}
	bus := events.NewEventBus(nil)
	var payload events.CalendarEventPayload
	bus.Subscribe(events.EventCalendarEventUpdated, func(e *events.Event) error {
		return e.Decode(&payload)
	})
	s := NewEditorService(editor.New(updater, nil), bus, nil)

	chicago, _ := time.LoadLocation("America/Chicago")
	form := s.Load(models.CalendarEvent{
		ID:       "evt-1",
		Title:    "Interior detail",
		Start:    time.Date(2024, 1, 9, 9, 0, 0, 0, chicago),
		End:      time.Date(2024, 1, 9, 11, 0, 0, 0, chicago),
		TimeZone: "America/Chicago",
	})
	form.Recurrence.Preset = recurrence.PresetMonthly

	presets := s.Presets(form)
	require.NotEmpty(t, presets)

	res, err := s.Save(context.Background(), "staff@example.com", form)
	require.NoError(t, err)
	assert.Empty(t, res.Warning)
	assert.Equal(t, "evt-1", payload.EventID)
	assert.Equal(t, "staff@example.com", payload.UpdatedBy)
	assert.Contains(t, payload.Rule, "BYDAY=+2TU")
	assert.Equal(t, "America/Chicago", payload.TimeZone)
}

func TestEditorService_SaveFailureDoesNotPublish(t *testing.T) {
	updater := &fakeUpdater{err: errors.New("status 502")}
	bus := events.NewEventBus(nil)
	published := false
	bus.Subscribe(events.EventCalendarEventUpdated, func(e *events.Event) error {
		published = true
		return nil
	})
	s := NewEditorService(editor.New(updater, nil), bus, nil)

	form := editor.Form{
		EventID:  "evt-1",
		Start:    "2024-01-09T09:00",
		End:      "2024-01-09T10:00",
		TimeZone: "America/Chicago",
	}
	_, err := s.Save(context.Background(), "staff@example.com", form)
	assert.True(t, apperr.IsSubmission(err))
	assert.False(t, published)
}
