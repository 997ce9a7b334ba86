package service

import (
	"context"

	"github.com/detailongo/dotg-team/internal/domain"
	"github.com/detailongo/dotg-team/internal/editor"
	"github.com/detailongo/dotg-team/internal/events"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/recurrence"

	"github.com/rs/zerolog"
)

// EditorService saves staff edits of calendar events and announces them.
type EditorService struct {
	editor   *editor.Editor
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewEditorService(ed *editor.Editor, eventBus domain.EventPublisher, logger *zerolog.Logger) *EditorService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EditorService{editor: ed, eventBus: eventBus, logger: logger}
}

func (s *EditorService) Load(ev models.CalendarEvent) editor.Form {
	return editor.Load(ev)
}

// Presets lists the recurrence choices for the form's start date.
func (s *EditorService) Presets(f editor.Form) []recurrence.Option {
	return f.Presets()
}

func (s *EditorService) Save(ctx context.Context, email string, f editor.Form) (editor.Result, error) {
	res, err := s.editor.Save(ctx, email, f)
	if err != nil {
		return res, err
	}

	if s.eventBus != nil {
		start, _, _ := f.Times()
		payload := events.CalendarEventPayload{
			EventID:   f.EventID,
			UpdatedBy: email,
			Warning:   res.Warning,
			Start:     start,
			TimeZone:  f.TimeZone,
		}
		if len(res.Request.Recurrence) > 0 {
			payload.Rule = res.Request.Recurrence[0]
		}
		if err := s.eventBus.PublishJSON(events.EventCalendarEventUpdated, payload); err != nil {
			s.logger.Error().Err(err).Str("event_id", f.EventID).Msg("publish event error")
		}
	}
	return res, nil
}
