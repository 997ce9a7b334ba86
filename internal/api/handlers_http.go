package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/detailongo/dotg-team/internal/calendar"
	"github.com/detailongo/dotg-team/internal/editor"
	"github.com/detailongo/dotg-team/internal/export"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/service"
	"github.com/detailongo/dotg-team/internal/wizard"

	"github.com/gorilla/mux"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	view, err := s.svc.Sessions.Create(r.Context(), strings.TrimSpace(body.SessionID))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Sessions.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionAction fires a wizard event. A failed order or payment
// still returns the saved view alongside the error so the client can
// render the retry state.
func (s *HTTPServer) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	var action wizard.Action
	if err := decodeJSON(r, &action); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if action.Event == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}

	view, err := s.svc.Sessions.Dispatch(r.Context(), mux.Vars(r)["id"], action)
	if err != nil {
		if view.SessionID == "" || errorStatus(err) == http.StatusNotFound {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, errorStatus(err), map[string]any{"error": err.Error(), "view": view})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var upd service.FieldUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := s.svc.Sessions.Update(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type quoteRequest struct {
	Vehicle models.VehicleProfile `json:"vehicle"`
	Service models.ServicePackage `json:"service"`
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Pricing.Quote(req.Vehicle, req.Service))
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	branch := strings.TrimSpace(mux.Vars(r)["branch"])
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date != "" {
		if _, err := calendar.ParseDate(date); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
	}

	slots, err := s.svc.Slots.Availability(r.Context(), branch)
	if err != nil {
		loggerFor(r, s.log).Warn().Err(err).Str("branch", branch).Msg("availability fetch failed")
		writeError(w, http.StatusBadGateway, "availability unavailable")
		return
	}
	if date != "" {
		slots = calendar.SlotsForDate(slots, date)
	}
	if slots == nil {
		slots = []models.TimeSlot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"branch": branch, "slots": slots})
}

func (s *HTTPServer) handleEventLoad(w http.ResponseWriter, r *http.Request) {
	var ev models.CalendarEvent
	if err := decodeJSON(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Editor.Load(ev))
}

func (s *HTTPServer) handleEventPresets(w http.ResponseWriter, r *http.Request) {
	var f editor.Form
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"options": s.svc.Editor.Presets(f)})
}

func (s *HTTPServer) handleEventSave(w http.ResponseWriter, r *http.Request) {
	var f editor.Form
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.svc.Editor.Save(r.Context(), r.URL.Query().Get("email"), f)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleListOrders(w http.ResponseWriter, r *http.Request) {
	from, to, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := s.svc.Orders.ListOrders(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *HTTPServer) handleExportOrders(w http.ResponseWriter, r *http.Request) {
	from, to, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := s.svc.Orders.Export(r.Context(), &buf, from, to); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(from, inclusiveEnd(to))))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.svc.Orders.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := s.svc.Orders.UpdateStatus(r.Context(), mux.Vars(r)["id"], strings.TrimSpace(body.Status))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handleResync(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Orders.Resync(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// periodFromQuery reads the optional from/to dates. to is inclusive, so the
// returned upper bound is the start of the following day.
func periodFromQuery(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, fmt.Errorf("invalid from date; expected YYYY-MM-DD")
		}
		from = d
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, fmt.Errorf("invalid to date; expected YYYY-MM-DD")
		}
		to = d.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, fmt.Errorf("from must not be after to")
	}
	return from, to, nil
}

func inclusiveEnd(to time.Time) time.Time {
	if to.IsZero() {
		return to
	}
	return to.AddDate(0, 0, -1)
}
