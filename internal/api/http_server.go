package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/calendar"
	"github.com/detailongo/dotg-team/internal/config"
	"github.com/detailongo/dotg-team/internal/database"
	"github.com/detailongo/dotg-team/internal/editor"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/pricing"
	"github.com/detailongo/dotg-team/internal/recurrence"
	"github.com/detailongo/dotg-team/internal/service"
	"github.com/detailongo/dotg-team/internal/wizard"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type SessionAPI interface {
	Create(ctx context.Context, sessionID string) (wizard.View, error)
	Get(ctx context.Context, sessionID string) (wizard.View, error)
	Dispatch(ctx context.Context, sessionID string, action wizard.Action) (wizard.View, error)
	Update(ctx context.Context, sessionID string, upd service.FieldUpdate) (wizard.View, error)
	Delete(ctx context.Context, sessionID string) error
}

type OrderAPI interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, from, to time.Time) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Order, error)
	Resync(ctx context.Context) error
	Export(ctx context.Context, w io.Writer, from, to time.Time) error
}

type EditorAPI interface {
	Load(ev models.CalendarEvent) editor.Form
	Presets(f editor.Form) []recurrence.Option
	Save(ctx context.Context, email string, f editor.Form) (editor.Result, error)
}

// Services are the application services the API exposes. A nil member
// disables its routes.
type Services struct {
	Sessions SessionAPI
	Orders   OrderAPI
	Editor   EditorAPI
	Pricing  *pricing.Engine
	Slots    calendar.SlotSource
}

// HTTPServer exposes the booking wizard, pricing, availability, the event
// editor and the order back office as JSON over HTTP.
type HTTPServer struct {
	cfg    config.APIConfig
	svc    Services
	server *http.Server
	auth   *HTTPAuth
	log    *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "http").Logger()
	srv := &HTTPServer{cfg: cfg, svc: svc, log: &l}
	srv.auth = NewHTTPAuth(cfg)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the routed handler with logging and auth applied.
func (s *HTTPServer) Handler() http.Handler {
	return loggingMiddleware(s.log, s.routes())
}

func (s *HTTPServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(countRoute, s.auth.Middleware)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	if s.svc.Sessions != nil {
		v1.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
		v1.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
		v1.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
		v1.HandleFunc("/sessions/{id}/actions", s.handleSessionAction).Methods(http.MethodPost)
		v1.HandleFunc("/sessions/{id}/draft", s.handleUpdateDraft).Methods(http.MethodPatch)
	}
	if s.svc.Pricing != nil {
		v1.HandleFunc("/quote", s.handleQuote).Methods(http.MethodPost)
	}
	if s.svc.Slots != nil {
		v1.HandleFunc("/branches/{branch}/slots", s.handleSlots).Methods(http.MethodGet)
	}
	if s.svc.Editor != nil {
		v1.HandleFunc("/events/load", s.handleEventLoad).Methods(http.MethodPost)
		v1.HandleFunc("/events/presets", s.handleEventPresets).Methods(http.MethodPost)
		v1.HandleFunc("/events/save", s.handleEventSave).Methods(http.MethodPost)
	}
	if s.svc.Orders != nil {
		v1.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
		v1.HandleFunc("/orders/export", s.handleExportOrders).Methods(http.MethodGet)
		v1.HandleFunc("/orders/resync", s.handleResync).Methods(http.MethodPost)
		v1.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
		v1.HandleFunc("/orders/{id}/status", s.handleOrderStatus).Methods(http.MethodPatch)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorStatus maps the error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case apperr.IsValidation(err), apperr.IsCompilation(err):
		return http.StatusUnprocessableEntity
	case apperr.IsSubmission(err):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		loggerFor(r, s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, map[string]string{"error": verr.Message, "field": verr.Field})
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
