package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/domain"
	"github.com/detailongo/dotg-team/internal/events"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/wizard"
	"github.com/detailongo/dotg-team/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrSessionNotFound = errors.New("session not found")

// FieldUpdate carries draft edits from a frontend. Set fields are applied
// in declaration order; the first failure discards the whole update.
type FieldUpdate struct {
	Contact     *models.Contact   `json:"contact,omitempty"`
	VehicleSize *models.SizeClass `json:"vehicleSize,omitempty"`
	Condition   *models.Condition `json:"condition,omitempty"`
	Year        *string           `json:"vehicleYear,omitempty"`
	Make        *string           `json:"vehicleMake,omitempty"`
	Model       *string           `json:"vehicleModel,omitempty"`
	Package     *models.Package   `json:"package,omitempty"`
	ToggleAddon *models.Addon     `json:"toggleAddon,omitempty"`
	Frequency   *models.Frequency `json:"frequency,omitempty"`
	Month       string            `json:"month,omitempty"`
	Date        *string           `json:"date,omitempty"`
	Slot        *string           `json:"slot,omitempty"`
	Customer    *models.Customer  `json:"customer,omitempty"`
	Billing     *models.Billing   `json:"billing,omitempty"`
}

// SessionService owns wizard sessions: it restores them from the session
// store, applies one change under a per-session lock and saves them back.
// Reaching the confirmation step records the order in the journal.
type SessionService struct {
	repo     domain.SessionRepository
	journal  domain.OrderJournal
	syncer   domain.SyncWorker
	eventBus domain.EventPublisher
	deps     wizard.Deps
	locks    *keyedMutex
	newID    func() string
	logger   *zerolog.Logger
}

func NewSessionService(
	repo domain.SessionRepository,
	journal domain.OrderJournal,
	syncer domain.SyncWorker,
	eventBus domain.EventPublisher,
	deps wizard.Deps,
	logger *zerolog.Logger,
) *SessionService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	l := logger.With().Str("component", "session_service").Logger()
	return &SessionService{
		repo:     repo,
		journal:  journal,
		syncer:   syncer,
		eventBus: eventBus,
		deps:     deps,
		locks:    newKeyedMutex(),
		newID:    uuid.NewString,
		logger:   &l,
	}
}

// Create starts a session. An empty id gets a generated one.
func (s *SessionService) Create(ctx context.Context, sessionID string) (wizard.View, error) {
	if sessionID == "" {
		sessionID = s.newID()
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	w := wizard.New(sessionID, s.deps)
	if err := s.save(ctx, w, nil); err != nil {
		return wizard.View{}, err
	}
	return w.View(), nil
}

// Get returns the current view of a session.
func (s *SessionService) Get(ctx context.Context, sessionID string) (wizard.View, error) {
	w, _, err := s.load(ctx, sessionID)
	if err != nil {
		return wizard.View{}, err
	}
	return w.View(), nil
}

// GetOrCreate returns the session, starting a fresh one if it is missing.
func (s *SessionService) GetOrCreate(ctx context.Context, sessionID string) (wizard.View, error) {
	v, err := s.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return s.Create(ctx, sessionID)
	}
	return v, err
}

// Dispatch applies a wizard action. The session is saved even when the
// action fails so a captured payment is never lost.
func (s *SessionService) Dispatch(ctx context.Context, sessionID string, action wizard.Action) (wizard.View, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	w, state, err := s.load(ctx, sessionID)
	if err != nil {
		return wizard.View{}, err
	}

	from := w.Step()
	actionErr := w.Dispatch(ctx, action)

	if actionErr == nil && from != wizard.StepDone && w.Step() == wizard.StepDone {
		s.recordOrder(ctx, sessionID, w.Draft())
	}

	if err := s.save(ctx, w, state); err != nil {
		return wizard.View{}, err
	}
	return w.View(), actionErr
}

// Update applies draft edits. A failed edit leaves the stored session
// untouched.
func (s *SessionService) Update(ctx context.Context, sessionID string, upd FieldUpdate) (wizard.View, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	w, state, err := s.load(ctx, sessionID)
	if err != nil {
		return wizard.View{}, err
	}
	if err := applyUpdate(ctx, w, upd); err != nil {
		return wizard.View{}, err
	}
	if err := s.save(ctx, w, state); err != nil {
		return wizard.View{}, err
	}
	return w.View(), nil
}

// SetTempData stores frontend bookkeeping next to the session.
func (s *SessionService) SetTempData(ctx context.Context, sessionID, key string, value interface{}) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	state, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if state == nil {
		return ErrSessionNotFound
	}
	if state.TempData == nil {
		state.TempData = make(map[string]interface{})
	}
	state.TempData[key] = value
	state.UpdatedAt = time.Now()
	return s.repo.SaveSession(ctx, state)
}

// TempData returns the stored bookkeeping for a session, or nil.
func (s *SessionService) TempData(ctx context.Context, sessionID string) (*models.SessionState, error) {
	return s.repo.GetSession(ctx, sessionID)
}

func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.repo.DeleteSession(ctx, sessionID)
}

// Allow reports whether key is within limit actions per window.
func (s *SessionService) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	ok, err := s.repo.CheckRateLimit(ctx, key, limit, window)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
		return true
	}
	return ok
}

func (s *SessionService) load(ctx context.Context, sessionID string) (*wizard.Wizard, *models.SessionState, error) {
	state, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to load session")
		return nil, nil, err
	}
	if state == nil || len(state.Snapshot) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", sessionID, ErrSessionNotFound)
	}
	w, err := wizard.UnmarshalState(s.deps, state.Snapshot)
	if err != nil {
		return nil, nil, err
	}
	return w, state, nil
}

func (s *SessionService) save(ctx context.Context, w *wizard.Wizard, prev *models.SessionState) error {
	data, err := w.MarshalState()
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	state := &models.SessionState{
		SessionID:   w.SessionID(),
		CurrentStep: int(w.Step()),
		Snapshot:    data,
		UpdatedAt:   time.Now(),
	}
	if prev != nil {
		state.TempData = prev.TempData
	}
	return s.repo.SaveSession(ctx, state)
}

func (s *SessionService) recordOrder(ctx context.Context, sessionID string, draft models.BookingDraft) {
	order := OrderFromDraft(s.newID(), sessionID, draft)

	if s.journal != nil {
		if err := s.journal.CreateOrder(ctx, order); err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID).Msg("journal order error")
			return
		}
	}
	if s.syncer != nil {
		if err := s.syncer.EnqueueOrder(ctx, worker.TaskUpsertOrder, order); err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID).Msg("sheets enqueue error")
		}
	}

	publishOrder(s.eventBus, s.logger, events.EventOrderSubmitted, order)
	if order.Paid {
		publishOrder(s.eventBus, s.logger, events.EventPaymentCaptured, order)
	}
}

func applyUpdate(ctx context.Context, w *wizard.Wizard, u FieldUpdate) error {
	steps := []struct {
		set   bool
		apply func() error
	}{
		{u.Contact != nil, func() error { return w.SetContact(ctx, *u.Contact) }},
		{u.VehicleSize != nil, func() error { return w.SetVehicleSize(*u.VehicleSize) }},
		{u.Condition != nil, func() error { return w.SetCondition(*u.Condition) }},
		{u.Year != nil, func() error { return w.SelectYear(ctx, *u.Year) }},
		{u.Make != nil, func() error { return w.SelectMake(ctx, *u.Make) }},
		{u.Model != nil, func() error { return w.SelectModel(*u.Model) }},
		{u.Package != nil, func() error { return w.SetPackage(*u.Package) }},
		{u.ToggleAddon != nil, func() error { return w.ToggleAddon(*u.ToggleAddon) }},
		{u.Frequency != nil, func() error { return w.SetFrequency(*u.Frequency) }},
		{u.Month != "", func() error { return changeMonth(w, u.Month) }},
		{u.Date != nil, func() error { return w.SelectDate(*u.Date) }},
		{u.Slot != nil, func() error { return w.SelectSlot(*u.Slot) }},
		{u.Customer != nil, func() error { return w.SetCustomer(*u.Customer) }},
		{u.Billing != nil, func() error { return w.SetBilling(*u.Billing) }},
	}
	for _, st := range steps {
		if !st.set {
			continue
		}
		if err := st.apply(); err != nil {
			return err
		}
	}
	return nil
}

func changeMonth(w *wizard.Wizard, direction string) error {
	switch direction {
	case "next":
		return w.NextMonth()
	case "prev":
		return w.PrevMonth()
	}
	return apperr.Validation("month", "month must be next or prev")
}
