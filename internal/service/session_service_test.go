package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/events"
	"github.com/detailongo/dotg-team/internal/gateway"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/pricing"
	"github.com/detailongo/dotg-team/internal/repository"
	"github.com/detailongo/dotg-team/internal/wizard"
	"github.com/detailongo/dotg-team/internal/worker"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.January, 9, 10, 0, 0, 0, time.UTC)

type fakeSlots struct{}

func (fakeSlots) Availability(ctx context.Context, branch string) ([]models.TimeSlot, error) {
	return []models.TimeSlot{{Start: "2024-01-10T09:00:00-06:00"}, {Start: "2024-01-10T13:00:00-06:00"}}, nil
}

type fakeCatalog struct{}

func (fakeCatalog) Makes(ctx context.Context, year string) ([]string, error) {
	return []string{"HONDA"}, nil
}

func (fakeCatalog) Models(ctx context.Context, vehicleMake, year string) ([]string, error) {
	return []string{"Civic"}, nil
}

type fakeOrders struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeOrders) SubmitOrder(ctx context.Context, order gateway.OrderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type mockJournal struct{ mock.Mock }

func (m *mockJournal) CreateOrder(ctx context.Context, o *models.Order) error {
	return m.Called(o).Error(0)
}

func (m *mockJournal) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockJournal) ListOrders(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	args := m.Called(from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *mockJournal) UpdateOrderStatus(ctx context.Context, id, status string) error {
	return m.Called(id, status).Error(0)
}

type mockSyncer struct{ mock.Mock }

func (m *mockSyncer) EnqueueOrder(ctx context.Context, taskType string, o *models.Order) error {
	return m.Called(taskType, o).Error(0)
}

func (m *mockSyncer) EnqueueResync(ctx context.Context) error {
	return m.Called().Error(0)
}

func testDeps(orders *fakeOrders) wizard.Deps {
	return wizard.Deps{
		Pricing:       pricing.NewEngine(pricing.DefaultTables()),
		Slots:         fakeSlots{},
		Catalog:       fakeCatalog{},
		Orders:        orders,
		KnownBranches: []models.Branch{{ID: "lwr", Name: "Lawrence"}},
		DefaultBranch: "lwr",
		WindowDays:    90,
		Now:           func() time.Time { return testNow },
	}
}

func strPtr(s string) *string { return &s }

func newTestService(t *testing.T, orders *fakeOrders, journal *mockJournal, syncer *mockSyncer, bus *events.EventBus) *SessionService {
	t.Helper()
	logger := zerolog.Nop()
	repo := repository.NewMemorySessionRepository(time.Hour)
	s := NewSessionService(repo, journal, syncer, bus, testDeps(orders), &logger)
	s.newID = func() string { return "id-1" }
	return s
}

// driveToPayment walks a session to the payment step with an interior
// Sedan package and the 1 PM slot.
func driveToPayment(t *testing.T, s *SessionService, id string) {
	t.Helper()
	ctx := context.Background()
	size := models.SizeSedan
	pkg := models.PackageInterior

	_, err := s.Update(ctx, id, FieldUpdate{Contact: &models.Contact{Phone: "785-555-0100", Address: "1 Main St"}})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, id, wizard.Action{Event: wizard.EventNext})
	require.NoError(t, err)
	_, err = s.Update(ctx, id, FieldUpdate{VehicleSize: &size, Year: strPtr("2020"), Make: strPtr("HONDA"), Model: strPtr("Civic"), Package: &pkg})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, id, wizard.Action{Event: wizard.EventNext})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, id, wizard.Action{Event: wizard.EventPetHairNo})
	require.NoError(t, err)
	_, err = s.Update(ctx, id, FieldUpdate{Date: strPtr("2024-01-10"), Slot: strPtr("2024-01-10T13:00:00-06:00")})
	require.NoError(t, err)
	_, err = s.Dispatch(ctx, id, wizard.Action{Event: wizard.EventNext})
	require.NoError(t, err)
	_, err = s.Update(ctx, id, FieldUpdate{Customer: &models.Customer{FirstName: "Sam", LastName: "Lee", Email: "sam@example.com"}})
	require.NoError(t, err)
	v, err := s.Dispatch(ctx, id, wizard.Action{Event: wizard.EventNext})
	require.NoError(t, err)
	require.Equal(t, wizard.StepPayment, v.Step)
}

func TestSessionService_CreateAndGet(t *testing.T) {
	s := newTestService(t, &fakeOrders{}, nil, nil, nil)
	ctx := context.Background()

	v, err := s.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "id-1", v.SessionID)
	assert.Equal(t, wizard.StepContact, v.Step)

	got, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, v.Draft.Branch, got.Draft.Branch)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	v, err = s.GetOrCreate(ctx, "chat-42")
	require.NoError(t, err)
	assert.Equal(t, "chat-42", v.SessionID)
}

func TestSessionService_SubmitRecordsOrder(t *testing.T) {
	journal := new(mockJournal)
	syncer := new(mockSyncer)
	bus := events.NewEventBus(nil)
	var published []string
	for _, et := range []string{events.EventOrderSubmitted, events.EventPaymentCaptured} {
		bus.Subscribe(et, func(e *events.Event) error {
			published = append(published, e.Type)
			return nil
		})
	}

	orders := &fakeOrders{}
	s := newTestService(t, orders, journal, syncer, bus)
	ctx := context.Background()
	_, err := s.Create(ctx, "sess")
	require.NoError(t, err)
	driveToPayment(t, s, "sess")

	journal.On("CreateOrder", mock.MatchedBy(func(o *models.Order) bool {
		return o.ID == "id-1" && o.SessionID == "sess" && o.Status == models.OrderStatusSubmitted &&
			o.PriceBeforeTax.Equal(decimal.NewFromInt(219)) && o.Vehicle == "2020 HONDA Civic"
	})).Return(nil).Once()
	syncer.On("EnqueueOrder", worker.TaskUpsertOrder, mock.Anything).Return(nil).Once()

	v, err := s.Dispatch(ctx, "sess", wizard.Action{Event: wizard.EventSkipPayment, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, wizard.StepDone, v.Step)
	assert.Equal(t, 1, orders.calls)
	assert.Equal(t, []string{events.EventOrderSubmitted}, published)
	journal.AssertExpectations(t)
	syncer.AssertExpectations(t)

	v, err = s.Dispatch(ctx, "sess", wizard.Action{Event: wizard.EventBookAnother})
	require.NoError(t, err)
	assert.Equal(t, wizard.StepContact, v.Step)
	assert.Equal(t, "785-555-0100", v.Draft.Contact.Phone)
	journal.AssertNumberOfCalls(t, "CreateOrder", 1)
}

func TestSessionService_FailedSubmissionIsPersisted(t *testing.T) {
	orders := &fakeOrders{err: errors.New("status 500")}
	s := newTestService(t, orders, nil, nil, nil)
	ctx := context.Background()
	_, err := s.Create(ctx, "sess")
	require.NoError(t, err)
	driveToPayment(t, s, "sess")

	_, err = s.Dispatch(ctx, "sess", wizard.Action{Event: wizard.EventSkipPayment, Confirmed: true})
	assert.True(t, apperr.IsSubmission(err))

	v, err := s.Get(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, wizard.StepPayment, v.Step)

	orders.err = nil
	v, err = s.Dispatch(ctx, "sess", wizard.Action{Event: wizard.EventSkipPayment, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, wizard.StepDone, v.Step)
}

func TestSessionService_UpdateValidationKeepsState(t *testing.T) {
	s := newTestService(t, &fakeOrders{}, nil, nil, nil)
	ctx := context.Background()
	_, err := s.Create(ctx, "sess")
	require.NoError(t, err)

	_, err = s.Dispatch(ctx, "sess", wizard.Action{Event: wizard.EventNext})
	require.NoError(t, err)

	size := models.SizeLargeSUV
	bad := models.Package("platinum")
	_, err = s.Update(ctx, "sess", FieldUpdate{VehicleSize: &size, Package: &bad})
	assert.True(t, apperr.IsValidation(err))

	v, err := s.Get(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, models.SizeUnset, v.Draft.Vehicle.SizeClass)

	_, err = s.Update(ctx, "sess", FieldUpdate{Month: "sideways"})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.Update(ctx, "sess", FieldUpdate{Contact: &models.Contact{Phone: "785-555-0199", Address: "9 Elm St"}})
	assert.True(t, apperr.IsValidation(err))
	v, err = s.Get(ctx, "sess")
	require.NoError(t, err)
	assert.Empty(t, v.Draft.Contact.Address)
	assert.Equal(t, wizard.StepVehicle, v.Step)
}

func TestSessionService_TempData(t *testing.T) {
	s := newTestService(t, &fakeOrders{}, nil, nil, nil)
	ctx := context.Background()
	_, err := s.Create(ctx, "sess")
	require.NoError(t, err)

	require.NoError(t, s.SetTempData(ctx, "sess", "message_id", int64(42)))
	_, err = s.Dispatch(ctx, "sess", wizard.Action{Event: wizard.EventNext})
	require.NoError(t, err)

	state, err := s.TempData(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, int64(42), state.GetInt64("message_id"))
	assert.Equal(t, int(wizard.StepVehicle), state.CurrentStep)

	assert.ErrorIs(t, s.SetTempData(ctx, "missing", "k", 1), ErrSessionNotFound)
	require.NoError(t, s.Delete(ctx, "sess"))
	_, err = s.Get(ctx, "sess")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_ConcurrentDispatch(t *testing.T) {
	s := newTestService(t, &fakeOrders{}, nil, nil, nil)
	ctx := context.Background()
	_, err := s.Create(ctx, "sess")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	okCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Dispatch(ctx, "sess", wizard.Action{Event: wizard.EventNext}); err == nil {
				mu.Lock()
				okCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Contact→Vehicle→PetHair; Next is rejected on the pet-hair step.
	assert.Equal(t, 2, okCount)
	v, err := s.Get(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, wizard.StepPetHair, v.Step)
	assert.Equal(t, 0, s.locks.size())
}

func TestSessionService_Allow(t *testing.T) {
	s := newTestService(t, &fakeOrders{}, nil, nil, nil)
	ctx := context.Background()
	assert.True(t, s.Allow(ctx, "chat:1", 2, time.Minute))
	assert.True(t, s.Allow(ctx, "chat:1", 2, time.Minute))
	assert.False(t, s.Allow(ctx, "chat:1", 2, time.Minute))
}

func TestOrderFromDraft(t *testing.T) {
	d := models.BookingDraft{
		Branch:   "kc",
		Contact:  models.Contact{Phone: "555", Address: "2 Elm"},
		Vehicle:  models.VehicleProfile{SizeClass: models.SizeLargeTruck, Year: "2019", Make: "FORD"},
		Service:  models.ServicePackage{Package: models.PackageBoth, Addons: models.NewAddonSet(models.AddonPaint, models.AddonCeramic)},
		Slot:     models.TimeSlot{Start: "2024-01-11T09:00:00-06:00"},
		Customer: models.Customer{FirstName: "Ana", LastName: "Ruiz"},
		Quote:    models.PriceQuote{PriceBeforeTax: decimal.NewFromInt(100), PriceAfterTax: decimal.NewFromInt(108)},
		Paid:     true,
	}

	o := OrderFromDraft("o-1", "s-1", d)
	assert.Equal(t, models.OrderStatusPaid, o.Status)
	assert.Equal(t, "2019 FORD", o.Vehicle)
	assert.Equal(t, "Ana Ruiz", o.CustomerName)
	assert.Equal(t, "2 Elm", o.Address)
	assert.Contains(t, o.Addons, "ceramic")
	assert.Contains(t, o.Addons, "paint")
	assert.True(t, o.PriceAfterTax.Equal(decimal.NewFromInt(108)))
}
