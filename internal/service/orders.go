package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/detailongo/dotg-team/internal/apperr"
	"github.com/detailongo/dotg-team/internal/domain"
	"github.com/detailongo/dotg-team/internal/events"
	"github.com/detailongo/dotg-team/internal/export"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/worker"

	"github.com/rs/zerolog"
)

// OrderFromDraft builds the journal record for a submitted draft.
func OrderFromDraft(orderID, sessionID string, d models.BookingDraft) *models.Order {
	status := models.OrderStatusSubmitted
	if d.Paid {
		status = models.OrderStatusPaid
	}

	addons := make([]string, 0, d.Service.Addons.Len())
	for _, a := range d.Service.Addons.Items() {
		addons = append(addons, string(a))
	}

	return &models.Order{
		ID:             orderID,
		SessionID:      sessionID,
		Branch:         d.Branch,
		SlotStart:      d.Slot.Start,
		CustomerName:   d.Customer.FullName(),
		Email:          d.Customer.Email,
		Phone:          d.Contact.Phone,
		Address:        d.Contact.Address,
		VehicleSize:    d.Vehicle.SizeClass,
		Vehicle:        strings.TrimSpace(strings.Join([]string{d.Vehicle.Year, d.Vehicle.Make, d.Vehicle.Model}, " ")),
		Package:        d.Service.Package,
		Addons:         strings.Join(addons, ","),
		PriceBeforeTax: d.Quote.PriceBeforeTax,
		PriceAfterTax:  d.Quote.PriceAfterTax,
		Paid:           d.Paid,
		Status:         status,
	}
}

// OrderService is the back-office view of the order journal.
type OrderService struct {
	journal  domain.OrderJournal
	syncer   domain.SyncWorker
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewOrderService(journal domain.OrderJournal, syncer domain.SyncWorker, eventBus domain.EventPublisher, logger *zerolog.Logger) *OrderService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "order_service").Logger()
	return &OrderService{journal: journal, syncer: syncer, eventBus: eventBus, logger: &l}
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.journal.GetOrder(ctx, id)
}

// ListOrders returns orders created in [from, to); zero bounds are open.
func (s *OrderService) ListOrders(ctx context.Context, from, to time.Time) ([]*models.Order, error) {
	return s.journal.ListOrders(ctx, from, to)
}

// UpdateStatus changes an order's status and mirrors it to the sheet.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	switch status {
	case models.OrderStatusSubmitted, models.OrderStatusPaid, models.OrderStatusFailed:
	default:
		return nil, apperr.Validation("status", "unknown order status %q", status)
	}

	if err := s.journal.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, err
	}
	order, err := s.journal.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.syncer != nil {
		if err := s.syncer.EnqueueOrder(ctx, worker.TaskUpdateStatus, order); err != nil {
			s.logger.Error().Err(err).Str("order_id", id).Msg("sheets enqueue error")
		}
	}
	if status == models.OrderStatusPaid {
		publishOrder(s.eventBus, s.logger, events.EventPaymentCaptured, order)
	}
	return order, nil
}

// Resync rewrites the spreadsheet from the journal.
func (s *OrderService) Resync(ctx context.Context) error {
	if s.syncer == nil {
		return nil
	}
	return s.syncer.EnqueueResync(ctx)
}

// Export writes the orders of the period as an XLSX workbook.
func (s *OrderService) Export(ctx context.Context, w io.Writer, from, to time.Time) error {
	orders, err := s.journal.ListOrders(ctx, from, to)
	if err != nil {
		return err
	}
	return export.WriteOrders(w, orders, from, to)
}

// ExportFile saves the orders of the period under dir.
func (s *OrderService) ExportFile(ctx context.Context, dir string, from, to time.Time) (string, error) {
	orders, err := s.journal.ListOrders(ctx, from, to)
	if err != nil {
		return "", err
	}
	return export.SaveOrders(dir, orders, from, to)
}

func publishOrder(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, order *models.Order) {
	if bus == nil {
		return
	}
	payload := events.OrderEventPayload{
		OrderID:       order.ID,
		SessionID:     order.SessionID,
		Branch:        order.Branch,
		SlotStart:     order.SlotStart,
		CustomerName:  order.CustomerName,
		Email:         order.Email,
		Package:       string(order.Package),
		PriceAfterTax: order.PriceAfterTax.StringFixed(2),
		Paid:          order.Paid,
	}
	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Str("order_id", order.ID).Msg("publish event error")
	}
}
