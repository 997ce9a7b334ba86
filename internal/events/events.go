package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventOrderSubmitted       = "order_submitted"
	EventPaymentCaptured      = "payment_captured"
	EventCalendarEventUpdated = "calendar_event_updated"
)

// OrderEventPayload is the order summary handed to subscribers.
type OrderEventPayload struct {
	OrderID       string `json:"order_id"`
	SessionID     string `json:"session_id"`
	Branch        string `json:"branch"`
	SlotStart     string `json:"slot_start"`
	CustomerName  string `json:"customer_name"`
	Email         string `json:"email,omitempty"`
	Package       string `json:"package"`
	PriceAfterTax string `json:"price_after_tax"`
	Paid          bool   `json:"paid"`
}

// CalendarEventPayload describes a saved event edit.
type CalendarEventPayload struct {
	EventID   string    `json:"event_id"`
	UpdatedBy string    `json:"updated_by"`
	Rule      string    `json:"rule,omitempty"`
	Warning   string    `json:"warning,omitempty"`
	Start     time.Time `json:"start"`
	TimeZone  string    `json:"time_zone"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers synchronously. Handler errors are logged and
// do not stop the remaining handlers.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	ev, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&ev)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
