package bot

import (
	"fmt"
	"strings"

	"github.com/detailongo/dotg-team/internal/events"
)

// EventSubscriber is the part of the event bus the bot listens on.
type EventSubscriber interface {
	Subscribe(eventType string, handler events.EventHandler)
}

// SubscribeNotifications forwards new orders and captured payments to the
// configured managers.
func (b *Bot) SubscribeNotifications(bus EventSubscriber) {
	if bus == nil || len(b.config.Bot.Managers) == 0 {
		return
	}
	bus.Subscribe(events.EventOrderSubmitted, b.notifyOrder("New order"))
	bus.Subscribe(events.EventPaymentCaptured, b.notifyOrder("Payment captured"))
}

func (b *Bot) notifyOrder(title string) events.EventHandler {
	return func(ev *events.Event) error {
		var payload events.OrderEventPayload
		if err := ev.Decode(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		text := orderNotice(title, payload)
		for _, managerID := range b.config.Bot.Managers {
			b.sendMessage(managerID, text)
		}
		return nil
	}
}

func orderNotice(title string, p events.OrderEventPayload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", title, p.OrderID)
	writeField(&sb, "Customer", p.CustomerName)
	writeField(&sb, "Email", p.Email)
	writeField(&sb, "Branch", p.Branch)
	writeField(&sb, "Slot", p.SlotStart)
	writeField(&sb, "Package", p.Package)
	writeField(&sb, "Total", p.PriceAfterTax)
	if p.Paid {
		sb.WriteString("Paid online\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
