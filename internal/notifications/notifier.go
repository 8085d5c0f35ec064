package notifications

import (
	"context"
	"log"

	"sorteo/internal/draws"
	"sorteo/internal/shared/clock"
	"sorteo/internal/tickets"

	"github.com/google/uuid"
)

// DrawNotifier adapts the event producer to the draw state machine's
// notifier hook. Publishing is fire-and-forget: a broker outage must not
// fail a lifecycle transition, so errors are logged and dropped.
type DrawNotifier struct {
	producer EventProducer
	clock    clock.Clock
}

func NewDrawNotifier(producer EventProducer, clk clock.Clock) *DrawNotifier {
	return &DrawNotifier{producer: producer, clock: clk}
}

func (n *DrawNotifier) NotifyDrawEvent(ctx context.Context, eventType string, draw *draws.Draw) {
	event := &DrawEvent{
		ID:           uuid.New(),
		Type:         eventType,
		DrawID:       draw.ID,
		DrawName:     draw.Name,
		Status:       string(draw.Status),
		StatusNote:   draw.StatusNote,
		WinnerNumber: draw.WinnerNumber,
		CancelReason: draw.CancelReason,
		OccurredAt:   n.clock.Now(),
	}

	if err := n.producer.PublishDrawEvent(ctx, event); err != nil {
		log.Printf("Failed to publish draw event %s for draw %s: %v", eventType, draw.ID, err)
	}
}

// TicketNotifier adapts the event producer to the ticket service's payout
// hook. Same fire-and-forget contract as DrawNotifier.
type TicketNotifier struct {
	producer EventProducer
	clock    clock.Clock
}

func NewTicketNotifier(producer EventProducer, clk clock.Clock) *TicketNotifier {
	return &TicketNotifier{producer: producer, clock: clk}
}

func (n *TicketNotifier) NotifyTicketClaimed(ctx context.Context, ticket *tickets.InstantTicket) {
	event := &TicketEvent{
		ID:          uuid.New(),
		Type:        EventTicketClaimed,
		TicketID:    ticket.ID,
		DrawID:      ticket.DrawID,
		HolderRef:   ticket.HolderRef,
		PrizeAmount: ticket.PrizeAmount,
		OccurredAt:  n.clock.Now(),
	}

	if err := n.producer.PublishTicketEvent(ctx, event); err != nil {
		log.Printf("Failed to publish ticket event for ticket %s: %v", ticket.ID, err)
	}
}
