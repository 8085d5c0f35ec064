package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried on the wire
const (
	EventDrawActivated = "draw.activated"
	EventDrawSoldOut   = "draw.sold_out"
	EventDrawFinished  = "draw.finished"
	EventDrawCancelled = "draw.cancelled"
	EventTicketClaimed = "ticket.claimed"
)

// DrawEvent is the message published on every draw lifecycle transition.
// Downstream consumers (mailers, dashboards) receive it as JSON.
type DrawEvent struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	DrawID       uuid.UUID `json:"draw_id"`
	DrawName     string    `json:"draw_name"`
	Status       string    `json:"status"`
	StatusNote   string    `json:"status_note,omitempty"`
	WinnerNumber *int      `json:"winner_number,omitempty"`
	CancelReason string    `json:"cancel_reason,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ToJSON serializes the event for the wire
func (e *DrawEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GetPartitionKey routes all events of one draw to the same partition so
// consumers see its transitions in order.
func (e *DrawEvent) GetPartitionKey() string {
	return e.DrawID.String()
}

// TicketEvent is the message published when an instant prize is paid out.
type TicketEvent struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	TicketID    uuid.UUID `json:"ticket_id"`
	DrawID      uuid.UUID `json:"draw_id"`
	HolderRef   string    `json:"holder_ref"`
	PrizeAmount float64   `json:"prize_amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (e *TicketEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Ticket events partition by draw too, keeping payouts alongside the
// lifecycle events of the draw they belong to.
func (e *TicketEvent) GetPartitionKey() string {
	return e.DrawID.String()
}
