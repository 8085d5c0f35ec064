package tickets

import "time"

// ScratchResponse reveals the outcome. Repeated scratches return the
// same payload with already_scratched set.
type ScratchResponse struct {
	TicketID         string     `json:"ticket_id"`
	AlreadyScratched bool       `json:"already_scratched"`
	IsWinner         bool       `json:"is_winner"`
	PrizeAmount      float64    `json:"prize_amount"`
	ScratchedAt      *time.Time `json:"scratched_at,omitempty"`
}

type ClaimResponse struct {
	TicketID    string     `json:"ticket_id"`
	PrizeAmount float64    `json:"prize_amount"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
}

type TicketResponse struct {
	ID          string     `json:"id"`
	DrawID      string     `json:"draw_id"`
	IsScratched bool       `json:"is_scratched"`
	IsClaimed   bool       `json:"is_claimed"`
	ScratchedAt *time.Time `json:"scratched_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toTicketResponse(t *InstantTicket) TicketResponse {
	return TicketResponse{
		ID:          t.ID.String(),
		DrawID:      t.DrawID.String(),
		IsScratched: t.IsScratched,
		IsClaimed:   t.IsClaimed,
		ScratchedAt: t.ScratchedAt,
		CreatedAt:   t.CreatedAt,
	}
}
