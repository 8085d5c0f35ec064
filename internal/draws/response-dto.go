package draws

import (
	"time"

	"sorteo/internal/reservation"
)

// DrawResponse is the public view of a draw
type DrawResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	TotalNumbers   int        `json:"total_numbers"`
	PricePerNumber float64    `json:"price_per_number"`
	Status         Status     `json:"status"`
	StatusNote     string     `json:"status_note,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	WinnerNumber   *int       `json:"winner_number,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// DrawDetailResponse adds the live occupancy snapshot
type DrawDetailResponse struct {
	DrawResponse
	Occupancy *reservation.Occupancy `json:"occupancy,omitempty"`
}

func toDrawResponse(d *Draw) DrawResponse {
	return DrawResponse{
		ID:             d.ID.String(),
		Name:           d.Name,
		TotalNumbers:   d.TotalNumbers,
		PricePerNumber: d.PricePerNumber,
		Status:         d.Status,
		StatusNote:     d.StatusNote,
		StartedAt:      d.StartedAt,
		EndsAt:         d.EndsAt,
		WinnerNumber:   d.WinnerNumber,
		CreatedAt:      d.CreatedAt,
	}
}
