package draws

import "time"

// CreateDrawRequest creates a draw either Scheduled or directly Active
type CreateDrawRequest struct {
	Name           string     `json:"name" binding:"required,min=3,max=255"`
	TotalNumbers   int        `json:"total_numbers" binding:"required,min=1"`
	PricePerNumber float64    `json:"price_per_number" binding:"required,min=0"`
	ActivateNow    bool       `json:"activate_now"`
	EndsAt         *time.Time `json:"ends_at" binding:"omitempty,future"`
}

// SetWinnerRequest picks the winning number of an active draw
type SetWinnerRequest struct {
	WinnerNumber int `json:"winner_number" binding:"required,min=1"`
}

// CancelDrawRequest cancels a scheduled or active draw
type CancelDrawRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}
