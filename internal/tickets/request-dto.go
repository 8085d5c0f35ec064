package tickets

// IssueBatchRequest creates a batch of instant tickets for a draw. The
// winning subset is chosen at issue time.
type IssueBatchRequest struct {
	DrawID      string  `json:"draw_id" binding:"required,uuid"`
	HolderRef   string  `json:"holder_ref" binding:"required,min=1,max=100"`
	Count       int     `json:"count" binding:"required,min=1,max=500"`
	WinnerCount int     `json:"winner_count" binding:"min=0"`
	PrizeAmount float64 `json:"prize_amount" binding:"min=0"`
}
