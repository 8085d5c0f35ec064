package reservation

// HoldRequest asks for a time-bounded claim on a set of numbers
type HoldRequest struct {
	DrawID     string `json:"draw_id" binding:"required,uuid"`
	Values     []int  `json:"values" binding:"required,min=1,max=100,dive,min=1"`
	HolderRef  string `json:"holder_ref" binding:"required,min=1,max=255"`
	TTLSeconds int    `json:"ttl_seconds" binding:"omitempty,min=1"`
}

// ConfirmRequest converts held numbers into a permanent sale
type ConfirmRequest struct {
	DrawID    string `json:"draw_id" binding:"required,uuid"`
	Values    []int  `json:"values" binding:"required,min=1,max=100,dive,min=1"`
	HolderRef string `json:"holder_ref" binding:"required,min=1,max=255"`
}

// ReleaseRequest cancels holds the buyer no longer wants
type ReleaseRequest struct {
	DrawID    string `json:"draw_id" binding:"required,uuid"`
	Values    []int  `json:"values" binding:"required,min=1,max=100,dive,min=1"`
	HolderRef string `json:"holder_ref" binding:"required,min=1,max=255"`
}
