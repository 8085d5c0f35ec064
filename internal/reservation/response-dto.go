package reservation

import "time"

// HoldResponse reports the outcome of a hold request
type HoldResponse struct {
	DrawID    string    `json:"draw_id"`
	HolderRef string    `json:"holder_ref"`
	Granted   []int     `json:"granted"`
	Denied    []int     `json:"denied"`
	ExpiresAt time.Time `json:"expires_at"`
	TTL       int       `json:"ttl_seconds"`
}

// ConfirmResponse reports the outcome of a confirm request
type ConfirmResponse struct {
	DrawID     string  `json:"draw_id"`
	HolderRef  string  `json:"holder_ref"`
	Confirmed  []int   `json:"confirmed"`
	Failed     []int   `json:"failed,omitempty"`
	TotalPrice float64 `json:"total_price"`
}

// ParticipantInfo is one sold number with its buyer, as listed for the
// admin UI and the archive snapshot
type ParticipantInfo struct {
	Value  int       `json:"value"`
	SoldTo string    `json:"sold_to"`
	Price  float64   `json:"price"`
	SoldAt time.Time `json:"sold_at"`
}
