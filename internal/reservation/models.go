package reservation

import (
	"time"

	"github.com/google/uuid"
)

// NumberState is the state of a single raffle number
type NumberState string

const (
	StateFree NumberState = "FREE"
	StateHeld NumberState = "HELD"
	StateSold NumberState = "SOLD"
)

// NumberRecord is the ledger entry for one number in one draw. Exactly one
// state applies at a time; HolderRef/HeldUntil are meaningful only while
// Held, SoldTo/SoldAt only once Sold.
type NumberRecord struct {
	Value     int         `json:"value"`
	State     NumberState `json:"state"`
	HolderRef string      `json:"holder_ref,omitempty"`
	HeldUntil time.Time   `json:"held_until,omitempty"`
	SoldTo    string      `json:"sold_to,omitempty"`
	SoldAt    time.Time   `json:"sold_at,omitempty"`
}

// expired reports whether a held record's hold lapsed at instant now.
// An expired hold is treated as Free by every reader.
func (r NumberRecord) expired(now time.Time) bool {
	return r.State == StateHeld && !r.HeldUntil.After(now)
}

// HoldResult reports which requested values were granted and which were
// denied. Denied values are a normal outcome, not an error.
type HoldResult struct {
	Granted   []int     `json:"granted"`
	Denied    []int     `json:"denied"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConfirmResult reports the outcome of a batch confirmation. The batch is
// all-or-nothing: either every value moved to Sold or none did.
type ConfirmResult struct {
	Confirmed []int `json:"confirmed"`
	Failed    []int `json:"failed"`
}

// Occupancy is a snapshot of a draw's number states. Held excludes holds
// that already lapsed.
type Occupancy struct {
	Free  int `json:"free"`
	Held  int `json:"held"`
	Sold  int `json:"sold"`
	Total int `json:"total"`
}

// SoldOut reports whether every number is sold.
func (o Occupancy) SoldOut() bool {
	return o.Sold == o.Total && o.Total > 0
}

// SoldNumber is the persisted record of a confirmed purchase. Rows are the
// participant list of a draw and feed the archive snapshot.
type SoldNumber struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	DrawID uuid.UUID `json:"draw_id" gorm:"type:uuid;not null;index"`
	Value  int       `json:"value" gorm:"not null"`
	SoldTo string    `json:"sold_to" gorm:"not null;size:255"`
	Price  float64   `json:"price" gorm:"not null;check:price >= 0"`
	SoldAt time.Time `json:"sold_at" gorm:"not null"`
}
