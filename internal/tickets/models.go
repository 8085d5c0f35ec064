package tickets

import (
	"time"

	"github.com/google/uuid"
)

// InstantTicket is a scratch-to-reveal ticket. The outcome is fixed at
// issue time; scratching only reveals it. Scratch and claim are guarded
// by conditional updates so replays never change state twice.
type InstantTicket struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	DrawID      uuid.UUID  `json:"draw_id" gorm:"type:uuid;not null;index"`
	HolderRef   string     `json:"holder_ref" gorm:"type:varchar(100);not null;index"`
	IsWinner    bool       `json:"-" gorm:"not null;default:false"`
	PrizeAmount float64    `json:"-" gorm:"type:decimal(10,2);not null;default:0"`
	IsScratched bool       `json:"is_scratched" gorm:"not null;default:false"`
	ScratchedAt *time.Time `json:"scratched_at,omitempty"`
	IsClaimed   bool       `json:"is_claimed" gorm:"not null;default:false"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (InstantTicket) TableName() string {
	return "instant_tickets"
}
