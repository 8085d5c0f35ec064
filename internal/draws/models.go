package draws

import (
	"time"

	"github.com/google/uuid"
)

// Draw is a single raffle round. WinnerNumber is set if and only if the
// draw Finished with a winner; at most one Active draw exists at a time.
type Draw struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name           string     `json:"name" gorm:"not null;size:255"`
	TotalNumbers   int        `json:"total_numbers" gorm:"not null;check:total_numbers > 0"`
	PricePerNumber float64    `json:"price_per_number" gorm:"not null;check:price_per_number >= 0"`
	Status         Status     `json:"status" gorm:"type:varchar(20);default:'SCHEDULED';index"`
	StatusNote     string     `json:"status_note,omitempty" gorm:"size:64"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	WinnerNumber   *int       `json:"winner_number,omitempty"`
	CancelReason   string     `json:"cancel_reason,omitempty" gorm:"size:500"`

	CreatedBy uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
