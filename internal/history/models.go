package history

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a sold number snapshotted into the archive.
type Participant struct {
	Value  int     `json:"value"`
	SoldTo string  `json:"sold_to"`
	Price  float64 `json:"price"`
}

// ArchiveEntry is the append-only record of a terminal draw. It is
// written once when a draw finishes or is cancelled and never updated;
// the live draw row and its number ledger are torn down afterwards.
type ArchiveEntry struct {
	ID             uuid.UUID     `json:"id" gorm:"type:uuid;primary_key"`
	DrawID         uuid.UUID     `json:"draw_id" gorm:"type:uuid;not null;uniqueIndex"`
	Name           string        `json:"name" gorm:"type:varchar(255);not null"`
	FinalStatus    string        `json:"final_status" gorm:"type:varchar(20);not null;index"`
	StatusNote     string        `json:"status_note,omitempty" gorm:"type:varchar(50)"`
	Reason         string        `json:"reason,omitempty" gorm:"type:varchar(255)"`
	TotalNumbers   int           `json:"total_numbers" gorm:"not null"`
	SoldCount      int           `json:"sold_count" gorm:"not null"`
	PricePerNumber float64       `json:"price_per_number" gorm:"type:decimal(10,2);not null"`
	WinnerNumber   *int          `json:"winner_number,omitempty"`
	Participants   []Participant `json:"participants" gorm:"serializer:json"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        time.Time     `json:"ended_at" gorm:"index"`
	ActualDuration time.Duration `json:"actual_duration"`
	CreatedAt      time.Time     `json:"created_at"`
}

func (ArchiveEntry) TableName() string {
	return "draw_archive"
}
