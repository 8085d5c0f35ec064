package database

import (
	"sorteo/internal/draws"
	"sorteo/internal/history"
	"sorteo/internal/reservation"
	"sorteo/internal/tickets"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&draws.Draw{},
		&reservation.SoldNumber{},
		&tickets.InstantTicket{},
		&history.ArchiveEntry{},
	)
}
