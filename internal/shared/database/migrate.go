package database

import (
	"voyago/internal/availability"
	"voyago/internal/bookings"
	"voyago/internal/checkout"
	"voyago/internal/trips"
	"voyago/internal/waitlist"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&trips.TripOccurrence{},
		&availability.AvailabilityRecord{},
		&availability.Hold{},
		&checkout.CheckoutSession{},
		&checkout.LineItem{},
		&bookings.Booking{},
		&waitlist.WaitlistEntry{},
	)
}
