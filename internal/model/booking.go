package model

import "time"

// BookingStatus is the lifecycle state of a booking. A booking that
// is neither cancelled nor refunded counts as active and blocks date
// changes on its event.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingRefunded  BookingStatus = "REFUNDED"
)

// Active reports whether the booking still occupies capacity.
func (s BookingStatus) Active() bool {
	return s != BookingCancelled && s != BookingRefunded
}

// Booking mirrors the `bookings` table.
type Booking struct {
	ID          uint64
	EventID     uint64
	UserID      uint64
	Qty         uint32
	AmountCents uint32
	Status      BookingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
