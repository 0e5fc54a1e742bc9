package model

import "time"

// Booking statuses.  A freshly created booking is always PENDING.
// Transitions are caller-initiated; there is no time-driven expiry
// and no formal transition table, so an authorized caller may move a
// booking from any current status to any status their role permits.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCompleted = "COMPLETED"
	BookingCancelled = "CANCELLED"
)

// ValidBookingStatus reports whether s is one of the four booking
// statuses.
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Booking records a client's booking of a single service, as stored
// in the `bookings` table.  The booking's effective business owner is
// the owner of the referenced listing; the service must belong to
// that same listing.  Bookings are never deleted, only transitioned
// to CANCELLED.
//
// Fields:
//  ID              – primary key identifier.
//  ClientID        – CLIENT user who booked.
//  ListingID       – listing being booked against.
//  ServiceID       – service of that listing being booked.
//  ScheduledDate   – requested date (YYYY-MM-DD).
//  ScheduledTime   – requested time of day (HH:MM).
//  Notes           – optional free-form note from the client.
//  TotalPriceCents – total price in cents, derived from the service
//                    unless the price-override flag is enabled.
//  Status          – one of the four booking statuses.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Booking struct {
	ID              uint64    // bookings.id
	ClientID        uint64    // bookings.client_id
	ListingID       uint64    // bookings.listing_id
	ServiceID       uint64    // bookings.service_id
	ScheduledDate   string    // bookings.scheduled_date
	ScheduledTime   string    // bookings.scheduled_time
	Notes           *string   // bookings.notes (nullable)
	TotalPriceCents uint32    // bookings.total_price_cents
	Status          string    // bookings.status
	CreatedAt       time.Time // bookings.created_at
	UpdatedAt       time.Time // bookings.updated_at
}
