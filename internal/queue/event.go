// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds carried in BookingEvent.Kind.
const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
)

// BookingEvent is published when a booking is created or its status
// changes. It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary
// database.
type BookingEvent struct {
	Kind            string `json:"kind"`
	BookingID       uint64 `json:"booking_id"`
	ClientID        uint64 `json:"client_id"`
	BusinessOwnerID uint64 `json:"business_owner_id"`
	ListingID       uint64 `json:"listing_id"`
	ListingName     string `json:"listing_name"`
	ServiceName     string `json:"service_name"`
	ScheduledDate   string `json:"scheduled_date"`
	ScheduledTime   string `json:"scheduled_time"`
	TotalPriceCents uint32 `json:"total_price_cents"`
	Status          string `json:"status"`
	OccurredAt      string `json:"occurred_at"`
}
