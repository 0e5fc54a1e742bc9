package model

import "time"

// Listing approval states.  Only approved listings are visible to
// clients and bookable; the owning business and staff may act on a
// listing regardless of its approval state.
const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

// ValidApproval reports whether s is a known approval state.
func ValidApproval(s string) bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Listing represents a bookable business profile as stored in the
// `listings` table.  A listing belongs to exactly one BUSINESS user
// and groups the services that can be booked against it.
//
// Fields:
//  ID             – primary key identifier.
//  OwnerID        – BUSINESS user owning the listing.
//  Name           – display name of the business.
//  Description    – free-form description.
//  Province       – province the business operates in.
//  Municipality   – municipality within the province.
//  ApprovalStatus – PENDING, APPROVED or REJECTED.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Listing struct {
	ID             uint64    // listings.id
	OwnerID        uint64    // listings.owner_id
	Name           string    // listings.name
	Description    string    // listings.description
	Province       string    // listings.province
	Municipality   string    // listings.municipality
	ApprovalStatus string    // listings.approval_status
	CreatedAt      time.Time // listings.created_at
	UpdatedAt      time.Time // listings.updated_at
}

// Service represents a single bookable offering under a listing, as
// stored in the `services` table.  Prices are stored in cents to
// avoid floating point rounding.
//
// Fields:
//  ID          – primary key identifier.
//  ListingID   – listing the service belongs to.
//  Name        – service name (e.g. "Haircut").
//  Description – free-form description.
//  PriceCents  – price in cents.
//  DurationMin – expected duration in minutes.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Service struct {
	ID          uint64    // services.id
	ListingID   uint64    // services.listing_id
	Name        string    // services.name
	Description string    // services.description
	PriceCents  uint32    // services.price_cents
	DurationMin uint32    // services.duration_min
	CreatedAt   time.Time // services.created_at
	UpdatedAt   time.Time // services.updated_at
}
