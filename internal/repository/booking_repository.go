package repository

import (
	"context"
	"database/sql"
	"time"
)

// BookingRepo provides persistence for bookings.  A booking is a
// single atomic insert; it is never deleted, only transitioned to
// CANCELLED.  Reads join through listings so callers get the service
// and business context in one round trip, and so ownership can be
// established without a second query.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for handlers that need to open a
// transaction spanning multiple repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// BookingRecord mirrors the schema of the bookings table.  It is used
// by the repository when constructing rows; the generated ID and
// timestamps are populated on insert.
type BookingRecord struct {
	ID              uint64
	ClientID        uint64
	ListingID       uint64
	ServiceID       uint64
	ScheduledDate   string
	ScheduledTime   string
	Notes           *string
	TotalPriceCents uint32
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookingDetail is a booking joined with its listing and service for
// display.  BusinessOwnerID is the owner of the referenced listing,
// i.e. the booking's effective business party.
type BookingDetail struct {
	ID              uint64  `json:"id"`
	ClientID        uint64  `json:"client_id"`
	ListingID       uint64  `json:"listing_id"`
	ListingName     string  `json:"listing_name"`
	ServiceID       uint64  `json:"service_id"`
	ServiceName     string  `json:"service_name"`
	BusinessOwnerID uint64  `json:"business_owner_id"`
	ScheduledDate   string  `json:"scheduled_date"`
	ScheduledTime   string  `json:"scheduled_time"`
	Notes           *string `json:"notes,omitempty"`
	TotalPriceCents uint32  `json:"total_price_cents"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

const bookingDetailQuery = `SELECT b.id, b.client_id, b.listing_id, l.name, b.service_id, s.name,
       l.owner_id, b.scheduled_date, b.scheduled_time, b.notes,
       b.total_price_cents, b.status, b.created_at
FROM bookings b
JOIN listings l ON l.id = b.listing_id
JOIN services s ON s.id = b.service_id`

func scanBookingDetail(row interface{ Scan(...interface{}) error }) (BookingDetail, error) {
	var d BookingDetail
	var notes sql.NullString
	var createdAt time.Time
	err := row.Scan(&d.ID, &d.ClientID, &d.ListingID, &d.ListingName,
		&d.ServiceID, &d.ServiceName, &d.BusinessOwnerID,
		&d.ScheduledDate, &d.ScheduledTime, &notes,
		&d.TotalPriceCents, &d.Status, &createdAt)
	if err != nil {
		return BookingDetail{}, err
	}
	if notes.Valid {
		n := notes.String
		d.Notes = &n
	}
	d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	return d, nil
}

// Create inserts a new booking and populates the generated ID on the
// provided record.  Status must already be set by the caller (always
// PENDING for fresh bookings).
func (r *BookingRepo) Create(ctx context.Context, rec *BookingRecord) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (client_id, listing_id, service_id, scheduled_date, scheduled_time, notes, total_price_cents, status)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ClientID, rec.ListingID, rec.ServiceID, rec.ScheduledDate,
		rec.ScheduledTime, rec.Notes, rec.TotalPriceCents, rec.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM bookings WHERE id = ?`, rec.ID).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

// GetDetail returns a single booking with listing/service context.
// sql.ErrNoRows means the booking does not exist; authorization is
// the caller's job via the returned ClientID/BusinessOwnerID pair.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (BookingDetail, error) {
	row := r.db.QueryRowContext(ctx, bookingDetailQuery+` WHERE b.id = ?`, id)
	return scanBookingDetail(row)
}

// Ownership returns the client and business owner of a booking so
// handlers can authorize a mutation without loading the full row.
func (r *BookingRepo) Ownership(ctx context.Context, id uint64) (clientID, businessOwnerID uint64, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT b.client_id, l.owner_id
         FROM bookings b JOIN listings l ON l.id = b.listing_id
         WHERE b.id = ?`, id).Scan(&clientID, &businessOwnerID)
	return clientID, businessOwnerID, err
}

// UpdateStatus sets a booking's status unconditionally.  There is no
// transition table: concurrent writers resolve as last write wins.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, status string) (BookingDetail, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, status, id); err != nil {
		return BookingDetail{}, err
	}
	return r.GetDetail(ctx, id)
}

// bookings are paged newest scheduled first; ties broken by time and
// id so pages are stable.
const bookingOrder = ` ORDER BY b.scheduled_date DESC, b.scheduled_time DESC, b.id DESC LIMIT ? OFFSET ?`

// ListForClient returns a page of the client's own bookings.
func (r *BookingRepo) ListForClient(ctx context.Context, clientID uint64, limit, offset int) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		bookingDetailQuery+` WHERE b.client_id = ?`+bookingOrder,
		clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// ListForOwner returns a page of bookings placed against listings the
// business user owns.
func (r *BookingRepo) ListForOwner(ctx context.Context, ownerID uint64, limit, offset int) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		bookingDetailQuery+` WHERE l.owner_id = ?`+bookingOrder,
		ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// ListAll returns a page of every booking (staff view).
func (r *BookingRepo) ListAll(ctx context.Context, limit, offset int) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, bookingDetailQuery+bookingOrder, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]BookingDetail, error) {
	out := make([]BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
