package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
)

// ServiceRepo provides persistence for the services offered under a
// listing.  Services carry the price a booking's total derives from.
type ServiceRepo struct {
	db *sql.DB
}

// NewServiceRepo returns a new ServiceRepo bound to the given database.
func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceCols = `id, listing_id, name, description, price_cents, duration_min, created_at, updated_at`

func scanService(row interface{ Scan(...interface{}) error }) (model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.ListingID, &s.Name, &s.Description,
		&s.PriceCents, &s.DurationMin, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a service under a listing after verifying that the
// caller owns that listing.  ErrForbidden is returned for foreign
// listings and sql.ErrNoRows when the listing does not exist.
func (r *ServiceRepo) Create(ctx context.Context, listingID, ownerID uint64, name, description string, priceCents, durationMin uint32) (model.Service, error) {
	var actualOwner uint64
	if err := r.db.QueryRowContext(ctx,
		`SELECT owner_id FROM listings WHERE id = ?`, listingID).Scan(&actualOwner); err != nil {
		return model.Service{}, err
	}
	if actualOwner != ownerID {
		return model.Service{}, ErrForbidden
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO services (listing_id, name, description, price_cents, duration_min)
         VALUES (?, ?, ?, ?, ?)`,
		listingID, name, description, priceCents, durationMin)
	if err != nil {
		return model.Service{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Service{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns a single service.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.Service, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+serviceCols+` FROM services WHERE id = ?`, id)
	return scanService(row)
}

// ListByListing returns all services of a listing ordered by name.
func (r *ServiceRepo) ListByListing(ctx context.Context, listingID uint64) ([]model.Service, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+serviceCols+` FROM services WHERE listing_id = ? ORDER BY name, id`,
		listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Service, 0)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ForBooking returns the listing and price of a service so booking
// creation can validate the (listing, service) pair and derive the
// total.  sql.ErrNoRows means the service does not exist.
func (r *ServiceRepo) ForBooking(ctx context.Context, serviceID uint64) (listingID uint64, priceCents uint32, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT listing_id, price_cents FROM services WHERE id = ?`, serviceID).
		Scan(&listingID, &priceCents)
	return listingID, priceCents, err
}

// Delete removes a service owned by the caller.  A service that has
// bookings cannot be deleted; the foreign key raises a constraint
// error which is reported as ErrConflict.
func (r *ServiceRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	var actualOwner uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT l.owner_id FROM services s JOIN listings l ON l.id = s.listing_id WHERE s.id = ?`,
		id).Scan(&actualOwner)
	if err != nil {
		return err
	}
	if actualOwner != ownerID {
		return ErrForbidden
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id); err != nil {
		// MySQL 1451: row is referenced by a foreign key.
		if strings.Contains(err.Error(), "1451") {
			return ErrConflict
		}
		return err
	}
	return nil
}
