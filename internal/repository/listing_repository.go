package repository

import (
	"context"
	"database/sql"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
)

// ListingRepo provides persistence for business listings.  Listings
// start out PENDING and become visible to clients only once staff
// approve them; the owning business and staff may read and modify a
// listing regardless of its approval state.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning multiple repositories.
func (r *ListingRepo) DB() *sql.DB { return r.db }

const listingCols = `id, owner_id, name, description, province, municipality, approval_status, created_at, updated_at`

func scanListing(row interface{ Scan(...interface{}) error }) (model.Listing, error) {
	var l model.Listing
	err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Description, &l.Province,
		&l.Municipality, &l.ApprovalStatus, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// Create inserts a new listing for the owner with PENDING approval
// and returns the stored row.
func (r *ListingRepo) Create(ctx context.Context, ownerID uint64, name, description, province, municipality string) (model.Listing, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (owner_id, name, description, province, municipality, approval_status)
         VALUES (?, ?, ?, ?, ?, ?)`,
		ownerID, name, description, province, municipality, model.ApprovalPending)
	if err != nil {
		return model.Listing{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Listing{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns a listing regardless of approval state.  Callers
// are responsible for deciding whether the caller may see it.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id = ?`, id)
	return scanListing(row)
}

// OwnerOf returns the owner user ID of a listing.  It is the
// ownership probe used by booking and thread authorization, so it
// reports sql.ErrNoRows for unknown listings.
func (r *ListingRepo) OwnerOf(ctx context.Context, id uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id FROM listings WHERE id = ?`, id).Scan(&owner)
	return owner, err
}

// Update modifies the descriptive fields of a listing after checking
// that the caller owns it.  ErrForbidden is returned for foreign
// listings and sql.ErrNoRows for unknown ones.
func (r *ListingRepo) Update(ctx context.Context, id, ownerID uint64, name, description, province, municipality string) (model.Listing, error) {
	actualOwner, err := r.OwnerOf(ctx, id)
	if err != nil {
		return model.Listing{}, err
	}
	if actualOwner != ownerID {
		return model.Listing{}, ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE listings SET name = ?, description = ?, province = ?, municipality = ? WHERE id = ?`,
		name, description, province, municipality, id)
	if err != nil {
		return model.Listing{}, err
	}
	return r.GetByID(ctx, id)
}

// SetApproval transitions the listing's approval state.  Only staff
// call this; role enforcement happens in the handler layer.
func (r *ListingRepo) SetApproval(ctx context.Context, id uint64, status string) (model.Listing, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE listings SET approval_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return model.Listing{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Distinguish "unknown id" from "already in that state".
		if _, err := r.OwnerOf(ctx, id); err != nil {
			return model.Listing{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// ListApproved returns a page of approved listings for public and
// client browsing, newest first.
func (r *ListingRepo) ListApproved(ctx context.Context, limit, offset int) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingCols+` FROM listings
         WHERE approval_status = ?
         ORDER BY created_at DESC, id DESC
         LIMIT ? OFFSET ?`,
		model.ApprovalApproved, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

// ListByOwner returns every listing of a business user, regardless of
// approval state.
func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingCols+` FROM listings WHERE owner_id = ? ORDER BY created_at DESC, id DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

// ListPendingApproval returns listings awaiting moderation, oldest
// first so staff work through the backlog in arrival order.
func (r *ListingRepo) ListPendingApproval(ctx context.Context, limit, offset int) ([]model.Listing, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingCols+` FROM listings
         WHERE approval_status = ?
         ORDER BY created_at ASC, id ASC
         LIMIT ? OFFSET ?`,
		model.ApprovalPending, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

func collectListings(rows *sql.Rows) ([]model.Listing, error) {
	out := make([]model.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
