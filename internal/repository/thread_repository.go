package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
)

// ThreadRepo provides persistence for message threads and their two
// per-side unread counters.  The counter writes that must stay in
// step with message read-flags are exposed as *Tx methods; handlers
// run them inside one transaction with the matching message updates
// so a reader can never observe a message marked read while the
// counter still counts it, or the reverse.
type ThreadRepo struct {
	db *sql.DB
}

// NewThreadRepo returns a new ThreadRepo bound to the given database.
func NewThreadRepo(db *sql.DB) *ThreadRepo { return &ThreadRepo{db: db} }

// DB exposes the underlying handle so handlers can begin transactions
// that span thread and message writes.
func (r *ThreadRepo) DB() *sql.DB { return r.db }

const threadCols = `id, kind, client_id, business_id, staff_id, listing_id, unread_a, unread_b, created_at, updated_at`

func scanThread(row interface{ Scan(...interface{}) error }) (model.Thread, error) {
	var t model.Thread
	var clientID, businessID, staffID, listingID sql.NullInt64
	err := row.Scan(&t.ID, &t.Kind, &clientID, &businessID, &staffID, &listingID,
		&t.UnreadA, &t.UnreadB, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Thread{}, err
	}
	t.ClientID = nullableID(clientID)
	t.BusinessID = nullableID(businessID)
	t.StaffID = nullableID(staffID)
	t.ListingID = nullableID(listingID)
	return t, nil
}

func nullableID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}

// Create inserts a new thread with both unread counters at zero and
// returns the stored row.  The handler deduplicates via
// FindClientBusiness / FindByParticipants before calling Create; the
// uq_threads_participants index backstops the client-business case
// against concurrent creates, surfacing the loser as ErrConflict so
// the caller can re-run the lookup.
func (r *ThreadRepo) Create(ctx context.Context, t *model.Thread) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO threads (kind, client_id, business_id, staff_id, listing_id, unread_a, unread_b)
         VALUES (?, ?, ?, ?, ?, 0, 0)`,
		t.Kind, t.ClientID, t.BusinessID, t.StaffID, t.ListingID)
	if err != nil {
		// MySQL 1062: duplicate key on the participants index.
		if strings.Contains(err.Error(), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = stored
	return nil
}

// GetByID returns a thread by id, sql.ErrNoRows when unknown.
func (r *ThreadRepo) GetByID(ctx context.Context, id uint64) (model.Thread, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+threadCols+` FROM threads WHERE id = ?`, id)
	return scanThread(row)
}

// GetByIDTx loads a thread inside a transaction and locks the row, so
// the read/mark-read/reset sequence of a fetch serializes against a
// concurrent send on the same thread.
func (r *ThreadRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Thread, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+threadCols+` FROM threads WHERE id = ? FOR UPDATE`, id)
	return scanThread(row)
}

// FindClientBusiness looks up the unique thread for a
// (client, business, listing) triple.  sql.ErrNoRows means no thread
// exists yet and the caller may create one.
func (r *ThreadRepo) FindClientBusiness(ctx context.Context, clientID, businessID, listingID uint64) (model.Thread, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+threadCols+` FROM threads
         WHERE kind = ? AND client_id = ? AND business_id = ? AND listing_id = ?
         ORDER BY id LIMIT 1`,
		model.ThreadClientBusiness, clientID, businessID, listingID)
	return scanThread(row)
}

// FindByParticipants looks up an existing thread of the given kind
// between the two participants.  It backs the optional dedup of
// client-staff and business-staff threads (THREAD_DEDUP_ALL_KINDS).
func (r *ThreadRepo) FindByParticipants(ctx context.Context, kind string, clientID, businessID, staffID *uint64) (model.Thread, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+threadCols+` FROM threads
         WHERE kind = ? AND client_id <=> ? AND business_id <=> ? AND staff_id <=> ?
         ORDER BY id LIMIT 1`,
		kind, clientID, businessID, staffID)
	return scanThread(row)
}

// ThreadPreview is a thread annotated with its most recent message
// for list views.  Unread counters for both sides are included; the
// handler picks the caller's side.
type ThreadPreview struct {
	Thread          model.Thread `json:"thread"`
	LastMessageText *string      `json:"last_message_text,omitempty"`
	LastMessageAt   *string      `json:"last_message_at,omitempty"`
}

const threadPreviewQuery = `SELECT t.id, t.kind, t.client_id, t.business_id, t.staff_id, t.listing_id,
       t.unread_a, t.unread_b, t.created_at, t.updated_at,
       m.text, m.created_at
FROM threads t
LEFT JOIN messages m ON m.id = (SELECT MAX(m2.id) FROM messages m2 WHERE m2.thread_id = t.id)`

func scanThreadPreview(rows *sql.Rows) (ThreadPreview, error) {
	var p ThreadPreview
	var clientID, businessID, staffID, listingID sql.NullInt64
	var lastText sql.NullString
	var lastAt sql.NullTime
	err := rows.Scan(&p.Thread.ID, &p.Thread.Kind, &clientID, &businessID, &staffID, &listingID,
		&p.Thread.UnreadA, &p.Thread.UnreadB, &p.Thread.CreatedAt, &p.Thread.UpdatedAt,
		&lastText, &lastAt)
	if err != nil {
		return ThreadPreview{}, err
	}
	p.Thread.ClientID = nullableID(clientID)
	p.Thread.BusinessID = nullableID(businessID)
	p.Thread.StaffID = nullableID(staffID)
	p.Thread.ListingID = nullableID(listingID)
	if lastText.Valid {
		s := lastText.String
		p.LastMessageText = &s
	}
	if lastAt.Valid {
		iso := lastAt.Time.UTC().Format(time.RFC3339)
		p.LastMessageAt = &iso
	}
	return p, nil
}

// ListForParticipant returns the threads where the given column
// (client_id, business_id or staff_id, selected by role) equals the
// user, most recently active first.
func (r *ThreadRepo) ListForParticipant(ctx context.Context, role string, userID uint64) ([]ThreadPreview, error) {
	var column string
	switch role {
	case model.RoleClient:
		column = "t.client_id"
	case model.RoleBusiness:
		column = "t.business_id"
	case model.RoleStaff:
		column = "t.staff_id"
	default:
		return []ThreadPreview{}, nil
	}
	rows, err := r.db.QueryContext(ctx,
		threadPreviewQuery+` WHERE `+column+` = ? ORDER BY t.updated_at DESC, t.id DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPreviews(rows)
}

// ListAll returns every thread, most recently active first.  Staff
// moderation view only.
func (r *ThreadRepo) ListAll(ctx context.Context, limit, offset int) ([]ThreadPreview, error) {
	rows, err := r.db.QueryContext(ctx,
		threadPreviewQuery+` ORDER BY t.updated_at DESC, t.id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPreviews(rows)
}

func collectPreviews(rows *sql.Rows) ([]ThreadPreview, error) {
	out := make([]ThreadPreview, 0)
	for rows.Next() {
		p, err := scanThreadPreview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func unreadColumn(side model.Side) string {
	if side == model.SideA {
		return "unread_a"
	}
	return "unread_b"
}

// IncrementUnreadTx adds one to the given side's unread counter and
// bumps updated_at.  Must run in the same transaction as the message
// insert it accounts for.
func (r *ThreadRepo) IncrementUnreadTx(ctx context.Context, tx *sql.Tx, threadID uint64, side model.Side) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE threads SET `+unreadColumn(side)+` = `+unreadColumn(side)+` + 1, updated_at = NOW() WHERE id = ?`,
		threadID)
	return err
}

// ResetUnreadTx zeroes the given side's unread counter.  Must run in
// the same transaction as the mark-read of the matching messages.
func (r *ThreadRepo) ResetUnreadTx(ctx context.Context, tx *sql.Tx, threadID uint64, side model.Side) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE threads SET `+unreadColumn(side)+` = 0 WHERE id = ?`,
		threadID)
	return err
}
