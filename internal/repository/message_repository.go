package repository

import (
	"context"
	"database/sql"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
)

// MessageRepo provides persistence for thread messages.  Messages are
// append-only; the only mutation ever applied is flipping is_read
// when the other side fetches the thread, and that write always runs
// in the same transaction as the counter reset (see ThreadRepo).
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo returns a new MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

const messageCols = `id, thread_id, sender_id, sender_role, text, is_read, created_at`

func scanMessage(row interface{ Scan(...interface{}) error }) (model.Message, error) {
	var m model.Message
	err := row.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.SenderRole,
		&m.Text, &m.IsRead, &m.CreatedAt)
	return m, err
}

// InsertTx appends a message with is_read=false and populates the
// generated ID and timestamp on the provided value.
func (r *MessageRepo) InsertTx(ctx context.Context, tx *sql.Tx, m *model.Message) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (thread_id, sender_id, sender_role, text, is_read)
         VALUES (?, ?, ?, ?, 0)`,
		m.ThreadID, m.SenderID, m.SenderRole, m.Text)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.IsRead = false
	return tx.QueryRowContext(ctx,
		`SELECT created_at FROM messages WHERE id = ?`, m.ID).Scan(&m.CreatedAt)
}

// ListByThreadTx returns the full message history of a thread in
// insertion order (created_at, ties by id).
func (r *MessageRepo) ListByThreadTx(ctx context.Context, tx *sql.Tx, threadID uint64) ([]model.Message, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+messageCols+` FROM messages WHERE thread_id = ? ORDER BY created_at, id`,
		threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkReadFromTx flags every unread message sent by senderRole on the
// thread as read and returns how many rows changed.  Callers pass the
// role of the *other* side so a fetch never marks the reader's own
// messages.
func (r *MessageRepo) MarkReadFromTx(ctx context.Context, tx *sql.Tx, threadID uint64, senderRole string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE messages SET is_read = 1 WHERE thread_id = ? AND sender_role = ? AND is_read = 0`,
		threadID, senderRole)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
