package handler

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
)

// memStore is an in-memory stand-in for the MySQL tables the handlers
// touch.  It answers the exact statements the repositories issue, so
// handler tests exercise the real repository code paths, including
// the transaction-coupled counter and read-flag writes.  Transactions
// are accepted but not isolated: writes apply immediately and
// rollback is a no-op, which is sufficient for the committed paths
// the tests drive.
type memStore struct {
	mu sync.Mutex

	users    map[uint64]string // id → role
	listings map[uint64]model.Listing
	services map[uint64]model.Service
	threads  map[uint64]*model.Thread
	messages []*model.Message

	nextThreadID  uint64
	nextMessageID uint64
	now           time.Time

	// missDedupLookupOnce makes the next client-business dedup lookup
	// come back empty, reproducing the window where a concurrent
	// create commits between the handler's lookup and its insert.
	missDedupLookupOnce bool
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uint64]string),
		listings: make(map[uint64]model.Listing),
		services: make(map[uint64]model.Service),
		threads:  make(map[uint64]*model.Thread),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// tick advances the store clock so insertion order is reflected in
// created_at values.
func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *memStore) addUser(id uint64, role string) {
	s.users[id] = role
}

func (s *memStore) addListing(l model.Listing) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now
		l.UpdatedAt = s.now
	}
	s.listings[l.ID] = l
}

func (s *memStore) addService(svc model.Service) {
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = s.now
		svc.UpdatedAt = s.now
	}
	s.services[svc.ID] = svc
}

func (s *memStore) addThread(t model.Thread) uint64 {
	s.nextThreadID++
	t.ID = s.nextThreadID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now
		t.UpdatedAt = s.now
	}
	s.threads[t.ID] = &t
	return t.ID
}

// duplicateClientBusiness reports whether a CLIENT_BUSINESS thread
// with the same (client, business, listing) triple already exists,
// mirroring the uq_threads_participants index.
func (s *memStore) duplicateClientBusiness(client, business, listing *uint64) bool {
	if client == nil || business == nil || listing == nil {
		return false
	}
	for _, t := range s.threads {
		if t.Kind == model.ThreadClientBusiness &&
			t.ClientID != nil && *t.ClientID == *client &&
			t.BusinessID != nil && *t.BusinessID == *business &&
			t.ListingID != nil && *t.ListingID == *listing {
			return true
		}
	}
	return false
}

// memConnector plugs the store into database/sql via sql.OpenDB.
type memConnector struct{ store *memStore }

func (c memConnector) Connect(context.Context) (driver.Conn, error) {
	return memConn{store: c.store}, nil
}

func (c memConnector) Driver() driver.Driver { return memDriver{} }

type memDriver struct{}

func (memDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open through sql.OpenDB")
}

type memConn struct{ store *memStore }

func (memConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepared statements not supported")
}

func (memConn) Close() error { return nil }

func (memConn) Begin() (driver.Tx, error) { return memTx{}, nil }

func (memConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return memTx{}, nil
}

type memTx struct{}

func (memTx) Commit() error   { return nil }
func (memTx) Rollback() error { return nil }

type memResult struct{ lastID, affected int64 }

func (r memResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r memResult) RowsAffected() (int64, error) { return r.affected, nil }

type memRows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (r *memRows) Columns() []string { return r.cols }
func (r *memRows) Close() error      { return nil }

func (r *memRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.i])
	r.i++
	return nil
}

func argU64(v driver.NamedValue) uint64 {
	if n, ok := v.Value.(int64); ok {
		return uint64(n)
	}
	return 0
}

func argOptU64(v driver.NamedValue) *uint64 {
	if v.Value == nil {
		return nil
	}
	id := argU64(v)
	return &id
}

func argStr(v driver.NamedValue) string {
	s, _ := v.Value.(string)
	return s
}

func optVal(p *uint64) driver.Value {
	if p == nil {
		return nil
	}
	return int64(*p)
}

var threadRowCols = []string{"id", "kind", "client_id", "business_id", "staff_id", "listing_id", "unread_a", "unread_b", "created_at", "updated_at"}

func threadValues(t *model.Thread) []driver.Value {
	return []driver.Value{
		int64(t.ID), t.Kind,
		optVal(t.ClientID), optVal(t.BusinessID), optVal(t.StaffID), optVal(t.ListingID),
		int64(t.UnreadA), int64(t.UnreadB), t.CreatedAt, t.UpdatedAt,
	}
}

var messageRowCols = []string{"id", "thread_id", "sender_id", "sender_role", "text", "is_read", "created_at"}

func messageValues(m *model.Message) []driver.Value {
	return []driver.Value{
		int64(m.ID), int64(m.ThreadID), int64(m.SenderID), m.SenderRole,
		m.Text, m.IsRead, m.CreatedAt,
	}
}

var listingRowCols = []string{"id", "owner_id", "name", "description", "province", "municipality", "approval_status", "created_at", "updated_at"}

func listingValues(l model.Listing) []driver.Value {
	return []driver.Value{
		int64(l.ID), int64(l.OwnerID), l.Name, l.Description,
		l.Province, l.Municipality, l.ApprovalStatus, l.CreatedAt, l.UpdatedAt,
	}
}

var serviceRowCols = []string{"id", "listing_id", "name", "description", "price_cents", "duration_min", "created_at", "updated_at"}

func serviceValues(svc model.Service) []driver.Value {
	return []driver.Value{
		int64(svc.ID), int64(svc.ListingID), svc.Name, svc.Description,
		int64(svc.PriceCents), int64(svc.DurationMin), svc.CreatedAt, svc.UpdatedAt,
	}
}

func (c memConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.Contains(query, "SELECT role FROM users"):
		rows := &memRows{cols: []string{"role"}}
		if role, ok := s.users[argU64(args[0])]; ok {
			rows.data = append(rows.data, []driver.Value{role})
		}
		return rows, nil

	case strings.Contains(query, "SELECT owner_id FROM listings"):
		rows := &memRows{cols: []string{"owner_id"}}
		if l, ok := s.listings[argU64(args[0])]; ok {
			rows.data = append(rows.data, []driver.Value{int64(l.OwnerID)})
		}
		return rows, nil

	case strings.Contains(query, "FROM listings WHERE id = ?"):
		rows := &memRows{cols: listingRowCols}
		if l, ok := s.listings[argU64(args[0])]; ok {
			rows.data = append(rows.data, listingValues(l))
		}
		return rows, nil

	case strings.Contains(query, "FROM services WHERE listing_id = ?"):
		listingID := argU64(args[0])
		var svcs []model.Service
		for _, svc := range s.services {
			if svc.ListingID == listingID {
				svcs = append(svcs, svc)
			}
		}
		sort.Slice(svcs, func(i, j int) bool {
			if svcs[i].Name != svcs[j].Name {
				return svcs[i].Name < svcs[j].Name
			}
			return svcs[i].ID < svcs[j].ID
		})
		rows := &memRows{cols: serviceRowCols}
		for _, svc := range svcs {
			rows.data = append(rows.data, serviceValues(svc))
		}
		return rows, nil

	case strings.Contains(query, "SELECT created_at FROM messages WHERE id = ?"):
		rows := &memRows{cols: []string{"created_at"}}
		id := argU64(args[0])
		for _, m := range s.messages {
			if m.ID == id {
				rows.data = append(rows.data, []driver.Value{m.CreatedAt})
			}
		}
		return rows, nil

	case strings.Contains(query, "FROM messages WHERE thread_id = ?"):
		threadID := argU64(args[0])
		var msgs []*model.Message
		for _, m := range s.messages {
			if m.ThreadID == threadID {
				msgs = append(msgs, m)
			}
		}
		sort.Slice(msgs, func(i, j int) bool {
			if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
				return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
			}
			return msgs[i].ID < msgs[j].ID
		})
		rows := &memRows{cols: messageRowCols}
		for _, m := range msgs {
			rows.data = append(rows.data, messageValues(m))
		}
		return rows, nil

	case strings.Contains(query, "FROM threads WHERE id = ?"):
		rows := &memRows{cols: threadRowCols}
		if t, ok := s.threads[argU64(args[0])]; ok {
			rows.data = append(rows.data, threadValues(t))
		}
		return rows, nil

	case strings.Contains(query, "AND client_id = ? AND business_id = ? AND listing_id = ?"):
		rows := &memRows{cols: threadRowCols}
		if s.missDedupLookupOnce {
			s.missDedupLookupOnce = false
			return rows, nil
		}
		kind := argStr(args[0])
		client, business, listing := argU64(args[1]), argU64(args[2]), argU64(args[3])
		var match *model.Thread
		for _, t := range s.threads {
			if t.Kind == kind &&
				t.ClientID != nil && *t.ClientID == client &&
				t.BusinessID != nil && *t.BusinessID == business &&
				t.ListingID != nil && *t.ListingID == listing {
				if match == nil || t.ID < match.ID {
					match = t
				}
			}
		}
		if match != nil {
			rows.data = append(rows.data, threadValues(match))
		}
		return rows, nil

	case strings.Contains(query, "client_id <=> ?"):
		rows := &memRows{cols: threadRowCols}
		kind := argStr(args[0])
		client, business, staff := argOptU64(args[1]), argOptU64(args[2]), argOptU64(args[3])
		var match *model.Thread
		for _, t := range s.threads {
			if t.Kind == kind && eqOpt(t.ClientID, client) && eqOpt(t.BusinessID, business) && eqOpt(t.StaffID, staff) {
				if match == nil || t.ID < match.ID {
					match = t
				}
			}
		}
		if match != nil {
			rows.data = append(rows.data, threadValues(match))
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", query)
}

func eqOpt(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (c memConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.Contains(query, "INSERT INTO threads"):
		kind := argStr(args[0])
		client, business := argOptU64(args[1]), argOptU64(args[2])
		staff, listing := argOptU64(args[3]), argOptU64(args[4])
		if kind == model.ThreadClientBusiness && s.duplicateClientBusiness(client, business, listing) {
			return nil, errors.New("Error 1062 (23000): Duplicate entry for key 'threads.uq_threads_participants'")
		}
		now := s.tick()
		id := s.addThread(model.Thread{
			Kind: kind, ClientID: client, BusinessID: business,
			StaffID: staff, ListingID: listing,
			CreatedAt: now, UpdatedAt: now,
		})
		return memResult{lastID: int64(id), affected: 1}, nil

	case strings.Contains(query, "INSERT INTO messages"):
		s.nextMessageID++
		s.messages = append(s.messages, &model.Message{
			ID:         s.nextMessageID,
			ThreadID:   argU64(args[0]),
			SenderID:   argU64(args[1]),
			SenderRole: argStr(args[2]),
			Text:       argStr(args[3]),
			CreatedAt:  s.tick(),
		})
		return memResult{lastID: int64(s.nextMessageID), affected: 1}, nil

	case strings.Contains(query, "UPDATE messages SET is_read = 1"):
		threadID, senderRole := argU64(args[0]), argStr(args[1])
		var n int64
		for _, m := range s.messages {
			if m.ThreadID == threadID && m.SenderRole == senderRole && !m.IsRead {
				m.IsRead = true
				n++
			}
		}
		return memResult{affected: n}, nil

	case strings.Contains(query, "unread_a = unread_a + 1"):
		if t, ok := s.threads[argU64(args[0])]; ok {
			t.UnreadA++
			t.UpdatedAt = s.tick()
			return memResult{affected: 1}, nil
		}
		return memResult{}, nil

	case strings.Contains(query, "unread_b = unread_b + 1"):
		if t, ok := s.threads[argU64(args[0])]; ok {
			t.UnreadB++
			t.UpdatedAt = s.tick()
			return memResult{affected: 1}, nil
		}
		return memResult{}, nil

	case strings.Contains(query, "SET unread_a = 0"):
		if t, ok := s.threads[argU64(args[0])]; ok {
			t.UnreadA = 0
			return memResult{affected: 1}, nil
		}
		return memResult{}, nil

	case strings.Contains(query, "SET unread_b = 0"):
		if t, ok := s.threads[argU64(args[0])]; ok {
			t.UnreadB = 0
			return memResult{affected: 1}, nil
		}
		return memResult{}, nil
	}
	return nil, fmt.Errorf("unexpected statement: %s", query)
}
