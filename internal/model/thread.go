package model

import "time"

// Thread kinds.  A thread always connects exactly two parties; the
// kind names which two roles those are.  The two per-side unread
// counters are indexed by Side: side A is the first role of the kind
// and side B the second (e.g. for CLIENT_BUSINESS, A = the client
// and B = the business).
const (
	ThreadClientBusiness = "CLIENT_BUSINESS"
	ThreadClientStaff    = "CLIENT_STAFF"
	ThreadBusinessStaff  = "BUSINESS_STAFF"
)

// ValidThreadKind reports whether k names one of the three thread
// kinds.
func ValidThreadKind(k string) bool {
	switch k {
	case ThreadClientBusiness, ThreadClientStaff, ThreadBusinessStaff:
		return true
	}
	return false
}

// Side identifies one of the two participants of a thread.  It is
// used to index the per-side unread counters.
type Side int

const (
	SideA Side = 0
	SideB Side = 1
)

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// ThreadRoles returns the two roles participating in a thread of the
// given kind, ordered side A then side B.  The second return value is
// false for unknown kinds.
func ThreadRoles(kind string) ([2]string, bool) {
	switch kind {
	case ThreadClientBusiness:
		return [2]string{RoleClient, RoleBusiness}, true
	case ThreadClientStaff:
		return [2]string{RoleClient, RoleStaff}, true
	case ThreadBusinessStaff:
		return [2]string{RoleBusiness, RoleStaff}, true
	}
	return [2]string{}, false
}

// SideForRole maps a role onto its side within a thread of the given
// kind.  It returns false when the role does not participate in that
// kind (e.g. BUSINESS on a CLIENT_STAFF thread).
func SideForRole(kind, role string) (Side, bool) {
	roles, ok := ThreadRoles(kind)
	if !ok {
		return 0, false
	}
	switch role {
	case roles[0]:
		return SideA, true
	case roles[1]:
		return SideB, true
	}
	return 0, false
}

// Thread represents a two-party conversation as stored in the
// `threads` table.  Exactly the two participant fields matching the
// kind are populated; the remaining one is null.  ListingID is set
// only for CLIENT_BUSINESS threads, which are unique per
// (client, business, listing) triple.  That uniqueness is enforced by
// the uq_threads_participants index over
// (kind, client_id, business_id, listing_id); rows of the other two
// kinds carry a NULL in one of those columns, so MySQL leaves them
// out of the constraint.
//
// Fields:
//  ID         – primary key identifier.
//  Kind       – one of the three thread kinds.
//  ClientID   – CLIENT participant (null unless the kind has one).
//  BusinessID – BUSINESS participant (null unless the kind has one).
//  StaffID    – STAFF participant (null unless the kind has one).
//  ListingID  – listing context (CLIENT_BUSINESS only).
//  UnreadA    – messages unread by side A.
//  UnreadB    – messages unread by side B.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – bumped whenever a message is appended.
type Thread struct {
	ID         uint64    // threads.id
	Kind       string    // threads.kind
	ClientID   *uint64   // threads.client_id (nullable)
	BusinessID *uint64   // threads.business_id (nullable)
	StaffID    *uint64   // threads.staff_id (nullable)
	ListingID  *uint64   // threads.listing_id (nullable)
	UnreadA    uint32    // threads.unread_a
	UnreadB    uint32    // threads.unread_b
	CreatedAt  time.Time // threads.created_at
	UpdatedAt  time.Time // threads.updated_at
}

// ParticipantForRole returns the user ID occupying the given role on
// the thread, or false when the role has no seat on this kind or the
// field is unexpectedly null.
func (t *Thread) ParticipantForRole(role string) (uint64, bool) {
	var p *uint64
	switch role {
	case RoleClient:
		p = t.ClientID
	case RoleBusiness:
		p = t.BusinessID
	case RoleStaff:
		p = t.StaffID
	}
	if p == nil {
		return 0, false
	}
	if _, ok := SideForRole(t.Kind, role); !ok {
		return 0, false
	}
	return *p, true
}

// Unread returns the unread counter for the given side.
func (t *Thread) Unread(s Side) uint32 {
	if s == SideA {
		return t.UnreadA
	}
	return t.UnreadB
}

// Message is a single message within a thread, as stored in the
// `messages` table.  Messages are owned by their thread (cascade
// delete) and are never mutated after creation except for the
// is_read flag.
//
// Fields:
//  ID         – primary key identifier.
//  ThreadID   – thread the message belongs to.
//  SenderID   – user who sent the message.
//  SenderRole – role the sender occupied on the thread.
//  Text       – message body.
//  IsRead     – whether the other side has fetched the thread since.
//  CreatedAt  – creation timestamp; ordering key within a thread.
type Message struct {
	ID         uint64    // messages.id
	ThreadID   uint64    // messages.thread_id
	SenderID   uint64    // messages.sender_id
	SenderRole string    // messages.sender_role
	Text       string    // messages.text
	IsRead     bool      // messages.is_read
	CreatedAt  time.Time // messages.created_at
}
