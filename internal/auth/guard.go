// Package auth centralizes the platform's authorization decisions.
// Authorization is never role-only: every check combines the caller's
// role with their ownership relation to the target record (a client
// owns their bookings, a business owns bookings against its listings,
// a thread participant owns their seat on the thread, staff see all).
// Handlers resolve an Identity from the request context and consult
// these functions instead of branching on the role inline, so the
// same rules are enforced on every operation.
package auth

import (
	"errors"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
	"github.com/labstack/echo/v4"
)

// Identity is the resolved caller: the JWT subject and role claim as
// injected into the echo context by the JWT middleware.
type Identity struct {
	UserID uint64
	Role   string
}

// ErrNoIdentity is returned by FromContext when the request carries
// no resolved user (missing or malformed middleware output).
var ErrNoIdentity = errors.New("no authenticated identity in context")

// FromContext extracts the authenticated identity stored by the JWT
// middleware under the "user_id" and "role" context keys.
func FromContext(c echo.Context) (Identity, error) {
	id, ok := contextUserID(c.Get("user_id"))
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	role, ok := c.Get("role").(string)
	if !ok || !model.ValidRole(role) {
		return Identity{}, ErrNoIdentity
	}
	return Identity{UserID: id, Role: role}, nil
}

// contextUserID normalizes the user_id context value.  JWT numeric
// claims decode as float64; tests and other middleware may store
// native integer types.
func contextUserID(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case uint64:
		return t, true
	case int64:
		return uint64(t), true
	case int:
		return uint64(t), true
	case float64:
		return uint64(t), true
	}
	return 0, false
}

// CanSeeAllRecords reports whether the role may read every booking,
// listing and thread regardless of ownership.  Only staff may.
func CanSeeAllRecords(role string) bool {
	return role == model.RoleStaff
}

// CanViewBooking reports whether the caller may read a booking owned
// by clientID against a listing owned by businessOwnerID.
func CanViewBooking(id Identity, clientID, businessOwnerID uint64) bool {
	if CanSeeAllRecords(id.Role) {
		return true
	}
	switch id.Role {
	case model.RoleClient:
		return id.UserID == clientID
	case model.RoleBusiness:
		return id.UserID == businessOwnerID
	}
	return false
}

// CanActOnBooking reports whether the caller may mutate the booking's
// status.  The relation is the same as for viewing; what differs per
// role is the set of target statuses, see AllowedBookingTargets.
func CanActOnBooking(id Identity, clientID, businessOwnerID uint64) bool {
	return CanViewBooking(id, clientID, businessOwnerID)
}

// AllowedBookingTargets returns the statuses the role may set a
// booking to.  Clients may only cancel their own booking; businesses
// confirm, complete or cancel bookings on their listings; staff may
// set any status.  Transitions from any current status are allowed
// for all of them.
func AllowedBookingTargets(role string) map[string]bool {
	switch role {
	case model.RoleClient:
		return map[string]bool{model.BookingCancelled: true}
	case model.RoleBusiness:
		return map[string]bool{
			model.BookingConfirmed: true,
			model.BookingCompleted: true,
			model.BookingCancelled: true,
		}
	case model.RoleStaff:
		return map[string]bool{
			model.BookingPending:   true,
			model.BookingConfirmed: true,
			model.BookingCompleted: true,
			model.BookingCancelled: true,
		}
	}
	return map[string]bool{}
}

// SideOf returns the caller's side on the thread, matching both the
// caller's role and their user ID against the populated participant
// field.  ok is false when the caller holds no seat on the thread,
// which for staff still permits read access (see CanViewThread) but
// means a fetch has no counter to reset.
func SideOf(id Identity, t *model.Thread) (model.Side, bool) {
	participant, ok := t.ParticipantForRole(id.Role)
	if !ok || participant != id.UserID {
		return 0, false
	}
	return model.SideForRole(t.Kind, id.Role)
}

// CanViewThread reports whether the caller may fetch the thread and
// its messages.  Participants of either side may; staff bypass the
// participant check entirely.
func CanViewThread(id Identity, t *model.Thread) bool {
	if CanSeeAllRecords(id.Role) {
		return true
	}
	_, ok := SideOf(id, t)
	return ok
}

// CanPostToThread reports whether the caller may append a message.
// Participants may always post.  A staff user who is not the thread's
// recorded staff participant may still post on threads whose kind has
// a staff side (dispute mediation is a shared duty), but not on
// client-business threads they merely observe.
func CanPostToThread(id Identity, t *model.Thread) bool {
	if _, ok := SideOf(id, t); ok {
		return true
	}
	if id.Role != model.RoleStaff {
		return false
	}
	_, hasStaffSide := model.SideForRole(t.Kind, model.RoleStaff)
	return hasStaffSide
}
