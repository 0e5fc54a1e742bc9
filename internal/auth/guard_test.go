package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		name   string
		userID interface{}
		role   interface{}
		want   Identity
		ok     bool
	}{
		{name: "uint64 id", userID: uint64(42), role: model.RoleClient, want: Identity{UserID: 42, Role: model.RoleClient}, ok: true},
		{name: "float64 id from jwt claims", userID: float64(42), role: model.RoleStaff, want: Identity{UserID: 42, Role: model.RoleStaff}, ok: true},
		{name: "int id", userID: 7, role: model.RoleBusiness, want: Identity{UserID: 7, Role: model.RoleBusiness}, ok: true},
		{name: "missing id", userID: nil, role: model.RoleClient, ok: false},
		{name: "missing role", userID: uint64(1), role: nil, ok: false},
		{name: "unknown role", userID: uint64(1), role: "ADMIN", ok: false},
		{name: "non-numeric id", userID: "42", role: model.RoleClient, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			c := e.NewContext(req, httptest.NewRecorder())
			if tt.userID != nil {
				c.Set("user_id", tt.userID)
			}
			if tt.role != nil {
				c.Set("role", tt.role)
			}
			got, err := FromContext(c)
			if tt.ok && err != nil {
				t.Fatalf("FromContext() error = %v, want nil", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("FromContext() error = nil, want ErrNoIdentity")
				}
				return
			}
			if got != tt.want {
				t.Errorf("FromContext() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCanViewBooking(t *testing.T) {
	const (
		clientID        = uint64(10)
		businessOwnerID = uint64(20)
	)
	tests := []struct {
		name     string
		id       Identity
		expected bool
	}{
		{name: "client owns the booking", id: Identity{UserID: clientID, Role: model.RoleClient}, expected: true},
		{name: "other client", id: Identity{UserID: 11, Role: model.RoleClient}, expected: false},
		{name: "business owns the listing", id: Identity{UserID: businessOwnerID, Role: model.RoleBusiness}, expected: true},
		{name: "other business", id: Identity{UserID: 21, Role: model.RoleBusiness}, expected: false},
		{name: "staff sees any booking", id: Identity{UserID: 99, Role: model.RoleStaff}, expected: true},
		{name: "client id held by business role", id: Identity{UserID: clientID, Role: model.RoleBusiness}, expected: false},
		{name: "unknown role", id: Identity{UserID: clientID, Role: "ADMIN"}, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanViewBooking(tt.id, clientID, businessOwnerID); got != tt.expected {
				t.Errorf("CanViewBooking(%+v) = %v, want %v", tt.id, got, tt.expected)
			}
			if got := CanActOnBooking(tt.id, clientID, businessOwnerID); got != tt.expected {
				t.Errorf("CanActOnBooking(%+v) = %v, want %v", tt.id, got, tt.expected)
			}
		})
	}
}

func TestAllowedBookingTargets(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		allowed []string
		denied  []string
	}{
		{
			name:    "client may only cancel",
			role:    model.RoleClient,
			allowed: []string{model.BookingCancelled},
			denied:  []string{model.BookingPending, model.BookingConfirmed, model.BookingCompleted},
		},
		{
			name:    "business may confirm complete cancel",
			role:    model.RoleBusiness,
			allowed: []string{model.BookingConfirmed, model.BookingCompleted, model.BookingCancelled},
			denied:  []string{model.BookingPending},
		},
		{
			name:    "staff may set anything",
			role:    model.RoleStaff,
			allowed: []string{model.BookingPending, model.BookingConfirmed, model.BookingCompleted, model.BookingCancelled},
		},
		{
			name:   "unknown role may set nothing",
			role:   "ADMIN",
			denied: []string{model.BookingPending, model.BookingConfirmed, model.BookingCompleted, model.BookingCancelled},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets := AllowedBookingTargets(tt.role)
			for _, s := range tt.allowed {
				if !targets[s] {
					t.Errorf("AllowedBookingTargets(%q)[%q] = false, want true", tt.role, s)
				}
			}
			for _, s := range tt.denied {
				if targets[s] {
					t.Errorf("AllowedBookingTargets(%q)[%q] = true, want false", tt.role, s)
				}
			}
		})
	}
}

func clientBusinessThread(client, business uint64) *model.Thread {
	return &model.Thread{
		Kind:       model.ThreadClientBusiness,
		ClientID:   &client,
		BusinessID: &business,
	}
}

func clientStaffThread(client, staff uint64) *model.Thread {
	return &model.Thread{
		Kind:     model.ThreadClientStaff,
		ClientID: &client,
		StaffID:  &staff,
	}
}

func TestSideOf(t *testing.T) {
	cb := clientBusinessThread(10, 20)
	cs := clientStaffThread(10, 30)

	tests := []struct {
		name   string
		id     Identity
		thread *model.Thread
		side   model.Side
		ok     bool
	}{
		{name: "client seat on client-business", id: Identity{UserID: 10, Role: model.RoleClient}, thread: cb, side: model.SideA, ok: true},
		{name: "business seat on client-business", id: Identity{UserID: 20, Role: model.RoleBusiness}, thread: cb, side: model.SideB, ok: true},
		{name: "other client no seat", id: Identity{UserID: 11, Role: model.RoleClient}, thread: cb, ok: false},
		{name: "right id wrong role", id: Identity{UserID: 10, Role: model.RoleBusiness}, thread: cb, ok: false},
		{name: "staff no seat on client-business", id: Identity{UserID: 99, Role: model.RoleStaff}, thread: cb, ok: false},
		{name: "assigned staff seat on client-staff", id: Identity{UserID: 30, Role: model.RoleStaff}, thread: cs, side: model.SideB, ok: true},
		{name: "other staff no seat on client-staff", id: Identity{UserID: 31, Role: model.RoleStaff}, thread: cs, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			side, ok := SideOf(tt.id, tt.thread)
			if ok != tt.ok {
				t.Fatalf("SideOf(%+v) ok = %v, want %v", tt.id, ok, tt.ok)
			}
			if ok && side != tt.side {
				t.Errorf("SideOf(%+v) = %v, want %v", tt.id, side, tt.side)
			}
		})
	}
}

func TestCanViewThread(t *testing.T) {
	cb := clientBusinessThread(10, 20)
	tests := []struct {
		name     string
		id       Identity
		expected bool
	}{
		{name: "participant client", id: Identity{UserID: 10, Role: model.RoleClient}, expected: true},
		{name: "participant business", id: Identity{UserID: 20, Role: model.RoleBusiness}, expected: true},
		{name: "other client", id: Identity{UserID: 11, Role: model.RoleClient}, expected: false},
		{name: "other business", id: Identity{UserID: 21, Role: model.RoleBusiness}, expected: false},
		{name: "non-participant staff still views", id: Identity{UserID: 99, Role: model.RoleStaff}, expected: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanViewThread(tt.id, cb); got != tt.expected {
				t.Errorf("CanViewThread(%+v) = %v, want %v", tt.id, got, tt.expected)
			}
		})
	}
}

func TestCanPostToThread(t *testing.T) {
	cb := clientBusinessThread(10, 20)
	cs := clientStaffThread(10, 30)

	tests := []struct {
		name     string
		id       Identity
		thread   *model.Thread
		expected bool
	}{
		{name: "participant client posts", id: Identity{UserID: 10, Role: model.RoleClient}, thread: cb, expected: true},
		{name: "other client cannot post", id: Identity{UserID: 11, Role: model.RoleClient}, thread: cb, expected: false},
		{name: "staff observer cannot post on client-business", id: Identity{UserID: 99, Role: model.RoleStaff}, thread: cb, expected: false},
		{name: "assigned staff posts on client-staff", id: Identity{UserID: 30, Role: model.RoleStaff}, thread: cs, expected: true},
		{name: "covering staff posts on client-staff", id: Identity{UserID: 31, Role: model.RoleStaff}, thread: cs, expected: true},
		{name: "business cannot post on client-staff", id: Identity{UserID: 20, Role: model.RoleBusiness}, thread: cs, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanPostToThread(tt.id, tt.thread); got != tt.expected {
				t.Errorf("CanPostToThread(%+v, %s) = %v, want %v", tt.id, tt.thread.Kind, got, tt.expected)
			}
		})
	}
}
