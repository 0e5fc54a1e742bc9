package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/auth"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/config"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/queue"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/repository"
	publisher "github.com/ArmandoCharleston/Cuba-sub000/internal/service"
)

// BookingHandler implements the booking lifecycle: creation by a
// client, role-filtered reads, and caller-initiated status changes.
// All methods assume JWT authentication has already run; record-level
// authorization happens here through the auth package so that every
// operation applies the same role+ownership rules.
type BookingHandler struct {
	Cfg         config.Config
	BookingRepo *repository.BookingRepo
	ServiceRepo *repository.ServiceRepo
	ListingRepo *repository.ListingRepo
}

// NewBookingHandler constructs a BookingHandler.  All dependencies
// must be non-nil.
func NewBookingHandler(cfg config.Config, bookings *repository.BookingRepo, services *repository.ServiceRepo, listings *repository.ListingRepo) *BookingHandler {
	if bookings == nil || services == nil || listings == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Cfg: cfg, BookingRepo: bookings, ServiceRepo: services, ListingRepo: listings}
}

type createBookingReq struct {
	ListingID       uint64  `json:"listing_id"`
	ServiceID       uint64  `json:"service_id"`
	ScheduledDate   string  `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime   string  `json:"scheduled_time"` // HH:MM
	Notes           *string `json:"notes,omitempty"`
	TotalPriceCents *uint32 `json:"total_price_cents,omitempty"` // honored only with BOOKING_PRICE_OVERRIDE
}

// Create handles POST /v1/bookings.  Only clients book; the service
// must belong to the requested listing and the listing must be
// approved.  The total derives from the service price unless the
// price-override flag is enabled and the client supplied a value.
// No availability or overlap check is performed.
func (h *BookingHandler) Create(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.ListingID == 0 || req.ServiceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing_id and service_id are required"})
	}
	if _, err := time.Parse("2006-01-02", req.ScheduledDate); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "scheduled_date must be YYYY-MM-DD"})
	}
	if _, err := time.Parse("15:04", req.ScheduledTime); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "scheduled_time must be HH:MM"})
	}

	ctx := c.Request().Context()

	listing, err := h.ListingRepo.GetByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if listing.ApprovalStatus != model.ApprovalApproved {
		// Unapproved listings are invisible to clients.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}

	serviceListing, priceCents, err := h.ServiceRepo.ForBooking(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if serviceListing != req.ListingID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "service does not belong to listing"})
	}

	total := priceCents
	if h.Cfg.AllowPriceOverride && req.TotalPriceCents != nil {
		total = *req.TotalPriceCents
	}

	rec := repository.BookingRecord{
		ClientID:        id.UserID,
		ListingID:       req.ListingID,
		ServiceID:       req.ServiceID,
		ScheduledDate:   req.ScheduledDate,
		ScheduledTime:   req.ScheduledTime,
		Notes:           req.Notes,
		TotalPriceCents: total,
		Status:          model.BookingPending,
	}
	if err := h.BookingRepo.Create(ctx, &rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}

	detail, err := h.BookingRepo.GetDetail(ctx, rec.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
	}
	h.publishEvent(detail, "")
	return c.JSON(http.StatusCreated, detail)
}

// Get handles GET /v1/bookings/:id.  Visible to the booking's client,
// the owning business, or staff; anyone else gets 403 even though the
// record exists, so probing ids behaves the same on every endpoint.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	detail, err := h.BookingRepo.GetDetail(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !auth.CanViewBooking(id, detail.ClientID, detail.BusinessOwnerID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, detail)
}

// List handles GET /v1/bookings.  Clients see their own bookings,
// businesses see bookings against their listings, staff see all.
// Pages are offset-based and ordered by scheduled date descending.
func (h *BookingHandler) List(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, offset := pageParams(c)
	ctx := c.Request().Context()

	var details []repository.BookingDetail
	switch {
	case auth.CanSeeAllRecords(id.Role):
		details, err = h.BookingRepo.ListAll(ctx, limit, offset)
	case id.Role == model.RoleBusiness:
		details, err = h.BookingRepo.ListForOwner(ctx, id.UserID, limit, offset)
	default:
		details, err = h.BookingRepo.ListForClient(ctx, id.UserID, limit, offset)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": details, "count": len(details)})
}

type setStatusReq struct {
	Status string `json:"status"`
}

// SetStatus handles PATCH /v1/bookings/:id/status.  There is no
// transition table: an authorized caller may move the booking from
// any current status to any status their role permits (clients only
// cancel their own, businesses confirm/complete/cancel on their
// listings, staff set anything).  Concurrent writers resolve as last
// write wins.
func (h *BookingHandler) SetStatus(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req setStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !model.ValidBookingStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}

	ctx := c.Request().Context()
	clientID, ownerID, err := h.BookingRepo.Ownership(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !auth.CanActOnBooking(id, clientID, ownerID) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if !auth.AllowedBookingTargets(id.Role)[req.Status] {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "role may not set this status"})
	}

	detail, err := h.BookingRepo.UpdateStatus(ctx, bookingID, req.Status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update status failed"})
	}
	h.publishEvent(detail, req.Status)
	return c.JSON(http.StatusOK, detail)
}

// publishEvent emits a booking event to the broker.  Notification
// delivery is fire-and-forget: failures are logged by the publisher
// and never surface to the API caller.
func (h *BookingHandler) publishEvent(d repository.BookingDetail, newStatus string) {
	ev := queue.BookingEvent{
		BookingID:       d.ID,
		ClientID:        d.ClientID,
		BusinessOwnerID: d.BusinessOwnerID,
		ListingID:       d.ListingID,
		ListingName:     d.ListingName,
		ServiceName:     d.ServiceName,
		ScheduledDate:   d.ScheduledDate,
		ScheduledTime:   d.ScheduledTime,
		TotalPriceCents: d.TotalPriceCents,
		Status:          d.Status,
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if newStatus == "" {
		ev.Kind = queue.EventBookingCreated
	} else {
		ev.Kind = queue.EventBookingStatusChanged
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = publisher.PublishBookingEvent(ctx, ev)
	}()
}
