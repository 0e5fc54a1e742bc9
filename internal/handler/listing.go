package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/auth"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/repository"
)

// ListingHandler implements the catalogue endpoints: business-owned
// listings with their services, staff moderation, and the public
// browse surface that only ever shows approved listings.
type ListingHandler struct {
	ListingRepo *repository.ListingRepo
	ServiceRepo *repository.ServiceRepo
}

// NewListingHandler constructs a ListingHandler.
func NewListingHandler(listings *repository.ListingRepo, services *repository.ServiceRepo) *ListingHandler {
	if listings == nil || services == nil {
		panic("nil repository passed to NewListingHandler")
	}
	return &ListingHandler{ListingRepo: listings, ServiceRepo: services}
}

// listingView is the JSON shape of a listing in responses.
type listingView struct {
	ID             uint64 `json:"id"`
	OwnerID        uint64 `json:"owner_id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Province       string `json:"province"`
	Municipality   string `json:"municipality"`
	ApprovalStatus string `json:"approval_status"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func listingViewOf(l model.Listing) listingView {
	return listingView{
		ID:             l.ID,
		OwnerID:        l.OwnerID,
		Name:           l.Name,
		Description:    l.Description,
		Province:       l.Province,
		Municipality:   l.Municipality,
		ApprovalStatus: l.ApprovalStatus,
		CreatedAt:      l.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      l.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func listingViews(ls []model.Listing) []listingView {
	out := make([]listingView, 0, len(ls))
	for _, l := range ls {
		out = append(out, listingViewOf(l))
	}
	return out
}

// serviceView is the JSON shape of a bookable service in responses.
type serviceView struct {
	ID          uint64 `json:"id"`
	ListingID   uint64 `json:"listing_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  uint32 `json:"price_cents"`
	DurationMin uint32 `json:"duration_min"`
}

func serviceViewOf(s model.Service) serviceView {
	return serviceView{
		ID:          s.ID,
		ListingID:   s.ListingID,
		Name:        s.Name,
		Description: s.Description,
		PriceCents:  s.PriceCents,
		DurationMin: s.DurationMin,
	}
}

func serviceViews(ss []model.Service) []serviceView {
	out := make([]serviceView, 0, len(ss))
	for _, s := range ss {
		out = append(out, serviceViewOf(s))
	}
	return out
}

type listingReq struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Province     string `json:"province"`
	Municipality string `json:"municipality"`
}

func (r *listingReq) normalize() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Province = strings.TrimSpace(r.Province)
	r.Municipality = strings.TrimSpace(r.Municipality)
	switch {
	case r.Name == "":
		return "name is required"
	case r.Province == "":
		return "province is required"
	case r.Municipality == "":
		return "municipality is required"
	}
	return ""
}

// Create handles POST /v1/listings.  Business only; new listings
// start PENDING and stay off the public surface until a staff user
// approves them.
func (h *ListingHandler) Create(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.normalize(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	listing, err := h.ListingRepo.Create(c.Request().Context(), id.UserID, req.Name, req.Description, req.Province, req.Municipality)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create listing failed"})
	}
	return c.JSON(http.StatusCreated, listingViewOf(listing))
}

// Update handles PUT /v1/listings/:id.  Only the owner may edit;
// staff moderate through the approval endpoint instead.
func (h *ListingHandler) Update(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.normalize(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	listing, err := h.ListingRepo.Update(c.Request().Context(), listingID, id.UserID, req.Name, req.Description, req.Province, req.Municipality)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update listing failed"})
		}
	}
	return c.JSON(http.StatusOK, listingViewOf(listing))
}

// ListMine handles GET /v1/listings/mine for business users, every
// approval status included.
func (h *ListingHandler) ListMine(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listings, err := h.ListingRepo.ListByOwner(c.Request().Context(), id.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": listingViews(listings), "count": len(listings)})
}

// Browse handles GET /v1/listings, the public catalogue.  Approved
// listings only, newest first.
func (h *ListingHandler) Browse(c echo.Context) error {
	limit, offset := pageParams(c)
	listings, err := h.ListingRepo.ListApproved(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": listingViews(listings), "count": len(listings)})
}

// Get handles GET /v1/listings/:id, the public detail view.  Listings
// that are not approved do not exist as far as guests are concerned;
// owners inspect their own through /v1/listings/mine and staff through
// the moderation queue.
func (h *ListingHandler) Get(c echo.Context) error {
	listingID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	ctx := c.Request().Context()
	listing, err := h.ListingRepo.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if listing.ApprovalStatus != model.ApprovalApproved {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	services, err := h.ServiceRepo.ListByListing(ctx, listing.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listing": listingViewOf(listing), "services": serviceViews(services)})
}

type approvalReq struct {
	Status string `json:"status"`
}

// SetApproval handles PATCH /v1/staff/listings/:id/approval.  Staff
// decide PENDING listings; re-deciding an already decided listing is
// allowed so mistakes can be reversed.
func (h *ListingHandler) SetApproval(c echo.Context) error {
	listingID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var req approvalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Status != model.ApprovalApproved && req.Status != model.ApprovalRejected {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be APPROVED or REJECTED"})
	}
	listing, err := h.ListingRepo.SetApproval(c.Request().Context(), listingID, req.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update approval failed"})
	}
	return c.JSON(http.StatusOK, listingViewOf(listing))
}

// ListPending handles GET /v1/staff/listings/pending, the moderation
// queue in submission order.
func (h *ListingHandler) ListPending(c echo.Context) error {
	limit, offset := pageParams(c)
	listings, err := h.ListingRepo.ListPendingApproval(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"listings": listingViews(listings), "count": len(listings)})
}

type serviceReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  uint32 `json:"price_cents"`
	DurationMin uint32 `json:"duration_min"`
}

// CreateService handles POST /v1/listings/:id/services.  Owner only.
func (h *ListingHandler) CreateService(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listingID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	var req serviceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.DurationMin == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_min must be positive"})
	}
	svc, err := h.ServiceRepo.Create(c.Request().Context(), listingID, id.UserID, req.Name, req.Description, req.PriceCents, req.DurationMin)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create service failed"})
		}
	}
	return c.JSON(http.StatusCreated, serviceViewOf(svc))
}

// ListServices handles GET /v1/listings/:id/services.  Like Get, the
// route is public, so services stay hidden until the listing is
// approved.
func (h *ListingHandler) ListServices(c echo.Context) error {
	listingID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid listing id"})
	}
	ctx := c.Request().Context()
	listing, err := h.ListingRepo.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if listing.ApprovalStatus != model.ApprovalApproved {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
	}
	services, err := h.ServiceRepo.ListByListing(ctx, listing.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"services": serviceViews(services), "count": len(services)})
}

// DeleteService handles DELETE /v1/services/:id.  Owner only; a
// service already referenced by bookings cannot be removed.
func (h *ListingHandler) DeleteService(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	serviceID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid service id"})
	}
	if err := h.ServiceRepo.Delete(c.Request().Context(), serviceID, id.UserID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "service has bookings and cannot be deleted"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete service failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
