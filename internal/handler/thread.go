package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/auth"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/config"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/repository"
)

// ThreadHandler implements the conversation endpoints.  A thread
// connects exactly two parties (client-business, client-staff or
// business-staff) and carries one unread counter per side.  The two
// writes that must not diverge — marking the other side's messages
// read while zeroing the reader's counter, and inserting a message
// while incrementing the recipient's counter — always run inside a
// single transaction begun here.
type ThreadHandler struct {
	Cfg         config.Config
	ThreadRepo  *repository.ThreadRepo
	MessageRepo *repository.MessageRepo
	ListingRepo *repository.ListingRepo
	UserRepo    *repository.UserRepo
}

// NewThreadHandler constructs a ThreadHandler.  All dependencies must
// be non-nil.
func NewThreadHandler(cfg config.Config, threads *repository.ThreadRepo, messages *repository.MessageRepo, listings *repository.ListingRepo, users *repository.UserRepo) *ThreadHandler {
	if threads == nil || messages == nil || listings == nil || users == nil {
		panic("nil repository passed to NewThreadHandler")
	}
	return &ThreadHandler{Cfg: cfg, ThreadRepo: threads, MessageRepo: messages, ListingRepo: listings, UserRepo: users}
}

// threadView is the JSON shape of a thread for the caller: the two
// raw counters are collapsed into the caller's own unread count.
type threadView struct {
	ID              uint64  `json:"id"`
	Kind            string  `json:"kind"`
	ClientID        *uint64 `json:"client_id,omitempty"`
	BusinessID      *uint64 `json:"business_id,omitempty"`
	StaffID         *uint64 `json:"staff_id,omitempty"`
	ListingID       *uint64 `json:"listing_id,omitempty"`
	Unread          uint32  `json:"unread"`
	LastMessageText *string `json:"last_message_text,omitempty"`
	LastMessageAt   *string `json:"last_message_at,omitempty"`
	UpdatedAt       string  `json:"updated_at"`
}

func viewOf(id auth.Identity, p repository.ThreadPreview) threadView {
	v := threadView{
		ID:              p.Thread.ID,
		Kind:            p.Thread.Kind,
		ClientID:        p.Thread.ClientID,
		BusinessID:      p.Thread.BusinessID,
		StaffID:         p.Thread.StaffID,
		ListingID:       p.Thread.ListingID,
		LastMessageText: p.LastMessageText,
		LastMessageAt:   p.LastMessageAt,
		UpdatedAt:       p.Thread.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if side, ok := auth.SideOf(id, &p.Thread); ok {
		v.Unread = p.Thread.Unread(side)
	}
	return v
}

// messageView is the JSON shape of a message in responses.
type messageView struct {
	ID         uint64 `json:"id"`
	ThreadID   uint64 `json:"thread_id"`
	SenderID   uint64 `json:"sender_id"`
	SenderRole string `json:"sender_role"`
	Text       string `json:"text"`
	IsRead     bool   `json:"is_read"`
	CreatedAt  string `json:"created_at"`
}

func messageViewOf(m model.Message) messageView {
	return messageView{
		ID:         m.ID,
		ThreadID:   m.ThreadID,
		SenderID:   m.SenderID,
		SenderRole: m.SenderRole,
		Text:       m.Text,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ListMine handles GET /v1/threads.  Threads are filtered by the
// participant field matching the caller's role and ordered by most
// recent activity, each annotated with its latest message.
func (h *ThreadHandler) ListMine(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	previews, err := h.ThreadRepo.ListForParticipant(c.Request().Context(), id.Role, id.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	views := make([]threadView, 0, len(previews))
	for _, p := range previews {
		views = append(views, viewOf(id, p))
	}
	return c.JSON(http.StatusOK, echo.Map{"threads": views, "count": len(views)})
}

// ListAll handles GET /v1/staff/threads.  Staff view over every
// thread; the role gate is applied by the router, the check here is a
// backstop.
func (h *ThreadHandler) ListAll(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if !auth.CanSeeAllRecords(id.Role) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	limit, offset := pageParams(c)
	previews, err := h.ThreadRepo.ListAll(c.Request().Context(), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	views := make([]threadView, 0, len(previews))
	for _, p := range previews {
		views = append(views, viewOf(id, p))
	}
	return c.JSON(http.StatusOK, echo.Map{"threads": views, "count": len(views)})
}

type createThreadReq struct {
	Kind       string  `json:"kind"`
	ListingID  *uint64 `json:"listing_id,omitempty"`
	ClientID   *uint64 `json:"client_id,omitempty"`
	BusinessID *uint64 `json:"business_id,omitempty"`
	StaffID    *uint64 `json:"staff_id,omitempty"`
}

// Create handles POST /v1/threads.  The caller always occupies their
// own role's seat; the counterpart comes from the request, except for
// client-business threads where the business side is derived from the
// listing owner.  Client-business creation is idempotent per
// (client, business, listing): an existing thread is returned
// unchanged with 200 instead of 201.  The other two kinds are only
// deduplicated when THREAD_DEDUP_ALL_KINDS is enabled.
func (h *ThreadHandler) Create(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createThreadReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !model.ValidThreadKind(req.Kind) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown thread kind"})
	}
	if _, ok := model.SideForRole(req.Kind, id.Role); !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "role does not participate in this thread kind"})
	}

	ctx := c.Request().Context()
	t := model.Thread{Kind: req.Kind}

	// Seat the caller on their own side.
	caller := id.UserID
	switch id.Role {
	case model.RoleClient:
		t.ClientID = &caller
	case model.RoleBusiness:
		t.BusinessID = &caller
	case model.RoleStaff:
		t.StaffID = &caller
	}

	if req.Kind == model.ThreadClientBusiness {
		if req.ListingID == nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "listing_id is required for client-business threads"})
		}
		listing, err := h.ListingRepo.GetByID(ctx, *req.ListingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if id.Role == model.RoleClient && listing.ApprovalStatus != model.ApprovalApproved {
			// Unapproved listings stay invisible to clients.
			return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
		}
		t.ListingID = &listing.ID
		owner := listing.OwnerID
		t.BusinessID = &owner
		if id.Role == model.RoleBusiness {
			if listing.OwnerID != id.UserID {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			if req.ClientID == nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id is required"})
			}
			if code, msg := h.seatCounterpart(ctx, req.ClientID, model.RoleClient, &t.ClientID); code != 0 {
				return c.JSON(code, echo.Map{"error": msg})
			}
		}
	} else {
		// Staff-involving kinds: the missing seat comes from the body.
		roles, _ := model.ThreadRoles(req.Kind)
		for _, role := range roles {
			if role == id.Role {
				continue
			}
			var from *uint64
			var into **uint64
			switch role {
			case model.RoleClient:
				from, into = req.ClientID, &t.ClientID
			case model.RoleBusiness:
				from, into = req.BusinessID, &t.BusinessID
			case model.RoleStaff:
				from, into = req.StaffID, &t.StaffID
			}
			if from == nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "counterpart user id is required"})
			}
			if code, msg := h.seatCounterpart(ctx, from, role, into); code != 0 {
				return c.JSON(code, echo.Map{"error": msg})
			}
		}
	}

	// Dedup lookup before inserting.
	if req.Kind == model.ThreadClientBusiness {
		existing, err := h.ThreadRepo.FindClientBusiness(ctx, *t.ClientID, *t.BusinessID, *t.ListingID)
		if err == nil {
			return c.JSON(http.StatusOK, viewOf(id, repository.ThreadPreview{Thread: existing}))
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	} else if h.Cfg.DedupAllThreadKinds {
		existing, err := h.ThreadRepo.FindByParticipants(ctx, t.Kind, t.ClientID, t.BusinessID, t.StaffID)
		if err == nil {
			return c.JSON(http.StatusOK, viewOf(id, repository.ThreadPreview{Thread: existing}))
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	if err := h.ThreadRepo.Create(ctx, &t); err != nil {
		// A concurrent create can win between the dedup lookup and the
		// insert; the unique participants index rejects the loser, who
		// returns the surviving thread instead.
		if errors.Is(err, repository.ErrConflict) && req.Kind == model.ThreadClientBusiness {
			existing, ferr := h.ThreadRepo.FindClientBusiness(ctx, *t.ClientID, *t.BusinessID, *t.ListingID)
			if ferr == nil {
				return c.JSON(http.StatusOK, viewOf(id, repository.ThreadPreview{Thread: existing}))
			}
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create thread failed"})
	}
	return c.JSON(http.StatusCreated, viewOf(id, repository.ThreadPreview{Thread: t}))
}

// seatCounterpart validates that the referenced user exists and holds
// the expected role, then stores the id into the thread seat.  On
// failure it returns the HTTP status and error message the caller
// must respond with; a zero status means the seat was filled.
func (h *ThreadHandler) seatCounterpart(ctx context.Context, userID *uint64, role string, into **uint64) (int, string) {
	actual, err := h.UserRepo.RoleOf(ctx, *userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return http.StatusNotFound, "user not found"
		}
		return http.StatusInternalServerError, "database error"
	}
	if actual != role {
		return http.StatusBadRequest, "counterpart has the wrong role"
	}
	*into = userID
	return 0, ""
}

// threadWithHistory is the response of Get: the thread plus its full
// message history in insertion order.
type threadWithHistory struct {
	Thread   threadView    `json:"thread"`
	Messages []messageView `json:"messages"`
}

// Get handles GET /v1/threads/:id.  Fetching is a read with a write
// side effect: the other side's messages become read and the caller's
// unread counter drops to zero, atomically with the fetch.  The
// thread row is locked for the duration so a racing send either lands
// before the mark-read batch (and is included) or after (and stays
// unread with its counter tick intact); the counter and the flags can
// never diverge.  Staff reading a thread they hold no seat on get the
// history without marking anything.
func (h *ThreadHandler) Get(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	threadID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid thread id"})
	}

	ctx := c.Request().Context()
	tx, err := h.ThreadRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	t, err := h.ThreadRepo.GetByIDTx(ctx, tx, threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "thread not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !auth.CanViewThread(id, &t) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	if side, participant := auth.SideOf(id, &t); participant {
		roles, _ := model.ThreadRoles(t.Kind)
		otherRole := roles[side.Other()]
		if _, err := h.MessageRepo.MarkReadFromTx(ctx, tx, t.ID, otherRole); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "mark read failed"})
		}
		if err := h.ThreadRepo.ResetUnreadTx(ctx, tx, t.ID, side); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset unread failed"})
		}
		if side == model.SideA {
			t.UnreadA = 0
		} else {
			t.UnreadB = 0
		}
	}

	msgs, err := h.MessageRepo.ListByThreadTx(ctx, tx, t.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load messages failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageViewOf(m))
	}
	return c.JSON(http.StatusOK, threadWithHistory{
		Thread:   viewOf(id, repository.ThreadPreview{Thread: t}),
		Messages: views,
	})
}

type sendMessageReq struct {
	Text string `json:"text"`
}

// SendMessage handles POST /v1/threads/:id/messages.  The sender must
// be a participant, or a staff user on a staff-involving thread.  The
// message insert and the recipient-side counter increment (which also
// bumps the thread's updated_at) commit together or not at all.
func (h *ThreadHandler) SendMessage(c echo.Context) error {
	id, err := auth.FromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	threadID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid thread id"})
	}
	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text must not be empty"})
	}

	ctx := c.Request().Context()
	tx, err := h.ThreadRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	t, err := h.ThreadRepo.GetByIDTx(ctx, tx, threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "thread not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !auth.CanPostToThread(id, &t) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	// The sender side is the caller's seat, or the staff side for a
	// staff user covering a colleague's thread.
	senderSide, participant := auth.SideOf(id, &t)
	if !participant {
		senderSide, _ = model.SideForRole(t.Kind, model.RoleStaff)
	}
	roles, _ := model.ThreadRoles(t.Kind)

	msg := model.Message{
		ThreadID:   t.ID,
		SenderID:   id.UserID,
		SenderRole: roles[senderSide],
		Text:       text,
	}
	if err := h.MessageRepo.InsertTx(ctx, tx, &msg); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send message failed"})
	}
	if err := h.ThreadRepo.IncrementUnreadTx(ctx, tx, t.ID, senderSide.Other()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update unread failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusCreated, messageViewOf(msg))
}
