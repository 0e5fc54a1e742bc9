package handler

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/config"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/repository"
)

func newThreadTestEnv() (*memStore, *ThreadHandler) {
	store := newMemStore()
	db := sql.OpenDB(memConnector{store: store})
	h := NewThreadHandler(config.Config{},
		repository.NewThreadRepo(db),
		repository.NewMessageRepo(db),
		repository.NewListingRepo(db),
		repository.NewUserRepo(db))
	return store, h
}

// callJSON drives a handler the way the router would: an
// authenticated request with an optional JSON body and an optional
// :id path parameter.
func callJSON(t *testing.T, h echo.HandlerFunc, method, body string, userID uint64, role, pathID string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/", rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("user_id", userID)
	c.Set("role", role)
	if pathID != "" {
		c.SetParamNames("id")
		c.SetParamValues(pathID)
	}
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// seedClientBusinessThread sets up a client (1), a business (2) with
// an approved listing (10) and an existing thread between them.
func seedClientBusinessThread(store *memStore) uint64 {
	store.addUser(1, model.RoleClient)
	store.addUser(2, model.RoleBusiness)
	store.addListing(model.Listing{ID: 10, OwnerID: 2, Name: "Caribe Cuts", Province: "La Habana", Municipality: "Playa", ApprovalStatus: model.ApprovalApproved})
	client, business, listing := uint64(1), uint64(2), uint64(10)
	return store.addThread(model.Thread{Kind: model.ThreadClientBusiness, ClientID: &client, BusinessID: &business, ListingID: &listing})
}

func sendText(t *testing.T, h *ThreadHandler, threadID, userID uint64, role, text string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"text":%q}`, text)
	return callJSON(t, h.SendMessage, http.MethodPost, body, userID, role, fmt.Sprint(threadID))
}

// fetchedThread mirrors the Get response shape.
type fetchedThread struct {
	Thread struct {
		ID     uint64 `json:"id"`
		Unread uint32 `json:"unread"`
	} `json:"thread"`
	Messages []struct {
		SenderRole string `json:"sender_role"`
		Text       string `json:"text"`
		IsRead     bool   `json:"is_read"`
	} `json:"messages"`
}

func TestSendMessageIncrementsRecipientCounter(t *testing.T) {
	store, h := newThreadTestEnv()
	threadID := seedClientBusinessThread(store)

	for i := 1; i <= 3; i++ {
		rec := sendText(t, h, threadID, 1, model.RoleClient, fmt.Sprintf("hola %d", i))
		if rec.Code != http.StatusCreated {
			t.Fatalf("send %d: status = %d, want %d (%s)", i, rec.Code, http.StatusCreated, rec.Body.String())
		}
	}

	got := store.threads[threadID]
	if got.UnreadB != 3 {
		t.Errorf("business unread counter = %d, want 3", got.UnreadB)
	}
	if got.UnreadA != 0 {
		t.Errorf("client unread counter = %d, want 0", got.UnreadA)
	}
}

func TestFetchMarksReadAndZeroesCounter(t *testing.T) {
	store, h := newThreadTestEnv()
	threadID := seedClientBusinessThread(store)
	sendText(t, h, threadID, 1, model.RoleClient, "first")
	sendText(t, h, threadID, 1, model.RoleClient, "second")

	rec := callJSON(t, h.Get, http.MethodGet, "", 2, model.RoleBusiness, fmt.Sprint(threadID))
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp fetchedThread
	decodeBody(t, rec, &resp)
	if resp.Thread.Unread != 0 {
		t.Errorf("unread after fetch = %d, want 0", resp.Thread.Unread)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("message count = %d, want 2", len(resp.Messages))
	}
	for i, m := range resp.Messages {
		if !m.IsRead {
			t.Errorf("message %d is_read = false, want true", i)
		}
	}
	if store.threads[threadID].UnreadB != 0 {
		t.Errorf("stored business counter = %d, want 0", store.threads[threadID].UnreadB)
	}
	for _, m := range store.messages {
		if !m.IsRead {
			t.Errorf("stored message %d still unread after fetch", m.ID)
		}
	}

	// A second fetch is a no-op: nothing left to mark or reset.
	rec = callJSON(t, h.Get, http.MethodGet, "", 2, model.RoleBusiness, fmt.Sprint(threadID))
	if rec.Code != http.StatusOK {
		t.Fatalf("second fetch status = %d, want %d", rec.Code, http.StatusOK)
	}
	var again fetchedThread
	decodeBody(t, rec, &again)
	if again.Thread.Unread != 0 || len(again.Messages) != 2 {
		t.Errorf("second fetch: unread = %d, messages = %d, want 0 and 2", again.Thread.Unread, len(again.Messages))
	}
}

func TestFetchBySenderLeavesOwnMessagesUnread(t *testing.T) {
	store, h := newThreadTestEnv()
	threadID := seedClientBusinessThread(store)
	sendText(t, h, threadID, 1, model.RoleClient, "anyone there?")

	rec := callJSON(t, h.Get, http.MethodGet, "", 1, model.RoleClient, fmt.Sprint(threadID))
	if rec.Code != http.StatusOK {
		t.Fatalf("fetch status = %d, want %d", rec.Code, http.StatusOK)
	}
	if store.threads[threadID].UnreadB != 1 {
		t.Errorf("recipient counter = %d, want 1 after sender's own fetch", store.threads[threadID].UnreadB)
	}
	for _, m := range store.messages {
		if m.IsRead {
			t.Errorf("message %d marked read by its own sender", m.ID)
		}
	}
}

func TestCreateClientBusinessThreadIdempotent(t *testing.T) {
	store, h := newThreadTestEnv()
	store.addUser(1, model.RoleClient)
	store.addUser(2, model.RoleBusiness)
	store.addListing(model.Listing{ID: 10, OwnerID: 2, Name: "Caribe Cuts", Province: "La Habana", Municipality: "Playa", ApprovalStatus: model.ApprovalApproved})

	body := `{"kind":"CLIENT_BUSINESS","listing_id":10}`
	rec := callJSON(t, h.Create, http.MethodPost, body, 1, model.RoleClient, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var first struct {
		ID uint64 `json:"id"`
	}
	decodeBody(t, rec, &first)

	rec = callJSON(t, h.Create, http.MethodPost, body, 1, model.RoleClient, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat create status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var second struct {
		ID uint64 `json:"id"`
	}
	decodeBody(t, rec, &second)

	if first.ID != second.ID {
		t.Errorf("repeat create returned thread %d, want existing %d", second.ID, first.ID)
	}
	if len(store.threads) != 1 {
		t.Errorf("thread count = %d, want 1", len(store.threads))
	}
}

func TestCreateRejectsBadCounterpart(t *testing.T) {
	tests := []struct {
		name     string
		seed     func(*memStore)
		userID   uint64
		role     string
		body     string
		wantCode int
	}{
		{
			name: "business names unknown client",
			seed: func(s *memStore) {
				s.addUser(2, model.RoleBusiness)
				s.addListing(model.Listing{ID: 10, OwnerID: 2, Name: "Caribe Cuts", Province: "La Habana", Municipality: "Playa", ApprovalStatus: model.ApprovalApproved})
			},
			userID:   2,
			role:     model.RoleBusiness,
			body:     `{"kind":"CLIENT_BUSINESS","listing_id":10,"client_id":999}`,
			wantCode: http.StatusNotFound,
		},
		{
			name: "client names unknown staff",
			seed: func(s *memStore) {
				s.addUser(1, model.RoleClient)
			},
			userID:   1,
			role:     model.RoleClient,
			body:     `{"kind":"CLIENT_STAFF","staff_id":999}`,
			wantCode: http.StatusNotFound,
		},
		{
			name: "counterpart holds the wrong role",
			seed: func(s *memStore) {
				s.addUser(1, model.RoleClient)
				s.addUser(2, model.RoleBusiness)
			},
			userID:   1,
			role:     model.RoleClient,
			body:     `{"kind":"CLIENT_STAFF","staff_id":2}`,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, h := newThreadTestEnv()
			tt.seed(store)
			rec := callJSON(t, h.Create, http.MethodPost, tt.body, tt.userID, tt.role, "")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if len(store.threads) != 0 {
				t.Errorf("thread count = %d, want 0 after rejected create", len(store.threads))
			}
		})
	}
}

func TestCreateReturnsSurvivorOfConcurrentDuplicate(t *testing.T) {
	store, h := newThreadTestEnv()
	existingID := seedClientBusinessThread(store)

	// The dedup lookup misses once, as if another request created the
	// thread between the lookup and the insert; the unique index
	// rejects the insert and the handler falls back to the survivor.
	store.missDedupLookupOnce = true

	rec := callJSON(t, h.Create, http.MethodPost, `{"kind":"CLIENT_BUSINESS","listing_id":10}`, 1, model.RoleClient, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var got struct {
		ID uint64 `json:"id"`
	}
	decodeBody(t, rec, &got)
	if got.ID != existingID {
		t.Errorf("returned thread %d, want surviving thread %d", got.ID, existingID)
	}
	if len(store.threads) != 1 {
		t.Errorf("thread count = %d, want 1", len(store.threads))
	}
}
