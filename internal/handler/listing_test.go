package handler

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/repository"
)

func newListingTestEnv() (*memStore, *ListingHandler) {
	store := newMemStore()
	db := sql.OpenDB(memConnector{store: store})
	return store, NewListingHandler(repository.NewListingRepo(db), repository.NewServiceRepo(db))
}

// Services are part of the public surface and must stay hidden until
// staff approve the listing, exactly like the listing detail itself.
func TestListServicesHiddenUntilApproved(t *testing.T) {
	store, h := newListingTestEnv()
	store.addListing(model.Listing{ID: 10, OwnerID: 2, Name: "Caribe Cuts", Province: "La Habana", Municipality: "Playa", ApprovalStatus: model.ApprovalPending})
	store.addService(model.Service{ID: 1, ListingID: 10, Name: "Corte", PriceCents: 1500, DurationMin: 30})
	store.addService(model.Service{ID: 2, ListingID: 10, Name: "Afeitado", PriceCents: 800, DurationMin: 15})

	rec := callJSON(t, h.ListServices, http.MethodGet, "", 0, "", "10")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("pending listing: status = %d, want %d (%s)", rec.Code, http.StatusNotFound, rec.Body.String())
	}

	rejected := store.listings[10]
	rejected.ApprovalStatus = model.ApprovalRejected
	store.listings[10] = rejected
	rec = callJSON(t, h.ListServices, http.MethodGet, "", 0, "", "10")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("rejected listing: status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	approved := store.listings[10]
	approved.ApprovalStatus = model.ApprovalApproved
	store.listings[10] = approved
	rec = callJSON(t, h.ListServices, http.MethodGet, "", 0, "", "10")
	if rec.Code != http.StatusOK {
		t.Fatalf("approved listing: status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp struct {
		Count    int `json:"count"`
		Services []struct {
			Name string `json:"name"`
		} `json:"services"`
	}
	decodeBody(t, rec, &resp)
	if resp.Count != 2 || len(resp.Services) != 2 {
		t.Errorf("service count = %d (%d returned), want 2", resp.Count, len(resp.Services))
	}
}

func TestListServicesUnknownListing(t *testing.T) {
	_, h := newListingTestEnv()
	rec := callJSON(t, h.ListServices, http.MethodGet, "", 0, "", "99")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
