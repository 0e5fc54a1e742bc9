package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", target: "/", wantLimit: 20, wantOffset: 0},
		{name: "explicit page and size", target: "/?page=3&page_size=10", wantLimit: 10, wantOffset: 20},
		{name: "size clamped to max", target: "/?page_size=500", wantLimit: 100, wantOffset: 0},
		{name: "zero page falls back", target: "/?page=0", wantLimit: 20, wantOffset: 0},
		{name: "negative size falls back", target: "/?page_size=-5", wantLimit: 20, wantOffset: 0},
		{name: "garbage ignored", target: "/?page=abc&page_size=xyz", wantLimit: 20, wantOffset: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := pageParams(newTestContext(tt.target))
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("pageParams(%q) = (%d, %d), want (%d, %d)", tt.target, limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		name  string
		param string
		want  uint64
		ok    bool
	}{
		{name: "valid", param: "42", want: 42, ok: true},
		{name: "zero rejected", param: "0", ok: false},
		{name: "negative rejected", param: "-1", ok: false},
		{name: "non-numeric rejected", param: "abc", ok: false},
		{name: "empty rejected", param: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext("/")
			c.SetParamNames("id")
			c.SetParamValues(tt.param)
			got, ok := pathID(c)
			if ok != tt.ok {
				t.Fatalf("pathID(%q) ok = %v, want %v", tt.param, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("pathID(%q) = %d, want %d", tt.param, got, tt.want)
			}
		})
	}
}
