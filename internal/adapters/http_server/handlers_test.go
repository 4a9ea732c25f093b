package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	httpserver "pnr_cleaner/internal/adapters/http_server"
	"pnr_cleaner/internal/domain"
)

type fakeQueries struct {
	res  map[string]domain.ReservationView
	runs map[string]domain.RunView
	err  error
}

func (f *fakeQueries) GetReservation(ctx context.Context, id string) (domain.ReservationView, error) {
	if f.err != nil {
		return domain.ReservationView{}, f.err
	}
	v, ok := f.res[id]
	if !ok {
		return domain.ReservationView{}, domain.ErrNotFound
	}
	return v, nil
}

func (f *fakeQueries) GetRun(ctx context.Context, id string) (domain.RunView, error) {
	v, ok := f.runs[id]
	if !ok {
		return domain.RunView{}, domain.ErrNotFound
	}
	return v, nil
}

const runID = "0b8f7c9e-2f4a-4c1e-9d0a-1f2e3d4c5b6a"

func newServer(q httpserver.Queries) http.Handler {
	srv := httpserver.New(0)
	srv.MountHandlers(&httpserver.Handlers{Q: q})
	return srv.Mux()
}

func fixture() *fakeQueries {
	return &fakeQueries{
		res: map[string]domain.ReservationView{
			"AB1234": {ID: "AB1234", PassengerName: "Ana Silva", Origin: "JFK", Destination: "LHR", Fare: "123.45", Confirmation: "confirmed", Attempts: 1, RunID: runID},
		},
		runs: map[string]domain.RunView{
			runID: {ID: runID, Input: 200, Dropped: map[string]int{"invalid_airport": 24}, Clean: 150, Confirmed: 150},
		},
	}
}

func TestGetReservation_OKAndETag(t *testing.T) {
	h := newServer(fixture())

	req := httptest.NewRequest(http.MethodGet, "/v1/reservations/AB1234", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var body domain.ReservationView
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "AB1234" || body.Confirmation != "confirmed" {
		t.Fatalf("unexpected body: %+v", body)
	}

	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	req = httptest.NewRequest(http.MethodGet, "/v1/reservations/AB1234", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr.Code)
	}
}

func TestGetReservation_Errors(t *testing.T) {
	cases := []struct {
		name string
		q    *fakeQueries
		path string
		want int
	}{
		{"unknown", fixture(), "/v1/reservations/ZZ9999", http.StatusNotFound},
		{"lowercase is a different id", fixture(), "/v1/reservations/ab1234", http.StatusNotFound},
		{"too long", fixture(), "/v1/reservations/" + strings.Repeat("A", domain.MaxIDLen+1), http.StatusBadRequest},
		{"control character", fixture(), "/v1/reservations/AB%0112", http.StatusBadRequest},
		{"backend", &fakeQueries{err: errors.New("db down")}, "/v1/reservations/AB1234", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			newServer(tc.q).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rr.Code != tc.want {
				t.Fatalf("status %d, want %d", rr.Code, tc.want)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Fatalf("content type %q", ct)
			}
		})
	}
}

func TestGetReservation_AnyStorableID(t *testing.T) {
	ids := []string{"RES-000123", "AB12345678", "Doe/Smith 01", strings.Repeat("P", domain.MaxIDLen)}
	q := fixture()
	for _, id := range ids {
		q.res[id] = domain.ReservationView{ID: id, Origin: "JFK", Destination: "LHR", Fare: "10"}
	}
	h := newServer(q)

	for _, id := range ids {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/reservations/"+url.PathEscape(id), nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %q: status %d: %s", id, rr.Code, rr.Body.String())
		}
		var body domain.ReservationView
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.ID != id {
			t.Fatalf("GET %q: body %+v err=%v", id, body, err)
		}
	}
}

func TestGetRun(t *testing.T) {
	h := newServer(fixture())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+runID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var body domain.RunView
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Dropped["invalid_airport"] != 24 {
		t.Fatalf("unexpected run: %+v", body)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/not-a-uuid", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newServer(fixture()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
}
