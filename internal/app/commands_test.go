package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pnr_cleaner/internal/app"
	"pnr_cleaner/internal/domain"
)

type sliceSource []domain.RawRecord

func (s sliceSource) Records(ctx context.Context) ([]domain.RawRecord, error) { return s, nil }

type failingSource struct{ err error }

func (s failingSource) Records(ctx context.Context) ([]domain.RawRecord, error) { return nil, s.err }

type captureSink struct{ got []domain.Reservation }

func (s *captureSink) Write(ctx context.Context, rs []domain.Reservation) error {
	s.got = append(s.got, rs...)
	return nil
}

func raw(id, name, origin, dest string, fare any) domain.RawRecord {
	return domain.RawRecord{ID: ptr(id), PassengerName: ptr(name), Origin: ptr(origin), Destination: ptr(dest), Fare: fare, Status: ptr("Pending")}
}

func sampleBatch() sliceSource {
	return sliceSource{
		raw("AB1234", "Ana Silva", "JFK", "LHR", "123.45"),
		raw("AB1234", "Ana Silva", "JFK", "CDG", 80.0), // duplicate, dropped
		raw("CD5678", "Chen Wei", "XXX", "NRT", "99"),  // invalid airport
		raw("EF9012", "Elif Yilmaz", "SEA", "HND", "invalid"),
		{}, // all null
		{Fare: "12"},
		raw("GH3456", "Goran Novak", "ORD", "FRA", 450),
		raw("BAD001", "Hana Moreau", "ATL", "SIN", "300"),
	}
}

func TestCleaningService_Clean(t *testing.T) {
	svc := app.NewCleaningService(airports, nil, nil, nil, nil)
	clean, rep := svc.Clean(sampleBatch())

	if rep.Input != 8 || rep.Duplicates != 1 {
		t.Fatalf("report: %+v", rep)
	}
	if rep.Dropped[domain.DropInvalidAirport] != 1 || rep.Dropped[domain.DropInvalidFare] != 1 ||
		rep.Dropped[domain.DropAllNull] != 1 || rep.Dropped[domain.DropMissingField] != 1 {
		t.Fatalf("dropped: %v", rep.Dropped)
	}
	ids := make([]string, 0, len(clean))
	seen := map[string]bool{}
	for _, r := range clean {
		if seen[r.ID] {
			t.Fatalf("duplicate id %s survived", r.ID)
		}
		seen[r.ID] = true
		if !r.Fare.Valid || !airports.Has(r.Origin) || !airports.Has(r.Destination) {
			t.Fatalf("invariant broken for %+v", r)
		}
		ids = append(ids, r.ID)
	}
	if len(ids) != 3 || ids[0] != "AB1234" || ids[1] != "GH3456" || ids[2] != "BAD001" {
		t.Fatalf("clean ids = %v", ids)
	}
	if clean[0].Destination != "LHR" {
		t.Fatalf("first occurrence must win, got %+v", clean[0])
	}
}

func TestCleaningService_RunPersistsOutcomes(t *testing.T) {
	repo := &fakeRepo{}
	cache := &fakeCache{}
	sink := &captureSink{}
	c := newScripted(map[string]int{"BAD001": -1, "AB1234": 2})
	svc := app.NewCleaningService(airports, app.NewDispatcher(c, fastConfig()), repo, cache, sink)

	sum, err := svc.Run(context.Background(), sampleBatch())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.RunID == "" || sum.Input != 8 || sum.Clean != 3 || sum.Confirmed != 2 || sum.Failed != 1 || sum.Duplicates != 1 {
		t.Fatalf("summary: %+v", sum)
	}
	if sum.DroppedTotal() != 4 {
		t.Fatalf("dropped total = %d", sum.DroppedTotal())
	}
	if len(repo.runs) != 1 || repo.runs[0].RunID != sum.RunID {
		t.Fatalf("run not saved: %+v", repo.runs)
	}
	if o := repo.saved["BAD001"]; o.State != domain.StatePermanentlyFailed {
		t.Fatalf("failed outcome not persisted: %+v", o)
	}
	if o := repo.saved["AB1234"]; o.State != domain.StateConfirmed || o.Retries != 2 {
		t.Fatalf("confirmed outcome not persisted: %+v", o)
	}
	if len(sink.got) != 3 {
		t.Fatalf("sink got %d records", len(sink.got))
	}
	if len(cache.deleted) != 3 {
		t.Fatalf("expected cache eviction per clean record, got %v", cache.deleted)
	}
}

func TestCleaningService_RunSurfacesSystemicFailure(t *testing.T) {
	c := newScripted(map[string]int{"AB1234": -1, "GH3456": -1, "BAD001": -1})
	repo := &fakeRepo{}
	svc := app.NewCleaningService(airports, app.NewDispatcher(c, fastConfig()), repo, nil, nil)

	sum, err := svc.Run(context.Background(), sampleBatch())
	if !errors.Is(err, domain.ErrConfirmationUnavailable) {
		t.Fatalf("expected systemic failure, got %v", err)
	}
	if sum.Failed != 3 || len(repo.runs) != 1 {
		t.Fatalf("failed run must still be summarized and saved: %+v", sum)
	}
}

func TestCleaningService_RunErrors(t *testing.T) {
	boom := errors.New("boom")
	svc := app.NewCleaningService(airports, app.NewDispatcher(newScripted(nil), fastConfig()), nil, nil, nil)
	if _, err := svc.Run(context.Background(), failingSource{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}

	repo := &fakeRepo{saveErr: boom}
	svc = app.NewCleaningService(airports, app.NewDispatcher(newScripted(nil), fastConfig()), repo, nil, nil)
	sum, err := svc.Run(context.Background(), sampleBatch())
	if !errors.Is(err, boom) || sum.Confirmed != 3 {
		t.Fatalf("expected persistence error with full summary, got %v / %+v", err, sum)
	}
}

func TestCleaningService_RunEvictsCacheWhenUpsertFails(t *testing.T) {
	skipped := fmt.Errorf("pnr %q: %w", "BAD001", domain.ErrUnstorable)
	repo := &fakeRepo{upErr: skipped}
	cache := &fakeCache{}
	svc := app.NewCleaningService(airports, app.NewDispatcher(newScripted(nil), fastConfig()), repo, cache, nil)

	sum, err := svc.Run(context.Background(), sampleBatch())
	if !errors.Is(err, domain.ErrUnstorable) {
		t.Fatalf("expected upsert error to surface, got %v", err)
	}
	if sum.Confirmed != 3 || len(repo.runs) != 1 {
		t.Fatalf("summary must be complete and saved: %+v", sum)
	}
	if len(cache.deleted) != 3 {
		t.Fatalf("expected eviction of every clean record, got %v", cache.deleted)
	}
}
