package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pnr_cleaner/internal/domain"
)

// CleanReport describes what the cleaning stages removed.
type CleanReport struct {
	Input      int
	Dropped    FilterReport
	Duplicates int
}

// CleanedSink receives the cleaned record set for downstream use.
type CleanedSink interface {
	Write(ctx context.Context, rs []domain.Reservation) error
}

type CleaningService struct {
	airports   domain.AirportSet
	dispatcher *Dispatcher
	repo       domain.ReservationRepository // optional
	cache      domain.Cache                 // optional
	sink       CleanedSink                  // optional
	now        func() time.Time
}

func NewCleaningService(airports domain.AirportSet, d *Dispatcher, r domain.ReservationRepository, c domain.Cache, sink CleanedSink) *CleaningService {
	return &CleaningService{airports: airports, dispatcher: d, repo: r, cache: c, sink: sink, now: time.Now}
}

// Clean runs normalization, filtering and deduplication over the whole batch.
func (s *CleaningService) Clean(raws []domain.RawRecord) ([]domain.Reservation, CleanReport) {
	normalized := NormalizeAll(raws)
	kept, dropped := Filter(normalized, s.airports)
	clean, dups := Dedupe(kept)
	return clean, CleanReport{Input: len(raws), Dropped: dropped, Duplicates: dups}
}

// Run loads the batch, cleans it, confirms every surviving reservation and
// persists the result. The summary is returned even when err is non-nil.
func (s *CleaningService) Run(ctx context.Context, src domain.RecordSource) (domain.RunSummary, error) {
	sum := domain.RunSummary{RunID: uuid.NewString(), StartedAt: s.now().UTC()}
	logger := log.With().Str("run", sum.RunID).Logger()

	raws, err := src.Records(ctx)
	if err != nil {
		return sum, fmt.Errorf("load records: %w", err)
	}

	clean, rep := s.Clean(raws)
	sum.Input = rep.Input
	sum.Dropped = map[domain.DropReason]int(rep.Dropped)
	sum.Duplicates = rep.Duplicates
	sum.Clean = len(clean)
	logger.Info().
		Int("input", sum.Input).
		Int("dropped", rep.Dropped.Total()).
		Int("duplicates", sum.Duplicates).
		Int("clean", sum.Clean).
		Msg("cleaning completed")

	if s.sink != nil {
		if err := s.sink.Write(ctx, clean); err != nil {
			// downstream copy is best-effort; confirmation still proceeds
			logger.Warn().Err(err).Msg("writing cleaned records failed")
		}
	}

	dr, dispatchErr := s.dispatcher.Dispatch(ctx, clean)
	sum.Confirmed = dr.Confirmed
	sum.Failed = dr.Failed
	sum.FinishedAt = s.now().UTC()

	ev := logger.Info()
	if dispatchErr != nil {
		ev = logger.Error().Err(dispatchErr)
	}
	ev.Int("confirmed", sum.Confirmed).
		Int("failed", sum.Failed).
		Dur("elapsed", sum.FinishedAt.Sub(sum.StartedAt)).
		Msg("run completed")

	if err := s.persist(ctx, sum, clean, dr.Outcomes); err != nil {
		return sum, errors.Join(dispatchErr, err)
	}
	return sum, dispatchErr
}

func (s *CleaningService) persist(ctx context.Context, sum domain.RunSummary, clean []domain.Reservation, outcomes []domain.Outcome) error {
	if s.repo == nil {
		return nil
	}
	// a canceled run still records what it got through
	ctx = context.WithoutCancel(ctx)
	if err := s.repo.SaveRun(ctx, sum); err != nil {
		return fmt.Errorf("save run %s: %w", sum.RunID, err)
	}
	upsertErr := s.repo.UpsertReservations(ctx, sum.RunID, clean, outcomes)
	// rows written before a failure are already visible; evict them all
	if s.cache != nil {
		for _, r := range clean {
			_ = s.cache.Del(ctx, reservationKey(r.ID))
		}
	}
	if upsertErr != nil {
		return fmt.Errorf("upsert reservations for run %s: %w", sum.RunID, upsertErr)
	}
	return nil
}
