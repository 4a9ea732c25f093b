package app

import (
	"context"
	"fmt"
	"time"

	"pnr_cleaner/internal/domain"
)

type QueryService struct {
	repo     domain.ReservationRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReservationRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func reservationKey(id string) string { return fmt.Sprintf("reservation:%s", id) }
func runKey(id string) string         { return fmt.Sprintf("run:%s", id) }

func (s *QueryService) GetReservation(ctx context.Context, id string) (domain.ReservationView, error) {
	key := reservationKey(id)
	var rv domain.ReservationView
	if ok, _ := s.cache.Get(ctx, key, &rv); ok {
		return rv, nil
	}
	rv, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return domain.ReservationView{}, err
	}
	_ = s.cache.Set(ctx, key, rv, int(s.cacheTTL.Seconds()))
	return rv, nil
}

// GetRun serves run summaries; a summary never changes once written.
func (s *QueryService) GetRun(ctx context.Context, id string) (domain.RunView, error) {
	key := runKey(id)
	var out domain.RunView
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	rv, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return domain.RunView{}, err
	}
	out = copyRunView(rv)
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// copyRunView avoids aliasing the repo's map (a cached value must not change under callers).
func copyRunView(in domain.RunView) domain.RunView {
	out := in
	if in.Dropped != nil {
		out.Dropped = make(map[string]int, len(in.Dropped))
		for k, v := range in.Dropped {
			out.Dropped[k] = v
		}
	}
	return out
}
