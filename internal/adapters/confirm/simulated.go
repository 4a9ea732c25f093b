package confirm

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"pnr_cleaner/internal/domain"
)

var ErrSimulatedOutage = errors.New("simulated transient failure")

// Simulated stands in for the confirmation API when none is configured:
// each call sleeps for latency and fails transiently with probability failRate.
type Simulated struct {
	latency  time.Duration
	failRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulated(latency time.Duration, failRate float64, seed uint64) *Simulated {
	return &Simulated{
		latency:  latency,
		failRate: failRate,
		rnd:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (s *Simulated) Confirm(ctx context.Context, r domain.Reservation) error {
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	s.mu.Lock()
	fail := s.rnd.Float64() < s.failRate
	s.mu.Unlock()
	if fail {
		return ErrSimulatedOutage
	}
	return nil
}
