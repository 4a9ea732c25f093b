package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"

	"pnr_cleaner/internal/adapters/observability"
	"pnr_cleaner/internal/domain"
)

type DispatchConfig struct {
	Workers     int
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// SystemicFailureRatio is the share of permanently failed records at or
	// above which the whole run is reported as failed.
	SystemicFailureRatio float64
}

func (c DispatchConfig) withDefaults() DispatchConfig {
	if c.Workers <= 0 {
		c.Workers = 5
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 200 * time.Millisecond
	}
	if c.BackoffMax < c.BackoffBase {
		c.BackoffMax = 5 * time.Second
	}
	if c.SystemicFailureRatio <= 0 || c.SystemicFailureRatio > 1 {
		c.SystemicFailureRatio = 1
	}
	return c
}

type DispatchReport struct {
	Outcomes  []domain.Outcome // same order as the dispatched records
	Confirmed int
	Failed    int
}

type Dispatcher struct {
	confirmer domain.Confirmer
	cfg       DispatchConfig
}

func NewDispatcher(c domain.Confirmer, cfg DispatchConfig) *Dispatcher {
	return &Dispatcher{confirmer: c, cfg: cfg.withDefaults()}
}

// Dispatch confirms every reservation on a bounded worker pool. Failures of one
// record never stop the others. The report is always complete; the error is
// non-nil when ctx was canceled or the failure ratio reached the systemic threshold.
func (d *Dispatcher) Dispatch(ctx context.Context, rs []domain.Reservation) (DispatchReport, error) {
	outcomes := make([]domain.Outcome, len(rs))
	for i, r := range rs {
		outcomes[i] = domain.Outcome{
			ReservationID: r.ID,
			State:         domain.StatePending,
			History:       []domain.ConfirmState{domain.StatePending},
		}
	}

	sem := semaphore.NewWeighted(int64(d.cfg.Workers))
	var wg sync.WaitGroup
	var runErr error

	for i := range rs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			runErr = err
			for j := i; j < len(rs); j++ {
				outcomes[j].Err = err
				outcomes[j].Transition(domain.StatePermanentlyFailed)
			}
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			d.confirmOne(ctx, rs[i], &outcomes[i])
		}(i)
	}
	wg.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	rep := DispatchReport{Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.State {
		case domain.StateConfirmed:
			rep.Confirmed++
		case domain.StatePermanentlyFailed:
			rep.Failed++
		}
	}

	if runErr != nil {
		return rep, runErr
	}
	if n := len(rs); n > 0 && float64(rep.Failed)/float64(n) >= d.cfg.SystemicFailureRatio {
		return rep, fmt.Errorf("%w: %d of %d confirmations failed", domain.ErrConfirmationUnavailable, rep.Failed, n)
	}
	return rep, nil
}

// confirmOne owns out exclusively for the duration of the call.
func (d *Dispatcher) confirmOne(ctx context.Context, r domain.Reservation, out *domain.Outcome) {
	policy := retry.NewExponential(d.cfg.BackoffBase)
	policy = retry.WithJitterPercent(20, policy)
	policy = retry.WithCappedDuration(d.cfg.BackoffMax, policy)
	policy = retry.WithMaxRetries(uint64(d.cfg.MaxRetries), policy) // #nosec G115 -- clamped to >= 0

	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		wait, stop := policy.Next()
		if !stop {
			out.Retries++
			out.Transition(domain.StateRetryScheduled)
			observability.ObserveRetry()
			log.Warn().Str("id", r.ID).Int("attempt", out.Attempts).Dur("backoff", wait).
				Err(out.Err).Msg("confirmation retry scheduled")
		}
		return wait, stop
	})

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		out.Attempts++
		out.Transition(domain.StateAttempting)
		observability.ObserveAttempt()

		err := d.confirmer.Confirm(ctx, r)
		out.Err = err
		if err == nil {
			out.Transition(domain.StateSucceeded)
			return nil
		}
		if errors.Is(err, domain.ErrPermanent) || ctx.Err() != nil {
			return err
		}
		return retry.RetryableError(err)
	})

	if err != nil {
		out.Err = err
		out.Transition(domain.StatePermanentlyFailed)
		observability.ObserveOutcome(string(domain.StatePermanentlyFailed))
		log.Error().Str("id", r.ID).Int("attempts", out.Attempts).Err(err).Msg("confirmation permanently failed")
		return
	}
	out.Err = nil
	out.Transition(domain.StateConfirmed)
	observability.ObserveOutcome(string(domain.StateConfirmed))
	log.Debug().Str("id", r.ID).Int("attempts", out.Attempts).Msg("reservation confirmed")
}
