package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrPermanent marks a confirmation failure that must not be retried.
	ErrPermanent = errors.New("permanent confirmation failure")
	// ErrConfirmationUnavailable is returned when the confirmation service failed for the whole batch.
	ErrConfirmationUnavailable = errors.New("confirmation service unavailable")
	// ErrUnstorable marks a reservation outside the storage column bounds.
	ErrUnstorable = errors.New("reservation exceeds storage bounds")
)

type RecordSource interface {
	Records(ctx context.Context) ([]RawRecord, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, r Reservation) error
}

type ReservationRepository interface {
	// Write paths
	SaveRun(ctx context.Context, s RunSummary) error
	UpsertReservations(ctx context.Context, runID string, rs []Reservation, outcomes []Outcome) error

	// Read paths
	GetReservation(ctx context.Context, id string) (ReservationView, error)
	GetRun(ctx context.Context, id string) (RunView, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
