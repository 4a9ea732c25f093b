package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"pnr_cleaner/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) SaveRun(ctx context.Context, s domain.RunSummary) error {
	dropped := make(map[string]int, len(s.Dropped))
	for k, v := range s.Dropped {
		dropped[string(k)] = v
	}
	b, err := json.Marshal(dropped)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertRunSQL,
		s.RunID,
		s.StartedAt,
		s.FinishedAt,
		s.Input,
		string(b),
		s.Duplicates,
		s.Clean,
		s.Confirmed,
		s.Failed,
	)
	return err
}

// UpsertReservations stores the clean set with each record's confirmation outcome.
// outcomes[i] belongs to rs[i]; a missing outcome stores the record as pending.
// Records outside the column bounds are skipped and reported with ErrUnstorable;
// a failed batch does not stop the following ones.
func (r *Repo) UpsertReservations(ctx context.Context, runID string, rs []domain.Reservation, outcomes []domain.Outcome) error {
	var errs []error
	rows := make([]reservationRow, 0, len(rs))
	for i, rv := range rs {
		if err := storable(rv); err != nil {
			errs = append(errs, fmt.Errorf("pnr %.16q: %w", rv.ID, err))
			continue
		}
		row := reservationRow{res: rv, state: domain.StatePending}
		if i < len(outcomes) {
			o := outcomes[i]
			row.state, row.attempts = o.State, o.Attempts
			if o.Err != nil {
				row.lastErr = o.Err.Error()
			}
		}
		rows = append(rows, row)
	}

	for start := 0; start < len(rows); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(rows))
		if err := r.upsertBatch(ctx, runID, rows[start:end]); err != nil {
			errs = append(errs, fmt.Errorf("rows %d-%d: %w", start, end-1, err))
		}
	}
	return errors.Join(errs...)
}

type reservationRow struct {
	res      domain.Reservation
	state    domain.ConfirmState
	attempts int
	lastErr  string
}

func storable(r domain.Reservation) error {
	switch {
	case !utf8.ValidString(r.ID) || utf8.RuneCountInString(r.ID) > domain.MaxIDLen:
		return fmt.Errorf("%w: pnr must be valid UTF-8 of at most %d characters", domain.ErrUnstorable, domain.MaxIDLen)
	case !utf8.ValidString(r.PassengerName) || utf8.RuneCountInString(r.PassengerName) > domain.MaxNameLen:
		return fmt.Errorf("%w: passenger name must be valid UTF-8 of at most %d characters", domain.ErrUnstorable, domain.MaxNameLen)
	case len(r.Origin) > domain.MaxAirportLen || len(r.Destination) > domain.MaxAirportLen:
		return fmt.Errorf("%w: airport code longer than %d", domain.ErrUnstorable, domain.MaxAirportLen)
	case r.Fare.Amount.GreaterThanOrEqual(domain.MaxFare):
		return fmt.Errorf("%w: fare %s out of range", domain.ErrUnstorable, r.Fare)
	}
	return nil
}

func (r *Repo) upsertBatch(ctx context.Context, runID string, rows []reservationRow) error {
	values := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*10) // 10 params per row
	for _, row := range rows {
		var lastErr any
		if row.lastErr != "" {
			lastErr = row.lastErr
		}
		values = append(values, "(?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			row.res.ID,
			row.res.PassengerName,
			row.res.Origin,
			row.res.Destination,
			row.res.Fare.Amount.Round(domain.FareScale).String(),
			string(row.res.Status),
			string(row.state),
			row.attempts,
			lastErr,
			runID,
		)
	}
	sqlStr := upsertReservationsPrefix + strings.Join(values, ",") + upsertReservationsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) GetReservation(ctx context.Context, id string) (domain.ReservationView, error) {
	var v domain.ReservationView
	var fare decimal.Decimal
	var lastErr sql.NullString
	err := r.db.QueryRowContext(ctx, getReservationSQL, id).Scan(
		&v.ID,
		&v.PassengerName,
		&v.Origin,
		&v.Destination,
		&fare,
		&v.Status,
		&v.Confirmation,
		&v.Attempts,
		&lastErr,
		&v.RunID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ReservationView{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ReservationView{}, err
	}
	v.Fare = fare.String()
	if lastErr.Valid {
		v.LastError = lastErr.String
	}
	return v, nil
}

func (r *Repo) GetRun(ctx context.Context, id string) (domain.RunView, error) {
	var v domain.RunView
	var dropped []byte
	err := r.db.QueryRowContext(ctx, getRunSQL, id).Scan(
		&v.ID,
		&v.StartedAt,
		&v.FinishedAt,
		&v.Input,
		&dropped,
		&v.Duplicates,
		&v.Clean,
		&v.Confirmed,
		&v.Failed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunView{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.RunView{}, err
	}
	if len(dropped) > 0 {
		if err := json.Unmarshal(dropped, &v.Dropped); err != nil {
			return domain.RunView{}, fmt.Errorf("decode dropped counts: %w", err)
		}
	}
	return v, nil
}
