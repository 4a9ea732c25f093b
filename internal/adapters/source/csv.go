package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"pnr_cleaner/internal/domain"
)

// header aliases; the first matching column wins
var columnAliases = map[string][]string{
	"id":             {"id", "pnr", "reservation_id"},
	"passenger_name": {"passenger_name", "passenger", "name"},
	"origin":         {"origin", "from", "departure_airport"},
	"destination":    {"destination", "to", "arrival_airport"},
	"fare":           {"fare", "price", "amount"},
	"status":         {"status", "booking_status"},
}

// CSVSource reads raw reservations from a header-keyed CSV file.
// Empty cells become absent (nil) fields; the fare is left as a string.
type CSVSource struct{ path string }

func NewCSV(path string) *CSVSource { return &CSVSource{path: path} }

func (s *CSVSource) Records(ctx context.Context) ([]domain.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()
	return ReadCSV(ctx, f)
}

func ReadCSV(ctx context.Context, r io.Reader) ([]domain.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows; missing cells read as absent
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := resolveColumns(header)
	if _, ok := idx["id"]; !ok {
		return nil, fmt.Errorf("csv header has no id/pnr column: %v", header)
	}

	var out []domain.RawRecord
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cell := func(col string) *string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return nil
			}
			v := strings.TrimSpace(row[i])
			if v == "" || strings.EqualFold(v, "null") || strings.EqualFold(v, "nan") {
				return nil
			}
			return &v
		}
		rec := domain.RawRecord{
			ID:            cell("id"),
			PassengerName: cell("passenger_name"),
			Origin:        cell("origin"),
			Destination:   cell("destination"),
			Status:        cell("status"),
		}
		if f := cell("fare"); f != nil {
			rec.Fare = *f
		}
		out = append(out, rec)
	}
	return out, nil
}

func resolveColumns(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	idx := make(map[string]int, len(columnAliases))
	for col, aliases := range columnAliases {
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				idx[col] = i
				break
			}
		}
	}
	return idx
}

// CSVSink writes the cleaned record set for downstream consumers.
type CSVSink struct{ path string }

func NewCSVSink(path string) *CSVSink { return &CSVSink{path: path} }

func (s *CSVSink) Write(ctx context.Context, rs []domain.Reservation) error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, rs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func WriteCSV(w io.Writer, rs []domain.Reservation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "passenger_name", "origin", "destination", "fare", "status"}); err != nil {
		return err
	}
	for _, r := range rs {
		if err := cw.Write([]string{r.ID, r.PassengerName, r.Origin, r.Destination, r.Fare.String(), string(r.Status)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
