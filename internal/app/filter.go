package app

import (
	"strings"

	"github.com/rs/zerolog/log"

	"pnr_cleaner/internal/adapters/observability"
	"pnr_cleaner/internal/domain"
)

// FilterReport counts dropped records per reason.
type FilterReport map[domain.DropReason]int

func (r FilterReport) Total() int {
	n := 0
	for _, c := range r {
		n += c
	}
	return n
}

// Filter keeps records that satisfy the post-cleaning invariant, in input order.
// Each dropped record is counted under exactly one reason.
func Filter(rs []domain.Reservation, airports domain.AirportSet) ([]domain.Reservation, FilterReport) {
	rep := FilterReport{}
	kept := make([]domain.Reservation, 0, len(rs))
	for _, r := range rs {
		reason, ok := check(r, airports)
		if !ok {
			rep[reason]++
			observability.ObserveDrop(string(reason))
			log.Debug().Str("id", r.ID).Str("reason", string(reason)).Msg("record dropped")
			continue
		}
		kept = append(kept, r)
	}
	return kept, rep
}

func check(r domain.Reservation, airports domain.AirportSet) (domain.DropReason, bool) {
	switch {
	case r.AllNull:
		return domain.DropAllNull, false
	case blank(r.ID) || blank(r.PassengerName):
		return domain.DropMissingField, false
	case !airports.Has(r.Origin) || !airports.Has(r.Destination):
		return domain.DropInvalidAirport, false
	case !r.Fare.Valid:
		return domain.DropInvalidFare, false
	}
	return "", true
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// Dedupe keeps the first record seen for each id and returns how many later copies were dropped.
func Dedupe(rs []domain.Reservation) ([]domain.Reservation, int) {
	seen := make(map[string]struct{}, len(rs))
	out := make([]domain.Reservation, 0, len(rs))
	dups := 0
	for _, r := range rs {
		if _, ok := seen[r.ID]; ok {
			dups++
			log.Debug().Str("id", r.ID).Msg("duplicate dropped")
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	observability.ObserveDuplicates(dups)
	return out, dups
}
