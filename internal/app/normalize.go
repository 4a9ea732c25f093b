package app

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"pnr_cleaner/internal/domain"
)

// Normalize coerces the fare of a raw record and copies the remaining fields.
// It never fails: anything that is not a complete, finite, non-negative number
// becomes the invalid fare marker.
func Normalize(raw domain.RawRecord) domain.Reservation {
	return domain.Reservation{
		ID:            deref(raw.ID),
		PassengerName: deref(raw.PassengerName),
		Origin:        deref(raw.Origin),
		Destination:   deref(raw.Destination),
		Fare:          parseFare(raw.Fare),
		Status:        domain.ParseStatus(raw.Status),
		AllNull:       raw.IsAllNull(),
	}
}

func NormalizeAll(raws []domain.RawRecord) []domain.Reservation {
	out := make([]domain.Reservation, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r))
	}
	return out
}

func parseFare(v any) domain.Fare {
	var d decimal.Decimal
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return domain.InvalidFare()
		}
		d = decimal.NewFromFloat(x)
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.InvalidFare()
		}
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return domain.InvalidFare()
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return domain.InvalidFare()
		}
		d = parsed
	default:
		return domain.InvalidFare()
	}
	if d.IsNegative() {
		return domain.InvalidFare()
	}
	return domain.Fare{Amount: d, Valid: true}
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
