package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RawRecord is a reservation as delivered by a record source.
// A nil pointer means the field was absent.
type RawRecord struct {
	ID            *string
	PassengerName *string
	Origin        *string
	Destination   *string
	Fare          any // nil, float64, int, int64 or string
	Status        *string
}

// IsAllNull reports whether every field of the record is absent.
func (r RawRecord) IsAllNull() bool {
	return r.ID == nil && r.PassengerName == nil && r.Origin == nil &&
		r.Destination == nil && r.Fare == nil && r.Status == nil
}

// Fare is a parsed fare. Valid=false marks an unparseable value.
type Fare struct {
	Amount decimal.Decimal
	Valid  bool
}

func InvalidFare() Fare { return Fare{} }

func (f Fare) String() string {
	if !f.Valid {
		return "invalid"
	}
	return f.Amount.String()
}

type Status string

const (
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
	StatusPending   Status = "Pending"
	StatusUnknown   Status = "Unknown"
)

// ParseStatus maps a raw status case-insensitively; nil or unrecognized values yield StatusUnknown.
func ParseStatus(s *string) Status {
	if s == nil {
		return StatusUnknown
	}
	switch strings.ToLower(strings.TrimSpace(*s)) {
	case "confirmed":
		return StatusConfirmed
	case "cancelled", "canceled":
		return StatusCancelled
	case "pending":
		return StatusPending
	default:
		return StatusUnknown
	}
}

// Reservation is a normalized record. String fields are empty when the raw value was absent.
type Reservation struct {
	ID            string
	PassengerName string
	Origin        string
	Destination   string
	Fare          Fare
	Status        Status
	AllNull       bool
}

// Column bounds of the reservations table. Cleaning does not enforce them;
// the repository skips records that exceed them.
const (
	MaxIDLen      = 64
	MaxNameLen    = 512
	MaxAirportLen = 8
	FareScale     = 6
)

// MaxFare is the exclusive upper bound of a storable fare (DECIMAL(24,6)).
var MaxFare = decimal.New(1, 18)

// AirportSet is the whitelist of known IATA codes.
type AirportSet map[string]struct{}

func NewAirportSet(codes ...string) AirportSet {
	s := make(AirportSet, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			s[c] = struct{}{}
		}
	}
	return s
}

func (s AirportSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

var DefaultAirports = []string{
	"ATL", "LAX", "ORD", "DFW", "DEN", "JFK", "SFO", "SEA", "MIA", "BOS",
	"LHR", "CDG", "FRA", "AMS", "DXB", "HND", "NRT", "SIN", "HKG", "SYD",
}
