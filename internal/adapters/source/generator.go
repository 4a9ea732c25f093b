package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"pnr_cleaner/internal/domain"
)

var (
	firstNames = []string{"Ana", "Bruno", "Chen", "Dara", "Elif", "Farah", "Goran", "Hana", "Ivan", "Jun", "Kofi", "Lena"}
	lastNames  = []string{"Silva", "Novak", "Okafor", "Tanaka", "Haddad", "Kowalski", "Moreau", "Rossi", "Singh", "Yilmaz"}
	badCodes   = []string{"XXX", "ZZ9", "J K", "lhr", "ABCD", ""}
	badFares   = []string{"invalid", "12abc", "N/A", "-", "1,200.00"}
	statuses   = []string{"Confirmed", "Cancelled", "Pending"}
)

// GeneratorConfig sets how many records are produced and which share of them is defective.
// Rates are fractions of Count; defective rows are disjoint, so each carries one defect.
type GeneratorConfig struct {
	Count           int
	Seed            uint64
	Airports        []string
	InvalidCodeRate float64
	BadFareRate     float64
	MissingRate     float64
	AllNullRate     float64
	DuplicateRate   float64
}

func DefaultGeneratorConfig(count int, seed uint64) GeneratorConfig {
	return GeneratorConfig{
		Count:           count,
		Seed:            seed,
		Airports:        domain.DefaultAirports,
		InvalidCodeRate: 0.12,
		BadFareRate:     0.05,
		MissingRate:     0.03,
		AllNullRate:     0.02,
		DuplicateRate:   0.05,
	}
}

// Generator synthesizes raw reservations. Output is deterministic for a given config.
type Generator struct{ cfg GeneratorConfig }

func NewGenerator(cfg GeneratorConfig) *Generator {
	if len(cfg.Airports) < 2 {
		cfg.Airports = domain.DefaultAirports
	}
	return &Generator{cfg: cfg}
}

func (g *Generator) Records(ctx context.Context) ([]domain.RawRecord, error) {
	n := g.cfg.Count
	rnd := rand.New(rand.NewPCG(g.cfg.Seed, g.cfg.Seed+1))

	nInvalid := share(n, g.cfg.InvalidCodeRate)
	nFare := share(n, g.cfg.BadFareRate)
	nMissing := share(n, g.cfg.MissingRate)
	nNull := share(n, g.cfg.AllNullRate)
	nDup := share(n, g.cfg.DuplicateRate)
	if total := nInvalid + nFare + nMissing + nNull + nDup; total > n {
		return nil, fmt.Errorf("defect rates add up to %d rows, more than count %d", total, n)
	}

	out := make([]domain.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.valid(rnd, i))
	}

	// assign defects to disjoint positions
	order := rnd.Perm(n)
	next := 0
	take := func(k int) []int {
		s := order[next : next+k]
		next += k
		return s
	}
	for _, i := range take(nInvalid) {
		bad := pick(rnd, badCodes)
		if rnd.IntN(2) == 0 {
			out[i].Origin = &bad
		} else {
			out[i].Destination = &bad
		}
	}
	for _, i := range take(nFare) {
		out[i].Fare = pick(rnd, badFares)
	}
	for _, i := range take(nMissing) {
		if rnd.IntN(2) == 0 {
			out[i].ID = nil
		} else {
			out[i].PassengerName = nil
		}
	}
	for _, i := range take(nNull) {
		out[i] = domain.RawRecord{}
	}
	// a duplicate copies the id of a valid row and perturbs other fields
	dups := take(nDup)
	validRows := order[next:]
	for _, i := range dups {
		if len(validRows) == 0 {
			break
		}
		src := out[validRows[rnd.IntN(len(validRows))]]
		cp := g.valid(rnd, i)
		cp.ID = src.ID
		out[i] = cp
	}
	return out, nil
}

func (g *Generator) valid(rnd *rand.Rand, i int) domain.RawRecord {
	id := pnr(rnd, i)
	name := pick(rnd, firstNames) + " " + pick(rnd, lastNames)
	o := rnd.IntN(len(g.cfg.Airports))
	d := (o + 1 + rnd.IntN(len(g.cfg.Airports)-1)) % len(g.cfg.Airports)
	origin, dest := g.cfg.Airports[o], g.cfg.Airports[d]
	status := pick(rnd, statuses)

	var fare any = float64(rnd.IntN(150000)) / 100
	if rnd.IntN(3) == 0 {
		fare = fmt.Sprintf("%.2f", fare)
	}
	return domain.RawRecord{ID: &id, PassengerName: &name, Origin: &origin, Destination: &dest, Fare: fare, Status: &status}
}

// pnr is unique per index: two letters plus a base-36 tail derived from i.
func pnr(rnd *rand.Rand, i int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	tail := strings.ToUpper(strconv.FormatInt(int64(i), 36))
	if len(tail) < 4 {
		tail = strings.Repeat("0", 4-len(tail)) + tail
	}
	return string([]byte{letters[rnd.IntN(26)], letters[rnd.IntN(26)]}) + tail
}

func pick[T any](rnd *rand.Rand, xs []T) T { return xs[rnd.IntN(len(xs))] }

func share(n int, rate float64) int {
	if rate <= 0 {
		return 0
	}
	return int(float64(n)*rate + 0.5)
}
