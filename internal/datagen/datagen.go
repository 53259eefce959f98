// Package datagen produces synthetic provider directories for local
// development and load testing. Generation is deterministic for a given
// seed.
package datagen

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/caretide/provdir/internal/model"
)

var (
	firstNames = []string{"Jane", "John", "Maria", "Wei", "Aisha", "Carlos", "Emily", "Raj", "Sofia", "Noah"}
	lastNames  = []string{"Smith", "Garcia", "Chen", "Patel", "Johnson", "Nguyen", "Brown", "Khan", "Lopez", "Miller"}
	specialties = []string{
		"Family Medicine", "Internal Medicine", "Cardiology", "Dermatology",
		"Pediatrics", "Orthopedic Surgery", "Psychiatry", "Neurology",
	}
	cities  = []string{"Springfield", "Riverton", "Fairview", "Georgetown", "Clinton", "Madison"}
	states  = []string{"IL", "OH", "TX", "CA", "NY", "WA"}
	streets = []string{"Main St", "Oak Ave", "Maple Dr", "Washington Blvd", "2nd St", "Park Rd"}
)

// Options controls generation.
type Options struct {
	Count int
	Seed  int64
	// DirtyRatio is the fraction of records given a deliberately stale
	// or missing contact field, in [0,1].
	DirtyRatio float64
}

// Generate builds a synthetic provider batch.
func Generate(opts Options) []model.Provider {
	if opts.Count <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	// A fixed epoch keeps equal seeds producing equal batches.
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	providers := make([]model.Provider, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		p := model.Provider{
			ID:        uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "provdir-%d-%d", opts.Seed, i)).String(),
			NPI:       fmt.Sprintf("1%09d", rng.Intn(1_000_000_000)),
			FirstName: pick(rng, firstNames),
			LastName:  pick(rng, lastNames),
			Specialty: pick(rng, specialties),
			Address: model.Address{
				Street1: fmt.Sprintf("%d %s", 1+rng.Intn(9999), pick(rng, streets)),
				City:    pick(rng, cities),
				State:   pick(rng, states),
				Zip:     fmt.Sprintf("%05d", 10000+rng.Intn(89999)),
			},
			Phone:     fmt.Sprintf("(%d) 555-%04d", 200+rng.Intn(700), rng.Intn(10000)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		p.PracticeName = fmt.Sprintf("%s %s Group", p.LastName, shortSpecialty(p.Specialty))

		if rng.Float64() < opts.DirtyRatio {
			dirty(rng, &p)
		}

		providers = append(providers, p)
	}
	return providers
}

// dirty degrades one contact field the way real directories drift:
// stale phones, moved practices, dropped practice names.
func dirty(rng *rand.Rand, p *model.Provider) {
	switch rng.Intn(3) {
	case 0:
		p.Phone = fmt.Sprintf("(%d) 555-%04d", 200+rng.Intn(700), rng.Intn(10000))
	case 1:
		p.Address.Street1 = fmt.Sprintf("%d %s", 1+rng.Intn(9999), pick(rng, streets))
	default:
		p.PracticeName = ""
	}
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func shortSpecialty(s string) string {
	switch s {
	case "Family Medicine", "Internal Medicine":
		return "Medical"
	case "Orthopedic Surgery":
		return "Orthopedics"
	default:
		return s
	}
}
