package source

import (
	"context"
	"strings"

	"github.com/caretide/provdir/internal/config"
	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/pkg/places"
)

// PlacesSource corroborates the practice listing against Google Places.
// Business listings speak to the practice, not the person, so it observes
// address and phone only.
type PlacesSource struct {
	client places.Client
	guard  guard
}

// NewPlacesSource creates the places capability.
func NewPlacesSource(client places.Client, cfg config.SourcesConfig) *PlacesSource {
	return &PlacesSource{client: client, guard: newGuard(cfg)}
}

func (s *PlacesSource) Name() string { return model.SourcePlaces }

// Lookup searches for the practice by name and city and maps the best
// match to observations. No match yields no observations.
func (s *PlacesSource) Lookup(ctx context.Context, p model.Provider) ([]model.FieldObservation, error) {
	query := s.query(p)
	if query == "" {
		return nil, nil
	}

	resp, err := do(ctx, s.guard, s.Name(), func(ctx context.Context) (*places.TextSearchResponse, error) {
		return s.client.TextSearch(ctx, query)
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Places) == 0 {
		return nil, nil
	}

	// First result is the best match for an exact practice query.
	place := resp.Places[0]

	var out []model.FieldObservation
	out = obs(model.FieldAddress, s.Name(), place.FormattedAddress, out)
	out = obs(model.FieldPhone, s.Name(), place.NationalPhone, out)
	return out, nil
}

func (s *PlacesSource) query(p model.Provider) string {
	parts := make([]string, 0, 3)
	if p.PracticeName != "" {
		parts = append(parts, p.PracticeName)
	} else if p.LastName != "" {
		parts = append(parts, "Dr "+p.LastName)
	}
	if p.Address.City != "" {
		parts = append(parts, p.Address.City)
	}
	if p.Address.State != "" {
		parts = append(parts, p.Address.State)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " ")
}
