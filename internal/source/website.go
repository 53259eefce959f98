package source

import (
	"context"

	"github.com/caretide/provdir/internal/config"
	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/scrape"
)

// WebsiteSource corroborates the practice's own site. Self-reported, often
// absent or unreachable; it observes phone and address when published.
type WebsiteSource struct {
	scraper *scrape.Scraper
	guard   guard
}

// NewWebsiteSource creates the website capability.
func NewWebsiteSource(scraper *scrape.Scraper, cfg config.SourcesConfig) *WebsiteSource {
	return &WebsiteSource{scraper: scraper, guard: newGuard(cfg)}
}

func (s *WebsiteSource) Name() string { return model.SourceWebsite }

// Lookup scrapes the provider's website. A record with no website yields
// no observations without touching the network.
func (s *WebsiteSource) Lookup(ctx context.Context, p model.Provider) ([]model.FieldObservation, error) {
	if p.Website == "" {
		return nil, nil
	}

	contact, err := do(ctx, s.guard, s.Name(), func(ctx context.Context) (*scrape.Contact, error) {
		return s.scraper.Fetch(ctx, p.Website)
	})
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, nil
	}

	var out []model.FieldObservation
	out = obs(model.FieldPhone, s.Name(), contact.Phone, out)
	out = obs(model.FieldAddress, s.Name(), contact.AddressLine, out)
	out = obs(model.FieldPracticeName, s.Name(), contact.PracticeName, out)
	return out, nil
}
