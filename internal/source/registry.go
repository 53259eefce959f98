package source

import (
	"context"
	"strings"

	"github.com/caretide/provdir/internal/config"
	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/pkg/npi"
)

// RegistrySource corroborates provider identity against the NPI registry,
// the authoritative government source. It observes name, address, phone,
// and specialty.
type RegistrySource struct {
	client npi.Client
	guard  guard
}

// NewRegistrySource creates the registry capability.
func NewRegistrySource(client npi.Client, cfg config.SourcesConfig) *RegistrySource {
	return &RegistrySource{client: client, guard: newGuard(cfg)}
}

func (s *RegistrySource) Name() string { return model.SourceRegistry }

// Lookup fetches the registry record for the provider's NPI and maps it to
// field observations. An NPI with no registry entry yields no observations.
func (s *RegistrySource) Lookup(ctx context.Context, p model.Provider) ([]model.FieldObservation, error) {
	rec, err := do(ctx, s.guard, s.Name(), func(ctx context.Context) (*npi.Record, error) {
		return s.client.Lookup(ctx, p.NPI)
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	var out []model.FieldObservation

	name := strings.TrimSpace(rec.Basic.FirstName + " " + rec.Basic.MiddleName + " " + rec.Basic.LastName)
	name = strings.Join(strings.Fields(name), " ")
	out = obs(model.FieldName, s.Name(), name, out)

	if loc := rec.Location(); loc != nil {
		addr := model.Address{
			Street1: loc.Address1,
			Street2: loc.Address2,
			City:    loc.City,
			State:   loc.State,
			Zip:     loc.PostalCode,
		}
		out = obs(model.FieldAddress, s.Name(), addr.String(), out)
		out = obs(model.FieldPhone, s.Name(), loc.Telephone, out)
	}

	if tax := rec.PrimaryTaxonomy(); tax != nil {
		out = obs(model.FieldSpecialty, s.Name(), tax.Desc, out)
	}

	// Licensed taxonomies double as board certifications.
	var certs []string
	for _, tax := range rec.Taxonomies {
		if tax.License != "" {
			certs = append(certs, tax.Desc)
		}
	}
	out = obs(model.FieldCertifications, s.Name(), strings.Join(certs, "; "), out)

	return out, nil
}
