// Package validate implements the data validation agent. It queries every
// configured external source concurrently, compares what they report
// against the directory's current record, and produces a per-field
// agreement verdict.
package validate

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/normalize"
	"github.com/caretide/provdir/internal/source"
)

// Agent cross-checks directory records against external sources.
type Agent struct {
	sources []source.Capability
}

// NewAgent creates a validation agent over the given sources.
func NewAgent(sources ...source.Capability) *Agent {
	return &Agent{sources: sources}
}

// Validate queries all sources for one provider and builds the validation
// report. A source that fails is recorded under SourceErrors and its
// fields simply go uncorroborated; only context cancellation aborts the
// whole validation. The returned observations include enrichment fields
// the sources volunteered, for the enrichment agent to consume.
func (a *Agent) Validate(ctx context.Context, p model.Provider) (*model.ValidationReport, []model.FieldObservation, error) {
	if p.ID == "" {
		return nil, nil, eris.New("validate: provider has no id")
	}

	report := &model.ValidationReport{
		ProviderID:   p.ID,
		NPI:          p.NPI,
		Fields:       make(map[string]model.FieldValidation, len(model.ValidatedFields)),
		SourceErrors: make(map[string]string),
		ValidatedAt:  time.Now().UTC(),
	}

	var (
		mu           sync.Mutex
		observations []model.FieldObservation
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range a.sources {
		g.Go(func() error {
			obs, err := safeLookup(gctx, src, p)

			mu.Lock()
			defer mu.Unlock()
			report.SourcesQueried = append(report.SourcesQueried, src.Name())
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("source lookup failed",
					zap.String("provider_id", p.ID),
					zap.String("source", src.Name()),
					zap.Error(err))
				report.SourceErrors[src.Name()] = err.Error()
				return nil
			}
			observations = append(observations, obs...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "validate: lookup sources")
	}

	byField := make(map[string][]model.FieldObservation)
	for _, o := range observations {
		byField[o.Field] = append(byField[o.Field], o)
	}

	for _, field := range model.ValidatedFields {
		report.Fields[field] = a.judge(field, inputValue(p, field), byField[field])
	}

	return report, observations, nil
}

// safeLookup runs one source lookup, converting a panic into an error so
// a misbehaving source degrades like any other source failure instead of
// taking down the run.
func safeLookup(ctx context.Context, src source.Capability, p model.Provider) (obs []model.FieldObservation, err error) {
	defer func() {
		if r := recover(); r != nil {
			obs = nil
			err = eris.Errorf("validate: source %s panicked: %v", src.Name(), r)
		}
	}()
	return src.Lookup(ctx, p)
}

// judge classifies one field. No external observation means unverified;
// the record's own value corroborates nothing on its own. With
// observations present, the field is concordant only when every
// observation agrees with the record value and with each other.
func (a *Agent) judge(field, input string, external []model.FieldObservation) model.FieldValidation {
	fv := model.FieldValidation{Field: field}

	if len(external) == 0 {
		fv.Agreement = model.AgreementUnverified
		return fv
	}

	if input != "" {
		fv.Observations = append(fv.Observations, model.FieldObservation{
			Field:  field,
			Source: model.SourceInput,
			Value:  input,
		})
	}
	fv.Observations = append(fv.Observations, external...)

	fv.Agreement = model.AgreementConcordant
	for i := 0; i < len(fv.Observations); i++ {
		for j := i + 1; j < len(fv.Observations); j++ {
			if !normalize.Equal(field, fv.Observations[i].Value, fv.Observations[j].Value) {
				fv.Agreement = model.AgreementConflicting
				return fv
			}
		}
	}
	return fv
}

// inputValue reads the record's current value for a validated field.
func inputValue(p model.Provider, field string) string {
	switch field {
	case model.FieldName:
		return p.FullName()
	case model.FieldAddress:
		if p.Address == (model.Address{}) {
			return ""
		}
		return p.Address.String()
	case model.FieldPhone:
		return p.Phone
	case model.FieldSpecialty:
		return p.Specialty
	default:
		return ""
	}
}
