package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretide/provdir/internal/config"
	"github.com/caretide/provdir/internal/model"
	"github.com/caretide/provdir/internal/scrape"
	"github.com/caretide/provdir/pkg/npi"
	"github.com/caretide/provdir/pkg/places"
)

func fastSources() config.SourcesConfig {
	return config.SourcesConfig{
		TimeoutSecs: 5,
		RetryMax:    0,
		RatePerSec:  1000,
		RateBurst:   10,
	}
}

func sampleProvider() model.Provider {
	return model.Provider{
		ID:           "p-1",
		NPI:          "1234567890",
		FirstName:    "Jane",
		LastName:     "Smith",
		Specialty:    "Cardiology",
		PracticeName: "Smith Cardiology Group",
		Address: model.Address{
			Street1: "100 Main St",
			City:    "Springfield",
			State:   "IL",
			Zip:     "62701",
		},
		Phone: "217-555-0100",
	}
}

type fakeNPI struct {
	record *npi.Record
	err    error
	number string
}

func (f *fakeNPI) Lookup(_ context.Context, number string) (*npi.Record, error) {
	f.number = number
	return f.record, f.err
}

func TestRegistrySourceMapsRecord(t *testing.T) {
	client := &fakeNPI{
		record: &npi.Record{
			Number: "1234567890",
			Basic:  npi.Basic{FirstName: "Jane", MiddleName: "A", LastName: "Smith"},
			Taxonomies: []npi.Taxonomy{
				{Desc: "Internal Medicine", Primary: false},
				{Desc: "Cardiovascular Disease", Primary: true, License: "IL.36.012345", State: "IL"},
			},
			Addresses: []npi.Address{
				{Purpose: "MAILING", Address1: "PO Box 9", City: "Chicago", State: "IL", PostalCode: "60601"},
				{Purpose: "LOCATION", Address1: "100 Main St", City: "Springfield", State: "IL", PostalCode: "62701", Telephone: "217-555-0100"},
			},
		},
	}
	src := NewRegistrySource(client, fastSources())
	assert.Equal(t, model.SourceRegistry, src.Name())

	observations, err := src.Lookup(context.Background(), sampleProvider())
	require.NoError(t, err)
	assert.Equal(t, "1234567890", client.number)

	byField := map[string]string{}
	for _, o := range observations {
		assert.Equal(t, model.SourceRegistry, o.Source)
		assert.False(t, o.ObservedAt.IsZero())
		byField[o.Field] = o.Value
	}
	assert.Equal(t, "Jane A Smith", byField[model.FieldName])
	assert.Equal(t, "100 Main St, Springfield, IL 62701", byField[model.FieldAddress])
	assert.Equal(t, "217-555-0100", byField[model.FieldPhone])
	assert.Equal(t, "Cardiovascular Disease", byField[model.FieldSpecialty])
	assert.Equal(t, "Cardiovascular Disease", byField[model.FieldCertifications])
}

func TestRegistrySourceNoRecord(t *testing.T) {
	src := NewRegistrySource(&fakeNPI{}, fastSources())

	observations, err := src.Lookup(context.Background(), sampleProvider())
	require.NoError(t, err)
	assert.Nil(t, observations)
}

func TestRegistrySourceError(t *testing.T) {
	src := NewRegistrySource(&fakeNPI{err: eris.New("registry down")}, fastSources())

	observations, err := src.Lookup(context.Background(), sampleProvider())
	require.Error(t, err)
	assert.Nil(t, observations)
}

type fakePlaces struct {
	resp  *places.TextSearchResponse
	err   error
	query string
}

func (f *fakePlaces) TextSearch(_ context.Context, query string) (*places.TextSearchResponse, error) {
	f.query = query
	return f.resp, f.err
}

func TestPlacesSourceMapsBestMatch(t *testing.T) {
	client := &fakePlaces{
		resp: &places.TextSearchResponse{
			Places: []places.Place{
				{
					DisplayName:      places.DisplayName{Text: "Smith Cardiology Group"},
					FormattedAddress: "100 Main St, Springfield, IL 62701",
					NationalPhone:    "(217) 555-0100",
				},
				{
					DisplayName:      places.DisplayName{Text: "Other Clinic"},
					FormattedAddress: "1 Elsewhere Ave",
				},
			},
		},
	}
	src := NewPlacesSource(client, fastSources())
	assert.Equal(t, model.SourcePlaces, src.Name())

	observations, err := src.Lookup(context.Background(), sampleProvider())
	require.NoError(t, err)
	assert.Equal(t, "Smith Cardiology Group Springfield IL", client.query)

	require.Len(t, observations, 2)
	byField := map[string]string{}
	fields := make([]string, 0, len(observations))
	for _, o := range observations {
		assert.Equal(t, model.SourcePlaces, o.Source)
		byField[o.Field] = o.Value
		fields = append(fields, o.Field)
	}
	// Business listings never speak to the clinician's name or specialty.
	assert.NotContains(t, fields, model.FieldName)
	assert.NotContains(t, fields, model.FieldSpecialty)
	assert.Equal(t, "100 Main St, Springfield, IL 62701", byField[model.FieldAddress])
	assert.Equal(t, "(217) 555-0100", byField[model.FieldPhone])
}

func TestPlacesSourceQueryFallsBackToLastName(t *testing.T) {
	client := &fakePlaces{resp: &places.TextSearchResponse{}}
	src := NewPlacesSource(client, fastSources())

	p := sampleProvider()
	p.PracticeName = ""
	observations, err := src.Lookup(context.Background(), p)
	require.NoError(t, err)
	assert.Nil(t, observations)
	assert.Equal(t, "Dr Smith Springfield IL", client.query)
}

func TestPlacesSourceNothingToQuery(t *testing.T) {
	client := &fakePlaces{}
	src := NewPlacesSource(client, fastSources())

	observations, err := src.Lookup(context.Background(), model.Provider{ID: "p-2", NPI: "222"})
	require.NoError(t, err)
	assert.Nil(t, observations)
	assert.Empty(t, client.query)
}

func TestPlacesSourceError(t *testing.T) {
	src := NewPlacesSource(&fakePlaces{err: eris.New("quota exceeded")}, fastSources())

	observations, err := src.Lookup(context.Background(), sampleProvider())
	require.Error(t, err)
	assert.Nil(t, observations)
}

func TestWebsiteSourceMapsContact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Smith Cardiology Group | Home</title></head>
<body><p>Call us at (217) 555-0100.</p>
<p>Visit us at 100 Main Street, Springfield, IL 62701 for appointments and follow-up visits.</p>
<p>We provide comprehensive cardiovascular care for the Springfield community and surrounding areas.</p>
</body></html>`))
	}))
	defer server.Close()

	p := sampleProvider()
	p.Website = server.URL

	src := NewWebsiteSource(scrape.NewScraper("provdir-test/1.0", 1<<20), fastSources())
	assert.Equal(t, model.SourceWebsite, src.Name())

	observations, err := src.Lookup(context.Background(), p)
	require.NoError(t, err)

	byField := map[string]string{}
	for _, o := range observations {
		assert.Equal(t, model.SourceWebsite, o.Source)
		byField[o.Field] = o.Value
	}
	assert.Equal(t, "(217) 555-0100", byField[model.FieldPhone])
	assert.Contains(t, byField[model.FieldAddress], "100 Main Street")
	assert.Equal(t, "Smith Cardiology Group", byField[model.FieldPracticeName])
}

func TestWebsiteSourceNoWebsite(t *testing.T) {
	src := NewWebsiteSource(scrape.NewScraper("provdir-test/1.0", 1<<20), fastSources())

	observations, err := src.Lookup(context.Background(), sampleProvider())
	require.NoError(t, err)
	assert.Nil(t, observations)
}

func TestWebsiteSourceUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := sampleProvider()
	p.Website = server.URL

	src := NewWebsiteSource(scrape.NewScraper("provdir-test/1.0", 1<<20), fastSources())

	observations, err := src.Lookup(context.Background(), p)
	require.Error(t, err)
	assert.Nil(t, observations)
}
