// Package npi is a client for the CMS NPI registry API, the authoritative
// provider-identity source.
package npi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/caretide/provdir/internal/resilience"
)

const defaultBaseURL = "https://npiregistry.cms.hhs.gov/api"

// Client performs NPI registry lookups.
type Client interface {
	Lookup(ctx context.Context, number string) (*Record, error)
}

// Record is a single registry entry.
type Record struct {
	Number     string     `json:"number"`
	Basic      Basic      `json:"basic"`
	Taxonomies []Taxonomy `json:"taxonomies"`
	Addresses  []Address  `json:"addresses"`
}

// Basic holds the provider's personal details.
type Basic struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name"`
	Credential string `json:"credential"`
	Status     string `json:"status"`
}

// Taxonomy is a specialty classification.
type Taxonomy struct {
	Desc    string `json:"desc"`
	Primary bool   `json:"primary"`
	State   string `json:"state"`
	License string `json:"license"`
}

// Address is a practice or mailing address.
type Address struct {
	Purpose    string `json:"address_purpose"` // LOCATION or MAILING
	Address1   string `json:"address_1"`
	Address2   string `json:"address_2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Telephone  string `json:"telephone_number"`
	Fax        string `json:"fax_number"`
}

// Location returns the practice-location address, if present.
func (r *Record) Location() *Address {
	for i := range r.Addresses {
		if r.Addresses[i].Purpose == "LOCATION" {
			return &r.Addresses[i]
		}
	}
	if len(r.Addresses) > 0 {
		return &r.Addresses[0]
	}
	return nil
}

// PrimaryTaxonomy returns the primary specialty, if present.
func (r *Record) PrimaryTaxonomy() *Taxonomy {
	for i := range r.Taxonomies {
		if r.Taxonomies[i].Primary {
			return &r.Taxonomies[i]
		}
	}
	if len(r.Taxonomies) > 0 {
		return &r.Taxonomies[0]
	}
	return nil
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an NPI registry client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type lookupResponse struct {
	ResultCount int      `json:"result_count"`
	Results     []Record `json:"results"`
}

// Lookup fetches the registry record for an NPI number. A number with no
// registry entry returns (nil, nil): absence is data, not an error.
func (c *httpClient) Lookup(ctx context.Context, number string) (*Record, error) {
	q := url.Values{}
	q.Set("number", number)
	q.Set("version", "2.1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "npi: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "npi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "npi: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("npi: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result lookupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "npi: unmarshal response")
	}

	if result.ResultCount == 0 || len(result.Results) == 0 {
		return nil, nil
	}
	return &result.Results[0], nil
}
