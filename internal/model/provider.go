// Package model defines the core data types shared across the validation
// pipeline: providers, field observations, scores, discrepancies, tickets,
// and run reports.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Address is a provider's practice address.
type Address struct {
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
}

// String renders the address as a single comparable line.
func (a Address) String() string {
	parts := []string{a.Street1}
	if a.Street2 != "" {
		parts = append(parts, a.Street2)
	}
	parts = append(parts, a.City+", "+a.State+" "+a.Zip)
	return strings.Join(parts, ", ")
}

// Provider is a healthcare provider directory record. A record is immutable
// for the duration of a pipeline run; only the directory agent mutates it,
// and only on an auto-update disposition.
type Provider struct {
	ID  string `json:"id"`
	NPI string `json:"npi"`

	FirstName   string   `json:"first_name"`
	MiddleName  string   `json:"middle_name,omitempty"`
	LastName    string   `json:"last_name"`
	Credentials []string `json:"credentials,omitempty"`
	Specialty   string   `json:"specialty"`

	PracticeName string  `json:"practice_name"`
	Address      Address `json:"address"`
	Phone        string  `json:"phone"`
	Fax          string  `json:"fax,omitempty"`
	Email        string  `json:"email,omitempty"`
	Website      string  `json:"website,omitempty"`

	LicenseNumber string `json:"license_number,omitempty"`
	LicenseState  string `json:"license_state,omitempty"`
	LicenseStatus string `json:"license_status,omitempty"`

	Affiliations   []string `json:"hospital_affiliations,omitempty"`
	Education      []string `json:"education,omitempty"`
	Certifications []string `json:"certifications,omitempty"`

	LastValidated *time.Time `json:"last_validated,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewProvider creates a provider with a fresh ID and timestamps.
func NewProvider(npi string) Provider {
	now := time.Now().UTC()
	return Provider{
		ID:        uuid.New().String(),
		NPI:       npi,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FullName returns "First [Middle] Last".
func (p Provider) FullName() string {
	parts := []string{p.FirstName}
	if p.MiddleName != "" {
		parts = append(parts, p.MiddleName)
	}
	parts = append(parts, p.LastName)
	return strings.Join(parts, " ")
}
