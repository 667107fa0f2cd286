// Package metadata parses and validates the on-chain registration metadata
// attached to agent assets. Chain metadata limits individual strings to 64
// bytes, so every logical string field may arrive either as a plain JSON
// string or as an ordered list of fragments that must be concatenated.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SupportedVersion is the only metadata_version currently accepted.
const SupportedVersion = 1

const (
	maxPricingEntries = 25
	maxShortField     = 60
)

// MetadataString decodes a JSON value that is either a string or a list of
// string fragments.
type MetadataString struct {
	fragments []string
	set       bool
}

// UnmarshalJSON accepts "..." or ["...", "..."].
func (m *MetadataString) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		m.fragments = []string{single}
		m.set = true
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings, got %s", string(data))
	}
	m.fragments = many
	m.set = true
	return nil
}

// MarshalJSON writes the normalized string form.
func (m MetadataString) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Normalize())
}

// Normalize joins the fragments in order with no separator, reconstructing
// the logical string.
func (m MetadataString) Normalize() string {
	return strings.Join(m.fragments, "")
}

// IsSet reports whether the field was present at all.
func (m MetadataString) IsSet() bool {
	return m.set
}

// NewMetadataString builds a set MetadataString from a plain string. Intended
// for tests and programmatic construction.
func NewMetadataString(s string) MetadataString {
	return MetadataString{fragments: []string{s}, set: true}
}

type rawAuthor struct {
	Name         MetadataString `json:"name"`
	Contact      MetadataString `json:"contact"`
	Organization MetadataString `json:"organization"`
}

type rawLegal struct {
	PrivacyPolicy MetadataString `json:"privacy_policy"`
	Terms         MetadataString `json:"terms"`
	Other         MetadataString `json:"other"`
}

type rawCapability struct {
	Name    MetadataString `json:"name"`
	Version MetadataString `json:"version"`
}

type rawExampleOutput struct {
	Name     MetadataString `json:"name"`
	MimeType MetadataString `json:"mimeType"`
	URL      MetadataString `json:"url"`
}

type rawPricingEntry struct {
	Amount json.Number    `json:"amount"`
	Unit   MetadataString `json:"unit"`
}

type rawPricing struct {
	PricingType string            `json:"pricingType"`
	Pricing     []rawPricingEntry `json:"fixedPricing"`
}

type rawMetadata struct {
	Name            MetadataString     `json:"name"`
	Description     MetadataString     `json:"description"`
	APIBaseURL      MetadataString     `json:"api_base_url"`
	ExampleOutput   []rawExampleOutput `json:"example_output"`
	Capability      *rawCapability     `json:"capability"`
	Author          *rawAuthor         `json:"author"`
	Legal           *rawLegal          `json:"legal"`
	Tags            []MetadataString   `json:"tags"`
	AgentPricing    *rawPricing        `json:"agentPricing"`
	Image           MetadataString     `json:"image"`
	MetadataVersion json.Number        `json:"metadata_version"`
}

// Author is the normalized author block.
type Author struct {
	Name         string
	Contact      *string
	Organization *string
}

// Legal holds the normalized optional legal URLs.
type Legal struct {
	PrivacyPolicy *string
	Terms         *string
	Other         *string
}

// Capability is the normalized optional capability claim.
type Capability struct {
	Name    string
	Version string
}

// ExampleOutput is one normalized example output reference.
type ExampleOutput struct {
	Name     string
	MimeType string
	URL      string
}

// PricingEntry is one normalized fixed-price charge.
type PricingEntry struct {
	Amount int64
	Unit   string
}

// RegistrationMetadata is a fully validated, normalized agent registration.
type RegistrationMetadata struct {
	Name            string
	Description     *string
	APIBaseURL      string
	Author          Author
	Legal           *Legal
	Capability      *Capability
	Tags            []string
	Pricing         []PricingEntry
	ExampleOutputs  []ExampleOutput
	Image           *string
	MetadataVersion int
}

// Validate parses a raw on-chain metadata blob against the version 1
// registration schema. A returned error means the asset is not a conforming
// registration; callers skip the asset rather than failing the batch.
func Validate(raw json.RawMessage) (*RegistrationMetadata, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty metadata")
	}
	var rm rawMetadata
	if err := json.Unmarshal(raw, &rm); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	version, err := rm.MetadataVersion.Int64()
	if err != nil {
		return nil, fmt.Errorf("metadata_version is not an integer")
	}
	if version != SupportedVersion {
		return nil, fmt.Errorf("unsupported metadata_version %d", version)
	}

	name := rm.Name.Normalize()
	if !rm.Name.IsSet() || name == "" {
		return nil, fmt.Errorf("name is required")
	}
	baseURL := rm.APIBaseURL.Normalize()
	if !rm.APIBaseURL.IsSet() || baseURL == "" {
		return nil, fmt.Errorf("api_base_url is required")
	}
	if rm.Author == nil || !rm.Author.Name.IsSet() || rm.Author.Name.Normalize() == "" {
		return nil, fmt.Errorf("author.name is required")
	}
	if len(rm.Tags) == 0 {
		return nil, fmt.Errorf("tags must not be empty")
	}

	pricing, err := validatePricing(rm.AgentPricing)
	if err != nil {
		return nil, err
	}

	examples := make([]ExampleOutput, 0, len(rm.ExampleOutput))
	for i, ex := range rm.ExampleOutput {
		exName := ex.Name.Normalize()
		exMime := ex.MimeType.Normalize()
		if len(exName) > maxShortField {
			return nil, fmt.Errorf("example_output[%d].name exceeds %d characters", i, maxShortField)
		}
		if len(exMime) > maxShortField {
			return nil, fmt.Errorf("example_output[%d].mimeType exceeds %d characters", i, maxShortField)
		}
		examples = append(examples, ExampleOutput{
			Name:     exName,
			MimeType: exMime,
			URL:      ex.URL.Normalize(),
		})
	}

	var capability *Capability
	if rm.Capability != nil {
		capVersion := rm.Capability.Version.Normalize()
		if len(capVersion) > maxShortField {
			return nil, fmt.Errorf("capability.version exceeds %d characters", maxShortField)
		}
		capability = &Capability{
			Name:    rm.Capability.Name.Normalize(),
			Version: capVersion,
		}
	}

	tags := make([]string, 0, len(rm.Tags))
	for _, tag := range rm.Tags {
		tags = append(tags, tag.Normalize())
	}

	out := &RegistrationMetadata{
		Name:            name,
		Description:     optional(rm.Description),
		APIBaseURL:      baseURL,
		Author:          normalizeAuthor(rm.Author),
		Capability:      capability,
		Tags:            tags,
		Pricing:         pricing,
		ExampleOutputs:  examples,
		Image:           optional(rm.Image),
		MetadataVersion: int(version),
	}
	if rm.Legal != nil {
		out.Legal = &Legal{
			PrivacyPolicy: optional(rm.Legal.PrivacyPolicy),
			Terms:         optional(rm.Legal.Terms),
			Other:         optional(rm.Legal.Other),
		}
	}
	return out, nil
}

func validatePricing(p *rawPricing) ([]PricingEntry, error) {
	if p == nil {
		return nil, fmt.Errorf("agentPricing is required")
	}
	if p.PricingType != "Fixed" {
		return nil, fmt.Errorf("unsupported pricing type %q", p.PricingType)
	}
	if len(p.Pricing) < 1 || len(p.Pricing) > maxPricingEntries {
		return nil, fmt.Errorf("fixedPricing must contain between 1 and %d entries", maxPricingEntries)
	}
	entries := make([]PricingEntry, 0, len(p.Pricing))
	for i, entry := range p.Pricing {
		amount, err := entry.Amount.Int64()
		if err != nil {
			return nil, fmt.Errorf("fixedPricing[%d].amount is not an integer", i)
		}
		if amount < 1 {
			return nil, fmt.Errorf("fixedPricing[%d].amount must be at least 1", i)
		}
		entries = append(entries, PricingEntry{
			Amount: amount,
			Unit:   entry.Unit.Normalize(),
		})
	}
	return entries, nil
}

func normalizeAuthor(a *rawAuthor) Author {
	return Author{
		Name:         a.Name.Normalize(),
		Contact:      optional(a.Contact),
		Organization: optional(a.Organization),
	}
}

func optional(m MetadataString) *string {
	if !m.IsSet() {
		return nil
	}
	s := m.Normalize()
	return &s
}
