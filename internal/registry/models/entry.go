package models

import "time"

// Status is the liveness classification of a registry entry.
type Status string

const (
	StatusOnline       Status = "online"
	StatusOffline      Status = "offline"
	StatusInvalid      Status = "invalid"
	StatusDeregistered Status = "deregistered"
)

// PaymentScheme identifies how an agent expects to be paid.
type PaymentScheme string

const PaymentSchemeWeb3CardanoV1 PaymentScheme = "web3-cardano-v1"

// Amount is a single fixed-price charge.
type Amount struct {
	Amount int64  `json:"amount"`
	Unit   string `json:"unit"`
}

// ExampleOutput references a sample result published by an agent.
type ExampleOutput struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	URL      string `json:"url"`
}

// Capability is a (name, version) pair shared by all entries that claim it.
type Capability struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// PaymentInformation binds an entry to the holder address its payments
// should target, with the payment key hash derived from that address.
type PaymentInformation struct {
	Address    string        `json:"address"`
	SellerVKey string        `json:"sellerVKey"`
	Scheme     PaymentScheme `json:"scheme"`
}

// RegistryEntry is one agent registration, keyed by its on-chain asset
// identifier (policy id + asset name).
type RegistryEntry struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	SourceID   string `json:"sourceId"`

	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Status      Status  `json:"status"`

	Capability *Capability `json:"capability,omitempty"`

	AuthorName         string  `json:"authorName"`
	AuthorContact      *string `json:"authorContact,omitempty"`
	AuthorOrganization *string `json:"authorOrganization,omitempty"`

	PrivacyPolicyURL *string `json:"privacyPolicyUrl,omitempty"`
	TermsURL         *string `json:"termsUrl,omitempty"`
	OtherLegalURL    *string `json:"otherLegalUrl,omitempty"`

	Image          *string         `json:"image,omitempty"`
	Tags           []string        `json:"tags"`
	Pricing        []Amount        `json:"pricing"`
	ExampleOutputs []ExampleOutput `json:"exampleOutputs,omitempty"`

	APIBaseURL string `json:"apiBaseUrl"`

	UptimeCount      int64     `json:"uptimeCount"`
	UptimeCheckCount int64     `json:"uptimeCheckCount"`
	LastUptimeCheck  time.Time `json:"lastUptimeCheck"`

	MetadataVersion int                 `json:"metadataVersion"`
	Payment         *PaymentInformation `json:"payment,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
