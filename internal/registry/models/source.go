package models

import "time"

// SourceScope is the kind of on-chain scope a registry source tracks.
type SourceScope string

// ScopeChainAssetV1 tracks minted assets under a single policy id.
const ScopeChainAssetV1 SourceScope = "chain-asset-v1"

// Network is the Cardano network a source polls.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkPreprod Network = "preprod"
	NetworkPreview Network = "preview"
)

// RegistrySource is one tracked blockchain policy. The reconciliation
// engine advances its (LatestPage, LatestIdentifier) cursor after each poll.
type RegistrySource struct {
	ID            string      `json:"id"`
	Scope         SourceScope `json:"scope"`
	Network       Network     `json:"network"`
	PolicyID      string      `json:"policyId"`
	RPCCredential string      `json:"-"`

	LatestPage       int     `json:"latestPage"`
	LatestIdentifier *string `json:"latestIdentifier,omitempty"`

	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
