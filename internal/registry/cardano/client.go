// Package cardano provides the Blockfrost-backed indexer client the
// reconciliation engine polls for asset state, plus the payment key hash
// derivation used to bind entries to their holder address.
package cardano

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/masumi-network/registry-service/internal/registry/models"
)

const defaultRequestTimeout = 30 * time.Second

var networkBaseURLs = map[models.Network]string{
	models.NetworkMainnet: "https://cardano-mainnet.blockfrost.io/api/v0",
	models.NetworkPreprod: "https://cardano-preprod.blockfrost.io/api/v0",
	models.NetworkPreview: "https://cardano-preview.blockfrost.io/api/v0",
}

// PolicyAsset is one row of an assets-under-policy page, ordered by mint
// sequence.
type PolicyAsset struct {
	Asset    string `json:"asset"`
	Quantity string `json:"quantity"`
}

// Asset is the full indexer view of a single asset.
type Asset struct {
	Asset           string          `json:"asset"`
	Quantity        string          `json:"quantity"`
	OnchainMetadata json.RawMessage `json:"onchain_metadata"`
}

// AssetAddress is one holder of an asset.
type AssetAddress struct {
	Address  string `json:"address"`
	Quantity string `json:"quantity"`
}

// Client is a typed HTTP client for the Blockfrost indexer API.
type Client struct {
	baseURL   string
	projectID string
	http      *http.Client
}

// Option mutates client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL overrides the resolved network base URL. Used by tests.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

// NewClient builds a client for one network, authenticated by the source's
// RPC credential (Blockfrost project id).
func NewClient(network models.Network, projectID string, opts ...Option) (*Client, error) {
	base, ok := networkBaseURLs[network]
	if !ok {
		return nil, fmt.Errorf("unsupported network %q", network)
	}
	c := &Client{
		baseURL:   base,
		projectID: projectID,
		http:      &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AssetsByPolicy fetches one page of assets minted under a policy, ordered
// by mint sequence. Pages are 1-based.
func (c *Client) AssetsByPolicy(ctx context.Context, policyID string, page, count int) ([]PolicyAsset, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("count", strconv.Itoa(count))
	query.Set("order", "asc")

	var assets []PolicyAsset
	if err := c.get(ctx, "/assets/policy/"+url.PathEscape(policyID), query, &assets); err != nil {
		return nil, fmt.Errorf("assets by policy %s: %w", policyID, err)
	}
	return assets, nil
}

// AssetByID fetches the current quantity and on-chain metadata of an asset.
func (c *Client) AssetByID(ctx context.Context, assetID string) (*Asset, error) {
	var asset Asset
	if err := c.get(ctx, "/assets/"+url.PathEscape(assetID), nil, &asset); err != nil {
		return nil, fmt.Errorf("asset %s: %w", assetID, err)
	}
	return &asset, nil
}

// AssetAddresses fetches the holders of an asset. Order "desc" yields the
// most recent holder first.
func (c *Client) AssetAddresses(ctx context.Context, assetID string, order string) ([]AssetAddress, error) {
	query := url.Values{}
	if order != "" {
		query.Set("order", order)
	}
	var holders []AssetAddress
	if err := c.get(ctx, "/assets/"+url.PathEscape(assetID)+"/addresses", query, &holders); err != nil {
		return nil, fmt.Errorf("asset addresses %s: %w", assetID, err)
	}
	return holders, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("project_id", c.projectID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
