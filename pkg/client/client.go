// Package client is a Go client for the registry service HTTP API.
package client

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

const defaultTimeout = 30 * time.Second

// Client talks to a running registry service.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option mutates client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient builds a client against a registry service base url, e.g.
// "http://localhost:3000".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryOptions narrow an entry query. Zero values are omitted.
type QueryOptions struct {
	CapabilityName     string
	CapabilityVersion  string
	Status             models.Status
	PolicyID           string
	Tag                string
	Cursor             string
	Limit              int
	MinRegistryDate    time.Time
	MinHealthCheckDate time.Time
}

// EntryList is one page of entries with its pagination metadata.
type EntryList struct {
	Entries  []models.RegistryEntry `json:"entries"`
	Metadata struct {
		NextCursor string `json:"nextCursor"`
		Count      int    `json:"count"`
	} `json:"metadata"`
}

// QueryEntries fetches one page of registry entries.
func (c *Client) QueryEntries(ctx context.Context, opts QueryOptions) (*EntryList, error) {
	query := url.Values{}
	if opts.CapabilityName != "" {
		query.Set("capabilityName", opts.CapabilityName)
	}
	if opts.CapabilityVersion != "" {
		query.Set("capabilityVersion", opts.CapabilityVersion)
	}
	if opts.Status != "" {
		query.Set("status", string(opts.Status))
	}
	if opts.PolicyID != "" {
		query.Set("policyId", opts.PolicyID)
	}
	if opts.Tag != "" {
		query.Set("tag", opts.Tag)
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if !opts.MinRegistryDate.IsZero() {
		query.Set("minRegistryDate", opts.MinRegistryDate.Format(time.RFC3339))
	}
	if !opts.MinHealthCheckDate.IsZero() {
		query.Set("minHealthCheckDate", opts.MinHealthCheckDate.Format(time.RFC3339))
	}

	var out EntryList
	if err := c.get(ctx, "/api/v1/registry-entry", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEntry fetches one entry by its asset identifier.
func (c *Client) GetEntry(ctx context.Context, identifier string) (*models.RegistryEntry, error) {
	var out models.RegistryEntry
	if err := c.get(ctx, "/api/v1/registry-entry/"+url.PathEscape(identifier), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks that the service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		Pong bool `json:"pong"`
	}
	if err := c.get(ctx, "/api/v1/ping", nil, &out); err != nil {
		return err
	}
	if !out.Pong {
		return fmt.Errorf("unexpected ping response")
	}
	return nil
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
		return fmt.Errorf("registry returned status %d: %s", resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}
