// Package health probes agent endpoints and classifies the outcome into a
// registry entry status. It never produces the deregistered status; that is
// owned by the reconciliation engine's burn sweep.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/masumi-network/registry-service/internal/registry/models"
)

// availabilityPath is probed relative to an entry's api base url.
const availabilityPath = "/availability"

// TypeMarker is the well-known type an agent may answer with instead of
// echoing its asset identifier.
const TypeMarker = "masumi-agent"

const defaultProbeTimeout = 10 * time.Second

// Store is the persistence surface the checker needs to record results.
type Store interface {
	ApplyHealthResult(ctx context.Context, entryID string, status models.Status, checkedAt time.Time) (*models.RegistryEntry, error)
	ListStaleEntries(ctx context.Context, olderThan time.Time, limit int) ([]models.RegistryEntry, error)
}

// Checker probes agent endpoints.
type Checker struct {
	store  Store
	http   *http.Client
	logger *zap.Logger
}

// Option mutates checker construction.
type Option func(*Checker)

// WithHTTPClient overrides the probe HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) { c.http = hc }
}

// WithProbeTimeout sets the per-probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Checker) { c.http.Timeout = d }
}

// NewChecker builds a Checker.
func NewChecker(store Store, logger *zap.Logger, opts ...Option) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Checker{
		store:  store,
		http:   &http.Client{Timeout: defaultProbeTimeout},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type availabilityResponse struct {
	AgentIdentifier string `json:"agentIdentifier"`
	Type            string `json:"type"`
}

// validateBaseURL rejects endpoints the registry must never probe:
// non-http(s) schemes, loopback hosts, non-standard ports and urls carrying
// a query string.
func validateBaseURL(baseURL string) error {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("malformed url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("missing host")
	}
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return fmt.Errorf("loopback host %q", host)
	}
	if port := parsed.Port(); port != "" && port != "80" && port != "443" {
		return fmt.Errorf("non-standard port %q", port)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("url must not carry a query string")
	}
	return nil
}

// CheckEndpoint probes an agent's availability endpoint and classifies the
// outcome. Unreachable or misbehaving endpoints map to offline rather than
// an error so one bad agent cannot fail a batch.
func (c *Checker) CheckEndpoint(ctx context.Context, baseURL, assetID string) models.Status {
	if err := validateBaseURL(baseURL); err != nil {
		c.logger.Debug("rejecting endpoint url",
			zap.String("url", baseURL), zap.String("asset", assetID), zap.Error(err))
		return models.StatusInvalid
	}

	probeURL := strings.TrimSuffix(baseURL, "/") + availabilityPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return models.StatusOffline
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return models.StatusOffline
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.StatusOffline
	}

	var body availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.StatusOffline
	}

	// The endpoint must prove it is the agent the asset claims, either by
	// echoing the asset identifier or by the well-known type marker. A
	// reachable endpoint answering as something else is invalid, not offline.
	if body.AgentIdentifier == assetID || body.Type == TypeMarker {
		return models.StatusOnline
	}
	return models.StatusInvalid
}

// CheckAndVerifyEntry is the freshness-gated probe: when the entry was
// checked after minHealthCheckDate (or no cutoff is given), the stored
// status is returned without any network call.
func (c *Checker) CheckAndVerifyEntry(ctx context.Context, entry *models.RegistryEntry, minHealthCheckDate time.Time) models.Status {
	if entry.LastUptimeCheck.After(minHealthCheckDate) || minHealthCheckDate.IsZero() {
		return entry.Status
	}
	return c.CheckEndpoint(ctx, entry.APIBaseURL, entry.Identifier)
}

// CheckVerifyAndUpdateEntries re-checks a batch of entries concurrently and
// persists each result. With a zero cutoff the batch is returned untouched.
func (c *Checker) CheckVerifyAndUpdateEntries(ctx context.Context, entries []models.RegistryEntry, minHealthCheckDate time.Time) ([]models.RegistryEntry, error) {
	if minHealthCheckDate.IsZero() {
		return entries, nil
	}

	results := make([]models.RegistryEntry, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i := range entries {
		g.Go(func() error {
			entry := entries[i]
			status := c.CheckAndVerifyEntry(gctx, &entry, minHealthCheckDate)
			updated, err := c.store.ApplyHealthResult(gctx, entry.ID, status, time.Now())
			if err != nil {
				return fmt.Errorf("persist health result for %s: %w", entry.Identifier, err)
			}
			results[i] = *updated
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
