package health_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masumi-network/registry-service/internal/registry/health"
	"github.com/masumi-network/registry-service/internal/registry/models"
)

// fakeStore mirrors the store contract the sweep depends on: applying a
// health result refreshes the entry's lastUptimeCheck, which removes it from
// later ListStaleEntries results.
type fakeStore struct {
	mu        sync.Mutex
	entries   map[string]*models.RegistryEntry
	applied   map[string]models.Status
	listCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entries: map[string]*models.RegistryEntry{},
		applied: map[string]models.Status{},
	}
}

func (f *fakeStore) seed(entries ...models.RegistryEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		e := e
		f.entries[e.ID] = &e
	}
}

func (f *fakeStore) ApplyHealthResult(_ context.Context, entryID string, status models.Status, checkedAt time.Time) (*models.RegistryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied[entryID] = status
	if e, ok := f.entries[entryID]; ok {
		e.Status = status
		e.LastUptimeCheck = checkedAt
		out := *e
		return &out, nil
	}
	return &models.RegistryEntry{ID: entryID, Status: status, LastUptimeCheck: checkedAt}, nil
}

func (f *fakeStore) ListStaleEntries(_ context.Context, olderThan time.Time, limit int) ([]models.RegistryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var stale []models.RegistryEntry
	for _, e := range f.entries {
		if e.Status != models.StatusDeregistered && e.LastUptimeCheck.Before(olderThan) {
			stale = append(stale, *e)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		if !stale[i].LastUptimeCheck.Equal(stale[j].LastUptimeCheck) {
			return stale[i].LastUptimeCheck.Before(stale[j].LastUptimeCheck)
		}
		return stale[i].ID < stale[j].ID
	})
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

// loopbackRewriteClient lets tests probe an httptest server through a url
// that passes validation: the checker sees a clean host on port 80 while the
// transport dials the test listener.
func loopbackRewriteClient(t *testing.T, server *httptest.Server) *http.Client {
	t.Helper()
	target, err := url.Parse(server.URL)
	require.NoError(t, err)
	return &http.Client{
		Transport: &http.Transport{
			Proxy: func(*http.Request) (*url.URL, error) {
				return target, nil
			},
		},
	}
}

func TestCheckEndpoint_InvalidURLsNeverProbed(t *testing.T) {
	var probes int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes++
	}))
	defer server.Close()

	checker := health.NewChecker(newFakeStore(), nil,
		health.WithHTTPClient(loopbackRewriteClient(t, server)))

	tests := []struct {
		name    string
		baseURL string
	}{
		{"ftp scheme", "ftp://agent.example.com"},
		{"no scheme", "agent.example.com"},
		{"localhost", "http://localhost/api"},
		{"loopback v4", "https://127.0.0.1"},
		{"loopback v6", "https://[::1]"},
		{"non-standard port", "https://agent.example.com:8080"},
		{"query string", "https://agent.example.com/api?token=x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status := checker.CheckEndpoint(context.Background(), tc.baseURL, "asset1")
			assert.Equal(t, models.StatusInvalid, status)
		})
	}
	assert.Zero(t, probes, "invalid urls must be classified without network traffic")
}

func TestCheckEndpoint_Classification(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    models.Status
	}{
		{
			"identifier echo",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"agentIdentifier":"asset1"}`)
			},
			models.StatusOnline,
		},
		{
			"type marker",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"type":"masumi-agent"}`)
			},
			models.StatusOnline,
		},
		{
			"wrong identity",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"agentIdentifier":"someone-else"}`)
			},
			models.StatusInvalid,
		},
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			models.StatusOffline,
		},
		{
			"not found",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			models.StatusOffline,
		},
		{
			"garbage body",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json")
			},
			models.StatusOffline,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/availability", r.URL.Path)
				tc.handler(w, r)
			}))
			defer server.Close()

			checker := health.NewChecker(newFakeStore(), nil,
				health.WithHTTPClient(loopbackRewriteClient(t, server)))
			status := checker.CheckEndpoint(context.Background(), "http://agent.example.com", "asset1")
			assert.Equal(t, tc.want, status)
		})
	}
}

func TestCheckEndpoint_UnreachableIsOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	checker := health.NewChecker(newFakeStore(), nil,
		health.WithHTTPClient(loopbackRewriteClient(t, server)))
	status := checker.CheckEndpoint(context.Background(), "http://agent.example.com", "asset1")
	assert.Equal(t, models.StatusOffline, status)
}

func TestCheckAndVerifyEntry_FreshnessGateSkipsNetwork(t *testing.T) {
	var probes int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes++
		fmt.Fprint(w, `{"agentIdentifier":"asset1"}`)
	}))
	defer server.Close()

	checker := health.NewChecker(newFakeStore(), nil,
		health.WithHTTPClient(loopbackRewriteClient(t, server)))

	entry := &models.RegistryEntry{
		Identifier:      "asset1",
		APIBaseURL:      "http://agent.example.com",
		Status:          models.StatusOffline,
		LastUptimeCheck: time.Now(),
	}

	// Checked after the cutoff: stored status wins, no probe.
	status := checker.CheckAndVerifyEntry(context.Background(), entry, time.Now().Add(-time.Hour))
	assert.Equal(t, models.StatusOffline, status)
	assert.Zero(t, probes)

	// Stale against the cutoff: the endpoint is actually probed.
	entry.LastUptimeCheck = time.Now().Add(-2 * time.Hour)
	status = checker.CheckAndVerifyEntry(context.Background(), entry, time.Now().Add(-time.Hour))
	assert.Equal(t, models.StatusOnline, status)
	assert.Equal(t, 1, probes)
}

func TestCheckVerifyAndUpdateEntries_ZeroCutoffPassesThrough(t *testing.T) {
	store := newFakeStore()
	checker := health.NewChecker(store, nil)

	entries := []models.RegistryEntry{
		{ID: "a", Status: models.StatusOnline},
		{ID: "b", Status: models.StatusOffline},
	}
	out, err := checker.CheckVerifyAndUpdateEntries(context.Background(), entries, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, entries, out)
	assert.Empty(t, store.applied, "no results may be persisted without a cutoff")
}

func TestCheckVerifyAndUpdateEntries_PersistsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"type":"masumi-agent"}`)
	}))
	defer server.Close()

	store := newFakeStore()
	checker := health.NewChecker(store, nil,
		health.WithHTTPClient(loopbackRewriteClient(t, server)))

	stale := time.Now().Add(-2 * time.Hour)
	entries := []models.RegistryEntry{
		{ID: "a", Identifier: "asset-a", APIBaseURL: "http://a.example.com", Status: models.StatusOffline, LastUptimeCheck: stale},
		{ID: "b", Identifier: "asset-b", APIBaseURL: "ftp://b.example.com", Status: models.StatusOnline, LastUptimeCheck: stale},
	}
	out, err := checker.CheckVerifyAndUpdateEntries(context.Background(), entries, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, models.StatusOnline, out[0].Status)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, models.StatusInvalid, out[1].Status)
	assert.Equal(t, models.StatusOnline, store.applied["a"])
	assert.Equal(t, models.StatusInvalid, store.applied["b"])
}

func TestSweepStale_ProcessesAllStaleEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"type":"masumi-agent"}`)
	}))
	defer server.Close()

	stale := time.Now().Add(-2 * time.Hour)
	store := newFakeStore()
	for i := 0; i < 120; i++ {
		store.seed(models.RegistryEntry{
			ID:              fmt.Sprintf("entry-%03d", i),
			Identifier:      fmt.Sprintf("asset-%03d", i),
			APIBaseURL:      "http://agent.example.com",
			Status:          models.StatusOffline,
			LastUptimeCheck: stale.Add(time.Duration(i) * time.Second),
		})
	}
	checker := health.NewChecker(store, nil,
		health.WithHTTPClient(loopbackRewriteClient(t, server)))

	cutoff := time.Now().Add(-time.Hour)
	require.NoError(t, checker.SweepStale(context.Background(), cutoff))

	// Every stale entry is re-verified in one sweep, across page boundaries.
	assert.Len(t, store.applied, 120)
	for id, status := range store.applied {
		assert.Equal(t, models.StatusOnline, status, id)
	}

	remaining, err := store.ListStaleEntries(context.Background(), cutoff, 50)
	require.NoError(t, err)
	assert.Empty(t, remaining, "processed entries must leave the stale set")
	assert.Equal(t, 4, store.listCalls, "50+50+20 pages plus the post-sweep read")
}

func TestSweepStale_ZeroCutoffIsNoop(t *testing.T) {
	store := newFakeStore()
	store.seed(models.RegistryEntry{ID: "a", APIBaseURL: "http://agent.example.com"})
	checker := health.NewChecker(store, nil)

	require.NoError(t, checker.SweepStale(context.Background(), time.Time{}))
	assert.Zero(t, store.listCalls)
	assert.Empty(t, store.applied)
}
