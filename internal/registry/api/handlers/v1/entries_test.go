package v1_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/masumi-network/registry-service/internal/registry/api/handlers/v1"
	"github.com/masumi-network/registry-service/internal/registry/database"
	"github.com/masumi-network/registry-service/internal/registry/models"
	"github.com/masumi-network/registry-service/internal/registry/service"
	servicetesting "github.com/masumi-network/registry-service/internal/registry/service/testing"
)

func newTestAPI(fake *servicetesting.FakeRegistry) *http.ServeMux {
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Test API", "1.0.0"))
	v1.RegisterEntriesEndpoints(api, "/api/v1", fake)
	return mux
}

func TestQueryEntries_EmptyReturnsEmpty(t *testing.T) {
	mux := newTestAPI(servicetesting.NewFakeRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/registry-entry", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries":[]`)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestQueryEntries_FiltersForwarded(t *testing.T) {
	fake := servicetesting.NewFakeRegistry()
	var captured service.EntryQuery
	fake.QueryEntriesFn = func(_ context.Context, query service.EntryQuery) (*service.EntryPage, error) {
		captured = query
		return &service.EntryPage{
			Entries: []models.RegistryEntry{{
				ID:         "entry-1",
				Identifier: "policy1asset1",
				Name:       "translation-agent",
				Status:     models.StatusOnline,
			}},
			NextCursor: "entry-1",
		}, nil
	}
	mux := newTestAPI(fake)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/registry-entry?capabilityName=translate&status=online&tag=nlp&limit=5&minRegistryDate=2026-08-01T00:00:00Z", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"translation-agent"`)
	assert.Contains(t, w.Body.String(), `"nextCursor":"entry-1"`)

	require.NotNil(t, captured.CapabilityName)
	assert.Equal(t, "translate", *captured.CapabilityName)
	assert.Equal(t, []models.Status{models.StatusOnline}, captured.Statuses)
	require.NotNil(t, captured.Tag)
	assert.Equal(t, "nlp", *captured.Tag)
	assert.Equal(t, 5, captured.Limit)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), captured.MinRegistryDate)
}

func TestQueryEntries_BadTimestampIs400(t *testing.T) {
	mux := newTestAPI(servicetesting.NewFakeRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/registry-entry?minRegistryDate=yesterday", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEntry_FoundAndNotFound(t *testing.T) {
	fake := servicetesting.NewFakeRegistry()
	fake.GetEntryByIdentifierFn = func(_ context.Context, assetID string) (*models.RegistryEntry, error) {
		if assetID != "policy1asset1" {
			return nil, database.ErrNotFound
		}
		return &models.RegistryEntry{
			ID:         "entry-1",
			Identifier: "policy1asset1",
			Name:       "translation-agent",
			Status:     models.StatusOnline,
			APIBaseURL: "https://agent.example.com",
		}, nil
	}
	mux := newTestAPI(fake)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/registry-entry/policy1asset1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"identifier":"policy1asset1"`)
	assert.Contains(t, w.Body.String(), `"apiBaseUrl":"https://agent.example.com"`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/registry-entry/unknown", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
