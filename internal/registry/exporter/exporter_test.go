package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/masumi-network/registry-service/internal/registry/models"
	"github.com/masumi-network/registry-service/internal/registry/service"
	servicetesting "github.com/masumi-network/registry-service/internal/registry/service/testing"
)

func pagedRegistry(pages map[string]*service.EntryPage) *servicetesting.FakeRegistry {
	fake := servicetesting.NewFakeRegistry()
	fake.QueryEntriesFn = func(_ context.Context, query service.EntryQuery) (*service.EntryPage, error) {
		page, ok := pages[query.Cursor]
		if !ok {
			return &service.EntryPage{}, nil
		}
		return page, nil
	}
	return fake
}

func TestExportToPath_WritesDumpFile(t *testing.T) {
	fake := pagedRegistry(map[string]*service.EntryPage{
		"": {
			Entries:    []models.RegistryEntry{{ID: "entry-1", Identifier: "policy1asset1", Name: "agent-one"}},
			NextCursor: "entry-1",
		},
		"entry-1": {
			Entries: []models.RegistryEntry{{ID: "entry-2", Identifier: "policy1asset2", Name: "agent-two"}},
		},
	})

	svc := NewService(fake)
	svc.SetPageSize(1)

	outputPath := filepath.Join(t.TempDir(), "registry.json")

	count, err := svc.ExportToPath(context.Background(), outputPath)
	if err != nil {
		t.Fatalf("ExportToPath returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entries to be exported, got %d", count)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read export file: %v", err)
	}

	var exported []models.RegistryEntry
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("failed to unmarshal export file: %v", err)
	}
	if len(exported) != 2 {
		t.Fatalf("expected 2 entries in export file, got %d", len(exported))
	}
	if exported[0].Identifier != "policy1asset1" || exported[1].Identifier != "policy1asset2" {
		t.Fatalf("unexpected export order: %+v", exported)
	}
}

func TestExportToPath_CreatesParentDirectories(t *testing.T) {
	fake := pagedRegistry(map[string]*service.EntryPage{
		"": {Entries: []models.RegistryEntry{{ID: "entry-1", Identifier: "policy1asset1"}}},
	})

	outputPath := filepath.Join(t.TempDir(), "nested", "dir", "registry.json")
	if _, err := NewService(fake).ExportToPath(context.Background(), outputPath); err != nil {
		t.Fatalf("ExportToPath returned error: %v", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		t.Fatalf("export file was not created: %v", err)
	}
}

func TestExportToPath_QueriesCompleteRegistry(t *testing.T) {
	var got []service.EntryQuery
	fake := servicetesting.NewFakeRegistry()
	fake.QueryEntriesFn = func(_ context.Context, query service.EntryQuery) (*service.EntryPage, error) {
		got = append(got, query)
		return &service.EntryPage{}, nil
	}

	outputPath := filepath.Join(t.TempDir(), "registry.json")
	if _, err := NewService(fake).ExportToPath(context.Background(), outputPath); err != nil {
		t.Fatalf("ExportToPath returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected a single query, got %d", len(got))
	}
	if !got[0].AllPaymentSchemes {
		t.Fatal("export must not filter by payment scheme")
	}
	if len(got[0].Statuses) != 4 {
		t.Fatalf("export must cover every status, got %v", got[0].Statuses)
	}
}

func TestExportToPath_PropagatesQueryErrors(t *testing.T) {
	fake := servicetesting.NewFakeRegistry()
	fake.QueryEntriesFn = func(context.Context, service.EntryQuery) (*service.EntryPage, error) {
		return nil, errors.New("store unavailable")
	}

	outputPath := filepath.Join(t.TempDir(), "registry.json")
	if _, err := NewService(fake).ExportToPath(context.Background(), outputPath); err == nil {
		t.Fatal("expected error from failing query")
	}
}

func TestExportToPath_RequiresService(t *testing.T) {
	if _, err := NewService(nil).ExportToPath(context.Background(), "out.json"); err == nil {
		t.Fatal("expected error for nil registry service")
	}
}
