// Package exporter dumps the registry to a JSON file, paging through the
// query service. The output is an array of registry entries.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/masumi-network/registry-service/internal/registry/models"
	"github.com/masumi-network/registry-service/internal/registry/service"
)

const defaultPageSize = 50

// allStatuses, together with AllPaymentSchemes, makes the dump complete; the
// query defaults would hide invalid, deregistered and payment-less entries.
var allStatuses = []models.Status{
	models.StatusOnline,
	models.StatusOffline,
	models.StatusInvalid,
	models.StatusDeregistered,
}

// Service handles exporting registry data into dump files.
type Service struct {
	registry service.RegistryService
	pageSize int
}

// NewService creates a new exporter service.
func NewService(registry service.RegistryService) *Service {
	return &Service{
		registry: registry,
		pageSize: defaultPageSize,
	}
}

// SetPageSize allows tests to override the pagination size used when
// fetching entries from the registry service.
func (s *Service) SetPageSize(size int) {
	if size > 0 {
		s.pageSize = size
	}
}

// ExportToPath collects all registry entries and writes them to the provided
// file path.
func (s *Service) ExportToPath(ctx context.Context, outputPath string) (int, error) {
	if s.registry == nil {
		return 0, fmt.Errorf("registry service is not initialized")
	}

	entries, err := s.collectEntries(ctx)
	if err != nil {
		return 0, err
	}

	if err := ensureDir(outputPath); err != nil {
		return 0, err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal entries for export: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write export file %s: %w", outputPath, err)
	}

	return len(entries), nil
}

func (s *Service) collectEntries(ctx context.Context) ([]models.RegistryEntry, error) {
	var (
		all    []models.RegistryEntry
		cursor string
	)

	for {
		page, err := s.registry.QueryEntries(ctx, service.EntryQuery{
			Statuses:          allStatuses,
			AllPaymentSchemes: true,
			Cursor:            cursor,
			Limit:             s.pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list entries: %w", err)
		}
		all = append(all, page.Entries...)

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return all, nil
}

func ensureDir(outputPath string) error {
	dir := filepath.Dir(outputPath)
	if dir == "" || dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}

	return nil
}
