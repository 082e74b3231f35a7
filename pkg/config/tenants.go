// Package config loads the tenant roster used by the scheduler and worker at
// startup. Each entry names one ISP tenant and the database it owns.
package config

import (
	"fmt"
	"os"

	"github.com/radiflow/radiflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// TenantsFile is the structure of tenants.yaml.
type TenantsFile struct {
	Tenants []TenantEntry `yaml:"tenants"`
}

// TenantEntry is one tenant's connection coordinates.
type TenantEntry struct {
	TenantID    string `yaml:"tenant_id"`
	DatabaseURL string `yaml:"database_url"`
}

// LoadTenants reads and validates the tenant roster.
func LoadTenants(filepath string) ([]models.TenantConnection, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenants file %s: %w", filepath, err)
	}

	var file TenantsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tenants file: %w", err)
	}

	connections := make([]models.TenantConnection, 0, len(file.Tenants))

	for i, entry := range file.Tenants {
		if entry.TenantID == "" {
			return nil, fmt.Errorf("tenant entry %d is missing tenant_id", i)
		}

		if entry.DatabaseURL == "" {
			return nil, fmt.Errorf("tenant %s is missing database_url", entry.TenantID)
		}

		connections = append(connections, models.TenantConnection{
			TenantID:    entry.TenantID,
			DatabaseURL: entry.DatabaseURL,
		})
	}

	return connections, nil
}
