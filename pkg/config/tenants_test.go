package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTenantsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadTenants(t *testing.T) {
	path := writeTenantsFile(t, `
tenants:
  - tenant_id: isp-alpha
    database_url: postgres://localhost/alpha
  - tenant_id: isp-beta
    database_url: postgres://localhost/beta
`)

	connections, err := LoadTenants(path)
	require.NoError(t, err)
	require.Len(t, connections, 2)
	assert.Equal(t, "isp-alpha", connections[0].TenantID)
	assert.Equal(t, "postgres://localhost/beta", connections[1].DatabaseURL)
}

func TestLoadTenants_MissingFields(t *testing.T) {
	_, err := LoadTenants(writeTenantsFile(t, "tenants:\n  - database_url: postgres://x\n"))
	assert.Error(t, err)

	_, err = LoadTenants(writeTenantsFile(t, "tenants:\n  - tenant_id: isp-alpha\n"))
	assert.Error(t, err)
}

func TestLoadTenants_MissingFileAndBadYAML(t *testing.T) {
	_, err := LoadTenants("/nonexistent/tenants.yaml")
	assert.Error(t, err)

	_, err = LoadTenants(writeTenantsFile(t, "tenants: [not: valid"))
	assert.Error(t, err)
}
