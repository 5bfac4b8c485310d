package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
service_name: storefront
env: staging
http_addr: ":9090"
webhook_secret: whsec_abc
catalog:
  - product_id: sku-1
    name: Cable
    category: accessories
    unit_price: 1299
    stock: 10
`)
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "storefront", cfg.ServiceName)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	require.Len(t, cfg.Catalog, 1)
	assert.Equal(t, int64(1299), cfg.Catalog[0].UnitPrice)
	assert.Equal(t, 10, cfg.Catalog[0].Stock)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
service_name: storefront
http_addr: ":9090"
webhook_secret: whsec_abc
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("WEBHOOK_SECRET", "whsec_env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "whsec_env", cfg.WebhookSecret)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsDuplicateCatalogProduct(t *testing.T) {
	path := writeConfig(t, `
webhook_secret: whsec_abc
catalog:
  - product_id: sku-1
    stock: 1
  - product_id: sku-1
    stock: 2
`)
	t.Setenv("CONFIG_FILE", path)
	_, err := Load()
	assert.Error(t, err)
}
