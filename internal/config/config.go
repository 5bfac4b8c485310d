package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogItem seeds one product into the inventory ledger at boot.
type CatalogItem struct {
	ProductID string `yaml:"product_id"`
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	UnitPrice int64  `yaml:"unit_price"`
	Stock     int    `yaml:"stock"`
}

type Config struct {
	ServiceName   string        `yaml:"service_name"`
	Env           string        `yaml:"env"`
	HTTPAddr      string        `yaml:"http_addr"`
	WebhookSecret string        `yaml:"webhook_secret"`
	Catalog       []CatalogItem `yaml:"catalog"`
}

func defaults() *Config {
	return &Config{
		ServiceName:   "drop",
		Env:           "dev",
		HTTPAddr:      ":8080",
		WebhookSecret: "whsec_dev",
	}
}

// Load reads the YAML file named by CONFIG_FILE (when set) and applies
// environment overrides on top. Missing file with CONFIG_FILE unset is
// not an error; the defaults carry a dev-only webhook secret.
func Load() (*Config, error) {
	cfg := defaults()

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// fall through to env overrides
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
}

func validate(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("config: http_addr is required")
	}
	if cfg.WebhookSecret == "" {
		return fmt.Errorf("config: webhook_secret is required")
	}
	seen := make(map[string]bool, len(cfg.Catalog))
	for _, item := range cfg.Catalog {
		if item.ProductID == "" {
			return fmt.Errorf("config: catalog item without product_id")
		}
		if seen[item.ProductID] {
			return fmt.Errorf("config: duplicate catalog product %s", item.ProductID)
		}
		seen[item.ProductID] = true
		if item.Stock < 0 {
			return fmt.Errorf("config: catalog product %s has negative stock", item.ProductID)
		}
	}
	return nil
}
