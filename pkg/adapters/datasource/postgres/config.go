package postgres

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource"
)

// Config contains PostgreSQL-specific connection options. One Config
// addresses one partition: a database plus the schema its tables live in.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Schema   string // search_path for the partition
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
	MaxConns int32

	// URL overrides the discrete fields when set.
	URL string
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "require"
}

// FromMap creates a Config from a backing config map. The password falls
// back to PGPASSWORD so catalogs never carry secrets.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:     datasource.IntOption(config, "port", DefaultPort()),
		SSLMode:  DefaultSSLMode(),
		MaxConns: int32(datasource.IntOption(config, "max_conns", 4)),
		URL:      datasource.StringOption(config, "url"),
		Schema:   datasource.StringOption(config, "schema"),
	}

	if cfg.URL != "" {
		return cfg, nil
	}

	if cfg.Host = datasource.StringOption(config, "host"); cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.User = datasource.StringOption(config, "user"); cfg.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	if cfg.Database = datasource.StringOption(config, "database"); cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	cfg.Password = datasource.StringOption(config, "password")
	if cfg.Password == "" {
		cfg.Password = os.Getenv("PGPASSWORD")
	}
	if sslMode := datasource.StringOption(config, "ssl_mode"); sslMode != "" {
		cfg.SSLMode = sslMode
	}

	return cfg, nil
}

func buildConnectionString(cfg *Config) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		url.QueryEscape(cfg.Database),
		sslMode,
	)
}
