package mssql

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ekaya-inc/ekaya-eda/pkg/adapters/datasource"
)

// Config contains SQL Server-specific connection options for one
// partition. Only SQL authentication is supported.
type Config struct {
	Host     string
	Port     int
	Database string
	Schema   string // the login's default schema; checked when the pool opens
	Username string
	Password string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
	MaxOpenConns           int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from a backing config map. The password falls
// back to MSSQL_PASSWORD.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              datasource.IntOption(config, "port", DefaultPort()),
		Encrypt:           true,
		ConnectionTimeout: datasource.IntOption(config, "connection_timeout", DefaultConnectionTimeout()),
		MaxOpenConns:      datasource.IntOption(config, "max_open_conns", 4),
		Schema:            datasource.StringOption(config, "schema"),
	}

	if cfg.Host = datasource.StringOption(config, "host"); cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.Database = datasource.StringOption(config, "database"); cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	cfg.Username = datasource.StringOption(config, "username")
	if cfg.Username == "" {
		cfg.Username = datasource.StringOption(config, "user")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("username is required for SQL authentication")
	}

	cfg.Password = datasource.StringOption(config, "password")
	if cfg.Password == "" {
		cfg.Password = os.Getenv("MSSQL_PASSWORD")
	}

	if encrypt, ok := config["encrypt"].(bool); ok {
		cfg.Encrypt = encrypt
	} else if encryptStr, ok := config["encrypt"].(string); ok {
		// Support string values: "true", "false", "strict"
		cfg.Encrypt = encryptStr == "true" || encryptStr == "strict"
	}
	if trust, ok := config["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	return cfg, nil
}

// connectionString builds a sqlserver:// URL with read-only application
// intent so availability-group secondaries can serve the partition.
func connectionString(cfg *Config) string {
	query := url.Values{}
	query.Add("database", cfg.Database)
	query.Add("ApplicationIntent", "ReadOnly")

	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", cfg.ConnectionTimeout))
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		query.Encode(),
	)
}
