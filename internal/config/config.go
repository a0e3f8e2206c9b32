// Package config loads this server's YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration schema, loaded from config.yaml.
type Config struct {
	DBPath       string       `yaml:"db_path"`
	MasterKeyHex string       `yaml:"master_key_hex"`
	WebServer    ServerConfig `yaml:"web_server"`
	GRPCServer   ServerConfig `yaml:"grpc_server"`
	LDAPServer   LDAPConfig   `yaml:"ldap_server"`
	Security     Security     `yaml:"security"`
	Logging      Logging      `yaml:"logging"`
	Paths        Paths        `yaml:"paths"`
	Metrics      Metrics      `yaml:"metrics"`
}

// ServerConfig is the shared shape of the web and gRPC listener config.
type ServerConfig struct {
	Address        string `yaml:"address"`
	EnableTLS      bool   `yaml:"enable_tls"`
	TLS            TLS    `yaml:"tls"`
	MaxRequestSize int64  `yaml:"max_request_size"`
}

// LDAPConfig is the LDAP listener config.
type LDAPConfig struct {
	Address            string `yaml:"address"`
	EnableTLS          bool   `yaml:"enable_tls"`
	TLS                TLS    `yaml:"tls"`
	AllowAnonymousBind bool   `yaml:"allow_anonymous_bind"`
	BaseDN             string `yaml:"base_dn"`
}

// TLS names the certificate material a listener should load.
type TLS struct {
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	CACertFile         string `yaml:"ca_cert_file"`
	ClientAuthRequired bool   `yaml:"client_auth_required"`
}

// Security groups the JWT, password policy, and audit settings.
type Security struct {
	JWT            JWT            `yaml:"jwt"`
	PasswordPolicy PasswordPolicy `yaml:"password_policy"`
	Audit          Audit          `yaml:"audit"`
}

// JWT configures token signing. Either SecretKey (HMAC, not currently
// supported by this implementation) or the PEM key-pair paths may be set;
// this implementation always uses RS256 via the key-pair paths, which may
// also come from the JWT_PRIVATE_KEY_PATH/JWT_PUBLIC_KEY_PATH environment
// variables when unset here.
type JWT struct {
	Algorithm       string        `yaml:"algorithm"`
	SecretKey       string        `yaml:"secret_key"`
	PrivateKeyPath  string        `yaml:"private_key_path"`
	PublicKeyPath   string        `yaml:"public_key_path"`
	TokenExpiry     time.Duration `yaml:"token_expiry"`
}

// PasswordPolicy configures password-strength validation and the
// password-expiry housekeeping sweep.
type PasswordPolicy struct {
	MinLength          int  `yaml:"min_length"`
	RequireUppercase   bool `yaml:"require_uppercase"`
	RequireLowercase   bool `yaml:"require_lowercase"`
	RequireDigits      bool `yaml:"require_digits"`
	RequireSpecialChars bool `yaml:"require_special_chars"`
	MaxAgeDays         int  `yaml:"max_age_days"`
	HistoryCount       int  `yaml:"history_count"`
}

// Audit configures where audit events are durably recorded. Only
// Backend=="FILE" is implemented; any other Backend value is rejected at
// Validate time. The Kafka block is parsed but its contents are not checked.
type Audit struct {
	Backend     string `yaml:"backend"`
	FilePath    string `yaml:"file_path"`
	DatabaseURL string `yaml:"database_url"`
	Kafka       *Kafka `yaml:"kafka"`
}

// Kafka is parsed from the config file but neither validated nor connected to.
type Kafka struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
}

// Logging configures zap's construction.
type Logging struct {
	Level            string `yaml:"level"`
	EnableJSONOutput bool   `yaml:"enable_json_output"`
	LogFile          string `yaml:"log_file"`
	EnableTracing    bool   `yaml:"enable_tracing"`
}

// Paths names optional working directories.
type Paths struct {
	KeysDir string `yaml:"keys_dir"`
	CertsDir string `yaml:"certs_dir"`
	TempDir  string `yaml:"temp_dir"`
}

// Metrics configures the optional Prometheus endpoint.
type Metrics struct {
	Enabled           bool   `yaml:"enabled"`
	PrometheusEndpoint string `yaml:"prometheus_endpoint"`
}

// defaults fills in every field the schema gives a default for, applied
// before the YAML is unmarshaled over it so the file only needs to name
// what it overrides.
func defaults() Config {
	return Config{
		WebServer:  ServerConfig{Address: ":8080"},
		GRPCServer: ServerConfig{Address: ":9090"},
		LDAPServer: LDAPConfig{Address: ":389", BaseDN: "DC=example,DC=test"},
		Security: Security{
			JWT: JWT{Algorithm: "RS256", TokenExpiry: 24 * time.Hour},
			PasswordPolicy: PasswordPolicy{
				MinLength:        8,
				RequireUppercase: true,
				RequireLowercase: true,
				RequireDigits:    true,
				MaxAgeDays:       90,
				HistoryCount:     5,
			},
			Audit: Audit{Backend: "FILE"},
		},
		Logging: Logging{Level: "INFO"},
	}
}

// Load reads and parses the YAML config file at path, applying schema
// defaults first, then validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the required fields and rejects unimplemented audit
// backends explicitly, rather than silently ignoring them.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if len(c.MasterKeyHex) != 64 {
		return fmt.Errorf("config: master_key_hex must be 64 hex characters (32 bytes), got %d", len(c.MasterKeyHex))
	}
	switch c.Security.Audit.Backend {
	case "FILE":
	case "":
	default:
		return fmt.Errorf("config: security.audit.backend %q is accepted for forward compatibility but not implemented; only FILE is supported", c.Security.Audit.Backend)
	}
	return nil
}
