// Package config loads and validates runtime configuration from environment
// variables and an optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/s3manager/s3manager/internal/auth"
)

// Config is the full runtime configuration.
type Config struct {
	Listen   string `mapstructure:"listen" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	BaseURL  string `mapstructure:"base_url" validate:"required,url"`

	// DevMode replaces the identity provider with a synthetic admin session
	// and the object store with an in-memory one.
	DevMode bool `mapstructure:"dev_mode"`

	S3   S3Config   `mapstructure:"s3"`
	Auth AuthConfig `mapstructure:"auth"`
	OIDC OIDCConfig `mapstructure:"oidc"`
}

// S3Config points at the S3-compatible endpoint. The admin key pair is
// optional and only unlocks the usage endpoint.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`

	AdminAccessKey string `mapstructure:"admin_access_key"`
	AdminSecretKey string `mapstructure:"admin_secret_key"`
}

// AuthConfig is the role-to-permission mapping and session policy.
type AuthConfig struct {
	RoleMap       map[string][]string `mapstructure:"role_map" validate:"required"`
	DefaultRole   string              `mapstructure:"default_role" validate:"required"`
	SessionTTL    time.Duration       `mapstructure:"session_ttl" validate:"required"`
	SecureCookies bool                `mapstructure:"secure_cookies"`
}

// OIDCConfig selects and configures the identity provider.
type OIDCConfig struct {
	Provider     string   `mapstructure:"provider"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`

	TenantID  string `mapstructure:"tenant_id"`
	ServerURL string `mapstructure:"server_url"`
	Realm     string `mapstructure:"realm"`
}

// PermissionRoleMap converts the configured role map into the typed form the
// permission mapping consumes.
func (a AuthConfig) PermissionRoleMap() auth.RoleMap {
	rm := make(auth.RoleMap, len(a.RoleMap))
	for role, perms := range a.RoleMap {
		typed := make([]auth.Permission, 0, len(perms))
		for _, p := range perms {
			typed = append(typed, auth.Permission(p))
		}
		rm[role] = typed
	}
	return rm
}

// Load reads configuration: defaults, then the optional YAML file at path,
// then S3MANAGER_* environment variables (highest precedence).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("S3MANAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("dev_mode", false)

	// Empty defaults register the keys so environment lookups see them.
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.admin_access_key", "")
	v.SetDefault("s3.admin_secret_key", "")

	v.SetDefault("auth.role_map", map[string][]string{
		"S3-Viewer": {"view"},
		"S3-Editor": {"view", "write"},
		"S3-Admin":  {"view", "write", "delete"},
	})
	v.SetDefault("auth.default_role", "S3-Viewer")
	v.SetDefault("auth.session_ttl", "1h")
	v.SetDefault("auth.secure_cookies", false)

	v.SetDefault("oidc.provider", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("oidc.tenant_id", "")
	v.SetDefault("oidc.server_url", "")
	v.SetDefault("oidc.realm", "")
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	// Dev mode runs without a store endpoint or an identity provider.
	if cfg.DevMode {
		return nil
	}
	if cfg.S3.Endpoint == "" || cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "" {
		return fmt.Errorf("s3 endpoint and credentials are required outside dev mode")
	}
	if cfg.OIDC.Provider == "" || cfg.OIDC.ClientID == "" {
		return fmt.Errorf("oidc provider and client id are required outside dev mode")
	}
	return nil
}
