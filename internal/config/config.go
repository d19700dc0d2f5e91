package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the tastymeals services.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Gateway  GatewayConfig  `yaml:"gateway"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration.
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// RedisConfig holds Redis connection and catalog cache configuration.
type RedisConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	CatalogTTLSeconds int    `yaml:"catalog_ttl_seconds"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	PublicURL              string `yaml:"public_url"`
	ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// AuthConfig holds token signing configuration.
type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	AccessTTLMins   int    `yaml:"access_ttl_minutes"`
	RefreshTTLHours int    `yaml:"refresh_ttl_hours"`
}

// GatewayConfig holds Daraja payment gateway configuration.
type GatewayConfig struct {
	BaseURL        string `yaml:"base_url"`
	Shortcode      string `yaml:"shortcode"`
	Passkey        string `yaml:"passkey"`
	CallbackURL    string `yaml:"callback_url"`
	CallbackSecret string `yaml:"callback_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Load reads configuration from a YAML file and applies environment
// overrides for secrets.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if secret := os.Getenv("TASTYMEALS_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if secret := os.Getenv("TASTYMEALS_CALLBACK_SECRET"); secret != "" {
		config.Gateway.CallbackSecret = secret
	}
	if password := os.Getenv("TASTYMEALS_DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" || c.Database.Database == "" {
		return fmt.Errorf("database host and database name are required")
	}
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required")
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

// RedisAddr returns the Redis host:port address.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// CatalogTTL returns the catalog cache expiry.
func (c *Config) CatalogTTL() time.Duration {
	if c.Redis.CatalogTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CatalogTTLSeconds) * time.Second
}

// AccessTTL returns the access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	if c.Auth.AccessTTLMins <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Auth.AccessTTLMins) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (c *Config) RefreshTTL() time.Duration {
	if c.Auth.RefreshTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.Auth.RefreshTTLHours) * time.Hour
}

// GatewayTimeout returns the outbound payment request timeout.
func (c *Config) GatewayTimeout() time.Duration {
	if c.Gateway.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}
