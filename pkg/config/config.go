package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Bootstrap BootstrapConfig
	Web       WebConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
	// TrustProxy honors X-Forwarded-For / X-Real-IP. Only enable behind a proxy that sets them.
	TrustProxy bool
}

type DatabaseConfig struct {
	Driver   string // postgres or sqlite
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file path
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// JWTConfig holds the two signing keys. Access and refresh tokens never share a key.
type JWTConfig struct {
	AccessKey        string
	RefreshKey       string
	Issuer           string
	Audience         string
	AccessTTLMinutes int
	RefreshTTLHours  int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

type WebConfig struct {
	StaticDir string
}

func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether a Redis host was configured at all.
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (j *JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.AccessTTLMinutes) * time.Minute
}

func (j *JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTTLHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_TRUST_PROXY", false)
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "staff")
	v.SetDefault("DATABASE_PASSWORD", "staff_secret")
	v.SetDefault("DATABASE_NAME", "staff_manager")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_PATH", "staff_manager.db")
	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("EVENTS_EXCHANGE", "staff.events")
	v.SetDefault("JWT_ACCESS_KEY", "change-me-access-key-in-production")
	v.SetDefault("JWT_REFRESH_KEY", "change-me-refresh-key-in-production")
	v.SetDefault("JWT_ISSUER", "staff-manager")
	v.SetDefault("JWT_AUDIENCE", "staff-manager-web")
	v.SetDefault("JWT_ACCESS_TTL_MINUTES", 30)
	v.SetDefault("JWT_REFRESH_TTL_HOURS", 14*24)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:       v.GetString("SERVER_HOST"),
			Port:       v.GetInt("SERVER_PORT"),
			Env:        v.GetString("SERVER_ENV"),
			TrustProxy: v.GetBool("SERVER_TRUST_PROXY"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DATABASE_DRIVER")),
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
			Path:     v.GetString("DATABASE_PATH"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("EVENTS_EXCHANGE"),
		},
		JWT: JWTConfig{
			AccessKey:        v.GetString("JWT_ACCESS_KEY"),
			RefreshKey:       v.GetString("JWT_REFRESH_KEY"),
			Issuer:           v.GetString("JWT_ISSUER"),
			Audience:         v.GetString("JWT_AUDIENCE"),
			AccessTTLMinutes: v.GetInt("JWT_ACCESS_TTL_MINUTES"),
			RefreshTTLHours:  v.GetInt("JWT_REFRESH_TTL_HOURS"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    v.GetString("BOOTSTRAP_ADMIN_EMAIL"),
			AdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Web: WebConfig{
			StaticDir: v.GetString("WEB_STATIC_DIR"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.JWT.AccessKey == "" || c.JWT.RefreshKey == "" {
		return fmt.Errorf("JWT_ACCESS_KEY and JWT_REFRESH_KEY are required")
	}
	if c.JWT.AccessKey == c.JWT.RefreshKey {
		return fmt.Errorf("JWT_ACCESS_KEY and JWT_REFRESH_KEY must differ")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
