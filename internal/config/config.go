package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env      string `mapstructure:"CT_ENV"`
	LogLevel string `mapstructure:"CT_LOG_LEVEL"`
	HTTPAddr string `mapstructure:"CT_HTTP_ADDR"`

	Cache    CacheConfig    `mapstructure:",squash"`
	Ticker   TickerConfig   `mapstructure:",squash"`
	Assets   AssetConfig    `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type CacheConfig struct {
	RedisAddr string        `mapstructure:"CT_REDIS_ADDR"`
	TableTTL  time.Duration `mapstructure:"CT_CACHE_TABLE_TTL"`
}

type TickerConfig struct {
	Interval   time.Duration `mapstructure:"CT_TICK_INTERVAL"`
	AutoStart  bool          `mapstructure:"CT_TICK_AUTOSTART"`
	RandomSeed int64         `mapstructure:"CT_RANDOM_SEED"` // 0 seeds from the clock
}

type AssetConfig struct {
	SeedFile string `mapstructure:"CT_SEED_FILE"` // optional JSON array replacing the built-in dataset
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"CT_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"CT_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CT_ENV", "dev")
	v.SetDefault("CT_LOG_LEVEL", "")
	v.SetDefault("CT_HTTP_ADDR", ":8080")
	v.SetDefault("CT_REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("CT_CACHE_TABLE_TTL", "10s")
	v.SetDefault("CT_TICK_INTERVAL", "1500ms")
	v.SetDefault("CT_TICK_AUTOSTART", true)
	v.SetDefault("CT_RANDOM_SEED", 0)
	v.SetDefault("CT_SEED_FILE", "")
	v.SetDefault("CT_RATE_LIMIT_RPM", 600)
	v.SetDefault("CT_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
}

// Load reads configuration from .env files and the process environment.
func Load() (*Config, error) {
	loadDotEnvFiles()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigType("env")
	setDefaults(v)
	// AutomaticEnv alone does not make Unmarshal see env-only keys.
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(strings.ToUpper(key))
	}
	v.AutomaticEnv()

	// Handle array parsing for comma-separated values
	if origins := v.GetString("CT_CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("CT_CORS_ALLOWED_ORIGINS", splitList(origins))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Env {
	case "dev", "test", "prod":
	default:
		return fmt.Errorf("invalid CT_ENV %q (must be dev, test, or prod)", c.Env)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("CT_HTTP_ADDR is required")
	}
	if c.Ticker.Interval <= 0 {
		return fmt.Errorf("CT_TICK_INTERVAL must be positive, got %s", c.Ticker.Interval)
	}
	if c.Security.RateLimitRPM <= 0 {
		return fmt.Errorf("CT_RATE_LIMIT_RPM must be positive, got %d", c.Security.RateLimitRPM)
	}
	return nil
}

// Warnings lists settings that load fine but are unsafe outside dev.
func (c *Config) Warnings() []string {
	if !c.IsProd() {
		return nil
	}
	var out []string
	for _, o := range c.Security.CORSAllowedOrigins {
		if o == "*" || strings.Contains(o, "localhost") {
			out = append(out, fmt.Sprintf("CT_CORS_ALLOWED_ORIGINS includes %q in prod", o))
		}
	}
	if c.Ticker.RandomSeed != 0 {
		out = append(out, "CT_RANDOM_SEED is fixed in prod; every restart replays the same prices")
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
