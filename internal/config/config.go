// Package config loads server settings from .env, an optional YAML file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/OxMxDev/portfolio/internal/relay"
	"github.com/OxMxDev/portfolio/internal/section"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes environment overrides: PORTFOLIO_LOG_LEVEL -> log_level,
// PORTFOLIO_RELAY__TIMEOUT -> relay.timeout.
const EnvPrefix = "PORTFOLIO_"

// ErrConfiguration wraps every fatal settings problem.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Port           string   `koanf:"port"`
	GinMode        string   `koanf:"gin_mode"`
	LogLevel       string   `koanf:"log_level"`
	TemplatesDir   string   `koanf:"templates_dir"`
	StaticDir      string   `koanf:"static_dir"`
	ImagesDir      string   `koanf:"images_dir"`
	ContentFile    string   `koanf:"content_file"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	// VisitorSalt salts the hashed client IPs in the access log. Empty
	// means a fresh random salt per process.
	VisitorSalt string `koanf:"visitor_salt"`
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the socket peer is the client.
	TrustedProxies []string `koanf:"trusted_proxies"`
	// TrustedPlatform names a header set by the hosting platform carrying
	// the client IP, e.g. CF-Connecting-IP.
	TrustedPlatform string `koanf:"trusted_platform"`

	Relay     relay.Config    `koanf:"relay"`
	Contact   ContactConfig   `koanf:"contact"`
	Session   SessionConfig   `koanf:"session"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Redis     RedisConfig     `koanf:"redis"`
	Band      section.Band    `koanf:"band"`
}

type ContactConfig struct {
	SuccessDelay time.Duration `koanf:"success_delay"`
	ErrorDelay   time.Duration `koanf:"error_delay"`
}

type SessionConfig struct {
	Max    int    `koanf:"max"`
	Cookie string `koanf:"cookie"`
	Secure bool   `koanf:"secure"`
	// CreateLimit caps new sessions per client IP per CreateWindow.
	CreateLimit  int           `koanf:"create_limit"`
	CreateWindow time.Duration `koanf:"create_window"`
}

type RateLimitConfig struct {
	Limit  int           `koanf:"limit"`
	Window time.Duration `koanf:"window"`
}

type RedisConfig struct {
	URL      string `koanf:"url"`
	Password string `koanf:"password"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Port:         "8080",
		GinMode:      "debug",
		LogLevel:     "info",
		TemplatesDir: "templates",
		StaticDir:    "static",
		ImagesDir:    "images",
		Relay: relay.Config{
			Endpoint: relay.DefaultEndpoint,
			Timeout:  10 * time.Second,
		},
		Contact: ContactConfig{
			SuccessDelay: 5 * time.Second,
			ErrorDelay:   4 * time.Second,
		},
		Session: SessionConfig{
			Max:          2048,
			Cookie:       "portfolio_session",
			CreateLimit:  30,
			CreateWindow: time.Minute,
		},
		RateLimit: RateLimitConfig{
			Limit:  5,
			Window: time.Minute,
		},
		Band: section.DefaultBand(),
	}
}

// Load reads .env (when present), then path (when present), then
// PORTFOLIO_* variables, then the bare variables PORT, GIN_MODE,
// WEB3FORMS_ACCESS_KEY, REDIS_URL and TRUSTED_PROXIES.
func Load(path string) (*Config, error) {
	// .env only exists locally; production sets real variables.
	_ = godotenv.Load()

	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)
	cfg.Relay.AccessKey = getEnv("WEB3FORMS_ACCESS_KEY", getEnv("VITE_WEB3FORMS_ACCESS_KEY", cfg.Relay.AccessKey))
	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.VisitorSalt = getEnv("VISITOR_HASH_SALT", cfg.VisitorSalt)
	if proxies := getEnv("TRUSTED_PROXIES", ""); proxies != "" {
		cfg.TrustedProxies = splitList(proxies)
	}

	return cfg, nil
}

// Validate reports settings the server cannot start with. A missing relay
// key is fatal here rather than surfacing later as failed submissions.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("%w: port is required", ErrConfiguration)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("%w: gin_mode %q must be debug, release or test", ErrConfiguration, c.GinMode)
	}
	if strings.TrimSpace(c.Relay.AccessKey) == "" {
		return fmt.Errorf("%w: WEB3FORMS_ACCESS_KEY is not set", ErrConfiguration)
	}
	if c.Contact.SuccessDelay <= 0 || c.Contact.ErrorDelay <= 0 {
		return fmt.Errorf("%w: contact reset delays must be positive", ErrConfiguration)
	}
	if c.Session.Max <= 0 {
		return fmt.Errorf("%w: session.max must be positive", ErrConfiguration)
	}
	if c.Session.Cookie == "" {
		return fmt.Errorf("%w: session.cookie is required", ErrConfiguration)
	}
	if c.Session.CreateLimit <= 0 || c.Session.CreateWindow <= 0 {
		return fmt.Errorf("%w: session create_limit and create_window must be positive", ErrConfiguration)
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("%w: trusted proxy %q is not an IP or CIDR", ErrConfiguration, p)
			}
		}
	}
	if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("%w: ratelimit limit and window must be positive", ErrConfiguration)
	}
	if err := c.Band.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

// ParseLevel maps a log_level value onto slog.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", s)
	}
	return lvl, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
