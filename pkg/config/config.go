package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: ranking history is disabled without DATABASE_URL)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Scoring
	Scoring ScoringConfig

	// API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	Prefix   string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ScoringConfig holds directive and composite scoring settings
type ScoringConfig struct {
	ConfigPath         string        // YAML directive/scoring config; empty = built-in defaults
	DefaultTradingMode string        // long, short
	CapabilityCacheTTL time.Duration // capability matrix lifetime
	CandidatesFile     string        // JSON candidates for the ranking job
	CapabilitySchedule string        // cron expression
	RankingSchedule    string        // cron expression
}

// APIConfig holds HTTP API settings
type APIConfig struct {
	RateLimit       int           // requests per window per client, 0 disables
	RateLimitWindow time.Duration // must be positive when RateLimit > 0
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration

	// TrustedProxies lists proxy IPs/CIDRs whose X-Forwarded-For is honoured.
	// Empty means the peer address is always the client.
	TrustedProxies []string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Prefix:   getEnv("REDIS_PREFIX", "tradepress"),
		},

		Scoring: ScoringConfig{
			ConfigPath:         getEnv("SCORING_CONFIG", ""),
			DefaultTradingMode: getEnv("DEFAULT_TRADING_MODE", "long"),
			CapabilityCacheTTL: getEnvAsDuration("CAPABILITY_CACHE_TTL", "24h"),
			CandidatesFile:     getEnv("CANDIDATES_FILE", ""),
			CapabilitySchedule: getEnv("CAPABILITY_REFRESH_SCHEDULE", "0 0 3 * * *"),
			RankingSchedule:    getEnv("RANKING_SCHEDULE", "0 30 7 * * 1-5"),
		},

		API: APIConfig{
			RateLimit:       getEnvAsInt("API_RATE_LIMIT", 120),
			RateLimitWindow: getEnvAsDuration("API_RATE_LIMIT_WINDOW", "1m"),
			ReadTimeout:     getEnvAsDuration("API_READ_TIMEOUT", "15s"),
			WriteTimeout:    getEnvAsDuration("API_WRITE_TIMEOUT", "15s"),
			TrustedProxies:  getEnvAsSlice("TRUSTED_PROXIES"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are consistent
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scoring.DefaultTradingMode != "long" && c.Scoring.DefaultTradingMode != "short" {
		return fmt.Errorf("DEFAULT_TRADING_MODE must be one of: long, short")
	}

	if c.Scoring.CapabilityCacheTTL <= 0 {
		return fmt.Errorf("CAPABILITY_CACHE_TTL must be positive")
	}

	if c.API.RateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT must not be negative")
	}

	if c.API.RateLimit > 0 && c.API.RateLimitWindow <= 0 {
		return fmt.Errorf("API_RATE_LIMIT_WINDOW must be positive")
	}

	if _, err := ParseCIDRs(c.API.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma separated value, dropping empty items
func getEnvAsSlice(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// ParseCIDRs parses IPs and CIDR blocks. A bare IP becomes a single-host block.
func ParseCIDRs(entries []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid IP %q", entry)
			}
			bits := 128
			if v4 := ip.To4(); v4 != nil {
				ip, bits = v4, 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}

		_, block, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", entry, err)
		}
		nets = append(nets, block)
	}
	return nets, nil
}
