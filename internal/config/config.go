package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	// Telegram
	BotToken string

	// Database
	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Security
	JWTSecret      string
	SuperAdminTgID int64

	// Application
	AppEnv   string
	AppPort  string
	LogLevel string

	// Rate Limiting
	RateLimitPerUser int

	// Matchmaking
	Engine EngineConfig `yaml:"engine"`
}

// EngineConfig holds the matchmaking tuning knobs. It can be provided as the
// "engine" section of the YAML file named by SCRIM_CONFIG_FILE; environment
// variables still win.
type EngineConfig struct {
	RequestTTLMinutes     int `yaml:"request_ttl_minutes"`
	ApprovalTTLMinutes    int `yaml:"approval_ttl_minutes"`
	AvoidCooldownHours    int `yaml:"avoid_cooldown_hours"`
	ReaperIntervalSeconds int `yaml:"reaper_interval_seconds"`
	MaxClaimRetries       int `yaml:"max_claim_retries"`
	ScanLimit             int `yaml:"scan_limit"`
	NotifyIntervalMs      int `yaml:"notify_interval_ms"`
}

func defaultEngineConfig() EngineConfig {
	return EngineConfig{
		RequestTTLMinutes:     120,
		ApprovalTTLMinutes:    10,
		AvoidCooldownHours:    24,
		ReaperIntervalSeconds: 60,
		MaxClaimRetries:       3,
		ScanLimit:             50,
		NotifyIntervalMs:      100,
	}
}

func LoadConfig() (*Config, error) {
	engine := defaultEngineConfig()
	if path := os.Getenv("SCRIM_CONFIG_FILE"); path != "" {
		fileCfg, err := loadEngineFile(path, engine)
		if err != nil {
			return nil, err
		}
		engine = fileCfg
	}

	cfg := &Config{
		BotToken:    getEnv("BOT_TOKEN", ""),
		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "scrimbot"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "scrimbot_db"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET_KEY", ""),

		AppEnv:   getEnv("APP_ENV", "development"),
		AppPort:  getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RateLimitPerUser: getEnvInt("RATE_LIMIT_PER_USER", 20),

		Engine: EngineConfig{
			RequestTTLMinutes:     getEnvInt("SCRIM_REQUEST_TTL_MINUTES", engine.RequestTTLMinutes),
			ApprovalTTLMinutes:    getEnvInt("APPROVAL_TTL_MINUTES", engine.ApprovalTTLMinutes),
			AvoidCooldownHours:    getEnvInt("AVOID_COOLDOWN_HOURS", engine.AvoidCooldownHours),
			ReaperIntervalSeconds: getEnvInt("REAPER_INTERVAL_SECONDS", engine.ReaperIntervalSeconds),
			MaxClaimRetries:       getEnvInt("MATCH_MAX_RETRIES", engine.MaxClaimRetries),
			ScanLimit:             getEnvInt("MATCH_SCAN_LIMIT", engine.ScanLimit),
			NotifyIntervalMs:      getEnvInt("NOTIFY_INTERVAL_MS", engine.NotifyIntervalMs),
		},
	}

	// Parse super admin telegram ID
	superAdminStr := getEnv("SUPER_ADMIN_TELEGRAM_ID", "")
	if superAdminStr != "" {
		id, err := strconv.ParseInt(superAdminStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SUPER_ADMIN_TELEGRAM_ID: %w", err)
		}
		cfg.SuperAdminTgID = id
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadEngineFile(path string, defaults EngineConfig) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Unset keys keep their defaults.
	wrapper := struct {
		Engine EngineConfig `yaml:"engine"`
	}{Engine: defaults}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return defaults, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return wrapper.Engine, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters")
	}
	return c.Engine.Validate()
}

func (e EngineConfig) Validate() error {
	if e.RequestTTLMinutes <= 0 {
		return fmt.Errorf("SCRIM_REQUEST_TTL_MINUTES must be positive")
	}
	if e.ApprovalTTLMinutes <= 0 {
		return fmt.Errorf("APPROVAL_TTL_MINUTES must be positive")
	}
	if e.AvoidCooldownHours <= 0 {
		return fmt.Errorf("AVOID_COOLDOWN_HOURS must be positive")
	}
	if e.ReaperIntervalSeconds <= 0 {
		return fmt.Errorf("REAPER_INTERVAL_SECONDS must be positive")
	}
	if e.MaxClaimRetries < 1 {
		return fmt.Errorf("MATCH_MAX_RETRIES must be at least 1")
	}
	if e.ScanLimit < 1 {
		return fmt.Errorf("MATCH_SCAN_LIMIT must be at least 1")
	}
	if e.NotifyIntervalMs < 0 {
		return fmt.Errorf("NOTIFY_INTERVAL_MS must not be negative")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if c.AppEnv != "production" {
		return nil
	}

	if c.StoreDriver != StoreDriverPostgres {
		return fmt.Errorf("STORE_DRIVER must be 'postgres' in production")
	}
	if c.DBSSLMode != "require" {
		return fmt.Errorf("DB_SSLMODE must be 'require' in production")
	}
	if c.JWTSecret == "your_jwt_secret_minimum_32_chars_here_change_this" {
		return fmt.Errorf("JWT_SECRET_KEY must be changed from default in production")
	}
	if c.SuperAdminTgID == 0 {
		return fmt.Errorf("SUPER_ADMIN_TELEGRAM_ID must be set in production")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (e EngineConfig) RequestTTL() time.Duration {
	return time.Duration(e.RequestTTLMinutes) * time.Minute
}

func (e EngineConfig) ApprovalTTL() time.Duration {
	return time.Duration(e.ApprovalTTLMinutes) * time.Minute
}

func (e EngineConfig) AvoidCooldown() time.Duration {
	return time.Duration(e.AvoidCooldownHours) * time.Hour
}

func (e EngineConfig) ReaperInterval() time.Duration {
	return time.Duration(e.ReaperIntervalSeconds) * time.Second
}

func (e EngineConfig) NotifyInterval() time.Duration {
	return time.Duration(e.NotifyIntervalMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
