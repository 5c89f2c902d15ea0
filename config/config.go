// Package config loads and validates the portal configuration from the
// environment (optionally seeded from a .env file).
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment environment the portal runs in.
type Environment int

const (
	EnvDevelopment Environment = iota
	EnvStaging
	EnvProduction
	EnvTest
)

// ParseEnvironment parses ENV values. Long forms are accepted.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

func (e Environment) String() string {
	switch e {
	case EnvStaging:
		return "staging"
	case EnvProduction:
		return "prod"
	case EnvTest:
		return "test"
	default:
		return "dev"
	}
}

// minSessionSecret is the minimum HMAC key length for the session cookie.
const minSessionSecret = 32

// devSessionSecret is only ever used in dev and test.
const devSessionSecret = "dev-only-session-secret-change-me!!"

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	// Hospital API
	APIBaseURL    string
	APITimeout    time.Duration
	EndpointsFile string

	// Sessions
	SessionSecret        string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	// Login rate limiting, per client IP
	LoginRate  float64
	LoginBurst int64

	QueuePollInterval time.Duration
}

// LoadDotEnv reads .env from the working directory if there is one.
// A missing file is not an error, the environment alone is enough.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read .env: %w", err)
	}
	return nil
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		APIBaseURL:    strings.TrimRight(getEnvWithDefault("API_BASE_URL", "http://localhost:5001/api"), "/"),
		APITimeout:    getDurationEnvWithDefault("API_TIMEOUT", 10*time.Second),
		EndpointsFile: os.Getenv("ENDPOINTS_FILE"),

		SessionSecret:        os.Getenv("SESSION_SECRET"),
		SessionTTL:           getDurationEnvWithDefault("SESSION_TTL", 7*24*time.Hour),
		SessionSweepInterval: getDurationEnvWithDefault("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		LoginRate:  getFloatEnvWithDefault("LOGIN_RATE", 0.2),
		LoginBurst: getInt64EnvWithDefault("LOGIN_BURST", 5),

		QueuePollInterval: getDurationEnvWithDefault("QUEUE_POLL_INTERVAL", 5*time.Second),
	}

	if cfg.SessionSecret == "" && (cfg.Env == EnvDevelopment || cfg.Env == EnvTest) {
		cfg.SessionSecret = devSessionSecret
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateAPIBaseURL(cfg.APIBaseURL); err != nil {
		return fmt.Errorf("invalid API_BASE_URL: %w", err)
	}

	if err := validatePositiveDuration(cfg.APITimeout, "API_TIMEOUT"); err != nil {
		return fmt.Errorf("invalid API_TIMEOUT: %w", err)
	}

	if err := validateSessionSecret(cfg.SessionSecret); err != nil {
		return fmt.Errorf("invalid SESSION_SECRET: %w", err)
	}

	if err := validatePositiveDuration(cfg.SessionTTL, "SESSION_TTL"); err != nil {
		return fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	if err := validatePositiveDuration(cfg.SessionSweepInterval, "SESSION_SWEEP_INTERVAL"); err != nil {
		return fmt.Errorf("invalid SESSION_SWEEP_INTERVAL: %w", err)
	}

	if cfg.LoginRate <= 0 || cfg.LoginBurst <= 0 {
		return fmt.Errorf("invalid LOGIN_RATE/LOGIN_BURST: both must be positive, got %v/%d", cfg.LoginRate, cfg.LoginBurst)
	}

	if err := validatePositiveDuration(cfg.QueuePollInterval, "QUEUE_POLL_INTERVAL"); err != nil {
		return fmt.Errorf("invalid QUEUE_POLL_INTERVAL: %w", err)
	}

	if cfg.EndpointsFile != "" {
		if _, err := os.Stat(cfg.EndpointsFile); err != nil {
			return fmt.Errorf("invalid ENDPOINTS_FILE: %w", err)
		}
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateAPIBaseURL requires an absolute http(s) URL
func validateAPIBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("API_BASE_URL must be a valid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use http or https, got: %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("API_BASE_URL must include a host, got: %s", raw)
	}

	return nil
}

func validateSessionSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("SESSION_SECRET is required outside dev and test")
	}

	if len(secret) < minSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes, got: %d", minSessionSecret, len(secret))
	}

	return nil
}

func validatePositiveDuration(d time.Duration, configName string) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got: %s", configName, d)
	}
	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go durations ("90s", "168h").
// Unparseable values fall back to the default.
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"API_BASE_URL",
		"API_TIMEOUT",
		"ENDPOINTS_FILE",
		"SESSION_SECRET",
		"SESSION_TTL",
		"SESSION_SWEEP_INTERVAL",
		"LOGIN_RATE",
		"LOGIN_BURST",
		"QUEUE_POLL_INTERVAL",
	}
}
