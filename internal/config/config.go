package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
	Geo      GeoConfig
	Offline  OfflineConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type AuthConfig struct {
	JWTSecret          string
	SessionTokenExpiry time.Duration // signed credential validity
	SessionDuration    time.Duration // active session row lifetime
	OTPStep            time.Duration // TOTP step window
	OTPExpiry          time.Duration // login challenge lifetime
	ResetTokenExpiry   time.Duration // standard reset flow
	AdminResetExpiry   time.Duration // admin OTP-gated flow
	MaxFailures        int           // consecutive failures before a block
	BlockDuration      time.Duration
	EscalationCycles   int // blocks before the escalated window applies
	EscalatedBlock     time.Duration
	InactivityLimit    time.Duration
	SweepInterval      time.Duration
}

type EmailConfig struct {
	AWSRegion    string
	FromAddress  string
	ResetURLBase string
	SendTimeout  time.Duration
}

type GeoConfig struct {
	IPInfoToken      string
	LookupTimeout    time.Duration
	FallbackCountry  string
	FallbackRegion   string
	FallbackCity     string
	FallbackLat      float64
	FallbackLng      float64
	FallbackTimezone string
}

type OfflineConfig struct {
	Dir string // directory holding the identity and reset-token snapshots
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "lacteos"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			SessionTokenExpiry: getEnvAsDuration("SESSION_TOKEN_EXPIRY", 1*time.Hour),
			SessionDuration:    getEnvAsDuration("SESSION_DURATION", 5*time.Minute),
			OTPStep:            getEnvAsDuration("OTP_STEP", 300*time.Second),
			OTPExpiry:          getEnvAsDuration("OTP_EXPIRY", 5*time.Minute),
			ResetTokenExpiry:   getEnvAsDuration("RESET_TOKEN_EXPIRY", 15*time.Minute),
			AdminResetExpiry:   getEnvAsDuration("ADMIN_RESET_EXPIRY", 5*time.Minute),
			MaxFailures:        getEnvAsInt("LOCKOUT_MAX_FAILURES", 5),
			BlockDuration:      getEnvAsDuration("LOCKOUT_BLOCK_DURATION", 1*time.Minute),
			EscalationCycles:   getEnvAsInt("LOCKOUT_ESCALATION_CYCLES", 3),
			EscalatedBlock:     getEnvAsDuration("LOCKOUT_ESCALATED_BLOCK", 24*time.Hour),
			InactivityLimit:    getEnvAsDuration("ACTIVITY_INACTIVITY_LIMIT", 1*time.Minute),
			SweepInterval:      getEnvAsDuration("SESSION_SWEEP_INTERVAL", 1*time.Minute),
		},
		Email: EmailConfig{
			AWSRegion:    getEnv("EMAIL_AWS_REGION", "us-east-1"),
			FromAddress:  getEnv("EMAIL_FROM", ""),
			ResetURLBase: getEnv("RESET_URL_BASE", "http://localhost:4200/reset"),
			SendTimeout:  getEnvAsDuration("EMAIL_SEND_TIMEOUT", 10*time.Second),
		},
		Geo: GeoConfig{
			IPInfoToken:      getEnv("IPINFO_TOKEN", ""),
			LookupTimeout:    getEnvAsDuration("IPINFO_TIMEOUT", 5*time.Second),
			FallbackCountry:  getEnv("GEO_FALLBACK_COUNTRY", "MX"),
			FallbackRegion:   getEnv("GEO_FALLBACK_REGION", "Mexico City"),
			FallbackCity:     getEnv("GEO_FALLBACK_CITY", "Mexico City"),
			FallbackLat:      getEnvAsFloat("GEO_FALLBACK_LAT", 19.4326),
			FallbackLng:      getEnvAsFloat("GEO_FALLBACK_LNG", -99.1332),
			FallbackTimezone: getEnv("GEO_FALLBACK_TIMEZONE", "America/Mexico_City"),
		},
		Offline: OfflineConfig{
			Dir: getEnv("OFFLINE_DIR", "data"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:4200",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:4200",
		"http://127.0.0.1:8080",
	}
}
