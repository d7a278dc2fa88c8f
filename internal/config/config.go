package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	SSO      SSOConfig
	Session  SessionConfig
	Auth     AuthConfig
	Signup   SignupConfig
	Email    EmailConfig
	LogLevel string
}

type ServerConfig struct {
	Port               string
	Environment        string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string
	AppBaseURL         string
}

type DatabaseConfig struct {
	Driver       string // postgres | memory
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type SSOConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string
}

type SessionConfig struct {
	CookieName string
	Expiry     time.Duration
}

type AuthConfig struct {
	MaxFailedLogins   int
	FailedLoginWindow time.Duration
	BcryptCost        int
}

type SignupConfig struct {
	Enabled     bool
	DefaultPlan string
}

type EmailConfig struct {
	Enabled   bool
	APIKey    string
	FromEmail string
	FromName  string
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("SERVER_PORT", "8080"),
			Environment:        getEnv("ENVIRONMENT", "development"),
			ReadTimeout:        getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:       getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			CORSAllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AppBaseURL:         strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "caleidoscopio"),
			Password:     getEnv("DB_PASSWORD", "caleidoscopio"),
			DBName:       getEnv("DB_NAME", "manager"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		SSO: SSOConfig{
			TokenSecret: getEnv("SSO_TOKEN_SECRET", "dev-sso-secret-change-me"),
			TokenExpiry: getDurationEnv("SSO_TOKEN_EXPIRY", time.Hour),
			Issuer:      getEnv("SSO_ISSUER", "caleidoscopio-manager"),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "session"),
			Expiry:     getDurationEnv("SESSION_EXPIRY", 7*24*time.Hour),
		},
		Auth: AuthConfig{
			MaxFailedLogins:   getIntEnv("AUTH_MAX_FAILED_LOGINS", 5),
			FailedLoginWindow: getDurationEnv("AUTH_FAILED_LOGIN_WINDOW", 15*time.Minute),
			BcryptCost:        getIntEnv("AUTH_BCRYPT_COST", 12),
		},
		Signup: SignupConfig{
			Enabled:     getBoolEnv("SIGNUP_ENABLED", true),
			DefaultPlan: getEnv("SIGNUP_DEFAULT_PLAN", "basico"),
		},
		Email: EmailConfig{
			Enabled:   getBoolEnv("EMAIL_ENABLED", false),
			APIKey:    getEnv("RESEND_API_KEY", ""),
			FromEmail: getEnv("EMAIL_FROM", "no-reply@caleidoscopio.app"),
			FromName:  getEnv("EMAIL_FROM_NAME", "Caleidoscópio"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Validate rejects settings the service cannot run safely with
func (c *Config) Validate() error {
	var errs []error

	if c.IsProduction() && len(c.SSO.TokenSecret) < 32 {
		errs = append(errs, errors.New("SSO_TOKEN_SECRET must be at least 32 characters in production"))
	}
	if c.SSO.TokenExpiry <= 0 {
		errs = append(errs, errors.New("SSO_TOKEN_EXPIRY must be positive"))
	}
	if c.Session.Expiry <= 0 {
		errs = append(errs, errors.New("SESSION_EXPIRY must be positive"))
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "memory" {
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	if c.Email.Enabled && c.Email.APIKey == "" {
		errs = append(errs, errors.New("RESEND_API_KEY is required when EMAIL_ENABLED=true"))
	}
	return errors.Join(errs...)
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
