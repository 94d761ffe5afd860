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
	Database  DatabaseConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Contact   ContactConfig
	Mail      MailConfig
	Session   SessionConfig
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
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// RateLimitConfig selects the durable store behind the submission limiter
type RateLimitConfig struct {
	Store           string // memory, file, sqlite, postgres
	FilePath        string
	SQLitePath      string
	MaxSubmissions  int
	Window          time.Duration
	BurstPerMinute  int
	CleanupInterval time.Duration
}

type ContactConfig struct {
	MinFillTime   time.Duration
	SendTimeout   time.Duration
	LogDir        string
	SubjectPrefix string
	SiteName      string
	// Silent rejections are padded to base plus a random share of random
	RejectDelayBaseMs   int
	RejectDelayRandomMs int
}

type MailConfig struct {
	Transport    string // smtp, ses, log
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPSecure   string // ssl, tls, or empty
	FromAddress  string
	FromName     string
	ToAddress    string
	ToName       string
	AWSRegion    string
}

type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	SameSite   string
}

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	TransportSMTP = "smtp"
	TransportSES  = "ses"
	TransportLog  = "log"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: databaseFromEnv(),
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		RateLimit: rateLimitFromEnv(),
		Contact: ContactConfig{
			MinFillTime:   getEnvAsDuration("CONTACT_MIN_FILL_TIME", 2*time.Second),
			SendTimeout:   getEnvAsDuration("CONTACT_SEND_TIMEOUT", 10*time.Second),
			LogDir:        getEnv("CONTACT_LOG_DIR", "logs"),
			SubjectPrefix: getEnv("CONTACT_SUBJECT_PREFIX", "Portfolio Contact: "),
			SiteName:      getEnv("SITE_NAME", "Portfolio Website"),

			RejectDelayBaseMs:   getEnvAsInt("CONTACT_REJECT_DELAY_BASE_MS", 250),
			RejectDelayRandomMs: getEnvAsInt("CONTACT_REJECT_DELAY_RANDOM_MS", 250),
		},
		Mail: MailConfig{
			Transport:    strings.ToLower(getEnv("MAIL_TRANSPORT", TransportSMTP)),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPSecure:   strings.ToLower(getEnv("SMTP_SECURE", "tls")),
			FromAddress:  getEnv("MAIL_FROM_ADDRESS", ""),
			FromName:     getEnv("MAIL_FROM_NAME", "Portfolio Contact Form"),
			ToAddress:    getEnv("MAIL_TO_ADDRESS", ""),
			ToName:       getEnv("MAIL_TO_NAME", ""),
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		},
		Session: SessionConfig{
			Secret:     sessionSecret,
			TTL:        getEnvAsDuration("SESSION_TTL", 2*time.Hour),
			CookieName: getEnv("SESSION_COOKIE_NAME", "portfolio_session"),
			SameSite:   strings.ToLower(getEnv("SESSION_SAMESITE", "lax")),
		},
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}
	if err := cfg.validateStore(); err != nil {
		return nil, err
	}
	if err := cfg.Mail.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadStore reads only the rate-limit and database sections. It serves tools
// that inspect the rate-limit store without running the site.
func LoadStore() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database:  databaseFromEnv(),
		RateLimit: rateLimitFromEnv(),
	}
	if err := cfg.validateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func databaseFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "portfolio"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 1)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", false),
	}
}

func rateLimitFromEnv() RateLimitConfig {
	return RateLimitConfig{
		Store:           strings.ToLower(getEnv("RATE_LIMIT_STORE", StoreFile)),
		FilePath:        getEnv("RATE_LIMIT_FILE", "logs/rate_limit.json"),
		SQLitePath:      getEnv("RATE_LIMIT_SQLITE_PATH", "logs/rate_limit.db"),
		MaxSubmissions:  getEnvAsInt("RATE_LIMIT_MAX_SUBMISSIONS", 5),
		Window:          getEnvAsDuration("RATE_LIMIT_WINDOW", 1*time.Hour),
		BurstPerMinute:  getEnvAsInt("RATE_LIMIT_BURST_PER_MINUTE", 30),
		CleanupInterval: getEnvAsDuration("CLEANUP_INTERVAL", 10*time.Minute),
	}
}

func (c *Config) validateStore() error {
	if err := c.RateLimit.validate(); err != nil {
		return err
	}
	if c.RateLimit.Store == StorePostgres && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required when RATE_LIMIT_STORE=postgres")
	}
	return nil
}

// validateSessionSecret enforces minimum security standards for the session signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *RateLimitConfig) validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("RATE_LIMIT_STORE must be one of memory, file, sqlite, postgres (got %q)", c.Store)
	}
	if c.MaxSubmissions < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX_SUBMISSIONS must be positive")
	}
	if c.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *MailConfig) validate() error {
	switch c.Transport {
	case TransportSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when MAIL_TRANSPORT=smtp")
		}
		switch c.SMTPSecure {
		case "", "ssl", "tls":
		default:
			return fmt.Errorf("SMTP_SECURE must be ssl, tls or empty (got %q)", c.SMTPSecure)
		}
	case TransportSES, TransportLog:
	default:
		return fmt.Errorf("MAIL_TRANSPORT must be one of smtp, ses, log (got %q)", c.Transport)
	}
	if c.Transport != TransportLog && (c.FromAddress == "" || c.ToAddress == "") {
		return fmt.Errorf("MAIL_FROM_ADDRESS and MAIL_TO_ADDRESS are required")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SMTPAddr returns host:port for the SMTP relay
func (c *MailConfig) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
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

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return splitList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
	}
}
