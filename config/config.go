package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// EmailConfig drives the SendGrid channel.
type EmailConfig struct {
	Enabled        bool
	SendGridAPIKey string
	FromAddress    string
	FromName       string
}

// SMSConfig drives the SMS channel. Only the logging transport exists today.
type SMSConfig struct {
	Enabled bool
}

// StorageConfig selects where inline evidence is written.
type StorageConfig struct {
	UseGCS          bool
	Bucket          string
	CredentialsFile string
	LocalDir        string
	LocalBaseURL    string
}

// SchedulerConfig holds cron specs for the housekeeping jobs.
type SchedulerConfig struct {
	TokenSweepSpec   string
	OverdueSweepSpec string
}

// AdminConfig is the bootstrap admin created on an empty users table.
type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

// AppConfig is everything read from the environment at startup.
type AppConfig struct {
	Environment       string
	Port              string
	DatabaseDSN       string
	JWTSecret         string
	PublicBaseURL     string
	TokenTTLHours     int
	ShortLinkTTLHours int
	TATDays           int
	// TrustedProxies lists the addresses (IP or CIDR) whose forwarding
	// headers are believed when recording client IPs.
	TrustedProxies []string
	Email          EmailConfig
	SMS            SMSConfig
	Storage        StorageConfig
	Scheduler      SchedulerConfig
	Admin          AdminConfig

	// DotEnvLoaded is false when no .env file was found. Load runs before
	// the logger exists, so main reports it.
	DotEnvLoaded bool
}

// Load reads .env (if present) and the process environment.
func Load() (*AppConfig, error) {
	envErr := godotenv.Load()

	cfg := &AppConfig{
		Environment:    getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseDSN:    os.Getenv("DB_DSN"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_WEB_BASE_URL", "http://localhost:8080"), "/"),
		TokenTTLHours:  getInt("TOKEN_TTL_HOURS", 48),
		TATDays:        getInt("TAT_DAYS", 7),
		TrustedProxies: getList("TRUSTED_PROXIES"),
		Email: EmailConfig{
			Enabled:        getBool("EMAIL_ENABLED", false),
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			FromAddress:    getEnv("EMAIL_FROM_ADDRESS", "no-reply@verifyops.local"),
			FromName:       getEnv("EMAIL_FROM_NAME", "Verification Team"),
		},
		SMS: SMSConfig{
			Enabled: getBool("SMS_ENABLED", false),
		},
		Storage: StorageConfig{
			UseGCS:          getBool("USE_GCS", false),
			Bucket:          os.Getenv("GCS_BUCKET"),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			LocalDir:        getEnv("UPLOAD_DIR", "./uploads"),
			LocalBaseURL:    getEnv("UPLOAD_BASE_URL", "/uploads"),
		},
		Scheduler: SchedulerConfig{
			TokenSweepSpec:   os.Getenv("TOKEN_SWEEP_CRON"),
			OverdueSweepSpec: os.Getenv("OVERDUE_REPORT_CRON"),
		},
		Admin: AdminConfig{
			Name:     getEnv("ADMIN_NAME", "Administrator"),
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}
	cfg.ShortLinkTTLHours = getInt("SHORT_LINK_TTL_HOURS", cfg.TokenTTLHours)

	cfg.DotEnvLoaded = envErr == nil
	return cfg, cfg.validate()
}

func (c *AppConfig) validate() error {
	var missing []string
	if c.DatabaseDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Storage.UseGCS && c.Storage.Bucket == "" {
		missing = append(missing, "GCS_BUCKET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.TokenTTLHours <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive, got %d", c.TokenTTLHours)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Connect opens Postgres, stores the handle in DB and runs migrations.
func Connect(cfg *AppConfig) (*gorm.DB, error) {
	level := logger.Warn
	if !cfg.IsProduction() {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	DB = db
	zap.S().Infow("database connected", "environment", cfg.Environment)
	return db, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
