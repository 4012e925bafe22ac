package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App        AppConfig
	Server     ServerConfig
	Email      EmailConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Database   DatabaseConfig
	Session    SessionConfig
	OTP        OTPConfig
	Upload     UploadConfig
	QR         QRConfig
	Stripe     StripeConfig
	Invoice    InvoiceConfig
	Orders     OrdersConfig
	Log        LogConfig
	Migrations MigrationsConfig
}

type AppConfig struct {
	Name          string
	PublicBaseURL string
	APIBaseURL    string
	Timezone      string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// AllowedOrigins are the browser origins of the diner and dashboard apps.
	AllowedOrigins []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
	MenuTTL  time.Duration
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topic   string
	Enabled bool
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN returns a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.Username + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Database + "?sslmode=" + d.SSLMode
}

type EmailConfig struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
}

type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	SecureCookie bool
}

type OTPConfig struct {
	PhoneTTL     time.Duration
	EmailTTL     time.Duration
	MaxPerWindow int
	Window       time.Duration
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

type QRConfig struct {
	Secret string
	Size   int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type InvoiceConfig struct {
	// SequenceBackend is "db" or "redis".
	SequenceBackend string
	FontPath        string
}

type OrdersConfig struct {
	StrictTransitions bool
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type MigrationsConfig struct {
	Dir            string
	SuperAdminName string
	SuperAdminMail string
	SuperAdminPass string
}

func Load() *Config {
	return &Config{
		App: AppConfig{
			Name:          getEnv("APP_NAME", "dineflow"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			APIBaseURL:    strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
			Timezone:      getEnv("APP_TIMEZONE", "Local"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", ":8080"),
			ReadTimeout:    getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
		Email: EmailConfig{
			Enabled:      getEnvBool("SMTP_ENABLED", false),
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("SMTP_FROM", "no-reply@dineflow.local"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			MenuTTL:  getEnvDuration("REDIS_MENU_TTL", 5*time.Minute),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "dineflow"),
			Password:     getEnv("DB_PASSWORD", "dineflow"),
			Database:     getEnv("DB_NAME", "dineflow"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "dineflow-kitchen"),
			Topic:   getEnv("KAFKA_TOPIC_EVENTS", "dineflow.events"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
		},
		Session: SessionConfig{
			Secret:       getEnv("SESSION_SECRET", "change-me-in-production"),
			TTL:          getEnvDuration("SESSION_TTL", 24*time.Hour),
			SecureCookie: getEnvBool("SESSION_SECURE_COOKIE", false),
		},
		OTP: OTPConfig{
			PhoneTTL:     getEnvDuration("OTP_PHONE_TTL", 5*time.Minute),
			EmailTTL:     getEnvDuration("OTP_EMAIL_TTL", 15*time.Minute),
			MaxPerWindow: getEnvInt("OTP_MAX_PER_WINDOW", 5),
			Window:       getEnvDuration("OTP_WINDOW", 15*time.Minute),
		},
		Upload: UploadConfig{
			Dir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 2<<20)),
		},
		QR: QRConfig{
			Secret: getEnv("QR_SECRET", "0123456789abcdef0123456789abcdef"),
			Size:   getEnvInt("QR_SIZE", 256),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		Invoice: InvoiceConfig{
			SequenceBackend: getEnv("INVOICE_SEQUENCE_BACKEND", "db"),
			FontPath:        getEnv("INVOICE_FONT_PATH", "./fonts/DejaVuSans.ttf"),
		},
		Orders: OrdersConfig{
			StrictTransitions: getEnvBool("ORDERS_STRICT_TRANSITIONS", true),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "INFO"),
			File:       getEnv("LOG_FILE", "logs/dineflow.log"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),
		},
		Migrations: MigrationsConfig{
			Dir:            getEnv("MIGRATIONS_DIR", "./migrations"),
			SuperAdminName: getEnv("SUPER_ADMIN_NAME", "Platform Owner"),
			SuperAdminMail: getEnv("SUPER_ADMIN_EMAIL", ""),
			SuperAdminPass: getEnv("SUPER_ADMIN_PASSWORD", ""),
		},
	}
}

// Location resolves App.Timezone, falling back to the host zone.
func (c *Config) Location() *time.Location {
	if c.App.Timezone == "" || c.App.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
