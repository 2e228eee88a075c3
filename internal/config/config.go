package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxWebhookBodySize int64
	MaxUploadSize      int64
	LogLevel           string

	DBDriver       string
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	SQLitePath     string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	KafkaBrokers  []string
	KafkaTopic    string

	StripeSecretKey     string
	StripeWebhookSecret string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
	Currency            string

	StorageBucket         string
	GoogleCredentialsFile string

	BrevoKey        string
	MailSenderEmail string
	MailSenderName  string

	ReceiptDelivery        string
	AttachmentFetchTimeout time.Duration
}

const (
	DeliverySync  = "sync"
	DeliveryAsync = "async"
)

var required = []string{
	"STRIPE_SECRET_KEY",
	"STRIPE_WEBHOOK_SECRET",
	"STORAGE_BUCKET",
	"BREVO_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("MAX_REQUEST_BODY_SIZE", 1<<20)
	v.SetDefault("MAX_UPLOAD_SIZE", 64<<20)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "bookstore")
	v.SetDefault("DB_PASSWORD", "bookstore")
	v.SetDefault("DB_NAME", "bookstore")
	v.SetDefault("SQLITE_PATH", "bookstore.db")
	v.SetDefault("MIGRATIONS_PATH", "internal/repository/migrations")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "bookstore-sales")

	v.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:4200/compra-exitosa?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:4200/error-compra")
	v.SetDefault("CURRENCY", "mxn")

	v.SetDefault("MAIL_SENDER_EMAIL", "no-reply@bookstore.local")
	v.SetDefault("MAIL_SENDER_NAME", "Bookstore")

	v.SetDefault("RECEIPT_DELIVERY", DeliverySync)
	v.SetDefault("ATTACHMENT_FETCH_TIMEOUT", "20s")
}

// Load reads configuration from the environment, optionally layered over a
// config file. Every missing required key is reported in one error.
func Load(file string) (*Config, error) {
	return load(file, required)
}

// LoadDatabase is Load for commands that only touch the database, such as
// migrations. Gateway credentials are not required.
func LoadDatabase(file string) (*Config, error) {
	return load(file, nil)
}

func load(file string, requiredKeys []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		HTTPPort:           v.GetString("HTTP_PORT"),
		RequestTimeout:     v.GetDuration("REQUEST_TIMEOUT"),
		ShutdownTimeout:    v.GetDuration("SHUTDOWN_TIMEOUT"),
		MaxWebhookBodySize: v.GetInt64("MAX_REQUEST_BODY_SIZE"),
		MaxUploadSize:      v.GetInt64("MAX_UPLOAD_SIZE"),
		LogLevel:           v.GetString("LOG_LEVEL"),

		DBDriver:       strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:         v.GetString("DB_HOST"),
		DBPort:         v.GetInt("DB_PORT"),
		DBUser:         v.GetString("DB_USER"),
		DBPassword:     v.GetString("DB_PASSWORD"),
		DBName:         v.GetString("DB_NAME"),
		SQLitePath:     v.GetString("SQLITE_PATH"),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		KafkaBrokers:  splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:    v.GetString("KAFKA_TOPIC"),

		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		CheckoutSuccessURL:  v.GetString("CHECKOUT_SUCCESS_URL"),
		CheckoutCancelURL:   v.GetString("CHECKOUT_CANCEL_URL"),
		Currency:            strings.ToLower(v.GetString("CURRENCY")),

		StorageBucket:         v.GetString("STORAGE_BUCKET"),
		GoogleCredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),

		BrevoKey:        v.GetString("BREVO_KEY"),
		MailSenderEmail: v.GetString("MAIL_SENDER_EMAIL"),
		MailSenderName:  v.GetString("MAIL_SENDER_NAME"),

		ReceiptDelivery:        strings.ToLower(v.GetString("RECEIPT_DELIVERY")),
		AttachmentFetchTimeout: v.GetDuration("ATTACHMENT_FETCH_TIMEOUT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	switch c.ReceiptDelivery {
	case DeliverySync, DeliveryAsync:
	default:
		return fmt.Errorf("RECEIPT_DELIVERY must be sync or async, got %q", c.ReceiptDelivery)
	}
	if c.RequestTimeout <= 0 || c.AttachmentFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
