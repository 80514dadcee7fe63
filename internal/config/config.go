package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	Env        string `mapstructure:"ENV"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	// StoreDriver picks the backing store: postgres, sqlite or memory.
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// DBDriver is the database/sql driver name, "pgx" or "postgres" (lib/pq).
	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSslMode  string `mapstructure:"DB_SSLMODE"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	YardTimezone      string `mapstructure:"YARD_TIMEZONE"`
	ReconcileSchedule string `mapstructure:"RECONCILE_SCHEDULE"`
	HealSchedule      string `mapstructure:"HEAL_SCHEDULE"`

	AWSRegion          string `mapstructure:"AWS_REGION"`
	SMSQueueURL        string `mapstructure:"SMS_QUEUE_URL"`
	IoTEndpoint        string `mapstructure:"IOT_ENDPOINT"`
	DisplayTopicPrefix string `mapstructure:"DISPLAY_TOPIC_PREFIX"`

	// ReservationQueueURL enables the reservation intake consumer when set.
	ReservationQueueURL string `mapstructure:"RESERVATION_QUEUE_URL"`

	ReceiptEndpoint  string `mapstructure:"RECEIPT_ENDPOINT"`
	ReceiptAccessKey string `mapstructure:"RECEIPT_ACCESS_KEY"`
	ReceiptSecretKey string `mapstructure:"RECEIPT_SECRET_KEY"`
	ReceiptBucket    string `mapstructure:"RECEIPT_BUCKET"`
	ReceiptUseSSL    bool   `mapstructure:"RECEIPT_USE_SSL"`

	location *time.Location
}

var defaults = map[string]any{
	"SERVER_PORT":          "8080",
	"ENV":                  "development",
	"LOG_LEVEL":            "info",
	"STORE_DRIVER":         "postgres",
	"DB_DRIVER":            "pgx",
	"DB_HOST":              "localhost",
	"DB_PORT":              5432,
	"DB_USER":              "yard",
	"DB_PASSWORD":          "yard",
	"DB_NAME":              "yard_db",
	"DB_SSLMODE":           "disable",
	"SQLITE_PATH":          "yard.db",
	"YARD_TIMEZONE":        "Asia/Kolkata",
	"RECONCILE_SCHEDULE":   "5 0 * * *",
	"HEAL_SCHEDULE":        "*/15 * * * *",
	"AWS_REGION":           "ap-south-1",
	"SMS_QUEUE_URL":        "",
	"IOT_ENDPOINT":         "",
	"DISPLAY_TOPIC_PREFIX": "yard/slots",
	"RECEIPT_ENDPOINT":     "",
	"RECEIPT_ACCESS_KEY":   "",
	"RECEIPT_SECRET_KEY":   "",
	"RECEIPT_BUCKET":       "receipts",
	"RECEIPT_USE_SSL":      false,

	"RESERVATION_QUEUE_URL": "",
}

// Load reads .env (when present), then config.yaml, then the process environment.
// Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	switch c.StoreDriver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("config: unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.DBDriver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}

	loc, err := time.LoadLocation(c.YardTimezone)
	if err != nil {
		return fmt.Errorf("config: YARD_TIMEZONE: %w", err)
	}
	c.location = loc
	return nil
}

// Location is the yard's local timezone, used to decide which calendar day is "today".
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
